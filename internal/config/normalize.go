package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// normalize trims and absolutizes paths and fills derived defaults.
func (c *Config) normalize() error {
	fields := []*string{
		&c.Paths.CacheDir,
		&c.Paths.OutputDir,
		&c.Paths.TempDir,
		&c.Paths.LogDir,
		&c.Paths.HistoryPath,
		&c.Slide.FontPath,
	}
	for _, field := range fields {
		expanded, err := expandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}
	c.TTS.WorkerCommand = strings.TrimSpace(c.TTS.WorkerCommand)
	c.TTS.MainVoice = strings.TrimSpace(c.TTS.MainVoice)
	c.TTS.CodeVoice = strings.TrimSpace(c.TTS.CodeVoice)
	c.Encode.FFmpegBinary = strings.TrimSpace(c.Encode.FFmpegBinary)
	c.Encode.FFprobeBinary = strings.TrimSpace(c.Encode.FFprobeBinary)
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	if c.TTS.CodeVoice == "" {
		c.TTS.CodeVoice = c.TTS.MainVoice
	}
	if c.TTS.CodeWorkers < 1 {
		c.TTS.CodeWorkers = 1
	}
	return nil
}

func expandPath(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	if value == "~" || strings.HasPrefix(value, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand %q: %w", value, err)
		}
		value = filepath.Join(home, strings.TrimPrefix(value, "~"))
	}
	abs, err := filepath.Abs(value)
	if err != nil {
		return "", fmt.Errorf("absolutize %q: %w", value, err)
	}
	return abs, nil
}
