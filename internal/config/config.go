package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	CacheDir    string `toml:"cache_dir"`
	OutputDir   string `toml:"output_dir"`
	TempDir     string `toml:"temp_dir"`
	LogDir      string `toml:"log_dir"`
	HistoryPath string `toml:"history_path"`
}

// TTS contains voice and worker-pool configuration.
type TTS struct {
	// WorkerCommand is the external synthesis worker binary.
	WorkerCommand string   `toml:"worker_command"`
	WorkerArgs    []string `toml:"worker_args"`
	MainVoice     string   `toml:"main_voice"`
	CodeVoice     string   `toml:"code_voice"`
	// Workers sizes the main-voice pool; 0 means half the CPU cores.
	Workers int `toml:"workers"`
	// CodeWorkers sizes the code-voice pool. Code segments are rare and
	// short, so one resident worker is the default.
	CodeWorkers int `toml:"code_workers"`
}

// Timing contains post-speech pause durations in seconds.
type Timing struct {
	QuestionDelay float64 `toml:"question_delay"`
	AnswerDelay   float64 `toml:"answer_delay"`
	CardGap       float64 `toml:"card_gap"`
}

// Slide contains visual styling. Every field here is a semantic input to the
// slide cache keys: changing any of them regenerates all slides.
type Slide struct {
	Width            int     `toml:"width"`
	Height           int     `toml:"height"`
	FontSize         float64 `toml:"font_size"`
	FontPath         string  `toml:"font_path"`
	BackgroundTop    string  `toml:"background_top"`
	BackgroundBottom string  `toml:"background_bottom"`
	Accent           string  `toml:"accent"`
	TextColor        string  `toml:"text_color"`
}

// Encode contains video encoder settings.
type Encode struct {
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
	FPS           int    `toml:"fps"`
	// Concurrency bounds simultaneous clip encodes; 0 means half the CPU
	// cores, leaving headroom for ffmpeg's own threads.
	Concurrency int `toml:"concurrency"`
}

// Config is the root configuration document.
type Config struct {
	Paths  Paths  `toml:"paths"`
	TTS    TTS    `toml:"tts"`
	Timing Timing `toml:"timing"`
	Slide  Slide  `toml:"slide"`
	Encode Encode `toml:"encode"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// Load reads the config file at path, layered over defaults. A missing file
// is not an error: defaults apply unmodified.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if err := cfg.normalize(); err != nil {
				return nil, err
			}
			return &cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, cfg.Validate()
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "cardcast.toml"
	}
	return filepath.Join(home, ".config", "cardcast", "config.toml")
}

// Sample returns the embedded sample configuration document.
func Sample() string {
	return sampleConfig
}

// EnsureDirectories creates every configured directory.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.CacheDir, c.Paths.OutputDir, c.Paths.TempDir, c.Paths.LogDir}
	if c.Paths.HistoryPath != "" {
		dirs = append(dirs, filepath.Dir(c.Paths.HistoryPath))
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}
