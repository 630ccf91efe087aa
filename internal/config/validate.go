package config

import (
	"fmt"
	"regexp"
	"strings"
)

var hexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Validate checks the configuration for values the pipeline cannot work with.
func (c *Config) Validate() error {
	var problems []string

	if c.Paths.CacheDir == "" {
		problems = append(problems, "paths.cache_dir is required")
	}
	if c.Paths.OutputDir == "" {
		problems = append(problems, "paths.output_dir is required")
	}
	if c.TTS.WorkerCommand == "" {
		problems = append(problems, "tts.worker_command is required")
	}
	if c.TTS.MainVoice == "" {
		problems = append(problems, "tts.main_voice is required")
	}
	if c.TTS.Workers < 0 {
		problems = append(problems, "tts.workers cannot be negative")
	}
	if c.Timing.QuestionDelay < 0 || c.Timing.AnswerDelay < 0 || c.Timing.CardGap < 0 {
		problems = append(problems, "timing delays cannot be negative")
	}
	if c.Slide.Width <= 0 || c.Slide.Height <= 0 {
		problems = append(problems, "slide.width and slide.height must be positive")
	}
	if c.Slide.FontSize <= 0 {
		problems = append(problems, "slide.font_size must be positive")
	}
	for name, value := range map[string]string{
		"slide.background_top":    c.Slide.BackgroundTop,
		"slide.background_bottom": c.Slide.BackgroundBottom,
		"slide.accent":            c.Slide.Accent,
		"slide.text_color":        c.Slide.TextColor,
	} {
		if !hexColorPattern.MatchString(value) {
			problems = append(problems, fmt.Sprintf("%s must be a #rrggbb color, got %q", name, value))
		}
	}
	if c.Encode.FPS <= 0 {
		problems = append(problems, "encode.fps must be positive")
	}
	if c.Encode.Concurrency < 0 {
		problems = append(problems, "encode.concurrency cannot be negative")
	}
	switch c.LogFormat {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("log_format must be console or json, got %q", c.LogFormat))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
