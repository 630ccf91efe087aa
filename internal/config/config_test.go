package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TTS.MainVoice != Default().TTS.MainVoice {
		t.Fatalf("expected default voice, got %q", cfg.TTS.MainVoice)
	}
}

func TestLoadLayersOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	doc := "[timing]\nquestion_delay = 3.5\n\n[slide]\nfont_size = 40.0\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Timing.QuestionDelay != 3.5 {
		t.Fatalf("file value not applied: %f", cfg.Timing.QuestionDelay)
	}
	if cfg.Slide.FontSize != 40 {
		t.Fatalf("file value not applied: %f", cfg.Slide.FontSize)
	}
	if cfg.Encode.FPS != Default().Encode.FPS {
		t.Fatalf("unset value lost its default: %d", cfg.Encode.FPS)
	}
}

func TestValidateRejectsBadColor(t *testing.T) {
	cfg := Default()
	cfg.Slide.Accent = "blue"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "slide.accent") {
		t.Fatalf("expected color validation failure, got %v", err)
	}
}

func TestValidateRejectsNegativeDelay(t *testing.T) {
	cfg := Default()
	cfg.Timing.CardGap = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected delay validation failure")
	}
}

func TestApplyLayersInOrder(t *testing.T) {
	cfg := Default()
	deckVoice := "deck-voice"
	flagVoice := "flag-voice"
	delay := 9.0

	layered := cfg.Apply(
		Overrides{MainVoice: &deckVoice, QuestionDelay: &delay},
		Overrides{MainVoice: &flagVoice},
	)
	if layered.TTS.MainVoice != flagVoice {
		t.Fatalf("later layer must win, got %q", layered.TTS.MainVoice)
	}
	if layered.Timing.QuestionDelay != delay {
		t.Fatalf("earlier layer lost: %f", layered.Timing.QuestionDelay)
	}
	if cfg.TTS.MainVoice == flagVoice {
		t.Fatal("Apply must not mutate the receiver")
	}
}

func TestNormalizeExpandsTilde(t *testing.T) {
	cfg := Default()
	cfg.Paths.CacheDir = "~/cache"
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if strings.HasPrefix(cfg.Paths.CacheDir, "~") {
		t.Fatalf("tilde not expanded: %q", cfg.Paths.CacheDir)
	}
	if !filepath.IsAbs(cfg.Paths.CacheDir) {
		t.Fatalf("path not absolute: %q", cfg.Paths.CacheDir)
	}
}

func TestSampleConfigParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := os.WriteFile(path, []byte(Sample()), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("sample config must load cleanly: %v", err)
	}
}
