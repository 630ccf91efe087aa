// Package testsupport provides shared fixtures for package tests.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"cardcast/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// Directories exist by the time it returns.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.CacheDir = filepath.Join(base, "cache")
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.TempDir = filepath.Join(base, "tmp")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.HistoryPath = filepath.Join(base, "history.db")
	cfg.TTS.Workers = 1
	cfg.TTS.CodeWorkers = 1

	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithVoices overrides the main and code voice names.
func WithVoices(main, code string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.TTS.MainVoice = main
		cfg.TTS.CodeVoice = code
	}
}

// WithWorkerCommand points the TTS pool at a stub worker binary.
func WithWorkerCommand(command string, args ...string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.TTS.WorkerCommand = command
		cfg.TTS.WorkerArgs = args
	}
}

// WriteDeck writes a deck file under the test's temp space and returns its
// path.
func WriteDeck(t testing.TB, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write deck %s: %v", name, err)
	}
	return path
}
