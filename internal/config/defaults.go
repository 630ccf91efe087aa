package config

import (
	"os"
	"path/filepath"
)

// Default returns the built-in configuration.
func Default() Config {
	dataDir := defaultDataDir()
	return Config{
		Paths: Paths{
			CacheDir:    filepath.Join(dataDir, "cache"),
			OutputDir:   filepath.Join(dataDir, "output"),
			TempDir:     filepath.Join(dataDir, "tmp"),
			LogDir:      filepath.Join(dataDir, "logs"),
			HistoryPath: filepath.Join(dataDir, "history.db"),
		},
		TTS: TTS{
			WorkerCommand: "cardcast-tts-worker",
			MainVoice:     "en_GB-alba-medium",
			CodeVoice:     "en_GB-alan-medium",
			Workers:       0,
			CodeWorkers:   1,
		},
		Timing: Timing{
			QuestionDelay: 2.0,
			AnswerDelay:   1.5,
			CardGap:       0.5,
		},
		Slide: Slide{
			Width:            1920,
			Height:           1080,
			FontSize:         52,
			BackgroundTop:    "#1e2430",
			BackgroundBottom: "#11151c",
			Accent:           "#3d74d6",
			TextColor:        "#e8e8e8",
		},
		Encode: Encode{
			FFmpegBinary:  "ffmpeg",
			FFprobeBinary: "ffprobe",
			FPS:           30,
			Concurrency:   0,
		},
		LogLevel:  "info",
		LogFormat: "console",
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cardcast"
	}
	return filepath.Join(home, ".local", "share", "cardcast")
}
