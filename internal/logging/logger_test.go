package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestConsoleHandlerOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "debug", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	NewComponentLogger(logger, "cache").Info("stale artifact removed", String("artifact", "a_3_old.wav"))

	line := buf.String()
	for _, fragment := range []string{"INF", "[cache]", "stale artifact removed", "artifact=a_3_old.wav"} {
		if !strings.Contains(line, fragment) {
			t.Fatalf("output %q missing %q", line, fragment)
		}
	}
}

func TestConsoleHandlerQuotesSpacedValues(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	logger.Info("msg", String("title", "Go Basics Deck"))
	if !strings.Contains(buf.String(), `title="Go Basics Deck"`) {
		t.Fatalf("spaced value not quoted: %q", buf.String())
	}
}

func TestJSONHandlerOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	logger.Warn("worker exited uncleanly", Int("worker", 2))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode: %v (%q)", err, buf.String())
	}
	if record["level"] != "warn" || record["msg"] != "worker exited uncleanly" {
		t.Fatalf("unexpected record: %v", record)
	}
	if record["worker"] != float64(2) {
		t.Fatalf("missing attr: %v", record)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "warn", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("visible")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "visible") {
		t.Fatalf("level filtering broken: %q", out)
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
