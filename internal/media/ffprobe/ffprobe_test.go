package ffprobe

import (
	"context"
	"os/exec"
	"strings"
	"testing"
)

func TestDurationSecondsParsing(t *testing.T) {
	result := Result{Format: Format{Duration: "12.480000"}}
	if result.DurationSeconds() != 12.48 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
}

func TestDurationSecondsHandlesInvalidValues(t *testing.T) {
	for _, raw := range []string{"", "bad", "-3"} {
		result := Result{Format: Format{Duration: raw}}
		if result.DurationSeconds() != 0 {
			t.Fatalf("expected 0 for %q, got %v", raw, result.DurationSeconds())
		}
	}
}

func TestDurationUsesProbedOutput(t *testing.T) {
	original := commandContext
	t.Cleanup(func() { commandContext = original })
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		payload := `{"streams":[{"index":0,"codec_type":"audio"}],"format":{"duration":"3.25"}}`
		return exec.CommandContext(ctx, "echo", payload)
	}

	seconds, err := Duration(context.Background(), "ffprobe", "/tmp/a_0_abc.wav")
	if err != nil {
		t.Fatalf("duration: %v", err)
	}
	if seconds != 3.25 {
		t.Fatalf("unexpected duration: %v", seconds)
	}
}

func TestDurationRejectsMissingDuration(t *testing.T) {
	original := commandContext
	t.Cleanup(func() { commandContext = original })
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "echo", `{"format":{}}`)
	}

	_, err := Duration(context.Background(), "ffprobe", "/tmp/a_0_abc.wav")
	if err == nil || !strings.Contains(err.Error(), "no duration") {
		t.Fatalf("expected missing-duration error, got %v", err)
	}
}

func TestInspectRejectsEmptyPath(t *testing.T) {
	if _, err := Inspect(context.Background(), "ffprobe", "  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
