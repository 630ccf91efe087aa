package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var commandContext = exec.CommandContext

// Client wraps the ffmpeg command-line encoder.
type Client struct {
	binary string
	fps    int
}

// Option configures the client.
type Option func(*Client)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *Client) {
		if strings.TrimSpace(binary) != "" {
			c.binary = binary
		}
	}
}

// WithFPS overrides the output frame rate.
func WithFPS(fps int) Option {
	return func(c *Client) {
		if fps > 0 {
			c.fps = fps
		}
	}
}

// NewClient constructs a client using defaults.
func NewClient(opts ...Option) *Client {
	client := &Client{binary: "ffmpeg", fps: 30}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// SegmentClip renders a still image plus its narration into a clip held for
// holdSeconds. Audio shorter than the hold is padded with silence, which is
// how the post-speech pause becomes part of the clip.
func (c *Client) SegmentClip(ctx context.Context, imagePath, audioPath string, holdSeconds float64, outputPath string) error {
	if holdSeconds <= 0 {
		return errors.New("ffmpeg: segment clip duration must be positive")
	}
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-loop", "1",
		"-i", imagePath,
		"-i", audioPath,
		"-filter_complex", "[1:a]apad[padded]",
		"-map", "0:v",
		"-map", "[padded]",
		"-t", formatSeconds(holdSeconds),
		"-r", strconv.Itoa(c.fps),
		"-c:v", "libx264",
		"-tune", "stillimage",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		outputPath,
	}
	return c.run(ctx, args, outputPath)
}

// SilentClip renders a still image with silent audio for the given duration.
func (c *Client) SilentClip(ctx context.Context, imagePath string, seconds float64, outputPath string) error {
	if seconds <= 0 {
		return errors.New("ffmpeg: silent clip duration must be positive")
	}
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-loop", "1",
		"-i", imagePath,
		"-f", "lavfi",
		"-i", "anullsrc=channel_layout=mono:sample_rate=22050",
		"-t", formatSeconds(seconds),
		"-r", strconv.Itoa(c.fps),
		"-c:v", "libx264",
		"-tune", "stillimage",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		outputPath,
	}
	return c.run(ctx, args, outputPath)
}

// ConcatAudio stitches WAV part files into one, preserving list order.
func (c *Client) ConcatAudio(ctx context.Context, paths []string, outputPath, tempDir string) error {
	if len(paths) == 0 {
		return errors.New("ffmpeg: no audio parts to concatenate")
	}
	manifest, err := writeManifest(paths, tempDir)
	if err != nil {
		return err
	}
	defer os.Remove(manifest)

	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "concat",
		"-safe", "0",
		"-i", manifest,
		"-c", "copy",
		outputPath,
	}
	return c.run(ctx, args, outputPath)
}

func (c *Client) run(ctx context.Context, args []string, outputPath string) error {
	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(string(output)))
	}
	if _, err := os.Stat(outputPath); err != nil {
		return fmt.Errorf("ffmpeg: output not produced: %w", err)
	}
	return nil
}

// writeManifest produces a concat-demuxer file list. Paths are absolutized
// and single quotes escaped the way the demuxer expects.
func writeManifest(paths []string, tempDir string) (string, error) {
	var list strings.Builder
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("ffmpeg: absolutize %s: %w", path, err)
		}
		escaped := strings.ReplaceAll(abs, "'", `'\''`)
		fmt.Fprintf(&list, "file '%s'\n", escaped)
	}
	manifest := filepath.Join(tempDir, "concat-"+uuid.NewString()+".txt")
	if err := os.WriteFile(manifest, []byte(list.String()), 0o644); err != nil {
		return "", fmt.Errorf("ffmpeg: write manifest: %w", err)
	}
	return manifest, nil
}

func formatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', 3, 64)
}
