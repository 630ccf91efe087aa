package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ConcatClips joins clip files into the final video, strictly in list order.
// durations, when provided, enables progress mapping: onProgress receives the
// zero-based index of the clip the encoder has reached, fired once per clip
// boundary crossed rather than once per encoder tick.
func (c *Client) ConcatClips(ctx context.Context, paths []string, outputPath, tempDir string, durations []float64, onProgress func(clipIndex int)) error {
	if len(paths) == 0 {
		return errors.New("ffmpeg: no clips to concatenate")
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
		"-progress", "pipe:1",
		"-nostats",
		outputPath,
	}
	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg: stdout pipe: %w", err)
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg: start concat: %w", err)
	}

	tracker := newBoundaryTracker(durations)
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		seconds, ok := parseProgressLine(scanner.Text())
		if !ok {
			continue
		}
		if onProgress == nil {
			continue
		}
		for _, index := range tracker.advance(seconds) {
			onProgress(index)
		}
	}
	if err := scanner.Err(); err != nil {
		_ = cmd.Wait()
		return fmt.Errorf("ffmpeg: read progress: %w", err)
	}
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg: concat failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if _, err := os.Stat(outputPath); err != nil {
		return fmt.Errorf("ffmpeg: output not produced: %w", err)
	}
	return nil
}

// parseProgressLine extracts elapsed output time from one -progress key=value
// line.
func parseProgressLine(line string) (float64, bool) {
	line = strings.TrimSpace(line)
	value, found := strings.CutPrefix(line, "out_time_us=")
	if !found {
		return 0, false
	}
	micros, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || micros < 0 {
		return 0, false
	}
	return float64(micros) / 1e6, true
}

// boundaryTracker maps elapsed encode time back to clip indexes using
// precomputed cumulative duration boundaries.
type boundaryTracker struct {
	boundaries []float64
	next       int
}

func newBoundaryTracker(durations []float64) *boundaryTracker {
	boundaries := make([]float64, len(durations))
	var total float64
	for i, d := range durations {
		total += d
		boundaries[i] = total
	}
	return &boundaryTracker{boundaries: boundaries}
}

// advance returns the indexes of every clip boundary crossed since the last
// call, in order.
func (t *boundaryTracker) advance(elapsed float64) []int {
	var crossed []int
	for t.next < len(t.boundaries) && elapsed >= t.boundaries[t.next] {
		crossed = append(crossed, t.next)
		t.next++
	}
	return crossed
}
