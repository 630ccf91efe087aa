// Package ffprobe inspects media files via the ffprobe command-line tool.
// The pipeline uses it as its duration oracle: segment timing always comes
// from the synthesized audio on disk, never from an estimate.
package ffprobe
