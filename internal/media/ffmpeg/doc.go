// Package ffmpeg drives the external video encoder. All entry points share
// the same contract with the pipeline: produce a valid file at outputPath or
// return an error. Clip files are encoded independently and concatenated with
// the concat demuxer, strictly in manifest order.
package ffmpeg
