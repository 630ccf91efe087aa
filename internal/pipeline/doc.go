// Package pipeline orchestrates deck-to-video generation as four stages:
// parse, synthesize narration, render slides, assemble clips into the final
// video. Every stage output is content-addressed in a shared cache directory,
// so reruns redo only the work whose inputs changed. Audio and slides are
// independent; clips depend on both; the final video depends on the full
// ordered clip list.
package pipeline
