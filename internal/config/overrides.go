package config

// Overrides carries the per-deck and per-invocation settings that may shadow
// the config file. Nil fields leave the underlying value untouched; CLI
// overrides are applied after deck overrides so flags win.
type Overrides struct {
	MainVoice     *string
	CodeVoice     *string
	QuestionDelay *float64
	AnswerDelay   *float64
	CardGap       *float64
	FontSize      *float64
	OutputDir     *string
}

// Apply returns a copy of the config with the overrides layered on top.
func (c Config) Apply(layers ...Overrides) Config {
	for _, o := range layers {
		if o.MainVoice != nil {
			c.TTS.MainVoice = *o.MainVoice
		}
		if o.CodeVoice != nil {
			c.TTS.CodeVoice = *o.CodeVoice
		}
		if o.QuestionDelay != nil {
			c.Timing.QuestionDelay = *o.QuestionDelay
		}
		if o.AnswerDelay != nil {
			c.Timing.AnswerDelay = *o.AnswerDelay
		}
		if o.CardGap != nil {
			c.Timing.CardGap = *o.CardGap
		}
		if o.FontSize != nil {
			c.Slide.FontSize = *o.FontSize
		}
		if o.OutputDir != nil {
			c.Paths.OutputDir = *o.OutputDir
		}
	}
	return c
}
