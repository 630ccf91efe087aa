// Package audioplan decides how a card's narration maps onto synthesis calls.
// A question is always one call; an answer that mixes prose and code fans out
// into one call per span so each side can use its own voice, with the stitched
// result addressed by the ordered hash of every part.
package audioplan

import (
	"fmt"
	"strings"

	"cardcast/internal/hashutil"
	"cardcast/internal/markdown"
	"cardcast/internal/ttstext"
)

// Part is one single-voice synthesis unit.
type Part struct {
	AudioPath string
	Text      string
	Voice     string
}

// Plan is the full recipe for producing one segment's final audio.
//
// When MultiPart is false FinalAudioPath equals Parts[0].AudioPath and no
// concatenation happens. When true, FinalAudioPath is a distinct artifact
// keyed on the ordered hash of every part's (text, voice) pair: reordering,
// adding, or removing any part moves the final path even while untouched
// parts stay individually cached.
type Plan struct {
	FinalAudioPath string
	Parts          []Part
	MultiPart      bool
}

// Builder produces audio plans for one pipeline run.
type Builder struct {
	CacheDir  string
	MainVoice string
	CodeVoice string
}

// Question builds the single-part plan for a card's question side.
func (b Builder) Question(cardIndex int, text string) Plan {
	speech := ttstext.Normalize(text)
	prefix := fmt.Sprintf("q_%d", cardIndex)
	path := hashutil.Path(b.CacheDir, prefix, partKey(speech, b.MainVoice), "wav")
	return Plan{
		FinalAudioPath: path,
		Parts:          []Part{{AudioPath: path, Text: speech, Voice: b.MainVoice}},
	}
}

// Answer builds the plan for a card's answer side, fanning out into one part
// per prose/code span when the text mixes the two.
func (b Builder) Answer(cardIndex int, text string) Plan {
	prefix := fmt.Sprintf("a_%d", cardIndex)
	spans := markdown.Split(text)
	if !markdown.HasCode(spans) {
		// Single voice, single call. Covers the degenerate zero-span case
		// too: whitespace input becomes one empty prose part.
		speech := ttstext.Normalize(text)
		path := hashutil.Path(b.CacheDir, prefix, partKey(speech, b.MainVoice), "wav")
		return Plan{
			FinalAudioPath: path,
			Parts:          []Part{{AudioPath: path, Text: speech, Voice: b.MainVoice}},
		}
	}

	parts := make([]Part, 0, len(spans))
	partHashes := make([]string, 0, len(spans))
	for i, span := range spans {
		voice := b.MainVoice
		if span.Kind == markdown.Code {
			voice = b.CodeVoice
		}
		speech := ttstext.Normalize(span.Content)
		key := partKey(speech, voice)
		partPrefix := fmt.Sprintf("%s_p%d", prefix, i)
		parts = append(parts, Part{
			AudioPath: hashutil.Path(b.CacheDir, partPrefix, key, "wav"),
			Text:      speech,
			Voice:     voice,
		})
		partHashes = append(partHashes, hashutil.Short(key))
	}
	finalKey := strings.Join(partHashes, "\n")
	return Plan{
		FinalAudioPath: hashutil.Path(b.CacheDir, prefix, finalKey, "wav"),
		Parts:          parts,
		MultiPart:      true,
	}
}

// Paths returns every artifact path the plan owns, final path included, for
// prefix-scoped stale cleanup.
func (p Plan) Paths() []string {
	paths := make([]string, 0, len(p.Parts)+1)
	for _, part := range p.Parts {
		paths = append(paths, part.AudioPath)
	}
	if p.MultiPart {
		paths = append(paths, p.FinalAudioPath)
	}
	return paths
}

func partKey(text, voice string) string {
	return text + "|" + voice
}
