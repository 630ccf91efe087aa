// Package ttstext prepares card text for speech synthesis. Markdown syntax
// that would be read aloud is stripped and a fixed pronunciation table expands
// the abbreviations that trip up TTS voices.
package ttstext

import (
	"regexp"
	"strings"
)

// pronunciations maps written forms to speakable replacements. Matches are
// whole-word and case-sensitive; ordering does not matter because entries
// never overlap.
var pronunciations = map[string]string{
	"e.g.":  "for example",
	"i.e.":  "that is",
	"etc.":  "et cetera",
	"vs.":   "versus",
	"API":   "A P I",
	"CLI":   "C L I",
	"CPU":   "C P U",
	"HTTP":  "H T T P",
	"HTTPS": "H T T P S",
	"JSON":  "jason",
	"SQL":   "sequel",
	"URL":   "U R L",
	"UUID":  "U U I D",
	"YAML":  "yammel",
	"&":     "and",
}

var (
	emphasisPattern   = regexp.MustCompile(`(\*\*|__|\*|_)([^*_]+)(\*\*|__|\*|_)`)
	headingPattern    = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	listPattern       = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	wordPattern       = regexp.MustCompile(`[A-Za-z]+\.?[a-z]*\.?|&`)
)

// Normalize converts raw card text into speakable text. The result feeds the
// cache key for the synthesized audio, so it must stay deterministic.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "`", "")
	text = emphasisPattern.ReplaceAllString(text, "$2")
	text = headingPattern.ReplaceAllString(text, "")
	text = listPattern.ReplaceAllString(text, "")
	text = wordPattern.ReplaceAllStringFunc(text, func(word string) string {
		if replacement, ok := pronunciations[word]; ok {
			return replacement
		}
		return word
	})
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
