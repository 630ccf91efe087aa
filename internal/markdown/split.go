package markdown

import "strings"

// Kind classifies a span of card text.
type Kind string

const (
	Prose Kind = "prose"
	Code  Kind = "code"
)

// Span is one contiguous run of prose or code.
type Span struct {
	Kind    Kind
	Content string
}

// Split partitions text into ordered prose and code spans. Fenced blocks
// (``` ... ```) and inline backtick spans both count as code. Fence and
// backtick markers are consumed, and prose that is only whitespace (the gaps
// between consecutive fences) is dropped. An unterminated fence runs to the
// end of the input.
func Split(text string) []Span {
	var spans []Span
	var prose strings.Builder
	var code strings.Builder
	inFence := false

	flushProse := func() {
		content := prose.String()
		prose.Reset()
		if strings.TrimSpace(content) == "" {
			return
		}
		spans = append(spans, Span{Kind: Prose, Content: content})
	}
	flushCode := func() {
		if code.Len() > 0 {
			spans = append(spans, Span{Kind: Code, Content: code.String()})
			code.Reset()
		}
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			if inFence {
				flushCode()
			} else {
				flushProse()
			}
			inFence = !inFence
			continue
		}
		if inFence {
			if code.Len() > 0 {
				code.WriteByte('\n')
			}
			code.WriteString(line)
			continue
		}
		for _, span := range SplitInline(line) {
			if span.Kind == Code {
				flushProse()
				spans = append(spans, span)
				continue
			}
			prose.WriteString(span.Content)
		}
		if i < len(lines)-1 {
			prose.WriteByte('\n')
		}
	}
	flushProse()
	flushCode()
	return spans
}

// SplitInline partitions a single line around inline backtick spans,
// preserving every byte of the line. An unmatched backtick is treated as
// literal prose.
func SplitInline(line string) []Span {
	var spans []Span
	for {
		open := strings.IndexByte(line, '`')
		if open < 0 {
			break
		}
		close := strings.IndexByte(line[open+1:], '`')
		if close < 0 {
			break
		}
		if open > 0 {
			spans = append(spans, Span{Kind: Prose, Content: line[:open]})
		}
		if inner := line[open+1 : open+1+close]; inner != "" {
			spans = append(spans, Span{Kind: Code, Content: inner})
		}
		line = line[open+close+2:]
	}
	if line != "" {
		spans = append(spans, Span{Kind: Prose, Content: line})
	}
	return spans
}

// HasCode reports whether any span in the list is code.
func HasCode(spans []Span) bool {
	for _, span := range spans {
		if span.Kind == Code {
			return true
		}
	}
	return false
}
