package markdown

import (
	"reflect"
	"testing"
)

func TestSplitPlainProse(t *testing.T) {
	spans := Split("a map is an unordered collection")
	want := []Span{{Kind: Prose, Content: "a map is an unordered collection"}}
	if !reflect.DeepEqual(spans, want) {
		t.Fatalf("unexpected spans: %#v", spans)
	}
	if HasCode(spans) {
		t.Fatal("prose-only text reported code")
	}
}

func TestSplitFencedBlock(t *testing.T) {
	text := "Use make:\n```\nm := make(map[string]int)\n```\nThen assign."
	spans := Split(text)
	want := []Span{
		{Kind: Prose, Content: "Use make:\n"},
		{Kind: Code, Content: "m := make(map[string]int)"},
		{Kind: Prose, Content: "Then assign."},
	}
	if !reflect.DeepEqual(spans, want) {
		t.Fatalf("unexpected spans: %#v", spans)
	}
}

func TestSplitInlineCode(t *testing.T) {
	spans := Split("call `len(s)` on the slice")
	want := []Span{
		{Kind: Prose, Content: "call "},
		{Kind: Code, Content: "len(s)"},
		{Kind: Prose, Content: " on the slice"},
	}
	if !reflect.DeepEqual(spans, want) {
		t.Fatalf("unexpected spans: %#v", spans)
	}
}

func TestSplitLanguageTaggedFence(t *testing.T) {
	spans := Split("```go\nfmt.Println(1)\n```")
	want := []Span{{Kind: Code, Content: "fmt.Println(1)"}}
	if !reflect.DeepEqual(spans, want) {
		t.Fatalf("unexpected spans: %#v", spans)
	}
}

func TestSplitUnterminatedFenceRunsToEnd(t *testing.T) {
	spans := Split("before\n```\nx := 1\ny := 2")
	want := []Span{
		{Kind: Prose, Content: "before\n"},
		{Kind: Code, Content: "x := 1\ny := 2"},
	}
	if !reflect.DeepEqual(spans, want) {
		t.Fatalf("unexpected spans: %#v", spans)
	}
}

func TestSplitInlineUnmatchedBacktick(t *testing.T) {
	spans := SplitInline("a stray ` backtick")
	want := []Span{{Kind: Prose, Content: "a stray ` backtick"}}
	if !reflect.DeepEqual(spans, want) {
		t.Fatalf("unexpected spans: %#v", spans)
	}
}

func TestSplitConsecutiveFences(t *testing.T) {
	spans := Split("```\nfirst\n```\n```\nsecond\n```")
	want := []Span{{Kind: Code, Content: "first"}, {Kind: Code, Content: "second"}}
	if !reflect.DeepEqual(spans, want) {
		t.Fatalf("unexpected spans: %#v", spans)
	}
}

func TestSplitWhitespaceOnlyInput(t *testing.T) {
	if spans := Split("   \n\t\n"); len(spans) != 0 {
		t.Fatalf("expected no spans for whitespace input, got %#v", spans)
	}
}

func TestSplitEmptyInput(t *testing.T) {
	if spans := Split(""); len(spans) != 0 {
		t.Fatalf("expected no spans for empty input, got %#v", spans)
	}
}
