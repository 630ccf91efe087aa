package render

import (
	"fmt"
	"os"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"

	"cardcast/internal/config"
	"cardcast/internal/markdown"
)

// SegmentKind mirrors the two sides of a card.
type SegmentKind string

const (
	Question SegmentKind = "question"
	Answer   SegmentKind = "answer"
)

// SlideSpec describes one segment slide.
type SlideSpec struct {
	Text       string
	Kind       SegmentKind
	CardIndex  int
	TotalCards int
}

// Renderer rasterizes slides using a fixed style. Prose uses the main face,
// code spans the mono face.
type Renderer struct {
	style    config.Slide
	face     font.Face
	codeFace font.Face
}

// NewRenderer loads fonts and validates the style. When style.FontPath is
// empty the embedded Go fonts are used, so a default install needs no font
// files on disk.
func NewRenderer(style config.Slide) (*Renderer, error) {
	regular := goregular.TTF
	if style.FontPath != "" {
		data, err := os.ReadFile(style.FontPath)
		if err != nil {
			return nil, fmt.Errorf("render: read font %s: %w", style.FontPath, err)
		}
		regular = data
	}
	face, err := newFace(regular, style.FontSize)
	if err != nil {
		return nil, fmt.Errorf("render: main face: %w", err)
	}
	codeFace, err := newFace(gomono.TTF, style.FontSize*0.92)
	if err != nil {
		return nil, fmt.Errorf("render: code face: %w", err)
	}
	return &Renderer{style: style, face: face, codeFace: codeFace}, nil
}

// StyleKey returns the canonical encoding of every styling parameter that
// affects slide pixels. It feeds the slide cache keys, so any style change
// regenerates every slide and keeps them visually consistent.
func (r *Renderer) StyleKey() string {
	s := r.style
	return strings.Join([]string{
		fmt.Sprintf("%dx%d", s.Width, s.Height),
		fmt.Sprintf("fs=%.2f", s.FontSize),
		"font=" + s.FontPath,
		s.BackgroundTop,
		s.BackgroundBottom,
		s.Accent,
		s.TextColor,
	}, "|")
}

// RenderSegment draws one segment slide and writes it as PNG.
func (r *Renderer) RenderSegment(outputPath string, spec SlideSpec) error {
	dc := r.newCanvas()

	margin := float64(r.style.Width) / 12
	header := string(spec.Kind)
	header = strings.ToUpper(header[:1]) + header[1:]
	counter := fmt.Sprintf("%d / %d", spec.CardIndex+1, spec.TotalCards)

	dc.SetFontFace(r.face)
	dc.SetHexColor(r.style.Accent)
	dc.DrawString(header, margin, margin)
	headerWidth, _ := dc.MeasureString(header)
	dc.DrawRectangle(margin, margin+12, headerWidth, 4)
	dc.Fill()

	counterWidth, _ := dc.MeasureString(counter)
	dc.SetHexColor(r.style.TextColor)
	dc.DrawString(counter, float64(r.style.Width)-margin-counterWidth, margin)

	body := newTypesetter(dc, r.face, r.codeFace, r.style.TextColor, r.style.Accent)
	body.layout(spec.Text, margin, margin*2, float64(r.style.Width)-2*margin)

	if err := dc.SavePNG(outputPath); err != nil {
		return fmt.Errorf("render: save %s: %w", outputPath, err)
	}
	return nil
}

// RenderGap draws the between-cards spacer slide. totalCards participates in
// the caller's cache key but not the pixels.
func (r *Renderer) RenderGap(outputPath string, _ int) error {
	dc := r.newCanvas()
	dc.SetFontFace(r.face)
	dc.SetHexColor(r.style.Accent)
	marker := "· · ·"
	width, height := dc.MeasureString(marker)
	dc.DrawString(marker, (float64(r.style.Width)-width)/2, (float64(r.style.Height)+height)/2)
	if err := dc.SavePNG(outputPath); err != nil {
		return fmt.Errorf("render: save %s: %w", outputPath, err)
	}
	return nil
}

func (r *Renderer) newCanvas() *gg.Context {
	dc := gg.NewContext(r.style.Width, r.style.Height)
	gradient := gg.NewLinearGradient(0, 0, 0, float64(r.style.Height))
	gradient.AddColorStop(0, hexColor(r.style.BackgroundTop))
	gradient.AddColorStop(1, hexColor(r.style.BackgroundBottom))
	dc.SetFillStyle(gradient)
	dc.DrawRectangle(0, 0, float64(r.style.Width), float64(r.style.Height))
	dc.Fill()
	return dc
}

// typesetter lays out mixed prose/code text with word wrapping. Prose flows;
// fenced code lines keep their breaks and render in the mono face.
type typesetter struct {
	dc         *gg.Context
	face       font.Face
	codeFace   font.Face
	textColor  string
	codeColor  string
	lineHeight float64
}

func newTypesetter(dc *gg.Context, face, codeFace font.Face, textColor, codeColor string) *typesetter {
	dc.SetFontFace(face)
	return &typesetter{
		dc:         dc,
		face:       face,
		codeFace:   codeFace,
		textColor:  textColor,
		codeColor:  codeColor,
		lineHeight: dc.FontHeight() * 1.6,
	}
}

type token struct {
	text    string
	code    bool
	newline bool
}

func (t *typesetter) layout(text string, x, y, maxWidth float64) {
	cursorX, cursorY := x, y
	for _, tok := range tokenize(text) {
		if tok.newline {
			cursorX = x
			cursorY += t.lineHeight
			continue
		}
		face, color := t.face, t.textColor
		if tok.code {
			face, color = t.codeFace, t.codeColor
		}
		t.dc.SetFontFace(face)
		width, _ := t.dc.MeasureString(tok.text + " ")
		if cursorX > x && cursorX+width > x+maxWidth {
			cursorX = x
			cursorY += t.lineHeight
		}
		t.dc.SetHexColor(color)
		t.dc.DrawString(tok.text, cursorX, cursorY)
		cursorX += width
	}
}

// tokenize flattens card text into drawable tokens. Fenced blocks become
// per-line code tokens separated by explicit newlines; prose and inline code
// become word tokens.
func tokenize(text string) []token {
	var tokens []token
	for _, span := range markdown.Split(text) {
		if span.Kind == markdown.Code && strings.Contains(span.Content, "\n") {
			tokens = append(tokens, token{newline: true})
			for _, line := range strings.Split(span.Content, "\n") {
				tokens = append(tokens, token{text: line, code: true}, token{newline: true})
			}
			continue
		}
		code := span.Kind == markdown.Code
		for _, word := range strings.Fields(span.Content) {
			tokens = append(tokens, token{text: word, code: code})
		}
	}
	return tokens
}

func newFace(ttf []byte, size float64) (font.Face, error) {
	parsed, err := truetype.Parse(ttf)
	if err != nil {
		return nil, err
	}
	return truetype.NewFace(parsed, &truetype.Options{Size: size}), nil
}

func hexColor(value string) colorValue {
	var r, g, b uint8
	fmt.Sscanf(value, "#%02x%02x%02x", &r, &g, &b)
	return colorValue{r: r, g: g, b: b}
}

// colorValue adapts a hex triple to image/color for gradient stops.
type colorValue struct{ r, g, b uint8 }

func (c colorValue) RGBA() (uint32, uint32, uint32, uint32) {
	return uint32(c.r) * 0x101, uint32(c.g) * 0x101, uint32(c.b) * 0x101, 0xffff
}
