package pipeline

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"cardcast/internal/render"
)

// Segment is one narrated and displayed unit: a card's question side or
// answer side. Paths are filled in stage by stage as artifacts resolve.
type Segment struct {
	CardIndex int
	Kind      render.SegmentKind

	// Text is the raw card text shown on the slide. Narration uses the
	// normalized form recorded in the audio plan, never this.
	Text string

	AudioPath     string
	AudioDuration float64

	// Delay is the post-speech hold in seconds. It extends the clip, not the
	// audio file.
	Delay float64

	SlidePath string
	ClipPath  string
}

func (s Segment) kindTag() string {
	if s.Kind == render.Question {
		return "q"
	}
	return "a"
}

// audioPrefix is the cache namespace for this segment's audio artifacts,
// underscore-terminated so card 3 never matches card 31.
func (s Segment) audioPrefix() string {
	return fmt.Sprintf("%s_%d_", s.kindTag(), s.CardIndex)
}

func (s Segment) slidePrefix() string {
	return fmt.Sprintf("s_%s_%d", s.kindTag(), s.CardIndex)
}

func (s Segment) clipPrefix() string {
	return fmt.Sprintf("c_%s_%d", s.kindTag(), s.CardIndex)
}

// slideKey captures every input the slide's pixels depend on.
func (s Segment) slideKey(totalCards int, styleKey string) string {
	return strings.Join([]string{
		s.Text,
		string(s.Kind),
		strconv.Itoa(s.CardIndex),
		strconv.Itoa(totalCards),
		styleKey,
	}, "|")
}

// clipDescriptor fixes one concat-order position before any encode work is
// dispatched.
type clipDescriptor struct {
	path     string
	duration float64
	cached   bool
	encode   func() error
}

// clipKey addresses a clip by its exact encode inputs. The artifact base
// names already embed their own content hashes, so a changed slide or audio
// file moves the clip path too.
func clipKey(audioPath, imagePath string, duration float64) string {
	return strings.Join([]string{
		filepath.Base(audioPath),
		filepath.Base(imagePath),
		formatSeconds(duration),
	}, "|")
}

// gapClipKey addresses the silent spacer clip by its slide and length.
func gapClipKey(imagePath string, duration float64) string {
	return filepath.Base(imagePath) + "|" + formatSeconds(duration)
}

// finalVideoKey addresses the concatenated video by the ordered clip list.
// Any reorder, insertion, or removal moves the final path.
func finalVideoKey(clips []clipDescriptor) string {
	names := make([]string, len(clips))
	for i, clip := range clips {
		names[i] = filepath.Base(clip.path)
	}
	return strings.Join(names, "\n")
}

func formatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', 3, 64)
}
