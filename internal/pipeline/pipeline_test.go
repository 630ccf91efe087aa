package pipeline

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"cardcast/internal/cache"
	"cardcast/internal/config"
	"cardcast/internal/deck"
	"cardcast/internal/logging"
	"cardcast/internal/render"
)

const fakeAudioSeconds = 2.0

type fakeSynth struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeSynth) Synthesize(_ context.Context, text, outputPath string) (float64, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.mu.Unlock()
	if err := os.WriteFile(outputPath, []byte("wav:"+text), 0o644); err != nil {
		return 0, err
	}
	return fakeAudioSeconds, nil
}

func (f *fakeSynth) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeEncoder struct {
	mu          sync.Mutex
	segmentOut  []string
	silentOut   []string
	audioJoins  [][]string
	concatOrder []string
}

func touch(path string) error {
	return os.WriteFile(path, []byte("artifact"), 0o644)
}

func (f *fakeEncoder) SegmentClip(_ context.Context, _, _ string, _ float64, outputPath string) error {
	f.mu.Lock()
	f.segmentOut = append(f.segmentOut, outputPath)
	f.mu.Unlock()
	return touch(outputPath)
}

func (f *fakeEncoder) SilentClip(_ context.Context, _ string, _ float64, outputPath string) error {
	f.mu.Lock()
	f.silentOut = append(f.silentOut, outputPath)
	f.mu.Unlock()
	return touch(outputPath)
}

func (f *fakeEncoder) ConcatAudio(_ context.Context, paths []string, outputPath, _ string) error {
	f.mu.Lock()
	f.audioJoins = append(f.audioJoins, append([]string(nil), paths...))
	f.mu.Unlock()
	return touch(outputPath)
}

func (f *fakeEncoder) ConcatClips(_ context.Context, paths []string, outputPath, _ string, durations []float64, onProgress func(int)) error {
	f.mu.Lock()
	f.concatOrder = append([]string(nil), paths...)
	f.mu.Unlock()
	if onProgress != nil {
		for i := range durations {
			onProgress(i)
		}
	}
	return touch(outputPath)
}

type fakeRenderer struct {
	mu       sync.Mutex
	rendered []string
	style    string
}

func (f *fakeRenderer) StyleKey() string { return f.style }

func (f *fakeRenderer) RenderSegment(outputPath string, _ render.SlideSpec) error {
	f.mu.Lock()
	f.rendered = append(f.rendered, outputPath)
	f.mu.Unlock()
	return touch(outputPath)
}

func (f *fakeRenderer) RenderGap(outputPath string, _ int) error {
	return touch(outputPath)
}

func fakeProbe(_ context.Context, path string) (float64, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, err
	}
	return fakeAudioSeconds, nil
}

type harness struct {
	cfg      config.Config
	synth    *fakeSynth
	code     *fakeSynth
	encoder  *fakeEncoder
	renderer *fakeRenderer
	pipeline *Pipeline
}

func newHarness(t *testing.T, mutate func(*config.Config)) *harness {
	t.Helper()
	base := t.TempDir()
	cfg := config.Config{}
	cfg.Paths.CacheDir = filepath.Join(base, "cache")
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.TempDir = filepath.Join(base, "tmp")
	cfg.TTS.MainVoice = "main-voice"
	cfg.TTS.CodeVoice = "code-voice"
	cfg.TTS.Workers = 2
	cfg.TTS.CodeWorkers = 1
	cfg.Timing.QuestionDelay = 1.0
	cfg.Timing.AnswerDelay = 1.0
	cfg.Timing.CardGap = 0.5
	cfg.Encode.Concurrency = 2
	if mutate != nil {
		mutate(&cfg)
	}
	for _, dir := range []string{cfg.Paths.CacheDir, cfg.Paths.TempDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	h := &harness{
		cfg:      cfg,
		synth:    &fakeSynth{},
		code:     &fakeSynth{},
		encoder:  &fakeEncoder{},
		renderer: &fakeRenderer{style: "style-v1"},
	}
	h.pipeline = New(cfg, Deps{
		Store:    cache.NewStore(cfg.Paths.CacheDir, false, logging.NewNop()),
		MainTTS:  h.synth,
		CodeTTS:  h.code,
		Encoder:  h.encoder,
		Probe:    fakeProbe,
		Renderer: h.renderer,
		Logger:   logging.NewNop(),
	})
	return h
}

func twoCardDeck() *deck.Deck {
	return &deck.Deck{
		Title: "Go Basics",
		Cards: []deck.Card{
			{Question: "What is a goroutine?", Answer: "A lightweight thread."},
			{Question: "What is a channel?", Answer: "A typed conduit."},
		},
	}
}

func TestRunBuildsEverythingFirstTime(t *testing.T) {
	h := newHarness(t, nil)
	summary, err := h.pipeline.Run(context.Background(), twoCardDeck())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.AudioBuilt != 4 || summary.AudioCached != 0 {
		t.Errorf("audio built/cached = %d/%d, want 4/0", summary.AudioBuilt, summary.AudioCached)
	}
	if summary.SlidesBuilt != 4 {
		t.Errorf("slides built = %d, want 4", summary.SlidesBuilt)
	}
	// 4 segment clips plus one gap clip between the two cards.
	if summary.ClipsBuilt != 5 {
		t.Errorf("clips built = %d, want 5", summary.ClipsBuilt)
	}
	if summary.VideoCached {
		t.Error("first run should encode the final video")
	}

	// 4 narrations at 2s, 1s pause after each of 4 segments, one 0.5s gap.
	want := 4*fakeAudioSeconds + 4*1.0 + 0.5
	if math.Abs(summary.TotalDuration-want) > 1e-9 {
		t.Errorf("total duration = %f, want %f", summary.TotalDuration, want)
	}

	if summary.OutputPath == "" {
		t.Fatal("no output path reported")
	}
	if filepath.Base(summary.OutputPath) != "Go Basics.mp4" {
		t.Errorf("output name = %q", filepath.Base(summary.OutputPath))
	}
	if _, err := os.Stat(summary.OutputPath); err != nil {
		t.Fatalf("published video missing: %v", err)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	h := newHarness(t, nil)
	if _, err := h.pipeline.Run(context.Background(), twoCardDeck()); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	firstCalls := h.synth.callCount()

	summary, err := h.pipeline.Run(context.Background(), twoCardDeck())
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if h.synth.callCount() != firstCalls {
		t.Error("second run should not synthesize anything")
	}
	if summary.AudioBuilt != 0 || summary.AudioCached != 4 {
		t.Errorf("audio built/cached = %d/%d, want 0/4", summary.AudioBuilt, summary.AudioCached)
	}
	if summary.SlidesBuilt != 0 || summary.ClipsBuilt != 0 {
		t.Errorf("slides/clips built = %d/%d, want 0/0", summary.SlidesBuilt, summary.ClipsBuilt)
	}
	if !summary.VideoCached {
		t.Error("final video should be served from cache")
	}
}

func TestEditingOneAnswerInvalidatesOnlyThatCard(t *testing.T) {
	h := newHarness(t, nil)
	if _, err := h.pipeline.Run(context.Background(), twoCardDeck()); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	edited := twoCardDeck()
	edited.Cards[1].Answer = "A typed conduit between goroutines."
	summary, err := h.pipeline.Run(context.Background(), edited)
	if err != nil {
		t.Fatalf("edited run failed: %v", err)
	}

	if summary.AudioBuilt != 1 || summary.AudioCached != 3 {
		t.Errorf("audio built/cached = %d/%d, want 1/3", summary.AudioBuilt, summary.AudioCached)
	}
	if summary.SlidesBuilt != 1 || summary.SlidesCached != 3 {
		t.Errorf("slides built/cached = %d/%d, want 1/3", summary.SlidesBuilt, summary.SlidesCached)
	}
	if summary.ClipsBuilt != 1 || summary.ClipsCached != 4 {
		t.Errorf("clips built/cached = %d/%d, want 1/4", summary.ClipsBuilt, summary.ClipsCached)
	}
	if summary.VideoCached {
		t.Error("changed clip list must re-concatenate the video")
	}
}

func TestStaleArtifactsAreRemovedAfterEdit(t *testing.T) {
	h := newHarness(t, nil)
	if _, err := h.pipeline.Run(context.Background(), twoCardDeck()); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	edited := twoCardDeck()
	edited.Cards[1].Answer = "Completely new answer."
	if _, err := h.pipeline.Run(context.Background(), edited); err != nil {
		t.Fatalf("edited run failed: %v", err)
	}

	entries, err := os.ReadDir(h.cfg.Paths.CacheDir)
	if err != nil {
		t.Fatal(err)
	}
	counts := map[string]int{}
	for _, entry := range entries {
		name := entry.Name()
		for _, prefix := range []string{"a_1_", "s_a_1_", "c_a_1_", "video_"} {
			if strings.HasPrefix(name, prefix) {
				counts[prefix]++
			}
		}
	}
	for prefix, n := range counts {
		if n != 1 {
			t.Errorf("prefix %s has %d cache entries, want 1", prefix, n)
		}
	}
}

func TestConcatFollowsCardOrder(t *testing.T) {
	h := newHarness(t, nil)
	if _, err := h.pipeline.Run(context.Background(), twoCardDeck()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	order := h.encoder.concatOrder
	if len(order) != 5 {
		t.Fatalf("concat clip count = %d, want 5", len(order))
	}
	wantPrefixes := []string{"c_q_0_", "c_a_0_", "c_gap_", "c_q_1_", "c_a_1_"}
	for i, path := range order {
		if !strings.HasPrefix(filepath.Base(path), wantPrefixes[i]) {
			t.Errorf("concat position %d = %s, want prefix %s", i, filepath.Base(path), wantPrefixes[i])
		}
	}
}

func TestNoGapClipWhenGapDisabled(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) { cfg.Timing.CardGap = 0 })
	summary, err := h.pipeline.Run(context.Background(), twoCardDeck())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.ClipsBuilt != 4 {
		t.Errorf("clips built = %d, want 4 without gaps", summary.ClipsBuilt)
	}
	if len(h.encoder.silentOut) != 0 {
		t.Errorf("silent clips encoded = %d, want 0", len(h.encoder.silentOut))
	}
}

func TestMixedAnswerRoutesCodeVoiceAndStitches(t *testing.T) {
	h := newHarness(t, nil)
	d := &deck.Deck{
		Title: "code deck",
		Cards: []deck.Card{{
			Question: "How do you close a channel?",
			Answer:   "Call the builtin:\n```\nclose(ch)\n```\nafter the last send.",
		}},
	}
	summary, err := h.pipeline.Run(context.Background(), d)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Question plus three answer parts (prose, code, prose).
	if summary.AudioBuilt != 4 {
		t.Errorf("audio built = %d, want 4", summary.AudioBuilt)
	}
	if got := h.code.callCount(); got != 1 {
		t.Errorf("code-voice synth calls = %d, want 1", got)
	}
	if got := h.synth.callCount(); got != 3 {
		t.Errorf("main-voice synth calls = %d, want 3", got)
	}

	if len(h.encoder.audioJoins) != 1 {
		t.Fatalf("audio concat calls = %d, want 1", len(h.encoder.audioJoins))
	}
	parts := h.encoder.audioJoins[0]
	if len(parts) != 3 {
		t.Fatalf("stitched part count = %d, want 3", len(parts))
	}
	for i, part := range parts {
		wantPrefix := map[int]string{0: "a_0_p0_", 1: "a_0_p1_", 2: "a_0_p2_"}[i]
		if !strings.HasPrefix(filepath.Base(part), wantPrefix) {
			t.Errorf("part %d = %s, want prefix %s", i, filepath.Base(part), wantPrefix)
		}
	}
}

func TestUpdateModeFailsOnMissingAudio(t *testing.T) {
	base := t.TempDir()
	cfg := config.Config{}
	cfg.Paths.CacheDir = filepath.Join(base, "cache")
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.TempDir = base
	cfg.TTS.MainVoice = "main-voice"
	cfg.TTS.CodeVoice = "code-voice"
	if err := os.MkdirAll(cfg.Paths.CacheDir, 0o755); err != nil {
		t.Fatal(err)
	}

	synth := &fakeSynth{}
	p := New(cfg, Deps{
		Store:    cache.NewStore(cfg.Paths.CacheDir, false, logging.NewNop()),
		MainTTS:  synth,
		Encoder:  &fakeEncoder{},
		Probe:    fakeProbe,
		Renderer: &fakeRenderer{style: "s"},
		Logger:   logging.NewNop(),
		Update:   true,
	})

	_, err := p.Run(context.Background(), twoCardDeck())
	if err == nil || !strings.Contains(err.Error(), "4 audio parts not cached") {
		t.Fatalf("expected update-mode error with missing count, got %v", err)
	}
	if synth.callCount() != 0 {
		t.Error("update mode must not synthesize")
	}
}

func TestSharedGapClipEncodedOnce(t *testing.T) {
	h := newHarness(t, nil)
	d := &deck.Deck{
		Title: "three cards",
		Cards: []deck.Card{
			{Question: "q one", Answer: "a one"},
			{Question: "q two", Answer: "a two"},
			{Question: "q three", Answer: "a three"},
		},
	}
	summary, err := h.pipeline.Run(context.Background(), d)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Both card boundaries reuse one gap artifact, so it is one encode and
	// one build, not one per boundary.
	if got := len(h.encoder.silentOut); got != 1 {
		t.Fatalf("silent clip encodes = %d, want 1", got)
	}
	if summary.ClipsBuilt != 7 {
		t.Errorf("clips built = %d, want 6 segments plus 1 shared gap", summary.ClipsBuilt)
	}

	order := h.encoder.concatOrder
	if len(order) != 8 {
		t.Fatalf("concat clip count = %d, want 8", len(order))
	}
	if order[2] != order[5] {
		t.Errorf("gap positions diverge: %s vs %s", filepath.Base(order[2]), filepath.Base(order[5]))
	}
	if order[2] != h.encoder.silentOut[0] {
		t.Errorf("concat gap %s is not the encoded gap %s", filepath.Base(order[2]), filepath.Base(h.encoder.silentOut[0]))
	}

	// The gap still plays at every boundary even though it is encoded once.
	want := 6*fakeAudioSeconds + 6*1.0 + 2*0.5
	if math.Abs(summary.TotalDuration-want) > 1e-9 {
		t.Errorf("total duration = %f, want %f", summary.TotalDuration, want)
	}
}

func TestForceRebuildsEverything(t *testing.T) {
	h := newHarness(t, nil)
	first, err := h.pipeline.Run(context.Background(), twoCardDeck())
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	firstCalls := h.synth.callCount()

	forced := New(h.cfg, Deps{
		Store:    cache.NewStore(h.cfg.Paths.CacheDir, true, logging.NewNop()),
		MainTTS:  h.synth,
		CodeTTS:  h.code,
		Encoder:  h.encoder,
		Probe:    fakeProbe,
		Renderer: h.renderer,
		Logger:   logging.NewNop(),
	})
	summary, err := forced.Run(context.Background(), twoCardDeck())
	if err != nil {
		t.Fatalf("forced run failed: %v", err)
	}

	if summary.AudioBuilt != 4 || summary.AudioCached != 0 {
		t.Errorf("audio built/cached = %d/%d, want 4/0", summary.AudioBuilt, summary.AudioCached)
	}
	if h.synth.callCount() != firstCalls*2 {
		t.Errorf("synth calls = %d, want %d", h.synth.callCount(), firstCalls*2)
	}
	if summary.SlidesBuilt != 4 {
		t.Errorf("slides built = %d, want 4", summary.SlidesBuilt)
	}
	if summary.ClipsBuilt != 5 {
		t.Errorf("clips built = %d, want 5", summary.ClipsBuilt)
	}
	if summary.VideoCached {
		t.Error("forced run must re-encode the final video")
	}

	// Identical inputs still resolve to identical paths; force changes what
	// gets rebuilt, never where it lives.
	if summary.OutputPath != first.OutputPath {
		t.Errorf("output moved: %s vs %s", summary.OutputPath, first.OutputPath)
	}
}

func TestStyleChangeRebuildsSlidesButNotAudio(t *testing.T) {
	h := newHarness(t, nil)
	if _, err := h.pipeline.Run(context.Background(), twoCardDeck()); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	h.renderer.style = "style-v2"
	summary, err := h.pipeline.Run(context.Background(), twoCardDeck())
	if err != nil {
		t.Fatalf("restyled run failed: %v", err)
	}
	if summary.AudioBuilt != 0 {
		t.Errorf("audio built = %d, want 0 after style change", summary.AudioBuilt)
	}
	if summary.SlidesBuilt != 4 {
		t.Errorf("slides built = %d, want 4 after style change", summary.SlidesBuilt)
	}
	if summary.ClipsBuilt != 5 {
		t.Errorf("clips built = %d, want 5 after style change", summary.ClipsBuilt)
	}
}
