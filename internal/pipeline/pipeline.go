package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"

	"cardcast/internal/audioplan"
	"cardcast/internal/cache"
	"cardcast/internal/config"
	"cardcast/internal/deck"
	"cardcast/internal/fileutil"
	"cardcast/internal/hashutil"
	"cardcast/internal/logging"
	"cardcast/internal/render"
	"cardcast/internal/runner"
	"cardcast/internal/textutil"
)

// Synthesizer produces one audio file from text and reports its duration in
// seconds. tts.Pool implements it.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, outputPath string) (float64, error)
}

// Encoder covers the ffmpeg operations the pipeline needs. ffmpeg.Client
// implements it.
type Encoder interface {
	SegmentClip(ctx context.Context, imagePath, audioPath string, holdSeconds float64, outputPath string) error
	SilentClip(ctx context.Context, imagePath string, seconds float64, outputPath string) error
	ConcatAudio(ctx context.Context, paths []string, outputPath, tempDir string) error
	ConcatClips(ctx context.Context, paths []string, outputPath, tempDir string, durations []float64, onProgress func(clipIndex int)) error
}

// Prober measures the duration of a cached audio file.
type Prober func(ctx context.Context, path string) (float64, error)

// SlideRenderer rasterizes slides. render.Renderer implements it.
type SlideRenderer interface {
	StyleKey() string
	RenderSegment(outputPath string, spec render.SlideSpec) error
	RenderGap(outputPath string, totalCards int) error
}

// Progress receives stage completion ticks for display. Stages report as
// "audio", "slides", "clips", and "concat".
type Progress func(stage string, completed, total int)

// Deps wires the pipeline's collaborators. Every field is required except
// CodeTTS (nil routes code parts to the main synthesizer), Progress, and
// Logger.
type Deps struct {
	Store    *cache.Store
	MainTTS  Synthesizer
	CodeTTS  Synthesizer
	Encoder  Encoder
	Probe    Prober
	Renderer SlideRenderer
	Logger   *slog.Logger
	Progress Progress

	// Update forbids new synthesis: every planned audio part must already be
	// cached or the run fails before any work starts.
	Update bool
}

// Summary reports what a run built versus served from cache.
type Summary struct {
	Cards    int
	Segments int

	AudioBuilt   int
	AudioCached  int
	SlidesBuilt  int
	SlidesCached int
	ClipsBuilt   int
	ClipsCached  int
	VideoCached  bool

	TotalDuration float64
	OutputPath    string
}

// Pipeline generates one video per deck. It is not safe for concurrent runs
// against the same cache directory; callers hold a directory lock.
type Pipeline struct {
	cfg    config.Config
	deps   Deps
	logger *slog.Logger
}

// New builds a pipeline for one resolved configuration.
func New(cfg config.Config, deps Deps) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		deps:   deps,
		logger: logging.NewComponentLogger(deps.Logger, "pipeline"),
	}
}

// Run generates the video for the deck and publishes it into the output
// directory. Artifacts completed before a failure stay cached for the next
// attempt.
func (p *Pipeline) Run(ctx context.Context, d *deck.Deck) (Summary, error) {
	summary := Summary{Cards: len(d.Cards)}

	segments, plans := p.planSegments(d)
	summary.Segments = len(segments)

	if p.deps.Update {
		if missing := countMissingParts(p.deps.Store, plans); missing > 0 {
			return summary, fmt.Errorf("update mode: %d audio parts not cached; run without --update to synthesize them", missing)
		}
	}

	if err := p.synthesizeStage(ctx, segments, plans, &summary); err != nil {
		return summary, err
	}
	if err := p.renderStage(segments, &summary); err != nil {
		return summary, err
	}
	if err := p.assembleStage(ctx, d, segments, &summary); err != nil {
		return summary, err
	}
	return summary, nil
}

// planSegments expands cards into ordered segments with their audio plans.
// The segment order fixed here is the final concatenation order.
func (p *Pipeline) planSegments(d *deck.Deck) ([]Segment, []audioplan.Plan) {
	builder := audioplan.Builder{
		CacheDir:  p.deps.Store.Dir(),
		MainVoice: p.cfg.TTS.MainVoice,
		CodeVoice: p.cfg.TTS.CodeVoice,
	}
	segments := make([]Segment, 0, 2*len(d.Cards))
	plans := make([]audioplan.Plan, 0, 2*len(d.Cards))
	for i, card := range d.Cards {
		plan := builder.Question(i, card.Question)
		segments = append(segments, Segment{
			CardIndex: i,
			Kind:      render.Question,
			Text:      card.Question,
			AudioPath: plan.FinalAudioPath,
			Delay:     p.cfg.Timing.QuestionDelay,
		})
		plans = append(plans, plan)

		plan = builder.Answer(i, card.Answer)
		segments = append(segments, Segment{
			CardIndex: i,
			Kind:      render.Answer,
			Text:      card.Answer,
			AudioPath: plan.FinalAudioPath,
			Delay:     p.cfg.Timing.AnswerDelay,
		})
		plans = append(plans, plan)
	}
	return segments, plans
}

func countMissingParts(store *cache.Store, plans []audioplan.Plan) int {
	missing := 0
	for _, plan := range plans {
		for _, part := range plan.Parts {
			if !store.IsCached(part.AudioPath) {
				missing++
			}
		}
	}
	return missing
}

// synthesizeStage resolves every segment's final audio file and measured
// duration. Cached parts are probed for duration; missing parts go through
// the synthesizer pools. Multi-part answers are stitched afterwards in part
// order.
func (p *Pipeline) synthesizeStage(ctx context.Context, segments []Segment, plans []audioplan.Plan, summary *Summary) error {
	type partRef struct {
		segment int
		part    int
	}
	var refs []partRef
	var tasks []func(context.Context) (float64, error)
	totalParts := 0
	for _, plan := range plans {
		totalParts += len(plan.Parts)
	}
	var completed atomic.Int64

	for si, plan := range plans {
		for pi, part := range plan.Parts {
			cached := p.deps.Store.IsCached(part.AudioPath)
			if cached {
				summary.AudioCached++
			} else {
				summary.AudioBuilt++
			}
			synth := p.synthesizerFor(part.Voice)
			refs = append(refs, partRef{segment: si, part: pi})
			tasks = append(tasks, func(taskCtx context.Context) (float64, error) {
				var duration float64
				var err error
				if cached {
					duration, err = p.deps.Probe(taskCtx, part.AudioPath)
				} else {
					duration, err = synth.Synthesize(taskCtx, part.Text, part.AudioPath)
				}
				if err != nil {
					return 0, err
				}
				p.tick("audio", int(completed.Add(1)), totalParts)
				return duration, nil
			})
		}
	}

	durations, err := runner.Collect(ctx, p.synthesisLimit(), tasks)
	if err != nil {
		return fmt.Errorf("synthesize narration: %w", err)
	}

	partDurations := make([][]float64, len(plans))
	for i, plan := range plans {
		partDurations[i] = make([]float64, len(plan.Parts))
	}
	for i, ref := range refs {
		partDurations[ref.segment][ref.part] = durations[i]
	}

	for si, plan := range plans {
		total := 0.0
		for _, d := range partDurations[si] {
			total += d
		}
		if plan.MultiPart {
			if p.deps.Store.IsCached(plan.FinalAudioPath) {
				measured, err := p.deps.Probe(ctx, plan.FinalAudioPath)
				if err != nil {
					return fmt.Errorf("probe stitched audio: %w", err)
				}
				total = measured
			} else {
				paths := make([]string, len(plan.Parts))
				for i, part := range plan.Parts {
					paths[i] = part.AudioPath
				}
				if err := p.deps.Encoder.ConcatAudio(ctx, paths, plan.FinalAudioPath, p.cfg.Paths.TempDir); err != nil {
					return fmt.Errorf("stitch answer audio for card %d: %w", segments[si].CardIndex+1, err)
				}
			}
		}
		segments[si].AudioDuration = total
		p.deps.Store.RemoveStale(segments[si].audioPrefix(), "wav", plan.Paths()...)
	}

	p.logger.Info("narration ready",
		logging.Int("built", summary.AudioBuilt),
		logging.Int("cached", summary.AudioCached),
	)
	return nil
}

func (p *Pipeline) synthesizerFor(voice string) Synthesizer {
	if voice != p.cfg.TTS.MainVoice && p.deps.CodeTTS != nil {
		return p.deps.CodeTTS
	}
	return p.deps.MainTTS
}

// synthesisLimit bounds in-flight synthesis tasks. The pools bound actual
// worker processes themselves; this only caps goroutines waiting in their
// queues plus concurrent cache probes.
func (p *Pipeline) synthesisLimit() int {
	limit := p.cfg.TTS.Workers + p.cfg.TTS.CodeWorkers
	if limit < 1 {
		limit = runtime.NumCPU()
	}
	return limit + 2
}

// renderStage draws every segment slide that is not cached. Rendering is
// sequential: the font faces are not safe for concurrent use, and drawing is
// far cheaper than synthesis or encoding.
func (p *Pipeline) renderStage(segments []Segment, summary *Summary) error {
	styleKey := p.deps.Renderer.StyleKey()
	totalCards := summary.Cards
	for si := range segments {
		seg := &segments[si]
		path := hashutil.Path(p.deps.Store.Dir(), seg.slidePrefix(), seg.slideKey(totalCards, styleKey), "png")
		if p.deps.Store.IsCached(path) {
			summary.SlidesCached++
		} else {
			spec := render.SlideSpec{
				Text:       seg.Text,
				Kind:       seg.Kind,
				CardIndex:  seg.CardIndex,
				TotalCards: totalCards,
			}
			if err := p.deps.Renderer.RenderSegment(path, spec); err != nil {
				return fmt.Errorf("render slide for card %d %s: %w", seg.CardIndex+1, seg.Kind, err)
			}
			summary.SlidesBuilt++
		}
		seg.SlidePath = path
		p.deps.Store.RemoveStale(seg.slidePrefix()+"_", "png", path)
		p.tick("slides", si+1, len(segments))
	}
	p.logger.Info("slides ready",
		logging.Int("built", summary.SlidesBuilt),
		logging.Int("cached", summary.SlidesCached),
	)
	return nil
}

// assembleStage encodes per-segment clips, inserts gap clips between cards,
// concatenates everything in order, and publishes the result.
func (p *Pipeline) assembleStage(ctx context.Context, d *deck.Deck, segments []Segment, summary *Summary) error {
	cacheDir := p.deps.Store.Dir()
	totalCards := len(d.Cards)
	gapEnabled := p.cfg.Timing.CardGap > 0 && totalCards > 1

	var gapSlide string
	if gapEnabled {
		gapKey := p.deps.Renderer.StyleKey() + "|" + fmt.Sprint(totalCards)
		gapSlide = hashutil.Path(cacheDir, "gap", gapKey, "png")
		if !p.deps.Store.IsCached(gapSlide) {
			if err := p.deps.Renderer.RenderGap(gapSlide, totalCards); err != nil {
				return fmt.Errorf("render gap slide: %w", err)
			}
		}
		p.deps.Store.RemoveStale("gap_", "png", gapSlide)
	}

	// The descriptor list is built, in order, before any encode is
	// dispatched. Concatenation iterates this same list, so encode
	// completion order can never reorder the video.
	var clips []clipDescriptor
	for ci := 0; ci < totalCards; ci++ {
		for _, si := range []int{2 * ci, 2*ci + 1} {
			seg := &segments[si]
			hold := seg.AudioDuration + seg.Delay
			path := hashutil.Path(cacheDir, seg.clipPrefix(), clipKey(seg.AudioPath, seg.SlidePath, hold), "mp4")
			seg.ClipPath = path
			cached := p.deps.Store.IsCached(path)
			audioPath, slidePath := seg.AudioPath, seg.SlidePath
			clips = append(clips, clipDescriptor{
				path:     path,
				duration: hold,
				cached:   cached,
				encode: func() error {
					return p.deps.Encoder.SegmentClip(ctx, slidePath, audioPath, hold, path)
				},
			})
			p.deps.Store.RemoveStale(seg.clipPrefix()+"_", "mp4", path)
		}
		if gapEnabled && ci < totalCards-1 {
			gap := p.cfg.Timing.CardGap
			path := hashutil.Path(cacheDir, "c_gap", gapClipKey(gapSlide, gap), "mp4")
			cached := p.deps.Store.IsCached(path)
			clips = append(clips, clipDescriptor{
				path:     path,
				duration: gap,
				cached:   cached,
				encode: func() error {
					return p.deps.Encoder.SilentClip(ctx, gapSlide, gap, path)
				},
			})
			p.deps.Store.RemoveStale("c_gap_", "mp4", path)
		}
	}

	// Encode work and the build counters are keyed by output path, not by
	// list position: the gap clip appears once per card boundary in the
	// descriptor list but is a single artifact, and each artifact gets at
	// most one writer.
	var encodeTasks []func(context.Context) error
	toEncode := 0
	var completed atomic.Int64
	seen := make(map[string]bool, len(clips))
	for _, clip := range clips {
		if seen[clip.path] {
			continue
		}
		seen[clip.path] = true
		if clip.cached {
			summary.ClipsCached++
			continue
		}
		summary.ClipsBuilt++
		encode := clip.encode
		encodeTasks = append(encodeTasks, func(context.Context) error {
			if err := encode(); err != nil {
				return err
			}
			p.tick("clips", int(completed.Add(1)), toEncode)
			return nil
		})
	}
	toEncode = len(encodeTasks)
	if err := runner.Run(ctx, p.encodeLimit(), encodeTasks); err != nil {
		return fmt.Errorf("encode clips: %w", err)
	}

	for _, clip := range clips {
		summary.TotalDuration += clip.duration
	}

	videoPath := hashutil.Path(cacheDir, "video", finalVideoKey(clips), "mp4")
	if p.deps.Store.IsCached(videoPath) {
		summary.VideoCached = true
	} else {
		paths := make([]string, len(clips))
		durations := make([]float64, len(clips))
		for i, clip := range clips {
			paths[i] = clip.path
			durations[i] = clip.duration
		}
		onProgress := func(index int) { p.tick("concat", index+1, len(clips)) }
		if err := p.deps.Encoder.ConcatClips(ctx, paths, videoPath, p.cfg.Paths.TempDir, durations, onProgress); err != nil {
			return fmt.Errorf("concatenate final video: %w", err)
		}
	}
	p.deps.Store.RemoveStale("video_", "mp4", videoPath)

	name := textutil.SanitizeFileName(d.Title)
	if name == "" {
		name = "deck"
	}
	published, err := fileutil.Publish(videoPath, p.cfg.Paths.OutputDir, name+".mp4")
	if err != nil {
		return err
	}
	summary.OutputPath = published

	p.logger.Info("video published",
		logging.String("path", published),
		logging.Int("clips_built", summary.ClipsBuilt),
		logging.Int("clips_cached", summary.ClipsCached),
		logging.Float64("duration_seconds", summary.TotalDuration),
	)
	return nil
}

// encodeLimit bounds simultaneous ffmpeg clip encodes.
func (p *Pipeline) encodeLimit() int {
	if p.cfg.Encode.Concurrency > 0 {
		return p.cfg.Encode.Concurrency
	}
	limit := runtime.NumCPU() / 2
	if limit < 1 {
		limit = 1
	}
	return limit
}

func (p *Pipeline) tick(stage string, completed, total int) {
	if p.deps.Progress != nil {
		p.deps.Progress(stage, completed, total)
	}
}
