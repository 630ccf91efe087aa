package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"cardcast/internal/cache"
	"cardcast/internal/config"
	"cardcast/internal/deck"
	"cardcast/internal/deps"
	"cardcast/internal/history"
	"cardcast/internal/logging"
	"cardcast/internal/media/ffmpeg"
	"cardcast/internal/media/ffprobe"
	"cardcast/internal/pipeline"
	"cardcast/internal/render"
	"cardcast/internal/textutil"
	"cardcast/internal/tts"
)

type generateFlags struct {
	force     bool
	update    bool
	outputDir string
	voice     string
	codeVoice string

	questionDelay float64
	answerDelay   float64
	cardGap       float64
	fontSize      float64
}

func newGenerateCommand(cmdCtx *commandContext) *cobra.Command {
	var flags generateFlags

	cmd := &cobra.Command{
		Use:   "generate <deck.yaml> [deck.yaml...]",
		Short: "Generate videos from deck files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.force && flags.update {
				return errors.New("--force and --update are mutually exclusive")
			}
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := cmdCtx.ensureLogger()
			if err != nil {
				return err
			}
			return runGenerate(cmd, cfg, logger, flags, args)
		},
	}

	cmd.Flags().BoolVar(&flags.force, "force", false, "Rebuild every artifact, ignoring the cache")
	cmd.Flags().BoolVar(&flags.update, "update", false, "Refuse to synthesize: fail unless all narration is cached")
	cmd.Flags().StringVarP(&flags.outputDir, "output-dir", "o", "", "Directory for the finished video")
	cmd.Flags().StringVar(&flags.voice, "voice", "", "Main narration voice")
	cmd.Flags().StringVar(&flags.codeVoice, "code-voice", "", "Voice for code spans")
	cmd.Flags().Float64Var(&flags.questionDelay, "question-delay", -1, "Pause after each question in seconds")
	cmd.Flags().Float64Var(&flags.answerDelay, "answer-delay", -1, "Pause after each answer in seconds")
	cmd.Flags().Float64Var(&flags.cardGap, "card-gap", -1, "Silent gap between cards in seconds")
	cmd.Flags().Float64Var(&flags.fontSize, "font-size", 0, "Slide font size in points")

	return cmd
}

// cliOverrides converts set flags into a config override layer. Sentinel
// values mark unset numeric flags so explicit zeros still apply.
func (f generateFlags) cliOverrides() config.Overrides {
	var o config.Overrides
	if f.voice != "" {
		o.MainVoice = &f.voice
	}
	if f.codeVoice != "" {
		o.CodeVoice = &f.codeVoice
	}
	if f.questionDelay >= 0 {
		o.QuestionDelay = &f.questionDelay
	}
	if f.answerDelay >= 0 {
		o.AnswerDelay = &f.answerDelay
	}
	if f.cardGap >= 0 {
		o.CardGap = &f.cardGap
	}
	if f.fontSize > 0 {
		o.FontSize = &f.fontSize
	}
	if f.outputDir != "" {
		o.OutputDir = &f.outputDir
	}
	return o
}

func runGenerate(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, flags generateFlags, deckPaths []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if missing := deps.Missing(deps.CheckBinaries(deps.Requirements(cfg))); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, status := range missing {
			names[i] = fmt.Sprintf("%s (%s)", status.Name, status.Detail)
		}
		return fmt.Errorf("missing required binaries: %s", strings.Join(names, ", "))
	}

	// One run per cache directory. Concurrent runs would race on identical
	// cache keys and half-written artifacts.
	lock := flock.New(filepath.Join(cfg.Paths.CacheDir, ".cardcast.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire cache lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another cardcast run holds %s", lock.Path())
	}
	defer func() { _ = lock.Unlock() }()

	store, err := history.Open(cfg.Paths.HistoryPath)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	var failures int
	for _, deckPath := range deckPaths {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := generateOne(ctx, cmd, cfg, logger, flags, store, deckPath); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			failures++
			fmt.Fprintf(out, "FAILED %s: %v\n", deckPath, err)
			logger.Error("deck failed",
				logging.String("deck", deckPath),
				logging.Error(err),
			)
		}
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d decks failed", failures, len(deckPaths))
	}
	return nil
}

func generateOne(ctx context.Context, cmd *cobra.Command, baseCfg *config.Config, logger *slog.Logger, flags generateFlags, store *history.Store, deckPath string) error {
	started := time.Now()

	d, err := deck.LoadAny(deckPath)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, pair := range d.Duplicates() {
		fmt.Fprintf(out, "warning: cards %d and %d have nearly identical questions\n", pair.First+1, pair.Second+1)
	}

	// Flags win over deck-file settings, which win over the config file.
	cfg := baseCfg.Apply(d.Overrides(), flags.cliOverrides())
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	renderer, err := render.NewRenderer(cfg.Slide)
	if err != nil {
		return err
	}

	mainPool := tts.NewPool(tts.Config{
		Command: cfg.TTS.WorkerCommand,
		Args:    cfg.TTS.WorkerArgs,
		Voice:   cfg.TTS.MainVoice,
		Workers: cfg.TTS.Workers,
	}, logger)
	var codePool *tts.Pool
	if cfg.TTS.CodeVoice != cfg.TTS.MainVoice {
		codePool = tts.NewPool(tts.Config{
			Command: cfg.TTS.WorkerCommand,
			Args:    cfg.TTS.WorkerArgs,
			Voice:   cfg.TTS.CodeVoice,
			Workers: cfg.TTS.CodeWorkers,
		}, logger)
	}

	// Update mode never synthesizes, so worker processes stay unspawned.
	if !flags.update {
		if err := mainPool.Start(ctx); err != nil {
			return err
		}
		defer mainPool.Close()
		if codePool != nil {
			if err := codePool.Start(ctx); err != nil {
				return err
			}
			defer codePool.Close()
		}
	}

	progress := newProgressDisplay(cmd.OutOrStdout())
	defer progress.finish()

	pipe := pipeline.New(cfg, pipeline.Deps{
		Store:   cache.NewStore(cfg.Paths.CacheDir, flags.force, logger),
		MainTTS: mainPool,
		CodeTTS: codeSynthesizer(codePool),
		Encoder: ffmpeg.NewClient(
			ffmpeg.WithBinary(cfg.Encode.FFmpegBinary),
			ffmpeg.WithFPS(cfg.Encode.FPS),
		),
		Probe: func(probeCtx context.Context, path string) (float64, error) {
			return ffprobe.Duration(probeCtx, cfg.Encode.FFprobeBinary, path)
		},
		Renderer: renderer,
		Logger:   logger,
		Progress: progress.tick,
		Update:   flags.update,
	})

	summary, err := pipe.Run(ctx, d)
	progress.finish()

	run := history.Run{
		DeckPath:     deckPath,
		DeckTitle:    d.Title,
		Cards:        summary.Cards,
		AudioBuilt:   summary.AudioBuilt,
		AudioCached:  summary.AudioCached,
		SlidesBuilt:  summary.SlidesBuilt,
		SlidesCached: summary.SlidesCached,
		ClipsBuilt:   summary.ClipsBuilt,
		ClipsCached:  summary.ClipsCached,
		Duration:     summary.TotalDuration,
		OutputPath:   summary.OutputPath,
		Status:       history.StatusCompleted,
		StartedAt:    started.UTC(),
		FinishedAt:   time.Now().UTC(),
	}
	if err != nil {
		run.Status = history.StatusFailed
		run.ErrorMessage = err.Error()
	}
	if _, recordErr := store.Record(ctx, run); recordErr != nil && !errors.Is(recordErr, context.Canceled) {
		logger.Warn("record run history", logging.Error(recordErr))
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s: %d cards, %.1fs video -> %s (%s)\n",
		textutil.TitleCase(d.Title),
		summary.Cards,
		summary.TotalDuration,
		summary.OutputPath,
		time.Since(started).Round(time.Millisecond),
	)
	return nil
}

// codeSynthesizer avoids a typed-nil interface when no code pool exists.
func codeSynthesizer(pool *tts.Pool) pipeline.Synthesizer {
	if pool == nil {
		return nil
	}
	return pool
}
