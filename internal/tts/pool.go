package tts

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"log/slog"

	"cardcast/internal/logging"
)

// Config describes one worker pool.
type Config struct {
	// Command is the worker binary; Args are passed verbatim before the
	// voice flag.
	Command string
	Args    []string
	// Voice is the model the workers load. One pool serves exactly one
	// voice.
	Voice string
	// Workers is the pool size. Defaults to DefaultWorkers when zero.
	Workers int
}

// DefaultWorkers sizes the main pool. Each worker holds a full model in
// memory, so half the cores is the ceiling rather than the floor.
func DefaultWorkers() int {
	n := runtime.NumCPU() / 2
	if n < 1 {
		return 1
	}
	return n
}

// Pool owns a fixed set of worker processes for a single voice and multiplexes
// a FIFO job queue onto whichever worker is idle.
type Pool struct {
	cfg    Config
	logger *slog.Logger

	jobs    chan *job
	nextID  atomic.Uint64
	wg      sync.WaitGroup
	live    atomic.Int32
	started bool

	mu       sync.Mutex
	closeErr error
}

type job struct {
	id     uint64
	text   string
	output string
	result chan jobResult
}

type jobResult struct {
	duration float64
	err      error
}

// NewPool builds an unstarted pool.
func NewPool(cfg Config, logger *slog.Logger) *Pool {
	if cfg.Workers < 1 {
		cfg.Workers = DefaultWorkers()
	}
	return &Pool{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "tts").With(logging.String("voice", cfg.Voice)),
		jobs:   make(chan *job, 256),
	}
}

// Start spawns every worker and waits for each to report ready. A single
// worker failing to load its model fails the whole pool; already-started
// workers are killed.
func (p *Pool) Start(ctx context.Context) error {
	if p.started {
		return errors.New("tts: pool already started")
	}
	args := append(append([]string(nil), p.cfg.Args...), "--voice", p.cfg.Voice)
	procs := make([]workerProcess, 0, p.cfg.Workers)
	for i := 0; i < p.cfg.Workers; i++ {
		proc, err := spawn(ctx, p.cfg.Command, args)
		if err != nil {
			killAll(procs)
			return fmt.Errorf("tts: spawn worker %d: %w", i, err)
		}
		procs = append(procs, proc)
	}
	for i, proc := range procs {
		resp, err := proc.Recv()
		if err != nil {
			killAll(procs)
			return fmt.Errorf("tts: worker %d startup: %w", i, err)
		}
		if resp.Type != typeReady {
			killAll(procs)
			return fmt.Errorf("tts: worker %d sent %q before ready", i, resp.Type)
		}
	}
	p.logger.Info("worker pool ready", logging.Int("workers", len(procs)))
	p.live.Store(int32(len(procs)))
	for i, proc := range procs {
		p.wg.Add(1)
		go p.runWorker(i, proc)
	}
	p.started = true
	return nil
}

// Synthesize queues one text-to-audio job and waits for its result. Jobs are
// dispatched FIFO as workers go idle; any completion order is valid because
// every caller is matched to its own job. A failed job rejects only this
// call.
func (p *Pool) Synthesize(ctx context.Context, text, outputPath string) (float64, error) {
	if !p.started {
		return 0, errors.New("tts: pool not started")
	}
	j := &job{
		id:     p.nextID.Add(1),
		text:   text,
		output: strings.TrimSpace(outputPath),
		result: make(chan jobResult, 1),
	}
	if j.output == "" {
		return 0, errors.New("tts: output path required")
	}
	select {
	case p.jobs <- j:
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	select {
	case res := <-j.result:
		return res.duration, res.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Close drains the queue, sends every worker a shutdown request, and waits
// for each process to exit. The pool cannot be restarted.
func (p *Pool) Close() error {
	if !p.started {
		return nil
	}
	close(p.jobs)
	p.wg.Wait()
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeErr
}

// runWorker owns one worker process: it pulls jobs until the queue closes,
// then shuts the process down. A transport failure retires this slot but
// leaves the rest of the pool running.
func (p *Pool) runWorker(index int, proc workerProcess) {
	defer p.wg.Done()
	defer func() {
		if p.live.Add(-1) == 0 {
			// Last slot gone: fail anything still queued instead of leaving
			// its caller waiting. After a clean Close the queue is already
			// closed and empty, so this is a no-op.
			for queued := range p.jobs {
				queued.result <- jobResult{err: errors.New("tts: all workers terminated")}
			}
		}
	}()
	workerLogger := p.logger.With(logging.Int("worker", index))
	for j := range p.jobs {
		res := p.dispatch(proc, j)
		j.result <- res
		if res.err != nil {
			var protoErr *transportError
			if errors.As(res.err, &protoErr) {
				workerLogger.Error("worker transport failed, retiring slot", logging.Error(res.err))
				proc.Kill()
				p.recordCloseErr(res.err)
				return
			}
			workerLogger.Warn("synthesis job failed", logging.Uint64("job", j.id), logging.Error(res.err))
		}
	}
	if err := proc.Send(request{Type: typeShutdown}); err != nil {
		workerLogger.Debug("shutdown send failed", logging.Error(err))
		proc.Kill()
		return
	}
	if err := proc.Wait(); err != nil {
		workerLogger.Warn("worker exited uncleanly", logging.Error(err))
		p.recordCloseErr(err)
	}
}

// dispatch runs one job on one worker and interprets the reply.
func (p *Pool) dispatch(proc workerProcess, j *job) jobResult {
	req := request{Type: typeSynthesize, ID: j.id, Text: j.text, Output: j.output}
	if err := proc.Send(req); err != nil {
		return jobResult{err: &transportError{err: err}}
	}
	resp, err := proc.Recv()
	if err != nil {
		return jobResult{err: &transportError{err: err}}
	}
	if resp.ID != j.id {
		return jobResult{err: &transportError{err: fmt.Errorf("job id mismatch: sent %d, got %d", j.id, resp.ID)}}
	}
	switch resp.Type {
	case typeDone:
		return jobResult{duration: resp.Duration}
	case typeError:
		return jobResult{err: fmt.Errorf("tts: synthesis failed: %s", resp.Message)}
	default:
		return jobResult{err: &transportError{err: fmt.Errorf("unexpected %q reply to job %d", resp.Type, j.id)}}
	}
}

func (p *Pool) recordCloseErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closeErr == nil {
		p.closeErr = err
	}
}

// transportError marks failures of the worker channel itself, as opposed to a
// worker reporting a failed synthesis.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return e.err.Error() }

func (e *transportError) Unwrap() error { return e.err }

func killAll(procs []workerProcess) {
	for _, proc := range procs {
		proc.Kill()
	}
}
