package main

import (
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// stageLabels maps pipeline stage names to bar descriptions.
var stageLabels = map[string]string{
	"audio":  "Synthesizing narration",
	"slides": "Rendering slides",
	"clips":  "Encoding clips",
	"concat": "Concatenating video",
}

// progressDisplay renders one bar per pipeline stage. It is a no-op when
// stdout is not a terminal so logs and CI output stay clean.
type progressDisplay struct {
	writer  io.Writer
	enabled bool

	mu    sync.Mutex
	stage string
	bar   *progressbar.ProgressBar
}

func newProgressDisplay(w io.Writer) *progressDisplay {
	enabled := false
	if f, ok := w.(*os.File); ok {
		enabled = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &progressDisplay{writer: w, enabled: enabled}
}

// tick is called from pipeline worker goroutines, so the display's stage and
// bar fields are guarded here.
func (p *progressDisplay) tick(stage string, completed, total int) {
	if !p.enabled || total == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if stage != p.stage {
		p.finishLocked()
		p.stage = stage
		label := stageLabels[stage]
		if label == "" {
			label = stage
		}
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.writer),
			progressbar.OptionSetDescription(label),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionShowCount(),
		)
	}
	_ = p.bar.Set(completed)
}

func (p *progressDisplay) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finishLocked()
}

func (p *progressDisplay) finishLocked() {
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
		p.stage = ""
	}
}
