package report

import (
	"fmt"
	"io"
	"sync"

	bar "github.com/charmbracelet/bubbles/progress"
	"github.com/muesli/termenv"

	"github.com/satococoa/buildah-installer/internal/progress"
)

const defaultBarWidth = 40

// ProgressBar renders a bar line whenever the completed count moves or the
// run is aborted.
type ProgressBar struct {
	mu    sync.Mutex
	w     io.Writer
	model bar.Model

	printed       bool
	lastCompleted int
}

var _ progress.Listener = (*ProgressBar)(nil)

// NewProgressBar renders with the given color profile; use termenv.Ascii for plain output
func NewProgressBar(w io.Writer, profile termenv.Profile) *ProgressBar {
	return &ProgressBar{
		w: w,
		model: bar.New(
			bar.WithDefaultGradient(),
			bar.WithWidth(defaultBarWidth),
			bar.WithColorProfile(profile),
		),
	}
}

func (p *ProgressBar) ProgressChanged(s progress.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.printed && s.Completed == p.lastCompleted && s.Status != progress.StatusAborted {
		return
	}
	p.printed = true
	p.lastCompleted = s.Completed

	line := fmt.Sprintf("%s  %d/%d", p.model.ViewAs(s.Fraction()), s.Completed, s.Total)
	if s.Status == progress.StatusAborted {
		line += " (aborted)"
	}
	fmt.Fprintln(p.w, line)
}
