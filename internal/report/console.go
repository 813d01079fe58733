// Package report turns pipeline lifecycle events into console lines,
// structured logs, trace spans and a progress bar.
package report

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/satococoa/buildah-installer/internal/pipeline"
)

// Palette matches a dark terminal
var (
	accent  = lipgloss.Color("99")
	green   = lipgloss.Color("76")
	red     = lipgloss.Color("204")
	dim     = lipgloss.Color("243")
	success = lipgloss.NewStyle().Foreground(green)
	failure = lipgloss.NewStyle().Foreground(red)
	active  = lipgloss.NewStyle().Foreground(accent)
	muted   = lipgloss.NewStyle().Foreground(dim)
)

// Console prints one status line per lifecycle event. Command output is
// streamed by the executor in verbose mode, never echoed here.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

var _ pipeline.Observer = (*Console)(nil)

// NewConsole writes status lines to w
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) RunStarted(pipeline.Run) {}

func (c *Console) StepStarted(step pipeline.StepInfo) {
	c.println(active.Render("●") + " " + counter(step) + " " + step.StartMessage)
}

func (c *Console) StepSucceeded(step pipeline.StepInfo, _ string) {
	c.println(success.Render("✓") + " " + counter(step) + " " + step.DoneMessage)
}

func (c *Console) StepFailed(step pipeline.StepInfo, _ error) {
	c.println(failure.Render("✗") + " " + counter(step) + " " + step.Name + " failed")
}

func (c *Console) RunCompleted(pipeline.Run) {
	c.println(success.Render("Installation complete!"))
}

func (c *Console) RunAborted(_ pipeline.Run, err error) {
	c.println(failure.Render("Installation failed:") + " " + err.Error())
}

func (c *Console) println(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, line)
}

func counter(step pipeline.StepInfo) string {
	return muted.Render(fmt.Sprintf("[%d/%d]", step.Index+1, step.Total))
}
