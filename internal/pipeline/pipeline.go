// Package pipeline runs an ordered list of provisioning steps as one
// fail-fast execution.
//
// # State machine
//
//	Idle → Running → Completed
//	          ↓
//	        Failed
//
// Steps run strictly one after another on the caller's goroutine. The first
// failing step ends the run: later steps are never attempted, the progress
// tracker is aborted, observers are told, and the error is returned wrapped
// in a *StepError. A Pipeline runs at most once.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/satococoa/buildah-installer/internal/command"
	"github.com/satococoa/buildah-installer/internal/progress"
)

// State is the lifecycle position of a pipeline
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ErrAlreadyRun is returned when Run is called on a pipeline that has left Idle.
var ErrAlreadyRun = errors.New("pipeline: already run")

// Progress is the bookkeeping the orchestrator drives: one Advance per
// successful step, then exactly one of Complete or Abort.
type Progress interface {
	Advance() error
	Complete() error
	Abort() error
}

// StepError reports the step that ended a run. It unwraps to the action's error.
type StepError struct {
	Step  string
	Index int
	Total int
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d/%d %q failed: %v", e.Index+1, e.Total, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithObserver sets the lifecycle observer
func WithObserver(observer Observer) Option {
	return func(p *Pipeline) {
		if observer != nil {
			p.observer = observer
		}
	}
}

// WithProgress sets the factory that creates the tracker at run start
func WithProgress(newProgress func(total int) Progress) Option {
	return func(p *Pipeline) {
		if newProgress != nil {
			p.newProgress = newProgress
		}
	}
}

// WithRunID overrides the generated run identifier
func WithRunID(id string) Option {
	return func(p *Pipeline) {
		if id != "" {
			p.runID = id
		}
	}
}

// Pipeline owns an ordered list of steps and the executor they share
type Pipeline struct {
	exec        command.Executor
	steps       []Step
	observer    Observer
	newProgress func(total int) Progress
	runID       string
	state       State
}

// New creates an idle pipeline. The steps slice is copied.
func New(exec command.Executor, steps []Step, opts ...Option) *Pipeline {
	p := &Pipeline{
		exec:     exec,
		steps:    append([]Step(nil), steps...),
		observer: NopObserver{},
		newProgress: func(total int) Progress {
			return progress.New(total)
		},
		runID: uuid.NewString(),
		state: StateIdle,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Total is the number of steps progress is accounted against
func (p *Pipeline) Total() int {
	return len(p.steps)
}

// StepNames returns the step labels in execution order
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}

// RunID identifies this pipeline's run in logs and traces
func (p *Pipeline) RunID() string {
	return p.runID
}

// State reports where the pipeline is in its lifecycle
func (p *Pipeline) State() State {
	return p.state
}

// Run executes every step in order and stops at the first failure
func (p *Pipeline) Run(ctx context.Context) error {
	if p.state != StateIdle {
		return ErrAlreadyRun
	}
	p.state = StateRunning

	total := len(p.steps)
	tracker := p.newProgress(total)
	run := Run{ID: p.runID, Steps: p.StepNames()}
	p.observer.RunStarted(run)

	for i, step := range p.steps {
		info := StepInfo{
			Index:        i,
			Total:        total,
			Name:         step.Name(),
			StartMessage: step.StartMessage(),
			DoneMessage:  step.DoneMessage(),
		}

		if err := ctx.Err(); err != nil {
			return p.fail(run, tracker, info, err)
		}

		p.observer.StepStarted(info)
		output, err := step.action(ctx, p.exec)
		if err != nil {
			return p.fail(run, tracker, info, err)
		}
		// A step is reported succeeded only after progress accepts it
		if err := tracker.Advance(); err != nil {
			return p.fail(run, tracker, info, fmt.Errorf("record progress: %w", err))
		}
		p.observer.StepSucceeded(info, output)
	}

	if err := tracker.Complete(); err != nil {
		p.state = StateFailed
		err = fmt.Errorf("complete progress: %w", err)
		p.observer.RunAborted(run, err)
		return err
	}
	p.state = StateCompleted
	p.observer.RunCompleted(run)
	return nil
}

func (p *Pipeline) fail(run Run, tracker Progress, info StepInfo, err error) error {
	p.state = StateFailed
	stepErr := &StepError{Step: info.Name, Index: info.Index, Total: info.Total, Err: err}

	p.observer.StepFailed(info, err)
	abortErr := tracker.Abort()
	p.observer.RunAborted(run, stepErr)

	if abortErr != nil {
		return errors.Join(stepErr, fmt.Errorf("abort progress: %w", abortErr))
	}
	return stepErr
}
