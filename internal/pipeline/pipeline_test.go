package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satococoa/buildah-installer/internal/command"
	"github.com/satococoa/buildah-installer/internal/progress"
)

// recordingProgress counts calls instead of enforcing transitions
type recordingProgress struct {
	total     int
	advances  int
	completes int
	aborts    int
	calls     []string
}

func (r *recordingProgress) Advance() error {
	r.advances++
	r.calls = append(r.calls, "advance")
	return nil
}

func (r *recordingProgress) Complete() error {
	r.completes++
	r.calls = append(r.calls, "complete")
	return nil
}

func (r *recordingProgress) Abort() error {
	r.aborts++
	r.calls = append(r.calls, "abort")
	return nil
}

// recordingObserver keeps a flat event log
type recordingObserver struct {
	events  []string
	outputs []string
	stepErr error
	runErr  error
}

func (o *recordingObserver) RunStarted(run Run) {
	o.events = append(o.events, fmt.Sprintf("run-started:%d", len(run.Steps)))
}

func (o *recordingObserver) StepStarted(step StepInfo) {
	o.events = append(o.events, "step-started:"+step.Name)
}

func (o *recordingObserver) StepSucceeded(step StepInfo, output string) {
	o.events = append(o.events, "step-succeeded:"+step.Name)
	o.outputs = append(o.outputs, output)
}

func (o *recordingObserver) StepFailed(step StepInfo, err error) {
	o.events = append(o.events, "step-failed:"+step.Name)
	o.stepErr = err
}

func (o *recordingObserver) RunCompleted(Run) {
	o.events = append(o.events, "run-completed")
}

func (o *recordingObserver) RunAborted(_ Run, err error) {
	o.events = append(o.events, "run-aborted")
	o.runErr = err
}

func newTestPipeline(exec command.Executor, steps []Step) (*Pipeline, *recordingProgress, *recordingObserver) {
	tracker := &recordingProgress{}
	observer := &recordingObserver{}
	p := New(exec, steps,
		WithObserver(observer),
		WithProgress(func(total int) Progress {
			tracker.total = total
			return tracker
		}),
	)
	return p, tracker, observer
}

func threeSteps() []Step {
	return []Step{
		NewStep("first", Commands("cmd-1")),
		NewStep("second", Commands("cmd-2a", "cmd-2b")),
		NewStep("third", Commands("cmd-3")),
	}
}

func TestPipelineRunSuccess(t *testing.T) {
	// Given: three steps, the second issuing two commands
	recorder := command.NewRecorder().Respond("cmd-3", "done")
	p, tracker, observer := newTestPipeline(recorder, threeSteps())

	// When: running the pipeline
	err := p.Run(context.Background())

	// Then: every command ran once, in declared order
	require.NoError(t, err)
	assert.Equal(t, []string{"cmd-1", "cmd-2a", "cmd-2b", "cmd-3"}, recorder.Commands())

	// And: progress counts logical steps, not commands
	assert.Equal(t, 3, tracker.total)
	assert.Equal(t, 3, tracker.advances)
	assert.Equal(t, 1, tracker.completes)
	assert.Equal(t, 0, tracker.aborts)
	assert.Equal(t, []string{"advance", "advance", "advance", "complete"}, tracker.calls)

	// And: observers saw the full lifecycle
	assert.Equal(t, []string{
		"run-started:3",
		"step-started:first", "step-succeeded:first",
		"step-started:second", "step-succeeded:second",
		"step-started:third", "step-succeeded:third",
		"run-completed",
	}, observer.events)
	assert.Equal(t, []string{"", "", "done"}, observer.outputs)
	assert.Equal(t, StateCompleted, p.State())
}

func TestPipelineRunFailFast(t *testing.T) {
	for failAt, failing := range []string{"cmd-1", "cmd-2a", "cmd-2b", "cmd-3"} {
		t.Run("failing "+failing, func(t *testing.T) {
			// Given: a pipeline whose executor fails on one command
			recorder := command.NewRecorder().FailOn(failing, 100, "boom")
			p, tracker, observer := newTestPipeline(recorder, threeSteps())

			// When: running the pipeline
			err := p.Run(context.Background())

			// Then: nothing after the failing command was attempted
			require.Error(t, err)
			all := []string{"cmd-1", "cmd-2a", "cmd-2b", "cmd-3"}
			assert.Equal(t, all[:failAt+1], recorder.Commands())

			// And: abort fired once and complete never
			assert.Equal(t, 1, tracker.aborts)
			assert.Equal(t, 0, tracker.completes)
			assert.Equal(t, "abort", tracker.calls[len(tracker.calls)-1])
			assert.Equal(t, "run-aborted", observer.events[len(observer.events)-1])
			assert.Equal(t, StateFailed, p.State())
		})
	}
}

func TestPipelineErrorFidelity(t *testing.T) {
	// Given: the second command of the second step fails
	recorder := command.NewRecorder().FailOn("cmd-2b", 4, "wget: unable to resolve host address\n")
	p, _, observer := newTestPipeline(recorder, threeSteps())

	// When: running the pipeline
	err := p.Run(context.Background())

	// Then: the caller sees the exact executor error through the step error
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "second", stepErr.Step)
	assert.Equal(t, 1, stepErr.Index)
	assert.Equal(t, 3, stepErr.Total)

	shellErr, ok := command.AsShellCommandError(err)
	require.True(t, ok)
	assert.Equal(t, "cmd-2b", shellErr.Command)
	assert.Equal(t, 4, shellErr.ExitCode)
	assert.Equal(t, "wget: unable to resolve host address\n", shellErr.Stderr)

	// And: observers got the raw error for the step and the wrapped one for the run
	assert.Same(t, shellErr, observer.stepErr)
	assert.ErrorIs(t, observer.runErr, shellErr)
	assert.Contains(t, err.Error(), `step 2/3 "second" failed`)
}

func TestPipelineUncategorizedError(t *testing.T) {
	malformed := errors.New("cannot build command")
	steps := []Step{
		NewStep("broken", func(context.Context, command.Executor) (string, error) {
			return "", malformed
		}),
		NewStep("never", Commands("cmd-never")),
	}
	recorder := command.NewRecorder()
	p, tracker, _ := newTestPipeline(recorder, steps)

	err := p.Run(context.Background())

	assert.ErrorIs(t, err, malformed)
	_, ok := command.AsShellCommandError(err)
	assert.False(t, ok)
	assert.Empty(t, recorder.Commands())
	assert.Equal(t, 1, tracker.aborts)
}

func TestPipelineRunsOnce(t *testing.T) {
	recorder := command.NewRecorder()
	p, tracker, _ := newTestPipeline(recorder, threeSteps())
	require.NoError(t, p.Run(context.Background()))

	err := p.Run(context.Background())

	assert.ErrorIs(t, err, ErrAlreadyRun)
	assert.Len(t, recorder.Commands(), 4)
	assert.Equal(t, 1, tracker.completes)

	failed, _, _ := newTestPipeline(command.NewRecorder().FailOn("cmd-1", 1, ""), threeSteps())
	require.Error(t, failed.Run(context.Background()))
	assert.ErrorIs(t, failed.Run(context.Background()), ErrAlreadyRun)
}

func TestPipelineCancelledContext(t *testing.T) {
	// Given: a context cancelled by the first step
	ctx, cancel := context.WithCancel(context.Background())
	steps := []Step{
		NewStep("first", func(ctx context.Context, exec command.Executor) (string, error) {
			defer cancel()
			return exec.Execute(ctx, "cmd-1")
		}),
		NewStep("second", Commands("cmd-2")),
	}
	recorder := command.NewRecorder()
	p, tracker, observer := newTestPipeline(recorder, steps)

	// When: running the pipeline
	err := p.Run(ctx)

	// Then: the second step is reported failed without running
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"cmd-1"}, recorder.Commands())
	assert.Equal(t, 1, tracker.advances)
	assert.Equal(t, 1, tracker.aborts)
	assert.Contains(t, observer.events, "step-failed:second")
	assert.NotContains(t, observer.events, "step-started:second")
}

// failingProgress rejects every Advance
type failingProgress struct {
	recordingProgress
}

func (f *failingProgress) Advance() error {
	return errors.New("tracker rejected advance")
}

func TestPipelineProgressFailure(t *testing.T) {
	// Given: a tracker that rejects the first Advance
	recorder := command.NewRecorder()
	tracker := &failingProgress{}
	observer := &recordingObserver{}
	p := New(recorder, threeSteps(),
		WithObserver(observer),
		WithProgress(func(int) Progress { return tracker }),
	)

	// When: running the pipeline
	err := p.Run(context.Background())

	// Then: the first step is reported failed only, never succeeded
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record progress")
	assert.Equal(t, []string{"cmd-1"}, recorder.Commands())
	assert.Equal(t, []string{
		"run-started:3",
		"step-started:first", "step-failed:first",
		"run-aborted",
	}, observer.events)
	assert.Equal(t, 1, tracker.aborts)
	assert.Equal(t, StateFailed, p.State())
}

func TestPipelineEmpty(t *testing.T) {
	p, tracker, observer := newTestPipeline(command.NewRecorder(), nil)

	require.NoError(t, p.Run(context.Background()))

	assert.Equal(t, 0, tracker.advances)
	assert.Equal(t, 1, tracker.completes)
	assert.Equal(t, []string{"run-started:0", "run-completed"}, observer.events)
}

func TestPipelineWithDefaultTracker(t *testing.T) {
	// Given: a real tracker wired through a listener
	var last progress.Snapshot
	p := New(command.NewRecorder(), threeSteps(), WithProgress(func(total int) Progress {
		return progress.New(total, progress.ListenerFunc(func(s progress.Snapshot) { last = s }))
	}))

	// When: running
	require.NoError(t, p.Run(context.Background()))

	// Then: the tracker finished done with every step counted
	assert.Equal(t, progress.Snapshot{Completed: 3, Total: 3, Status: progress.StatusDone}, last)
}

func TestPipelineAccessors(t *testing.T) {
	p := New(command.NewRecorder(), threeSteps(), WithRunID("run-123"))

	assert.Equal(t, 3, p.Total())
	assert.Equal(t, []string{"first", "second", "third"}, p.StepNames())
	assert.Equal(t, "run-123", p.RunID())
	assert.Equal(t, StateIdle, p.State())

	generated := New(command.NewRecorder(), nil)
	assert.Len(t, generated.RunID(), 36)
	assert.NotEqual(t, generated.RunID(), New(command.NewRecorder(), nil).RunID())
}

func TestStepMessages(t *testing.T) {
	step := NewStep("Update package lists", Commands("apt update"))
	assert.Equal(t, "Starting Update package lists...", step.StartMessage())
	assert.Equal(t, "Update package lists complete.", step.DoneMessage())

	custom := step.WithMessages("Updating package lists...", "Package lists updated.")
	assert.Equal(t, "Updating package lists...", custom.StartMessage())
	assert.Equal(t, "Package lists updated.", custom.DoneMessage())
	assert.Equal(t, "Starting Update package lists...", step.StartMessage())
}

func TestObserversFanOut(t *testing.T) {
	first, second := &recordingObserver{}, &recordingObserver{}
	observers := Observers{first, NopObserver{}, second}

	observers.RunStarted(Run{Steps: []string{"a"}})
	observers.StepStarted(StepInfo{Name: "a"})
	observers.StepFailed(StepInfo{Name: "a"}, errors.New("x"))
	observers.RunAborted(Run{}, errors.New("x"))

	want := []string{"run-started:1", "step-started:a", "step-failed:a", "run-aborted"}
	assert.Equal(t, want, first.events)
	assert.Equal(t, want, second.events)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "completed", StateCompleted.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", State(9).String())
}
