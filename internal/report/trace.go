package report

import (
	"context"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/satococoa/buildah-installer/internal/command"
	"github.com/satococoa/buildah-installer/internal/pipeline"
)

const (
	RunSpanName = "buildah-installer.install"

	RunIDKey     = "installer.run_id"
	StepCountKey = "installer.steps"
	StepIndexKey = "installer.step.index"
	CommandKey   = "installer.command"
	ExitCodeKey  = "installer.exit_code"
)

// TraceObserver records the run as a root span with one child span per step
type TraceObserver struct {
	ctx    context.Context
	tracer trace.Tracer

	mu      sync.Mutex
	runCtx  context.Context
	runSpan trace.Span
	step    trace.Span
}

var _ pipeline.Observer = (*TraceObserver)(nil)

// NewTraceObserver parents the run span on ctx
func NewTraceObserver(ctx context.Context, tracer trace.Tracer) *TraceObserver {
	return &TraceObserver{ctx: ctx, tracer: tracer}
}

func (o *TraceObserver) RunStarted(run pipeline.Run) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.runCtx, o.runSpan = o.tracer.Start(o.ctx, RunSpanName, trace.WithAttributes(
		attribute.String(RunIDKey, run.ID),
		attribute.Int(StepCountKey, len(run.Steps)),
	))
}

func (o *TraceObserver) StepStarted(step pipeline.StepInfo) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.startStepLocked(step)
}

func (o *TraceObserver) StepSucceeded(pipeline.StepInfo, string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.step != nil {
		o.step.End()
		o.step = nil
	}
}

func (o *TraceObserver) StepFailed(step pipeline.StepInfo, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	// A step refused before it started still gets a span
	if o.step == nil {
		o.startStepLocked(step)
	}
	if shellErr, ok := command.AsShellCommandError(err); ok {
		o.step.SetAttributes(
			attribute.String(CommandKey, shellErr.Command),
			attribute.Int(ExitCodeKey, shellErr.ExitCode),
		)
	}
	o.step.RecordError(err)
	o.step.SetStatus(codes.Error, strings.TrimSpace(err.Error()))
	o.step.End()
	o.step = nil
}

func (o *TraceObserver) RunCompleted(pipeline.Run) {
	o.endRun(nil)
}

func (o *TraceObserver) RunAborted(_ pipeline.Run, err error) {
	o.endRun(err)
}

func (o *TraceObserver) startStepLocked(step pipeline.StepInfo) {
	parent := o.runCtx
	if parent == nil {
		parent = o.ctx
	}
	_, o.step = o.tracer.Start(parent, step.Name, trace.WithAttributes(
		attribute.Int(StepIndexKey, step.Index),
	))
}

func (o *TraceObserver) endRun(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.runSpan == nil {
		return
	}
	if err != nil {
		o.runSpan.RecordError(err)
		o.runSpan.SetStatus(codes.Error, strings.TrimSpace(err.Error()))
	}
	o.runSpan.End()
	o.runSpan = nil
	o.runCtx = nil
}
