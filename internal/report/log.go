package report

import (
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/satococoa/buildah-installer/internal/command"
	"github.com/satococoa/buildah-installer/internal/pipeline"
)

// LogObserver emits one structured event per lifecycle point
type LogObserver struct {
	mu     sync.Mutex
	base   zerolog.Logger
	logger zerolog.Logger
}

var _ pipeline.Observer = (*LogObserver)(nil)

func NewLogObserver(logger zerolog.Logger) *LogObserver {
	return &LogObserver{base: logger, logger: logger}
}

func (l *LogObserver) RunStarted(run pipeline.Run) {
	l.mu.Lock()
	l.logger = l.base.With().Str("run_id", run.ID).Logger()
	logger := l.logger
	l.mu.Unlock()

	logger.Info().Int("steps", len(run.Steps)).Strs("plan", run.Steps).Msg("run started")
}

func (l *LogObserver) StepStarted(step pipeline.StepInfo) {
	logger := l.current()
	withStep(logger.Debug(), step).Msg("step started")
}

func (l *LogObserver) StepSucceeded(step pipeline.StepInfo, output string) {
	logger := l.current()
	withStep(logger.Info(), step).Msg("step succeeded")
	if output != "" {
		withStep(logger.Debug(), step).Str("output", output).Msg("step output")
	}
}

func (l *LogObserver) StepFailed(step pipeline.StepInfo, err error) {
	logger := l.current()
	event := withStep(logger.Error(), step).Err(err)
	if shellErr, ok := command.AsShellCommandError(err); ok {
		event = event.
			Str("command", shellErr.Command).
			Int("exit_code", shellErr.ExitCode).
			Str("stderr", strings.TrimSpace(shellErr.Stderr))
	}
	event.Msg("step failed")
}

func (l *LogObserver) RunCompleted(pipeline.Run) {
	logger := l.current()
	logger.Info().Msg("run completed")
}

func (l *LogObserver) RunAborted(_ pipeline.Run, err error) {
	logger := l.current()
	logger.Error().Err(err).Msg("run aborted")
}

func (l *LogObserver) current() zerolog.Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.logger
}

func withStep(event *zerolog.Event, step pipeline.StepInfo) *zerolog.Event {
	return event.Str("step", step.Name).Int("index", step.Index).Int("total", step.Total)
}
