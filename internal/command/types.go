package command

import "context"

// Executor runs a single shell command line and returns its trimmed standard output.
// A non-zero exit status is reported as *ShellCommandError.
type Executor interface {
	Execute(ctx context.Context, command string) (string, error)
}

// ExecutorFunc adapts an ordinary function to the Executor interface
type ExecutorFunc func(ctx context.Context, command string) (string, error)

// Execute calls f(ctx, command)
func (f ExecutorFunc) Execute(ctx context.Context, command string) (string, error) {
	return f(ctx, command)
}
