package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

const (
	// DefaultShell interprets every command line.
	DefaultShell = "sh"

	// TimeoutExitCode is reported when the executor kills a command that outlived its timeout.
	TimeoutExitCode = -1

	// MissingStatusExitCode is reported when a remote command ends without an exit status.
	MissingStatusExitCode = -2

	waitDelay = 2 * time.Second
)

// localExecutor implements Executor using os/exec on the current host
type localExecutor struct {
	shell   string
	timeout time.Duration
	output  io.Writer
}

// LocalOption configures the local executor
type LocalOption func(*localExecutor)

// WithShell sets the shell binary used as "<shell> -c <command>"
func WithShell(shell string) LocalOption {
	return func(e *localExecutor) {
		if shell != "" {
			e.shell = shell
		}
	}
}

// WithTimeout bounds each command. Zero disables the limit.
func WithTimeout(timeout time.Duration) LocalOption {
	return func(e *localExecutor) {
		e.timeout = timeout
	}
}

// WithOutput streams stdout and stderr to w while they are also captured.
func WithOutput(w io.Writer) LocalOption {
	return func(e *localExecutor) {
		e.output = w
	}
}

// NewLocalExecutor creates an executor that runs commands on this machine
func NewLocalExecutor(opts ...LocalOption) Executor {
	e := &localExecutor{shell: DefaultShell}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs the command line through the configured shell
func (e *localExecutor) Execute(ctx context.Context, command string) (string, error) {
	runCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	// #nosec G204 - command lines are built by the installer, not taken from user input
	cmd := exec.CommandContext(runCtx, e.shell, "-c", command)
	// Children of the shell may hold the output pipes open after it is killed
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if e.output != nil {
		cmd.Stdout = io.MultiWriter(&stdout, e.output)
		cmd.Stderr = io.MultiWriter(&stderr, e.output)
	}

	err := cmd.Run()
	output := strings.TrimSpace(stdout.String())
	if err == nil {
		return output, nil
	}

	if ctx.Err() != nil {
		return output, fmt.Errorf("command %q interrupted: %w", command, ctx.Err())
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return output, &ShellCommandError{
			Command:  command,
			ExitCode: TimeoutExitCode,
			Stderr:   appendLine(stderr.String(), fmt.Sprintf("command timed out after %s", e.timeout)),
		}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return output, &ShellCommandError{
			Command:  command,
			ExitCode: exitErr.ExitCode(),
			Stderr:   stderr.String(),
		}
	}

	return output, fmt.Errorf("failed to start %q: %w", command, err)
}

func appendLine(text, line string) string {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return line
	}
	return text + "\n" + line
}
