package command

import (
	"errors"
	"fmt"
	"strings"
)

// ShellCommandError reports a command that exited with a non-zero status.
// Only executors construct it.
type ShellCommandError struct {
	Command  string
	ExitCode int
	Stderr   string
}

// Error implements the error interface
func (e *ShellCommandError) Error() string {
	msg := fmt.Sprintf("command %q exited with code %d", e.Command, e.ExitCode)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

// AsShellCommandError finds the first ShellCommandError in err's chain.
func AsShellCommandError(err error) (*ShellCommandError, bool) {
	var shellErr *ShellCommandError
	if errors.As(err, &shellErr) {
		return shellErr, true
	}
	return nil, false
}
