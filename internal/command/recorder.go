package command

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Recorder is a deterministic Executor that records every command line and
// answers from canned responses. It backs dry runs and tests.
type Recorder struct {
	mu       sync.Mutex
	rules    []recorderRule
	strict   bool
	commands []string
}

type recorderRule struct {
	match    string
	output   string
	fail     bool
	exitCode int
	stderr   string
}

// NewRecorder creates a recorder that answers unmatched commands with empty output
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Respond returns output for commands containing match
func (r *Recorder) Respond(match, output string) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, recorderRule{match: match, output: output})
	return r
}

// FailOn makes commands containing match exit with exitCode and stderr
func (r *Recorder) FailOn(match string, exitCode int, stderr string) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, recorderRule{match: match, fail: true, exitCode: exitCode, stderr: stderr})
	return r
}

// Strict rejects commands that match no rule
func (r *Recorder) Strict() *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strict = true
	return r
}

// Execute records the command and answers with the first matching rule
func (r *Recorder) Execute(_ context.Context, command string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.commands = append(r.commands, command)

	for _, rule := range r.rules {
		if !strings.Contains(command, rule.match) {
			continue
		}
		if rule.fail {
			return "", &ShellCommandError{Command: command, ExitCode: rule.exitCode, Stderr: rule.stderr}
		}
		return rule.output, nil
	}

	if r.strict {
		return "", fmt.Errorf("command not mocked: %s", command)
	}
	return "", nil
}

// Commands returns a copy of the recorded command lines in call order
func (r *Recorder) Commands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.commands))
	copy(out, r.commands)
	return out
}

// Reset forgets recorded commands but keeps the rules
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = nil
}
