package pipeline

import (
	"context"

	"github.com/satococoa/buildah-installer/internal/command"
)

// Action performs the work of a step through the injected executor and
// returns the output worth reporting. It must not swallow executor errors.
type Action func(ctx context.Context, exec command.Executor) (string, error)

// Step is a named unit of provisioning work. Steps are values; the With*
// methods return modified copies.
type Step struct {
	name         string
	startMessage string
	doneMessage  string
	action       Action
}

// NewStep creates a step
func NewStep(name string, action Action) Step {
	return Step{name: name, action: action}
}

// Name returns the step label
func (s Step) Name() string {
	return s.name
}

// WithMessages sets the status lines reported when the step starts and finishes
func (s Step) WithMessages(start, done string) Step {
	s.startMessage = start
	s.doneMessage = done
	return s
}

// StartMessage defaults to "Starting <name>..."
func (s Step) StartMessage() string {
	if s.startMessage != "" {
		return s.startMessage
	}
	return "Starting " + s.name + "..."
}

// DoneMessage defaults to "<name> complete."
func (s Step) DoneMessage() string {
	if s.doneMessage != "" {
		return s.doneMessage
	}
	return s.name + " complete."
}

// Commands returns an action that runs each command line in order and
// reports the output of the last one. The first failure ends the action.
func Commands(commands ...string) Action {
	return func(ctx context.Context, exec command.Executor) (string, error) {
		var output string
		for _, cmd := range commands {
			out, err := exec.Execute(ctx, cmd)
			if err != nil {
				return out, err
			}
			output = out
		}
		return output, nil
	}
}
