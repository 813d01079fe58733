package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/satococoa/buildah-installer/internal/command"
	"github.com/satococoa/buildah-installer/internal/config"
	"github.com/satococoa/buildah-installer/internal/installer"
	"github.com/satococoa/buildah-installer/internal/pipeline"
)

// NewPlanCommand creates the plan command definition
func NewPlanCommand() *cli.Command {
	return &cli.Command{
		Name:        "plan",
		Usage:       "Show the commands an install would run",
		Description: "Prints every step and its command lines without executing anything.",
		Flags:       settingsFlags(),
		Action:      planCommand,
	}
}

func planCommand(ctx context.Context, cmd *cli.Command) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	w := cmd.Root().Writer
	if w == nil {
		w = os.Stdout
	}
	return writePlan(ctx, w, cfg)
}

type plannedStep struct {
	name     string
	commands []string
}

// planCollector splits the recorded command log at step boundaries
type planCollector struct {
	pipeline.NopObserver
	recorder *command.Recorder
	mark     int
	steps    []plannedStep
}

func (c *planCollector) StepStarted(pipeline.StepInfo) {
	c.mark = len(c.recorder.Commands())
}

func (c *planCollector) StepSucceeded(step pipeline.StepInfo, _ string) {
	c.steps = append(c.steps, plannedStep{name: step.Name, commands: c.recorder.Commands()[c.mark:]})
}

// writePlan runs the install against a recorder, which succeeds every command
func writePlan(ctx context.Context, w io.Writer, cfg *config.Config) error {
	recorder := command.NewRecorder()
	collector := &planCollector{recorder: recorder}

	inst := installer.New(recorder, installer.OptionsFromConfig(cfg), pipeline.WithObserver(collector))
	if err := inst.Run(ctx); err != nil {
		return err
	}

	target := "this machine"
	if cfg.IsRemote() {
		target = cfg.SSH.Target
	}
	fmt.Fprintf(w, "Install %s on %s in %d steps:\n", cfg.Target.Package, target, len(collector.steps))
	for i, step := range collector.steps {
		fmt.Fprintf(w, "\n%d. %s\n", i+1, step.name)
		for _, line := range step.commands {
			fmt.Fprintf(w, "   $ %s\n", line)
		}
	}
	return nil
}
