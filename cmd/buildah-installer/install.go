package main

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel"

	"github.com/satococoa/buildah-installer/internal/command"
	"github.com/satococoa/buildah-installer/internal/config"
	"github.com/satococoa/buildah-installer/internal/errors"
	"github.com/satococoa/buildah-installer/internal/installer"
	streamio "github.com/satococoa/buildah-installer/internal/io"
	"github.com/satococoa/buildah-installer/internal/logging"
	"github.com/satococoa/buildah-installer/internal/pipeline"
	"github.com/satococoa/buildah-installer/internal/progress"
	"github.com/satococoa/buildah-installer/internal/report"
)

const (
	tracerName   = "github.com/satococoa/buildah-installer"
	streamPrefix = "    │ "
)

// NewInstallCommand creates the install command definition
func NewInstallCommand() *cli.Command {
	flags := append(settingsFlags(),
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Kill any single command running longer than this (0 = no limit)",
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Stream command output while steps run",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Structured log level on stderr: debug, info, warn, error",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "Structured log format: text or json",
		},
		&cli.BoolFlag{
			Name:  "no-progress",
			Usage: "Do not draw the progress bar",
		},
	)

	return &cli.Command{
		Name:  "install",
		Usage: "Install Buildah",
		Description: "Refreshes the package index, installs software-properties-common, adds the Kubic " +
			"repository and its signing key, installs the package and checks its version.\n" +
			"Steps run in order and the install stops at the first failing command.",
		Flags:  flags,
		Action: installCommand,
	}
}

// newExecutor selects the local shell or an SSH connection. Tests replace it.
var newExecutor = func(cfg *config.Config, output io.Writer) (command.Executor, func() error, error) {
	if !cfg.IsRemote() {
		opts := []command.LocalOption{
			command.WithShell(cfg.Executor.Shell),
			command.WithTimeout(cfg.Executor.Timeout),
		}
		if output != nil {
			opts = append(opts, command.WithOutput(output))
		}
		return command.NewLocalExecutor(opts...), func() error { return nil }, nil
	}

	user, host, port, err := command.ParseSSHTarget(cfg.SSH.Target)
	if err != nil {
		return nil, nil, err
	}
	sshConfig := command.SSHConfig{
		User:                  user,
		Host:                  host,
		Port:                  port,
		IdentityFile:          cfg.SSH.IdentityFile,
		KnownHostsFile:        cfg.SSH.KnownHosts,
		InsecureIgnoreHostKey: cfg.SSH.InsecureIgnoreHostKey,
		Timeout:               cfg.Executor.Timeout,
		Output:                output,
	}
	executor, err := command.NewSSHExecutor(sshConfig)
	if err != nil {
		return nil, nil, err
	}
	return executor, executor.Close, nil
}

func installCommand(ctx context.Context, cmd *cli.Command) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	w := cmd.Root().Writer
	if w == nil {
		w = os.Stdout
	}
	errW := cmd.Root().ErrWriter
	if errW == nil {
		errW = os.Stderr
	}
	configureColor(w)

	var stream *streamio.StreamWriter
	if cfg.Output.Verbose {
		stream = streamio.NewStreamWriter(w, streamPrefix)
		defer func() { _ = stream.Flush() }()
	}

	var output io.Writer
	if stream != nil {
		output = stream
	}
	executor, closeExecutor, err := newExecutor(cfg, output)
	if err != nil {
		return err
	}
	defer func() { _ = closeExecutor() }()

	return installWithExecutor(ctx, w, errW, executor, cfg, progressEnabled(cfg, errW))
}

// installWithExecutor runs one install and maps its failure to an operator-facing error
func installWithExecutor(
	ctx context.Context,
	w, errW io.Writer,
	executor command.Executor,
	cfg *config.Config,
	showProgress bool,
) error {
	logger, err := logging.New(errW, cfg.Output.LogLevel, cfg.Output.LogFormat)
	if err != nil {
		return err
	}

	provider := newTracerProvider(logger)
	defer func() { _ = provider.Shutdown(context.WithoutCancel(ctx)) }()
	otel.SetTracerProvider(provider)

	opts := []pipeline.Option{
		pipeline.WithObserver(pipeline.Observers{
			report.NewConsole(w),
			report.NewLogObserver(logger),
			report.NewTraceObserver(ctx, otel.Tracer(tracerName)),
		}),
	}
	if showProgress {
		bar := report.NewProgressBar(errW, lipgloss.ColorProfile())
		opts = append(opts, pipeline.WithProgress(func(total int) pipeline.Progress {
			return progress.New(total, bar)
		}))
	}

	inst := installer.New(executor, installer.OptionsFromConfig(cfg), opts...)
	if err := inst.Run(ctx); err != nil {
		return errors.InstallFailed(err)
	}
	return nil
}
