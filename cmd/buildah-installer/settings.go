package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/satococoa/buildah-installer/internal/command"
	"github.com/satococoa/buildah-installer/internal/config"
	"github.com/satococoa/buildah-installer/internal/errors"
)

// settingsFlags are shared by every command that builds an install plan
func settingsFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "Settings file (default: " + config.ConfigFileName + " if present)",
		},
		&cli.StringFlag{
			Name:  "distribution",
			Usage: "Repository distribution directory, e.g. Raspbian_10 or Debian_11",
		},
		&cli.StringFlag{
			Name:  "package",
			Usage: "Package to install and verify",
		},
		&cli.BoolFlag{
			Name:  "no-sudo",
			Usage: "Run privileged commands without sudo",
		},
		&cli.StringFlag{
			Name:  "host",
			Usage: "Install on a remote host over SSH (user@host[:port])",
		},
		&cli.StringFlag{
			Name:  "identity",
			Usage: "SSH private key file",
		},
		&cli.StringFlag{
			Name:  "known-hosts",
			Usage: "SSH known_hosts file (default: " + config.DefaultKnownHosts + ")",
		},
		&cli.BoolFlag{
			Name:  "insecure-host-key",
			Usage: "Skip SSH host key verification",
		},
	}
}

// resolveConfig loads the settings file and applies flag overrides
func resolveConfig(cmd *cli.Command) (*config.Config, error) {
	path := cmd.String("config")
	cfg, err := config.LoadConfig(path)
	if err != nil {
		if path == "" {
			path = config.ConfigFileName
		}
		return nil, errors.ConfigLoadFailed(path, err)
	}

	if cmd.IsSet("distribution") {
		cfg.Target.Distribution = cmd.String("distribution")
	}
	if cmd.IsSet("package") {
		cfg.Target.Package = cmd.String("package")
	}
	if cmd.Bool("no-sudo") {
		sudo := false
		cfg.Executor.Sudo = &sudo
	}
	if cmd.IsSet("timeout") {
		cfg.Executor.Timeout = cmd.Duration("timeout")
	}

	if cmd.IsSet("host") {
		host := cmd.String("host")
		if _, _, _, err := command.ParseSSHTarget(host); err != nil {
			return nil, errors.InvalidFlagValue("host", host, "expected user@host[:port]")
		}
		cfg.SSH.Target = host
	}
	if cmd.IsSet("identity") {
		cfg.SSH.IdentityFile = cmd.String("identity")
	}
	if cmd.IsSet("known-hosts") {
		cfg.SSH.KnownHosts = cmd.String("known-hosts")
	}
	if cmd.Bool("insecure-host-key") {
		cfg.SSH.InsecureIgnoreHostKey = true
	}

	if cmd.Bool("verbose") {
		cfg.Output.Verbose = true
	}
	if cmd.IsSet("log-level") {
		cfg.Output.LogLevel = cmd.String("log-level")
	}
	if cmd.IsSet("log-format") {
		cfg.Output.LogFormat = cmd.String("log-format")
	}
	if cmd.Bool("no-progress") {
		showProgress := false
		cfg.Output.Progress = &showProgress
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	cfg.SSH.IdentityFile = expandHome(cfg.SSH.IdentityFile)
	cfg.SSH.KnownHosts = expandHome(cfg.SSH.KnownHosts)
	return cfg, nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
