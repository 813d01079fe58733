package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/satococoa/buildah-installer/internal/config"
	"github.com/satococoa/buildah-installer/internal/errors"
)

const configFileMode = 0o600

// NewInitCommand creates the init command definition
func NewInitCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Initialize configuration file",
		Description: "Creates a " + config.ConfigFileName + " file in the current directory " +
			"with the default repository and executor settings.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path of the file to create",
				Value: config.ConfigFileName,
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite an existing file",
			},
		},
		Action: initCommand,
	}
}

func initCommand(_ context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	// Check if config file already exists
	if _, err := os.Stat(configPath); err == nil && !cmd.Bool("force") {
		return errors.ConfigAlreadyExists(configPath)
	}

	if err := os.WriteFile(configPath, []byte(config.Template), configFileMode); err != nil {
		return errors.FileWriteFailed(configPath, err)
	}

	w := cmd.Root().Writer
	if w == nil {
		w = os.Stdout
	}

	fmt.Fprintf(w, "Configuration file created: %s\n", configPath)
	fmt.Fprintln(w, "Edit this file to customize the installation.")
	return nil
}
