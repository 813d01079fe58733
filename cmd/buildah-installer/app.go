package main

import "github.com/urfave/cli/v3"

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "buildah-installer",
		Usage: "Install Buildah on a Debian-family host",
		Description: "buildah-installer adds the Kubic container tools repository and installs Buildah " +
			"through apt, one step at a time, stopping at the first failure.",
		Version: version,
		Commands: []*cli.Command{
			NewInstallCommand(),
			NewPlanCommand(),
			NewInitCommand(),
		},
	}
}
