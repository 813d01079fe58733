// Package testutil provides helpers shared across tests.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/satococoa/buildah-installer/internal/command"
)

// Canned outputs for the install commands
const (
	UpdateOutput       = "apt update executed"
	PrerequisiteOutput = "software-properties-common installed"
	RepositoryOutput   = "repository added"
	KeyOutput          = "key added"
	PackageOutput      = "buildah installed"
	VersionOutput      = "buildah version 1.0"
)

// InstallCommands is the command sequence of a default install
var InstallCommands = []string{
	"sudo apt update",
	"sudo apt install -y software-properties-common",
	`sudo sh -c "echo 'deb https://download.opensuse.org/repositories/devel:/kubic:/libcontainers:/stable/Raspbian_10/ /' > /etc/apt/sources.list.d/devel:kubic:libcontainers:stable.list"`,
	"wget -nv https://download.opensuse.org/repositories/devel:kubic:libcontainers:stable/Raspbian_10/Release.key -O- | sudo apt-key add -",
	"sudo apt update",
	"sudo apt install -y buildah",
	"buildah --version",
}

// NewCannedRecorder returns a strict recorder that answers every install
// command with a fixed output.
func NewCannedRecorder() *command.Recorder {
	return command.NewRecorder().
		Respond("apt update", UpdateOutput).
		Respond("software-properties-common", PrerequisiteOutput).
		Respond("sources.list.d", RepositoryOutput).
		Respond("apt-key add", KeyOutput).
		Respond("apt install", PackageOutput).
		Respond("--version", VersionOutput).
		Strict()
}

// AssertCommands fails the test when the recorder saw a different sequence
func AssertCommands(t testing.TB, recorder *command.Recorder, want []string) {
	t.Helper()
	assert.Equal(t, want, recorder.Commands(), "executed commands")
}
