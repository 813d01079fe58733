package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satococoa/buildah-installer/internal/command"
	"github.com/satococoa/buildah-installer/internal/config"
	"github.com/satococoa/buildah-installer/internal/installer"
	streamio "github.com/satococoa/buildah-installer/internal/io"
	"github.com/satococoa/buildah-installer/internal/testutil"
)

// stubExecutor swaps newExecutor for the test and records what it was given
type stubExecutor struct {
	cfg    *config.Config
	output io.Writer
	closed bool
}

func useExecutor(t *testing.T, exec command.Executor) *stubExecutor {
	t.Helper()

	stub := &stubExecutor{}
	prev := newExecutor
	t.Cleanup(func() { newExecutor = prev })
	newExecutor = func(cfg *config.Config, output io.Writer) (command.Executor, func() error, error) {
		stub.cfg = cfg
		stub.output = output
		return exec, func() error {
			stub.closed = true
			return nil
		}, nil
	}
	return stub
}

func runApp(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	err := app.Run(context.Background(), append([]string{"buildah-installer"}, args...))
	return out.String(), errOut.String(), err
}

func TestNewInstallCommand(t *testing.T) {
	cmd := NewInstallCommand()

	assert.Equal(t, "install", cmd.Name)
	assert.NotEmpty(t, cmd.Description)
	assert.NotNil(t, cmd.Action)

	names := make(map[string]bool)
	for _, flag := range cmd.Flags {
		names[flag.Names()[0]] = true
	}
	for _, want := range []string{
		"config", "host", "identity", "insecure-host-key", "distribution", "package",
		"no-sudo", "timeout", "verbose", "log-level", "log-format", "no-progress",
	} {
		assert.True(t, names[want], "flag --%s should exist", want)
	}
}

func TestInstallCommand_Success(t *testing.T) {
	// Given: no settings file and an executor where everything succeeds
	t.Chdir(t.TempDir())
	recorder := testutil.NewCannedRecorder()
	stub := useExecutor(t, recorder)

	// When: installing
	out, _, err := runApp(t, "install")

	// Then: the default seven commands ran and the run reported success
	require.NoError(t, err)
	testutil.AssertCommands(t, recorder, testutil.InstallCommands)
	assert.Contains(t, out, "Updating package lists...")
	assert.Contains(t, out, "Installation verified.")
	assert.True(t, strings.HasSuffix(out, "Installation complete!\n"), out)

	// And: the executor was released and got no stream outside verbose mode
	assert.True(t, stub.closed)
	assert.Nil(t, stub.output)
}

func TestInstallCommand_Failure(t *testing.T) {
	// Given: the prerequisite package is missing
	t.Chdir(t.TempDir())
	recorder := command.NewRecorder().
		FailOn(installer.PrerequisitePackage, 100, "E: Unable to locate package software-properties-common\n")
	useExecutor(t, recorder)

	// When: installing
	out, errOut, err := runApp(t, "install")

	// Then: the error explains the failing step and keeps the exit code
	require.Error(t, err)
	assert.Contains(t, err.Error(), "installation failed at step 2/6 'Install Software Properties'")
	assert.Contains(t, err.Error(), "Cause: Package not found")
	shellErr, ok := command.AsShellCommandError(err)
	require.True(t, ok)
	assert.Equal(t, 100, shellErr.ExitCode)

	// And: nothing after the failing step ran
	assert.Len(t, recorder.Commands(), 2)
	assert.Contains(t, out, "Installation failed:")
	assert.NotContains(t, out, "Installation complete!")

	// And: the failure was logged at the default warn level
	assert.Contains(t, errOut, "step failed")
	assert.Contains(t, errOut, "exit_code=100")
}

func TestInstallCommand_FlagOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	recorder := command.NewRecorder()
	stub := useExecutor(t, recorder)

	_, errOut, err := runApp(t, "install",
		"--no-sudo", "--distribution", "Debian_12", "--package", "podman",
		"--timeout", "5m", "--verbose", "--log-level", "info", "--log-format", "json", "--no-progress")

	require.NoError(t, err)
	assert.Equal(t, "Debian_12", stub.cfg.Target.Distribution)
	assert.False(t, stub.cfg.Executor.SudoEnabled())
	assert.Equal(t, 5*time.Minute, stub.cfg.Executor.Timeout)
	assert.NotNil(t, stub.output, "verbose mode streams command output")
	assert.Equal(t, "apt install -y podman", recorder.Commands()[5])
	assert.Equal(t, "podman --version", recorder.Commands()[6])
	assert.Contains(t, errOut, `"message":"run completed"`)
}

func TestInstallCommand_SettingsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yml")
	require.NoError(t, os.WriteFile(path, []byte("target:\n  distribution: Raspbian_11\nexecutor:\n  sudo: false\n"), 0o600))
	recorder := command.NewRecorder()
	stub := useExecutor(t, recorder)

	_, _, err := runApp(t, "install", "--config", path, "--distribution", "Raspbian_12")

	require.NoError(t, err)
	assert.Equal(t, "Raspbian_12", stub.cfg.Target.Distribution, "flags override the file")
	assert.False(t, stub.cfg.Executor.SudoEnabled())
}

func TestInstallCommand_SettingsErrors(t *testing.T) {
	t.Run("should explain a missing explicit settings file", func(t *testing.T) {
		useExecutor(t, command.NewRecorder())
		_, _, err := runApp(t, "install", "--config", filepath.Join(t.TempDir(), "missing.yml"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load configuration from")
	})

	t.Run("should reject a malformed host", func(t *testing.T) {
		t.Chdir(t.TempDir())
		recorder := command.NewRecorder()
		useExecutor(t, recorder)

		_, _, err := runApp(t, "install", "--host", "raspberrypi")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid value 'raspberrypi' for --host")
		assert.Empty(t, recorder.Commands())
	})

	t.Run("should reject an unknown log level", func(t *testing.T) {
		t.Chdir(t.TempDir())
		useExecutor(t, command.NewRecorder())

		_, _, err := runApp(t, "install", "--log-level", "loud")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid settings")
	})
}

func TestInstallCommand_RemoteSettings(t *testing.T) {
	t.Chdir(t.TempDir())
	stub := useExecutor(t, command.NewRecorder())

	_, _, err := runApp(t, "install", "--host", "pi@raspberrypi.local:2222", "--identity", "/keys/id_ed25519")

	require.NoError(t, err)
	assert.True(t, stub.cfg.IsRemote())
	assert.Equal(t, "pi@raspberrypi.local:2222", stub.cfg.SSH.Target)
	assert.Equal(t, "/keys/id_ed25519", stub.cfg.SSH.IdentityFile)
	assert.True(t, strings.HasSuffix(stub.cfg.SSH.KnownHosts, filepath.Join(".ssh", "known_hosts")))
}

func TestInstallCommand_RemoteSettingsFromFile(t *testing.T) {
	// Given: a settings file naming a remote target without known_hosts
	t.Chdir(t.TempDir())
	content := "ssh:\n  target: pi@raspberrypi.local\n  identity_file: /keys/id_ed25519\n"
	require.NoError(t, os.WriteFile(config.ConfigFileName, []byte(content), 0o600))
	stub := useExecutor(t, command.NewRecorder())

	// When: installing without SSH flags
	_, _, err := runApp(t, "install")

	// Then: the same known_hosts default as --host applies
	require.NoError(t, err)
	assert.True(t, stub.cfg.IsRemote())
	assert.True(t, strings.HasSuffix(stub.cfg.SSH.KnownHosts, filepath.Join(".ssh", "known_hosts")))
	assert.False(t, strings.HasPrefix(stub.cfg.SSH.KnownHosts, "~"))
}

func TestInstallWithExecutor_Progress(t *testing.T) {
	var out, errOut bytes.Buffer
	cfg := config.Default()

	// When: installing with the progress bar on
	err := installWithExecutor(context.Background(), &out, &errOut, testutil.NewCannedRecorder(), cfg, true)

	// Then: the bar lines go to stderr and stdout keeps only status lines
	require.NoError(t, err)
	assert.Contains(t, errOut.String(), "100%  6/6")
	assert.Contains(t, out.String(), "[6/6]")
	assert.NotContains(t, out.String(), "%")
}

func TestInstallWithExecutor_VerbosePrintsOutputOnce(t *testing.T) {
	// Given: a local executor whose shell echoes each command, streamed like --verbose
	shell := filepath.Join(t.TempDir(), "fake-sh")
	require.NoError(t, os.WriteFile(shell, []byte("#!/bin/sh\necho \"ran: $2\"\n"), 0o755))

	var out, errOut bytes.Buffer
	stream := streamio.NewStreamWriter(&out, streamPrefix)
	executor := command.NewLocalExecutor(command.WithShell(shell), command.WithOutput(stream))
	cfg := config.Default()
	cfg.Output.Verbose = true

	// When: installing
	err := installWithExecutor(context.Background(), &out, &errOut, executor, cfg, false)
	require.NoError(t, stream.Flush())

	// Then: every command's output appears exactly once, on the streamed line
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out.String(), "ran: buildah --version"))
	assert.Contains(t, out.String(), streamPrefix+"ran: buildah --version\n")
	assert.Equal(t, 2, strings.Count(out.String(), "ran: sudo apt update"))
}

func TestNewExecutor(t *testing.T) {
	t.Run("should run locally by default", func(t *testing.T) {
		cfg := config.Default()
		cfg.Executor.Timeout = time.Minute

		executor, closeFn, err := newExecutor(cfg, nil)

		require.NoError(t, err)
		output, err := executor.Execute(context.Background(), "echo ready")
		require.NoError(t, err)
		assert.Equal(t, "ready", output)
		assert.NoError(t, closeFn())
	})

	t.Run("should fail early on an unreadable identity", func(t *testing.T) {
		cfg := config.Default()
		cfg.SSH.Target = "pi@raspberrypi.local"
		cfg.SSH.IdentityFile = filepath.Join(t.TempDir(), "missing")
		cfg.SSH.InsecureIgnoreHostKey = true

		_, _, err := newExecutor(cfg, nil)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read identity file")
	})
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".ssh", "id_ed25519"), expandHome("~/.ssh/id_ed25519"))
	assert.Equal(t, "/etc/key", expandHome("/etc/key"))
	assert.Equal(t, "~other/key", expandHome("~other/key"))
	assert.Equal(t, "", expandHome(""))
}
