package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/satococoa/buildah-installer/internal/command"
	"github.com/satococoa/buildah-installer/internal/pipeline"
)

// Common error messages with helpful context and suggestions

// diagnosticError carries an operator-facing message but keeps the original
// error reachable through errors.Is and errors.As.
type diagnosticError struct {
	msg string
	err error
}

func (e *diagnosticError) Error() string { return e.msg }

func (e *diagnosticError) Unwrap() error { return e.err }

// Installation Errors
func InstallFailed(err error) error {
	var connErr *command.ConnectError
	if errors.As(err, &connErr) {
		return SSHConnectionFailed(connErr.Address, err)
	}

	var msg string
	var stepErr *pipeline.StepError
	if errors.As(err, &stepErr) {
		msg = fmt.Sprintf("installation failed at step %d/%d '%s'", stepErr.Index+1, stepErr.Total, stepErr.Step)
	} else {
		msg = "installation failed"
	}

	shellErr, isShell := command.AsShellCommandError(err)
	if isShell {
		msg += fmt.Sprintf("\n\nCommand: %s\nExit code: %d", shellErr.Command, shellErr.ExitCode)
		if details := strings.TrimSpace(shellErr.Stderr); details != "" {
			msg += fmt.Sprintf("\nDetails: %s", details)
		}
	}

	msg += installHint(err, shellErr)
	msg += fmt.Sprintf("\n\nOriginal error: %v", rootCause(err))
	return &diagnosticError{msg: msg, err: err}
}

func installHint(err error, shellErr *command.ShellCommandError) string {
	if errors.Is(err, context.Canceled) {
		return `

Cause: Installation was interrupted
Tip: Re-run the install; completed steps are safe to repeat`
	}
	if shellErr == nil {
		return ""
	}

	stderr := strings.ToLower(shellErr.Stderr)
	switch {
	case shellErr.ExitCode == command.TimeoutExitCode:
		return `

Cause: Command did not finish in time
Solutions:
  • Raise 'executor.timeout' in .buildah-installer.yml or pass --timeout
  • Check whether apt is waiting on a slow mirror`
	case shellErr.ExitCode == command.MissingStatusExitCode:
		return `

Cause: Remote session ended without an exit status
Solutions:
  • Check whether the host rebooted or the SSH server restarted
  • Re-run the install; completed steps are safe to repeat`
	case strings.Contains(stderr, "could not get lock") || strings.Contains(stderr, "dpkg was interrupted"):
		return `

Cause: Another package manager process holds the dpkg lock
Solutions:
  • Wait for unattended upgrades to finish
  • Run 'sudo dpkg --configure -a' if a previous install was interrupted`
	case strings.Contains(stderr, "unable to locate package"):
		return `

Cause: Package not found in the configured repositories
Solutions:
  • Check the package name and the 'target.distribution' setting
  • Run 'buildah-installer plan' to review the repository URL`
	case strings.Contains(stderr, "permission denied") || strings.Contains(stderr, "are you root"):
		return `

Cause: Permission denied
Solutions:
  • Run as a user with sudo rights
  • Enable 'executor.sudo' if it was turned off`
	case shellErr.ExitCode == 127 || strings.Contains(stderr, "command not found"):
		return `

Cause: Command not found
Solutions:
  • Install the missing tool on the target host
  • Check 'executor.shell' in .buildah-installer.yml`
	case strings.Contains(shellErr.Command, "wget") ||
		strings.Contains(stderr, "unable to resolve") ||
		strings.Contains(stderr, "temporary failure"):
		return `

Cause: Network failure while contacting the repository
Solutions:
  • Check network connectivity and DNS on the target host
  • Verify 'repository.base_url' is reachable`
	}
	return ""
}

// rootCause strips the step wrapper so the original line is not repeated
func rootCause(err error) error {
	var stepErr *pipeline.StepError
	if errors.As(err, &stepErr) && stepErr.Err != nil {
		return stepErr.Err
	}
	return err
}

// Remote Execution Errors
func SSHConnectionFailed(address string, originalError error) error {
	msg := fmt.Sprintf("failed to connect to %s over ssh", address)

	errorStr := originalError.Error()
	if strings.Contains(errorStr, "knownhosts") || strings.Contains(errorStr, "key mismatch") {
		msg += `

Cause: Host key is not trusted
Solutions:
  • Add the host to your known_hosts with 'ssh-keyscan'
  • Pass --insecure-host-key only on trusted networks`
	} else if strings.Contains(errorStr, "unable to authenticate") {
		msg += `

Cause: Authentication failed
Solution: Check --identity and the remote user's authorized_keys`
	} else if strings.Contains(errorStr, "connection refused") || strings.Contains(errorStr, "i/o timeout") {
		msg += `

Cause: Host is unreachable
Solutions:
  • Check the host address and port
  • Ensure sshd is running on the target`
	}

	msg += fmt.Sprintf("\n\nOriginal error: %v", rootCause(originalError))
	return &diagnosticError{msg: msg, err: originalError}
}

// Configuration Errors
func ConfigLoadFailed(configPath string, parseError error) error {
	msg := fmt.Sprintf("failed to load configuration from '%s'", configPath)

	parseErrorStr := parseError.Error()
	if strings.Contains(parseErrorStr, "yaml") || strings.Contains(parseErrorStr, "parse") {
		msg += `

Cause: YAML syntax error in configuration file
Solutions:
  • Check YAML syntax and indentation
  • Check for misspelled keys
  • Run 'buildah-installer init --force' to recreate the configuration`
	} else if strings.Contains(parseErrorStr, "no such file") {
		msg += `

Cause: Configuration file does not exist
Solution: Run 'buildah-installer init' to create a configuration file`
	} else if strings.Contains(parseErrorStr, "permission denied") {
		msg += `

Cause: Permission denied reading configuration file
Solution: Check file permissions with 'ls -la .buildah-installer.yml'`
	} else if strings.Contains(parseErrorStr, "invalid") {
		msg += `

Cause: Configuration value rejected
Tip: Compare with the template written by 'buildah-installer init'`
	}

	msg += fmt.Sprintf("\n\nOriginal error: %v", parseError)
	return &diagnosticError{msg: msg, err: parseError}
}

func ConfigAlreadyExists(configPath string) error {
	msg := fmt.Sprintf(`configuration file already exists: %s

Options:
  • Edit the existing file manually
  • Use 'buildah-installer init --force' to overwrite`, configPath)
	return errors.New(msg)
}

// File System Errors
func FileWriteFailed(path string, originalError error) error {
	msg := fmt.Sprintf("failed to write file: %s", path)

	errorStr := originalError.Error()
	if strings.Contains(errorStr, "permission denied") {
		msg += `

Cause: Permission denied
Solutions:
  • Check directory permissions
  • Write the file somewhere you own with --config`
	} else if strings.Contains(errorStr, "no such file or directory") {
		msg += `

Cause: Directory does not exist
Solution: Create the parent directory first`
	}

	msg += fmt.Sprintf("\n\nOriginal error: %v", originalError)
	return &diagnosticError{msg: msg, err: originalError}
}

// Flag Errors
func InvalidFlagValue(flag, value, reason string) error {
	msg := fmt.Sprintf(`invalid value '%s' for --%s: %s

Tip: Run 'buildah-installer install --help' to see accepted values`, value, flag, reason)
	return errors.New(msg)
}
