package framework

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

const (
	dirPerm  = 0755
	filePerm = 0600
	execPerm = 0755

	// EnvFailOn makes the sudo shim fail for arguments containing its value
	EnvFailOn = "E2E_FAIL_ON"
	// EnvFailCode is the exit code the sudo shim fails with
	EnvFailCode = "E2E_FAIL_CODE"
	envLogFile  = "E2E_LOG_FILE"
)

// sudoShim drains piped stdin before logging so pipeline order is stable
const sudoShim = `#!/bin/sh
if [ "$1" = "apt-key" ]; then cat > /dev/null; fi
printf 'sudo %s\n' "$*" >> "$E2E_LOG_FILE"
if [ -n "$E2E_FAIL_ON" ]; then
  case "$*" in
    *"$E2E_FAIL_ON"*)
      echo "E: Unable to locate package $E2E_FAIL_ON" >&2
      exit "${E2E_FAIL_CODE:-100}"
      ;;
  esac
fi
echo "sudo $1 ok"
`

const wgetShim = `#!/bin/sh
printf 'wget %s\n' "$*" >> "$E2E_LOG_FILE"
echo "-----BEGIN PGP PUBLIC KEY BLOCK-----"
`

const buildahShim = `#!/bin/sh
printf 'buildah %s\n' "$*" >> "$E2E_LOG_FILE"
echo "buildah version 1.0 (image-spec 1.0.1)"
`

type TestEnvironment struct {
	t       *testing.T
	tmpDir  string
	binary  string
	binDir  string
	workDir string
	logFile string
	env     []string
}

// Result is one finished invocation of the binary
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Output is stdout followed by stderr
func (r Result) Output() string {
	return r.Stdout + r.Stderr
}

func NewTestEnvironment(t *testing.T) *TestEnvironment {
	t.Helper()

	tmpDir := t.TempDir()
	env := &TestEnvironment{
		t:       t,
		tmpDir:  tmpDir,
		binDir:  filepath.Join(tmpDir, "bin"),
		workDir: filepath.Join(tmpDir, "work"),
		logFile: filepath.Join(tmpDir, "invocations.log"),
	}

	env.buildBinary()
	env.installShims()
	if err := os.MkdirAll(env.workDir, dirPerm); err != nil {
		t.Fatalf("Failed to create work directory: %v", err)
	}

	return env
}

func (e *TestEnvironment) buildBinary() {
	e.t.Helper()

	binary := filepath.Join(e.tmpDir, "buildah-installer")
	if prebuilt := os.Getenv("BUILDAH_INSTALLER_E2E_BINARY"); prebuilt != "" {
		binary = prebuilt
		if _, err := os.Stat(binary); err != nil {
			e.t.Fatalf("Specified binary not found: %s", binary)
		}
	} else {
		cmd := exec.Command("go", "build", "-o", binary, "./cmd/buildah-installer")
		cmd.Dir = e.findProjectRoot()
		if output, err := cmd.CombinedOutput(); err != nil {
			e.t.Fatalf("Failed to build binary: %v\nOutput: %s", err, output)
		}
	}

	absPath, err := filepath.Abs(filepath.Clean(binary))
	if err != nil {
		e.t.Fatalf("Failed to get absolute path for binary: %v", err)
	}
	e.binary = absPath
}

func (e *TestEnvironment) findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		e.t.Fatalf("Failed to get working directory: %v", err)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			e.t.Fatal("Could not find project root (go.mod)")
		}
		dir = parent
	}
}

// installShims puts fake sudo, wget and buildah first on PATH
func (e *TestEnvironment) installShims() {
	e.t.Helper()

	if err := os.MkdirAll(e.binDir, dirPerm); err != nil {
		e.t.Fatalf("Failed to create shim directory: %v", err)
	}
	for name, script := range map[string]string{
		"sudo":    sudoShim,
		"wget":    wgetShim,
		"buildah": buildahShim,
	} {
		path := filepath.Join(e.binDir, name)
		if err := os.WriteFile(path, []byte(script), execPerm); err != nil {
			e.t.Fatalf("Failed to write shim %s: %v", name, err)
		}
	}
}

// FailOn makes the sudo shim exit with code for arguments containing match
func (e *TestEnvironment) FailOn(match string, code int) {
	e.env = append(e.env, EnvFailOn+"="+match, fmt.Sprintf("%s=%d", EnvFailCode, code))
}

// Run executes the binary inside the work directory
func (e *TestEnvironment) Run(args ...string) Result {
	e.t.Helper()

	for _, arg := range args {
		if err := validateArg(arg); err != nil {
			e.t.Fatalf("invalid argument: %v", err)
		}
	}

	cmd := exec.Command(e.binary, args...)
	cmd.Dir = e.workDir
	cmd.Env = append(os.Environ(),
		"PATH="+e.binDir+string(os.PathListSeparator)+os.Getenv("PATH"),
		"HOME="+e.tmpDir,
		envLogFile+"="+e.logFile,
		"NO_COLOR=1",
	)
	cmd.Env = append(cmd.Env, e.env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	result := Result{}
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			e.t.Fatalf("Failed to run binary: %v", err)
		}
		result.ExitCode = exitErr.ExitCode()
	}
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()
	return result
}

// Invocations lists every shim call in order
func (e *TestEnvironment) Invocations() []string {
	e.t.Helper()

	content, err := os.ReadFile(e.logFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		e.t.Fatalf("Failed to read invocation log: %v", err)
	}
	return strings.Split(strings.TrimRight(string(content), "\n"), "\n")
}

// ResetInvocations clears the shim log between runs
func (e *TestEnvironment) ResetInvocations() {
	e.t.Helper()

	if err := os.Remove(e.logFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		e.t.Fatalf("Failed to reset invocation log: %v", err)
	}
}

func (e *TestEnvironment) WorkDir() string {
	return e.workDir
}

func (e *TestEnvironment) WriteFile(name, content string) string {
	e.t.Helper()

	path := filepath.Join(e.workDir, name)
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		e.t.Fatalf("Failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), filePerm); err != nil {
		e.t.Fatalf("Failed to write file %s: %v", path, err)
	}
	return path
}

func (e *TestEnvironment) ReadFile(name string) string {
	e.t.Helper()

	content, err := os.ReadFile(filepath.Join(e.workDir, name))
	if err != nil {
		e.t.Fatalf("Failed to read file %s: %v", name, err)
	}
	return string(content)
}

func (e *TestEnvironment) FileExists(name string) bool {
	_, err := os.Stat(filepath.Join(e.workDir, name))
	return err == nil
}

// validateArg checks if an argument is safe to pass to exec.Command
func validateArg(arg string) error {
	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\n", "\r"}
	for _, char := range dangerousChars {
		if strings.Contains(arg, char) {
			return fmt.Errorf("argument contains potentially dangerous character: %s", char)
		}
	}
	return nil
}
