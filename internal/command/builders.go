package command

import (
	"fmt"
	"strings"
)

// Builder renders the package-management command lines used by the installer
type Builder struct {
	Sudo bool // Prefix privileged commands with sudo
}

// AptUpdate builds a package index refresh command
func (b Builder) AptUpdate() string {
	return b.privileged("apt update")
}

// AptInstall builds a non-interactive package install command
func (b Builder) AptInstall(packages ...string) string {
	args := append([]string{"apt", "install", "-y"}, packages...)
	return b.privileged(strings.Join(args, " "))
}

// WriteLine builds a command that overwrites path with a single line of text.
// The line is wrapped in single quotes inside a double-quoted sh -c script, so
// neither quote character may appear in line or path.
func (b Builder) WriteLine(path, line string) (string, error) {
	if strings.ContainsAny(line, `'"`) {
		return "", fmt.Errorf("cannot write line %q: quotes are not allowed", line)
	}
	if path == "" || strings.ContainsAny(path, "'\" \n") {
		return "", fmt.Errorf("cannot write to path %q: path must be non-empty without quotes or whitespace", path)
	}

	script := fmt.Sprintf(`sh -c "echo '%s' > %s"`, line, path)
	return b.privileged(script), nil
}

// AptKeyAdd builds a command that downloads a signing key and trusts it
func (b Builder) AptKeyAdd(keyURL string) string {
	return fmt.Sprintf("wget -nv %s -O- | %s", keyURL, b.privileged("apt-key add -"))
}

// VersionProbe builds the version-reporting command of an installed tool.
// It never runs with sudo.
func VersionProbe(binary string) string {
	return binary + " --version"
}

func (b Builder) privileged(command string) string {
	if b.Sudo {
		return "sudo " + command
	}
	return command
}
