package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/satococoa/buildah-installer/internal/command"
)

// Config represents the installer settings. Steps themselves are fixed;
// these values only tune the data and the executor they run with.
type Config struct {
	Version    string     `yaml:"version"`
	Target     Target     `yaml:"target,omitempty"`
	Repository Repository `yaml:"repository,omitempty"`
	Executor   Executor   `yaml:"executor,omitempty"`
	SSH        SSH        `yaml:"ssh,omitempty"`
	Output     Output     `yaml:"output,omitempty"`
}

// Target describes what gets installed and for which distribution
type Target struct {
	Distribution string `yaml:"distribution,omitempty"` // OBS distribution directory, e.g. Raspbian_10
	Package      string `yaml:"package,omitempty"`
}

// Repository locates the third-party apt repository
type Repository struct {
	BaseURL string `yaml:"base_url,omitempty"`
	Project string `yaml:"project,omitempty"`
}

// Executor tunes how commands are run
type Executor struct {
	Shell   string        `yaml:"shell,omitempty"`
	Sudo    *bool         `yaml:"sudo,omitempty"` // nil = true
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// SSH selects a remote target host instead of the local machine
type SSH struct {
	Target                string `yaml:"target,omitempty"` // user@host[:port]
	IdentityFile          string `yaml:"identity_file,omitempty"`
	KnownHosts            string `yaml:"known_hosts,omitempty"`
	InsecureIgnoreHostKey bool   `yaml:"insecure_ignore_host_key,omitempty"`
}

// Output controls logging and progress presentation
type Output struct {
	LogLevel  string `yaml:"log_level,omitempty"`
	LogFormat string `yaml:"log_format,omitempty"`
	Progress  *bool  `yaml:"progress,omitempty"` // nil = auto-detect terminal
	Verbose   bool   `yaml:"verbose,omitempty"`
}

const (
	ConfigFileName = ".buildah-installer.yml"
	CurrentVersion = "1.0"

	DefaultBaseURL      = "https://download.opensuse.org/repositories"
	DefaultProject      = "devel:kubic:libcontainers:stable"
	DefaultDistribution = "Raspbian_10"
	DefaultPackage      = "buildah"
	DefaultShell        = command.DefaultShell
	DefaultLogLevel     = "warn"
	DefaultLogFormat    = "text"
	DefaultKnownHosts   = "~/.ssh/known_hosts"
)

var (
	distributionPattern = regexp.MustCompile(`^[A-Za-z0-9._+-]+$`)
	packagePattern      = regexp.MustCompile(`^[a-z0-9][a-z0-9+.-]+$`)
	projectPattern      = regexp.MustCompile(`^[A-Za-z0-9._+-]+(:[A-Za-z0-9._+-]+)*$`)
)

// Default returns the settings used when no file exists
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Target: Target{
			Distribution: DefaultDistribution,
			Package:      DefaultPackage,
		},
		Repository: Repository{
			BaseURL: DefaultBaseURL,
			Project: DefaultProject,
		},
		Executor: Executor{
			Shell: DefaultShell,
		},
		Output: Output{
			LogLevel:  DefaultLogLevel,
			LogFormat: DefaultLogFormat,
		},
	}
}

// LoadConfig reads settings from path. An empty path means ConfigFileName in
// the working directory, which may be absent; an explicit path must exist.
func LoadConfig(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = ConfigFileName
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate fills in defaults and checks every field
func (c *Config) Validate() error {
	if c.Version == "" {
		c.Version = CurrentVersion
	}
	if c.Target.Distribution == "" {
		c.Target.Distribution = DefaultDistribution
	}
	if c.Target.Package == "" {
		c.Target.Package = DefaultPackage
	}
	if c.Repository.BaseURL == "" {
		c.Repository.BaseURL = DefaultBaseURL
	}
	if c.Repository.Project == "" {
		c.Repository.Project = DefaultProject
	}
	if c.Executor.Shell == "" {
		c.Executor.Shell = DefaultShell
	}
	if c.Output.LogLevel == "" {
		c.Output.LogLevel = DefaultLogLevel
	}
	if c.Output.LogFormat == "" {
		c.Output.LogFormat = DefaultLogFormat
	}

	if !distributionPattern.MatchString(c.Target.Distribution) {
		return fmt.Errorf("invalid distribution '%s'", c.Target.Distribution)
	}
	if !packagePattern.MatchString(c.Target.Package) {
		return fmt.Errorf("invalid package name '%s'", c.Target.Package)
	}
	if !projectPattern.MatchString(c.Repository.Project) {
		return fmt.Errorf("invalid repository project '%s'", c.Repository.Project)
	}
	if err := validateBaseURL(c.Repository.BaseURL); err != nil {
		return err
	}
	if c.Executor.Timeout < 0 {
		return fmt.Errorf("executor timeout must not be negative")
	}

	switch strings.ToLower(c.Output.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level '%s', must be debug, info, warn or error", c.Output.LogLevel)
	}
	switch c.Output.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format '%s', must be 'text' or 'json'", c.Output.LogFormat)
	}

	if c.SSH.Target != "" {
		if _, _, _, err := command.ParseSSHTarget(c.SSH.Target); err != nil {
			return err
		}
		if c.SSH.IdentityFile == "" {
			return fmt.Errorf("ssh target requires 'identity_file'")
		}
		if c.SSH.KnownHosts == "" && !c.SSH.InsecureIgnoreHostKey {
			c.SSH.KnownHosts = DefaultKnownHosts
		}
	}

	return nil
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid repository base_url '%s': %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid repository base_url '%s': scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid repository base_url '%s': host is required", raw)
	}
	if strings.ContainsAny(raw, `'" `) {
		return fmt.Errorf("invalid repository base_url '%s': quotes and spaces are not allowed", raw)
	}
	return nil
}

// SudoEnabled reports whether privileged commands are prefixed with sudo
func (e Executor) SudoEnabled() bool {
	if e.Sudo != nil {
		return *e.Sudo
	}
	return true
}

// IsRemote reports whether commands run over SSH
func (c *Config) IsRemote() bool {
	return c.SSH.Target != ""
}

// Template is the commented file written by the init command
const Template = `# buildah-installer configuration
version: "1.0"

# What to install, and for which distribution directory of the repository
target:
  distribution: Raspbian_10
  package: buildah

# Third-party apt repository (openSUSE Build Service)
repository:
  base_url: https://download.opensuse.org/repositories
  project: devel:kubic:libcontainers:stable

executor:
  shell: sh
  # Prefix privileged commands with sudo (disable when already root)
  sudo: true
  # Kill any single command running longer than this (0 = no limit)
  timeout: 0s

# Run against a remote host instead of this machine
# ssh:
#   target: pi@raspberrypi.local
#   identity_file: ~/.ssh/id_ed25519
#   known_hosts: ~/.ssh/known_hosts

output:
  log_level: warn
  log_format: text
  verbose: false
`
