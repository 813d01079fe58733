// Package installer declares the Buildah installation as a fixed list of
// pipeline steps.
package installer

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/satococoa/buildah-installer/internal/command"
	"github.com/satococoa/buildah-installer/internal/config"
	"github.com/satococoa/buildah-installer/internal/pipeline"
)

// PrerequisitePackage provides add-apt-repository and friends
const PrerequisitePackage = "software-properties-common"

// Options is the data that slots into the fixed steps
type Options struct {
	Repository Repository
	Package    string
	Sudo       bool
}

// DefaultOptions installs buildah from the Kubic stable repository for Raspbian 10
func DefaultOptions() Options {
	return OptionsFromConfig(config.Default())
}

// OptionsFromConfig maps settings onto step data
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Repository: Repository{
			BaseURL:      cfg.Repository.BaseURL,
			Project:      cfg.Repository.Project,
			Distribution: cfg.Target.Distribution,
		},
		Package: cfg.Target.Package,
		Sudo:    cfg.Executor.SudoEnabled(),
	}
}

// Steps returns the installation steps in execution order
func Steps(opts Options) []pipeline.Step {
	b := command.Builder{Sudo: opts.Sudo}
	display := displayName(opts.Package)

	return []pipeline.Step{
		pipeline.NewStep("Update package lists", pipeline.Commands(b.AptUpdate())).
			WithMessages("Updating package lists...", "Package lists updated."),

		pipeline.NewStep("Install Software Properties", pipeline.Commands(b.AptInstall(PrerequisitePackage))).
			WithMessages("Installing Software Properties package...", "Software Properties package installed."),

		pipeline.NewStep("Add Kubic project repositories", addRepository(b, opts.Repository)).
			WithMessages("Adding Kubic project repositories...", "Kubic project repositories added."),

		pipeline.NewStep("Update package lists again", pipeline.Commands(b.AptUpdate())).
			WithMessages("Updating package lists again...", "Package lists updated again."),

		pipeline.NewStep("Install "+display, pipeline.Commands(b.AptInstall(opts.Package))).
			WithMessages("Installing "+display+"...", display+" installed."),

		pipeline.NewStep("Verify installation", pipeline.Commands(command.VersionProbe(opts.Package))).
			WithMessages("Verifying installation...", "Installation verified."),
	}
}

// addRepository writes the source list entry, then trusts the signing key.
// Both calls make up one step; a failed write skips the key import.
func addRepository(b command.Builder, repo Repository) pipeline.Action {
	return func(ctx context.Context, exec command.Executor) (string, error) {
		writeCmd, err := b.WriteLine(repo.ListFile(), repo.SourceLine())
		if err != nil {
			return "", err
		}
		if _, err := exec.Execute(ctx, writeCmd); err != nil {
			return "", err
		}
		return exec.Execute(ctx, b.AptKeyAdd(repo.KeyURL()))
	}
}

// Installer builds a fresh pipeline for every run
type Installer struct {
	exec    command.Executor
	opts    Options
	options []pipeline.Option
}

// New creates an installer running commands through exec
func New(exec command.Executor, opts Options, pipelineOpts ...pipeline.Option) *Installer {
	return &Installer{exec: exec, opts: opts, options: pipelineOpts}
}

// Pipeline returns a new, idle pipeline for one run
func (i *Installer) Pipeline(extra ...pipeline.Option) *pipeline.Pipeline {
	opts := append(append([]pipeline.Option(nil), i.options...), extra...)
	return pipeline.New(i.exec, Steps(i.opts), opts...)
}

// Run installs the package once
func (i *Installer) Run(ctx context.Context) error {
	return i.Pipeline().Run(ctx)
}

func displayName(pkg string) string {
	pkg = strings.TrimSpace(pkg)
	r, size := utf8.DecodeRuneInString(pkg)
	if r == utf8.RuneError {
		return pkg
	}
	return string(unicode.ToUpper(r)) + pkg[size:]
}
