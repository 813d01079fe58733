package main

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/satococoa/buildah-installer/internal/config"
)

const (
	envNoColor = "NO_COLOR"
	envCI      = "CI"
	envTerm    = "TERM"
)

// Variable to allow mocking in tests
var isTerminal = func(w io.Writer) bool {
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}

// configureColor enables styled output only for interactive terminals
func configureColor(w io.Writer) {
	if colorEnabled(w) {
		lipgloss.SetColorProfile(termenv.ColorProfile())
		return
	}
	lipgloss.SetColorProfile(termenv.Ascii)
}

func colorEnabled(w io.Writer) bool {
	if os.Getenv(envNoColor) != "" || envTruthy(envCI) {
		return false
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(envTerm)), "dumb") {
		return false
	}
	return isTerminal(w)
}

// progressEnabled honors output.progress, otherwise draws the bar on terminals outside CI
func progressEnabled(cfg *config.Config, w io.Writer) bool {
	if cfg.Output.Progress != nil {
		return *cfg.Output.Progress
	}
	return !envTruthy(envCI) && isTerminal(w)
}

func envTruthy(key string) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch v {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
