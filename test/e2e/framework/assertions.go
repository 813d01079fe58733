package framework

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func AssertSuccess(t *testing.T, result Result) {
	t.Helper()
	assert.Equal(t, 0, result.ExitCode, "Expected success, got exit %d\nstdout: %s\nstderr: %s",
		result.ExitCode, result.Stdout, result.Stderr)
}

func AssertExitCode(t *testing.T, result Result, code int) {
	t.Helper()
	assert.Equal(t, code, result.ExitCode, "stdout: %s\nstderr: %s", result.Stdout, result.Stderr)
}

func AssertOutputContains(t *testing.T, output, expected string) {
	t.Helper()
	assert.Contains(t, output, expected, "Expected output containing '%s', got: %s", expected, output)
}

func AssertOutputNotContains(t *testing.T, output, unexpected string) {
	t.Helper()
	assert.NotContains(t, output, unexpected, "Expected output without '%s', got: %s", unexpected, output)
}

func AssertMultipleStringsInOutput(t *testing.T, output string, expected []string) {
	t.Helper()
	for _, exp := range expected {
		assert.Contains(t, output, exp, "Expected output to contain '%s', got: %s", exp, output)
	}
}

func AssertHelpfulError(t *testing.T, output string) {
	t.Helper()

	helpfulElements := []string{"Solutions:", "Solution:", "Cause:", "Tip:", "Options:", "•"}
	for _, element := range helpfulElements {
		if strings.Contains(output, element) {
			return
		}
	}
	t.Errorf("Error message does not appear to be helpful. Got: %s", output)
}

// AssertInvocations compares the shim log with the expected calls
func AssertInvocations(t *testing.T, env *TestEnvironment, expected []string) {
	t.Helper()
	assert.Equal(t, expected, env.Invocations())
}
