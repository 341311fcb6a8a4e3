package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInvocation_PositionalsBecomeInputs(t *testing.T) {
	inv, err := ParseInvocation([]string{"f1.txt", "SIG", "f2.txt"})
	require.NoError(t, err)
	assert.Equal(t, []string{"f1.txt", "SIG", "f2.txt"}, inv.Inputs)
	assert.Equal(t, 1, inv.Verbosity)
}

func TestParseInvocation_Flags(t *testing.T) {
	inv, err := ParseInvocation([]string{
		"-config", "parhist.toml",
		"-output-dir", "out",
		"-journal", "run.json",
		"-verbose", "2",
		"input.txt",
	})
	require.NoError(t, err)
	assert.Equal(t, "parhist.toml", inv.ConfigPath)
	assert.Equal(t, "out", inv.OutputDir)
	assert.Equal(t, "run.json", inv.JournalPath)
	assert.Equal(t, 2, inv.Verbosity)
	assert.Equal(t, []string{"input.txt"}, inv.Inputs)
}

func TestParseInvocation_NoInputsIsAConfigurationError(t *testing.T) {
	_, err := ParseInvocation(nil)
	require.Error(t, err)

	var invErr *InvocationError
	require.True(t, errors.As(err, &invErr))
	assert.Equal(t, ExitFailure, invErr.ExitCode)
}

func TestParseInvocation_RejectsEmptyInput(t *testing.T) {
	_, err := ParseInvocation([]string{""})
	assert.Error(t, err)
}

func TestParseInvocation_RejectsUnknownFlag(t *testing.T) {
	_, err := ParseInvocation([]string{"-bogus", "input.txt"})
	require.Error(t, err)
	assert.Equal(t, ExitFailure, ExitCode(err))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, ExitCode(nil))
	assert.Equal(t, ExitFailure, ExitCode(errors.New("anything")))
	assert.Equal(t, ExitFailure, ExitCode(&InvocationError{ExitCode: ExitFailure, Message: "m"}))
}
