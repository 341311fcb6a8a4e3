// Package cli parses the invocation surface and wires a run together.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
)

const (
	// ExitSuccess is returned on full completion.
	ExitSuccess = 0
	// ExitFailure covers configuration errors and failed runs.
	ExitFailure = 1
)

// Invocation is the canonicalized description of a run: the list of worker
// arguments plus the knobs that tune the supervisor.
type Invocation struct {
	// Inputs are the worker arguments, in order: file paths or the literal
	// "SIG" token. At least one is required; the upper bound is enforced by
	// the supervisor against its configured maximum.
	Inputs []string

	// ConfigPath optionally points at a TOML config file.
	ConfigPath string

	// OutputDir overrides the configured artifact directory when non-empty.
	OutputDir string

	// JournalPath enables the run journal when non-empty.
	JournalPath string

	// Verbosity is passed to the logging backend (0 quiet, 1 info, 2 debug).
	Verbosity int
}

// InvocationError carries a semantic exit code alongside the message.
type InvocationError struct {
	ExitCode int
	Message  string
}

func (e *InvocationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func invalidInvocationf(format string, args ...any) error {
	return &InvocationError{ExitCode: ExitFailure, Message: fmt.Sprintf(format, args...)}
}

// ParseInvocation parses flags and positional arguments into an Invocation.
// It validates only what can be known without the config file; the worker
// count upper bound lives with the supervisor.
func ParseInvocation(args []string) (Invocation, error) {
	fs := flag.NewFlagSet("parhist", flag.ContinueOnError)
	fs.SetOutput(io.Discard) // parsing errors are returned, not printed

	var inv Invocation
	fs.StringVar(&inv.ConfigPath, "config", "", "TOML config file (optional).")
	fs.StringVar(&inv.OutputDir, "output-dir", "", "Directory for .hist artifacts (default from config).")
	fs.StringVar(&inv.JournalPath, "journal", "", "Write a canonical run journal to this path (optional).")
	fs.IntVar(&inv.Verbosity, "verbose", 1, "Log verbosity: 0 quiet, 1 info, 2 debug.")

	if err := fs.Parse(args); err != nil {
		return Invocation{}, invalidInvocationf("%v", err)
	}

	inv.Inputs = fs.Args()
	if len(inv.Inputs) == 0 {
		return Invocation{}, invalidInvocationf("no input files provided")
	}
	for _, in := range inv.Inputs {
		if in == "" {
			return Invocation{}, invalidInvocationf("input arguments must not be empty")
		}
	}
	return inv, nil
}

// ExitCode extracts a semantic exit code from an error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var invErr *InvocationError
	if errors.As(err, &invErr) && invErr != nil && invErr.ExitCode != 0 {
		return invErr.ExitCode
	}
	return ExitFailure
}
