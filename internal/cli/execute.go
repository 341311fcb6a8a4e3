package cli

import (
	"context"
	"fmt"

	"github.com/tliron/commonlog"

	"parhist/internal/journal"
	"parhist/internal/supervisor"
)

// Result is the outcome of a run, suitable for black-box tests.
type Result struct {
	ExitCode   int
	Spawned    int64
	Terminated int64
}

// Execute loads the configuration, runs the supervisor over the invocation's
// inputs, and optionally writes the run journal.
func Execute(ctx context.Context, inv Invocation) (Result, error) {
	commonlog.Configure(inv.Verbosity, nil)

	cfg := supervisor.DefaultConfig()
	if inv.ConfigPath != "" {
		loaded, err := supervisor.LoadConfig(inv.ConfigPath)
		if err != nil {
			return Result{ExitCode: ExitFailure}, err
		}
		cfg = loaded
	}
	if inv.OutputDir != "" {
		cfg.OutputDir = inv.OutputDir
	}

	var recorder *journal.Recorder
	var sink journal.Sink = journal.NopSink{}
	if inv.JournalPath != "" {
		recorder = journal.NewRecorder()
		sink = recorder
	}

	sup := supervisor.New(cfg, sink)
	if err := sup.Run(ctx, inv.Inputs); err != nil {
		return Result{
			ExitCode:   ExitFailure,
			Spawned:    sup.Spawned(),
			Terminated: sup.Terminated(),
		}, err
	}

	if recorder != nil {
		j := recorder.Journal(sup.RunID().String())
		if err := j.WriteFile(inv.JournalPath); err != nil {
			return Result{ExitCode: ExitFailure}, fmt.Errorf("writing journal: %w", err)
		}
	}

	return Result{
		ExitCode:   ExitSuccess,
		Spawned:    sup.Spawned(),
		Terminated: sup.Terminated(),
	}, nil
}
