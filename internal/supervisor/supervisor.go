// Package supervisor implements the orchestration core: it spawns one worker
// process per input argument, wires a private result pipe to each, collects
// asynchronous completion notifications through per-worker reaper goroutines
// feeding a single notifier, and blocks until every spawned worker has
// terminated.
//
// The notifier is armed before the first spawn so no termination can be
// missed, and it stays armed until the run is fully accounted for. Worker
// termination order is unconstrained; completions are expected to arrive
// roughly in spawn order because of the staggered sleeps, but nothing relies
// on that.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"parhist/internal/journal"
	"parhist/internal/worker"
)

// Configuration errors, reported before any process is created.
var (
	ErrNoInputs      = errors.New("no input files provided")
	ErrTooManyInputs = errors.New("too many input files provided")
)

// Supervisor runs one batch of workers. It is single-use: create, Run, drop.
type Supervisor struct {
	// ExecPath is the binary re-executed in worker mode. Defaults to the
	// running executable; tests point it at the test binary.
	ExecPath string

	// BaseEnv is the environment spawned workers start from, before the
	// worker-mode variables are appended. Defaults to os.Environ().
	BaseEnv []string

	cfg      Config
	runID    uuid.UUID
	arena    *Arena
	notifier *Notifier
	sink     journal.Sink
	log      commonlog.Logger
	spawned  atomic.Int64
}

// New creates a supervisor for one run. sink may be nil.
func New(cfg Config, sink journal.Sink) *Supervisor {
	if sink == nil {
		sink = journal.NopSink{}
	}
	return &Supervisor{
		cfg:   cfg,
		runID: uuid.New(),
		sink:  sink,
		log:   commonlog.GetLogger("parhist.supervisor"),
	}
}

// RunID is the stable handle identifying this run in logs and journals.
func (s *Supervisor) RunID() uuid.UUID { return s.runID }

// Arena exposes the worker records; useful after Run to map process
// identities to arguments.
func (s *Supervisor) Arena() *Arena { return s.arena }

// Spawned returns the number of workers created so far.
func (s *Supervisor) Spawned() int64 { return s.spawned.Load() }

// Terminated returns the number of worker terminations handled so far.
func (s *Supervisor) Terminated() int64 {
	if s.notifier == nil {
		return 0
	}
	return s.notifier.Terminated()
}

// Run validates the argument list, arms the notifier, spawns one worker per
// argument in order, and blocks until every worker has terminated.
//
// Worker-local failures (unreadable file) do not surface here; they show up
// only as a missing artifact. Resource-creation failures (pipe, spawn) abort
// the whole run.
func (s *Supervisor) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return ErrNoInputs
	}
	if len(args) > s.cfg.MaxWorkers {
		return fmt.Errorf("%w: got %d, maximum is %d", ErrTooManyInputs, len(args), s.cfg.MaxWorkers)
	}

	if s.ExecPath == "" {
		self, err := os.Executable()
		if err != nil {
			return fmt.Errorf("locating own executable: %w", err)
		}
		s.ExecPath = self
	}
	if s.BaseEnv == nil {
		s.BaseEnv = os.Environ()
	}
	if s.cfg.OutputDir != "" && s.cfg.OutputDir != "." {
		if err := os.MkdirAll(s.cfg.OutputDir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	s.log.Infof("run %s starting with %d workers", s.runID, len(args))

	s.arena = NewArena(len(args))
	// Armed before the first spawn: a worker that dies immediately still has
	// its termination delivered to the notifier.
	s.notifier = NewNotifier(s.arena, s.cfg, s.sink)

	for i, arg := range args {
		if err := s.spawn(i, arg); err != nil {
			// No partial-result salvage: a failed spawn kills the run. The
			// notifier keeps draining whatever was already started.
			return fmt.Errorf("spawning worker %d for %q: %w", i, arg, err)
		}
	}

	if err := s.wait(ctx); err != nil {
		return err
	}
	s.notifier.Close()
	s.log.Infof("run %s complete: %d workers terminated", s.runID, s.Terminated())
	return nil
}

// spawn establishes the result pipe, starts the worker process bound to it,
// registers the process identity, and releases the supervisor's copy of the
// write end. For a "SIG" argument it then fires the interrupt immediately;
// whether the worker is already inside its wait is a deliberate race carried
// over from the observed behavior.
func (s *Supervisor) spawn(index int, arg string) error {
	pipe, err := NewResultPipe()
	if err != nil {
		return fmt.Errorf("creating result channel: %w", err)
	}

	cmd := exec.Command(s.ExecPath)
	cmd.Env = append(append([]string{}, s.BaseEnv...), worker.Environ(worker.Assignment{
		Arg:     arg,
		Index:   index,
		Sleep:   s.cfg.WorkerSleep(index),
		SigWait: s.cfg.SigWait.Duration,
	})...)
	cmd.ExtraFiles = []*os.File{pipe.WriteEnd()}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		pipe.CloseWrite()
		pipe.CloseRead()
		return err
	}

	pid := cmd.Process.Pid
	s.arena.Register(&WorkerSpec{
		ID:    uuid.New(),
		Index: index,
		Arg:   arg,
		Pipe:  pipe,
		PID:   pid,
	})

	// The worker holds its own duplicate of the write end now.
	if err := pipe.CloseWrite(); err != nil {
		s.log.Errorf("closing write end for worker %d: %s", index, err.Error())
	}

	s.spawned.Add(1)
	s.sink.Record(journal.Event{Kind: journal.EventWorkerSpawned, Worker: index, Arg: arg})
	s.log.Infof("spawned worker %d (pid %d) for %q", index, pid, arg)

	go s.reap(cmd, pid)

	if arg == worker.SigToken {
		s.log.Infof("sending interrupt to worker %d (pid %d)", index, pid)
		if err := cmd.Process.Signal(os.Interrupt); err != nil {
			s.log.Errorf("interrupting worker %d: %s", index, err.Error())
		}
	}

	return nil
}

// reap performs the OS-level wait for one worker and posts the completion
// event. This is the only place a worker's exit status is read.
func (s *Supervisor) reap(cmd *exec.Cmd, pid int) {
	_ = cmd.Wait()

	c := Completion{PID: pid}
	if ps := cmd.ProcessState; ps != nil {
		if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			c.Disposition = DispositionSignaled
			c.Signal = ws.Signal().String()
		} else {
			c.Disposition = DispositionExited
			c.ExitCode = ps.ExitCode()
		}
	}
	s.notifier.Post(c)
}

// wait blocks until the notifier has handled as many terminations as there
// were spawns, polling at a coarse interval. There is deliberately no
// deadline: a worker that never terminates hangs the run. ctx is the only
// escape hatch.
func (s *Supervisor) wait(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.PollInterval.Duration)
	defer ticker.Stop()

	for {
		if s.Terminated() == s.spawned.Load() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
