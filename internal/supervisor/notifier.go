package supervisor

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/tliron/commonlog"

	"parhist/internal/histogram"
	"parhist/internal/journal"
)

// Disposition classifies how a worker terminated.
type Disposition int

const (
	// DispositionExited means the worker ran to an exit code of its own.
	DispositionExited Disposition = iota
	// DispositionSignaled means the worker was killed by a signal, e.g. the
	// interrupt sent to a "SIG" worker.
	DispositionSignaled
)

func (d Disposition) String() string {
	if d == DispositionSignaled {
		return "signaled"
	}
	return "exited"
}

// Completion is the raw termination event a reaper goroutine posts for one
// worker: the process identity, how it went down, and the exit code when the
// disposition is DispositionExited.
type Completion struct {
	PID         int
	Disposition Disposition
	ExitCode    int
	Signal      string
}

// Notifier is the supervisor-side completion handler. Reaper goroutines post
// Completion events onto its channel; a single goroutine drains them, so the
// per-event work (counter increment, arena lookup, pipe drain, persistence)
// never runs concurrently with itself. The terminated counter is atomic
// because the supervisor's wait loop reads it from another goroutine.
//
// Handling one event never blocks indefinitely: the pipe drain is bounded by
// the configured read timeout and everything else is local work.
type Notifier struct {
	arena       *Arena
	cfg         Config
	sink        journal.Sink
	log         commonlog.Logger
	completions chan Completion
	terminated  atomic.Int64
	done        chan struct{}
}

// NewNotifier arms the notifier: the channel is allocated and the drain
// goroutine started before the caller spawns any worker, so a worker that
// dies instantly still gets its termination observed.
func NewNotifier(arena *Arena, cfg Config, sink journal.Sink) *Notifier {
	if sink == nil {
		sink = journal.NopSink{}
	}
	n := &Notifier{
		arena:       arena,
		cfg:         cfg,
		sink:        sink,
		log:         commonlog.GetLogger("parhist.notifier"),
		completions: make(chan Completion, cfg.MaxWorkers),
		done:        make(chan struct{}),
	}
	go n.loop()
	return n
}

// Post delivers a termination event. The channel is sized for the maximum
// worker count, so reapers never block on it.
func (n *Notifier) Post(c Completion) {
	n.completions <- c
}

// Terminated returns the number of terminations handled so far.
func (n *Notifier) Terminated() int64 {
	return n.terminated.Load()
}

// Close disarms the notifier after all workers are accounted for and waits
// for the drain goroutine to finish.
func (n *Notifier) Close() {
	close(n.completions)
	<-n.done
}

func (n *Notifier) loop() {
	defer close(n.done)
	for c := range n.completions {
		n.handle(c)
	}
}

// handle processes a single termination. The increment happens first so the
// wait loop can never observe a handled completion as outstanding.
func (n *Notifier) handle(c Completion) {
	n.terminated.Add(1)
	n.log.Infof("caught termination of worker process %d (%s)", c.PID, c.Disposition)

	if c.Disposition == DispositionSignaled {
		// Interrupted workers persist nothing; record the termination and
		// release the never-used read end.
		n.log.Infof("worker process %d terminated abnormally (%s)", c.PID, c.Signal)
		if spec, found := n.arena.ByPID(c.PID); found {
			n.record(journal.EventWorkerTerminated, spec, c)
			if err := spec.Pipe.CloseRead(); err != nil {
				n.log.Errorf("closing result channel of worker %d: %s", spec.Index, err.Error())
			}
		} else {
			n.sink.Record(journal.Event{Kind: journal.EventSpecNotFound, Worker: -1, Disposition: c.Disposition.String()})
		}
		return
	}

	spec, found := n.arena.ByPID(c.PID)
	if !found {
		// Identity-correlation miss. Report and carry on; aborting the run
		// over a bookkeeping mismatch would take down healthy workers.
		n.log.Errorf("no result channel found for process %d", c.PID)
		n.sink.Record(journal.Event{Kind: journal.EventSpecNotFound, Worker: -1, Disposition: c.Disposition.String()})
		return
	}

	n.record(journal.EventWorkerTerminated, spec, c)

	h, ok, err := spec.Pipe.Drain(n.cfg.ReadTimeout.Duration)
	if err != nil {
		n.log.Errorf("draining result channel of worker %d: %s", spec.Index, err.Error())
	}
	if ok {
		if err := n.persist(spec, h); err != nil {
			n.log.Errorf("persisting result of worker %d: %s", spec.Index, err.Error())
		} else {
			n.record(journal.EventResultPersisted, spec, c)
		}
	} else {
		// The worker died before transmitting (open or allocation failure).
		// Its absence from the output directory is the whole report.
		n.record(journal.EventResultMissing, spec, c)
		n.log.Infof("worker %d (%s) left no result", spec.Index, spec.Arg)
	}

	if err := spec.Pipe.CloseRead(); err != nil {
		n.log.Errorf("closing result channel of worker %d: %s", spec.Index, err.Error())
	}
}

// persist writes the 26-line text artifact, named from the process identity.
func (n *Notifier) persist(spec *WorkerSpec, h histogram.Histogram) error {
	path := filepath.Join(n.cfg.OutputDir, ArtifactName(spec.PID))
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := h.WriteText(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	n.log.Infof("saved histogram of %s to %s", spec.Arg, path)
	return nil
}

func (n *Notifier) record(kind journal.EventKind, spec *WorkerSpec, c Completion) {
	e := journal.Event{Kind: kind, Worker: -1, Disposition: c.Disposition.String()}
	if spec != nil {
		e.Worker = spec.Index
		e.Arg = spec.Arg
	}
	n.sink.Record(e)
}

// ArtifactName is the deterministic artifact file name for a worker's process
// identity.
func ArtifactName(pid int) string {
	return fmt.Sprintf("file%d.hist", pid)
}
