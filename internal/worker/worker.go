// Package worker implements the child-process side of a run. The supervisor
// re-executes its own binary with a small set of environment variables and a
// result pipe on fd 3; this package detects that mode, performs the assigned
// work, and exits.
//
// The normal variant loads its file, computes the histogram, transmits it on
// the pipe, closes its end, sleeps its stagger duration and exits 0. Any
// failure before transmission exits 1 with the write end closed without
// data — the supervisor reads that as "no result", never as a crash. The
// "SIG" variant installs no handler and just waits: an interrupt delivered
// during the wait kills the process (abnormal disposition), surviving the
// wait is a normal exit.
package worker

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/tliron/commonlog"

	"parhist/internal/histogram"
)

// SigToken is the literal argument that selects the signal-wait variant.
const SigToken = "SIG"

// Environment variables carrying a worker's assignment. EnvMarker being set
// at all is what switches the binary into worker mode.
const (
	EnvMarker  = "PARHIST_WORKER"
	EnvArg     = "PARHIST_WORKER_ARG"
	EnvIndex   = "PARHIST_WORKER_INDEX"
	EnvSleep   = "PARHIST_WORKER_SLEEP"
	EnvSigWait = "PARHIST_WORKER_SIGWAIT"
)

// resultFD is where the supervisor places the pipe's write end (the first
// ExtraFiles entry lands on descriptor 3).
const resultFD = 3

// Assignment is one worker's share of the run.
type Assignment struct {
	// Arg is the assigned input: a file path, or SigToken.
	Arg string
	// Index is the spawn-order position, used to scale the stagger sleep.
	Index int
	// Sleep is how long to linger after transmitting, so completions arrive
	// staggered instead of all at once.
	Sleep time.Duration
	// SigWait is how long the SigToken variant waits for its interrupt.
	SigWait time.Duration
}

// Environ renders the assignment as environment variables for exec.
func Environ(a Assignment) []string {
	return []string{
		EnvMarker + "=1",
		EnvArg + "=" + a.Arg,
		EnvIndex + "=" + strconv.Itoa(a.Index),
		EnvSleep + "=" + a.Sleep.String(),
		EnvSigWait + "=" + a.SigWait.String(),
	}
}

// IsWorkerProcess reports whether this process was spawned as a worker.
func IsWorkerProcess() bool {
	return os.Getenv(EnvMarker) != ""
}

// ParseAssignment reconstructs the assignment from the environment.
func ParseAssignment() (Assignment, error) {
	var a Assignment
	a.Arg = os.Getenv(EnvArg)
	if a.Arg == "" {
		return a, fmt.Errorf("%s is not set", EnvArg)
	}

	index, err := strconv.Atoi(os.Getenv(EnvIndex))
	if err != nil {
		return a, fmt.Errorf("parsing %s: %w", EnvIndex, err)
	}
	a.Index = index

	if raw := os.Getenv(EnvSleep); raw != "" {
		if a.Sleep, err = time.ParseDuration(raw); err != nil {
			return a, fmt.Errorf("parsing %s: %w", EnvSleep, err)
		}
	}
	if raw := os.Getenv(EnvSigWait); raw != "" {
		if a.SigWait, err = time.ParseDuration(raw); err != nil {
			return a, fmt.Errorf("parsing %s: %w", EnvSigWait, err)
		}
	}
	return a, nil
}

// Main is the worker-mode entrypoint; it returns the process exit code.
func Main() int {
	log := commonlog.GetLogger("parhist.worker")

	a, err := ParseAssignment()
	if err != nil {
		log.Errorf("bad worker assignment: %s", err.Error())
		return 1
	}

	out := os.NewFile(resultFD, "result")
	if out == nil {
		log.Error("result channel descriptor missing")
		return 1
	}

	return Run(a, out)
}

// Run performs the assignment, transmitting the histogram on out. It closes
// out exactly once on every path: after the payload on success, without data
// on failure, and immediately for the SigToken variant (which never
// transmits).
func Run(a Assignment, out *os.File) int {
	log := commonlog.GetLogger("parhist.worker")

	if a.Arg == SigToken {
		out.Close()
		log.Infof("worker %d (pid %d) waiting for interrupt", a.Index, os.Getpid())
		// No handler is installed: an interrupt arriving during this wait
		// terminates the process with an abnormal disposition.
		time.Sleep(a.SigWait)
		log.Infof("worker %d outlived its interrupt, exiting normally", a.Index)
		return 0
	}

	log.Infof("worker %d (pid %d) loading %s", a.Index, os.Getpid(), a.Arg)
	data, err := os.ReadFile(a.Arg)
	if err != nil {
		log.Errorf("worker %d: reading %s: %s", a.Index, a.Arg, err.Error())
		out.Close()
		return 1
	}

	h := histogram.Count(data)
	payload, err := h.MarshalBinary()
	if err != nil {
		log.Errorf("worker %d: encoding histogram: %s", a.Index, err.Error())
		out.Close()
		return 1
	}

	if _, err := out.Write(payload); err != nil {
		log.Errorf("worker %d: transmitting histogram: %s", a.Index, err.Error())
		out.Close()
		return 1
	}
	if err := out.Close(); err != nil {
		log.Errorf("worker %d: closing result channel: %s", a.Index, err.Error())
		return 1
	}

	log.Infof("worker %d transmitted %d letters, sleeping %s", a.Index, h.Total(), a.Sleep)
	time.Sleep(a.Sleep)
	return 0
}
