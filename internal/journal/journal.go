// Package journal records the logical events of a run — spawns, terminations,
// persisted and missing results — in a canonical, comparable form.
//
// The journal is observational only and must never affect orchestration
// behavior. Canonical bytes exclude anything runtime-dependent: no
// timestamps, no process identities. Workers are identified by spawn index
// and assigned argument, so two runs over the same inputs that unfold the
// same way produce byte-identical journals after Canonicalize.
package journal

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
)

// EventKind is the stable discriminator for Event. The string values are part
// of the journal's canonical bytes; do not rename.
type EventKind string

const (
	EventWorkerSpawned    EventKind = "WorkerSpawned"
	EventWorkerTerminated EventKind = "WorkerTerminated"
	EventResultPersisted  EventKind = "ResultPersisted"
	EventResultMissing    EventKind = "ResultMissing"
	EventSpecNotFound     EventKind = "SpecNotFound"
)

// Event is a single logical occurrence during a run.
type Event struct {
	Kind EventKind `json:"kind"`

	// Worker is the spawn-order index, or -1 when the event could not be
	// correlated to a worker (the SpecNotFound case).
	Worker int `json:"worker"`

	// Arg is the worker's assigned argument, when known.
	Arg string `json:"arg,omitempty"`

	// Disposition is "exited" or "signaled" on termination-related events.
	Disposition string `json:"disposition,omitempty"`
}

// RunJournal is the collected record of one run.
type RunJournal struct {
	RunID  string  `json:"runId"`
	Events []Event `json:"events"`
}

// Validate checks basic invariants.
func (j *RunJournal) Validate() error {
	if j == nil {
		return errors.New("journal is nil")
	}
	if j.RunID == "" {
		return errors.New("runId is required")
	}
	for i, e := range j.Events {
		if e.Kind == "" {
			return fmt.Errorf("events[%d].kind is required", i)
		}
		if e.Worker < 0 && e.Kind != EventSpecNotFound {
			return fmt.Errorf("events[%d] (%s) has no worker index", i, e.Kind)
		}
	}
	return nil
}

// Canonicalize sorts the events into a total order independent of execution
// timing: (worker index, kind order, arg, disposition). Workers terminate in
// arbitrary order; the canonical form erases that.
func (j *RunJournal) Canonicalize() {
	if j == nil {
		return
	}
	sort.SliceStable(j.Events, func(a, b int) bool {
		x, y := j.Events[a], j.Events[b]
		if x.Worker != y.Worker {
			return x.Worker < y.Worker
		}
		if kindOrder(x.Kind) != kindOrder(y.Kind) {
			return kindOrder(x.Kind) < kindOrder(y.Kind)
		}
		if x.Arg != y.Arg {
			return x.Arg < y.Arg
		}
		return x.Disposition < y.Disposition
	})
}

func kindOrder(k EventKind) int {
	switch k {
	case EventWorkerSpawned:
		return 10
	case EventWorkerTerminated:
		return 20
	case EventResultPersisted:
		return 30
	case EventResultMissing:
		return 40
	case EventSpecNotFound:
		return 50
	default:
		return 1000
	}
}

// CanonicalJSON returns the canonical encoding. A copy is canonicalized so
// the caller's slice order is left alone.
func (j RunJournal) CanonicalJSON() ([]byte, error) {
	cp := RunJournal{RunID: j.RunID, Events: make([]Event, len(j.Events))}
	copy(cp.Events, j.Events)
	cp.Canonicalize()
	return json.MarshalIndent(cp, "", "  ")
}

// Hash is the sha256 of the canonical bytes, hex-encoded. Empty input hashes
// to the empty string.
func Hash(canonicalEncoding []byte) string {
	if len(canonicalEncoding) == 0 {
		return ""
	}
	sum := sha256.Sum256(canonicalEncoding)
	return hex.EncodeToString(sum[:])
}

// WriteFile persists the canonical encoding to path.
func (j RunJournal) WriteFile(path string) error {
	b, err := j.CanonicalJSON()
	if err != nil {
		return fmt.Errorf("encoding journal: %w", err)
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing journal: %w", err)
	}
	return nil
}
