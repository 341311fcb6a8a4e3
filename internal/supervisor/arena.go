package supervisor

import (
	"sync"

	"github.com/google/uuid"
)

// WorkerSpec records one spawned worker: a stable handle assigned at spawn
// registration, the spawn-order index, the assigned argument (a file path or
// the literal "SIG" token), the private result pipe, and the process identity
// set once at spawn and immutable thereafter.
type WorkerSpec struct {
	ID    uuid.UUID
	Index int
	Arg   string
	Pipe  *ResultPipe
	PID   int
}

// Arena owns the WorkerSpec records for one run. The supervisor registers a
// record before the notifier can ever observe the worker's termination, so
// lookups by pid only race with registrations of unrelated workers; the mutex
// makes those interleavings safe.
type Arena struct {
	mu    sync.Mutex
	specs []*WorkerSpec
}

// NewArena returns an empty arena sized for n workers.
func NewArena(n int) *Arena {
	return &Arena{specs: make([]*WorkerSpec, 0, n)}
}

// Register appends a spec and returns it for convenience.
func (a *Arena) Register(spec *WorkerSpec) *WorkerSpec {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.specs = append(a.specs, spec)
	return spec
}

// ByPID locates the spec whose process identity matches pid. A linear scan is
// fine at this scale. The boolean is false when no spec matches; callers
// treat that as a report-only condition.
func (a *Arena) ByPID(pid int) (*WorkerSpec, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range a.specs {
		if s.PID == pid {
			return s, true
		}
	}
	return nil, false
}

// Len reports the number of registered workers.
func (a *Arena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.specs)
}

// Specs returns a snapshot of the registered records in spawn order.
func (a *Arena) Specs() []*WorkerSpec {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*WorkerSpec, len(a.specs))
	copy(out, a.specs)
	return out
}
