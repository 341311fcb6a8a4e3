package journal

import "sync"

// Sink is the minimal interface the orchestration core depends on.
//
// Record must be inert: it must not panic and it returns nothing. Callers
// may assume Record is a no-op.
type Sink interface {
	Record(event Event)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Record(Event) {}

// Recorder is a concurrency-safe in-memory collector. The supervisor and the
// notifier record from different goroutines; a single mutex is enough since
// ordering is computed afterwards by Canonicalize, not at collection time.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Record(event Event) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

// Snapshot returns a point-in-time copy of all recorded events.
func (r *Recorder) Snapshot() []Event {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Journal builds a canonicalized RunJournal from the recorded events. The
// result is independent of the recorder.
func (r *Recorder) Journal(runID string) RunJournal {
	j := RunJournal{RunID: runID, Events: r.Snapshot()}
	j.Canonicalize()
	return j
}
