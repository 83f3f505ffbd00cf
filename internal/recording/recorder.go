package recording

import (
	"sync"
	"time"

	"github.com/specialistvlad/promptgridgo/internal/event"
	"github.com/specialistvlad/promptgridgo/internal/graph"
)

// State values a Recording may carry.
const (
	StateRunning   = "running"
	StateCompleted = "completed"
	StateFailed    = "failed"
	StateAborted   = "aborted"
)

// Entry is one recorded event and its offset from the start of the run.
type Entry struct {
	Offset time.Duration `json:"offset"`
	Event  event.Event   `json:"event"`
}

// Recording is the captured event stream of one run.
type Recording struct {
	RunID     string        `json:"runId"`
	GraphID   graph.GraphID `json:"graphId"`
	StartedAt time.Time     `json:"startedAt"`
	State     string        `json:"state"`
	Events    []Entry       `json:"events"`
}

// Duration is the offset of the last recorded event.
func (r *Recording) Duration() time.Duration {
	if len(r.Events) == 0 {
		return 0
	}
	return r.Events[len(r.Events)-1].Offset
}

// Recorder is an event listener that builds a Recording.
type Recorder struct {
	mu  sync.Mutex
	rec Recording
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{rec: Recording{State: StateRunning}}
}

// Record captures ev. It has the event.Listener signature.
func (r *Recorder) Record(ev event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.rec.Events) == 0 {
		r.rec.StartedAt = ev.Time
		r.rec.RunID = ev.RunID
	}
	if ev.Depth == 0 {
		switch ev.Kind {
		case event.Start:
			r.rec.GraphID = ev.GraphID
		case event.Done:
			r.rec.State = StateCompleted
		case event.Error:
			r.rec.State = StateFailed
		case event.Abort:
			if ev.Successful {
				r.rec.State = StateCompleted
			} else {
				r.rec.State = StateAborted
			}
		}
	}

	offset := ev.Time.Sub(r.rec.StartedAt)
	if offset < 0 {
		offset = 0
	}
	r.rec.Events = append(r.rec.Events, Entry{Offset: offset, Event: ev})
}

// Recording returns a snapshot of what has been captured so far.
func (r *Recorder) Recording() *Recording {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.rec
	out.Events = append([]Entry(nil), r.rec.Events...)
	return &out
}
