// Package eventstream serves the events of one run as server-sent events.
package eventstream

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"sync"

	"github.com/specialistvlad/promptgridgo/internal/event"
	"github.com/specialistvlad/promptgridgo/internal/graph"
)

// Filter picks the events a stream sends.
type Filter struct {
	PartialOutputs bool
	NodeStart      bool
	NodeFinish     bool
	Done           bool
	Error          bool
	// UserEvents lists the user event names to send.
	UserEvents []string
	// NodeIDs limits node events to these nodes. Empty means every node.
	NodeIDs []graph.NodeID
}

// AllEvents sends every event kind the filter knows about except user events.
var AllEvents = Filter{PartialOutputs: true, NodeStart: true, NodeFinish: true, Done: true, Error: true}

// Allows reports whether ev is sent. Only top-level events count; sub-graph
// runs report through their calling node.
func (f Filter) Allows(ev event.Event) bool {
	if ev.Depth != 0 {
		return false
	}
	if ev.IsNodeEvent() && len(f.NodeIDs) > 0 && !slices.Contains(f.NodeIDs, ev.NodeID) {
		return false
	}
	switch ev.Kind {
	case event.PartialOutput:
		return f.PartialOutputs
	case event.NodeStart:
		return f.NodeStart
	case event.NodeFinish:
		return f.NodeFinish
	case event.Done:
		return f.Done
	case event.Error:
		return f.Error
	case event.UserEvent:
		return slices.Contains(f.UserEvents, ev.Message)
	}
	return false
}

// Stream buffers the events of one run and serves them to HTTP clients.
// Every client receives the whole run from its first event; the response
// ends when the run settles.
type Stream struct {
	filter Filter

	mu     sync.Mutex
	events []event.Event
	closed bool
	notify chan struct{}
}

// NewStream creates a stream sending what filter allows.
func NewStream(filter Filter) *Stream {
	return &Stream{filter: filter, notify: make(chan struct{})}
}

// Record buffers ev. It has the event.Listener signature.
func (s *Stream) Record(ev event.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.filter.Allows(ev) {
		s.events = append(s.events, ev)
	}
	if ev.Depth == 0 && (ev.Kind == event.Done || ev.Kind == event.Error || ev.Kind == event.Abort) {
		s.closed = true
	}
	close(s.notify)
	s.notify = make(chan struct{})
}

// ServeHTTP writes buffered and future events until the run settles or the
// client goes away.
func (s *Stream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	rc := http.NewResponseController(w)

	next := 0
	for {
		s.mu.Lock()
		batch := s.events[next:]
		closed := s.closed
		wait := s.notify
		s.mu.Unlock()

		for _, ev := range batch {
			if err := WriteEvent(w, ev); err != nil {
				return
			}
		}
		next += len(batch)
		_ = rc.Flush()
		if closed {
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-wait:
		}
	}
}

// WriteEvent writes ev as one SSE message.
func WriteEvent(w io.Writer, ev event.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", ev.Kind, err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data)
	return err
}
