package testutil

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/specialistvlad/promptgridgo/internal/ctxlog"
	"github.com/specialistvlad/promptgridgo/internal/event"
	"github.com/specialistvlad/promptgridgo/internal/graph"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// LoggedContext returns a context carrying a debug-level text logger that
// writes into the returned buffer. With PROMPTGRID_TEST_LOGS=true the log is
// also printed when the test ends.
func LoggedContext(t *testing.T) (context.Context, *SafeBuffer) {
	t.Helper()
	buf := &SafeBuffer{}
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	t.Cleanup(func() {
		if os.Getenv("PROMPTGRID_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), buf.String())
		}
	})
	return ctxlog.WithLogger(context.Background(), logger), buf
}

// Collector records every event it receives.
type Collector struct {
	mu     sync.Mutex
	events []event.Event
}

// Record is an event.Listener.
func (c *Collector) Record(e event.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

// Events returns a copy of the recorded events.
func (c *Collector) Events() []event.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]event.Event(nil), c.events...)
}

// Kinds returns the kind of every recorded event, in order.
func (c *Collector) Kinds() []event.Kind {
	var out []event.Kind
	for _, e := range c.Events() {
		out = append(out, e.Kind)
	}
	return out
}

// OfKind returns the recorded events of one kind.
func (c *Collector) OfKind(k event.Kind) []event.Event {
	var out []event.Event
	for _, e := range c.Events() {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}

// ForNode returns the kinds of the events raised for one node.
func (c *Collector) ForNode(id graph.NodeID) []event.Kind {
	var out []event.Kind
	for _, e := range c.Events() {
		if e.NodeID == id {
			out = append(out, e.Kind)
		}
	}
	return out
}

// NodeOrder returns the node ids of the recorded events of kind k, in order.
func (c *Collector) NodeOrder(k event.Kind) []graph.NodeID {
	var out []graph.NodeID
	for _, e := range c.OfKind(k) {
		out = append(out, e.NodeID)
	}
	return out
}
