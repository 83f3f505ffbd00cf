package event

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ErrSealed is returned when a listener is registered after the run started.
var ErrSealed = errors.New("event bus sealed: listeners must be registered before the run starts")

// Listener receives events.
type Listener func(Event)

type subscription struct {
	kind    Kind // empty means every kind
	fn      Listener
	removed atomic.Bool
}

// Bus delivers events to listeners in the order they were emitted. Emitted
// events go onto one queue drained by a single dispatch goroutine, so Emit
// never blocks the caller and every listener observes the same order.
type Bus struct {
	mu      sync.Mutex
	cond    *sync.Cond
	subs    []*subscription
	queue   []Event
	sealed  bool
	closed  bool
	running bool
	done    chan struct{}
	logger  *slog.Logger
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	b := &Bus{done: make(chan struct{}), logger: slog.Default()}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// SetLogger sets the logger used to report listener panics.
func (b *Bus) SetLogger(l *slog.Logger) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger = l
}

// On registers fn for events of the given kind. The returned function removes
// the registration and is safe to call at any time.
func (b *Bus) On(kind Kind, fn Listener) (func(), error) {
	return b.subscribe(kind, fn)
}

// OnAny registers fn for every event.
func (b *Bus) OnAny(fn Listener) (func(), error) {
	return b.subscribe("", fn)
}

func (b *Bus) subscribe(kind Kind, fn Listener) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sealed {
		return nil, ErrSealed
	}
	s := &subscription{kind: kind, fn: fn}
	// Copy on write so the dispatcher can iterate a snapshot without locking.
	subs := make([]*subscription, len(b.subs), len(b.subs)+1)
	copy(subs, b.subs)
	b.subs = append(subs, s)
	return func() { b.remove(s) }, nil
}

func (b *Bus) remove(s *subscription) {
	s.removed.Store(true)
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := make([]*subscription, 0, len(b.subs))
	for _, existing := range b.subs {
		if existing != s {
			subs = append(subs, existing)
		}
	}
	b.subs = subs
}

// Seal rejects further registrations.
func (b *Bus) Seal() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sealed = true
}

// Sealed reports whether Seal was called.
func (b *Bus) Sealed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sealed
}

// Emit enqueues ev for delivery. With no listeners it is a no-op, and after
// Close the event is dropped.
func (b *Bus) Emit(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || len(b.subs) == 0 {
		return
	}
	b.queue = append(b.queue, ev)
	if !b.running {
		b.running = true
		go b.dispatch()
	}
	b.cond.Signal()
}

func (b *Bus) dispatch() {
	defer close(b.done)
	for {
		b.mu.Lock()
		for len(b.queue) == 0 && !b.closed {
			b.cond.Wait()
		}
		if len(b.queue) == 0 {
			b.mu.Unlock()
			return
		}
		ev := b.queue[0]
		b.queue[0] = Event{}
		b.queue = b.queue[1:]
		subs := b.subs
		logger := b.logger
		b.mu.Unlock()

		for _, s := range subs {
			if s.kind != "" && s.kind != ev.Kind {
				continue
			}
			if s.removed.Load() {
				continue
			}
			deliver(logger, s.fn, ev)
		}
	}
}

func deliver(logger *slog.Logger, fn Listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Event listener panicked", "event", ev.Kind, "panic", r)
		}
	}()
	fn(ev)
}

// Close stops accepting events, waits until every queued event has been
// delivered, and returns. It is safe to call more than once.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		running := b.running
		b.mu.Unlock()
		if running {
			<-b.done
		}
		return
	}
	b.closed = true
	running := b.running
	b.cond.Broadcast()
	b.mu.Unlock()
	if running {
		<-b.done
	}
}
