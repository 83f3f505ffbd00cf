package scheduler

import (
	"context"
	"sync"

	"github.com/specialistvlad/promptgridgo/internal/datavalue"
)

// shared is the state a processor tree has in common: globals and user
// events raised by any of its runs.
type shared struct {
	mu            sync.Mutex
	globals       map[string]datavalue.Value
	globalWaiters map[string][]chan datavalue.Value
	eventWaiters  map[string][]chan datavalue.Value
	handlers      map[string][]UserEventHandler
}

func newShared(handlers map[string][]UserEventHandler) *shared {
	return &shared{
		globals:       make(map[string]datavalue.Value),
		globalWaiters: make(map[string][]chan datavalue.Value),
		eventWaiters:  make(map[string][]chan datavalue.Value),
		handlers:      handlers,
	}
}

func (s *shared) getGlobal(id string) (datavalue.Value, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.globals[id]
	return v, ok
}

// setGlobal stores v and wakes every waiter. It returns the previous value.
func (s *shared) setGlobal(id string, v datavalue.Value) (datavalue.Value, bool) {
	s.mu.Lock()
	prev, had := s.globals[id]
	s.globals[id] = v
	waiters := s.globalWaiters[id]
	delete(s.globalWaiters, id)
	s.mu.Unlock()

	for _, ch := range waiters {
		ch <- v
	}
	return prev, had
}

func (s *shared) waitForGlobal(ctx context.Context, id string) (datavalue.Value, error) {
	s.mu.Lock()
	if v, ok := s.globals[id]; ok {
		s.mu.Unlock()
		return v, nil
	}
	ch := make(chan datavalue.Value, 1)
	s.globalWaiters[id] = append(s.globalWaiters[id], ch)
	s.mu.Unlock()

	select {
	case v := <-ch:
		return v, nil
	case <-ctx.Done():
		s.dropWaiter(s.globalWaiters, id, ch)
		return datavalue.Value{}, context.Cause(ctx)
	}
}

func (s *shared) runHandlers(ctx context.Context, name string, data datavalue.Value) {
	s.mu.Lock()
	handlers := s.handlers[name]
	s.mu.Unlock()
	for _, h := range handlers {
		h(ctx, data)
	}
}

// notify wakes every node waiting for the event.
func (s *shared) notify(name string, data datavalue.Value) {
	s.mu.Lock()
	waiters := s.eventWaiters[name]
	delete(s.eventWaiters, name)
	s.mu.Unlock()
	for _, ch := range waiters {
		ch <- data
	}
}

func (s *shared) waitForEvent(ctx context.Context, name string) (datavalue.Value, error) {
	ch := make(chan datavalue.Value, 1)
	s.mu.Lock()
	s.eventWaiters[name] = append(s.eventWaiters[name], ch)
	s.mu.Unlock()

	select {
	case v := <-ch:
		return v, nil
	case <-ctx.Done():
		s.dropWaiter(s.eventWaiters, name, ch)
		return datavalue.Value{}, context.Cause(ctx)
	}
}

func (s *shared) dropWaiter(set map[string][]chan datavalue.Value, key string, ch chan datavalue.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := set[key]
	for i, c := range list {
		if c == ch {
			set[key] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(set[key]) == 0 {
		delete(set, key)
	}
}
