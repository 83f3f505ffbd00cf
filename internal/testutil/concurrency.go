package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/specialistvlad/promptgridgo/internal/graph"
	"github.com/specialistvlad/promptgridgo/internal/node"
	"github.com/specialistvlad/promptgridgo/internal/registry"
)

// SleeperModule is a shared, self-contained module for concurrency tests.
// It registers a "sleeper" kind and records the execution time of each node.
type SleeperModule struct {
	ExecutionTimes map[graph.NodeID]*ExecutionRecord
	mu             sync.Mutex
	sleepDuration  time.Duration
}

// NewSleeperModule creates a new sleeper module for testing.
func NewSleeperModule(sleep time.Duration) *SleeperModule {
	return &SleeperModule{
		ExecutionTimes: make(map[graph.NodeID]*ExecutionRecord),
		sleepDuration:  sleep,
	}
}

// Register registers the "sleeper" kind. A sleeper accepts an optional
// "input" and outputs "done" once its sleep elapses or ctx is cancelled.
func (m *SleeperModule) Register(r *registry.Registry) {
	r.Register(Kind("sleeper", func(node.Binding) node.Executor {
		return &Func{
			In:  Ports("input"),
			Out: Ports("done"),
			Run: func(ctx context.Context, _ node.Inputs, rc node.RunContext) (node.Outcome, error) {
				startTime := time.Now()
				select {
				case <-time.After(m.sleepDuration):
				case <-ctx.Done():
					return node.Outcome{}, context.Cause(ctx)
				}
				endTime := time.Now()

				m.mu.Lock()
				m.ExecutionTimes[rc.NodeID()] = &ExecutionRecord{Start: startTime, End: endTime}
				m.mu.Unlock()
				return node.Succeed(nil), nil
			},
		}
	}))
}

// Record returns the execution record of a node.
func (m *SleeperModule) Record(id graph.NodeID) (*ExecutionRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.ExecutionTimes[id]
	return r, ok
}
