// Package nodestore defines the interface for the mutable, per-run execution
// state of nodes.
//
// The store isolates what changes during a run (status, outputs, errors) from
// the immutable graph structure analysed by graph.Topology. One store is
// created per processor run and discarded when the run settles.
//
// # State Transitions
//
// Nodes follow this lifecycle:
//
//	NotStarted → Running → Succeeded | Errored | Excluded
//
// A loop re-arm resets a body node to NotStarted and clears its outputs. A
// node parked on user input stays Running.
package nodestore

import (
	"context"

	"github.com/specialistvlad/promptgridgo/internal/graph"
	"github.com/specialistvlad/promptgridgo/internal/node"
)

// Status is the execution state of one node in one run.
type Status int

const (
	StatusNotStarted Status = iota
	StatusRunning
	StatusSucceeded
	StatusErrored
	StatusExcluded
)

func (s Status) String() string {
	switch s {
	case StatusNotStarted:
		return "notStarted"
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusErrored:
		return "errored"
	case StatusExcluded:
		return "excluded"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status is final for the current iteration.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusErrored || s == StatusExcluded
}

// Store manages the execution state of nodes during a run.
//
// Implementations MUST be safe for concurrent use: the processor's
// coordinator writes while callers inspect node state from other goroutines.
type Store interface {
	// SetStatus records a lifecycle transition. GetStatus returns
	// StatusNotStarted for a node never written.
	SetStatus(ctx context.Context, id graph.NodeID, status Status) error
	GetStatus(ctx context.Context, id graph.NodeID) (Status, error)

	// SetOutputs records the outputs of a finished node. GetOutputs returns
	// nil when none were recorded.
	SetOutputs(ctx context.Context, id graph.NodeID, out node.Outputs) error
	GetOutputs(ctx context.Context, id graph.NodeID) (node.Outputs, error)

	SetError(ctx context.Context, id graph.NodeID, nodeErr error) error
	GetError(ctx context.Context, id graph.NodeID) (error, error)

	// Reset returns a node to NotStarted and forgets its outputs and error.
	Reset(ctx context.Context, id graph.NodeID) error
}
