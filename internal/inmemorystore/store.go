package inmemorystore

import (
	"context"
	"maps"
	"sync"

	"github.com/specialistvlad/promptgridgo/internal/graph"
	"github.com/specialistvlad/promptgridgo/internal/node"
	"github.com/specialistvlad/promptgridgo/internal/nodestore"
)

// Store is an in-memory nodestore.Store.
type Store struct {
	states  sync.Map // graph.NodeID -> nodestore.Status
	outputs sync.Map // graph.NodeID -> node.Outputs
	errors  sync.Map // graph.NodeID -> error
}

// New creates a new, empty in-memory node state store.
func New() nodestore.Store {
	return &Store{}
}

func (s *Store) SetStatus(ctx context.Context, id graph.NodeID, status nodestore.Status) error {
	s.states.Store(id, status)
	return nil
}

// GetStatus returns StatusNotStarted for a node never written.
func (s *Store) GetStatus(ctx context.Context, id graph.NodeID) (nodestore.Status, error) {
	status, ok := s.states.Load(id)
	if !ok {
		return nodestore.StatusNotStarted, nil
	}
	return status.(nodestore.Status), nil
}

// SetOutputs stores a copy of out so later writes by the caller do not leak in.
func (s *Store) SetOutputs(ctx context.Context, id graph.NodeID, out node.Outputs) error {
	s.outputs.Store(id, maps.Clone(out))
	return nil
}

func (s *Store) GetOutputs(ctx context.Context, id graph.NodeID) (node.Outputs, error) {
	out, ok := s.outputs.Load(id)
	if !ok {
		return nil, nil
	}
	return maps.Clone(out.(node.Outputs)), nil
}

func (s *Store) SetError(ctx context.Context, id graph.NodeID, nodeErr error) error {
	s.errors.Store(id, nodeErr)
	return nil
}

func (s *Store) GetError(ctx context.Context, id graph.NodeID) (error, error) {
	err, ok := s.errors.Load(id)
	if !ok {
		return nil, nil
	}
	return err.(error), nil
}

func (s *Store) Reset(ctx context.Context, id graph.NodeID) error {
	s.states.Delete(id)
	s.outputs.Delete(id)
	s.errors.Delete(id)
	return nil
}
