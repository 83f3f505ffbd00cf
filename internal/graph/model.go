package graph

import "github.com/specialistvlad/promptgridgo/internal/portref"

// GraphID identifies a graph inside a project.
type GraphID string

// NodeID identifies a node inside a graph.
type NodeID string

// PortID names an input or output port of a node.
type PortID string

// Node is a single unit of computation.
type Node struct {
	ID    NodeID
	Kind  string
	Title string
	// Config is interpreted by the node's executor. Treat as read-only.
	Config map[string]any
	// Disabled nodes resolve to Excluded without executing.
	Disabled bool
	// SplitRun executes the node once per element of its array inputs.
	SplitRun    bool
	SplitRunMax int
}

// Connection is a directed edge between two ports.
type Connection struct {
	OutputNodeID NodeID
	OutputID     PortID
	InputNodeID  NodeID
	InputID      PortID
}

// From returns the producing side of the connection.
func (c Connection) From() portref.Ref {
	return portref.New(string(c.OutputNodeID), string(c.OutputID))
}

// To returns the consuming side of the connection.
func (c Connection) To() portref.Ref {
	return portref.New(string(c.InputNodeID), string(c.InputID))
}

// Graph is an immutable node/edge structure.
type Graph struct {
	ID          GraphID
	Name        string
	Description string
	Nodes       []*Node
	Connections []Connection
	// Outputs optionally pins the designated output ports of the graph.
	Outputs []portref.Ref
}

// Node returns the node with the given id.
func (g *Graph) Node(id NodeID) (*Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return nil, false
}

// NodesOfKind returns the nodes of the given kind in declaration order.
func (g *Graph) NodesOfKind(kind string) []*Node {
	var out []*Node
	for _, n := range g.Nodes {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}
