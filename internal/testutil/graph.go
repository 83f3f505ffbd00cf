package testutil

import (
	"github.com/specialistvlad/promptgridgo/internal/graph"
	"github.com/specialistvlad/promptgridgo/internal/portref"
)

// GraphBuilder assembles graphs for tests.
type GraphBuilder struct {
	g *graph.Graph
}

// NewGraph starts a graph with the given id.
func NewGraph(id graph.GraphID) *GraphBuilder {
	return &GraphBuilder{g: &graph.Graph{ID: id, Name: string(id)}}
}

// Node adds a node. cfg may be nil.
func (b *GraphBuilder) Node(id graph.NodeID, kind string, cfg map[string]any) *GraphBuilder {
	b.g.Nodes = append(b.g.Nodes, &graph.Node{ID: id, Kind: kind, Config: cfg})
	return b
}

// With adjusts the most recently added node.
func (b *GraphBuilder) With(fn func(n *graph.Node)) *GraphBuilder {
	fn(b.g.Nodes[len(b.g.Nodes)-1])
	return b
}

// Connect adds an edge between two "<node>.<port>" references. It panics on
// a malformed reference.
func (b *GraphBuilder) Connect(from, to string) *GraphBuilder {
	src, dst := mustRef(from), mustRef(to)
	b.g.Connections = append(b.g.Connections, graph.Connection{
		OutputNodeID: graph.NodeID(src.Node), OutputID: graph.PortID(src.Port),
		InputNodeID: graph.NodeID(dst.Node), InputID: graph.PortID(dst.Port),
	})
	return b
}

// Output pins a designated output port.
func (b *GraphBuilder) Output(ref string) *GraphBuilder {
	b.g.Outputs = append(b.g.Outputs, mustRef(ref))
	return b
}

// Build returns the graph.
func (b *GraphBuilder) Build() *graph.Graph { return b.g }

// Project wraps graphs into a project, the first being main.
func Project(graphs ...*graph.Graph) *graph.Project {
	return graph.NewProject("test", graphs...)
}

func mustRef(raw string) portref.Ref {
	r, err := portref.Parse(raw)
	if err != nil {
		panic(err)
	}
	return r
}
