package node

import (
	"context"

	"github.com/specialistvlad/promptgridgo/internal/datavalue"
	"github.com/specialistvlad/promptgridgo/internal/graph"
)

// Inputs maps input ports to the values resolved for them.
type Inputs map[graph.PortID]datavalue.Value

// Outputs maps output ports to the values produced on them.
type Outputs map[graph.PortID]datavalue.Value

// Get returns the value on port, reporting false when it is absent.
func (in Inputs) Get(port graph.PortID) (datavalue.Value, bool) {
	v, ok := in[port]
	if !ok || v.IsZero() {
		return datavalue.Value{}, false
	}
	return v, true
}

// PortDescriptor describes one port of a node.
type PortDescriptor struct {
	ID          graph.PortID
	Title       string
	DataType    datavalue.Kind
	Required    bool
	Multi       bool
	Description string
}

// Binding is what a factory receives to construct an executor.
type Binding struct {
	Node     *graph.Node
	Incoming []graph.Connection
	Outgoing []graph.Connection
	Project  *graph.Project
}

// Config returns the node configuration with typed accessors.
func (b Binding) Config() Config {
	if b.Node == nil {
		return nil
	}
	return Config(b.Node.Config)
}

// Executor runs one node instance.
type Executor interface {
	InputPorts() []PortDescriptor
	OutputPorts() []PortDescriptor
	Execute(ctx context.Context, in Inputs, rc RunContext) (Outcome, error)
}

// Factory constructs the executor for a node of a given kind.
type Factory func(b Binding) (Executor, error)

// Resumable executors can complete after a Suspend outcome.
type Resumable interface {
	Resume(ctx context.Context, in Inputs, answers []string, rc RunContext) (Outcome, error)
}

// ExclusionTolerant executors run even when their inputs are excluded.
type ExclusionTolerant interface {
	ToleratesExclusion() bool
}

// PartialInputTolerant executors run with errored or excluded producers
// treated as missing inputs.
type PartialInputTolerant interface {
	ToleratesPartialInputs() bool
}

// LoopController marks the node kind that may close a cycle.
type LoopController interface {
	IsLoopController() bool
}

// GraphOutputWriter marks nodes that publish a named graph output.
type GraphOutputWriter interface {
	GraphOutputID() string
}

// Ports is an embeddable fixed port set.
type Ports struct {
	In  []PortDescriptor
	Out []PortDescriptor
}

func (p Ports) InputPorts() []PortDescriptor { return p.In }
func (p Ports) OutputPorts() []PortDescriptor { return p.Out }
