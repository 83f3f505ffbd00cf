package testutil

import (
	"context"

	"github.com/specialistvlad/promptgridgo/internal/datavalue"
	"github.com/specialistvlad/promptgridgo/internal/graph"
	"github.com/specialistvlad/promptgridgo/internal/node"
	"github.com/specialistvlad/promptgridgo/internal/registry"
)

// SimpleModule is a test helper that registers the given definitions.
type SimpleModule struct {
	Definitions []registry.Definition
}

// Register implements the registry.Module interface.
func (m *SimpleModule) Register(r *registry.Registry) {
	for _, d := range m.Definitions {
		r.Register(d)
	}
}

// Func is a scripted executor.
type Func struct {
	In  []node.PortDescriptor
	Out []node.PortDescriptor
	Run func(ctx context.Context, in node.Inputs, rc node.RunContext) (node.Outcome, error)
	// OnResume answers a previous Suspend; nil makes resuming fail.
	OnResume func(ctx context.Context, in node.Inputs, answers []string, rc node.RunContext) (node.Outcome, error)
	// TolerateExclusion makes the node run even with excluded inputs.
	TolerateExclusion bool
}

func (f *Func) InputPorts() []node.PortDescriptor { return f.In }
func (f *Func) OutputPorts() []node.PortDescriptor { return f.Out }
func (f *Func) ToleratesExclusion() bool { return f.TolerateExclusion }

func (f *Func) Execute(ctx context.Context, in node.Inputs, rc node.RunContext) (node.Outcome, error) {
	if f.Run == nil {
		return node.Succeed(nil), nil
	}
	return f.Run(ctx, in, rc)
}

func (f *Func) Resume(ctx context.Context, in node.Inputs, answers []string, rc node.RunContext) (node.Outcome, error) {
	if f.OnResume == nil {
		return node.Outcome{}, errNoResume
	}
	return f.OnResume(ctx, in, answers, rc)
}

// Ports builds untyped port descriptors.
func Ports(ids ...graph.PortID) []node.PortDescriptor {
	out := make([]node.PortDescriptor, len(ids))
	for i, id := range ids {
		out[i] = node.PortDescriptor{ID: id, DataType: datavalue.Any}
	}
	return out
}

// Kind registers a kind whose every node gets a fresh executor from build.
func Kind(kind string, build func(b node.Binding) node.Executor) registry.Definition {
	return registry.Definition{Kind: kind, Factory: func(b node.Binding) (node.Executor, error) {
		return build(b), nil
	}}
}

// Const is a kind whose nodes output their "value" config on port "output".
func Const() registry.Definition {
	return Kind("const", func(b node.Binding) node.Executor {
		v := datavalue.Resolve(b.Node.Config["value"])
		return &Func{
			Out: Ports("output"),
			Run: func(context.Context, node.Inputs, node.RunContext) (node.Outcome, error) {
				return node.Succeed(node.Outputs{"output": v}), nil
			},
		}
	})
}
