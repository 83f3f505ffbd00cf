// Package graphio provides the node kinds at the boundary of a graph: its
// inputs, outputs, context values and nested sub-graph calls.
package graphio

import (
	"github.com/specialistvlad/promptgridgo/internal/datavalue"
	"github.com/specialistvlad/promptgridgo/internal/node"
	"github.com/specialistvlad/promptgridgo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers graphInput, graphOutput, context and subGraph.
func (m *Module) Register(r *registry.Registry) {
	r.Register(registry.Definition{Kind: "graphInput", Title: "Graph Input", Group: "Input/Output", Factory: newGraphInput})
	r.Register(registry.Definition{Kind: "graphOutput", Title: "Graph Output", Group: "Input/Output", Factory: newGraphOutput})
	r.Register(registry.Definition{Kind: "context", Title: "Context", Group: "Input/Output", Factory: newContext})
	r.Register(registry.Definition{Kind: "subGraph", Title: "Subgraph", Group: "Advanced", Factory: newSubGraph})
}

// useDefaultKey toggles the optional "default" input port.
const useDefaultKey = "useDefaultValueInput"

func boundaryPorts(cfg node.Config, kind datavalue.Kind) node.Ports {
	var in []node.PortDescriptor
	if cfg.Bool(useDefaultKey, false) {
		in = append(in, node.PortDescriptor{ID: "default", Title: "Default Value", DataType: kind})
	}
	return node.Ports{In: in, Out: []node.PortDescriptor{{ID: "data", Title: "Data", DataType: kind}}}
}

// fallback resolves the default chain shared by graphInput and context: the
// "default" input when toggled, then the defaultValue config, then the zero
// value of kind.
func fallback(cfg node.Config, in node.Inputs, kind datavalue.Kind) datavalue.Value {
	if cfg.Bool(useDefaultKey, false) {
		if v, ok := in.Get("default"); ok {
			return coerce(v, kind)
		}
	}
	if raw, ok := cfg.Value("defaultValue"); ok {
		return coerce(datavalue.Infer(raw), kind)
	}
	return datavalue.Zero(kind)
}

func coerce(v datavalue.Value, kind datavalue.Kind) datavalue.Value {
	c, err := datavalue.Coerce(v, kind)
	if err != nil {
		return v
	}
	return c
}
