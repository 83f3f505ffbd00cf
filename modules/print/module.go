// Package print provides the trace node kind, which reports a value on the
// event stream and in the log, then passes it on.
package print

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/specialistvlad/promptgridgo/internal/ctxlog"
	"github.com/specialistvlad/promptgridgo/internal/datavalue"
	"github.com/specialistvlad/promptgridgo/internal/node"
	"github.com/specialistvlad/promptgridgo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

type traceNode struct{ node.Ports }

func newTrace(node.Binding) (node.Executor, error) {
	return &traceNode{node.Ports{
		In:  []node.PortDescriptor{{ID: "input", Title: "Input", DataType: datavalue.Any}},
		Out: []node.PortDescriptor{{ID: "output", Title: "Output", DataType: datavalue.Any}},
	}}, nil
}

func (*traceNode) Execute(ctx context.Context, in node.Inputs, rc node.RunContext) (node.Outcome, error) {
	v, ok := in.Get("input")
	if !ok {
		v = datavalue.AnyValue(nil)
	}
	msg := format(v)
	ctxlog.FromContext(ctx).Info("🖨️ Trace", "value", msg)
	rc.Trace(msg)
	return node.Succeed(node.Outputs{"output": v}), nil
}

// format renders maps with sorted keys, one per line, and everything else as
// its string coercion.
func format(v datavalue.Value) string {
	m, ok := v.Data.(map[string]any)
	if !ok {
		if v.Data == nil {
			return "(null)"
		}
		return datavalue.AsString(v)
	}
	var sb strings.Builder
	for _, k := range slices.Sorted(maps.Keys(m)) {
		fmt.Fprintf(&sb, "%s = %s\n", k, datavalue.AsString(datavalue.Infer(m[k])))
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// Register registers the node kind with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(registry.Definition{Kind: "trace", Title: "Trace", Group: "Debug", Factory: newTrace})
}
