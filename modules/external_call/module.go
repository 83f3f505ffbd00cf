// Package external_call provides the externalCall node kind, which invokes
// a host-supplied function by name.
package external_call

import (
	"context"
	"fmt"

	"github.com/specialistvlad/promptgridgo/internal/ctxlog"
	"github.com/specialistvlad/promptgridgo/internal/datavalue"
	"github.com/specialistvlad/promptgridgo/internal/node"
	"github.com/specialistvlad/promptgridgo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the externalCall kind.
func (m *Module) Register(r *registry.Registry) {
	r.Register(registry.Definition{Kind: "externalCall", Title: "External Call", Group: "Advanced", Factory: newExternalCall})
}

type externalCallNode struct {
	node.Ports
	cfg       node.Config
	withError bool
}

func newExternalCall(b node.Binding) (node.Executor, error) {
	cfg := b.Config()
	n := &externalCallNode{cfg: cfg, withError: cfg.Bool("useErrorOutput", false)}
	n.In = []node.PortDescriptor{{ID: "arguments", Title: "Arguments", DataType: datavalue.Any}}
	if cfg.UseInput("functionName") {
		n.In = append(n.In, node.PortDescriptor{ID: "functionName", Title: "Function Name", DataType: datavalue.String})
	}
	n.Out = []node.PortDescriptor{{ID: "result", Title: "Result", DataType: datavalue.Any}}
	if n.withError {
		n.Out = append(n.Out, node.PortDescriptor{ID: "error", Title: "Error", DataType: datavalue.String})
	}
	return n, nil
}

func (e *externalCallNode) Execute(ctx context.Context, in node.Inputs, rc node.RunContext) (node.Outcome, error) {
	name := datavalue.AsString(node.InputOr(e.cfg, in, "functionName", "functionName", datavalue.String))
	fn, ok := rc.ExternalFunction(name)
	if !ok {
		return node.Outcome{}, fmt.Errorf("external function %q is not defined", name)
	}

	var args []datavalue.Value
	if v, ok := in.Get("arguments"); ok {
		args = datavalue.Items(v)
	}

	logger := ctxlog.FromContext(ctx).With("function", name)
	logger.Debug("Calling external function", "args", len(args))
	result, err := fn(ctx, args)
	if err != nil {
		if !e.withError {
			return node.Outcome{}, fmt.Errorf("external function %q: %w", name, err)
		}
		logger.Warn("❌ External function failed, routing to error output", "error", err)
		return node.Succeed(node.Outputs{"result": datavalue.Excluded(), "error": datavalue.Str(err.Error())}), nil
	}
	if result.IsZero() {
		result = datavalue.AnyValue(nil)
	}
	out := node.Outputs{"result": result}
	if e.withError {
		out["error"] = datavalue.Excluded()
	}
	return node.Succeed(out), nil
}
