// Package env_vars provides the getEnvironmentVariable node kind. It reads
// the run's explicit environment map, never the process environment.
package env_vars

import (
	"context"

	"github.com/specialistvlad/promptgridgo/internal/ctxlog"
	"github.com/specialistvlad/promptgridgo/internal/datavalue"
	"github.com/specialistvlad/promptgridgo/internal/node"
	"github.com/specialistvlad/promptgridgo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

type getEnvNode struct {
	node.Ports
	cfg node.Config
}

func newGetEnv(b node.Binding) (node.Executor, error) {
	cfg := b.Config()
	var in []node.PortDescriptor
	if cfg.UseInput("variableName") {
		in = append(in, node.PortDescriptor{ID: "variableName", Title: "Variable Name", DataType: datavalue.String})
	}
	if cfg.UseInput("defaultValue") {
		in = append(in, node.PortDescriptor{ID: "defaultValue", Title: "Default Value", DataType: datavalue.String})
	}
	return &getEnvNode{
		Ports: node.Ports{In: in, Out: []node.PortDescriptor{{ID: "value", Title: "Value", DataType: datavalue.String}}},
		cfg:   cfg,
	}, nil
}

// Execute looks the variable up in rc.Env(), falling back to the default.
func (n *getEnvNode) Execute(ctx context.Context, in node.Inputs, rc node.RunContext) (node.Outcome, error) {
	name := datavalue.AsString(node.InputOr(n.cfg, in, "variableName", "variableName", datavalue.String))
	if value, ok := rc.Env()[name]; ok {
		return node.Succeed(node.Outputs{"value": datavalue.Str(value)}), nil
	}
	ctxlog.FromContext(ctx).Debug("Environment variable not set, using default.", "variable", name)
	def := node.InputOr(n.cfg, in, "defaultValue", "defaultValue", datavalue.String)
	return node.Succeed(node.Outputs{"value": def}), nil
}

// Register registers the node kind with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(registry.Definition{
		Kind:    "getEnvironmentVariable",
		Title:   "Get Environment Variable",
		Group:   "Data",
		Factory: newGetEnv,
	})
}
