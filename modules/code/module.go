// Package code provides the code node kind. Its body is an expr-lang
// expression evaluated over the node's inputs.
package code

import (
	"context"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/specialistvlad/promptgridgo/internal/datavalue"
	"github.com/specialistvlad/promptgridgo/internal/graph"
	"github.com/specialistvlad/promptgridgo/internal/node"
	"github.com/specialistvlad/promptgridgo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the code kind.
func (m *Module) Register(r *registry.Registry) {
	r.Register(registry.Definition{Kind: "code", Title: "Code", Group: "Advanced", Factory: newCode})
}

type codeNode struct {
	node.Ports
	names   []string
	program *vm.Program
}

// newCode compiles the expression once per node. Every input is visible both
// by name and under the inputs map.
func newCode(b node.Binding) (node.Executor, error) {
	cfg := b.Config()
	src := cfg.String("code", "")
	if src == "" {
		return nil, fmt.Errorf("code: expression is empty")
	}
	program, err := expr.Compile(src, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("code: compiling expression: %w", err)
	}

	names := cfg.Strings("inputNames")
	in := make([]node.PortDescriptor, 0, len(names))
	for _, name := range names {
		in = append(in, node.PortDescriptor{ID: graph.PortID(name), Title: name, DataType: datavalue.Any})
	}
	return &codeNode{
		Ports: node.Ports{
			In:  in,
			Out: []node.PortDescriptor{{ID: "output", Title: "Output", DataType: datavalue.Any}},
		},
		names:   names,
		program: program,
	}, nil
}

func (c *codeNode) Execute(_ context.Context, in node.Inputs, _ node.RunContext) (node.Outcome, error) {
	inputs := make(map[string]any, len(c.names))
	env := map[string]any{"inputs": inputs}
	for _, name := range c.names {
		var data any
		if v, ok := in.Get(graph.PortID(name)); ok && !v.IsExcluded() {
			data = v.Data
		}
		inputs[name] = data
		env[name] = data
	}

	result, err := expr.Run(c.program, env)
	if err != nil {
		return node.Outcome{}, fmt.Errorf("code: %w", err)
	}
	return node.Succeed(node.Outputs{"output": datavalue.Infer(result)}), nil
}
