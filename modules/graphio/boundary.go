package graphio

import (
	"context"
	"errors"

	"github.com/specialistvlad/promptgridgo/internal/datavalue"
	"github.com/specialistvlad/promptgridgo/internal/node"
)

var errMissingID = errors.New("id is required")

type graphInputNode struct {
	node.Ports
	cfg  node.Config
	id   string
	kind datavalue.Kind
}

func newGraphInput(b node.Binding) (node.Executor, error) {
	cfg := b.Config()
	id := cfg.String("id", "")
	if id == "" {
		return nil, errMissingID
	}
	kind := cfg.Kind("dataType", datavalue.String)
	return &graphInputNode{Ports: boundaryPorts(cfg, kind), cfg: cfg, id: id, kind: kind}, nil
}

func (g *graphInputNode) Execute(_ context.Context, in node.Inputs, rc node.RunContext) (node.Outcome, error) {
	v, ok := rc.GraphInput(g.id)
	if ok && v.Data != nil {
		v = coerce(v, g.kind)
	} else {
		v = fallback(g.cfg, in, g.kind)
	}
	return node.Succeed(node.Outputs{"data": v}), nil
}

type contextNode struct {
	node.Ports
	cfg  node.Config
	id   string
	kind datavalue.Kind
}

func newContext(b node.Binding) (node.Executor, error) {
	cfg := b.Config()
	id := cfg.String("id", "")
	if id == "" {
		return nil, errMissingID
	}
	kind := cfg.Kind("dataType", datavalue.String)
	return &contextNode{Ports: boundaryPorts(cfg, kind), cfg: cfg, id: id, kind: kind}, nil
}

func (c *contextNode) Execute(_ context.Context, in node.Inputs, rc node.RunContext) (node.Outcome, error) {
	v, ok := rc.ContextValue(c.id)
	if ok && v.Data != nil {
		v = coerce(v, c.kind)
	} else {
		v = fallback(c.cfg, in, c.kind)
	}
	return node.Succeed(node.Outputs{"data": v}), nil
}

// graphOutputNode records its value as the named output of the graph. It
// also runs when its value is excluded so the exclusion is recorded.
type graphOutputNode struct {
	node.Ports
	id   string
	kind datavalue.Kind
}

func newGraphOutput(b node.Binding) (node.Executor, error) {
	cfg := b.Config()
	id := cfg.String("id", "")
	if id == "" {
		return nil, errMissingID
	}
	kind := cfg.Kind("dataType", datavalue.String)
	return &graphOutputNode{
		Ports: node.Ports{
			In:  []node.PortDescriptor{{ID: "value", Title: "Value", DataType: kind}},
			Out: []node.PortDescriptor{{ID: "valueOutput", Title: "Value", DataType: kind}},
		},
		id:   id,
		kind: kind,
	}, nil
}

func (g *graphOutputNode) GraphOutputID() string { return g.id }
func (g *graphOutputNode) ToleratesExclusion() bool { return true }

func (g *graphOutputNode) Execute(_ context.Context, in node.Inputs, rc node.RunContext) (node.Outcome, error) {
	v, ok := in.Get("value")
	switch {
	case !ok:
		v = datavalue.Zero(g.kind)
	case !v.IsExcluded():
		v = coerce(v, g.kind)
	}
	rc.SetGraphOutput(g.id, v)
	return node.Succeed(node.Outputs{"valueOutput": v}), nil
}
