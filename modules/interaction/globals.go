package interaction

import (
	"context"
	"errors"

	"github.com/specialistvlad/promptgridgo/internal/datavalue"
	"github.com/specialistvlad/promptgridgo/internal/node"
)

var errNoGlobalID = errors.New("global id is required")

func globalID(cfg node.Config, in node.Inputs) (string, error) {
	id := datavalue.AsString(node.InputOr(cfg, in, "id", "id", datavalue.String))
	if id == "" {
		return "", errNoGlobalID
	}
	return id, nil
}

func idPorts(cfg node.Config, in ...node.PortDescriptor) []node.PortDescriptor {
	if cfg.UseInput("id") {
		in = append(in, node.PortDescriptor{ID: "id", Title: "Variable ID", DataType: datavalue.String})
	}
	return in
}

type setGlobalNode struct {
	node.Ports
	cfg  node.Config
	kind datavalue.Kind
}

func newSetGlobal(b node.Binding) (node.Executor, error) {
	cfg := b.Config()
	kind := cfg.Kind("dataType", datavalue.String)
	return &setGlobalNode{
		Ports: node.Ports{
			In: idPorts(cfg, node.PortDescriptor{ID: "value", Title: "Value", DataType: kind}),
			Out: []node.PortDescriptor{
				{ID: "saved-value", Title: "Value", DataType: kind},
				{ID: "previous-value", Title: "Previous Value", DataType: kind},
				{ID: "variable_id_out", Title: "Variable ID", DataType: datavalue.String},
			},
		},
		cfg:  cfg,
		kind: kind,
	}, nil
}

func (s *setGlobalNode) Execute(_ context.Context, in node.Inputs, rc node.RunContext) (node.Outcome, error) {
	id, err := globalID(s.cfg, in)
	if err != nil {
		return node.Outcome{}, err
	}
	v, ok := in.Get("value")
	if !ok {
		v = datavalue.Zero(s.kind)
	}
	previous, had := rc.SetGlobal(id, v)
	if !had {
		previous = datavalue.Zero(s.kind)
	}
	return node.Succeed(node.Outputs{
		"saved-value":     v,
		"previous-value":  previous,
		"variable_id_out": datavalue.Str(id),
	}), nil
}

// getGlobalNode reads a global. With wait set it blocks until another node
// sets the global; otherwise an unset global yields the zero value.
type getGlobalNode struct {
	node.Ports
	cfg  node.Config
	kind datavalue.Kind
	wait bool
}

func newGetGlobal(b node.Binding) (node.Executor, error) {
	cfg := b.Config()
	kind := cfg.Kind("dataType", datavalue.String)
	return &getGlobalNode{
		Ports: node.Ports{
			In: idPorts(cfg),
			Out: []node.PortDescriptor{
				{ID: "value", Title: "Value", DataType: kind},
				{ID: "variable_id_out", Title: "Variable ID", DataType: datavalue.String},
			},
		},
		cfg:  cfg,
		kind: kind,
		wait: cfg.Bool("wait", false),
	}, nil
}

func (g *getGlobalNode) Execute(ctx context.Context, in node.Inputs, rc node.RunContext) (node.Outcome, error) {
	id, err := globalID(g.cfg, in)
	if err != nil {
		return node.Outcome{}, err
	}
	var v datavalue.Value
	if g.wait {
		if v, err = rc.WaitForGlobal(ctx, id); err != nil {
			return node.Outcome{}, err
		}
	} else if got, ok := rc.GetGlobal(id); ok {
		v = got
	} else {
		v = datavalue.Zero(g.kind)
	}
	return node.Succeed(node.Outputs{"value": v, "variable_id_out": datavalue.Str(id)}), nil
}
