package flow

import (
	"context"

	"github.com/specialistvlad/promptgridgo/internal/datavalue"
	"github.com/specialistvlad/promptgridgo/internal/node"
)

// ifNode routes value to output when the condition holds, and to
// falseOutput otherwise. The port not taken is excluded.
type ifNode struct{ node.Ports }

func newIf(node.Binding) (node.Executor, error) {
	return &ifNode{node.Ports{
		In: []node.PortDescriptor{
			{ID: "if", Title: "If", DataType: datavalue.Any},
			{ID: "value", Title: "Value", DataType: datavalue.Any},
		},
		Out: []node.PortDescriptor{
			{ID: "output", Title: "True", DataType: datavalue.Any},
			{ID: "falseOutput", Title: "False", DataType: datavalue.Any},
		},
	}}, nil
}

func (*ifNode) ToleratesExclusion() bool { return true }

func (*ifNode) Execute(_ context.Context, in node.Inputs, _ node.RunContext) (node.Outcome, error) {
	value, ok := in.Get("value")
	if !ok || value.IsExcluded() {
		return node.Succeed(node.Outputs{"output": datavalue.Excluded(), "falseOutput": datavalue.Excluded()}), nil
	}
	cond, _ := in.Get("if")
	if datavalue.AsBool(cond) {
		return node.Succeed(node.Outputs{"output": value, "falseOutput": datavalue.Excluded()}), nil
	}
	return node.Succeed(node.Outputs{"output": datavalue.Excluded(), "falseOutput": value}), nil
}

type ifElseNode struct{ node.Ports }

func newIfElse(node.Binding) (node.Executor, error) {
	return &ifElseNode{node.Ports{
		In: []node.PortDescriptor{
			{ID: "if", Title: "If", DataType: datavalue.Any},
			{ID: "true", Title: "True", DataType: datavalue.Any},
			{ID: "false", Title: "False", DataType: datavalue.Any},
		},
		Out: []node.PortDescriptor{{ID: "output", Title: "Output", DataType: datavalue.Any}},
	}}, nil
}

func (*ifElseNode) ToleratesExclusion() bool { return true }

func (*ifElseNode) Execute(_ context.Context, in node.Inputs, _ node.RunContext) (node.Outcome, error) {
	cond, _ := in.Get("if")
	branch := "false"
	if datavalue.AsBool(cond) {
		branch = "true"
	}
	v, ok := in.Get(graphPort(branch))
	if !ok {
		v = datavalue.Excluded()
	}
	return node.Succeed(node.Outputs{"output": v}), nil
}

// coalesceNode outputs the first input that is present, not excluded and
// truthy. An excluded conditional excludes the output.
type coalesceNode struct{ node.Ports }

func newCoalesce(b node.Binding) (node.Executor, error) {
	n := inputCount(b.Incoming, "input")
	in := append([]node.PortDescriptor{{ID: "conditional", Title: "Conditional", DataType: datavalue.Any}},
		node.NumberedPorts("input", "", n, datavalue.Any)...)
	return &coalesceNode{node.Ports{
		In:  in,
		Out: []node.PortDescriptor{{ID: "output", Title: "Output", DataType: datavalue.Any}},
	}}, nil
}

func (*coalesceNode) ToleratesExclusion() bool { return true }
func (*coalesceNode) ToleratesPartialInputs() bool { return true }

func (c *coalesceNode) Execute(_ context.Context, in node.Inputs, _ node.RunContext) (node.Outcome, error) {
	if cond, ok := in.Get("conditional"); ok && cond.IsExcluded() {
		return node.Succeed(node.Outputs{"output": datavalue.Excluded()}), nil
	}
	for _, d := range c.In[1:] {
		v, ok := in.Get(d.ID)
		if ok && !v.IsExcluded() && datavalue.AsBool(v) {
			return node.Succeed(node.Outputs{"output": v}), nil
		}
	}
	return node.Succeed(node.Outputs{"output": datavalue.Excluded()}), nil
}

// raceInputsNode outputs the first available input in port order.
type raceInputsNode struct{ node.Ports }

func newRaceInputs(b node.Binding) (node.Executor, error) {
	return &raceInputsNode{node.Ports{
		In:  node.NumberedPorts("input", "", inputCount(b.Incoming, "input"), datavalue.Any),
		Out: []node.PortDescriptor{{ID: "result", Title: "Result", DataType: datavalue.Any}},
	}}, nil
}

func (*raceInputsNode) ToleratesExclusion() bool { return true }
func (*raceInputsNode) ToleratesPartialInputs() bool { return true }

func (r *raceInputsNode) Execute(_ context.Context, in node.Inputs, _ node.RunContext) (node.Outcome, error) {
	for _, d := range r.In {
		if v, ok := in.Get(d.ID); ok && !v.IsExcluded() {
			return node.Succeed(node.Outputs{"result": v}), nil
		}
	}
	return node.Succeed(node.Outputs{"result": datavalue.Excluded()}), nil
}
