package flow

import (
	"context"
	"testing"

	"github.com/specialistvlad/promptgridgo/internal/datavalue"
	"github.com/specialistvlad/promptgridgo/internal/graph"
	"github.com/specialistvlad/promptgridgo/internal/node"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bind(cfg map[string]any, incoming ...graph.Connection) node.Binding {
	return node.Binding{Node: &graph.Node{ID: "n", Config: cfg}, Incoming: incoming}
}

func into(port graph.PortID) graph.Connection {
	return graph.Connection{OutputNodeID: "src", OutputID: "output", InputNodeID: "n", InputID: port}
}

func exec(t *testing.T, f node.Factory, b node.Binding, in node.Inputs) node.Outputs {
	t.Helper()
	e, err := f(b)
	require.NoError(t, err)
	out, err := e.Execute(context.Background(), in, nil)
	require.NoError(t, err)
	return out.Outputs
}

func TestCompare(t *testing.T) {
	testCases := []struct {
		name string
		op   string
		in   node.Inputs
		want bool
	}{
		{name: "default equality", in: node.Inputs{"a": datavalue.Num(3), "b": datavalue.Str("3")}, want: true},
		{name: "not equal", op: "!=", in: node.Inputs{"a": datavalue.Num(3), "b": datavalue.Num(4)}, want: true},
		{name: "less than", op: "<", in: node.Inputs{"a": datavalue.Num(1), "b": datavalue.Num(2)}, want: true},
		{name: "string order", op: ">=", in: node.Inputs{"a": datavalue.Str("b"), "b": datavalue.Str("a")}, want: true},
		{name: "and", op: "and", in: node.Inputs{"a": datavalue.Bool(true), "b": datavalue.Bool(false)}, want: false},
		{name: "xor", op: "xor", in: node.Inputs{"a": datavalue.Bool(true), "b": datavalue.Bool(false)}, want: true},
		{name: "both missing are equal", in: node.Inputs{}, want: true},
		{name: "missing a ordered", op: "<", in: node.Inputs{"b": datavalue.Num(1)}, want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := map[string]any{}
			if tc.op != "" {
				cfg["comparisonFunction"] = tc.op
			}
			out := exec(t, newCompare, bind(cfg), tc.in)
			assert.Equal(t, datavalue.Bool(tc.want), out["output"])
		})
	}
}

func TestCompare_UnknownFunction(t *testing.T) {
	e, err := newCompare(bind(map[string]any{"comparisonFunction": "~"}))
	require.NoError(t, err)

	_, err = e.Execute(context.Background(), node.Inputs{"a": datavalue.Num(1)}, nil)

	assert.ErrorContains(t, err, "unknown comparison function")
}

func TestEvaluate(t *testing.T) {
	testCases := []struct {
		op   string
		a, b float64
		want float64
	}{
		{op: "", a: 2, b: 3, want: 5},
		{op: "-", a: 2, b: 3, want: -1},
		{op: "*", a: 2, b: 3, want: 6},
		{op: "/", a: 3, b: 2, want: 1.5},
		{op: "^", a: 2, b: 3, want: 8},
		{op: "%", a: 7, b: 3, want: 1},
		{op: "abs", a: -4, want: 4},
		{op: "negate", a: 4, want: -4},
	}

	for _, tc := range testCases {
		t.Run("op "+tc.op, func(t *testing.T) {
			in := node.Inputs{"a": datavalue.Num(tc.a), "b": datavalue.Num(tc.b)}
			out := exec(t, newEvaluate, bind(map[string]any{"operation": tc.op}), in)
			assert.Equal(t, datavalue.Num(tc.want), out["output"])
		})
	}
}

func TestEvaluate_UsesOperationInput(t *testing.T) {
	cfg := map[string]any{"operation": "+", "useOperationInput": true}
	in := node.Inputs{"a": datavalue.Num(6), "b": datavalue.Num(3), "operation": datavalue.Str("/")}

	out := exec(t, newEvaluate, bind(cfg), in)

	assert.Equal(t, datavalue.Num(2), out["output"])
}

func TestEvaluate_MissingInput(t *testing.T) {
	e, err := newEvaluate(bind(nil))
	require.NoError(t, err)

	_, err = e.Execute(context.Background(), node.Inputs{"a": datavalue.Num(1)}, nil)

	assert.ErrorContains(t, err, "missing input")
}

func TestIf(t *testing.T) {
	out := exec(t, newIf, bind(nil), node.Inputs{"if": datavalue.Bool(false), "value": datavalue.Str("x")})
	assert.True(t, out["output"].IsExcluded())
	assert.Equal(t, datavalue.Str("x"), out["falseOutput"])

	out = exec(t, newIf, bind(nil), node.Inputs{"if": datavalue.Bool(true), "value": datavalue.Excluded()})
	assert.True(t, out["output"].IsExcluded())
	assert.True(t, out["falseOutput"].IsExcluded())
}

func TestIfElse(t *testing.T) {
	in := node.Inputs{"if": datavalue.Str("yes"), "true": datavalue.Num(1), "false": datavalue.Num(2)}
	assert.Equal(t, datavalue.Num(1), exec(t, newIfElse, bind(nil), in)["output"])

	in["if"] = datavalue.Num(0)
	assert.Equal(t, datavalue.Num(2), exec(t, newIfElse, bind(nil), in)["output"])

	delete(in, "false")
	assert.True(t, exec(t, newIfElse, bind(nil), in)["output"].IsExcluded())
}

func TestCoalesce(t *testing.T) {
	b := bind(nil, into("input1"), into("input2"), into("input3"))
	in := node.Inputs{
		"input1": datavalue.Excluded(),
		"input2": datavalue.Str(""),
		"input3": datavalue.Str("third"),
	}

	assert.Equal(t, datavalue.Str("third"), exec(t, newCoalesce, b, in)["output"])

	in["conditional"] = datavalue.Excluded()
	assert.True(t, exec(t, newCoalesce, b, in)["output"].IsExcluded())
}

func TestRaceInputs(t *testing.T) {
	b := bind(nil, into("input1"), into("input2"))

	out := exec(t, newRaceInputs, b, node.Inputs{"input1": datavalue.Excluded(), "input2": datavalue.Num(2)})

	assert.Equal(t, datavalue.Num(2), out["result"])
}

func TestLoopController_Ports(t *testing.T) {
	e, err := newLoopController(bind(nil, into("input2Default"), into("continue")))
	require.NoError(t, err)

	var in, out []graph.PortID
	for _, d := range e.InputPorts() {
		in = append(in, d.ID)
	}
	for _, d := range e.OutputPorts() {
		out = append(out, d.ID)
	}
	assert.Equal(t, []graph.PortID{"continue", "input1", "input1Default", "input2", "input2Default", "input3", "input3Default"}, in)
	assert.Equal(t, []graph.PortID{"break", "iteration", "output1", "output2", "output3"}, out)
}

func TestLoopController_RejectsUnknownAction(t *testing.T) {
	_, err := newLoopController(bind(map[string]any{"atMaxIterationsAction": "explode"}))
	assert.Error(t, err)
}

type iterationContext struct {
	node.RunContext
	iteration int
}

func (c iterationContext) LoopIteration() int { return c.iteration }

func TestLoopController_BreakCarriesConnectedInputsOnly(t *testing.T) {
	// Arrange
	e, err := newLoopController(bind(nil, into("input1"), into("input1Default"), into("input2"), into("continue")))
	require.NoError(t, err)
	in := node.Inputs{
		"continue": datavalue.Bool(false),
		"input1":   datavalue.Num(3),
		"input2":   datavalue.Str("x"),
	}

	// Act
	out, err := e.Execute(context.Background(), in, iterationContext{iteration: 1})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, datavalue.Array(datavalue.Any, []any{3.0, "x"}), out.Outputs["break"])
	assert.True(t, out.Outputs["output3"].IsExcluded())
}

func TestLoopController_ContinueForwardsConnectedInputs(t *testing.T) {
	// Arrange
	e, err := newLoopController(bind(nil, into("input1"), into("input1Default")))
	require.NoError(t, err)

	// Act
	out, err := e.Execute(context.Background(), node.Inputs{"input1Default": datavalue.Num(0)}, iterationContext{})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, datavalue.Num(0), out.Outputs["output1"])
	assert.True(t, out.Outputs["break"].IsLoopNotBroken())
	_, spare := out.Outputs["output2"]
	assert.False(t, spare)
}
