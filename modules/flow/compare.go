package flow

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/specialistvlad/promptgridgo/internal/datavalue"
	"github.com/specialistvlad/promptgridgo/internal/node"
)

type compareNode struct {
	node.Ports
	cfg node.Config
}

func newCompare(b node.Binding) (node.Executor, error) {
	cfg := b.Config()
	in := []node.PortDescriptor{
		{ID: "a", Title: "A", DataType: datavalue.Any},
		{ID: "b", Title: "B", DataType: datavalue.Any},
	}
	if cfg.UseInput("comparisonFunction") {
		in = append(in, node.PortDescriptor{ID: "comparisonFunction", Title: "Comparison Function", DataType: datavalue.String})
	}
	return &compareNode{
		Ports: node.Ports{In: in, Out: []node.PortDescriptor{{ID: "output", Title: "Output", DataType: datavalue.Boolean}}},
		cfg:   cfg,
	}, nil
}

func (c *compareNode) Execute(_ context.Context, in node.Inputs, _ node.RunContext) (node.Outcome, error) {
	op := datavalue.AsString(node.InputOr(c.cfg, in, "comparisonFunction", "comparisonFunction", datavalue.String))
	if op == "" {
		op = "=="
	}
	a, hasA := in.Get("a")
	b, hasB := in.Get("b")
	if !hasA {
		switch op {
		case "==":
			return boolOut(!hasB), nil
		case "!=":
			return boolOut(hasB), nil
		default:
			return boolOut(false), nil
		}
	}
	if hasB && b.Kind != a.Kind {
		if coerced, err := datavalue.Coerce(b, a.Kind); err == nil {
			b = coerced
		}
	}

	x, y := datavalue.AsBool(a), hasB && datavalue.AsBool(b)
	var result bool
	switch op {
	case "==":
		result = hasB && datavalue.Equal(a, b)
	case "!=":
		result = !hasB || !datavalue.Equal(a, b)
	case "<", "<=", ">", ">=":
		result = hasB && ordered(op, a, b)
	case "and":
		result = x && y
	case "or":
		result = x || y
	case "xor":
		result = x != y
	case "nand":
		result = !(x && y)
	case "nor":
		result = !(x || y)
	case "xnor":
		result = x == y
	default:
		return node.Outcome{}, fmt.Errorf("unknown comparison function %q", op)
	}
	return boolOut(result), nil
}

func ordered(op string, a, b datavalue.Value) bool {
	var cmp int
	if a.Kind == datavalue.String && b.Kind == datavalue.String {
		cmp = strings.Compare(datavalue.AsString(a), datavalue.AsString(b))
	} else {
		x, y := datavalue.AsNumber(a), datavalue.AsNumber(b)
		switch {
		case x < y:
			cmp = -1
		case x > y:
			cmp = 1
		}
	}
	switch op {
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	default:
		return cmp >= 0
	}
}

func boolOut(b bool) node.Outcome {
	return node.Succeed(node.Outputs{"output": datavalue.Bool(b)})
}

type evaluateNode struct {
	node.Ports
	cfg node.Config
}

func newEvaluate(b node.Binding) (node.Executor, error) {
	cfg := b.Config()
	in := []node.PortDescriptor{
		{ID: "a", Title: "A", DataType: datavalue.Number},
		{ID: "b", Title: "B", DataType: datavalue.Number},
	}
	if cfg.UseInput("operation") {
		in = append(in, node.PortDescriptor{ID: "operation", Title: "Operation", DataType: datavalue.String})
	}
	return &evaluateNode{
		Ports: node.Ports{In: in, Out: []node.PortDescriptor{{ID: "output", Title: "Output", DataType: datavalue.Number}}},
		cfg:   cfg,
	}, nil
}

func (e *evaluateNode) Execute(_ context.Context, in node.Inputs, _ node.RunContext) (node.Outcome, error) {
	op := datavalue.AsString(node.InputOr(e.cfg, in, "operation", "operation", datavalue.String))
	if op == "" {
		op = "+"
	}
	a, hasA, err := numberInput(in, "a")
	if err != nil {
		return node.Outcome{}, err
	}
	if hasA {
		switch op {
		case "abs":
			return numberOut(math.Abs(a)), nil
		case "negate":
			return numberOut(-a), nil
		}
	}
	b, hasB, err := numberInput(in, "b")
	if err != nil {
		return node.Outcome{}, err
	}
	if !hasA || !hasB {
		return node.Outcome{}, fmt.Errorf("evaluate %q: missing input", op)
	}

	switch op {
	case "+":
		return numberOut(a + b), nil
	case "-":
		return numberOut(a - b), nil
	case "*":
		return numberOut(a * b), nil
	case "/":
		return numberOut(a / b), nil
	case "^":
		return numberOut(math.Pow(a, b)), nil
	case "%":
		return numberOut(math.Mod(a, b)), nil
	default:
		return node.Outcome{}, fmt.Errorf("unknown operation %q", op)
	}
}

func numberInput(in node.Inputs, port string) (float64, bool, error) {
	v, ok := in.Get(graphPort(port))
	if !ok || v.IsExcluded() {
		return 0, false, nil
	}
	f, err := datavalue.ToNumber(v)
	if err != nil {
		return 0, false, fmt.Errorf("input %s: %w", port, err)
	}
	return f, true, nil
}

func numberOut(f float64) node.Outcome {
	return node.Succeed(node.Outputs{"output": datavalue.Num(f)})
}
