package values

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/specialistvlad/promptgridgo/internal/datavalue"
	"github.com/specialistvlad/promptgridgo/internal/node"
)

// textNode renders its template with every placeholder bound to the input
// of the same name.
type textNode struct {
	node.Ports
	text string
}

func newText(b node.Binding) (node.Executor, error) {
	text := b.Config().String("text", "")
	var in []node.PortDescriptor
	for _, name := range templateNames(text) {
		in = append(in, node.PortDescriptor{ID: graphPort(name), Title: name, DataType: datavalue.String})
	}
	return &textNode{
		Ports: node.Ports{In: in, Out: []node.PortDescriptor{{ID: "output", Title: "Output", DataType: datavalue.String}}},
		text:  text,
	}, nil
}

func (t *textNode) Execute(_ context.Context, in node.Inputs, _ node.RunContext) (node.Outcome, error) {
	out := interpolate(t.text, func(name string) (string, bool) {
		v, ok := in.Get(graphPort(name))
		return datavalue.AsString(v), ok
	})
	return node.Succeed(node.Outputs{"output": datavalue.Str(out)}), nil
}

type numberNode struct {
	node.Ports
	value    float64
	useInput bool
	round    bool
	roundTo  int
}

func newNumber(b node.Binding) (node.Executor, error) {
	cfg := b.Config()
	n := &numberNode{
		value:    cfg.Number("value", 0),
		useInput: cfg.Bool("useInput", false),
		round:    cfg.Bool("round", false),
		roundTo:  cfg.Int("roundTo", 0),
	}
	if n.useInput {
		n.In = []node.PortDescriptor{{ID: "input", Title: "Input", DataType: datavalue.Any}}
	}
	n.Out = []node.PortDescriptor{{ID: "value", Title: "Value", DataType: datavalue.Number}}
	return n, nil
}

func (n *numberNode) Execute(_ context.Context, in node.Inputs, _ node.RunContext) (node.Outcome, error) {
	f := n.value
	if v, ok := in.Get("input"); ok && n.useInput {
		parsed, err := datavalue.ToNumber(v)
		if err != nil {
			return node.Outcome{}, fmt.Errorf("number: %w", err)
		}
		f = parsed
	}
	if n.round {
		scale := math.Pow(10, float64(n.roundTo))
		f = math.Round(f*scale) / scale
	}
	return node.Succeed(node.Outputs{"value": datavalue.Num(f)}), nil
}

type booleanNode struct {
	node.Ports
	value    bool
	useInput bool
}

func newBoolean(b node.Binding) (node.Executor, error) {
	cfg := b.Config()
	n := &booleanNode{value: cfg.Bool("value", false), useInput: cfg.Bool("useInput", false)}
	if n.useInput {
		n.In = []node.PortDescriptor{{ID: "input", Title: "Input", DataType: datavalue.Any}}
	}
	n.Out = []node.PortDescriptor{{ID: "value", Title: "Value", DataType: datavalue.Boolean}}
	return n, nil
}

func (n *booleanNode) Execute(_ context.Context, in node.Inputs, _ node.RunContext) (node.Outcome, error) {
	b := n.value
	if v, ok := in.Get("input"); ok && n.useInput {
		b = datavalue.AsBool(v)
	}
	return node.Succeed(node.Outputs{"value": datavalue.Bool(b)}), nil
}

// objectNode renders a JSON template. Placeholders take the JSON encoding of
// the matching input, so {"n": {{n}}} yields a number for a numeric input.
type objectNode struct {
	node.Ports
	tmpl string
}

func newObject(b node.Binding) (node.Executor, error) {
	tmpl := b.Config().String("jsonTemplate", "{}")
	var in []node.PortDescriptor
	for _, name := range templateNames(tmpl) {
		in = append(in, node.PortDescriptor{ID: graphPort(name), Title: name, DataType: datavalue.Any})
	}
	return &objectNode{
		Ports: node.Ports{In: in, Out: []node.PortDescriptor{{ID: "output", Title: "Output", DataType: datavalue.Object}}},
		tmpl:  tmpl,
	}, nil
}

func (o *objectNode) Execute(_ context.Context, in node.Inputs, _ node.RunContext) (node.Outcome, error) {
	var encodeErr error
	src := interpolate(o.tmpl, func(name string) (string, bool) {
		v, ok := in.Get(graphPort(name))
		if !ok {
			return "null", true
		}
		b, err := json.Marshal(v.Data)
		if err != nil {
			encodeErr = fmt.Errorf("object: input %s: %w", name, err)
		}
		return string(b), true
	})
	if encodeErr != nil {
		return node.Outcome{}, encodeErr
	}
	var parsed any
	if err := json.Unmarshal([]byte(src), &parsed); err != nil {
		return node.Outcome{}, fmt.Errorf("object: rendered template is not valid JSON: %w", err)
	}
	if list, ok := parsed.([]any); ok {
		return node.Succeed(node.Outputs{"output": datavalue.Infer(list)}), nil
	}
	return node.Succeed(node.Outputs{"output": datavalue.Obj(parsed)}), nil
}
