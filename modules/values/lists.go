package values

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/specialistvlad/promptgridgo/internal/datavalue"
	"github.com/specialistvlad/promptgridgo/internal/node"
)

// arrayNode gathers input1..N into one array. Array inputs are flattened
// one level unless flatten is off; flattenDeep flattens all levels.
type arrayNode struct {
	node.Ports
	flatten bool
	deep    bool
}

func newArray(b node.Binding) (node.Executor, error) {
	cfg := b.Config()
	n := node.NumberedPortCount(b.Incoming, "input") + 1
	return &arrayNode{
		Ports: node.Ports{
			In: node.NumberedPorts("input", "", n, datavalue.Any),
			Out: []node.PortDescriptor{
				{ID: "output", Title: "Output", DataType: datavalue.ArrayOf(datavalue.Any)},
				{ID: "indices", Title: "Indices", DataType: datavalue.ArrayOf(datavalue.Number)},
			},
		},
		flatten: cfg.Bool("flatten", true),
		deep:    cfg.Bool("flattenDeep", false),
	}, nil
}

func (a *arrayNode) Execute(_ context.Context, in node.Inputs, _ node.RunContext) (node.Outcome, error) {
	var items []any
	for _, d := range a.In {
		v, ok := in.Get(d.ID)
		if !ok || v.IsExcluded() {
			continue
		}
		if (a.flatten || a.deep) && v.Kind.IsArray() {
			items = append(items, flattenItems(datavalue.Items(v), a.deep)...)
			continue
		}
		items = append(items, v.Data)
	}
	indices := make([]any, len(items))
	for i := range items {
		indices[i] = float64(i)
	}
	return node.Succeed(node.Outputs{
		"output":  datavalue.Infer(items),
		"indices": datavalue.Array(datavalue.Number, indices),
	}), nil
}

func flattenItems(items []datavalue.Value, deep bool) []any {
	var out []any
	for _, it := range items {
		if deep && it.Kind.IsArray() {
			out = append(out, flattenItems(datavalue.Items(it), true)...)
			continue
		}
		out = append(out, it.Data)
	}
	return out
}

type toJSONNode struct {
	node.Ports
	indented bool
}

func newToJSON(b node.Binding) (node.Executor, error) {
	return &toJSONNode{
		Ports: node.Ports{
			In:  []node.PortDescriptor{{ID: "data", Title: "Data", DataType: datavalue.Any}},
			Out: []node.PortDescriptor{{ID: "text", Title: "JSON", DataType: datavalue.String}},
		},
		indented: b.Config().Bool("indented", true),
	}, nil
}

func (t *toJSONNode) Execute(_ context.Context, in node.Inputs, _ node.RunContext) (node.Outcome, error) {
	v, _ := in.Get("data")
	var (
		b   []byte
		err error
	)
	if t.indented {
		b, err = json.MarshalIndent(v.Data, "", "  ")
	} else {
		b, err = json.Marshal(v.Data)
	}
	if err != nil {
		return node.Outcome{}, fmt.Errorf("toJson: %w", err)
	}
	return node.Succeed(node.Outputs{"text": datavalue.Str(string(b))}), nil
}

// passthroughNode forwards inputN to outputN untouched.
type passthroughNode struct {
	node.Ports
	count int
}

func newPassthrough(b node.Binding) (node.Executor, error) {
	n := node.NumberedPortCount(b.Incoming, "input") + 1
	return &passthroughNode{
		Ports: node.Ports{
			In:  node.NumberedPorts("input", "", n, datavalue.Any),
			Out: node.NumberedPorts("output", "", n, datavalue.Any),
		},
		count: n,
	}, nil
}

func (p *passthroughNode) Execute(_ context.Context, in node.Inputs, _ node.RunContext) (node.Outcome, error) {
	out := node.Outputs{}
	for i := range p.count {
		if v, ok := in.Get(p.In[i].ID); ok {
			out[p.Out[i].ID] = v
		}
	}
	return node.Succeed(out), nil
}

type joinNode struct {
	node.Ports
	cfg node.Config
}

func newJoin(b node.Binding) (node.Executor, error) {
	cfg := b.Config()
	in := []node.PortDescriptor{{ID: "input", Title: "Input", DataType: datavalue.ArrayOf(datavalue.String)}}
	if cfg.UseInput("joinString") {
		in = append(in, node.PortDescriptor{ID: "joinString", Title: "Join String", DataType: datavalue.String})
	}
	return &joinNode{
		Ports: node.Ports{In: in, Out: []node.PortDescriptor{{ID: "output", Title: "Joined", DataType: datavalue.String}}},
		cfg:   cfg,
	}, nil
}

func (j *joinNode) Execute(_ context.Context, in node.Inputs, _ node.RunContext) (node.Outcome, error) {
	sep := "\n"
	if _, set := j.cfg.Value("joinString"); set || j.cfg.UseInput("joinString") {
		sep = datavalue.AsString(node.InputOr(j.cfg, in, "joinString", "joinString", datavalue.String))
	}
	v, _ := in.Get("input")
	var parts []string
	for _, it := range datavalue.Items(v) {
		parts = append(parts, datavalue.AsString(it))
	}
	return node.Succeed(node.Outputs{"output": datavalue.Str(strings.Join(parts, sep))}), nil
}

type splitNode struct {
	node.Ports
	cfg   node.Config
	regex bool
}

func newSplit(b node.Binding) (node.Executor, error) {
	cfg := b.Config()
	in := []node.PortDescriptor{{ID: "string", Title: "String", DataType: datavalue.String, Required: true}}
	if cfg.UseInput("delimiter") {
		in = append(in, node.PortDescriptor{ID: "delimiter", Title: "Delimiter", DataType: datavalue.String})
	}
	return &splitNode{
		Ports: node.Ports{In: in, Out: []node.PortDescriptor{{ID: "splitString", Title: "Split", DataType: datavalue.ArrayOf(datavalue.String)}}},
		cfg:   cfg,
		regex: cfg.Bool("regex", false),
	}, nil
}

func (s *splitNode) Execute(_ context.Context, in node.Inputs, _ node.RunContext) (node.Outcome, error) {
	delim := ","
	if _, set := s.cfg.Value("delimiter"); set || s.cfg.UseInput("delimiter") {
		delim = datavalue.AsString(node.InputOr(s.cfg, in, "delimiter", "delimiter", datavalue.String))
	}
	delim = strings.ReplaceAll(delim, `\n`, "\n")
	v, _ := in.Get("string")
	str := datavalue.AsString(v)

	var parts []string
	if s.regex {
		re, err := regexp.Compile(delim)
		if err != nil {
			return node.Outcome{}, fmt.Errorf("split: invalid delimiter pattern: %w", err)
		}
		parts = re.Split(str, -1)
	} else {
		parts = strings.Split(str, delim)
	}
	items := make([]any, len(parts))
	for i, p := range parts {
		items[i] = p
	}
	return node.Succeed(node.Outputs{"splitString": datavalue.Array(datavalue.String, items)}), nil
}
