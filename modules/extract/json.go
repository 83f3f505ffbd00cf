package extract

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/specialistvlad/promptgridgo/internal/datavalue"
	"github.com/specialistvlad/promptgridgo/internal/node"
)

// extractJSONNode parses the outermost JSON object or array found in its
// input text. Text that holds none goes to noMatch.
type extractJSONNode struct {
	node.Ports
}

func newExtractJSON(node.Binding) (node.Executor, error) {
	return &extractJSONNode{Ports: node.Ports{
		In: []node.PortDescriptor{{ID: "input", Title: "Input", DataType: datavalue.String, Required: true}},
		Out: []node.PortDescriptor{
			{ID: "output", Title: "Output", DataType: datavalue.Object},
			{ID: "noMatch", Title: "No Match", DataType: datavalue.String},
		},
	}}, nil
}

func (e *extractJSONNode) Execute(_ context.Context, in node.Inputs, _ node.RunContext) (node.Outcome, error) {
	v, _ := in.Get("input")
	text := datavalue.AsString(v)
	parsed, ok := findJSON(text)
	if !ok {
		return node.Succeed(node.Outputs{"output": datavalue.Excluded(), "noMatch": datavalue.Str(text)}), nil
	}
	out := datavalue.Obj(parsed)
	if list, isList := parsed.([]any); isList {
		out = datavalue.Infer(list)
	}
	return node.Succeed(node.Outputs{"output": out, "noMatch": datavalue.Excluded()}), nil
}

func findJSON(text string) (any, bool) {
	first := minIndex(strings.Index(text, "{"), strings.Index(text, "["))
	last := max(strings.LastIndex(text, "}"), strings.LastIndex(text, "]"))
	if first < 0 || last < first {
		return nil, false
	}
	var out any
	if err := json.Unmarshal([]byte(text[first:last+1]), &out); err != nil {
		return nil, false
	}
	return out, true
}

// minIndex returns the smaller non-negative index, or -1.
func minIndex(a, b int) int {
	switch {
	case a < 0:
		return b
	case b < 0:
		return a
	default:
		return min(a, b)
	}
}
