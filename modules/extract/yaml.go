package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/specialistvlad/promptgridgo/internal/datavalue"
	"github.com/specialistvlad/promptgridgo/internal/node"
	"gopkg.in/yaml.v3"
)

// extractYAMLNode finds a YAML document in text, starting at a line that
// holds only "<rootPropertyName>:". Trailing lines that break parsing are
// dropped one by one.
type extractYAMLNode struct {
	node.Ports
	root       string
	objectPath string
	start      *regexp.Regexp
}

func newExtractYAML(b node.Binding) (node.Executor, error) {
	cfg := b.Config()
	root := cfg.String("rootPropertyName", "yamlDocument")
	out := []node.PortDescriptor{
		{ID: "output", Title: "Output", DataType: datavalue.Object},
		{ID: "noMatch", Title: "No Match", DataType: datavalue.String},
	}
	objectPath := cfg.String("objectPath", "")
	if objectPath != "" {
		out = append(out, node.PortDescriptor{ID: "matches", Title: "Matches", DataType: datavalue.ArrayOf(datavalue.Any)})
	}
	return &extractYAMLNode{
		Ports: node.Ports{
			In:  []node.PortDescriptor{{ID: "input", Title: "Input", DataType: datavalue.String, Required: true}},
			Out: out,
		},
		root:       root,
		objectPath: objectPath,
		start:      regexp.MustCompile(`(?m)^` + regexp.QuoteMeta(root) + `:\s*$`),
	}, nil
}

func (e *extractYAMLNode) Execute(ctx context.Context, in node.Inputs, _ node.RunContext) (node.Outcome, error) {
	v, _ := in.Get("input")
	text := datavalue.AsString(v)

	doc, ok := e.find(text)
	if !ok {
		out := node.Outputs{"output": datavalue.Excluded(), "noMatch": datavalue.Str(text)}
		if e.objectPath != "" {
			out["matches"] = datavalue.Excluded()
		}
		return node.Succeed(out), nil
	}

	out := node.Outputs{"output": datavalue.Obj(doc), "noMatch": datavalue.Excluded()}
	if e.objectPath != "" {
		results, err := query(ctx, e.objectPath, doc)
		if err != nil {
			return node.Outcome{}, err
		}
		out["matches"] = datavalue.Array(datavalue.Any, results)
	}
	return node.Succeed(out), nil
}

func (e *extractYAMLNode) find(text string) (any, bool) {
	loc := e.start.FindStringIndex(text)
	if loc == nil {
		return nil, false
	}
	lines := strings.Split(text[loc[0]:], "\n")
	for end := len(lines); end > 0; end-- {
		var doc map[string]any
		if err := yaml.Unmarshal([]byte(strings.Join(lines[:end], "\n")), &doc); err != nil {
			continue
		}
		value, ok := doc[e.root]
		if !ok || value == nil {
			continue
		}
		normalized, err := normalize(value)
		if err != nil {
			return nil, false
		}
		return normalized, true
	}
	return nil, false
}
