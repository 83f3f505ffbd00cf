package extract

import (
	"context"
	"fmt"

	"github.com/specialistvlad/promptgridgo/internal/datavalue"
	"github.com/specialistvlad/promptgridgo/internal/node"
)

type extractObjectPathNode struct {
	node.Ports
	cfg node.Config
}

func newExtractObjectPath(b node.Binding) (node.Executor, error) {
	cfg := b.Config()
	in := []node.PortDescriptor{{ID: "object", Title: "Object", DataType: datavalue.Object, Required: true}}
	if cfg.UseInput("path") {
		in = append(in, node.PortDescriptor{ID: "path", Title: "Path", DataType: datavalue.String})
	}
	return &extractObjectPathNode{
		Ports: node.Ports{In: in, Out: []node.PortDescriptor{
			{ID: "match", Title: "Match", DataType: datavalue.Any},
			{ID: "all_matches", Title: "All Matches", DataType: datavalue.ArrayOf(datavalue.Any)},
		}},
		cfg: cfg,
	}, nil
}

func (e *extractObjectPathNode) Execute(ctx context.Context, in node.Inputs, _ node.RunContext) (node.Outcome, error) {
	path := datavalue.AsString(node.InputOr(e.cfg, in, "path", "path", datavalue.String))
	if path == "" {
		return node.Outcome{}, fmt.Errorf("extractObjectPath: path is required")
	}
	obj, _ := in.Get("object")
	results, err := query(ctx, path, datavalue.AsObject(obj))
	if err != nil {
		return node.Outcome{}, err
	}

	match := datavalue.Excluded()
	if len(results) > 0 {
		match = datavalue.Infer(results[0])
	}
	return node.Succeed(node.Outputs{
		"match":       match,
		"all_matches": datavalue.Array(datavalue.Any, results),
	}), nil
}
