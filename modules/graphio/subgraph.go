package graphio

import (
	"context"
	"fmt"
	"time"

	"github.com/specialistvlad/promptgridgo/internal/ctxlog"
	"github.com/specialistvlad/promptgridgo/internal/datavalue"
	"github.com/specialistvlad/promptgridgo/internal/graph"
	"github.com/specialistvlad/promptgridgo/internal/node"
)

// subGraphNode runs another graph of the project. Its ports mirror the
// target's graphInput and graphOutput nodes.
type subGraphNode struct {
	node.Ports
	target    graph.GraphID
	inputIDs  []string
	outputIDs []string
	withError bool
}

func newSubGraph(b node.Binding) (node.Executor, error) {
	cfg := b.Config()
	if b.Project == nil {
		return nil, fmt.Errorf("subGraph: no project bound")
	}
	target, err := b.Project.Lookup(cfg.String("graphId", ""))
	if err != nil {
		return nil, fmt.Errorf("subGraph: %w", err)
	}

	s := &subGraphNode{target: target.ID, withError: cfg.Bool("useErrorOutput", false)}
	for _, n := range target.NodesOfKind("graphInput") {
		nc := node.Config(n.Config)
		id := nc.String("id", "")
		s.inputIDs = append(s.inputIDs, id)
		s.In = append(s.In, node.PortDescriptor{ID: graph.PortID(id), Title: id, DataType: nc.Kind("dataType", datavalue.String)})
	}
	for _, n := range target.NodesOfKind("graphOutput") {
		nc := node.Config(n.Config)
		id := nc.String("id", "")
		s.outputIDs = append(s.outputIDs, id)
		s.Out = append(s.Out, node.PortDescriptor{ID: graph.PortID(id), Title: id, DataType: nc.Kind("dataType", datavalue.String)})
	}
	s.Out = append(s.Out, node.PortDescriptor{ID: "duration", Title: "Duration", DataType: datavalue.Number})
	if s.withError {
		s.Out = append(s.Out, node.PortDescriptor{ID: "error", Title: "Error", DataType: datavalue.String})
	}
	return s, nil
}

func (s *subGraphNode) Execute(ctx context.Context, in node.Inputs, rc node.RunContext) (node.Outcome, error) {
	logger := ctxlog.FromContext(ctx).With("target", s.target)
	inputs := make(map[string]datavalue.Value, len(s.inputIDs))
	for _, id := range s.inputIDs {
		if v, ok := in.Get(graph.PortID(id)); ok {
			inputs[id] = v
		}
	}

	logger.Debug("▶️ Starting sub-graph")
	start := time.Now()
	outputs, err := rc.RunSubgraph(ctx, s.target, inputs)
	duration := datavalue.Num(float64(time.Since(start).Milliseconds()))

	if err != nil {
		if !s.withError {
			return node.Outcome{}, fmt.Errorf("subGraph %s: %w", s.target, err)
		}
		logger.Warn("❌ Sub-graph failed, routing to error output", "error", err)
		out := node.Outputs{"duration": duration, "error": datavalue.Str(err.Error())}
		for _, id := range s.outputIDs {
			out[graph.PortID(id)] = datavalue.Excluded()
		}
		return node.Succeed(out), nil
	}

	out := node.Outputs{"duration": duration}
	for _, id := range s.outputIDs {
		v, ok := outputs[id]
		if !ok || v.IsZero() {
			v = datavalue.Excluded()
		}
		out[graph.PortID(id)] = v
	}
	if s.withError {
		out["error"] = datavalue.Excluded()
	}
	return node.Succeed(out), nil
}
