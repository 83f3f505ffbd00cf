package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/promptgridgo/internal/datavalue"
	"github.com/specialistvlad/promptgridgo/internal/graph"
	"github.com/specialistvlad/promptgridgo/internal/node"
	"golang.org/x/sync/errgroup"
)

// splitRun executes a node once per element of its array inputs. Non-array
// inputs are broadcast to every run and the run count is the length of the
// shortest array. Outputs are gathered per port into arrays.
func splitRun(ctx context.Context, exec node.Executor, n *graph.Node, in node.Inputs, rc node.RunContext) (node.Outcome, error) {
	count := -1
	items := make(map[graph.PortID][]datavalue.Value)
	for port, v := range in {
		if !v.Kind.IsArray() {
			continue
		}
		items[port] = datavalue.Items(v)
		if count < 0 || len(items[port]) < count {
			count = len(items[port])
		}
	}
	if count < 0 {
		return exec.Execute(ctx, in, rc)
	}

	limit := n.SplitRunMax
	if limit <= 0 {
		limit = DefaultSplitRunMax
	}

	results := make([]node.Outputs, count)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := 0; i < count; i++ {
		runIn := make(node.Inputs, len(in))
		for port, v := range in {
			if list, ok := items[port]; ok {
				runIn[port] = list[i]
			} else {
				runIn[port] = v
			}
		}
		g.Go(func() (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					err = fmt.Errorf("split run %d: panic in %s node: %v", i, n.Kind, rec)
				}
			}()
			outcome, err := exec.Execute(gctx, runIn, rc)
			if err != nil {
				return fmt.Errorf("split run %d: %w", i, err)
			}
			if outcome.Suspended() {
				return errors.New("user input is not supported in a split run")
			}
			if !outcome.Excluded() {
				results[i] = outcome.Outputs
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return node.Outcome{}, err
	}
	return node.Succeed(aggregate(exec.OutputPorts(), results)), nil
}

func aggregate(ports []node.PortDescriptor, results []node.Outputs) node.Outputs {
	out := make(node.Outputs, len(ports))
	for _, d := range ports {
		data := make([]any, len(results))
		var elem datavalue.Kind
		for i, res := range results {
			v, ok := res[d.ID]
			if !ok || v.IsExcluded() {
				elem = datavalue.Any
				continue
			}
			data[i] = v.Data
			switch {
			case v.Kind.IsArray():
				elem = datavalue.Any
			case elem == "":
				elem = v.Kind
			case elem != v.Kind:
				elem = datavalue.Any
			}
		}
		if elem == "" {
			elem = d.DataType
			if elem == "" || elem.IsArray() {
				elem = datavalue.Any
			}
		}
		out[d.ID] = datavalue.Array(elem, data)
	}
	return out
}
