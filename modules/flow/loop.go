package flow

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/specialistvlad/promptgridgo/internal/datavalue"
	"github.com/specialistvlad/promptgridgo/internal/graph"
	"github.com/specialistvlad/promptgridgo/internal/node"
)

const defaultMaxIterations = 100

// loopController closes a cycle. Each run forwards inputN (or inputNDefault
// on the first pass) to outputN and either keeps iterating, with break set
// to loop-not-broken, or breaks, with break carrying every inputN value.
type loopController struct {
	node.Ports
	count         int
	connected     int
	maxIterations int
	breakAtMax    bool
}

func newLoopController(b node.Binding) (node.Executor, error) {
	cfg := b.Config()
	count := 0
	for _, c := range b.Incoming {
		id := strings.TrimSuffix(strings.TrimPrefix(string(c.InputID), "input"), "Default")
		if n, err := strconv.Atoi(id); err == nil && n > count {
			count = n
		}
	}
	connected := count
	// One spare pair so the next input can be wired.
	count++

	in := []node.PortDescriptor{{ID: "continue", Title: "Continue", DataType: datavalue.Boolean}}
	for i := 1; i <= count; i++ {
		in = append(in,
			node.PortDescriptor{ID: graph.PortID(fmt.Sprintf("input%d", i)), Title: fmt.Sprintf("Input %d", i), DataType: datavalue.Any},
			node.PortDescriptor{ID: graph.PortID(fmt.Sprintf("input%dDefault", i)), Title: fmt.Sprintf("Input %d Default", i), DataType: datavalue.Any},
		)
	}
	out := []node.PortDescriptor{
		{ID: "break", Title: "Break", DataType: datavalue.ArrayOf(datavalue.Any)},
		{ID: "iteration", Title: "Iteration", DataType: datavalue.Number},
	}
	out = append(out, node.NumberedPorts("output", "", count, datavalue.Any)...)

	action := cfg.String("atMaxIterationsAction", "error")
	if action != "break" && action != "error" {
		return nil, fmt.Errorf("atMaxIterationsAction must be break or error, got %q", action)
	}
	return &loopController{
		Ports:         node.Ports{In: in, Out: out},
		count:         count,
		connected:     connected,
		maxIterations: cfg.Int("maxIterations", defaultMaxIterations),
		breakAtMax:    action == "break",
	}, nil
}

func (*loopController) IsLoopController() bool { return true }
func (*loopController) ToleratesExclusion() bool { return true }

func (l *loopController) Execute(_ context.Context, in node.Inputs, rc node.RunContext) (node.Outcome, error) {
	out := node.Outputs{}
	for i := 1; i <= l.count; i++ {
		if v, ok := in.Get(port("input", i, "Default")); ok && v.IsExcluded() {
			for j := 1; j <= l.count; j++ {
				out[port("output", j, "")] = datavalue.Excluded()
			}
			out["break"] = datavalue.Excluded()
			return node.Succeed(out), nil
		}
	}

	iteration := rc.LoopIteration()
	out["iteration"] = datavalue.Num(float64(iteration + 1))
	if iteration >= l.maxIterations && !l.breakAtMax {
		return node.Outcome{}, fmt.Errorf("loop controller exceeded max iterations of %d", l.maxIterations)
	}

	keepGoing := true
	if v, ok := in.Get("continue"); ok {
		keepGoing = !v.IsExcluded() && datavalue.AsBool(v)
	}
	if iteration >= l.maxIterations && l.breakAtMax {
		keepGoing = false
	}

	if !keepGoing {
		values := make([]any, 0, l.connected)
		for i := 1; i <= l.count; i++ {
			out[port("output", i, "")] = datavalue.Excluded()
			if i > l.connected {
				continue
			}
			v, _ := in.Get(port("input", i, ""))
			values = append(values, v.Data)
		}
		out["break"] = datavalue.Array(datavalue.Any, values)
		return node.Succeed(out), nil
	}

	out["break"] = datavalue.LoopNotBroken()
	for i := 1; i <= l.connected; i++ {
		v, ok := in.Get(port("input", i, ""))
		if !ok {
			v, ok = in.Get(port("input", i, "Default"))
		}
		if !ok {
			v = datavalue.Excluded()
		}
		out[port("output", i, "")] = v
	}
	return node.Succeed(out), nil
}

func port(prefix string, i int, suffix string) graph.PortID {
	return graph.PortID(prefix + strconv.Itoa(i) + suffix)
}
