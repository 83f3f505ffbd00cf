package testutil

import (
	"context"
	"errors"

	"github.com/specialistvlad/promptgridgo/internal/datavalue"
	"github.com/specialistvlad/promptgridgo/internal/node"
	"github.com/specialistvlad/promptgridgo/internal/registry"
)

var errNoResume = errors.New("test executor cannot resume")

// NoOpModule registers a "noop" kind with one "input" and one "output" port
// that passes its input through. It is useful for tests that only need a
// valid graph.
type NoOpModule struct{}

func (NoOpModule) Register(r *registry.Registry) {
	r.Register(Kind("noop", func(node.Binding) node.Executor {
		return &Func{
			In:  Ports("input"),
			Out: Ports("output"),
			Run: func(_ context.Context, in node.Inputs, _ node.RunContext) (node.Outcome, error) {
				v, ok := in.Get("input")
				if !ok {
					v = datavalue.AnyValue(nil)
				}
				return node.Succeed(node.Outputs{"output": v}), nil
			},
		}
	}))
}
