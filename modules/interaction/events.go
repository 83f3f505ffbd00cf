package interaction

import (
	"context"
	"errors"

	"github.com/specialistvlad/promptgridgo/internal/datavalue"
	"github.com/specialistvlad/promptgridgo/internal/node"
)

var errNoEventName = errors.New("event name is required")

func eventNamePorts(cfg node.Config, in ...node.PortDescriptor) []node.PortDescriptor {
	if cfg.UseInput("eventName") {
		in = append(in, node.PortDescriptor{ID: "eventName", Title: "Event Name", DataType: datavalue.String})
	}
	return in
}

func eventName(cfg node.Config, in node.Inputs) (string, error) {
	name := datavalue.AsString(node.InputOr(cfg, in, "eventName", "eventName", datavalue.String))
	if name == "" {
		return "", errNoEventName
	}
	return name, nil
}

type raiseEventNode struct {
	node.Ports
	cfg node.Config
}

func newRaiseEvent(b node.Binding) (node.Executor, error) {
	cfg := b.Config()
	return &raiseEventNode{
		Ports: node.Ports{
			In:  eventNamePorts(cfg, node.PortDescriptor{ID: "data", Title: "Data", DataType: datavalue.Any}),
			Out: []node.PortDescriptor{{ID: "result", Title: "Result", DataType: datavalue.Any}},
		},
		cfg: cfg,
	}, nil
}

func (r *raiseEventNode) Execute(_ context.Context, in node.Inputs, rc node.RunContext) (node.Outcome, error) {
	name, err := eventName(r.cfg, in)
	if err != nil {
		return node.Outcome{}, err
	}
	data, ok := in.Get("data")
	if !ok {
		data = datavalue.AnyValue(nil)
	}
	rc.RaiseEvent(name, data)
	return node.Succeed(node.Outputs{"result": data}), nil
}

// waitForEventNode blocks until a user event of the configured name is
// raised, then forwards inputData along with the event's data.
type waitForEventNode struct {
	node.Ports
	cfg node.Config
}

func newWaitForEvent(b node.Binding) (node.Executor, error) {
	cfg := b.Config()
	return &waitForEventNode{
		Ports: node.Ports{
			In: eventNamePorts(cfg, node.PortDescriptor{ID: "inputData", Title: "Data", DataType: datavalue.Any}),
			Out: []node.PortDescriptor{
				{ID: "outputData", Title: "Data", DataType: datavalue.Any},
				{ID: "eventData", Title: "Event Data", DataType: datavalue.Any},
			},
		},
		cfg: cfg,
	}, nil
}

func (w *waitForEventNode) Execute(ctx context.Context, in node.Inputs, rc node.RunContext) (node.Outcome, error) {
	name, err := eventName(w.cfg, in)
	if err != nil {
		return node.Outcome{}, err
	}
	data, err := rc.WaitForEvent(ctx, name)
	if err != nil {
		return node.Outcome{}, err
	}
	passed, ok := in.Get("inputData")
	if !ok {
		passed = datavalue.AnyValue(nil)
	}
	return node.Succeed(node.Outputs{"outputData": passed, "eventData": data}), nil
}
