package flow

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/specialistvlad/promptgridgo/internal/datavalue"
	"github.com/specialistvlad/promptgridgo/internal/node"
)

// abortGraphNode ends the run early, either successfully or with an error
// message taken from the data input or the config.
type abortGraphNode struct {
	node.Ports
	cfg node.Config
}

func newAbortGraph(b node.Binding) (node.Executor, error) {
	cfg := b.Config()
	in := []node.PortDescriptor{{ID: "data", Title: "Data or Error", DataType: datavalue.Any}}
	if cfg.UseInput("successfully") {
		in = append(in, node.PortDescriptor{ID: "successfully", Title: "Successfully", DataType: datavalue.Boolean})
	}
	return &abortGraphNode{Ports: node.Ports{In: in}, cfg: cfg}, nil
}

func (a *abortGraphNode) Execute(_ context.Context, in node.Inputs, rc node.RunContext) (node.Outcome, error) {
	successful := a.cfg.Bool("successfully", true)
	if v, ok := in.Get("successfully"); ok && a.cfg.UseInput("successfully") {
		successful = datavalue.AsBool(v)
	}
	if successful {
		rc.AbortGraph(true, nil)
		return node.Succeed(nil), nil
	}

	msg := ""
	if v, ok := in.Get("data"); ok {
		msg = strings.TrimSpace(datavalue.AsString(v))
	}
	if msg == "" {
		msg = a.cfg.String("errorMessage", "")
	}
	if msg == "" {
		msg = "Graph aborted with error"
	}
	rc.AbortGraph(false, errors.New(msg))
	return node.Succeed(nil), nil
}

// delayNode waits, then passes inputN through to outputN.
type delayNode struct {
	node.Ports
	cfg   node.Config
	count int
}

func newDelay(b node.Binding) (node.Executor, error) {
	cfg := b.Config()
	count := inputCount(b.Incoming, "input")
	in := node.NumberedPorts("input", "", count, datavalue.Any)
	if cfg.UseInput("delay") {
		in = append(in, node.PortDescriptor{ID: "delay", Title: "Delay (ms)", DataType: datavalue.Number})
	}
	return &delayNode{
		Ports: node.Ports{In: in, Out: node.NumberedPorts("output", "", count, datavalue.Any)},
		cfg:   cfg,
		count: count,
	}, nil
}

func (d *delayNode) Execute(ctx context.Context, in node.Inputs, _ node.RunContext) (node.Outcome, error) {
	ms := datavalue.AsNumber(node.InputOr(d.cfg, in, "delay", "delay", datavalue.Number))
	timer := time.NewTimer(time.Duration(ms * float64(time.Millisecond)))
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return node.Outcome{}, context.Cause(ctx)
	}

	out := node.Outputs{}
	for i := 1; i <= d.count; i++ {
		if v, ok := in.Get(port("input", i, "")); ok {
			out[port("output", i, "")] = v
		}
	}
	return node.Succeed(out), nil
}
