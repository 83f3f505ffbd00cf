package scheduler

import (
	"context"

	"github.com/specialistvlad/promptgridgo/internal/datavalue"
	"github.com/specialistvlad/promptgridgo/internal/event"
	"github.com/specialistvlad/promptgridgo/internal/graph"
	"github.com/specialistvlad/promptgridgo/internal/httpprovider"
	"github.com/specialistvlad/promptgridgo/internal/nativeapi"
	"github.com/specialistvlad/promptgridgo/internal/node"
)

// runContext is the node.RunContext handed to one execution.
type runContext struct {
	r         *run
	id        graph.NodeID
	kind      string
	processID string
	iteration int
}

var _ node.RunContext = (*runContext)(nil)

func (rc *runContext) RunID() string { return rc.r.p.runID }
func (rc *runContext) GraphID() graph.GraphID { return rc.r.p.graph.ID }
func (rc *runContext) NodeID() graph.NodeID { return rc.id }
func (rc *runContext) Project() *graph.Project { return rc.r.p.project }
func (rc *runContext) Settings() node.Settings { return rc.r.p.opts.settings }
func (rc *runContext) Aborted() bool { return rc.r.p.aborted() }
func (rc *runContext) LoopIteration() int { return rc.iteration }

func (rc *runContext) GraphInput(id string) (datavalue.Value, bool) {
	v, ok := rc.r.inputs[id]
	return v, ok
}

func (rc *runContext) ContextValue(id string) (datavalue.Value, bool) {
	v, ok := rc.r.contextValues[id]
	return v, ok
}

func (rc *runContext) Env() map[string]string {
	if rc.r.p.opts.env == nil {
		return map[string]string{}
	}
	return rc.r.p.opts.env
}

func (rc *runContext) ExternalFunction(name string) (node.ExternalFunction, bool) {
	fn, ok := rc.r.p.opts.functions[name]
	return fn, ok
}

func (rc *runContext) HTTP() httpprovider.Provider { return rc.r.p.opts.http }

func (rc *runContext) Native() nativeapi.API { return rc.r.p.opts.native }

func (rc *runContext) SetGraphOutput(id string, v datavalue.Value) {
	rc.r.outMu.Lock()
	defer rc.r.outMu.Unlock()
	rc.r.graphOutputs[id] = v
}

func (rc *runContext) PartialOutput(out node.Outputs) {
	rc.r.p.emit(event.Event{
		Kind: event.PartialOutput, NodeID: rc.id, NodeKind: rc.kind, ProcessID: rc.processID,
		Outputs: out, Iteration: rc.iteration,
	})
}

func (rc *runContext) Trace(message string) {
	rc.r.p.emit(event.Event{
		Kind: event.Trace, NodeID: rc.id, NodeKind: rc.kind, ProcessID: rc.processID, Message: message,
	})
}

// RunSubgraph runs another graph of the project as a child of this run and
// returns its designated outputs.
func (rc *runContext) RunSubgraph(ctx context.Context, graphID graph.GraphID, inputs map[string]datavalue.Value) (map[string]datavalue.Value, error) {
	child, err := rc.r.p.child(graphID)
	if err != nil {
		return nil, err
	}
	raw := make(map[string]any, len(inputs))
	for k, v := range inputs {
		raw[k] = v
	}
	ctxValues := make(map[string]any, len(rc.r.contextValues))
	for k, v := range rc.r.contextValues {
		ctxValues[k] = v
	}
	detach := rc.r.p.attach(child)
	defer detach()
	res, err := child.Run(ctx, RunInput{Inputs: raw, Context: ctxValues})
	if res == nil {
		return nil, err
	}
	return res.Outputs, err
}

func (rc *runContext) GetGlobal(id string) (datavalue.Value, bool) {
	return rc.r.p.shared.getGlobal(id)
}

func (rc *runContext) SetGlobal(id string, v datavalue.Value) (datavalue.Value, bool) {
	prev, had := rc.r.p.shared.setGlobal(id, v)
	rc.r.p.emit(event.Event{
		Kind: event.GlobalSet, NodeID: rc.id, NodeKind: rc.kind, ProcessID: rc.processID,
		Message: id, Value: v,
	})
	return prev, had
}

func (rc *runContext) WaitForGlobal(ctx context.Context, id string) (datavalue.Value, error) {
	return rc.r.p.shared.waitForGlobal(ctx, id)
}

// RaiseEvent runs the caller's handlers, then publishes the event on the bus
// and finally wakes nodes waiting for it.
func (rc *runContext) RaiseEvent(name string, data datavalue.Value) {
	rc.r.p.shared.runHandlers(rc.r.ctx, name, data)
	rc.r.p.emit(event.Event{
		Kind: event.UserEvent, NodeID: rc.id, NodeKind: rc.kind, ProcessID: rc.processID,
		Message: name, Value: data,
	})
	rc.r.p.shared.notify(name, data)
}

func (rc *runContext) WaitForEvent(ctx context.Context, name string) (datavalue.Value, error) {
	return rc.r.p.shared.waitForEvent(ctx, name)
}

func (rc *runContext) AbortGraph(successful bool, err error) {
	rc.r.p.Abort(successful, err)
}
