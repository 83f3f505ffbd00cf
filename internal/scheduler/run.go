package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/promptgridgo/internal/ctxlog"
	"github.com/specialistvlad/promptgridgo/internal/datavalue"
	"github.com/specialistvlad/promptgridgo/internal/event"
	"github.com/specialistvlad/promptgridgo/internal/graph"
	"github.com/specialistvlad/promptgridgo/internal/node"
	"github.com/specialistvlad/promptgridgo/internal/nodestore"
	"github.com/specialistvlad/promptgridgo/internal/runerr"
)

var timeNow = time.Now

type nodeResult struct {
	id        graph.NodeID
	processID string
	inputs    node.Inputs
	outcome   node.Outcome
	err       error
	started   time.Time
	iteration int
}

type parkedNode struct {
	exec      node.Resumable
	inputs    node.Inputs
	processID string
	started   time.Time
	iteration int
}

// run is the coordinator-owned state of one Processor.Run call.
type run struct {
	p      *Processor
	parent context.Context
	ctx    context.Context // node context, cancelled on abort
	cancel context.CancelCauseFunc
	logger *slog.Logger

	inputs        map[string]datavalue.Value
	contextValues map[string]datavalue.Value

	results   chan nodeResult
	active    int
	parked    map[graph.NodeID]*parkedNode
	execCount map[graph.NodeID]int
	stamp     map[graph.NodeID]int
	awaiting  map[graph.NodeID]bool
	loopDone  map[graph.NodeID]bool
	nodeErrs  []*runerr.NodeExecutionError

	outMu        sync.Mutex
	graphOutputs map[string]datavalue.Value
}

// Run executes the graph and blocks until it settles. The returned error is
// Result.Err. Cancelling ctx aborts the run.
func (p *Processor) Run(ctx context.Context, in RunInput) (*Result, error) {
	if !p.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return nil, ErrAlreadyStarted
	}

	logger := ctxlog.FromContext(ctx).With("graph", p.graph.ID, "run", p.runID)
	if p.depth > 0 {
		logger = logger.With("depth", p.depth)
	}
	ctx = ctxlog.WithLogger(ctx, logger)
	if p.ownsBus {
		p.bus.SetLogger(logger)
		p.bus.Seal()
		defer p.bus.Close()
	}

	nodeCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	r := &run{
		p:             p,
		parent:        ctx,
		ctx:           nodeCtx,
		cancel:        cancel,
		logger:        logger,
		inputs:        datavalue.ResolveMap(in.Inputs),
		contextValues: datavalue.ResolveMap(in.Context),
		results:       make(chan nodeResult),
		parked:        make(map[graph.NodeID]*parkedNode),
		execCount:     make(map[graph.NodeID]int),
		stamp:         make(map[graph.NodeID]int),
		awaiting:      make(map[graph.NodeID]bool),
		loopDone:      make(map[graph.NodeID]bool),
		graphOutputs:  make(map[string]datavalue.Value),
	}
	res := r.loop()
	return res, res.Err
}

func (r *run) loop() *Result {
	p := r.p
	r.logger.Info("▶️ Starting graph", "nodes", len(p.graph.Nodes))
	if p.depth == 0 {
		p.emit(event.Event{Kind: event.Start, GraphInputs: r.inputs})
	} else {
		p.emit(event.Event{Kind: event.GraphStart, GraphInputs: r.inputs})
	}

	for {
		if r.parent.Err() != nil {
			p.Abort(false, context.Cause(r.parent))
		}
		if !p.aborted() && !p.isPaused() {
			r.dispatchReady()
		}
		if p.aborted() {
			return r.finishAborted()
		}
		if r.active == 0 && len(r.parked) == 0 && !p.isPaused() {
			return r.complete(false)
		}

		select {
		case res := <-r.results:
			r.handle(res)
		case a := <-p.answers:
			r.resume(a)
		case <-p.wake:
		case <-p.abortCh:
		case <-r.parent.Done():
			p.Abort(false, context.Cause(r.parent))
		}
	}
}

// dispatchReady starts every ready node, in graph order, until a pass makes
// no progress. Nodes that settle without running can make later nodes ready.
func (r *run) dispatchReady() {
	for {
		progressed := false
		for _, id := range r.p.topo.Nodes() {
			if r.p.aborted() || r.p.isPaused() {
				return
			}
			if !r.ready(id) {
				continue
			}
			if limit := r.p.opts.maxConcurrency; limit > 0 && r.active >= limit {
				return
			}
			r.start(id)
			progressed = true
		}
		if !progressed {
			return
		}
	}
}

func (r *run) ready(id graph.NodeID) bool {
	if r.status(id) != nodestore.StatusNotStarted && !r.awaiting[id] {
		return false
	}
	topo := r.p.topo
	loop, inLoop := topo.LoopOf(id)
	for _, c := range topo.Incoming(id) {
		prod := c.OutputNodeID
		prodLoop, prodInLoop := topo.LoopOf(prod)
		st := r.status(prod)

		switch {
		case inLoop && prodInLoop && prodLoop == loop && id == loop.Controller:
			// The controller's first run ignores its own body; later runs
			// wait for the body to finish the current iteration.
			if r.execCount[id] == 0 {
				continue
			}
			if !st.Terminal() || r.stamp[prod] != r.execCount[id] {
				return false
			}
			continue
		case prodInLoop && (!inLoop || prodLoop != loop):
			if !r.loopDone[prodLoop.Controller] {
				return false
			}
		}

		if !st.Terminal() {
			return false
		}
		if st == nodestore.StatusSucceeded && r.outputs(prod)[c.OutputID].IsLoopNotBroken() {
			return false
		}
	}
	return true
}

type decision int

const (
	decideRun decision = iota
	decideExclude
	decideError
)

// resolveInputs gathers the inputs of id from its producers and decides
// whether it runs, is excluded, or inherits an upstream error.
func (r *run) resolveInputs(id graph.NodeID, exec node.Executor) (node.Inputs, decision, graph.NodeID) {
	topo := r.p.topo
	loop, inLoop := topo.LoopOf(id)
	firstControllerRun := inLoop && loop.Controller == id && r.execCount[id] == 0
	partial := tolerates(exec, partialInputs)
	tolerant := tolerates(exec, exclusion)

	values := make(map[graph.PortID][]datavalue.Value)
	var order []graph.PortID
	for _, c := range topo.Incoming(id) {
		if firstControllerRun && loop.Contains(c.OutputNodeID) {
			continue
		}
		var v datavalue.Value
		switch r.status(c.OutputNodeID) {
		case nodestore.StatusErrored:
			if !partial {
				return nil, decideError, c.OutputNodeID
			}
			continue
		case nodestore.StatusSucceeded:
			v = r.outputs(c.OutputNodeID)[c.OutputID]
			if v.IsZero() {
				v = datavalue.Excluded()
			}
		default:
			v = datavalue.Excluded()
		}
		if _, seen := values[c.InputID]; !seen {
			order = append(order, c.InputID)
		}
		values[c.InputID] = append(values[c.InputID], v)
	}

	in := make(node.Inputs, len(order))
	for _, port := range order {
		in[port] = mergePort(values[port])
	}
	if tolerant {
		return in, decideRun, ""
	}

	required := make(map[graph.PortID]bool)
	for _, d := range exec.InputPorts() {
		required[d.ID] = d.Required
	}
	allExcluded := len(in) > 0
	for port, v := range in {
		if !v.IsExcluded() {
			allExcluded = false
			continue
		}
		if required[port] {
			return nil, decideExclude, ""
		}
	}
	if allExcluded {
		return nil, decideExclude, ""
	}
	for port, v := range in {
		if v.IsExcluded() {
			delete(in, port)
		}
	}
	return in, decideRun, ""
}

// mergePort combines the values arriving on one port. Several values only
// occur on Multi ports and are gathered into an array.
func mergePort(vals []datavalue.Value) datavalue.Value {
	if len(vals) == 1 {
		return vals[0]
	}
	var items []any
	for _, v := range vals {
		if !v.IsExcluded() {
			items = append(items, v.Data)
		}
	}
	if len(items) == 0 {
		return datavalue.Excluded()
	}
	return datavalue.Infer(items)
}

type capability int

const (
	exclusion capability = iota
	partialInputs
)

func tolerates(exec node.Executor, c capability) bool {
	switch c {
	case exclusion:
		t, ok := exec.(node.ExclusionTolerant)
		return ok && t.ToleratesExclusion()
	case partialInputs:
		t, ok := exec.(node.PartialInputTolerant)
		return ok && t.ToleratesPartialInputs()
	}
	return false
}

func (r *run) start(id graph.NodeID) {
	p := r.p
	n := p.nodes[id]
	exec := p.executors[id]
	r.awaiting[id] = false

	if n.Disabled {
		r.exclude(id, "disabled")
		return
	}
	in, d, culprit := r.resolveInputs(id, exec)
	switch d {
	case decideError:
		r.fail(id, &runerr.UpstreamError{NodeID: string(culprit)})
		return
	case decideExclude:
		r.exclude(id, "inputs excluded")
		return
	}

	processID := uuid.NewString()
	iteration := r.execCount[id]
	r.setStatus(id, nodestore.StatusRunning)
	p.emit(event.Event{
		Kind: event.NodeStart, NodeID: id, NodeKind: n.Kind, ProcessID: processID,
		Inputs: maps.Clone(in), Iteration: iteration,
	})
	r.logger.Debug("▶️ Starting node", "node", id, "kind", n.Kind, "iteration", iteration)

	rc := &runContext{r: r, id: id, kind: n.Kind, processID: processID, iteration: iteration}
	ctx := ctxlog.With(r.ctx, "node", id, "kind", n.Kind)
	started := timeNow()
	r.active++
	go func() {
		outcome, err := invoke(ctx, exec, n, in, rc)
		r.results <- nodeResult{
			id: id, processID: processID, inputs: in, outcome: outcome,
			err: err, started: started, iteration: iteration,
		}
	}()
}

func invoke(ctx context.Context, exec node.Executor, n *graph.Node, in node.Inputs, rc node.RunContext) (out node.Outcome, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in %s node: %v", n.Kind, rec)
		}
	}()
	if n.SplitRun {
		return splitRun(ctx, exec, n, in, rc)
	}
	return exec.Execute(ctx, in, rc)
}

func resumeNode(ctx context.Context, exec node.Resumable, in node.Inputs, answers []string, rc node.RunContext) (out node.Outcome, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic while resuming node: %v", rec)
		}
	}()
	return exec.Resume(ctx, in, answers, rc)
}

func (r *run) handle(res nodeResult) {
	r.active--
	p := r.p
	id := res.id

	if res.err == nil && res.outcome.Suspended() {
		rs, ok := p.executors[id].(node.Resumable)
		switch {
		case p.aborted():
			res.err = &runerr.AbortedError{Cause: p.abortErr}
		case !ok:
			res.err = errors.New("node requested user input but cannot be resumed")
		default:
			r.park(id, rs, res)
			return
		}
	}

	r.execCount[id]++
	switch {
	case res.err != nil:
		r.fail(id, res.err)
	case res.outcome.Excluded():
		r.exclude(id, "excluded by node")
	default:
		r.succeed(id, res)
	}
}

func (r *run) succeed(id graph.NodeID, res nodeResult) {
	p := r.p
	out := maps.Clone(res.outcome.Outputs)
	if out == nil {
		out = node.Outputs{}
	}
	for _, port := range p.outPorts[id] {
		if v, ok := out[port]; !ok || v.IsZero() {
			out[port] = datavalue.Excluded()
		}
	}
	r.storeErr(p.store.SetOutputs(r.parent, id, out))
	r.setStatus(id, nodestore.StatusSucceeded)
	r.settle(id)
	p.emit(event.Event{
		Kind: event.NodeFinish, NodeID: id, NodeKind: p.nodes[id].Kind, ProcessID: res.processID,
		Inputs: res.inputs, Outputs: out, Iteration: res.iteration,
	})
	r.logger.Debug("✅ Finished node", "node", id, "duration", timeNow().Sub(res.started))

	loop, isController := p.topo.Loop(id)
	if !isController {
		return
	}
	if continues(out) {
		if r.execCount[id] >= 2 {
			r.rearm(loop)
		}
		r.awaiting[id] = true
		return
	}
	r.finishLoop(loop)
}

// continues reports whether a loop controller asked for another iteration.
func continues(out node.Outputs) bool {
	for _, v := range out {
		if v.IsLoopNotBroken() {
			return true
		}
	}
	return false
}

func (r *run) rearm(loop *graph.Loop) {
	for _, id := range loop.Body {
		r.storeErr(r.p.store.Reset(r.parent, id))
		delete(r.stamp, id)
		r.p.emit(event.Event{Kind: event.NodeOutputsCleared, NodeID: id, NodeKind: r.p.nodes[id].Kind})
	}
}

func (r *run) finishLoop(loop *graph.Loop) {
	r.loopDone[loop.Controller] = true
	r.awaiting[loop.Controller] = false
	for _, id := range loop.Body {
		if r.status(id) == nodestore.StatusNotStarted {
			r.exclude(id, "loop finished")
		}
	}
}

func (r *run) fail(id graph.NodeID, cause error) {
	p := r.p
	nerr := &runerr.NodeExecutionError{NodeID: string(id), Cause: cause}
	r.storeErr(p.store.SetError(r.parent, id, nerr))
	r.setStatus(id, nodestore.StatusErrored)
	r.settle(id)
	r.nodeErrs = append(r.nodeErrs, nerr)
	p.emit(event.Event{Kind: event.NodeError, NodeID: id, NodeKind: p.nodes[id].Kind, Err: nerr})

	var up *runerr.UpstreamError
	if errors.As(cause, &up) {
		r.logger.Warn("Node skipped after upstream failure.", "node", id, "upstream", up.NodeID)
	} else {
		r.logger.Error("❌ Node failed", "node", id, "error", cause)
	}
	if loop, ok := p.topo.Loop(id); ok {
		r.finishLoop(loop)
	}
}

func (r *run) exclude(id graph.NodeID, reason string) {
	p := r.p
	r.setStatus(id, nodestore.StatusExcluded)
	r.settle(id)
	p.emit(event.Event{Kind: event.NodeExcluded, NodeID: id, NodeKind: p.nodes[id].Kind, Message: reason})
	r.logger.Debug("Node excluded.", "node", id, "reason", reason)
	if loop, ok := p.topo.Loop(id); ok {
		r.finishLoop(loop)
	}
}

// settle stamps a loop body node with the iteration it finished in.
func (r *run) settle(id graph.NodeID) {
	if loop, ok := r.p.topo.LoopOf(id); ok && loop.Controller != id {
		r.stamp[id] = r.execCount[loop.Controller]
	}
}

func (r *run) park(id graph.NodeID, exec node.Resumable, res nodeResult) {
	p := r.p
	r.parked[id] = &parkedNode{
		exec: exec, inputs: res.inputs, processID: res.processID,
		started: res.started, iteration: res.iteration,
	}
	p.mu.Lock()
	p.parked[id] = true
	delete(p.answered, id)
	p.mu.Unlock()

	var questions []string
	if res.outcome.Request != nil {
		questions = res.outcome.Request.Questions
	}
	p.emit(event.Event{
		Kind: event.UserInput, NodeID: id, NodeKind: p.nodes[id].Kind, ProcessID: res.processID,
		Inputs: res.inputs, Questions: questions,
	})
	r.logger.Info("⏸️ Waiting for user input", "node", id, "questions", len(questions))
}

func (r *run) unpark(id graph.NodeID) (*parkedNode, bool) {
	pk, ok := r.parked[id]
	if !ok {
		return nil, false
	}
	delete(r.parked, id)
	r.p.mu.Lock()
	delete(r.p.parked, id)
	delete(r.p.answered, id)
	r.p.mu.Unlock()
	return pk, true
}

func (r *run) resume(a answer) {
	pk, ok := r.unpark(a.id)
	if !ok {
		return
	}
	n := r.p.nodes[a.id]
	rc := &runContext{r: r, id: a.id, kind: n.Kind, processID: pk.processID, iteration: pk.iteration}
	ctx := ctxlog.With(r.ctx, "node", a.id, "kind", n.Kind)
	r.active++
	go func() {
		outcome, err := resumeNode(ctx, pk.exec, pk.inputs, a.answers, rc)
		r.results <- nodeResult{
			id: a.id, processID: pk.processID, inputs: pk.inputs, outcome: outcome,
			err: err, started: pk.started, iteration: pk.iteration,
		}
	}()
}

func (r *run) finishAborted() *Result {
	p := r.p
	r.cancel(&runerr.AbortedError{Cause: p.abortErr})
	r.logger.Info("🛑 Aborting graph", "successful", p.abortSuccessful, "running", r.active, "parked", len(r.parked))

	for _, id := range r.p.topo.Nodes() {
		if _, ok := r.unpark(id); ok {
			r.execCount[id]++
			r.fail(id, &runerr.AbortedError{Cause: p.abortErr})
		}
	}
	for r.active > 0 {
		r.handle(<-r.results)
	}

	p.emit(event.Event{Kind: event.GraphAbort, Successful: p.abortSuccessful, Err: p.abortErr})
	if p.depth == 0 {
		p.emit(event.Event{Kind: event.Abort, Successful: p.abortSuccessful, Err: p.abortErr})
	}
	if p.abortSuccessful {
		return r.complete(true)
	}

	r.excludeUnreached()
	res := &Result{
		State:      StateAborted,
		NodeErrors: r.nodeErrs,
		Err:        &runerr.AbortedError{Cause: p.abortErr},
	}
	p.state.Store(int32(StateAborted))
	r.logger.Info("🛑 Graph aborted")
	return res
}

// complete resolves the run from its designated outputs. An early exit
// through a successful abort always completes.
func (r *run) complete(early bool) *Result {
	p := r.p
	r.excludeUnreached()
	outputs, failed := r.collectOutputs()

	res := &Result{State: StateCompleted, Outputs: outputs, NodeErrors: r.nodeErrs}
	if failed && !early {
		errs := make([]error, len(r.nodeErrs))
		for i, e := range r.nodeErrs {
			errs[i] = e
		}
		res.State = StateFailed
		res.Err = &runerr.RunFailedError{Errors: errs}
	}
	p.state.Store(int32(res.State))

	switch {
	case res.State == StateFailed && p.depth == 0:
		p.emit(event.Event{Kind: event.Error, Err: res.Err})
		r.logger.Error("❌ Graph failed", "errors", len(r.nodeErrs))
	case res.State == StateFailed:
		p.emit(event.Event{Kind: event.GraphError, Err: res.Err})
		r.logger.Error("❌ Sub-graph failed", "errors", len(r.nodeErrs))
	case p.depth == 0:
		p.emit(event.Event{Kind: event.Done, GraphOutputs: outputs})
		r.logger.Info("✅ Finished graph", "outputs", len(outputs))
	default:
		p.emit(event.Event{Kind: event.GraphFinish, GraphOutputs: outputs})
		r.logger.Info("✅ Finished sub-graph", "outputs", len(outputs))
	}
	return res
}

func (r *run) excludeUnreached() {
	for _, id := range r.p.topo.Nodes() {
		if r.status(id) == nodestore.StatusNotStarted {
			r.exclude(id, "not reached")
		}
	}
}

// collectOutputs gathers the designated outputs and reports whether any
// designated output node errored.
func (r *run) collectOutputs() (map[string]datavalue.Value, bool) {
	p := r.p
	out := make(map[string]datavalue.Value)
	failed := false
	put := func(key string, v datavalue.Value) {
		if !v.IsZero() && !v.IsExcluded() && !v.IsLoopNotBroken() {
			out[key] = v
		}
	}

	if len(p.graph.Outputs) > 0 {
		for _, ref := range p.graph.Outputs {
			id := graph.NodeID(ref.Node)
			switch r.status(id) {
			case nodestore.StatusErrored:
				failed = true
			case nodestore.StatusSucceeded:
				put(ref.String(), r.outputs(id)[graph.PortID(ref.Port)])
			}
		}
		return out, failed
	}

	var writers []graph.NodeID
	for _, id := range p.topo.Nodes() {
		if _, ok := p.executors[id].(node.GraphOutputWriter); ok {
			writers = append(writers, id)
		}
	}
	if len(writers) > 0 {
		r.outMu.Lock()
		defer r.outMu.Unlock()
		for _, id := range writers {
			if r.status(id) == nodestore.StatusErrored {
				failed = true
				continue
			}
			key := p.executors[id].(node.GraphOutputWriter).GraphOutputID()
			if v, ok := r.graphOutputs[key]; ok {
				put(key, v)
			}
		}
		return out, failed
	}

	for _, id := range p.topo.Nodes() {
		if !p.topo.IsSink(id) {
			continue
		}
		switch r.status(id) {
		case nodestore.StatusErrored:
			failed = true
		case nodestore.StatusSucceeded:
			outs := r.outputs(id)
			for _, port := range p.outPorts[id] {
				put(string(id)+"."+string(port), outs[port])
			}
		}
	}
	return out, failed
}

func (r *run) status(id graph.NodeID) nodestore.Status {
	s, err := r.p.store.GetStatus(r.parent, id)
	r.storeErr(err)
	return s
}

func (r *run) outputs(id graph.NodeID) node.Outputs {
	out, err := r.p.store.GetOutputs(r.parent, id)
	r.storeErr(err)
	return out
}

func (r *run) setStatus(id graph.NodeID, s nodestore.Status) {
	r.storeErr(r.p.store.SetStatus(r.parent, id, s))
}

func (r *run) storeErr(err error) {
	if err != nil {
		r.logger.Error("Node store access failed.", "error", err)
	}
}
