package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/specialistvlad/promptgridgo/internal/datavalue"
	"github.com/specialistvlad/promptgridgo/internal/event"
	"github.com/specialistvlad/promptgridgo/internal/graph"
	"github.com/specialistvlad/promptgridgo/internal/inmemorystore"
	"github.com/specialistvlad/promptgridgo/internal/node"
	"github.com/specialistvlad/promptgridgo/internal/nodestore"
	"github.com/specialistvlad/promptgridgo/internal/portref"
	"github.com/specialistvlad/promptgridgo/internal/registry"
	"github.com/specialistvlad/promptgridgo/internal/runerr"
)

var (
	// ErrAlreadyStarted is returned by a second call to Run.
	ErrAlreadyStarted = errors.New("processor already started")
	// ErrNotParked is returned when answers are submitted for a node that is
	// not waiting for user input.
	ErrNotParked = errors.New("node is not waiting for user input")
	// ErrMaxDepth is returned when sub-graphs nest deeper than allowed.
	ErrMaxDepth = errors.New("maximum sub-graph depth exceeded")
)

// State is the lifecycle state of a run.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateFailed
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// RunInput carries the caller's graph inputs and context values. Values may
// be raw Go values or datavalue.Value.
type RunInput struct {
	Inputs  map[string]any
	Context map[string]any
}

// Result is the resolution of a run.
type Result struct {
	State      State
	Outputs    map[string]datavalue.Value
	NodeErrors []*runerr.NodeExecutionError
	Err        error
}

// Processor executes one graph once.
type Processor struct {
	project   *graph.Project
	graph     *graph.Graph
	topo      *graph.Topology
	registry  *registry.Registry
	nodes     map[graph.NodeID]*graph.Node
	executors map[graph.NodeID]node.Executor
	outPorts  map[graph.NodeID][]graph.PortID
	opts      options

	runID   string
	depth   int
	bus     *event.Bus
	ownsBus bool
	store   nodestore.Store
	shared  *shared

	state atomic.Int32

	abortOnce       sync.Once
	abortCh         chan struct{}
	abortSuccessful bool
	abortErr        error

	mu       sync.Mutex
	paused   bool
	parked   map[graph.NodeID]bool
	answered map[graph.NodeID]bool
	wake     chan struct{}
	answers  chan answer
	// children are the sub-graph processors currently running under p.
	children map[*Processor]struct{}
}

type answer struct {
	id      graph.NodeID
	answers []string
}

// New resolves ref in project and prepares a processor for it. Every
// structural problem is reported here, before any node runs.
func New(project *graph.Project, ref string, reg *registry.Registry, opts ...Option) (*Processor, error) {
	if reg == nil {
		return nil, errors.New("scheduler: registry is required")
	}
	g, err := project.Lookup(ref)
	if err != nil {
		return nil, err
	}

	o := options{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(&o)
	}
	if o.runID == "" {
		o.runID = uuid.NewString()
	}
	p, err := build(project, g, reg, o)
	if err != nil {
		return nil, err
	}
	p.bus = event.NewBus()
	p.ownsBus = true
	p.shared = newShared(o.handlers)
	return p, nil
}

func build(project *graph.Project, g *graph.Graph, reg *registry.Registry, o options) (*Processor, error) {
	incoming := make(map[graph.NodeID][]graph.Connection)
	outgoing := make(map[graph.NodeID][]graph.Connection)
	for _, c := range g.Connections {
		incoming[c.InputNodeID] = append(incoming[c.InputNodeID], c)
		outgoing[c.OutputNodeID] = append(outgoing[c.OutputNodeID], c)
	}

	nodes := make(map[graph.NodeID]*graph.Node, len(g.Nodes))
	executors := make(map[graph.NodeID]node.Executor, len(g.Nodes))
	for _, n := range g.Nodes {
		if _, dup := executors[n.ID]; dup {
			return nil, runerr.InvalidStructure(runerr.ErrDuplicateNodeID, "", string(n.ID))
		}
		nodes[n.ID] = n
		exec, err := reg.NewExecutor(node.Binding{
			Node:     n,
			Incoming: incoming[n.ID],
			Outgoing: outgoing[n.ID],
			Project:  project,
		})
		if err != nil {
			return nil, err
		}
		executors[n.ID] = exec
	}

	topo, err := graph.Analyze(g, func(n *graph.Node) bool {
		lc, ok := executors[n.ID].(node.LoopController)
		return ok && lc.IsLoopController()
	})
	if err != nil {
		return nil, err
	}

	outPorts, err := validatePorts(g, executors)
	if err != nil {
		return nil, err
	}
	for _, ref := range g.Outputs {
		if _, ok := nodes[graph.NodeID(ref.Node)]; !ok {
			return nil, runerr.InvalidStructure(runerr.ErrDanglingConnection,
				fmt.Sprintf("graph output %s: unknown node", ref), ref.Node)
		}
	}

	store := o.store
	if store == nil {
		store = inmemorystore.New()
	}

	return &Processor{
		project:   project,
		graph:     g,
		topo:      topo,
		registry:  reg,
		nodes:     nodes,
		executors: executors,
		outPorts:  outPorts,
		opts:      o,
		runID:     o.runID,
		store:     store,
		abortCh:   make(chan struct{}),
		parked:    make(map[graph.NodeID]bool),
		answered:  make(map[graph.NodeID]bool),
		wake:      make(chan struct{}, 1),
		answers:   make(chan answer, len(g.Nodes)),
		children:  make(map[*Processor]struct{}),
	}, nil
}

func validatePorts(g *graph.Graph, executors map[graph.NodeID]node.Executor) (map[graph.NodeID][]graph.PortID, error) {
	outPorts := make(map[graph.NodeID][]graph.PortID, len(g.Nodes))
	inputs := make(map[graph.NodeID]map[graph.PortID]node.PortDescriptor, len(g.Nodes))
	outputs := make(map[graph.NodeID]map[graph.PortID]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		exec := executors[n.ID]
		in := make(map[graph.PortID]node.PortDescriptor)
		for _, d := range exec.InputPorts() {
			in[d.ID] = d
		}
		out := make(map[graph.PortID]struct{})
		for _, d := range exec.OutputPorts() {
			out[d.ID] = struct{}{}
			outPorts[n.ID] = append(outPorts[n.ID], d.ID)
		}
		inputs[n.ID], outputs[n.ID] = in, out
	}

	seen := make(map[portref.Ref]int)
	for _, c := range g.Connections {
		if _, ok := outputs[c.OutputNodeID][c.OutputID]; !ok {
			return nil, runerr.InvalidStructure(runerr.ErrUnknownPort,
				fmt.Sprintf("output %s", c.From()), string(c.OutputNodeID))
		}
		d, ok := inputs[c.InputNodeID][c.InputID]
		if !ok {
			return nil, runerr.InvalidStructure(runerr.ErrUnknownPort,
				fmt.Sprintf("input %s", c.To()), string(c.InputNodeID))
		}
		seen[c.To()]++
		if !d.Multi && seen[c.To()] > 1 {
			return nil, runerr.InvalidStructure(runerr.ErrPortConflict,
				fmt.Sprintf("input %s", c.To()), string(c.InputNodeID))
		}
	}
	return outPorts, nil
}

// child builds a processor for a sub-graph of p. It shares p's bus and
// shared state and runs one level deeper.
func (p *Processor) child(ref graph.GraphID) (*Processor, error) {
	if p.depth+1 > p.opts.maxDepth {
		return nil, fmt.Errorf("%w: %d", ErrMaxDepth, p.opts.maxDepth)
	}
	g, err := p.project.Lookup(string(ref))
	if err != nil {
		return nil, err
	}
	o := p.opts
	o.store = nil
	c, err := build(p.project, g, p.registry, o)
	if err != nil {
		return nil, err
	}
	c.runID = p.runID
	c.depth = p.depth + 1
	c.bus = p.bus
	c.shared = p.shared
	return c, nil
}

// attach registers c for pause, resume and user input forwarding until the
// returned detach is called. A child attached while p is paused starts
// paused.
func (p *Processor) attach(c *Processor) (detach func()) {
	p.mu.Lock()
	p.children[c] = struct{}{}
	paused := p.paused
	p.mu.Unlock()
	if paused {
		c.mu.Lock()
		c.paused = true
		c.mu.Unlock()
	}
	return func() {
		p.mu.Lock()
		delete(p.children, c)
		p.mu.Unlock()
	}
}

func (p *Processor) runningChildren() []*Processor {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Processor, 0, len(p.children))
	for c := range p.children {
		out = append(out, c)
	}
	return out
}

// RunID identifies the run; sub-graph runs share their parent's id.
func (p *Processor) RunID() string { return p.runID }

// Graph returns the graph being executed.
func (p *Processor) Graph() *graph.Graph { return p.graph }

// On registers a listener for one event kind. Listeners must be registered
// before Run.
func (p *Processor) On(kind event.Kind, l event.Listener) (func(), error) {
	return p.bus.On(kind, l)
}

// OnAny registers a listener for every event kind.
func (p *Processor) OnAny(l event.Listener) (func(), error) {
	return p.bus.OnAny(l)
}

// State returns the current run state.
func (p *Processor) State() State { return State(p.state.Load()) }

// NodeStatus returns the execution state of one node.
func (p *Processor) NodeStatus(ctx context.Context, id graph.NodeID) (nodestore.Status, error) {
	return p.store.GetStatus(ctx, id)
}

// Abort latches the run's abort. A successful abort ends the run early as
// Completed. Calls after the run settled, and every call after the first, do
// nothing.
func (p *Processor) Abort(successful bool, err error) {
	if s := p.State(); s != StateIdle && s != StateRunning {
		return
	}
	p.abortOnce.Do(func() {
		p.abortSuccessful = successful
		p.abortErr = err
		close(p.abortCh)
	})
}

func (p *Processor) aborted() bool {
	select {
	case <-p.abortCh:
		return true
	default:
		return false
	}
}

// Pause holds dispatch of new nodes until Resume. Running nodes continue.
// Running sub-graphs are paused too.
func (p *Processor) Pause() {
	p.mu.Lock()
	changed := !p.paused
	p.paused = true
	p.mu.Unlock()
	if changed {
		p.emit(event.Event{Kind: event.Pause})
	}
	for _, c := range p.runningChildren() {
		c.Pause()
	}
}

// Resume releases a paused processor and its running sub-graphs.
func (p *Processor) Resume() {
	p.mu.Lock()
	changed := p.paused
	p.paused = false
	p.mu.Unlock()
	if changed {
		p.emit(event.Event{Kind: event.Resume})
		p.poke()
	}
	for _, c := range p.runningChildren() {
		c.Resume()
	}
}

func (p *Processor) isPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

func (p *Processor) poke() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// SubmitUserInput delivers answers to a node parked on user input. A node of
// this graph takes precedence; otherwise the answers go to the first running
// sub-graph, at any depth, where id is parked.
func (p *Processor) SubmitUserInput(id graph.NodeID, answers []string) error {
	if p.deliver(id, answers) {
		return nil
	}
	for _, c := range p.runningChildren() {
		if c.SubmitUserInput(id, answers) == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrNotParked, id)
}

func (p *Processor) deliver(id graph.NodeID, answers []string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.parked[id] || p.answered[id] {
		return false
	}
	p.answered[id] = true
	p.answers <- answer{id: id, answers: answers}
	return true
}

func (p *Processor) emit(ev event.Event) {
	ev.RunID = p.runID
	ev.Depth = p.depth
	if ev.GraphID == "" {
		ev.GraphID = p.graph.ID
	}
	if ev.Time.IsZero() {
		ev.Time = timeNow()
	}
	p.bus.Emit(ev)
}
