package graph

import (
	"fmt"
	"sort"

	"github.com/specialistvlad/promptgridgo/internal/runerr"
)

// Loop is a strongly connected component governed by one loop controller.
type Loop struct {
	Controller NodeID
	// Body holds the other members of the component, in declaration order.
	Body    []NodeID
	members map[NodeID]struct{}
}

// Contains reports whether id is the controller or a body node of the loop.
func (l *Loop) Contains(id NodeID) bool {
	_, ok := l.members[id]
	return ok
}

// Topology is the dependency structure derived from a Graph.
type Topology struct {
	order     []NodeID
	index     map[NodeID]int
	incoming  map[NodeID][]Connection
	outgoing  map[NodeID][]Connection
	producers map[NodeID][]NodeID
	consumers map[NodeID][]NodeID
	loops     map[NodeID]*Loop
	loopOf    map[NodeID]*Loop
}

// Analyze validates g and computes its topology. isLoopController reports
// which nodes may close a cycle.
func Analyze(g *Graph, isLoopController func(*Node) bool) (*Topology, error) {
	t := &Topology{
		index:     make(map[NodeID]int, len(g.Nodes)),
		incoming:  make(map[NodeID][]Connection),
		outgoing:  make(map[NodeID][]Connection),
		producers: make(map[NodeID][]NodeID),
		consumers: make(map[NodeID][]NodeID),
		loops:     make(map[NodeID]*Loop),
		loopOf:    make(map[NodeID]*Loop),
	}

	for i, n := range g.Nodes {
		if _, dup := t.index[n.ID]; dup {
			return nil, runerr.InvalidStructure(runerr.ErrDuplicateNodeID, "", string(n.ID))
		}
		t.index[n.ID] = i
		t.order = append(t.order, n.ID)
	}

	for _, c := range g.Connections {
		if _, ok := t.index[c.OutputNodeID]; !ok {
			return nil, runerr.InvalidStructure(runerr.ErrDanglingConnection,
				fmt.Sprintf("%s -> %s: unknown source node", c.From(), c.To()), string(c.OutputNodeID))
		}
		if _, ok := t.index[c.InputNodeID]; !ok {
			return nil, runerr.InvalidStructure(runerr.ErrDanglingConnection,
				fmt.Sprintf("%s -> %s: unknown target node", c.From(), c.To()), string(c.InputNodeID))
		}
		if c.OutputNodeID == c.InputNodeID {
			return nil, runerr.InvalidStructure(runerr.ErrCycleWithoutLoopController, "self-loop", string(c.InputNodeID))
		}
		t.incoming[c.InputNodeID] = append(t.incoming[c.InputNodeID], c)
		t.outgoing[c.OutputNodeID] = append(t.outgoing[c.OutputNodeID], c)
		t.producers[c.InputNodeID] = appendUnique(t.producers[c.InputNodeID], c.OutputNodeID)
		t.consumers[c.OutputNodeID] = appendUnique(t.consumers[c.OutputNodeID], c.InputNodeID)
	}

	nodes := make(map[NodeID]*Node, len(g.Nodes))
	for _, n := range g.Nodes {
		nodes[n.ID] = n
	}

	for _, scc := range t.components(t.order, nil) {
		if len(scc) < 2 {
			continue
		}
		if err := t.addLoop(scc, nodes, isLoopController); err != nil {
			return nil, err
		}
	}

	return t, nil
}

func (t *Topology) addLoop(scc []NodeID, nodes map[NodeID]*Node, isLoopController func(*Node) bool) error {
	var controllers []NodeID
	for _, id := range scc {
		if isLoopController != nil && isLoopController(nodes[id]) {
			controllers = append(controllers, id)
		}
	}
	ids := t.sorted(scc)
	switch len(controllers) {
	case 0:
		return runerr.InvalidStructure(runerr.ErrCycleWithoutLoopController, "", toStrings(ids)...)
	case 1:
	default:
		return runerr.InvalidStructure(runerr.ErrNestedLoop, "", toStrings(t.sorted(controllers))...)
	}

	loop := &Loop{Controller: controllers[0], members: make(map[NodeID]struct{}, len(scc))}
	for _, id := range ids {
		loop.members[id] = struct{}{}
		if id != loop.Controller {
			loop.Body = append(loop.Body, id)
		}
	}

	// With the controller removed, the body must be acyclic.
	skip := map[NodeID]struct{}{loop.Controller: {}}
	for _, inner := range t.components(loop.Body, skip) {
		if len(inner) > 1 {
			return runerr.InvalidStructure(runerr.ErrCycleWithoutLoopController,
				fmt.Sprintf("cycle inside the body of loop %q", loop.Controller), toStrings(t.sorted(inner))...)
		}
	}

	t.loops[loop.Controller] = loop
	for id := range loop.members {
		t.loopOf[id] = loop
	}
	return nil
}

// components runs Tarjan's algorithm over the subgraph induced by ids,
// ignoring nodes in skip.
func (t *Topology) components(ids []NodeID, skip map[NodeID]struct{}) [][]NodeID {
	within := make(map[NodeID]struct{}, len(ids))
	for _, id := range ids {
		within[id] = struct{}{}
	}

	var (
		counter int
		stack   []NodeID
		onStack = make(map[NodeID]bool)
		index   = make(map[NodeID]int)
		low     = make(map[NodeID]int)
		out     [][]NodeID
	)

	var strongConnect func(v NodeID)
	strongConnect = func(v NodeID) {
		index[v] = counter
		low[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range t.consumers[v] {
			if _, ok := within[w]; !ok {
				continue
			}
			if _, skipped := skip[w]; skipped {
				continue
			}
			if _, seen := index[w]; !seen {
				strongConnect(w)
				low[v] = min(low[v], low[w])
			} else if onStack[w] {
				low[v] = min(low[v], index[w])
			}
		}

		if low[v] == index[v] {
			var scc []NodeID
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			out = append(out, scc)
		}
	}

	for _, id := range ids {
		if _, skipped := skip[id]; skipped {
			continue
		}
		if _, seen := index[id]; !seen {
			strongConnect(id)
		}
	}
	return out
}

// Nodes returns all node ids in declaration order.
func (t *Topology) Nodes() []NodeID { return t.order }

// Index returns the declaration position of id, or -1.
func (t *Topology) Index(id NodeID) int {
	if i, ok := t.index[id]; ok {
		return i
	}
	return -1
}

// Incoming returns the connections feeding id.
func (t *Topology) Incoming(id NodeID) []Connection { return t.incoming[id] }

// Outgoing returns the connections leaving id.
func (t *Topology) Outgoing(id NodeID) []Connection { return t.outgoing[id] }

// Producers returns the distinct nodes feeding id.
func (t *Topology) Producers(id NodeID) []NodeID { return t.producers[id] }

// Consumers returns the distinct nodes fed by id.
func (t *Topology) Consumers(id NodeID) []NodeID { return t.consumers[id] }

// IsSink reports whether id has no outgoing connections.
func (t *Topology) IsSink(id NodeID) bool { return len(t.outgoing[id]) == 0 }

// Loop returns the loop governed by the controller id.
func (t *Topology) Loop(controller NodeID) (*Loop, bool) {
	l, ok := t.loops[controller]
	return l, ok
}

// LoopOf returns the loop that id belongs to, if any.
func (t *Topology) LoopOf(id NodeID) (*Loop, bool) {
	l, ok := t.loopOf[id]
	return l, ok
}

// Loops returns every loop, ordered by controller position.
func (t *Topology) Loops() []*Loop {
	out := make([]*Loop, 0, len(t.loops))
	for _, l := range t.loops {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return t.index[out[i].Controller] < t.index[out[j].Controller] })
	return out
}

func (t *Topology) sorted(ids []NodeID) []NodeID {
	out := append([]NodeID(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return t.index[out[i]] < t.index[out[j]] })
	return out
}

func appendUnique(list []NodeID, id NodeID) []NodeID {
	for _, existing := range list {
		if existing == id {
			return list
		}
	}
	return append(list, id)
}

func toStrings(ids []NodeID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
