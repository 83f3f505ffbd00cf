// Package graph provides the immutable, in-memory definition of a prompt
// graph and the static analysis the processor needs before it can run one.
//
// # Why Graph Package Exists
//
// Every run of the engine starts from a Graph that the caller already holds in
// memory. The graph package owns that structure and nothing else: it does not
// execute nodes, it does not know which node kinds exist, and it never changes
// after construction. That makes one Graph safe to share across any number of
// concurrent runs.
//
// # Key Types
//
// **Node** (model.go): one unit of computation. A node has a unique ID, a Kind
// that selects its executor in the registry, and a free-form Config map that
// the executor interprets.
//
// **Connection** (model.go): a directed edge from an output port of one node
// to an input port of another.
//
// **Graph** (model.go): nodes plus connections, plus an optional explicit list
// of designated output ports.
//
// **Project** (project.go): a table of graphs keyed by id, with a main graph
// and a name lookup. Sub-graph nodes resolve their targets through it.
//
// **Topology** (topology.go): the derived dependency structure.
//
//	┌──────────┐   Analyze    ┌─────────────────────────────┐
//	│  Graph   │ ───────────▶ │ Topology                     │
//	│ (nodes,  │              │  - producers / consumers     │
//	│  edges)  │              │  - incoming / outgoing edges │
//	└──────────┘              │  - loops (SCC per controller)│
//	                          └─────────────────────────────┘
//
// # Structural Rules
//
// Analyze rejects, with runerr.InvalidGraphStructureError:
//   - duplicate node ids
//   - connections that name a node that does not exist
//   - self-loops
//   - cycles that contain no loop controller
//   - cycles that contain more than one loop controller (nested loops)
//   - cycles inside a loop body that bypass the controller
//
// Cycles are found with Tarjan's strongly connected components algorithm. A
// strongly connected component that holds exactly one loop controller is a
// loop: the controller plus its body.
//
// # Thread-Safety
//
// Graph, Project and Topology are read-only after construction and safe for
// concurrent use.
package graph
