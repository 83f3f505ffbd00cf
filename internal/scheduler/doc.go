// Package scheduler implements the graph processor: it decides which nodes are
// ready, runs their executors and streams lifecycle events until the graph
// settles.
//
// # How It Works
//
// A Processor runs at most once. Run's own goroutine is the coordinator: it
// owns every status, output and loop counter of the run. Node executors run
// on their own goroutines and report back on a results channel, after which
// the coordinator records the outcome and re-evaluates readiness:
//
//  1. A NotStarted node is ready when every producer feeding it is terminal.
//  2. Ready nodes are resolved in graph order. Disabled nodes, nodes fed by an
//     errored producer and nodes whose inputs are all excluded settle without
//     running; the rest are dispatched and receive a nodeStart event.
//  3. When nothing is running, parked or ready, the designated outputs are
//     collected and the run resolves.
//
// # Loops
//
// A loop is a strongly connected component with exactly one loop controller.
// The controller's first run ignores producers inside its loop. Each later
// run waits for the whole body to finish the current iteration. When the
// controller continues, the body is reset (nodeOutputsCleared) and runs
// again; when it breaks, nodes outside the loop that consume it are unlocked.
//
// # Abort
//
// Abort is a one-way latch fed by Processor.Abort, cancellation of the Run
// context, or a node calling RunContext.AbortGraph. Once latched nothing new
// is dispatched, running nodes see their context cancelled, parked nodes are
// released and the run resolves as Aborted, or as Completed for a successful
// abort.
//
// # Sub-graphs
//
// RunSubgraph builds a child processor that shares the parent's event bus,
// globals and user events. Its events carry Depth+1 and it reports
// graphStart/graphFinish/graphError instead of start/done.
package scheduler
