// Package node defines the contract between the graph processor and the
// implementations of individual node kinds.
//
// # The Executor Contract
//
// Every node kind provides a Factory. The processor calls the factory once per
// node instance with a Binding (the node plus its connections), and the
// resulting Executor describes its ports and runs the node's logic:
//
//	InputPorts()  -> ordered input port descriptors
//	OutputPorts() -> ordered output port descriptors
//	Execute(ctx, inputs, runContext) -> (Outcome, error)
//
// An Execute call ends in exactly one of four ways:
//   - Succeed(outputs): values for some or all output ports.
//   - Exclude(): the node decided its branch is not taken.
//   - Suspend(request): the node needs answers from outside the run. The
//     processor parks it, emits a userInput event, and later calls Resume on
//     the executor (which must implement Resumable).
//   - a non-nil error: the node failed.
//
// # Side Effects
//
// Executors reach the outside world only through RunContext: the HTTP
// provider, the native API, the explicit environment map, external
// functions and sub-graph invocation. Swapping any of these for a test double
// requires no change to node code.
//
// # Capability Interfaces
//
// A few node kinds need the processor to treat them specially. They opt in by
// implementing ExclusionTolerant, PartialInputTolerant, LoopController or
// GraphOutputWriter.
package node
