// Package engine is the run surface of the module. It resolves a graph in a
// project, wires listeners, external functions and providers into a
// scheduler.Processor and runs it.
//
// Callers that need a handle on the running processor, for Abort or
// SubmitUserInput, use Prepare and call Run on the processor themselves.
package engine
