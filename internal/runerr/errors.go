// Package runerr holds the error taxonomy shared by the graph processor, the
// node kinds and the side-effect providers.
//
// Every concrete error type wraps one of the sentinel values so callers can
// classify a failure with errors.Is and still recover details with errors.As.
package runerr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrGraphNotFound is returned when a graph id or name is absent from the project.
	ErrGraphNotFound = errors.New("graph not found")
	// ErrNodeExecution classifies a fault raised by a node's own logic.
	ErrNodeExecution = errors.New("node execution failed")
	// ErrUnsupportedCapability is returned when a provider lacks a requested feature.
	ErrUnsupportedCapability = errors.New("unsupported capability")
	// ErrAborted marks a run that ended due to cancellation rather than failure.
	ErrAborted = errors.New("run aborted")
	// ErrInvalidGraphStructure classifies every structural defect found before a run.
	ErrInvalidGraphStructure = errors.New("invalid graph structure")
	// ErrRunFailed is the sentinel wrapped by RunFailedError.
	ErrRunFailed = errors.New("run failed")
)

// Structural defect reasons carried by InvalidGraphStructureError.
var (
	ErrCycleWithoutLoopController = errors.New("cycle without a loop controller")
	ErrNestedLoop                 = errors.New("nested loop controllers in one cycle")
	ErrDanglingConnection         = errors.New("dangling connection")
	ErrDuplicateNodeID            = errors.New("duplicate node id")
	ErrUnknownNodeKind            = errors.New("unknown node kind")
	ErrUnknownPort                = errors.New("unknown port")
	ErrPortConflict               = errors.New("several connections to a single-producer port")
)

// GraphNotFoundError reports the reference that failed to resolve.
type GraphNotFoundError struct {
	Ref string
}

func (e *GraphNotFoundError) Error() string {
	return fmt.Sprintf("graph %q not found", e.Ref)
}

func (e *GraphNotFoundError) Unwrap() error { return ErrGraphNotFound }

// NodeExecutionError is a node failure recorded by the scheduler.
type NodeExecutionError struct {
	NodeID string
	Cause  error
}

func (e *NodeExecutionError) Error() string {
	return fmt.Sprintf("node %q: %v", e.NodeID, e.Cause)
}

func (e *NodeExecutionError) Unwrap() []error { return []error{ErrNodeExecution, e.Cause} }

// UpstreamError is the derived cause given to a node whose producer errored.
type UpstreamError struct {
	NodeID string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream node %q errored", e.NodeID)
}

// UnsupportedCapabilityError names the missing capability.
type UnsupportedCapabilityError struct {
	Capability string
}

func (e *UnsupportedCapabilityError) Error() string {
	return fmt.Sprintf("unsupported capability: %s", e.Capability)
}

func (e *UnsupportedCapabilityError) Unwrap() error { return ErrUnsupportedCapability }

// Unsupported is shorthand for an UnsupportedCapabilityError.
func Unsupported(capability string) error {
	return &UnsupportedCapabilityError{Capability: capability}
}

// AbortedError carries the reason an abort was requested, if any.
type AbortedError struct {
	Cause error
}

func (e *AbortedError) Error() string {
	if e.Cause == nil {
		return ErrAborted.Error()
	}
	return fmt.Sprintf("%v: %v", ErrAborted, e.Cause)
}

func (e *AbortedError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrAborted}
	}
	return []error{ErrAborted, e.Cause}
}

// InvalidGraphStructureError describes why a graph cannot be executed.
type InvalidGraphStructureError struct {
	Reason  error
	NodeIDs []string
	Detail  string
}

func (e *InvalidGraphStructureError) Error() string {
	var sb strings.Builder
	sb.WriteString(ErrInvalidGraphStructure.Error())
	sb.WriteString(": ")
	sb.WriteString(e.Reason.Error())
	if len(e.NodeIDs) > 0 {
		fmt.Fprintf(&sb, " [%s]", strings.Join(e.NodeIDs, ", "))
	}
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	return sb.String()
}

func (e *InvalidGraphStructureError) Unwrap() []error {
	return []error{ErrInvalidGraphStructure, e.Reason}
}

// InvalidStructure builds an InvalidGraphStructureError.
func InvalidStructure(reason error, detail string, nodeIDs ...string) error {
	return &InvalidGraphStructureError{Reason: reason, NodeIDs: nodeIDs, Detail: detail}
}

// RunFailedError is the aggregate result of a failed run. It carries every
// node error encountered, in the order they were recorded.
type RunFailedError struct {
	Errors []error
}

func (e *RunFailedError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("%v: %v", ErrRunFailed, e.Errors[0])
	}
	parts := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		parts[i] = err.Error()
	}
	return fmt.Sprintf("%v with %d errors: %s", ErrRunFailed, len(e.Errors), strings.Join(parts, "; "))
}

func (e *RunFailedError) Unwrap() []error {
	return append([]error{ErrRunFailed}, e.Errors...)
}

// NodeErrors returns the NodeExecutionErrors contained in err.
func NodeErrors(err error) []*NodeExecutionError {
	var out []*NodeExecutionError
	var failed *RunFailedError
	if errors.As(err, &failed) {
		for _, e := range failed.Errors {
			var ne *NodeExecutionError
			if errors.As(e, &ne) {
				out = append(out, ne)
			}
		}
		return out
	}
	var ne *NodeExecutionError
	if errors.As(err, &ne) {
		out = append(out, ne)
	}
	return out
}
