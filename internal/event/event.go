// Package event defines the lifecycle events raised by the graph processor and
// the Bus that delivers them to listeners.
package event

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/specialistvlad/promptgridgo/internal/datavalue"
	"github.com/specialistvlad/promptgridgo/internal/graph"
)

// Kind is the type tag of an event.
type Kind string

const (
	Start              Kind = "start"
	NodeStart          Kind = "nodeStart"
	NodeFinish         Kind = "nodeFinish"
	NodeError          Kind = "nodeError"
	NodeExcluded       Kind = "nodeExcluded"
	PartialOutput      Kind = "partialOutput"
	UserInput          Kind = "userInput"
	NodeOutputsCleared Kind = "nodeOutputsCleared"
	Done               Kind = "done"
	Abort              Kind = "abort"
	GraphAbort         Kind = "graphAbort"
	Trace              Kind = "trace"

	GraphStart  Kind = "graphStart"
	GraphFinish Kind = "graphFinish"
	GraphError  Kind = "graphError"
	Error       Kind = "error"
	GlobalSet   Kind = "globalSet"
	Pause       Kind = "pause"
	Resume      Kind = "resume"
	UserEvent   Kind = "userEvent"
)

// Kinds lists every event kind.
var Kinds = []Kind{
	Start, NodeStart, NodeFinish, NodeError, NodeExcluded, PartialOutput,
	UserInput, NodeOutputsCleared, Done, Abort, GraphAbort, Trace,
	GraphStart, GraphFinish, GraphError, Error, GlobalSet, Pause, Resume, UserEvent,
}

// Event is one lifecycle occurrence. Fields not relevant to a kind are zero.
type Event struct {
	Kind  Kind
	Time  time.Time
	RunID string
	// Depth is the sub-graph nesting level that raised the event.
	Depth   int
	GraphID graph.GraphID

	NodeID    graph.NodeID
	NodeKind  string
	ProcessID string

	Inputs       map[graph.PortID]datavalue.Value
	Outputs      map[graph.PortID]datavalue.Value
	GraphInputs  map[string]datavalue.Value
	GraphOutputs map[string]datavalue.Value

	Err error
	// Message carries the trace text, the user event name, the global id or
	// the reason a node was excluded.
	Message    string
	Value      datavalue.Value
	Questions  []string
	Successful bool
	Iteration  int
}

// IsNodeEvent reports whether the event concerns a single node.
func (e Event) IsNodeEvent() bool { return e.NodeID != "" }

type wireEvent struct {
	Type         Kind                             `json:"type"`
	Time         time.Time                        `json:"time"`
	RunID        string                           `json:"runId,omitempty"`
	Depth        int                              `json:"depth,omitempty"`
	GraphID      graph.GraphID                    `json:"graphId,omitempty"`
	NodeID       graph.NodeID                     `json:"nodeId,omitempty"`
	NodeKind     string                           `json:"nodeKind,omitempty"`
	ProcessID    string                           `json:"processId,omitempty"`
	Inputs       map[graph.PortID]datavalue.Value `json:"inputs,omitempty"`
	Outputs      map[graph.PortID]datavalue.Value `json:"outputs,omitempty"`
	GraphInputs  map[string]datavalue.Value       `json:"graphInputs,omitempty"`
	GraphOutputs map[string]datavalue.Value       `json:"graphOutputs,omitempty"`
	Error        string                           `json:"error,omitempty"`
	Message      string                           `json:"message,omitempty"`
	Value        *datavalue.Value                 `json:"value,omitempty"`
	Questions    []string                         `json:"questions,omitempty"`
	Successful   bool                             `json:"successful,omitempty"`
	Iteration    int                              `json:"iteration,omitempty"`
}

// MarshalJSON encodes the event with its error flattened to a string.
func (e Event) MarshalJSON() ([]byte, error) {
	w := wireEvent{
		Type: e.Kind, Time: e.Time, RunID: e.RunID, Depth: e.Depth, GraphID: e.GraphID,
		NodeID: e.NodeID, NodeKind: e.NodeKind, ProcessID: e.ProcessID,
		Inputs: e.Inputs, Outputs: e.Outputs, GraphInputs: e.GraphInputs, GraphOutputs: e.GraphOutputs,
		Message: e.Message, Questions: e.Questions, Successful: e.Successful, Iteration: e.Iteration,
	}
	if e.Err != nil {
		w.Error = e.Err.Error()
	}
	if !e.Value.IsZero() {
		v := e.Value
		w.Value = &v
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes an event; a recorded error comes back as a plain error.
func (e *Event) UnmarshalJSON(b []byte) error {
	var w wireEvent
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*e = Event{
		Kind: w.Type, Time: w.Time, RunID: w.RunID, Depth: w.Depth, GraphID: w.GraphID,
		NodeID: w.NodeID, NodeKind: w.NodeKind, ProcessID: w.ProcessID,
		Inputs: w.Inputs, Outputs: w.Outputs, GraphInputs: w.GraphInputs, GraphOutputs: w.GraphOutputs,
		Message: w.Message, Questions: w.Questions, Successful: w.Successful, Iteration: w.Iteration,
	}
	if w.Error != "" {
		e.Err = errors.New(w.Error)
	}
	if w.Value != nil {
		e.Value = *w.Value
	}
	return nil
}
