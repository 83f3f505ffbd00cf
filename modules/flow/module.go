// Package flow provides the control-flow node kinds: branching, merging,
// comparison, arithmetic, loops, races, aborts and delays.
package flow

import (
	"github.com/specialistvlad/promptgridgo/internal/graph"
	"github.com/specialistvlad/promptgridgo/internal/node"
	"github.com/specialistvlad/promptgridgo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the control-flow node kinds.
func (m *Module) Register(r *registry.Registry) {
	r.Register(registry.Definition{Kind: "if", Title: "If", Group: "Logic", Factory: newIf})
	r.Register(registry.Definition{Kind: "ifElse", Title: "If/Else", Group: "Logic", Factory: newIfElse})
	r.Register(registry.Definition{Kind: "coalesce", Title: "Coalesce", Group: "Logic", Factory: newCoalesce})
	r.Register(registry.Definition{Kind: "compare", Title: "Compare", Group: "Logic", Factory: newCompare})
	r.Register(registry.Definition{Kind: "evaluate", Title: "Evaluate", Group: "Numbers", Factory: newEvaluate})
	r.Register(registry.Definition{Kind: "loopController", Title: "Loop Controller", Group: "Logic", Factory: newLoopController})
	r.Register(registry.Definition{Kind: "raceInputs", Title: "Race Inputs", Group: "Logic", Factory: newRaceInputs})
	r.Register(registry.Definition{Kind: "abortGraph", Title: "Abort Graph", Group: "Logic", Factory: newAbortGraph})
	r.Register(registry.Definition{Kind: "delay", Title: "Delay", Group: "Logic", Factory: newDelay})
}

// inputCount is the number of numbered inputs to expose: one more than the
// highest connected, so there is always a free port.
func inputCount(incoming []graph.Connection, prefix string) int {
	return node.NumberedPortCount(incoming, prefix) + 1
}

func graphPort(id string) graph.PortID { return graph.PortID(id) }
