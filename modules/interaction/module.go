// Package interaction provides the node kinds that talk to the world
// outside the dataflow: user questions, user events and shared globals.
package interaction

import (
	"github.com/specialistvlad/promptgridgo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the interaction node kinds.
func (m *Module) Register(r *registry.Registry) {
	r.Register(registry.Definition{Kind: "userInput", Title: "User Input", Group: "Input/Output", Factory: newUserInput})
	r.Register(registry.Definition{Kind: "raiseEvent", Title: "Raise Event", Group: "Advanced", Factory: newRaiseEvent})
	r.Register(registry.Definition{Kind: "waitForEvent", Title: "Wait For Event", Group: "Advanced", Factory: newWaitForEvent})
	r.Register(registry.Definition{Kind: "setGlobal", Title: "Set Global", Group: "Advanced", Factory: newSetGlobal})
	r.Register(registry.Definition{Kind: "getGlobal", Title: "Get Global", Group: "Advanced", Factory: newGetGlobal})
}
