package remotedebug

import (
	"slices"

	"github.com/specialistvlad/promptgridgo/internal/event"
	"github.com/specialistvlad/promptgridgo/internal/graph"
)

// Filter selects which events reach the debugger.
type Filter struct {
	// Kinds limits forwarding to the listed kinds. Empty forwards every kind.
	Kinds []event.Kind
	// NodeIDs limits node events to the listed nodes. Run-level events are
	// always forwarded.
	NodeIDs []graph.NodeID
	// PartialOutputs forwards streaming partial outputs, which are dropped
	// otherwise.
	PartialOutputs bool
}

// Allows reports whether ev passes the filter.
func (f Filter) Allows(ev event.Event) bool {
	if ev.Kind == event.PartialOutput && !f.PartialOutputs {
		return false
	}
	if len(f.Kinds) > 0 && !slices.Contains(f.Kinds, ev.Kind) {
		return false
	}
	if ev.IsNodeEvent() && len(f.NodeIDs) > 0 && !slices.Contains(f.NodeIDs, ev.NodeID) {
		return false
	}
	return true
}
