// Package values provides the node kinds that produce and reshape plain
// values: literals, templates, arrays, JSON and string splitting.
package values

import (
	"regexp"

	"github.com/specialistvlad/promptgridgo/internal/graph"
	"github.com/specialistvlad/promptgridgo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the value node kinds.
func (m *Module) Register(r *registry.Registry) {
	r.Register(registry.Definition{Kind: "text", Title: "Text", Group: "Text", Factory: newText})
	r.Register(registry.Definition{Kind: "number", Title: "Number", Group: "Numbers", Factory: newNumber})
	r.Register(registry.Definition{Kind: "boolean", Title: "Bool", Group: "Data", Factory: newBoolean})
	r.Register(registry.Definition{Kind: "object", Title: "Object", Group: "Objects", Factory: newObject})
	r.Register(registry.Definition{Kind: "array", Title: "Array", Group: "Lists", Factory: newArray})
	r.Register(registry.Definition{Kind: "toJson", Title: "To JSON", Group: "Text", Factory: newToJSON})
	r.Register(registry.Definition{Kind: "passthrough", Title: "Passthrough", Group: "Data", Factory: newPassthrough})
	r.Register(registry.Definition{Kind: "join", Title: "Join", Group: "Text", Factory: newJoin})
	r.Register(registry.Definition{Kind: "split", Title: "Split Text", Group: "Text", Factory: newSplit})
}

var placeholder = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

// templateNames returns the distinct {{name}} placeholders in order.
func templateNames(tmpl string) []string {
	var names []string
	seen := map[string]bool{}
	for _, m := range placeholder.FindAllStringSubmatch(tmpl, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// interpolate replaces each placeholder with render(name). Unknown names
// render as the empty string.
func interpolate(tmpl string, render func(name string) (string, bool)) string {
	return placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		s, ok := render(m[2 : len(m)-2])
		if !ok {
			return ""
		}
		return s
	})
}

func graphPort(id string) graph.PortID { return graph.PortID(id) }
