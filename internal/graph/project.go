package graph

import (
	"sort"

	"github.com/specialistvlad/promptgridgo/internal/runerr"
)

// Project is a table of graphs.
type Project struct {
	ID          string
	Title       string
	Description string
	MainGraphID GraphID
	Graphs      map[GraphID]*Graph
}

// NewProject builds a project from graphs. The first graph becomes the main
// graph unless one is set later.
func NewProject(id string, graphs ...*Graph) *Project {
	p := &Project{ID: id, Graphs: make(map[GraphID]*Graph, len(graphs))}
	for _, g := range graphs {
		p.Graphs[g.ID] = g
		if p.MainGraphID == "" {
			p.MainGraphID = g.ID
		}
	}
	return p
}

// Lookup resolves ref against the graph table, first by id and then by name.
// An empty ref selects the main graph.
func (p *Project) Lookup(ref string) (*Graph, error) {
	if ref == "" {
		ref = string(p.MainGraphID)
	}
	if g, ok := p.Graphs[GraphID(ref)]; ok {
		return g, nil
	}
	for _, id := range p.GraphIDs() {
		if g := p.Graphs[id]; g.Name == ref {
			return g, nil
		}
	}
	return nil, &runerr.GraphNotFoundError{Ref: ref}
}

// GraphIDs returns the ids of all graphs in sorted order.
func (p *Project) GraphIDs() []GraphID {
	ids := make([]GraphID, 0, len(p.Graphs))
	for id := range p.Graphs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
