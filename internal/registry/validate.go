package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/promptgridgo/internal/ctxlog"
	"github.com/specialistvlad/promptgridgo/internal/graph"
	"github.com/specialistvlad/promptgridgo/internal/runerr"
)

// ValidateProject checks that every node kind used in p is registered.
func (r *Registry) ValidateProject(ctx context.Context, p *graph.Project) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	for _, gid := range p.GraphIDs() {
		for _, n := range p.Graphs[gid].Nodes {
			if _, ok := r.Lookup(n.Kind); !ok {
				errs = append(errs, fmt.Sprintf("graph '%s' node '%s': kind '%s' is not registered", gid, n.ID, n.Kind))
			}
		}
	}

	if len(errs) > 0 {
		logger.Error("Project uses unknown node kinds", "count", len(errs))
		return runerr.InvalidStructure(runerr.ErrUnknownNodeKind, strings.Join(errs, "; "))
	}

	logger.Debug("Project node kinds validated.", "graphs", len(p.Graphs))
	return nil
}
