package testutil

import (
	"testing"

	"github.com/specialistvlad/promptgridgo/internal/engine"
	"github.com/specialistvlad/promptgridgo/internal/graph"
	"github.com/specialistvlad/promptgridgo/internal/registry"
	"github.com/specialistvlad/promptgridgo/internal/scheduler"
)

// RunProject runs the main graph of project through the engine with the given
// modules plus the const and noop kinds. Every event is collected.
func RunProject(t *testing.T, project *graph.Project, opts engine.RunOptions, modules ...registry.Module) (*scheduler.Result, *Collector, error) {
	t.Helper()
	ctx, _ := LoggedContext(t)
	if opts.Registry == nil {
		modules = append(modules, &SimpleModule{Definitions: []registry.Definition{Const()}}, NoOpModule{})
		opts.Registry = registry.New(modules...)
	}
	c := &Collector{}
	opts.Listeners = append(opts.Listeners, c.Record)
	res, err := engine.Run(ctx, project, opts)
	return res, c, err
}
