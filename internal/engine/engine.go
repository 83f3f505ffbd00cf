package engine

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/specialistvlad/promptgridgo/internal/ctxlog"
	"github.com/specialistvlad/promptgridgo/internal/event"
	"github.com/specialistvlad/promptgridgo/internal/graph"
	"github.com/specialistvlad/promptgridgo/internal/httpprovider"
	"github.com/specialistvlad/promptgridgo/internal/nativeapi"
	"github.com/specialistvlad/promptgridgo/internal/node"
	"github.com/specialistvlad/promptgridgo/internal/nodestore"
	"github.com/specialistvlad/promptgridgo/internal/registry"
	"github.com/specialistvlad/promptgridgo/internal/scheduler"
)

// ErrNoRegistry is returned when RunOptions carries no registry.
var ErrNoRegistry = errors.New("engine: a node registry is required")

// RunOptions configures one run.
type RunOptions struct {
	// Graph is the id or name of the graph to run; empty selects the main graph.
	Graph   string
	Inputs  map[string]any
	Context map[string]any

	Settings          node.Settings
	ExternalFunctions node.ExternalFunctions
	Env               map[string]string
	OnUserEvent       map[string]scheduler.UserEventHandler

	// On registers one listener per event kind; Listeners receive every event.
	On        map[event.Kind]event.Listener
	Listeners []event.Listener

	// HTTP defaults to httpprovider.NewClient(). Native may stay nil.
	HTTP   httpprovider.Provider
	Native nativeapi.API

	Registry       *registry.Registry
	Store          nodestore.Store
	MaxConcurrency int
	RunID          string
}

// Prepare builds a processor for opts.Graph with every listener attached.
func Prepare(project *graph.Project, opts RunOptions) (*scheduler.Processor, error) {
	if opts.Registry == nil {
		return nil, ErrNoRegistry
	}

	p, err := scheduler.New(project, opts.Graph, opts.Registry, schedulerOptions(opts)...)
	if err != nil {
		return nil, err
	}
	for kind, l := range opts.On {
		if l == nil {
			continue
		}
		if _, err := p.On(kind, l); err != nil {
			return nil, fmt.Errorf("listener for %s: %w", kind, err)
		}
	}
	for _, l := range opts.Listeners {
		if _, err := p.OnAny(l); err != nil {
			return nil, fmt.Errorf("listener: %w", err)
		}
	}
	return p, nil
}

// Run prepares and runs a graph. Cancelling ctx aborts the run.
func Run(ctx context.Context, project *graph.Project, opts RunOptions) (*scheduler.Result, error) {
	logger := ctxlog.FromContext(ctx)
	p, err := Prepare(project, opts)
	if err != nil {
		logger.Error("Failed to prepare graph.", "graph", opts.Graph, "error", err)
		return nil, err
	}
	logger.Debug("Graph prepared.", "graph", p.Graph().ID, "run", p.RunID())
	return p.Run(ctx, scheduler.RunInput{Inputs: opts.Inputs, Context: opts.Context})
}

func schedulerOptions(opts RunOptions) []scheduler.Option {
	httpProvider := opts.HTTP
	if httpProvider == nil {
		httpProvider = httpprovider.NewClient()
	}
	out := []scheduler.Option{
		scheduler.WithSettings(opts.Settings),
		scheduler.WithExternalFunctions(withBuiltins(opts.ExternalFunctions)),
		scheduler.WithEnv(maps.Clone(opts.Env)),
		scheduler.WithHTTP(httpProvider),
		scheduler.WithNative(opts.Native),
		scheduler.WithMaxConcurrency(opts.MaxConcurrency),
	}
	if opts.RunID != "" {
		out = append(out, scheduler.WithRunID(opts.RunID))
	}
	if opts.Store != nil {
		out = append(out, scheduler.WithStore(opts.Store))
	}
	for name, h := range opts.OnUserEvent {
		out = append(out, scheduler.WithUserEventHandler(name, h))
	}
	return out
}
