package scheduler

import (
	"context"

	"github.com/specialistvlad/promptgridgo/internal/datavalue"
	"github.com/specialistvlad/promptgridgo/internal/httpprovider"
	"github.com/specialistvlad/promptgridgo/internal/nativeapi"
	"github.com/specialistvlad/promptgridgo/internal/node"
	"github.com/specialistvlad/promptgridgo/internal/nodestore"
)

// DefaultMaxDepth bounds sub-graph nesting.
const DefaultMaxDepth = 32

// DefaultSplitRunMax is the parallelism of a split run when the node sets none.
const DefaultSplitRunMax = 10

// UserEventHandler receives user events raised by nodes.
type UserEventHandler func(ctx context.Context, data datavalue.Value)

// Option configures a Processor.
type Option func(*options)

type options struct {
	runID          string
	store          nodestore.Store
	maxConcurrency int
	maxDepth       int
	settings       node.Settings
	functions      node.ExternalFunctions
	env            map[string]string
	http           httpprovider.Provider
	native         nativeapi.API
	handlers       map[string][]UserEventHandler
}

// WithRunID fixes the run id instead of generating one.
func WithRunID(id string) Option {
	return func(o *options) { o.runID = id }
}

// WithStore replaces the in-memory node state store.
func WithStore(s nodestore.Store) Option {
	return func(o *options) { o.store = s }
}

// WithMaxConcurrency caps the number of executors running at once. Zero means
// no cap.
func WithMaxConcurrency(n int) Option {
	return func(o *options) { o.maxConcurrency = n }
}

// WithMaxDepth bounds sub-graph nesting.
func WithMaxDepth(n int) Option {
	return func(o *options) { o.maxDepth = n }
}

func WithSettings(s node.Settings) Option {
	return func(o *options) { o.settings = s }
}

func WithExternalFunctions(fns node.ExternalFunctions) Option {
	return func(o *options) { o.functions = fns }
}

// WithEnv sets the environment map visible to nodes. The processor never
// reads the process environment itself.
func WithEnv(env map[string]string) Option {
	return func(o *options) { o.env = env }
}

func WithHTTP(p httpprovider.Provider) Option {
	return func(o *options) { o.http = p }
}

func WithNative(api nativeapi.API) Option {
	return func(o *options) { o.native = api }
}

// WithUserEventHandler registers h for user events named name. Handlers run
// before bus listeners see the event.
func WithUserEventHandler(name string, h UserEventHandler) Option {
	return func(o *options) {
		if o.handlers == nil {
			o.handlers = make(map[string][]UserEventHandler)
		}
		o.handlers[name] = append(o.handlers[name], h)
	}
}
