package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/specialistvlad/promptgridgo/internal/node"
	"github.com/specialistvlad/promptgridgo/internal/runerr"
)

// Module is the interface that all node kind modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Definition describes one node kind.
type Definition struct {
	Kind    string
	Title   string
	Group   string
	Factory node.Factory
}

// Registry holds the node kinds available to a processor.
type Registry struct {
	mu          sync.RWMutex
	definitions map[string]*Definition
}

// New creates an empty Registry and registers the given modules into it.
func New(modules ...Module) *Registry {
	r := &Registry{definitions: make(map[string]*Definition)}
	for _, m := range modules {
		m.Register(r)
	}
	return r
}

// Register adds a node kind. Registering the same kind twice panics.
func (r *Registry) Register(def Definition) {
	if def.Kind == "" || def.Factory == nil {
		panic("registry: node kind definition needs a kind and a factory")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.definitions[def.Kind]; exists {
		panic(fmt.Sprintf("node kind '%s' already registered", def.Kind))
	}
	slog.Debug("Registering node kind.", "kind", def.Kind)
	d := def
	r.definitions[def.Kind] = &d
}

// Lookup returns the definition of kind.
func (r *Registry) Lookup(kind string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.definitions[kind]
	return d, ok
}

// Kinds returns every registered kind in sorted order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.definitions))
	for k := range r.definitions {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// NewExecutor builds the executor for the node in b.
func (r *Registry) NewExecutor(b node.Binding) (node.Executor, error) {
	def, ok := r.Lookup(b.Node.Kind)
	if !ok {
		return nil, runerr.InvalidStructure(runerr.ErrUnknownNodeKind,
			fmt.Sprintf("kind %q", b.Node.Kind), string(b.Node.ID))
	}
	exec, err := def.Factory(b)
	if err != nil {
		return nil, fmt.Errorf("building %s node %q: %w", b.Node.Kind, b.Node.ID, err)
	}
	return exec, nil
}
