// Package http_call provides the httpCall node kind. Requests go through the
// run's HTTP provider, so hosts decide transport, rate limits and streaming.
package http_call

import (
	"github.com/specialistvlad/promptgridgo/internal/graph"
	"github.com/specialistvlad/promptgridgo/internal/registry"
)

// Module implements the registry.Module interface. It's the main entrypoint
// for the http_call module.
type Module struct{}

// Register registers the httpCall node kind with the central registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(registry.Definition{Kind: "httpCall", Title: "HTTP Call", Group: "Advanced", Factory: newHTTPCall})
}

func graphPort(id string) graph.PortID { return graph.PortID(id) }
