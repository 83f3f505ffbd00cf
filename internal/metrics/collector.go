// Package metrics exports run and node statistics to Prometheus.
package metrics

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/specialistvlad/promptgridgo/internal/event"
)

// Collector is an event listener that feeds its own Prometheus registry.
type Collector struct {
	registry *prometheus.Registry

	nodeEvents   *prometheus.CounterVec
	nodeDuration *prometheus.HistogramVec
	runs         *prometheus.CounterVec

	mu      sync.Mutex
	started map[string]time.Time
}

// NewCollector creates a collector with a fresh registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Collector{
		registry: reg,
		nodeEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "promptgrid_node_events_total",
				Help: "Node lifecycle events by node kind and event type",
			},
			[]string{"kind", "event"},
		),
		nodeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "promptgrid_node_duration_seconds",
				Help:    "Time from node start to its terminal event",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind", "state"},
		),
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "promptgrid_runs_total",
				Help: "Finished top-level runs by final state",
			},
			[]string{"state"},
		),
		started: make(map[string]time.Time),
	}
}

// Registry returns the registry the collector writes to.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Record observes ev. It has the event.Listener signature.
func (c *Collector) Record(ev event.Event) {
	if ev.IsNodeEvent() {
		c.nodeEvents.WithLabelValues(ev.NodeKind, string(ev.Kind)).Inc()
		c.observeNode(ev)
		return
	}
	if ev.Depth != 0 {
		return
	}
	switch ev.Kind {
	case event.Done:
		c.runs.WithLabelValues("completed").Inc()
	case event.Error:
		c.runs.WithLabelValues("failed").Inc()
	case event.Abort:
		if ev.Successful {
			c.runs.WithLabelValues("completed").Inc()
		} else {
			c.runs.WithLabelValues("aborted").Inc()
		}
	}
}

func (c *Collector) observeNode(ev event.Event) {
	var state string
	switch ev.Kind {
	case event.NodeStart:
		c.mu.Lock()
		c.started[nodeKey(ev)] = ev.Time
		c.mu.Unlock()
		return
	case event.NodeFinish:
		state = "succeeded"
	case event.NodeError:
		state = "errored"
	case event.NodeExcluded:
		state = "excluded"
	default:
		return
	}

	key := nodeKey(ev)
	c.mu.Lock()
	start, ok := c.started[key]
	delete(c.started, key)
	c.mu.Unlock()
	if ok {
		c.nodeDuration.WithLabelValues(ev.NodeKind, state).Observe(ev.Time.Sub(start).Seconds())
	}
}

// nodeKey identifies one node of one graph instance. nodeError carries no
// process id.
func nodeKey(ev event.Event) string {
	return fmt.Sprintf("%s/%d/%s/%s", ev.RunID, ev.Depth, ev.GraphID, ev.NodeID)
}
