// Package tracing turns run events into OpenTelemetry spans.
//
// Each top-level run gets a "graph.run" span and each sub-graph run a
// "graph.subgraph" span beneath it. Every node execution becomes a
// "node.execute" span under the span of the graph instance that ran it.
// Span times are taken from the events, so replayed recordings produce the
// original timeline.
package tracing

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/specialistvlad/promptgridgo/internal/event"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName is the tracer name spans are created with.
const InstrumentationName = "github.com/specialistvlad/promptgridgo"

// Attribute keys set on spans.
const (
	AttrNodeID   = attribute.Key("node.id")
	AttrNodeKind = attribute.Key("node.kind")
	AttrGraphID  = attribute.Key("graph.id")
	AttrRunID    = attribute.Key("run.id")
)

// Listener builds spans from events.
type Listener struct {
	tracer trace.Tracer

	mu     sync.Mutex
	roots  map[string]context.Context
	graphs map[string]openSpan
	nodes  map[string]trace.Span
}

type openSpan struct {
	ctx  context.Context
	span trace.Span
}

// NewListener creates a listener using tp.
func NewListener(tp trace.TracerProvider) *Listener {
	return &Listener{
		tracer: tp.Tracer(InstrumentationName),
		roots:  make(map[string]context.Context),
		graphs: make(map[string]openSpan),
		nodes:  make(map[string]trace.Span),
	}
}

// NewStdoutProvider builds a tracer provider that writes finished spans to w
// as JSON.
func NewStdoutProvider(w io.Writer) (*sdktrace.TracerProvider, error) {
	exp, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("creating stdout trace exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp)), nil
}

// Record handles ev. It has the event.Listener signature.
func (l *Listener) Record(ev event.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch ev.Kind {
	case event.Start:
		ctx, span := l.tracer.Start(context.Background(), "graph.run", l.graphOpts(ev)...)
		l.roots[ev.RunID] = ctx
		l.graphs[graphKey(ev)] = openSpan{ctx: ctx, span: span}
	case event.GraphStart:
		parent, ok := l.roots[ev.RunID]
		if !ok {
			parent = context.Background()
		}
		ctx, span := l.tracer.Start(parent, "graph.subgraph", l.graphOpts(ev)...)
		l.graphs[graphKey(ev)] = openSpan{ctx: ctx, span: span}

	case event.Done, event.GraphFinish:
		l.endGraph(ev, nil)
	case event.Error, event.GraphError:
		l.endGraph(ev, ev.Err)
	case event.GraphAbort, event.Abort:
		if ev.Successful {
			return
		}
		err := ev.Err
		if err == nil {
			err = fmt.Errorf("graph aborted")
		}
		l.endGraph(ev, err)

	case event.NodeStart:
		parent := context.Background()
		if g, ok := l.graphs[graphKey(ev)]; ok {
			parent = g.ctx
		}
		_, span := l.tracer.Start(parent, "node.execute",
			trace.WithTimestamp(ev.Time),
			trace.WithAttributes(
				AttrNodeID.String(string(ev.NodeID)),
				AttrNodeKind.String(ev.NodeKind),
				AttrGraphID.String(string(ev.GraphID)),
				AttrRunID.String(ev.RunID),
				attribute.Int("node.iteration", ev.Iteration),
			),
		)
		l.nodes[nodeKey(ev)] = span
	case event.NodeFinish:
		l.endNode(ev, nil)
	case event.NodeError:
		l.endNode(ev, ev.Err)
	case event.NodeExcluded:
		if span, ok := l.nodes[nodeKey(ev)]; ok {
			span.SetAttributes(attribute.String("node.excluded", ev.Message))
		}
		l.endNode(ev, nil)
	case event.Trace, event.UserEvent, event.GlobalSet:
		if span, ok := l.nodes[nodeKey(ev)]; ok {
			span.AddEvent(string(ev.Kind), trace.WithTimestamp(ev.Time),
				trace.WithAttributes(attribute.String("message", ev.Message)))
		}
	}

	if ev.Depth == 0 && (ev.Kind == event.Done || ev.Kind == event.Error || ev.Kind == event.Abort) {
		delete(l.roots, ev.RunID)
	}
}

func (l *Listener) graphOpts(ev event.Event) []trace.SpanStartOption {
	return []trace.SpanStartOption{
		trace.WithTimestamp(ev.Time),
		trace.WithAttributes(
			AttrGraphID.String(string(ev.GraphID)),
			AttrRunID.String(ev.RunID),
			attribute.Int("graph.depth", ev.Depth),
		),
	}
}

func (l *Listener) endGraph(ev event.Event, err error) {
	key := graphKey(ev)
	g, ok := l.graphs[key]
	if !ok {
		return
	}
	delete(l.graphs, key)
	if err != nil {
		g.span.RecordError(err)
		g.span.SetStatus(codes.Error, err.Error())
	} else {
		g.span.SetStatus(codes.Ok, "")
	}
	g.span.End(trace.WithTimestamp(ev.Time))
}

func (l *Listener) endNode(ev event.Event, err error) {
	key := nodeKey(ev)
	span, ok := l.nodes[key]
	if !ok {
		return
	}
	delete(l.nodes, key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End(trace.WithTimestamp(ev.Time))
}

func graphKey(ev event.Event) string {
	return fmt.Sprintf("%s/%d/%s", ev.RunID, ev.Depth, ev.GraphID)
}

func nodeKey(ev event.Event) string {
	return fmt.Sprintf("%s/%d/%s/%s", ev.RunID, ev.Depth, ev.GraphID, ev.NodeID)
}
