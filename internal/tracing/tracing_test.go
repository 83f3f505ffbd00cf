package tracing_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/specialistvlad/promptgridgo/internal/engine"
	"github.com/specialistvlad/promptgridgo/internal/event"
	"github.com/specialistvlad/promptgridgo/internal/node"
	"github.com/specialistvlad/promptgridgo/internal/registry"
	"github.com/specialistvlad/promptgridgo/internal/testutil"
	"github.com/specialistvlad/promptgridgo/internal/tracing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecorder(t *testing.T) (*tracetest.SpanRecorder, *tracing.Listener) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return sr, tracing.NewListener(tp)
}

func byName(spans []sdktrace.ReadOnlySpan, name string) []sdktrace.ReadOnlySpan {
	var out []sdktrace.ReadOnlySpan
	for _, s := range spans {
		if s.Name() == name {
			out = append(out, s)
		}
	}
	return out
}

func attr(s sdktrace.ReadOnlySpan, key string) string {
	for _, kv := range s.Attributes() {
		if string(kv.Key) == key {
			return kv.Value.Emit()
		}
	}
	return ""
}

func TestListener_RunSpans(t *testing.T) {
	// Arrange
	sr, l := newRecorder(t)
	g := testutil.NewGraph("main").
		Node("a", "const", map[string]any{"value": 1}).
		Node("b", "noop", nil).
		Connect("a.output", "b.input").
		Build()

	// Act
	_, _, err := testutil.RunProject(t, testutil.Project(g), engine.RunOptions{
		Listeners: []event.Listener{l.Record},
	})

	// Assert
	require.NoError(t, err)
	spans := sr.Ended()
	roots := byName(spans, "graph.run")
	require.Len(t, roots, 1)
	root := roots[0]
	assert.Equal(t, "main", attr(root, "graph.id"))
	assert.NotEmpty(t, attr(root, "run.id"))
	assert.Equal(t, codes.Ok, root.Status().Code)

	nodes := byName(spans, "node.execute")
	require.Len(t, nodes, 2)
	for _, s := range nodes {
		assert.Equal(t, root.SpanContext().SpanID(), s.Parent().SpanID())
		assert.Equal(t, root.SpanContext().TraceID(), s.SpanContext().TraceID())
	}
	assert.ElementsMatch(t, []string{"a", "b"}, []string{attr(nodes[0], "node.id"), attr(nodes[1], "node.id")})
}

func TestListener_RecordsNodeError(t *testing.T) {
	sr, l := newRecorder(t)
	failing := &testutil.SimpleModule{Definitions: []registry.Definition{
		testutil.Kind("fail", func(node.Binding) node.Executor {
			return &testutil.Func{Run: func(context.Context, node.Inputs, node.RunContext) (node.Outcome, error) {
				return node.Outcome{}, errors.New("boom")
			}}
		}),
	}}
	g := testutil.NewGraph("main").Node("x", "fail", nil).Build()

	_, _, err := testutil.RunProject(t, testutil.Project(g), engine.RunOptions{
		Listeners: []event.Listener{l.Record},
	}, failing)

	require.Error(t, err)
	nodes := byName(sr.Ended(), "node.execute")
	require.Len(t, nodes, 1)
	assert.Equal(t, codes.Error, nodes[0].Status().Code)
	assert.Contains(t, nodes[0].Status().Description, "boom")
	roots := byName(sr.Ended(), "graph.run")
	require.Len(t, roots, 1)
	assert.Equal(t, codes.Error, roots[0].Status().Code)
}

func TestListener_SubgraphNestsUnderRun(t *testing.T) {
	sr, l := newRecorder(t)
	t0 := time.Unix(100, 0)
	for _, ev := range []event.Event{
		{Kind: event.Start, RunID: "r", GraphID: "main", Time: t0},
		{Kind: event.NodeStart, RunID: "r", GraphID: "main", NodeID: "call", NodeKind: "subGraph", Time: t0},
		{Kind: event.GraphStart, RunID: "r", GraphID: "child", Depth: 1, Time: t0},
		{Kind: event.NodeStart, RunID: "r", GraphID: "child", Depth: 1, NodeID: "inner", Time: t0},
		{Kind: event.NodeFinish, RunID: "r", GraphID: "child", Depth: 1, NodeID: "inner", Time: t0.Add(time.Second)},
		{Kind: event.GraphFinish, RunID: "r", GraphID: "child", Depth: 1, Time: t0.Add(time.Second)},
		{Kind: event.NodeFinish, RunID: "r", GraphID: "main", NodeID: "call", Time: t0.Add(2 * time.Second)},
		{Kind: event.Done, RunID: "r", GraphID: "main", Time: t0.Add(2 * time.Second)},
	} {
		l.Record(ev)
	}

	spans := sr.Ended()
	require.Len(t, spans, 4)
	root := byName(spans, "graph.run")[0]
	sub := byName(spans, "graph.subgraph")[0]
	assert.Equal(t, root.SpanContext().SpanID(), sub.Parent().SpanID())
	for _, n := range byName(spans, "node.execute") {
		if attr(n, "node.id") == "inner" {
			assert.Equal(t, sub.SpanContext().SpanID(), n.Parent().SpanID())
			assert.Equal(t, time.Second, n.EndTime().Sub(n.StartTime()))
		}
	}
}

func TestNewStdoutProvider_WritesSpans(t *testing.T) {
	var buf bytes.Buffer
	tp, err := tracing.NewStdoutProvider(&buf)
	require.NoError(t, err)
	l := tracing.NewListener(tp)

	l.Record(event.Event{Kind: event.Start, RunID: "r", GraphID: "main", Time: time.Now()})
	l.Record(event.Event{Kind: event.Done, RunID: "r", GraphID: "main", Time: time.Now()})
	require.NoError(t, tp.Shutdown(context.Background()))

	assert.Contains(t, buf.String(), "graph.run")
}
