package metrics_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/specialistvlad/promptgridgo/internal/engine"
	"github.com/specialistvlad/promptgridgo/internal/event"
	"github.com/specialistvlad/promptgridgo/internal/metrics"
	gridtest "github.com/specialistvlad/promptgridgo/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_CountsRun(t *testing.T) {
	// Arrange
	g := gridtest.NewGraph("main").
		Node("a", "const", map[string]any{"value": 1}).
		Node("b", "noop", nil).
		Connect("a.output", "b.input").
		Build()
	c := metrics.NewCollector()

	// Act
	_, _, err := gridtest.RunProject(t, gridtest.Project(g), engine.RunOptions{
		Listeners: []event.Listener{c.Record},
	})

	// Assert
	require.NoError(t, err)
	expected := `
# HELP promptgrid_runs_total Finished top-level runs by final state
# TYPE promptgrid_runs_total counter
promptgrid_runs_total{state="completed"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(c.Registry(), strings.NewReader(expected), "promptgrid_runs_total"))
	// nodeStart and nodeFinish for each of the two kinds.
	n, err := testutil.GatherAndCount(c.Registry(), "promptgrid_node_events_total")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	n, err = testutil.GatherAndCount(c.Registry(), "promptgrid_node_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCollector_NodeStates(t *testing.T) {
	c := metrics.NewCollector()
	t0 := time.Unix(0, 0)
	for _, ev := range []event.Event{
		{Kind: event.NodeStart, NodeID: "a", NodeKind: "http", Time: t0},
		{Kind: event.NodeError, NodeID: "a", NodeKind: "http", Time: t0.Add(time.Second)},
		{Kind: event.NodeExcluded, NodeID: "b", NodeKind: "text", Time: t0},
		{Kind: event.Error},
		{Kind: event.GraphError, Depth: 1},
	} {
		c.Record(ev)
	}

	expected := `
# HELP promptgrid_node_events_total Node lifecycle events by node kind and event type
# TYPE promptgrid_node_events_total counter
promptgrid_node_events_total{event="nodeError",kind="http"} 1
promptgrid_node_events_total{event="nodeExcluded",kind="text"} 1
promptgrid_node_events_total{event="nodeStart",kind="http"} 1
# HELP promptgrid_runs_total Finished top-level runs by final state
# TYPE promptgrid_runs_total counter
promptgrid_runs_total{state="failed"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(c.Registry(), strings.NewReader(expected),
		"promptgrid_node_events_total", "promptgrid_runs_total"))
	// Only the started node has a duration.
	n, err := testutil.GatherAndCount(c.Registry(), "promptgrid_node_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCollector_Handler(t *testing.T) {
	c := metrics.NewCollector()
	c.Record(event.Event{Kind: event.Abort})

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `promptgrid_runs_total{state="aborted"} 1`)
}
