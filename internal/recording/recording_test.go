package recording_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/promptgridgo/internal/datavalue"
	"github.com/specialistvlad/promptgridgo/internal/engine"
	"github.com/specialistvlad/promptgridgo/internal/event"
	"github.com/specialistvlad/promptgridgo/internal/graph"
	"github.com/specialistvlad/promptgridgo/internal/node"
	"github.com/specialistvlad/promptgridgo/internal/recording"
	"github.com/specialistvlad/promptgridgo/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordRun(t *testing.T) (*recording.Recording, *testutil.Collector) {
	t.Helper()
	g := testutil.NewGraph("main").
		Node("a", "const", map[string]any{"value": "hello"}).
		Node("b", "noop", nil).
		Connect("a.output", "b.input").
		Build()

	rec := recording.NewRecorder()
	_, c, err := testutil.RunProject(t, testutil.Project(g), engine.RunOptions{
		Listeners: []event.Listener{rec.Record},
	})
	require.NoError(t, err)
	return rec.Recording(), c
}

func kinds(entries []recording.Entry) []event.Kind {
	out := make([]event.Kind, len(entries))
	for i, e := range entries {
		out[i] = e.Event.Kind
	}
	return out
}

func TestRecorder_CapturesRun(t *testing.T) {
	// Act
	rec, c := recordRun(t)

	// Assert
	assert.Equal(t, recording.StateCompleted, rec.State)
	assert.Equal(t, graph.GraphID("main"), rec.GraphID)
	assert.NotEmpty(t, rec.RunID)
	if diff := cmp.Diff(c.Kinds(), kinds(rec.Events)); diff != "" {
		t.Errorf("recorded kinds mismatch (-want +got):\n%s", diff)
	}
	for i := 1; i < len(rec.Events); i++ {
		assert.GreaterOrEqual(t, rec.Events[i].Offset, rec.Events[i-1].Offset)
	}
	assert.Equal(t, rec.Events[len(rec.Events)-1].Offset, rec.Duration())
}

func TestRecorder_FailedAndAbortedState(t *testing.T) {
	testCases := []struct {
		name   string
		events []event.Event
		want   string
	}{
		{name: "error", events: []event.Event{{Kind: event.Start}, {Kind: event.Error}}, want: recording.StateFailed},
		{name: "abort", events: []event.Event{{Kind: event.Start}, {Kind: event.Abort}}, want: recording.StateAborted},
		{name: "successful abort", events: []event.Event{{Kind: event.Start}, {Kind: event.Abort, Successful: true}}, want: recording.StateCompleted},
		{name: "sub-graph error does not count", events: []event.Event{{Kind: event.Start}, {Kind: event.GraphError, Depth: 1}}, want: recording.StateRunning},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := recording.NewRecorder()
			for _, ev := range tc.events {
				r.Record(ev)
			}
			assert.Equal(t, tc.want, r.Recording().State)
		})
	}
}

func TestRecording_JSONRoundTrip(t *testing.T) {
	rec, _ := recordRun(t)

	b, err := json.Marshal(rec)
	require.NoError(t, err)
	var back recording.Recording
	require.NoError(t, json.Unmarshal(b, &back))

	assert.Equal(t, rec.RunID, back.RunID)
	assert.Equal(t, rec.State, back.State)
	assert.Equal(t, kinds(rec.Events), kinds(back.Events))

	var finish event.Event
	for _, e := range back.Events {
		if e.Event.Kind == event.NodeFinish && e.Event.NodeID == "b" {
			finish = e.Event
		}
	}
	assert.Equal(t, datavalue.Str("hello"), finish.Outputs["output"])
}

func TestPlayer_ReplaysInOrder(t *testing.T) {
	// Arrange
	rec, _ := recordRun(t)
	bus := event.NewBus()
	var mu sync.Mutex
	var got []event.Kind
	_, err := bus.OnAny(func(e event.Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e.Kind)
	})
	require.NoError(t, err)

	// Act
	err = recording.NewPlayer(node.Settings{}).Replay(context.Background(), rec, bus)
	bus.Close()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, kinds(rec.Events), got)
}

type sliceEmitter struct{ events []event.Event }

func (s *sliceEmitter) Emit(ev event.Event) { s.events = append(s.events, ev) }

func TestPlayer_HonorsLatency(t *testing.T) {
	rec := &recording.Recording{Events: []recording.Entry{
		{Event: event.Event{Kind: event.Start}},
		{Event: event.Event{Kind: event.NodeStart}},
		{Event: event.Event{Kind: event.Done}},
	}}
	out := &sliceEmitter{}
	p := recording.NewPlayer(node.Settings{RecordingPlaybackLatency: 20 * time.Millisecond})

	started := time.Now()
	require.NoError(t, p.Replay(context.Background(), rec, out))

	assert.GreaterOrEqual(t, time.Since(started), 40*time.Millisecond)
	assert.Len(t, out.events, 3)
}

func TestPlayer_StopsOnCancel(t *testing.T) {
	rec := &recording.Recording{Events: []recording.Entry{
		{Event: event.Event{Kind: event.Start}},
		{Event: event.Event{Kind: event.Done}},
	}}
	out := &sliceEmitter{}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := (&recording.Player{Latency: time.Hour}).Replay(ctx, rec, out)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, out.events, 1)
}
