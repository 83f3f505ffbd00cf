package scheduler_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/specialistvlad/promptgridgo/internal/datavalue"
	"github.com/specialistvlad/promptgridgo/internal/event"
	"github.com/specialistvlad/promptgridgo/internal/graph"
	"github.com/specialistvlad/promptgridgo/internal/node"
	"github.com/specialistvlad/promptgridgo/internal/registry"
	"github.com/specialistvlad/promptgridgo/internal/runerr"
	"github.com/specialistvlad/promptgridgo/internal/scheduler"
	"github.com/specialistvlad/promptgridgo/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// asker suspends with one question and, on resume, outputs the first answer.
func asker() registry.Definition {
	return testutil.Kind("ask", func(node.Binding) node.Executor {
		return &testutil.Func{
			Out: testutil.Ports("answer"),
			Run: func(context.Context, node.Inputs, node.RunContext) (node.Outcome, error) {
				return node.Suspend(node.UserInputRequest{Questions: []string{"why?"}}), nil
			},
			OnResume: func(_ context.Context, _ node.Inputs, answers []string, _ node.RunContext) (node.Outcome, error) {
				return node.Succeed(node.Outputs{"answer": datavalue.Str(answers[0])}), nil
			},
		}
	})
}

func TestUserInput_SubmitResumesNode(t *testing.T) {
	// Arrange
	g := testutil.NewGraph("main").
		Node("q", "ask", nil).
		Node("echo", "noop", nil).
		Connect("q.answer", "echo.input").
		Build()
	h := newHarness(t, testutil.Project(g), []registry.Module{testKinds(asker())})
	submitErr := make(chan error, 1)
	_, err := h.p.On(event.UserInput, func(e event.Event) {
		assert.Equal(t, []string{"why?"}, e.Questions)
		submitErr <- h.p.SubmitUserInput(e.NodeID, []string{"because"})
	})
	require.NoError(t, err)

	// Act
	res, err := h.run()

	// Assert
	require.NoError(t, err)
	require.NoError(t, <-submitErr)
	assert.Equal(t, map[string]datavalue.Value{"echo.output": datavalue.Str("because")}, res.Outputs)
	assert.Equal(t, []event.Kind{event.NodeStart, event.UserInput, event.NodeFinish}, h.events.ForNode("q"))
}

func TestUserInput_SubmitToIdleNodeFails(t *testing.T) {
	g := testutil.NewGraph("main").Node("a", "noop", nil).Build()
	h := newHarness(t, testutil.Project(g), nil)

	err := h.p.SubmitUserInput("a", []string{"x"})

	assert.ErrorIs(t, err, scheduler.ErrNotParked)
}

func TestAbort_WhileWaitingForUserInput(t *testing.T) {
	// Arrange
	g := testutil.NewGraph("main").
		Node("q", "ask", nil).
		Node("after", "noop", nil).
		Connect("q.answer", "after.input").
		Build()
	h := newHarness(t, testutil.Project(g), []registry.Module{testKinds(asker())})
	_, err := h.p.On(event.UserInput, func(event.Event) { h.p.Abort(false, nil) })
	require.NoError(t, err)

	// Act
	res, err := h.run()

	// Assert
	require.Error(t, err)
	assert.ErrorIs(t, err, runerr.ErrAborted)
	assert.Equal(t, scheduler.StateAborted, res.State)
	assert.Equal(t, scheduler.StateAborted, h.p.State())
	assert.Empty(t, h.events.OfKind(event.Done))
	assert.Len(t, h.events.OfKind(event.Abort), 1)
	assert.Len(t, h.events.OfKind(event.GraphAbort), 1)
	require.Len(t, res.NodeErrors, 1)
	assert.ErrorIs(t, res.NodeErrors[0], runerr.ErrAborted)
}

func TestAbort_CancelsRunningNodes(t *testing.T) {
	sleepers := testutil.NewSleeperModule(5 * time.Second)
	g := testutil.NewGraph("main").Node("slow", "sleeper", nil).Build()
	h := newHarness(t, testutil.Project(g), []registry.Module{sleepers})
	_, err := h.p.On(event.NodeStart, func(event.Event) {
		h.p.Abort(false, nil)
		h.p.Abort(true, nil)
	})
	require.NoError(t, err)

	started := time.Now()
	res, err := h.run()

	assert.ErrorIs(t, err, runerr.ErrAborted)
	assert.Equal(t, scheduler.StateAborted, res.State)
	assert.Less(t, time.Since(started), 2*time.Second)
	assert.Len(t, h.events.OfKind(event.Abort), 1)
}

func TestAbort_AfterCompletionIsNoOp(t *testing.T) {
	g := testutil.NewGraph("main").Node("a", "noop", nil).Build()
	h := newHarness(t, testutil.Project(g), nil)

	_, err := h.run()
	require.NoError(t, err)
	h.p.Abort(false, nil)

	assert.Equal(t, scheduler.StateCompleted, h.p.State())
}

func TestAbort_ContextCancellation(t *testing.T) {
	sleepers := testutil.NewSleeperModule(5 * time.Second)
	g := testutil.NewGraph("main").Node("slow", "sleeper", nil).Build()
	h := newHarness(t, testutil.Project(g), []registry.Module{sleepers})
	ctx, cancel := context.WithTimeout(h.ctx, 50*time.Millisecond)
	defer cancel()

	res, err := h.p.Run(ctx, scheduler.RunInput{})

	assert.ErrorIs(t, err, runerr.ErrAborted)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, scheduler.StateAborted, res.State)
}

func TestConcurrency_IndependentNodesOverlap(t *testing.T) {
	// Arrange
	sleepers := testutil.NewSleeperModule(100 * time.Millisecond)
	g := testutil.NewGraph("main").
		Node("a", "sleeper", nil).
		Node("b", "sleeper", nil).
		Build()
	h := newHarness(t, testutil.Project(g), []registry.Module{sleepers})

	// Act
	_, err := h.run()

	// Assert
	require.NoError(t, err)
	ra, ok := sleepers.Record("a")
	require.True(t, ok)
	rb, ok := sleepers.Record("b")
	require.True(t, ok)
	assert.True(t, ra.Overlaps(rb), "independent nodes should run concurrently")
}

func TestConcurrency_MaxConcurrencySerializes(t *testing.T) {
	sleepers := testutil.NewSleeperModule(30 * time.Millisecond)
	g := testutil.NewGraph("main").
		Node("a", "sleeper", nil).
		Node("b", "sleeper", nil).
		Node("c", "sleeper", nil).
		Build()
	h := newHarness(t, testutil.Project(g), []registry.Module{sleepers}, scheduler.WithMaxConcurrency(1))

	_, err := h.run()

	require.NoError(t, err)
	ids := []graph.NodeID{"a", "b", "c"}
	for i := range ids {
		for j := i + 1; j < len(ids); j++ {
			ri, _ := sleepers.Record(ids[i])
			rj, _ := sleepers.Record(ids[j])
			assert.False(t, ri.Overlaps(rj), "%s and %s overlapped", ids[i], ids[j])
		}
	}
}

func TestPause_HoldsDispatchUntilResume(t *testing.T) {
	g := testutil.NewGraph("main").
		Node("a", "const", map[string]any{"value": 1}).
		Node("b", "noop", nil).
		Connect("a.output", "b.input").
		Build()
	h := newHarness(t, testutil.Project(g), []registry.Module{testKinds()})
	h.p.Pause()

	done := make(chan *scheduler.Result, 1)
	go func() {
		res, _ := h.run()
		done <- res
	}()

	select {
	case <-done:
		t.Fatal("run finished while paused")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Empty(t, h.events.OfKind(event.NodeStart))

	h.p.Resume()
	select {
	case res := <-done:
		assert.Equal(t, scheduler.StateCompleted, res.State)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not finish after resume")
	}
	assert.Len(t, h.events.OfKind(event.Pause), 1)
	assert.Len(t, h.events.OfKind(event.Resume), 1)
}

func TestGlobals_WaitForValueSetByAnotherNode(t *testing.T) {
	// Arrange
	setter := testutil.Kind("setter", func(node.Binding) node.Executor {
		return &testutil.Func{Run: func(_ context.Context, _ node.Inputs, rc node.RunContext) (node.Outcome, error) {
			time.Sleep(20 * time.Millisecond)
			rc.SetGlobal("answer", datavalue.Num(42))
			return node.Succeed(nil), nil
		}}
	})
	waiter := testutil.Kind("waiter", func(node.Binding) node.Executor {
		return &testutil.Func{
			Out: testutil.Ports("output"),
			Run: func(ctx context.Context, _ node.Inputs, rc node.RunContext) (node.Outcome, error) {
				v, err := rc.WaitForGlobal(ctx, "answer")
				if err != nil {
					return node.Outcome{}, err
				}
				return node.Succeed(node.Outputs{"output": v}), nil
			},
		}
	})
	g := testutil.NewGraph("main").
		Node("wait", "waiter", nil).
		Node("set", "setter", nil).
		Build()
	h := newHarness(t, testutil.Project(g), []registry.Module{testKinds(setter, waiter)})

	// Act
	res, err := h.run()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, datavalue.Num(42), res.Outputs["wait.output"])
	sets := h.events.OfKind(event.GlobalSet)
	require.Len(t, sets, 1)
	assert.Equal(t, "answer", sets[0].Message)
}

func TestUserEvents_HandlersThenWaiters(t *testing.T) {
	var (
		mu       sync.Mutex
		received []datavalue.Value
	)
	raiser := testutil.Kind("raiser", func(node.Binding) node.Executor {
		return &testutil.Func{Run: func(_ context.Context, _ node.Inputs, rc node.RunContext) (node.Outcome, error) {
			time.Sleep(50 * time.Millisecond)
			rc.RaiseEvent("ping", datavalue.Str("hello"))
			return node.Succeed(nil), nil
		}}
	})
	listener := testutil.Kind("listener", func(node.Binding) node.Executor {
		return &testutil.Func{
			Out: testutil.Ports("output"),
			Run: func(ctx context.Context, _ node.Inputs, rc node.RunContext) (node.Outcome, error) {
				v, err := rc.WaitForEvent(ctx, "ping")
				if err != nil {
					return node.Outcome{}, err
				}
				return node.Succeed(node.Outputs{"output": v}), nil
			},
		}
	})
	g := testutil.NewGraph("main").
		Node("listen", "listener", nil).
		Node("raise", "raiser", nil).
		Build()
	h := newHarness(t, testutil.Project(g), []registry.Module{testKinds(raiser, listener)},
		scheduler.WithUserEventHandler("ping", func(_ context.Context, v datavalue.Value) {
			mu.Lock()
			defer mu.Unlock()
			received = append(received, v)
		}))

	res, err := h.run()

	require.NoError(t, err)
	assert.Equal(t, datavalue.Str("hello"), res.Outputs["listen.output"])
	assert.Equal(t, []datavalue.Value{datavalue.Str("hello")}, received)
	userEvents := h.events.OfKind(event.UserEvent)
	require.Len(t, userEvents, 1)
	assert.Equal(t, "ping", userEvents[0].Message)
}

// callerKind runs the sub-graph named in its config with input x and
// outputs the sub-graph's outputs as an object.
func callerKind() registry.Definition {
	return testutil.Kind("call", func(b node.Binding) node.Executor {
		target := graph.GraphID(b.Config().String("graph", ""))
		return &testutil.Func{
			Out: testutil.Ports("output"),
			Run: func(ctx context.Context, _ node.Inputs, rc node.RunContext) (node.Outcome, error) {
				out, err := rc.RunSubgraph(ctx, target, map[string]datavalue.Value{"x": datavalue.Num(20)})
				if err != nil {
					return node.Outcome{}, err
				}
				return node.Succeed(node.Outputs{"output": out["double.output"]}), nil
			},
		}
	})
}

func inputDoubler() registry.Definition {
	return testutil.Kind("doubleInput", func(node.Binding) node.Executor {
		return &testutil.Func{
			Out: testutil.Ports("output"),
			Run: func(_ context.Context, _ node.Inputs, rc node.RunContext) (node.Outcome, error) {
				x, ok := rc.GraphInput("x")
				if !ok {
					return node.Outcome{}, errBoom
				}
				return node.Succeed(node.Outputs{"output": datavalue.Num(2 * datavalue.AsNumber(x))}), nil
			},
		}
	})
}

func TestSubgraph_RunsChildAndSharesBus(t *testing.T) {
	// Arrange
	main := testutil.NewGraph("main").Node("call", "call", map[string]any{"graph": "child"}).Build()
	child := testutil.NewGraph("child").Node("double", "doubleInput", nil).Build()
	h := newHarness(t, testutil.Project(main, child), []registry.Module{testKinds(callerKind(), inputDoubler())})

	// Act
	res, err := h.run()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, datavalue.Num(40), res.Outputs["call.output"])

	starts := h.events.OfKind(event.GraphStart)
	require.Len(t, starts, 1)
	assert.Equal(t, 1, starts[0].Depth)
	assert.Equal(t, graph.GraphID("child"), starts[0].GraphID)
	assert.Len(t, h.events.OfKind(event.GraphFinish), 1)
	assert.Len(t, h.events.OfKind(event.Start), 1)
	assert.Len(t, h.events.OfKind(event.Done), 1)
	for _, e := range h.events.Events() {
		assert.Equal(t, h.p.RunID(), e.RunID)
	}
}

func TestSubgraph_MaxDepth(t *testing.T) {
	main := testutil.NewGraph("main").Node("call", "call", map[string]any{"graph": "main"}).Build()
	h := newHarness(t, testutil.Project(main), []registry.Module{testKinds(callerKind(), inputDoubler())},
		scheduler.WithMaxDepth(3))

	res, err := h.run()

	require.Error(t, err)
	assert.Equal(t, scheduler.StateFailed, res.State)
	assert.ErrorIs(t, err, scheduler.ErrMaxDepth)
	assert.Len(t, h.events.OfKind(event.GraphError), 3)
}
