package app

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/specialistvlad/promptgridgo/internal/config"
	"github.com/specialistvlad/promptgridgo/internal/event"
	"github.com/specialistvlad/promptgridgo/internal/graph"
	"github.com/specialistvlad/promptgridgo/internal/recording"
	"github.com/specialistvlad/promptgridgo/internal/runerr"
	"github.com/specialistvlad/promptgridgo/internal/scheduler"
	"github.com/specialistvlad/promptgridgo/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sumProject = `
graph "main" {
  node "a" {
    kind = "number"
    config = {
      value = 2
    }
  }

  node "b" {
    kind = "number"
    config = {
      value = 3
    }
  }

  node "sum" {
    kind = "evaluate"
    config = {
      operation = "+"
    }
  }

  connection {
    from = "a.value"
    to   = "sum.a"
  }

  connection {
    from = "b.value"
    to   = "sum.b"
  }

  outputs = ["sum.output"]
}
`

func setupApp(t *testing.T, mutate func(*config.Config)) (*App, *testutil.SafeBuffer, *testutil.SafeBuffer) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.hcl"), []byte(sumProject), 0o600))

	cfg := config.Default()
	cfg.LogLevel = "debug"
	cfg.ProjectPaths = []string{dir}
	if mutate != nil {
		mutate(&cfg)
	}

	out, logs := &testutil.SafeBuffer{}, &testutil.SafeBuffer{}
	a := NewApp(out, logs, cfg)
	a.SetEnv(map[string]string{})
	t.Cleanup(func() {
		if os.Getenv("PROMPTGRID_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})
	return a, out, logs
}

func TestApp_RunPrintsOutputs(t *testing.T) {
	// Arrange
	a, out, logs := setupApp(t, nil)

	// Act
	res, err := a.Run(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, scheduler.StateCompleted, res.State)
	var printed map[string]any
	require.NoError(t, json.Unmarshal([]byte(out.String()), &printed))
	assert.Equal(t, map[string]any{"sum.output": float64(5)}, printed)
	assert.Contains(t, logs.String(), "Project loaded successfully.")
}

func TestApp_RecordAndReplay(t *testing.T) {
	// Arrange
	db := filepath.Join(t.TempDir(), "runs.db")
	a, _, _ := setupApp(t, func(c *config.Config) { c.RecordingDB = db })
	res, err := a.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res)

	// Act
	list, err := a.Recordings(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, list, 1)

	replayer, out, _ := setupApp(t, func(c *config.Config) { c.RecordingDB = db })
	require.NoError(t, replayer.Replay(context.Background(), list[0].RunID))

	// Assert
	assert.Equal(t, graph.GraphID("main"), list[0].GraphID)
	assert.Equal(t, recording.StateCompleted, list[0].State)

	var kinds []event.Kind
	sc := bufio.NewScanner(strings.NewReader(out.String()))
	for sc.Scan() {
		var ev event.Event
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev))
		kinds = append(kinds, ev.Kind)
	}
	require.NotEmpty(t, kinds)
	assert.Equal(t, event.Start, kinds[0])
	assert.Equal(t, event.Done, kinds[len(kinds)-1])
}

func TestApp_UnknownGraph(t *testing.T) {
	a, out, _ := setupApp(t, func(c *config.Config) { c.Graph = "missing" })

	res, err := a.Run(context.Background())

	assert.ErrorIs(t, err, runerr.ErrGraphNotFound)
	assert.Nil(t, res)
	assert.Empty(t, out.String())
}

func TestApp_UnknownKind(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.hcl"), []byte(`
graph "main" {
  node "x" {
    kind = "doesNotExist"
  }
}
`), 0o600))
	cfg := config.Default()
	cfg.ProjectPaths = []string{dir}
	a := NewApp(&testutil.SafeBuffer{}, &testutil.SafeBuffer{}, cfg)

	_, err := a.LoadProject(context.Background())

	assert.ErrorIs(t, err, runerr.ErrUnknownNodeKind)
}

func TestApp_TraceStdout(t *testing.T) {
	a, out, _ := setupApp(t, func(c *config.Config) { c.TraceStdout = true })

	_, err := a.Run(context.Background())

	require.NoError(t, err)
	assert.Contains(t, out.String(), `"Name": "graph.run"`)
	assert.Contains(t, out.String(), `"Name": "node.execute"`)
}

func TestApp_RegistersCoreModules(t *testing.T) {
	a := NewApp(&testutil.SafeBuffer{}, &testutil.SafeBuffer{}, config.Default())

	kinds := a.Registry().Kinds()

	for _, k := range []string{"text", "evaluate", "graphInput", "subGraph", "userInput", "httpCall", "externalCall", "extractJson", "code", "getEnvironmentVariable", "readFile"} {
		assert.Contains(t, kinds, k)
	}
}
