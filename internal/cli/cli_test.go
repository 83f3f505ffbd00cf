package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/specialistvlad/promptgridgo/internal/app"
	"github.com/specialistvlad/promptgridgo/internal/config"
	"github.com/specialistvlad/promptgridgo/internal/runerr"
	"github.com/specialistvlad/promptgridgo/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const project = `
graph "main" {
  name = "Adder"

  node "a" {
    kind = "graphInput"
    config = {
      id       = "a"
      dataType = "number"
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
  }

  connection {
    from = "a.data"
    to   = "sum.a"
  }

  connection {
    from = "b.value"
    to   = "sum.b"
  }

  outputs = ["sum.output"]
}

graph "other" {
  node "t" {
    kind = "text"
    config = {
      text = "hi"
    }
  }
}
`

func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.hcl"), []byte(project), 0o600))
	return dir
}

func execute(t *testing.T, env map[string]string, args ...string) (string, string, error) {
	t.Helper()
	out, errW := &testutil.SafeBuffer{}, &testutil.SafeBuffer{}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
	err := Execute(context.Background(), args, Options{
		Out:    out,
		Err:    errW,
		Lookup: lookup,
		Env:    map[string]string{},
	})
	return out.String(), errW.String(), err
}

func TestRun_PrintsOutputs(t *testing.T) {
	// Arrange
	dir := writeProject(t)

	// Act
	out, logs, err := execute(t, nil, "run", dir, "--input", "a=2", "--log-level", "debug")

	// Assert
	require.NoError(t, err, logs)
	var printed map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &printed))
	assert.Equal(t, map[string]any{"sum.output": float64(5)}, printed)
	assert.Contains(t, logs, "level=DEBUG")
}

func TestRun_GraphFromEnvironment(t *testing.T) {
	// Arrange
	dir := writeProject(t)
	env := map[string]string{config.EnvPrefix + "GRAPH": "missing"}

	// Act
	_, _, err := execute(t, env, "run", dir)

	// Assert
	require.ErrorIs(t, err, runerr.ErrGraphNotFound)
	assert.Equal(t, ExitBadGraph, ExitCode(err))
}

func TestRun_FlagOverridesEnvironment(t *testing.T) {
	// Arrange
	dir := writeProject(t)
	env := map[string]string{config.EnvPrefix + "GRAPH": "missing"}

	// Act
	out, _, err := execute(t, env, "run", dir, "--graph", "other")

	// Assert
	require.NoError(t, err)
	assert.JSONEq(t, `{"t.output": "hi"}`, out)
}

func TestRun_UsageErrors(t *testing.T) {
	dir := writeProject(t)
	testCases := []struct {
		name string
		args []string
	}{
		{name: "unknown flag", args: []string{"run", dir, "--no-such-flag"}},
		{name: "bad log level", args: []string{"run", dir, "--log-level", "loud"}},
		{name: "bad input", args: []string{"run", dir, "--input", "novalue"}},
		{name: "no project", args: []string{"run"}},
		{name: "negative concurrency", args: []string{"run", dir, "--max-concurrency", "-1"}},
		{name: "replay without run id", args: []string{"replay", "--db", "x.db"}},
		{name: "recordings without db", args: []string{"recordings", "list"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Act
			_, _, err := execute(t, nil, tc.args...)

			// Assert
			require.Error(t, err)
			assert.Equal(t, ExitUsage, ExitCode(err))
		})
	}
}

func TestRun_ConfigFile(t *testing.T) {
	// Arrange
	dir := writeProject(t)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	yaml := fmt.Sprintf("projectPaths: [%q]\ninputs:\n  a: 10\n", dir)
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0o600))

	// Act
	out, _, err := execute(t, nil, "--config", cfgPath, "run")

	// Assert
	require.NoError(t, err)
	assert.JSONEq(t, `{"sum.output": 13}`, out)
}

func TestGraphs_ListsProject(t *testing.T) {
	// Arrange
	dir := writeProject(t)

	// Act
	out, _, err := execute(t, nil, "graphs", dir)

	// Assert
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"ID", "NAME", "NODES", "MAIN"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"main", "Adder", "3", "*"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"other", "other", "1"}, strings.Fields(lines[2]))
}

func TestRecordings_RecordListShowReplay(t *testing.T) {
	// Arrange
	dir := writeProject(t)
	db := filepath.Join(t.TempDir(), "runs.db")
	_, _, err := execute(t, nil, "run", dir, "--input", "a=1", "--record", db)
	require.NoError(t, err)

	// Act
	listOut, _, err := execute(t, nil, "recordings", "list", "--db", db)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(listOut), "\n")
	require.Len(t, lines, 2)
	fields := strings.Fields(lines[1])
	runID := fields[0]

	showOut, _, showErr := execute(t, nil, "recordings", "show", runID, "--db", db)
	replayOut, _, replayErr := execute(t, nil, "replay", runID, "--db", db)
	_, _, missingErr := execute(t, nil, "replay", "nope", "--db", db)

	// Assert
	assert.Equal(t, []string{"main", "completed"}, []string{fields[1], fields[3]})

	require.NoError(t, showErr)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(showOut), &rec))
	assert.NotEmpty(t, rec)

	require.NoError(t, replayErr)
	assert.Contains(t, replayOut, `"type":"start"`)
	assert.Contains(t, replayOut, `"type":"done"`)

	assert.Error(t, missingErr)
	assert.Equal(t, ExitFailed, ExitCode(missingErr))
}

func TestExitCode(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: ExitOK},
		{name: "explicit", err: &ExitError{Code: 42, Message: "x"}, want: 42},
		{name: "wrapped explicit", err: fmt.Errorf("ctx: %w", &ExitError{Code: 2}), want: 2},
		{name: "aborted", err: fmt.Errorf("run: %w", runerr.ErrAborted), want: ExitCancelled},
		{name: "canceled", err: context.Canceled, want: ExitCancelled},
		{name: "config", err: fmt.Errorf("%w: bad", config.ErrInvalid), want: ExitUsage},
		{name: "graph not found", err: runerr.ErrGraphNotFound, want: ExitBadGraph},
		{name: "invalid graph", err: runerr.ErrInvalidGraphStructure, want: ExitBadGraph},
		{name: "project load", err: app.ErrProjectLoad, want: ExitBadGraph},
		{name: "run failed", err: runerr.ErrRunFailed, want: ExitFailed},
		{name: "other", err: errors.New("boom"), want: ExitFailed},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExitCode(tc.err))
		})
	}
}
