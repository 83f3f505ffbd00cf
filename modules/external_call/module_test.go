package external_call_test

import (
	"context"
	"errors"
	"testing"

	"github.com/specialistvlad/promptgridgo/internal/datavalue"
	"github.com/specialistvlad/promptgridgo/internal/engine"
	"github.com/specialistvlad/promptgridgo/internal/node"
	"github.com/specialistvlad/promptgridgo/internal/testutil"
	"github.com/specialistvlad/promptgridgo/modules/external_call"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sum(_ context.Context, args []datavalue.Value) (datavalue.Value, error) {
	total := 0.0
	for _, a := range args {
		total += datavalue.AsNumber(a)
	}
	return datavalue.Num(total), nil
}

func fails(context.Context, []datavalue.Value) (datavalue.Value, error) {
	return datavalue.Value{}, errors.New("remote unavailable")
}

func TestExternalCall(t *testing.T) {
	functions := node.ExternalFunctions{"sum": sum, "fails": fails}

	testCases := []struct {
		name     string
		cfg      map[string]any
		args     any
		wantOut  map[string]datavalue.Value
		wantFail string
	}{
		{
			name:    "array arguments are spread",
			cfg:     map[string]any{"functionName": "sum"},
			args:    datavalue.Array(datavalue.Number, []any{1.0, 2.0, 3.0}),
			wantOut: map[string]datavalue.Value{"call.result": datavalue.Num(6)},
		},
		{
			name:    "scalar is a single argument",
			cfg:     map[string]any{"functionName": "sum"},
			args:    4,
			wantOut: map[string]datavalue.Value{"call.result": datavalue.Num(4)},
		},
		{
			name:     "unknown function",
			cfg:      map[string]any{"functionName": "nope"},
			args:     1,
			wantFail: `external function "nope" is not defined`,
		},
		{
			name:     "failure without error output",
			cfg:      map[string]any{"functionName": "fails"},
			args:     1,
			wantFail: "remote unavailable",
		},
		{
			name:    "failure routed to error output",
			cfg:     map[string]any{"functionName": "fails", "useErrorOutput": true},
			args:    1,
			wantOut: map[string]datavalue.Value{"call.error": datavalue.Str("remote unavailable")},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			g := testutil.NewGraph("main").
				Node("args", "const", map[string]any{"value": tc.args}).
				Node("call", "externalCall", tc.cfg).
				Connect("args.output", "call.arguments").
				Build()

			// Act
			res, _, err := testutil.RunProject(t, testutil.Project(g),
				engine.RunOptions{ExternalFunctions: functions}, &external_call.Module{})

			// Assert
			if tc.wantFail != "" {
				require.Error(t, err)
				require.Len(t, res.NodeErrors, 1)
				assert.ErrorContains(t, res.NodeErrors[0], tc.wantFail)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantOut, res.Outputs)
		})
	}
}

func TestExternalCall_FunctionNameFromInput(t *testing.T) {
	g := testutil.NewGraph("main").
		Node("name", "const", map[string]any{"value": "echo"}).
		Node("args", "const", map[string]any{"value": "ping"}).
		Node("call", "externalCall", map[string]any{"useFunctionNameInput": true}).
		Connect("name.output", "call.functionName").
		Connect("args.output", "call.arguments").
		Build()

	res, _, err := testutil.RunProject(t, testutil.Project(g), engine.RunOptions{}, &external_call.Module{})

	require.NoError(t, err)
	assert.Equal(t, datavalue.Str("ping"), res.Outputs["call.result"])
}
