package code

import (
	"context"
	"testing"

	"github.com/specialistvlad/promptgridgo/internal/datavalue"
	"github.com/specialistvlad/promptgridgo/internal/graph"
	"github.com/specialistvlad/promptgridgo/internal/node"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCode(t *testing.T) {
	testCases := []struct {
		name string
		code string
		in   node.Inputs
		want datavalue.Value
	}{
		{
			name: "arithmetic by name",
			code: "a * b + inputs.a",
			in:   node.Inputs{"a": datavalue.Num(2), "b": datavalue.Num(3)},
			want: datavalue.Num(8),
		},
		{
			name: "string result",
			code: `a + " " + b`,
			in:   node.Inputs{"a": datavalue.Str("hello"), "b": datavalue.Str("world")},
			want: datavalue.Str("hello world"),
		},
		{
			name: "array result is typed",
			code: "[a, b]",
			in:   node.Inputs{"a": datavalue.Str("x"), "b": datavalue.Str("y")},
			want: datavalue.Array(datavalue.String, []any{"x", "y"}),
		},
		{
			name: "missing input is nil",
			code: "b == nil",
			in:   node.Inputs{"a": datavalue.Num(1)},
			want: datavalue.Bool(true),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			e, err := newCode(node.Binding{Node: &graph.Node{ID: "c", Config: map[string]any{
				"code":       tc.code,
				"inputNames": []any{"a", "b"},
			}}})
			require.NoError(t, err)

			// Act
			out, err := e.Execute(context.Background(), tc.in, nil)

			// Assert
			require.NoError(t, err)
			assert.Equal(t, tc.want, out.Outputs["output"])
		})
	}
}

func TestCode_CompileError(t *testing.T) {
	_, err := newCode(node.Binding{Node: &graph.Node{ID: "c", Config: map[string]any{"code": "a +"}}})

	assert.ErrorContains(t, err, "compiling expression")
}

func TestCode_Ports(t *testing.T) {
	e, err := newCode(node.Binding{Node: &graph.Node{ID: "c", Config: map[string]any{
		"code":       "x",
		"inputNames": []any{"x", "y"},
	}}})
	require.NoError(t, err)

	var ids []graph.PortID
	for _, d := range e.InputPorts() {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []graph.PortID{"x", "y"}, ids)
}
