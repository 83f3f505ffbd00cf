package values

import (
	"context"
	"testing"

	"github.com/specialistvlad/promptgridgo/internal/datavalue"
	"github.com/specialistvlad/promptgridgo/internal/graph"
	"github.com/specialistvlad/promptgridgo/internal/node"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bind(cfg map[string]any, incoming ...graph.PortID) node.Binding {
	b := node.Binding{Node: &graph.Node{ID: "n", Config: cfg}}
	for _, p := range incoming {
		b.Incoming = append(b.Incoming, graph.Connection{OutputNodeID: "src", OutputID: "output", InputNodeID: "n", InputID: p})
	}
	return b
}

func run(t *testing.T, f node.Factory, b node.Binding, in node.Inputs) (node.Outputs, error) {
	t.Helper()
	e, err := f(b)
	require.NoError(t, err)
	out, err := e.Execute(context.Background(), in, nil)
	return out.Outputs, err
}

func portIDs(ds []node.PortDescriptor) []graph.PortID {
	var out []graph.PortID
	for _, d := range ds {
		out = append(out, d.ID)
	}
	return out
}

func TestText_InterpolatesInputs(t *testing.T) {
	// Arrange
	b := bind(map[string]any{"text": "Hello {{name}}, you have {{n}} messages{{missing}}. Bye {{name}}"})
	e, err := newText(b)
	require.NoError(t, err)

	// Act
	out, err := run(t, newText, b, node.Inputs{"name": datavalue.Str("Ada"), "n": datavalue.Num(2)})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []graph.PortID{"name", "n", "missing"}, portIDs(e.InputPorts()))
	assert.Equal(t, datavalue.Str("Hello Ada, you have 2 messages. Bye Ada"), out["output"])
}

func TestNumber(t *testing.T) {
	testCases := []struct {
		name string
		cfg  map[string]any
		in   node.Inputs
		want float64
	}{
		{name: "literal", cfg: map[string]any{"value": 7}, want: 7},
		{name: "rounded", cfg: map[string]any{"value": 3.14159, "round": true, "roundTo": 2}, want: 3.14},
		{name: "input coerced", cfg: map[string]any{"useInput": true}, in: node.Inputs{"input": datavalue.Str("42")}, want: 42},
		{name: "input ignored when off", cfg: map[string]any{"value": 1}, in: node.Inputs{"input": datavalue.Num(9)}, want: 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := run(t, newNumber, bind(tc.cfg), tc.in)
			require.NoError(t, err)
			assert.Equal(t, datavalue.Num(tc.want), out["value"])
		})
	}
}

func TestNumber_BadInput(t *testing.T) {
	_, err := run(t, newNumber, bind(map[string]any{"useInput": true}), node.Inputs{"input": datavalue.Str("abc")})
	assert.ErrorContains(t, err, "number")
}

func TestBoolean(t *testing.T) {
	out, err := run(t, newBoolean, bind(map[string]any{"useInput": true}), node.Inputs{"input": datavalue.Str("false")})
	require.NoError(t, err)
	assert.Equal(t, datavalue.Bool(false), out["value"])

	out, err = run(t, newBoolean, bind(map[string]any{"value": true}), nil)
	require.NoError(t, err)
	assert.Equal(t, datavalue.Bool(true), out["value"])
}

func TestObject_RendersJSONTemplate(t *testing.T) {
	// Arrange
	b := bind(map[string]any{"jsonTemplate": `{"name": {{name}}, "tags": {{tags}}, "extra": {{extra}}}`})
	in := node.Inputs{
		"name": datavalue.Str("x"),
		"tags": datavalue.Array(datavalue.String, []any{"a"}),
	}

	// Act
	out, err := run(t, newObject, b, in)

	// Assert
	require.NoError(t, err)
	want := map[string]any{"name": "x", "tags": []any{"a"}, "extra": nil}
	assert.Equal(t, datavalue.Obj(want), out["output"])
}

func TestObject_InvalidTemplate(t *testing.T) {
	_, err := run(t, newObject, bind(map[string]any{"jsonTemplate": `{"a": }`}), nil)
	assert.ErrorContains(t, err, "not valid JSON")
}

func TestArray(t *testing.T) {
	in := node.Inputs{
		"input1": datavalue.Array(datavalue.Number, []any{1.0, 2.0}),
		"input2": datavalue.Num(3),
	}

	t.Run("flattens by default", func(t *testing.T) {
		out, err := run(t, newArray, bind(nil, "input1", "input2"), in)
		require.NoError(t, err)
		assert.Equal(t, datavalue.Array(datavalue.Number, []any{1.0, 2.0, 3.0}), out["output"])
		assert.Equal(t, datavalue.Array(datavalue.Number, []any{0.0, 1.0, 2.0}), out["indices"])
	})

	t.Run("nested when flatten is off", func(t *testing.T) {
		out, err := run(t, newArray, bind(map[string]any{"flatten": false}, "input1", "input2"), in)
		require.NoError(t, err)
		assert.Equal(t, datavalue.Array(datavalue.Any, []any{[]any{1.0, 2.0}, 3.0}), out["output"])
	})

	t.Run("skips excluded inputs", func(t *testing.T) {
		out, err := run(t, newArray, bind(nil, "input2"), node.Inputs{"input1": datavalue.Excluded(), "input2": datavalue.Str("a")})
		require.NoError(t, err)
		assert.Equal(t, datavalue.Array(datavalue.String, []any{"a"}), out["output"])
	})
}

func TestToJSON(t *testing.T) {
	in := node.Inputs{"data": datavalue.Obj(map[string]any{"a": 1.0})}

	out, err := run(t, newToJSON, bind(map[string]any{"indented": false}), in)
	require.NoError(t, err)
	assert.Equal(t, datavalue.Str(`{"a":1}`), out["text"])

	out, err = run(t, newToJSON, bind(nil), in)
	require.NoError(t, err)
	assert.Equal(t, datavalue.Str("{\n  \"a\": 1\n}"), out["text"])
}

func TestPassthrough(t *testing.T) {
	b := bind(nil, "input2")
	e, err := newPassthrough(b)
	require.NoError(t, err)

	out, err := run(t, newPassthrough, b, node.Inputs{"input2": datavalue.Str("v")})

	require.NoError(t, err)
	assert.Equal(t, []graph.PortID{"output1", "output2", "output3"}, portIDs(e.OutputPorts()))
	assert.Equal(t, node.Outputs{"output2": datavalue.Str("v")}, out)
}

func TestJoin(t *testing.T) {
	in := node.Inputs{"input": datavalue.Array(datavalue.String, []any{"a", "b"})}

	out, err := run(t, newJoin, bind(nil), in)
	require.NoError(t, err)
	assert.Equal(t, datavalue.Str("a\nb"), out["output"])

	out, err = run(t, newJoin, bind(map[string]any{"joinString": ", "}), in)
	require.NoError(t, err)
	assert.Equal(t, datavalue.Str("a, b"), out["output"])
}

func TestSplit(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     map[string]any
		input   string
		want    []any
		wantErr string
	}{
		{name: "default comma", input: "a,b,c", want: []any{"a", "b", "c"}},
		{name: "escaped newline", cfg: map[string]any{"delimiter": `\n`}, input: "x\ny", want: []any{"x", "y"}},
		{name: "regex", cfg: map[string]any{"delimiter": `\s+`, "regex": true}, input: "a  b c", want: []any{"a", "b", "c"}},
		{name: "bad regex", cfg: map[string]any{"delimiter": "(", "regex": true}, input: "a", wantErr: "invalid delimiter"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := run(t, newSplit, bind(tc.cfg), node.Inputs{"string": datavalue.Str(tc.input)})
			if tc.wantErr != "" {
				assert.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, datavalue.Array(datavalue.String, tc.want), out["splitString"])
		})
	}
}
