package node

import (
	"testing"

	"github.com/specialistvlad/promptgridgo/internal/datavalue"
	"github.com/specialistvlad/promptgridgo/internal/graph"
	"github.com/stretchr/testify/assert"
)

func TestConfig_Accessors(t *testing.T) {
	c := Config{
		"name":    "x",
		"count":   3,
		"ratio":   "0.5",
		"enabled": "true",
		"tags":    []any{"a", "b"},
		"kind":    "number[]",
		"nil":     nil,
	}

	assert.Equal(t, "x", c.String("name", "def"))
	assert.Equal(t, "def", c.String("missing", "def"))
	assert.Equal(t, "def", c.String("nil", "def"))
	assert.Equal(t, 3, c.Int("count", 0))
	assert.Equal(t, 0.5, c.Number("ratio", 0))
	assert.Equal(t, 7.0, c.Number("name", 7))
	assert.True(t, c.Bool("enabled", false))
	assert.Equal(t, []string{"a", "b"}, c.Strings("tags"))
	assert.Equal(t, []string{"x"}, c.Strings("name"))
	assert.Equal(t, datavalue.ArrayOf(datavalue.Number), c.Kind("kind", datavalue.Any))
	assert.Equal(t, datavalue.Any, c.Kind("name", datavalue.Any))
}

func TestUseInputKey(t *testing.T) {
	assert.Equal(t, "useUrlInput", UseInputKey("url"))
	assert.Equal(t, "useFunctionNameInput", UseInputKey("functionName"))
}

func TestInputOr(t *testing.T) {
	c := Config{"url": "http://cfg", "useUrlInput": true}

	got := InputOr(c, Inputs{"url": datavalue.Str("http://in")}, "url", "url", datavalue.String)
	assert.Equal(t, datavalue.Str("http://in"), got)

	got = InputOr(c, Inputs{}, "url", "url", datavalue.String)
	assert.Equal(t, datavalue.Str("http://cfg"), got)

	got = InputOr(Config{"url": "http://cfg"}, Inputs{"url": datavalue.Str("http://in")}, "url", "url", datavalue.String)
	assert.Equal(t, datavalue.Str("http://cfg"), got, "input ignored unless toggled on")

	got = InputOr(Config{}, Inputs{}, "delay", "delay", datavalue.Number)
	assert.Equal(t, datavalue.Num(0), got)
}

func TestNumberedPortCount(t *testing.T) {
	incoming := []graph.Connection{
		{InputID: "input1"},
		{InputID: "input3"},
		{InputID: "input3Default"},
		{InputID: "continue"},
	}

	assert.Equal(t, 3, NumberedPortCount(incoming, "input"))
	assert.Equal(t, 0, NumberedPortCount(nil, "input"))
}

func TestOutcome(t *testing.T) {
	assert.True(t, Exclude().Excluded())
	assert.False(t, Exclude().Suspended())

	s := Suspend(UserInputRequest{Questions: []string{"q"}})
	assert.True(t, s.Suspended())
	assert.Equal(t, []string{"q"}, s.Request.Questions)

	ok := Succeed(nil)
	assert.False(t, ok.Excluded())
	assert.NotNil(t, ok.Outputs)
}
