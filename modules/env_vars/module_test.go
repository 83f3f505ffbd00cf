package env_vars_test

import (
	"testing"

	"github.com/specialistvlad/promptgridgo/internal/datavalue"
	"github.com/specialistvlad/promptgridgo/internal/engine"
	"github.com/specialistvlad/promptgridgo/internal/testutil"
	"github.com/specialistvlad/promptgridgo/modules/env_vars"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnvironmentVariable(t *testing.T) {
	testCases := []struct {
		name string
		env  map[string]string
		want datavalue.Value
	}{
		{name: "set", env: map[string]string{"API_BASE": "https://example.test"}, want: datavalue.Str("https://example.test")},
		{name: "set but empty", env: map[string]string{"API_BASE": ""}, want: datavalue.Str("")},
		{name: "unset uses default", env: map[string]string{}, want: datavalue.Str("http://localhost")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			g := testutil.NewGraph("main").
				Node("env", "getEnvironmentVariable", map[string]any{
					"variableName": "API_BASE",
					"defaultValue": "http://localhost",
				}).
				Build()

			// Act
			res, _, err := testutil.RunProject(t, testutil.Project(g), engine.RunOptions{Env: tc.env}, &env_vars.Module{})

			// Assert
			require.NoError(t, err)
			assert.Equal(t, map[string]datavalue.Value{"env.value": tc.want}, res.Outputs)
		})
	}
}

func TestGetEnvironmentVariable_NameFromInput(t *testing.T) {
	// Arrange
	g := testutil.NewGraph("main").
		Node("name", "const", map[string]any{"value": "REGION"}).
		Node("env", "getEnvironmentVariable", map[string]any{"useVariableNameInput": true}).
		Connect("name.output", "env.variableName").
		Build()

	// Act
	res, _, err := testutil.RunProject(t, testutil.Project(g),
		engine.RunOptions{Env: map[string]string{"REGION": "eu-west-1"}}, &env_vars.Module{})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, datavalue.Str("eu-west-1"), res.Outputs["env.value"])
}
