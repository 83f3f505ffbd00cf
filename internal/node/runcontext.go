package node

import (
	"context"
	"time"

	"github.com/specialistvlad/promptgridgo/internal/datavalue"
	"github.com/specialistvlad/promptgridgo/internal/graph"
	"github.com/specialistvlad/promptgridgo/internal/httpprovider"
	"github.com/specialistvlad/promptgridgo/internal/nativeapi"
)

// ExternalFunction is a caller-supplied callable reachable from nodes.
type ExternalFunction func(ctx context.Context, args []datavalue.Value) (datavalue.Value, error)

// ExternalFunctions maps names to callables.
type ExternalFunctions map[string]ExternalFunction

// Settings are the run-wide settings visible to node executors.
type Settings struct {
	OpenAIKey                string                    `yaml:"openAiKey" json:"openAiKey,omitempty"`
	OpenAIOrganization       string                    `yaml:"openAiOrganization" json:"openAiOrganization,omitempty"`
	OpenAIEndpoint           string                    `yaml:"openAiEndpoint" json:"openAiEndpoint,omitempty"`
	APIKeys                  map[string]string         `yaml:"apiKeys" json:"apiKeys,omitempty"`
	PluginEnv                map[string]string         `yaml:"pluginEnv" json:"pluginEnv,omitempty"`
	PluginSettings           map[string]map[string]any `yaml:"pluginSettings" json:"pluginSettings,omitempty"`
	RecordingPlaybackLatency time.Duration             `yaml:"recordingPlaybackLatency" json:"recordingPlaybackLatency,omitempty"`
}

// RunContext is the per-node view of a run. One RunContext is handed to each
// execution; all of them share the run's inputs, settings and providers.
type RunContext interface {
	RunID() string
	GraphID() graph.GraphID
	NodeID() graph.NodeID
	Project() *graph.Project

	GraphInput(id string) (datavalue.Value, bool)
	ContextValue(id string) (datavalue.Value, bool)
	Settings() Settings
	Env() map[string]string

	// Aborted reports whether the run's abort latch is set.
	Aborted() bool

	ExternalFunction(name string) (ExternalFunction, bool)
	HTTP() httpprovider.Provider
	// Native may return nil when the host grants no native access.
	Native() nativeapi.API

	// LoopIteration is the number of times this node already ran in the
	// current loop; zero outside loops.
	LoopIteration() int

	SetGraphOutput(id string, v datavalue.Value)
	PartialOutput(out Outputs)
	Trace(message string)

	RunSubgraph(ctx context.Context, graphID graph.GraphID, inputs map[string]datavalue.Value) (map[string]datavalue.Value, error)

	GetGlobal(id string) (datavalue.Value, bool)
	// SetGlobal stores v and returns the value it replaced, if any.
	SetGlobal(id string, v datavalue.Value) (prev datavalue.Value, had bool)
	WaitForGlobal(ctx context.Context, id string) (datavalue.Value, error)

	RaiseEvent(name string, data datavalue.Value)
	WaitForEvent(ctx context.Context, name string) (datavalue.Value, error)

	// AbortGraph latches the run's abort. A successful abort is an early exit.
	AbortGraph(successful bool, err error)
}
