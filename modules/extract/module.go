// Package extract provides the node kinds that pull structured data out of
// text and objects: JSON and YAML blocks embedded in text, and jq queries.
package extract

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"
	"github.com/specialistvlad/promptgridgo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers extractJson, extractObjectPath and extractYaml.
func (m *Module) Register(r *registry.Registry) {
	r.Register(registry.Definition{Kind: "extractJson", Title: "Extract JSON", Group: "Objects", Factory: newExtractJSON})
	r.Register(registry.Definition{Kind: "extractObjectPath", Title: "Extract Object Path", Group: "Objects", Factory: newExtractObjectPath})
	r.Register(registry.Definition{Kind: "extractYaml", Title: "Extract YAML", Group: "Objects", Factory: newExtractYAML})
}

// query runs a jq program over data and returns every non-null result.
func query(ctx context.Context, path string, data any) ([]any, error) {
	parsed, err := gojq.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parsing path %q: %w", path, err)
	}
	code, err := gojq.Compile(parsed)
	if err != nil {
		return nil, fmt.Errorf("compiling path %q: %w", path, err)
	}
	normalized, err := normalize(data)
	if err != nil {
		return nil, err
	}

	var results []any
	iter := code.RunWithContext(ctx, normalized)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return nil, fmt.Errorf("evaluating path %q: %w", path, err)
		}
		if v != nil {
			results = append(results, v)
		}
	}
	return results, nil
}

// normalize round-trips data through JSON so jq sees only the types it
// supports.
func normalize(data any) (any, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encoding value for query: %w", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decoding value for query: %w", err)
	}
	return out, nil
}
