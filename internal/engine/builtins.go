package engine

import (
	"context"
	"maps"

	"github.com/specialistvlad/promptgridgo/internal/datavalue"
	"github.com/specialistvlad/promptgridgo/internal/node"
)

// Builtins are the external functions every run has. A caller function of
// the same name replaces the builtin.
func Builtins() node.ExternalFunctions {
	return node.ExternalFunctions{"echo": echo}
}

func echo(_ context.Context, args []datavalue.Value) (datavalue.Value, error) {
	if len(args) == 0 {
		return datavalue.AnyValue(nil), nil
	}
	return args[0], nil
}

func withBuiltins(caller node.ExternalFunctions) node.ExternalFunctions {
	out := Builtins()
	maps.Copy(out, caller)
	return out
}
