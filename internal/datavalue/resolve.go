package datavalue

import (
	"encoding/json"
	"reflect"
)

// Resolve classifies a raw host value supplied by a caller. Strings, booleans
// and numbers become their typed kinds; a Value passes through; anything else
// is treated as an opaque structured object. There is no numeric-to-string
// coercion at this boundary.
func Resolve(raw any) Value {
	switch x := raw.(type) {
	case nil:
		return AnyValue(nil)
	case Value:
		return x
	case *Value:
		if x == nil {
			return AnyValue(nil)
		}
		return *x
	case string:
		return Str(x)
	case bool:
		return Bool(x)
	}
	if f, ok := toFloat(raw); ok {
		return Num(f)
	}
	return Obj(raw)
}

// ResolveMap applies Resolve to every entry of a caller-supplied map.
func ResolveMap(raw map[string]any) map[string]Value {
	out := make(map[string]Value, len(raw))
	for k, v := range raw {
		out[k] = Resolve(v)
	}
	return out
}

// Infer is the richer classification used for values computed inside nodes
// (expression results, decoded JSON and YAML). Unlike Resolve it recognizes
// slices and produces typed arrays when all elements share a scalar kind.
func Infer(raw any) Value {
	switch x := raw.(type) {
	case nil:
		return AnyValue(nil)
	case Value:
		return x
	case []any:
		return inferArray(x)
	case []string:
		items := make([]any, len(x))
		for i, s := range x {
			items[i] = s
		}
		return Array(String, items)
	case map[string]any:
		return Obj(x)
	}
	rv := reflect.ValueOf(raw)
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return inferArray(items)
	}
	return Resolve(raw)
}

func inferArray(items []any) Value {
	if len(items) == 0 {
		return Array(Any, nil)
	}
	elem := Kind("")
	out := make([]any, len(items))
	for i, it := range items {
		v := Infer(it)
		if v.Kind.IsArray() || v.Kind == Any {
			elem = Any
		} else if elem == "" {
			elem = v.Kind
		} else if elem != v.Kind {
			elem = Any
		}
		out[i] = v.Data
	}
	if elem == Any {
		// Keep the original elements so nested arrays survive intact.
		return Array(Any, items)
	}
	return Array(elem, out)
}

func toFloat(raw any) (float64, bool) {
	switch n := raw.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
