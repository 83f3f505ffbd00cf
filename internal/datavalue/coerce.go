package datavalue

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// AsString coerces v to a string. Arrays are joined with newlines and
// structured values are JSON encoded.
func AsString(v Value) string {
	if v.Kind == ControlFlowExcluded || v.Data == nil {
		return ""
	}
	if v.Kind.IsArray() {
		items := Items(v)
		parts := make([]string, len(items))
		for i, it := range items {
			parts[i] = AsString(it)
		}
		return strings.Join(parts, "\n")
	}
	switch x := v.Data.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return formatNumber(x)
	}
	if f, ok := toFloat(v.Data); ok {
		return formatNumber(f)
	}
	b, err := json.Marshal(v.Data)
	if err != nil {
		return fmt.Sprint(v.Data)
	}
	return string(b)
}

func formatNumber(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ToNumber coerces v to a number.
func ToNumber(v Value) (float64, error) {
	if v.Kind == ControlFlowExcluded || v.Data == nil {
		return 0, fmt.Errorf("datavalue: cannot convert %s to number", v.Kind)
	}
	switch x := v.Data.(type) {
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("datavalue: %q is not a number", x)
		}
		return f, nil
	}
	if f, ok := toFloat(v.Data); ok {
		return f, nil
	}
	if v.Kind.IsArray() {
		items := Items(v)
		if len(items) == 1 {
			return ToNumber(items[0])
		}
	}
	return 0, fmt.Errorf("datavalue: cannot convert %s to number", v.Kind)
}

// AsNumber is ToNumber with failures mapped to zero.
func AsNumber(v Value) float64 {
	f, err := ToNumber(v)
	if err != nil {
		return 0
	}
	return f
}

// AsBool reports the truthiness of v. A string is true unless it is empty or
// "false"; an array is true only when every element is.
func AsBool(v Value) bool {
	if v.Kind == ControlFlowExcluded || v.Data == nil {
		return false
	}
	if v.Kind.IsArray() {
		for _, it := range Items(v) {
			if !AsBool(it) {
				return false
			}
		}
		return true
	}
	switch x := v.Data.(type) {
	case bool:
		return x
	case string:
		return x != "" && x != "false"
	}
	if f, ok := toFloat(v.Data); ok {
		return f != 0
	}
	return true
}

// AsObject returns the structured form of v. A string holding JSON is decoded.
func AsObject(v Value) any {
	if v.Kind == ControlFlowExcluded {
		return nil
	}
	if s, ok := v.Data.(string); ok {
		var out any
		if err := json.Unmarshal([]byte(s), &out); err == nil {
			return out
		}
		return s
	}
	return v.Data
}

// Items returns the elements of an array value, each tagged with the element
// kind. A scalar yields a single element; an excluded or empty value yields none.
func Items(v Value) []Value {
	if v.Kind == ControlFlowExcluded || v.IsZero() {
		return nil
	}
	if !v.Kind.IsArray() {
		if v.Data == nil {
			return nil
		}
		return []Value{v}
	}
	elem := v.Kind.Elem()
	raw := sliceOf(v.Data)
	out := make([]Value, len(raw))
	for i, it := range raw {
		if elem == Any {
			out[i] = Infer(it)
		} else {
			out[i] = Value{Kind: elem, Data: it}
		}
	}
	return out
}

func sliceOf(data any) []any {
	switch x := data.(type) {
	case nil:
		return nil
	case []any:
		return x
	}
	rv := reflect.ValueOf(data)
	if rv.Kind() != reflect.Slice {
		return []any{data}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

// Coerce converts v to the requested kind.
func Coerce(v Value, to Kind) (Value, error) {
	if to == "" || to == Any || v.Kind == to {
		return v, nil
	}
	if v.Kind == ControlFlowExcluded {
		return v, nil
	}
	switch {
	case to.IsArray():
		elem := to.Elem()
		items := Items(v)
		out := make([]any, len(items))
		for i, it := range items {
			c, err := Coerce(it, elem)
			if err != nil {
				return Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = c.Data
		}
		return Array(elem, out), nil
	case to == String:
		return Str(AsString(v)), nil
	case to == Number:
		f, err := ToNumber(v)
		if err != nil {
			return Value{}, err
		}
		return Num(f), nil
	case to == Boolean:
		return Bool(AsBool(v)), nil
	case to == Object:
		return Obj(AsObject(v)), nil
	case to == ControlFlowExcluded:
		return Excluded(), nil
	}
	return Value{}, fmt.Errorf("datavalue: unknown kind %q", to)
}

// Equal compares two values after coercing b to the kind of a.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		c, err := Coerce(b, a.Kind)
		if err != nil {
			return false
		}
		b = c
	}
	return reflect.DeepEqual(normalize(a.Data), normalize(b.Data))
}

func normalize(data any) any {
	if f, ok := toFloat(data); ok {
		return f
	}
	return data
}
