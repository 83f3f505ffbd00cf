// Package datavalue defines the tagged value type carried on every port of a
// graph, together with the boundary resolution and coercion rules applied to
// host values.
package datavalue

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind is the data type tag of a Value.
type Kind string

const (
	String              Kind = "string"
	Number              Kind = "number"
	Boolean             Kind = "boolean"
	Object              Kind = "object"
	Any                 Kind = "any"
	ControlFlowExcluded Kind = "control-flow-excluded"
)

// LoopNotBrokenMarker is the data of an excluded value emitted on the break
// port of a loop controller that has not finished yet.
const LoopNotBrokenMarker = "loop-not-broken"

const arraySuffix = "[]"

// ArrayOf returns the array kind whose elements are of kind k.
func ArrayOf(k Kind) Kind {
	if k.IsArray() || k == ControlFlowExcluded || k == "" {
		return Any + arraySuffix
	}
	return k + arraySuffix
}

// IsArray reports whether k is one of the array kinds.
func (k Kind) IsArray() bool {
	return strings.HasSuffix(string(k), arraySuffix)
}

// Elem returns the element kind of an array kind, or k itself.
func (k Kind) Elem() Kind {
	if !k.IsArray() {
		return k
	}
	return Kind(strings.TrimSuffix(string(k), arraySuffix))
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k.Elem() {
	case String, Number, Boolean, Object, Any:
		return true
	case ControlFlowExcluded:
		return !k.IsArray()
	}
	return false
}

// Value is a tagged datum. The zero Value means "no value" and is what a
// lookup of an unset port returns.
type Value struct {
	Kind Kind
	Data any
}

func Str(s string) Value { return Value{Kind: String, Data: s} }
func Num(f float64) Value { return Value{Kind: Number, Data: f} }
func Bool(b bool) Value { return Value{Kind: Boolean, Data: b} }
func Obj(v any) Value { return Value{Kind: Object, Data: v} }
func AnyValue(v any) Value { return Value{Kind: Any, Data: v} }

// Array builds an array value of the given element kind.
func Array(elem Kind, items []any) Value {
	if items == nil {
		items = []any{}
	}
	return Value{Kind: ArrayOf(elem), Data: items}
}

// Excluded is the sentinel for a branch that was not taken.
func Excluded() Value { return Value{Kind: ControlFlowExcluded} }

// LoopNotBroken is the excluded value a loop controller places on its break
// port while it keeps iterating.
func LoopNotBroken() Value {
	return Value{Kind: ControlFlowExcluded, Data: LoopNotBrokenMarker}
}

// IsZero reports whether v carries no value at all.
func (v Value) IsZero() bool { return v.Kind == "" }

// IsExcluded reports whether v is a control-flow-excluded sentinel that is
// not the loop-not-broken marker.
func (v Value) IsExcluded() bool {
	return v.Kind == ControlFlowExcluded && !v.IsLoopNotBroken()
}

// IsLoopNotBroken reports whether v means "waiting for the loop to finish".
func (v Value) IsLoopNotBroken() bool {
	s, ok := v.Data.(string)
	return v.Kind == ControlFlowExcluded && ok && s == LoopNotBrokenMarker
}

func (v Value) String() string {
	if v.IsZero() {
		return "<undefined>"
	}
	return fmt.Sprintf("%s(%s)", v.Kind, AsString(v))
}

type wireValue struct {
	Type  Kind `json:"type"`
	Value any  `json:"value,omitempty"`
}

// MarshalJSON encodes v as {"type": ..., "value": ...}.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireValue{Type: v.Kind, Value: v.Data})
}

// UnmarshalJSON decodes the {"type": ..., "value": ...} form.
func (v *Value) UnmarshalJSON(b []byte) error {
	var w wireValue
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	if w.Type != "" && !w.Type.Valid() {
		return fmt.Errorf("datavalue: unknown kind %q", w.Type)
	}
	v.Kind = w.Type
	v.Data = w.Value
	if v.Kind.IsArray() && v.Data == nil {
		v.Data = []any{}
	}
	return nil
}

// Zero returns the default value of a kind, used when an optional input has
// no value and no configured default.
func Zero(k Kind) Value {
	switch {
	case k.IsArray():
		return Array(k.Elem(), nil)
	case k == String:
		return Str("")
	case k == Number:
		return Num(0)
	case k == Boolean:
		return Bool(false)
	case k == Object:
		return Obj(map[string]any{})
	case k == ControlFlowExcluded:
		return Excluded()
	}
	return AnyValue(nil)
}
