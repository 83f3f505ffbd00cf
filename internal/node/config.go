package node

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/specialistvlad/promptgridgo/internal/datavalue"
	"github.com/specialistvlad/promptgridgo/internal/graph"
)

// Config wraps a node's configuration map with typed accessors.
type Config map[string]any

// Value returns the raw entry for key.
func (c Config) Value(key string) (any, bool) {
	v, ok := c[key]
	return v, ok && v != nil
}

// String returns key as a string, or def.
func (c Config) String(key, def string) string {
	v, ok := c.Value(key)
	if !ok {
		return def
	}
	return datavalue.AsString(datavalue.Resolve(v))
}

// Bool returns key as a boolean, or def.
func (c Config) Bool(key string, def bool) bool {
	v, ok := c.Value(key)
	if !ok {
		return def
	}
	return datavalue.AsBool(datavalue.Resolve(v))
}

// Number returns key as a number, or def.
func (c Config) Number(key string, def float64) float64 {
	v, ok := c.Value(key)
	if !ok {
		return def
	}
	f, err := datavalue.ToNumber(datavalue.Resolve(v))
	if err != nil {
		return def
	}
	return f
}

// Int returns key as an int, or def.
func (c Config) Int(key string, def int) int {
	return int(c.Number(key, float64(def)))
}

// Strings returns key as a string slice. A single string yields one element.
func (c Config) Strings(key string) []string {
	v, ok := c.Value(key)
	if !ok {
		return nil
	}
	items := datavalue.Items(datavalue.Infer(v))
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, datavalue.AsString(it))
	}
	return out
}

// Kind returns key as a data kind, or def when unset or unknown.
func (c Config) Kind(key string, def datavalue.Kind) datavalue.Kind {
	k := datavalue.Kind(c.String(key, ""))
	if !k.Valid() {
		return def
	}
	return k
}

// UseInput reports whether the useXInput toggle for port is set.
func (c Config) UseInput(port string) bool {
	return c.Bool(UseInputKey(port), false)
}

// UseInputKey returns the config key toggling an input port, e.g.
// "url" -> "useUrlInput".
func UseInputKey(port string) string {
	if port == "" {
		return ""
	}
	r := []rune(port)
	r[0] = unicode.ToUpper(r[0])
	return "use" + string(r) + "Input"
}

// InputOr returns the value on port when the port is toggled on and
// connected, and otherwise the config value at key coerced to kind.
func InputOr(c Config, in Inputs, port graph.PortID, key string, kind datavalue.Kind) datavalue.Value {
	if c.UseInput(string(port)) {
		if v, ok := in.Get(port); ok {
			coerced, err := datavalue.Coerce(v, kind)
			if err == nil {
				return coerced
			}
			return v
		}
	}
	raw, ok := c.Value(key)
	if !ok {
		return datavalue.Zero(kind)
	}
	coerced, err := datavalue.Coerce(datavalue.Infer(raw), kind)
	if err != nil {
		return datavalue.Zero(kind)
	}
	return coerced
}

// NumberedPortCount returns the highest N among connections into ports named
// prefix+N.
func NumberedPortCount(incoming []graph.Connection, prefix string) int {
	highest := 0
	for _, c := range incoming {
		id := string(c.InputID)
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		n, ok := parseIndex(strings.TrimPrefix(id, prefix))
		if ok && n > highest {
			highest = n
		}
	}
	return highest
}

func parseIndex(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}

// NumberedPorts builds ports prefix1..prefixN (each followed by suffix).
func NumberedPorts(prefix, suffix string, n int, kind datavalue.Kind) []PortDescriptor {
	out := make([]PortDescriptor, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, PortDescriptor{ID: graph.PortID(prefix + strconv.Itoa(i) + suffix), DataType: kind})
	}
	return out
}
