package portref

import (
	"fmt"
	"regexp"
	"strings"
)

// Ref identifies one port of one node.
type Ref struct {
	Node string
	Port string
}

// New builds a Ref.
func New(node, port string) Ref {
	return Ref{Node: node, Port: port}
}

// segmentRegex is used to validate each side of a reference.
var segmentRegex = regexp.MustCompile(`^[a-zA-Z0-9_.:\-]+$`)

// isValidSegment checks for undesirable but technically valid names.
func isValidSegment(name string) bool {
	if name == "." || name == ".." || name == "-" {
		return false
	}
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return segmentRegex.MatchString(name)
}

// Parse creates a Ref from its canonical string representation.
func Parse(raw string) (Ref, error) {
	if raw == "" {
		return Ref{}, fmt.Errorf("port reference cannot be empty")
	}

	idx := strings.LastIndex(raw, ".")
	if idx <= 0 || idx == len(raw)-1 {
		return Ref{}, fmt.Errorf("port reference %q must have the form <node>.<port>", raw)
	}

	node, port := raw[:idx], raw[idx+1:]
	if !isValidSegment(node) {
		return Ref{}, fmt.Errorf("invalid node id in port reference: %q", node)
	}
	if !isValidSegment(port) || strings.Contains(port, ".") {
		return Ref{}, fmt.Errorf("invalid port id in port reference: %q", port)
	}
	return Ref{Node: node, Port: port}, nil
}

// MustParse is Parse for static references; it panics on error.
func MustParse(raw string) Ref {
	r, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return r
}

// String serializes the Ref into its canonical form.
func (r Ref) String() string {
	if r.Node == "" && r.Port == "" {
		return ""
	}
	return r.Node + "." + r.Port
}

// IsZero reports whether r is empty.
func (r Ref) IsZero() bool { return r.Node == "" && r.Port == "" }
