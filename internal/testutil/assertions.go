package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// AssertNodeRan checks captured log output to confirm that a node finished.
func AssertNodeRan(t *testing.T, logs string, nodeID string) {
	t.Helper()

	expected := fmt.Sprintf("node=%s", nodeID)
	for _, line := range strings.Split(logs, "\n") {
		if strings.Contains(line, "Finished node") && strings.Contains(line, expected) {
			return
		}
	}
	require.Fail(t, "node did not finish", "expected a finish log line for node %q", nodeID)
}
