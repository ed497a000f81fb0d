package assert

import (
	"testing"

	"github.com/DAMEDIC/cql-engine-go/system"
)

// ValueEqual asserts CQL equality of two runtime values; an unknown
// comparison fails.
func ValueEqual(t *testing.T, expected, actual system.Value) {
	t.Helper()
	if eq := system.Equal(expected, actual); eq != system.Boolean(true) {
		t.Errorf("values not equal:\n  expected: %v\n  actual:   %v", expected, actual)
	}
}

// ValueEquivalent asserts CQL equivalence, where null ~ null holds.
func ValueEquivalent(t *testing.T, expected, actual system.Value) {
	t.Helper()
	if eq := system.Equivalent(expected, actual); eq != system.Boolean(true) {
		t.Errorf("values not equivalent:\n  expected: %v\n  actual:   %v", expected, actual)
	}
}
