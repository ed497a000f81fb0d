// Package assert provides test helpers for comparing serialized ELM and
// runtime values.
package assert

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// JSONEqual compares two JSON documents structurally, ignoring key
// order and whitespace.
func JSONEqual(t *testing.T, expected, actual string) {
	t.Helper()
	if diff := cmp.Diff(jsonFormat(t, expected), jsonFormat(t, actual)); diff != "" {
		t.Errorf("JSON mismatch (-expected +actual):\n%s", diff)
	}
}

func jsonFormat(t *testing.T, input string) string {
	t.Helper()
	var obj any
	if err := json.Unmarshal([]byte(input), &obj); err != nil {
		t.Fatalf("malformed JSON: %v\n%s", err, input)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(obj); err != nil {
		t.Fatalf("re-encode: %v", err)
	}
	return buf.String()
}
