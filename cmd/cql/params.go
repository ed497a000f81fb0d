package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/DAMEDIC/cql-engine-go/system"
)

// parseParams parses repeated --param name=value bindings. Value shape
// selects the type: bare tokens become Integer, Decimal, Boolean or
// String; @-prefixed values become Date or DateTime; JSON objects and
// arrays are decoded structurally.
func parseParams(bindings []string) (map[string]system.Value, error) {
	if len(bindings) == 0 {
		return nil, nil
	}
	out := make(map[string]system.Value, len(bindings))
	for _, binding := range bindings {
		name, raw, ok := strings.Cut(binding, "=")
		if !ok {
			return nil, fmt.Errorf("invalid parameter %q, expected name=value", binding)
		}
		v, err := parseParamValue(raw)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

func parseParamValue(raw string) (system.Value, error) {
	switch {
	case raw == "null":
		return system.Null{}, nil
	case raw == "true" || raw == "false":
		return system.Boolean(raw == "true"), nil
	case strings.HasPrefix(raw, "@"):
		if strings.ContainsRune(raw, 'T') {
			return system.ParseDateTime(raw)
		}
		return system.ParseDate(raw)
	case strings.HasPrefix(raw, "{"), strings.HasPrefix(raw, "["):
		var decoded any
		if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
			return nil, err
		}
		return jsonToValue(decoded), nil
	}
	if isIntegerShaped(raw) {
		i, err := parseInt64(raw)
		if err == nil {
			return system.Integer(i), nil
		}
	}
	if isDecimalShaped(raw) {
		if d, err := system.NewDecimal(raw); err == nil {
			return d, nil
		}
	}
	return system.String(raw), nil
}

func isIntegerShaped(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 && (r == '-' || r == '+') && len(s) > 1 {
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isDecimalShaped(s string) bool {
	dot := false
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case i == 0 && (r == '-' || r == '+'):
		case r == '.' && !dot:
			dot = true
		default:
			return false
		}
	}
	return dot
}

func parseInt64(s string) (int64, error) {
	var i int64
	_, err := fmt.Sscanf(s, "%d", &i)
	return i, err
}

// jsonToValue maps decoded JSON into runtime values: objects become
// tuples, arrays lists.
func jsonToValue(v any) system.Value {
	switch t := v.(type) {
	case nil:
		return system.Null{}
	case bool:
		return system.Boolean(t)
	case string:
		return system.String(t)
	case float64:
		if t == float64(int64(t)) {
			return system.Integer(int64(t))
		}
		d, err := system.NewDecimal(fmt.Sprintf("%v", t))
		if err != nil {
			return system.Null{}
		}
		return d
	case []any:
		out := make(system.List, len(t))
		for i, e := range t {
			out[i] = jsonToValue(e)
		}
		return out
	case map[string]any:
		tuple := system.Tuple{}
		for _, key := range sortedKeys(t) {
			tuple.Elements = append(tuple.Elements, system.TupleElement{
				Name:  key,
				Value: jsonToValue(t[key]),
			})
		}
		return tuple
	default:
		return system.Null{}
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}
