package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/DAMEDIC/cql-engine-go/engine"
	"github.com/DAMEDIC/cql-engine-go/system"
)

// loadDataBundle reads a JSON bundle mapping qualified type names to
// resource arrays, e.g.
//
//	{"FHIR.Condition": [{"code": {"code": "44054006", ...}, ...}]}
//
// Resources become tuples; nested code objects become System.Code so
// retrieval code filters match.
func loadDataBundle(path string) (engine.DataProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("can not read data bundle %s: %w", path, err)
	}
	var bundle map[string][]map[string]any
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("malformed data bundle %s: %w", path, err)
	}

	resources := make(map[string][]system.Value, len(bundle))
	for typeName, instances := range bundle {
		for _, inst := range instances {
			resources[typeName] = append(resources[typeName], resourceToValue(inst))
		}
	}
	return engine.StaticProvider{Resources: resources}, nil
}

func resourceToValue(resource map[string]any) system.Value {
	tuple := system.Tuple{}
	for _, key := range sortedKeys(resource) {
		tuple.Elements = append(tuple.Elements, system.TupleElement{
			Name:  key,
			Value: fieldToValue(resource[key]),
		})
	}
	return tuple
}

// fieldToValue recognizes coded and temporal shapes that plain JSON
// decoding would flatten into tuples and strings.
func fieldToValue(v any) system.Value {
	if obj, ok := v.(map[string]any); ok {
		if code, isCode := codeFromMap(obj); isCode {
			return code
		}
	}
	if s, ok := v.(string); ok {
		if d, err := system.ParseDateTime(s); err == nil && len(s) > 10 {
			return d
		}
		if d, err := system.ParseDate(s); err == nil && looksLikeDate(s) {
			return d
		}
	}
	return jsonToValue(v)
}

func codeFromMap(obj map[string]any) (system.Code, bool) {
	codeVal, hasCode := obj["code"].(string)
	systemVal, hasSystem := obj["system"].(string)
	if !hasCode || !hasSystem {
		return system.Code{}, false
	}
	code := system.Code{Code: codeVal, System: systemVal}
	if display, ok := obj["display"].(string); ok {
		code.Display = display
	}
	if version, ok := obj["version"].(string); ok {
		code.Version = version
	}
	return code, true
}

func looksLikeDate(s string) bool {
	if len(s) != 10 && len(s) != 7 && len(s) != 4 {
		return false
	}
	for i, r := range s {
		if i == 4 || i == 7 {
			if r != '-' {
				return false
			}
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
