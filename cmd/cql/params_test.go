package main

import (
	"testing"

	"github.com/DAMEDIC/cql-engine-go/system"
)

func TestParseParamValueShapes(t *testing.T) {
	tests := []struct {
		raw  string
		want system.Value
	}{
		{"42", system.Integer(42)},
		{"-7", system.Integer(-7)},
		{"3.14", system.MustDecimal("3.14")},
		{"true", system.Boolean(true)},
		{"false", system.Boolean(false)},
		{"null", system.Null{}},
		{"hello", system.String("hello")},
		{"2024-01-15", system.String("2024-01-15")},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseParamValue(tt.raw)
			if err != nil {
				t.Fatal(err)
			}
			if eq := system.Equivalent(got, tt.want); eq != system.Boolean(true) {
				t.Errorf("got %v (%s), want %v", got, got.TypeName(), tt.want)
			}
		})
	}

	date, err := parseParamValue("@2024-01-15")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := date.(system.Date); !ok {
		t.Errorf("@-value should be a Date, got %T", date)
	}

	dt, err := parseParamValue("@2024-01-15T10:00:00Z")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := dt.(system.DateTime); !ok {
		t.Errorf("@T-value should be a DateTime, got %T", dt)
	}

	list, err := parseParamValue(`[1, "two", null]`)
	if err != nil {
		t.Fatal(err)
	}
	if l, ok := list.(system.List); !ok || len(l) != 3 {
		t.Errorf("JSON array: %v", list)
	}

	obj, err := parseParamValue(`{"low": 1, "high": 9}`)
	if err != nil {
		t.Fatal(err)
	}
	tuple, ok := obj.(system.Tuple)
	if !ok {
		t.Fatalf("JSON object: %T", obj)
	}
	if v, _ := tuple.Get("high"); v != system.Integer(9) {
		t.Errorf("tuple.high = %v", v)
	}
}

func TestParseParamsBinding(t *testing.T) {
	params, err := parseParams([]string{"Threshold=10", "Name=Ada"})
	if err != nil {
		t.Fatal(err)
	}
	if params["Threshold"] != system.Integer(10) {
		t.Errorf("Threshold = %v", params["Threshold"])
	}
	if params["Name"] != system.String("Ada") {
		t.Errorf("Name = %v", params["Name"])
	}
	if _, err := parseParams([]string{"malformed"}); err == nil {
		t.Error("expected error for binding without =")
	}
}
