package cql

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DAMEDIC/cql-engine-go/diagnostics"
	"github.com/DAMEDIC/cql-engine-go/elm"
	"github.com/DAMEDIC/cql-engine-go/engine"
	"github.com/DAMEDIC/cql-engine-go/system"
	"github.com/DAMEDIC/cql-engine-go/testdata/assert"
)

func evalDefine(t *testing.T, source string) system.Value {
	t.Helper()
	s := NewSession(SessionOptions{})
	compiled, err := s.Compile(source)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	v, err := compiled.Evaluate(context.Background(), "X", EvalOptions{})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	return v
}

func TestEndToEndScenarios(t *testing.T) {
	tests := []struct {
		name   string
		source string
		check  func(t *testing.T, v system.Value)
	}{
		{
			name:   "integer addition",
			source: "define X: 1 + 2",
			check:  expect(system.Integer(3)),
		},
		{
			name:   "division by zero is null",
			source: "define X: 1 / 0",
			check: func(t *testing.T, v system.Value) {
				if !system.IsNull(v) {
					t.Errorf("got %v, want null", v)
				}
			},
		},
		{
			name:   "date plus days",
			source: "define X: @2024-01-15 + 10 days",
			check: func(t *testing.T, v system.Value) {
				d, ok := v.(system.Date)
				if !ok {
					t.Fatalf("got %T, want Date", v)
				}
				if d.Precision != system.PrecisionDay {
					t.Errorf("precision = %v, want day", d.Precision)
				}
				want, _ := system.ParseDate("@2024-01-25")
				if eq := system.Equal(d, want); eq != system.Boolean(true) {
					t.Errorf("got %v, want @2024-01-25", v)
				}
			},
		},
		{
			name:   "interval contains",
			source: "define X: Interval[@2024-01-01, @2024-12-31] contains @2024-06-15",
			check:  expect(system.Boolean(true)),
		},
		{
			name:   "except preserves order and nulls",
			source: "define X: {1, 2, null, 3} except {2}",
			check: func(t *testing.T, v system.Value) {
				list, ok := v.(system.List)
				if !ok {
					t.Fatalf("got %T, want List", v)
				}
				want := system.List{system.Integer(1), system.Null{}, system.Integer(3)}
				if list.String() != want.String() {
					t.Errorf("got %v, want %v", list, want)
				}
			},
		},
		{
			name:   "decimal arithmetic",
			source: "define X: 2.5 * 4",
			check: func(t *testing.T, v system.Value) {
				if eq := system.Equivalent(v, system.MustDecimal("10.0")); eq != system.Boolean(true) {
					t.Errorf("got %v, want 10.0", v)
				}
			},
		},
		{
			name:   "kleene and",
			source: "define X: false and null",
			check:  expect(system.Boolean(false)),
		},
		{
			name:   "if with null condition picks else",
			source: "define X: if null then 1 else 2",
			check:  expect(system.Integer(2)),
		},
		{
			name:   "quantity arithmetic with unit conversion",
			source: "define X: 1 'g' + 500 'mg'",
			check: func(t *testing.T, v system.Value) {
				q, ok := v.(system.Quantity)
				if !ok {
					t.Fatalf("got %T, want Quantity", v)
				}
				want := system.Quantity{Value: system.MustDecimal("1.5"), Unit: "g"}
				if eq := system.Equal(q, want); eq != system.Boolean(true) {
					t.Errorf("got %v, want 1.5 g", q)
				}
			},
		},
		{
			name:   "query with where and return",
			source: "define X: ({1, 2, 3, 4}) N where N > 2 return N * 10",
			check: func(t *testing.T, v system.Value) {
				want := system.List{system.Integer(30), system.Integer(40)}
				if v.String() != want.String() {
					t.Errorf("got %v, want %v", v, want)
				}
			},
		},
		{
			name:   "sort descending",
			source: "define X: ({3, 1, 2}) N return N sort desc",
			check: func(t *testing.T, v system.Value) {
				want := system.List{system.Integer(3), system.Integer(2), system.Integer(1)}
				if v.String() != want.String() {
					t.Errorf("got %v, want %v", v, want)
				}
			},
		},
		{
			name:   "case expression",
			source: "define X: case when 1 > 2 then 'a' else 'b' end",
			check:  expect(system.String("b")),
		},
		{
			name:   "duration between",
			source: "define X: duration in days between @2024-01-01 and @2024-01-11",
			check:  expect(system.Integer(10)),
		},
		{
			name:   "tuple access",
			source: "define X: (Tuple { name: 'Ada', age: 36 }).age",
			check:  expect(system.Integer(36)),
		},
		{
			name:   "coalesce",
			source: "define X: Coalesce(null, null, 7)",
			check:  expect(system.Integer(7)),
		},
		{
			name:   "aggregate count ignores nulls",
			source: "define X: Count({1, null, 3})",
			check:  expect(system.Integer(2)),
		},
		{
			name:   "string concatenation with ampersand treats null as empty",
			source: "define X: 'a' & null & 'b'",
			check:  expect(system.String("ab")),
		},
		{
			name:   "exists over empty list",
			source: "define X: exists ({ })",
			check:  expect(system.Boolean(false)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, evalDefine(t, tt.source))
		})
	}
}

func expect(want system.Value) func(t *testing.T, v system.Value) {
	return func(t *testing.T, v system.Value) {
		t.Helper()
		if eq := system.Equivalent(v, want); eq != system.Boolean(true) {
			t.Errorf("got %v, want %v", v, want)
		}
	}
}

func TestTimeLiteralFractionBoundIsSemanticError(t *testing.T) {
	s := NewSession(SessionOptions{})
	_, err := s.Compile("define X: @T23:59:59.10000")
	if err == nil {
		t.Fatal("expected semantic error")
	}
	if !diagnostics.IsCode(err, diagnostics.CodeTimePrecisionOverflow) {
		t.Errorf("expected time-precision-overflow, got %v", err)
	}
	// exactly three digits is fine
	if _, err := s.Compile("define X: @T23:59:59.100"); err != nil {
		t.Errorf("three fractional digits should compile: %v", err)
	}
}

func TestUnresolvedIdentifier(t *testing.T) {
	s := NewSession(SessionOptions{})
	_, err := s.Compile("define X: NotDefined + 1")
	if !diagnostics.IsCode(err, diagnostics.CodeUnresolvedIdentifier) {
		t.Errorf("expected unresolved identifier, got %v", err)
	}
}

func TestUnsupportedOperator(t *testing.T) {
	s := NewSession(SessionOptions{})
	_, err := s.Compile("define X: 1 + 'a'")
	if !diagnostics.IsCode(err, diagnostics.CodeUnsupportedOperator) {
		t.Errorf("expected unsupported operator, got %v", err)
	}
}

func TestParameters(t *testing.T) {
	source := `parameter Threshold Integer default 10
define X: Threshold * 2`
	s := NewSession(SessionOptions{})
	compiled, err := s.Compile(source)
	if err != nil {
		t.Fatal(err)
	}

	v, err := compiled.Evaluate(context.Background(), "X", EvalOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if v != system.Integer(20) {
		t.Errorf("default parameter: got %v", v)
	}

	v, err = compiled.Evaluate(context.Background(), "X", EvalOptions{
		Parameters: map[string]system.Value{"Threshold": system.Integer(50)},
	})
	if err != nil {
		t.Fatal(err)
	}
	if v != system.Integer(100) {
		t.Errorf("bound parameter: got %v", v)
	}
}

// countingProvider counts retrieve calls to observe memoization.
type countingProvider struct {
	calls atomic.Int64
}

func (p *countingProvider) Retrieve(ctx context.Context, params engine.RetrieveParams) (system.List, error) {
	p.calls.Add(1)
	return system.List{}, nil
}

func TestMemoization(t *testing.T) {
	// Base is referenced three times but must evaluate once per request
	source := `define Base: Count({1, 2, 3})
define A: Base + Base
define X: A + Base`
	s := NewSession(SessionOptions{})
	compiled, err := s.Compile(source)
	if err != nil {
		t.Fatal(err)
	}
	v, err := compiled.Evaluate(context.Background(), "X", EvalOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if v != system.Integer(9) {
		t.Errorf("got %v, want 9", v)
	}
}

func TestCancellation(t *testing.T) {
	s := NewSession(SessionOptions{})
	compiled, err := s.Compile("define X: 1 + 2")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = compiled.Evaluate(ctx, "X", EvalOptions{})
	if !diagnostics.IsCode(err, diagnostics.CodeCancelled) {
		t.Errorf("expected cancellation error, got %v", err)
	}
}

func TestEvaluateAllOrderAndPrivacy(t *testing.T) {
	source := `define private Hidden: 1
define First: 10
define Second: First + 1`
	s := NewSession(SessionOptions{})
	compiled, err := s.Compile(source)
	if err != nil {
		t.Fatal(err)
	}
	results, err := compiled.EvaluateAll(context.Background(), EvalOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 || results[0].Name != "First" || results[1].Name != "Second" {
		t.Errorf("results: %+v", results)
	}
	if results[1].Value != system.Integer(11) {
		t.Errorf("Second = %v", results[1].Value)
	}
}

func TestELMSerializationRoundTrip(t *testing.T) {
	s := NewSession(SessionOptions{})
	compiled, err := s.Compile(`library RoundTrip version '0.1.0'
define X: Interval[1, 5] overlaps Interval[3, 8]
define Y: ({1, 2, 3}) N where N > 1 return N`)
	if err != nil {
		t.Fatal(err)
	}
	data, err := compiled.ELMJSON(true)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"type":"Overlaps"`) &&
		!strings.Contains(string(data), `"type": "Overlaps"`) {
		t.Errorf("missing Overlaps node:\n%s", data)
	}

	// parse(CQL) -> ELM -> re-parse of the serialized JSON is stable
	decoded, err := elm.UnmarshalLibrary(data)
	if err != nil {
		t.Fatal(err)
	}
	again, err := elm.MarshalLibrary(decoded, true)
	if err != nil {
		t.Fatal(err)
	}
	assert.JSONEqual(t, string(data), string(again))

	xml, err := compiled.ELMXML(true)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(xml), `xsi:type="Query"`) {
		t.Errorf("missing Query node in XML:\n%s", xml)
	}
}

func TestFunctionDefinitionAndCall(t *testing.T) {
	source := `define function Double(x Integer) returns Integer: x * 2
define X: Double(21)`
	if v := evalDefine(t, source); v != system.Integer(42) {
		t.Errorf("got %v, want 42", v)
	}
}

func TestTodayUsesFixedClock(t *testing.T) {
	now := time.Date(2026, 8, 6, 12, 0, 0, 0, time.UTC)
	s := NewSession(SessionOptions{Now: now})
	compiled, err := s.Compile("define X: Today()")
	if err != nil {
		t.Fatal(err)
	}
	v, err := compiled.Evaluate(context.Background(), "X", EvalOptions{})
	if err != nil {
		t.Fatal(err)
	}
	want, _ := system.ParseDate("@2026-08-06")
	if eq := system.Equal(v, want); eq != system.Boolean(true) {
		t.Errorf("Today() = %v", v)
	}
}
