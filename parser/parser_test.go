package parser

import (
	"strings"
	"testing"

	"github.com/DAMEDIC/cql-engine-go/ast"
)

func mustParseExpr(t *testing.T, src string) ast.Expression {
	t.Helper()
	expr, err := ParseExpression(src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return expr
}

func TestArithmeticPrecedence(t *testing.T) {
	expr := mustParseExpr(t, "1 + 2 * 3")
	add, ok := expr.(*ast.BinaryExpr)
	if !ok || add.Op != ast.BinaryAdd {
		t.Fatalf("expected top-level +, got %T", expr)
	}
	mul, ok := add.Right.(*ast.BinaryExpr)
	if !ok || mul.Op != ast.BinaryMultiply {
		t.Fatalf("expected * on the right, got %T", add.Right)
	}

	expr = mustParseExpr(t, "2 ^ 3 * 4")
	mul, ok = expr.(*ast.BinaryExpr)
	if !ok || mul.Op != ast.BinaryMultiply {
		t.Fatalf("expected top-level *, got %T", expr)
	}
	if pow, ok := mul.Left.(*ast.BinaryExpr); !ok || pow.Op != ast.BinaryPower {
		t.Fatalf("expected ^ on the left, got %T", mul.Left)
	}
}

func TestLogicalPrecedence(t *testing.T) {
	// = binds tighter than and, and tighter than or, or tighter than implies
	expr := mustParseExpr(t, "a = 1 and b = 2 or c implies d")
	implies, ok := expr.(*ast.BinaryExpr)
	if !ok || implies.Op != ast.BinaryImplies {
		t.Fatalf("expected top-level implies, got %T", expr)
	}
	or, ok := implies.Left.(*ast.BinaryExpr)
	if !ok || or.Op != ast.BinaryOr {
		t.Fatalf("expected or below implies, got %T", implies.Left)
	}
	and, ok := or.Left.(*ast.BinaryExpr)
	if !ok || and.Op != ast.BinaryAnd {
		t.Fatalf("expected and below or, got %T", or.Left)
	}
}

func TestUnionIsLoosest(t *testing.T) {
	expr := mustParseExpr(t, "{1} union {2} except {3}")
	except, ok := expr.(*ast.BinaryExpr)
	if !ok || except.Op != ast.BinaryExcept {
		t.Fatalf("expected top-level except, got %T", expr)
	}
	if union, ok := except.Left.(*ast.BinaryExpr); !ok || union.Op != ast.BinaryUnion {
		t.Fatalf("expected union on the left, got %T", except.Left)
	}
}

func TestLiterals(t *testing.T) {
	tests := []struct {
		src  string
		kind ast.LiteralKind
	}{
		{"null", ast.LiteralNull},
		{"true", ast.LiteralBoolean},
		{"42", ast.LiteralInteger},
		{"42L", ast.LiteralLong},
		{"3.14", ast.LiteralDecimal},
		{"'hello'", ast.LiteralString},
		{"@2024-01-15", ast.LiteralDate},
		{"@2024-01-15T12:30:00Z", ast.LiteralDateTime},
		{"@T12:30:00", ast.LiteralTime},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			expr := mustParseExpr(t, tt.src)
			lit, ok := expr.(*ast.Literal)
			if !ok {
				t.Fatalf("expected literal, got %T", expr)
			}
			if lit.Kind != tt.kind {
				t.Errorf("kind = %v, want %v", lit.Kind, tt.kind)
			}
		})
	}
}

func TestTimeLiteralWithExcessFractionDigitsParses(t *testing.T) {
	// more than 3 fractional digits must pass the parser; semantic
	// analysis rejects it
	expr := mustParseExpr(t, "@T23:59:59.10000")
	lit, ok := expr.(*ast.Literal)
	if !ok || lit.Kind != ast.LiteralTime {
		t.Fatalf("expected time literal, got %T", expr)
	}
	if lit.Text != "@T23:59:59.10000" {
		t.Errorf("text = %q", lit.Text)
	}
}

func TestQuantityAndRatioLiterals(t *testing.T) {
	expr := mustParseExpr(t, "5 'mg'")
	q, ok := expr.(*ast.QuantityLiteral)
	if !ok || q.Value != "5" || q.Unit != "mg" {
		t.Fatalf("unexpected quantity: %#v", expr)
	}

	expr = mustParseExpr(t, "10 days")
	q, ok = expr.(*ast.QuantityLiteral)
	if !ok || q.Unit != "days" {
		t.Fatalf("unexpected quantity: %#v", expr)
	}

	expr = mustParseExpr(t, "1:128")
	r, ok := expr.(*ast.RatioLiteral)
	if !ok || r.Numerator.Value != "1" || r.Denominator.Value != "128" {
		t.Fatalf("unexpected ratio: %#v", expr)
	}
}

func TestIntervalSelector(t *testing.T) {
	expr := mustParseExpr(t, "Interval[@2024-01-01, @2024-12-31)")
	iv, ok := expr.(*ast.IntervalSelector)
	if !ok {
		t.Fatalf("expected interval selector, got %T", expr)
	}
	if !iv.LowClosed || iv.HighClosed {
		t.Errorf("closure flags: low=%v high=%v", iv.LowClosed, iv.HighClosed)
	}
}

func TestTimingPhrase(t *testing.T) {
	expr := mustParseExpr(t, "Interval[1, 5] overlaps Interval[3, 8]")
	b, ok := expr.(*ast.BinaryExpr)
	if !ok || b.Op != ast.BinaryOverlaps {
		t.Fatalf("expected overlaps, got %#v", expr)
	}

	expr = mustParseExpr(t, "A same day as B")
	b, ok = expr.(*ast.BinaryExpr)
	if !ok || b.Op != ast.BinarySameAs || b.Precision != "day" {
		t.Fatalf("expected same-as with day precision, got %#v", expr)
	}
}

func TestRetrieve(t *testing.T) {
	expr := mustParseExpr(t, `[Condition: "Diabetes"]`)
	r, ok := expr.(*ast.Retrieve)
	if !ok {
		t.Fatalf("expected retrieve, got %T", expr)
	}
	if r.DataType.String() != "Condition" || r.CodePath != "" {
		t.Errorf("retrieve: %#v", r)
	}
	if ref, ok := r.Terminology.(*ast.IdentifierRef); !ok || ref.Name != "Diabetes" {
		t.Errorf("terminology: %#v", r.Terminology)
	}

	expr = mustParseExpr(t, `[Observation: category in "Vital Signs"]`)
	r = expr.(*ast.Retrieve)
	if r.CodePath != "category" {
		t.Errorf("code path = %q", r.CodePath)
	}
}

func TestQueryParsing(t *testing.T) {
	expr := mustParseExpr(t, `[Encounter: "Inpatient"] E
		let d: duration in days between start of E.period and end of E.period
		where d > 2
		return E
		sort by d desc`)
	q, ok := expr.(*ast.Query)
	if !ok {
		t.Fatalf("expected query, got %T", expr)
	}
	if len(q.Sources) != 1 || q.Sources[0].Alias != "E" {
		t.Errorf("sources: %#v", q.Sources)
	}
	if len(q.Lets) != 1 || q.Lets[0].Name != "d" {
		t.Errorf("lets: %#v", q.Lets)
	}
	if q.Where == nil || q.Return == nil || q.Sort == nil {
		t.Error("missing clauses")
	}
	if q.Sort.Items[0].Direction != ast.SortDescending {
		t.Error("sort direction")
	}
}

func TestMultiSourceFromQuery(t *testing.T) {
	expr := mustParseExpr(t, `from [Encounter] E, [Condition] C
		where C.onset during E.period
		return C`)
	q, ok := expr.(*ast.Query)
	if !ok {
		t.Fatalf("expected query, got %T", expr)
	}
	if len(q.Sources) != 2 || q.Sources[1].Alias != "C" {
		t.Errorf("sources: %#v", q.Sources)
	}
}

func TestWithRelationship(t *testing.T) {
	expr := mustParseExpr(t, `[Encounter] E with [Condition] C such that C.onset during E.period`)
	q, ok := expr.(*ast.Query)
	if !ok {
		t.Fatalf("expected query, got %T", expr)
	}
	if len(q.Relationships) != 1 || q.Relationships[0].Kind != ast.RelationshipWith {
		t.Errorf("relationships: %#v", q.Relationships)
	}
}

func TestLibraryDeclarations(t *testing.T) {
	src := `library Demo version '1.2.3'
using FHIR version '4.0.1'
include Common version '1.0.0' called C

codesystem "LOINC": 'http://loinc.org'
valueset "Diabetes": 'http://example.org/fhir/ValueSet/diabetes'
code "Systolic BP": '8480-6' from "LOINC" display 'Systolic blood pressure'
parameter MeasurementPeriod Interval<DateTime> default Interval[@2024-01-01T00:00:00.0, @2025-01-01T00:00:00.0)

context Patient

define private Helper: 1 + 1
define "Initial Population": exists [Condition: "Diabetes"]
define function Double(x Integer) returns Integer: x * 2
`
	lib, err := ParseLibrary(src)
	if err != nil {
		t.Fatal(err)
	}
	if lib.Definition == nil || lib.Definition.Name.String() != "Demo" || lib.Definition.Version != "1.2.3" {
		t.Errorf("definition: %#v", lib.Definition)
	}
	if len(lib.Usings) != 1 || lib.Usings[0].Model != "FHIR" {
		t.Errorf("usings: %#v", lib.Usings)
	}
	if len(lib.Includes) != 1 || lib.Includes[0].LocalName() != "C" {
		t.Errorf("includes: %#v", lib.Includes)
	}
	if len(lib.CodeSystems) != 1 || len(lib.ValueSets) != 1 || len(lib.Codes) != 1 {
		t.Error("terminology declarations missing")
	}
	if len(lib.Parameters) != 1 || lib.Parameters[0].Default == nil {
		t.Errorf("parameters: %#v", lib.Parameters)
	}
	if len(lib.Contexts) != 1 || lib.Contexts[0].Name != "Patient" {
		t.Errorf("contexts: %#v", lib.Contexts)
	}
	if len(lib.Statements) != 3 {
		t.Fatalf("statements: %d", len(lib.Statements))
	}
	if def, ok := lib.Statements[0].(*ast.ExpressionDef); !ok || def.Access != ast.AccessPrivate {
		t.Error("first statement should be a private define")
	}
	if fn, ok := lib.Statements[2].(*ast.FunctionDef); !ok || fn.Name != "Double" || len(fn.Operands) != 1 {
		t.Error("function definition")
	}
}

func TestSpansAreTracked(t *testing.T) {
	src := "define X:\n  1 + foo"
	lib, err := ParseLibrary(src)
	if err != nil {
		t.Fatal(err)
	}
	def := lib.Statements[0].(*ast.ExpressionDef)
	add := def.Expression.(*ast.BinaryExpr)
	ref := add.Right.(*ast.IdentifierRef)
	if ref.Span().Line != 2 || ref.Span().Column != 7 {
		t.Errorf("span = %+v", ref.Span())
	}
	if got := src[ref.Span().Start:ref.Span().End]; got != "foo" {
		t.Errorf("span text = %q", got)
	}
}

func TestErrorAccumulation(t *testing.T) {
	src := `define A: 1 +
define B: ) bogus
define C: 2`
	lib, err := ParseLibrary(src)
	if err == nil {
		t.Fatal("expected parse errors")
	}
	if len(lib.Statements) < 2 {
		t.Errorf("expected recovery to keep parsing, got %d statements", len(lib.Statements))
	}
	if !strings.Contains(err.Error(), "expected expression") {
		t.Errorf("unexpected error text: %v", err)
	}
}

func TestCommentsAndQuotedIdentifiers(t *testing.T) {
	src := "define \"My `odd` name\": 1 // trailing\n/* block\ncomment */ define Other: `backtick id`"
	lib, err := ParseLibrary(src)
	if err != nil {
		t.Fatal(err)
	}
	if len(lib.Statements) != 2 {
		t.Fatalf("statements: %d", len(lib.Statements))
	}
	def := lib.Statements[0].(*ast.ExpressionDef)
	if def.Name != "My `odd` name" {
		t.Errorf("name = %q", def.Name)
	}
	other := lib.Statements[1].(*ast.ExpressionDef)
	if ref, ok := other.Expression.(*ast.IdentifierRef); !ok || ref.Name != "backtick id" {
		t.Errorf("expression: %#v", other.Expression)
	}
}

func TestCaseExpression(t *testing.T) {
	expr := mustParseExpr(t, `case
		when x > 1 then 'big'
		when x > 0 then 'small'
		else 'neg'
	end`)
	c, ok := expr.(*ast.CaseExpr)
	if !ok {
		t.Fatalf("expected case, got %T", expr)
	}
	if c.Comparand != nil || len(c.Items) != 2 || c.Else == nil {
		t.Errorf("case: %#v", c)
	}

	expr = mustParseExpr(t, `case x when 1 then 'one' else 'other' end`)
	c = expr.(*ast.CaseExpr)
	if c.Comparand == nil || len(c.Items) != 1 {
		t.Errorf("comparand case: %#v", c)
	}
}

func TestBetweenDesugars(t *testing.T) {
	expr := mustParseExpr(t, "x between 1 and 10")
	and, ok := expr.(*ast.BinaryExpr)
	if !ok || and.Op != ast.BinaryAnd {
		t.Fatalf("expected and, got %#v", expr)
	}
	if ge, ok := and.Left.(*ast.BinaryExpr); !ok || ge.Op != ast.BinaryGreaterOrEqual {
		t.Errorf("left: %#v", and.Left)
	}
}

func TestFluentAndQualifiedCalls(t *testing.T) {
	expr := mustParseExpr(t, "C.Double(2)")
	call, ok := expr.(*ast.FunctionCall)
	if !ok || call.Qualifier != "C" || call.Fluent {
		t.Fatalf("qualified call: %#v", expr)
	}

	expr = mustParseExpr(t, "(1).ToString()")
	call, ok = expr.(*ast.FunctionCall)
	if !ok || !call.Fluent || len(call.Args) != 1 {
		t.Fatalf("fluent call: %#v", expr)
	}
}
