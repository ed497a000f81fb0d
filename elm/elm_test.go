package elm

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testLibrary(t *testing.T) *Library {
	t.Helper()
	one, err := NewExpression("Literal")
	if err != nil {
		t.Fatal(err)
	}
	lit := one.(*Literal)
	lit.ValueType = "{urn:hl7-org:elm-types:r1}Integer"
	lit.Value = "1"

	two, _ := NewExpression("Literal")
	lit2 := two.(*Literal)
	lit2.ValueType = "{urn:hl7-org:elm-types:r1}Integer"
	lit2.Value = "2"

	add, err := NewBinary("Add", one, two)
	if err != nil {
		t.Fatal(err)
	}

	return &Library{
		Identifier:       VersionedIdentifier{ID: "Test", Version: "1.0.0"},
		SchemaIdentifier: VersionedIdentifier{ID: "urn:hl7-org:elm", Version: "r1"},
		Statements: []*ExpressionDef{
			{Name: "X", Context: "Patient", Expression: E(add)},
		},
	}
}

// Translation round-trip: serialize → decode → serialize must be stable.
func TestJSONRoundTrip(t *testing.T) {
	lib := testLibrary(t)

	first, err := MarshalLibrary(lib, true)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := UnmarshalLibrary(first)
	if err != nil {
		t.Fatalf("decode: %v\n%s", err, first)
	}
	second, err := MarshalLibrary(decoded, true)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(string(first), string(second)); diff != "" {
		t.Errorf("round-trip mismatch (-first +second):\n%s", diff)
	}

	// the decoded tree has the concrete node types
	add, ok := decoded.Statements[0].Expression.Expression.(*Add)
	if !ok {
		t.Fatalf("expected *Add, got %T", decoded.Statements[0].Expression.Expression)
	}
	if len(add.Operands) != 2 {
		t.Fatalf("operands: %d", len(add.Operands))
	}
	if lit, ok := add.Operands[1].Expression.(*Literal); !ok || lit.Value != "2" {
		t.Errorf("right operand: %#v", add.Operands[1].Expression)
	}
}

func TestJSONDiscriminators(t *testing.T) {
	lib := testLibrary(t)
	data, err := MarshalLibrary(lib, false)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"type":"Add"`, `"type":"Literal"`, `"name":"X"`, `"context":"Patient"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("serialized ELM missing %s:\n%s", want, data)
		}
	}
	// absent optional expressions are omitted, not null
	if strings.Contains(string(data), "null") {
		t.Errorf("unexpected null in output:\n%s", data)
	}
}

func TestUnknownTypeErrors(t *testing.T) {
	_, err := UnmarshalLibrary([]byte(`{"library":{"identifier":{"id":"X"},"statements":[{"name":"A","expression":{"type":"Bogus"}}]}}`))
	if err == nil || !strings.Contains(err.Error(), "Bogus") {
		t.Errorf("expected unknown-type error, got %v", err)
	}
}

func TestXMLSerialization(t *testing.T) {
	lib := testLibrary(t)
	data, err := MarshalLibraryXML(lib, true)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, want := range []string{
		`<library xmlns="urn:hl7-org:elm:r1"`,
		`xsi:type="Add"`,
		`xsi:type="Literal"`,
		`value="1"`,
		`<def name="X" context="Patient"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("XML missing %s:\n%s", want, out)
		}
	}

	// deterministic output
	again, err := MarshalLibraryXML(lib, true)
	if err != nil {
		t.Fatal(err)
	}
	if string(again) != out {
		t.Error("XML serialization is not deterministic")
	}
}

func TestTypeSpecifierRoundTrip(t *testing.T) {
	spec := ListOf(IntervalOf(Named("System.DateTime")))
	lib := &Library{
		Identifier: VersionedIdentifier{ID: "T"},
		Parameters: []ParameterDef{{Name: "P", Type: TypeSpec{spec}}},
	}
	data, err := MarshalLibrary(lib, false)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := UnmarshalLibrary(data)
	if err != nil {
		t.Fatal(err)
	}
	if got := decoded.Parameters[0].Type.String(); got != "List<Interval<System.DateTime>>" {
		t.Errorf("type = %s", got)
	}
}
