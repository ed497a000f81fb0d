package translator

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DAMEDIC/cql-engine-go/diagnostics"
	"github.com/DAMEDIC/cql-engine-go/elm"
	"github.com/DAMEDIC/cql-engine-go/modelinfo"
	"github.com/DAMEDIC/cql-engine-go/resolver"
)

const testModelXML = `<?xml version="1.0"?>
<modelInfo name="FHIR" version="4.0.1" url="http://hl7.org/fhir">
  <typeInfo namespace="FHIR" name="Resource"/>
  <typeInfo namespace="FHIR" name="Patient" baseType="FHIR.Resource" retrievable="true">
    <element name="birthDate" type="System.Date"/>
    <element name="gender" type="System.String"/>
  </typeInfo>
  <typeInfo namespace="FHIR" name="Condition" baseType="FHIR.Resource" retrievable="true" primaryCodePath="code">
    <element name="code" type="System.Concept"/>
    <element name="onset" type="System.DateTime"/>
  </typeInfo>
  <typeInfo namespace="FHIR" name="HumanName">
    <element name="family" type="System.String"/>
  </typeInfo>
</modelInfo>`

func testProvider(t *testing.T) modelinfo.Provider {
	t.Helper()
	model, err := modelinfo.Parse([]byte(testModelXML))
	if err != nil {
		t.Fatal(err)
	}
	return modelinfo.NewStaticProvider(model)
}

func translateSource(t *testing.T, provider modelinfo.Provider, source string) (*Result, error) {
	t.Helper()
	resolved, err := resolver.New().ResolveSource(source, "")
	if err != nil {
		return nil, err
	}
	return New(provider, Options{}).Translate(resolved)
}

func TestTranslateSimpleDefine(t *testing.T) {
	result, err := translateSource(t, nil, "define X: 1 + 2")
	if err != nil {
		t.Fatal(err)
	}
	def := result.Root.ELM.Statements[0]
	add, ok := def.Expression.Expression.(*elm.Add)
	if !ok {
		t.Fatalf("expected Add, got %T", def.Expression.Expression)
	}
	lit, ok := add.Operands[0].Expression.(*elm.Literal)
	if !ok || lit.Value != "1" {
		t.Errorf("left operand: %#v", add.Operands[0].Expression)
	}
}

func TestImplicitConversionInsertion(t *testing.T) {
	result, err := translateSource(t, nil, "define X: 1 + 2.5")
	if err != nil {
		t.Fatal(err)
	}
	add := result.Root.ELM.Statements[0].Expression.Expression.(*elm.Add)
	if _, ok := add.Operands[0].Expression.(*elm.ToDecimal); !ok {
		t.Errorf("expected ToDecimal around the integer operand, got %T", add.Operands[0].Expression)
	}
}

func TestRetrieveValidation(t *testing.T) {
	provider := testProvider(t)

	// retrievable type with primary code path
	result, err := translateSource(t, provider, `library T
using FHIR version '4.0.1'
valueset "Diabetes": 'http://example.org/vs/diabetes'
context Patient
define X: [Condition: "Diabetes"]`)
	if err != nil {
		t.Fatal(err)
	}
	var retrieve *elm.Retrieve
	for _, def := range result.Root.ELM.Statements {
		if r, ok := def.Expression.Expression.(*elm.Retrieve); ok {
			retrieve = r
		}
	}
	if retrieve == nil {
		t.Fatal("no retrieve emitted")
	}
	if retrieve.DataType != "FHIR.Condition" || retrieve.CodeProperty != "code" {
		t.Errorf("retrieve: %+v", retrieve)
	}

	// non-retrievable type
	_, err = translateSource(t, provider, `library T
using FHIR version '4.0.1'
define X: [HumanName]`)
	if !diagnostics.IsCode(err, diagnostics.CodeNotRetrievable) {
		t.Errorf("expected not-retrievable, got %v", err)
	}

	// no model at all
	_, err = translateSource(t, nil, `define X: [Condition]`)
	if !diagnostics.IsCode(err, diagnostics.CodeNotRetrievable) {
		t.Errorf("expected not-retrievable without model, got %v", err)
	}
}

func TestContextResourceReference(t *testing.T) {
	provider := testProvider(t)
	result, err := translateSource(t, provider, `library T
using FHIR version '4.0.1'
context Patient
define X: Patient.birthDate`)
	if err != nil {
		t.Fatal(err)
	}
	prop := result.Root.ELM.Statements[0].Expression.Expression.(*elm.Property)
	if prop.Path != "birthDate" {
		t.Errorf("property: %+v", prop)
	}
	if _, ok := prop.Source.Expression.(*elm.ExpressionRef); !ok {
		t.Errorf("expected ExpressionRef source, got %T", prop.Source.Expression)
	}
}

func TestUnknownPropertyError(t *testing.T) {
	provider := testProvider(t)
	_, err := translateSource(t, provider, `library T
using FHIR version '4.0.1'
context Patient
define X: Patient.nonexistent`)
	if !diagnostics.IsCode(err, diagnostics.CodeUnresolvedIdentifier) {
		t.Errorf("expected unresolved identifier, got %v", err)
	}
}

func TestQualifiedLibraryReferences(t *testing.T) {
	dir := t.TempDir()
	common := `library Common version '1.0.0'
define public Shared: 40
define private Secret: 1
define function Add2(x Integer) returns Integer: x + 2`
	if err := os.WriteFile(filepath.Join(dir, "Common-1.0.0.cql"), []byte(common), 0o644); err != nil {
		t.Fatal(err)
	}
	root := `library Root
include Common version '1.0.0' called C
define X: C.Shared
define Y: C.Add2(1)`
	if err := os.WriteFile(filepath.Join(dir, "Root.cql"), []byte(root), 0o644); err != nil {
		t.Fatal(err)
	}

	resolved, err := resolver.New(dir).ResolveFile(filepath.Join(dir, "Root.cql"))
	if err != nil {
		t.Fatal(err)
	}
	result, err := New(nil, Options{}).Translate(resolved)
	if err != nil {
		t.Fatal(err)
	}

	x := result.Root.ELM.Statements[0].Expression.Expression
	ref, ok := x.(*elm.ExpressionRef)
	if !ok || ref.LibraryName != "C" || ref.Name != "Shared" {
		t.Errorf("qualified ref: %#v", x)
	}

	y := result.Root.ELM.Statements[1].Expression.Expression
	fn, ok := y.(*elm.FunctionRef)
	if !ok || fn.LibraryName != "C" || fn.Name != "Add2" {
		t.Errorf("qualified call: %#v", y)
	}
}

func TestUnqualifiedImportReferenceIsError(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Common.cql"), []byte("library Common\ndefine Shared: 1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Root.cql"), []byte("library Root\ninclude Common\ndefine X: Shared"), 0o644); err != nil {
		t.Fatal(err)
	}
	resolved, err := resolver.New(dir).ResolveFile(filepath.Join(dir, "Root.cql"))
	if err != nil {
		t.Fatal(err)
	}
	_, err = New(nil, Options{}).Translate(resolved)
	if !diagnostics.IsCode(err, diagnostics.CodeUnresolvedIdentifier) {
		t.Errorf("expected unresolved identifier for unqualified import reference, got %v", err)
	}
}

func TestOverloadResolution(t *testing.T) {
	source := `define function F(x Integer) returns String: 'int'
define function F(x Decimal) returns String: 'dec'
define X: F(1)
define Y: F(1.5)`
	result, err := translateSource(t, nil, source)
	if err != nil {
		t.Fatal(err)
	}
	// F(1) picks the Integer overload (zero conversions beats one)
	x := result.Root.ELM.Statements[2].Expression.Expression.(*elm.FunctionRef)
	if _, ok := x.Operands[0].Expression.(*elm.ToDecimal); ok {
		t.Error("F(1) should bind the Integer overload without conversion")
	}
	y := result.Root.ELM.Statements[3].Expression.Expression.(*elm.FunctionRef)
	if len(y.Operands) != 1 {
		t.Errorf("F(1.5): %#v", y)
	}
}

func TestDuplicateDefinition(t *testing.T) {
	_, err := translateSource(t, nil, "define X: 1\ndefine X: 2")
	if !diagnostics.IsCode(err, diagnostics.CodeDuplicateDefinition) {
		t.Errorf("expected duplicate definition, got %v", err)
	}
}

func TestAnnotations(t *testing.T) {
	resolved, err := resolver.New().ResolveSource("define X: 1 + 2", "")
	if err != nil {
		t.Fatal(err)
	}
	result, err := New(nil, Options{Annotations: true}).Translate(resolved)
	if err != nil {
		t.Fatal(err)
	}
	add := result.Root.ELM.Statements[0].Expression.Expression.(*elm.Add)
	if elm.ElementOf(add).Locator == "" {
		t.Error("expected a locator annotation")
	}
	if !strings.Contains(elm.ElementOf(add).ResultType, "Integer") {
		t.Errorf("result type = %q", elm.ElementOf(add).ResultType)
	}
}
