package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/DAMEDIC/cql-engine-go/diagnostics"
	"github.com/DAMEDIC/cql-engine-go/modelinfo"
	"github.com/DAMEDIC/cql-engine-go/resolver"
	"github.com/DAMEDIC/cql-engine-go/system"
	"github.com/DAMEDIC/cql-engine-go/testdata/assert"
	"github.com/DAMEDIC/cql-engine-go/translator"
)

const testModelXML = `<?xml version="1.0"?>
<modelInfo name="FHIR" version="4.0.1" url="http://hl7.org/fhir">
  <typeInfo namespace="FHIR" name="Patient" retrievable="true">
    <element name="birthDate" type="System.Date"/>
  </typeInfo>
  <typeInfo namespace="FHIR" name="Condition" retrievable="true" primaryCodePath="code">
    <element name="code" type="System.Code"/>
    <element name="onset" type="System.DateTime"/>
  </typeInfo>
</modelInfo>`

func compile(t *testing.T, source string, options Options) *Engine {
	t.Helper()
	model, err := modelinfo.Parse([]byte(testModelXML))
	if err != nil {
		t.Fatal(err)
	}
	resolved, err := resolver.New().ResolveSource(source, "")
	if err != nil {
		t.Fatal(err)
	}
	result, err := translator.New(modelinfo.NewStaticProvider(model), translator.Options{}).Translate(resolved)
	if err != nil {
		t.Fatal(err)
	}
	return New(result, options)
}

func condition(code, display, onset string) system.Value {
	dt, _ := system.ParseDateTime(onset)
	return system.NewTuple(
		system.TupleElement{Name: "code", Value: system.Code{Code: code, System: "http://snomed.info/sct", Display: display}},
		system.TupleElement{Name: "onset", Value: dt},
	)
}

func testData() StaticProvider {
	return StaticProvider{Resources: map[string][]system.Value{
		"FHIR.Condition": {
			condition("44054006", "Diabetes mellitus type 2", "@2020-03-01T00:00:00"),
			condition("38341003", "Hypertension", "@2021-06-15T00:00:00"),
			condition("195967001", "Asthma", "@2019-01-10T00:00:00"),
		},
	}}
}

const measureSource = `library Measure version '1.0.0'
using FHIR version '4.0.1'

codesystem "SNOMED": 'http://snomed.info/sct'
valueset "Diabetes": 'http://example.org/vs/diabetes'

context Patient

define Conditions: [Condition]
define DiabetesConditions: [Condition: "Diabetes"]
define OnsetYears: Conditions C return year from C.onset
define RecentConditions: Conditions C where C.onset after @2020-01-01T00:00:00 return C
define HasDiabetes: exists DiabetesConditions`

func TestRetrieveAndQuery(t *testing.T) {
	vs := MapTerminology{
		"http://example.org/vs/diabetes": {
			{Code: "44054006", System: "http://snomed.info/sct"},
		},
	}
	eng := compile(t, measureSource, Options{DataProvider: testData(), Terminology: vs})
	req := eng.NewRequest(RequestOptions{})
	ctx := context.Background()

	all, err := req.Evaluate(ctx, "Conditions")
	if err != nil {
		t.Fatal(err)
	}
	if len(all.(system.List)) != 3 {
		t.Errorf("Conditions: %v", all)
	}

	diabetes, err := req.Evaluate(ctx, "DiabetesConditions")
	if err != nil {
		t.Fatal(err)
	}
	if len(diabetes.(system.List)) != 1 {
		t.Errorf("DiabetesConditions: %v", diabetes)
	}

	years, err := req.Evaluate(ctx, "OnsetYears")
	if err != nil {
		t.Fatal(err)
	}
	want := system.List{system.Integer(2020), system.Integer(2021), system.Integer(2019)}
	if years.String() != want.String() {
		t.Errorf("OnsetYears = %v, want %v", years, want)
	}

	recent, err := req.Evaluate(ctx, "RecentConditions")
	if err != nil {
		t.Fatal(err)
	}
	if len(recent.(system.List)) != 2 {
		t.Errorf("RecentConditions: %v", recent)
	}

	has, err := req.Evaluate(ctx, "HasDiabetes")
	if err != nil {
		t.Fatal(err)
	}
	if has != system.Boolean(true) {
		t.Errorf("HasDiabetes = %v", has)
	}
}

func TestValueSetMembership(t *testing.T) {
	source := `library T version '1.0.0'
using FHIR version '4.0.1'
codesystem "SNOMED": 'http://snomed.info/sct'
valueset "Diabetes": 'http://example.org/vs/diabetes'
code "T2DM": '44054006' from "SNOMED"
define InSet: "T2DM" in "Diabetes"
define NotInSet: Code '999' from "SNOMED" in "Diabetes"`

	vs := MapTerminology{
		"http://example.org/vs/diabetes": {
			{Code: "44054006", System: "http://snomed.info/sct"},
		},
	}
	eng := compile(t, source, Options{Terminology: vs})
	req := eng.NewRequest(RequestOptions{})
	ctx := context.Background()

	in, err := req.Evaluate(ctx, "InSet")
	if err != nil {
		t.Fatal(err)
	}
	if in != system.Boolean(true) {
		t.Errorf("InSet = %v", in)
	}
	notIn, err := req.Evaluate(ctx, "NotInSet")
	if err != nil {
		t.Fatal(err)
	}
	if notIn != system.Boolean(false) {
		t.Errorf("NotInSet = %v", notIn)
	}
}

func TestContextResource(t *testing.T) {
	source := `library T version '1.0.0'
using FHIR version '4.0.1'
context Patient
define BirthDate: Patient.birthDate`

	birth, _ := system.ParseDate("@1980-05-05")
	patient := system.NewTuple(system.TupleElement{Name: "birthDate", Value: birth})

	eng := compile(t, source, Options{})
	req := eng.NewRequest(RequestOptions{Context: patient})
	v, err := req.Evaluate(context.Background(), "BirthDate")
	if err != nil {
		t.Fatal(err)
	}
	assert.ValueEqual(t, birth, v)
}

func TestRecursionDepthBound(t *testing.T) {
	// a deeply nested arithmetic chain
	var b strings.Builder
	b.WriteString("define X: 1")
	for i := 0; i < 50; i++ {
		b.WriteString(" + 1")
	}
	eng := compile(t, b.String(), Options{MaxDepth: 16})
	req := eng.NewRequest(RequestOptions{})
	_, err := req.Evaluate(context.Background(), "X")
	if !diagnostics.IsCode(err, diagnostics.CodeResourceExhausted) {
		t.Errorf("expected resource exhaustion, got %v", err)
	}
}

func TestListMaterializationBound(t *testing.T) {
	source := `define A: {1, 2, 3, 4, 5}
define X: from A a, A b, A c return 1`
	eng := compile(t, source, Options{MaxListSize: 100})
	req := eng.NewRequest(RequestOptions{})
	_, err := req.Evaluate(context.Background(), "X")
	if !diagnostics.IsCode(err, diagnostics.CodeResourceExhausted) {
		t.Errorf("expected resource exhaustion, got %v", err)
	}
}

func TestTraceLogging(t *testing.T) {
	var sink strings.Builder
	logger := zerolog.New(&sink).Level(zerolog.TraceLevel)
	eng := compile(t, "define X: 1 + 1", Options{Logger: logger})
	req := eng.NewRequest(RequestOptions{})
	if _, err := req.Evaluate(context.Background(), "X"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sink.String(), `"definition":"X"`) {
		t.Errorf("trace output missing definition event: %s", sink.String())
	}
	if !strings.Contains(sink.String(), "request_id") {
		t.Errorf("trace output missing request id: %s", sink.String())
	}
}
