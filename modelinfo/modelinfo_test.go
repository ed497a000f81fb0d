package modelinfo

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/DAMEDIC/cql-engine-go/diagnostics"
)

const fhirModelXML = `<?xml version="1.0" encoding="UTF-8"?>
<modelInfo name="FHIR" version="4.0.1" url="http://hl7.org/fhir" patientClassName="FHIR.Patient">
  <typeInfo namespace="FHIR" name="Resource" retrievable="false">
    <element name="id" type="FHIR.string"/>
  </typeInfo>
  <typeInfo namespace="FHIR" name="DomainResource" baseType="FHIR.Resource"/>
  <typeInfo namespace="FHIR" name="Patient" baseType="FHIR.DomainResource" retrievable="true">
    <element name="birthDate" type="System.Date"/>
    <element name="name" elementType="FHIR.HumanName"/>
  </typeInfo>
  <typeInfo namespace="FHIR" name="Condition" baseType="FHIR.DomainResource" retrievable="true" primaryCodePath="code">
    <element name="code" type="System.Concept"/>
    <element name="onset" type="System.DateTime"/>
    <element name="subject" type="FHIR.Reference" target="FHIR.Patient"/>
  </typeInfo>
  <typeInfo namespace="FHIR" name="HumanName">
    <element name="family" type="FHIR.string"/>
    <element name="given" elementType="FHIR.string"/>
  </typeInfo>
</modelInfo>`

const fhirModelJSON = `{
  "name": "FHIR",
  "version": "4.0.1",
  "url": "http://hl7.org/fhir",
  "typeInfo": [
    {"namespace": "FHIR", "name": "Resource", "element": [{"name": "id", "type": "FHIR.string"}]},
    {"namespace": "FHIR", "name": "Patient", "baseType": "FHIR.Resource", "retrievable": true,
     "element": [{"name": "birthDate", "type": "System.Date"}]}
  ]
}`

func TestParseAutoDetect(t *testing.T) {
	xmlModel, err := Parse([]byte(fhirModelXML))
	if err != nil {
		t.Fatal(err)
	}
	if xmlModel.Name != "FHIR" || xmlModel.Version != "4.0.1" {
		t.Errorf("unexpected identity: %s %s", xmlModel.Name, xmlModel.Version)
	}
	if xmlModel.PatientClassName != "FHIR.Patient" {
		t.Errorf("patientClassName = %q", xmlModel.PatientClassName)
	}

	jsonModel, err := Parse([]byte(fhirModelJSON))
	if err != nil {
		t.Fatal(err)
	}
	if jsonModel.Name != "FHIR" {
		t.Errorf("unexpected name: %s", jsonModel.Name)
	}

	if _, err := Parse([]byte("not a model")); err == nil {
		t.Error("expected error for unrecognized content")
	} else if !diagnostics.IsCode(err, diagnostics.CodeMalformedModelInfo) {
		t.Errorf("expected malformed-modelinfo code, got %v", err)
	}
}

func TestRegistryLookups(t *testing.T) {
	model, err := Parse([]byte(fhirModelXML))
	if err != nil {
		t.Fatal(err)
	}
	r := NewRegistry(model)

	t.Run("type lookup by simple and qualified name", func(t *testing.T) {
		if _, ok := r.GetType("Patient"); !ok {
			t.Error("Patient not found by simple name")
		}
		if _, ok := r.GetType("FHIR.Patient"); !ok {
			t.Error("FHIR.Patient not found by qualified name")
		}
		if _, ok := r.GetType("patient"); ok {
			t.Error("lookup must be case-sensitive")
		}
		if _, ok := r.GetType("Observation"); ok {
			t.Error("unknown type must not resolve")
		}
	})

	t.Run("property through inheritance", func(t *testing.T) {
		typ, isList, ok := r.GetPropertyType("Patient", "birthDate")
		if !ok || typ != "System.Date" || isList {
			t.Errorf("birthDate: %q list=%v ok=%v", typ, isList, ok)
		}
		// id is declared on the Resource base type
		typ, _, ok = r.GetPropertyType("Patient", "id")
		if !ok || typ != "FHIR.string" {
			t.Errorf("inherited id: %q ok=%v", typ, ok)
		}
		typ, isList, ok = r.GetPropertyType("Patient", "name")
		if !ok || typ != "FHIR.HumanName" || !isList {
			t.Errorf("name: %q list=%v ok=%v", typ, isList, ok)
		}
		if _, _, ok := r.GetPropertyType("Patient", "nonexistent"); ok {
			t.Error("unknown property must not resolve")
		}
	})

	t.Run("retrievability and code path", func(t *testing.T) {
		if !r.IsRetrievable("Condition") {
			t.Error("Condition should be retrievable")
		}
		if r.IsRetrievable("HumanName") {
			t.Error("HumanName should not be retrievable")
		}
		path, ok := r.PrimaryCodePath("Condition")
		if !ok || path != "code" {
			t.Errorf("primary code path: %q ok=%v", path, ok)
		}
		if _, ok := r.PrimaryCodePath("Patient"); ok {
			t.Error("Patient has no primary code path")
		}
	})

	t.Run("subtype walk", func(t *testing.T) {
		if !r.IsSubtypeOf("Patient", "FHIR.Resource") {
			t.Error("Patient should be a subtype of Resource")
		}
		if r.IsSubtypeOf("HumanName", "FHIR.Resource") {
			t.Error("HumanName is not a Resource")
		}
	})
}

func TestXMLJSONEquivalence(t *testing.T) {
	xmlModel, err := Parse([]byte(fhirModelXML))
	if err != nil {
		t.Fatal(err)
	}
	jsonModel, err := Parse([]byte(fhirModelJSON))
	if err != nil {
		t.Fatal(err)
	}
	// the JSON fixture is a subset; compare the shared Patient property
	xr, jr := NewRegistry(xmlModel), NewRegistry(jsonModel)
	xt, _, _ := xr.GetPropertyType("Patient", "birthDate")
	jt, _, _ := jr.GetPropertyType("Patient", "birthDate")
	if diff := cmp.Diff(xt, jt); diff != "" {
		t.Errorf("birthDate type mismatch (-xml +json):\n%s", diff)
	}
}

func TestSystemRegistry(t *testing.T) {
	r := SystemRegistry()
	if !r.IsSubtypeOf("System.Integer", "System.Any") {
		t.Error("System.Integer should be a subtype of System.Any")
	}
	typ, _, ok := r.GetPropertyType("System.Quantity", "value")
	if !ok || typ != "System.Decimal" {
		t.Errorf("Quantity.value: %q ok=%v", typ, ok)
	}
}

func TestStaticProvider(t *testing.T) {
	model, err := Parse([]byte(fhirModelXML))
	if err != nil {
		t.Fatal(err)
	}
	p := NewStaticProvider(model)

	if _, err := p.GetModel("FHIR", "4.0.1"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := p.GetModel("FHIR", ""); err != nil {
		t.Errorf("any-version lookup: %v", err)
	}
	if _, err := p.GetModel("FHIR", "5.0.0"); !diagnostics.IsCode(err, diagnostics.CodeVersionMismatch) {
		t.Errorf("expected version mismatch, got %v", err)
	}
	if _, err := p.GetModel("QDM", ""); !diagnostics.IsCode(err, diagnostics.CodeLibraryNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if _, err := p.GetModel("System", ""); err != nil {
		t.Errorf("System model should always resolve: %v", err)
	}
}
