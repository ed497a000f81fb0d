package generate

import (
	"bytes"
	"strings"
	"testing"

	"github.com/DAMEDIC/cql-engine-go/modelinfo"
)

func TestFileRendersRegistrationTable(t *testing.T) {
	model := &modelinfo.ModelInfo{
		Name:    "FHIR",
		Version: "4.0.1",
		URL:     "http://hl7.org/fhir",
		Types: []modelinfo.TypeInfo{
			{
				Namespace: "FHIR", Name: "Condition", BaseType: "FHIR.Resource",
				Retrievable: true, PrimaryCodePath: "code",
				Elements: []modelinfo.Element{
					{Name: "code", Type: "System.Concept"},
					{Name: "category", ElementType: "System.Concept"},
				},
			},
		},
	}

	var buf bytes.Buffer
	if err := File(model).Render(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"Code generated by internal/cmd/generate",
		"package modelinfo",
		"Registry = sync.OnceValue",
		`"FHIR"`,
		`PrimaryCodePath: "code"`,
		`ElementType: "System.Concept"`,
		"Retrievable:",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("generated file missing %q:\n%s", want, out)
		}
	}
}
