// Package modelinfo consumes HL7 ModelInfo documents (XML or JSON) and
// answers the type and property queries the translator and evaluator
// need: type lookup with inheritance, property resolution, retrievability
// and primary code paths.
package modelinfo

// ModelInfo describes a data model such as FHIR R4 or R5.
type ModelInfo struct {
	Name    string     `json:"name" xml:"name,attr"`
	Version string     `json:"version" xml:"version,attr"`
	URL     string     `json:"url" xml:"url,attr"`
	Types   []TypeInfo `json:"typeInfo" xml:"typeInfo"`

	// PatientClassName and PatientBirthDatePropertyName configure the
	// default context resource.
	PatientClassName             string `json:"patientClassName,omitempty" xml:"patientClassName,attr,omitempty"`
	PatientBirthDatePropertyName string `json:"patientBirthDatePropertyName,omitempty" xml:"patientBirthDatePropertyName,attr,omitempty"`
}

// TypeInfo describes one class of the model.
type TypeInfo struct {
	Namespace       string    `json:"namespace,omitempty" xml:"namespace,attr,omitempty"`
	Name            string    `json:"name" xml:"name,attr"`
	BaseType        string    `json:"baseType,omitempty" xml:"baseType,attr,omitempty"`
	Retrievable     bool      `json:"retrievable,omitempty" xml:"retrievable,attr,omitempty"`
	PrimaryCodePath string    `json:"primaryCodePath,omitempty" xml:"primaryCodePath,attr,omitempty"`
	Elements        []Element `json:"element,omitempty" xml:"element"`
}

// Element is one property of a TypeInfo. For list-typed properties the
// element type is carried in ElementType and IsList is set.
type Element struct {
	Name string `json:"name" xml:"name,attr"`
	Type string `json:"type,omitempty" xml:"type,attr,omitempty"`
	// ElementType is set instead of Type for List<...> properties.
	ElementType string `json:"elementType,omitempty" xml:"elementType,attr,omitempty"`
	// Target names the type a Reference property points at.
	Target string `json:"target,omitempty" xml:"target,attr,omitempty"`
}

// IsList reports whether the property is list-valued.
func (e Element) IsList() bool {
	return e.ElementType != ""
}

// PropertyType returns the declared (element) type of the property.
func (e Element) PropertyType() string {
	if e.ElementType != "" {
		return e.ElementType
	}
	return e.Type
}

// QualifiedName is the namespace-qualified name of the type.
func (t TypeInfo) QualifiedName() string {
	if t.Namespace == "" {
		return t.Name
	}
	return t.Namespace + "." + t.Name
}
