package elm

import (
	"encoding/json"
	"fmt"
)

// TypeSpecifier is the ELM form of a type. The concrete kinds mirror
// the schema: named, list, interval, tuple and choice specifiers.
type TypeSpecifier interface {
	SpecifierName() string
	String() string
}

type NamedTypeSpecifier struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

func (s *NamedTypeSpecifier) SpecifierName() string { return "NamedTypeSpecifier" }
func (s *NamedTypeSpecifier) String() string        { return s.Name }

// Named builds a named specifier for a qualified type name.
func Named(name string) *NamedTypeSpecifier {
	return &NamedTypeSpecifier{Type: "NamedTypeSpecifier", Name: name}
}

type ListTypeSpecifier struct {
	Type        string   `json:"type"`
	ElementType TypeSpec `json:"elementType"`
}

func (s *ListTypeSpecifier) SpecifierName() string { return "ListTypeSpecifier" }
func (s *ListTypeSpecifier) String() string        { return "List<" + s.ElementType.String() + ">" }

// ListOf builds a list specifier.
func ListOf(element TypeSpecifier) *ListTypeSpecifier {
	return &ListTypeSpecifier{Type: "ListTypeSpecifier", ElementType: TypeSpec{element}}
}

type IntervalTypeSpecifier struct {
	Type      string   `json:"type"`
	PointType TypeSpec `json:"pointType"`
}

func (s *IntervalTypeSpecifier) SpecifierName() string { return "IntervalTypeSpecifier" }
func (s *IntervalTypeSpecifier) String() string        { return "Interval<" + s.PointType.String() + ">" }

// IntervalOf builds an interval specifier.
func IntervalOf(point TypeSpecifier) *IntervalTypeSpecifier {
	return &IntervalTypeSpecifier{Type: "IntervalTypeSpecifier", PointType: TypeSpec{point}}
}

type TupleElementDefinition struct {
	Name string   `json:"name"`
	Type TypeSpec `json:"elementType"`
}

type TupleTypeSpecifier struct {
	Type     string                   `json:"type"`
	Elements []TupleElementDefinition `json:"element"`
}

func (s *TupleTypeSpecifier) SpecifierName() string { return "TupleTypeSpecifier" }
func (s *TupleTypeSpecifier) String() string {
	out := "Tuple{"
	for i, e := range s.Elements {
		if i > 0 {
			out += ", "
		}
		out += e.Name + " " + e.Type.String()
	}
	return out + "}"
}

type ChoiceTypeSpecifier struct {
	Type    string     `json:"type"`
	Choices []TypeSpec `json:"choice"`
}

func (s *ChoiceTypeSpecifier) SpecifierName() string { return "ChoiceTypeSpecifier" }
func (s *ChoiceTypeSpecifier) String() string {
	out := "Choice<"
	for i, c := range s.Choices {
		if i > 0 {
			out += ", "
		}
		out += c.String()
	}
	return out + ">"
}

// TypeSpec wraps a TypeSpecifier for polymorphic JSON decoding.
type TypeSpec struct {
	TypeSpecifier
}

func (t TypeSpec) MarshalJSON() ([]byte, error) {
	if t.TypeSpecifier == nil {
		return []byte("null"), nil
	}
	return json.Marshal(t.TypeSpecifier)
}

func (t *TypeSpec) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		t.TypeSpecifier = nil
		return nil
	}
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	var spec TypeSpecifier
	switch probe.Type {
	case "NamedTypeSpecifier":
		spec = &NamedTypeSpecifier{}
	case "ListTypeSpecifier":
		spec = &ListTypeSpecifier{}
	case "IntervalTypeSpecifier":
		spec = &IntervalTypeSpecifier{}
	case "TupleTypeSpecifier":
		spec = &TupleTypeSpecifier{}
	case "ChoiceTypeSpecifier":
		spec = &ChoiceTypeSpecifier{}
	default:
		return fmt.Errorf("unknown type specifier %q", probe.Type)
	}
	if err := json.Unmarshal(data, spec); err != nil {
		return err
	}
	t.TypeSpecifier = spec
	return nil
}

func (t TypeSpec) String() string {
	if t.TypeSpecifier == nil {
		return "Any"
	}
	return t.TypeSpecifier.String()
}
