package ast

import "strings"

// TypeSpecifier is the syntactic form of a type.
type TypeSpecifier interface {
	Node
	typeSpecifierNode()
	String() string
}

// NamedType is `System.Integer` or `Patient`.
type NamedType struct {
	span
	Name QualifiedIdentifier
}

func (*NamedType) typeSpecifierNode() {}
func (t *NamedType) String() string   { return t.Name.String() }

// ListType is `List<T>`.
type ListType struct {
	span
	Element TypeSpecifier
}

func (*ListType) typeSpecifierNode() {}
func (t *ListType) String() string   { return "List<" + t.Element.String() + ">" }

// IntervalType is `Interval<T>`.
type IntervalType struct {
	span
	Point TypeSpecifier
}

func (*IntervalType) typeSpecifierNode() {}
func (t *IntervalType) String() string   { return "Interval<" + t.Point.String() + ">" }

// TupleTypeElement is one `name T` element.
type TupleTypeElement struct {
	Name string
	Type TypeSpecifier
}

// TupleType is `Tuple { name T, ... }`.
type TupleType struct {
	span
	Elements []TupleTypeElement
}

func (*TupleType) typeSpecifierNode() {}
func (t *TupleType) String() string {
	parts := make([]string, len(t.Elements))
	for i, e := range t.Elements {
		parts[i] = e.Name + " " + e.Type.String()
	}
	return "Tuple{" + strings.Join(parts, ", ") + "}"
}

// ChoiceType is `Choice<A, B>`.
type ChoiceType struct {
	span
	Types []TypeSpecifier
}

func (*ChoiceType) typeSpecifierNode() {}
func (t *ChoiceType) String() string {
	parts := make([]string, len(t.Types))
	for i, c := range t.Types {
		parts[i] = c.String()
	}
	return "Choice<" + strings.Join(parts, ", ") + ">"
}
