// Package ast defines the syntax tree the parser produces from CQL
// source text. Every node carries a source span for diagnostics.
package ast

import (
	"github.com/DAMEDIC/cql-engine-go/diagnostics"
)

// Node is implemented by every AST node.
type Node interface {
	Span() diagnostics.Span
}

type span struct {
	Loc diagnostics.Span
}

func (s span) Span() diagnostics.Span { return s.Loc }

// At attaches a span to a node embedding span.
func At(loc diagnostics.Span) span { return span{Loc: loc} }

// Library is a parsed CQL library.
type Library struct {
	span
	// Definition is nil for anonymous (inline) libraries.
	Definition  *LibraryDefinition
	Usings      []*UsingDef
	Includes    []*IncludeDef
	Parameters  []*ParameterDef
	CodeSystems []*CodeSystemDef
	ValueSets   []*ValueSetDef
	Codes       []*CodeDef
	Concepts    []*ConceptDef
	Contexts    []*ContextDef
	Statements  []Statement
}

// Statement is an expression or function definition.
type Statement interface {
	Node
	statementNode()
}

// LibraryDefinition is the `library Name version '1.0.0'` header.
type LibraryDefinition struct {
	span
	Name    QualifiedIdentifier
	Version string
}

// QualifiedIdentifier is a dotted name like `Common.Demographics`.
type QualifiedIdentifier struct {
	Parts []string
}

func (q QualifiedIdentifier) String() string {
	out := ""
	for i, p := range q.Parts {
		if i > 0 {
			out += "."
		}
		out += p
	}
	return out
}

// UsingDef declares the data model, e.g. `using FHIR version '4.0.1'`.
type UsingDef struct {
	span
	Model   string
	Version string
}

// IncludeDef imports another library, e.g.
// `include Common version '1.0.0' called C`.
type IncludeDef struct {
	span
	Library QualifiedIdentifier
	Version string
	Alias   string
}

// LocalName is the name the include is referenced by.
func (i *IncludeDef) LocalName() string {
	if i.Alias != "" {
		return i.Alias
	}
	return i.Library.Parts[len(i.Library.Parts)-1]
}

// AccessModifier is public or private; public is the default.
type AccessModifier int

const (
	AccessPublic AccessModifier = iota
	AccessPrivate
)

// ParameterDef declares an externally bindable parameter.
type ParameterDef struct {
	span
	Access  AccessModifier
	Name    string
	Type    TypeSpecifier
	Default Expression
}

// CodeSystemDef declares a code system by URL.
type CodeSystemDef struct {
	span
	Access  AccessModifier
	Name    string
	ID      string
	Version string
}

// ValueSetDef declares a value set by URL.
type ValueSetDef struct {
	span
	Access      AccessModifier
	Name        string
	ID          string
	Version     string
	CodeSystems []string
}

// CodeDef declares a single code within a code system.
type CodeDef struct {
	span
	Access     AccessModifier
	Name       string
	Code       string
	CodeSystem string
	Display    string
}

// ConceptDef declares a concept from a list of codes.
type ConceptDef struct {
	span
	Access  AccessModifier
	Name    string
	Codes   []string
	Display string
}

// ContextDef switches the evaluation context, e.g. `context Patient`.
type ContextDef struct {
	span
	Name string
}

// ExpressionDef is `define Name: expression`.
type ExpressionDef struct {
	span
	Access     AccessModifier
	Name       string
	Context    string
	Expression Expression
}

func (*ExpressionDef) statementNode() {}

// OperandDef is a function parameter declaration.
type OperandDef struct {
	span
	Name string
	Type TypeSpecifier
}

// FunctionDef is `define function Name(args): expression`.
type FunctionDef struct {
	span
	Access     AccessModifier
	Name       string
	Context    string
	Operands   []*OperandDef
	ReturnType TypeSpecifier
	Expression Expression
	External   bool
	Fluent     bool
}

func (*FunctionDef) statementNode() {}
