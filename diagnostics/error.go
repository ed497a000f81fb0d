package diagnostics

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error by the layer it originated from.
type Kind int

const (
	KindParse Kind = iota
	KindSemantic
	KindEvaluation
	KindResolution
	KindIO
	KindResource
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse error"
	case KindSemantic:
		return "semantic error"
	case KindEvaluation:
		return "evaluation error"
	case KindResolution:
		return "resolution error"
	case KindIO:
		return "io error"
	case KindResource:
		return "resource error"
	default:
		return "error"
	}
}

// Code identifies the specific failure within a kind.
type Code string

const (
	CodeSyntax                Code = "syntax"
	CodeUnresolvedIdentifier  Code = "unresolved-identifier"
	CodeTypeMismatch          Code = "type-mismatch"
	CodeUnsupportedOperator   Code = "unsupported-operator"
	CodeAmbiguousOverload     Code = "ambiguous-overload"
	CodeNotRetrievable        Code = "not-retrievable"
	CodeDuplicateDefinition   Code = "duplicate-definition"
	CodeTimePrecisionOverflow Code = "time-precision-overflow"
	CodeOverflow              Code = "overflow"
	CodeInvalidArgument       Code = "invalid-argument"
	CodeInvalidUnit           Code = "invalid-unit"
	CodeLibraryNotFound       Code = "library-not-found"
	CodeCyclicInclude         Code = "cyclic-include"
	CodeVersionMismatch       Code = "version-mismatch"
	CodeMalformedModelInfo    Code = "malformed-modelinfo"
	CodeCancelled             Code = "cancelled"
	CodeResourceExhausted     Code = "resource-exhausted"
)

// Error is the structured error surfaced by every layer of the engine.
// Span is nil when no source position applies (e.g. resolution errors for
// libraries that never parsed).
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	Library string
	Span    *Span
	Cause   error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Library != "" {
		b.WriteString(e.Library)
		b.WriteString(": ")
	}
	if e.Span != nil {
		fmt.Fprintf(&b, "%s: ", e.Span)
	}
	b.WriteString(e.Kind.String())
	b.WriteString(": ")
	b.WriteString(e.Message)
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New constructs an Error without a span.
func New(kind Kind, code Code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// NewSpanned constructs an Error pointing at a source region.
func NewSpanned(kind Kind, code Code, span Span, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Span: &span, Message: fmt.Sprintf(format, args...)}
}

// WithLibrary returns a copy of e attributed to the named library.
func (e *Error) WithLibrary(name string) *Error {
	out := *e
	out.Library = name
	return &out
}

// IsCode reports whether err is a diagnostics.Error carrying the given code.
func IsCode(err error, code Code) bool {
	var de *Error
	return errors.As(err, &de) && de.Code == code
}

// KindOf returns the kind of err if it is a diagnostics.Error,
// KindEvaluation otherwise.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindEvaluation
}

// List accumulates several errors, e.g. multiple parse errors per file.
type List []*Error

func (l List) Err() error {
	if len(l) == 0 {
		return nil
	}
	errs := make([]error, len(l))
	for i, e := range l {
		errs[i] = e
	}
	return errors.Join(errs...)
}

func (l *List) Append(e *Error) {
	*l = append(*l, e)
}
