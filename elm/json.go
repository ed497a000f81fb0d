package elm

import (
	"bytes"
	"encoding/json"
	"fmt"
)

func (n *node) TypeName() string { return n.Type }

// Expr wraps an Expression for polymorphic JSON encoding; the concrete
// node is selected by the "type" discriminator on decode.
type Expr struct {
	Expression
}

// E wraps an expression node.
func E(e Expression) Expr { return Expr{Expression: e} }

// IsZero lets omitzero drop absent expressions.
func (e Expr) IsZero() bool { return e.Expression == nil }

func (e Expr) MarshalJSON() ([]byte, error) {
	if e.Expression == nil {
		return []byte("null"), nil
	}
	return json.Marshal(e.Expression)
}

func (e *Expr) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		e.Expression = nil
		return nil
	}
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	expr, err := NewExpression(probe.Type)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, expr); err != nil {
		return err
	}
	e.Expression = expr
	return nil
}

// IsZero lets omitzero drop absent type specifiers.
func (t TypeSpec) IsZero() bool { return t.TypeSpecifier == nil }

var expressionFactories = map[string]func() Expression{}

func register[T any, PT interface {
	*T
	Expression
}](name string) {
	expressionFactories[name] = func() Expression {
		e := PT(new(T))
		setNodeType(e, name)
		return e
	}
}

type typeSettable interface {
	setType(string)
}

func (n *node) setType(name string) { n.Type = name }

func setNodeType(e Expression, name string) {
	if s, ok := e.(typeSettable); ok {
		s.setType(name)
	}
}

// NewExpression instantiates the named ELM node with its discriminator
// set.
func NewExpression(name string) (Expression, error) {
	factory, ok := expressionFactories[name]
	if !ok {
		return nil, fmt.Errorf("unknown ELM expression type %q", name)
	}
	return factory(), nil
}

func init() {
	register[Literal, *Literal]("Literal")
	register[Null, *Null]("Null")
	register[Quantity, *Quantity]("Quantity")
	register[Ratio, *Ratio]("Ratio")
	register[Code, *Code]("Code")
	register[Concept, *Concept]("Concept")
	register[ExpressionRef, *ExpressionRef]("ExpressionRef")
	register[FunctionRef, *FunctionRef]("FunctionRef")
	register[ParameterRef, *ParameterRef]("ParameterRef")
	register[OperandRef, *OperandRef]("OperandRef")
	register[AliasRef, *AliasRef]("AliasRef")
	register[QueryLetRef, *QueryLetRef]("QueryLetRef")
	register[ValueSetRef, *ValueSetRef]("ValueSetRef")
	register[CodeSystemRef, *CodeSystemRef]("CodeSystemRef")
	register[CodeRef, *CodeRef]("CodeRef")
	register[ConceptRef, *ConceptRef]("ConceptRef")
	register[IdentifierRef, *IdentifierRef]("IdentifierRef")
	register[Property, *Property]("Property")

	register[Not, *Not]("Not")
	register[Exists, *Exists]("Exists")
	register[Negate, *Negate]("Negate")
	register[IsNull, *IsNull]("IsNull")
	register[IsTrue, *IsTrue]("IsTrue")
	register[IsFalse, *IsFalse]("IsFalse")
	register[SingletonFrom, *SingletonFrom]("SingletonFrom")
	register[Distinct, *Distinct]("Distinct")
	register[Flatten, *Flatten]("Flatten")
	register[Collapse, *Collapse]("Collapse")
	register[Start, *Start]("Start")
	register[End, *End]("End")
	register[Width, *Width]("Width")
	register[PointFrom, *PointFrom]("PointFrom")
	register[Predecessor, *Predecessor]("Predecessor")
	register[Successor, *Successor]("Successor")
	register[Truncate, *Truncate]("Truncate")
	register[Abs, *Abs]("Abs")
	register[DateFrom, *DateFrom]("DateFrom")
	register[TimeFrom, *TimeFrom]("TimeFrom")
	register[ToBoolean, *ToBoolean]("ToBoolean")
	register[ToConcept, *ToConcept]("ToConcept")
	register[ToDate, *ToDate]("ToDate")
	register[ToDateTime, *ToDateTime]("ToDateTime")
	register[ToDecimal, *ToDecimal]("ToDecimal")
	register[ToInteger, *ToInteger]("ToInteger")
	register[ToLong, *ToLong]("ToLong")
	register[ToQuantity, *ToQuantity]("ToQuantity")
	register[ToString, *ToString]("ToString")
	register[ToTime, *ToTime]("ToTime")
	register[ToList, *ToList]("ToList")

	register[Add, *Add]("Add")
	register[Subtract, *Subtract]("Subtract")
	register[Multiply, *Multiply]("Multiply")
	register[Divide, *Divide]("Divide")
	register[TruncatedDivide, *TruncatedDivide]("TruncatedDivide")
	register[Modulo, *Modulo]("Modulo")
	register[Power, *Power]("Power")
	register[And, *And]("And")
	register[Or, *Or]("Or")
	register[Xor, *Xor]("Xor")
	register[Implies, *Implies]("Implies")
	register[Equal, *Equal]("Equal")
	register[NotEqual, *NotEqual]("NotEqual")
	register[Equivalent, *Equivalent]("Equivalent")
	register[Less, *Less]("Less")
	register[LessOrEqual, *LessOrEqual]("LessOrEqual")
	register[Greater, *Greater]("Greater")
	register[GreaterOrEqual, *GreaterOrEqual]("GreaterOrEqual")
	register[Concatenate, *Concatenate]("Concatenate")
	register[In, *In]("In")
	register[Contains, *Contains]("Contains")
	register[Includes, *Includes]("Includes")
	register[IncludedIn, *IncludedIn]("IncludedIn")
	register[ProperIncludes, *ProperIncludes]("ProperIncludes")
	register[ProperIncludedIn, *ProperIncludedIn]("ProperIncludedIn")
	register[Before, *Before]("Before")
	register[After, *After]("After")
	register[Meets, *Meets]("Meets")
	register[MeetsBefore, *MeetsBefore]("MeetsBefore")
	register[MeetsAfter, *MeetsAfter]("MeetsAfter")
	register[Overlaps, *Overlaps]("Overlaps")
	register[OverlapsBefore, *OverlapsBefore]("OverlapsBefore")
	register[OverlapsAfter, *OverlapsAfter]("OverlapsAfter")
	register[Starts, *Starts]("Starts")
	register[Ends, *Ends]("Ends")
	register[SameAs, *SameAs]("SameAs")
	register[SameOrBefore, *SameOrBefore]("SameOrBefore")
	register[SameOrAfter, *SameOrAfter]("SameOrAfter")
	register[Union, *Union]("Union")
	register[Intersect, *Intersect]("Intersect")
	register[Except, *Except]("Except")
	register[Indexer, *Indexer]("Indexer")
	register[DurationBetween, *DurationBetween]("DurationBetween")
	register[DifferenceBetween, *DifferenceBetween]("DifferenceBetween")
	register[DateTimeComponentFrom, *DateTimeComponentFrom]("DateTimeComponentFrom")

	register[If, *If]("If")
	register[Case, *Case]("Case")
	register[Interval, *Interval]("Interval")
	register[List, *List]("List")
	register[Tuple, *Tuple]("Tuple")
	register[Instance, *Instance]("Instance")
	register[Is, *Is]("Is")
	register[As, *As]("As")
	register[ConvertQuantity, *ConvertQuantity]("ConvertQuantity")
	register[MinValue, *MinValue]("MinValue")
	register[MaxValue, *MaxValue]("MaxValue")
	register[Today, *Today]("Today")
	register[Now, *Now]("Now")
	register[TimeOfDay, *TimeOfDay]("TimeOfDay")

	register[Count, *Count]("Count")
	register[Sum, *Sum]("Sum")
	register[Min, *Min]("Min")
	register[Max, *Max]("Max")
	register[Avg, *Avg]("Avg")
	register[Median, *Median]("Median")
	register[StdDev, *StdDev]("StdDev")
	register[AllTrue, *AllTrue]("AllTrue")
	register[AnyTrue, *AnyTrue]("AnyTrue")

	register[Coalesce, *Coalesce]("Coalesce")
	register[First, *First]("First")
	register[Last, *Last]("Last")
	register[Length, *Length]("Length")
	register[Round, *Round]("Round")

	register[Retrieve, *Retrieve]("Retrieve")
	register[Query, *Query]("Query")
}

// NewUnary builds a single-operand node by discriminator name.
func NewUnary(kind string, operand Expression) (Expression, error) {
	e, err := NewExpression(kind)
	if err != nil {
		return nil, err
	}
	u, ok := e.(interface{ unary() *UnaryExpression })
	if !ok {
		return nil, fmt.Errorf("%s is not a unary operator", kind)
	}
	u.unary().Operand = E(operand)
	return e, nil
}

// NewBinary builds a two-operand node by discriminator name.
func NewBinary(kind string, left, right Expression) (Expression, error) {
	e, err := NewExpression(kind)
	if err != nil {
		return nil, err
	}
	b, ok := e.(interface{ binary() *BinaryExpression })
	if !ok {
		return nil, fmt.Errorf("%s is not a binary operator", kind)
	}
	b.binary().Operands = []Expr{E(left), E(right)}
	return e, nil
}

func (u *UnaryExpression) unary() *UnaryExpression    { return u }
func (b *BinaryExpression) binary() *BinaryExpression { return b }

// MarshalLibrary serializes the library envelope to JSON. Key order is
// fixed by the struct definitions, so output is deterministic.
func MarshalLibrary(lib *Library, indent bool) ([]byte, error) {
	doc := Document{Library: lib}
	if indent {
		return json.MarshalIndent(doc, "", "   ")
	}
	return json.Marshal(doc)
}

// UnmarshalLibrary decodes an ELM JSON document.
func UnmarshalLibrary(data []byte) (*Library, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Library == nil {
		return nil, fmt.Errorf("ELM document has no library")
	}
	return doc.Library, nil
}

// ElementOf exposes the shared annotation fields of a node for the
// translator to fill.
func ElementOf(e Expression) *Element {
	return e.element()
}

// UnaryOperand exposes the shared operand of a unary operator node.
func (u *UnaryExpression) UnaryOperand() *UnaryExpression { return u }

// BinaryOperands exposes the shared operands of a binary operator node.
func (b *BinaryExpression) BinaryOperands() *BinaryExpression { return b }
