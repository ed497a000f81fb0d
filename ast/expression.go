package ast

// Expression is implemented by every expression node.
type Expression interface {
	Node
	expressionNode()
}

// LiteralKind discriminates literal expressions.
type LiteralKind int

const (
	LiteralNull LiteralKind = iota
	LiteralBoolean
	LiteralInteger
	LiteralLong
	LiteralDecimal
	LiteralString
	LiteralDate
	LiteralDateTime
	LiteralTime
)

// Literal is a literal of any primitive kind; Text is the raw token
// text (without quotes for strings, with `@` for temporals).
type Literal struct {
	span
	Kind LiteralKind
	Text string
}

func (*Literal) expressionNode() {}

// QuantityLiteral is `5 'mg'` or `5 days`.
type QuantityLiteral struct {
	span
	Value string
	Unit  string
}

func (*QuantityLiteral) expressionNode() {}

// RatioLiteral is `1:128` over two quantities.
type RatioLiteral struct {
	span
	Numerator   *QuantityLiteral
	Denominator *QuantityLiteral
}

func (*RatioLiteral) expressionNode() {}

// IdentifierRef is an unqualified name reference.
type IdentifierRef struct {
	span
	Name string
}

func (*IdentifierRef) expressionNode() {}

// PropertyAccess is `source.name`. When Source is nil the access is
// against the current context item ($this in a query scope).
type PropertyAccess struct {
	span
	Source Expression
	Name   string
}

func (*PropertyAccess) expressionNode() {}

// Indexer is `source[index]`.
type Indexer struct {
	span
	Source Expression
	Index  Expression
}

func (*Indexer) expressionNode() {}

// FunctionCall is `name(args)` or `qualifier.name(args)`. Fluent marks
// `expr.name(args)` invocations whose receiver was prepended to Args.
type FunctionCall struct {
	span
	Qualifier string
	Name      string
	Args      []Expression
	Fluent    bool
}

func (*FunctionCall) expressionNode() {}

// UnaryOp names a prefix or postfix unary operator.
type UnaryOp string

const (
	UnaryNot         UnaryOp = "not"
	UnaryNegate      UnaryOp = "-"
	UnaryPlus        UnaryOp = "+"
	UnaryExists      UnaryOp = "exists"
	UnaryDistinct    UnaryOp = "distinct"
	UnaryFlatten     UnaryOp = "flatten"
	UnarySingleton   UnaryOp = "singleton from"
	UnaryStart       UnaryOp = "start of"
	UnaryEnd         UnaryOp = "end of"
	UnaryWidth       UnaryOp = "width of"
	UnaryPointFrom   UnaryOp = "point from"
	UnaryPredecessor UnaryOp = "predecessor of"
	UnarySuccessor   UnaryOp = "successor of"
	UnaryIsNull      UnaryOp = "is null"
	UnaryIsNotNull   UnaryOp = "is not null"
	UnaryIsTrue      UnaryOp = "is true"
	UnaryIsFalse     UnaryOp = "is false"
	UnaryCollapse    UnaryOp = "collapse"
)

// UnaryExpr applies a unary operator.
type UnaryExpr struct {
	span
	Op      UnaryOp
	Operand Expression
}

func (*UnaryExpr) expressionNode() {}

// BinaryOp names a binary operator or timing phrase.
type BinaryOp string

const (
	BinaryOr                 BinaryOp = "or"
	BinaryAnd                BinaryOp = "and"
	BinaryXor                BinaryOp = "xor"
	BinaryImplies            BinaryOp = "implies"
	BinaryEqual              BinaryOp = "="
	BinaryNotEqual           BinaryOp = "!="
	BinaryEquivalent         BinaryOp = "~"
	BinaryNotEquivalent      BinaryOp = "!~"
	BinaryLess               BinaryOp = "<"
	BinaryLessOrEqual        BinaryOp = "<="
	BinaryGreater            BinaryOp = ">"
	BinaryGreaterOrEqual     BinaryOp = ">="
	BinaryAdd                BinaryOp = "+"
	BinarySubtract           BinaryOp = "-"
	BinaryMultiply           BinaryOp = "*"
	BinaryDivide             BinaryOp = "/"
	BinaryTruncatedDivide    BinaryOp = "div"
	BinaryModulo             BinaryOp = "mod"
	BinaryPower              BinaryOp = "^"
	BinaryConcatenate        BinaryOp = "&"
	BinaryIn                 BinaryOp = "in"
	BinaryContains           BinaryOp = "contains"
	BinaryUnion              BinaryOp = "union"
	BinaryIntersect          BinaryOp = "intersect"
	BinaryExcept             BinaryOp = "except"
	BinaryIncludes           BinaryOp = "includes"
	BinaryIncludedIn         BinaryOp = "included in"
	BinaryProperlyIncludes   BinaryOp = "properly includes"
	BinaryProperlyIncludedIn BinaryOp = "properly included in"
	BinaryDuring             BinaryOp = "during"
	BinaryBefore             BinaryOp = "before"
	BinaryAfter              BinaryOp = "after"
	BinaryMeets              BinaryOp = "meets"
	BinaryMeetsBefore        BinaryOp = "meets before"
	BinaryMeetsAfter         BinaryOp = "meets after"
	BinaryOverlaps           BinaryOp = "overlaps"
	BinaryOverlapsBefore     BinaryOp = "overlaps before"
	BinaryOverlapsAfter      BinaryOp = "overlaps after"
	BinaryStarts             BinaryOp = "starts"
	BinaryEnds               BinaryOp = "ends"
	BinarySameAs             BinaryOp = "same as"
	BinarySameOrBefore       BinaryOp = "same or before"
	BinarySameOrAfter        BinaryOp = "same or after"
)

// BinaryExpr applies a binary operator. Precision qualifies timing
// phrases ("same year as", "before day of").
type BinaryExpr struct {
	span
	Op        BinaryOp
	Precision string
	Left      Expression
	Right     Expression
}

func (*BinaryExpr) expressionNode() {}

// IfExpr is `if cond then a else b`.
type IfExpr struct {
	span
	Condition Expression
	Then      Expression
	Else      Expression
}

func (*IfExpr) expressionNode() {}

// CaseItem is one `when ... then ...` arm.
type CaseItem struct {
	span
	When Expression
	Then Expression
}

// CaseExpr is a case with optional comparand.
type CaseExpr struct {
	span
	Comparand Expression
	Items     []*CaseItem
	Else      Expression
}

func (*CaseExpr) expressionNode() {}

// IntervalSelector is `Interval[low, high)`.
type IntervalSelector struct {
	span
	Low        Expression
	High       Expression
	LowClosed  bool
	HighClosed bool
}

func (*IntervalSelector) expressionNode() {}

// ListSelector is `{a, b, c}` with an optional element type.
type ListSelector struct {
	span
	ElementType TypeSpecifier
	Elements    []Expression
}

func (*ListSelector) expressionNode() {}

// TupleSelectorElement is one `name: value` pair.
type TupleSelectorElement struct {
	span
	Name  string
	Value Expression
}

// TupleSelector is `Tuple { name: value, ... }`.
type TupleSelector struct {
	span
	Elements []*TupleSelectorElement
}

func (*TupleSelector) expressionNode() {}

// InstanceSelector is `Code { code: '...', system: '...' }`.
type InstanceSelector struct {
	span
	Type     QualifiedIdentifier
	Elements []*TupleSelectorElement
}

func (*InstanceSelector) expressionNode() {}

// TypeOp names a type operation.
type TypeOp string

const (
	TypeOpIs      TypeOp = "is"
	TypeOpAs      TypeOp = "as"
	TypeOpCast    TypeOp = "cast as"
	TypeOpConvert TypeOp = "convert"
)

// TypeExpr applies a type operation to an operand.
type TypeExpr struct {
	span
	Op      TypeOp
	Operand Expression
	Type    TypeSpecifier
	// Unit is set for `convert X to 'mg'`.
	Unit string
}

func (*TypeExpr) expressionNode() {}

// Retrieve is `[Condition: "Diabetes"]` or `[Condition: code in "VS"]`.
type Retrieve struct {
	span
	DataType    QualifiedIdentifier
	CodePath    string
	Terminology Expression
}

func (*Retrieve) expressionNode() {}

// ComponentExpr extracts a date/time component: `year from X`.
type ComponentExpr struct {
	span
	// Component is a precision name, "date", "time" or "timezoneoffset".
	Component string
	Operand   Expression
}

func (*ComponentExpr) expressionNode() {}

// DurationExpr is `duration in years between a and b` or
// `difference in years between a and b`.
type DurationExpr struct {
	span
	IsDifference bool
	Precision    string
	Low          Expression
	High         Expression
}

func (*DurationExpr) expressionNode() {}

// CodeSelector is `Code 'code' from CodeSystemName display '...'`.
type CodeSelector struct {
	span
	Code       string
	CodeSystem string
	Display    string
}

func (*CodeSelector) expressionNode() {}

// ConceptSelector is `Concept { Code ..., Code ... } display '...'`.
type ConceptSelector struct {
	span
	Codes   []*CodeSelector
	Display string
}

func (*ConceptSelector) expressionNode() {}

// MinMaxExpr is `minimum T` or `maximum T`.
type MinMaxExpr struct {
	span
	Maximum bool
	Type    TypeSpecifier
}

func (*MinMaxExpr) expressionNode() {}
