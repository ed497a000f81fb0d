package elm

// Literal carries a primitive value as its canonical string form, typed
// by the System type URI.
type Literal struct {
	node
	ValueType string `json:"valueType"`
	Value     string `json:"value,omitempty"`
}

// Null is the typed null literal.
type Null struct {
	node
	ValueType string `json:"valueType,omitempty"`
}

// Quantity is a quantity literal.
type Quantity struct {
	node
	Value string `json:"value"`
	Unit  string `json:"unit,omitempty"`
}

// Ratio is a ratio literal.
type Ratio struct {
	node
	Numerator   *Quantity `json:"numerator"`
	Denominator *Quantity `json:"denominator"`
}

// Code builds a System.Code from a code system reference.
type Code struct {
	node
	Code    string         `json:"code"`
	Display string         `json:"display,omitempty"`
	System  *CodeSystemRef `json:"system,omitempty"`
}

// Concept builds a System.Concept from codes.
type Concept struct {
	node
	Codes   []*Code `json:"code"`
	Display string  `json:"display,omitempty"`
}

// ExpressionRef references a named definition.
type ExpressionRef struct {
	node
	Name        string `json:"name"`
	LibraryName string `json:"libraryName,omitempty"`
}

// FunctionRef invokes a user-defined function.
type FunctionRef struct {
	node
	Name        string `json:"name"`
	LibraryName string `json:"libraryName,omitempty"`
	Operands    []Expr `json:"operand,omitzero"`
}

// ParameterRef references a parameter binding.
type ParameterRef struct {
	node
	Name        string `json:"name"`
	LibraryName string `json:"libraryName,omitempty"`
}

// OperandRef references a function operand in scope.
type OperandRef struct {
	node
	Name string `json:"name"`
}

// AliasRef references a query source alias in scope.
type AliasRef struct {
	node
	Name string `json:"name"`
}

// QueryLetRef references a query let binding in scope.
type QueryLetRef struct {
	node
	Name string `json:"name"`
}

// ValueSetRef references a valueset definition.
type ValueSetRef struct {
	node
	Name        string `json:"name"`
	LibraryName string `json:"libraryName,omitempty"`
}

// CodeSystemRef references a codesystem definition.
type CodeSystemRef struct {
	node
	Name        string `json:"name"`
	LibraryName string `json:"libraryName,omitempty"`
}

// CodeRef references a code definition.
type CodeRef struct {
	node
	Name        string `json:"name"`
	LibraryName string `json:"libraryName,omitempty"`
}

// ConceptRef references a concept definition.
type ConceptRef struct {
	node
	Name        string `json:"name"`
	LibraryName string `json:"libraryName,omitempty"`
}

// IdentifierRef is an unresolved identifier; the translator only emits
// it inside sort clauses where resolution is per-element.
type IdentifierRef struct {
	node
	Name string `json:"name"`
}

// Property accesses a property of its source, or of the named scope
// alias when Scope is set.
type Property struct {
	node
	Source Expr   `json:"source,omitzero"`
	Scope  string `json:"scope,omitempty"`
	Path   string `json:"path"`
}

// UnaryExpression is embedded by all single-operand operators.
type UnaryExpression struct {
	node
	Operand Expr `json:"operand"`
}

// BinaryExpression is embedded by all two-operand operators. Precision
// qualifies temporal comparisons.
type BinaryExpression struct {
	node
	Operands  []Expr `json:"operand"`
	Precision string `json:"precision,omitempty"`
}

// Unary operators.
type (
	Not           struct{ UnaryExpression }
	Exists        struct{ UnaryExpression }
	Negate        struct{ UnaryExpression }
	IsNull        struct{ UnaryExpression }
	IsTrue        struct{ UnaryExpression }
	IsFalse       struct{ UnaryExpression }
	SingletonFrom struct{ UnaryExpression }
	Distinct      struct{ UnaryExpression }
	Flatten       struct{ UnaryExpression }
	Collapse      struct{ UnaryExpression }
	Start         struct{ UnaryExpression }
	End           struct{ UnaryExpression }
	Width         struct{ UnaryExpression }
	PointFrom     struct{ UnaryExpression }
	Predecessor   struct{ UnaryExpression }
	Successor     struct{ UnaryExpression }
	Truncate      struct{ UnaryExpression }
	Abs           struct{ UnaryExpression }
	DateFrom      struct{ UnaryExpression }
	TimeFrom      struct{ UnaryExpression }
	ToBoolean     struct{ UnaryExpression }
	ToConcept     struct{ UnaryExpression }
	ToDate        struct{ UnaryExpression }
	ToDateTime    struct{ UnaryExpression }
	ToDecimal     struct{ UnaryExpression }
	ToInteger     struct{ UnaryExpression }
	ToLong        struct{ UnaryExpression }
	ToQuantity    struct{ UnaryExpression }
	ToString      struct{ UnaryExpression }
	ToTime        struct{ UnaryExpression }
	ToList        struct{ UnaryExpression }
)

// Binary operators.
type (
	Add               struct{ BinaryExpression }
	Subtract          struct{ BinaryExpression }
	Multiply          struct{ BinaryExpression }
	Divide            struct{ BinaryExpression }
	TruncatedDivide   struct{ BinaryExpression }
	Modulo            struct{ BinaryExpression }
	Power             struct{ BinaryExpression }
	And               struct{ BinaryExpression }
	Or                struct{ BinaryExpression }
	Xor               struct{ BinaryExpression }
	Implies           struct{ BinaryExpression }
	Equal             struct{ BinaryExpression }
	NotEqual          struct{ BinaryExpression }
	Equivalent        struct{ BinaryExpression }
	Less              struct{ BinaryExpression }
	LessOrEqual       struct{ BinaryExpression }
	Greater           struct{ BinaryExpression }
	GreaterOrEqual    struct{ BinaryExpression }
	Concatenate       struct{ BinaryExpression }
	In                struct{ BinaryExpression }
	Contains          struct{ BinaryExpression }
	Includes          struct{ BinaryExpression }
	IncludedIn        struct{ BinaryExpression }
	ProperIncludes    struct{ BinaryExpression }
	ProperIncludedIn  struct{ BinaryExpression }
	Before            struct{ BinaryExpression }
	After             struct{ BinaryExpression }
	Meets             struct{ BinaryExpression }
	MeetsBefore       struct{ BinaryExpression }
	MeetsAfter        struct{ BinaryExpression }
	Overlaps          struct{ BinaryExpression }
	OverlapsBefore    struct{ BinaryExpression }
	OverlapsAfter     struct{ BinaryExpression }
	Starts            struct{ BinaryExpression }
	Ends              struct{ BinaryExpression }
	SameAs            struct{ BinaryExpression }
	SameOrBefore      struct{ BinaryExpression }
	SameOrAfter       struct{ BinaryExpression }
	Union             struct{ BinaryExpression }
	Intersect         struct{ BinaryExpression }
	Except            struct{ BinaryExpression }
	Indexer           struct{ BinaryExpression }
	DurationBetween   struct{ BinaryExpression }
	DifferenceBetween struct{ BinaryExpression }
)

// DateTimeComponentFrom extracts a component at the given precision.
type DateTimeComponentFrom struct {
	UnaryExpression
	Precision string `json:"precision"`
}

// If is the conditional expression.
type If struct {
	node
	Condition Expr `json:"condition"`
	Then      Expr `json:"then"`
	Else      Expr `json:"else"`
}

// CaseItem is one arm of a Case.
type CaseItem struct {
	When Expr `json:"when"`
	Then Expr `json:"then"`
}

// Case is the multi-arm conditional, with optional comparand.
type Case struct {
	node
	Comparand Expr       `json:"comparand,omitzero"`
	Items     []CaseItem `json:"caseItem"`
	Else      Expr       `json:"else"`
}

// Interval constructs an interval value.
type Interval struct {
	node
	Low        Expr `json:"low,omitzero"`
	High       Expr `json:"high,omitzero"`
	LowClosed  bool `json:"lowClosed"`
	HighClosed bool `json:"highClosed"`
}

// List constructs a list value.
type List struct {
	node
	TypeSpecifier TypeSpec `json:"typeSpecifier,omitzero"`
	Elements      []Expr   `json:"element,omitzero"`
}

// TupleElement is one named element of a Tuple.
type TupleElement struct {
	Name  string `json:"name"`
	Value Expr   `json:"value"`
}

// Tuple constructs a tuple value.
type Tuple struct {
	node
	Elements []TupleElement `json:"element,omitempty"`
}

// InstanceElement is one element of an Instance.
type InstanceElement struct {
	Name  string `json:"name"`
	Value Expr   `json:"value"`
}

// Instance constructs a model type instance.
type Instance struct {
	node
	ClassType string            `json:"classType"`
	Elements  []InstanceElement `json:"element,omitempty"`
}

// Is tests the runtime type of its operand.
type Is struct {
	UnaryExpression
	IsType TypeSpec `json:"isTypeSpecifier"`
}

// As casts the operand, yielding null when the cast fails unless Strict.
type As struct {
	UnaryExpression
	AsType TypeSpec `json:"asTypeSpecifier"`
	Strict bool     `json:"strict,omitempty"`
}

// ConvertQuantity converts a quantity to another unit.
type ConvertQuantity struct {
	UnaryExpression
	Unit string `json:"unit"`
}

// MinValue and MaxValue produce the extreme value of a type.
type MinValue struct {
	node
	ValueType string `json:"valueType"`
}

type MaxValue struct {
	node
	ValueType string `json:"valueType"`
}

// Today, Now and TimeOfDay read the evaluation timestamp.
type (
	Today     struct{ node }
	Now       struct{ node }
	TimeOfDay struct{ node }
)

// AggregateExpression is embedded by aggregate operators over a source
// list.
type AggregateExpression struct {
	node
	Source Expr   `json:"source"`
	Path   string `json:"path,omitempty"`
}

type (
	Count   struct{ AggregateExpression }
	Sum     struct{ AggregateExpression }
	Min     struct{ AggregateExpression }
	Max     struct{ AggregateExpression }
	Avg     struct{ AggregateExpression }
	Median  struct{ AggregateExpression }
	StdDev  struct{ AggregateExpression }
	AllTrue struct{ AggregateExpression }
	AnyTrue struct{ AggregateExpression }
)

// Retrieve fetches resources from the data provider.
type Retrieve struct {
	node
	DataType     string `json:"dataType"`
	TemplateID   string `json:"templateId,omitempty"`
	CodeProperty string `json:"codeProperty,omitempty"`
	Codes        Expr   `json:"codes,omitzero"`
	DateProperty string `json:"dateProperty,omitempty"`
	DateRange    Expr   `json:"dateRange,omitzero"`
	Context      string `json:"context,omitempty"`
}

// AliasedQuerySource is one source of a Query.
type AliasedQuerySource struct {
	Alias      string `json:"alias"`
	Expression Expr   `json:"expression"`
}

// LetClause binds a name in a Query scope.
type LetClause struct {
	Identifier string `json:"identifier"`
	Expression Expr   `json:"expression"`
}

// RelationshipClause is a with/without semijoin.
type RelationshipClause struct {
	Type       string `json:"type"` // "With" or "Without"
	Alias      string `json:"alias"`
	Expression Expr   `json:"expression"`
	SuchThat   Expr   `json:"suchThat"`
}

// SortByItem is one sort key.
type SortByItem struct {
	Type      string `json:"type"` // "ByExpression", "ByDirection", "ByColumn"
	Direction string `json:"direction"`
	Expr      Expr   `json:"expression,omitzero"`
	Path      string `json:"path,omitempty"`
}

// SortClause orders query output.
type SortClause struct {
	Items []SortByItem `json:"by"`
}

// ReturnClause shapes query output.
type ReturnClause struct {
	Expression Expr `json:"expression"`
	Distinct   bool `json:"distinct"`
}

// AggregateClause folds query output into a single value.
type AggregateClause struct {
	Identifier string `json:"identifier"`
	Expression Expr   `json:"expression"`
	Starting   Expr   `json:"starting,omitzero"`
	Distinct   bool   `json:"distinct,omitempty"`
}

// Query is the from/let/where/return/sort node.
type Query struct {
	node
	Sources       []AliasedQuerySource `json:"source"`
	Lets          []LetClause          `json:"let,omitempty"`
	Relationships []RelationshipClause `json:"relationship,omitempty"`
	Where         Expr                 `json:"where,omitzero"`
	Return        *ReturnClause        `json:"return,omitempty"`
	Aggregate     *AggregateClause     `json:"aggregate,omitempty"`
	Sort          *SortClause          `json:"sort,omitempty"`
}

// NaryExpression is embedded by variable-arity operators.
type NaryExpression struct {
	node
	Operands []Expr `json:"operand,omitzero"`
}

// Coalesce yields its first non-null operand.
type Coalesce struct{ NaryExpression }

// First and Last select from the ends of a list.
type First struct {
	node
	Source Expr `json:"source"`
}

type Last struct {
	node
	Source Expr `json:"source"`
}

// Length is the element count of a list or the character count of a
// string.
type Length struct{ UnaryExpression }

// Round rounds a decimal to the given precision (default 0).
type Round struct {
	node
	Operand   Expr `json:"operand"`
	Precision Expr `json:"precision,omitzero"`
}
