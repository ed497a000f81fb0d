package ast

// AliasedSource is one query source: `[Condition: "Diabetes"] C`.
type AliasedSource struct {
	span
	Alias  string
	Source Expression
}

// LetClause binds a name within the query scope.
type LetClause struct {
	span
	Name       string
	Expression Expression
}

// RelationshipKind is `with` (semijoin) or `without` (antijoin).
type RelationshipKind int

const (
	RelationshipWith RelationshipKind = iota
	RelationshipWithout
)

// RelationshipClause is `with E such that cond`.
type RelationshipClause struct {
	span
	Kind     RelationshipKind
	Alias    string
	Source   Expression
	SuchThat Expression
}

// SortDirection orders a sort clause item.
type SortDirection int

const (
	SortAscending SortDirection = iota
	SortDescending
)

// SortItem is one sort key; a nil Expression sorts by the element
// itself (`sort asc`).
type SortItem struct {
	span
	Expression Expression
	Direction  SortDirection
}

// SortClause is `sort by key desc, other asc`.
type SortClause struct {
	span
	Items []*SortItem
}

// ReturnClause is `return [all|distinct] expr`.
type ReturnClause struct {
	span
	Expression Expression
	// All suppresses the default distinct behavior.
	All bool
}

// AggregateClause is `aggregate [all|distinct] R starting expr: body`.
type AggregateClause struct {
	span
	Identifier string
	Starting   Expression
	Expression Expression
	Distinct   bool
}

// Query is the SQL-like from/let/where/return/sort construct.
type Query struct {
	span
	Sources       []*AliasedSource
	Lets          []*LetClause
	Relationships []*RelationshipClause
	Where         Expression
	Return        *ReturnClause
	Aggregate     *AggregateClause
	Sort          *SortClause
}

func (*Query) expressionNode() {}
