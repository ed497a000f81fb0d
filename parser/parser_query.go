package parser

import (
	"github.com/DAMEDIC/cql-engine-go/ast"
)

// maybeQuery turns `source Alias ...clauses` into a single-source query
// when the expression is followed by a non-reserved identifier.
func (p *parser) maybeQuery(source ast.Expression) ast.Expression {
	if p.suppressAlias {
		return source
	}
	t := p.cur()
	if t.Kind != TokenIdentifier && t.Kind != TokenQuotedIdentifier {
		return source
	}
	if t.Kind == TokenIdentifier && reservedWords[t.Text] {
		return source
	}
	p.advance()
	aliased := &ast.AliasedSource{Alias: t.Text, Source: source}
	aliased.Loc = source.Span().Extend(t.Span)
	return p.parseQueryTail([]*ast.AliasedSource{aliased})
}

// parseFromQuery parses the multi-source `from A X, B Y ...` form.
func (p *parser) parseFromQuery() ast.Expression {
	p.expectWord("from")
	var sources []*ast.AliasedSource
	for {
		source := p.parseSourceTerm()
		alias := p.expectIdentifier("source alias")
		aliased := &ast.AliasedSource{Alias: alias, Source: source}
		aliased.Loc = source.Span().Extend(p.prev().Span)
		sources = append(sources, aliased)
		if !p.acceptSymbol(",") {
			break
		}
	}
	return p.parseQueryTail(sources)
}

func (p *parser) parseQueryTail(sources []*ast.AliasedSource) ast.Expression {
	q := &ast.Query{Sources: sources}
	start := sources[0].Span()

	for p.atWord("let") {
		p.advance()
		for {
			letStart := p.cur()
			name := p.expectIdentifier("let binding name")
			p.expectSymbol(":")
			value := p.parseExpression()
			let := &ast.LetClause{Name: name, Expression: value}
			let.Loc = letStart.Span.Extend(value.Span())
			q.Lets = append(q.Lets, let)
			if !p.acceptSymbol(",") {
				break
			}
		}
	}

	for p.atWord("with") || p.atWord("without") {
		relStart := p.cur()
		kind := ast.RelationshipWith
		if p.cur().Text == "without" {
			kind = ast.RelationshipWithout
		}
		p.advance()
		source := p.parseSourceTerm()
		alias := p.expectIdentifier("relationship alias")
		p.expectWord("such")
		p.expectWord("that")
		suchThat := p.parseExpression()
		rel := &ast.RelationshipClause{Kind: kind, Alias: alias, Source: source, SuchThat: suchThat}
		rel.Loc = relStart.Span.Extend(suchThat.Span())
		q.Relationships = append(q.Relationships, rel)
	}

	if p.acceptWord("where") {
		q.Where = p.parseExpression()
	}

	if p.atWord("return") {
		retStart := p.cur()
		p.advance()
		ret := &ast.ReturnClause{}
		if p.acceptWord("all") {
			ret.All = true
		} else {
			p.acceptWord("distinct")
		}
		ret.Expression = p.parseExpression()
		ret.Loc = retStart.Span.Extend(ret.Expression.Span())
		q.Return = ret
	}

	if p.atWord("aggregate") {
		aggStart := p.cur()
		p.advance()
		agg := &ast.AggregateClause{Distinct: true}
		if p.acceptWord("all") {
			agg.Distinct = false
		} else {
			p.acceptWord("distinct")
		}
		agg.Identifier = p.expectIdentifier("aggregate result name")
		if p.acceptWord("starting") {
			agg.Starting = p.parseUnaryTerm()
		}
		p.expectSymbol(":")
		agg.Expression = p.parseExpression()
		agg.Loc = aggStart.Span.Extend(agg.Expression.Span())
		q.Aggregate = agg
	}

	if p.atWord("sort") {
		sortStart := p.cur()
		p.advance()
		sort := &ast.SortClause{}
		if p.acceptWord("by") {
			for {
				itemStart := p.cur()
				item := &ast.SortItem{}
				item.Expression = p.parseExpression()
				item.Direction = p.acceptSortDirection()
				item.Loc = itemStart.Span.Extend(p.prev().Span)
				sort.Items = append(sort.Items, item)
				if !p.acceptSymbol(",") {
					break
				}
			}
		} else {
			item := &ast.SortItem{Direction: p.acceptSortDirection()}
			item.Loc = p.prev().Span
			sort.Items = append(sort.Items, item)
		}
		sort.Loc = sortStart.Span.Extend(p.prev().Span)
		q.Sort = sort
	}

	q.Loc = start.Extend(p.prev().Span)
	return q
}

// parseSourceTerm parses a query source, leaving the trailing alias
// for the caller.
func (p *parser) parseSourceTerm() ast.Expression {
	p.suppressAlias = true
	source := p.parseUnaryTerm()
	p.suppressAlias = false
	return source
}

func (p *parser) acceptSortDirection() ast.SortDirection {
	switch {
	case p.acceptWord("desc"), p.acceptWord("descending"):
		return ast.SortDescending
	case p.acceptWord("asc"), p.acceptWord("ascending"):
		return ast.SortAscending
	default:
		return ast.SortAscending
	}
}
