package parser

import (
	"github.com/DAMEDIC/cql-engine-go/ast"
)

func (p *parser) parsePrimary() ast.Expression {
	start := p.cur()

	switch start.Kind {
	case TokenNumber, TokenLongNumber:
		return p.parseNumberOrQuantity()

	case TokenString:
		p.advance()
		lit := &ast.Literal{Kind: ast.LiteralString, Text: start.Text}
		lit.Loc = start.Span
		return lit

	case TokenDate:
		p.advance()
		lit := &ast.Literal{Kind: ast.LiteralDate, Text: start.Text}
		lit.Loc = start.Span
		return lit

	case TokenDateTime:
		p.advance()
		lit := &ast.Literal{Kind: ast.LiteralDateTime, Text: start.Text}
		lit.Loc = start.Span
		return lit

	case TokenTime:
		p.advance()
		lit := &ast.Literal{Kind: ast.LiteralTime, Text: start.Text}
		lit.Loc = start.Span
		return lit
	}

	switch {
	case p.atWord("true") || p.atWord("false"):
		p.advance()
		lit := &ast.Literal{Kind: ast.LiteralBoolean, Text: start.Text}
		lit.Loc = start.Span
		return lit

	case p.atWord("null"):
		p.advance()
		lit := &ast.Literal{Kind: ast.LiteralNull, Text: "null"}
		lit.Loc = start.Span
		return lit

	case p.atWord("if"):
		return p.parseIf()

	case p.atWord("case"):
		return p.parseCase()

	case p.atWord("cast"):
		p.advance()
		operand := p.parseUnaryTerm()
		p.expectWord("as")
		e := &ast.TypeExpr{Op: ast.TypeOpCast, Operand: operand, Type: p.parseTypeSpecifier()}
		e.Loc = start.Span.Extend(p.prev().Span)
		return e

	case p.atWord("convert"):
		return p.parseConvert(start)

	case p.atWord("duration") || p.atWord("difference"):
		return p.parseDuration(start)

	case p.atWord("minimum") || p.atWord("maximum"):
		p.advance()
		e := &ast.MinMaxExpr{Maximum: start.Text == "maximum", Type: p.parseTypeSpecifier()}
		e.Loc = start.Span.Extend(p.prev().Span)
		return e

	case p.atWord("Interval") && (p.lookahead(1).Kind == TokenSymbol && (p.lookahead(1).Text == "[" || p.lookahead(1).Text == "(")):
		return p.parseIntervalSelector()

	case p.atWord("Tuple") && p.lookahead(1).Kind == TokenSymbol && p.lookahead(1).Text == "{":
		p.advance()
		return p.parseTupleSelector(start)

	case p.atWord("Code") && p.lookahead(1).Kind == TokenString:
		return p.parseCodeSelector()

	case p.atWord("Concept") && p.lookahead(1).Kind == TokenSymbol && p.lookahead(1).Text == "{":
		return p.parseConceptSelector()

	case p.atWord("List"):
		return p.parseListSelector(true)

	case p.atSymbol("{"):
		// `{ name: value }` is an anonymous tuple, `{ a, b }` a list
		if (p.lookahead(1).Kind == TokenIdentifier || p.lookahead(1).Kind == TokenQuotedIdentifier) &&
			p.lookahead(2).Kind == TokenSymbol && p.lookahead(2).Text == ":" {
			return p.parseTupleSelector(start)
		}
		return p.parseListSelector(false)

	case p.atSymbol("["):
		retrieve := p.parseRetrieve()
		return p.maybeQuery(retrieve)

	case p.atSymbol("("):
		p.advance()
		// aliasing inside parentheses is independent of the enclosing
		// source clause
		saved := p.suppressAlias
		p.suppressAlias = false
		expr := p.parseExpression()
		p.suppressAlias = saved
		p.expectSymbol(")")
		return p.maybeQuery(expr)

	case p.atWord("from"):
		return p.parseFromQuery()

	case start.Kind == TokenIdentifier && declKeywords[start.Text]:
		// a declaration keyword in expression position: report and leave
		// the token for statement-level recovery
		p.errorHere("expected expression, found `%s`", start.Text)
		lit := &ast.Literal{Kind: ast.LiteralNull, Text: "null"}
		lit.Loc = start.Span
		return lit

	case start.Kind == TokenIdentifier || start.Kind == TokenQuotedIdentifier:
		name, _ := p.identifier()
		// instance selector: TypeName { element: value, ... }
		if p.atSymbol("{") && start.Kind == TokenIdentifier &&
			(p.lookahead(1).Kind == TokenIdentifier || p.lookahead(1).Kind == TokenQuotedIdentifier) &&
			p.lookahead(2).Kind == TokenSymbol && p.lookahead(2).Text == ":" {
			return p.parseInstanceSelector(start, name)
		}
		if p.atSymbol("(") {
			args := p.parseArguments()
			call := &ast.FunctionCall{Name: name, Args: args}
			call.Loc = start.Span.Extend(p.prev().Span)
			return p.maybeQuery(call)
		}
		ref := &ast.IdentifierRef{Name: name}
		ref.Loc = start.Span
		return p.maybeQuery(ref)

	default:
		p.errorHere("expected expression, found `%s`", p.describeCur())
		p.advance()
		lit := &ast.Literal{Kind: ast.LiteralNull, Text: "null"}
		lit.Loc = start.Span
		return lit
	}
}

// parseNumberOrQuantity parses integer, long and decimal literals, and
// quantity (`5 'mg'`, `5 days`) and ratio (`1:128`) literals built on
// them.
func (p *parser) parseNumberOrQuantity() ast.Expression {
	quantity := p.parseQuantityLiteral()
	if quantity == nil {
		return p.parseBareNumber()
	}
	// ratio: quantity ':' quantity
	if p.atSymbol(":") && (p.lookahead(1).Kind == TokenNumber || p.lookahead(1).Kind == TokenLongNumber) {
		p.advance()
		den := p.parseQuantityLiteral()
		if den == nil {
			num := p.parseBareNumberToken(p.advance())
			den = &ast.QuantityLiteral{Value: num.Text, Unit: "1"}
			den.Loc = num.Loc
		}
		ratio := &ast.RatioLiteral{Numerator: quantity, Denominator: den}
		ratio.Loc = quantity.Loc.Extend(den.Loc)
		return ratio
	}
	if quantity.Unit == "1" {
		// plain number after all
		lit := p.parseBareNumberToken(Token{Kind: TokenNumber, Text: quantity.Value, Span: quantity.Loc})
		return lit
	}
	return quantity
}

// parseQuantityLiteral returns nil when the upcoming tokens are not a
// quantity; a bare number yields unit "1".
func (p *parser) parseQuantityLiteral() *ast.QuantityLiteral {
	t := p.cur()
	if t.Kind != TokenNumber && t.Kind != TokenLongNumber {
		return nil
	}
	if t.Kind == TokenLongNumber {
		return nil
	}
	next := p.lookahead(1)
	switch {
	case next.Kind == TokenString:
		p.advance()
		p.advance()
		q := &ast.QuantityLiteral{Value: t.Text, Unit: next.Text}
		q.Loc = t.Span.Extend(next.Span)
		return q
	case next.Kind == TokenIdentifier:
		if _, isUnit := precisionWords[next.Text]; isUnit {
			p.advance()
			p.advance()
			q := &ast.QuantityLiteral{Value: t.Text, Unit: next.Text}
			q.Loc = t.Span.Extend(next.Span)
			return q
		}
	}
	q := &ast.QuantityLiteral{Value: t.Text, Unit: "1"}
	q.Loc = t.Span
	p.advance()
	return q
}

func (p *parser) parseBareNumber() ast.Expression {
	return p.parseBareNumberToken(p.advance())
}

func (p *parser) parseBareNumberToken(t Token) *ast.Literal {
	kind := ast.LiteralInteger
	switch {
	case t.Kind == TokenLongNumber:
		kind = ast.LiteralLong
	case containsDot(t.Text):
		kind = ast.LiteralDecimal
	}
	lit := &ast.Literal{Kind: kind, Text: t.Text}
	lit.Loc = t.Span
	return lit
}

func containsDot(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return true
		}
	}
	return false
}

func (p *parser) parseIf() ast.Expression {
	start := p.cur()
	p.advance()
	cond := p.parseExpression()
	p.expectWord("then")
	then := p.parseExpression()
	p.expectWord("else")
	els := p.parseExpression()
	e := &ast.IfExpr{Condition: cond, Then: then, Else: els}
	e.Loc = start.Span.Extend(els.Span())
	return e
}

func (p *parser) parseCase() ast.Expression {
	start := p.cur()
	p.advance()
	e := &ast.CaseExpr{}
	if !p.atWord("when") {
		e.Comparand = p.parseExpression()
	}
	for p.atWord("when") {
		itemStart := p.cur()
		p.advance()
		when := p.parseExpression()
		p.expectWord("then")
		then := p.parseExpression()
		item := &ast.CaseItem{When: when, Then: then}
		item.Loc = itemStart.Span.Extend(then.Span())
		e.Items = append(e.Items, item)
	}
	if len(e.Items) == 0 {
		p.errorHere("case expression requires at least one `when` clause")
	}
	p.expectWord("else")
	e.Else = p.parseExpression()
	p.expectWord("end")
	e.Loc = start.Span.Extend(p.prev().Span)
	return e
}

func (p *parser) parseConvert(start Token) ast.Expression {
	p.advance()
	operand := p.parseExpression()
	p.expectWord("to")
	e := &ast.TypeExpr{Op: ast.TypeOpConvert, Operand: operand}
	if t := p.cur(); t.Kind == TokenString {
		p.advance()
		e.Unit = t.Text
	} else {
		e.Type = p.parseTypeSpecifier()
	}
	e.Loc = start.Span.Extend(p.prev().Span)
	return e
}

// parseDuration parses `duration in years between a and b`,
// `difference in years between a and b` and the interval form
// `duration in years of X`.
func (p *parser) parseDuration(start Token) ast.Expression {
	isDifference := start.Text == "difference"
	p.advance()
	p.expectWord("in")
	precision := p.acceptPrecisionWord()
	if p.acceptWord("between") {
		low := p.parseTypeOps()
		p.expectWord("and")
		high := p.parseTypeOps()
		e := &ast.DurationExpr{IsDifference: isDifference, Precision: precision, Low: low, High: high}
		e.Loc = start.Span.Extend(high.Span())
		return e
	}
	p.expectWord("of")
	operand := p.parseUnaryTerm()
	// the interval form measures between its boundaries
	lowOf := &ast.UnaryExpr{Op: ast.UnaryStart, Operand: operand}
	lowOf.Loc = operand.Span()
	highOf := &ast.UnaryExpr{Op: ast.UnaryEnd, Operand: operand}
	highOf.Loc = operand.Span()
	e := &ast.DurationExpr{IsDifference: isDifference, Precision: precision, Low: lowOf, High: highOf}
	e.Loc = start.Span.Extend(operand.Span())
	return e
}

func (p *parser) acceptPrecisionWord() string {
	if t := p.cur(); t.Kind == TokenIdentifier {
		if canonical, ok := precisionWords[t.Text]; ok {
			p.advance()
			return canonical
		}
	}
	p.errorHere("expected a date/time precision, found `%s`", p.describeCur())
	return "day"
}

func (p *parser) parseIntervalSelector() ast.Expression {
	start := p.cur()
	p.advance()
	lowClosed := true
	if p.acceptSymbol("(") {
		lowClosed = false
	} else {
		p.expectSymbol("[")
	}
	low := p.parseExpression()
	p.expectSymbol(",")
	high := p.parseExpression()
	highClosed := true
	if p.acceptSymbol(")") {
		highClosed = false
	} else {
		p.expectSymbol("]")
	}
	e := &ast.IntervalSelector{Low: low, High: high, LowClosed: lowClosed, HighClosed: highClosed}
	e.Loc = start.Span.Extend(p.prev().Span)
	return e
}

func (p *parser) parseListSelector(keyword bool) ast.Expression {
	start := p.cur()
	e := &ast.ListSelector{}
	if keyword {
		p.advance() // List
		if p.acceptSymbol("<") {
			e.ElementType = p.parseTypeSpecifier()
			p.expectSymbol(">")
		}
	}
	p.expectSymbol("{")
	if !p.atSymbol("}") {
		for {
			e.Elements = append(e.Elements, p.parseExpression())
			if !p.acceptSymbol(",") {
				break
			}
		}
	}
	p.expectSymbol("}")
	e.Loc = start.Span.Extend(p.prev().Span)
	return e
}

func (p *parser) parseTupleSelector(start Token) ast.Expression {
	e := &ast.TupleSelector{}
	p.expectSymbol("{")
	for {
		elemStart := p.cur()
		name := p.expectIdentifier("tuple element name")
		p.expectSymbol(":")
		value := p.parseExpression()
		elem := &ast.TupleSelectorElement{Name: name, Value: value}
		elem.Loc = elemStart.Span.Extend(value.Span())
		e.Elements = append(e.Elements, elem)
		if !p.acceptSymbol(",") {
			break
		}
	}
	p.expectSymbol("}")
	e.Loc = start.Span.Extend(p.prev().Span)
	return e
}

func (p *parser) parseInstanceSelector(start Token, typeName string) ast.Expression {
	e := &ast.InstanceSelector{Type: ast.QualifiedIdentifier{Parts: []string{typeName}}}
	p.expectSymbol("{")
	for {
		elemStart := p.cur()
		name := p.expectIdentifier("element name")
		p.expectSymbol(":")
		value := p.parseExpression()
		elem := &ast.TupleSelectorElement{Name: name, Value: value}
		elem.Loc = elemStart.Span.Extend(value.Span())
		e.Elements = append(e.Elements, elem)
		if !p.acceptSymbol(",") {
			break
		}
	}
	p.expectSymbol("}")
	e.Loc = start.Span.Extend(p.prev().Span)
	return e
}

func (p *parser) parseCodeSelector() ast.Expression {
	start := p.cur()
	p.advance() // Code
	e := &ast.CodeSelector{Code: p.stringLiteral("code")}
	p.expectWord("from")
	e.CodeSystem = p.expectIdentifier("codesystem reference")
	if p.acceptWord("display") {
		e.Display = p.stringLiteral("display text")
	}
	e.Loc = start.Span.Extend(p.prev().Span)
	return e
}

func (p *parser) parseConceptSelector() ast.Expression {
	start := p.cur()
	p.advance() // Concept
	e := &ast.ConceptSelector{}
	p.expectSymbol("{")
	for {
		code := p.parseCodeSelector()
		if cs, ok := code.(*ast.CodeSelector); ok {
			e.Codes = append(e.Codes, cs)
		}
		if !p.acceptSymbol(",") {
			break
		}
	}
	p.expectSymbol("}")
	if p.acceptWord("display") {
		e.Display = p.stringLiteral("display text")
	}
	e.Loc = start.Span.Extend(p.prev().Span)
	return e
}

// parseRetrieve parses `[Type]`, `[Type: "ValueSet"]` and
// `[Type: path in "ValueSet"]`.
// TODO: parse the date-range form `[Type: path during Interval]`; the
// ELM Retrieve node and the provider boundary already carry
// dateProperty/dateRange.
func (p *parser) parseRetrieve() ast.Expression {
	start := p.cur()
	p.expectSymbol("[")
	e := &ast.Retrieve{DataType: p.qualifiedIdentifier()}
	if p.acceptSymbol(":") {
		// `path in terminology` or bare terminology
		if (p.cur().Kind == TokenIdentifier || p.cur().Kind == TokenQuotedIdentifier) &&
			p.lookahead(1).Kind == TokenIdentifier && p.lookahead(1).Text == "in" {
			e.CodePath, _ = p.identifier()
			p.advance() // in
		}
		e.Terminology = p.parseExpression()
	}
	p.expectSymbol("]")
	e.Loc = start.Span.Extend(p.prev().Span)
	return e
}
