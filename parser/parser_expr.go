package parser

import (
	"github.com/DAMEDIC/cql-engine-go/ast"
)

// Expression parsing follows the CQL operator precedence table, loosest
// binding first: set operators, implies, or/xor, and, membership,
// equality, timing phrases, inequality, between, type operators, then
// the expression-term levels (additive, multiplicative, power, unary,
// postfix, primary).

func (p *parser) parseExpression() ast.Expression {
	return p.parseSetOp()
}

func (p *parser) binary(op ast.BinaryOp, precision string, left, right ast.Expression) *ast.BinaryExpr {
	e := &ast.BinaryExpr{Op: op, Precision: precision, Left: left, Right: right}
	e.Loc = left.Span().Extend(right.Span())
	return e
}

func (p *parser) unary(op ast.UnaryOp, start Token, operand ast.Expression) *ast.UnaryExpr {
	e := &ast.UnaryExpr{Op: op, Operand: operand}
	e.Loc = start.Span.Extend(operand.Span())
	return e
}

func (p *parser) parseSetOp() ast.Expression {
	left := p.parseImplies()
	for {
		var op ast.BinaryOp
		switch {
		case p.atWord("union"):
			op = ast.BinaryUnion
		case p.atWord("intersect"):
			op = ast.BinaryIntersect
		case p.atWord("except"):
			op = ast.BinaryExcept
		default:
			return left
		}
		p.advance()
		left = p.binary(op, "", left, p.parseImplies())
	}
}

func (p *parser) parseImplies() ast.Expression {
	left := p.parseOr()
	for p.acceptWord("implies") {
		left = p.binary(ast.BinaryImplies, "", left, p.parseOr())
	}
	return left
}

func (p *parser) parseOr() ast.Expression {
	left := p.parseAnd()
	for {
		switch {
		case p.acceptWord("or"):
			left = p.binary(ast.BinaryOr, "", left, p.parseAnd())
		case p.acceptWord("xor"):
			left = p.binary(ast.BinaryXor, "", left, p.parseAnd())
		default:
			return left
		}
	}
}

func (p *parser) parseAnd() ast.Expression {
	left := p.parseMembership()
	for p.acceptWord("and") {
		left = p.binary(ast.BinaryAnd, "", left, p.parseMembership())
	}
	return left
}

func (p *parser) parseMembership() ast.Expression {
	if t := p.cur(); p.atWord("not") {
		p.advance()
		return p.unary(ast.UnaryNot, t, p.parseMembership())
	}
	if t := p.cur(); p.atWord("exists") {
		p.advance()
		return p.unary(ast.UnaryExists, t, p.parseMembership())
	}

	left := p.parseEquality()
	for {
		switch {
		case p.atWord("in"):
			p.advance()
			precision := p.acceptPrecision()
			left = p.binary(ast.BinaryIn, precision, left, p.parseEquality())
		case p.atWord("contains"):
			p.advance()
			precision := p.acceptPrecision()
			left = p.binary(ast.BinaryContains, precision, left, p.parseEquality())
		default:
			return left
		}
	}
}

func (p *parser) parseEquality() ast.Expression {
	left := p.parseTiming()
	for {
		var op ast.BinaryOp
		switch {
		case p.atSymbol("="):
			op = ast.BinaryEqual
		case p.atSymbol("!="):
			op = ast.BinaryNotEqual
		case p.atSymbol("~"):
			op = ast.BinaryEquivalent
		case p.atSymbol("!~"):
			op = ast.BinaryNotEquivalent
		default:
			return left
		}
		p.advance()
		left = p.binary(op, "", left, p.parseTiming())
	}
}

// precisionWords maps singular and plural precision keywords.
var precisionWords = map[string]string{
	"year": "year", "years": "year",
	"month": "month", "months": "month",
	"week": "week", "weeks": "week",
	"day": "day", "days": "day",
	"hour": "hour", "hours": "hour",
	"minute": "minute", "minutes": "minute",
	"second": "second", "seconds": "second",
	"millisecond": "millisecond", "milliseconds": "millisecond",
}

func (p *parser) acceptPrecision() string {
	if t := p.cur(); t.Kind == TokenIdentifier {
		if canonical, ok := precisionWords[t.Text]; ok {
			p.advance()
			p.acceptWord("of")
			return canonical
		}
	}
	return ""
}

func (p *parser) parseTiming() ast.Expression {
	left := p.parseInequality()
	for {
		switch {
		case p.atWord("same"):
			p.advance()
			precision := p.acceptPrecision()
			op := ast.BinarySameAs
			switch {
			case p.acceptWord("as"):
			case p.atWords("or", "before"):
				p.advance()
				p.advance()
				op = ast.BinarySameOrBefore
			case p.atWords("or", "after"):
				p.advance()
				p.advance()
				op = ast.BinarySameOrAfter
			default:
				p.errorHere("expected `as`, `or before` or `or after` in timing phrase")
			}
			left = p.binary(op, precision, left, p.parseInequality())

		case p.atWord("during"):
			p.advance()
			left = p.binary(ast.BinaryDuring, "", left, p.parseInequality())

		case p.atWord("includes"):
			p.advance()
			precision := p.acceptPrecision()
			left = p.binary(ast.BinaryIncludes, precision, left, p.parseInequality())

		case p.atWords("included", "in"):
			p.advance()
			p.advance()
			precision := p.acceptPrecision()
			left = p.binary(ast.BinaryIncludedIn, precision, left, p.parseInequality())

		case p.atWord("properly"):
			p.advance()
			var op ast.BinaryOp
			switch {
			case p.acceptWord("includes"):
				op = ast.BinaryProperlyIncludes
			case p.atWords("included", "in"):
				p.advance()
				p.advance()
				op = ast.BinaryProperlyIncludedIn
			default:
				p.errorHere("expected `includes` or `included in` after `properly`")
				op = ast.BinaryProperlyIncludes
			}
			left = p.binary(op, "", left, p.parseInequality())

		case p.atWord("before"):
			p.advance()
			precision := p.acceptPrecision()
			left = p.binary(ast.BinaryBefore, precision, left, p.parseInequality())

		case p.atWord("after"):
			p.advance()
			precision := p.acceptPrecision()
			left = p.binary(ast.BinaryAfter, precision, left, p.parseInequality())

		case p.atWord("meets"):
			p.advance()
			op := ast.BinaryMeets
			if p.acceptWord("before") {
				op = ast.BinaryMeetsBefore
			} else if p.acceptWord("after") {
				op = ast.BinaryMeetsAfter
			}
			left = p.binary(op, "", left, p.parseInequality())

		case p.atWord("overlaps"):
			p.advance()
			op := ast.BinaryOverlaps
			if p.acceptWord("before") {
				op = ast.BinaryOverlapsBefore
			} else if p.acceptWord("after") {
				op = ast.BinaryOverlapsAfter
			}
			left = p.binary(op, "", left, p.parseInequality())

		case p.atWord("starts"):
			p.advance()
			left = p.binary(ast.BinaryStarts, "", left, p.parseInequality())

		case p.atWord("ends"):
			p.advance()
			left = p.binary(ast.BinaryEnds, "", left, p.parseInequality())

		default:
			return left
		}
	}
}

func (p *parser) parseInequality() ast.Expression {
	left := p.parseBetween()
	for {
		var op ast.BinaryOp
		switch {
		case p.atSymbol("<="):
			op = ast.BinaryLessOrEqual
		case p.atSymbol("<"):
			op = ast.BinaryLess
		case p.atSymbol(">="):
			op = ast.BinaryGreaterOrEqual
		case p.atSymbol(">"):
			op = ast.BinaryGreater
		default:
			return left
		}
		p.advance()
		left = p.binary(op, "", left, p.parseBetween())
	}
}

// parseBetween desugars `x between a and b` into
// `x >= a and x <= b`.
func (p *parser) parseBetween() ast.Expression {
	left := p.parseTypeOps()
	if !p.atWord("between") {
		return left
	}
	p.advance()
	low := p.parseTypeOps()
	p.expectWord("and")
	high := p.parseTypeOps()
	ge := p.binary(ast.BinaryGreaterOrEqual, "", left, low)
	le := p.binary(ast.BinaryLessOrEqual, "", left, high)
	return p.binary(ast.BinaryAnd, "", ge, le)
}

func (p *parser) parseTypeOps() ast.Expression {
	left := p.parseAdditive()
	for {
		switch {
		case p.atWord("is"):
			p.advance()
			start := p.prev()
			negate := p.acceptWord("not")
			switch {
			case p.acceptWord("null"):
				op := ast.UnaryIsNull
				if negate {
					op = ast.UnaryIsNotNull
				}
				left = p.unary(op, start, left)
			case !negate && p.acceptWord("true"):
				left = p.unary(ast.UnaryIsTrue, start, left)
			case !negate && p.acceptWord("false"):
				left = p.unary(ast.UnaryIsFalse, start, left)
			default:
				if negate {
					p.errorHere("expected `null` after `is not`")
					continue
				}
				e := &ast.TypeExpr{Op: ast.TypeOpIs, Operand: left, Type: p.parseTypeSpecifier()}
				e.Loc = left.Span().Extend(p.prev().Span)
				left = e
			}
		case p.atWord("as"):
			p.advance()
			e := &ast.TypeExpr{Op: ast.TypeOpAs, Operand: left, Type: p.parseTypeSpecifier()}
			e.Loc = left.Span().Extend(p.prev().Span)
			left = e
		default:
			return left
		}
	}
}

func (p *parser) parseAdditive() ast.Expression {
	left := p.parseMultiplicative()
	for {
		var op ast.BinaryOp
		switch {
		case p.atSymbol("+"):
			op = ast.BinaryAdd
		case p.atSymbol("-"):
			op = ast.BinarySubtract
		case p.atSymbol("&"):
			op = ast.BinaryConcatenate
		default:
			return left
		}
		p.advance()
		left = p.binary(op, "", left, p.parseMultiplicative())
	}
}

func (p *parser) parseMultiplicative() ast.Expression {
	left := p.parsePower()
	for {
		var op ast.BinaryOp
		switch {
		case p.atSymbol("*"):
			op = ast.BinaryMultiply
		case p.atSymbol("/"):
			op = ast.BinaryDivide
		case p.atWord("div"):
			op = ast.BinaryTruncatedDivide
		case p.atWord("mod"):
			op = ast.BinaryModulo
		default:
			return left
		}
		p.advance()
		left = p.binary(op, "", left, p.parsePower())
	}
}

func (p *parser) parsePower() ast.Expression {
	left := p.parseUnaryTerm()
	for p.atSymbol("^") {
		p.advance()
		left = p.binary(ast.BinaryPower, "", left, p.parseUnaryTerm())
	}
	return left
}

func (p *parser) parseUnaryTerm() ast.Expression {
	start := p.cur()
	switch {
	case p.atSymbol("-"):
		p.advance()
		return p.unary(ast.UnaryNegate, start, p.parseUnaryTerm())
	case p.atSymbol("+"):
		p.advance()
		return p.unary(ast.UnaryPlus, start, p.parseUnaryTerm())
	case p.atWords("start", "of"):
		p.advance()
		p.advance()
		return p.unary(ast.UnaryStart, start, p.parseUnaryTerm())
	case p.atWords("end", "of"):
		p.advance()
		p.advance()
		return p.unary(ast.UnaryEnd, start, p.parseUnaryTerm())
	case p.atWords("width", "of"):
		p.advance()
		p.advance()
		return p.unary(ast.UnaryWidth, start, p.parseUnaryTerm())
	case p.atWords("successor", "of"):
		p.advance()
		p.advance()
		return p.unary(ast.UnarySuccessor, start, p.parseUnaryTerm())
	case p.atWords("predecessor", "of"):
		p.advance()
		p.advance()
		return p.unary(ast.UnaryPredecessor, start, p.parseUnaryTerm())
	case p.atWords("singleton", "from"):
		p.advance()
		p.advance()
		return p.unary(ast.UnarySingleton, start, p.parseUnaryTerm())
	case p.atWords("point", "from"):
		p.advance()
		p.advance()
		return p.unary(ast.UnaryPointFrom, start, p.parseUnaryTerm())
	case p.atWord("distinct"):
		p.advance()
		return p.unary(ast.UnaryDistinct, start, p.parseUnaryTerm())
	case p.atWord("flatten"):
		p.advance()
		return p.unary(ast.UnaryFlatten, start, p.parseUnaryTerm())
	case p.atWord("collapse"):
		p.advance()
		return p.unary(ast.UnaryCollapse, start, p.parseUnaryTerm())
	}

	// date/time component extraction: `year from X`, `date from X`
	if t := p.cur(); t.Kind == TokenIdentifier && p.lookahead(1).Kind == TokenIdentifier && p.lookahead(1).Text == "from" {
		component := ""
		if canonical, ok := precisionWords[t.Text]; ok {
			component = canonical
		} else if t.Text == "date" || t.Text == "time" || t.Text == "timezoneoffset" {
			component = t.Text
		}
		if component != "" {
			p.advance()
			p.advance()
			operand := p.parseUnaryTerm()
			e := &ast.ComponentExpr{Component: component, Operand: operand}
			e.Loc = t.Span.Extend(operand.Span())
			return e
		}
	}

	return p.parsePostfix()
}

func (p *parser) parsePostfix() ast.Expression {
	expr := p.parsePrimary()
	for {
		switch {
		case p.atSymbol(".") && (p.lookahead(1).Kind == TokenIdentifier || p.lookahead(1).Kind == TokenQuotedIdentifier):
			p.advance()
			name, _ := p.identifier()
			if p.atSymbol("(") {
				expr = p.parseCallOn(expr, name)
				continue
			}
			access := &ast.PropertyAccess{Source: expr, Name: name}
			access.Loc = expr.Span().Extend(p.prev().Span)
			expr = access
		case p.atSymbol("["):
			p.advance()
			index := p.parseExpression()
			p.expectSymbol("]")
			indexer := &ast.Indexer{Source: expr, Index: index}
			indexer.Loc = expr.Span().Extend(p.prev().Span)
			expr = indexer
		default:
			return expr
		}
	}
}

// parseCallOn builds `source.name(args)`: a qualified call when the
// source is a bare identifier (library alias), a fluent invocation with
// the source as first argument otherwise.
func (p *parser) parseCallOn(source ast.Expression, name string) ast.Expression {
	args := p.parseArguments()
	call := &ast.FunctionCall{Name: name, Args: args}
	if ref, ok := source.(*ast.IdentifierRef); ok {
		call.Qualifier = ref.Name
	} else {
		call.Args = append([]ast.Expression{source}, args...)
		call.Fluent = true
	}
	call.Loc = source.Span().Extend(p.prev().Span)
	return call
}

func (p *parser) parseArguments() []ast.Expression {
	p.expectSymbol("(")
	var args []ast.Expression
	if !p.atSymbol(")") {
		for {
			args = append(args, p.parseExpression())
			if !p.acceptSymbol(",") {
				break
			}
		}
	}
	p.expectSymbol(")")
	return args
}
