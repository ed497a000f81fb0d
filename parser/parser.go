package parser

import (
	"github.com/DAMEDIC/cql-engine-go/ast"
	"github.com/DAMEDIC/cql-engine-go/diagnostics"
)

// reservedWords may not be used as bare query aliases or identifiers in
// positions where that would make the grammar ambiguous.
var reservedWords = map[string]bool{
	"and": true, "or": true, "xor": true, "implies": true, "not": true,
	"in": true, "contains": true, "between": true, "is": true, "as": true,
	"union": true, "intersect": true, "except": true, "properly": true,
	"includes": true, "included": true, "during": true, "before": true,
	"after": true, "meets": true, "overlaps": true, "starts": true,
	"ends": true, "same": true, "where": true, "return": true, "sort": true,
	"let": true, "with": true, "without": true, "such": true, "that": true,
	"aggregate": true, "starting": true, "from": true, "then": true,
	"else": true, "when": true, "end": true, "define": true, "function": true,
	"context": true, "library": true, "using": true, "include": true,
	"parameter": true, "valueset": true, "codesystem": true, "code": true,
	"concept": true, "called": true, "version": true, "true": true,
	"false": true, "null": true, "asc": true, "ascending": true,
	"desc": true, "descending": true, "by": true, "display": true,
	"if": true, "case": true, "cast": true, "convert": true, "to": true,
	"day": true, "days": true, "hour": true, "hours": true, "minute": true,
	"minutes": true, "month": true, "months": true, "second": true,
	"seconds": true, "week": true, "weeks": true, "year": true,
	"years": true, "millisecond": true, "milliseconds": true,
	"duration": true, "difference": true, "width": true, "exists": true,
	"distinct": true, "flatten": true, "singleton": true, "start": true,
	"point": true, "successor": true, "predecessor": true, "minimum": true,
	"maximum": true, "collapse": true, "expand": true, "all": true,
	"of": true, "returns": true, "external": true, "fluent": true,
	"public": true, "private": true, "codesystems": true, "default": true,
}

type parser struct {
	src    string
	tokens []Token
	pos    int
	errors diagnostics.List
	// suppressAlias disables single-source query detection while a
	// query source term is being parsed, so the alias is left for the
	// enclosing clause.
	suppressAlias bool
}

// ParseLibrary parses a complete CQL library. Errors are accumulated;
// the returned library holds everything that parsed.
func ParseLibrary(src string) (*ast.Library, error) {
	tokens, lexErrors := Lex(src)
	p := &parser{src: src, tokens: tokens, errors: lexErrors}
	lib := p.parseLibrary()
	return lib, p.errors.Err()
}

// ParseExpression parses a single expression.
func ParseExpression(src string) (ast.Expression, error) {
	tokens, lexErrors := Lex(src)
	p := &parser{src: src, tokens: tokens, errors: lexErrors}
	expr := p.parseExpression()
	if p.cur().Kind != TokenEOF {
		p.errorHere("unexpected token `%s` after expression", p.cur().Text)
	}
	return expr, p.errors.Err()
}

func (p *parser) cur() Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos]
}

func (p *parser) lookahead(n int) Token {
	if p.pos+n >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+n]
}

func (p *parser) prev() Token {
	if p.pos == 0 {
		return p.tokens[0]
	}
	return p.tokens[p.pos-1]
}

func (p *parser) advance() Token {
	t := p.cur()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

// atWord reports whether the current token is the given bare keyword.
func (p *parser) atWord(word string) bool {
	t := p.cur()
	return t.Kind == TokenIdentifier && t.Text == word
}

func (p *parser) atWords(first, second string) bool {
	return p.atWord(first) &&
		p.lookahead(1).Kind == TokenIdentifier && p.lookahead(1).Text == second
}

func (p *parser) acceptWord(word string) bool {
	if p.atWord(word) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) atSymbol(sym string) bool {
	t := p.cur()
	return t.Kind == TokenSymbol && t.Text == sym
}

func (p *parser) acceptSymbol(sym string) bool {
	if p.atSymbol(sym) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expectSymbol(sym string) Token {
	if p.atSymbol(sym) {
		return p.advance()
	}
	p.errorHere("expected `%s`, found `%s`", sym, p.describeCur())
	return p.cur()
}

func (p *parser) expectWord(word string) {
	if !p.acceptWord(word) {
		p.errorHere("expected `%s`, found `%s`", word, p.describeCur())
	}
}

func (p *parser) describeCur() string {
	t := p.cur()
	if t.Kind == TokenEOF {
		return "end of input"
	}
	return t.Text
}

func (p *parser) errorHere(format string, args ...any) {
	p.errors.Append(diagnostics.NewSpanned(
		diagnostics.KindParse, diagnostics.CodeSyntax, p.cur().Span, format, args...))
}

// identifier accepts a plain or quoted identifier.
func (p *parser) identifier() (string, bool) {
	t := p.cur()
	if t.Kind == TokenIdentifier || t.Kind == TokenQuotedIdentifier {
		p.advance()
		return t.Text, true
	}
	return "", false
}

func (p *parser) expectIdentifier(what string) string {
	name, ok := p.identifier()
	if !ok {
		p.errorHere("expected %s, found `%s`", what, p.describeCur())
	}
	return name
}

func (p *parser) qualifiedIdentifier() ast.QualifiedIdentifier {
	var q ast.QualifiedIdentifier
	name := p.expectIdentifier("identifier")
	q.Parts = append(q.Parts, name)
	for p.atSymbol(".") && (p.lookahead(1).Kind == TokenIdentifier || p.lookahead(1).Kind == TokenQuotedIdentifier) {
		p.advance()
		next, _ := p.identifier()
		q.Parts = append(q.Parts, next)
	}
	return q
}

// declaration keywords used for statement-level error recovery
var declKeywords = map[string]bool{
	"library": true, "using": true, "include": true, "parameter": true,
	"codesystem": true, "valueset": true, "code": true, "concept": true,
	"context": true, "define": true, "public": true, "private": true,
}

func (p *parser) resyncToDeclaration() {
	for p.cur().Kind != TokenEOF {
		if t := p.cur(); t.Kind == TokenIdentifier && declKeywords[t.Text] {
			return
		}
		p.advance()
	}
}

func (p *parser) parseLibrary() *ast.Library {
	lib := &ast.Library{}
	start := p.cur().Span

	if p.acceptWord("library") {
		def := &ast.LibraryDefinition{}
		def.Loc = p.prev().Span
		def.Name = p.qualifiedIdentifier()
		if p.acceptWord("version") {
			if t := p.cur(); t.Kind == TokenString {
				def.Version = t.Text
				p.advance()
			} else {
				p.errorHere("expected version string")
			}
		}
		def.Loc = def.Loc.Extend(p.prev().Span)
		lib.Definition = def
	}

	for p.cur().Kind != TokenEOF {
		before := p.pos
		p.parseDeclaration(lib)
		if p.pos == before {
			// no progress; skip the offending token and resync
			p.errorHere("unexpected token `%s`", p.describeCur())
			p.advance()
			p.resyncToDeclaration()
		}
	}

	lib.Loc = start.Extend(p.prev().Span)
	return lib
}

func (p *parser) accessModifier() ast.AccessModifier {
	if p.acceptWord("private") {
		return ast.AccessPrivate
	}
	p.acceptWord("public")
	return ast.AccessPublic
}

func (p *parser) parseDeclaration(lib *ast.Library) {
	switch {
	case p.atWord("using"):
		p.advance()
		def := &ast.UsingDef{}
		def.Loc = p.prev().Span
		def.Model = p.expectIdentifier("model name")
		if p.acceptWord("version") {
			def.Version = p.stringLiteral("model version")
		}
		def.Loc = def.Loc.Extend(p.prev().Span)
		lib.Usings = append(lib.Usings, def)

	case p.atWord("include"):
		p.advance()
		def := &ast.IncludeDef{}
		def.Loc = p.prev().Span
		def.Library = p.qualifiedIdentifier()
		if p.acceptWord("version") {
			def.Version = p.stringLiteral("library version")
		}
		if p.acceptWord("called") {
			def.Alias = p.expectIdentifier("include alias")
		}
		def.Loc = def.Loc.Extend(p.prev().Span)
		lib.Includes = append(lib.Includes, def)

	case p.atWord("public") || p.atWord("private"):
		access := p.accessModifier()
		p.parseAccessibleDeclaration(lib, access)

	case p.atWord("parameter") || p.atWord("codesystem") || p.atWord("valueset") ||
		p.atWord("code") || p.atWord("concept") || p.atWord("define"):
		p.parseAccessibleDeclaration(lib, ast.AccessPublic)

	case p.atWord("context"):
		p.advance()
		def := &ast.ContextDef{}
		def.Loc = p.prev().Span
		def.Name = p.expectIdentifier("context name")
		def.Loc = def.Loc.Extend(p.prev().Span)
		lib.Contexts = append(lib.Contexts, def)
	}
}

func (p *parser) parseAccessibleDeclaration(lib *ast.Library, access ast.AccessModifier) {
	switch {
	case p.acceptWord("parameter"):
		def := &ast.ParameterDef{Access: access}
		def.Loc = p.prev().Span
		def.Name = p.expectIdentifier("parameter name")
		if !p.atWord("default") && !p.atSymbol(":") && p.cur().Kind != TokenEOF && !p.atDeclarationBoundary() {
			def.Type = p.parseTypeSpecifier()
		}
		if p.acceptWord("default") {
			def.Default = p.parseExpression()
		}
		def.Loc = def.Loc.Extend(p.prev().Span)
		lib.Parameters = append(lib.Parameters, def)

	case p.acceptWord("codesystem"):
		def := &ast.CodeSystemDef{Access: access}
		def.Loc = p.prev().Span
		def.Name = p.expectIdentifier("codesystem name")
		p.expectSymbol(":")
		def.ID = p.stringLiteral("codesystem id")
		if p.acceptWord("version") {
			def.Version = p.stringLiteral("codesystem version")
		}
		def.Loc = def.Loc.Extend(p.prev().Span)
		lib.CodeSystems = append(lib.CodeSystems, def)

	case p.acceptWord("valueset"):
		def := &ast.ValueSetDef{Access: access}
		def.Loc = p.prev().Span
		def.Name = p.expectIdentifier("valueset name")
		p.expectSymbol(":")
		def.ID = p.stringLiteral("valueset id")
		if p.acceptWord("version") {
			def.Version = p.stringLiteral("valueset version")
		}
		if p.acceptWord("codesystems") {
			p.expectSymbol("{")
			for {
				def.CodeSystems = append(def.CodeSystems, p.expectIdentifier("codesystem reference"))
				if !p.acceptSymbol(",") {
					break
				}
			}
			p.expectSymbol("}")
		}
		def.Loc = def.Loc.Extend(p.prev().Span)
		lib.ValueSets = append(lib.ValueSets, def)

	case p.acceptWord("code"):
		def := &ast.CodeDef{Access: access}
		def.Loc = p.prev().Span
		def.Name = p.expectIdentifier("code name")
		p.expectSymbol(":")
		def.Code = p.stringLiteral("code value")
		p.expectWord("from")
		def.CodeSystem = p.expectIdentifier("codesystem reference")
		if p.acceptWord("display") {
			def.Display = p.stringLiteral("display text")
		}
		def.Loc = def.Loc.Extend(p.prev().Span)
		lib.Codes = append(lib.Codes, def)

	case p.acceptWord("concept"):
		def := &ast.ConceptDef{Access: access}
		def.Loc = p.prev().Span
		def.Name = p.expectIdentifier("concept name")
		p.expectSymbol(":")
		p.expectSymbol("{")
		for {
			def.Codes = append(def.Codes, p.expectIdentifier("code reference"))
			if !p.acceptSymbol(",") {
				break
			}
		}
		p.expectSymbol("}")
		if p.acceptWord("display") {
			def.Display = p.stringLiteral("display text")
		}
		def.Loc = def.Loc.Extend(p.prev().Span)
		lib.Concepts = append(lib.Concepts, def)

	case p.acceptWord("define"):
		start := p.prev().Span
		if p.atWord("public") || p.atWord("private") {
			access = p.accessModifier()
		}
		fluent := p.acceptWord("fluent")
		if p.acceptWord("function") {
			def := p.parseFunctionDef(access, fluent)
			def.Loc = start.Extend(p.prev().Span)
			lib.Statements = append(lib.Statements, def)
			return
		}
		def := &ast.ExpressionDef{Access: access}
		def.Name = p.expectIdentifier("definition name")
		p.expectSymbol(":")
		def.Expression = p.parseExpression()
		def.Loc = start.Extend(p.prev().Span)
		lib.Statements = append(lib.Statements, def)

	default:
		p.errorHere("expected declaration after access modifier, found `%s`", p.describeCur())
	}
}

func (p *parser) atDeclarationBoundary() bool {
	t := p.cur()
	return t.Kind == TokenIdentifier && declKeywords[t.Text]
}

func (p *parser) parseFunctionDef(access ast.AccessModifier, fluent bool) *ast.FunctionDef {
	def := &ast.FunctionDef{Access: access, Fluent: fluent}
	def.Name = p.expectIdentifier("function name")
	p.expectSymbol("(")
	if !p.atSymbol(")") {
		for {
			operand := &ast.OperandDef{}
			operand.Loc = p.cur().Span
			operand.Name = p.expectIdentifier("operand name")
			operand.Type = p.parseTypeSpecifier()
			operand.Loc = operand.Loc.Extend(p.prev().Span)
			def.Operands = append(def.Operands, operand)
			if !p.acceptSymbol(",") {
				break
			}
		}
	}
	p.expectSymbol(")")
	if p.acceptWord("returns") {
		def.ReturnType = p.parseTypeSpecifier()
	}
	p.expectSymbol(":")
	if p.acceptWord("external") {
		def.External = true
		return def
	}
	def.Expression = p.parseExpression()
	return def
}

func (p *parser) stringLiteral(what string) string {
	if t := p.cur(); t.Kind == TokenString {
		p.advance()
		return t.Text
	}
	p.errorHere("expected %s string, found `%s`", what, p.describeCur())
	return ""
}

// parseTypeSpecifier parses List<T>, Interval<T>, Tuple{...}, Choice<...>
// and named types.
func (p *parser) parseTypeSpecifier() ast.TypeSpecifier {
	start := p.cur().Span
	switch {
	case p.atWord("List") && p.lookahead(1).Kind == TokenSymbol && p.lookahead(1).Text == "<":
		p.advance()
		p.expectSymbol("<")
		element := p.parseTypeSpecifier()
		p.expectSymbol(">")
		t := &ast.ListType{Element: element}
		t.Loc = start.Extend(p.prev().Span)
		return t
	case p.atWord("Interval") && p.lookahead(1).Kind == TokenSymbol && p.lookahead(1).Text == "<":
		p.advance()
		p.expectSymbol("<")
		point := p.parseTypeSpecifier()
		p.expectSymbol(">")
		t := &ast.IntervalType{Point: point}
		t.Loc = start.Extend(p.prev().Span)
		return t
	case p.atWord("Choice") && p.lookahead(1).Kind == TokenSymbol && p.lookahead(1).Text == "<":
		p.advance()
		p.expectSymbol("<")
		t := &ast.ChoiceType{}
		for {
			t.Types = append(t.Types, p.parseTypeSpecifier())
			if !p.acceptSymbol(",") {
				break
			}
		}
		p.expectSymbol(">")
		t.Loc = start.Extend(p.prev().Span)
		return t
	case p.atWord("Tuple") && p.lookahead(1).Kind == TokenSymbol && p.lookahead(1).Text == "{":
		p.advance()
		p.expectSymbol("{")
		t := &ast.TupleType{}
		for {
			name := p.expectIdentifier("tuple element name")
			typ := p.parseTypeSpecifier()
			t.Elements = append(t.Elements, ast.TupleTypeElement{Name: name, Type: typ})
			if !p.acceptSymbol(",") {
				break
			}
		}
		p.expectSymbol("}")
		t.Loc = start.Extend(p.prev().Span)
		return t
	default:
		t := &ast.NamedType{Name: p.qualifiedIdentifier()}
		t.Loc = start.Extend(p.prev().Span)
		return t
	}
}
