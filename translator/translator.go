// Package translator lowers parsed CQL libraries into ELM. The single
// pass is also the semantic analyzer: every emitted node carries a
// resolved type, operator overloads are selected against the System
// lattice and the data model, and implicit conversions are made
// explicit in the output tree.
package translator

import (
	"fmt"

	"github.com/DAMEDIC/cql-engine-go/ast"
	"github.com/DAMEDIC/cql-engine-go/diagnostics"
	"github.com/DAMEDIC/cql-engine-go/elm"
	"github.com/DAMEDIC/cql-engine-go/modelinfo"
	"github.com/DAMEDIC/cql-engine-go/resolver"
)

// Options configures translation.
type Options struct {
	// Annotations adds source locators and result types to the output.
	Annotations bool
}

// Translator lowers resolved libraries to ELM. It is stateless across
// translations and safe to share.
type Translator struct {
	provider modelinfo.Provider
	options  Options
}

// New creates a Translator over a model provider.
func New(provider modelinfo.Provider, options Options) *Translator {
	if provider == nil {
		provider = modelinfo.NewStaticProvider()
	}
	return &Translator{provider: provider, options: options}
}

// Translated pairs a source library with its ELM form and the symbol
// table the engine resolves cross-library references through.
type Translated struct {
	Source *resolver.Source
	ELM    *elm.Library
	ctx    *libContext
}

// Result is the translation of a resolved closure, dependencies first.
type Result struct {
	Root   *Translated
	Order  []*Translated
	byName map[string]*Translated
}

// Lookup finds a translated library by its declared name.
func (r *Result) Lookup(name string) (*Translated, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Translate lowers every library of a resolved closure in dependency
// order.
func (t *Translator) Translate(res *resolver.Resolved) (*Result, error) {
	result := &Result{byName: map[string]*Translated{}}
	for _, src := range res.Order {
		translated, err := t.translateLibrary(src, result)
		if err != nil {
			return nil, err
		}
		result.Order = append(result.Order, translated)
		if src.Name != "" {
			result.byName[src.Name] = translated
		}
		if src == res.Root {
			result.Root = translated
		}
	}
	if result.Root == nil && len(result.Order) > 0 {
		result.Root = result.Order[len(result.Order)-1]
	}
	return result, nil
}

// libContext is the per-library symbol table and error sink.
type libContext struct {
	t      *Translator
	src    *resolver.Source
	system *modelinfo.Registry
	model  *modelinfo.Registry

	includes map[string]*Translated

	parameters  map[string]elm.TypeSpecifier
	valuesets   map[string]bool
	codesystems map[string]bool
	codes       map[string]bool
	concepts    map[string]bool
	defines     map[string]elm.TypeSpecifier
	functions   map[string][]*elm.ExpressionDef

	currentContext string
	scopes         *scope
	errors         diagnostics.List
}

type scope struct {
	parent   *scope
	aliases  map[string]elm.TypeSpecifier
	lets     map[string]elm.TypeSpecifier
	operands map[string]elm.TypeSpecifier
}

func (lc *libContext) pushScope() {
	lc.scopes = &scope{
		parent:   lc.scopes,
		aliases:  map[string]elm.TypeSpecifier{},
		lets:     map[string]elm.TypeSpecifier{},
		operands: map[string]elm.TypeSpecifier{},
	}
}

func (lc *libContext) popScope() {
	lc.scopes = lc.scopes.parent
}

func (lc *libContext) lookupAlias(name string) (elm.TypeSpecifier, bool) {
	for s := lc.scopes; s != nil; s = s.parent {
		if t, ok := s.aliases[name]; ok {
			return t, true
		}
	}
	return nil, false
}

func (lc *libContext) lookupLet(name string) (elm.TypeSpecifier, bool) {
	for s := lc.scopes; s != nil; s = s.parent {
		if t, ok := s.lets[name]; ok {
			return t, true
		}
	}
	return nil, false
}

func (lc *libContext) lookupOperand(name string) (elm.TypeSpecifier, bool) {
	for s := lc.scopes; s != nil; s = s.parent {
		if t, ok := s.operands[name]; ok {
			return t, true
		}
	}
	return nil, false
}

func (lc *libContext) errorAt(span diagnostics.Span, code diagnostics.Code, format string, args ...any) {
	err := diagnostics.NewSpanned(diagnostics.KindSemantic, code, span, format, args...)
	if lc.src.Name != "" {
		err = err.WithLibrary(lc.src.Name)
	}
	lc.errors.Append(err)
}

func (lc *libContext) annotate(e elm.Expression, span diagnostics.Span, resultType elm.TypeSpecifier) {
	if !lc.t.options.Annotations {
		return
	}
	if n, ok := namedName(resultType); ok {
		setResultType(e, n)
	}
	setLocator(e, fmt.Sprintf("%d:%d", span.Line, span.Column))
}

func (lc *libContext) translateLibrary() (*elm.Library, error) {
	src := lc.src
	lib := src.Library

	out := &elm.Library{
		Identifier:       elm.VersionedIdentifier{ID: src.Name, Version: src.Version},
		SchemaIdentifier: elm.VersionedIdentifier{ID: "urn:hl7-org:elm", Version: "r1"},
	}

	for _, u := range lib.Usings {
		if u.Model == "System" {
			continue
		}
		registry, err := lc.t.provider.GetModel(u.Model, u.Version)
		if err != nil {
			return nil, err
		}
		lc.model = registry
		out.Usings = append(out.Usings, elm.UsingDef{
			LocalIdentifier: u.Model,
			URI:             registry.ModelURL(),
			Version:         registry.ModelVersion(),
		})
	}

	for _, inc := range lib.Includes {
		out.Includes = append(out.Includes, elm.IncludeDef{
			LocalIdentifier: inc.LocalName(),
			Path:            inc.Library.String(),
			Version:         inc.Version,
		})
	}

	for _, cs := range lib.CodeSystems {
		lc.declare(cs.Span(), cs.Name, lc.codesystems)
		out.CodeSystems = append(out.CodeSystems, elm.CodeSystemDef{
			Name: cs.Name, ID: cs.ID, Version: cs.Version,
			AccessLevel: accessLevel(cs.Access),
		})
	}
	for _, vs := range lib.ValueSets {
		lc.declare(vs.Span(), vs.Name, lc.valuesets)
		out.ValueSets = append(out.ValueSets, elm.ValueSetDef{
			Name: vs.Name, ID: vs.ID, Version: vs.Version,
			AccessLevel: accessLevel(vs.Access),
			CodeSystems: vs.CodeSystems,
		})
	}
	for _, c := range lib.Codes {
		lc.declare(c.Span(), c.Name, lc.codes)
		if !lc.codesystems[c.CodeSystem] {
			lc.errorAt(c.Span(), diagnostics.CodeUnresolvedIdentifier,
				"could not resolve codesystem `%s`", c.CodeSystem)
		}
		out.Codes = append(out.Codes, elm.CodeDef{
			Name: c.Name, ID: c.Code, Display: c.Display,
			AccessLevel: accessLevel(c.Access),
			CodeSystem:  c.CodeSystem,
		})
	}
	for _, c := range lib.Concepts {
		lc.declare(c.Span(), c.Name, lc.concepts)
		for _, code := range c.Codes {
			if !lc.codes[code] {
				lc.errorAt(c.Span(), diagnostics.CodeUnresolvedIdentifier,
					"could not resolve code `%s`", code)
			}
		}
		out.Concepts = append(out.Concepts, elm.ConceptDef{
			Name: c.Name, Display: c.Display,
			AccessLevel: accessLevel(c.Access),
			Codes:       c.Codes,
		})
	}

	for _, p := range lib.Parameters {
		declaredType := lc.typeFromAST(p.Type)
		def := elm.ParameterDef{
			Name:        p.Name,
			AccessLevel: accessLevel(p.Access),
		}
		if p.Default != nil {
			expr, defaultType := lc.expression(p.Default)
			def.Default = elm.E(expr)
			if declaredType == nil {
				declaredType = defaultType
			}
		}
		if declaredType == nil {
			declaredType = named(typeAny)
		}
		def.Type = elm.TypeSpec{TypeSpecifier: declaredType}
		if _, dup := lc.parameters[p.Name]; dup {
			lc.errorAt(p.Span(), diagnostics.CodeDuplicateDefinition,
				"parameter `%s` is already defined", p.Name)
		}
		lc.parameters[p.Name] = declaredType
		out.Parameters = append(out.Parameters, def)
	}

	for _, c := range lib.Contexts {
		lc.currentContext = c.Name
		out.Contexts = append(out.Contexts, elm.ContextDef{Name: c.Name})
	}
	// reset so statement translation sees contexts in order
	lc.currentContext = ""

	contextIdx := 0
	nextContext := func(stmtSpan diagnostics.Span) {
		for contextIdx < len(lib.Contexts) && lib.Contexts[contextIdx].Span().Start <= stmtSpan.Start {
			lc.currentContext = lib.Contexts[contextIdx].Name
			contextIdx++
		}
	}

	for _, stmt := range lib.Statements {
		nextContext(stmt.Span())
		switch s := stmt.(type) {
		case *ast.ExpressionDef:
			out.Statements = append(out.Statements, lc.translateExpressionDef(s))
		case *ast.FunctionDef:
			out.Statements = append(out.Statements, lc.translateFunctionDef(s))
		}
	}

	return out, lc.errors.Err()
}

func (lc *libContext) declare(span diagnostics.Span, name string, into map[string]bool) {
	if lc.isDeclared(name) {
		lc.errorAt(span, diagnostics.CodeDuplicateDefinition,
			"`%s` is already defined in this library", name)
	}
	into[name] = true
}

func (lc *libContext) isDeclared(name string) bool {
	if lc.valuesets[name] || lc.codesystems[name] || lc.codes[name] || lc.concepts[name] {
		return true
	}
	if _, ok := lc.parameters[name]; ok {
		return true
	}
	if _, ok := lc.defines[name]; ok {
		return true
	}
	return false
}

func (lc *libContext) translateExpressionDef(def *ast.ExpressionDef) *elm.ExpressionDef {
	expr, resultType := lc.expression(def.Expression)
	if lc.isDeclared(def.Name) {
		lc.errorAt(def.Span(), diagnostics.CodeDuplicateDefinition,
			"`%s` is already defined in this library", def.Name)
	}
	lc.defines[def.Name] = resultType
	out := &elm.ExpressionDef{
		Name:        def.Name,
		Context:     lc.currentContext,
		AccessLevel: accessLevel(def.Access),
		Expression:  elm.E(expr),
	}
	lc.annotateDef(&out.Element, def.Span(), resultType)
	return out
}

func (lc *libContext) translateFunctionDef(def *ast.FunctionDef) *elm.ExpressionDef {
	out := &elm.ExpressionDef{
		Name:        def.Name,
		Context:     lc.currentContext,
		AccessLevel: accessLevel(def.Access),
		External:    def.External,
		Fluent:      def.Fluent,
		Operands:    []elm.OperandDef{},
	}

	lc.pushScope()
	for _, op := range def.Operands {
		opType := lc.typeFromAST(op.Type)
		lc.scopes.operands[op.Name] = opType
		out.Operands = append(out.Operands, elm.OperandDef{
			Name: op.Name,
			Type: elm.TypeSpec{TypeSpecifier: opType},
		})
	}

	declared := lc.typeFromAST(def.ReturnType)

	// register before translating the body so recursive calls resolve;
	// recursion without a declared return type checks against Any
	provisional := declared
	if provisional == nil {
		provisional = named(typeAny)
	}
	out.ReturnType = elm.TypeSpec{TypeSpecifier: provisional}
	lc.functions[def.Name] = append(lc.functions[def.Name], out)

	var resultType elm.TypeSpecifier
	if def.Expression != nil {
		expr, exprType := lc.expression(def.Expression)
		out.Expression = elm.E(expr)
		resultType = exprType
	}
	lc.popScope()
	if declared != nil {
		if resultType != nil && !sameType(declared, resultType) &&
			lc.promotionDistance(resultType, declared) < 0 {
			lc.errorAt(def.Span(), diagnostics.CodeTypeMismatch,
				"function `%s` declares return type %s but its body has type %s",
				def.Name, declared, resultType)
		}
		resultType = declared
	}
	if resultType == nil {
		resultType = named(typeAny)
	}
	out.ReturnType = elm.TypeSpec{TypeSpecifier: resultType}
	return out
}

func (lc *libContext) annotateDef(e *elm.Element, span diagnostics.Span, resultType elm.TypeSpecifier) {
	if !lc.t.options.Annotations {
		return
	}
	if n, ok := namedName(resultType); ok {
		e.ResultType = n
	}
	e.Locator = fmt.Sprintf("%d:%d", span.Line, span.Column)
}

func (t *Translator) translateLibrary(src *resolver.Source, sofar *Result) (*Translated, error) {
	lc := &libContext{
		t:           t,
		src:         src,
		system:      modelinfo.SystemRegistry(),
		includes:    map[string]*Translated{},
		parameters:  map[string]elm.TypeSpecifier{},
		valuesets:   map[string]bool{},
		codesystems: map[string]bool{},
		codes:       map[string]bool{},
		concepts:    map[string]bool{},
		defines:     map[string]elm.TypeSpecifier{},
		functions:   map[string][]*elm.ExpressionDef{},
	}
	for _, inc := range src.Library.Includes {
		dep, ok := sofar.byName[inc.Library.String()]
		if !ok {
			return nil, diagnostics.New(
				diagnostics.KindResolution, diagnostics.CodeLibraryNotFound,
				"include %s was not resolved", inc.Library.String())
		}
		lc.includes[inc.LocalName()] = dep
	}

	out, err := lc.translateLibrary()
	if err != nil {
		return nil, err
	}
	return &Translated{Source: src, ELM: out, ctx: lc}, nil
}

func accessLevel(a ast.AccessModifier) string {
	if a == ast.AccessPrivate {
		return "Private"
	}
	return "Public"
}

func setResultType(e elm.Expression, name string) {
	elm.ElementOf(e).ResultType = name
}

func setLocator(e elm.Expression, locator string) {
	elm.ElementOf(e).Locator = locator
}
