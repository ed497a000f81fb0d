package translator

import (
	"github.com/DAMEDIC/cql-engine-go/ast"
	"github.com/DAMEDIC/cql-engine-go/diagnostics"
	"github.com/DAMEDIC/cql-engine-go/elm"
)

func (lc *libContext) functionCall(x *ast.FunctionCall) (elm.Expression, elm.TypeSpecifier) {
	args := make([]elm.Expression, len(x.Args))
	argTypes := make([]elm.TypeSpecifier, len(x.Args))
	for i, a := range x.Args {
		args[i], argTypes[i] = lc.expression(a)
	}

	if x.Qualifier != "" {
		if dep, ok := lc.includes[x.Qualifier]; ok {
			return lc.qualifiedCall(x, dep, args, argTypes)
		}
		lc.errorAt(x.Span(), diagnostics.CodeUnresolvedIdentifier,
			"could not resolve library `%s`", x.Qualifier)
		return lc.nullNode(x.Span()), named(typeAny)
	}

	if node, t, ok := lc.builtinCall(x, args, argTypes); ok {
		return node, t
	}

	if overloads, ok := lc.functions[x.Name]; ok {
		return lc.userCall(x, "", overloads, args, argTypes)
	}

	lc.errorAt(x.Span(), diagnostics.CodeUnresolvedIdentifier,
		"could not resolve function `%s` with %d argument(s)", x.Name, len(args))
	return lc.nullNode(x.Span()), named(typeAny)
}

func (lc *libContext) qualifiedCall(x *ast.FunctionCall, dep *Translated, args []elm.Expression, argTypes []elm.TypeSpecifier) (elm.Expression, elm.TypeSpecifier) {
	overloads, ok := dep.ctx.functions[x.Name]
	if !ok {
		lc.errorAt(x.Span(), diagnostics.CodeUnresolvedIdentifier,
			"library `%s` has no function `%s`", x.Qualifier, x.Name)
		return lc.nullNode(x.Span()), named(typeAny)
	}
	return lc.userCall(x, x.Qualifier, overloads, args, argTypes)
}

// userCall selects the best overload: exact signatures win, then the
// fewest implicit conversions, then the shallowest promotion, then
// declaration order. Only overloads with identical signatures that tie
// for best are reported as ambiguous.
func (lc *libContext) userCall(x *ast.FunctionCall, libraryName string, overloads []*elm.ExpressionDef, args []elm.Expression, argTypes []elm.TypeSpecifier) (elm.Expression, elm.TypeSpecifier) {
	type candidate struct {
		def         *elm.ExpressionDef
		conversions int
		cost        int
	}
	var candidates []candidate
	for _, def := range overloads {
		if len(def.Operands) != len(args) {
			continue
		}
		conversions, cost := 0, 0
		viable := true
		for i, op := range def.Operands {
			d := lc.promotionDistance(argTypes[i], op.Type.TypeSpecifier)
			if d < 0 {
				viable = false
				break
			}
			if d > 0 {
				conversions++
			}
			cost += d
		}
		if viable {
			candidates = append(candidates, candidate{def, conversions, cost})
		}
	}

	if len(candidates) == 0 {
		lc.errorAt(x.Span(), diagnostics.CodeUnsupportedOperator,
			"no overload of `%s` matches argument types %s", x.Name, typeNames(argTypes))
		return lc.nullNode(x.Span()), named(typeAny)
	}

	best := candidates[0]
	ambiguous := false
	for _, c := range candidates[1:] {
		switch {
		case c.conversions < best.conversions ||
			(c.conversions == best.conversions && c.cost < best.cost):
			best = c
			ambiguous = false
		case c.conversions == best.conversions && c.cost == best.cost:
			// declaration order breaks remaining ties only across
			// different operand lists; identical signatures are
			// duplicates reported at definition time
			ambiguous = ambiguous || sameSignature(c.def, best.def)
		}
	}
	if ambiguous {
		lc.errorAt(x.Span(), diagnostics.CodeAmbiguousOverload,
			"call to `%s` is ambiguous for argument types %s", x.Name, typeNames(argTypes))
	}

	ref := mustNew("FunctionRef").(*elm.FunctionRef)
	ref.Name = x.Name
	ref.LibraryName = libraryName
	for i, a := range args {
		converted := lc.convert(a, argTypes[i], best.def.Operands[i].Type.TypeSpecifier)
		ref.Operands = append(ref.Operands, elm.E(converted))
	}
	resultType := best.def.ReturnType.TypeSpecifier
	if resultType == nil {
		resultType = named(typeAny)
	}
	lc.annotate(ref, x.Span(), resultType)
	return ref, resultType
}

func sameSignature(a, b *elm.ExpressionDef) bool {
	if len(a.Operands) != len(b.Operands) {
		return false
	}
	for i := range a.Operands {
		if !sameType(a.Operands[i].Type.TypeSpecifier, b.Operands[i].Type.TypeSpecifier) {
			return false
		}
	}
	return a != b
}

func typeNames(types []elm.TypeSpecifier) string {
	out := "("
	for i, t := range types {
		if i > 0 {
			out += ", "
		}
		out += t.String()
	}
	return out + ")"
}

// builtinCall translates the built-in operator library: aggregates,
// list selectors, math helpers, conversions and the evaluation clock.
func (lc *libContext) builtinCall(x *ast.FunctionCall, args []elm.Expression, argTypes []elm.TypeSpecifier) (elm.Expression, elm.TypeSpecifier, bool) {
	argc := len(args)

	arg := func(i int) elm.Expression { return args[i] }
	elemOf := func(i int) elm.TypeSpecifier {
		if e, ok := elementType(argTypes[i]); ok {
			return e
		}
		return named(typeAny)
	}

	aggregate := func(kind string, resultType elm.TypeSpecifier) (elm.Expression, elm.TypeSpecifier, bool) {
		if argc != 1 {
			return nil, nil, false
		}
		lc.requireList(x.Span(), argTypes[0], x.Name)
		node := mustNew(kind)
		setAggregateSource(node, arg(0))
		lc.annotate(node, x.Span(), resultType)
		return node, resultType, true
	}

	unary := func(kind string, resultType elm.TypeSpecifier) (elm.Expression, elm.TypeSpecifier, bool) {
		if argc != 1 {
			return nil, nil, false
		}
		node, err := elm.NewUnary(kind, arg(0))
		if err != nil {
			return nil, nil, false
		}
		lc.annotate(node, x.Span(), resultType)
		return node, resultType, true
	}

	switch x.Name {
	case "Count":
		return aggregate("Count", named(typeInteger))
	case "Sum":
		return aggregate("Sum", elemOf(0))
	case "Min":
		return aggregate("Min", elemOf(0))
	case "Max":
		return aggregate("Max", elemOf(0))
	case "Avg":
		return aggregate("Avg", named(typeDecimal))
	case "Median":
		return aggregate("Median", named(typeDecimal))
	case "StdDev":
		return aggregate("StdDev", named(typeDecimal))
	case "AllTrue":
		return aggregate("AllTrue", named(typeBoolean))
	case "AnyTrue":
		return aggregate("AnyTrue", named(typeBoolean))

	case "First", "Last":
		if argc != 1 {
			return nil, nil, false
		}
		lc.requireList(x.Span(), argTypes[0], x.Name)
		node := mustNew(x.Name)
		if f, ok := node.(*elm.First); ok {
			f.Source = elm.E(arg(0))
		}
		if l, ok := node.(*elm.Last); ok {
			l.Source = elm.E(arg(0))
		}
		resultType := elemOf(0)
		lc.annotate(node, x.Span(), resultType)
		return node, resultType, true

	case "Length":
		return unary("Length", named(typeInteger))

	case "Coalesce":
		if argc == 0 {
			return nil, nil, false
		}
		node := mustNew("Coalesce").(*elm.Coalesce)
		var resultType elm.TypeSpecifier
		for i, a := range args {
			node.Operands = append(node.Operands, elm.E(a))
			resultType = lc.commonType(resultType, argTypes[i])
		}
		lc.annotate(node, x.Span(), resultType)
		return node, resultType, true

	case "Exists":
		if argc != 1 {
			return nil, nil, false
		}
		return unary("Exists", named(typeBoolean))

	case "Abs":
		if argc != 1 || (!isNumericType(argTypes[0]) && !isNamed(argTypes[0], typeAny)) {
			return nil, nil, false
		}
		return unary("Abs", argTypes[0])

	case "Truncate":
		return unary("Truncate", named(typeInteger))

	case "Round":
		if argc < 1 || argc > 2 {
			return nil, nil, false
		}
		node := mustNew("Round").(*elm.Round)
		node.Operand = elm.E(arg(0))
		if argc == 2 {
			node.Precision = elm.E(arg(1))
		}
		lc.annotate(node, x.Span(), named(typeDecimal))
		return node, named(typeDecimal), true

	case "Today":
		if argc != 0 {
			return nil, nil, false
		}
		node := mustNew("Today")
		lc.annotate(node, x.Span(), named(typeDate))
		return node, named(typeDate), true
	case "Now":
		if argc != 0 {
			return nil, nil, false
		}
		node := mustNew("Now")
		lc.annotate(node, x.Span(), named(typeDateTime))
		return node, named(typeDateTime), true
	case "TimeOfDay":
		if argc != 0 {
			return nil, nil, false
		}
		node := mustNew("TimeOfDay")
		lc.annotate(node, x.Span(), named(typeTime))
		return node, named(typeTime), true

	case "ToBoolean", "ToInteger", "ToLong", "ToDecimal", "ToString",
		"ToDate", "ToDateTime", "ToTime", "ToQuantity", "ToConcept":
		if argc != 1 {
			return nil, nil, false
		}
		resultName := "System." + x.Name[2:]
		return unary(x.Name, named(resultName))

	case "Date":
		return lc.temporalConstructor(x, args, argTypes, typeDate)
	case "DateTime":
		return lc.temporalConstructor(x, args, argTypes, typeDateTime)
	case "Time":
		return lc.temporalConstructor(x, args, argTypes, typeTime)

	default:
		return nil, nil, false
	}
}

// temporalConstructor lowers Date(y, m, d)-style constructors to a
// FunctionRef the evaluator implements natively.
func (lc *libContext) temporalConstructor(x *ast.FunctionCall, args []elm.Expression, argTypes []elm.TypeSpecifier, resultName string) (elm.Expression, elm.TypeSpecifier, bool) {
	if len(args) == 0 {
		return nil, nil, false
	}
	for i, t := range argTypes {
		if !isNamed(t, typeInteger) && !isNamed(t, typeDecimal) && !isNamed(t, typeAny) {
			lc.errorAt(x.Args[i].Span(), diagnostics.CodeTypeMismatch,
				"%s component must be Integer, got %s", x.Name, t)
		}
	}
	ref := mustNew("FunctionRef").(*elm.FunctionRef)
	ref.Name = x.Name
	for _, a := range args {
		ref.Operands = append(ref.Operands, elm.E(a))
	}
	lc.annotate(ref, x.Span(), named(resultName))
	return ref, named(resultName), true
}

func setAggregateSource(e elm.Expression, source elm.Expression) {
	switch n := e.(type) {
	case *elm.Count:
		n.Source = elm.E(source)
	case *elm.Sum:
		n.Source = elm.E(source)
	case *elm.Min:
		n.Source = elm.E(source)
	case *elm.Max:
		n.Source = elm.E(source)
	case *elm.Avg:
		n.Source = elm.E(source)
	case *elm.Median:
		n.Source = elm.E(source)
	case *elm.StdDev:
		n.Source = elm.E(source)
	case *elm.AllTrue:
		n.Source = elm.E(source)
	case *elm.AnyTrue:
		n.Source = elm.E(source)
	}
}
