package translator

import (
	"github.com/DAMEDIC/cql-engine-go/ast"
	"github.com/DAMEDIC/cql-engine-go/diagnostics"
	"github.com/DAMEDIC/cql-engine-go/elm"
	"github.com/DAMEDIC/cql-engine-go/modelinfo"
	"github.com/DAMEDIC/cql-engine-go/system"
)

// expression lowers one AST expression, returning the ELM node and its
// resolved type. Errors are accumulated on the context; the returned
// node is a typed null so checking can continue.
func (lc *libContext) expression(e ast.Expression) (elm.Expression, elm.TypeSpecifier) {
	switch x := e.(type) {
	case *ast.Literal:
		return lc.literal(x)
	case *ast.QuantityLiteral:
		return lc.quantityLiteral(x)
	case *ast.RatioLiteral:
		num, _ := lc.quantityLiteral(x.Numerator)
		den, _ := lc.quantityLiteral(x.Denominator)
		r := mustNew("Ratio").(*elm.Ratio)
		r.Numerator = num.(*elm.Quantity)
		r.Denominator = den.(*elm.Quantity)
		lc.annotate(r, x.Span(), named(typeRatio))
		return r, named(typeRatio)
	case *ast.IdentifierRef:
		return lc.identifierRef(x)
	case *ast.PropertyAccess:
		return lc.propertyAccess(x)
	case *ast.Indexer:
		return lc.indexer(x)
	case *ast.FunctionCall:
		return lc.functionCall(x)
	case *ast.UnaryExpr:
		return lc.unaryExpr(x)
	case *ast.BinaryExpr:
		return lc.binaryExpr(x)
	case *ast.IfExpr:
		return lc.ifExpr(x)
	case *ast.CaseExpr:
		return lc.caseExpr(x)
	case *ast.IntervalSelector:
		return lc.intervalSelector(x)
	case *ast.ListSelector:
		return lc.listSelector(x)
	case *ast.TupleSelector:
		return lc.tupleSelector(x)
	case *ast.InstanceSelector:
		return lc.instanceSelector(x)
	case *ast.CodeSelector:
		return lc.codeSelector(x)
	case *ast.ConceptSelector:
		return lc.conceptSelector(x)
	case *ast.TypeExpr:
		return lc.typeExpr(x)
	case *ast.Retrieve:
		return lc.retrieve(x)
	case *ast.Query:
		return lc.query(x)
	case *ast.ComponentExpr:
		return lc.componentExpr(x)
	case *ast.DurationExpr:
		return lc.durationExpr(x)
	case *ast.MinMaxExpr:
		kind := "MinValue"
		if x.Maximum {
			kind = "MaxValue"
		}
		t := lc.typeFromAST(x.Type)
		n, _ := namedName(t)
		node := mustNew(kind)
		if mv, ok := node.(*elm.MinValue); ok {
			mv.ValueType = valueTypeURI(n)
		}
		if mv, ok := node.(*elm.MaxValue); ok {
			mv.ValueType = valueTypeURI(n)
		}
		lc.annotate(node, x.Span(), t)
		return node, t
	default:
		lc.errorAt(e.Span(), diagnostics.CodeTypeMismatch, "unsupported expression")
		return lc.nullNode(e.Span()), named(typeAny)
	}
}

func mustNew(kind string) elm.Expression {
	e, err := elm.NewExpression(kind)
	if err != nil {
		panic(err)
	}
	return e
}

func (lc *libContext) nullNode(span diagnostics.Span) elm.Expression {
	n := mustNew("Null")
	lc.annotate(n, span, named(typeAny))
	return n
}

func (lc *libContext) literal(x *ast.Literal) (elm.Expression, elm.TypeSpecifier) {
	var typeName string
	switch x.Kind {
	case ast.LiteralNull:
		return lc.nullNode(x.Span()), named(typeAny)
	case ast.LiteralBoolean:
		typeName = typeBoolean
	case ast.LiteralInteger:
		typeName = typeInteger
	case ast.LiteralLong:
		typeName = typeLong
	case ast.LiteralDecimal:
		typeName = typeDecimal
	case ast.LiteralString:
		typeName = typeString
	case ast.LiteralDate:
		typeName = typeDate
	case ast.LiteralDateTime:
		typeName = typeDateTime
		lc.checkFractionDigits(x)
	case ast.LiteralTime:
		typeName = typeTime
		lc.checkFractionDigits(x)
	}
	lit := mustNew("Literal").(*elm.Literal)
	lit.ValueType = valueTypeURI(typeName)
	lit.Value = x.Text
	lc.annotate(lit, x.Span(), named(typeName))
	return lit, named(typeName)
}

// checkFractionDigits enforces the millisecond bound: time literals may
// carry at most three fractional second digits. The parser accepts
// more; rejection is a semantic error.
func (lc *libContext) checkFractionDigits(x *ast.Literal) {
	if system.FractionalSecondDigits(x.Text) > 3 {
		lc.errorAt(x.Span(), diagnostics.CodeTimePrecisionOverflow,
			"time literal `%s` has more than three fractional second digits", x.Text)
	}
}

func (lc *libContext) quantityLiteral(x *ast.QuantityLiteral) (elm.Expression, elm.TypeSpecifier) {
	q := mustNew("Quantity").(*elm.Quantity)
	q.Value = x.Value
	q.Unit = x.Unit
	lc.annotate(q, x.Span(), named(typeQuantity))
	return q, named(typeQuantity)
}

func (lc *libContext) identifierRef(x *ast.IdentifierRef) (elm.Expression, elm.TypeSpecifier) {
	name := x.Name

	// locals shadow library-level definitions
	if t, ok := lc.lookupAlias(name); ok {
		ref := mustNew("AliasRef").(*elm.AliasRef)
		ref.Name = name
		lc.annotate(ref, x.Span(), t)
		return ref, t
	}
	if t, ok := lc.lookupLet(name); ok {
		ref := mustNew("QueryLetRef").(*elm.QueryLetRef)
		ref.Name = name
		lc.annotate(ref, x.Span(), t)
		return ref, t
	}
	if t, ok := lc.lookupOperand(name); ok {
		ref := mustNew("OperandRef").(*elm.OperandRef)
		ref.Name = name
		lc.annotate(ref, x.Span(), t)
		return ref, t
	}

	if t, ok := lc.defines[name]; ok {
		ref := mustNew("ExpressionRef").(*elm.ExpressionRef)
		ref.Name = name
		lc.annotate(ref, x.Span(), t)
		return ref, t
	}
	if t, ok := lc.parameters[name]; ok {
		ref := mustNew("ParameterRef").(*elm.ParameterRef)
		ref.Name = name
		lc.annotate(ref, x.Span(), t)
		return ref, t
	}
	if lc.valuesets[name] {
		ref := mustNew("ValueSetRef").(*elm.ValueSetRef)
		ref.Name = name
		lc.annotate(ref, x.Span(), named(typeValueSet))
		return ref, named(typeValueSet)
	}
	if lc.codes[name] {
		ref := mustNew("CodeRef").(*elm.CodeRef)
		ref.Name = name
		lc.annotate(ref, x.Span(), named(typeCode))
		return ref, named(typeCode)
	}
	if lc.concepts[name] {
		ref := mustNew("ConceptRef").(*elm.ConceptRef)
		ref.Name = name
		lc.annotate(ref, x.Span(), named(typeConcept))
		return ref, named(typeConcept)
	}
	if lc.codesystems[name] {
		ref := mustNew("CodeSystemRef").(*elm.CodeSystemRef)
		ref.Name = name
		lc.annotate(ref, x.Span(), named("System.CodeSystem"))
		return ref, named("System.CodeSystem")
	}

	// the context resource, e.g. `Patient` inside `context Patient`
	if name == lc.currentContext && lc.model != nil {
		if t, ok := lc.model.GetType(name); ok {
			ref := mustNew("ExpressionRef").(*elm.ExpressionRef)
			ref.Name = name
			resultType := named(t.QualifiedName())
			lc.annotate(ref, x.Span(), resultType)
			return ref, resultType
		}
	}

	if _, ok := lc.includes[name]; ok {
		lc.errorAt(x.Span(), diagnostics.CodeUnresolvedIdentifier,
			"reference to library `%s` must be qualified with a definition name", name)
		return lc.nullNode(x.Span()), named(typeAny)
	}

	lc.errorAt(x.Span(), diagnostics.CodeUnresolvedIdentifier,
		"could not resolve identifier `%s`", name)
	return lc.nullNode(x.Span()), named(typeAny)
}

// qualifiedRef resolves `alias.Name` against an included library's
// public definitions.
func (lc *libContext) qualifiedRef(span diagnostics.Span, alias string, dep *Translated, name string) (elm.Expression, elm.TypeSpecifier) {
	depCtx := dep.ctx
	if t, ok := depCtx.defines[name]; ok {
		ref := mustNew("ExpressionRef").(*elm.ExpressionRef)
		ref.Name = name
		ref.LibraryName = alias
		lc.annotate(ref, span, t)
		return ref, t
	}
	if t, ok := depCtx.parameters[name]; ok {
		ref := mustNew("ParameterRef").(*elm.ParameterRef)
		ref.Name = name
		ref.LibraryName = alias
		lc.annotate(ref, span, t)
		return ref, t
	}
	if depCtx.valuesets[name] {
		ref := mustNew("ValueSetRef").(*elm.ValueSetRef)
		ref.Name = name
		ref.LibraryName = alias
		lc.annotate(ref, span, named(typeValueSet))
		return ref, named(typeValueSet)
	}
	if depCtx.codes[name] {
		ref := mustNew("CodeRef").(*elm.CodeRef)
		ref.Name = name
		ref.LibraryName = alias
		lc.annotate(ref, span, named(typeCode))
		return ref, named(typeCode)
	}
	if depCtx.concepts[name] {
		ref := mustNew("ConceptRef").(*elm.ConceptRef)
		ref.Name = name
		ref.LibraryName = alias
		lc.annotate(ref, span, named(typeConcept))
		return ref, named(typeConcept)
	}
	lc.errorAt(span, diagnostics.CodeUnresolvedIdentifier,
		"library `%s` has no public definition `%s`", alias, name)
	return lc.nullNode(span), named(typeAny)
}

func (lc *libContext) propertyAccess(x *ast.PropertyAccess) (elm.Expression, elm.TypeSpecifier) {
	// alias-qualified reference into an included library
	if ref, ok := x.Source.(*ast.IdentifierRef); ok {
		if dep, isLib := lc.includes[ref.Name]; isLib {
			return lc.qualifiedRef(x.Span(), ref.Name, dep, x.Name)
		}
	}

	source, sourceType := lc.expression(x.Source)
	prop := mustNew("Property").(*elm.Property)
	prop.Path = x.Name

	// direct alias access stays scope-based for query evaluation
	if aliasRef, ok := source.(*elm.AliasRef); ok {
		prop.Scope = aliasRef.Name
	} else {
		prop.Source = elm.E(source)
	}

	resultType := lc.propertyType(x.Span(), sourceType, x.Name)
	lc.annotate(prop, x.Span(), resultType)
	return prop, resultType
}

// propertyType resolves a property against tuples, model classes and
// System structured types, walking inheritance.
func (lc *libContext) propertyType(span diagnostics.Span, sourceType elm.TypeSpecifier, property string) elm.TypeSpecifier {
	// property access on a list projects over its elements
	if elem, ok := elementType(sourceType); ok {
		inner := lc.propertyType(span, elem, property)
		return listOf(inner)
	}

	if tuple, ok := sourceType.(*elm.TupleTypeSpecifier); ok {
		for _, e := range tuple.Elements {
			if e.Name == property {
				return e.Type.TypeSpecifier
			}
		}
		lc.errorAt(span, diagnostics.CodeUnresolvedIdentifier,
			"tuple has no element `%s`", property)
		return named(typeAny)
	}

	name, ok := namedName(sourceType)
	if !ok {
		return named(typeAny)
	}
	if name == typeAny {
		return named(typeAny)
	}
	for _, registry := range lc.registries() {
		if typeName, isList, found := registry.GetPropertyType(name, property); found {
			t := named(lc.resolveTypeName(typeName))
			if isList {
				return listOf(t)
			}
			return t
		}
	}
	lc.errorAt(span, diagnostics.CodeUnresolvedIdentifier,
		"type %s has no property `%s`", name, property)
	return named(typeAny)
}

func (lc *libContext) registries() []*modelinfo.Registry {
	out := []*modelinfo.Registry{lc.system}
	if lc.model != nil {
		out = append(out, lc.model)
	}
	return out
}

func (lc *libContext) indexer(x *ast.Indexer) (elm.Expression, elm.TypeSpecifier) {
	source, sourceType := lc.expression(x.Source)
	index, indexType := lc.expression(x.Index)
	if !isNamed(indexType, typeInteger) && !isNamed(indexType, typeAny) {
		lc.errorAt(x.Index.Span(), diagnostics.CodeTypeMismatch,
			"list index must be Integer, got %s", indexType)
	}
	node, _ := elm.NewBinary("Indexer", source, index)
	resultType := named(typeAny)
	if elem, ok := elementType(sourceType); ok {
		resultType = elem
	} else if isNamed(sourceType, typeString) {
		resultType = named(typeString)
	}
	lc.annotate(node, x.Span(), resultType)
	return node, resultType
}

func (lc *libContext) ifExpr(x *ast.IfExpr) (elm.Expression, elm.TypeSpecifier) {
	cond, condType := lc.expression(x.Condition)
	lc.requireBoolean(x.Condition.Span(), condType, "if condition")
	then, thenType := lc.expression(x.Then)
	els, elseType := lc.expression(x.Else)

	node := mustNew("If").(*elm.If)
	node.Condition = elm.E(cond)
	node.Then = elm.E(then)
	node.Else = elm.E(els)
	resultType := lc.commonType(thenType, elseType)
	lc.annotate(node, x.Span(), resultType)
	return node, resultType
}

func (lc *libContext) caseExpr(x *ast.CaseExpr) (elm.Expression, elm.TypeSpecifier) {
	node := mustNew("Case").(*elm.Case)
	var comparandType elm.TypeSpecifier
	if x.Comparand != nil {
		comparand, t := lc.expression(x.Comparand)
		node.Comparand = elm.E(comparand)
		comparandType = t
	}
	var resultType elm.TypeSpecifier
	for _, item := range x.Items {
		when, whenType := lc.expression(item.When)
		if x.Comparand == nil {
			lc.requireBoolean(item.When.Span(), whenType, "case when")
		} else if comparandType != nil && !lc.comparable(comparandType, whenType) {
			lc.errorAt(item.When.Span(), diagnostics.CodeTypeMismatch,
				"case comparand of type %s can not match %s", comparandType, whenType)
		}
		then, thenType := lc.expression(item.Then)
		resultType = lc.commonType(resultType, thenType)
		node.Items = append(node.Items, elm.CaseItem{When: elm.E(when), Then: elm.E(then)})
	}
	els, elseType := lc.expression(x.Else)
	node.Else = elm.E(els)
	resultType = lc.commonType(resultType, elseType)
	lc.annotate(node, x.Span(), resultType)
	return node, resultType
}

// commonType unifies branch types: equal types stay, promotable types
// promote, anything else widens to Any.
func (lc *libContext) commonType(a, b elm.TypeSpecifier) elm.TypeSpecifier {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case sameType(a, b):
		return a
	}
	if common, ok := unifyNumeric(a, b); ok {
		return common
	}
	if d := lc.promotionDistance(a, b); d >= 0 {
		return b
	}
	if d := lc.promotionDistance(b, a); d >= 0 {
		return a
	}
	return named(typeAny)
}

func (lc *libContext) comparable(a, b elm.TypeSpecifier) bool {
	if isNamed(a, typeAny) || isNamed(b, typeAny) {
		return true
	}
	return !isNamed(lc.commonType(a, b), typeAny)
}

func (lc *libContext) requireBoolean(span diagnostics.Span, t elm.TypeSpecifier, what string) {
	if !isNamed(t, typeBoolean) && !isNamed(t, typeAny) {
		lc.errorAt(span, diagnostics.CodeTypeMismatch,
			"%s must be Boolean, got %s", what, t)
	}
}

func (lc *libContext) intervalSelector(x *ast.IntervalSelector) (elm.Expression, elm.TypeSpecifier) {
	low, lowType := lc.expression(x.Low)
	high, highType := lc.expression(x.High)

	point := lc.commonType(lowType, highType)
	if isNamed(point, typeAny) && !sameType(lowType, highType) {
		lc.errorAt(x.Span(), diagnostics.CodeTypeMismatch,
			"interval boundaries have incompatible types %s and %s", lowType, highType)
	}
	low = lc.convert(low, lowType, point)
	high = lc.convert(high, highType, point)

	node := mustNew("Interval").(*elm.Interval)
	node.Low = elm.E(low)
	node.High = elm.E(high)
	node.LowClosed = x.LowClosed
	node.HighClosed = x.HighClosed
	resultType := intervalOf(point)
	lc.annotate(node, x.Span(), resultType)
	return node, resultType
}

func (lc *libContext) listSelector(x *ast.ListSelector) (elm.Expression, elm.TypeSpecifier) {
	node := mustNew("List").(*elm.List)
	declared := lc.typeFromAST(x.ElementType)
	var elemType elm.TypeSpecifier = declared
	for _, e := range x.Elements {
		expr, t := lc.expression(e)
		node.Elements = append(node.Elements, elm.E(expr))
		if !isNullLiteral(expr) {
			elemType = lc.commonType(elemType, t)
		}
	}
	if elemType == nil {
		elemType = named(typeAny)
	}
	if declared != nil {
		node.TypeSpecifier = elm.TypeSpec{TypeSpecifier: declared}
		elemType = declared
	}
	resultType := listOf(elemType)
	lc.annotate(node, x.Span(), resultType)
	return node, resultType
}

func isNullLiteral(e elm.Expression) bool {
	_, ok := e.(*elm.Null)
	return ok
}

func (lc *libContext) tupleSelector(x *ast.TupleSelector) (elm.Expression, elm.TypeSpecifier) {
	node := mustNew("Tuple").(*elm.Tuple)
	spec := &elm.TupleTypeSpecifier{Type: "TupleTypeSpecifier"}
	for _, e := range x.Elements {
		expr, t := lc.expression(e.Value)
		node.Elements = append(node.Elements, elm.TupleElement{Name: e.Name, Value: elm.E(expr)})
		spec.Elements = append(spec.Elements, elm.TupleElementDefinition{
			Name: e.Name, Type: elm.TypeSpec{TypeSpecifier: t},
		})
	}
	lc.annotate(node, x.Span(), spec)
	return node, spec
}

func (lc *libContext) instanceSelector(x *ast.InstanceSelector) (elm.Expression, elm.TypeSpecifier) {
	typeName := lc.resolveTypeName(x.Type.String())
	node := mustNew("Instance").(*elm.Instance)
	node.ClassType = typeName
	for _, e := range x.Elements {
		expr, valueType := lc.expression(e.Value)
		if _, _, found := lc.findProperty(typeName, e.Name); !found {
			lc.errorAt(e.Span(), diagnostics.CodeUnresolvedIdentifier,
				"type %s has no property `%s`", typeName, e.Name)
		}
		_ = valueType
		node.Elements = append(node.Elements, elm.InstanceElement{Name: e.Name, Value: elm.E(expr)})
	}
	resultType := named(typeName)
	lc.annotate(node, x.Span(), resultType)
	return node, resultType
}

func (lc *libContext) findProperty(typeName, property string) (string, bool, bool) {
	if t, isList, ok := lc.system.GetPropertyType(typeName, property); ok {
		return t, isList, true
	}
	if lc.model != nil {
		if t, isList, ok := lc.model.GetPropertyType(typeName, property); ok {
			return t, isList, true
		}
	}
	return "", false, false
}

func (lc *libContext) codeSelector(x *ast.CodeSelector) (elm.Expression, elm.TypeSpecifier) {
	node := mustNew("Code").(*elm.Code)
	node.Code = x.Code
	node.Display = x.Display
	if !lc.codesystems[x.CodeSystem] {
		lc.errorAt(x.Span(), diagnostics.CodeUnresolvedIdentifier,
			"could not resolve codesystem `%s`", x.CodeSystem)
	}
	ref := mustNew("CodeSystemRef").(*elm.CodeSystemRef)
	ref.Name = x.CodeSystem
	node.System = ref
	lc.annotate(node, x.Span(), named(typeCode))
	return node, named(typeCode)
}

func (lc *libContext) conceptSelector(x *ast.ConceptSelector) (elm.Expression, elm.TypeSpecifier) {
	node := mustNew("Concept").(*elm.Concept)
	node.Display = x.Display
	for _, c := range x.Codes {
		code, _ := lc.codeSelector(c)
		node.Codes = append(node.Codes, code.(*elm.Code))
	}
	lc.annotate(node, x.Span(), named(typeConcept))
	return node, named(typeConcept)
}

func (lc *libContext) typeExpr(x *ast.TypeExpr) (elm.Expression, elm.TypeSpecifier) {
	operand, operandType := lc.expression(x.Operand)

	switch x.Op {
	case ast.TypeOpIs:
		node := mustNew("Is").(*elm.Is)
		node.Operand = elm.E(operand)
		node.IsType = elm.TypeSpec{TypeSpecifier: lc.typeFromAST(x.Type)}
		lc.annotate(node, x.Span(), named(typeBoolean))
		return node, named(typeBoolean)

	case ast.TypeOpAs, ast.TypeOpCast:
		target := lc.typeFromAST(x.Type)
		node := mustNew("As").(*elm.As)
		node.Operand = elm.E(operand)
		node.AsType = elm.TypeSpec{TypeSpecifier: target}
		node.Strict = x.Op == ast.TypeOpCast
		lc.annotate(node, x.Span(), target)
		return node, target

	default: // convert
		if x.Unit != "" {
			node := mustNew("ConvertQuantity").(*elm.ConvertQuantity)
			node.Operand = elm.E(lc.convert(operand, operandType, named(typeQuantity)))
			node.Unit = x.Unit
			lc.annotate(node, x.Span(), named(typeQuantity))
			return node, named(typeQuantity)
		}
		target := lc.typeFromAST(x.Type)
		targetName, _ := namedName(target)
		kind, ok := conversionKind(targetName)
		if !ok {
			lc.errorAt(x.Span(), diagnostics.CodeTypeMismatch,
				"can not convert to type %s", target)
			return lc.nullNode(x.Span()), named(typeAny)
		}
		node, _ := elm.NewUnary(kind, operand)
		lc.annotate(node, x.Span(), target)
		return node, target
	}
}

func conversionKind(typeName string) (string, bool) {
	switch typeName {
	case typeBoolean:
		return "ToBoolean", true
	case typeInteger:
		return "ToInteger", true
	case typeLong:
		return "ToLong", true
	case typeDecimal:
		return "ToDecimal", true
	case typeString:
		return "ToString", true
	case typeDate:
		return "ToDate", true
	case typeDateTime:
		return "ToDateTime", true
	case typeTime:
		return "ToTime", true
	case typeQuantity:
		return "ToQuantity", true
	case typeConcept:
		return "ToConcept", true
	default:
		return "", false
	}
}

func (lc *libContext) componentExpr(x *ast.ComponentExpr) (elm.Expression, elm.TypeSpecifier) {
	operand, operandType := lc.expression(x.Operand)
	if !isTemporalType(operandType) && !isNamed(operandType, typeAny) {
		lc.errorAt(x.Span(), diagnostics.CodeTypeMismatch,
			"can not extract `%s` from %s", x.Component, operandType)
	}
	switch x.Component {
	case "date":
		node, _ := elm.NewUnary("DateFrom", operand)
		lc.annotate(node, x.Span(), named(typeDate))
		return node, named(typeDate)
	case "time":
		node, _ := elm.NewUnary("TimeFrom", operand)
		lc.annotate(node, x.Span(), named(typeTime))
		return node, named(typeTime)
	default:
		node, _ := elm.NewUnary("DateTimeComponentFrom", operand)
		node.(*elm.DateTimeComponentFrom).Precision = x.Component
		lc.annotate(node, x.Span(), named(typeInteger))
		return node, named(typeInteger)
	}
}

func (lc *libContext) durationExpr(x *ast.DurationExpr) (elm.Expression, elm.TypeSpecifier) {
	low, lowType := lc.expression(x.Low)
	high, highType := lc.expression(x.High)
	for _, t := range []elm.TypeSpecifier{lowType, highType} {
		if !isTemporalType(t) && !isNamed(t, typeAny) {
			lc.errorAt(x.Span(), diagnostics.CodeTypeMismatch,
				"duration operands must be dates or times, got %s", t)
		}
	}
	kind := "DurationBetween"
	if x.IsDifference {
		kind = "DifferenceBetween"
	}
	node, _ := elm.NewBinary(kind, low, high)
	setBinaryPrecision(node, x.Precision)
	lc.annotate(node, x.Span(), named(typeInteger))
	return node, named(typeInteger)
}

func setBinaryPrecision(e elm.Expression, precision string) {
	if precision == "" {
		return
	}
	switch n := e.(type) {
	case *elm.DurationBetween:
		n.Precision = precision
	case *elm.DifferenceBetween:
		n.Precision = precision
	case *elm.Before:
		n.Precision = precision
	case *elm.After:
		n.Precision = precision
	case *elm.SameAs:
		n.Precision = precision
	case *elm.SameOrBefore:
		n.Precision = precision
	case *elm.SameOrAfter:
		n.Precision = precision
	case *elm.In:
		n.Precision = precision
	case *elm.Contains:
		n.Precision = precision
	case *elm.Includes:
		n.Precision = precision
	case *elm.IncludedIn:
		n.Precision = precision
	}
}
