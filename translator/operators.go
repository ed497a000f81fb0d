package translator

import (
	"github.com/DAMEDIC/cql-engine-go/ast"
	"github.com/DAMEDIC/cql-engine-go/diagnostics"
	"github.com/DAMEDIC/cql-engine-go/elm"
)

func (lc *libContext) unaryExpr(x *ast.UnaryExpr) (elm.Expression, elm.TypeSpecifier) {
	operand, operandType := lc.expression(x.Operand)

	emit := func(kind string, resultType elm.TypeSpecifier) (elm.Expression, elm.TypeSpecifier) {
		node, err := elm.NewUnary(kind, operand)
		if err != nil {
			panic(err)
		}
		lc.annotate(node, x.Span(), resultType)
		return node, resultType
	}

	switch x.Op {
	case ast.UnaryNot:
		lc.requireBoolean(x.Operand.Span(), operandType, "not operand")
		return emit("Not", named(typeBoolean))

	case ast.UnaryExists:
		if _, ok := elementType(operandType); !ok && !isNamed(operandType, typeAny) {
			// exists over a scalar tests for non-null; lift to a list
			list := mustNew("List").(*elm.List)
			list.Elements = []elm.Expr{elm.E(operand)}
			operand = list
		}
		return emit("Exists", named(typeBoolean))

	case ast.UnaryNegate:
		if !isNumericType(operandType) && !isNamed(operandType, typeAny) {
			lc.unsupported(x.Span(), "-", operandType)
		}
		return emit("Negate", operandType)

	case ast.UnaryPlus:
		return operand, operandType

	case ast.UnaryIsNull:
		return emit("IsNull", named(typeBoolean))

	case ast.UnaryIsNotNull:
		inner, _ := elm.NewUnary("IsNull", operand)
		node, _ := elm.NewUnary("Not", inner)
		lc.annotate(node, x.Span(), named(typeBoolean))
		return node, named(typeBoolean)

	case ast.UnaryIsTrue:
		return emit("IsTrue", named(typeBoolean))

	case ast.UnaryIsFalse:
		return emit("IsFalse", named(typeBoolean))

	case ast.UnaryDistinct:
		lc.requireList(x.Operand.Span(), operandType, "distinct")
		return emit("Distinct", operandType)

	case ast.UnaryFlatten:
		lc.requireList(x.Operand.Span(), operandType, "flatten")
		if elem, ok := elementType(operandType); ok {
			if inner, ok := elementType(elem); ok {
				return emit("Flatten", listOf(inner))
			}
		}
		return emit("Flatten", operandType)

	case ast.UnarySingleton:
		lc.requireList(x.Operand.Span(), operandType, "singleton from")
		if elem, ok := elementType(operandType); ok {
			return emit("SingletonFrom", elem)
		}
		return emit("SingletonFrom", named(typeAny))

	case ast.UnaryStart, ast.UnaryEnd, ast.UnaryPointFrom:
		kind := map[ast.UnaryOp]string{
			ast.UnaryStart:     "Start",
			ast.UnaryEnd:       "End",
			ast.UnaryPointFrom: "PointFrom",
		}[x.Op]
		if point, ok := pointType(operandType); ok {
			return emit(kind, point)
		}
		if !isNamed(operandType, typeAny) {
			lc.unsupported(x.Span(), string(x.Op), operandType)
		}
		return emit(kind, named(typeAny))

	case ast.UnaryWidth:
		if point, ok := pointType(operandType); ok {
			return emit("Width", point)
		}
		if !isNamed(operandType, typeAny) {
			lc.unsupported(x.Span(), "width of", operandType)
		}
		return emit("Width", named(typeAny))

	case ast.UnaryPredecessor:
		return emit("Predecessor", operandType)

	case ast.UnarySuccessor:
		return emit("Successor", operandType)

	case ast.UnaryCollapse:
		lc.requireList(x.Operand.Span(), operandType, "collapse")
		return emit("Collapse", operandType)

	default:
		lc.unsupported(x.Span(), string(x.Op), operandType)
		return lc.nullNode(x.Span()), named(typeAny)
	}
}

func (lc *libContext) requireList(span diagnostics.Span, t elm.TypeSpecifier, what string) {
	if _, ok := elementType(t); !ok && !isNamed(t, typeAny) {
		lc.errorAt(span, diagnostics.CodeTypeMismatch,
			"%s requires a list, got %s", what, t)
	}
}

func (lc *libContext) unsupported(span diagnostics.Span, op string, types ...elm.TypeSpecifier) {
	names := ""
	for i, t := range types {
		if i > 0 {
			names += ", "
		}
		names += t.String()
	}
	lc.errorAt(span, diagnostics.CodeUnsupportedOperator,
		"operator `%s` is not defined for %s", op, names)
}

// binaryKinds maps AST operators to their ELM node names.
var binaryKinds = map[ast.BinaryOp]string{
	ast.BinaryOr:                 "Or",
	ast.BinaryAnd:                "And",
	ast.BinaryXor:                "Xor",
	ast.BinaryImplies:            "Implies",
	ast.BinaryEqual:              "Equal",
	ast.BinaryNotEqual:           "NotEqual",
	ast.BinaryEquivalent:         "Equivalent",
	ast.BinaryLess:               "Less",
	ast.BinaryLessOrEqual:        "LessOrEqual",
	ast.BinaryGreater:            "Greater",
	ast.BinaryGreaterOrEqual:     "GreaterOrEqual",
	ast.BinaryAdd:                "Add",
	ast.BinarySubtract:           "Subtract",
	ast.BinaryMultiply:           "Multiply",
	ast.BinaryDivide:             "Divide",
	ast.BinaryTruncatedDivide:    "TruncatedDivide",
	ast.BinaryModulo:             "Modulo",
	ast.BinaryPower:              "Power",
	ast.BinaryIn:                 "In",
	ast.BinaryContains:           "Contains",
	ast.BinaryUnion:              "Union",
	ast.BinaryIntersect:          "Intersect",
	ast.BinaryExcept:             "Except",
	ast.BinaryIncludes:           "Includes",
	ast.BinaryIncludedIn:         "IncludedIn",
	ast.BinaryProperlyIncludes:   "ProperIncludes",
	ast.BinaryProperlyIncludedIn: "ProperIncludedIn",
	ast.BinaryDuring:             "IncludedIn",
	ast.BinaryBefore:             "Before",
	ast.BinaryAfter:              "After",
	ast.BinaryMeets:              "Meets",
	ast.BinaryMeetsBefore:        "MeetsBefore",
	ast.BinaryMeetsAfter:         "MeetsAfter",
	ast.BinaryOverlaps:           "Overlaps",
	ast.BinaryOverlapsBefore:     "OverlapsBefore",
	ast.BinaryOverlapsAfter:      "OverlapsAfter",
	ast.BinaryStarts:             "Starts",
	ast.BinaryEnds:               "Ends",
	ast.BinarySameAs:             "SameAs",
	ast.BinarySameOrBefore:       "SameOrBefore",
	ast.BinarySameOrAfter:        "SameOrAfter",
}

func (lc *libContext) binaryExpr(x *ast.BinaryExpr) (elm.Expression, elm.TypeSpecifier) {
	left, leftType := lc.expression(x.Left)
	right, rightType := lc.expression(x.Right)

	build := func(kind string, resultType elm.TypeSpecifier) (elm.Expression, elm.TypeSpecifier) {
		node, err := elm.NewBinary(kind, left, right)
		if err != nil {
			panic(err)
		}
		setBinaryPrecision(node, x.Precision)
		lc.annotate(node, x.Span(), resultType)
		return node, resultType
	}

	switch x.Op {
	case ast.BinaryAnd, ast.BinaryOr, ast.BinaryXor, ast.BinaryImplies:
		lc.requireBoolean(x.Left.Span(), leftType, "logical operand")
		lc.requireBoolean(x.Right.Span(), rightType, "logical operand")
		return build(binaryKinds[x.Op], named(typeBoolean))

	case ast.BinaryEqual, ast.BinaryNotEqual, ast.BinaryEquivalent, ast.BinaryNotEquivalent:
		if !lc.comparable(leftType, rightType) {
			lc.unsupported(x.Span(), string(x.Op), leftType, rightType)
		}
		common := lc.commonType(leftType, rightType)
		left = lc.convert(left, leftType, common)
		right = lc.convert(right, rightType, common)
		if x.Op == ast.BinaryNotEquivalent {
			inner, _ := elm.NewBinary("Equivalent", left, right)
			node, _ := elm.NewUnary("Not", inner)
			lc.annotate(node, x.Span(), named(typeBoolean))
			return node, named(typeBoolean)
		}
		return build(binaryKinds[x.Op], named(typeBoolean))

	case ast.BinaryLess, ast.BinaryLessOrEqual, ast.BinaryGreater, ast.BinaryGreaterOrEqual:
		if !lc.orderedOperands(leftType, rightType) {
			lc.unsupported(x.Span(), string(x.Op), leftType, rightType)
		}
		common := lc.commonType(leftType, rightType)
		left = lc.convert(left, leftType, common)
		right = lc.convert(right, rightType, common)
		return build(binaryKinds[x.Op], named(typeBoolean))

	case ast.BinaryAdd, ast.BinarySubtract:
		return lc.additive(x, build, left, leftType, right, rightType)

	case ast.BinaryMultiply, ast.BinaryDivide, ast.BinaryTruncatedDivide, ast.BinaryModulo, ast.BinaryPower:
		return lc.multiplicative(x, build, left, leftType, right, rightType)

	case ast.BinaryConcatenate:
		// `&` treats null as the empty string
		coalesceLeft := coalesceWithEmpty(left)
		coalesceRight := coalesceWithEmpty(right)
		node, _ := elm.NewBinary("Concatenate", coalesceLeft, coalesceRight)
		lc.annotate(node, x.Span(), named(typeString))
		return node, named(typeString)

	case ast.BinaryIn:
		return lc.membership(x, build, leftType, rightType, true)

	case ast.BinaryContains:
		return lc.membership(x, build, leftType, rightType, false)

	case ast.BinaryUnion, ast.BinaryIntersect, ast.BinaryExcept:
		if le, ok := elementType(leftType); ok {
			re, _ := elementType(rightType)
			return build(binaryKinds[x.Op], listOf(lc.commonType(le, re)))
		}
		if _, ok := pointType(leftType); ok {
			return build(binaryKinds[x.Op], leftType)
		}
		if !isNamed(leftType, typeAny) {
			lc.unsupported(x.Span(), string(x.Op), leftType, rightType)
		}
		return build(binaryKinds[x.Op], named(typeAny))

	default:
		// timing phrases: intervals or points of comparable types
		kind, ok := binaryKinds[x.Op]
		if !ok {
			lc.unsupported(x.Span(), string(x.Op), leftType, rightType)
			return lc.nullNode(x.Span()), named(typeAny)
		}
		if !lc.timingOperands(leftType, rightType) {
			lc.unsupported(x.Span(), string(x.Op), leftType, rightType)
		}
		return build(kind, named(typeBoolean))
	}
}

func coalesceWithEmpty(e elm.Expression) elm.Expression {
	empty := mustNew("Literal").(*elm.Literal)
	empty.ValueType = valueTypeURI(typeString)
	empty.Value = ""
	c := mustNew("Coalesce").(*elm.Coalesce)
	c.Operands = []elm.Expr{elm.E(e), elm.E(empty)}
	return c
}

func (lc *libContext) orderedOperands(l, r elm.TypeSpecifier) bool {
	if isNamed(l, typeAny) || isNamed(r, typeAny) {
		return true
	}
	if _, ok := unifyNumeric(l, r); ok {
		return true
	}
	if isNamed(l, typeString) && isNamed(r, typeString) {
		return true
	}
	if isTemporalType(l) && isTemporalType(r) {
		return true
	}
	return false
}

func (lc *libContext) timingOperands(l, r elm.TypeSpecifier) bool {
	point := func(t elm.TypeSpecifier) elm.TypeSpecifier {
		if p, ok := pointType(t); ok {
			return p
		}
		return t
	}
	return lc.comparable(point(l), point(r))
}

type buildFn func(kind string, resultType elm.TypeSpecifier) (elm.Expression, elm.TypeSpecifier)

func (lc *libContext) additive(x *ast.BinaryExpr, build buildFn, left elm.Expression, leftType elm.TypeSpecifier, right elm.Expression, rightType elm.TypeSpecifier) (elm.Expression, elm.TypeSpecifier) {
	kind := binaryKinds[x.Op]

	// temporal arithmetic: Date/DateTime/Time +- Quantity
	if isTemporalType(leftType) && (isNamed(rightType, typeQuantity) || isNamed(rightType, typeAny)) {
		return build(kind, leftType)
	}
	// string concatenation via +
	if x.Op == ast.BinaryAdd && isNamed(leftType, typeString) && isNamed(rightType, typeString) {
		return build("Concatenate", named(typeString))
	}
	if common, ok := unifyNumeric(leftType, rightType); ok {
		node, err := elm.NewBinary(kind,
			lc.convert(left, leftType, common),
			lc.convert(right, rightType, common))
		if err != nil {
			panic(err)
		}
		lc.annotate(node, x.Span(), common)
		return node, common
	}
	if isNamed(leftType, typeAny) || isNamed(rightType, typeAny) {
		return build(kind, named(typeAny))
	}
	lc.unsupported(x.Span(), string(x.Op), leftType, rightType)
	return build(kind, named(typeAny))
}

func (lc *libContext) multiplicative(x *ast.BinaryExpr, build buildFn, left elm.Expression, leftType elm.TypeSpecifier, right elm.Expression, rightType elm.TypeSpecifier) (elm.Expression, elm.TypeSpecifier) {
	kind := binaryKinds[x.Op]
	common, ok := unifyNumeric(leftType, rightType)
	if !ok {
		if isNamed(leftType, typeAny) || isNamed(rightType, typeAny) {
			return build(kind, named(typeAny))
		}
		lc.unsupported(x.Span(), string(x.Op), leftType, rightType)
		return build(kind, named(typeAny))
	}

	resultType := common
	switch x.Op {
	case ast.BinaryDivide:
		// `/` always yields Decimal (or Quantity)
		if !isNamed(common, typeQuantity) {
			resultType = named(typeDecimal)
		}
	case ast.BinaryPower:
		resultType = common
	}
	node, err := elm.NewBinary(kind,
		lc.convert(left, leftType, common),
		lc.convert(right, rightType, common))
	if err != nil {
		panic(err)
	}
	lc.annotate(node, x.Span(), resultType)
	return node, resultType
}

func (lc *libContext) membership(x *ast.BinaryExpr, build buildFn, leftType, rightType elm.TypeSpecifier, leftIsElement bool) (elm.Expression, elm.TypeSpecifier) {
	container := rightType
	element := leftType
	if !leftIsElement {
		container = leftType
		element = rightType
	}

	switch {
	case isNamed(container, typeValueSet):
		// `code in "ValueSet"` membership
		return build(binaryKinds[x.Op], named(typeBoolean))
	case isNamed(container, typeConcept):
		return build(binaryKinds[x.Op], named(typeBoolean))
	default:
		if elem, ok := elementType(container); ok {
			if !lc.comparable(elem, element) {
				lc.unsupported(x.Span(), string(x.Op), leftType, rightType)
			}
			return build(binaryKinds[x.Op], named(typeBoolean))
		}
		if point, ok := pointType(container); ok {
			if !lc.comparable(point, element) {
				lc.unsupported(x.Span(), string(x.Op), leftType, rightType)
			}
			return build(binaryKinds[x.Op], named(typeBoolean))
		}
		if !isNamed(container, typeAny) {
			lc.unsupported(x.Span(), string(x.Op), leftType, rightType)
		}
		return build(binaryKinds[x.Op], named(typeBoolean))
	}
}
