package translator

import (
	"strings"

	"github.com/DAMEDIC/cql-engine-go/ast"
	"github.com/DAMEDIC/cql-engine-go/elm"
)

// System type names used throughout type checking.
const (
	typeAny      = "System.Any"
	typeBoolean  = "System.Boolean"
	typeInteger  = "System.Integer"
	typeLong     = "System.Long"
	typeDecimal  = "System.Decimal"
	typeString   = "System.String"
	typeDate     = "System.Date"
	typeDateTime = "System.DateTime"
	typeTime     = "System.Time"
	typeQuantity = "System.Quantity"
	typeRatio    = "System.Ratio"
	typeCode     = "System.Code"
	typeConcept  = "System.Concept"
	typeValueSet = "System.ValueSet"
)

func named(name string) elm.TypeSpecifier { return elm.Named(name) }

func listOf(element elm.TypeSpecifier) elm.TypeSpecifier { return elm.ListOf(element) }

func intervalOf(point elm.TypeSpecifier) elm.TypeSpecifier { return elm.IntervalOf(point) }

func isNamed(t elm.TypeSpecifier, name string) bool {
	n, ok := t.(*elm.NamedTypeSpecifier)
	return ok && n.Name == name
}

func namedName(t elm.TypeSpecifier) (string, bool) {
	n, ok := t.(*elm.NamedTypeSpecifier)
	if !ok {
		return "", false
	}
	return n.Name, true
}

func elementType(t elm.TypeSpecifier) (elm.TypeSpecifier, bool) {
	l, ok := t.(*elm.ListTypeSpecifier)
	if !ok {
		return nil, false
	}
	return l.ElementType.TypeSpecifier, true
}

func pointType(t elm.TypeSpecifier) (elm.TypeSpecifier, bool) {
	i, ok := t.(*elm.IntervalTypeSpecifier)
	if !ok {
		return nil, false
	}
	return i.PointType.TypeSpecifier, true
}

func sameType(a, b elm.TypeSpecifier) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.String() == b.String()
}

// numericRank orders the numeric promotion chain
// Integer -> Long -> Decimal -> Quantity.
func numericRank(name string) int {
	switch name {
	case typeInteger:
		return 0
	case typeLong:
		return 1
	case typeDecimal:
		return 2
	case typeQuantity:
		return 3
	default:
		return -1
	}
}

func isNumericType(t elm.TypeSpecifier) bool {
	n, ok := namedName(t)
	return ok && numericRank(n) >= 0
}

func isTemporalType(t elm.TypeSpecifier) bool {
	n, ok := namedName(t)
	if !ok {
		return false
	}
	return n == typeDate || n == typeDateTime || n == typeTime
}

// promotionDistance is the number of implicit conversions needed to get
// from one type to another; -1 when no implicit path exists. It drives
// overload tie-breaking.
func (lc *libContext) promotionDistance(from, to elm.TypeSpecifier) int {
	if sameType(from, to) || isNamed(to, typeAny) {
		return 0
	}
	fromName, fromOK := namedName(from)
	toName, toOK := namedName(to)
	if fromOK && toOK {
		if fr, tr := numericRank(fromName), numericRank(toName); fr >= 0 && tr >= fr {
			return tr - fr
		}
		if fromName == typeCode && toName == typeConcept {
			return 1
		}
		if fromName == typeDate && toName == typeDateTime {
			return 1
		}
		if lc.isSubtype(fromName, toName) {
			return 0
		}
		return -1
	}
	// list element widening
	if fe, ok := elementType(from); ok {
		if te, ok := elementType(to); ok {
			return lc.promotionDistance(fe, te)
		}
	}
	// interval promotion requires both endpoints to promote consistently
	if fp, ok := pointType(from); ok {
		if tp, ok := pointType(to); ok {
			return lc.promotionDistance(fp, tp)
		}
	}
	return -1
}

// isSubtype checks the System lattice and the model inheritance chain.
func (lc *libContext) isSubtype(sub, super string) bool {
	if sub == super || super == typeAny {
		return true
	}
	if lc.system.IsSubtypeOf(sub, super) {
		return true
	}
	return lc.model != nil && lc.model.IsSubtypeOf(sub, super)
}

// unifyNumeric returns the common numeric type of two operands.
func unifyNumeric(l, r elm.TypeSpecifier) (elm.TypeSpecifier, bool) {
	ln, lok := namedName(l)
	rn, rok := namedName(r)
	if !lok || !rok {
		return nil, false
	}
	lr, rr := numericRank(ln), numericRank(rn)
	if lr < 0 || rr < 0 {
		return nil, false
	}
	if lr >= rr {
		return l, true
	}
	return r, true
}

// convert wraps an expression in the conversion node leading from one
// type to another; it returns the expression unchanged when no
// conversion is needed.
func (lc *libContext) convert(e elm.Expression, from, to elm.TypeSpecifier) elm.Expression {
	if sameType(from, to) {
		return e
	}
	fromName, fromOK := namedName(from)
	toName, toOK := namedName(to)
	if !fromOK || !toOK {
		return e
	}
	var kind string
	switch toName {
	case typeLong:
		kind = "ToLong"
	case typeDecimal:
		kind = "ToDecimal"
	case typeQuantity:
		kind = "ToQuantity"
	case typeConcept:
		kind = "ToConcept"
	case typeDateTime:
		if fromName == typeDate {
			kind = "ToDateTime"
		}
	}
	if kind == "" {
		return e
	}
	converted, err := elm.NewUnary(kind, e)
	if err != nil {
		return e
	}
	return converted
}

// typeFromAST resolves a syntactic type specifier against the System
// and model registries.
func (lc *libContext) typeFromAST(spec ast.TypeSpecifier) elm.TypeSpecifier {
	switch s := spec.(type) {
	case nil:
		return nil
	case *ast.NamedType:
		return named(lc.resolveTypeName(s.Name.String()))
	case *ast.ListType:
		return listOf(lc.typeFromAST(s.Element))
	case *ast.IntervalType:
		return intervalOf(lc.typeFromAST(s.Point))
	case *ast.TupleType:
		t := &elm.TupleTypeSpecifier{Type: "TupleTypeSpecifier"}
		for _, e := range s.Elements {
			t.Elements = append(t.Elements, elm.TupleElementDefinition{
				Name: e.Name,
				Type: elm.TypeSpec{TypeSpecifier: lc.typeFromAST(e.Type)},
			})
		}
		return t
	case *ast.ChoiceType:
		t := &elm.ChoiceTypeSpecifier{Type: "ChoiceTypeSpecifier"}
		for _, c := range s.Types {
			t.Choices = append(t.Choices, elm.TypeSpec{TypeSpecifier: lc.typeFromAST(c)})
		}
		return t
	default:
		return named(typeAny)
	}
}

// resolveTypeName qualifies a bare type name against System first, then
// the model.
func (lc *libContext) resolveTypeName(name string) string {
	if strings.Contains(name, ".") {
		return name
	}
	if t, ok := lc.system.GetType("System." + name); ok {
		return t.QualifiedName()
	}
	if lc.model != nil {
		if t, ok := lc.model.GetType(name); ok {
			return t.QualifiedName()
		}
	}
	return name
}

// valueTypeURI renders a System type as the ELM value type URI used on
// literals.
func valueTypeURI(name string) string {
	short := strings.TrimPrefix(name, "System.")
	return "{urn:hl7-org:elm-types:r1}" + short
}
