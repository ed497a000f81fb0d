package engine

import (
	"context"

	"github.com/DAMEDIC/cql-engine-go/diagnostics"
	"github.com/DAMEDIC/cql-engine-go/elm"
	"github.com/DAMEDIC/cql-engine-go/system"
)

// binary evaluates all shared-shape two-operand operators. And and Or
// short-circuit per the Kleene truth tables; everything else evaluates
// both operands first.
func (st *state) binary(ctx context.Context, e elm.Expression, b *elm.BinaryExpression) (system.Value, error) {
	if len(b.Operands) != 2 {
		return nil, evalError(diagnostics.CodeInvalidArgument,
			"%s expects 2 operands, got %d", e.TypeName(), len(b.Operands))
	}

	switch e.(type) {
	case *elm.And:
		left, err := st.eval(ctx, b.Operands[0])
		if err != nil {
			return nil, err
		}
		if lb, ok := left.(system.Boolean); ok && !bool(lb) {
			return system.Boolean(false), nil
		}
		right, err := st.eval(ctx, b.Operands[1])
		if err != nil {
			return nil, err
		}
		return system.And(left, right), nil
	case *elm.Or:
		left, err := st.eval(ctx, b.Operands[0])
		if err != nil {
			return nil, err
		}
		if lb, ok := left.(system.Boolean); ok && bool(lb) {
			return system.Boolean(true), nil
		}
		right, err := st.eval(ctx, b.Operands[1])
		if err != nil {
			return nil, err
		}
		return system.Or(left, right), nil
	}

	left, err := st.eval(ctx, b.Operands[0])
	if err != nil {
		return nil, err
	}
	right, err := st.eval(ctx, b.Operands[1])
	if err != nil {
		return nil, err
	}

	switch e.(type) {
	case *elm.Xor:
		return system.Xor(left, right), nil
	case *elm.Implies:
		return system.Implies(left, right), nil

	case *elm.Equal:
		return system.Equal(left, right), nil
	case *elm.NotEqual:
		return system.NotEqual(left, right), nil
	case *elm.Equivalent:
		return system.Equivalent(left, right), nil

	case *elm.Less:
		return st.relational(left, right, b.Precision, func(c int) bool { return c < 0 })
	case *elm.LessOrEqual:
		return st.relational(left, right, b.Precision, func(c int) bool { return c <= 0 })
	case *elm.Greater:
		return st.relational(left, right, b.Precision, func(c int) bool { return c > 0 })
	case *elm.GreaterOrEqual:
		return st.relational(left, right, b.Precision, func(c int) bool { return c >= 0 })

	case *elm.Add:
		return system.Add(ctx, left, right)
	case *elm.Subtract:
		return system.Subtract(ctx, left, right)
	case *elm.Multiply:
		return system.Multiply(ctx, left, right)
	case *elm.Divide:
		return system.Divide(ctx, left, right)
	case *elm.TruncatedDivide:
		return system.TruncatedDivide(ctx, left, right)
	case *elm.Modulo:
		return system.Modulo(ctx, left, right)
	case *elm.Power:
		return system.Power(ctx, left, right)

	case *elm.Concatenate:
		if system.IsNull(left) || system.IsNull(right) {
			return system.Null{}, nil
		}
		ls, lok := left.(system.String)
		rs, rok := right.(system.String)
		if !lok || !rok {
			return nil, evalError(diagnostics.CodeInvalidArgument,
				"concatenation requires strings, got %s and %s", left.TypeName(), right.TypeName())
		}
		return ls + rs, nil

	case *elm.Indexer:
		return st.index(left, right)

	case *elm.In:
		return st.membership(ctx, right, left, b.Precision)
	case *elm.Contains:
		return st.membership(ctx, left, right, b.Precision)

	case *elm.Union:
		return unionValues(left, right)
	case *elm.Intersect:
		return intersectValues(left, right)
	case *elm.Except:
		return exceptValues(left, right)

	case *elm.Includes:
		return includesValue(left, right, false)
	case *elm.IncludedIn:
		return includesValue(right, left, false)
	case *elm.ProperIncludes:
		return includesValue(left, right, true)
	case *elm.ProperIncludedIn:
		return includesValue(right, left, true)

	case *elm.Before:
		return st.timingCompare(left, right, b.Precision, timingBefore)
	case *elm.After:
		return st.timingCompare(left, right, b.Precision, timingAfter)
	case *elm.SameAs:
		return st.sameAs(left, right, b.Precision, 0)
	case *elm.SameOrBefore:
		return st.sameAs(left, right, b.Precision, -1)
	case *elm.SameOrAfter:
		return st.sameAs(left, right, b.Precision, 1)

	case *elm.Meets:
		return intervalPair(left, right, system.Interval.Meets)
	case *elm.MeetsBefore:
		return intervalPair(left, right, system.Interval.MeetsBefore)
	case *elm.MeetsAfter:
		return intervalPair(left, right, system.Interval.MeetsAfter)
	case *elm.Overlaps:
		return intervalPair(left, right, system.Interval.Overlaps)
	case *elm.OverlapsBefore:
		return intervalPair(left, right, system.Interval.OverlapsBefore)
	case *elm.OverlapsAfter:
		return intervalPair(left, right, system.Interval.OverlapsAfter)
	case *elm.Starts:
		return intervalPair(left, right, system.Interval.Starts)
	case *elm.Ends:
		return intervalPair(left, right, system.Interval.Ends)

	case *elm.DurationBetween:
		return st.durationBetween(left, right, b.Precision, false)
	case *elm.DifferenceBetween:
		return st.durationBetween(left, right, b.Precision, true)
	}

	return nil, evalError(diagnostics.CodeUnsupportedOperator,
		"unsupported binary operator %s at runtime", e.TypeName())
}

func (st *state) relational(left, right system.Value, precision string, test func(int) bool) (system.Value, error) {
	cmp, ok, err := cmpWithPrecision(left, right, precision)
	if err != nil {
		return nil, err
	}
	if !ok {
		return system.Null{}, nil
	}
	return system.Boolean(test(cmp)), nil
}

// cmpWithPrecision compares two values, restricting temporal comparison
// to the named precision when one is given.
func cmpWithPrecision(left, right system.Value, precision string) (int, bool, error) {
	if system.IsNull(left) || system.IsNull(right) {
		return 0, false, nil
	}
	if precision == "" {
		return system.Compare(left, right)
	}
	p, ok := system.PrecisionFromUnit(precision)
	if !ok {
		return system.Compare(left, right)
	}
	switch l := left.(type) {
	case system.Date:
		if r, isDate := right.(system.Date); isDate {
			cmp, ok := l.CmpAt(r, p)
			return cmp, ok, nil
		}
		if r, isDT := right.(system.DateTime); isDT {
			cmp, ok := l.ToDateTime().CmpAt(r, p)
			return cmp, ok, nil
		}
	case system.DateTime:
		switch r := right.(type) {
		case system.DateTime:
			cmp, ok := l.CmpAt(r, p)
			return cmp, ok, nil
		case system.Date:
			cmp, ok := l.CmpAt(r.ToDateTime(), p)
			return cmp, ok, nil
		}
	case system.Time:
		if r, isTime := right.(system.Time); isTime {
			cmp, ok := l.CmpAt(r, p)
			return cmp, ok, nil
		}
	}
	return system.Compare(left, right)
}

func (st *state) sameAs(left, right system.Value, precision string, direction int) (system.Value, error) {
	// interval operands relate by their boundaries
	if liv, ok := left.(system.Interval); ok {
		if riv, isIv := right.(system.Interval); isIv {
			var l, r system.Value
			l, r = liv.Start(), riv.Start()
			if direction != 0 {
				if direction < 0 {
					l, r = liv.End(), riv.Start()
				} else {
					l, r = liv.Start(), riv.End()
				}
			}
			left, right = l, r
		}
	}
	cmp, ok, err := cmpWithPrecision(left, right, precision)
	if err != nil {
		return nil, err
	}
	if !ok {
		return system.Null{}, nil
	}
	switch {
	case direction < 0:
		return system.Boolean(cmp <= 0), nil
	case direction > 0:
		return system.Boolean(cmp >= 0), nil
	default:
		return system.Boolean(cmp == 0), nil
	}
}

type timingDirection int

const (
	timingBefore timingDirection = iota
	timingAfter
)

// timingCompare implements before/after across interval and point
// combinations.
func (st *state) timingCompare(left, right system.Value, precision string, dir timingDirection) (system.Value, error) {
	if system.IsNull(left) || system.IsNull(right) {
		return system.Null{}, nil
	}
	liv, leftIsInterval := left.(system.Interval)
	riv, rightIsInterval := right.(system.Interval)

	switch {
	case leftIsInterval && rightIsInterval:
		if dir == timingBefore {
			return liv.Before(riv), nil
		}
		return liv.After(riv), nil
	case leftIsInterval:
		if dir == timingBefore {
			return liv.BeforePoint(right), nil
		}
		return liv.AfterPoint(right), nil
	case rightIsInterval:
		if dir == timingBefore {
			return riv.AfterPoint(left), nil
		}
		return riv.BeforePoint(left), nil
	default:
		cmp, ok, err := cmpWithPrecision(left, right, precision)
		if err != nil {
			return nil, err
		}
		if !ok {
			return system.Null{}, nil
		}
		if dir == timingBefore {
			return system.Boolean(cmp < 0), nil
		}
		return system.Boolean(cmp > 0), nil
	}
}

func intervalPair(left, right system.Value, op func(system.Interval, system.Interval) system.Value) (system.Value, error) {
	if system.IsNull(left) || system.IsNull(right) {
		return system.Null{}, nil
	}
	liv, lok := left.(system.Interval)
	riv, rok := right.(system.Interval)
	if !lok || !rok {
		return nil, evalError(diagnostics.CodeInvalidArgument,
			"interval operator requires intervals, got %s and %s", left.TypeName(), right.TypeName())
	}
	return op(liv, riv), nil
}

func (st *state) index(source, index system.Value) (system.Value, error) {
	if system.IsNull(source) || system.IsNull(index) {
		return system.Null{}, nil
	}
	i, ok := index.(system.Integer)
	if !ok {
		return nil, evalError(diagnostics.CodeInvalidArgument,
			"index must be an integer, got %s", index.TypeName())
	}
	switch t := source.(type) {
	case system.List:
		if i < 0 || int(i) >= len(t) {
			return system.Null{}, nil
		}
		return t[i], nil
	case system.String:
		if i < 0 || int(i) >= len(t) {
			return system.Null{}, nil
		}
		return system.String(t[i : i+1]), nil
	}
	return nil, evalError(diagnostics.CodeInvalidArgument,
		"can not index %s", source.TypeName())
}

// membership implements `in` and `contains` over lists, intervals,
// valuesets and concepts.
func (st *state) membership(ctx context.Context, container, element system.Value, precision string) (system.Value, error) {
	switch c := container.(type) {
	case ValueSet:
		return st.inValueSet(ctx, element, c)
	case system.List:
		return c.ContainsValue(element), nil
	case system.Interval:
		return c.Contains(element), nil
	case system.Concept:
		if code, ok := element.(system.Code); ok {
			return system.Boolean(c.Equivalent(code)), nil
		}
		return system.Null{}, nil
	case system.Null:
		return system.Null{}, nil
	}
	if container == nil {
		return system.Null{}, nil
	}
	return nil, evalError(diagnostics.CodeInvalidArgument,
		"membership requires a list, interval or valueset, got %s", container.TypeName())
}

func unionValues(left, right system.Value) (system.Value, error) {
	if ll, ok := left.(system.List); ok {
		if rl, isList := right.(system.List); isList {
			return ll.UnionList(rl), nil
		}
		if system.IsNull(right) {
			return ll, nil
		}
	}
	if liv, ok := left.(system.Interval); ok {
		if riv, isIv := right.(system.Interval); isIv {
			return liv.Union(riv), nil
		}
	}
	if system.IsNull(left) {
		if rl, isList := right.(system.List); isList {
			return rl, nil
		}
		return system.Null{}, nil
	}
	return nil, evalError(diagnostics.CodeInvalidArgument,
		"union requires lists or intervals, got %s and %s", left.TypeName(), right.TypeName())
}

func intersectValues(left, right system.Value) (system.Value, error) {
	if system.IsNull(left) || system.IsNull(right) {
		return system.Null{}, nil
	}
	if ll, ok := left.(system.List); ok {
		if rl, isList := right.(system.List); isList {
			return ll.IntersectList(rl), nil
		}
	}
	if liv, ok := left.(system.Interval); ok {
		if riv, isIv := right.(system.Interval); isIv {
			return liv.Intersect(riv), nil
		}
	}
	return nil, evalError(diagnostics.CodeInvalidArgument,
		"intersect requires lists or intervals, got %s and %s", left.TypeName(), right.TypeName())
}

func exceptValues(left, right system.Value) (system.Value, error) {
	if system.IsNull(left) {
		return system.Null{}, nil
	}
	if system.IsNull(right) {
		return left, nil
	}
	if ll, ok := left.(system.List); ok {
		if rl, isList := right.(system.List); isList {
			return ll.ExceptList(rl), nil
		}
	}
	return nil, evalError(diagnostics.CodeInvalidArgument,
		"except requires lists, got %s and %s", left.TypeName(), right.TypeName())
}

// includesValue: container includes contained, for list and interval
// operands; scalar contained values test membership.
func includesValue(container, contained system.Value, proper bool) (system.Value, error) {
	if system.IsNull(container) || system.IsNull(contained) {
		return system.Null{}, nil
	}
	if ll, ok := container.(system.List); ok {
		if rl, isList := contained.(system.List); isList {
			return listIncludes(ll, rl, proper), nil
		}
		return ll.ContainsValue(contained), nil
	}
	if liv, ok := container.(system.Interval); ok {
		if riv, isIv := contained.(system.Interval); isIv {
			if proper {
				return liv.ProperlyIncludes(riv), nil
			}
			return liv.Includes(riv), nil
		}
		return liv.Contains(contained), nil
	}
	return nil, evalError(diagnostics.CodeInvalidArgument,
		"includes requires lists or intervals, got %s and %s", container.TypeName(), contained.TypeName())
}

func listIncludes(container, contained system.List, proper bool) system.Value {
	for _, e := range contained {
		if system.IsNull(e) {
			continue
		}
		in := container.ContainsValue(e)
		if b, ok := in.(system.Boolean); !ok || !bool(b) {
			return system.Boolean(false)
		}
	}
	if proper && len(container) <= len(contained.Distinct()) {
		return system.Boolean(len(container.Distinct()) > len(contained.Distinct()))
	}
	return system.Boolean(true)
}

// durationBetween measures whole periods or boundary crossings between
// two temporal values.
func (st *state) durationBetween(left, right system.Value, precision string, difference bool) (system.Value, error) {
	if system.IsNull(left) || system.IsNull(right) {
		return system.Null{}, nil
	}
	p, ok := system.PrecisionFromUnit(precision)
	if !ok {
		return nil, evalError(diagnostics.CodeInvalidArgument,
			"unknown duration precision %q", precision)
	}
	l, lok := toDateTimeValue(left)
	r, rok := toDateTimeValue(right)
	if !lok || !rok {
		return nil, evalError(diagnostics.CodeInvalidArgument,
			"duration requires dates or times, got %s and %s", left.TypeName(), right.TypeName())
	}
	var (
		result system.Integer
		known  bool
	)
	if difference {
		result, known = system.DifferenceBetween(l, r, p)
	} else {
		result, known = system.DurationBetween(l, r, p)
	}
	if !known {
		return system.Null{}, nil
	}
	return result, nil
}

func toDateTimeValue(v system.Value) (system.DateTime, bool) {
	switch t := v.(type) {
	case system.DateTime:
		return t, true
	case system.Date:
		return t.ToDateTime(), true
	case system.Time:
		return system.DateTime{Value: t.Value, Precision: t.Precision, HasOffset: false}, true
	default:
		return system.DateTime{}, false
	}
}
