package engine

import (
	"context"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"github.com/DAMEDIC/cql-engine-go/diagnostics"
	"github.com/DAMEDIC/cql-engine-go/elm"
	"github.com/DAMEDIC/cql-engine-go/system"
)

func parseInt(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

func parseLong(s string) (system.Long, bool) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return system.Long{}, false
	}
	return system.Long{Value: v}, true
}

// unary evaluates all shared-shape single-operand operators.
func (st *state) unary(ctx context.Context, e elm.Expression, u *elm.UnaryExpression) (system.Value, error) {
	v, err := st.eval(ctx, u.Operand)
	if err != nil {
		return nil, err
	}

	switch n := e.(type) {
	case *elm.Not:
		return system.Not(v), nil
	case *elm.IsNull:
		return system.Boolean(system.IsNull(v)), nil
	case *elm.IsTrue:
		b, ok := v.(system.Boolean)
		return system.Boolean(ok && bool(b)), nil
	case *elm.IsFalse:
		b, ok := v.(system.Boolean)
		return system.Boolean(ok && !bool(b)), nil
	case *elm.Exists:
		if system.IsNull(v) {
			return system.Boolean(false), nil
		}
		if list, ok := v.(system.List); ok {
			return list.Exists(), nil
		}
		return system.Boolean(true), nil
	case *elm.Negate:
		return system.Negate(ctx, v)
	case *elm.SingletonFrom:
		if system.IsNull(v) {
			return system.Null{}, nil
		}
		list, ok := v.(system.List)
		if !ok {
			return v, nil
		}
		single, err := list.SingletonFrom()
		if err != nil {
			return nil, evalError(diagnostics.CodeInvalidArgument, "%v", err)
		}
		return single, nil
	case *elm.Distinct:
		if list, ok := v.(system.List); ok {
			return list.Distinct(), nil
		}
		return v, nil
	case *elm.Flatten:
		if list, ok := v.(system.List); ok {
			return list.Flatten(), nil
		}
		return v, nil
	case *elm.Collapse:
		return collapseIntervals(v)
	case *elm.Start:
		if iv, ok := v.(system.Interval); ok {
			return iv.Start(), nil
		}
		return system.Null{}, nil
	case *elm.End:
		if iv, ok := v.(system.Interval); ok {
			return iv.End(), nil
		}
		return system.Null{}, nil
	case *elm.Width:
		if iv, ok := v.(system.Interval); ok {
			return iv.Width(ctx)
		}
		return system.Null{}, nil
	case *elm.PointFrom:
		if iv, ok := v.(system.Interval); ok {
			start, end := iv.Start(), iv.End()
			eq := system.Equal(start, end)
			if b, isB := eq.(system.Boolean); isB && bool(b) {
				return start, nil
			}
			return nil, evalError(diagnostics.CodeInvalidArgument,
				"point from requires a unit interval, got %s", iv)
		}
		return system.Null{}, nil
	case *elm.Predecessor:
		return stepValue(v, false)
	case *elm.Successor:
		return stepValue(v, true)
	case *elm.Truncate:
		if system.IsNull(v) {
			return system.Null{}, nil
		}
		d, ok := v.(system.Decimal)
		if !ok {
			if i, isInt := v.(system.Integer); isInt {
				return i, nil
			}
			return nil, evalError(diagnostics.CodeInvalidArgument,
				"truncate requires a decimal, got %s", v.TypeName())
		}
		return d.Truncate()
	case *elm.Abs:
		return absValue(ctx, v)
	case *elm.Length:
		if system.IsNull(v) {
			return system.Null{}, nil
		}
		switch t := v.(type) {
		case system.List:
			return system.Integer(len(t)), nil
		case system.String:
			return system.Integer(len(t)), nil
		}
		return nil, evalError(diagnostics.CodeInvalidArgument,
			"length requires a list or string, got %s", v.TypeName())
	case *elm.DateFrom:
		if dt, ok := v.(system.DateTime); ok {
			return dt.ToDate(), nil
		}
		if d, ok := v.(system.Date); ok {
			return d, nil
		}
		return system.Null{}, nil
	case *elm.TimeFrom:
		if dt, ok := v.(system.DateTime); ok {
			ms := dt.Value.Nanosecond() / 1_000_000
			return system.TimeOf(dt.Value.Hour(), intPtr(dt.Value.Minute()), intPtr(dt.Value.Second()), intPtr(ms)), nil
		}
		return system.Null{}, nil
	case *elm.ToList:
		if system.IsNull(v) {
			return system.List{}, nil
		}
		if list, ok := v.(system.List); ok {
			return list, nil
		}
		return system.List{v}, nil
	case *elm.ToBoolean, *elm.ToInteger, *elm.ToLong, *elm.ToDecimal, *elm.ToString,
		*elm.ToDate, *elm.ToDateTime, *elm.ToTime, *elm.ToQuantity, *elm.ToConcept:
		return convertValue(e.TypeName(), v)
	default:
		_ = n
		return nil, evalError(diagnostics.CodeUnsupportedOperator,
			"unsupported unary operator %s at runtime", e.TypeName())
	}
}

func stepValue(v system.Value, up bool) (system.Value, error) {
	if system.IsNull(v) {
		return system.Null{}, nil
	}
	var (
		out system.Value
		ok  bool
	)
	if up {
		out, ok = system.Successor(v)
	} else {
		out, ok = system.Predecessor(v)
	}
	if !ok {
		return nil, evalError(diagnostics.CodeOverflow,
			"no representable neighbor for %s", v)
	}
	return out, nil
}

func absValue(ctx context.Context, v system.Value) (system.Value, error) {
	if system.IsNull(v) {
		return system.Null{}, nil
	}
	neg, err := system.Less(v, zeroOf(v))
	if err != nil {
		return nil, err
	}
	if b, ok := neg.(system.Boolean); ok && bool(b) {
		return system.Negate(ctx, v)
	}
	return v, nil
}

func zeroOf(v system.Value) system.Value {
	switch v.(type) {
	case system.Integer:
		return system.Integer(0)
	case system.Long:
		return system.NewLong(0)
	case system.Quantity:
		return system.Quantity{Value: system.MustDecimal("0"), Unit: v.(system.Quantity).Unit}
	default:
		return system.MustDecimal("0")
	}
}

// convertValue implements the runtime To* conversions.
func convertValue(kind string, v system.Value) (system.Value, error) {
	if system.IsNull(v) {
		return system.Null{}, nil
	}
	switch kind {
	case "ToBoolean":
		switch t := v.(type) {
		case system.Boolean:
			return t, nil
		case system.String:
			switch strings.ToLower(string(t)) {
			case "true", "t", "yes", "y", "1":
				return system.Boolean(true), nil
			case "false", "f", "no", "n", "0":
				return system.Boolean(false), nil
			}
			return system.Null{}, nil
		case system.Integer:
			if t == 0 || t == 1 {
				return system.Boolean(t == 1), nil
			}
			return system.Null{}, nil
		}
	case "ToInteger":
		switch t := v.(type) {
		case system.Integer:
			return t, nil
		case system.Long:
			if t.Value != nil && t.Value.IsInt64() {
				return system.Integer(t.Value.Int64()), nil
			}
			return nil, evalError(diagnostics.CodeOverflow, "long %s is out of Integer range", t)
		case system.Boolean:
			if t {
				return system.Integer(1), nil
			}
			return system.Integer(0), nil
		case system.String:
			i, err := parseInt(string(t))
			if err != nil {
				return system.Null{}, nil
			}
			return system.Integer(i), nil
		}
	case "ToLong":
		switch t := v.(type) {
		case system.Long:
			return t, nil
		case system.Integer:
			return t.ToLong(), nil
		case system.String:
			if l, ok := parseLong(string(t)); ok {
				return l, nil
			}
			return system.Null{}, nil
		}
	case "ToDecimal":
		switch t := v.(type) {
		case system.Decimal:
			return t, nil
		case system.Integer:
			return t.ToDecimal(), nil
		case system.Long:
			return t.ToDecimal(), nil
		case system.String:
			d, err := system.NewDecimal(string(t))
			if err != nil {
				return system.Null{}, nil
			}
			return d, nil
		case system.Quantity:
			return t.Value, nil
		}
	case "ToString":
		return toStringValue(v), nil
	case "ToDate":
		switch t := v.(type) {
		case system.Date:
			return t, nil
		case system.DateTime:
			return t.ToDate(), nil
		case system.String:
			d, err := system.ParseDate(string(t))
			if err != nil {
				return system.Null{}, nil
			}
			return d, nil
		}
	case "ToDateTime":
		switch t := v.(type) {
		case system.DateTime:
			return t, nil
		case system.Date:
			return t.ToDateTime(), nil
		case system.String:
			d, err := system.ParseDateTime(string(t))
			if err != nil {
				return system.Null{}, nil
			}
			return d, nil
		}
	case "ToTime":
		switch t := v.(type) {
		case system.Time:
			return t, nil
		case system.String:
			d, err := system.ParseTime(string(t))
			if err != nil {
				return system.Null{}, nil
			}
			return d, nil
		}
	case "ToQuantity":
		switch t := v.(type) {
		case system.Quantity:
			return t, nil
		case system.Decimal:
			return t.ToQuantity(), nil
		case system.Integer:
			return t.ToDecimal().ToQuantity(), nil
		case system.Long:
			return t.ToDecimal().ToQuantity(), nil
		}
	case "ToConcept":
		switch t := v.(type) {
		case system.Concept:
			return t, nil
		case system.Code:
			return t.ToConcept(), nil
		}
	}
	return system.Null{}, nil
}

// toStringValue renders values in CQL ToString form (temporals without
// the literal `@`).
func toStringValue(v system.Value) system.Value {
	switch t := v.(type) {
	case system.String:
		return t
	case system.Date:
		return system.String(strings.TrimPrefix(t.String(), "@"))
	case system.DateTime:
		return system.String(strings.TrimPrefix(t.String(), "@"))
	case system.Time:
		return system.String(strings.TrimPrefix(strings.TrimPrefix(t.String(), "@"), "T"))
	default:
		return system.String(strings.Trim(v.String(), "'"))
	}
}

func collapseIntervals(v system.Value) (system.Value, error) {
	if system.IsNull(v) {
		return system.Null{}, nil
	}
	list, ok := v.(system.List)
	if !ok {
		return v, nil
	}
	var intervals []system.Interval
	for _, e := range list {
		if system.IsNull(e) {
			continue
		}
		iv, isIv := e.(system.Interval)
		if !isIv {
			return nil, evalError(diagnostics.CodeInvalidArgument,
				"collapse requires intervals, got %s", e.TypeName())
		}
		intervals = append(intervals, iv)
	}
	// insertion sort by start; unknown orders keep input order
	for i := 1; i < len(intervals); i++ {
		for j := i; j > 0; j-- {
			cmp, ok, err := system.Compare(intervals[j].Start(), intervals[j-1].Start())
			if err != nil || !ok || cmp >= 0 {
				break
			}
			intervals[j], intervals[j-1] = intervals[j-1], intervals[j]
		}
	}
	var out system.List
	for _, iv := range intervals {
		if len(out) > 0 {
			prev := out[len(out)-1].(system.Interval)
			if merged, isIv := prev.Union(iv).(system.Interval); isIv {
				out[len(out)-1] = merged
				continue
			}
		}
		out = append(out, iv)
	}
	if out == nil {
		out = system.List{}
	}
	return out, nil
}

func minValueOf(valueType string) (system.Value, error) {
	return extremeValueOf(valueType, false)
}

func maxValueOf(valueType string) (system.Value, error) {
	return extremeValueOf(valueType, true)
}

func extremeValueOf(valueType string, max bool) (system.Value, error) {
	short := valueType
	if i := strings.LastIndexByte(short, '}'); i >= 0 {
		short = short[i+1:]
	}
	switch short {
	case "Integer":
		if max {
			return system.Integer(math.MaxInt64), nil
		}
		return system.Integer(math.MinInt64), nil
	case "Long":
		if max {
			return system.NewLong(math.MaxInt64), nil
		}
		return system.NewLong(math.MinInt64), nil
	case "Decimal":
		if max {
			return system.MustDecimal("99999999999999999999.99999999"), nil
		}
		return system.MustDecimal("-99999999999999999999.99999999"), nil
	case "Date":
		if max {
			return system.ParseDate("@9999-12-31")
		}
		return system.ParseDate("@0001-01-01")
	case "DateTime":
		if max {
			return system.ParseDateTime("@9999-12-31T23:59:59.999")
		}
		return system.ParseDateTime("@0001-01-01T00:00:00.000")
	case "Time":
		if max {
			return system.ParseTime("@T23:59:59.999")
		}
		return system.ParseTime("@T00:00:00.000")
	default:
		return nil, evalError(diagnostics.CodeInvalidArgument,
			"type %s has no minimum or maximum value", valueType)
	}
}

func (st *state) round(ctx context.Context, n *elm.Round) (system.Value, error) {
	v, err := st.eval(ctx, n.Operand)
	if err != nil {
		return nil, err
	}
	if system.IsNull(v) {
		return system.Null{}, nil
	}
	precision := 0
	if n.Precision.Expression != nil {
		pv, err := st.eval(ctx, n.Precision.Expression)
		if err != nil {
			return nil, err
		}
		if p, ok := pv.(system.Integer); ok {
			precision = int(p)
		}
	}
	d, ok := v.(system.Decimal)
	if !ok {
		if i, isInt := v.(system.Integer); isInt {
			return i.ToDecimal(), nil
		}
		return nil, evalError(diagnostics.CodeInvalidArgument,
			"round requires a decimal, got %s", v.TypeName())
	}
	c := apd.BaseContext.WithPrecision(28)
	c.Rounding = apd.RoundHalfUp
	var res apd.Decimal
	if _, err := c.Quantize(&res, d.Value, -int32(precision)); err != nil {
		return nil, err
	}
	return system.Decimal{Value: &res}, nil
}

func (st *state) componentFrom(ctx context.Context, n *elm.DateTimeComponentFrom) (system.Value, error) {
	v, err := st.eval(ctx, n.Operand)
	if err != nil {
		return nil, err
	}
	if system.IsNull(v) {
		return system.Null{}, nil
	}
	p, ok := system.PrecisionFromUnit(n.Precision)
	if !ok {
		return nil, evalError(diagnostics.CodeInvalidArgument,
			"unknown component precision %q", n.Precision)
	}
	switch t := v.(type) {
	case system.Date:
		if c, ok := t.Component(p); ok {
			return c, nil
		}
	case system.DateTime:
		if c, ok := t.Component(p); ok {
			return c, nil
		}
	case system.Time:
		if c, ok := t.Component(p); ok {
			return c, nil
		}
	default:
		return nil, evalError(diagnostics.CodeInvalidArgument,
			"can not extract %s from %s", n.Precision, v.TypeName())
	}
	return system.Null{}, nil
}
