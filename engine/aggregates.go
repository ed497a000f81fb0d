package engine

import (
	"context"
	"sort"

	"github.com/cockroachdb/apd/v3"

	"github.com/DAMEDIC/cql-engine-go/diagnostics"
	"github.com/DAMEDIC/cql-engine-go/elm"
	"github.com/DAMEDIC/cql-engine-go/system"
)

// aggregate evaluates the aggregate operators. Null elements are
// ignored; an empty (or all-null) source yields null, except Count
// which yields 0, AllTrue which yields true and AnyTrue which yields
// false.
func (st *state) aggregate(ctx context.Context, e elm.Expression) (system.Value, error) {
	var source elm.Expr
	switch n := e.(type) {
	case *elm.Count:
		source = n.Source
	case *elm.Sum:
		source = n.Source
	case *elm.Min:
		source = n.Source
	case *elm.Max:
		source = n.Source
	case *elm.Avg:
		source = n.Source
	case *elm.Median:
		source = n.Source
	case *elm.StdDev:
		source = n.Source
	case *elm.AllTrue:
		source = n.Source
	case *elm.AnyTrue:
		source = n.Source
	}

	v, err := st.eval(ctx, source.Expression)
	if err != nil {
		return nil, err
	}
	if system.IsNull(v) {
		v = system.List{}
	}
	list, ok := v.(system.List)
	if !ok {
		return nil, evalError(diagnostics.CodeInvalidArgument,
			"aggregate requires a list, got %s", v.TypeName())
	}

	var values system.List
	for _, el := range list {
		if !system.IsNull(el) {
			values = append(values, el)
		}
	}

	switch e.(type) {
	case *elm.Count:
		return system.Integer(len(values)), nil

	case *elm.AllTrue:
		for _, el := range values {
			if b, isB := el.(system.Boolean); !isB || !bool(b) {
				return system.Boolean(false), nil
			}
		}
		return system.Boolean(true), nil

	case *elm.AnyTrue:
		for _, el := range values {
			if b, isB := el.(system.Boolean); isB && bool(b) {
				return system.Boolean(true), nil
			}
		}
		return system.Boolean(false), nil
	}

	if len(values) == 0 {
		return system.Null{}, nil
	}

	switch e.(type) {
	case *elm.Sum:
		return sumValues(ctx, values)

	case *elm.Min:
		return extremeOf(values, -1)

	case *elm.Max:
		return extremeOf(values, 1)

	case *elm.Avg:
		sum, err := sumValues(ctx, values)
		if err != nil {
			return nil, err
		}
		return system.Divide(ctx, sum, system.Integer(len(values)))

	case *elm.Median:
		return medianOf(ctx, values)

	case *elm.StdDev:
		return stdDevOf(ctx, values)
	}

	return nil, evalError(diagnostics.CodeUnsupportedOperator,
		"unsupported aggregate %s", e.TypeName())
}

func sumValues(ctx context.Context, values system.List) (system.Value, error) {
	sum := values[0]
	for _, el := range values[1:] {
		next, err := system.Add(ctx, sum, el)
		if err != nil {
			return nil, err
		}
		sum = next
	}
	return sum, nil
}

func extremeOf(values system.List, direction int) (system.Value, error) {
	best := values[0]
	for _, el := range values[1:] {
		cmp, ok, err := system.Compare(el, best)
		if err != nil {
			return nil, err
		}
		if ok && cmp*direction > 0 {
			best = el
		}
	}
	return best, nil
}

func medianOf(ctx context.Context, values system.List) (system.Value, error) {
	sorted := make(system.List, len(values))
	copy(sorted, values)
	var sortErr error
	sort.SliceStable(sorted, func(i, j int) bool {
		cmp, ok, err := system.Compare(sorted[i], sorted[j])
		if err != nil {
			sortErr = err
		}
		return ok && cmp < 0
	})
	if sortErr != nil {
		return nil, sortErr
	}
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid], nil
	}
	sum, err := system.Add(ctx, sorted[mid-1], sorted[mid])
	if err != nil {
		return nil, err
	}
	return system.Divide(ctx, sum, system.Integer(2))
}

func stdDevOf(ctx context.Context, values system.List) (system.Value, error) {
	if len(values) < 2 {
		return system.Null{}, nil
	}
	sum, err := sumValues(ctx, values)
	if err != nil {
		return nil, err
	}
	mean, err := system.Divide(ctx, sum, system.Integer(len(values)))
	if err != nil {
		return nil, err
	}
	var acc system.Value = system.MustDecimal("0")
	for _, el := range values {
		diff, err := system.Subtract(ctx, el, mean)
		if err != nil {
			return nil, err
		}
		sq, err := system.Multiply(ctx, diff, diff)
		if err != nil {
			return nil, err
		}
		acc, err = system.Add(ctx, acc, sq)
		if err != nil {
			return nil, err
		}
	}
	variance, err := system.Divide(ctx, acc, system.Integer(len(values)-1))
	if err != nil {
		return nil, err
	}
	d, ok := variance.(system.Decimal)
	if !ok {
		return system.Null{}, nil
	}
	c := apd.BaseContext.WithPrecision(28)
	var root apd.Decimal
	if _, err := c.Sqrt(&root, d.Value); err != nil {
		return nil, err
	}
	return system.Decimal{Value: &root}, nil
}
