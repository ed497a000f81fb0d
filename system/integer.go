package system

import (
	"context"
	"encoding/json"
	"math/big"
	"strconv"

	"github.com/cockroachdb/apd/v3"

	"github.com/DAMEDIC/cql-engine-go/internal/overflow"
)

// Integer is the CQL System.Integer type: a 64-bit signed integer.
type Integer int64

func (i Integer) TypeName() string { return "System.Integer" }

func (i Integer) Equal(other Value) (bool, bool) {
	switch o := other.(type) {
	case Integer:
		return i == o, true
	case Long, Decimal, Quantity:
		return other.Equal(i)
	}
	return false, true
}

func (i Integer) Equivalent(other Value) bool {
	eq, ok := i.Equal(other)
	return ok && eq
}

func (i Integer) Cmp(other Value) (int, bool, error) {
	switch o := other.(type) {
	case Integer:
		switch {
		case i < o:
			return -1, true, nil
		case i > o:
			return 1, true, nil
		default:
			return 0, true, nil
		}
	case Long:
		return i.ToLong().Cmp(o)
	}
	return i.ToDecimal().Cmp(other)
}

func (i Integer) ToLong() Long {
	return Long{Value: big.NewInt(int64(i))}
}

func (i Integer) ToDecimal() Decimal {
	return Decimal{Value: apd.New(int64(i), 0)}
}

func (i Integer) Add(ctx context.Context, other Value) (Value, error) {
	switch o := other.(type) {
	case Integer:
		res, ok := overflow.Add[int64](int64(i), int64(o))
		if !ok {
			return nil, overflowError("addition")
		}
		return Integer(res), nil
	case Long:
		return i.ToLong().Add(ctx, o)
	case Decimal:
		return i.ToDecimal().Add(ctx, o)
	case Quantity:
		return i.ToDecimal().ToQuantity().Add(ctx, o)
	}
	return nil, unsupportedBinary("+", i, other)
}

func (i Integer) Subtract(ctx context.Context, other Value) (Value, error) {
	switch o := other.(type) {
	case Integer:
		res, ok := overflow.Sub[int64](int64(i), int64(o))
		if !ok {
			return nil, overflowError("subtraction")
		}
		return Integer(res), nil
	case Long:
		return i.ToLong().Subtract(ctx, o)
	case Decimal:
		return i.ToDecimal().Subtract(ctx, o)
	case Quantity:
		return i.ToDecimal().ToQuantity().Subtract(ctx, o)
	}
	return nil, unsupportedBinary("-", i, other)
}

func (i Integer) Multiply(ctx context.Context, other Value) (Value, error) {
	switch o := other.(type) {
	case Integer:
		res, ok := overflow.Mul[int64](int64(i), int64(o))
		if !ok {
			return nil, overflowError("multiplication")
		}
		return Integer(res), nil
	case Long:
		return i.ToLong().Multiply(ctx, o)
	case Decimal:
		return i.ToDecimal().Multiply(ctx, o)
	case Quantity:
		return i.ToDecimal().ToQuantity().Multiply(ctx, o)
	}
	return nil, unsupportedBinary("*", i, other)
}

// Divide always produces a Decimal, per the CQL `/` operator.
func (i Integer) Divide(ctx context.Context, other Value) (Value, error) {
	return i.ToDecimal().Divide(ctx, other)
}

func (i Integer) Div(ctx context.Context, other Value) (Value, error) {
	switch o := other.(type) {
	case Integer:
		if o == 0 {
			return Null{}, nil
		}
		res, ok := overflow.Div[int64](int64(i), int64(o))
		if !ok {
			return nil, overflowError("div")
		}
		return Integer(res), nil
	case Long:
		return i.ToLong().Div(ctx, o)
	case Decimal:
		return i.ToDecimal().Div(ctx, o)
	}
	return nil, unsupportedBinary("div", i, other)
}

func (i Integer) Mod(ctx context.Context, other Value) (Value, error) {
	switch o := other.(type) {
	case Integer:
		if o == 0 {
			return Null{}, nil
		}
		res, ok := overflow.Mod[int64](int64(i), int64(o))
		if !ok {
			return nil, overflowError("mod")
		}
		return Integer(res), nil
	case Long:
		return i.ToLong().Mod(ctx, o)
	case Decimal:
		return i.ToDecimal().Mod(ctx, o)
	}
	return nil, unsupportedBinary("mod", i, other)
}

func (i Integer) Power(ctx context.Context, other Value) (Value, error) {
	switch o := other.(type) {
	case Integer:
		if o < 0 {
			d, err := i.ToDecimal().Power(ctx, o.ToDecimal())
			return d, err
		}
		res := Integer(1)
		for n := Integer(0); n < o; n++ {
			next, ok := overflow.Mul[int64](int64(res), int64(i))
			if !ok {
				return nil, overflowError("power")
			}
			res = Integer(next)
		}
		return res, nil
	case Long:
		return i.ToLong().Power(ctx, o)
	case Decimal:
		return i.ToDecimal().Power(ctx, o)
	}
	return nil, unsupportedBinary("^", i, other)
}

func (i Integer) Negate(ctx context.Context) (Value, error) {
	res, ok := overflow.Neg[int64](int64(i))
	if !ok {
		return nil, overflowError("negation")
	}
	return Integer(res), nil
}

func (i Integer) MarshalJSON() ([]byte, error) { return json.Marshal(int64(i)) }
func (i Integer) String() string               { return strconv.FormatInt(int64(i), 10) }

// Long is the CQL System.Long type. It is arbitrary precision and never
// overflows.
type Long struct {
	Value *big.Int
}

// NewLong creates a Long from a fixed-width integer.
func NewLong(v int64) Long {
	return Long{Value: big.NewInt(v)}
}

func (l Long) TypeName() string { return "System.Long" }

func (l Long) big() *big.Int {
	if l.Value == nil {
		return new(big.Int)
	}
	return l.Value
}

func (l Long) Equal(other Value) (bool, bool) {
	switch o := other.(type) {
	case Long:
		return l.big().Cmp(o.big()) == 0, true
	case Integer:
		return l.big().Cmp(big.NewInt(int64(o))) == 0, true
	case Decimal, Quantity:
		return other.Equal(l)
	}
	return false, true
}

func (l Long) Equivalent(other Value) bool {
	eq, ok := l.Equal(other)
	return ok && eq
}

func (l Long) Cmp(other Value) (int, bool, error) {
	switch o := other.(type) {
	case Long:
		return l.big().Cmp(o.big()), true, nil
	case Integer:
		return l.big().Cmp(big.NewInt(int64(o))), true, nil
	}
	return l.ToDecimal().Cmp(other)
}

func (l Long) ToDecimal() Decimal {
	var d apd.Decimal
	// the coefficient is a copy, the Long stays immutable
	d.Coeff.SetString(new(big.Int).Abs(l.big()).String(), 10)
	d.Negative = l.big().Sign() < 0
	return Decimal{Value: &d}
}

func (l Long) Add(ctx context.Context, other Value) (Value, error) {
	switch o := other.(type) {
	case Long:
		return Long{Value: new(big.Int).Add(l.big(), o.big())}, nil
	case Integer:
		return Long{Value: new(big.Int).Add(l.big(), big.NewInt(int64(o)))}, nil
	case Decimal:
		return l.ToDecimal().Add(ctx, o)
	case Quantity:
		return l.ToDecimal().ToQuantity().Add(ctx, o)
	}
	return nil, unsupportedBinary("+", l, other)
}

func (l Long) Subtract(ctx context.Context, other Value) (Value, error) {
	switch o := other.(type) {
	case Long:
		return Long{Value: new(big.Int).Sub(l.big(), o.big())}, nil
	case Integer:
		return Long{Value: new(big.Int).Sub(l.big(), big.NewInt(int64(o)))}, nil
	case Decimal:
		return l.ToDecimal().Subtract(ctx, o)
	case Quantity:
		return l.ToDecimal().ToQuantity().Subtract(ctx, o)
	}
	return nil, unsupportedBinary("-", l, other)
}

func (l Long) Multiply(ctx context.Context, other Value) (Value, error) {
	switch o := other.(type) {
	case Long:
		return Long{Value: new(big.Int).Mul(l.big(), o.big())}, nil
	case Integer:
		return Long{Value: new(big.Int).Mul(l.big(), big.NewInt(int64(o)))}, nil
	case Decimal:
		return l.ToDecimal().Multiply(ctx, o)
	case Quantity:
		return l.ToDecimal().ToQuantity().Multiply(ctx, o)
	}
	return nil, unsupportedBinary("*", l, other)
}

func (l Long) Divide(ctx context.Context, other Value) (Value, error) {
	return l.ToDecimal().Divide(ctx, other)
}

func (l Long) Div(ctx context.Context, other Value) (Value, error) {
	switch o := other.(type) {
	case Long:
		if o.big().Sign() == 0 {
			return Null{}, nil
		}
		return Long{Value: new(big.Int).Quo(l.big(), o.big())}, nil
	case Integer:
		return l.Div(ctx, o.ToLong())
	case Decimal:
		return l.ToDecimal().Div(ctx, o)
	}
	return nil, unsupportedBinary("div", l, other)
}

func (l Long) Mod(ctx context.Context, other Value) (Value, error) {
	switch o := other.(type) {
	case Long:
		if o.big().Sign() == 0 {
			return Null{}, nil
		}
		return Long{Value: new(big.Int).Rem(l.big(), o.big())}, nil
	case Integer:
		return l.Mod(ctx, o.ToLong())
	case Decimal:
		return l.ToDecimal().Mod(ctx, o)
	}
	return nil, unsupportedBinary("mod", l, other)
}

func (l Long) Power(ctx context.Context, other Value) (Value, error) {
	switch o := other.(type) {
	case Long:
		if o.big().Sign() < 0 || !o.big().IsInt64() {
			return l.ToDecimal().Power(ctx, o.ToDecimal())
		}
		return Long{Value: new(big.Int).Exp(l.big(), o.big(), nil)}, nil
	case Integer:
		return l.Power(ctx, o.ToLong())
	case Decimal:
		return l.ToDecimal().Power(ctx, o)
	}
	return nil, unsupportedBinary("^", l, other)
}

func (l Long) Negate(ctx context.Context) (Value, error) {
	return Long{Value: new(big.Int).Neg(l.big())}, nil
}

func (l Long) MarshalJSON() ([]byte, error) {
	if l.big().IsInt64() {
		return json.Marshal(l.big().Int64())
	}
	return json.Marshal(l.big().String())
}

func (l Long) String() string { return l.big().String() + "L" }
