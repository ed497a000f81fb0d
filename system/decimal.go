package system

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/apd/v3"
)

// Decimal is the CQL System.Decimal type: a signed decimal with at least
// 28 significant digits and a fixed fractional scale of 8 digits.
type Decimal struct {
	Value *apd.Decimal
}

// maxDecimalMagnitude is 10^20: with 8 fractional digits, the largest
// representable magnitude inside 28 significant digits. Reaching it is an
// overflow error, never saturation.
var maxDecimalMagnitude = apd.New(1, 20)

// NewDecimal parses a decimal from its literal text.
func NewDecimal(s string) (Decimal, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return Decimal{}, err
	}
	return Decimal{Value: d}, nil
}

// MustDecimal is NewDecimal for literals known to be valid; it panics on
// malformed input.
func MustDecimal(s string) Decimal {
	d, err := NewDecimal(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Decimal) TypeName() string { return "System.Decimal" }

func (d Decimal) dec() *apd.Decimal {
	if d.Value == nil {
		return apd.New(0, 0)
	}
	return d.Value
}

func (d Decimal) Equal(other Value) (bool, bool) {
	o, ok := toDecimal(other)
	if !ok {
		if _, isQ := other.(Quantity); isQ {
			return other.Equal(d)
		}
		return false, true
	}
	return d.dec().Cmp(o.dec()) == 0, true
}

// Equivalent compares after rounding both operands to the smaller number
// of significant digits, so 1.5 ~ 1.50 and 1.5 ~ 1.55 is false.
func (d Decimal) Equivalent(other Value) bool {
	o, ok := toDecimal(other)
	if !ok {
		return false
	}
	prec := uint32(min(d.dec().NumDigits(), o.dec().NumDigits()))
	if prec == 0 {
		prec = 1
	}
	c := apd.BaseContext.WithPrecision(prec)
	var a, b apd.Decimal
	if _, err := c.Round(&a, d.dec()); err != nil {
		return false
	}
	if _, err := c.Round(&b, o.dec()); err != nil {
		return false
	}
	return a.Cmp(&b) == 0
}

func (d Decimal) Cmp(other Value) (int, bool, error) {
	o, ok := toDecimal(other)
	if !ok {
		return 0, false, unsupportedBinary("compare", d, other)
	}
	return d.dec().Cmp(o.dec()), true, nil
}

func (d Decimal) ToQuantity() Quantity {
	return Quantity{Value: d, Unit: "1"}
}

func (d Decimal) Add(ctx context.Context, other Value) (Value, error) {
	if q, isQ := other.(Quantity); isQ {
		return d.ToQuantity().Add(ctx, q)
	}
	o, ok := toDecimal(other)
	if !ok {
		return nil, unsupportedBinary("+", d, other)
	}
	var res apd.Decimal
	if _, err := apdContext(ctx).Add(&res, d.dec(), o.dec()); err != nil {
		return nil, err
	}
	return fixScale(ctx, &res, "addition")
}

func (d Decimal) Subtract(ctx context.Context, other Value) (Value, error) {
	if q, isQ := other.(Quantity); isQ {
		return d.ToQuantity().Subtract(ctx, q)
	}
	o, ok := toDecimal(other)
	if !ok {
		return nil, unsupportedBinary("-", d, other)
	}
	var res apd.Decimal
	if _, err := apdContext(ctx).Sub(&res, d.dec(), o.dec()); err != nil {
		return nil, err
	}
	return fixScale(ctx, &res, "subtraction")
}

func (d Decimal) Multiply(ctx context.Context, other Value) (Value, error) {
	if q, isQ := other.(Quantity); isQ {
		return d.ToQuantity().Multiply(ctx, q)
	}
	o, ok := toDecimal(other)
	if !ok {
		return nil, unsupportedBinary("*", d, other)
	}
	var res apd.Decimal
	if _, err := apdContext(ctx).Mul(&res, d.dec(), o.dec()); err != nil {
		return nil, err
	}
	return fixScale(ctx, &res, "multiplication")
}

// Divide yields null for division by zero, per the CQL specification.
func (d Decimal) Divide(ctx context.Context, other Value) (Value, error) {
	if q, isQ := other.(Quantity); isQ {
		return d.ToQuantity().Divide(ctx, q)
	}
	o, ok := toDecimal(other)
	if !ok {
		return nil, unsupportedBinary("/", d, other)
	}
	if o.dec().IsZero() {
		return Null{}, nil
	}
	var res apd.Decimal
	if _, err := apdContext(ctx).Quo(&res, d.dec(), o.dec()); err != nil {
		return nil, err
	}
	return fixScale(ctx, &res, "division")
}

func (d Decimal) Div(ctx context.Context, other Value) (Value, error) {
	o, ok := toDecimal(other)
	if !ok {
		return nil, unsupportedBinary("div", d, other)
	}
	if o.dec().IsZero() {
		return Null{}, nil
	}
	var res apd.Decimal
	if _, err := apdContext(ctx).QuoInteger(&res, d.dec(), o.dec()); err != nil {
		return nil, err
	}
	return fixScale(ctx, &res, "div")
}

func (d Decimal) Mod(ctx context.Context, other Value) (Value, error) {
	o, ok := toDecimal(other)
	if !ok {
		return nil, unsupportedBinary("mod", d, other)
	}
	if o.dec().IsZero() {
		return Null{}, nil
	}
	var res apd.Decimal
	if _, err := apdContext(ctx).Rem(&res, d.dec(), o.dec()); err != nil {
		return nil, err
	}
	return fixScale(ctx, &res, "mod")
}

func (d Decimal) Power(ctx context.Context, other Value) (Value, error) {
	o, ok := toDecimal(other)
	if !ok {
		return nil, unsupportedBinary("^", d, other)
	}
	var res apd.Decimal
	if _, err := apdContext(ctx).Pow(&res, d.dec(), o.dec()); err != nil {
		return nil, err
	}
	return fixScale(ctx, &res, "power")
}

func (d Decimal) Negate(ctx context.Context) (Value, error) {
	var res apd.Decimal
	res.Neg(d.dec())
	return Decimal{Value: &res}, nil
}

// Truncate drops the fractional part, yielding an Integer.
func (d Decimal) Truncate() (Integer, error) {
	var integ, frac apd.Decimal
	d.dec().Modf(&integ, &frac)
	v, err := integ.Int64()
	if err != nil {
		return 0, overflowError("truncate")
	}
	return Integer(v), nil
}

// fixScale clamps the fractional scale to 8 digits (half-up) and enforces
// the representable magnitude bound.
func fixScale(ctx context.Context, res *apd.Decimal, op string) (Value, error) {
	if res.Form == apd.Finite && res.Exponent < -8 {
		c := *apdContext(ctx)
		c.Rounding = apd.RoundHalfUp
		var q apd.Decimal
		if _, err := c.Quantize(&q, res, -8); err != nil {
			return nil, err
		}
		res = &q
	}
	var abs apd.Decimal
	abs.Abs(res)
	if abs.Cmp(maxDecimalMagnitude) >= 0 {
		return nil, overflowError(op)
	}
	return Decimal{Value: res}, nil
}

func toDecimal(v Value) (Decimal, bool) {
	switch o := v.(type) {
	case Decimal:
		return o, true
	case Integer:
		return o.ToDecimal(), true
	case Long:
		return o.ToDecimal(), true
	}
	return Decimal{}, false
}

func (d Decimal) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }
func (d Decimal) String() string               { return d.dec().Text('f') }
