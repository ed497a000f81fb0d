package system

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// Quantity is the CQL System.Quantity type: a decimal value with a UCUM
// unit. Calendar duration units (e.g. "years") are kept verbatim; UCUM
// conversion applies to all other units at operator evaluation time.
type Quantity struct {
	Value Decimal
	Unit  string
}

// Calendar duration units recognized for temporal arithmetic.
const (
	UnitYear         = "year"
	UnitYears        = "years"
	UnitMonth        = "month"
	UnitMonths       = "months"
	UnitWeek         = "week"
	UnitWeeks        = "weeks"
	UnitDay          = "day"
	UnitDays         = "days"
	UnitHour         = "hour"
	UnitHours        = "hours"
	UnitMinute       = "minute"
	UnitMinutes      = "minutes"
	UnitSecond       = "second"
	UnitSeconds      = "seconds"
	UnitMillisecond  = "millisecond"
	UnitMilliseconds = "milliseconds"
)

// normalizeTimeUnit maps plural calendar units and UCUM duration codes to
// the singular calendar unit.
func normalizeTimeUnit(unit string) string {
	switch strings.TrimSpace(unit) {
	case UnitYear, UnitYears, "a":
		return UnitYear
	case UnitMonth, UnitMonths, "mo":
		return UnitMonth
	case UnitWeek, UnitWeeks, "wk":
		return UnitWeek
	case UnitDay, UnitDays, "d":
		return UnitDay
	case UnitHour, UnitHours, "h":
		return UnitHour
	case UnitMinute, UnitMinutes, "min":
		return UnitMinute
	case UnitSecond, UnitSeconds, "s":
		return UnitSecond
	case UnitMillisecond, UnitMilliseconds, "ms":
		return UnitMillisecond
	default:
		return strings.TrimSpace(unit)
	}
}

func isTimeUnit(unit string) bool {
	switch unit {
	case UnitYear, UnitMonth, UnitWeek, UnitDay, UnitHour, UnitMinute, UnitSecond, UnitMillisecond:
		return true
	default:
		return false
	}
}

func isCalendarUnit(unit string) bool {
	return isTimeUnit(normalizeTimeUnit(unit))
}

func (q Quantity) TypeName() string { return "System.Quantity" }

func (q Quantity) unitOrUnity() string {
	if q.Unit == "" {
		return "1"
	}
	return q.Unit
}

func (q Quantity) Equal(other Value) (bool, bool) {
	o, ok := toQuantity(other)
	if !ok {
		return false, true
	}
	converted, err := convertDecimalUnit(o.Value.dec(), o.unitOrUnity(), q.unitOrUnity())
	if err != nil {
		// non-commensurable units: the comparison is unknown
		return false, false
	}
	return q.Value.dec().Cmp(converted) == 0, true
}

func (q Quantity) Equivalent(other Value) bool {
	o, ok := toQuantity(other)
	if !ok {
		return false
	}
	converted, err := convertDecimalUnit(o.Value.dec(), o.unitOrUnity(), q.unitOrUnity())
	if err != nil {
		return false
	}
	return q.Value.Equivalent(Decimal{Value: converted})
}

func (q Quantity) Cmp(other Value) (int, bool, error) {
	o, ok := toQuantity(other)
	if !ok {
		return 0, false, unsupportedBinary("compare", q, other)
	}
	converted, err := convertDecimalUnit(o.Value.dec(), o.unitOrUnity(), q.unitOrUnity())
	if err != nil {
		// non-commensurable: relational operators yield null
		return 0, false, nil
	}
	return q.Value.dec().Cmp(converted), true, nil
}

func (q Quantity) Add(ctx context.Context, other Value) (Value, error) {
	o, ok := toQuantity(other)
	if !ok {
		return nil, unsupportedBinary("+", q, other)
	}
	converted, err := convertDecimalUnit(o.Value.dec(), o.unitOrUnity(), q.unitOrUnity())
	if err != nil {
		return Null{}, nil
	}
	sum, err := q.Value.Add(ctx, Decimal{Value: converted})
	if err != nil {
		return nil, err
	}
	if IsNull(sum) {
		return Null{}, nil
	}
	return Quantity{Value: sum.(Decimal), Unit: q.unitOrUnity()}, nil
}

func (q Quantity) Subtract(ctx context.Context, other Value) (Value, error) {
	o, ok := toQuantity(other)
	if !ok {
		return nil, unsupportedBinary("-", q, other)
	}
	converted, err := convertDecimalUnit(o.Value.dec(), o.unitOrUnity(), q.unitOrUnity())
	if err != nil {
		return Null{}, nil
	}
	diff, err := q.Value.Subtract(ctx, Decimal{Value: converted})
	if err != nil {
		return nil, err
	}
	if IsNull(diff) {
		return Null{}, nil
	}
	return Quantity{Value: diff.(Decimal), Unit: q.unitOrUnity()}, nil
}

func (q Quantity) Multiply(ctx context.Context, other Value) (Value, error) {
	o, ok := toQuantity(other)
	if !ok {
		return nil, unsupportedBinary("*", q, other)
	}
	prod, err := q.Value.Multiply(ctx, o.Value)
	if err != nil {
		return nil, err
	}
	if IsNull(prod) {
		return Null{}, nil
	}
	return Quantity{Value: prod.(Decimal), Unit: formatProductUnit(q.unitOrUnity(), o.unitOrUnity())}, nil
}

func (q Quantity) Divide(ctx context.Context, other Value) (Value, error) {
	o, ok := toQuantity(other)
	if !ok {
		return nil, unsupportedBinary("/", q, other)
	}
	quot, err := q.Value.Divide(ctx, o.Value)
	if err != nil {
		return nil, err
	}
	if IsNull(quot) {
		return Null{}, nil
	}
	return Quantity{Value: quot.(Decimal), Unit: formatDivisionUnit(q.unitOrUnity(), o.unitOrUnity())}, nil
}

func (q Quantity) Negate(ctx context.Context) (Value, error) {
	neg, err := q.Value.Negate(ctx)
	if err != nil {
		return nil, err
	}
	return Quantity{Value: neg.(Decimal), Unit: q.Unit}, nil
}

// ConvertTo converts the quantity into the target unit, or reports
// ok=false for non-commensurable units.
func (q Quantity) ConvertTo(unit string) (Quantity, bool) {
	converted, err := convertDecimalUnit(q.Value.dec(), q.unitOrUnity(), unit)
	if err != nil {
		return Quantity{}, false
	}
	return Quantity{Value: Decimal{Value: converted}, Unit: unit}, true
}

func formatProductUnit(left, right string) string {
	switch {
	case left == "1":
		return right
	case right == "1":
		return left
	}
	return fmt.Sprintf("%s.%s", wrapNumerator(left), wrapNumerator(right))
}

func formatDivisionUnit(numerator, denominator string) string {
	switch {
	case numerator == denominator:
		return "1"
	case denominator == "1":
		return numerator
	case numerator == "1":
		return fmt.Sprintf("1/%s", wrapDenominator(denominator))
	}
	return fmt.Sprintf("%s/%s", wrapNumerator(numerator), wrapDenominator(denominator))
}

func wrapNumerator(u string) string {
	if strings.ContainsRune(u, '/') {
		return fmt.Sprintf("(%s)", u)
	}
	return u
}

func wrapDenominator(u string) string {
	if strings.ContainsAny(u, "./") {
		return fmt.Sprintf("(%s)", u)
	}
	return u
}

func toQuantity(v Value) (Quantity, bool) {
	switch o := v.(type) {
	case Quantity:
		return o, true
	case Decimal:
		return o.ToQuantity(), true
	case Integer:
		return o.ToDecimal().ToQuantity(), true
	case Long:
		return o.ToDecimal().ToQuantity(), true
	}
	return Quantity{}, false
}

func (q Quantity) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Value *apd.Decimal `json:"value"`
		Unit  string       `json:"unit"`
	}{Value: q.Value.dec(), Unit: q.unitOrUnity()})
}

func (q Quantity) String() string {
	u := q.unitOrUnity()
	if isCalendarUnit(u) {
		return fmt.Sprintf("%s %s", q.Value, u)
	}
	return fmt.Sprintf("%s '%s'", q.Value, u)
}

// Ratio is the CQL System.Ratio type: a pair of quantities.
type Ratio struct {
	Numerator   Quantity
	Denominator Quantity
}

func (r Ratio) TypeName() string { return "System.Ratio" }

// Equal on ratios requires both components equal; ratios are not reduced.
func (r Ratio) Equal(other Value) (bool, bool) {
	o, ok := other.(Ratio)
	if !ok {
		return false, true
	}
	numEq, numOK := r.Numerator.Equal(o.Numerator)
	denEq, denOK := r.Denominator.Equal(o.Denominator)
	if !numOK || !denOK {
		return false, false
	}
	return numEq && denEq, true
}

// Equivalent on ratios compares the reduced value: n1/d1 ~ n2/d2 iff
// n1*d2 = n2*d1.
func (r Ratio) Equivalent(other Value) bool {
	o, ok := other.(Ratio)
	if !ok {
		return false
	}
	ctx := context.Background()
	left, err := r.Numerator.Multiply(ctx, o.Denominator)
	if err != nil {
		return false
	}
	right, err := o.Numerator.Multiply(ctx, r.Denominator)
	if err != nil {
		return false
	}
	return left.Equivalent(right)
}

func (r Ratio) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Numerator   Quantity `json:"numerator"`
		Denominator Quantity `json:"denominator"`
	}{r.Numerator, r.Denominator})
}

func (r Ratio) String() string {
	return fmt.Sprintf("%s:%s", r.Numerator, r.Denominator)
}
