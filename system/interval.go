package system

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/big"

	"github.com/cockroachdb/apd/v3"
)

// Interval is the CQL Interval<T> type. A null endpoint that is open
// means the interval is unbounded on that side; a null endpoint that is
// closed means the boundary is unknown.
type Interval struct {
	Low        Value
	High       Value
	LowClosed  bool
	HighClosed bool
}

// NewInterval applies the construction invariant: an interval whose low
// bound is above its high bound is null.
func NewInterval(low, high Value, lowClosed, highClosed bool) Value {
	iv := Interval{Low: low, High: high, LowClosed: lowClosed, HighClosed: highClosed}
	if !IsNull(low) && !IsNull(high) {
		if cmp, ok, err := Compare(low, high); err == nil && ok && cmp > 0 {
			return Null{}
		}
	}
	return iv
}

func (i Interval) TypeName() string {
	point := "System.Any"
	if !IsNull(i.Low) {
		point = i.Low.TypeName()
	} else if !IsNull(i.High) {
		point = i.High.TypeName()
	}
	return fmt.Sprintf("Interval<%s>", point)
}

// bound is a normalized closed endpoint used by all interval operators.
type bound struct {
	value    Value
	infinity int // -1 unbounded low, +1 unbounded high, 0 bounded
	unknown  bool
}

func (i Interval) lowBound() bound {
	if IsNull(i.Low) {
		if i.LowClosed {
			return bound{unknown: true}
		}
		return bound{infinity: -1}
	}
	if i.LowClosed {
		return bound{value: i.Low}
	}
	succ, ok := successor(i.Low)
	if !ok {
		return bound{unknown: true}
	}
	return bound{value: succ}
}

func (i Interval) highBound() bound {
	if IsNull(i.High) {
		if i.HighClosed {
			return bound{unknown: true}
		}
		return bound{infinity: 1}
	}
	if i.HighClosed {
		return bound{value: i.High}
	}
	pred, ok := predecessor(i.High)
	if !ok {
		return bound{unknown: true}
	}
	return bound{value: pred}
}

// Start returns the normalized starting point of the interval, null when
// unknown or unbounded.
func (i Interval) Start() Value {
	b := i.lowBound()
	if b.unknown || b.infinity != 0 {
		return Null{}
	}
	return b.value
}

// End returns the normalized ending point of the interval.
func (i Interval) End() Value {
	b := i.highBound()
	if b.unknown || b.infinity != 0 {
		return Null{}
	}
	return b.value
}

func cmpBounds(a, b bound) (int, bool) {
	if a.unknown || b.unknown {
		return 0, false
	}
	if a.infinity != 0 || b.infinity != 0 {
		if a.infinity == b.infinity {
			return 0, true
		}
		if a.infinity < b.infinity {
			return -1, true
		}
		return 1, true
	}
	cmp, ok, err := Compare(a.value, b.value)
	if err != nil || !ok {
		return 0, false
	}
	return cmp, true
}

func cmpBoundPoint(b bound, p Value) (int, bool) {
	if b.unknown || IsNull(p) {
		return 0, false
	}
	if b.infinity != 0 {
		return b.infinity, true
	}
	cmp, ok, err := Compare(b.value, p)
	if err != nil || !ok {
		return 0, false
	}
	return cmp, true
}

// Contains implements `contains` / `in` for a point.
func (i Interval) Contains(p Value) Value {
	if IsNull(p) {
		return Null{}
	}
	lowCmp, lowOK := cmpBoundPoint(i.lowBound(), p)
	highCmp, highOK := cmpBoundPoint(i.highBound(), p)
	// false dominates unknown
	if lowOK && lowCmp > 0 {
		return Boolean(false)
	}
	if highOK && highCmp < 0 {
		return Boolean(false)
	}
	if !lowOK || !highOK {
		return Null{}
	}
	return Boolean(true)
}

// Includes reports whether i wholly contains other.
func (i Interval) Includes(other Interval) Value {
	lowCmp, lowOK := cmpBounds(i.lowBound(), other.lowBound())
	highCmp, highOK := cmpBounds(i.highBound(), other.highBound())
	if lowOK && lowCmp > 0 {
		return Boolean(false)
	}
	if highOK && highCmp < 0 {
		return Boolean(false)
	}
	if !lowOK || !highOK {
		return Null{}
	}
	return Boolean(true)
}

// ProperlyIncludes requires inclusion with at least one strict bound.
func (i Interval) ProperlyIncludes(other Interval) Value {
	inc := i.Includes(other)
	if b, ok := inc.(Boolean); !ok || !bool(b) {
		return inc
	}
	eq := i.sameBounds(other)
	if IsNull(eq) {
		return Null{}
	}
	return Not(eq)
}

func (i Interval) sameBounds(other Interval) Value {
	lowCmp, lowOK := cmpBounds(i.lowBound(), other.lowBound())
	highCmp, highOK := cmpBounds(i.highBound(), other.highBound())
	if !lowOK || !highOK {
		return Null{}
	}
	return Boolean(lowCmp == 0 && highCmp == 0)
}

// Before: i ends before other begins.
func (i Interval) Before(other Interval) Value {
	cmp, ok := cmpBounds(i.highBound(), other.lowBound())
	if !ok {
		return Null{}
	}
	return Boolean(cmp < 0)
}

// After: i begins after other ends.
func (i Interval) After(other Interval) Value {
	cmp, ok := cmpBounds(i.lowBound(), other.highBound())
	if !ok {
		return Null{}
	}
	return Boolean(cmp > 0)
}

// BeforePoint and AfterPoint relate an interval to a point.
func (i Interval) BeforePoint(p Value) Value {
	cmp, ok := cmpBoundPoint(i.highBound(), p)
	if !ok {
		return Null{}
	}
	return Boolean(cmp < 0)
}

func (i Interval) AfterPoint(p Value) Value {
	cmp, ok := cmpBoundPoint(i.lowBound(), p)
	if !ok {
		return Null{}
	}
	return Boolean(cmp > 0)
}

// Meets: the intervals are adjacent with nothing between them.
func (i Interval) Meets(other Interval) Value {
	mb := i.MeetsBefore(other)
	ma := i.MeetsAfter(other)
	return Or(mb, ma)
}

func (i Interval) MeetsBefore(other Interval) Value {
	hb := i.highBound()
	lb := other.lowBound()
	if hb.unknown || lb.unknown {
		return Null{}
	}
	if hb.infinity != 0 || lb.infinity != 0 {
		return Boolean(false)
	}
	succ, ok := successor(hb.value)
	if !ok {
		return Null{}
	}
	cmp, ok, err := Compare(succ, lb.value)
	if err != nil || !ok {
		return Null{}
	}
	return Boolean(cmp == 0)
}

func (i Interval) MeetsAfter(other Interval) Value {
	return other.MeetsBefore(i)
}

// Overlaps: the intervals share at least one point.
func (i Interval) Overlaps(other Interval) Value {
	a, aOK := cmpBounds(i.lowBound(), other.highBound())
	b, bOK := cmpBounds(other.lowBound(), i.highBound())
	if aOK && a > 0 {
		return Boolean(false)
	}
	if bOK && b > 0 {
		return Boolean(false)
	}
	if !aOK || !bOK {
		return Null{}
	}
	return Boolean(true)
}

// OverlapsBefore: overlaps and starts before other starts.
func (i Interval) OverlapsBefore(other Interval) Value {
	ov := i.Overlaps(other)
	cmp, ok := cmpBounds(i.lowBound(), other.lowBound())
	if !ok {
		return And(ov, Null{})
	}
	return And(ov, Boolean(cmp < 0))
}

// OverlapsAfter: overlaps and ends after other ends.
func (i Interval) OverlapsAfter(other Interval) Value {
	ov := i.Overlaps(other)
	cmp, ok := cmpBounds(i.highBound(), other.highBound())
	if !ok {
		return And(ov, Null{})
	}
	return And(ov, Boolean(cmp > 0))
}

// Starts: i begins other and is included in it.
func (i Interval) Starts(other Interval) Value {
	lowCmp, lowOK := cmpBounds(i.lowBound(), other.lowBound())
	highCmp, highOK := cmpBounds(i.highBound(), other.highBound())
	if lowOK && lowCmp != 0 {
		return Boolean(false)
	}
	if highOK && highCmp > 0 {
		return Boolean(false)
	}
	if !lowOK || !highOK {
		return Null{}
	}
	return Boolean(true)
}

// Ends: i ends other and is included in it.
func (i Interval) Ends(other Interval) Value {
	lowCmp, lowOK := cmpBounds(i.lowBound(), other.lowBound())
	highCmp, highOK := cmpBounds(i.highBound(), other.highBound())
	if highOK && highCmp != 0 {
		return Boolean(false)
	}
	if lowOK && lowCmp < 0 {
		return Boolean(false)
	}
	if !lowOK || !highOK {
		return Null{}
	}
	return Boolean(true)
}

// Width is high - low for numeric point types, null for unbounded or
// unknown endpoints.
func (i Interval) Width(ctx context.Context) (Value, error) {
	lb, hb := i.lowBound(), i.highBound()
	if lb.unknown || hb.unknown || lb.infinity != 0 || hb.infinity != 0 {
		return Null{}, nil
	}
	return Subtract(ctx, hb.value, lb.value)
}

// Union merges two overlapping or meeting intervals; null otherwise.
func (i Interval) Union(other Interval) Value {
	ov := i.Overlaps(other)
	me := i.Meets(other)
	joined := Or(ov, me)
	if b, ok := joined.(Boolean); !ok || !bool(b) {
		return Null{}
	}
	low, lowClosed := minBoundary(i.Low, i.LowClosed, other.Low, other.LowClosed, true)
	high, highClosed := minBoundary(i.High, i.HighClosed, other.High, other.HighClosed, false)
	return Interval{Low: low, High: high, LowClosed: lowClosed, HighClosed: highClosed}
}

// Intersect returns the overlapping region, null when disjoint.
func (i Interval) Intersect(other Interval) Value {
	ov := i.Overlaps(other)
	if b, ok := ov.(Boolean); !ok || !bool(b) {
		return Null{}
	}
	lb := maxBound(i.lowBound(), other.lowBound())
	hb := minBound(i.highBound(), other.highBound())
	if lb.unknown || hb.unknown {
		return Null{}
	}
	low, high := Value(Null{}), Value(Null{})
	if lb.infinity == 0 {
		low = lb.value
	}
	if hb.infinity == 0 {
		high = hb.value
	}
	return Interval{Low: low, High: high, LowClosed: lb.infinity == 0, HighClosed: hb.infinity == 0}
}

func minBoundary(a Value, aClosed bool, b Value, bClosed bool, low bool) (Value, bool) {
	if IsNull(a) || IsNull(b) {
		if low {
			if IsNull(a) && !aClosed {
				return Null{}, false
			}
			if IsNull(b) && !bClosed {
				return Null{}, false
			}
		} else {
			if IsNull(a) && !aClosed {
				return Null{}, false
			}
			if IsNull(b) && !bClosed {
				return Null{}, false
			}
		}
		if IsNull(a) {
			return b, bClosed
		}
		return a, aClosed
	}
	cmp, ok, err := Compare(a, b)
	if err != nil || !ok {
		return Null{}, true
	}
	pickA := cmp < 0
	if !low {
		pickA = cmp > 0
	}
	if cmp == 0 {
		return a, aClosed || bClosed
	}
	if pickA {
		return a, aClosed
	}
	return b, bClosed
}

func maxBound(a, b bound) bound {
	cmp, ok := cmpBounds(a, b)
	if !ok {
		return bound{unknown: true}
	}
	if cmp >= 0 {
		return a
	}
	return b
}

func minBound(a, b bound) bound {
	cmp, ok := cmpBounds(a, b)
	if !ok {
		return bound{unknown: true}
	}
	if cmp <= 0 {
		return a
	}
	return b
}

func (i Interval) Equal(other Value) (bool, bool) {
	o, ok := other.(Interval)
	if !ok {
		return false, true
	}
	same := i.sameBounds(o)
	if IsNull(same) {
		return false, false
	}
	return bool(same.(Boolean)), true
}

func (i Interval) Equivalent(other Value) bool {
	eq, ok := i.Equal(other)
	return ok && eq
}

func (i Interval) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Low        Value `json:"low"`
		High       Value `json:"high"`
		LowClosed  bool  `json:"lowClosed"`
		HighClosed bool  `json:"highClosed"`
	}{orNull(i.Low), orNull(i.High), i.LowClosed, i.HighClosed})
}

func orNull(v Value) Value {
	if v == nil {
		return Null{}
	}
	return v
}

func (i Interval) String() string {
	lo, hi := "(", ")"
	if i.LowClosed {
		lo = "["
	}
	if i.HighClosed {
		hi = "]"
	}
	return fmt.Sprintf("Interval%s%s, %s%s", lo, orNull(i.Low), orNull(i.High), hi)
}

// decimalStep is the smallest representable decimal increment (scale 8).
var decimalStep = apd.New(1, -8)

// successor returns the next point value; ok=false when the type has no
// successor or it is not representable.
func successor(v Value) (Value, bool) {
	switch t := v.(type) {
	case Integer:
		if t == math.MaxInt64 {
			return nil, false
		}
		return t + 1, true
	case Long:
		return Long{Value: new(big.Int).Add(t.big(), big.NewInt(1))}, true
	case Decimal:
		var res apd.Decimal
		if _, err := defaultAPDContext.Add(&res, t.dec(), decimalStep); err != nil {
			return nil, false
		}
		return Decimal{Value: &res}, true
	case Quantity:
		s, ok := successor(t.Value)
		if !ok {
			return nil, false
		}
		return Quantity{Value: s.(Decimal), Unit: t.Unit}, true
	case Date:
		d, err := t.shift(stepQuantity(t.Precision), 1)
		if err != nil {
			return nil, false
		}
		return d, true
	case DateTime:
		d, err := t.shift(stepQuantity(t.Precision), 1)
		if err != nil {
			return nil, false
		}
		return d, true
	case Time:
		d, err := t.shift(stepQuantity(t.Precision), 1)
		if err != nil {
			return nil, false
		}
		return d, true
	}
	return nil, false
}

func predecessor(v Value) (Value, bool) {
	switch t := v.(type) {
	case Integer:
		if t == math.MinInt64 {
			return nil, false
		}
		return t - 1, true
	case Long:
		return Long{Value: new(big.Int).Sub(t.big(), big.NewInt(1))}, true
	case Decimal:
		var res apd.Decimal
		if _, err := defaultAPDContext.Sub(&res, t.dec(), decimalStep); err != nil {
			return nil, false
		}
		return Decimal{Value: &res}, true
	case Quantity:
		s, ok := predecessor(t.Value)
		if !ok {
			return nil, false
		}
		return Quantity{Value: s.(Decimal), Unit: t.Unit}, true
	case Date:
		d, err := t.shift(stepQuantity(t.Precision), -1)
		if err != nil {
			return nil, false
		}
		return d, true
	case DateTime:
		d, err := t.shift(stepQuantity(t.Precision), -1)
		if err != nil {
			return nil, false
		}
		return d, true
	case Time:
		d, err := t.shift(stepQuantity(t.Precision), -1)
		if err != nil {
			return nil, false
		}
		return d, true
	}
	return nil, false
}

func stepQuantity(p Precision) Quantity {
	unit := UnitMillisecond
	switch p {
	case PrecisionYear:
		unit = UnitYear
	case PrecisionMonth:
		unit = UnitMonth
	case PrecisionDay:
		unit = UnitDay
	case PrecisionHour:
		unit = UnitHour
	case PrecisionMinute:
		unit = UnitMinute
	case PrecisionSecond:
		unit = UnitSecond
	}
	return Quantity{Value: MustDecimal("1"), Unit: unit}
}

// Successor returns the next point value at the type's step size.
func Successor(v Value) (Value, bool) { return successor(v) }

// Predecessor returns the previous point value at the type's step size.
func Predecessor(v Value) (Value, bool) { return predecessor(v) }
