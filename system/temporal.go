package system

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
)

// Precision is the granularity a temporal value carries. Comparing values
// at different precisions is unknown once the shared components are equal.
type Precision int

const (
	PrecisionYear Precision = iota
	PrecisionMonth
	PrecisionDay
	PrecisionHour
	PrecisionMinute
	PrecisionSecond
	PrecisionMillisecond
)

func (p Precision) String() string {
	switch p {
	case PrecisionYear:
		return "year"
	case PrecisionMonth:
		return "month"
	case PrecisionDay:
		return "day"
	case PrecisionHour:
		return "hour"
	case PrecisionMinute:
		return "minute"
	case PrecisionSecond:
		return "second"
	case PrecisionMillisecond:
		return "millisecond"
	default:
		return "unknown"
	}
}

// PrecisionFromUnit maps a calendar unit to a Precision.
func PrecisionFromUnit(unit string) (Precision, bool) {
	switch normalizeTimeUnit(unit) {
	case UnitYear:
		return PrecisionYear, true
	case UnitMonth:
		return PrecisionMonth, true
	case UnitDay:
		return PrecisionDay, true
	case UnitHour:
		return PrecisionHour, true
	case UnitMinute:
		return PrecisionMinute, true
	case UnitSecond:
		return PrecisionSecond, true
	case UnitMillisecond:
		return PrecisionMillisecond, true
	default:
		return 0, false
	}
}

var precisionLevels = []Precision{
	PrecisionYear, PrecisionMonth, PrecisionDay,
	PrecisionHour, PrecisionMinute, PrecisionSecond, PrecisionMillisecond,
}

func componentAt(t time.Time, level Precision) int {
	switch level {
	case PrecisionYear:
		return t.Year()
	case PrecisionMonth:
		return int(t.Month())
	case PrecisionDay:
		return t.Day()
	case PrecisionHour:
		return t.Hour()
	case PrecisionMinute:
		return t.Minute()
	case PrecisionSecond:
		return t.Second()
	default:
		return t.Nanosecond() / int(time.Millisecond)
	}
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// comparePrecisioned walks precision levels from `from` to `to`; once the
// shared levels agree, differing precision makes the ordering unknown.
func comparePrecisioned(a, b time.Time, ap, bp Precision, from, to Precision) (int, bool) {
	limit := min(ap, bp)
	if to < limit {
		limit = to
	}
	for _, level := range precisionLevels {
		if level < from {
			continue
		}
		if level > limit {
			break
		}
		if cmp := compareInts(componentAt(a, level), componentAt(b, level)); cmp != 0 {
			return cmp, true
		}
	}
	if ap != bp && limit < to && limit < max(ap, bp) {
		return 0, false
	}
	return 0, true
}

// Date is the CQL System.Date type.
type Date struct {
	Value     time.Time
	Precision Precision
}

// DateOf constructs a Date from components; precision follows the number
// of supplied components.
func DateOf(year int, month, day *int) Date {
	m, d, p := 1, 1, PrecisionYear
	if month != nil {
		m, p = *month, PrecisionMonth
		if day != nil {
			d, p = *day, PrecisionDay
		}
	}
	return Date{Value: time.Date(year, time.Month(m), d, 0, 0, 0, 0, time.UTC), Precision: p}
}

const (
	dateFormatYear  = "2006"
	dateFormatMonth = "2006-01"
	dateFormatFull  = "2006-01-02"
)

// ParseDate parses a date literal, with or without the leading `@`.
func ParseDate(s string) (Date, error) {
	ds := strings.TrimPrefix(s, "@")
	for _, f := range []struct {
		layout    string
		precision Precision
	}{
		{dateFormatYear, PrecisionYear},
		{dateFormatMonth, PrecisionMonth},
		{dateFormatFull, PrecisionDay},
	} {
		if d, err := time.Parse(f.layout, ds); err == nil {
			return Date{Value: d.UTC(), Precision: f.precision}, nil
		}
	}
	return Date{}, fmt.Errorf("invalid Date format: %s", s)
}

func (d Date) TypeName() string { return "System.Date" }

func (d Date) Equal(other Value) (bool, bool) {
	switch o := other.(type) {
	case Date:
		cmp, ok, err := d.Cmp(o)
		if err != nil {
			return false, true
		}
		return cmp == 0 && ok, ok
	case DateTime:
		return o.Equal(d)
	}
	return false, true
}

func (d Date) Equivalent(other Value) bool {
	o, ok := other.(Date)
	if !ok {
		return false
	}
	if d.Precision != o.Precision {
		return false
	}
	cmp, cmpOK, err := d.Cmp(o)
	return err == nil && cmpOK && cmp == 0
}

func (d Date) Cmp(other Value) (int, bool, error) {
	switch o := other.(type) {
	case Date:
		cmp, ok := comparePrecisioned(d.Value, o.Value, d.Precision, o.Precision, PrecisionYear, PrecisionDay)
		return cmp, ok, nil
	case DateTime:
		return d.ToDateTime().Cmp(o)
	}
	return 0, false, unsupportedBinary("compare", d, other)
}

// CmpAt compares only down to the requested precision.
func (d Date) CmpAt(o Date, p Precision) (int, bool) {
	return comparePrecisioned(d.Value, o.Value, d.Precision, o.Precision, PrecisionYear, min(p, PrecisionDay))
}

func (d Date) ToDateTime() DateTime {
	return DateTime{Value: d.Value, Precision: min(d.Precision, PrecisionDay), HasOffset: false}
}

// Component returns the named component, or ok=false if the date does not
// carry that precision.
func (d Date) Component(p Precision) (Integer, bool) {
	if p > d.Precision || p > PrecisionDay {
		return 0, false
	}
	return Integer(componentAt(d.Value, p)), true
}

// Add implements calendar arithmetic with a duration quantity.
// Sub-day units are invalid for dates.
func (d Date) Add(ctx context.Context, other Value) (Value, error) {
	q, ok := other.(Quantity)
	if !ok {
		return nil, unsupportedBinary("+", d, other)
	}
	return d.shift(q, 1)
}

func (d Date) Subtract(ctx context.Context, other Value) (Value, error) {
	q, ok := other.(Quantity)
	if !ok {
		return nil, unsupportedBinary("-", d, other)
	}
	return d.shift(q, -1)
}

func (d Date) shift(q Quantity, sign int64) (Value, error) {
	unit := normalizeTimeUnit(q.Unit)
	value, err := durationValue(q)
	if err != nil {
		return nil, err
	}
	value *= sign
	var result time.Time
	switch unit {
	case UnitYear:
		result = addCalendarMonths(d.Value, value*12)
	case UnitMonth:
		result = addCalendarMonths(d.Value, value)
	case UnitWeek:
		result = d.Value.AddDate(0, 0, int(value)*7)
	case UnitDay:
		result = d.Value.AddDate(0, 0, int(value))
	default:
		return nil, diagnosticInvalidUnit("Date", q.Unit)
	}
	if err := checkYearRange(result); err != nil {
		return nil, err
	}
	return Date{Value: result, Precision: d.Precision}, nil
}

func (d Date) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

func (d Date) String() string {
	switch d.Precision {
	case PrecisionYear:
		return "@" + d.Value.Format(dateFormatYear)
	case PrecisionMonth:
		return "@" + d.Value.Format(dateFormatMonth)
	default:
		return "@" + d.Value.Format(dateFormatFull)
	}
}

// Time is the CQL System.Time type: a time of day without a date.
type Time struct {
	Value     time.Time
	Precision Precision
}

// TimeOf constructs a Time from components.
func TimeOf(hour int, minute, second, millisecond *int) Time {
	m, s, ms, p := 0, 0, 0, PrecisionHour
	if minute != nil {
		m, p = *minute, PrecisionMinute
		if second != nil {
			s, p = *second, PrecisionSecond
			if millisecond != nil {
				ms, p = *millisecond, PrecisionMillisecond
			}
		}
	}
	return Time{
		Value:     time.Date(1, 1, 1, hour, m, s, ms*int(time.Millisecond), time.UTC),
		Precision: p,
	}
}

// ParseTime parses a time literal (`@T12:30:00.000` or bare
// `12:30:00.000`). Fractional seconds beyond millisecond resolution are
// accepted and truncated; semantic analysis rejects literals with more
// than three fractional digits.
func ParseTime(s string) (Time, error) {
	ts := strings.TrimPrefix(strings.TrimPrefix(s, "@"), "T")
	if strings.ContainsRune(ts, '.') {
		if t, err := time.Parse("15:04:05.999999999", ts); err == nil {
			return Time{Value: t.Truncate(time.Millisecond), Precision: PrecisionMillisecond}, nil
		}
		return Time{}, fmt.Errorf("invalid Time format: %s", s)
	}
	for _, f := range []struct {
		layout    string
		precision Precision
	}{
		{"15", PrecisionHour},
		{"15:04", PrecisionMinute},
		{"15:04:05", PrecisionSecond},
	} {
		if t, err := time.Parse(f.layout, ts); err == nil {
			return Time{Value: t, Precision: f.precision}, nil
		}
	}
	return Time{}, fmt.Errorf("invalid Time format: %s", s)
}

// FractionalSecondDigits counts the digits after the decimal point in a
// time or datetime literal, for the semantic bound of three.
func FractionalSecondDigits(literal string) int {
	i := strings.LastIndexByte(literal, '.')
	if i < 0 {
		return 0
	}
	digits := 0
	for _, r := range literal[i+1:] {
		if r < '0' || r > '9' {
			break
		}
		digits++
	}
	return digits
}

func (t Time) TypeName() string { return "System.Time" }

func (t Time) Equal(other Value) (bool, bool) {
	o, ok := other.(Time)
	if !ok {
		return false, true
	}
	cmp, cmpOK, err := t.Cmp(o)
	if err != nil {
		return false, true
	}
	return cmp == 0 && cmpOK, cmpOK
}

func (t Time) Equivalent(other Value) bool {
	o, ok := other.(Time)
	if !ok || t.Precision != o.Precision {
		return false
	}
	cmp, cmpOK, err := t.Cmp(o)
	return err == nil && cmpOK && cmp == 0
}

func (t Time) Cmp(other Value) (int, bool, error) {
	o, ok := other.(Time)
	if !ok {
		return 0, false, unsupportedBinary("compare", t, other)
	}
	cmp, cmpOK := comparePrecisioned(t.Value, o.Value, t.Precision, o.Precision, PrecisionHour, PrecisionMillisecond)
	return cmp, cmpOK, nil
}

func (t Time) CmpAt(o Time, p Precision) (int, bool) {
	return comparePrecisioned(t.Value, o.Value, t.Precision, o.Precision, PrecisionHour, p)
}

func (t Time) Component(p Precision) (Integer, bool) {
	if p < PrecisionHour || p > t.Precision {
		return 0, false
	}
	return Integer(componentAt(t.Value, p)), true
}

func (t Time) Add(ctx context.Context, other Value) (Value, error) {
	q, ok := other.(Quantity)
	if !ok {
		return nil, unsupportedBinary("+", t, other)
	}
	return t.shift(q, 1)
}

func (t Time) Subtract(ctx context.Context, other Value) (Value, error) {
	q, ok := other.(Quantity)
	if !ok {
		return nil, unsupportedBinary("-", t, other)
	}
	return t.shift(q, -1)
}

func (t Time) shift(q Quantity, sign int64) (Value, error) {
	unit := normalizeTimeUnit(q.Unit)
	value, err := durationValue(q)
	if err != nil {
		return nil, err
	}
	value *= sign
	var d time.Duration
	switch unit {
	case UnitHour:
		d = time.Duration(value) * time.Hour
	case UnitMinute:
		d = time.Duration(value) * time.Minute
	case UnitSecond:
		d = time.Duration(value) * time.Second
	case UnitMillisecond:
		d = time.Duration(value) * time.Millisecond
	default:
		return nil, diagnosticInvalidUnit("Time", q.Unit)
	}
	// times wrap around midnight
	result := t.Value.Add(d)
	result = time.Date(1, 1, 1, result.Hour(), result.Minute(), result.Second(), result.Nanosecond(), time.UTC)
	return Time{Value: result, Precision: t.Precision}, nil
}

func (t Time) MarshalJSON() ([]byte, error) { return json.Marshal(t.String()) }

func (t Time) String() string {
	switch t.Precision {
	case PrecisionHour:
		return "@T" + t.Value.Format("15")
	case PrecisionMinute:
		return "@T" + t.Value.Format("15:04")
	case PrecisionSecond:
		return "@T" + t.Value.Format("15:04:05")
	default:
		return "@T" + t.Value.Format("15:04:05.000")
	}
}

// DateTime is the CQL System.DateTime type. HasOffset records whether the
// literal carried a timezone offset; comparing an offset-bearing value to
// one without is unknown.
type DateTime struct {
	Value     time.Time
	Precision Precision
	HasOffset bool
}

// ParseDateTime parses a datetime literal with optional fractional
// seconds and timezone offset.
func ParseDateTime(s string) (DateTime, error) {
	ds := strings.TrimPrefix(s, "@")
	if !strings.ContainsRune(ds, 'T') {
		d, err := ParseDate(ds)
		if err != nil {
			return DateTime{}, fmt.Errorf("invalid DateTime format: %s", s)
		}
		return d.ToDateTime(), nil
	}

	datePart, timePart, _ := strings.Cut(ds, "T")
	offset, timePart, hasOffset := splitOffset(timePart)

	base, err := time.Parse(dateFormatFull, datePart)
	if err != nil {
		return DateTime{}, fmt.Errorf("invalid DateTime format: %s", s)
	}
	loc := time.UTC
	if hasOffset && offset != "Z" {
		t, err := time.Parse("-07:00", offset)
		if err != nil {
			return DateTime{}, fmt.Errorf("invalid DateTime offset: %s", s)
		}
		loc = t.Location()
	}

	if timePart == "" {
		return DateTime{
			Value:     time.Date(base.Year(), base.Month(), base.Day(), 0, 0, 0, 0, loc),
			Precision: PrecisionDay,
			HasOffset: hasOffset,
		}, nil
	}

	t, err := ParseTime(timePart)
	if err != nil {
		return DateTime{}, fmt.Errorf("invalid DateTime format: %s", s)
	}
	return DateTime{
		Value: time.Date(base.Year(), base.Month(), base.Day(),
			t.Value.Hour(), t.Value.Minute(), t.Value.Second(), t.Value.Nanosecond(), loc),
		Precision: t.Precision,
		HasOffset: hasOffset,
	}, nil
}

func splitOffset(timePart string) (offset, rest string, has bool) {
	if strings.HasSuffix(timePart, "Z") {
		return "Z", strings.TrimSuffix(timePart, "Z"), true
	}
	for i := len(timePart) - 1; i > 0; i-- {
		c := timePart[i]
		if c == '+' || c == '-' {
			return timePart[i:], timePart[:i], true
		}
		if c == ':' || (c >= '0' && c <= '9') {
			continue
		}
		break
	}
	return "", timePart, false
}

func (d DateTime) TypeName() string { return "System.DateTime" }

// normalized returns the component basis for comparison: UTC when the
// value carries an offset, wall components otherwise.
func (d DateTime) normalized() time.Time {
	if d.HasOffset {
		return d.Value.UTC()
	}
	return d.Value
}

func (d DateTime) Equal(other Value) (bool, bool) {
	var o DateTime
	switch t := other.(type) {
	case DateTime:
		o = t
	case Date:
		o = t.ToDateTime()
	default:
		return false, true
	}
	cmp, ok, err := d.Cmp(o)
	if err != nil {
		return false, true
	}
	return cmp == 0 && ok, ok
}

func (d DateTime) Equivalent(other Value) bool {
	o, ok := other.(DateTime)
	if !ok || d.Precision != o.Precision {
		return false
	}
	cmp, cmpOK, err := d.Cmp(o)
	return err == nil && cmpOK && cmp == 0
}

func (d DateTime) Cmp(other Value) (int, bool, error) {
	var o DateTime
	switch t := other.(type) {
	case DateTime:
		o = t
	case Date:
		o = t.ToDateTime()
	default:
		return 0, false, unsupportedBinary("compare", d, other)
	}
	if d.HasOffset != o.HasOffset {
		return 0, false, nil
	}
	cmp, ok := comparePrecisioned(d.normalized(), o.normalized(), d.Precision, o.Precision, PrecisionYear, PrecisionMillisecond)
	return cmp, ok, nil
}

func (d DateTime) CmpAt(o DateTime, p Precision) (int, bool) {
	if d.HasOffset != o.HasOffset {
		return 0, false
	}
	return comparePrecisioned(d.normalized(), o.normalized(), d.Precision, o.Precision, PrecisionYear, p)
}

func (d DateTime) Component(p Precision) (Integer, bool) {
	if p > d.Precision {
		return 0, false
	}
	return Integer(componentAt(d.normalized(), p)), true
}

// ToDate truncates to the date components.
func (d DateTime) ToDate() Date {
	t := d.normalized()
	return Date{
		Value:     time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
		Precision: min(d.Precision, PrecisionDay),
	}
}

func (d DateTime) Add(ctx context.Context, other Value) (Value, error) {
	q, ok := other.(Quantity)
	if !ok {
		return nil, unsupportedBinary("+", d, other)
	}
	return d.shift(q, 1)
}

func (d DateTime) Subtract(ctx context.Context, other Value) (Value, error) {
	q, ok := other.(Quantity)
	if !ok {
		return nil, unsupportedBinary("-", d, other)
	}
	return d.shift(q, -1)
}

func (d DateTime) shift(q Quantity, sign int64) (Value, error) {
	unit := normalizeTimeUnit(q.Unit)
	value, err := durationValue(q)
	if err != nil {
		return nil, err
	}
	value *= sign
	var result time.Time
	switch unit {
	case UnitYear:
		result = addCalendarMonths(d.Value, value*12)
	case UnitMonth:
		result = addCalendarMonths(d.Value, value)
	case UnitWeek:
		result = d.Value.AddDate(0, 0, int(value)*7)
	case UnitDay:
		result = d.Value.AddDate(0, 0, int(value))
	case UnitHour:
		result = d.Value.Add(time.Duration(value) * time.Hour)
	case UnitMinute:
		result = d.Value.Add(time.Duration(value) * time.Minute)
	case UnitSecond:
		result = d.Value.Add(time.Duration(value) * time.Second)
	case UnitMillisecond:
		result = d.Value.Add(time.Duration(value) * time.Millisecond)
	default:
		return nil, diagnosticInvalidUnit("DateTime", q.Unit)
	}
	if err := checkYearRange(result); err != nil {
		return nil, err
	}
	return DateTime{Value: result, Precision: d.Precision, HasOffset: d.HasOffset}, nil
}

func (d DateTime) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

func (d DateTime) String() string {
	var b strings.Builder
	b.WriteString("@")
	b.WriteString(d.Value.Format(dateFormatFull))
	if d.Precision >= PrecisionHour {
		b.WriteString("T")
		switch d.Precision {
		case PrecisionHour:
			b.WriteString(d.Value.Format("15"))
		case PrecisionMinute:
			b.WriteString(d.Value.Format("15:04"))
		case PrecisionSecond:
			b.WriteString(d.Value.Format("15:04:05"))
		default:
			b.WriteString(d.Value.Format("15:04:05.000"))
		}
	}
	if d.HasOffset {
		if _, off := d.Value.Zone(); off == 0 {
			b.WriteString("Z")
		} else {
			b.WriteString(d.Value.Format("-07:00"))
		}
	}
	return b.String()
}

// DurationBetween returns the number of whole calendar periods between
// two datetimes at the given precision. ok=false when either operand does
// not carry the precision or the offsets disagree.
func DurationBetween(l, r DateTime, p Precision) (Integer, bool) {
	if l.Precision < p || r.Precision < p {
		return 0, false
	}
	if l.HasOffset != r.HasOffset {
		return 0, false
	}
	a, b := l.normalized(), r.normalized()
	switch p {
	case PrecisionYear:
		return Integer(wholeMonthsBetween(a, b) / 12), true
	case PrecisionMonth:
		return Integer(wholeMonthsBetween(a, b)), true
	case PrecisionDay:
		return Integer(b.Sub(a) / (24 * time.Hour)), true
	case PrecisionHour:
		return Integer(b.Sub(a) / time.Hour), true
	case PrecisionMinute:
		return Integer(b.Sub(a) / time.Minute), true
	case PrecisionSecond:
		return Integer(b.Sub(a) / time.Second), true
	default:
		return Integer(b.Sub(a) / time.Millisecond), true
	}
}

// DifferenceBetween counts precision boundaries crossed between two
// datetimes.
func DifferenceBetween(l, r DateTime, p Precision) (Integer, bool) {
	if l.Precision < p || r.Precision < p {
		return 0, false
	}
	if l.HasOffset != r.HasOffset {
		return 0, false
	}
	a, b := truncateAt(l.normalized(), p), truncateAt(r.normalized(), p)
	switch p {
	case PrecisionYear:
		return Integer(b.Year() - a.Year()), true
	case PrecisionMonth:
		return Integer((b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())), true
	case PrecisionDay:
		return Integer(b.Sub(a) / (24 * time.Hour)), true
	case PrecisionHour:
		return Integer(b.Sub(a) / time.Hour), true
	case PrecisionMinute:
		return Integer(b.Sub(a) / time.Minute), true
	case PrecisionSecond:
		return Integer(b.Sub(a) / time.Second), true
	default:
		return Integer(b.Sub(a) / time.Millisecond), true
	}
}

func truncateAt(t time.Time, p Precision) time.Time {
	switch p {
	case PrecisionYear:
		return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	case PrecisionMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	case PrecisionDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case PrecisionHour:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, time.UTC)
	case PrecisionMinute:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)
	case PrecisionSecond:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond()/int(time.Millisecond)*int(time.Millisecond), time.UTC)
	}
}

// wholeMonthsBetween counts complete months from a to b (negative when b
// precedes a).
func wholeMonthsBetween(a, b time.Time) int {
	if b.Before(a) {
		return -wholeMonthsBetween(b, a)
	}
	months := (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
	if b.Day() < a.Day() {
		months--
	} else if b.Day() == a.Day() {
		at := time.Duration(a.Hour())*time.Hour + time.Duration(a.Minute())*time.Minute + time.Duration(a.Second())*time.Second
		bt := time.Duration(b.Hour())*time.Hour + time.Duration(b.Minute())*time.Minute + time.Duration(b.Second())*time.Second
		if bt < at {
			months--
		}
	}
	return months
}

// addCalendarMonths shifts by whole months, clamping to the last day of
// the target month (per the CQL calendar arithmetic rules).
func addCalendarMonths(t time.Time, months int64) time.Time {
	years, rem := months/12, months%12
	result := t.AddDate(int(years), int(rem), 0)
	if result.Day() < t.Day() {
		// rolled over into the next month; clamp back
		result = result.AddDate(0, 0, -result.Day())
	}
	return result
}

func durationValue(q Quantity) (int64, error) {
	var integ, frac apd.Decimal
	q.Value.dec().Modf(&integ, &frac)
	v, err := integ.Int64()
	if err != nil {
		return 0, overflowError("duration quantity")
	}
	return v, nil
}

func checkYearRange(t time.Time) error {
	if t.Year() < 1 || t.Year() > 9999 {
		return overflowError("date arithmetic")
	}
	return nil
}

func diagnosticInvalidUnit(typ, unit string) error {
	return fmt.Errorf("invalid time unit for %s: %s", typ, unit)
}
