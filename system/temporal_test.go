package system

import (
	"context"
	"testing"
)

func TestParseDateLiterals(t *testing.T) {
	tests := []struct {
		in        string
		precision Precision
		str       string
	}{
		{"@2024", PrecisionYear, "@2024"},
		{"@2024-03", PrecisionMonth, "@2024-03"},
		{"@2024-03-15", PrecisionDay, "@2024-03-15"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := ParseDate(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if d.Precision != tt.precision {
				t.Errorf("precision = %v, want %v", d.Precision, tt.precision)
			}
			if d.String() != tt.str {
				t.Errorf("String() = %q, want %q", d.String(), tt.str)
			}
		})
	}
	if _, err := ParseDate("@2024-13-01"); err == nil {
		t.Error("expected error for month 13")
	}
}

func TestParseDateTimeOffset(t *testing.T) {
	withOffset, err := ParseDateTime("@2024-01-15T10:30:00+02:00")
	if err != nil {
		t.Fatal(err)
	}
	if !withOffset.HasOffset {
		t.Error("expected offset")
	}
	zulu, err := ParseDateTime("@2024-01-15T08:30:00Z")
	if err != nil {
		t.Fatal(err)
	}
	// same instant once normalized to UTC
	if got := Equal(withOffset, zulu); got != Boolean(true) {
		t.Errorf("offset-normalized comparison: got %v", got)
	}

	noOffset, err := ParseDateTime("@2024-01-15T08:30:00")
	if err != nil {
		t.Fatal(err)
	}
	if noOffset.HasOffset {
		t.Error("unexpected offset")
	}
	// offset vs no offset is unknown
	if got := Equal(zulu, noOffset); !IsNull(got) {
		t.Errorf("offset vs no-offset comparison: got %v, want null", got)
	}
}

func TestPrecisionUncertainty(t *testing.T) {
	year := mustDate("@2024")
	day := mustDate("@2024-06-15")
	// same year but differing precision: unknown
	if got := Equal(year, day); !IsNull(got) {
		t.Errorf("@2024 = @2024-06-15: got %v, want null", got)
	}
	// differing at a shared component: known
	if got := Equal(mustDate("@2023"), day); got != Boolean(false) {
		t.Errorf("@2023 = @2024-06-15: got %v, want false", got)
	}
	less, err := Less(mustDate("@2023"), day)
	if err != nil {
		t.Fatal(err)
	}
	if less != Boolean(true) {
		t.Errorf("@2023 < @2024-06-15: got %v", less)
	}
}

func TestDateArithmetic(t *testing.T) {
	ctx := context.Background()
	days := Quantity{Value: MustDecimal("10"), Unit: "days"}

	got, err := Add(ctx, mustDate("@2024-01-15"), days)
	if err != nil {
		t.Fatal(err)
	}
	want := mustDate("@2024-01-25")
	if eq := Equal(got, want); eq != Boolean(true) {
		t.Errorf("@2024-01-15 + 10 days = %v, want %v", got, want)
	}
	if got.(Date).Precision != PrecisionDay {
		t.Errorf("precision not preserved: %v", got.(Date).Precision)
	}

	// month-end clamping
	got, err = Add(ctx, mustDate("@2024-01-31"), Quantity{Value: MustDecimal("1"), Unit: "month"})
	if err != nil {
		t.Fatal(err)
	}
	if eq := Equal(got, mustDate("@2024-02-29")); eq != Boolean(true) {
		t.Errorf("@2024-01-31 + 1 month = %v, want @2024-02-29", got)
	}

	// subtraction
	got, err = Subtract(ctx, mustDate("@2024-03-01"), Quantity{Value: MustDecimal("1"), Unit: "day"})
	if err != nil {
		t.Fatal(err)
	}
	if eq := Equal(got, mustDate("@2024-02-29")); eq != Boolean(true) {
		t.Errorf("@2024-03-01 - 1 day = %v, want @2024-02-29", got)
	}

	// sub-day units are invalid for dates
	if _, err := Add(ctx, mustDate("@2024-01-15"), Quantity{Value: MustDecimal("1"), Unit: "hour"}); err == nil {
		t.Error("expected error adding hours to a date")
	}
}

func TestTimeWrapsAroundMidnight(t *testing.T) {
	ctx := context.Background()
	got, err := Add(ctx, mustTime("@T23:30"), Quantity{Value: MustDecimal("45"), Unit: "minutes"})
	if err != nil {
		t.Fatal(err)
	}
	if eq := Equal(got, mustTime("@T00:15")); eq != Boolean(true) {
		t.Errorf("@T23:30 + 45 minutes = %v, want @T00:15", got)
	}
}

func TestDurationBetween(t *testing.T) {
	tests := []struct {
		name      string
		l, r      string
		precision Precision
		want      Integer
	}{
		{"years", "@2020-06-15T00:00:00", "@2024-06-14T00:00:00", PrecisionYear, 3},
		{"full years", "@2020-06-15T00:00:00", "@2024-06-15T00:00:00", PrecisionYear, 4},
		{"months", "@2024-01-31T00:00:00", "@2024-03-01T00:00:00", PrecisionMonth, 1},
		{"days", "@2024-01-01T00:00:00", "@2024-01-11T06:00:00", PrecisionDay, 10},
		{"hours", "@2024-01-01T00:00:00", "@2024-01-01T05:30:00", PrecisionHour, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DurationBetween(mustDateTime(tt.l), mustDateTime(tt.r), tt.precision)
			if !ok {
				t.Fatal("unexpected uncertainty")
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}

	// requesting finer precision than carried is unknown
	if _, ok := DurationBetween(mustDateTime("@2024-01").ToDate().ToDateTime(), mustDateTime("@2024-06-15T00:00:00"), PrecisionDay); ok {
		t.Error("expected uncertainty for month-precision operand at day precision")
	}
}

func TestDifferenceBetween(t *testing.T) {
	// difference counts boundaries: Dec 31 to Jan 1 is 1 year
	got, ok := DifferenceBetween(mustDateTime("@2023-12-31T23:59:59"), mustDateTime("@2024-01-01T00:00:00"), PrecisionYear)
	if !ok {
		t.Fatal("unexpected uncertainty")
	}
	if got != 1 {
		t.Errorf("difference in years = %d, want 1", got)
	}

	dur, ok := DurationBetween(mustDateTime("@2023-12-31T23:59:59"), mustDateTime("@2024-01-01T00:00:00"), PrecisionYear)
	if !ok {
		t.Fatal("unexpected uncertainty")
	}
	if dur != 0 {
		t.Errorf("duration in years = %d, want 0", dur)
	}
}

func TestComponentExtraction(t *testing.T) {
	d := mustDateTime("@2024-03-15T10:30:59.123Z")
	for _, tt := range []struct {
		p    Precision
		want Integer
	}{
		{PrecisionYear, 2024},
		{PrecisionMonth, 3},
		{PrecisionDay, 15},
		{PrecisionHour, 10},
		{PrecisionMinute, 30},
		{PrecisionSecond, 59},
		{PrecisionMillisecond, 123},
	} {
		got, ok := d.Component(tt.p)
		if !ok || got != tt.want {
			t.Errorf("component %v = %d (%v), want %d", tt.p, got, ok, tt.want)
		}
	}

	// a month-precision date has no day component
	if _, ok := mustDate("@2024-03").Component(PrecisionDay); ok {
		t.Error("expected no day component at month precision")
	}
}

func TestFractionalSecondDigits(t *testing.T) {
	if got := FractionalSecondDigits("@T23:59:59.10000"); got != 5 {
		t.Errorf("got %d, want 5", got)
	}
	if got := FractionalSecondDigits("@T23:59:59.999"); got != 3 {
		t.Errorf("got %d, want 3", got)
	}
	if got := FractionalSecondDigits("@T23:59:59"); got != 0 {
		t.Errorf("got %d, want 0", got)
	}
}
