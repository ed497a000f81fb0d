package system

import (
	"context"
	"testing"
)

func iv(low, high Value, lowClosed, highClosed bool) Interval {
	return Interval{Low: low, High: high, LowClosed: lowClosed, HighClosed: highClosed}
}

func TestIntervalConstructionInvariant(t *testing.T) {
	if got := NewInterval(Integer(5), Integer(1), true, true); !IsNull(got) {
		t.Errorf("Interval[5, 1] should be null, got %v", got)
	}
	if got := NewInterval(Integer(1), Integer(5), true, true); IsNull(got) {
		t.Error("Interval[1, 5] should not be null")
	}
	if got := NewInterval(Null{}, Integer(5), false, true); IsNull(got) {
		t.Error("open-ended interval should not be null")
	}
}

// I contains x iff low <= x <= high under the closure flags.
func TestIntervalContains(t *testing.T) {
	tests := []struct {
		name string
		i    Interval
		p    Value
		want Value
	}{
		{"inside closed", iv(Integer(1), Integer(10), true, true), Integer(5), Boolean(true)},
		{"low boundary closed", iv(Integer(1), Integer(10), true, true), Integer(1), Boolean(true)},
		{"low boundary open", iv(Integer(1), Integer(10), false, true), Integer(1), Boolean(false)},
		{"high boundary open", iv(Integer(1), Integer(10), true, false), Integer(10), Boolean(false)},
		{"outside", iv(Integer(1), Integer(10), true, true), Integer(11), Boolean(false)},
		{"null point", iv(Integer(1), Integer(10), true, true), Null{}, Null{}},
		{"unbounded low", iv(Null{}, Integer(10), false, true), Integer(-100), Boolean(true)},
		{"unknown low boundary", iv(Null{}, Integer(10), true, true), Integer(5), Null{}},
		{"unknown low but above high", iv(Null{}, Integer(10), true, true), Integer(11), Boolean(false)},
		{"date inside", iv(mustDate("@2024-01-01"), mustDate("@2024-12-31"), true, true), mustDate("@2024-06-15"), Boolean(true)},
		{"date precision uncertainty", iv(mustDate("@2024-01-01"), mustDate("@2024-12-31"), true, true), mustDate("@2024"), Null{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.i.Contains(tt.p)
			if Equivalent(got, tt.want) != Boolean(true) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIntervalRelations(t *testing.T) {
	a := iv(Integer(1), Integer(5), true, true)
	b := iv(Integer(3), Integer(8), true, true)
	c := iv(Integer(6), Integer(9), true, true)
	d := iv(Integer(1), Integer(3), true, true)

	tests := []struct {
		name string
		got  Value
		want Value
	}{
		{"overlaps", a.Overlaps(b), Boolean(true)},
		{"not overlaps", a.Overlaps(c), Boolean(false)},
		{"before", a.Before(c), Boolean(true)},
		{"not before", b.Before(c), Boolean(false)},
		{"after", c.After(a), Boolean(true)},
		{"meets before", a.MeetsBefore(c), Boolean(true)},
		{"meets", a.Meets(c), Boolean(true)},
		{"meets after", c.MeetsAfter(a), Boolean(true)},
		{"not meets", a.Meets(b), Boolean(false)},
		{"includes", b.Includes(iv(Integer(4), Integer(6), true, true)), Boolean(true)},
		{"properly includes", b.ProperlyIncludes(iv(Integer(4), Integer(6), true, true)), Boolean(true)},
		{"not properly includes self", b.ProperlyIncludes(b), Boolean(false)},
		{"starts", d.Starts(a), Boolean(true)},
		{"not starts", b.Starts(a), Boolean(false)},
		{"ends", iv(Integer(3), Integer(5), true, true).Ends(a), Boolean(true)},
		{"overlaps before", a.OverlapsBefore(b), Boolean(true)},
		{"overlaps after", b.OverlapsAfter(a), Boolean(true)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if Equivalent(tt.got, tt.want) != Boolean(true) {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestIntervalOpenBoundaryNormalization(t *testing.T) {
	// Interval(1, 5) over integers is [2, 4]
	i := iv(Integer(1), Integer(5), false, false)
	if got := i.Start(); Equal(got, Integer(2)) != Boolean(true) {
		t.Errorf("start of (1, 5) = %v, want 2", got)
	}
	if got := i.End(); Equal(got, Integer(4)) != Boolean(true) {
		t.Errorf("end of (1, 5) = %v, want 4", got)
	}
	// [1, 5) meets [5, 9]
	if got := iv(Integer(1), Integer(5), true, false).Meets(iv(Integer(5), Integer(9), true, true)); got != Boolean(true) {
		t.Errorf("[1, 5) meets [5, 9]: got %v", got)
	}
}

func TestIntervalWidth(t *testing.T) {
	ctx := context.Background()
	w, err := iv(Integer(2), Integer(7), true, true).Width(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if Equal(w, Integer(5)) != Boolean(true) {
		t.Errorf("width = %v, want 5", w)
	}
	w, err = iv(Null{}, Integer(7), false, true).Width(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !IsNull(w) {
		t.Errorf("width of unbounded interval = %v, want null", w)
	}
}

func TestIntervalIntersectUnion(t *testing.T) {
	a := iv(Integer(1), Integer(5), true, true)
	b := iv(Integer(3), Integer(8), true, true)

	got := a.Intersect(b)
	want := iv(Integer(3), Integer(5), true, true)
	if Equal(got, want) != Boolean(true) {
		t.Errorf("intersect = %v, want %v", got, want)
	}

	got = a.Union(b)
	want = iv(Integer(1), Integer(8), true, true)
	if Equal(got, want) != Boolean(true) {
		t.Errorf("union = %v, want %v", got, want)
	}

	// disjoint intervals have no union
	if got := a.Union(iv(Integer(10), Integer(12), true, true)); !IsNull(got) {
		t.Errorf("union of disjoint intervals = %v, want null", got)
	}
}

func TestDateIntervalPartialPrecision(t *testing.T) {
	// overlapping is unknown when boundaries only carry year precision
	a := iv(mustDate("@2024"), mustDate("@2024"), true, true)
	b := iv(mustDate("@2024-06-01"), mustDate("@2024-06-30"), true, true)
	if got := a.Overlaps(b); !IsNull(got) {
		t.Errorf("year-precision overlaps = %v, want null", got)
	}
}
