package system

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestListExceptPreservesOrderAndNulls(t *testing.T) {
	l := List{Integer(1), Integer(2), Null{}, Integer(3)}
	got := l.ExceptList(List{Integer(2)})
	want := List{Integer(1), Null{}, Integer(3)}
	if diff := cmp.Diff(want.String(), got.String()); diff != "" {
		t.Errorf("except mismatch (-want +got):\n%s", diff)
	}
}

func TestListDistinct(t *testing.T) {
	l := List{Integer(1), Integer(2), Integer(1), Null{}, Null{}, Integer(2)}
	got := l.Distinct()
	want := List{Integer(1), Integer(2), Null{}}
	if got.String() != want.String() {
		t.Errorf("distinct = %v, want %v", got, want)
	}
}

func TestListUnionIntersect(t *testing.T) {
	a := List{Integer(1), Integer(2), Integer(3)}
	b := List{Integer(3), Integer(4)}

	if got := a.UnionList(b); got.String() != (List{Integer(1), Integer(2), Integer(3), Integer(4)}).String() {
		t.Errorf("union = %v", got)
	}
	if got := a.IntersectList(b); got.String() != (List{Integer(3)}).String() {
		t.Errorf("intersect = %v", got)
	}
}

func TestListContains(t *testing.T) {
	l := List{Integer(1), Null{}, Integer(3)}
	if got := l.ContainsValue(Integer(3)); got != Boolean(true) {
		t.Errorf("contains 3 = %v", got)
	}
	if got := l.ContainsValue(Integer(2)); got != Boolean(false) {
		t.Errorf("contains 2 = %v", got)
	}
	if got := l.ContainsValue(Null{}); !IsNull(got) {
		t.Errorf("contains null = %v, want null", got)
	}
	if got := (List{}).ContainsValue(Null{}); got != Boolean(false) {
		t.Errorf("empty contains null = %v, want false", got)
	}
}

func TestListEquality(t *testing.T) {
	if got := Equal(List{Integer(1), Integer(2)}, List{Integer(1), Integer(2)}); got != Boolean(true) {
		t.Errorf("equal lists: %v", got)
	}
	if got := Equal(List{Integer(1)}, List{Integer(2)}); got != Boolean(false) {
		t.Errorf("unequal lists: %v", got)
	}
	// a null element makes the comparison unknown unless decided elsewhere
	if got := Equal(List{Integer(1), Null{}}, List{Integer(1), Integer(2)}); !IsNull(got) {
		t.Errorf("list with null vs value: %v, want null", got)
	}
	if got := Equal(List{Integer(1), Null{}}, List{Integer(2), Null{}}); got != Boolean(false) {
		t.Errorf("lists differing at a known element: %v, want false", got)
	}
}

func TestListFlatten(t *testing.T) {
	l := List{List{Integer(1), Integer(2)}, Integer(3), List{Integer(4)}}
	got := l.Flatten()
	if got.String() != (List{Integer(1), Integer(2), Integer(3), Integer(4)}).String() {
		t.Errorf("flatten = %v", got)
	}
}

func TestSingletonFrom(t *testing.T) {
	v, err := (List{Integer(7)}).SingletonFrom()
	if err != nil || v != Integer(7) {
		t.Errorf("singleton = %v, %v", v, err)
	}
	v, err = (List{}).SingletonFrom()
	if err != nil || !IsNull(v) {
		t.Errorf("singleton of empty = %v, %v", v, err)
	}
	if _, err := (List{Integer(1), Integer(2)}).SingletonFrom(); err == nil {
		t.Error("expected error for multi-element singleton")
	}
}

func TestTupleEquality(t *testing.T) {
	a := NewTuple(
		TupleElement{Name: "name", Value: String("Alice")},
		TupleElement{Name: "age", Value: Integer(33)},
	)
	b := NewTuple(
		TupleElement{Name: "name", Value: String("Alice")},
		TupleElement{Name: "age", Value: Integer(33)},
	)
	if got := Equal(a, b); got != Boolean(true) {
		t.Errorf("equal tuples: %v", got)
	}

	c := NewTuple(
		TupleElement{Name: "name", Value: String("Bob")},
		TupleElement{Name: "age", Value: Integer(33)},
	)
	if got := Equal(a, c); got != Boolean(false) {
		t.Errorf("unequal tuples: %v", got)
	}
}

func TestQuantityComparison(t *testing.T) {
	g := Quantity{Value: MustDecimal("1"), Unit: "g"}
	mg := Quantity{Value: MustDecimal("1000"), Unit: "mg"}
	if got := Equal(g, mg); got != Boolean(true) {
		t.Errorf("1 g = 1000 mg: %v", got)
	}

	m := Quantity{Value: MustDecimal("1"), Unit: "m"}
	// non-commensurable comparison is unknown
	if got := Equal(g, m); !IsNull(got) {
		t.Errorf("1 g = 1 m: %v, want null", got)
	}

	less, err := Less(Quantity{Value: MustDecimal("500"), Unit: "mg"}, g)
	if err != nil {
		t.Fatal(err)
	}
	if less != Boolean(true) {
		t.Errorf("500 mg < 1 g: %v", less)
	}
}

func TestCodeConceptEquivalence(t *testing.T) {
	flu := Code{Code: "6142004", System: "http://snomed.info/sct", Display: "Influenza"}
	fluNoDisplay := Code{Code: "6142004", System: "http://snomed.info/sct"}

	if !flu.Equivalent(fluNoDisplay) {
		t.Error("codes differing only in display should be equivalent")
	}
	if eq, _ := flu.Equal(fluNoDisplay); eq {
		t.Error("codes differing in display should not be equal")
	}

	concept := Concept{Codes: []Code{fluNoDisplay, {Code: "x", System: "y"}}}
	if !concept.Equivalent(flu) {
		t.Error("concept containing the code should be equivalent to it")
	}
}
