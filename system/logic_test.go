package system

import (
	"testing"
)

var null = Null{}

func TestKleeneTruthTables(t *testing.T) {
	T, F := Boolean(true), Boolean(false)

	tests := []struct {
		name string
		op   func(l, r Value) Value
		l, r Value
		want Value
	}{
		{"true and true", And, T, T, T},
		{"true and false", And, T, F, F},
		{"true and null", And, T, null, null},
		{"false and null", And, F, null, F},
		{"null and false", And, null, F, F},
		{"null and null", And, null, null, null},

		{"true or null", Or, T, null, T},
		{"null or true", Or, null, T, T},
		{"false or null", Or, F, null, null},
		{"false or false", Or, F, F, F},
		{"null or null", Or, null, null, null},

		{"true xor true", Xor, T, T, F},
		{"true xor false", Xor, T, F, T},
		{"true xor null", Xor, T, null, null},
		{"null xor null", Xor, null, null, null},

		{"false implies null", Implies, F, null, T},
		{"true implies null", Implies, T, null, null},
		{"null implies true", Implies, null, T, T},
		{"null implies false", Implies, null, F, null},
		{"true implies false", Implies, T, F, F},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.op(tt.l, tt.r)
			if eq := Equivalent(got, tt.want); eq != Boolean(true) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNot(t *testing.T) {
	if got := Not(Boolean(true)); got != Boolean(false) {
		t.Errorf("not true = %v", got)
	}
	if got := Not(null); !IsNull(got) {
		t.Errorf("not null = %v", got)
	}
}

// For every non-null value v: v = v is true, v ~ v is true, null = v is
// null, null ~ null is true.
func TestEqualityInvariants(t *testing.T) {
	values := []Value{
		Boolean(true),
		Integer(42),
		NewLong(1 << 40),
		MustDecimal("3.14"),
		String("hello"),
		mustDate("@2024-01-15"),
		mustDateTime("@2024-01-15T12:30:00Z"),
		mustTime("@T12:30:00"),
		Quantity{Value: MustDecimal("5"), Unit: "mg"},
		Code{Code: "1234", System: "http://loinc.org"},
		List{Integer(1), Integer(2)},
		NewTuple(TupleElement{Name: "a", Value: Integer(1)}),
	}

	for _, v := range values {
		t.Run(v.TypeName()+"/"+v.String(), func(t *testing.T) {
			if got := Equal(v, v); got != Boolean(true) {
				t.Errorf("v = v: got %v", got)
			}
			if got := Equivalent(v, v); got != Boolean(true) {
				t.Errorf("v ~ v: got %v", got)
			}
			if got := Equal(null, v); !IsNull(got) {
				t.Errorf("null = v: got %v", got)
			}
		})
	}

	if got := Equivalent(null, null); got != Boolean(true) {
		t.Errorf("null ~ null: got %v", got)
	}
	if got := Equal(null, null); !IsNull(got) {
		t.Errorf("null = null: got %v", got)
	}
}

func TestRelationalNullPropagation(t *testing.T) {
	got, err := Less(null, Integer(1))
	if err != nil {
		t.Fatal(err)
	}
	if !IsNull(got) {
		t.Errorf("null < 1: got %v", got)
	}

	got, err = Greater(Integer(2), Integer(1))
	if err != nil {
		t.Fatal(err)
	}
	if got != Boolean(true) {
		t.Errorf("2 > 1: got %v", got)
	}
}

func mustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func mustDateTime(s string) DateTime {
	d, err := ParseDateTime(s)
	if err != nil {
		panic(err)
	}
	return d
}

func mustTime(s string) Time {
	d, err := ParseTime(s)
	if err != nil {
		panic(err)
	}
	return d
}
