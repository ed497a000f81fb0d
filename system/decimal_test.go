package system

import (
	"context"
	"testing"

	"github.com/DAMEDIC/cql-engine-go/diagnostics"
)

func TestIntegerArithmetic(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		op   func(ctx context.Context, l, r Value) (Value, error)
		l, r Value
		want Value
	}{
		{"add", Add, Integer(1), Integer(2), Integer(3)},
		{"subtract", Subtract, Integer(5), Integer(7), Integer(-2)},
		{"multiply", Multiply, Integer(6), Integer(7), Integer(42)},
		{"divide produces decimal", Divide, Integer(7), Integer(2), MustDecimal("3.5")},
		{"div truncates", TruncatedDivide, Integer(7), Integer(2), Integer(3)},
		{"mod", Modulo, Integer(7), Integer(2), Integer(1)},
		{"power", Power, Integer(2), Integer(10), Integer(1024)},
		{"mixed integer decimal", Add, Integer(1), MustDecimal("0.5"), MustDecimal("1.5")},
		{"integer long", Add, Integer(1), NewLong(2), NewLong(3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.op(ctx, tt.l, tt.r)
			if err != nil {
				t.Fatal(err)
			}
			if eq := Equivalent(got, tt.want); eq != Boolean(true) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDivisionByZeroIsNull(t *testing.T) {
	ctx := context.Background()
	for _, tt := range []struct {
		name string
		op   func(ctx context.Context, l, r Value) (Value, error)
		l, r Value
	}{
		{"integer divide", Divide, Integer(1), Integer(0)},
		{"decimal divide", Divide, MustDecimal("1.0"), MustDecimal("0")},
		{"integer div", TruncatedDivide, Integer(1), Integer(0)},
		{"integer mod", Modulo, Integer(1), Integer(0)},
		{"long div", TruncatedDivide, NewLong(1), NewLong(0)},
	} {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.op(ctx, tt.l, tt.r)
			if err != nil {
				t.Fatal(err)
			}
			if !IsNull(got) {
				t.Errorf("got %v, want null", got)
			}
		})
	}
}

func TestDecimalScaleClamp(t *testing.T) {
	ctx := context.Background()
	got, err := Divide(ctx, MustDecimal("1"), MustDecimal("3"))
	if err != nil {
		t.Fatal(err)
	}
	if got.String() != "0.33333333" {
		t.Errorf("1/3 = %v, want 0.33333333 (scale 8)", got)
	}
}

func TestDecimalOverflowIsError(t *testing.T) {
	ctx := context.Background()
	big := MustDecimal("99999999999999999999") // 20 digits, at the magnitude bound
	_, err := Multiply(ctx, big, MustDecimal("10"))
	if err == nil {
		t.Fatal("expected overflow error, got none")
	}
	if !diagnostics.IsCode(err, diagnostics.CodeOverflow) {
		t.Errorf("expected overflow code, got %v", err)
	}
}

func TestIntegerOverflowIsError(t *testing.T) {
	ctx := context.Background()
	_, err := Add(ctx, Integer(1<<62), Integer(1<<62))
	if err == nil {
		t.Fatal("expected overflow error")
	}
	if !diagnostics.IsCode(err, diagnostics.CodeOverflow) {
		t.Errorf("expected overflow code, got %v", err)
	}

	// Long is arbitrary precision and must not overflow
	got, err := Add(ctx, NewLong(1<<62), NewLong(1<<62))
	if err != nil {
		t.Fatal(err)
	}
	if got.String() != "9223372036854775808L" {
		t.Errorf("long addition beyond 64 bits: got %v", got)
	}
}

// (a div b) * b + (a mod b) = a for every same-type pair with b != 0.
func TestDivModIdentity(t *testing.T) {
	ctx := context.Background()
	pairs := [][2]Value{
		{Integer(17), Integer(5)},
		{Integer(-17), Integer(5)},
		{Integer(17), Integer(-5)},
		{NewLong(123456789123), NewLong(9973)},
		{MustDecimal("10.5"), MustDecimal("3.2")},
		{MustDecimal("-10.5"), MustDecimal("3.2")},
	}
	for _, pair := range pairs {
		a, b := pair[0], pair[1]
		t.Run(a.String()+"/"+b.String(), func(t *testing.T) {
			q, err := TruncatedDivide(ctx, a, b)
			if err != nil {
				t.Fatal(err)
			}
			m, err := Modulo(ctx, a, b)
			if err != nil {
				t.Fatal(err)
			}
			prod, err := Multiply(ctx, q, b)
			if err != nil {
				t.Fatal(err)
			}
			sum, err := Add(ctx, prod, m)
			if err != nil {
				t.Fatal(err)
			}
			if eq := Equivalent(sum, a); eq != Boolean(true) {
				t.Errorf("(a div b)*b + a mod b = %v, want %v", sum, a)
			}
		})
	}
}

func TestDecimalEquivalentPrecision(t *testing.T) {
	if Equivalent(MustDecimal("1.5"), MustDecimal("1.50")) != Boolean(true) {
		t.Error("1.5 ~ 1.50 should be true")
	}
	if Equal(MustDecimal("1.5"), MustDecimal("1.50")) != Boolean(true) {
		t.Error("1.5 = 1.50 should be true (trailing zeros insignificant)")
	}
	if Equivalent(MustDecimal("1.5"), MustDecimal("1.56")) != Boolean(false) {
		t.Error("1.5 ~ 1.56 should be false")
	}
}

func TestNegate(t *testing.T) {
	ctx := context.Background()
	got, err := Negate(ctx, Integer(5))
	if err != nil {
		t.Fatal(err)
	}
	if got != Integer(-5) {
		t.Errorf("got %v", got)
	}
	got, err = Negate(ctx, MustDecimal("1.5"))
	if err != nil {
		t.Fatal(err)
	}
	if Equivalent(got, MustDecimal("-1.5")) != Boolean(true) {
		t.Errorf("got %v", got)
	}
}
