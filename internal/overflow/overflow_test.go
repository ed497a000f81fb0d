package overflow

import (
	"math"
	"testing"
)

func TestAdd(t *testing.T) {
	if v, ok := Add[int64](1, 2); !ok || v != 3 {
		t.Errorf("Add(1, 2) = %d, %v", v, ok)
	}
	if _, ok := Add[int64](math.MaxInt64, 1); ok {
		t.Error("expected overflow")
	}
	if _, ok := Add[int64](math.MinInt64, -1); ok {
		t.Error("expected underflow")
	}
}

func TestSub(t *testing.T) {
	if v, ok := Sub[int64](5, 7); !ok || v != -2 {
		t.Errorf("Sub(5, 7) = %d, %v", v, ok)
	}
	if _, ok := Sub[int64](math.MinInt64, 1); ok {
		t.Error("expected underflow")
	}
}

func TestMul(t *testing.T) {
	if v, ok := Mul[int64](6, 7); !ok || v != 42 {
		t.Errorf("Mul(6, 7) = %d, %v", v, ok)
	}
	if _, ok := Mul[int64](math.MaxInt64, 2); ok {
		t.Error("expected overflow")
	}
	if v, ok := Mul[int64](0, math.MaxInt64); !ok || v != 0 {
		t.Error("zero multiplication should not overflow")
	}
}

func TestDivMod(t *testing.T) {
	if _, ok := Div[int64](1, 0); ok {
		t.Error("division by zero should not be ok")
	}
	if _, ok := Div[int64](math.MinInt64, -1); ok {
		t.Error("MinInt64 / -1 should overflow")
	}
	if v, ok := Div[int64](7, 2); !ok || v != 3 {
		t.Errorf("Div(7, 2) = %d, %v", v, ok)
	}
	if v, ok := Mod[int64](7, 2); !ok || v != 1 {
		t.Errorf("Mod(7, 2) = %d, %v", v, ok)
	}
	if v, ok := Mod[int64](math.MinInt64, -1); !ok || v != 0 {
		t.Errorf("Mod(MinInt64, -1) = %d, %v", v, ok)
	}
}

func TestNeg(t *testing.T) {
	if v, ok := Neg[int32](5); !ok || v != -5 {
		t.Errorf("Neg(5) = %d, %v", v, ok)
	}
	if _, ok := Neg[int32](math.MinInt32); ok {
		t.Error("negating MinInt32 should overflow")
	}
}
