// Package overflow provides checked arithmetic on fixed-width signed
// integers. Every operation reports ok=false instead of wrapping.
package overflow

import "unsafe"

type signed interface {
	~int32 | ~int64
}

func Add[T signed](a, b T) (T, bool) {
	res := a + b
	if (b > 0 && res < a) || (b < 0 && res > a) {
		return 0, false
	}
	return res, true
}

func Sub[T signed](a, b T) (T, bool) {
	res := a - b
	if (b < 0 && res < a) || (b > 0 && res > a) {
		return 0, false
	}
	return res, true
}

func Mul[T signed](a, b T) (T, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	res := a * b
	if res/b != a {
		return 0, false
	}
	return res, true
}

func Div[T signed](a, b T) (T, bool) {
	if b == 0 {
		return 0, false
	}
	// minInt / -1 overflows
	if a == minOf[T]() && b == -1 {
		return 0, false
	}
	return a / b, true
}

func Mod[T signed](a, b T) (T, bool) {
	if b == 0 {
		return 0, false
	}
	if a == minOf[T]() && b == -1 {
		return 0, true
	}
	return a % b, true
}

func Neg[T signed](a T) (T, bool) {
	if a == minOf[T]() {
		return 0, false
	}
	return -a, true
}

func minOf[T signed]() T {
	var zero T
	bits := int(unsafe.Sizeof(zero)) * 8
	return T(-1) << (bits - 1)
}
