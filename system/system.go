// Package system implements the CQL System namespace: the runtime value
// space the engine evaluates over. Values follow CQL three-valued logic;
// operations that the CQL specification defines as "null" for missing or
// unknown operands return Null rather than an error.
package system

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/apd/v3"

	"github.com/DAMEDIC/cql-engine-go/diagnostics"
)

// Value is implemented by every CQL runtime value.
type Value interface {
	// TypeName returns the qualified runtime type, e.g. "System.Integer".
	TypeName() string
	// Equal implements CQL equality. ok=false means the comparison is
	// unknown and the `=` operator must yield null.
	Equal(other Value) (eq bool, ok bool)
	// Equivalent implements the CQL `~` operator. Never unknown.
	Equivalent(other Value) bool
	json.Marshaler
	fmt.Stringer
}

// cmpValue is implemented by totally ordered values. ok=false means the
// ordering is unknown (e.g. differing temporal precision) and relational
// operators must yield null.
type cmpValue interface {
	Value
	Cmp(other Value) (cmp int, ok bool, err error)
}

type addValue interface {
	Value
	Add(ctx context.Context, other Value) (Value, error)
}

type subtractValue interface {
	Value
	Subtract(ctx context.Context, other Value) (Value, error)
}

type multiplyValue interface {
	Value
	Multiply(ctx context.Context, other Value) (Value, error)
}

type divideValue interface {
	Value
	Divide(ctx context.Context, other Value) (Value, error)
}

type divValue interface {
	Value
	Div(ctx context.Context, other Value) (Value, error)
}

type modValue interface {
	Value
	Mod(ctx context.Context, other Value) (Value, error)
}

type powerValue interface {
	Value
	Power(ctx context.Context, other Value) (Value, error)
}

type negateValue interface {
	Value
	Negate(ctx context.Context) (Value, error)
}

// Null is the CQL null value: a distinct value assignable to any type.
type Null struct{}

func (Null) TypeName() string { return "System.Any" }
func (Null) Equal(other Value) (bool, bool) {
	return false, false
}
func (Null) Equivalent(other Value) bool {
	return IsNull(other)
}
func (Null) MarshalJSON() ([]byte, error) { return []byte("null"), nil }
func (Null) String() string               { return "null" }

// IsNull reports whether v is the null value (or an absent Value).
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

type apdContextKey struct{}

// CQL decimals keep at least 28 significant digits. Fractional scale is
// clamped to 8 digits after every operation (see fixScale).
const defaultDecimalPrecision uint32 = 28

var defaultAPDContext = func() *apd.Context {
	c := apd.BaseContext.WithPrecision(defaultDecimalPrecision)
	c.Rounding = apd.RoundHalfUp
	return c
}()

// WithAPDContext overrides the apd.Context used for decimal arithmetic.
// The default keeps 28 significant digits with half-up rounding.
func WithAPDContext(ctx context.Context, apdContext *apd.Context) context.Context {
	return context.WithValue(ctx, apdContextKey{}, apdContext)
}

func apdContext(ctx context.Context) *apd.Context {
	if ctx != nil {
		if c, ok := ctx.Value(apdContextKey{}).(*apd.Context); ok && c != nil {
			return c
		}
	}
	return defaultAPDContext
}

// Boolean is the CQL System.Boolean type.
type Boolean bool

func (b Boolean) TypeName() string { return "System.Boolean" }
func (b Boolean) Equal(other Value) (bool, bool) {
	o, ok := other.(Boolean)
	if !ok {
		return false, true
	}
	return b == o, true
}
func (b Boolean) Equivalent(other Value) bool {
	eq, ok := b.Equal(other)
	return ok && eq
}
func (b Boolean) MarshalJSON() ([]byte, error) { return json.Marshal(bool(b)) }
func (b Boolean) String() string {
	if b {
		return "true"
	}
	return "false"
}

// And implements Kleene conjunction: false dominates null.
func And(l, r Value) Value {
	lb, lOK := asBoolean(l)
	rb, rOK := asBoolean(r)
	switch {
	case lOK && !bool(lb):
		return Boolean(false)
	case rOK && !bool(rb):
		return Boolean(false)
	case lOK && rOK:
		return Boolean(true)
	default:
		return Null{}
	}
}

// Or implements Kleene disjunction: true dominates null.
func Or(l, r Value) Value {
	lb, lOK := asBoolean(l)
	rb, rOK := asBoolean(r)
	switch {
	case lOK && bool(lb):
		return Boolean(true)
	case rOK && bool(rb):
		return Boolean(true)
	case lOK && rOK:
		return Boolean(false)
	default:
		return Null{}
	}
}

// Xor is null if either operand is null.
func Xor(l, r Value) Value {
	lb, lOK := asBoolean(l)
	rb, rOK := asBoolean(r)
	if !lOK || !rOK {
		return Null{}
	}
	return Boolean(lb != rb)
}

// Not is null for null.
func Not(v Value) Value {
	b, ok := asBoolean(v)
	if !ok {
		return Null{}
	}
	return Boolean(!b)
}

// Implies: false implies anything is true; true implies x is x;
// null implies true is true, otherwise null.
func Implies(l, r Value) Value {
	lb, lOK := asBoolean(l)
	rb, rOK := asBoolean(r)
	switch {
	case lOK && !bool(lb):
		return Boolean(true)
	case rOK && bool(rb):
		return Boolean(true)
	case lOK && bool(lb) && rOK:
		return Boolean(rb)
	default:
		return Null{}
	}
}

func asBoolean(v Value) (Boolean, bool) {
	b, ok := v.(Boolean)
	return b, ok
}

// Equal implements the CQL `=` operator over any two values,
// propagating null.
func Equal(l, r Value) Value {
	if IsNull(l) || IsNull(r) {
		return Null{}
	}
	eq, ok := l.Equal(r)
	if !ok {
		return Null{}
	}
	return Boolean(eq)
}

// NotEqual is the negation of Equal, with the same null propagation.
func NotEqual(l, r Value) Value {
	return Not(Equal(l, r))
}

// Equivalent implements the CQL `~` operator. Null ~ Null is true.
func Equivalent(l, r Value) Value {
	if IsNull(l) && IsNull(r) {
		return Boolean(true)
	}
	if IsNull(l) || IsNull(r) {
		return Boolean(false)
	}
	return Boolean(l.Equivalent(r))
}

// Compare returns the three-valued ordering of two comparable values.
// ok=false means the ordering is unknown and the caller must yield null.
func Compare(l, r Value) (cmp int, ok bool, err error) {
	if IsNull(l) || IsNull(r) {
		return 0, false, nil
	}
	c, isCmp := l.(cmpValue)
	if !isCmp {
		return 0, false, diagnostics.New(
			diagnostics.KindEvaluation, diagnostics.CodeInvalidArgument,
			"type %s has no ordering", l.TypeName())
	}
	return c.Cmp(r)
}

// Less, LessOrEqual, Greater and GreaterOrEqual implement the CQL
// relational operators with null propagation.
func Less(l, r Value) (Value, error) {
	return relational(l, r, func(c int) bool { return c < 0 })
}

func LessOrEqual(l, r Value) (Value, error) {
	return relational(l, r, func(c int) bool { return c <= 0 })
}

func Greater(l, r Value) (Value, error) {
	return relational(l, r, func(c int) bool { return c > 0 })
}

func GreaterOrEqual(l, r Value) (Value, error) {
	return relational(l, r, func(c int) bool { return c >= 0 })
}

func relational(l, r Value, test func(int) bool) (Value, error) {
	cmp, ok, err := Compare(l, r)
	if err != nil {
		return nil, err
	}
	if !ok {
		return Null{}, nil
	}
	return Boolean(test(cmp)), nil
}

// Add dispatches the CQL `+` operator, propagating null.
func Add(ctx context.Context, l, r Value) (Value, error) {
	if IsNull(l) || IsNull(r) {
		return Null{}, nil
	}
	a, ok := l.(addValue)
	if !ok {
		return nil, unsupportedBinary("+", l, r)
	}
	return a.Add(ctx, r)
}

// Subtract dispatches the CQL `-` operator, propagating null.
func Subtract(ctx context.Context, l, r Value) (Value, error) {
	if IsNull(l) || IsNull(r) {
		return Null{}, nil
	}
	s, ok := l.(subtractValue)
	if !ok {
		return nil, unsupportedBinary("-", l, r)
	}
	return s.Subtract(ctx, r)
}

// Multiply dispatches the CQL `*` operator, propagating null.
func Multiply(ctx context.Context, l, r Value) (Value, error) {
	if IsNull(l) || IsNull(r) {
		return Null{}, nil
	}
	m, ok := l.(multiplyValue)
	if !ok {
		return nil, unsupportedBinary("*", l, r)
	}
	return m.Multiply(ctx, r)
}

// Divide dispatches the CQL `/` operator. Division by zero yields null.
func Divide(ctx context.Context, l, r Value) (Value, error) {
	if IsNull(l) || IsNull(r) {
		return Null{}, nil
	}
	d, ok := l.(divideValue)
	if !ok {
		return nil, unsupportedBinary("/", l, r)
	}
	return d.Divide(ctx, r)
}

// TruncatedDivide dispatches the CQL `div` operator.
func TruncatedDivide(ctx context.Context, l, r Value) (Value, error) {
	if IsNull(l) || IsNull(r) {
		return Null{}, nil
	}
	d, ok := l.(divValue)
	if !ok {
		return nil, unsupportedBinary("div", l, r)
	}
	return d.Div(ctx, r)
}

// Modulo dispatches the CQL `mod` operator.
func Modulo(ctx context.Context, l, r Value) (Value, error) {
	if IsNull(l) || IsNull(r) {
		return Null{}, nil
	}
	m, ok := l.(modValue)
	if !ok {
		return nil, unsupportedBinary("mod", l, r)
	}
	return m.Mod(ctx, r)
}

// Power dispatches the CQL `^` operator.
func Power(ctx context.Context, l, r Value) (Value, error) {
	if IsNull(l) || IsNull(r) {
		return Null{}, nil
	}
	p, ok := l.(powerValue)
	if !ok {
		return nil, unsupportedBinary("^", l, r)
	}
	return p.Power(ctx, r)
}

// Negate dispatches unary minus.
func Negate(ctx context.Context, v Value) (Value, error) {
	if IsNull(v) {
		return Null{}, nil
	}
	n, ok := v.(negateValue)
	if !ok {
		return nil, diagnostics.New(
			diagnostics.KindEvaluation, diagnostics.CodeUnsupportedOperator,
			"can not negate %s", v.TypeName())
	}
	return n.Negate(ctx)
}

func unsupportedBinary(op string, l, r Value) error {
	return diagnostics.New(
		diagnostics.KindEvaluation, diagnostics.CodeUnsupportedOperator,
		"operator %s is not defined for %s and %s", op, l.TypeName(), r.TypeName())
}

func overflowError(op string) error {
	return diagnostics.New(
		diagnostics.KindEvaluation, diagnostics.CodeOverflow,
		"result of %s is out of range", op)
}
