package system

import (
	"encoding/json"
	"strings"
)

// List is the CQL List<T> type: an ordered sequence that may contain
// nulls and mixed subtypes of a common element type.
type List []Value

func (l List) TypeName() string {
	for _, e := range l {
		if !IsNull(e) {
			return "List<" + e.TypeName() + ">"
		}
	}
	return "List<System.Any>"
}

// Equal compares element-wise in order; any unknown element comparison
// makes the whole comparison unknown.
func (l List) Equal(other Value) (bool, bool) {
	o, ok := other.(List)
	if !ok {
		return false, true
	}
	if len(l) != len(o) {
		return false, true
	}
	unknown := false
	for idx, e := range l {
		if IsNull(e) || IsNull(o[idx]) {
			unknown = true
			continue
		}
		eq, eqOK := e.Equal(o[idx])
		if !eqOK {
			unknown = true
			continue
		}
		if !eq {
			return false, true
		}
	}
	if unknown {
		return false, false
	}
	return true, true
}

func (l List) Equivalent(other Value) bool {
	o, ok := other.(List)
	if !ok || len(l) != len(o) {
		return false
	}
	for idx, e := range l {
		if !equivalentValues(e, o[idx]) {
			return false
		}
	}
	return true
}

func equivalentValues(a, b Value) bool {
	if IsNull(a) && IsNull(b) {
		return true
	}
	if IsNull(a) || IsNull(b) {
		return false
	}
	return a.Equivalent(b)
}

// ContainsValue implements `contains` / `in`. Per CQL, a null element
// never matches a non-null needle; a null needle yields null unless the
// list is empty.
func (l List) ContainsValue(needle Value) Value {
	if IsNull(needle) {
		if len(l) == 0 {
			return Boolean(false)
		}
		return Null{}
	}
	for _, e := range l {
		if IsNull(e) {
			continue
		}
		if eq, ok := e.Equal(needle); ok && eq {
			return Boolean(true)
		}
	}
	return Boolean(false)
}

// IndexOf returns the 0-based index of the first equal element, -1 when
// absent.
func (l List) IndexOf(needle Value) Integer {
	if IsNull(needle) {
		return -1
	}
	for idx, e := range l {
		if IsNull(e) {
			continue
		}
		if eq, ok := e.Equal(needle); ok && eq {
			return Integer(idx)
		}
	}
	return -1
}

// Distinct removes duplicates under equivalence semantics, preserving
// first occurrence order. A single null survives.
func (l List) Distinct() List {
	var out List
	for _, e := range l {
		found := false
		for _, seen := range out {
			if equivalentValues(e, seen) {
				found = true
				break
			}
		}
		if !found {
			out = append(out, e)
		}
	}
	return out
}

// UnionList concatenates and deduplicates under equivalence.
func (l List) UnionList(other List) List {
	combined := make(List, 0, len(l)+len(other))
	combined = append(combined, l...)
	combined = append(combined, other...)
	return combined.Distinct()
}

// IntersectList keeps elements of l equivalent to some element of other,
// deduplicated.
func (l List) IntersectList(other List) List {
	var out List
	for _, e := range l.Distinct() {
		for _, o := range other {
			if equivalentValues(e, o) {
				out = append(out, e)
				break
			}
		}
	}
	if out == nil {
		return List{}
	}
	return out
}

// ExceptList keeps elements of l not equivalent to any element of other.
// Order and nulls are preserved.
func (l List) ExceptList(other List) List {
	var out List
	for _, e := range l {
		excluded := false
		for _, o := range other {
			if equivalentValues(e, o) {
				excluded = true
				break
			}
		}
		if !excluded {
			out = append(out, e)
		}
	}
	if out == nil {
		return List{}
	}
	return out
}

// Flatten lowers one level of nesting.
func (l List) Flatten() List {
	out := make(List, 0, len(l))
	for _, e := range l {
		if inner, ok := e.(List); ok {
			out = append(out, inner...)
		} else {
			out = append(out, e)
		}
	}
	return out
}

// Exists is true when the list has at least one non-null element.
func (l List) Exists() Boolean {
	for _, e := range l {
		if !IsNull(e) {
			return true
		}
	}
	return false
}

// SingletonFrom returns the only element; null for empty; error for more
// than one element.
func (l List) SingletonFrom() (Value, error) {
	switch len(l) {
	case 0:
		return Null{}, nil
	case 1:
		return l[0], nil
	default:
		return nil, errListNotSingleton
	}
}

var errListNotSingleton = listError("singleton from requires a list of at most one element")

type listError string

func (e listError) Error() string { return string(e) }

func (l List) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	out := make([]Value, len(l))
	for i, e := range l {
		out[i] = orNull(e)
	}
	return json.Marshal(out)
}

func (l List) String() string {
	var b strings.Builder
	b.WriteString("{ ")
	for i, e := range l {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(orNull(e).String())
	}
	if len(l) == 0 {
		return "{ }"
	}
	b.WriteString(" }")
	return b.String()
}
