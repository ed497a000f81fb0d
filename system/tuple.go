package system

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TupleElement is one named component of a Tuple.
type TupleElement struct {
	Name  string
	Value Value
}

// Tuple is the CQL Tuple type. Element order is preserved for display;
// lookup is by name.
type Tuple struct {
	Elements []TupleElement
}

// NewTuple builds a tuple from ordered name/value pairs.
func NewTuple(elements ...TupleElement) Tuple {
	return Tuple{Elements: elements}
}

func (t Tuple) TypeName() string { return "Tuple" }

// Get returns the element value, or ok=false when the tuple has no such
// element.
func (t Tuple) Get(name string) (Value, bool) {
	for _, e := range t.Elements {
		if e.Name == name {
			return orNull(e.Value), true
		}
	}
	return nil, false
}

func (t Tuple) Equal(other Value) (bool, bool) {
	o, ok := other.(Tuple)
	if !ok {
		return false, true
	}
	if len(t.Elements) != len(o.Elements) {
		return false, true
	}
	unknown := false
	for _, e := range t.Elements {
		ov, found := o.Get(e.Name)
		if !found {
			return false, true
		}
		v := orNull(e.Value)
		if IsNull(v) || IsNull(ov) {
			unknown = true
			continue
		}
		eq, eqOK := v.Equal(ov)
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

func (t Tuple) Equivalent(other Value) bool {
	o, ok := other.(Tuple)
	if !ok || len(t.Elements) != len(o.Elements) {
		return false
	}
	for _, e := range t.Elements {
		ov, found := o.Get(e.Name)
		if !found || !equivalentValues(orNull(e.Value), ov) {
			return false
		}
	}
	return true
}

func (t Tuple) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteString("{")
	for i, e := range t.Elements {
		if i > 0 {
			b.WriteString(",")
		}
		name, err := json.Marshal(e.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(orNull(e.Value))
		if err != nil {
			return nil, err
		}
		b.Write(name)
		b.WriteString(":")
		b.Write(value)
	}
	b.WriteString("}")
	return []byte(b.String()), nil
}

func (t Tuple) String() string {
	if len(t.Elements) == 0 {
		return "Tuple { }"
	}
	var b strings.Builder
	b.WriteString("Tuple { ")
	for i, e := range t.Elements {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %s", e.Name, orNull(e.Value))
	}
	b.WriteString(" }")
	return b.String()
}
