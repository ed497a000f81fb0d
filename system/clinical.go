package system

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Code is the CQL System.Code type: a code from a code system.
type Code struct {
	Code    string
	System  string
	Version string
	Display string
}

func (c Code) TypeName() string { return "System.Code" }

// Equal compares all components.
func (c Code) Equal(other Value) (bool, bool) {
	o, ok := other.(Code)
	if !ok {
		return false, true
	}
	return c == o, true
}

// Equivalent compares code and system only; version and display are not
// significant.
func (c Code) Equivalent(other Value) bool {
	switch o := other.(type) {
	case Code:
		return c.Code == o.Code && c.System == o.System
	case Concept:
		return o.Equivalent(c)
	}
	return false
}

// ToConcept wraps the code in a single-code concept (the Code→Concept
// implicit conversion).
func (c Code) ToConcept() Concept {
	return Concept{Codes: []Code{c}, Display: c.Display}
}

func (c Code) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Code    string `json:"code"`
		System  string `json:"system,omitempty"`
		Version string `json:"version,omitempty"`
		Display string `json:"display,omitempty"`
	}{c.Code, c.System, c.Version, c.Display})
}

func (c Code) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Code '%s'", c.Code)
	if c.System != "" {
		fmt.Fprintf(&b, " from %s", c.System)
	}
	if c.Display != "" {
		fmt.Fprintf(&b, " display '%s'", c.Display)
	}
	return b.String()
}

// Concept is the CQL System.Concept type: a set of codes with an
// optional display.
type Concept struct {
	Codes   []Code
	Display string
}

func (c Concept) TypeName() string { return "System.Concept" }

func (c Concept) Equal(other Value) (bool, bool) {
	o, ok := other.(Concept)
	if !ok {
		return false, true
	}
	if len(c.Codes) != len(o.Codes) {
		return false, true
	}
	for i, code := range c.Codes {
		if code != o.Codes[i] {
			return false, true
		}
	}
	return c.Display == o.Display, true
}

// Equivalent is true when any code of the concept is equivalent to any
// code of the other operand.
func (c Concept) Equivalent(other Value) bool {
	var codes []Code
	switch o := other.(type) {
	case Concept:
		codes = o.Codes
	case Code:
		codes = []Code{o}
	default:
		return false
	}
	for _, mine := range c.Codes {
		for _, theirs := range codes {
			if mine.Code == theirs.Code && mine.System == theirs.System {
				return true
			}
		}
	}
	return false
}

func (c Concept) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Codes   []Code `json:"codes"`
		Display string `json:"display,omitempty"`
	}{c.Codes, c.Display})
}

func (c Concept) String() string {
	parts := make([]string, len(c.Codes))
	for i, code := range c.Codes {
		parts[i] = code.String()
	}
	return fmt.Sprintf("Concept { %s }", strings.Join(parts, ", "))
}
