package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/DAMEDIC/cql-engine-go/diagnostics"
	"github.com/DAMEDIC/cql-engine-go/elm"
	"github.com/DAMEDIC/cql-engine-go/system"
	"github.com/DAMEDIC/cql-engine-go/translator"
)

// ValueSet is the runtime value of a valueset reference. Membership
// tests delegate to the TerminologyProvider.
type ValueSet struct {
	ID      string
	Version string
	Name    string
}

func (v ValueSet) TypeName() string { return "System.ValueSet" }
func (v ValueSet) Equal(other system.Value) (bool, bool) {
	o, ok := other.(ValueSet)
	if !ok {
		return false, true
	}
	return v == o, true
}
func (v ValueSet) Equivalent(other system.Value) bool {
	eq, ok := v.Equal(other)
	return ok && eq
}
func (v ValueSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID      string `json:"id"`
		Version string `json:"version,omitempty"`
		Name    string `json:"name,omitempty"`
	}{v.ID, v.Version, v.Name})
}
func (v ValueSet) String() string {
	return fmt.Sprintf("ValueSet '%s'", v.ID)
}

func (st *state) valueSetRef(n *elm.ValueSetRef) (system.Value, error) {
	lib, err := st.refLibrary(n.LibraryName)
	if err != nil {
		return nil, err
	}
	for _, def := range lib.ELM.ValueSets {
		if def.Name == n.Name {
			return ValueSet{ID: def.ID, Version: def.Version, Name: def.Name}, nil
		}
	}
	return nil, evalError(diagnostics.CodeUnresolvedIdentifier,
		"no valueset named `%s`", n.Name)
}

// CodeSystem is the runtime value of a codesystem reference.
type CodeSystem struct {
	ID      string
	Version string
	Name    string
}

func (c CodeSystem) TypeName() string { return "System.CodeSystem" }
func (c CodeSystem) Equal(other system.Value) (bool, bool) {
	o, ok := other.(CodeSystem)
	if !ok {
		return false, true
	}
	return c == o, true
}
func (c CodeSystem) Equivalent(other system.Value) bool {
	eq, ok := c.Equal(other)
	return ok && eq
}
func (c CodeSystem) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID      string `json:"id"`
		Version string `json:"version,omitempty"`
		Name    string `json:"name,omitempty"`
	}{c.ID, c.Version, c.Name})
}
func (c CodeSystem) String() string {
	return fmt.Sprintf("CodeSystem '%s'", c.ID)
}

func (st *state) codeSystemRef(n *elm.CodeSystemRef) (system.Value, error) {
	lib, err := st.refLibrary(n.LibraryName)
	if err != nil {
		return nil, err
	}
	cs, ok := findCodeSystem(lib, n.Name)
	if !ok {
		return nil, evalError(diagnostics.CodeUnresolvedIdentifier,
			"no codesystem named `%s`", n.Name)
	}
	return cs, nil
}

func findCodeSystem(lib *translator.Translated, name string) (CodeSystem, bool) {
	for _, def := range lib.ELM.CodeSystems {
		if def.Name == name {
			return CodeSystem{ID: def.ID, Version: def.Version, Name: def.Name}, true
		}
	}
	return CodeSystem{}, false
}

func (st *state) codeRef(n *elm.CodeRef) (system.Value, error) {
	lib, err := st.refLibrary(n.LibraryName)
	if err != nil {
		return nil, err
	}
	code, ok := findCode(lib, n.Name)
	if !ok {
		return nil, evalError(diagnostics.CodeUnresolvedIdentifier,
			"no code named `%s`", n.Name)
	}
	return code, nil
}

func findCode(lib *translator.Translated, name string) (system.Code, bool) {
	for _, def := range lib.ELM.Codes {
		if def.Name != name {
			continue
		}
		code := system.Code{Code: def.ID, Display: def.Display}
		if cs, ok := findCodeSystem(lib, def.CodeSystem); ok {
			code.System = cs.ID
			code.Version = cs.Version
		}
		return code, true
	}
	return system.Code{}, false
}

func (st *state) conceptRef(ctx context.Context, n *elm.ConceptRef) (system.Value, error) {
	lib, err := st.refLibrary(n.LibraryName)
	if err != nil {
		return nil, err
	}
	for _, def := range lib.ELM.Concepts {
		if def.Name != n.Name {
			continue
		}
		concept := system.Concept{Display: def.Display}
		for _, codeName := range def.Codes {
			if code, ok := findCode(lib, codeName); ok {
				concept.Codes = append(concept.Codes, code)
			}
		}
		return concept, nil
	}
	return nil, evalError(diagnostics.CodeUnresolvedIdentifier,
		"no concept named `%s`", n.Name)
}

// evalCodeNode builds a System.Code from a Code literal node.
func (st *state) evalCodeNode(n *elm.Code) (system.Value, error) {
	code := system.Code{Code: n.Code, Display: n.Display}
	if n.System != nil {
		lib, err := st.refLibrary(n.System.LibraryName)
		if err != nil {
			return nil, err
		}
		if cs, ok := findCodeSystem(lib, n.System.Name); ok {
			code.System = cs.ID
			code.Version = cs.Version
		}
	}
	return code, nil
}

func (st *state) refLibrary(localName string) (*translator.Translated, error) {
	if localName == "" {
		return st.library, nil
	}
	return st.resolveInclude(localName)
}

// resolveInclude maps an include's local alias to its translated
// library.
func (st *state) resolveInclude(localName string) (*translator.Translated, error) {
	for _, inc := range st.library.ELM.Includes {
		if inc.LocalIdentifier != localName {
			continue
		}
		if dep, ok := st.request.engine.result.Lookup(inc.Path); ok {
			return dep, nil
		}
	}
	return nil, evalError(diagnostics.CodeUnresolvedIdentifier,
		"library `%s` is not included", localName)
}

// inValueSet tests code (or concept) membership through the
// terminology provider.
func (st *state) inValueSet(ctx context.Context, v system.Value, vs ValueSet) (system.Value, error) {
	if system.IsNull(v) {
		return system.Null{}, nil
	}
	provider := st.engineOptions().Terminology
	var codes []system.Code
	switch t := v.(type) {
	case system.Code:
		codes = []system.Code{t}
	case system.Concept:
		codes = t.Codes
	case system.String:
		codes = []system.Code{{Code: string(t)}}
	default:
		return nil, evalError(diagnostics.CodeInvalidArgument,
			"valueset membership requires a code, got %s", v.TypeName())
	}
	for _, code := range codes {
		ok, err := provider.InValueSet(ctx, code, vs.ID)
		if err != nil {
			return nil, err
		}
		if ok {
			return system.Boolean(true), nil
		}
	}
	return system.Boolean(false), nil
}
