package engine

import (
	"context"

	"github.com/DAMEDIC/cql-engine-go/system"
)

// RetrieveParams carries the filters of one retrieve expression. The
// provider owns the filtering; the engine does not re-filter results.
type RetrieveParams struct {
	// ContextType and ContextValue identify the anchor resource, e.g.
	// ("Patient", <the patient>).
	ContextType  string
	ContextValue system.Value
	// TargetType is the qualified type to fetch, e.g. "FHIR.Condition".
	TargetType string
	// CodePath and Codes filter by terminology; Codes is nil when the
	// retrieve is unfiltered. ValueSetID is set when the filter is a
	// valueset; Codes then holds its expansion when the terminology
	// provider can expand it.
	CodePath   string
	Codes      []system.Code
	ValueSetID string
	// DatePath and DateRange filter by time.
	DatePath  string
	DateRange *system.Interval
}

// DataProvider is the boundary between retrieve expressions and the
// host's data source.
type DataProvider interface {
	Retrieve(ctx context.Context, params RetrieveParams) (system.List, error)
}

// NoopProvider returns no resources; language-level tests that never
// retrieve use it.
type NoopProvider struct{}

func (NoopProvider) Retrieve(ctx context.Context, params RetrieveParams) (system.List, error) {
	return system.List{}, nil
}

// StaticProvider serves retrieves from an in-memory set of resources
// grouped by type, applying code filters against the configured code
// path.
type StaticProvider struct {
	// Resources maps a qualified type name to its instances. Instances
	// are typically Tuples whose element names mirror the model's
	// properties.
	Resources map[string][]system.Value
}

func (p StaticProvider) Retrieve(ctx context.Context, params RetrieveParams) (system.List, error) {
	instances := p.Resources[params.TargetType]
	out := make(system.List, 0, len(instances))
	for _, inst := range instances {
		if len(params.Codes) > 0 && !matchesCodes(inst, params.CodePath, params.Codes) {
			continue
		}
		out = append(out, inst)
	}
	return out, nil
}

func matchesCodes(inst system.Value, codePath string, codes []system.Code) bool {
	tuple, ok := inst.(system.Tuple)
	if !ok || codePath == "" {
		return false
	}
	v, ok := tuple.Get(codePath)
	if !ok {
		return false
	}
	for _, code := range codes {
		if v.Equivalent(code) || code.Equivalent(v) {
			return true
		}
	}
	return false
}

// TerminologyProvider answers valueset membership questions.
type TerminologyProvider interface {
	// InValueSet reports whether a code is a member of the valueset
	// identified by its canonical id.
	InValueSet(ctx context.Context, code system.Code, valueSetID string) (bool, error)
	// ExpandValueSet lists the codes of a valueset, or ok=false when
	// the provider can not expand it.
	ExpandValueSet(ctx context.Context, valueSetID string) ([]system.Code, bool, error)
}

// inlineTerminology is the default provider: it can not expand or test
// any valueset, so membership is always false.
type inlineTerminology struct{}

func (inlineTerminology) InValueSet(ctx context.Context, code system.Code, valueSetID string) (bool, error) {
	return false, nil
}

func (inlineTerminology) ExpandValueSet(ctx context.Context, valueSetID string) ([]system.Code, bool, error) {
	return nil, false, nil
}

// MapTerminology is a TerminologyProvider over a static valueset
// expansion map keyed by canonical id.
type MapTerminology map[string][]system.Code

func (m MapTerminology) InValueSet(ctx context.Context, code system.Code, valueSetID string) (bool, error) {
	for _, member := range m[valueSetID] {
		if member.Code == code.Code && member.System == code.System {
			return true, nil
		}
	}
	return false, nil
}

func (m MapTerminology) ExpandValueSet(ctx context.Context, valueSetID string) ([]system.Code, bool, error) {
	codes, ok := m[valueSetID]
	return codes, ok, nil
}
