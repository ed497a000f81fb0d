package modelinfo

import (
	"github.com/DAMEDIC/cql-engine-go/diagnostics"
)

// Provider hands out model registries by name and version. Hosts plug in
// their packaged ModelInfo content here; two FHIR releases can coexist
// behind one provider and sessions select one per `using` declaration.
type Provider interface {
	// GetModel resolves a model by name and optional version.
	// Version "" means any version.
	GetModel(name, version string) (*Registry, error)
}

// StaticProvider is a Provider over a fixed set of registries.
type StaticProvider struct {
	registries []*Registry
}

// NewStaticProvider builds a provider over pre-parsed models. The System
// model is always available.
func NewStaticProvider(models ...*ModelInfo) *StaticProvider {
	p := &StaticProvider{}
	p.registries = append(p.registries, SystemRegistry())
	for _, m := range models {
		p.registries = append(p.registries, NewRegistry(m))
	}
	return p
}

func (p *StaticProvider) GetModel(name, version string) (*Registry, error) {
	for _, r := range p.registries {
		if r.ModelName() != name {
			continue
		}
		if version == "" || r.ModelVersion() == version {
			return r, nil
		}
	}
	for _, r := range p.registries {
		if r.ModelName() == name {
			return nil, diagnostics.New(
				diagnostics.KindResolution, diagnostics.CodeVersionMismatch,
				"model %s is available in version %s, not %s", name, r.ModelVersion(), version)
		}
	}
	return nil, diagnostics.New(
		diagnostics.KindResolution, diagnostics.CodeLibraryNotFound,
		"unknown model %s", name)
}
