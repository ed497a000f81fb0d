package modelinfo

// Registry answers type and property queries for one data model. It is
// read-only after construction and safe to share between evaluation
// requests.
type Registry struct {
	model *ModelInfo
	types map[string]*TypeInfo
}

// NewRegistry indexes a parsed ModelInfo. Lookup is case-sensitive.
func NewRegistry(model *ModelInfo) *Registry {
	r := &Registry{
		model: model,
		types: make(map[string]*TypeInfo, len(model.Types)),
	}
	for i := range model.Types {
		t := &model.Types[i]
		r.types[t.Name] = t
		if t.Namespace != "" {
			r.types[t.QualifiedName()] = t
		}
	}
	return r
}

// ModelName returns the model identifier, e.g. "FHIR".
func (r *Registry) ModelName() string { return r.model.Name }

// ModelVersion returns the model version, e.g. "4.0.1".
func (r *Registry) ModelVersion() string { return r.model.Version }

// ModelURL returns the model URL.
func (r *Registry) ModelURL() string { return r.model.URL }

// PatientClassName is the default context resource type, if declared.
func (r *Registry) PatientClassName() string { return r.model.PatientClassName }

// GetType resolves a type by simple or qualified name. Unknown names
// report ok=false; they are not an error.
func (r *Registry) GetType(name string) (*TypeInfo, bool) {
	t, ok := r.types[name]
	return t, ok
}

// IsSubtypeOf walks the inheritance chain from name towards base.
func (r *Registry) IsSubtypeOf(name, base string) bool {
	t, ok := r.GetType(name)
	for ok {
		if t.Name == base || t.QualifiedName() == base {
			return true
		}
		if t.BaseType == "" {
			return false
		}
		t, ok = r.GetType(t.BaseType)
	}
	return false
}

// GetPropertyType resolves a property against a type, walking the
// inheritance chain. isList reports list-valued properties.
func (r *Registry) GetPropertyType(parent, property string) (typeName string, isList bool, ok bool) {
	t, found := r.GetType(parent)
	for found {
		for _, e := range t.Elements {
			if e.Name == property {
				return e.PropertyType(), e.IsList(), true
			}
		}
		if t.BaseType == "" {
			break
		}
		t, found = r.GetType(t.BaseType)
	}
	return "", false, false
}

// IsRetrievable reports whether resources of the type can be the target
// of a retrieve expression.
func (r *Registry) IsRetrievable(name string) bool {
	t, ok := r.GetType(name)
	return ok && t.Retrievable
}

// PrimaryCodePath is the property a retrieve filters on when no explicit
// code path is given.
func (r *Registry) PrimaryCodePath(name string) (string, bool) {
	t, ok := r.GetType(name)
	if !ok || t.PrimaryCodePath == "" {
		return "", false
	}
	return t.PrimaryCodePath, true
}
