// Package generate emits Go registration tables from ModelInfo
// documents, so models can be embedded without parsing XML at runtime.
// The System model table in the modelinfo package is produced this way.
package generate

import (
	"github.com/dave/jennifer/jen"
	"github.com/iancoleman/strcase"

	"github.com/DAMEDIC/cql-engine-go/modelinfo"
)

// File renders the registration table for one model into a Go source
// file belonging to the modelinfo package.
func File(model *modelinfo.ModelInfo) *jen.File {
	f := jen.NewFile("modelinfo")
	f.HeaderComment("Code generated by internal/cmd/generate from the " + model.Name + " model. DO NOT EDIT.")

	varName := strcase.ToLowerCamel(model.Name) + "Model"
	registryName := strcase.ToCamel(model.Name) + "Registry"

	f.Commentf("%s returns the registry for the embedded %s model.", registryName, model.Name)
	f.Var().Id(registryName).Op("=").Qual("sync", "OnceValue").Call(
		jen.Func().Params().Op("*").Id("Registry").Block(
			jen.Return(jen.Id("NewRegistry").Call(jen.Id(varName))),
		),
	)
	f.Line()

	f.Var().Id(varName).Op("=").Op("&").Id("ModelInfo").Values(modelDict(model))
	return f
}

func modelDict(model *modelinfo.ModelInfo) jen.Dict {
	d := jen.Dict{
		jen.Id("Name"):    jen.Lit(model.Name),
		jen.Id("Version"): jen.Lit(model.Version),
		jen.Id("URL"):     jen.Lit(model.URL),
	}
	if model.PatientClassName != "" {
		d[jen.Id("PatientClassName")] = jen.Lit(model.PatientClassName)
	}
	if model.PatientBirthDatePropertyName != "" {
		d[jen.Id("PatientBirthDatePropertyName")] = jen.Lit(model.PatientBirthDatePropertyName)
	}
	types := make([]jen.Code, len(model.Types))
	for i, t := range model.Types {
		types[i] = typeDict(t)
	}
	d[jen.Id("Types")] = jen.Index().Id("TypeInfo").Values(types...)
	return d
}

func typeDict(t modelinfo.TypeInfo) jen.Code {
	d := jen.Dict{
		jen.Id("Name"): jen.Lit(t.Name),
	}
	if t.Namespace != "" {
		d[jen.Id("Namespace")] = jen.Lit(t.Namespace)
	}
	if t.BaseType != "" {
		d[jen.Id("BaseType")] = jen.Lit(t.BaseType)
	}
	if t.Retrievable {
		d[jen.Id("Retrievable")] = jen.True()
	}
	if t.PrimaryCodePath != "" {
		d[jen.Id("PrimaryCodePath")] = jen.Lit(t.PrimaryCodePath)
	}
	if len(t.Elements) > 0 {
		elements := make([]jen.Code, len(t.Elements))
		for i, e := range t.Elements {
			elements[i] = elementDict(e)
		}
		d[jen.Id("Elements")] = jen.Index().Id("Element").Values(elements...)
	}
	return jen.Values(d)
}

func elementDict(e modelinfo.Element) jen.Code {
	d := jen.Dict{
		jen.Id("Name"): jen.Lit(e.Name),
	}
	if e.Type != "" {
		d[jen.Id("Type")] = jen.Lit(e.Type)
	}
	if e.ElementType != "" {
		d[jen.Id("ElementType")] = jen.Lit(e.ElementType)
	}
	if e.Target != "" {
		d[jen.Id("Target")] = jen.Lit(e.Target)
	}
	return jen.Values(d)
}
