package elm

import (
	"encoding/xml"
	"fmt"
	"reflect"
	"strings"
)

// MarshalLibraryXML serializes the library to ELM XML. Expression
// polymorphism is carried by xsi:type attributes, as in the published
// schema. Output is deterministic: attribute and element order follow
// the struct definitions.
func MarshalLibraryXML(lib *Library, indent bool) ([]byte, error) {
	w := &xmlWriter{indent: indent}
	w.open("library", [][2]string{
		{"xmlns", "urn:hl7-org:elm:r1"},
		{"xmlns:t", "urn:hl7-org:elm-types:r1"},
		{"xmlns:xsi", "http://www.w3.org/2001/XMLSchema-instance"},
	})
	w.openClose("identifier", [][2]string{{"id", lib.Identifier.ID}, {"version", lib.Identifier.Version}})
	w.openClose("schemaIdentifier", [][2]string{{"id", lib.SchemaIdentifier.ID}, {"version", lib.SchemaIdentifier.Version}})

	writeGroup(w, "usings", lib.Usings)
	writeGroup(w, "includes", lib.Includes)
	writeGroup(w, "parameters", lib.Parameters)
	writeGroup(w, "codeSystems", lib.CodeSystems)
	writeGroup(w, "valueSets", lib.ValueSets)
	writeGroup(w, "codes", lib.Codes)
	writeGroup(w, "concepts", lib.Concepts)
	writeGroup(w, "contexts", lib.Contexts)
	if len(lib.Statements) > 0 {
		w.open("statements", nil)
		for _, s := range lib.Statements {
			writeStruct(w, "def", reflect.ValueOf(s).Elem(), "")
		}
		w.close("statements")
	}
	w.close("library")
	return []byte(w.String()), nil
}

func writeGroup[T any](w *xmlWriter, group string, defs []T) {
	if len(defs) == 0 {
		return
	}
	w.open(group, nil)
	for i := range defs {
		writeStruct(w, "def", reflect.ValueOf(&defs[i]).Elem(), "")
	}
	w.close(group)
}

// writeStruct emits one struct as an element: scalar fields become
// attributes, nested nodes become child elements, in declaration order.
func writeStruct(w *xmlWriter, name string, v reflect.Value, xsiType string) {
	var attrs [][2]string
	if xsiType != "" {
		attrs = append(attrs, [2]string{"xsi:type", xsiType})
	}
	attrs, children := collectFields(w, v, attrs, nil)
	if len(children) == 0 {
		w.openClose(name, attrs)
		return
	}
	w.open(name, attrs)
	for _, emit := range children {
		emit()
	}
	w.close(name)
}

func collectFields(w *xmlWriter, v reflect.Value, attrs [][2]string, children []func()) ([][2]string, []func()) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		fv := v.Field(i)
		if f.Anonymous {
			if fv.Kind() == reflect.Struct {
				attrs, children = collectFields(w, fv, attrs, children)
			}
			continue
		}
		if !f.IsExported() {
			continue
		}
		jsonName := strings.Split(f.Tag.Get("json"), ",")[0]
		if jsonName == "" || jsonName == "-" || jsonName == "type" {
			continue
		}
		attrs, children = collectField(w, jsonName, fv, attrs, children)
	}
	return attrs, children
}

func collectField(w *xmlWriter, name string, fv reflect.Value, attrs [][2]string, children []func()) ([][2]string, []func()) {
	switch val := fv.Interface().(type) {
	case Expr:
		if val.Expression != nil {
			expr := val.Expression
			children = append(children, func() {
				writeStruct(w, name, reflect.ValueOf(expr).Elem(), expr.TypeName())
			})
		}
		return attrs, children
	case TypeSpec:
		if val.TypeSpecifier != nil {
			spec := val.TypeSpecifier
			children = append(children, func() {
				writeStruct(w, name, reflect.ValueOf(spec).Elem(), spec.SpecifierName())
			})
		}
		return attrs, children
	}

	switch fv.Kind() {
	case reflect.String:
		if s := fv.String(); s != "" {
			attrs = append(attrs, [2]string{name, s})
		}
	case reflect.Bool:
		attrs = append(attrs, [2]string{name, fmt.Sprintf("%t", fv.Bool())})
	case reflect.Slice:
		for i := 0; i < fv.Len(); i++ {
			ev := fv.Index(i)
			children = append(children, fieldWriter(w, name, ev))
		}
	case reflect.Pointer:
		if !fv.IsNil() {
			children = append(children, fieldWriter(w, name, fv.Elem()))
		}
	case reflect.Struct:
		if !fv.IsZero() {
			children = append(children, fieldWriter(w, name, fv))
		}
	}
	return attrs, children
}

func fieldWriter(w *xmlWriter, name string, ev reflect.Value) func() {
	return func() {
		switch val := ev.Interface().(type) {
		case Expr:
			if val.Expression != nil {
				writeStruct(w, name, reflect.ValueOf(val.Expression).Elem(), val.Expression.TypeName())
			}
		case TypeSpec:
			if val.TypeSpecifier != nil {
				writeStruct(w, name, reflect.ValueOf(val.TypeSpecifier).Elem(), val.TypeSpecifier.SpecifierName())
			}
		case string:
			w.openClose(name, [][2]string{{"name", val}})
		default:
			v := ev
			if v.Kind() == reflect.Pointer {
				v = v.Elem()
			}
			writeStruct(w, name, v, "")
		}
	}
}

type xmlWriter struct {
	b      strings.Builder
	indent bool
	depth  int
}

func (w *xmlWriter) pad() {
	if !w.indent {
		return
	}
	if w.b.Len() > 0 {
		w.b.WriteByte('\n')
	}
	w.b.WriteString(strings.Repeat("   ", w.depth))
}

func (w *xmlWriter) attrString(attrs [][2]string) string {
	var b strings.Builder
	for _, a := range attrs {
		if a[1] == "" {
			continue
		}
		var esc strings.Builder
		_ = xml.EscapeText(&esc, []byte(a[1]))
		fmt.Fprintf(&b, ` %s="%s"`, a[0], esc.String())
	}
	return b.String()
}

func (w *xmlWriter) open(name string, attrs [][2]string) {
	w.pad()
	fmt.Fprintf(&w.b, "<%s%s>", name, w.attrString(attrs))
	w.depth++
}

func (w *xmlWriter) openClose(name string, attrs [][2]string) {
	w.pad()
	fmt.Fprintf(&w.b, "<%s%s/>", name, w.attrString(attrs))
}

func (w *xmlWriter) close(name string) {
	w.depth--
	w.pad()
	fmt.Fprintf(&w.b, "</%s>", name)
}

func (w *xmlWriter) String() string {
	return xml.Header + w.b.String()
}
