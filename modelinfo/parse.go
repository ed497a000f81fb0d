package modelinfo

import (
	"encoding/json"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/DAMEDIC/cql-engine-go/diagnostics"
)

// Parse decodes a ModelInfo document, auto-detecting XML versus JSON from
// the content.
func Parse(data []byte) (*ModelInfo, error) {
	trimmed := strings.TrimLeftFunc(string(data), func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\r' || r == '\n' || r == '\uFEFF'
	})
	switch {
	case strings.HasPrefix(trimmed, "<"):
		return parseXML(data)
	case strings.HasPrefix(trimmed, "{"):
		return parseJSON(data)
	default:
		return nil, diagnostics.New(
			diagnostics.KindIO, diagnostics.CodeMalformedModelInfo,
			"modelinfo content is neither XML nor JSON")
	}
}

// ParseFile reads and decodes a ModelInfo document. The extension
// selects the format; unknown extensions fall back to content detection.
func ParseFile(path string) (*ModelInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, diagnostics.New(
			diagnostics.KindIO, diagnostics.CodeMalformedModelInfo,
			"can not open modelinfo %s: %v", path, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, diagnostics.New(
			diagnostics.KindIO, diagnostics.CodeMalformedModelInfo,
			"can not read modelinfo %s: %v", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		return parseXML(data)
	case ".json":
		return parseJSON(data)
	default:
		return Parse(data)
	}
}

func parseJSON(data []byte) (*ModelInfo, error) {
	var mi ModelInfo
	if err := json.Unmarshal(data, &mi); err != nil {
		return nil, diagnostics.New(
			diagnostics.KindIO, diagnostics.CodeMalformedModelInfo,
			"malformed modelinfo JSON: %v", err)
	}
	if mi.Name == "" {
		return nil, diagnostics.New(
			diagnostics.KindIO, diagnostics.CodeMalformedModelInfo,
			"modelinfo has no name")
	}
	return &mi, nil
}

type xmlModelInfo struct {
	XMLName                      xml.Name      `xml:"modelInfo"`
	Name                         string        `xml:"name,attr"`
	Version                      string        `xml:"version,attr"`
	URL                          string        `xml:"url,attr"`
	PatientClassName             string        `xml:"patientClassName,attr"`
	PatientBirthDatePropertyName string        `xml:"patientBirthDatePropertyName,attr"`
	Types                        []xmlTypeInfo `xml:"typeInfo"`
}

type xmlTypeInfo struct {
	Namespace       string       `xml:"namespace,attr"`
	Name            string       `xml:"name,attr"`
	BaseType        string       `xml:"baseType,attr"`
	Retrievable     bool         `xml:"retrievable,attr"`
	PrimaryCodePath string       `xml:"primaryCodePath,attr"`
	Elements        []xmlElement `xml:"element"`
}

type xmlElement struct {
	Name        string `xml:"name,attr"`
	Type        string `xml:"type,attr"`
	ElementType string `xml:"elementType,attr"`
	Target      string `xml:"target,attr"`
}

func parseXML(data []byte) (*ModelInfo, error) {
	var doc xmlModelInfo
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, diagnostics.New(
			diagnostics.KindIO, diagnostics.CodeMalformedModelInfo,
			"malformed modelinfo XML: %v", err)
	}
	if doc.Name == "" {
		return nil, diagnostics.New(
			diagnostics.KindIO, diagnostics.CodeMalformedModelInfo,
			"modelinfo has no name")
	}
	mi := ModelInfo{
		Name:                         doc.Name,
		Version:                      doc.Version,
		URL:                          doc.URL,
		PatientClassName:             doc.PatientClassName,
		PatientBirthDatePropertyName: doc.PatientBirthDatePropertyName,
	}
	for _, t := range doc.Types {
		ti := TypeInfo{
			Namespace:       t.Namespace,
			Name:            t.Name,
			BaseType:        t.BaseType,
			Retrievable:     t.Retrievable,
			PrimaryCodePath: t.PrimaryCodePath,
		}
		for _, e := range t.Elements {
			ti.Elements = append(ti.Elements, Element{
				Name:        e.Name,
				Type:        e.Type,
				ElementType: e.ElementType,
				Target:      e.Target,
			})
		}
		mi.Types = append(mi.Types, ti)
	}
	return &mi, nil
}
