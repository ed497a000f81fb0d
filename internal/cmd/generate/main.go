// Command generate renders ModelInfo documents into Go registration
// tables inside the modelinfo package:
//
//	go run ./internal/cmd/generate path/to/fhir-modelinfo-4.0.1.xml
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/DAMEDIC/cql-engine-go/internal/generate"
	"github.com/DAMEDIC/cql-engine-go/modelinfo"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: generate <modelinfo file> ...")
		os.Exit(1)
	}
	for _, path := range os.Args[1:] {
		if err := run(path); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	}
}

func run(path string) error {
	model, err := modelinfo.ParseFile(path)
	if err != nil {
		return err
	}
	out := filepath.Join("modelinfo", "gen_"+strings.ToLower(model.Name)+".go")
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := generate.File(model).Render(f); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%d types)\n", out, len(model.Types))
	return nil
}
