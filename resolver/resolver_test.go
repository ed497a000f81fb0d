package resolver

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DAMEDIC/cql-engine-go/diagnostics"
)

func writeLib(t *testing.T, dir, file, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, file), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestResolveIncludeClosure(t *testing.T) {
	dir := t.TempDir()
	writeLib(t, dir, "Root.cql", `library Root version '1.0.0'
include Common version '1.0.0' called C
include Demographics called D
define X: C.Shared + 1`)
	writeLib(t, dir, "Common-1.0.0.cql", `library Common version '1.0.0'
include Base
define Shared: 1`)
	writeLib(t, dir, "Demographics.cql", `library Demographics
include Base
define AgeBase: 2`)
	writeLib(t, dir, "Base.cql", `library Base
define Zero: 0`)

	r := New()
	resolved, err := r.ResolveFile(filepath.Join(dir, "Root.cql"))
	if err != nil {
		t.Fatal(err)
	}

	var names []string
	for _, s := range resolved.Order {
		names = append(names, s.Name)
	}
	want := "Base,Common,Demographics,Root"
	if got := strings.Join(names, ","); got != want {
		t.Errorf("order = %s, want %s", got, want)
	}

	// determinism: resolving again gives the same order
	again, err := New().ResolveFile(filepath.Join(dir, "Root.cql"))
	if err != nil {
		t.Fatal(err)
	}
	var names2 []string
	for _, s := range again.Order {
		names2 = append(names2, s.Name)
	}
	if strings.Join(names2, ",") != want {
		t.Errorf("resolution is not deterministic: %v", names2)
	}
}

func TestCandidateFileNames(t *testing.T) {
	dir := t.TempDir()
	// N_V.cql form should be found when N-V.cql is absent
	writeLib(t, dir, "Helpers_2.0.0.cql", `library Helpers version '2.0.0'
define H: 1`)
	writeLib(t, dir, "Root.cql", `library Root
include Helpers version '2.0.0'
define X: 1`)

	if _, err := New().ResolveFile(filepath.Join(dir, "Root.cql")); err != nil {
		t.Fatalf("N_V.cql candidate not found: %v", err)
	}
}

func TestCyclicIncludeError(t *testing.T) {
	dir := t.TempDir()
	writeLib(t, dir, "A.cql", `library A
include B
define X: 1`)
	writeLib(t, dir, "B.cql", `library B
include A
define Y: 2`)

	_, err := New().ResolveFile(filepath.Join(dir, "A.cql"))
	if err == nil {
		t.Fatal("expected cyclic dependency error")
	}
	if !diagnostics.IsCode(err, diagnostics.CodeCyclicInclude) {
		t.Fatalf("expected cyclic-include code, got %v", err)
	}
	if !strings.Contains(err.Error(), "A -> B -> A") {
		t.Errorf("cycle path missing from error: %v", err)
	}
}

func TestSelfIncludeIsCycle(t *testing.T) {
	dir := t.TempDir()
	writeLib(t, dir, "Selfish.cql", `library Selfish
include Selfish
define X: 1`)
	_, err := New().ResolveFile(filepath.Join(dir, "Selfish.cql"))
	if !diagnostics.IsCode(err, diagnostics.CodeCyclicInclude) {
		t.Fatalf("expected cyclic-include code, got %v", err)
	}
}

func TestLibraryNotFound(t *testing.T) {
	dir := t.TempDir()
	writeLib(t, dir, "Root.cql", `library Root
include Missing version '1.0.0'
define X: 1`)
	_, err := New().ResolveFile(filepath.Join(dir, "Root.cql"))
	if !diagnostics.IsCode(err, diagnostics.CodeLibraryNotFound) {
		t.Fatalf("expected library-not-found, got %v", err)
	}
}

func TestVersionMismatch(t *testing.T) {
	dir := t.TempDir()
	writeLib(t, dir, "Dep.cql", `library Dep version '2.0.0'
define X: 1`)
	writeLib(t, dir, "Root.cql", `library Root
include Dep version '1.0.0'
define Y: 1`)
	_, err := New().ResolveFile(filepath.Join(dir, "Root.cql"))
	if !diagnostics.IsCode(err, diagnostics.CodeVersionMismatch) {
		t.Fatalf("expected version mismatch, got %v", err)
	}
}

func TestSearchPathPriority(t *testing.T) {
	explicit := t.TempDir()
	envDir := t.TempDir()
	rootDir := t.TempDir()

	writeLib(t, explicit, "Dep.cql", "library Dep\ndefine Which: 'explicit'")
	writeLib(t, envDir, "Dep.cql", "library Dep\ndefine Which: 'env'")
	writeLib(t, rootDir, "Dep.cql", "library Dep\ndefine Which: 'rootdir'")
	writeLib(t, rootDir, "Root.cql", "library Root\ninclude Dep\ndefine X: 1")

	t.Setenv(EnvLibraryPath, envDir)

	// explicit paths win over the environment and the file's directory
	resolved, err := New(explicit).ResolveFile(filepath.Join(rootDir, "Root.cql"))
	if err != nil {
		t.Fatal(err)
	}
	dep := resolved.Order[0]
	if !strings.HasPrefix(dep.Path, explicit) {
		t.Errorf("resolved from %s, want explicit dir", dep.Path)
	}

	// without explicit paths the environment wins over the file dir
	resolved, err = New().ResolveFile(filepath.Join(rootDir, "Root.cql"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(resolved.Order[0].Path, envDir) {
		t.Errorf("resolved from %s, want env dir", resolved.Order[0].Path)
	}
}

func TestCacheReuse(t *testing.T) {
	dir := t.TempDir()
	writeLib(t, dir, "Dep.cql", "library Dep\ndefine X: 1")
	writeLib(t, dir, "Root.cql", "library Root\ninclude Dep\ndefine Y: 1")

	r := New()
	first, err := r.ResolveFile(filepath.Join(dir, "Root.cql"))
	if err != nil {
		t.Fatal(err)
	}
	// removing the file does not matter once cached
	if err := os.Remove(filepath.Join(dir, "Dep.cql")); err != nil {
		t.Fatal(err)
	}
	second, err := r.ResolveFile(filepath.Join(dir, "Root.cql"))
	if err != nil {
		t.Fatal(err)
	}
	if first.Order[0] != second.Order[0] {
		t.Error("expected the cached Source pointer to be reused")
	}
}
