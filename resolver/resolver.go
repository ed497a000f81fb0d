// Package resolver locates and parses the libraries a CQL program
// includes, producing a deterministic topological order for
// translation. Cyclic includes are detected and reported with the full
// cycle path.
package resolver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/DAMEDIC/cql-engine-go/ast"
	"github.com/DAMEDIC/cql-engine-go/diagnostics"
	"github.com/DAMEDIC/cql-engine-go/parser"
)

// Source is one parsed library with its provenance.
type Source struct {
	Name    string
	Version string
	Path    string // empty for in-memory roots
	Text    string
	Library *ast.Library
}

// Resolved is the result of resolving a root library: the root plus a
// dependency-first topological order of every library in the closure.
type Resolved struct {
	Root  *Source
	Order []*Source
}

// EnvLibraryPath is the colon-separated search path environment
// variable, consulted after explicitly configured paths.
const EnvLibraryPath = "CQL_LIBRARY_PATH"

// Resolver loads libraries from a set of search paths. The cache is
// shared across resolutions and safe for concurrent use: entries are
// immutable once inserted.
type Resolver struct {
	searchPaths []string

	mu    sync.RWMutex
	cache map[cacheKey]*Source
}

type cacheKey struct {
	name    string
	version string
}

// New creates a Resolver with explicitly configured search paths.
// Paths from CQL_LIBRARY_PATH and the root file's directory are
// appended at resolution time.
func New(searchPaths ...string) *Resolver {
	return &Resolver{
		searchPaths: searchPaths,
		cache:       make(map[cacheKey]*Source),
	}
}

// ResolveFile parses the root library at path and resolves its include
// closure.
func (r *Resolver) ResolveFile(path string) (*Resolved, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, diagnostics.New(
			diagnostics.KindIO, diagnostics.CodeLibraryNotFound,
			"can not read %s: %v", path, err)
	}
	return r.resolveRoot(string(data), path)
}

// ResolveSource resolves an in-memory root. dir is the directory
// includes are resolved relative to; it may be empty.
func (r *Resolver) ResolveSource(text, dir string) (*Resolved, error) {
	root := ""
	if dir != "" {
		root = filepath.Join(dir, "inline.cql")
	}
	return r.resolveRoot(text, root)
}

func (r *Resolver) resolveRoot(text, path string) (*Resolved, error) {
	lib, err := parser.ParseLibrary(text)
	if err != nil {
		return nil, err
	}
	root := &Source{Path: path, Text: text, Library: lib}
	if lib.Definition != nil {
		root.Name = lib.Definition.Name.String()
		root.Version = lib.Definition.Version
	}

	paths := r.effectivePaths(path)
	st := &resolveState{resolver: r, paths: paths, seen: map[cacheKey]bool{}}
	if err := st.visit(root, nil); err != nil {
		return nil, err
	}
	return &Resolved{Root: root, Order: st.order}, nil
}

func (r *Resolver) effectivePaths(rootPath string) []string {
	paths := append([]string{}, r.searchPaths...)
	if env := os.Getenv(EnvLibraryPath); env != "" {
		for _, p := range strings.Split(env, ":") {
			if p != "" {
				paths = append(paths, p)
			}
		}
	}
	if rootPath != "" {
		paths = append(paths, filepath.Dir(rootPath))
	}
	return paths
}

type resolveState struct {
	resolver *Resolver
	paths    []string
	// seen marks fully processed libraries, order collects them
	// dependencies-first
	seen  map[cacheKey]bool
	order []*Source
}

// visit performs a depth-first walk over includes. trail carries the
// in-progress chain for cycle reporting.
func (st *resolveState) visit(src *Source, trail []string) error {
	name := src.Name
	if name == "" {
		name = "(anonymous)"
	}
	for _, prior := range trail {
		if prior == name {
			cycle := append(trail[indexOf(trail, name):], name)
			return diagnostics.New(
				diagnostics.KindResolution, diagnostics.CodeCyclicInclude,
				"cyclic dependency: %s", strings.Join(cycle, " -> "))
		}
	}
	key := cacheKey{src.Name, src.Version}
	if src.Name != "" && st.seen[key] {
		return nil
	}

	trail = append(trail, name)
	for _, inc := range src.Library.Includes {
		dep, err := st.resolver.load(inc, st.paths)
		if err != nil {
			return err
		}
		if err := st.visit(dep, trail); err != nil {
			return err
		}
	}

	if src.Name != "" {
		st.seen[key] = true
	}
	st.order = append(st.order, src)
	return nil
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return 0
}

// load finds, reads and parses one included library, consulting the
// session cache first.
func (r *Resolver) load(inc *ast.IncludeDef, paths []string) (*Source, error) {
	name := inc.Library.String()
	key := cacheKey{name, inc.Version}

	r.mu.RLock()
	cached, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	path, ok := findLibraryFile(name, inc.Version, paths)
	if !ok {
		return nil, diagnostics.New(
			diagnostics.KindResolution, diagnostics.CodeLibraryNotFound,
			"library %s%s not found in %s",
			name, versionSuffix(inc.Version), strings.Join(paths, ":"))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, diagnostics.New(
			diagnostics.KindIO, diagnostics.CodeLibraryNotFound,
			"can not read %s: %v", path, err)
	}
	lib, err := parser.ParseLibrary(string(data))
	if err != nil {
		return nil, fmt.Errorf("in library %s: %w", name, err)
	}

	src := &Source{Name: name, Version: inc.Version, Path: path, Text: string(data), Library: lib}
	if lib.Definition != nil {
		declared := lib.Definition.Name.String()
		if last(declared) != last(name) {
			return nil, diagnostics.New(
				diagnostics.KindResolution, diagnostics.CodeLibraryNotFound,
				"file %s declares library %s, expected %s", path, declared, name)
		}
		if inc.Version != "" && lib.Definition.Version != "" && lib.Definition.Version != inc.Version {
			return nil, diagnostics.New(
				diagnostics.KindResolution, diagnostics.CodeVersionMismatch,
				"library %s has version %s, include requires %s",
				name, lib.Definition.Version, inc.Version)
		}
		src.Version = lib.Definition.Version
	}

	r.mu.Lock()
	// first writer wins; entries are immutable
	if existing, ok := r.cache[key]; ok {
		src = existing
	} else {
		r.cache[key] = src
	}
	r.mu.Unlock()
	return src, nil
}

func last(qualified string) string {
	parts := strings.Split(qualified, ".")
	return parts[len(parts)-1]
}

// findLibraryFile tries the candidate file names in order across the
// search paths; the first hit wins.
func findLibraryFile(name, version string, paths []string) (string, bool) {
	base := last(name)
	var candidates []string
	if version != "" {
		candidates = []string{
			base + "-" + version + ".cql",
			base + "_" + version + ".cql",
			base + "." + version + ".cql",
		}
	}
	candidates = append(candidates, base+".cql")

	for _, dir := range paths {
		for _, c := range candidates {
			p := filepath.Join(dir, c)
			if info, err := os.Stat(p); err == nil && !info.IsDir() {
				return p, true
			}
		}
	}
	return "", false
}

func versionSuffix(version string) string {
	if version == "" {
		return ""
	}
	return " version " + version
}
