// Package cql wires the front-end and the evaluator into a session:
// parse, resolve includes, translate to ELM, evaluate definitions.
package cql

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/DAMEDIC/cql-engine-go/elm"
	"github.com/DAMEDIC/cql-engine-go/engine"
	"github.com/DAMEDIC/cql-engine-go/modelinfo"
	"github.com/DAMEDIC/cql-engine-go/resolver"
	"github.com/DAMEDIC/cql-engine-go/system"
	"github.com/DAMEDIC/cql-engine-go/translator"
)

// SessionOptions configures a Session.
type SessionOptions struct {
	// ModelProvider serves `using` declarations. The System model is
	// always available.
	ModelProvider modelinfo.Provider
	// LibraryPaths are searched for includes, before CQL_LIBRARY_PATH
	// and the source file's directory.
	LibraryPaths []string
	// DataProvider serves retrieves; defaults to the no-op provider.
	DataProvider engine.DataProvider
	// Terminology answers valueset membership.
	Terminology engine.TerminologyProvider
	// Logger receives engine trace output.
	Logger zerolog.Logger
	// Annotations adds source locators to translated ELM.
	Annotations bool
	// Now fixes the evaluation timestamp for Today()/Now().
	Now time.Time
}

// Session shares the library cache, model registries and translator
// across compilations. It is safe for concurrent use.
type Session struct {
	options    SessionOptions
	resolver   *resolver.Resolver
	translator *translator.Translator
}

// NewSession creates a Session.
func NewSession(options SessionOptions) *Session {
	return &Session{
		options:    options,
		resolver:   resolver.New(options.LibraryPaths...),
		translator: translator.New(options.ModelProvider, translator.Options{Annotations: options.Annotations}),
	}
}

// Compiled is a translated library closure ready for evaluation.
type Compiled struct {
	session *Session
	result  *translator.Result
	engine  *engine.Engine
}

// CompileFile parses, resolves and translates the library at path.
func (s *Session) CompileFile(path string) (*Compiled, error) {
	resolved, err := s.resolver.ResolveFile(path)
	if err != nil {
		return nil, err
	}
	return s.compile(resolved)
}

// Compile parses, resolves and translates in-memory source text.
func (s *Session) Compile(source string) (*Compiled, error) {
	resolved, err := s.resolver.ResolveSource(source, "")
	if err != nil {
		return nil, err
	}
	return s.compile(resolved)
}

func (s *Session) compile(resolved *resolver.Resolved) (*Compiled, error) {
	result, err := s.translator.Translate(resolved)
	if err != nil {
		return nil, err
	}
	eng := engine.New(result, engine.Options{
		DataProvider: s.options.DataProvider,
		Terminology:  s.options.Terminology,
		Logger:       s.options.Logger,
		Now:          s.options.Now,
	})
	return &Compiled{session: s, result: result, engine: eng}, nil
}

// ELM returns the root library's ELM tree.
func (c *Compiled) ELM() *elm.Library {
	return c.result.Root.ELM
}

// ELMJSON serializes the root library as ELM JSON.
func (c *Compiled) ELMJSON(indent bool) ([]byte, error) {
	return elm.MarshalLibrary(c.result.Root.ELM, indent)
}

// ELMXML serializes the root library as ELM XML.
func (c *Compiled) ELMXML(indent bool) ([]byte, error) {
	return elm.MarshalLibraryXML(c.result.Root.ELM, indent)
}

// EvalOptions binds a context resource and parameters for one request.
type EvalOptions struct {
	Context    system.Value
	Parameters map[string]system.Value
}

// Evaluate computes one definition of the root library.
func (c *Compiled) Evaluate(ctx context.Context, name string, opts EvalOptions) (system.Value, error) {
	req := c.engine.NewRequest(engine.RequestOptions{
		Context:    opts.Context,
		Parameters: opts.Parameters,
	})
	return req.Evaluate(ctx, name)
}

// EvaluateAll computes every public definition of the root library in
// declaration order, sharing one memoization cache.
func (c *Compiled) EvaluateAll(ctx context.Context, opts EvalOptions) ([]engine.NamedResult, error) {
	req := c.engine.NewRequest(engine.RequestOptions{
		Context:    opts.Context,
		Parameters: opts.Parameters,
	})
	return req.EvaluateAll(ctx)
}
