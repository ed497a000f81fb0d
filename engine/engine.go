// Package engine evaluates translated ELM libraries over the CQL
// runtime value space. Evaluation is a tree walk with bounded depth,
// per-request memoization of named definitions, cancellation checks at
// every node dispatch, and a pluggable data retrieval boundary.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/DAMEDIC/cql-engine-go/diagnostics"
	"github.com/DAMEDIC/cql-engine-go/elm"
	"github.com/DAMEDIC/cql-engine-go/system"
	"github.com/DAMEDIC/cql-engine-go/translator"
)

// Options bounds and wires an Engine.
type Options struct {
	// DataProvider serves retrieve expressions. Defaults to NoopProvider.
	DataProvider DataProvider
	// Terminology answers valueset membership. Defaults to a provider
	// that can not expand any valueset, so membership is always false.
	Terminology TerminologyProvider
	// Logger receives trace events. Defaults to a disabled logger.
	Logger zerolog.Logger
	// MaxDepth bounds expression nesting (default 2048).
	MaxDepth int
	// MaxListSize bounds materialized lists (default 1_000_000).
	MaxListSize int
	// Now fixes the evaluation timestamp; zero means time.Now at
	// request start.
	Now time.Time
}

const (
	defaultMaxDepth    = 2048
	defaultMaxListSize = 1_000_000
)

// Engine evaluates definitions of one translated library closure. It is
// immutable after construction and safe for concurrent requests; each
// request owns its memoization cache and scopes.
type Engine struct {
	result  *translator.Result
	options Options
}

// New creates an Engine over a translation result.
func New(result *translator.Result, options Options) *Engine {
	if options.DataProvider == nil {
		options.DataProvider = NoopProvider{}
	}
	if options.Terminology == nil {
		options.Terminology = inlineTerminology{}
	}
	if options.MaxDepth == 0 {
		options.MaxDepth = defaultMaxDepth
	}
	if options.MaxListSize == 0 {
		options.MaxListSize = defaultMaxListSize
	}
	return &Engine{result: result, options: options}
}

// Request is one evaluation request: a context resource, parameter
// bindings, and the per-request memoization cache.
type Request struct {
	engine  *Engine
	id      string
	now     time.Time
	context system.Value
	params  map[string]system.Value
	memo    map[memoKey]system.Value
	logger  zerolog.Logger

	depth int
}

type memoKey struct {
	library string
	name    string
}

// RequestOptions configures one evaluation request.
type RequestOptions struct {
	// Context is the context resource (e.g. the Patient).
	Context system.Value
	// Parameters binds root-library parameters by name.
	Parameters map[string]system.Value
}

// NewRequest prepares an evaluation request.
func (e *Engine) NewRequest(opts RequestOptions) *Request {
	now := e.options.Now
	if now.IsZero() {
		now = time.Now()
	}
	id := uuid.NewString()
	return &Request{
		engine:  e,
		id:      id,
		now:     now,
		context: opts.Context,
		params:  opts.Parameters,
		memo:    map[memoKey]system.Value{},
		logger:  e.options.Logger.With().Str("request_id", id).Logger(),
	}
}

// Evaluate computes one named definition of the root library.
// Definitions are memoized: repeated references evaluate once.
func (r *Request) Evaluate(ctx context.Context, name string) (system.Value, error) {
	root := r.engine.result.Root
	def := findDefinition(root.ELM, name)
	if def == nil {
		return nil, diagnostics.New(
			diagnostics.KindEvaluation, diagnostics.CodeUnresolvedIdentifier,
			"no definition named `%s`", name)
	}
	st := &state{request: r, library: root, scopes: nil}
	return st.definition(ctx, root, def)
}

// EvaluateAll computes every public non-function definition of the root
// library in declaration order.
func (r *Request) EvaluateAll(ctx context.Context) ([]NamedResult, error) {
	root := r.engine.result.Root
	var out []NamedResult
	for _, def := range root.ELM.Statements {
		if def.IsFunction() || def.AccessLevel == "Private" {
			continue
		}
		st := &state{request: r, library: root}
		v, err := st.definition(ctx, root, def)
		if err != nil {
			return out, err
		}
		out = append(out, NamedResult{Name: def.Name, Value: v})
	}
	return out, nil
}

// NamedResult pairs a definition name with its value.
type NamedResult struct {
	Name  string
	Value system.Value
}

func findDefinition(lib *elm.Library, name string) *elm.ExpressionDef {
	for _, def := range lib.Statements {
		if def.Name == name && !def.IsFunction() {
			return def
		}
	}
	return nil
}

// state is the per-walk evaluation state: current library, lexical
// scopes, and the shared request.
type state struct {
	request *Request
	library *translator.Translated
	scopes  *frame
}

// frame is one lexical scope of alias, let and operand bindings.
type frame struct {
	parent   *frame
	bindings map[string]system.Value
}

func (st *state) push(bindings map[string]system.Value) *state {
	return &state{
		request: st.request,
		library: st.library,
		scopes:  &frame{parent: st.scopes, bindings: bindings},
	}
}

func (st *state) lookup(name string) (system.Value, bool) {
	for f := st.scopes; f != nil; f = f.parent {
		if v, ok := f.bindings[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// inLibrary returns a state rooted in another library; scope bindings
// do not cross library boundaries.
func (st *state) inLibrary(lib *translator.Translated) *state {
	return &state{request: st.request, library: lib}
}

// definition evaluates a named definition with memoization. Entries are
// write-once per request.
func (st *state) definition(ctx context.Context, lib *translator.Translated, def *elm.ExpressionDef) (system.Value, error) {
	key := memoKey{library: lib.Source.Name, name: def.Name}
	if v, ok := st.request.memo[key]; ok {
		return v, nil
	}

	st.request.logger.Trace().
		Str("library", lib.Source.Name).
		Str("definition", def.Name).
		Msg("evaluating definition")

	defState := st.inLibrary(lib)
	if def.Expression.Expression == nil {
		return nil, diagnostics.New(
			diagnostics.KindEvaluation, diagnostics.CodeInvalidArgument,
			"definition `%s` has no expression", def.Name)
	}
	v, err := defState.eval(ctx, def.Expression.Expression)
	if err != nil {
		return nil, err
	}
	st.request.memo[key] = v
	return v, nil
}

// enter performs the per-node bookkeeping: cancellation and recursion
// depth.
func (st *state) enter(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return diagnostics.New(
			diagnostics.KindResource, diagnostics.CodeCancelled,
			"evaluation cancelled: %v", context.Cause(ctx))
	}
	st.request.depth++
	if st.request.depth > st.engineOptions().MaxDepth {
		return diagnostics.New(
			diagnostics.KindResource, diagnostics.CodeResourceExhausted,
			"expression nesting exceeds %d", st.engineOptions().MaxDepth)
	}
	return nil
}

func (st *state) leave() {
	st.request.depth--
}

func (st *state) engineOptions() *Options {
	return &st.request.engine.options
}

func (st *state) checkListSize(n int) error {
	if n > st.engineOptions().MaxListSize {
		return diagnostics.New(
			diagnostics.KindResource, diagnostics.CodeResourceExhausted,
			"list of %d elements exceeds the materialization bound %d",
			n, st.engineOptions().MaxListSize)
	}
	return nil
}
