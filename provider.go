package loom

import (
	"context"
	"reflect"
)

// Scope is an opaque, hashable tag naming a lifetime bucket (spec.md
// §3 "Scope"). Scopes are totally ordered by their declaration to the
// Container: earlier scopes are outer, later scopes are inner.
type Scope string

// NoScope is the scope of dependents with no declared lifetime bucket;
// it is always the outermost scope.
const NoScope Scope = ""

// Nature identifies how a Provider produces its value (spec.md §3
// "Provider nature"). Go has no generator syntax, so the two generator
// natures are expressed as providers that return a cleanup alongside
// their value (Design Note "Generators as scoped resources").
type Nature int

const (
	// NaturePlain is a plain synchronous call: func(args...) (T, error).
	NaturePlain Nature = iota
	// NatureCoroutine is an asynchronous call: func(ctx, args...) (T, error),
	// invoked only by the async executors.
	NatureCoroutine
	// NatureSyncGenerator constructs a value and a synchronous finalizer to
	// run at scope teardown: func(args...) (T, Finalizer, error).
	NatureSyncGenerator
	// NatureAsyncGenerator constructs a value and an asynchronous finalizer:
	// func(ctx, args...) (T, AsyncFinalizer, error).
	NatureAsyncGenerator
)

func (n Nature) String() string {
	switch n {
	case NaturePlain:
		return "plain-sync"
	case NatureCoroutine:
		return "coroutine"
	case NatureSyncGenerator:
		return "sync-generator"
	case NatureAsyncGenerator:
		return "async-generator"
	default:
		return "unknown-nature"
	}
}

// isResource reports whether this nature produces a scoped resource that
// must be torn down on scope exit (spec.md §3 "Generators denote scoped
// resources").
func (n Nature) isResource() bool {
	return n == NatureSyncGenerator || n == NatureAsyncGenerator
}

func (n Nature) isAsync() bool {
	return n == NatureCoroutine || n == NatureAsyncGenerator
}

// Finalizer runs during scope teardown to release a sync-generator
// resource. Its argument is the error the provider returned alongside
// it (nil if none); ScopeState.Exit takes no in-flight error, so a
// failure raised elsewhere during execution is not passed to it. A
// non-nil return is reported by ScopeState.Exit (spec.md §4.3
// "Exception during generator teardown").
type Finalizer func(pending error) error

// AsyncFinalizer is the async analogue of Finalizer.
type AsyncFinalizer func(ctx context.Context, pending error) error

// Provider is the primitive description of a single dependency: a
// callable, the scope it lives in, its cache policy, and its nature
// (spec.md §3 "Provider nature", §4.1).
type Provider struct {
	// Fn is the underlying callable, invoked via reflection. Its shape is
	// dictated by Nature; see the Nature constants.
	Fn interface{}

	// Scope is the lifetime bucket this provider's result belongs to.
	Scope Scope

	// UseCache selects the cache-key policy of spec.md §3: true shares a
	// result across every dependent bound to this provider with the same
	// CacheGroup; false gives every dependent its own instance.
	UseCache bool

	// CacheGroup is the second half of spec.md §3's "(provider-identity,
	// cache-group)" key shape: dependents of the same callable share a
	// result only when their groups match. Providers with different
	// callables never share a cache slot, whatever their group. Usually
	// empty.
	CacheGroup string

	// Nature drives construction and teardown, per the table in
	// spec.md §4.3.
	Nature Nature

	fnType reflect.Type

	// overrides holds the per-parameter markers and defaults attached with
	// WithParam/WithParamDefault (schema.go), keyed by parameter index.
	overrides map[int]paramOverride
}

func (p *Provider) resolvedFnType() reflect.Type {
	if p.fnType == nil {
		p.fnType = reflect.TypeOf(p.Fn)
	}
	return p.fnType
}

// NewProvider builds a Provider for a plain synchronous callable with
// caching enabled by default, the common case in spec.md's examples
// (S1, S2).
func NewProvider(fn interface{}) *Provider {
	return &Provider{Fn: fn, UseCache: true, Nature: NaturePlain}
}

// WithScope returns a copy of p assigned to scope s.
func (p *Provider) WithScope(s Scope) *Provider {
	cp := *p
	cp.Scope = s
	return &cp
}

// WithCache returns a copy of p with its UseCache policy set.
func (p *Provider) WithCache(use bool) *Provider {
	cp := *p
	cp.UseCache = use
	return &cp
}

// WithNature returns a copy of p with its Nature set.
func (p *Provider) WithNature(n Nature) *Provider {
	cp := *p
	cp.Nature = n
	return &cp
}
