package loom

import (
	"context"
	"reflect"

	"go.uber.org/zap"

	"github.com/loom-di/loom/internal/clock"
)

// Container is the facade spec.md §5 calls a Container: a declared
// scope order, an Introspector, and a bind-hook stack. It has no
// mutable state of its own beyond that configuration — every Solve
// call is independent, and every EnterScope call returns a fresh
// ScopeState.
type Container struct {
	scopes        []Scope
	introspector  Introspector
	binds         *bindRegistry
	logger        *zap.Logger
	clock         clock.Clock
	scopeResolver ScopeResolver
}

// New builds a Container with the given scopes in outer-to-inner
// order (spec.md §3 "Scope").
func New(scopes ...Scope) *Container {
	return &Container{
		scopes:       append([]Scope{NoScope}, scopes...),
		introspector: DefaultIntrospector,
		logger:       zap.NewNop(),
		clock:        clock.System,
	}
}

// WithClock returns a copy of c measuring Solve duration with clk
// instead of the real one — tests substitute a *clock.Mock to assert
// on logged durations deterministically.
func (c *Container) WithClock(clk clock.Clock) *Container {
	cp := *c
	cp.clock = clk
	return &cp
}

// WithIntrospector returns a copy of c using introspector instead of
// the reflect-based default.
func (c *Container) WithIntrospector(introspector Introspector) *Container {
	cp := *c
	cp.introspector = introspector
	return &cp
}

// WithLogger returns a copy of c logging through logger.
func (c *Container) WithLogger(logger *zap.Logger) *Container {
	cp := *c
	cp.logger = logger
	return &cp
}

// WithScopeResolver returns a copy of c that assigns a scope to any
// dependent with no explicit scope of its own by calling resolver once
// its children's scopes are known (spec.md §4.2 step 5, §6
// "scope_resolver").
func (c *Container) WithScopeResolver(resolver ScopeResolver) *Container {
	cp := *c
	cp.scopeResolver = resolver
	return &cp
}

// Bind returns a copy of c with hook appended to the bind list, after
// every previously registered hook, so the earliest registered hook
// that matches wins (spec.md §4.2 step 1). The
// receiver is left untouched, so nested binds can be scoped to a
// single Solve call by discarding the returned Container afterward.
func (c *Container) Bind(hook BindHook) *Container {
	cp := *c
	if cp.binds == nil {
		cp.binds = &bindRegistry{}
	}
	cp.binds = cp.binds.push(hook)
	return &cp
}

// Solve walks root's dependency tree and compiles it into an immutable
// SolvedPlan (spec.md §4.2).
func (c *Container) Solve(root *Marker) (*SolvedPlan, error) {
	start := c.clock.Now()
	plan, err := solve(root, c.scopes, c.introspector, c.binds, c.scopeResolver)
	elapsed := c.clock.Since(start)
	if err != nil {
		c.logger.Debug("solve failed", zap.Error(err), zap.Duration("elapsed", elapsed))
		return nil, err
	}
	c.logger.Debug("solved plan", zap.Int("tasks", len(plan.tasks)), zap.Duration("elapsed", elapsed))
	return plan, nil
}

// RootState returns a fresh, empty ScopeState with no scope entered —
// the state a plan with no scoped dependents can execute against
// directly.
func (c *Container) RootState() *ScopeState {
	return NewRootState()
}

// EnterScope enters scope on top of parent (or a fresh root state if
// parent is nil), returning the child ScopeState a caller should Exit
// once done (spec.md §4.5).
func (c *Container) EnterScope(parent *ScopeState, scope Scope) (*ScopeState, error) {
	if !c.knowsScope(scope) {
		return nil, newSolveError(ErrUnknownScope, nil, "container was not given scope %q", scope)
	}
	if parent == nil {
		parent = c.RootState()
	}
	return parent.EnterScope(scope), nil
}

func (c *Container) knowsScope(scope Scope) bool {
	for _, s := range c.scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Logger returns the structured logger this Container was built with.
func (c *Container) Logger() *zap.Logger { return c.logger }

// mergeValues returns the single values map a caller supplied, or nil
// if none was given — execute_sync's optional trailing values argument
// (spec.md §6 "execute_sync(executor, state, values?)").
func mergeValues(values []map[reflect.Type]interface{}) map[reflect.Type]interface{} {
	if len(values) == 0 {
		return nil
	}
	return values[0]
}

// ExecuteSync is a convenience for SequentialSync{Logger: c.Logger()}.Execute.
func (c *Container) ExecuteSync(ctx context.Context, plan *SolvedPlan, state *ScopeState, values ...map[reflect.Type]interface{}) (interface{}, error) {
	return SequentialSync{Logger: c.logger}.Execute(ctx, plan, state, mergeValues(values))
}

// ExecuteAsync is a convenience for SequentialAsync{Logger: c.Logger()}.Execute.
func (c *Container) ExecuteAsync(ctx context.Context, plan *SolvedPlan, state *ScopeState, values ...map[reflect.Type]interface{}) (interface{}, error) {
	return SequentialAsync{Logger: c.logger}.Execute(ctx, plan, state, mergeValues(values))
}

// ExecuteConcurrent is a convenience for ConcurrentAsync{Logger: c.Logger()}.Execute.
func (c *Container) ExecuteConcurrent(ctx context.Context, plan *SolvedPlan, state *ScopeState, values ...map[reflect.Type]interface{}) (interface{}, error) {
	return ConcurrentAsync{Logger: c.logger}.Execute(ctx, plan, state, mergeValues(values))
}
