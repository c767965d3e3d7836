package loom

import (
	"reflect"

	"github.com/pkg/errors"
)

// solveContext carries the state threaded through one DFS walk of a
// dependency tree, mirroring the dag/parents/dependants maps built by
// build_dag in the Python original this package is grounded on.
type solveContext struct {
	introspector  Introspector
	binds         *bindRegistry
	scopeResolver ScopeResolver
	allScopes     []Scope

	// dependants dedups by (cacheKey, scope); two parameter sites that
	// resolve to the same key and scope collapse onto one dependent, and
	// a key already registered under a different scope is a Solving
	// error. Populated only after a candidate's own scope is known, i.e.
	// after its children have already been recursed into.
	dependants map[dedupKey]*dependent

	// parent tracks one parent per dependent, for building a diagnostic
	// path when something goes wrong; first writer wins.
	parent map[*dependent]*dependent

	// onPath guards against infinite recursion on a true dependency
	// cycle, keyed by the raw provider callable's identity rather than
	// by cacheKey/scope — a dependent's scope is not known until after
	// it recurses into its own children, so dedup (which would
	// otherwise stop a cycle) cannot run until too late. Grounded on
	// _container.py's build_task, which guards with
	// "dependency.call in {d.call for d in path}".
	onPath map[uintptr]bool
}

func newSolveContext(introspector Introspector, binds *bindRegistry, resolver ScopeResolver, scopes []Scope) *solveContext {
	if introspector == nil {
		introspector = DefaultIntrospector
	}
	return &solveContext{
		introspector:  introspector,
		binds:         binds,
		scopeResolver: resolver,
		allScopes:     scopes,
		dependants:    make(map[dedupKey]*dependent),
		parent:        make(map[*dependent]*dependent),
		onPath:        make(map[uintptr]bool),
	}
}

// solve walks root's dependency tree to a *dependent DAG, validates it
// (acyclicity, scope nesting), and flattens it into a SolvedPlan.
// resolver, if non-nil, assigns a scope to any dependent that declared
// none of its own, once its children's scopes are known.
//
// Grounded on container/_solving.py's build_dag + solve + build_tasks,
// and container/_scope_validation.py's validate_scopes.
func solve(root *Marker, scopes []Scope, introspector Introspector, binds *bindRegistry, resolver ScopeResolver) (*SolvedPlan, error) {
	if err := checkDuplicateScopes(scopes); err != nil {
		return nil, err
	}

	sc := newSolveContext(introspector, binds, resolver, scopes)

	rootType := reflect.TypeOf(nil)
	if root.Provider != nil {
		if ft := root.Provider.resolvedFnType(); ft != nil && ft.Kind() == reflect.Func && ft.NumOut() > 0 {
			rootType = ft.Out(0)
		}
	}

	rootDep, err := sc.resolve(rootType, root, nil, nil)
	if err != nil {
		return nil, err
	}
	if rootDep == nil {
		return nil, newSolveError(ErrWiring, nil, "root marker did not resolve to a provider")
	}

	if err := sc.detectCycles(rootDep); err != nil {
		return nil, err
	}

	if err := validateScopes(rootDep, scopes); err != nil {
		return nil, err
	}

	return buildPlan(rootDep)
}

func checkDuplicateScopes(scopes []Scope) error {
	seen := make(map[Scope]struct{}, len(scopes))
	for _, s := range scopes {
		if _, ok := seen[s]; ok {
			return newSolveError(ErrDuplicateScope, nil, "scope %q declared more than once", s)
		}
		seen[s] = struct{}{}
	}
	return nil
}

// resolve turns one Marker (for parameter type t, with parent dependent
// pdep, reached from the given diagnostic path) into a *dependent,
// recursing into its provider's parameters before assigning it a final
// scope. It returns (nil, nil) when the parameter was unresolvable but
// its Marker allows that (Wire == false), per spec.md §4.2 step 7.
//
// Scope assignment happens AFTER recursion, not before: a ScopeResolver
// needs every child's scope already known (spec.md §4.2 step 5), so
// dedup — which depends on the final scope — cannot run until a
// candidate's whole subtree has been walked. Grounded on
// _container.py's build_task, which recurses into a dependency's own
// parameters before resolving its scope and checking the task cache.
func (sc *solveContext) resolve(t reflect.Type, m *Marker, pdep *dependent, path []string) (*dependent, error) {
	m = sc.binds.resolve(t, m)

	provider := sc.providerFor(t, m)
	if provider == nil {
		if m.wire() {
			return nil, newSolveError(ErrWiring, path, "no provider and no default for type %v", t)
		}
		return nil, nil
	}

	identity := providerIdentity(provider.Fn)
	if sc.onPath[identity] {
		return nil, newSolveError(ErrDependencyCycle, path, "%v depends on itself", t)
	}

	explicitScope, hasExplicitScope := m.Scope, m.Scope != NoScope
	if provider.Scope != NoScope {
		explicitScope, hasExplicitScope = provider.Scope, true
	}

	useCache := provider.UseCache
	if m.UseCache != nil {
		useCache = *m.UseCache
	}

	key := newCacheKey(provider.Fn, useCache, provider.CacheGroup)
	candidate := newDependent(t, provider, useCache, key)

	params, err := sc.introspector.Parameters(provider)
	if err != nil {
		return nil, wrapSolveError(ErrSolving, path, err, "introspecting %v", t)
	}

	// Children inheriting this dependent's scope read candidate.scope
	// while they are resolved, so set it now wherever it does not depend
	// on the children; the switch below settles the final value.
	if hasExplicitScope {
		candidate.scope = explicitScope
	} else if sc.scopeResolver == nil && pdep != nil {
		candidate.scope = pdep.scope
	}

	sc.onPath[identity] = true
	childPath := append(append([]string(nil), path...), t.String())
	candidate.paramInfo = make([]Parameter, len(params))
	candidate.params = make([]*dependent, len(params))
	for i, param := range params {
		marker := param.Marker
		if marker == nil {
			marker = defaultChildMarker(candidate)
		}
		if resolved := sc.binds.resolve(param.Type, marker); resolved.Provider == nil && param.HasDefault {
			candidate.paramInfo[i] = param
			continue
		}

		child, err := sc.resolve(param.Type, marker, candidate, childPath)
		if err != nil {
			sc.onPath[identity] = false
			return nil, err
		}
		if child == nil {
			// marker.Wire == false: the branch was pruned rather than
			// wired, per spec.md §4.2 step 7. resolve already raised a
			// Wiring error for any case where a value was actually
			// required and unavailable.
			candidate.paramInfo[i] = param
			continue
		}

		if _, ok := sc.parent[child]; !ok {
			sc.parent[child] = candidate
		}
		candidate.params[i] = child
		candidate.paramInfo[i] = param
	}
	sc.onPath[identity] = false

	scope := explicitScope
	switch {
	case hasExplicitScope:
		// keep it
	case sc.scopeResolver != nil:
		childScopes := make([]Scope, 0, len(candidate.params))
		for _, child := range candidate.params {
			if child != nil {
				childScopes = append(childScopes, child.scope)
			}
		}
		scope = sc.scopeResolver(t, childScopes, sc.allScopes)
	case pdep != nil:
		scope = pdep.scope
	default:
		scope = NoScope
	}
	candidate.scope = scope

	dk := candidate.dedupKey()
	if existing, ok := sc.dependants[dk]; ok {
		return existing, nil
	}
	for other, existing := range sc.dependants {
		if other.key == dk.key {
			return nil, newSolveError(ErrSolving, path,
				"provider for %v is used with multiple scopes (%q and %q)", t, scope, existing.scope)
		}
	}
	sc.dependants[dk] = candidate

	return candidate, nil
}

// providerFor returns the provider to use for a parameter of type t
// given its Marker m, inferring one from the Marker's own Provider, or
// else leaving it nil to signal "no provider" (spec.md §4.2 step 2).
func (sc *solveContext) providerFor(t reflect.Type, m *Marker) *Provider {
	if m != nil && m.Provider != nil {
		return m.Provider
	}
	return nil
}

// detectCycles walks the dependent tree looking for a repeated node on
// the current path, the same recursive strategy as the teacher's
// detectCycles over constructorNode graphs, adapted to dependents.
func (sc *solveContext) detectCycles(root *dependent) error {
	onPath := make(map[*dependent]bool)
	var path []string

	var visit func(d *dependent) error
	visit = func(d *dependent) error {
		if onPath[d] {
			return newSolveError(ErrDependencyCycle, path, "%v depends on itself", d.typ)
		}
		onPath[d] = true
		path = append(path, d.typ.String())
		for _, child := range d.params {
			if child == nil {
				continue
			}
			if err := visit(child); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		onPath[d] = false
		return nil
	}

	return visit(root)
}

// validateScopes checks every dependent's scope is known and that no
// dependent in an outer scope depends on one in an inner scope,
// grounded on _scope_validation.py's validate_scopes / check_is_inner.
func validateScopes(root *dependent, scopes []Scope) error {
	idx := make(map[Scope]int, len(scopes))
	for i, s := range scopes {
		idx[s] = i
	}
	idx[NoScope] = -1

	visited := make(map[*dependent]bool)
	var visit func(d *dependent) error
	visit = func(d *dependent) error {
		if visited[d] {
			return nil
		}
		visited[d] = true

		if _, ok := idx[d.scope]; !ok {
			return newSolveError(ErrUnknownScope, nil, "dependent %v has unknown scope %q", d.typ, d.scope)
		}
		for _, child := range d.params {
			if child == nil {
				continue
			}
			if _, ok := idx[child.scope]; !ok {
				return newSolveError(ErrUnknownScope, nil, "dependent %v has unknown scope %q", child.typ, child.scope)
			}
			if idx[d.scope] < idx[child.scope] {
				return newSolveError(ErrScopeViolation, nil,
					"%v (scope %q) cannot depend on %v (scope %q): narrower scope",
					d.typ, d.scope, child.typ, child.scope)
			}
			if err := visit(child); err != nil {
				return err
			}
		}
		return nil
	}

	return errors.WithStack(visit(root))
}
