package loom

import "reflect"

// dependent is one node discovered while walking a root Marker's
// dependency tree (spec.md §4.2). It is the solver's working
// representation; Container.Solve compiles a tree of dependents into
// the dense task array of a SolvedPlan.
type dependent struct {
	// typ is the type this dependent produces, used for error messages,
	// plan labels (Visualize) and matching user-supplied values by type
	// (seedValues) — loom has no notion of interface satisfaction beyond
	// Go's own assignability.
	typ reflect.Type

	provider *Provider
	scope    Scope
	useCache bool
	key      cacheKey

	// params are this dependent's parameter dependents, in the callable's
	// declared order. A nil entry marks a parameter resolved from a
	// default value rather than another dependent.
	params []*dependent

	// paramInfo parallels params for parameters that did resolve to a
	// dependent, and carries the default for those that didn't; kept for
	// diagnostics and for task construction (task.go).
	paramInfo []Parameter

	// taskID is assigned once the tree is flattened into a SolvedPlan;
	// -1 until then.
	taskID int
}

// newDependent builds a dependent with its cache key already computed
// but its scope left unset (the zero Scope, NoScope) — the solver only
// knows a dependent's final scope once every one of its own parameters
// has been resolved, so assigning it is the caller's job (solver.go's
// resolve, which sets a provisional scope before recursing and the
// final one after recursion returns).
func newDependent(typ reflect.Type, p *Provider, useCache bool, key cacheKey) *dependent {
	return &dependent{
		typ:      typ,
		provider: p,
		useCache: useCache,
		key:      key,
		taskID:   -1,
	}
}

// dedupKey identifies a dependent for the solver's visited-set, per
// spec.md §4.2 step 5 ("dedup by cache key"): two dependents with equal
// cacheKey and scope collapse onto one task.
type dedupKey struct {
	key   cacheKey
	scope Scope
}

func (d *dependent) dedupKey() dedupKey {
	return dedupKey{key: d.key, scope: d.scope}
}
