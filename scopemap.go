package loom

// scopeLayer is one entered scope's slice of the cache, labelled by
// the Scope it was entered for so set can target a dependent's
// assigned scope instead of whichever scope happens to be innermost
// (spec.md §4.4 "publish the result into the ScopeMap at the
// dependent's assigned scope", §4.5 "set(k, v, scope=s)").
type scopeLayer struct {
	scope Scope
	slots map[cacheKey]*cacheSlot
}

// scopeMap is a per-scope-stack cache keyed by cacheKey, giving O(1)
// enter/exit and O(S) lookup across the active scope stack (spec.md
// §4.5 "ScopeMap"), grounded on _scope_map.py's ScopeMap (mappings
// keyed by Scope, get/set operating across all of them).
//
// Each entry in layers corresponds to one entered scope, outermost
// first. get walks from the innermost layer outward; a given cacheKey
// is only ever written to one layer — the one matching its dependent's
// scope, or the innermost one when that scope is not entered (see
// set) — so lookup order only matters for NoScope shadowing, which
// never happens (NoScope has exactly one layer: the root).
type scopeMap struct {
	layers []*scopeLayer
}

func newScopeMap() *scopeMap {
	return &scopeMap{layers: []*scopeLayer{{scope: NoScope, slots: make(map[cacheKey]*cacheSlot)}}}
}

// pushScope enters a new, empty layer labelled scope, returning the
// map for chaining. It copies only the slice of layer pointers, never a
// prior layer's slot map, so its cost does not grow with the number of
// cached values.
func (m *scopeMap) pushScope(scope Scope) *scopeMap {
	layer := &scopeLayer{scope: scope, slots: make(map[cacheKey]*cacheSlot)}
	return &scopeMap{layers: append(append([]*scopeLayer(nil), m.layers...), layer)}
}

// popScope drops the innermost layer, the scopeMap a parent ScopeState
// reverts to once a child scope exits.
func (m *scopeMap) popScope() *scopeMap {
	if len(m.layers) == 0 {
		return m
	}
	return &scopeMap{layers: m.layers[:len(m.layers)-1]}
}

// get walks from the innermost layer outward, per spec.md's "O(S)
// lookup" guarantee (S = number of active scopes).
func (m *scopeMap) get(k cacheKey) (*cacheSlot, bool) {
	for i := len(m.layers) - 1; i >= 0; i-- {
		if slot, ok := m.layers[i].slots[k]; ok {
			return slot, true
		}
	}
	return nil, false
}

// set writes k into the layer labelled scope — a dependent's assigned
// scope, not necessarily the innermost one currently active. If no
// active layer carries scope (a declared scope this state has not
// entered), it writes into the innermost layer instead and reports no
// error.
func (m *scopeMap) set(k cacheKey, slot *cacheSlot, scope Scope) {
	for i := len(m.layers) - 1; i >= 0; i-- {
		if m.layers[i].scope == scope {
			m.layers[i].slots[k] = slot
			return
		}
	}
	m.layers[len(m.layers)-1].slots[k] = slot
}

func (m *scopeMap) depth() int { return len(m.layers) }
