package loom

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// ScopeState is the runtime state a SolvedPlan executes against: the
// active scope stack's cached results and the teardown stack for each
// entered scope (spec.md §4.5 "ScopeState"), grounded on _state.py's
// ContainerState/ScopeContext.
//
// A ScopeState is immutable from the outside: EnterScope returns a new
// child ScopeState, never mutates the parent, so a parent ScopeState
// can be reused to enter multiple sibling child scopes concurrently.
type ScopeState struct {
	id    uuid.UUID
	scope Scope
	cache *scopeMap

	// teardown lists this scope's own generator-backed slots in
	// acquisition order; Exit releases them in reverse, the discipline
	// spec.md §4.3 calls for ("generator resources release in reverse
	// acquisition order").
	teardown []*cacheSlot
	parent   *ScopeState
}

// NewRootState builds the ScopeState a Container starts from, with no
// scope entered and an empty cache.
func NewRootState() *ScopeState {
	return &ScopeState{id: uuid.New(), scope: NoScope, cache: newScopeMap()}
}

// EnterScope returns a new ScopeState with one more scope layer pushed
// onto the cache, per _state.py's ContainerState.enter_scope.
func (s *ScopeState) EnterScope(scope Scope) *ScopeState {
	return &ScopeState{
		id:     uuid.New(),
		scope:  scope,
		cache:  s.cache.pushScope(scope),
		parent: s,
	}
}

// Scope returns the scope this state was entered for (NoScope for the
// root state).
func (s *ScopeState) Scope() Scope { return s.scope }

// ID uniquely identifies this ScopeState instance, useful for log
// correlation across an entered scope's lifetime.
func (s *ScopeState) ID() uuid.UUID { return s.id }

func (s *ScopeState) slot(k cacheKey) (*cacheSlot, bool) {
	return s.cache.get(k)
}

// claimOrCreate returns the existing slot for k if one is cached in any
// active scope layer, or installs and returns a fresh slot at the
// given assigned scope (spec.md §4.4 "publish ... at the dependent's
// assigned scope"). owns is true only for the call that installed the
// slot; computeTask then registers its finalizer with ownerFor(scope),
// so a slot found through the cache is never registered twice.
func (s *ScopeState) claimOrCreate(k cacheKey, scope Scope) (slot *cacheSlot, owns bool) {
	if existing, ok := s.cache.get(k); ok {
		return existing, false
	}
	slot = &cacheSlot{}
	s.cache.set(k, slot, scope)
	return slot, true
}

// ownerFor returns the ScopeState in s's own ancestry entered for
// scope — the ScopeState whose Exit must run a resource's finalizer,
// regardless of which (possibly deeper) ScopeState actually computed
// it. Falls back to s itself if no ancestor carries scope, which
// happens when a plan runs against a state that has not entered the
// dependent's declared scope (scopeMap.set likewise falls back to the
// innermost layer in that case).
func (s *ScopeState) ownerFor(scope Scope) *ScopeState {
	for st := s; st != nil; st = st.parent {
		if st.scope == scope {
			return st
		}
	}
	return s
}

func (s *ScopeState) own(slot *cacheSlot) {
	s.teardown = append(s.teardown, slot)
}

// Exit tears down every resource this scope owns, in reverse
// acquisition order, aggregating failures with multierr the way the
// teacher's ambient stack aggregates independent errors elsewhere
// (spec.md §4.3 "Exception during generator teardown").
func (s *ScopeState) Exit(ctx context.Context) error {
	var err error
	for i := len(s.teardown) - 1; i >= 0; i-- {
		slot := s.teardown[i]
		if slot.fin.isZero() {
			continue
		}
		if slot.fin.isAsync() {
			if ferr := slot.fin.async(ctx, slot.err); ferr != nil {
				err = multierr.Append(err, ferr)
			}
			continue
		}
		if ferr := slot.fin.sync(slot.err); ferr != nil {
			err = multierr.Append(err, ferr)
		}
	}
	s.teardown = nil
	return err
}
