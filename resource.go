package loom

import (
	"reflect"
	"sync"
)

// cacheSlot is one entry in a scopeMap: a single-flight cell that
// dedups concurrent requests for the same cacheKey, the Go analogue of
// _state.py's per-key cache entry. The first caller to reach an empty
// slot computes the value and closes ready; every other caller for the
// same key blocks on ready instead of recomputing (spec.md §4.4 "a
// dependent computed once per scope regardless of how many dependents
// reference it"). This is pumped-go's resolving/sync.WaitGroup pattern
// expressed with a channel instead, since loom has no single owning
// Scope goroutine to hand a WaitGroup to.
type cacheSlot struct {
	mu      sync.Mutex
	ready   chan struct{}
	claimed bool
	done    bool
	value   reflect.Value
	err     error

	fin finalizer
}

// claim returns (true, nil) to the caller that must compute the value,
// or (false, ready) to a caller that must wait for ready to close
// before calling result.
func (s *cacheSlot) claim() (shouldCompute bool, ready <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claimed {
		return false, s.ready
	}
	s.claimed = true
	s.ready = make(chan struct{})
	return true, s.ready
}

// fulfill stores the computed result and wakes any waiters.
func (s *cacheSlot) fulfill(v reflect.Value, fin finalizer, err error) {
	s.mu.Lock()
	s.value = v
	s.err = err
	s.fin = fin
	s.done = true
	ready := s.ready
	s.mu.Unlock()
	close(ready)
}

func (s *cacheSlot) result() (reflect.Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.err
}

// finalizer is the sum type covering the two teardown shapes a
// generator-natured provider can register (spec.md §4.3's "generators
// denote scoped resources"): a synchronous Finalizer or an
// AsyncFinalizer. Only one of sync/async is ever set.
type finalizer struct {
	sync  Finalizer
	async AsyncFinalizer
}

func syncFinalizerOf(f Finalizer) finalizer       { return finalizer{sync: f} }
func asyncFinalizerOf(f AsyncFinalizer) finalizer { return finalizer{async: f} }

func (f finalizer) isZero() bool { return f.sync == nil && f.async == nil }

func (f finalizer) isAsync() bool { return f.async != nil }
