package loom

import (
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/atomic"
)

// cacheKey determines whether two dependents share a result within a
// scope (spec.md §3 "Cache key"). When UseCache is true the key is
// (provider-identity, cache-group) so that two sites referencing the
// same provider with the same cache group share a result; providers
// with different callables never share a key. When UseCache is false
// the key is unique to one dependent instance.
type cacheKey struct {
	identity uintptr
	group    string
	unique   uint64
}

var (
	typeIdentityMu  sync.Mutex
	typeIdentitySeq uintptr
	typeIdentities  = make(map[reflect.Type]uintptr)
)

// identityForType interns a reflect.Type into a stable, process-lifetime
// identity. reflect.Type values compare equal by ==, so a plain map gives
// every distinct type exactly one identity without resorting to unsafe.
func identityForType(t reflect.Type) uintptr {
	typeIdentityMu.Lock()
	defer typeIdentityMu.Unlock()
	if id, ok := typeIdentities[t]; ok {
		return id
	}
	typeIdentitySeq++
	typeIdentities[t] = typeIdentitySeq
	return typeIdentitySeq
}

// providerIdentity returns a stable identity for a provider's callable,
// the same role reflect.Type/name pairs play in the teacher's key{t, name}.
func providerIdentity(fn interface{}) uintptr {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		// Non-func providers (e.g. a pre-built value) are identified by
		// their concrete type rather than a code pointer.
		return identityForType(v.Type())
	}
	return v.Pointer()
}

var uniqueSeq atomic.Uint64

func nextUniqueSeq() uint64 {
	return uniqueSeq.Inc()
}

// newCacheKey builds the cache key for a dependent bound to provider fn,
// per spec.md §3's cache key policy.
func newCacheKey(fn interface{}, useCache bool, group string) cacheKey {
	if !useCache {
		return cacheKey{identity: providerIdentity(fn), group: group, unique: nextUniqueSeq()}
	}
	return cacheKey{identity: providerIdentity(fn), group: group}
}

func (k cacheKey) String() string {
	if k.group != "" {
		return fmt.Sprintf("key(%#x, group=%q)", k.identity, k.group)
	}
	return fmt.Sprintf("key(%#x)", k.identity)
}
