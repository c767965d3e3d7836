package loom

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func mkTornSlot(t *testing.T, onTeardown func()) *cacheSlot {
	s := &cacheSlot{}
	shouldCompute, _ := s.claim()
	require.True(t, shouldCompute)
	s.fulfill(reflect.Value{}, syncFinalizerOf(func(pending error) error {
		onTeardown()
		return nil
	}), nil)
	return s
}

// TestScopeStateTeardownReverseOrder checks resources release in the
// reverse of their acquisition order.
func TestScopeStateTeardownReverseOrder(t *testing.T) {
	state := NewRootState()
	var order []string

	state.own(mkTornSlot(t, func() { order = append(order, "first") }))
	state.own(mkTornSlot(t, func() { order = append(order, "second") }))

	require.NoError(t, state.Exit(context.Background()))
	assert.Equal(t, []string{"second", "first"}, order)
}

// TestScopeStateExitAggregatesErrors checks a failing finalizer does
// not stop the rest of teardown, and every failure is reported.
func TestScopeStateExitAggregatesErrors(t *testing.T) {
	state := NewRootState()

	failingSlot := func(msg string) *cacheSlot {
		s := &cacheSlot{}
		s.claim()
		s.fulfill(reflect.Value{}, syncFinalizerOf(func(pending error) error {
			return assert.AnError
		}), nil)
		return s
	}

	state.own(failingSlot("one"))
	state.own(failingSlot("two"))

	err := state.Exit(context.Background())
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
}

// TestEnterScopeIsolatesSiblingCaches checks two sibling scopes
// entered from the same parent do not see each other's cached slots.
func TestEnterScopeIsolatesSiblingCaches(t *testing.T) {
	parent := NewRootState()
	childA := parent.EnterScope("a")
	childB := parent.EnterScope("b")

	key := newCacheKey(newTestConfig, true, "")
	slot, owns := childA.claimOrCreate(key, "a")
	require.True(t, owns)
	slot.claim()
	slot.fulfill(reflect.ValueOf(testConfig{DSN: "a-only"}), finalizer{}, nil)

	_, ok := childB.slot(key)
	assert.False(t, ok, "sibling scope must not observe the other's cache entry")

	got, ok := childA.slot(key)
	require.True(t, ok)
	v, err := got.result()
	require.NoError(t, err)
	assert.Equal(t, testConfig{DSN: "a-only"}, v.Interface())
}
