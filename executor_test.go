package loom

import (
	"context"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSequentialSyncRejectsAsyncTask checks SequentialSync refuses a
// plan containing a coroutine-natured task rather than silently
// passing a zero Context.
func TestSequentialSyncRejectsAsyncTask(t *testing.T) {
	newAsyncConfig := func(ctx context.Context) (testConfig, error) {
		return testConfig{DSN: "async"}, nil
	}
	marker := ProviderMarker(newAsyncConfig)
	marker.Provider = marker.Provider.WithNature(NatureCoroutine)

	c := New()
	plan, err := c.Solve(marker)
	require.NoError(t, err)

	_, err = c.ExecuteSync(context.Background(), plan, c.RootState())
	require.Error(t, err)
}

// TestSequentialAsyncRunsCoroutineTask checks the same plan succeeds
// under SequentialAsync, with ctx passed through to the provider.
func TestSequentialAsyncRunsCoroutineTask(t *testing.T) {
	newAsyncConfig := func(ctx context.Context) (testConfig, error) {
		require.NotNil(t, ctx)
		return testConfig{DSN: "async"}, nil
	}
	marker := ProviderMarker(newAsyncConfig)
	marker.Provider = marker.Provider.WithNature(NatureCoroutine)

	c := New()
	plan, err := c.Solve(marker)
	require.NoError(t, err)

	v, err := c.ExecuteAsync(context.Background(), plan, c.RootState())
	require.NoError(t, err)
	assert.Equal(t, testConfig{DSN: "async"}, v)
}

// TestGeneratorTeardownRunsOnScopeExit checks a sync-generator
// provider's Finalizer runs when the owning ScopeState exits, not
// before.
func TestGeneratorTeardownRunsOnScopeExit(t *testing.T) {
	var torn bool
	newResource := func() (testConfig, Finalizer, error) {
		return testConfig{DSN: "resource"}, func(pending error) error {
			torn = true
			return nil
		}, nil
	}
	marker := ProviderMarker(newResource)
	marker.Provider = marker.Provider.WithNature(NatureSyncGenerator)

	c := New()
	plan, err := c.Solve(marker)
	require.NoError(t, err)

	state := c.RootState()
	_, err = c.ExecuteSync(context.Background(), plan, state)
	require.NoError(t, err)
	assert.False(t, torn, "finalizer must not run before scope exit")

	require.NoError(t, state.Exit(context.Background()))
	assert.True(t, torn)
}

// TestConcurrentAsyncDedupsCachedProvider checks that two sibling
// parameters bound to the same cached provider share one task, so
// ConcurrentAsync invokes that provider exactly once.
func TestConcurrentAsyncDedupsCachedProvider(t *testing.T) {
	type diamond struct {
		A testConfig
		B testConfig
	}
	newDiamond := func(a, b testConfig) diamond { return diamond{A: a, B: b} }

	var calls int32
	newCountingConfig := func() testConfig {
		atomic.AddInt32(&calls, 1)
		return testConfig{DSN: "shared"}
	}

	c := New()
	c = c.Bind(BindByType(reflect.TypeOf(testConfig{}), ProviderMarker(newCountingConfig)))

	plan, err := c.Solve(ProviderMarker(newDiamond))
	require.NoError(t, err)

	v, err := c.ExecuteConcurrent(context.Background(), plan, c.RootState())
	require.NoError(t, err)
	d, ok := v.(diamond)
	require.True(t, ok)
	assert.Equal(t, "shared", d.A.DSN)
	assert.Equal(t, "shared", d.B.DSN)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

// TestAppScopedValueSurvivesRequestReentry checks an 'app'-scoped
// provider executed while inside a 'request' scope is cached at the
// app layer: exiting and re-entering 'request' must observe the
// already-cached value rather than recomputing it, and the provider's
// resource must tear down on the app scope's exit, not the request
// scope's.
func TestAppScopedValueSurvivesRequestReentry(t *testing.T) {
	var calls int32
	var torn bool
	newConn := func() (testConfig, Finalizer, error) {
		atomic.AddInt32(&calls, 1)
		return testConfig{DSN: "conn"}, func(pending error) error {
			torn = true
			return nil
		}, nil
	}
	connProvider := NewProvider(newConn).WithScope("app").WithNature(NatureSyncGenerator)

	type useConn struct{ C testConfig }
	newUseConn := func(c testConfig) useConn { return useConn{C: c} }
	rootMarker := &Marker{Provider: NewProvider(newUseConn).WithScope("request"), Wire: true}

	c := New("app", "request")
	c = c.Bind(BindByType(reflect.TypeOf(testConfig{}), &Marker{Provider: connProvider, Wire: true}))

	plan, err := c.Solve(rootMarker)
	require.NoError(t, err)

	app, err := c.EnterScope(nil, "app")
	require.NoError(t, err)
	defer app.Exit(context.Background())

	req1, err := c.EnterScope(app, "request")
	require.NoError(t, err)
	_, err = c.ExecuteSync(context.Background(), plan, req1)
	require.NoError(t, err)
	require.NoError(t, req1.Exit(context.Background()))
	assert.False(t, torn, "app-scoped resource must not tear down on request scope exit")

	req2, err := c.EnterScope(app, "request")
	require.NoError(t, err)
	_, err = c.ExecuteSync(context.Background(), plan, req2)
	require.NoError(t, err)
	require.NoError(t, req2.Exit(context.Background()))

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls),
		"app-scoped provider must be cached across request re-entry, not recomputed")
	assert.False(t, torn, "app-scoped resource must still be alive after request re-entry")

	require.NoError(t, app.Exit(context.Background()))
	assert.True(t, torn, "app-scoped resource must tear down on app scope exit")
}

// TestValuesOverrideSkipsProvider checks a user-supplied value pre-seeds
// its task's result and is observed by dependents, while the
// overridden provider itself is never invoked.
func TestValuesOverrideSkipsProvider(t *testing.T) {
	var rCalls int32
	newR := func() testConfig {
		atomic.AddInt32(&rCalls, 1)
		return testConfig{DSN: "real"}
	}
	type useR struct{ R testConfig }
	newUseR := func(r testConfig) useR { return useR{R: r} }

	c := New()
	c = c.Bind(BindByType(reflect.TypeOf(testConfig{}), ProviderMarker(newR)))

	plan, err := c.Solve(ProviderMarker(newUseR))
	require.NoError(t, err)

	override := map[reflect.Type]interface{}{
		reflect.TypeOf(testConfig{}): testConfig{DSN: "overridden"},
	}

	v, err := c.ExecuteSync(context.Background(), plan, c.RootState(), override)
	require.NoError(t, err)
	got, ok := v.(useR)
	require.True(t, ok)
	assert.Equal(t, testConfig{DSN: "overridden"}, got.R)
	assert.EqualValues(t, 0, atomic.LoadInt32(&rCalls), "overridden provider must never be invoked")
}
