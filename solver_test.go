package loom

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type testConfig struct{ DSN string }
type testDB struct{ Config testConfig }
type testRepo struct{ DB testDB }
type testHandler struct{ Repo testRepo }

func newTestConfig() testConfig      { return testConfig{DSN: "postgres://"} }
func newTestDB(c testConfig) testDB  { return testDB{Config: c} }
func newTestRepo(db testDB) testRepo { return testRepo{DB: db} }
func newTestHandler(r testRepo) testHandler { return testHandler{Repo: r} }

// TestSolveLinearChain exercises a straight dependency chain: Handler
// -> Repo -> DB -> Config, each type bound via a hook so the
// reflect-based Introspector has nothing but constructors to work
// with.
func TestSolveLinearChain(t *testing.T) {
	c := New()
	c = c.Bind(BindByType(reflect.TypeOf(testConfig{}), ProviderMarker(newTestConfig)))
	c = c.Bind(BindByType(reflect.TypeOf(testDB{}), ProviderMarker(newTestDB)))
	c = c.Bind(BindByType(reflect.TypeOf(testRepo{}), ProviderMarker(newTestRepo)))

	plan, err := c.Solve(ProviderMarker(newTestHandler))
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.Len(t, plan.Tasks(), 4)

	state := c.RootState()
	v, err := c.ExecuteSync(context.Background(), plan, state)
	require.NoError(t, err)
	h, ok := v.(testHandler)
	require.True(t, ok)
	assert.Equal(t, "postgres://", h.Repo.DB.Config.DSN)
}

// TestSolveSharesCachedProvider checks the cache-key policy: two
// parameters bound to the same cached provider collapse onto one
// task instead of two.
func TestSolveSharesCachedProvider(t *testing.T) {
	type pair struct {
		A testConfig
		B testConfig
	}
	newPair := func(a, b testConfig) pair { return pair{A: a, B: b} }

	c := New()
	cfgMarker := ProviderMarker(newTestConfig)
	c = c.Bind(BindByType(reflect.TypeOf(testConfig{}), cfgMarker))

	plan, err := c.Solve(ProviderMarker(newPair))
	require.NoError(t, err)
	// newPair + one shared Config task == 2, not 3.
	assert.Len(t, plan.Tasks(), 2)
}

// TestSolveUncachedProviderGetsDistinctTasks checks the inverse: a
// provider with UseCache disabled gives every dependent its own task.
func TestSolveUncachedProviderGetsDistinctTasks(t *testing.T) {
	type pair struct {
		A testConfig
		B testConfig
	}
	newPair := func(a, b testConfig) pair { return pair{A: a, B: b} }

	c := New()
	uncached := ProviderMarker(newTestConfig)
	uncached.Provider = uncached.Provider.WithCache(false)
	c = c.Bind(BindByType(reflect.TypeOf(testConfig{}), uncached))

	plan, err := c.Solve(ProviderMarker(newPair))
	require.NoError(t, err)
	assert.Len(t, plan.Tasks(), 3)
}

// TestUnknownScopeRejected checks a Marker naming a scope the
// Container was never given surfaces ErrUnknownScope.
func TestUnknownScopeRejected(t *testing.T) {
	c := New("app")
	root := ProviderMarker(newTestConfig)
	root.Scope = "request" // never declared
	_, err := c.Solve(root)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrUnknownScope))
}

// TestScopeViolationRejected checks an outer-scoped dependent cannot
// depend on an inner-scoped one.
func TestScopeViolationRejected(t *testing.T) {
	type outer struct{ Inner testConfig }
	newOuter := func(cfg testConfig) outer { return outer{Inner: cfg} }

	c := New("app", "request")

	inner := ProviderMarker(newTestConfig)
	inner.Provider = inner.Provider.WithScope("request")
	c = c.Bind(BindByType(reflect.TypeOf(testConfig{}), inner))

	root := ProviderMarker(newOuter)
	root.Provider = root.Provider.WithScope("app")

	_, err := c.Solve(root)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrScopeViolation))
}

// TestDuplicateScopeRejected checks a Container declared with the same
// scope name twice fails fast, before any walk happens.
func TestDuplicateScopeRejected(t *testing.T) {
	c := New("app", "app")
	_, err := c.Solve(ProviderMarker(newTestConfig))
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrDuplicateScope))
}

// TestDependencyCycleRejected checks a self-referential provider chain
// surfaces ErrDependencyCycle instead of recursing forever.
func TestDependencyCycleRejected(t *testing.T) {
	newA := func(v b) a { return a{B: &v} }
	newB := func(v a) b { return b{A: &v} }

	aMarker := ProviderMarker(newA)
	bMarker := ProviderMarker(newB)

	c := New()
	c = c.Bind(BindByType(reflect.TypeOf(a{}), aMarker))
	c = c.Bind(BindByType(reflect.TypeOf(b{}), bMarker))

	_, err := c.Solve(aMarker)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrDependencyCycle))
}

type a struct{ B *b }
type b struct{ A *a }

// TestWiringErrorOnMissingProvider checks a parameter with no bind hook,
// no default, and the default child Marker's Wire of true surfaces
// ErrWiring rather than panicking.
func TestWiringErrorOnMissingProvider(t *testing.T) {
	c := New()
	_, err := c.Solve(ProviderMarker(newTestDB))
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrWiring))
}
