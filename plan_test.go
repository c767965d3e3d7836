package loom

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestVisualizeRendersDependencyTree checks Visualize produces a tree
// naming every type in a linear Handler -> Repo -> DB -> Config plan.
func TestVisualizeRendersDependencyTree(t *testing.T) {
	c := New()
	c = c.Bind(BindByType(reflect.TypeOf(testConfig{}), ProviderMarker(newTestConfig)))
	c = c.Bind(BindByType(reflect.TypeOf(testDB{}), ProviderMarker(newTestDB)))
	c = c.Bind(BindByType(reflect.TypeOf(testRepo{}), ProviderMarker(newTestRepo)))

	plan, err := c.Solve(ProviderMarker(newTestHandler))
	require.NoError(t, err)

	out := plan.Visualize()
	assert.Contains(t, out, "testHandler")
	assert.Contains(t, out, "testRepo")
	assert.Contains(t, out, "testDB")
	assert.Contains(t, out, "testConfig")
}

// TestStaticOrderIsDependencyFirst checks every task appears after
// all of its parameters in the plan's static order.
func TestStaticOrderIsDependencyFirst(t *testing.T) {
	c := New()
	c = c.Bind(BindByType(reflect.TypeOf(testConfig{}), ProviderMarker(newTestConfig)))
	c = c.Bind(BindByType(reflect.TypeOf(testDB{}), ProviderMarker(newTestDB)))
	c = c.Bind(BindByType(reflect.TypeOf(testRepo{}), ProviderMarker(newTestRepo)))

	plan, err := c.Solve(ProviderMarker(newTestHandler))
	require.NoError(t, err)

	position := make(map[int]int, len(plan.Tasks()))
	for i, id := range plan.StaticOrder() {
		position[id] = i
	}

	for _, task := range plan.Tasks() {
		for _, paramID := range task.Params {
			if paramID < 0 {
				continue
			}
			assert.Less(t, position[paramID], position[task.ID],
				"parameter task %d must precede dependent task %d", paramID, task.ID)
		}
	}

	assert.Equal(t, plan.Root(), plan.Tasks()[plan.StaticOrder()[len(plan.StaticOrder())-1]])
}
