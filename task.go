package loom

import "reflect"

// Task is the flattened, immutable execution descriptor for one
// dependent, referencing its parameters by task ID instead of pointer
// so a SolvedPlan can be executed repeatedly without re-walking a
// pointer graph (spec.md §4.4 "Task execution model").
//
// Grounded on _task.py's Task/SyncTask/AsyncTask and the teacher's
// graphHolder node shape (graph.go, now superseded by plan.go).
type Task struct {
	ID   int
	Type reflect.Type

	Provider *Provider
	Scope    Scope
	CacheKey cacheKey

	// Params holds one entry per declared parameter of Provider.Fn, in
	// order. A negative ID marks a parameter resolved from a default
	// rather than another task; ParamInfo[i].Default holds that value.
	Params    []int
	ParamInfo []Parameter
}

func (t *Task) isResource() bool { return t.Provider.Nature.isResource() }
func (t *Task) isAsync() bool    { return t.Provider.Nature.isAsync() }

// buildArgs assembles the reflect.Value argument list for invoking this
// task's provider, given the already-computed results of its parameter
// tasks (indexed by task ID, nil where a task has not computed yet).
func (t *Task) buildArgs(results []reflect.Value, leadingCtx reflect.Value, hasCtx bool) []reflect.Value {
	args := make([]reflect.Value, 0, len(t.Params)+1)
	if hasCtx {
		args = append(args, leadingCtx)
	}
	for i, id := range t.Params {
		if id < 0 {
			args = append(args, t.ParamInfo[i].Default)
			continue
		}
		args = append(args, results[id])
	}
	return args
}
