package loom

import (
	"context"
	"fmt"
	"reflect"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Executor runs a SolvedPlan against a ScopeState and returns the root
// task's value (spec.md §4.6 "Executors": SequentialSync,
// SequentialAsync, ConcurrentAsync share one per-task compute routine
// but differ in how they schedule independent tasks). values, if
// non-nil, pre-seeds specific tasks' results by the reflect.Type their
// provider produces, skipping invocation of that provider entirely
// (spec.md §4.4 "User-supplied values").
type Executor interface {
	Execute(ctx context.Context, plan *SolvedPlan, state *ScopeState, values map[reflect.Type]interface{}) (interface{}, error)
}

var ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()

// seedValues writes every task in plan whose produced type appears in
// values directly into results, bypassing its provider, and reports
// which task IDs were seeded so callers can skip them during scheduling
// (spec.md §4.4, mandatory scenario S7: "values={R:42} -> F sees 42, R's
// provider never invoked").
func seedValues(plan *SolvedPlan, values map[reflect.Type]interface{}, results []reflect.Value) map[int]bool {
	seeded := make(map[int]bool)
	if len(values) == 0 {
		return seeded
	}
	for _, task := range plan.tasks {
		v, ok := values[task.Type]
		if !ok {
			continue
		}
		results[task.ID] = reflect.ValueOf(v)
		seeded[task.ID] = true
	}
	return seeded
}

// computeTask invokes task's provider once, deduping against its
// cacheSlot so concurrent callers for the same key observe a single
// computation (spec.md §3 "Cache key"). results holds already-computed
// values for every task, indexed by ID; it must already contain every
// of task's dependencies before computeTask is called.
func computeTask(ctx context.Context, task *Task, state *ScopeState, results []reflect.Value, logger *zap.Logger) error {
	slot, owns := state.claimOrCreate(task.CacheKey, task.Scope)
	shouldCompute, ready := slot.claim()
	if !shouldCompute {
		select {
		case <-ready:
		case <-ctx.Done():
			return ctx.Err()
		}
		v, err := slot.result()
		if err != nil {
			return err
		}
		results[task.ID] = v
		return nil
	}

	fnVal := reflect.ValueOf(task.Provider.Fn)
	fnType := fnVal.Type()
	hasCtx := fnType.NumIn() > 0 && fnType.In(0) == ctxType && task.Provider.Nature.isAsync()
	args := task.buildArgs(results, reflect.ValueOf(ctx), hasCtx)

	logger.Debug("computing task", zap.Int("task_id", task.ID), zap.Stringer("scope", zapScope(task.Scope)))

	out := fnVal.Call(args)

	value, fin, err := splitOutputs(task.Provider.Nature, out)
	slot.fulfill(value, fin, err)
	if owns && !fin.isZero() {
		state.ownerFor(task.Scope).own(slot)
	}
	if err != nil {
		return errors.WithStack(err)
	}
	results[task.ID] = value
	return nil
}

type zapScope Scope

func (z zapScope) String() string { return string(z) }

// splitOutputs interprets a provider call's return values according to
// its Nature (spec.md §4.3's construction table): the value is always
// first, an optional Finalizer/AsyncFinalizer follows for resource
// natures, and an error is always last.
func splitOutputs(n Nature, out []reflect.Value) (reflect.Value, finalizer, error) {
	var err error
	if e, ok := out[len(out)-1].Interface().(error); ok {
		err = e
	}

	value := out[0]
	if !n.isResource() {
		return value, finalizer{}, err
	}

	finVal := out[1]
	if finVal.IsNil() {
		return value, finalizer{}, err
	}
	if n == NatureAsyncGenerator {
		return value, asyncFinalizerOf(finVal.Interface().(AsyncFinalizer)), err
	}
	return value, syncFinalizerOf(finVal.Interface().(Finalizer)), err
}

// SequentialSync executes every task in static topological order, one
// at a time, on the calling goroutine. It refuses a plan containing a
// coroutine- or async-generator-natured task (spec.md §4.6: only the
// async executors may invoke those).
type SequentialSync struct {
	Logger *zap.Logger
}

func (e SequentialSync) Execute(ctx context.Context, plan *SolvedPlan, state *ScopeState, values map[reflect.Type]interface{}) (interface{}, error) {
	logger := e.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	results := make([]reflect.Value, len(plan.tasks))
	seeded := seedValues(plan, values, results)
	for _, id := range plan.StaticOrder() {
		if seeded[id] {
			continue
		}
		task := plan.tasks[id]
		if task.isAsync() {
			return nil, fmt.Errorf("loom: task %s is async-natured; use SequentialAsync or ConcurrentAsync", task.Type)
		}
		if err := computeTask(ctx, task, state, results, logger); err != nil {
			return nil, err
		}
	}
	return results[plan.rootID].Interface(), nil
}

// SequentialAsync executes every task in static topological order, one
// at a time, but may invoke coroutine- and async-generator-natured
// tasks, passing ctx through to them.
type SequentialAsync struct {
	Logger *zap.Logger
}

func (e SequentialAsync) Execute(ctx context.Context, plan *SolvedPlan, state *ScopeState, values map[reflect.Type]interface{}) (interface{}, error) {
	logger := e.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	results := make([]reflect.Value, len(plan.tasks))
	seeded := seedValues(plan, values, results)
	for _, id := range plan.StaticOrder() {
		if seeded[id] {
			continue
		}
		task := plan.tasks[id]
		if err := computeTask(ctx, task, state, results, logger); err != nil {
			return nil, err
		}
	}
	return results[plan.rootID].Interface(), nil
}
