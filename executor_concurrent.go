package loom

import (
	"context"
	"reflect"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/loom-di/loom/internal/topo"
)

// ConcurrentAsync executes a plan's tasks with maximum concurrency: any
// task whose dependencies have all completed is started immediately,
// on its own goroutine, inside one structured errgroup.Group — the
// Go equivalent of di/executors/_async.py's ConcurrentAsyncExecutor
// driving an anyio task group from async_worker. A failure in any task
// cancels ctx for every task still in flight; Execute returns the
// first error observed.
type ConcurrentAsync struct {
	Logger *zap.Logger
}

func (e ConcurrentAsync) Execute(ctx context.Context, plan *SolvedPlan, state *ScopeState, values map[reflect.Type]interface{}) (interface{}, error) {
	logger := e.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	deps := make([][]int, len(plan.tasks))
	for i, t := range plan.tasks {
		deps[i] = t.Params
	}
	sorter := topo.NewSorter(deps)

	results := make([]reflect.Value, len(plan.tasks))
	seeded := seedValues(plan, values, results)
	var mu sync.Mutex // guards sorter; each results slot is written by one goroutine before its Done, which this lock orders before any dependent reads it; computeTask's own cacheSlot locking covers cache contention

	g, gctx := errgroup.WithContext(ctx)

	var spawn func(ids []int)
	spawn = func(ids []int) {
		for _, id := range ids {
			if seeded[id] {
				continue
			}
			id := id
			g.Go(func() error {
				task := plan.tasks[id]
				if err := computeTask(gctx, task, state, results, logger); err != nil {
					return err
				}

				mu.Lock()
				newlyReady := sorter.Done(id)
				mu.Unlock()

				spawn(newlyReady)
				return nil
			})
		}
	}

	mu.Lock()
	var initial []int
	for id := range seeded {
		initial = append(initial, sorter.Seed(id)...)
	}
	initial = append(initial, sorter.Ready()...)
	mu.Unlock()
	spawn(initial)

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results[plan.rootID].Interface(), nil
}
