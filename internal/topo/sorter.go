// Package topo implements the dynamic ready/done topological scheduler
// ConcurrentAsync drives: a node becomes ready once every node it
// depends on has been marked done, mirroring the get_ready()/done()
// contract di/executors/_async.py's ConcurrentAsyncExecutor drives its
// anyio task group with.
package topo

// Sorter tracks a fixed DAG of n nodes, numbered 0..n-1, and exposes
// which nodes are ready to run as their dependencies complete. It is
// not safe for concurrent use; callers serialize access to
// Ready/Done/Seed behind a mutex (see executor_concurrent.go).
type Sorter struct {
	remaining  []int
	dependents [][]int
	started    []bool
}

// NewSorter builds a Sorter for a DAG where deps[i] lists the node IDs
// i depends on. Negative IDs in deps[i] are ignored (they mark a
// parameter resolved from a default rather than another node).
func NewSorter(deps [][]int) *Sorter {
	n := len(deps)
	s := &Sorter{
		remaining:  make([]int, n),
		dependents: make([][]int, n),
		started:    make([]bool, n),
	}
	for i, d := range deps {
		count := 0
		for _, dep := range d {
			if dep < 0 {
				continue
			}
			count++
			s.dependents[dep] = append(s.dependents[dep], i)
		}
		s.remaining[i] = count
	}
	return s
}

// Ready returns every node with no unfinished dependency that has not
// already been returned by a previous Ready/Done call.
func (s *Sorter) Ready() []int {
	var ready []int
	for i, n := range s.remaining {
		if n == 0 && !s.started[i] {
			s.started[i] = true
			ready = append(ready, i)
		}
	}
	return ready
}

// Done marks id complete and returns the nodes it newly unblocks.
func (s *Sorter) Done(id int) []int {
	var ready []int
	for _, dep := range s.dependents[id] {
		s.remaining[dep]--
		if s.remaining[dep] == 0 && !s.started[dep] {
			s.started[dep] = true
			ready = append(ready, dep)
		}
	}
	return ready
}

// Seed marks id as already complete before scheduling begins — used for
// user-supplied values that bypass their provider entirely — and
// returns the nodes it newly unblocks, exactly like Done but without
// requiring id to have gone through Ready() first.
func (s *Sorter) Seed(id int) []int {
	s.started[id] = true
	return s.Done(id)
}
