package loom

import (
	"fmt"
	"strings"

	"github.com/m1gwings/treedrawer/tree"
)

// SolvedPlan is the immutable result of Container.Solve: a dense
// 0..N-1 array of Tasks in a precomputed static topological order
// (dependencies before dependents), plus the root task's ID
// (spec.md §4.2 "dense task-id array with a precomputed static
// topological order").
//
// A SolvedPlan holds no per-execution state; it is shared across every
// ScopeState it is run against.
type SolvedPlan struct {
	tasks  []*Task
	order  []int // static topological order, dependency-first
	rootID int
}

// Tasks returns the plan's tasks indexed by Task.ID.
func (p *SolvedPlan) Tasks() []*Task { return p.tasks }

// StaticOrder returns the task IDs in dependency-first order.
func (p *SolvedPlan) StaticOrder() []int { return p.order }

// Root returns the plan's root task.
func (p *SolvedPlan) Root() *Task { return p.tasks[p.rootID] }

// buildPlan flattens a resolved dependent tree into a SolvedPlan via a
// post-order walk: every dependent's parameters are assigned task IDs
// before the dependent itself, so Task.Params can reference already
// valid indices (grounded on container/_solving.py's build_tasks, which
// threads an equivalent topologically-ordered id assignment).
func buildPlan(root *dependent) (*SolvedPlan, error) {
	ids := make(map[*dependent]int)
	var tasks []*Task
	var order []int

	var visit func(d *dependent) int
	visit = func(d *dependent) int {
		if id, ok := ids[d]; ok {
			return id
		}

		paramIDs := make([]int, len(d.params))
		for i, child := range d.params {
			if child == nil {
				paramIDs[i] = -1
				continue
			}
			paramIDs[i] = visit(child)
		}

		id := len(tasks)
		ids[d] = id
		t := &Task{
			ID:        id,
			Type:      d.typ,
			Provider:  d.provider,
			Scope:     d.scope,
			CacheKey:  d.key,
			Params:    paramIDs,
			ParamInfo: d.paramInfo,
		}
		tasks = append(tasks, t)
		order = append(order, id)
		return id
	}

	rootID := visit(root)

	return &SolvedPlan{tasks: tasks, order: order, rootID: rootID}, nil
}

// Visualize renders the plan's dependency tree as an ASCII tree rooted
// at the root task, using treedrawer the way pumped-go's graph_debug.go
// renders a dependency graph for diagnostics — here adapted to a
// SolvedPlan's task references instead of a live executor graph.
func (p *SolvedPlan) Visualize() string {
	visited := make(map[int]bool)
	root := tree.NewTree(tree.NodeString(p.nodeLabel(p.rootID)))
	visited[p.rootID] = true
	p.visualizeChildren(root, p.rootID, visited)
	return root.String()
}

func (p *SolvedPlan) nodeLabel(id int) string {
	t := p.tasks[id]
	return fmt.Sprintf("%s [%s]", shortTypeName(t.Type), t.Scope)
}

func (p *SolvedPlan) visualizeChildren(node *tree.Tree, id int, visited map[int]bool) {
	for _, childID := range p.tasks[id].Params {
		if childID < 0 {
			continue
		}
		label := p.nodeLabel(childID)
		if visited[childID] {
			node.AddChild(tree.NodeString(label + " (*)"))
			continue
		}
		visited[childID] = true
		child := node.AddChild(tree.NodeString(label))
		p.visualizeChildren(child, childID, visited)
	}
}

func shortTypeName(t interface{ String() string }) string {
	s := t.String()
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return s[i+1:]
	}
	return s
}
