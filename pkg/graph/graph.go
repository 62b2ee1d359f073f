package graph

import (
	"strings"

	"github.com/arthur-debert/dotup/pkg/errors"
	"github.com/arthur-debert/dotup/pkg/types"
)

type node struct {
	spec       types.TaskSpec
	prereqs    []int
	dependents []int
}

// Graph is a validated, acyclic task graph
type Graph struct {
	nodes []node
	index map[string]int
}

// Build validates tasks and returns their graph. It rejects empty and
// duplicate identifiers, dependencies on unknown identifiers, and cycles;
// a cycle error carries the full cycle path.
func Build(tasks []types.TaskSpec) (*Graph, error) {
	g := &Graph{
		nodes: make([]node, len(tasks)),
		index: make(map[string]int, len(tasks)),
	}

	for i, t := range tasks {
		if t.ID == "" {
			return nil, errors.Newf(errors.ErrConfigInvalid, "task #%d has no id", i+1)
		}
		if _, exists := g.index[t.ID]; exists {
			return nil, errors.Newf(errors.ErrConfigDuplicateID, "duplicate task id %q", t.ID).
				WithDetail("task", t.ID)
		}
		g.index[t.ID] = i
		g.nodes[i].spec = t
	}

	for i, t := range tasks {
		seen := make(map[int]bool, len(t.Needs))
		for _, dep := range t.Needs {
			j, ok := g.index[dep]
			if !ok {
				return nil, errors.Newf(errors.ErrConfigUnknownDependency,
					"task %q depends on unknown task %q", t.ID, dep).
					WithDetail("task", t.ID).
					WithDetail("dependency", dep)
			}
			if seen[j] {
				continue
			}
			seen[j] = true
			g.nodes[i].prereqs = append(g.nodes[i].prereqs, j)
			g.nodes[j].dependents = append(g.nodes[j].dependents, i)
		}
	}

	if cycle := g.findCycle(); cycle != nil {
		return nil, errors.Newf(errors.ErrConfigCycle, "dependency cycle: %s", strings.Join(cycle, " -> ")).
			WithDetail("cycle", cycle)
	}

	return g, nil
}

const (
	unvisited = iota
	inProgress
	done
)

// findCycle runs a depth-first traversal along prerequisite edges. Reaching
// a node that is still in progress closes a cycle; the returned path starts
// and ends with that node.
func (g *Graph) findCycle() []string {
	state := make([]int, len(g.nodes))
	var stack []int

	var visit func(i int) []string
	visit = func(i int) []string {
		state[i] = inProgress
		stack = append(stack, i)

		for _, p := range g.nodes[i].prereqs {
			switch state[p] {
			case inProgress:
				start := 0
				for k, s := range stack {
					if s == p {
						start = k
						break
					}
				}
				path := make([]string, 0, len(stack)-start+1)
				for _, s := range stack[start:] {
					path = append(path, g.nodes[s].spec.ID)
				}
				return append(path, g.nodes[p].spec.ID)
			case unvisited:
				if cycle := visit(p); cycle != nil {
					return cycle
				}
			}
		}

		stack = stack[:len(stack)-1]
		state[i] = done
		return nil
	}

	for i := range g.nodes {
		if state[i] == unvisited {
			if cycle := visit(i); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// Len returns the number of tasks
func (g *Graph) Len() int { return len(g.nodes) }

// Spec returns the task at index i
func (g *Graph) Spec(i int) types.TaskSpec { return g.nodes[i].spec }

// Index returns the arena index of id
func (g *Graph) Index(id string) (int, bool) {
	i, ok := g.index[id]
	return i, ok
}

// Prerequisites returns the indices task i depends on
func (g *Graph) Prerequisites(i int) []int {
	return append([]int(nil), g.nodes[i].prereqs...)
}

// Dependents returns the indices that depend on task i
func (g *Graph) Dependents(i int) []int {
	return append([]int(nil), g.nodes[i].dependents...)
}

// Ready returns, in declaration order, the indices that are not completed
// and whose prerequisites are all completed.
func (g *Graph) Ready(completed []bool) []int {
	var ready []int
	for i := range g.nodes {
		if completed[i] {
			continue
		}
		ok := true
		for _, p := range g.nodes[i].prereqs {
			if !completed[p] {
				ok = false
				break
			}
		}
		if ok {
			ready = append(ready, i)
		}
	}
	return ready
}

// ReadySet is the identifier form of Ready
func (g *Graph) ReadySet(completed map[string]bool) []string {
	flags := make([]bool, len(g.nodes))
	for id := range completed {
		if i, ok := g.index[id]; ok {
			flags[i] = true
		}
	}
	ready := g.Ready(flags)
	ids := make([]string, len(ready))
	for k, i := range ready {
		ids[k] = g.nodes[i].spec.ID
	}
	return ids
}

// TopologicalOrder returns ids such that every task follows its
// prerequisites; ties keep declaration order.
func (g *Graph) TopologicalOrder() []string {
	completed := make([]bool, len(g.nodes))
	order := make([]string, 0, len(g.nodes))
	for len(order) < len(g.nodes) {
		for _, i := range g.Ready(completed) {
			completed[i] = true
			order = append(order, g.nodes[i].spec.ID)
		}
	}
	return order
}
