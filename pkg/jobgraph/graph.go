package jobgraph

import (
	"fmt"
)

// Graph is an in-memory dependency graph over job IDs. Edges point from a job
// to its prerequisite. The graph refuses edges that would close a cycle, so
// a submission's jobs always form a DAG before anything persists.
type Graph struct {
	prereqs map[string][]string
}

// NewGraph creates an empty graph
func NewGraph() *Graph {
	return &Graph{prereqs: map[string][]string{}}
}

// AddNode registers a job with no prerequisites yet
func (g *Graph) AddNode(jobID string) {
	if _, ok := g.prereqs[jobID]; !ok {
		g.prereqs[jobID] = nil
	}
}

// AddDependency adds the edge jobID -> prerequisiteID. Self-edges and edges
// that would close a cycle are refused.
func (g *Graph) AddDependency(jobID, prerequisiteID string) error {
	if jobID == prerequisiteID {
		return fmt.Errorf("job %s cannot depend on itself", jobID)
	}
	if g.reachable(prerequisiteID, jobID) {
		return fmt.Errorf("dependency %s -> %s would create a cycle", jobID, prerequisiteID)
	}
	g.AddNode(jobID)
	g.AddNode(prerequisiteID)
	g.prereqs[jobID] = append(g.prereqs[jobID], prerequisiteID)
	return nil
}

// Prerequisites returns the direct prerequisites of a job
func (g *Graph) Prerequisites(jobID string) []string {
	return g.prereqs[jobID]
}

// Edges returns every (job, prerequisite) pair
func (g *Graph) Edges() [][2]string {
	var out [][2]string
	for job, prereqs := range g.prereqs {
		for _, p := range prereqs {
			out = append(out, [2]string{job, p})
		}
	}
	return out
}

// reachable reports whether to is reachable from from along prerequisite
// edges.
func (g *Graph) reachable(from, to string) bool {
	if from == to {
		return true
	}
	seen := map[string]bool{}
	stack := []string{from}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[current] {
			continue
		}
		seen[current] = true
		for _, next := range g.prereqs[current] {
			if next == to {
				return true
			}
			stack = append(stack, next)
		}
	}
	return false
}
