package compiler

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/atomspace/internal/types"
)

// CycleWarning reports one inheritance cycle among declared types.
type CycleWarning struct {
	Path    []string `json:"path"` // child first: ["A", "B", "A"] means A inherits from B inherits from A
	Message string   `json:"message"`
	Level   string   `json:"level"`
}

// AnalyzeTypeCycles finds every inheritance cycle in defs.
//
// Edges run from a type to each of its parents declared in defs; parents
// outside the table cannot close a cycle. Each strongly connected component
// with more than one type, and each type listing itself as a parent, yields
// one warning. Warnings are ordered by the declaration of their first type.
// A DAG returns an empty list.
func AnalyzeTypeCycles(defs []types.Def) []CycleWarning {
	if len(defs) == 0 {
		return []CycleWarning{}
	}

	g := buildInheritanceGraph(defs)
	var warnings []CycleWarning
	for _, scc := range tarjanSCC(g) {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], g)) {
			slices.SortFunc(scc, func(a, b string) int { return cmp.Compare(g.pos[a], g.pos[b]) })
			warnings = append(warnings, cycleSCCToWarning(scc, g))
		}
	}
	slices.SortFunc(warnings, func(a, b CycleWarning) int {
		return cmp.Compare(g.pos[a.Path[0]], g.pos[b.Path[0]])
	})
	if warnings == nil {
		return []CycleWarning{}
	}
	return warnings
}

// inheritanceGraph maps a type to the parents it names within the table.
type inheritanceGraph struct {
	edges map[string][]string
	order []string
	pos   map[string]int
}

func buildInheritanceGraph(defs []types.Def) inheritanceGraph {
	g := inheritanceGraph{
		edges: make(map[string][]string, len(defs)),
		pos:   make(map[string]int, len(defs)),
	}
	for _, d := range defs {
		if _, seen := g.pos[d.Name]; seen {
			continue
		}
		g.pos[d.Name] = len(g.order)
		g.order = append(g.order, d.Name)
	}
	for _, d := range defs {
		for _, p := range d.Parents {
			if _, local := g.pos[p]; local {
				g.edges[d.Name] = append(g.edges[d.Name], p)
			}
		}
	}
	return g
}

func hasSelfLoop(node string, g inheritanceGraph) bool {
	return slices.Contains(g.edges[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm,
// visiting roots in declaration order.
func tarjanSCC(g inheritanceGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.edges[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range g.order {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

func cycleSCCToWarning(scc []string, g inheritanceGraph) CycleWarning {
	if len(scc) == 1 {
		name := scc[0]
		return CycleWarning{
			Path:    []string{name, name},
			Message: fmt.Sprintf("type %s inherits from itself", name),
			Level:   "error",
		}
	}

	path := reconstructCyclePath(scc, g)
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("inheritance cycle: %s", strings.Join(path, " → ")),
		Level:   "error",
	}
}

// reconstructCyclePath walks parent edges inside the SCC from its first
// member until it returns there.
func reconstructCyclePath(scc []string, g inheritanceGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	member := make(map[string]bool, len(scc))
	for _, n := range scc {
		member[n] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)
	for {
		visited[current] = true

		var next string
		for _, p := range g.edges[current] {
			if member[p] && (!visited[p] || p == start) {
				next = p
				break
			}
		}
		if next == "" {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
