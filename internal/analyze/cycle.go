package analyze

import (
	"fmt"
	"slices"
	"strings"
)

// Graph maps a handler name to the names of the handlers it waits for.
type Graph map[string][]string

// CycleWarning describes one circular waitFor dependency.
//
// A cycle is certain to fail at dispatch time only if every handler on it
// actually calls WaitFor for the payload in question, so it is reported as a
// warning.
type CycleWarning struct {
	Path    []string `json:"path"`    // e.g. ["a", "b", "a"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning"
}

// Cycles reports every circular dependency in g.
//
// Uses Tarjan's algorithm to find strongly connected components; each
// component with more than one node, or a single node that waits for itself,
// yields one warning. Output is deterministic: nodes are visited in sorted
// order and each path starts at the smallest name in its component.
//
// Edges to names that are not keys of g are ignored; see Unknown.
func Cycles(g Graph) []CycleWarning {
	warnings := []CycleWarning{}
	if len(g) == 0 {
		return warnings
	}

	adj := normalize(g)
	for _, scc := range tarjanSCC(adj) {
		if len(scc) > 1 || hasSelfLoop(scc[0], adj) {
			warnings = append(warnings, sccToWarning(scc, adj))
		}
	}

	slices.SortFunc(warnings, func(a, b CycleWarning) int {
		return strings.Compare(a.Path[0], b.Path[0])
	})
	return warnings
}

// Unknown returns "from -> to" for every edge whose target is not a key of g,
// sorted.
func Unknown(g Graph) []string {
	var out []string
	for from, tos := range g {
		for _, to := range tos {
			if _, ok := g[to]; !ok {
				out = append(out, from+" -> "+to)
			}
		}
	}
	slices.Sort(out)
	return out
}

// normalize returns a copy of g with sorted, de-duplicated edges restricted
// to known nodes.
func normalize(g Graph) Graph {
	adj := make(Graph, len(g))
	for node, tos := range g {
		edges := []string{}
		for _, to := range tos {
			if _, ok := g[to]; ok {
				edges = append(edges, to)
			}
		}
		slices.Sort(edges)
		adj[node] = slices.Compact(edges)
	}
	return adj
}

func hasSelfLoop(node string, g Graph) bool {
	return slices.Contains(g[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Each returned component is sorted.
func tarjanSCC(g Graph) [][]string {
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

		for _, w := range g[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root node: pop the stack into an SCC
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
			slices.Sort(scc)
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(g))
	for node := range g {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

func sccToWarning(scc []string, g Graph) CycleWarning {
	if len(scc) == 1 {
		name := scc[0]
		return CycleWarning{
			Path:    []string{name, name},
			Message: fmt.Sprintf("handler waits for itself: %s -> %s", name, name),
			Level:   "warning",
		}
	}

	path := shortestCycle(scc[0], scc, g)
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("circular waitFor detected: %s", strings.Join(path, " -> ")),
		Level:   "warning",
	}
}

// shortestCycle returns the shortest path from start back to itself that
// stays inside the component. Every node of a multi-node SCC lies on such a
// cycle.
func shortestCycle(start string, scc []string, g Graph) []string {
	members := make(map[string]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}

	parent := map[string]string{}
	queue := []string{}
	for _, w := range g[start] {
		if members[w] && w != start {
			parent[w] = start
			queue = append(queue, w)
		}
	}

	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		if slices.Contains(g[v], start) {
			path := []string{start}
			for n := v; n != start; n = parent[n] {
				path = append(path, n)
			}
			slices.Reverse(path[1:])
			return append(path, start)
		}
		for _, w := range g[v] {
			if _, seen := parent[w]; !seen && members[w] && w != start {
				parent[w] = v
				queue = append(queue, w)
			}
		}
	}
	return []string{start, start}
}
