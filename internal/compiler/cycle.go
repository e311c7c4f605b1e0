package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/rule"
)

// CycleWarning is a loop in the rule graph: a chain of rules whose then
// actions trigger each other. Loops may be intentional (a retry that
// matches on error output) and are bounded at runtime by the depth
// ceiling, so they are reported as warnings.
type CycleWarning struct {
	Path    []string `json:"path"` // ["solar.A", "solar.B", "solar.A"]
	Message string   `json:"message"`
	Level   string   `json:"level"`
}

// AnalyzeCycles finds the strongly connected components of the rule
// graph. Rule A has an edge to rule B when one of A's then actions is one
// of B's triggers. Every component with more than one rule, and every
// self-triggering rule, yields a warning. Output order follows rule order.
func AnalyzeCycles(rules []rule.SyncRule) []CycleWarning {
	if len(rules) == 0 {
		return []CycleWarning{}
	}

	graph, order := buildDependencyGraph(rules)
	sccs := tarjanSCC(graph, order)

	warnings := []CycleWarning{}
	for _, scc := range sccs {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			warnings = append(warnings, cycleSCCToWarning(scc, graph))
		}
	}
	return warnings
}

// dependencyGraph maps a rule ID to the IDs of rules its then clause can
// trigger.
type dependencyGraph map[string][]string

func buildDependencyGraph(rules []rule.SyncRule) (dependencyGraph, []string) {
	triggeredBy := make(map[ir.ActionRef][]string)
	order := make([]string, 0, len(rules))
	for i := range rules {
		id := rules[i].ID()
		order = append(order, id)
		for _, a := range rules[i].Triggers() {
			triggeredBy[a] = append(triggeredBy[a], id)
		}
	}

	graph := make(dependencyGraph, len(rules))
	for i := range rules {
		id := rules[i].ID()
		edges := []string{}
		for _, t := range rules[i].Then {
			for _, target := range triggeredBy[t.Action] {
				if !slices.Contains(edges, target) {
					edges = append(edges, target)
				}
			}
		}
		graph[id] = edges
	}
	return graph, order
}

func hasSelfLoop(node string, graph dependencyGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC returns the strongly connected components, visiting nodes in
// the given order.
func tarjanSCC(graph dependencyGraph, order []string) [][]string {
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

		for _, w := range graph[v] {
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

	for _, node := range order {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	// Components come out in reverse topological order; report them in
	// the order their first rule was declared.
	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	for _, scc := range sccs {
		slices.SortFunc(scc, func(a, b string) int { return pos[a] - pos[b] })
	}
	slices.SortFunc(sccs, func(a, b []string) int { return pos[a[0]] - pos[b[0]] })
	return sccs
}

func cycleSCCToWarning(scc []string, graph dependencyGraph) CycleWarning {
	if len(scc) == 1 {
		id := scc[0]
		return CycleWarning{
			Path:    []string{id, id},
			Message: fmt.Sprintf("self-triggering sync rule: %s → %s", id, id),
			Level:   "warning",
		}
	}

	path := reconstructCyclePath(scc, graph)
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("potential cycle: %s", strings.Join(path, " → ")),
		Level:   "warning",
	}
}

// reconstructCyclePath walks edges inside the component from its first
// rule until it returns to it.
func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	members := make(map[string]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := map[string]bool{}
	for {
		visited[current] = true
		next := ""
		for _, n := range graph[current] {
			if members[n] && n == start && len(path) == len(scc) {
				next = n
				break
			}
		}
		if next == "" {
			for _, n := range graph[current] {
				if members[n] && !visited[n] {
					next = n
					break
				}
			}
		}
		if next == "" {
			for _, n := range graph[current] {
				if n == start {
					next = n
					break
				}
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
