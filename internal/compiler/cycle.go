package compiler

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/roach88/pipesim/internal/engine"
	"github.com/roach88/pipesim/internal/fsm"
	"github.com/roach88/pipesim/internal/pipeline"
)

// Cycle warning levels.
const (
	LevelWarning = "warning"
	LevelInfo    = "info"
)

// CycleWarning represents a loop in the chaining table.
//
// Cycles are warnings, not errors, because they may be intentional: a
// sensor that keeps re-capturing is a delayed loop. A loop made only of
// zero-delay rules spins within a single step until the event quota stops it.
type CycleWarning struct {
	Path    []string `json:"path"`    // ["sensor:DETECTED", "sensor:CAPTURING", "sensor:DETECTED"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning" or "info"
}

// AnalyzeChains performs static cycle analysis on a topology's chain table.
//
// Nodes are "family:STATE" pairs. A rule on (F, S) firing action A at
// target T adds an edge to every state of T's family reachable through A,
// since the target's state when the event fires is not known statically.
//
// Strongly connected components with more than one node, or with a
// self-loop, are reported. A DAG returns an empty list.
func AnalyzeChains(t *pipeline.Topology) []CycleWarning {
	if len(t.Chains) == 0 {
		return []CycleWarning{}
	}

	graph, delays := buildChainGraph(t)
	sccs := tarjanSCC(graph)

	warnings := []CycleWarning{}
	for _, scc := range sccs {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			warnings = append(warnings, cycleSCCToWarning(scc, graph, delays))
		}
	}
	sort.Slice(warnings, func(i, j int) bool {
		return strings.Join(warnings[i].Path, ",") < strings.Join(warnings[j].Path, ",")
	})
	return warnings
}

// dependencyGraph maps node → nodes a chain rule can drive it into.
type dependencyGraph map[string][]string

// edgeDelays records the shortest rule delay per edge "from->to".
type edgeDelays map[string]time.Duration

func nodeName(family string, state fsm.State) string {
	return family + ":" + string(state)
}

func buildChainGraph(t *pipeline.Topology) (dependencyGraph, edgeDelays) {
	graph := make(dependencyGraph)
	delays := make(edgeDelays)

	for _, key := range t.Chains.Keys() {
		from := nodeName(key.Family, key.State)
		if graph[from] == nil {
			graph[from] = []string{}
		}

		for _, rule := range t.Chains[key] {
			family := key.Family
			if rule.Target != engine.SelfTarget && rule.Target != "" {
				spec, ok := t.Component(rule.Target)
				if !ok {
					continue
				}
				family = spec.Family
			}
			def, ok := t.Families[family]
			if !ok {
				continue
			}

			for _, state := range def.States() {
				next, ok := def.Target(state, rule.Action)
				if !ok {
					continue
				}
				to := nodeName(family, next)
				edge := from + "->" + to
				if d, seen := delays[edge]; !seen {
					graph[from] = append(graph[from], to)
					delays[edge] = rule.Delay
				} else if rule.Delay < d {
					delays[edge] = rule.Delay
				}
			}
		}
	}
	return graph, delays
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph dependencyGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in sorted order so results are stable.
func tarjanSCC(graph dependencyGraph) [][]string {
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

		// v is a root node: pop the stack and emit an SCC
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
			sort.Strings(scc)
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// cycleSCCToWarning converts an SCC to a CycleWarning. The level is
// "warning" when every edge on the reconstructed path has zero delay.
func cycleSCCToWarning(scc []string, graph dependencyGraph, delays edgeDelays) CycleWarning {
	var path []string
	if len(scc) == 1 {
		path = []string{scc[0], scc[0]}
	} else {
		path = reconstructCyclePath(scc, graph)
	}

	level := LevelWarning
	for i := 0; i+1 < len(path); i++ {
		if delays[path[i]+"->"+path[i+1]] > 0 {
			level = LevelInfo
			break
		}
	}

	pathStr := strings.Join(path, " → ")
	if level == LevelWarning {
		return CycleWarning{
			Path:    path,
			Message: fmt.Sprintf("Zero-delay chain loop detected: %s", pathStr),
			Level:   level,
		}
	}
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("Repeating chain detected: %s", pathStr),
		Level:   level,
	}
}

// reconstructCyclePath builds a cycle path from an SCC.
//
// Strategy: Start at first node in SCC, follow edges to other SCC members,
// continue until we return to start node.
func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	sccSet := make(map[string]bool)
	for _, node := range scc {
		sccSet[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if sccSet[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
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
