package fsm

import (
	"fmt"
	"sort"
	"strings"
)

// DOT renders the definition as a Graphviz digraph. If current is non-empty,
// that state is highlighted.
func (d *Definition) DOT(current State) string {
	var b strings.Builder

	fmt.Fprintf(&b, "digraph %q {\n", d.family)
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=circle, style=filled, fillcolor=\"#f8f8f8\", color=\"#444444\", fontname=\"Helvetica\"];\n")
	b.WriteString("  edge [fontname=\"Helvetica\", fontsize=10];\n\n")
	b.WriteString("  __start [shape=point, style=invis];\n")
	fmt.Fprintf(&b, "  __start -> %q [label=\" initial\"];\n\n", d.initial)

	for _, s := range d.States() {
		attrs := []string{fmt.Sprintf("label=%q", s)}
		switch {
		case s == current:
			attrs = append(attrs, `fillcolor="#90ee90"`, "shape=doublecircle")
		case s == StateError:
			attrs = append(attrs, `fillcolor="#f4cccc"`)
		case d.IsTerminal(s):
			attrs = append(attrs, `fillcolor="#d3d3d3"`, "shape=doublecircle")
		case d.IsAnimated(s):
			attrs = append(attrs, `fillcolor="#cfe2f3"`)
		}
		fmt.Fprintf(&b, "  %q [%s];\n", s, strings.Join(attrs, ", "))
	}
	b.WriteString("\n")

	// Group parallel edges so each (from, to) pair is drawn once.
	type edge struct{ from, to State }
	labels := make(map[edge][]string)
	for from, row := range d.transitions {
		for action, to := range row {
			k := edge{from, to}
			labels[k] = append(labels[k], string(action))
		}
	}
	edges := make([]edge, 0, len(labels))
	for k := range labels {
		edges = append(edges, k)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].from != edges[j].from {
			return edges[i].from < edges[j].from
		}
		return edges[i].to < edges[j].to
	})
	for _, k := range edges {
		ls := labels[k]
		sort.Strings(ls)
		fmt.Fprintf(&b, "  %q -> %q [label=%q];\n", k.from, k.to, strings.Join(ls, ", "))
	}

	b.WriteString("}\n")
	return b.String()
}

// DOT renders the machine's definition with the current state highlighted.
func (m *Machine) DOT() string {
	return m.def.DOT(m.current)
}
