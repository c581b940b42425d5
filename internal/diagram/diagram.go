// Package diagram renders a *model.Model as Graphviz DOT, for read-only
// inspection and debugging — never as a way to import a machine (that is
// explicitly out of scope). Grounded on the teacher's
// internal/production.DefaultVisualizer, adapted from its flat
// MachineConfig/StateConfig shape to this engine's arena-owned Model/Vertex
// graph.
package diagram

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/hsmrt/hsm/internal/model"
)

// ExportDOT renders m as Graphviz DOT source. current, if non-empty, marks
// the active leaf and its ancestors as filled nodes the way the teacher's
// visualizer highlights the live configuration.
func ExportDOT[E any](m *model.Model[E], current string) string {
	var buf bytes.Buffer
	buf.WriteString("digraph Statechart {\n  rankdir=LR;\n  node [shape=box, fontsize=10, style=rounded];\n  edge [fontsize=9];\n\n")

	active := map[string]bool{}
	for _, name := range m.Ancestors(current) {
		active[name] = true
	}

	renderVertex(&buf, m, m.RootName(), active)

	for _, edge := range collectEdges(m) {
		buf.WriteString(fmt.Sprintf("  %q -> %q [label=%q];\n", edge.From, edge.To, edge.Label))
	}

	buf.WriteString("}\n")
	return buf.String()
}

type edge struct {
	From, To, Label string
}

// collectEdges walks every vertex's outgoing transitions in a deterministic
// (sorted-by-source) order, skipping internal transitions (no target to draw
// an edge to) and transitions with no triggering events (choice branches).
// Completion and timer transitions are drawn, labelled with their reserved
// "@..." event names.
func collectEdges[E any](m *model.Model[E]) []edge {
	var edges []edge
	for _, name := range m.VertexNames() {
		v := m.MustVertex(name)
		for _, t := range v.Out {
			if t.Target == "" || len(t.Events) == 0 {
				continue
			}
			label := ""
			for evName := range t.Events {
				if label != "" {
					label += ","
				}
				label += evName
			}
			edges = append(edges, edge{From: name, To: t.Target, Label: label})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	return edges
}

func renderVertex[E any](buf *bytes.Buffer, m *model.Model[E], name string, active map[string]bool) {
	v := m.MustVertex(name)
	if len(v.Children) > 0 {
		fmt.Fprintf(buf, "  subgraph cluster_%s {\n", sanitize(name))
		style := ""
		if active[name] {
			style = " style=filled fillcolor=orange"
		}
		fmt.Fprintf(buf, "    label=%q%s;\n", fmt.Sprintf("%s (%s)", name, v.Kind), style)
		for _, child := range v.Children {
			renderVertex(buf, m, child, active)
		}
		buf.WriteString("  }\n")
		return
	}

	style := ""
	if active[name] {
		style = " style=filled fillcolor=lightgreen"
	}
	fmt.Fprintf(buf, "  %q [label=%q%s];\n", name, name, style)
}

func sanitize(name string) string {
	out := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c == '/' || c == ' ' {
			out = append(out, '_')
			continue
		}
		out = append(out, c)
	}
	return string(out)
}
