package graph

import (
	"fmt"
	"sort"
	"strings"
)

// Diagram renders a compiled Graph as an advisory directed-diagram text
// block. The format is not guaranteed stable; callers
// needing machine-readable structure should walk Graph.edgesByFrom directly
// instead of parsing this output.
func (g *Graph) Diagram() string {
	var b strings.Builder
	b.WriteString("digraph {\n")

	names := g.sortedNodeNames()
	for _, n := range names {
		node := g.nodes[n]
		class := node.Class
		if class == "" {
			class = "node"
		}
		fmt.Fprintf(&b, "  %s [class=%s]\n", n, class)
	}

	for _, n := range names {
		edges := g.edgesByFrom[n]
		sortedEdges := append([]Edge(nil), edges...)
		sort.SliceStable(sortedEdges, func(i, j int) bool { return sortedEdges[i].Kind < sortedEdges[j].Kind })
		for _, e := range sortedEdges {
			switch e.Kind {
			case EdgeStatic:
				fmt.Fprintf(&b, "  %s -> %s\n", n, e.To)
			case EdgeFanOut:
				for _, d := range e.Destinations {
					fmt.Fprintf(&b, "  %s -> %s [fanout]\n", n, d)
				}
			case EdgeConditional:
				if len(e.LabelMap) == 0 {
					fmt.Fprintf(&b, "  %s -> ? [conditional]\n", n)
					continue
				}
				labels := make([]string, 0, len(e.LabelMap))
				for l := range e.LabelMap {
					labels = append(labels, l)
				}
				sort.Strings(labels)
				for _, l := range labels {
					fmt.Fprintf(&b, "  %s -> %s [label=%q]\n", n, e.LabelMap[l], l)
				}
			}
		}
	}

	b.WriteString("}\n")
	return b.String()
}
