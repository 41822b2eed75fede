package rvsdgview

import (
	"fmt"
	"strings"

	"rvsdgc/internal/rvsdg"
)

// ViewDot renders region as Graphviz dot source with per-region clusters,
// per-node HTML tables, and source->target edges.
func ViewDot(region *rvsdg.Region) string {
	var b strings.Builder
	b.WriteString("digraph RVSDG {\n  node [shape=plaintext];\n")
	ids := map[interface{}]string{}
	next := 0
	nodeID := func(v interface{}) string {
		if id, ok := ids[v]; ok {
			return id
		}
		id := fmt.Sprintf("n%d", next)
		next++
		ids[v] = id
		return id
	}
	writeDotRegion(&b, region, 0, nodeID)
	writeDotEdges(&b, region, nodeID)
	b.WriteString("}\n")
	return b.String()
}

func writeDotRegion(b *strings.Builder, region *rvsdg.Region, cluster int, nodeID func(interface{}) string) {
	fmt.Fprintf(b, "  subgraph cluster_%d {\n", cluster)
	for _, n := range region.Nodes() {
		fmt.Fprintf(b, "    %s %s;\n", nodeID(n), htmlNodeLabel(n))
		for i, sub := range n.Subregions() {
			writeDotRegion(b, sub, cluster*10+i+1, nodeID)
		}
	}
	b.WriteString("  }\n")
}

func htmlNodeLabel(n *rvsdg.Node) string {
	var inPorts, outPorts strings.Builder
	for i := range n.Inputs() {
		fmt.Fprintf(&inPorts, "<TD PORT=\"i%d\">%d</TD>", i, i)
	}
	for i := range n.Outputs() {
		fmt.Fprintf(&outPorts, "<TD PORT=\"o%d\">%d</TD>", i, i)
	}
	cols := maxInt(len(n.Inputs()), len(n.Outputs()))
	return fmt.Sprintf(
		`[label=<<TABLE BORDER="0" CELLBORDER="1" CELLSPACING="0"><TR><TD COLSPAN="%d">%s</TD></TR><TR>%s</TR><TR>%s</TR></TABLE>>]`,
		maxInt(cols, 1), n.DebugLabel(), inPorts.String(), outPorts.String(),
	)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// writeDotEdges emits one source->target edge per node input whose
// origin is a node output, recursing into sub-regions. Region results
// are not drawn. Edges crossing into a
// sub-region (a structural node's own inputs feeding its sub-region
// arguments) are not separately drawn: sub-region arguments have no
// producing node to point an arrow from in this rendering.
func writeDotEdges(b *strings.Builder, region *rvsdg.Region, nodeID func(interface{}) string) {
	for _, n := range region.Nodes() {
		for i, in := range n.Inputs() {
			if in.Origin() == nil || in.Origin().Node() == nil {
				continue
			}
			fmt.Fprintf(b, "  %s:o%d -> %s:i%d;\n",
				nodeID(in.Origin().Node()), in.Origin().Index(), nodeID(n), i)
		}
		for _, sub := range n.Subregions() {
			writeDotEdges(b, sub, nodeID)
		}
	}
}
