// Package rvsdgview implements the three debug emitters as pure
// functions over a *rvsdg.Region: ViewText (an indented textual
// listing), ViewXML (stable hex identity for nodes, inputs, outputs,
// regions, and edges), and ViewDot (Graphviz source). None of these are part of the
// compilation contract; nothing in package opt or package normalform
// imports this package. Regions render top-down in creation order, with
// sub-regions nested and indented.
package rvsdgview

import (
	"fmt"
	"strings"

	"github.com/kr/pretty"

	"rvsdgc/internal/rvsdg"
)

// ViewText renders region as an indented textual listing: one line per
// argument, one line per node (recursing into sub-regions at increased
// indent), one line per result.
func ViewText(region *rvsdg.Region) string {
	var b strings.Builder
	viewTextRegion(&b, region, 0)
	return b.String()
}

func viewTextRegion(b *strings.Builder, region *rvsdg.Region, indent int) {
	pad := strings.Repeat("  ", indent)
	for i, arg := range region.Arguments() {
		fmt.Fprintf(b, "%sarg %d : %s\n", pad, i, arg.Type)
	}
	for _, n := range region.Nodes() {
		viewTextNode(b, n, indent)
	}
	for i, res := range region.Results() {
		origin := "<unset>"
		if res.Origin() != nil {
			origin = nodeRef(res.Origin())
		}
		fmt.Fprintf(b, "%sresult %d : %s = %s\n", pad, i, res.Type, origin)
	}
}

func viewTextNode(b *strings.Builder, n *rvsdg.Node, indent int) {
	pad := strings.Repeat("  ", indent)
	operands := make([]string, len(n.Inputs()))
	for i, in := range n.Inputs() {
		if in.Origin() != nil {
			operands[i] = nodeRef(in.Origin())
		} else {
			operands[i] = "<unset>"
		}
	}
	fmt.Fprintf(b, "%s%s(%s)\n", pad, n.DebugLabel(), strings.Join(operands, ", "))
	for i, sub := range n.Subregions() {
		fmt.Fprintf(b, "%s  subregion %d:\n", pad, i)
		viewTextRegion(b, sub, indent+2)
	}
}

// nodeRef renders a stable-within-dump reference to an Output: the
// producing node's label and output index, or "arg<N>" for a region
// argument.
func nodeRef(o *rvsdg.Output) string {
	if o.IsArgument() {
		return fmt.Sprintf("arg<%d>", o.Index())
	}
	return fmt.Sprintf("%s#%d", o.Node().DebugLabel(), o.Index())
}

// ViewFallback renders an arbitrary payload (anything ViewText/ViewXML/
// ViewDot have no dedicated case for, e.g. an ops.Operation's exotic
// payload field during ad hoc debugging) via kr/pretty.
func ViewFallback(v interface{}) string {
	return pretty.Sprint(v)
}
