package opt

import (
	"strings"

	"rvsdgc/internal/ops"
	"rvsdgc/internal/rvsdg"
)

// CommonSubexpressionElimination looks up equal simple operations in a
// per-region hash index keyed on operation-equality plus origin-identity
// and diverts users to the earliest equivalent node, recursing into
// sub-regions independently (each region gets its own index: a value
// computed in one gamma sub-region is never visible, let alone
// redundant, with one computed in a sibling sub-region).
func CommonSubexpressionElimination(region *rvsdg.Region) int {
	removed := 0
	index := map[string][]*rvsdg.Node{}
	for _, n := range append([]*rvsdg.Node(nil), region.Nodes()...) {
		for _, sub := range n.Subregions() {
			removed += CommonSubexpressionElimination(sub)
		}
		if !n.IsSimple() {
			continue
		}
		if n.Operation().HasSideEffects() {
			continue
		}
		key := cseKey(n)
		var matched *rvsdg.Node
		for _, candidate := range index[key] {
			if cseEquivalent(candidate, n) {
				matched = candidate
				break
			}
		}
		if matched == nil {
			index[key] = append(index[key], n)
			continue
		}
		for i, o := range n.Outputs() {
			o.Divert(matched.Outputs()[i])
		}
		n.Remove()
		removed++
	}
	return removed
}

// cseKey buckets nodes by operation kind so equivalence checking only
// compares within a bucket, keeping the lookup close to O(1) per node in
// the common case.
func cseKey(n *rvsdg.Node) string {
	var b strings.Builder
	b.WriteString(n.Operation().Kind.String())
	return b.String()
}

// cseEquivalent is the operation-equality-plus-origin-identity test:
// same operation per ops.Equal, and every operand traces to the exact
// same origin (pointer identity on *rvsdg.Output).
func cseEquivalent(a, b *rvsdg.Node) bool {
	if !ops.Equal(a.Operation(), b.Operation()) {
		return false
	}
	ai, bi := a.Inputs(), b.Inputs()
	if len(ai) != len(bi) {
		return false
	}
	for i := range ai {
		if ai[i].Origin() != bi[i].Origin() {
			return false
		}
	}
	return true
}
