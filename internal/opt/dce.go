package opt

import "rvsdgc/internal/rvsdg"

// DeadNodeElimination removes nodes whose every output has no users and
// whose operation has no observable side effects, recursing into
// sub-regions first so a structural node becomes removable only after its
// own dead interior has been cleared. It runs to a local fixed point: removing
// one dead node can make its sole operand's producer dead in turn, so the
// region is swept again, in creation order, until a sweep removes nothing.
//
// Structural nodes (gamma/theta/lambda/phi) carry no ops.Operation, so
// HasSideEffects is never consulted for them: they are removed as soon as
// every *output* is unused, whatever their sub-regions contain; a structural node's
// sub-region results referencing region arguments do not themselves keep
// the node alive; only outward users of the node's own outputs do.
func DeadNodeElimination(region *rvsdg.Region) int {
	removed := 0
	for {
		n := removeOneDeadNode(region)
		if n == 0 {
			break
		}
		removed += n
	}
	return removed
}

func removeOneDeadNode(region *rvsdg.Region) int {
	removed := 0
	// Snapshot before recursing/removing: Region.Nodes() exposes the
	// live backing slice, which Node.Remove mutates in place.
	snapshot := append([]*rvsdg.Node(nil), region.Nodes()...)
	for _, n := range snapshot {
		for _, sub := range n.Subregions() {
			removed += DeadNodeElimination(sub)
		}
	}
	for _, n := range snapshot {
		if nodeIsLive(n) {
			continue
		}
		n.Remove()
		removed++
	}
	return removed
}

func nodeIsLive(n *rvsdg.Node) bool {
	for _, o := range n.Outputs() {
		if o.NumUsers() > 0 {
			return true
		}
	}
	if n.IsSimple() {
		return n.Operation().HasSideEffects()
	}
	// A structural node with zero result users is still dead: nothing
	// downstream can observe anything it computed, matching "whose every
	// output has no users" for the structural case too.
	return false
}
