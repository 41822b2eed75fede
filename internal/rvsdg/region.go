package rvsdg

import "rvsdgc/internal/types"

// Region is the RVSDG's unit of scoping: an ordered set of arguments, an
// ordered set of results, and an ordered set of nodes, all forming a DAG.
type Region struct {
	id    id
	graph *Graph
	node  *Node // the structural node owning this region; nil for the root

	arguments []*Output
	results   []*Input
	nodes     []*Node
}

// Graph returns the owning Graph.
func (r *Region) Graph() *Graph { return r.graph }

// Node returns the structural node this region is a sub-region of, or nil
// for the graph's root region.
func (r *Region) Node() *Node { return r.node }

// Arguments returns the region's ordered arguments.
func (r *Region) Arguments() []*Output { return r.arguments }

// Results returns the region's ordered results.
func (r *Region) Results() []*Input { return r.results }

// Nodes returns the nodes directly owned by this region, in creation
// order (top-down traversal order is derived separately via depth, see
// traverser.go).
func (r *Region) Nodes() []*Node { return r.nodes }

// NumNodes returns len(Nodes()).
func (r *Region) NumNodes() int { return len(r.nodes) }

// AddArgument appends a new typed argument to the region, returning the
// Output other nodes in the region bind to as an origin.
func (r *Region) AddArgument(t types.Type) *Output {
	o := &Output{id: r.graph.nextID(), Type: t, owner: r, index: len(r.arguments)}
	r.arguments = append(r.arguments, o)
	r.graph.notifyOutputCreate(o)
	return o
}

// AddResult appends a new typed result consuming origin, which must
// already live in this region.
func (r *Region) AddResult(origin *Output) *Input {
	if origin.owner != r {
		fatalf(r, "AddResult: origin is not in this region")
	}
	in := &Input{id: r.graph.nextID(), Type: origin.Type, owner: r, index: len(r.results)}
	r.results = append(r.results, in)
	r.graph.notifyInputCreate(in)
	in.setOrigin(origin)
	return in
}

// insertResult inserts a new result at idx consuming origin, shifting
// idx..end up by one. Used when a theta's loop-variable result must land
// before an already-established predicate result.
func (r *Region) insertResult(idx int, origin *Output) *Input {
	if origin.owner != r {
		fatalf(r, "insertResult: origin is not in this region")
	}
	in := &Input{id: r.graph.nextID(), Type: origin.Type, owner: r, index: idx}
	r.results = append(r.results, nil)
	copy(r.results[idx+1:], r.results[idx:])
	r.results[idx] = in
	for i := idx + 1; i < len(r.results); i++ {
		r.results[i].index = i
	}
	r.graph.notifyInputCreate(in)
	in.setOrigin(origin)
	return in
}

// RemoveResult removes the result at index idx, shifting later results
// down and renumbering their Index. Used when a structural-node builder
// trims an unused exit/loop variable.
func (r *Region) RemoveResult(idx int) {
	in := r.results[idx]
	in.setOrigin(nil)
	r.graph.notifyInputDestroy(in)
	r.results = append(r.results[:idx], r.results[idx+1:]...)
	for i := idx; i < len(r.results); i++ {
		r.results[i].index = i
	}
}

func (r *Region) addNode(n *Node) {
	n.depth = r.computeDepth(n)
	r.nodes = append(r.nodes, n)
	r.graph.notifyNodeCreate(n)
}

// RemoveNode detaches n from the region. Removing a node requires its
// outputs have no users; violating this is a programmer error and
// aborts.
func (r *Region) RemoveNode(n *Node) {
	for _, o := range n.outputs {
		if len(o.users) != 0 {
			fatalf(r, "RemoveNode: output %d still has users", o.index)
		}
	}
	for _, in := range n.inputs {
		in.setOrigin(nil)
		r.graph.notifyInputDestroy(in)
	}
	for _, o := range n.outputs {
		r.graph.notifyOutputDestroy(o)
	}
	for _, sub := range n.subregions {
		r.graph.destroyRegion(sub)
	}
	for i, existing := range r.nodes {
		if existing == n {
			r.nodes = append(r.nodes[:i], r.nodes[i+1:]...)
			break
		}
	}
	r.graph.notifyNodeDestroy(n)
}

// computeDepth returns the longest dependency chain from region arguments
// to n, the traversal-order metric the top-down/bottom-up traversers use.
func (r *Region) computeDepth(n *Node) int {
	depth := 0
	for _, in := range n.inputs {
		if in.origin == nil {
			continue
		}
		d := 0
		if producer := in.origin.node; producer != nil {
			d = producer.depth + 1
		}
		if d > depth {
			depth = d
		}
	}
	return depth
}

// IsAcyclic reports whether inputs within the region form a DAG.
// Implemented as a straightforward reachability check rather than
// trusted by construction, to support property-based tests.
func (r *Region) IsAcyclic() bool {
	state := map[*Node]int{} // 0 unvisited, 1 in-progress, 2 done
	var visit func(n *Node) bool
	visit = func(n *Node) bool {
		switch state[n] {
		case 1:
			return false // back-edge: cycle
		case 2:
			return true
		}
		state[n] = 1
		for _, in := range n.inputs {
			if in.origin == nil || in.origin.node == nil {
				continue
			}
			if in.origin.node.owner != r {
				continue
			}
			if !visit(in.origin.node) {
				return false
			}
		}
		state[n] = 2
		return true
	}
	for _, n := range r.nodes {
		if !visit(n) {
			return false
		}
	}
	return true
}
