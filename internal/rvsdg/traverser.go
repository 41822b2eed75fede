package rvsdg

import "sort"

// TopDownTraverser yields a region's nodes in non-decreasing depth
// order. Until Close it subscribes to node-create notifications, appending
// nodes created during the traversal to its queue; nodes removed from the
// region are skipped when reached.
type TopDownTraverser struct {
	NopSubscriber
	region *Region
	sub    *Subscription
	queue  []*Node
	cursor int
	seen   map[*Node]bool
}

// NewTopDownTraverser begins a top-down traversal of region. Call Close
// when done to deregister.
func NewTopDownTraverser(region *Region) *TopDownTraverser {
	t := &TopDownTraverser{region: region, seen: map[*Node]bool{}}
	t.queue = append(t.queue, region.nodes...)
	sortByDepth(t.queue, false)
	for _, n := range t.queue {
		t.seen[n] = true
	}
	t.sub = region.graph.Subscribe(t)
	return t
}

// Close deregisters the traverser's notifier subscription.
func (t *TopDownTraverser) Close() { t.sub.Close() }

// Next returns the next node in non-decreasing depth order, or nil when
// exhausted.
func (t *TopDownTraverser) Next() *Node {
	for t.cursor < len(t.queue) {
		n := t.queue[t.cursor]
		t.cursor++
		if stillInRegion(n, t.region) {
			return n
		}
	}
	return nil
}

// OnNodeCreate appends newly created nodes to the tail of the queue, so
// iteration is stable to node creation.
func (t *TopDownTraverser) OnNodeCreate(n *Node) {
	if n.owner == t.region && !t.seen[n] {
		t.seen[n] = true
		t.queue = append(t.queue, n)
	}
}

// All drains the traverser into a slice and closes it.
func (t *TopDownTraverser) All() []*Node {
	defer t.Close()
	var out []*Node
	for n := t.Next(); n != nil; n = t.Next() {
		out = append(out, n)
	}
	return out
}

// BottomUpTraverser yields a region's nodes in non-increasing depth order.
type BottomUpTraverser struct {
	NopSubscriber
	region  *Region
	sub     *Subscription
	queue   []*Node
	cursor  int
	removed map[*Node]bool
}

// NewBottomUpTraverser begins a bottom-up traversal of region.
func NewBottomUpTraverser(region *Region) *BottomUpTraverser {
	t := &BottomUpTraverser{region: region, removed: map[*Node]bool{}}
	t.queue = append(t.queue, region.nodes...)
	sortByDepth(t.queue, true)
	t.sub = region.graph.Subscribe(t)
	return t
}

// Close deregisters the traverser's notifier subscription.
func (t *BottomUpTraverser) Close() { t.sub.Close() }

// Next returns the next node in non-increasing depth order, skipping any
// node removed since traversal began, or nil when exhausted.
func (t *BottomUpTraverser) Next() *Node {
	for t.cursor < len(t.queue) {
		n := t.queue[t.cursor]
		t.cursor++
		if !t.removed[n] {
			return n
		}
	}
	return nil
}

// OnNodeDestroy marks a node as removed so a not-yet-visited queue entry
// for it is skipped.
func (t *BottomUpTraverser) OnNodeDestroy(n *Node) { t.removed[n] = true }

// All drains the traverser into a slice and closes it.
func (t *BottomUpTraverser) All() []*Node {
	defer t.Close()
	var out []*Node
	for n := t.Next(); n != nil; n = t.Next() {
		out = append(out, n)
	}
	return out
}

func stillInRegion(n *Node, r *Region) bool {
	for _, existing := range r.nodes {
		if existing == n {
			return true
		}
	}
	return false
}

func sortByDepth(nodes []*Node, descending bool) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if descending {
			return nodes[i].depth > nodes[j].depth
		}
		return nodes[i].depth < nodes[j].depth
	})
}
