// Package ipgraph implements the inter-procedural graph: a mapping from
// symbol name to ip-node, with Tarjan SCC computation for bottom-up
// processing and self-recursion detection.
package ipgraph

import (
	"context"

	"golang.org/x/sync/singleflight"

	ierrors "rvsdgc/internal/errors"
)

// NodeKind distinguishes function nodes from data nodes.
type NodeKind int

const (
	KindFunction NodeKind = iota
	KindData
)

// Node is the common shape of an ip-node: a symbol's kind, its dependency
// set, and kind-specific payload supplied by the caller (the function's
// CFG/signature or the data node's initializer, owned by the ir/module
// package to avoid an import cycle; ipgraph only tracks the dependency
// topology).
type Node struct {
	Name    string
	Kind    NodeKind
	Payload interface{}

	deps map[string]bool // referenced ip-node names
}

// AddDependency records that this node references the ip-node named tgt
// (a call or a use).
func (n *Node) AddDependency(tgt string) {
	if n.deps == nil {
		n.deps = map[string]bool{}
	}
	n.deps[tgt] = true
}

// Dependencies returns the set of symbol names this node references.
func (n *Node) Dependencies() []string {
	out := make([]string, 0, len(n.deps))
	for d := range n.deps {
		out = append(out, d)
	}
	return out
}

// IsSelfRecursive reports whether n depends on itself directly, the
// shortcut that spares callers a full SCC pass.
func (n *Node) IsSelfRecursive() bool { return n.deps[n.Name] }

// Graph is the inter-procedural graph: symbol name -> ip-node. A
// singleflight.Group deduplicates concurrent on-demand Lookup calls
// that can arise while bottom-up-processing mutually recursive SCCs;
// the compiler pipeline itself remains single-threaded; this only
// collapses repeated synchronous lookups, never runs two passes
// concurrently.
type Graph struct {
	nodes map[string]*Node
	group singleflight.Group
}

// New creates an empty ip-graph.
func New() *Graph {
	return &Graph{nodes: map[string]*Node{}}
}

// AddFunction inserts a function ip-node, erroring if the name is
// already taken: symbol names are unique.
func (g *Graph) AddFunction(name string, payload interface{}) (*Node, error) {
	return g.add(name, KindFunction, payload)
}

// AddData inserts a data ip-node.
func (g *Graph) AddData(name string, payload interface{}) (*Node, error) {
	return g.add(name, KindData, payload)
}

func (g *Graph) add(name string, kind NodeKind, payload interface{}) (*Node, error) {
	if _, exists := g.nodes[name]; exists {
		return nil, ierrors.NewLookup("ip-node %q already exists", name)
	}
	n := &Node{Name: name, Kind: kind, Payload: payload}
	g.nodes[name] = n
	return n, nil
}

// Lookup finds the ip-node named name, via a singleflight-deduplicated
// path so concurrent re-entrant lookups during bottom-up SCC processing
// collapse into one map read.
func (g *Graph) Lookup(name string) (*Node, bool) {
	v, _, _ := g.group.Do(name, func() (interface{}, error) {
		n, ok := g.nodes[name]
		if !ok {
			return (*Node)(nil), nil
		}
		return n, nil
	})
	n, _ := v.(*Node)
	return n, n != nil
}

// LookupContext is Lookup with a context for cancellation-aware callers;
// the underlying map read never blocks, so ctx is only checked up front.
func (g *Graph) LookupContext(ctx context.Context, name string) (*Node, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	n, ok := g.Lookup(name)
	return n, ok, nil
}

// Nodes returns all ip-nodes, in unspecified order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	return out
}

// NumNodes returns the node count.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// FindSCCs computes the graph's strongly connected components via
// Tarjan's algorithm, returned in reverse-topological (bottom-up) order
// for the CFG→RVSDG lowering's SCC-order driver.
func (g *Graph) FindSCCs() [][]*Node {
	index := 0
	indices := map[string]int{}
	lowlink := map[string]int{}
	onStack := map[string]bool{}
	var stack []string
	var sccs [][]*Node

	var strongconnect func(string)
	strongconnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		node := g.nodes[v]
		for dep := range node.deps {
			if _, ok := g.nodes[dep]; !ok {
				continue // external/unresolved reference
			}
			if _, seen := indices[dep]; !seen {
				strongconnect(dep)
				if lowlink[dep] < lowlink[v] {
					lowlink[v] = lowlink[dep]
				}
			} else if onStack[dep] {
				if indices[dep] < lowlink[v] {
					lowlink[v] = indices[dep]
				}
			}
		}

		if lowlink[v] == indices[v] {
			var scc []*Node
			for {
				n := len(stack) - 1
				w := stack[n]
				stack = stack[:n]
				onStack[w] = false
				scc = append(scc, g.nodes[w])
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	// Deterministic iteration: callers (the bottom-up driver) rely on a
	// stable process order across runs for reproducible statistics.
	names := make([]string, 0, len(g.nodes))
	for n := range g.nodes {
		names = append(names, n)
	}
	sortStrings(names)
	for _, n := range names {
		if _, seen := indices[n]; !seen {
			strongconnect(n)
		}
	}
	return sccs
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
