// Package rvsdg implements the Regionalized Value State Dependence Graph:
// a hierarchical, region-based data/state dependence graph with
// structural nodes (gamma, theta, lambda, phi) and simple nodes for
// primitive operations.
package rvsdg

import (
	"github.com/google/uuid"

	"rvsdgc/internal/ops"
	"rvsdgc/internal/types"
)

// Graph owns a single root region and every region/node/input/output
// transitively reachable from it.
type Graph struct {
	idCounter uint64
	root      *Region

	subscribers []Subscriber

	// RunID stamps the statistics records the pipeline emits for this
	// graph so multiple pipeline runs are distinguishable in logs.
	RunID uuid.UUID

	// mutable gates whether normal-form rewrite rules fire on node
	// creation/normalization.
	mutable bool

	rules map[ops.Kind][]RewriteRule
}

// New creates a Graph with an empty root region, mutable by default.
func New() *Graph {
	g := &Graph{mutable: true, rules: map[ops.Kind][]RewriteRule{}}
	g.RunID = uuid.New()
	g.root = &Region{id: g.nextID(), graph: g}
	g.notifyRegionCreate(g.root)
	return g
}

// Root returns the graph's root region.
func (g *Graph) Root() *Region { return g.root }

// Mutable reports whether normal-form rules are currently allowed to
// fire.
func (g *Graph) Mutable() bool { return g.mutable }

// SetMutable toggles mutability. Passes that must observe the IR exactly
// as constructed (e.g. a verifier) set this false temporarily.
func (g *Graph) SetMutable(m bool) { g.mutable = m }

// RewriteRule is one normal-form reduction registered for a given
// operation kind. Real rules (store-mux, store-store, ...) live in
// package normalform and are registered here via RegisterRule to avoid
// an import cycle.
type RewriteRule interface {
	// Name identifies the rule for statistics/diagnostics (e.g.
	// "store_mux").
	Name() string
	// TryRewrite inspects n (guaranteed IsSimple with Operation().Kind
	// matching the registration) and, if applicable, performs the
	// rewrite (diverting n's outputs' users and removing n) and returns
	// true. A false return leaves n untouched.
	TryRewrite(n *Node) bool
}

// RegisterRule adds a rewrite rule for the given operation kind. Multiple
// rules may be registered per kind; NormalizeRegion tries them in
// registration order.
func (g *Graph) RegisterRule(kind ops.Kind, r RewriteRule) {
	g.rules[kind] = append(g.rules[kind], r)
}

// NormalizeRegion runs every registered rule over region's simple nodes
// to a fixed point, recursing into sub-regions of structural nodes
// encountered along the way. No-op when the graph is not mutable.
func (g *Graph) NormalizeRegion(region *Region) {
	if !g.mutable {
		return
	}
	changed := true
	for changed {
		changed = false
		for _, n := range append([]*Node(nil), region.nodes...) {
			if n.isSimple {
				for _, rule := range g.rules[n.op.Kind] {
					if rule.TryRewrite(n) {
						changed = true
						break
					}
				}
			} else {
				for _, sub := range n.subregions {
					g.NormalizeRegion(sub)
				}
			}
		}
	}
}

// CreateSimpleNode creates a simple node with the given operation and
// operand origins, all of which must live in region. Arity/type
// mismatches are programmer errors and abort, the same hard-assertion
// discipline tac.New applies.
func (g *Graph) CreateSimpleNode(region *Region, op ops.Operation, operands []*Output) *Node {
	if len(operands) != op.NumOperands() {
		fatalf(region, "CreateSimpleNode: operand arity mismatch for %s: want %d, got %d", op.DebugString(), op.NumOperands(), len(operands))
	}
	for i, o := range operands {
		if o.owner != region {
			fatalf(region, "CreateSimpleNode: operand %d is not in this region", i)
		}
		if !types.Equal(o.Type, op.OperandTypes[i]) {
			fatalf(region, "CreateSimpleNode: operand %d type mismatch for %s", i, op.DebugString())
		}
	}
	n := &Node{id: g.nextID(), owner: region, isSimple: true, op: op}
	region.addNode(n)
	for i, o := range operands {
		n.addInput(op.OperandTypes[i], o)
	}
	for _, rt := range op.ResultTypes {
		n.addOutput(rt)
	}
	// region.addNode computed depth from n's (still empty) inputs; redo it
	// now that operands are wired, so Depth() reflects the longest
	// dependency chain from region arguments as the
	// structural builders already do after AddEntryVar/AddLoopVar/AddCtxVar.
	n.recomputeDepth()
	return n
}

// destroyRegion tears down every node in r, in an order that respects
// the no-users removal precondition: first detach the region's results
// (their origins are the only users a node's outputs can have left once
// the enclosing node is going away),
// then repeatedly remove any node whose outputs currently have zero
// users, until none remain.
func (g *Graph) destroyRegion(r *Region) {
	for _, res := range r.results {
		res.setOrigin(nil)
		g.notifyInputDestroy(res)
	}
	r.results = nil
	for len(r.nodes) > 0 {
		progressed := false
		for _, n := range append([]*Node(nil), r.nodes...) {
			free := true
			for _, o := range n.outputs {
				if len(o.users) != 0 {
					free = false
					break
				}
			}
			if free {
				r.RemoveNode(n)
				progressed = true
			}
		}
		if !progressed {
			fatalf(r, "destroyRegion: remaining nodes form a user cycle")
		}
	}
	for _, arg := range r.arguments {
		g.notifyOutputDestroy(arg)
	}
	r.arguments = nil
	g.notifyRegionDestroy(r)
}
