package rvsdg

import (
	"fmt"

	"rvsdgc/internal/ops"
	"rvsdgc/internal/types"
)

// StructuralKind tags which of the four structural node variants
// (gamma, theta, lambda, phi) a structural Node is.
type StructuralKind int

const (
	StructuralNone StructuralKind = iota
	StructuralGamma
	StructuralTheta
	StructuralLambda
	StructuralPhi
)

func (k StructuralKind) String() string {
	switch k {
	case StructuralGamma:
		return "gamma"
	case StructuralTheta:
		return "theta"
	case StructuralLambda:
		return "lambda"
	case StructuralPhi:
		return "phi"
	default:
		return "none"
	}
}

// Node is either a simple node (an Operation with deterministic
// outputs) or a structural node (owning one or more sub-regions): one
// tagged-variant struct rather than an inheritance chain.
type Node struct {
	id    id
	owner *Region

	// Simple nodes.
	isSimple bool
	op       ops.Operation

	// Structural nodes.
	structKind StructuralKind
	subregions []*Region
	predicate  *Input // gamma's predicate input
	name       string // lambda/phi binding name, cosmetic

	thetaPredicateIdx int // theta: index of the closing predicate result, -1 until CloseTheta
	fctArity          int // lambda: number of fixed formal-parameter arguments
	sig               types.Type // lambda: function signature
	phiBindings       []PhiBinding

	inputs  []*Input
	outputs []*Output

	depth int
}

// Region returns the region this node belongs to.
func (n *Node) Region() *Region { return n.owner }

// IsSimple reports whether this is a simple (operation) node.
func (n *Node) IsSimple() bool { return n.isSimple }

// IsStructural reports whether this is a structural node.
func (n *Node) IsStructural() bool { return !n.isSimple }

// Operation returns the simple node's operation. Panics on a structural
// node.
func (n *Node) Operation() ops.Operation {
	if !n.isSimple {
		fatalf(n.owner, "Operation() called on a structural node")
	}
	return n.op
}

// StructuralKind returns which structural variant this is. Returns
// StructuralNone on a simple node.
func (n *Node) StructuralKind() StructuralKind { return n.structKind }

// Subregions returns the node's owned sub-regions (one for theta/lambda/
// phi, two-or-more for gamma).
func (n *Node) Subregions() []*Region { return n.subregions }

// Inputs returns the node's ordered inputs.
func (n *Node) Inputs() []*Input { return n.inputs }

// Outputs returns the node's ordered outputs.
func (n *Node) Outputs() []*Output { return n.outputs }

// Name returns the node's cosmetic binding name (set for lambda/phi).
func (n *Node) Name() string { return n.name }

// Depth is the longest dependency chain from the owning region's
// arguments to this node, the metric traversers order by.
func (n *Node) Depth() int { return n.depth }

// DebugLabel renders a short human label for diagnostics and debug views.
func (n *Node) DebugLabel() string {
	if n.isSimple {
		return n.op.DebugString()
	}
	if n.name != "" {
		return fmt.Sprintf("%s(%s)", n.structKind, n.name)
	}
	return n.structKind.String()
}

func (n *Node) addInput(t types.Type, origin *Output) *Input {
	in := &Input{id: n.owner.graph.nextID(), Type: t, owner: n.owner, node: n, index: len(n.inputs)}
	n.inputs = append(n.inputs, in)
	n.owner.graph.notifyInputCreate(in)
	if origin != nil {
		in.setOrigin(origin)
	}
	return in
}

func (n *Node) addOutput(t types.Type) *Output {
	o := &Output{id: n.owner.graph.nextID(), Type: t, owner: n.owner, node: n, index: len(n.outputs)}
	n.outputs = append(n.outputs, o)
	n.owner.graph.notifyOutputCreate(o)
	return o
}

// Remove detaches this node from its owning region. Its outputs must
// have no remaining users.
func (n *Node) Remove() { n.owner.RemoveNode(n) }

// recomputeDepth recalculates n's cached depth from its current inputs
// and fires the depth-change notifier if it moved.
func (n *Node) recomputeDepth() {
	old := n.depth
	n.depth = n.owner.computeDepth(n)
	if n.depth != old {
		n.owner.graph.notifyNodeDepthChange(n, old)
	}
}
