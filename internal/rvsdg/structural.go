package rvsdg

import "rvsdgc/internal/types"

// EntryVar is a gamma entry variable: a single node input whose origin is
// routed into a matching argument of every sub-region.
type EntryVar struct {
	Input     *Input
	Arguments []*Output // one per sub-region, same order as subregions
}

// ExitVar is a gamma exit variable: one result per sub-region, coalesced
// into a single node output.
type ExitVar struct {
	Output  *Output
	Results []*Input // one per sub-region
}

// LoopVar is a theta loop variable: a matched argument/result pair plus
// the node's input (initial value) and output (final value). Each loop
// variable appears exactly once as an argument and once as a result.
type LoopVar struct {
	Input    *Input
	Argument *Output
	Result   *Input
	Output   *Output
}

// PhiBinding is one member of a phi's mutually-recursive binding group: a
// subregion argument standing in for the (not yet available) bound
// value, a subregion result supplying the actual value, and the node
// output other regions observe.
type PhiBinding struct {
	Argument *Output
	Result   *Input
	Output   *Output
}

func newStructuralNode(region *Region, kind StructuralKind, nsubregions int, name string) *Node {
	n := &Node{id: region.graph.nextID(), owner: region, isSimple: false, structKind: kind, name: name, thetaPredicateIdx: -1}
	n.subregions = make([]*Region, nsubregions)
	for i := range n.subregions {
		sub := &Region{id: region.graph.nextID(), graph: region.graph, node: n}
		n.subregions[i] = sub
		region.graph.notifyRegionCreate(sub)
	}
	region.addNode(n)
	return n
}

// NewGamma creates a gamma node with one sub-region per alternative of
// predicate's control type.
func NewGamma(region *Region, predicate *Output) *Node {
	if predicate.Type.Kind() != types.KindCtlState {
		fatalf(region, "NewGamma: predicate must be a control-state value")
	}
	n := alternatives(region, predicate.Type.Alternatives())
	n.structKind = StructuralGamma
	n.predicate = n.addInput(predicate.Type, predicate)
	return n
}

func alternatives(region *Region, nalt int) *Node {
	if nalt < 2 {
		fatalf(region, "NewGamma: predicate must offer at least 2 alternatives")
	}
	return newStructuralNode(region, StructuralGamma, nalt, "")
}

// AddEntryVar adds an entry variable to a gamma node: one node input plus
// a matching argument in every sub-region.
func (n *Node) AddEntryVar(origin *Output) *EntryVar {
	n.requireKind(StructuralGamma, "AddEntryVar")
	in := n.addInput(origin.Type, origin)
	args := make([]*Output, len(n.subregions))
	for i, sub := range n.subregions {
		args[i] = sub.AddArgument(origin.Type)
	}
	n.recomputeDepth()
	return &EntryVar{Input: in, Arguments: args}
}

// AddExitVar adds an exit variable to a gamma node: one result per
// sub-region (origins must already live in the matching sub-region),
// coalesced into one new node output.
func (n *Node) AddExitVar(originsPerSubregion []*Output) *ExitVar {
	n.requireKind(StructuralGamma, "AddExitVar")
	if len(originsPerSubregion) != len(n.subregions) {
		fatalf(n.owner, "AddExitVar: need one origin per sub-region (%d), got %d", len(n.subregions), len(originsPerSubregion))
	}
	results := make([]*Input, len(n.subregions))
	for i, sub := range n.subregions {
		results[i] = sub.AddResult(originsPerSubregion[i])
	}
	out := n.addOutput(originsPerSubregion[0].Type)
	return &ExitVar{Output: out, Results: results}
}

// GammaPredicate returns the gamma's predicate input.
func (n *Node) GammaPredicate() *Input {
	n.requireKind(StructuralGamma, "GammaPredicate")
	return n.predicate
}

// NewTheta creates a theta node with a single sub-region. The
// predicate is not yet known; close it with CloseTheta once the loop
// body is built.
func NewTheta(region *Region) *Node {
	n := newStructuralNode(region, StructuralTheta, 1, "")
	n.structKind = StructuralTheta
	n.thetaPredicateIdx = -1
	return n
}

// AddLoopVar adds a loop variable to a theta node: a node input bound to
// initial, a subregion argument, and an identity subregion result (the
// caller redirects the result's origin to the value computed at the end
// of one iteration). If the theta is already closed (CloseTheta called),
// the new result is inserted before the predicate result so the
// predicate stays last; value routing may add loop variables to an
// already-built theta.
func (n *Node) AddLoopVar(initial *Output) *LoopVar {
	n.requireKind(StructuralTheta, "AddLoopVar")
	in := n.addInput(initial.Type, initial)
	sub := n.subregions[0]
	arg := sub.AddArgument(initial.Type)
	var res *Input
	if n.thetaPredicateIdx < 0 {
		res = sub.AddResult(arg)
	} else {
		res = sub.insertResult(n.thetaPredicateIdx, arg)
		n.thetaPredicateIdx++
	}
	out := n.addOutput(initial.Type)
	n.recomputeDepth()
	return &LoopVar{Input: in, Argument: arg, Result: res, Output: out}
}

// CloseTheta fixes the loop's continuation predicate, which must already
// be an origin living in the theta's sub-region.
func (n *Node) CloseTheta(predicate *Output) {
	n.requireKind(StructuralTheta, "CloseTheta")
	if n.thetaPredicateIdx >= 0 {
		fatalf(n.owner, "CloseTheta: theta already closed")
	}
	res := n.subregions[0].AddResult(predicate)
	n.thetaPredicateIdx = res.Index()
}

// ThetaPredicate returns the theta's predicate result. Panics if the
// theta has not been closed yet.
func (n *Node) ThetaPredicate() *Input {
	n.requireKind(StructuralTheta, "ThetaPredicate")
	if n.thetaPredicateIdx < 0 {
		fatalf(n.owner, "ThetaPredicate: theta not yet closed")
	}
	return n.subregions[0].results[n.thetaPredicateIdx]
}

// LoopVars reconstructs the theta's loop variables from its current
// inputs/arguments/results/outputs (all kept in lockstep index order,
// excluding the predicate result).
func (n *Node) LoopVars() []LoopVar {
	n.requireKind(StructuralTheta, "LoopVars")
	sub := n.subregions[0]
	out := make([]LoopVar, len(n.inputs))
	for i := range n.inputs {
		out[i] = LoopVar{Input: n.inputs[i], Argument: sub.arguments[i], Result: sub.results[i], Output: n.outputs[i]}
	}
	return out
}

// NewLambda creates a lambda node binding a function body. The
// sub-region's first len(sig.Operands()) arguments are the function's
// formal parameters, fixed at construction so FctArgument indices stay
// stable as context variables are appended afterward.
func NewLambda(region *Region, sig types.Type, name string) *Node {
	n := newStructuralNode(region, StructuralLambda, 1, name)
	n.structKind = StructuralLambda
	n.fctArity = len(sig.Operands())
	sub := n.subregions[0]
	for _, t := range sig.Operands() {
		sub.AddArgument(t)
	}
	n.sig = sig
	return n
}

// FctArgument returns the i-th formal-parameter argument of the lambda's
// sub-region.
func (n *Node) FctArgument(i int) *Output {
	n.requireKind(StructuralLambda, "FctArgument")
	return n.subregions[0].arguments[i]
}

// AddCtxVar adds a context variable to a lambda or phi node: a node
// input bound to origin (which lives in the enclosing region) plus a
// matching sub-region argument appended after the fixed formal
// parameters.
func (n *Node) AddCtxVar(origin *Output) *Output {
	n.requireKindOneOf("AddCtxVar", StructuralLambda, StructuralPhi)
	n.addInput(origin.Type, origin)
	arg := n.subregions[0].AddArgument(origin.Type)
	n.recomputeDepth()
	return arg
}

// NumCtxVars returns how many context variables this lambda/phi node
// currently has (one per node input).
func (n *Node) NumCtxVars() int { return len(n.inputs) }

// CtxVarArgument returns the i-th context variable's sub-region argument.
func (n *Node) CtxVarArgument(i int) *Output {
	n.requireKindOneOf("CtxVarArgument", StructuralLambda, StructuralPhi)
	return n.subregions[0].arguments[n.fctArity+i]
}

// FinishLambda binds the sub-region's results to the function's return
// values (origins must already live in the sub-region) and produces the
// node's single output: the callable function value.
func (n *Node) FinishLambda(results []*Output) *Output {
	n.requireKind(StructuralLambda, "FinishLambda")
	if len(results) != len(n.sig.Results()) {
		fatalf(n.owner, "FinishLambda: need %d results, got %d", len(n.sig.Results()), len(results))
	}
	for _, r := range results {
		n.subregions[0].AddResult(r)
	}
	return n.addOutput(n.sig)
}

// Signature returns the lambda's function type.
func (n *Node) Signature() types.Type {
	n.requireKind(StructuralLambda, "Signature")
	return n.sig
}

// NewPhi creates a phi node for a mutually-recursive binding group.
// Convention: add every AddPhiBinding before any AddCtxVar, so
// the sub-region's binding arguments occupy the low, stable indices and
// context variables can keep growing after; mirroring NewLambda's fixed
// formal-parameter convention.
func NewPhi(region *Region) *Node {
	n := newStructuralNode(region, StructuralPhi, 1, "")
	n.structKind = StructuralPhi
	return n
}

// AddPhiBinding reserves a slot in the binding group: a sub-region
// argument standing in for the (not yet available) recursive value, used
// by other bindings' bodies to reference each other, plus a node output.
// Call SetPhiBindingResult once the bound value (typically a lambda's
// FinishLambda output) exists.
func (n *Node) AddPhiBinding(t types.Type) *PhiBinding {
	n.requireKind(StructuralPhi, "AddPhiBinding")
	arg := n.subregions[0].AddArgument(t)
	out := n.addOutput(t)
	n.phiBindings = append(n.phiBindings, PhiBinding{Argument: arg, Output: out})
	return &n.phiBindings[len(n.phiBindings)-1]
}

// SetPhiBindingResult supplies the actual bound value for a binding
// previously created by AddPhiBinding, closing the recursive knot.
func (n *Node) SetPhiBindingResult(b *PhiBinding, value *Output) {
	n.requireKind(StructuralPhi, "SetPhiBindingResult")
	b.Result = n.subregions[0].AddResult(value)
}

// PhiBindings returns every binding reserved so far by AddPhiBinding, in
// creation order.
func (n *Node) PhiBindings() []PhiBinding {
	n.requireKind(StructuralPhi, "PhiBindings")
	return n.phiBindings
}

func (n *Node) requireKind(want StructuralKind, op string) {
	if n.structKind != want {
		fatalf(n.owner, "%s: node is not a %s", op, want)
	}
}

func (n *Node) requireKindOneOf(op string, kinds ...StructuralKind) {
	for _, k := range kinds {
		if n.structKind == k {
			return
		}
	}
	fatalf(n.owner, "%s: node kind not in allowed set", op)
}
