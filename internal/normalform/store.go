package normalform

import (
	"rvsdgc/internal/ops"
	"rvsdgc/internal/rvsdg"
)

// storeOperands splits a KindStore node's inputs into its fixed
// (address, value) pair and its trailing state operands, per the
// (ptr, value, state...) -> (state...) layout.
func storeOperands(n *rvsdg.Node) (addr, value *rvsdg.Output, states []*rvsdg.Output) {
	ins := n.Inputs()
	addr = ins[0].Origin()
	value = ins[1].Origin()
	states = make([]*rvsdg.Output, len(ins)-2)
	for i := range states {
		states[i] = ins[2+i].Origin()
	}
	return
}

// storeMuxRule pushes a store past a memory-state mux: when every
// incoming state edge traces to a common mem-state-mux node,
// store(addr, val, mux(s1..sn)) becomes
// mux(store(addr, val, s1), ..., store(addr, val, sn)).
type storeMuxRule struct{}

func (storeMuxRule) Name() string { return "store_mux" }

func (storeMuxRule) TryRewrite(n *rvsdg.Node) bool {
	addr, value, states := storeOperands(n)
	if len(states) == 0 {
		return false
	}
	mux := states[0].Node()
	if mux == nil || !mux.IsSimple() || mux.Operation().Kind != ops.KindMemStateMux {
		return false
	}
	if len(mux.Outputs()) != len(states) {
		return false
	}
	for i, s := range states {
		if s != mux.Outputs()[i] {
			return false // every state operand must trace to the same mux, in order
		}
	}

	region := n.Region()
	graph := region.Graph()
	op := n.Operation()
	valueType := op.OperandTypes[1]
	alignment := op.Alignment

	newStates := make([]*rvsdg.Output, len(mux.Inputs()))
	for i, in := range mux.Inputs() {
		pushed := graph.CreateSimpleNode(region, ops.Store(valueType, 1, alignment), []*rvsdg.Output{addr, value, in.Origin()})
		newStates[i] = pushed.Outputs()[0]
	}
	remuxed := graph.CreateSimpleNode(region, ops.MemStateMux(len(newStates)), newStates)

	divertAndRemove(n, remuxed.Outputs())
	return true
}

// storeStoreRule drops a dead earlier write: when the preceding
// operation on every state input is a store to the same address, that
// store's single user chain leads into this store, and alignments
// match, the earlier store is dropped (last-write-wins).
type storeStoreRule struct{}

func (storeStoreRule) Name() string { return "store_store" }

func (storeStoreRule) TryRewrite(n *rvsdg.Node) bool {
	addr, value, states := storeOperands(n)
	if len(states) == 0 {
		return false
	}
	prior := states[0].Node()
	if prior == nil || !prior.IsSimple() || prior.Operation().Kind != ops.KindStore {
		return false
	}
	priorAddr, _, priorStates := storeOperands(prior)
	if priorAddr != addr {
		return false
	}
	if prior.Operation().Alignment != n.Operation().Alignment {
		return false
	}
	if len(priorStates) != len(states) {
		return false
	}
	for i, s := range states {
		if s != prior.Outputs()[i] || s.NumUsers() != 1 {
			return false // prior's output must chain solely into this store
		}
	}

	region := n.Region()
	graph := region.Graph()
	op := n.Operation()
	replacement := graph.CreateSimpleNode(region, ops.Store(op.OperandTypes[1], len(priorStates), op.Alignment),
		append([]*rvsdg.Output{addr, value}, priorStates...))

	divertAndRemove(n, replacement.Outputs())
	// n was prior's only user (checked above), so prior is now dead:
	// its state output has no consumer left, which would break state
	// linearity if left behind. Drop the earlier store outright rather
	// than merely bypassing it.
	prior.Remove()
	return true
}

// storeAllocaRule narrows a store to a just-allocated address: when the
// address is the output of an alloca whose state output has a single
// user which is this store, the store need not be ordered against
// unrelated states. The rewrite erases the alloca's state from the
// input set without checking that the alloca dominates every remaining
// state consumer, so it is gated behind allowUnverified and opt-in
// rather than silently applied.
type storeAllocaRule struct{ allowUnverified bool }

func (storeAllocaRule) Name() string { return "store_alloca" }

func (r storeAllocaRule) TryRewrite(n *rvsdg.Node) bool {
	if !r.allowUnverified {
		return false
	}
	addr, value, states := storeOperands(n)
	if len(states) < 2 {
		return false // already ordered against the alloca's state alone
	}
	alloca := addr.Node()
	if alloca == nil || !alloca.IsSimple() || alloca.Operation().Kind != ops.KindAlloca {
		return false
	}
	allocaState := alloca.Outputs()[1]

	allocaIdx := -1
	for i, s := range states {
		if s == allocaState {
			allocaIdx = i
			break
		}
	}
	if allocaIdx < 0 || allocaState.NumUsers() != 1 {
		return false
	}

	region := n.Region()
	graph := region.Graph()
	op := n.Operation()
	narrowed := graph.CreateSimpleNode(region, ops.Store(op.OperandTypes[1], 1, op.Alignment),
		[]*rvsdg.Output{addr, value, allocaState})

	replacement := make([]*rvsdg.Output, len(states))
	for i, s := range states {
		if i == allocaIdx {
			replacement[i] = narrowed.Outputs()[0]
		} else {
			replacement[i] = s // unrelated states pass through untouched
		}
	}
	divertAndRemove(n, replacement)
	return true
}
