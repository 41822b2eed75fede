package normalform

import (
	"rvsdgc/internal/ops"
	"rvsdgc/internal/rvsdg"
)

// loadOperands splits a KindLoad node's inputs into its address and its
// trailing state operands, per the (ptr, state...) -> (value, state...)
// layout.
func loadOperands(n *rvsdg.Node) (addr *rvsdg.Output, states []*rvsdg.Output) {
	ins := n.Inputs()
	addr = ins[0].Origin()
	states = make([]*rvsdg.Output, len(ins)-1)
	for i := range states {
		states[i] = ins[1+i].Origin()
	}
	return
}

// loadMuxRule is load's analogue of store-mux: pushing the load past a
// memory-state mux reads the same value down every incoming path (the
// mux only merges control paths, never diverging writes, wherever this
// rule's preconditions hold), so one representative load's value result
// is kept and every path's state result is re-muxed.
type loadMuxRule struct{}

func (loadMuxRule) Name() string { return "load_mux" }

func (loadMuxRule) TryRewrite(n *rvsdg.Node) bool {
	addr, states := loadOperands(n)
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
			return false
		}
	}

	region := n.Region()
	graph := region.Graph()
	op := n.Operation()
	valueType := op.ResultTypes[0]
	alignment := op.Alignment

	newStates := make([]*rvsdg.Output, len(mux.Inputs()))
	var value *rvsdg.Output
	for i, in := range mux.Inputs() {
		pushed := graph.CreateSimpleNode(region, ops.Load(valueType, 1, alignment), []*rvsdg.Output{addr, in.Origin()})
		newStates[i] = pushed.Outputs()[1]
		if i == 0 {
			value = pushed.Outputs()[0]
		}
	}
	remuxed := graph.CreateSimpleNode(region, ops.MemStateMux(len(newStates)), newStates)

	replacement := append([]*rvsdg.Output{value}, remuxed.Outputs()...)
	divertAndRemove(n, replacement)
	return true
}

// loadStoreRule implements the load analogue of store-store: a load
// whose state chain traces straight through a store to the same address
// reads that store's incoming value directly, and the load itself
// vanishes; its state results are simply the store's own state
// results, unchanged.
type loadStoreRule struct{}

func (loadStoreRule) Name() string { return "load_store" }

func (loadStoreRule) TryRewrite(n *rvsdg.Node) bool {
	addr, states := loadOperands(n)
	if len(states) == 0 {
		return false
	}
	store := states[0].Node()
	if store == nil || !store.IsSimple() || store.Operation().Kind != ops.KindStore {
		return false
	}
	storeAddr, storeValue, storeStates := storeOperands(store)
	if storeAddr != addr {
		return false
	}
	if store.Operation().Alignment != n.Operation().Alignment {
		return false
	}
	if len(storeStates) != len(states) {
		return false
	}
	for i, s := range states {
		if s != store.Outputs()[i] || s.NumUsers() != 1 {
			return false
		}
	}

	replacement := append([]*rvsdg.Output{storeValue}, store.Outputs()...)
	divertAndRemove(n, replacement)
	return true
}

// loadAllocaRule is load's analogue of store-alloca (same Open Question 1
// caveat, gated behind allowUnverified): a load from a just-allocated
// address need not be ordered against unrelated states.
type loadAllocaRule struct{ allowUnverified bool }

func (loadAllocaRule) Name() string { return "load_alloca" }

func (r loadAllocaRule) TryRewrite(n *rvsdg.Node) bool {
	if !r.allowUnverified {
		return false
	}
	addr, states := loadOperands(n)
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
	narrowed := graph.CreateSimpleNode(region, ops.Load(op.ResultTypes[0], 1, op.Alignment), []*rvsdg.Output{addr, allocaState})

	replacement := make([]*rvsdg.Output, 1+len(states))
	replacement[0] = narrowed.Outputs()[0]
	for i, s := range states {
		if i == allocaIdx {
			replacement[1+i] = narrowed.Outputs()[1]
		} else {
			replacement[1+i] = s
		}
	}
	divertAndRemove(n, replacement)
	return true
}

// loadLoadStateRule implements redundant-load elimination: a load whose
// state chain traces straight through an earlier load of the same
// address reuses that load's value result instead of reading again.
type loadLoadStateRule struct{}

func (loadLoadStateRule) Name() string { return "load_load_state" }

func (loadLoadStateRule) TryRewrite(n *rvsdg.Node) bool {
	addr, states := loadOperands(n)
	if len(states) == 0 {
		return false
	}
	prior := states[0].Node()
	if prior == nil || !prior.IsSimple() || prior.Operation().Kind != ops.KindLoad {
		return false
	}
	priorAddr, priorStates := loadOperands(prior)
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
		if s != prior.Outputs()[1+i] || s.NumUsers() != 1 {
			return false
		}
	}

	replacement := append([]*rvsdg.Output{prior.Outputs()[0]}, prior.Outputs()[1:]...)
	divertAndRemove(n, replacement)
	return true
}
