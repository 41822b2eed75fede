package normalform

import (
	"rvsdgc/internal/rvsdg"
	"rvsdgc/internal/types"
)

// multipleOriginRule deduplicates state inputs sharing the same origin:
// state inputs are semantically a multiset of distinct streams, so a
// repeated stream collapses to one before the operation forms. It is
// registered once per operation kind that threads a trailing run of
// state operands 1:1 with a trailing (or, for load,
// leading-value-then-trailing) run of state results:
// leadingOperands/leadingResults count the non-state positions before
// that run (store: 2/0 for address+value; load: 1/1 for address /
// value; mem-state-mux: 0/0).
type multipleOriginRule struct {
	leadingOperands int
	leadingResults  int
}

func (multipleOriginRule) Name() string { return "multiple_origin" }

func (r multipleOriginRule) TryRewrite(n *rvsdg.Node) bool {
	ins := n.Inputs()
	stateIns := ins[r.leadingOperands:]
	if len(stateIns) < 2 {
		return false
	}
	origins := make([]*rvsdg.Output, len(stateIns))
	for i, in := range stateIns {
		origins[i] = in.Origin()
	}

	firstOf := map[*rvsdg.Output]int{}
	var uniqueIdx []int // index (into origins) of each kept stream
	mapToUnique := make([]int, len(origins))
	dup := false
	for i, o := range origins {
		if fi, ok := firstOf[o]; ok {
			mapToUnique[i] = fi
			dup = true
		} else {
			fi := len(uniqueIdx)
			firstOf[o] = fi
			mapToUnique[i] = fi
			uniqueIdx = append(uniqueIdx, i)
		}
	}
	if !dup {
		return false
	}

	region := n.Region()
	graph := region.Graph()
	op := n.Operation()

	stateOperandType := op.OperandTypes[r.leadingOperands]
	stateResultType := op.ResultTypes[r.leadingResults]

	newOp := op
	newOp.OperandTypes = append(append([]types.Type(nil), op.OperandTypes[:r.leadingOperands]...), repeatType(stateOperandType, len(uniqueIdx))...)
	newOp.ResultTypes = append(append([]types.Type(nil), op.ResultTypes[:r.leadingResults]...), repeatType(stateResultType, len(uniqueIdx))...)

	operands := make([]*rvsdg.Output, 0, r.leadingOperands+len(uniqueIdx))
	for i := 0; i < r.leadingOperands; i++ {
		operands = append(operands, ins[i].Origin())
	}
	for _, idx := range uniqueIdx {
		operands = append(operands, origins[idx])
	}

	newNode := graph.CreateSimpleNode(region, newOp, operands)

	replacement := make([]*rvsdg.Output, len(n.Outputs()))
	for i := 0; i < r.leadingResults; i++ {
		replacement[i] = newNode.Outputs()[i]
	}
	for i := range origins {
		replacement[r.leadingResults+i] = newNode.Outputs()[r.leadingResults+mapToUnique[i]]
	}

	divertAndRemove(n, replacement)
	return true
}

func repeatType(t types.Type, n int) []types.Type {
	out := make([]types.Type, n)
	for i := range out {
		out[i] = t
	}
	return out
}
