package lower

import (
	"testing"

	"rvsdgc/internal/ir/module"
	"rvsdgc/internal/ir/tac"
	"rvsdgc/internal/ir/variable"
	"rvsdgc/internal/ops"
	"rvsdgc/internal/restructure"
	"rvsdgc/internal/rvsdg"
	"rvsdgc/internal/types"
)

// TestLowerRoundTripBranch: lowering max's RVSDG back down must
// reproduce a CFG shaped like a branch with a join, still properly
// structured and still reaching exit from every node.
func TestLowerRoundTripBranch(t *testing.T) {
	up := module.New("test", "", module.DataLayout{})
	fn := buildMax(up)
	restructure.Restructure(fn.Cfg)

	g := rvsdg.New()
	NewBuilder(up, g).BuildModule()

	down := module.New("test", "", module.DataLayout{})
	NewDownBuilder(down).LowerGraph(g)

	lowered, ok := down.LookupFunction("max")
	if !ok {
		t.Fatalf("expected a lowered function for max")
	}
	if !lowered.Cfg.EveryNodeReachesExit() {
		t.Fatal("every node in the lowered CFG must reach exit")
	}
	if !restructure.IsProperStructured(lowered.Cfg) {
		t.Fatal("lowered CFG for max must already be properly structured")
	}
	if len(lowered.Returns) != 1 {
		t.Fatalf("want 1 return variable, got %d", len(lowered.Returns))
	}

	branching := false
	var icmp bool
	for _, n := range lowered.Cfg.Nodes() {
		if len(n.OutEdges()) >= 2 {
			branching = true
		}
		list := blockTacs(n)
		if list == nil {
			continue
		}
		for _, tc := range list.Tacs() {
			if tc.Op.Kind == ops.KindICmpSlt {
				icmp = true
			}
		}
	}
	if !branching {
		t.Error("expected the lowered CFG to contain a branching node")
	}
	if !icmp {
		t.Error("expected the lowered CFG to still contain the original icmp_slt comparison")
	}
}

// TestLowerRoundTripLoop: lowering sum's RVSDG back down must reproduce
// a do-while-shaped cycle.
func TestLowerRoundTripLoop(t *testing.T) {
	up := module.New("test", "", module.DataLayout{})
	fn := buildSum(up)
	restructure.Restructure(fn.Cfg)

	g := rvsdg.New()
	NewBuilder(up, g).BuildModule()

	down := module.New("test", "", module.DataLayout{})
	NewDownBuilder(down).LowerGraph(g)

	lowered, ok := down.LookupFunction("sum")
	if !ok {
		t.Fatalf("expected a lowered function for sum")
	}
	if !lowered.Cfg.EveryNodeReachesExit() {
		t.Fatal("every node in the lowered CFG must reach exit")
	}
	if !restructure.IsProperStructured(lowered.Cfg) {
		t.Fatal("lowered CFG for sum must already be properly structured")
	}

	hasCycle := false
	for _, scc := range lowered.Cfg.StrongConnectedComponents() {
		if len(scc) > 1 {
			hasCycle = true
			continue
		}
		for _, e := range scc[0].OutEdges() {
			if e.Target == scc[0] {
				hasCycle = true
			}
		}
	}
	if !hasCycle {
		t.Error("expected the lowered CFG to contain a loop back-edge")
	}

	var add bool
	for _, n := range lowered.Cfg.Nodes() {
		list := blockTacs(n)
		if list == nil {
			continue
		}
		for _, tc := range list.Tacs() {
			if tc.Op.Kind == ops.KindAdd {
				add = true
			}
		}
	}
	if !add {
		t.Error("expected the lowered CFG to still contain the accumulation add")
	}
}

// TestLowerRoundTripMutualRecursion: both functions of a
// mutually-recursive phi group must lower with calls to each other
// intact.
func TestLowerRoundTripMutualRecursion(t *testing.T) {
	up := module.New("test", "", module.DataLayout{})
	sig := types.Function([]types.Type{i32()}, []types.Type{i32()})

	isEven, err := up.CreateFunction("isEven", sig, variable.LinkageExternal, true)
	if err != nil {
		t.Fatal(err)
	}
	isOdd, err := up.CreateFunction("isOdd", sig, variable.LinkageExternal, true)
	if err != nil {
		t.Fatal(err)
	}

	g := rvsdg.New()
	b := NewBuilder(up, g)
	wireTrivialCall := func(fn *module.Function, calleeName string) {
		c := fn.Cfg
		block := c.CreateBasicBlock()
		c.Exit().DivertInEdges(block)
		block.AddOutEdge(c.Exit())
		calleeVar := b.CalleeVariable(fn, calleeName)
		ret := c.Variables().NewLocal(i32(), "ret")
		block.Tacs().Append(tac.New(ops.Call(calleeName, sig, 0), append([]*variable.Variable{calleeVar}, fn.Args...), []*variable.Variable{ret}))
		fn.Returns = []*variable.Variable{ret}
	}
	wireTrivialCall(isEven, "isOdd")
	wireTrivialCall(isOdd, "isEven")
	if err := up.AddDependency("isEven", "isOdd"); err != nil {
		t.Fatal(err)
	}
	if err := up.AddDependency("isOdd", "isEven"); err != nil {
		t.Fatal(err)
	}
	b.BuildModule()

	down := module.New("test", "", module.DataLayout{})
	NewDownBuilder(down).LowerGraph(g)

	loweredEven, ok := down.LookupFunction("isEven")
	if !ok {
		t.Fatalf("expected a lowered function for isEven")
	}
	loweredOdd, ok := down.LookupFunction("isOdd")
	if !ok {
		t.Fatalf("expected a lowered function for isOdd")
	}

	var callsOdd, callsEven bool
	for _, n := range loweredEven.Cfg.Nodes() {
		if list := blockTacs(n); list != nil {
			for _, tc := range list.Tacs() {
				if tc.Op.Kind == ops.KindCall && tc.Op.Symbol == "isOdd" {
					callsOdd = true
				}
			}
		}
	}
	for _, n := range loweredOdd.Cfg.Nodes() {
		if list := blockTacs(n); list != nil {
			for _, tc := range list.Tacs() {
				if tc.Op.Kind == ops.KindCall && tc.Op.Symbol == "isEven" {
					callsEven = true
				}
			}
		}
	}
	if !callsOdd {
		t.Error("expected isEven's lowered body to still call isOdd")
	}
	if !callsEven {
		t.Error("expected isOdd's lowered body to still call isEven")
	}
}
