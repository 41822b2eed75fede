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

func i32() types.Type { return types.Int(32) }

// buildMax constructs max(a, b): if a < b return b else return a.
func buildMax(mod *module.Module) *module.Function {
	sig := types.Function([]types.Type{i32(), i32()}, []types.Type{i32()})
	fn, err := mod.CreateFunction("max", sig, variable.LinkageExternal, true)
	if err != nil {
		panic(err)
	}
	a, b := fn.Args[0], fn.Args[1]
	c := fn.Cfg

	header := c.CreateBasicBlock()
	c.Exit().DivertInEdges(header)
	cmp := c.Variables().NewLocal(types.Int(1), "cmp")
	pred := c.Variables().NewLocal(types.CtlState(2), "pred")
	header.Tacs().Append(tac.New(ops.ICmp(ops.KindICmpSlt, i32()), []*variable.Variable{a, b}, []*variable.Variable{cmp}))
	header.Tacs().Append(tac.New(
		ops.Match(types.Int(1), []ops.MatchAlternative{{Value: 1, Alternative: 0}, {Value: 0, Alternative: 1}}, 2),
		[]*variable.Variable{cmp}, []*variable.Variable{pred}))

	armB := c.CreateBasicBlock() // a < b: return b
	armA := c.CreateBasicBlock() // a >= b: return a
	join := c.CreateBasicBlock()
	header.AddOutEdge(armB)
	header.AddOutEdge(armA)
	armB.AddOutEdge(join)
	armA.AddOutEdge(join)
	join.AddOutEdge(c.Exit())

	ret := c.Variables().NewLocal(i32(), "ret")
	armB.Tacs().Append(tac.NewAssignment(ret, b))
	armA.Tacs().Append(tac.NewAssignment(ret, a))

	fn.Returns = []*variable.Variable{ret}
	return fn
}

// buildSum constructs sum(n): a while-shaped accumulation loop computing
// the sum of 0..n-1.
func buildSum(mod *module.Module) *module.Function {
	sig := types.Function([]types.Type{i32()}, []types.Type{i32()})
	fn, err := mod.CreateFunction("sum", sig, variable.LinkageExternal, true)
	if err != nil {
		panic(err)
	}
	n := fn.Args[0]
	c := fn.Cfg

	zero := c.Variables().NewLocal(i32(), "zero")
	i0 := c.Variables().NewLocal(i32(), "i0")
	sum0 := c.Variables().NewLocal(i32(), "sum0")
	preheader := c.CreateBasicBlock()
	c.Exit().DivertInEdges(preheader)
	preheader.Tacs().Append(tac.New(ops.Constant(i32(), 0), nil, []*variable.Variable{zero}))
	preheader.Tacs().Append(tac.NewAssignment(i0, zero))
	preheader.Tacs().Append(tac.NewAssignment(sum0, zero))

	i := c.Variables().NewLocal(i32(), "i")
	sum := c.Variables().NewLocal(i32(), "sum")
	// i and sum are reassigned in place across iterations via assignment
	// TACs (mirrors how the importer threads a mutable local).
	preheader.Tacs().Append(tac.NewAssignment(i, i0))
	preheader.Tacs().Append(tac.NewAssignment(sum, sum0))
	header := c.CreateBasicBlock()
	preheader.AddOutEdge(header)
	cmp := c.Variables().NewLocal(types.Int(1), "cmp")
	pred := c.Variables().NewLocal(types.CtlState(2), "pred")
	header.Tacs().Append(tac.New(ops.ICmp(ops.KindICmpSlt, i32()), []*variable.Variable{i, n}, []*variable.Variable{cmp}))
	header.Tacs().Append(tac.New(
		ops.Match(types.Int(1), []ops.MatchAlternative{{Value: 1, Alternative: 0}, {Value: 0, Alternative: 1}}, 2),
		[]*variable.Variable{cmp}, []*variable.Variable{pred}))

	body := c.CreateBasicBlock()
	exitBlock := c.CreateBasicBlock()
	header.AddOutEdge(body)
	header.AddOutEdge(exitBlock)

	sum2 := c.Variables().NewLocal(i32(), "sum2")
	i2 := c.Variables().NewLocal(i32(), "i2")
	one := c.Variables().NewLocal(i32(), "one")
	body.Tacs().Append(tac.New(ops.Constant(i32(), 1), nil, []*variable.Variable{one}))
	body.Tacs().Append(tac.New(ops.BinaryArith(ops.KindAdd, i32()), []*variable.Variable{sum, i}, []*variable.Variable{sum2}))
	body.Tacs().Append(tac.New(ops.BinaryArith(ops.KindAdd, i32()), []*variable.Variable{i, one}, []*variable.Variable{i2}))
	body.Tacs().Append(tac.NewAssignment(sum, sum2))
	body.Tacs().Append(tac.NewAssignment(i, i2))
	body.AddOutEdge(header)

	exitBlock.AddOutEdge(c.Exit())

	fn.Returns = []*variable.Variable{sum}
	return fn
}

func TestLowerBranch(t *testing.T) {
	mod := module.New("test", "", module.DataLayout{})
	fn := buildMax(mod)
	restructure.Restructure(fn.Cfg)
	if !restructure.IsProperStructured(fn.Cfg) {
		t.Fatalf("max's CFG is not properly structured after restructuring")
	}

	g := rvsdg.New()
	b := NewBuilder(mod, g)
	b.BuildModule()

	out, ok := b.FunctionOutput("max")
	if !ok {
		t.Fatalf("expected a lowered output for max")
	}
	lambda := out.Node()
	if lambda == nil || lambda.StructuralKind() != rvsdg.StructuralLambda {
		t.Fatalf("expected max to lower to a lambda node")
	}
	sub := lambda.Subregions()[0]
	foundGamma := false
	for _, n := range sub.Nodes() {
		if !n.IsSimple() && n.StructuralKind() == rvsdg.StructuralGamma {
			foundGamma = true
			if len(n.Subregions()) != 2 {
				t.Errorf("expected max's gamma to have 2 subregions, got %d", len(n.Subregions()))
			}
		}
	}
	if !foundGamma {
		t.Errorf("expected max's lambda body to contain a gamma node")
	}
}

func TestLowerLoop(t *testing.T) {
	mod := module.New("test", "", module.DataLayout{})
	fn := buildSum(mod)
	restructure.Restructure(fn.Cfg)
	if !restructure.IsProperStructured(fn.Cfg) {
		t.Fatalf("sum's CFG is not properly structured after restructuring")
	}

	g := rvsdg.New()
	b := NewBuilder(mod, g)
	b.BuildModule()

	out, ok := b.FunctionOutput("sum")
	if !ok {
		t.Fatalf("expected a lowered output for sum")
	}
	lambda := out.Node()
	sub := lambda.Subregions()[0]

	var gamma *rvsdg.Node
	for _, n := range sub.Nodes() {
		if !n.IsSimple() && n.StructuralKind() == rvsdg.StructuralGamma {
			gamma = n
		}
	}
	if gamma == nil {
		t.Fatalf("expected sum's lambda body to contain a guarding gamma")
	}

	foundTheta := false
	for _, sr := range gamma.Subregions() {
		for _, n := range sr.Nodes() {
			if !n.IsSimple() && n.StructuralKind() == rvsdg.StructuralTheta {
				foundTheta = true
			}
		}
	}
	if !foundTheta {
		t.Errorf("expected one of sum's gamma subregions to contain a theta")
	}
}

func TestLowerMutualRecursion(t *testing.T) {
	mod := module.New("test", "", module.DataLayout{})
	sig := types.Function([]types.Type{i32()}, []types.Type{i32()})

	isEven, err := mod.CreateFunction("isEven", sig, variable.LinkageExternal, true)
	if err != nil {
		t.Fatal(err)
	}
	isOdd, err := mod.CreateFunction("isOdd", sig, variable.LinkageExternal, true)
	if err != nil {
		t.Fatal(err)
	}

	g := rvsdg.New()
	b := NewBuilder(mod, g)

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

	if err := mod.AddDependency("isEven", "isOdd"); err != nil {
		t.Fatal(err)
	}
	if err := mod.AddDependency("isOdd", "isEven"); err != nil {
		t.Fatal(err)
	}

	b.BuildModule()

	evenOut, ok := b.FunctionOutput("isEven")
	if !ok {
		t.Fatalf("expected a lowered output for isEven")
	}
	oddOut, ok := b.FunctionOutput("isOdd")
	if !ok {
		t.Fatalf("expected a lowered output for isOdd")
	}
	if evenOut.Region() != g.Root() {
		t.Errorf("expected isEven's phi-bound output to live in the root region")
	}
	if oddOut.Region() != g.Root() {
		t.Errorf("expected isOdd's phi-bound output to live in the root region")
	}
}
