package opt

import (
	"testing"

	"rvsdgc/internal/ops"
	"rvsdgc/internal/rvsdg"
	"rvsdgc/internal/types"
)

// buildInvertibleLoop constructs the canonical invertible shape:
// theta(body=gamma(p)) with p a constant control value, a loop whose single body gamma both
// computes the next loop-carried value and decides whether to continue.
func buildInvertibleLoop(g *rvsdg.Graph, root *rvsdg.Region) *rvsdg.Node {
	i32 := types.Int(32)
	ctl2 := types.CtlState(2)

	zero := g.CreateSimpleNode(root, ops.Constant(i32, 0), nil)
	theta := rvsdg.NewTheta(root)
	lv := theta.AddLoopVar(zero.Outputs()[0])
	body := theta.Subregions()[0]
	accArg := lv.Argument

	gammaPred := g.CreateSimpleNode(body, ops.Constant(ctl2, 0), nil)
	gamma := rvsdg.NewGamma(body, gammaPred.Outputs()[0])
	ev := gamma.AddEntryVar(accArg)

	subs := gamma.Subregions()
	one := g.CreateSimpleNode(subs[0], ops.Constant(i32, 1), nil)
	inc := g.CreateSimpleNode(subs[0], ops.BinaryArith(ops.KindAdd, i32), []*rvsdg.Output{ev.Arguments[0], one.Outputs()[0]})
	continueFlag := g.CreateSimpleNode(subs[0], ops.Constant(ctl2, 0), nil)
	stopFlag := g.CreateSimpleNode(subs[1], ops.Constant(ctl2, 1), nil)

	accExit := gamma.AddExitVar([]*rvsdg.Output{inc.Outputs()[0], ev.Arguments[1]})
	predExit := gamma.AddExitVar([]*rvsdg.Output{continueFlag.Outputs()[0], stopFlag.Outputs()[0]})

	lv.Result.SetOrigin(accExit.Output)
	theta.CloseTheta(predExit.Output)

	root.AddResult(theta.Outputs()[0])
	return theta
}

func TestInvertibleRecognizesCanonicalShape(t *testing.T) {
	g := rvsdg.New()
	root := g.Root()
	theta := buildInvertibleLoop(g, root)

	if _, ok := invertible(theta); !ok {
		t.Fatal("expected the canonical gamma-bodied loop to be recognized as invertible")
	}
}

func TestInvertLoopRewritesToGammaOfTheta(t *testing.T) {
	g := rvsdg.New()
	root := g.Root()
	theta := buildInvertibleLoop(g, root)

	if !invert(theta) {
		t.Fatal("expected invert to succeed on the canonical shape")
	}

	var outerGamma *rvsdg.Node
	for _, n := range root.Nodes() {
		if n.IsStructural() && n.StructuralKind() == rvsdg.StructuralGamma {
			outerGamma = n
		}
		if n.IsStructural() && n.StructuralKind() == rvsdg.StructuralTheta {
			t.Fatal("expected the original theta to be removed")
		}
	}
	if outerGamma == nil {
		t.Fatal("expected a new outer gamma replacing the theta")
	}
	if len(outerGamma.Subregions()) != 2 {
		t.Fatalf("want a binary gamma, got %d subregions", len(outerGamma.Subregions()))
	}

	var foundNestedTheta bool
	var walk func(r *rvsdg.Region)
	walk = func(r *rvsdg.Region) {
		for _, n := range r.Nodes() {
			if n.IsStructural() {
				if n.StructuralKind() == rvsdg.StructuralTheta {
					foundNestedTheta = true
				}
				for _, sub := range n.Subregions() {
					walk(sub)
				}
			}
		}
	}
	for _, sub := range outerGamma.Subregions() {
		walk(sub)
	}
	if !foundNestedTheta {
		t.Fatal("expected a nested theta for the 'loop again' continuation path")
	}
}
