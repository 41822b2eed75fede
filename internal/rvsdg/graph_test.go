package rvsdg

import (
	"testing"

	ierrors "rvsdgc/internal/errors"
	"rvsdgc/internal/ops"
	"rvsdgc/internal/types"
)

func i32() types.Type { return types.Int(32) }

// TestUsersMaintainedBidirectionally: an input appears in its origin's
// users set, and no longer does after a divert.
func TestUsersMaintainedBidirectionally(t *testing.T) {
	g := New()
	region := g.Root()
	a := region.AddArgument(i32())
	b := region.AddArgument(i32())
	n := g.CreateSimpleNode(region, ops.BinaryArith(ops.KindAdd, i32()), []*Output{a, a})

	in := n.Inputs()[0]
	found := false
	for _, u := range in.Origin().Users() {
		if u == in {
			found = true
		}
	}
	if !found {
		t.Fatal("inputs[0].Origin().Users() must contain inputs[0]")
	}

	a.Divert(b)
	if in.Origin() != b {
		t.Fatal("divert must rebind the input's origin")
	}
	for _, u := range a.Users() {
		if u == in {
			t.Fatal("after divert, the old origin's users must not contain the input")
		}
	}
	if a.NumUsers() != 0 {
		t.Fatalf("old origin should have no users left, got %d", a.NumUsers())
	}
}

func TestRemoveNodeWithUsersAborts(t *testing.T) {
	g := New()
	region := g.Root()
	c1 := g.CreateSimpleNode(region, ops.Constant(i32(), 1), nil)
	g.CreateSimpleNode(region, ops.BinaryArith(ops.KindAdd, i32()), []*Output{c1.Outputs()[0], c1.Outputs()[0]})

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("removing a node with live users must abort")
		}
		if _, ok := r.(*ierrors.InvariantError); !ok {
			t.Fatalf("want *errors.InvariantError, got %T", r)
		}
	}()
	c1.Remove()
}

func TestCreateSimpleNodeRejectsTypeMismatch(t *testing.T) {
	g := New()
	region := g.Root()
	a := region.AddArgument(types.Int(64))

	defer func() {
		if recover() == nil {
			t.Fatal("operand type mismatch must abort")
		}
	}()
	g.CreateSimpleNode(region, ops.BinaryArith(ops.KindAdd, i32()), []*Output{a, a})
}

func TestSetOriginRejectsCrossRegionOrigin(t *testing.T) {
	g := New()
	root := g.Root()
	outer := root.AddArgument(i32())
	sig := types.Function([]types.Type{i32()}, []types.Type{i32()})
	lambda := NewLambda(root, sig, "f")
	inner := g.CreateSimpleNode(lambda.Subregions()[0], ops.BinaryArith(ops.KindAdd, i32()),
		[]*Output{lambda.FctArgument(0), lambda.FctArgument(0)})

	defer func() {
		if recover() == nil {
			t.Fatal("binding an input to an origin in a different region must abort (nesting invariant)")
		}
	}()
	inner.Inputs()[0].SetOrigin(outer)
}

func TestThetaLoopVarSymmetry(t *testing.T) {
	g := New()
	region := g.Root()
	init := region.AddArgument(i32())

	theta := NewTheta(region)
	lv1 := theta.AddLoopVar(init)
	lv2 := theta.AddLoopVar(init)
	pred := g.CreateSimpleNode(theta.Subregions()[0], ops.Constant(types.CtlState(2), 0), nil)
	theta.CloseTheta(pred.Outputs()[0])
	lv3 := theta.AddLoopVar(init) // added after closing: must slot in before the predicate

	lvs := theta.LoopVars()
	if len(lvs) != 3 {
		t.Fatalf("want 3 loop vars, got %d", len(lvs))
	}
	for i, lv := range []*LoopVar{lv1, lv2, lv3} {
		if lvs[i].Argument != lv.Argument || lvs[i].Result != lv.Result {
			t.Fatalf("loop var %d: argument/result pair not in lockstep order", i)
		}
		if lvs[i].Argument.Index() != i || lvs[i].Result.Index() != i {
			t.Fatalf("loop var %d: argument/result indices diverged (%d/%d)", i, lvs[i].Argument.Index(), lvs[i].Result.Index())
		}
	}
	if theta.ThetaPredicate().Index() != 3 {
		t.Fatalf("predicate result must stay last, got index %d", theta.ThetaPredicate().Index())
	}
}

func TestGammaRequiresControlPredicate(t *testing.T) {
	g := New()
	region := g.Root()
	notCtl := region.AddArgument(i32())

	defer func() {
		if recover() == nil {
			t.Fatal("gamma on a non-control predicate must abort")
		}
	}()
	NewGamma(region, notCtl)
}

// TestRemoveStructuralNodeTearsDownSubregions: removing a gamma whose
// sub-region results still consume inner nodes must succeed; the region
// teardown detaches results before removing producers.
func TestRemoveStructuralNodeTearsDownSubregions(t *testing.T) {
	g := New()
	region := g.Root()
	predOrigin := g.CreateSimpleNode(region, ops.Constant(types.CtlState(2), 0), nil)
	val := region.AddArgument(i32())

	gamma := NewGamma(region, predOrigin.Outputs()[0])
	ev := gamma.AddEntryVar(val)
	one := g.CreateSimpleNode(gamma.Subregions()[0], ops.Constant(i32(), 1), nil)
	inc := g.CreateSimpleNode(gamma.Subregions()[0], ops.BinaryArith(ops.KindAdd, i32()),
		[]*Output{ev.Arguments[0], one.Outputs()[0]})
	gamma.AddExitVar([]*Output{inc.Outputs()[0], ev.Arguments[1]})

	gamma.Remove()
	if len(region.Nodes()) != 1 {
		t.Fatalf("want only the predicate constant left, got %d nodes", len(region.Nodes()))
	}
}

func TestRegionIsAcyclicOnDAG(t *testing.T) {
	g := New()
	region := g.Root()
	a := region.AddArgument(i32())
	n1 := g.CreateSimpleNode(region, ops.BinaryArith(ops.KindAdd, i32()), []*Output{a, a})
	g.CreateSimpleNode(region, ops.BinaryArith(ops.KindAdd, i32()), []*Output{n1.Outputs()[0], a})
	if !region.IsAcyclic() {
		t.Fatal("a freshly built region must be a DAG")
	}
}

func TestTopDownTraverserDepthOrder(t *testing.T) {
	g := New()
	region := g.Root()
	a := region.AddArgument(i32())
	n1 := g.CreateSimpleNode(region, ops.BinaryArith(ops.KindAdd, i32()), []*Output{a, a})
	g.CreateSimpleNode(region, ops.BinaryArith(ops.KindAdd, i32()), []*Output{n1.Outputs()[0], a})
	g.CreateSimpleNode(region, ops.Constant(i32(), 5), nil)

	last := -1
	for _, n := range NewTopDownTraverser(region).All() {
		if n.Depth() < last {
			t.Fatalf("top-down traversal yielded depth %d after %d", n.Depth(), last)
		}
		last = n.Depth()
	}

	prev := int(^uint(0) >> 1)
	for _, n := range NewBottomUpTraverser(region).All() {
		if n.Depth() > prev {
			t.Fatalf("bottom-up traversal yielded depth %d after %d", n.Depth(), prev)
		}
		prev = n.Depth()
	}
}

func TestTraverserSeesNodesCreatedDuringIteration(t *testing.T) {
	g := New()
	region := g.Root()
	a := region.AddArgument(i32())
	g.CreateSimpleNode(region, ops.BinaryArith(ops.KindAdd, i32()), []*Output{a, a})

	tr := NewTopDownTraverser(region)
	var visited int
	for n := tr.Next(); n != nil; n = tr.Next() {
		visited++
		if visited == 1 {
			g.CreateSimpleNode(region, ops.Constant(i32(), 9), nil)
		}
	}
	tr.Close()
	if visited != 2 {
		t.Fatalf("a node created mid-iteration must be appended to the queue: visited %d", visited)
	}
}

type recordingSubscriber struct {
	NopSubscriber
	created, destroyed int
	changes            int
}

func (r *recordingSubscriber) OnNodeCreate(*Node)  { r.created++ }
func (r *recordingSubscriber) OnNodeDestroy(*Node) { r.destroyed++ }

func (r *recordingSubscriber) OnInputChange(*Input, *Output, *Output) { r.changes++ }

func TestNotifiersFireSynchronously(t *testing.T) {
	g := New()
	region := g.Root()
	rec := &recordingSubscriber{}
	sub := g.Subscribe(rec)
	defer sub.Close()

	a := region.AddArgument(i32())
	b := region.AddArgument(i32())
	n := g.CreateSimpleNode(region, ops.BinaryArith(ops.KindAdd, i32()), []*Output{a, a})
	if rec.created != 1 {
		t.Fatalf("want 1 node-create event, got %d", rec.created)
	}
	a.Divert(b)
	if rec.changes == 0 {
		t.Fatal("divert must fire input-change events")
	}
	n.Remove()
	if rec.destroyed != 1 {
		t.Fatalf("want 1 node-destroy event, got %d", rec.destroyed)
	}

	sub.Close()
	before := rec.created
	g.CreateSimpleNode(region, ops.Constant(i32(), 0), nil)
	if rec.created != before {
		t.Fatal("a closed subscription must not receive further events")
	}
}

// TestCopyLambdaUnderSubstitution exercises Region.Copy the way inlining
// does: a lambda body copied into the root with its formal parameter
// substituted by a concrete value.
func TestCopyLambdaUnderSubstitution(t *testing.T) {
	g := New()
	root := g.Root()
	sig := types.Function([]types.Type{i32()}, []types.Type{i32()})
	lambda := NewLambda(root, sig, "f")
	body := lambda.Subregions()[0]
	one := g.CreateSimpleNode(body, ops.Constant(i32(), 1), nil)
	sum := g.CreateSimpleNode(body, ops.BinaryArith(ops.KindAdd, i32()),
		[]*Output{lambda.FctArgument(0), one.Outputs()[0]})
	lambda.FinishLambda([]*Output{sum.Outputs()[0]})

	three := g.CreateSimpleNode(root, ops.Constant(i32(), 3), nil)
	smap := NewSubstitutionMap()
	smap.Insert(lambda.FctArgument(0), three.Outputs()[0])
	body.Copy(root, smap)

	copied, ok := smap.Lookup(sum.Outputs()[0])
	if !ok {
		t.Fatal("copying must record the body outputs in the substitution map")
	}
	if copied.Region() != root {
		t.Fatal("the copied add must live in the target region")
	}
	if copied.Node().Inputs()[0].Origin() != three.Outputs()[0] {
		t.Fatal("the copied add's first operand must resolve through the substitution map")
	}
}
