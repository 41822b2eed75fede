package pointsto

import (
	"strings"
	"testing"

	"rvsdgc/internal/ops"
	"rvsdgc/internal/rvsdg"
	"rvsdgc/internal/types"
)

func TestAddAllocationIdempotent(t *testing.T) {
	g := rvsdg.New()
	region := g.Root()
	size := region.AddArgument(types.Int(64))
	alloca := g.CreateSimpleNode(region, ops.Alloca(types.Int(32), 4), []*rvsdg.Output{size})

	ptg := New()
	n1 := ptg.AddAllocation(alloca)
	n2 := ptg.AddAllocation(alloca)
	if n1 != n2 {
		t.Fatalf("AddAllocation should be idempotent on the producer key")
	}
	if _, err := ptg.FindAllocation(alloca); err != nil {
		t.Fatalf("FindAllocation: %v", err)
	}
}

func TestUnknownSingleton(t *testing.T) {
	ptg := New()
	if ptg.Unknown() == nil {
		t.Fatal("expected a non-nil unknown sentinel at construction")
	}
	if ptg.Unknown().Kind() != KindUnknown {
		t.Fatalf("want KindUnknown, got %v", ptg.Unknown().Kind())
	}
}

func TestAddEdgeRejectsRegisterTarget(t *testing.T) {
	g := rvsdg.New()
	region := g.Root()
	p := region.AddArgument(types.Pointer(types.Int(32)))

	ptg := New()
	reg := ptg.AddRegister(p)

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected AddEdge to a register target to panic (invariant violation)")
		}
	}()
	ptg.Unknown().AddEdge(reg)
}

func TestTargetsAndRemoveEdge(t *testing.T) {
	g := rvsdg.New()
	region := g.Root()
	size := region.AddArgument(types.Int(64))
	alloca1 := g.CreateSimpleNode(region, ops.Alloca(types.Int(32), 4), []*rvsdg.Output{size})
	alloca2 := g.CreateSimpleNode(region, ops.Alloca(types.Int(32), 4), []*rvsdg.Output{size})
	p := region.AddArgument(types.Pointer(types.Int(32)))

	ptg := New()
	reg := ptg.AddRegister(p)
	a1 := ptg.AddAllocation(alloca1)
	a2 := ptg.AddAllocation(alloca2)

	reg.AddEdge(a1)
	reg.AddEdge(a2)
	reg.AddEdge(ptg.Unknown())

	if len(reg.Targets()) != 3 {
		t.Fatalf("want 3 targets, got %d", len(reg.Targets()))
	}
	if len(a1.Sources()) != 1 || a1.Sources()[0] != reg {
		t.Fatalf("want a1's only source to be reg")
	}

	reg.RemoveEdge(a2)
	if len(reg.Targets()) != 2 {
		t.Fatalf("want 2 targets after RemoveEdge, got %d", len(reg.Targets()))
	}
	if len(a2.Sources()) != 0 {
		t.Fatalf("want a2 to have no sources after RemoveEdge")
	}
}

func TestNumNodesCountsUnknown(t *testing.T) {
	g := rvsdg.New()
	region := g.Root()
	p := region.AddArgument(types.Pointer(types.Int(32)))

	ptg := New()
	if ptg.NumNodes() != 1 {
		t.Fatalf("want 1 (just unknown) on a fresh graph, got %d", ptg.NumNodes())
	}
	ptg.AddRegister(p)
	ptg.AddImport("errno")
	if ptg.NumNodes() != 3 {
		t.Fatalf("want 3 nodes, got %d", ptg.NumNodes())
	}
}

func TestToDotRendersEdges(t *testing.T) {
	g := rvsdg.New()
	region := g.Root()
	p := region.AddArgument(types.Pointer(types.Int(32)))

	ptg := New()
	reg := ptg.AddRegister(p)
	reg.AddEdge(ptg.Unknown())

	dot := ToDot(ptg)
	if !strings.HasPrefix(dot, "digraph PointsToGraph {") {
		t.Fatalf("expected a digraph header, got %q", dot)
	}
	if !strings.Contains(dot, "->") {
		t.Fatalf("expected at least one edge in dot output:\n%s", dot)
	}
}

func TestFindMissingReturnsNotFoundError(t *testing.T) {
	ptg := New()
	_, err := ptg.FindImport("nope")
	if err == nil {
		t.Fatal("expected a NotFoundError")
	}
	nfe, ok := err.(*NotFoundError)
	if !ok {
		t.Fatalf("want *NotFoundError, got %T", err)
	}
	if nfe.Kind != KindImport {
		t.Fatalf("want KindImport, got %v", nfe.Kind)
	}
}
