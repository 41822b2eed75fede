package cfg

import (
	"testing"

	ierrors "rvsdgc/internal/errors"
	"rvsdgc/internal/types"
)

func TestNewStartsWithEntryToExit(t *testing.T) {
	c := New()
	if c.NumNodes() != 2 {
		t.Fatalf("want 2 nodes (entry, exit), got %d", c.NumNodes())
	}
	if len(c.Entry().OutEdges()) != 1 || c.Entry().OutEdges()[0].Target != c.Exit() {
		t.Fatal("a fresh CFG must contain exactly entry -> exit")
	}
	if c.Entry().NumInEdges() != 0 {
		t.Fatal("entry must have no inedges")
	}
	if len(c.Exit().OutEdges()) != 0 {
		t.Fatal("exit must have no outedges")
	}
}

func TestOutEdgeIndicesAreDense(t *testing.T) {
	c := New()
	c.Entry().RemoveOutEdges()
	b := c.CreateBasicBlock()
	t1 := c.CreateBasicBlock()
	t2 := c.CreateBasicBlock()
	t3 := c.CreateBasicBlock()
	c.Entry().AddOutEdge(b)
	b.AddOutEdge(t1)
	b.AddOutEdge(t2)
	b.AddOutEdge(t3)
	for i, e := range b.OutEdges() {
		if e.Index != i {
			t.Fatalf("edge %d carries index %d; indices must be dense 0..n-1", i, e.Index)
		}
	}
}

func TestRemoveNodeWithInEdgesAborts(t *testing.T) {
	c := New()
	c.Entry().RemoveOutEdges()
	b := c.CreateBasicBlock()
	c.Entry().AddOutEdge(b)
	b.AddOutEdge(c.Exit())

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("removing a node with inedges must abort")
		}
		if _, ok := r.(*ierrors.InvariantError); !ok {
			t.Fatalf("want *errors.InvariantError, got %T", r)
		}
	}()
	c.RemoveNode(b)
}

func TestRemoveDetachedNode(t *testing.T) {
	c := New()
	b := c.CreateBasicBlock()
	b.AddOutEdge(c.Exit())
	before := c.Exit().NumInEdges()
	c.RemoveNode(b)
	if c.NumNodes() != 2 {
		t.Fatalf("want entry and exit only after removal, got %d nodes", c.NumNodes())
	}
	if c.Exit().NumInEdges() != before-1 {
		t.Fatal("removing a node must sever its outedges from the targets' inedge lists")
	}
}

func TestDivertInEdges(t *testing.T) {
	c := New()
	b := c.CreateBasicBlock()
	c.Exit().DivertInEdges(b)
	if c.Exit().NumInEdges() != 0 {
		t.Fatal("diverting must empty the old target's inedges")
	}
	if b.NumInEdges() != 1 || b.InEdges()[0].Source != c.Entry() {
		t.Fatal("the entry edge must now land on the diverted-to block")
	}
}

func TestReversePostOrderVisitsEntryFirstExitLast(t *testing.T) {
	c := New()
	c.Entry().RemoveOutEdges()
	a := c.CreateBasicBlock()
	b := c.CreateBasicBlock()
	c.Entry().AddOutEdge(a)
	a.AddOutEdge(b)
	b.AddOutEdge(c.Exit())

	rpo := c.ReversePostOrder()
	if len(rpo) != 4 {
		t.Fatalf("want 4 reachable nodes, got %d", len(rpo))
	}
	if rpo[0] != c.Entry() {
		t.Fatal("RPO must start at entry")
	}
	if rpo[len(rpo)-1] != c.Exit() {
		t.Fatal("RPO must end at exit for a straight-line CFG")
	}
}

func TestEveryNodeReachesExit(t *testing.T) {
	c := New()
	if !c.EveryNodeReachesExit() {
		t.Fatal("entry -> exit trivially reaches exit")
	}
	orphan := c.CreateBasicBlock()
	if c.EveryNodeReachesExit() {
		t.Fatal("a block with no path to exit must be detected")
	}
	orphan.AddOutEdge(c.Exit())
	if !c.EveryNodeReachesExit() {
		t.Fatal("wiring the block to exit restores the invariant")
	}
}

func TestVariablesAreCfgScoped(t *testing.T) {
	c1 := New()
	c2 := New()
	v1 := c1.Variables().NewLocal(types.Int(32), "")
	v2 := c2.Variables().NewLocal(types.Int(32), "")
	if v1.OwnerCFG() == v2.OwnerCFG() {
		t.Fatal("locals from different CFGs must carry distinct owner tags")
	}
}

func TestUnreachableHasNoOutEdges(t *testing.T) {
	c := New()
	u := c.CreateUnreachable()
	if u.Kind() != KindUnreachable {
		t.Fatalf("want KindUnreachable, got %v", u.Kind())
	}
	if len(u.OutEdges()) != 0 {
		t.Fatal("an unreachable marker must never fall through")
	}
}
