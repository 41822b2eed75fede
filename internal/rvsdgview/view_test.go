package rvsdgview

import (
	"strings"
	"testing"

	"rvsdgc/internal/ops"
	"rvsdgc/internal/rvsdg"
	"rvsdgc/internal/types"
)

func buildSample() *rvsdg.Region {
	g := rvsdg.New()
	region := g.Root()
	a := region.AddArgument(types.Int(32))
	b := region.AddArgument(types.Int(32))
	sum := g.CreateSimpleNode(region, ops.BinaryArith(ops.KindAdd, types.Int(32)), []*rvsdg.Output{a, b})
	doubled := g.CreateSimpleNode(region, ops.BinaryArith(ops.KindAdd, types.Int(32)),
		[]*rvsdg.Output{sum.Outputs()[0], sum.Outputs()[0]})
	region.AddResult(doubled.Outputs()[0])
	return region
}

func TestViewTextIncludesNodesAndResults(t *testing.T) {
	text := ViewText(buildSample())
	if !strings.Contains(text, "add(") {
		t.Fatalf("expected the add node rendered, got:\n%s", text)
	}
	if !strings.Contains(text, "result 0") {
		t.Fatalf("expected a result line, got:\n%s", text)
	}
}

func TestViewXMLRoundTripsStructure(t *testing.T) {
	out, err := ViewXML(buildSample())
	if err != nil {
		t.Fatalf("ViewXML: %v", err)
	}
	if !strings.Contains(out, "<region") {
		t.Fatalf("expected a region element, got:\n%s", out)
	}
	if !strings.Contains(out, "<node") {
		t.Fatalf("expected a node element, got:\n%s", out)
	}
}

func TestViewDotHasClusterAndEdge(t *testing.T) {
	dot := ViewDot(buildSample())
	if !strings.Contains(dot, "subgraph cluster_0") {
		t.Fatalf("expected a root cluster, got:\n%s", dot)
	}
	if !strings.Contains(dot, "->") {
		t.Fatalf("expected at least one edge, got:\n%s", dot)
	}
}

func TestViewFallbackNonEmpty(t *testing.T) {
	if ViewFallback(struct{ X int }{X: 1}) == "" {
		t.Fatal("expected a non-empty fallback rendering")
	}
}
