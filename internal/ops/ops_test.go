package ops

import (
	"testing"

	"rvsdgc/internal/types"
)

func equalitySamples() []Operation {
	i32 := types.Int(32)
	sig := types.Function([]types.Type{i32}, []types.Type{i32})
	return []Operation{
		Constant(i32, 7),
		Constant(i32, 7),
		Constant(i32, 8),
		Constant(types.Int(64), 7),
		BinaryArith(KindAdd, i32),
		BinaryArith(KindAdd, i32),
		BinaryArith(KindSub, i32),
		Store(i32, 1, 4),
		Store(i32, 1, 4),
		Store(i32, 1, 8),
		Store(i32, 2, 4),
		Load(i32, 1, 4),
		Alloca(i32, 4),
		Alloca(i32, 8),
		MemStateMux(2),
		Call("f", sig, 1),
		Call("g", sig, 1),
		Match(i32, []MatchAlternative{{Value: 0, Alternative: 0}, {Value: 1, Alternative: 1}}, 2),
		Match(i32, []MatchAlternative{{Value: 0, Alternative: 0}, {Value: 1, Alternative: 1}}, 2),
		Match(i32, []MatchAlternative{{Value: 0, Alternative: 1}, {Value: 1, Alternative: 0}}, 2),
		Assignment(i32),
	}
}

// TestEqualIsAnEquivalenceRelation checks reflexivity, symmetry, and
// transitivity over a payload-diverse sample set.
func TestEqualIsAnEquivalenceRelation(t *testing.T) {
	samples := equalitySamples()
	for i, a := range samples {
		if !Equal(a, a) {
			t.Errorf("sample %d (%s): Equal is not reflexive", i, a.DebugString())
		}
	}
	for i, a := range samples {
		for j, b := range samples {
			if Equal(a, b) != Equal(b, a) {
				t.Errorf("samples %d/%d: Equal is not symmetric", i, j)
			}
		}
	}
	for i, a := range samples {
		for j, b := range samples {
			if !Equal(a, b) {
				continue
			}
			for k, c := range samples {
				if Equal(b, c) && !Equal(a, c) {
					t.Errorf("samples %d/%d/%d: Equal is not transitive", i, j, k)
				}
			}
		}
	}
}

func TestEqualDistinguishesPayloads(t *testing.T) {
	i32 := types.Int(32)
	sig := types.Function([]types.Type{i32}, []types.Type{i32})
	cases := []struct {
		name string
		a, b Operation
	}{
		{"constant bits", Constant(i32, 1), Constant(i32, 2)},
		{"constant type", Constant(i32, 1), Constant(types.Int(64), 1)},
		{"arith kind", BinaryArith(KindAdd, i32), BinaryArith(KindSub, i32)},
		{"store alignment", Store(i32, 1, 4), Store(i32, 1, 8)},
		{"store state arity", Store(i32, 1, 4), Store(i32, 2, 4)},
		{"alloca alignment", Alloca(i32, 4), Alloca(i32, 8)},
		{"callee symbol", Call("f", sig, 0), Call("g", sig, 0)},
		{"match table", Match(i32, []MatchAlternative{{Value: 0, Alternative: 0}}, 2),
			Match(i32, []MatchAlternative{{Value: 0, Alternative: 1}}, 2)},
	}
	for _, c := range cases {
		if Equal(c.a, c.b) {
			t.Errorf("%s: expected inequality between %s and %s", c.name, c.a.DebugString(), c.b.DebugString())
		}
	}
}

func TestStoreSignatureShape(t *testing.T) {
	i32 := types.Int(32)
	op := Store(i32, 2, 4)
	if op.NumOperands() != 4 {
		t.Fatalf("store(ptr, value, s1, s2): want 4 operands, got %d", op.NumOperands())
	}
	if op.NumResults() != 2 {
		t.Fatalf("store results are its state outputs: want 2, got %d", op.NumResults())
	}
	if op.OperandTypes[0].Kind() != types.KindPointer {
		t.Fatal("store's first operand must be the address")
	}
	if !op.OperandTypes[2].IsState() || !op.ResultTypes[0].IsState() {
		t.Fatal("store threads state operands to state results")
	}
}

func TestCallSignatureShape(t *testing.T) {
	i32 := types.Int(32)
	sig := types.Function([]types.Type{i32, i32}, []types.Type{i32})
	op := Call("f", sig, 1)
	if op.NumOperands() != 4 { // callee, two args, one state
		t.Fatalf("want 4 operands, got %d", op.NumOperands())
	}
	if op.NumResults() != 2 { // one result, one state
		t.Fatalf("want 2 results, got %d", op.NumResults())
	}
	if !op.HasSideEffects() {
		t.Fatal("calls must report side effects")
	}
	if Store(i32, 1, 0).HasSideEffects() {
		t.Fatal("a store's effect is modeled by its state output, not by HasSideEffects")
	}
}
