package adapters

import (
	"strings"
	"testing"

	"rvsdgc/internal/ir/cfg"
)

const sampleSource = `module roundtrip
func add_one(i32) -> (i32)
block bb0
  %0 = const i32 1
  %1 = add i32 %arg0, %0
ret %1
endfunc
`

func TestImportTextBuildsModule(t *testing.T) {
	m, err := ImportText(sampleSource)
	if err != nil {
		t.Fatalf("ImportText: %v", err)
	}
	fn, ok := m.LookupFunction("add_one")
	if !ok {
		t.Fatal("expected function add_one in the imported module")
	}
	if fn.Cfg == nil {
		t.Fatal("expected a CFG to be attached")
	}
	if len(fn.Returns) != 1 {
		t.Fatalf("expected one return variable, got %d", len(fn.Returns))
	}
	if fn.Returns[0].Name() != "%1" {
		t.Fatalf("expected the return variable to be %%1, got %s", fn.Returns[0].Name())
	}
	var tacCount int
	for _, n := range fn.Cfg.Nodes() {
		if n.Kind() == cfg.KindBasicBlock {
			tacCount += n.Tacs().Len()
		}
	}
	if tacCount != 2 {
		t.Fatalf("expected 2 TACs across the imported CFG, got %d", tacCount)
	}
}

func TestImportEmitRoundTrip(t *testing.T) {
	m, err := ImportText(sampleSource)
	if err != nil {
		t.Fatalf("ImportText: %v", err)
	}
	out, err := EmitText(m)
	if err != nil {
		t.Fatalf("EmitText: %v", err)
	}
	if !strings.Contains(out, "func add_one(i32) -> (i32)") {
		t.Fatalf("expected function header preserved, got:\n%s", out)
	}
	if !strings.Contains(out, "const i32 1") {
		t.Fatalf("expected constant TAC preserved, got:\n%s", out)
	}
	if !strings.Contains(out, "add i32 %arg0, %0") {
		t.Fatalf("expected add TAC preserved, got:\n%s", out)
	}
	if !strings.Contains(out, "ret %1") {
		t.Fatalf("expected ret line preserved, got:\n%s", out)
	}

	m2, err := ImportText(out)
	if err != nil {
		t.Fatalf("re-importing emitted text: %v", err)
	}
	out2, err := EmitText(m2)
	if err != nil {
		t.Fatalf("EmitText (second pass): %v", err)
	}
	if out != out2 {
		t.Fatalf("expected emit(import(emit(import(src)))) to be a fixed point:\n%s\n---\n%s", out, out2)
	}
}

func TestParseTypeRoundTrips(t *testing.T) {
	for _, desc := range []string{"i32", "i1", "i64*", "mem", "io"} {
		typ, err := ParseType(desc)
		if err != nil {
			t.Fatalf("ParseType(%q): %v", desc, err)
		}
		if typ.String() != desc {
			t.Fatalf("ParseType(%q).String() = %q, want %q", desc, typ.String(), desc)
		}
	}
}

func TestImportTextRejectsUnknownOperand(t *testing.T) {
	src := `module bad
func f() -> (i32)
block bb0
  %0 = add i32 %missing, %missing
ret %0
endfunc
`
	if _, err := ImportText(src); err == nil {
		t.Fatal("expected an error referencing an undefined operand")
	}
}
