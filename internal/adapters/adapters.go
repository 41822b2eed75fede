// Package adapters defines the import/export contracts at the core's
// boundary: the Importer and Emitter interfaces, with doc comments
// pinning the required call sequence.
//
// No concrete LLVM/FIRRTL implementation lives here; bitcode parsing
// and LLVM/FIRRTL/Verilog emission belong to external collaborators.
// TextImporter/TextEmitter, in text.go, are an in-memory test double
// over a tiny line-oriented textual IR, used only by this module's own
// conversion round-trip tests.
package adapters

import (
	"rvsdgc/internal/ir/module"
	"rvsdgc/internal/types"
)

// Importer consumes a foreign IR (an LLVM module, say) and emits a
// symbolic-IR module. Required call sequence: CreateType as needed
// while reading
// declarations, CreateFunction/CreateData per top-level symbol, then
// AppendBasicBlock/AppendTAC while reading a function body, finally
// Finalize once the whole foreign unit has been consumed.
type Importer interface {
	// CreateType interns (or resolves) a foreign type description into a
	// types.Type. Implementations are free to memoize; the return value
	// must compare structurally equal (types.Equal) across repeated
	// calls describing the same foreign type.
	CreateType(desc string) (types.Type, error)

	// CreateFunction declares a function in the target module, ready for
	// AppendBasicBlock/AppendTAC calls against its (initially
	// entry->exit-only) CFG.
	CreateFunction(name string, sig types.Type) (*module.Function, error)

	// AppendBasicBlock appends a new basic block labeled label to fn's
	// CFG; later AppendTAC(fn, label, ...) calls land in it.
	AppendBasicBlock(fn *module.Function, label string) error

	// AppendTAC appends one decoded three-address-code operation to the
	// named basic block of fn.
	AppendTAC(fn *module.Function, label string, opDesc string, operands, results []string) error

	// Finalize is called once after every declaration in the foreign
	// unit has been consumed, giving the importer a chance to resolve
	// forward references (e.g. a call to a function declared later in
	// the unit).
	Finalize() (*module.Module, error)
}

// Emitter consumes a symbolic-IR module and produces foreign IR (an
// LLVM module, or a FIRRTL + harness pair for a hardware back-end). The
// iteration contract: SCC order over the ipgraph for bottom-up
// processing, reverse post-order over each CFG, TACs per basic block in
// program order, and operation/operand type resolution throughout.
type Emitter interface {
	// EmitModule walks m's ipgraph in SCC order, each function's CFG in
	// reverse post-order, and each basic block's TACs in program order,
	// producing the foreign IR as a single opaque result (an LLVM
	// module, or a FIRRTL unit) the caller serializes onward.
	EmitModule(m *module.Module) (interface{}, error)
}
