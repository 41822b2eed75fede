// Package ops defines the primitive operation catalog shared by TAC
// quadruples and RVSDG simple nodes: a single tagged variant over a
// closed `Kind` enum, with operation-specific data in payload fields
// rather than one type per primitive.
package ops

import (
	"fmt"

	"rvsdgc/internal/types"
)

// Kind tags which primitive operation an Operation performs.
type Kind int

const (
	KindInvalid Kind = iota

	// Bit arithmetic.
	KindAdd
	KindSub
	KindMul
	KindSDiv
	KindUDiv
	KindSMod
	KindUMod
	KindAnd
	KindOr
	KindXor
	KindShl
	KindAShr
	KindLShr
	KindNeg

	// Comparisons, producing an i1.
	KindICmpEq
	KindICmpNe
	KindICmpSlt
	KindICmpSle
	KindICmpUlt
	KindICmpUle

	// Memory.
	KindLoad
	KindStore
	KindAlloca
	KindMemStateMux
	KindIOStateMux

	// Control / call.
	KindCall
	KindSelect
	KindMatch // control-state producer consumed by a gamma predicate

	// Conversion and constants.
	KindCast
	KindBitcast
	KindConstant
	KindUndef

	// Symbolic-IR-only.
	KindAssignment
)

var kindNames = map[Kind]string{
	KindAdd: "add", KindSub: "sub", KindMul: "mul", KindSDiv: "sdiv",
	KindUDiv: "udiv", KindSMod: "smod", KindUMod: "umod", KindAnd: "and",
	KindOr: "or", KindXor: "xor", KindShl: "shl", KindAShr: "ashr",
	KindLShr: "lshr", KindNeg: "neg",
	KindICmpEq: "icmp_eq", KindICmpNe: "icmp_ne", KindICmpSlt: "icmp_slt",
	KindICmpSle: "icmp_sle", KindICmpUlt: "icmp_ult", KindICmpUle: "icmp_ule",
	KindLoad: "load", KindStore: "store", KindAlloca: "alloca",
	KindMemStateMux: "memstatemux", KindIOStateMux: "iostatemux",
	KindCall: "call", KindSelect: "select", KindMatch: "match",
	KindCast: "cast", KindBitcast: "bitcast", KindConstant: "constant",
	KindUndef: "undef", KindAssignment: "assignment",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "invalid"
}

// MatchAlternative pairs a match-operation input value with the
// sub-region index it routes to.
type MatchAlternative struct {
	Value       int64
	Alternative int
}

// Operation is a tagged-variant description of a primitive op: its kind,
// its typed signature (operand/result arity and types), and any
// kind-specific payload. Two Operations compare equal via Equal, never
// via Go's `==` (payload slices make that unsound).
type Operation struct {
	Kind Kind

	OperandTypes []types.Type
	ResultTypes  []types.Type

	// KindConstant.
	ConstantBits  uint64 // integer/float bit pattern
	ConstantFloat float64

	// KindLoad/KindStore/KindAlloca: byte alignment, compared by Equal
	// and by the store-store normal form to check
	// alignment compatibility.
	Alignment int

	// KindAlloca: type of the allocated object (its address's pointee).
	AllocatedType *types.Type

	// KindCall/KindAssignment: human-readable callee/name; Equal
	// compares it for KindCall only.
	Symbol string

	// KindMatch: value -> alternative routing table.
	Alternatives []MatchAlternative

	// KindCast/KindBitcast: explicit result type redundant with
	// ResultTypes[0], kept for readability at call sites.
	CastTo *types.Type
}

// NumOperands returns the declared operand arity.
func (o Operation) NumOperands() int { return len(o.OperandTypes) }

// NumResults returns the declared result arity.
func (o Operation) NumResults() int { return len(o.ResultTypes) }

// HasSideEffects reports whether the operation must not be removed
// purely because its outputs are unused. Dead-node elimination consults
// this only after confirming every one of the operation's outputs
// (state outputs included) already has zero users; a store's effect is
// entirely modeled through its state output, so a store with no
// remaining consumer of that state output is plain dead, not a special
// case. Only calls, which may diverge or perform an effect with no
// representation as a state edge at all, are always treated as used.
func (o Operation) HasSideEffects() bool {
	switch o.Kind {
	case KindCall:
		return true
	default:
		return false
	}
}

// Equal is the structural-equality relation used by CSE and by the
// store/load normal forms.
func Equal(a, b Operation) bool {
	if a.Kind != b.Kind {
		return false
	}
	if !equalTypeSlice(a.OperandTypes, b.OperandTypes) {
		return false
	}
	if !equalTypeSlice(a.ResultTypes, b.ResultTypes) {
		return false
	}
	switch a.Kind {
	case KindConstant:
		return a.ConstantBits == b.ConstantBits && a.ConstantFloat == b.ConstantFloat
	case KindLoad, KindStore:
		return a.Alignment == b.Alignment
	case KindAlloca:
		return a.Alignment == b.Alignment && equalTypePtr(a.AllocatedType, b.AllocatedType)
	case KindCast, KindBitcast:
		return equalTypePtr(a.CastTo, b.CastTo)
	case KindMatch:
		if len(a.Alternatives) != len(b.Alternatives) {
			return false
		}
		for i := range a.Alternatives {
			if a.Alternatives[i] != b.Alternatives[i] {
				return false
			}
		}
		return true
	case KindCall:
		return a.Symbol == b.Symbol
	default:
		return true
	}
}

func equalTypeSlice(a, b []types.Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !types.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func equalTypePtr(a, b *types.Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	return types.Equal(*a, *b)
}

// DebugString renders a one-line operator mnemonic for diagnostics and
// debug views.
func (o Operation) DebugString() string {
	switch o.Kind {
	case KindConstant:
		return fmt.Sprintf("constant(%d)", o.ConstantBits)
	case KindCall:
		return fmt.Sprintf("call(%s)", o.Symbol)
	default:
		return o.Kind.String()
	}
}

// Constant builds a KindConstant operation producing a single value of t.
func Constant(t types.Type, bits uint64) Operation {
	return Operation{Kind: KindConstant, ResultTypes: []types.Type{t}, ConstantBits: bits}
}

// BinaryArith builds a two-operand, single-result arithmetic operation
// (add/sub/mul/div/mod/bitwise/shift) over operands and result of type t.
func BinaryArith(kind Kind, t types.Type) Operation {
	return Operation{Kind: kind, OperandTypes: []types.Type{t, t}, ResultTypes: []types.Type{t}}
}

// ICmp builds a two-operand comparison producing an i1.
func ICmp(kind Kind, operand types.Type) Operation {
	return Operation{Kind: kind, OperandTypes: []types.Type{operand, operand}, ResultTypes: []types.Type{types.Int(1)}}
}

// Load builds a load operation: (address, ...states) -> (value, ...states),
// threading one state value per entry in states for symmetry with Store.
func Load(valueType types.Type, nstates, alignment int) Operation {
	operands := append([]types.Type{types.Pointer(valueType)}, repeat(types.MemState(), nstates)...)
	results := append([]types.Type{valueType}, repeat(types.MemState(), nstates)...)
	return Operation{Kind: KindLoad, OperandTypes: operands, ResultTypes: results, Alignment: alignment}
}

// Store builds a store operation: (address, value, ...states) -> (...states).
func Store(valueType types.Type, nstates, alignment int) Operation {
	operands := append([]types.Type{types.Pointer(valueType), valueType}, repeat(types.MemState(), nstates)...)
	return Operation{Kind: KindStore, OperandTypes: operands, ResultTypes: repeat(types.MemState(), nstates), Alignment: alignment}
}

// Alloca builds an alloca operation: (size) -> (address, memstate).
func Alloca(allocated types.Type, alignment int) Operation {
	at := allocated
	return Operation{
		Kind:          KindAlloca,
		OperandTypes:  []types.Type{types.Int(64)},
		ResultTypes:   []types.Type{types.Pointer(allocated), types.MemState()},
		Alignment:     alignment,
		AllocatedType: &at,
	}
}

// MemStateMux builds an n-ary memory-state multiplexer:
// (...states) -> (...states), used by the store-mux normal form.
func MemStateMux(n int) Operation {
	return Operation{Kind: KindMemStateMux, OperandTypes: repeat(types.MemState(), n), ResultTypes: repeat(types.MemState(), n)}
}

// Call builds a call operation: (callee function value, ...args, ...states)
// -> (...results, ...states).
func Call(symbol string, sig types.Type, nstates int) Operation {
	operands := append([]types.Type{sig}, sig.Operands()...)
	operands = append(operands, repeat(types.MemState(), nstates)...)
	results := append(append([]types.Type{}, sig.Results()...), repeat(types.MemState(), nstates)...)
	return Operation{Kind: KindCall, OperandTypes: operands, ResultTypes: results, Symbol: symbol}
}

// Select builds a select operation: (i1 predicate, a, b) -> (result).
func Select(t types.Type) Operation {
	return Operation{Kind: KindSelect, OperandTypes: []types.Type{types.Int(1), t, t}, ResultTypes: []types.Type{t}}
}

// Match builds a control-value producer: (value) -> (ctl). The
// alternatives table maps input values to gamma sub-region indices.
func Match(operand types.Type, alternatives []MatchAlternative, numAlternatives int) Operation {
	cp := append([]MatchAlternative{}, alternatives...)
	return Operation{
		Kind:         KindMatch,
		OperandTypes: []types.Type{operand},
		ResultTypes:  []types.Type{types.CtlState(numAlternatives)},
		Alternatives: cp,
	}
}

// Cast builds a value-to-value conversion operation.
func Cast(from, to types.Type) Operation {
	t := to
	return Operation{Kind: KindCast, OperandTypes: []types.Type{from}, ResultTypes: []types.Type{to}, CastTo: &t}
}

// Assignment builds the symbolic-IR-only copy operation used to bind a
// variable to the value of an expression.
func Assignment(t types.Type) Operation {
	return Operation{Kind: KindAssignment, OperandTypes: []types.Type{t}, ResultTypes: []types.Type{t}}
}

func repeat(t types.Type, n int) []types.Type {
	out := make([]types.Type, n)
	for i := range out {
		out[i] = t
	}
	return out
}
