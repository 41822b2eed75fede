// Package types defines the value and state type system shared by the
// symbolic IR and the RVSDG layer.
//
// Two families exist: value types carry data (integers, floats, pointers,
// arrays, structs, functions); state types carry ordering (memory, I/O,
// loop-control). Types compare by structural equality, never identity,
// dispatched over a tagged-variant `Kind` switch rather than a class
// hierarchy.
package types

import (
	"fmt"
	"strings"
)

// Kind tags which variant of Type a value holds.
type Kind int

const (
	KindInvalid Kind = iota
	KindInt
	KindFloat
	KindPointer
	KindArray
	KindStruct
	KindFunction
	// State kinds.
	KindMemState
	KindIOState
	KindCtlState
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindPointer:
		return "ptr"
	case KindArray:
		return "array"
	case KindStruct:
		return "struct"
	case KindFunction:
		return "function"
	case KindMemState:
		return "memstate"
	case KindIOState:
		return "iostate"
	case KindCtlState:
		return "ctlstate"
	default:
		return "invalid"
	}
}

// FloatPrecision enumerates the IEEE precisions supported.
type FloatPrecision int

const (
	FloatHalf FloatPrecision = iota
	FloatSingle
	FloatDouble
	FloatQuad
)

// Type is a structural, immutable value or state type. Construct instances
// with the constructor functions below rather than the zero value.
type Type struct {
	kind Kind

	// KindInt
	width int

	// KindFloat
	precision FloatPrecision

	// KindPointer
	pointee *Type

	// KindArray
	length  int
	element *Type

	// KindStruct
	structName string
	fields     []Type

	// KindFunction
	operands []Type
	results  []Type

	// KindCtlState: number of alternatives a control value selects
	// between, the arity a gamma predicate must match.
	alternatives int
}

// Kind reports which variant this Type holds.
func (t Type) Kind() Kind { return t.kind }

// IsState reports whether this is a state type (memory, I/O, control),
// as opposed to a value type.
func (t Type) IsState() bool {
	switch t.kind {
	case KindMemState, KindIOState, KindCtlState:
		return true
	default:
		return false
	}
}

// Int builds a bit-vector value type of the given width.
func Int(width int) Type {
	if width <= 0 {
		panic(fmt.Sprintf("types: non-positive integer width %d", width))
	}
	return Type{kind: KindInt, width: width}
}

// Width returns the bit width of an integer type.
func (t Type) Width() int { return t.width }

// Float builds an IEEE float value type of the given precision.
func Float(p FloatPrecision) Type { return Type{kind: KindFloat, precision: p} }

// Precision returns the float precision.
func (t Type) Precision() FloatPrecision { return t.precision }

// Pointer builds a pointer-to-T value type.
func Pointer(pointee Type) Type { return Type{kind: KindPointer, pointee: &pointee} }

// Pointee returns the type pointed to. Panics if t is not KindPointer.
func (t Type) Pointee() Type {
	if t.kind != KindPointer {
		panic("types: Pointee of non-pointer type")
	}
	return *t.pointee
}

// Array builds an array[N] of T value type.
func Array(length int, element Type) Type {
	return Type{kind: KindArray, length: length, element: &element}
}

// Length returns the element count of an array type.
func (t Type) Length() int { return t.length }

// Element returns the element type of an array type.
func (t Type) Element() Type {
	if t.kind != KindArray {
		panic("types: Element of non-array type")
	}
	return *t.element
}

// Struct builds a struct type with a declared field layout. Name takes
// part in Equal as well as in debug views; two structs
// with the same field layout but different names are NOT equal: struct
// identity is nominal.
func Struct(name string, fields ...Type) Type {
	cp := make([]Type, len(fields))
	copy(cp, fields)
	return Type{kind: KindStruct, structName: name, fields: cp}
}

// Fields returns the declared field types of a struct type.
func (t Type) Fields() []Type { return t.fields }

// StructName returns the declared name of a struct type.
func (t Type) StructName() string { return t.structName }

// Function builds a function signature type: an ordered list of operand
// types and an ordered list of result types.
func Function(operands, results []Type) Type {
	op := make([]Type, len(operands))
	copy(op, operands)
	res := make([]Type, len(results))
	copy(res, results)
	return Type{kind: KindFunction, operands: op, results: res}
}

// Operands returns the operand types of a function type.
func (t Type) Operands() []Type { return t.operands }

// Results returns the result types of a function type.
func (t Type) Results() []Type { return t.results }

// MemState is the singleton memory-ordering state type.
func MemState() Type { return Type{kind: KindMemState} }

// IOState is the singleton I/O-ordering state type.
func IOState() Type { return Type{kind: KindIOState} }

// CtlState builds a control-predicate state type with a statically known
// arity (the number of gamma sub-regions it can select between).
func CtlState(alternatives int) Type {
	if alternatives < 1 {
		panic("types: control state needs at least one alternative")
	}
	return Type{kind: KindCtlState, alternatives: alternatives}
}

// Alternatives returns the arity of a control state type.
func (t Type) Alternatives() int { return t.alternatives }

// Equal reports structural equality as one recursive comparison over
// the variant tag and payload.
func Equal(a, b Type) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindInt:
		return a.width == b.width
	case KindFloat:
		return a.precision == b.precision
	case KindPointer:
		return Equal(*a.pointee, *b.pointee)
	case KindArray:
		return a.length == b.length && Equal(*a.element, *b.element)
	case KindStruct:
		if a.structName != b.structName || len(a.fields) != len(b.fields) {
			return false
		}
		for i := range a.fields {
			if !Equal(a.fields[i], b.fields[i]) {
				return false
			}
		}
		return true
	case KindFunction:
		return equalSlices(a.operands, b.operands) && equalSlices(a.results, b.results)
	case KindCtlState:
		return a.alternatives == b.alternatives
	case KindMemState, KindIOState:
		return true
	default:
		return true
	}
}

func equalSlices(a, b []Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// String renders a type the way the debug views want it:
// terse, C-like.
func (t Type) String() string {
	switch t.kind {
	case KindInt:
		return fmt.Sprintf("i%d", t.width)
	case KindFloat:
		switch t.precision {
		case FloatHalf:
			return "half"
		case FloatSingle:
			return "float"
		case FloatDouble:
			return "double"
		case FloatQuad:
			return "quad"
		}
		return "float?"
	case KindPointer:
		return t.pointee.String() + "*"
	case KindArray:
		return fmt.Sprintf("[%d x %s]", t.length, t.element.String())
	case KindStruct:
		parts := make([]string, len(t.fields))
		for i, f := range t.fields {
			parts[i] = f.String()
		}
		if t.structName != "" {
			return fmt.Sprintf("%%%s{%s}", t.structName, strings.Join(parts, ", "))
		}
		return fmt.Sprintf("{%s}", strings.Join(parts, ", "))
	case KindFunction:
		ops := make([]string, len(t.operands))
		for i, o := range t.operands {
			ops[i] = o.String()
		}
		res := make([]string, len(t.results))
		for i, r := range t.results {
			res[i] = r.String()
		}
		return fmt.Sprintf("(%s) -> (%s)", strings.Join(ops, ", "), strings.Join(res, ", "))
	case KindMemState:
		return "mem"
	case KindIOState:
		return "io"
	case KindCtlState:
		return fmt.Sprintf("ctl(%d)", t.alternatives)
	default:
		return "<invalid>"
	}
}
