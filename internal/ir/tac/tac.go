// Package tac implements three-address code: the quadruple (operation,
// ordered operand variables, ordered result variables) that basic blocks
// hold.
package tac

import (
	"fmt"
	"strings"

	"rvsdgc/internal/errors"
	"rvsdgc/internal/ir/variable"
	"rvsdgc/internal/ops"
	"rvsdgc/internal/types"
)

// TAC is one three-address-code instruction: an operation plus its bound
// operand and result variables. Arity and types of Operands/Results must
// match op.OperandTypes/ResultTypes exactly; enforced at construction
// via New, which aborts rather than returning an error: a mismatch is a
// programmer error, not an input condition.
type TAC struct {
	Op       ops.Operation
	Operands []*variable.Variable
	Results  []*variable.Variable
}

// New builds a TAC, asserting the operand/result arity and types match
// op's declared signature.
func New(op ops.Operation, operands, results []*variable.Variable) *TAC {
	if len(operands) != op.NumOperands() {
		errors.Fatalf(errors.Coordinate{Component: "tac"},
			"operand arity mismatch for %s: want %d, got %d", op.DebugString(), op.NumOperands(), len(operands))
	}
	if len(results) != op.NumResults() {
		errors.Fatalf(errors.Coordinate{Component: "tac"},
			"result arity mismatch for %s: want %d, got %d", op.DebugString(), op.NumResults(), len(results))
	}
	for i, v := range operands {
		if !types.Equal(v.Type(), op.OperandTypes[i]) {
			errors.Fatalf(errors.Coordinate{Component: "tac"},
				"operand %d type mismatch for %s: variable has %s, operation wants %s",
				i, op.DebugString(), v.Type(), op.OperandTypes[i])
		}
	}
	for i, v := range results {
		if !types.Equal(v.Type(), op.ResultTypes[i]) {
			errors.Fatalf(errors.Coordinate{Component: "tac"},
				"result %d type mismatch for %s: variable has %s, operation wants %s",
				i, op.DebugString(), v.Type(), op.ResultTypes[i])
		}
	}
	return &TAC{Op: op, Operands: operands, Results: results}
}

// NewAssignment builds the dedicated assignment operation TAC: a single
// input bound to rhs, a single output bound to lhs, both of lhs's
// type.
func NewAssignment(lhs, rhs *variable.Variable) *TAC {
	return New(ops.Assignment(lhs.Type()), []*variable.Variable{rhs}, []*variable.Variable{lhs})
}

func (t *TAC) String() string {
	results := make([]string, len(t.Results))
	for i, r := range t.Results {
		results[i] = r.Name()
	}
	operands := make([]string, len(t.Operands))
	for i, o := range t.Operands {
		operands[i] = o.Name()
	}
	lhs := ""
	if len(results) > 0 {
		lhs = strings.Join(results, ", ") + " = "
	}
	return fmt.Sprintf("%s%s %s", lhs, t.Op.DebugString(), strings.Join(operands, ", "))
}

// List is an ordered sequence of TACs, the basic block's payload.
type List struct {
	tacs []*TAC
}

// Append adds a TAC to the end of the list.
func (l *List) Append(t *TAC) { l.tacs = append(l.tacs, t) }

// Tacs returns the ordered TAC slice. Callers must not mutate it.
func (l *List) Tacs() []*TAC { return l.tacs }

// Len returns the number of TACs.
func (l *List) Len() int { return len(l.tacs) }
