// Package errors defines the mid-end's diagnostic types.
//
// Three kinds of failure are distinguished: invariant
// violations abort via Fatalf and are never meant to be recovered from in
// production code; lookup failures and transformation non-applicability are
// ordinary values callers inspect and branch on.
package errors

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Kind tags a recoverable Diagnostic.
type Kind string

const (
	KindLookup        Kind = "Lookup"
	KindTypeMismatch  Kind = "TypeMismatch"
	KindNotApplicable Kind = "NotApplicable"
)

// Coordinate anchors a Diagnostic to a place in the IR rather than a source
// line; there is no source text once code has reached the symbolic IR.
type Coordinate struct {
	Component string // e.g. "cfg", "region", "ipgraph"
	Detail    string // e.g. "function foo, block bb3"
}

func (c Coordinate) String() string {
	if c.Component == "" {
		return ""
	}
	if c.Detail == "" {
		return c.Component
	}
	return fmt.Sprintf("%s: %s", c.Component, c.Detail)
}

// Diagnostic is a recoverable error carrying a kind tag and an IR coordinate.
type Diagnostic struct {
	Kind       Kind
	Message    string
	Coordinate Coordinate
	cause      error
}

func (d *Diagnostic) Error() string {
	if loc := d.Coordinate.String(); loc != "" {
		return fmt.Sprintf("%s: %s (%s)", d.Kind, d.Message, loc)
	}
	return fmt.Sprintf("%s: %s", d.Kind, d.Message)
}

// Unwrap exposes the wrapped cause so callers can use errors.Is/As.
func (d *Diagnostic) Unwrap() error { return d.cause }

// WithCause attaches a wrapped cause.
func (d *Diagnostic) WithCause(cause error) *Diagnostic {
	d.cause = cause
	return d
}

// WithCoordinate attaches (or replaces) the IR coordinate.
func (d *Diagnostic) WithCoordinate(c Coordinate) *Diagnostic {
	d.Coordinate = c
	return d
}

// NewLookup builds a recoverable "not found" diagnostic.
func NewLookup(message string, args ...interface{}) *Diagnostic {
	return &Diagnostic{Kind: KindLookup, Message: fmt.Sprintf(message, args...)}
}

// NewTypeMismatch builds a recoverable type-mismatch diagnostic. Most type
// mismatches in this module are programmer errors reported via Fatalf
// instead; this constructor exists for the few call sites (e.g. import
// adapters) that must propagate instead of abort.
func NewTypeMismatch(message string, args ...interface{}) *Diagnostic {
	return &Diagnostic{Kind: KindTypeMismatch, Message: fmt.Sprintf(message, args...)}
}

// InvariantError is the panic value raised by Fatalf. It is never meant to
// propagate as an ordinary error value; tests that must assert on invariant
// violations recover and type-assert on it.
type InvariantError struct {
	Message    string
	Coordinate Coordinate
	cause      error
}

func (e *InvariantError) Error() string {
	if loc := e.Coordinate.String(); loc != "" {
		return fmt.Sprintf("invariant violation: %s (%s)", e.Message, loc)
	}
	return fmt.Sprintf("invariant violation: %s", e.Message)
}

func (e *InvariantError) Unwrap() error { return e.cause }

// Fatalf raises an InvariantError panic. Use for conditions that can only
// arise from a bug in the mid-end itself (an origin outside its region, a
// removed node with live inedges, an operand/type mismatch at TAC
// insertion); never for conditions reachable from malformed but otherwise
// valid input.
func Fatalf(coord Coordinate, format string, args ...interface{}) {
	panic(&InvariantError{
		Message:    pkgerrors.Errorf(format, args...).Error(),
		Coordinate: coord,
	})
}

// FatalfCause is Fatalf with an additional wrapped cause.
func FatalfCause(coord Coordinate, cause error, format string, args ...interface{}) {
	panic(&InvariantError{
		Message:    fmt.Sprintf(format, args...),
		Coordinate: coord,
		cause:      cause,
	})
}
