// Package pipeconfig configures the RVSDG optimization pipeline: a flag
// struct with one switch per pass, not a generic config framework.
package pipeconfig

import "rvsdgc/internal/normalform"

// Config is the full set of switches internal/pipeline.Pipeline.Run
// consults, one boolean per pass plus the per-operator normal-form Flags
// they gate the normal-form rewrite rules with.
type Config struct {
	// NormalForms enables the store/load/mux rewrite rules (and,
	// nested under the same fixed-point loop, call-site inlining; see
	// Inline below).
	NormalForms normalform.Flags

	// Inline enables call-site inlining. Registered as an ops.KindCall
	// rewrite rule, so it fires inside the same NormalizeRegion
	// fixed-point loop as the normal forms above.
	Inline bool

	// Invert enables theta/gamma loop inversion.
	Invert bool

	// DeadNodeElimination and CommonSubexpressionElimination enable the
	// two region-wide sweeps. Both run after the normal-form/inline
	// fixed point and after inversion, since inversion and inlining are
	// the passes most likely to expose newly-dead or newly-duplicate
	// code.
	DeadNodeElimination            bool
	CommonSubexpressionElimination bool

	// Repeat controls how many times the full pipeline (normal forms +
	// inline -> invert -> DCE -> CSE) runs. With a confluent rule set
	// the pipeline is idempotent, so Repeat beyond 2 is never
	// observably different, but a
	// second pass is kept as the default to catch opportunities DCE/CSE
	// expose for a further round of normal forms.
	Repeat int
}

// Default returns the pipeline's standard posture: every normal form
// enabled except the unverified-alloca-dominance escape hatch, inlining
// and inversion on, both sweeps on, two repeat rounds.
func Default() Config {
	return Config{
		NormalForms:                    normalform.Default(),
		Inline:                         true,
		Invert:                         true,
		DeadNodeElimination:            true,
		CommonSubexpressionElimination: true,
		Repeat:                         2,
	}
}

// Minimal returns a pipeline posture with every pass disabled, useful as
// a base for tests that want to opt in to exactly one pass.
func Minimal() Config {
	return Config{Repeat: 1}
}
