// Package normalform implements the per-operator rewrite rules:
// store-mux, store-store, store-alloca, multiple-origin, and their load
// analogues.
//
// Rules register against an *rvsdg.Graph via RegisterAll, which seeds
// the graph's per-operation-kind rule table from a static list.
package normalform

import (
	"rvsdgc/internal/ops"
	"rvsdgc/internal/rvsdg"
)

// Flags enumerates the recognized rules, one switch per rule. Each
// graph gets its own Flags.
type Flags struct {
	StoreMux       bool
	StoreStore     bool
	StoreAlloca    bool
	MultipleOrigin bool

	LoadMux       bool
	LoadStore     bool
	LoadAlloca    bool
	LoadLoadState bool

	// AllowUnverifiedAllocaDominance gates store-alloca (and
	// load-alloca) firing without checking that the alloca dominates
	// every remaining state consumer. Default false: the rewrite erases
	// alloca-state from the input set without verifying that dominance,
	// so the rule stays inert until a caller opts in explicitly.
	AllowUnverifiedAllocaDominance bool
}

// Default returns every rule enabled except the unverified-dominance
// escape hatch, the posture used by the optimization pipeline's default
// configuration (internal/pipeconfig).
func Default() Flags {
	return Flags{
		StoreMux: true, StoreStore: true, StoreAlloca: true, MultipleOrigin: true,
		LoadMux: true, LoadStore: true, LoadAlloca: true, LoadLoadState: true,
	}
}

// RegisterAll seeds g's rewrite-rule table for KindStore, KindLoad, and
// KindMemStateMux according to flags.
func RegisterAll(g *rvsdg.Graph, flags Flags) {
	if flags.StoreMux {
		g.RegisterRule(ops.KindStore, storeMuxRule{})
	}
	if flags.StoreStore {
		g.RegisterRule(ops.KindStore, storeStoreRule{})
	}
	if flags.StoreAlloca {
		g.RegisterRule(ops.KindStore, storeAllocaRule{allowUnverified: flags.AllowUnverifiedAllocaDominance})
	}
	if flags.MultipleOrigin {
		g.RegisterRule(ops.KindStore, multipleOriginRule{leadingOperands: 2, leadingResults: 0})
		g.RegisterRule(ops.KindLoad, multipleOriginRule{leadingOperands: 1, leadingResults: 1})
		g.RegisterRule(ops.KindMemStateMux, multipleOriginRule{leadingOperands: 0, leadingResults: 0})
	}
	if flags.LoadMux {
		g.RegisterRule(ops.KindLoad, loadMuxRule{})
	}
	if flags.LoadStore {
		g.RegisterRule(ops.KindLoad, loadStoreRule{})
	}
	if flags.LoadAlloca {
		g.RegisterRule(ops.KindLoad, loadAllocaRule{allowUnverified: flags.AllowUnverifiedAllocaDominance})
	}
	if flags.LoadLoadState {
		g.RegisterRule(ops.KindLoad, loadLoadStateRule{})
	}
}

// divertAndRemove redirects every output of old to the corresponding
// entry of replacement and removes old, the common "node is removed and
// users are diverted to the rewritten outputs" closing step every rule in
// this package performs.
func divertAndRemove(old *rvsdg.Node, replacement []*rvsdg.Output) {
	for i, o := range old.Outputs() {
		o.Divert(replacement[i])
	}
	old.Remove()
}
