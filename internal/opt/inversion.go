package opt

import (
	"rvsdgc/internal/rvsdg"
	"rvsdgc/internal/types"
)

// InvertLoops walks region's direct theta nodes and inverts every
// applicable one, then recurses into sub-regions. Unlike
// the normal-form rules and inlining, inversion is not registered as an
// ops.Kind-keyed RewriteRule: it rewrites a *structural* node (theta),
// which RewriteRule/NormalizeRegion's dispatch does not cover.
func InvertLoops(g *rvsdg.Graph, region *rvsdg.Region) {
	for _, n := range append([]*rvsdg.Node(nil), region.Nodes()...) {
		if !n.IsStructural() {
			continue
		}
		if n.StructuralKind() == rvsdg.StructuralTheta {
			if invert(n) {
				continue // the theta is gone; nothing left to recurse into here
			}
		}
		for _, sub := range n.Subregions() {
			InvertLoops(g, sub)
		}
	}
}

// invertible reports whether theta has the canonical "gamma decides
// both the next state and whether to continue" shape inversion
// rewrites:
// - the loop's continuation predicate is produced by a gamma node living
// directly in the theta's body region;
// - that gamma's entry variables are exactly the loop's current
// loop-carried arguments, in the same order;
// - that gamma's outputs are exactly the loop's per-iteration updates
// (in loop-var order) plus, as one final extra output, the
// continuation predicate itself.
//
// This is a deliberately narrow, statically-checkable applicability
// test. A theta that doesn't match this exact shape is left alone
// rather than risk an unsound rewrite.
func invertible(theta *rvsdg.Node) (*rvsdg.Node, bool) {
	body := theta.Subregions()[0]
	predOrigin := theta.ThetaPredicate().Origin()
	gamma := predOrigin.Node()
	if gamma == nil || !gamma.IsStructural() || gamma.StructuralKind() != rvsdg.StructuralGamma {
		return nil, false
	}
	if gamma.Region() != body {
		return nil, false
	}
	if len(gamma.Subregions()) != 2 {
		return nil, false // only the binary continue/exit case is handled
	}

	loopVars := theta.LoopVars()
	n := len(loopVars)
	gIns := gamma.Inputs()[1:] // skip the predicate input; rest are entry vars
	if len(gIns) != n {
		return nil, false
	}
	for j, lv := range loopVars {
		if gIns[j].Origin() != lv.Argument {
			return nil, false
		}
	}

	if len(gamma.Outputs()) != n+1 {
		return nil, false
	}
	for j, lv := range loopVars {
		if lv.Result.Origin() != gamma.Outputs()[j] {
			return nil, false
		}
	}
	if gamma.Outputs()[n] != predOrigin {
		return nil, false
	}
	return gamma, true
}

// invert performs the rewrite once invertible confirms the shape:
// theta(body=gamma(...)) becomes
// gamma(p_entry, case: nested-gamma(predicate_i, exit, theta-once-more)).
// p_entry is the body gamma's own predicate evaluated against the loop's
// *initial* values, selecting the alternative the first iteration takes.
func invert(theta *rvsdg.Node) bool {
	gamma, ok := invertible(theta)
	if !ok {
		return false
	}

	body := theta.Subregions()[0]
	outerRegion := theta.Region()
	loopVars := theta.LoopVars()
	n := len(loopVars)

	entrySmap := rvsdg.NewSubstitutionMap()
	for _, lv := range loopVars {
		entrySmap.Insert(lv.Argument, lv.Input.Origin())
	}
	outerPred, ok := copyCondition(gamma.GammaPredicate().Origin(), body, outerRegion, entrySmap)
	if !ok {
		return false
	}
	if outerPred.Type.Kind() != types.KindCtlState || outerPred.Type.Alternatives() != 2 {
		return false
	}

	newGamma := rvsdg.NewGamma(outerRegion, outerPred)
	evs := make([]*rvsdg.EntryVar, n)
	for j, lv := range loopVars {
		evs[j] = newGamma.AddEntryVar(lv.Input.Origin())
	}
	newSubs := newGamma.Subregions()
	innerSubsOf := gamma.Subregions()

	finalOutputs := make([][2]*rvsdg.Output, n) // [loopvar][alternative] -> exit value
	for alt := 0; alt < 2; alt++ {
		sub := newSubs[alt]
		branchSmap := rvsdg.NewSubstitutionMap()
		for j := 0; j < n; j++ {
			branchSmap.Insert(innerSubsOf[alt].Arguments()[j], evs[j].Arguments[alt])
		}
		innerSubsOf[alt].Copy(sub, branchSmap)

		postValues := make([]*rvsdg.Output, n)
		for j := 0; j < n; j++ {
			postValues[j] = resolveLocal(branchSmap, innerSubsOf[alt].Results()[j].Origin())
		}
		predI := resolveLocal(branchSmap, innerSubsOf[alt].Results()[n].Origin())

		caseGamma := rvsdg.NewGamma(sub, predI)
		caseEVs := make([]*rvsdg.EntryVar, n)
		for j := 0; j < n; j++ {
			caseEVs[j] = caseGamma.AddEntryVar(postValues[j])
		}
		caseSubs := caseGamma.Subregions()

		// Case 0 (predI selects the back edge, as in lowering): one more
		// trip through the loop, via a fresh copy of the original theta
		// seeded from these values; its own native tail-controlled
		// semantics already implement "keep looping while the body's
		// predicate is 0".
		// Case 1: stop, return the values unchanged.
		initials := make([]*rvsdg.Output, n)
		for j := 0; j < n; j++ {
			initials[j] = caseEVs[j].Arguments[0]
		}
		looped := copyThetaWithInitials(theta, caseSubs[0], initials)

		for j := 0; j < n; j++ {
			ev := caseGamma.AddExitVar([]*rvsdg.Output{looped.Outputs()[j], caseEVs[j].Arguments[1]})
			finalOutputs[j][alt] = ev.Output
		}
	}

	replacement := make([]*rvsdg.Output, n)
	for j := 0; j < n; j++ {
		ev := newGamma.AddExitVar([]*rvsdg.Output{finalOutputs[j][0], finalOutputs[j][1]})
		replacement[j] = ev.Output
	}

	divertAndRemove(theta, replacement)
	return true
}

// copyCondition copies the minimal transitive-dependency closure of root
// (a value living in bodyRegion) into target under smap, refusing
// (returns false) if that closure reaches outside bodyRegion, through a
// structural node, or through an operation with side effects.
func copyCondition(root *rvsdg.Output, bodyRegion *rvsdg.Region, target *rvsdg.Region, smap *rvsdg.SubstitutionMap) (*rvsdg.Output, bool) {
	if v, ok := smap.Lookup(root); ok {
		return v, true
	}
	if root.IsArgument() {
		return nil, false
	}
	node := root.Node()
	if node.Region() != bodyRegion || !node.IsSimple() || node.Operation().HasSideEffects() {
		return nil, false
	}
	operands := make([]*rvsdg.Output, len(node.Inputs()))
	for i, in := range node.Inputs() {
		o, ok := copyCondition(in.Origin(), bodyRegion, target, smap)
		if !ok {
			return nil, false
		}
		operands[i] = o
	}
	newNode := target.Graph().CreateSimpleNode(target, node.Operation(), operands)
	for i, out := range node.Outputs() {
		smap.Insert(out, newNode.Outputs()[i])
	}
	return newNode.Outputs()[root.Index()], true
}

// copyThetaWithInitials copies orig's loop structure into target,
// seeded with the given initial loop-variable values instead of orig's
// own inputs: the building block invert uses to place "one more trip
// through the loop" inside a freshly constructed region. Hand-rolled over the
// public structural-node API (NewTheta/AddLoopVar/Region.Copy/CloseTheta)
// rather than package rvsdg's unexported copyTheta, which only ever
// re-seeds from a node's own current inputs.
func copyThetaWithInitials(orig *rvsdg.Node, target *rvsdg.Region, initials []*rvsdg.Output) *rvsdg.Node {
	nt := rvsdg.NewTheta(target)
	subSmap := rvsdg.NewSubstitutionMap()
	loopVars := orig.LoopVars()
	newLVs := make([]*rvsdg.LoopVar, len(loopVars))
	for i, lv := range loopVars {
		nlv := nt.AddLoopVar(initials[i])
		subSmap.Insert(lv.Argument, nlv.Argument)
		newLVs[i] = nlv
	}
	orig.Subregions()[0].Copy(nt.Subregions()[0], subSmap)
	for i, lv := range loopVars {
		newLVs[i].Result.SetOrigin(resolveLocal(subSmap, lv.Result.Origin()))
	}
	nt.CloseTheta(resolveLocal(subSmap, orig.ThetaPredicate().Origin()))
	return nt
}
