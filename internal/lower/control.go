package lower

import (
	"rvsdgc/internal/errors"
	"rvsdgc/internal/ir/cfg"
	"rvsdgc/internal/ir/tac"
	"rvsdgc/internal/ir/variable"
	"rvsdgc/internal/ops"
	"rvsdgc/internal/rvsdg"
)

// blockTacs returns n's TAC list, or nil for entry/exit/unreachable nodes.
func blockTacs(n *cfg.Node) *tac.List {
	if n.Kind() != cfg.KindBasicBlock {
		return nil
	}
	return n.Tacs()
}

// lowerFrom walks the restructured CFG starting at n, emitting into
// region/env, until reaching stop (exclusive) or a node with no outgoing
// control flow.
func (fb *funcBuilder) lowerFrom(region *rvsdg.Region, env *environment, n *cfg.Node, stop *cfg.Node) {
	for n != nil && n != stop && n.Kind() == cfg.KindBasicBlock {
		if header, ok := fb.loopHeader(n); ok {
			n = fb.lowerLoop(region, env, header)
			continue
		}
		if len(n.OutEdges()) >= 2 {
			n = fb.lowerBranch(region, env, n)
			continue
		}
		fb.lowerBlock(region, env, n)
		if len(n.OutEdges()) == 0 {
			return
		}
		n = n.OutEdges()[0].Target
	}
}

func (fb *funcBuilder) lowerBlock(region *rvsdg.Region, env *environment, n *cfg.Node) {
	list := blockTacs(n)
	if list == nil {
		return
	}
	for _, t := range list.Tacs() {
		fb.lowerTAC(region, env, t)
	}
}

func (fb *funcBuilder) lowerTAC(region *rvsdg.Region, env *environment, t *tac.TAC) {
	if t.Op.Kind == ops.KindAssignment {
		if src, ok := env.get(t.Operands[0]); ok {
			env.set(t.Results[0], src)
		}
		return
	}
	operands := make([]*rvsdg.Output, len(t.Operands))
	for i, v := range t.Operands {
		o, ok := env.get(v)
		if !ok {
			errors.Fatalf(errors.Coordinate{Component: "lower"}, "use of variable %s before it is defined on this path", v.Name())
		}
		operands[i] = o
	}
	node := fb.b.graph.CreateSimpleNode(region, t.Op, operands)
	for i, v := range t.Results {
		env.set(v, node.Outputs()[i])
	}
}

// loopHeader reports whether n is the unique header of a loop SCC it
// belongs to.
func (fb *funcBuilder) loopHeader(n *cfg.Node) (*cfg.Node, bool) {
	scc := sccOf(n)
	if scc == nil || !isLoopSCC(scc) {
		return nil, false
	}
	for _, e := range n.InEdges() {
		if !inNodeSet(scc, e.Source) {
			return n, true // n has an external predecessor: it's the header
		}
	}
	return nil, false
}

func sccOf(n *cfg.Node) []*cfg.Node {
	for _, scc := range n.Cfg().StrongConnectedComponents() {
		if inNodeSet(scc, n) {
			return scc
		}
	}
	return nil
}

func isLoopSCC(scc []*cfg.Node) bool {
	if len(scc) > 1 {
		return true
	}
	for _, e := range scc[0].OutEdges() {
		if e.Target == scc[0] {
			return true
		}
	}
	return false
}

func inNodeSet(set []*cfg.Node, n *cfg.Node) bool {
	for _, s := range set {
		if s == n {
			return true
		}
	}
	return false
}

// lowerLoop lowers the natural loop headed by header into a theta nested
// inside a guarding gamma: the header's test is lowered once in the outer region to
// decide whether to enter the loop at all, then lowered again inside the
// theta body so each iteration re-evaluates it. Returns the CFG node
// where control resumes after the loop.
func (fb *funcBuilder) lowerLoop(region *rvsdg.Region, env *environment, header *cfg.Node) *cfg.Node {
	scc := sccOf(header)
	if len(header.OutEdges()) != 2 {
		errors.Fatalf(errors.Coordinate{Component: "lower"}, "loop header %p must have exactly 2 out-edges after restructuring", header)
	}
	var continueEdge, exitEdge *cfg.Edge
	for _, e := range header.OutEdges() {
		if inNodeSet(scc, e.Target) {
			continueEdge = e
		} else {
			exitEdge = e
		}
	}
	if continueEdge == nil || exitEdge == nil {
		errors.Fatalf(errors.Coordinate{Component: "lower"}, "loop header %p has no exit edge", header)
	}

	fb.lowerBlock(region, env, header)
	predVar := predicateVariable(header)
	initialPred, ok := env.get(predVar)
	if !ok {
		errors.Fatalf(errors.Coordinate{Component: "lower"}, "loop header %p has no control-state predicate", header)
	}

	live := env.live()
	gamma := rvsdg.NewGamma(region, initialPred)
	entryVars := make(map[*variable.Variable]*rvsdg.EntryVar, len(live))
	for _, v := range live {
		o, _ := env.get(v)
		entryVars[v] = gamma.AddEntryVar(o)
	}
	subregions := gamma.Subregions()

	loopRegion := subregions[continueEdge.Index]
	theta := rvsdg.NewTheta(loopRegion)
	thetaEnv := newEnvironment(nil)
	loopVars := make(map[*variable.Variable]*rvsdg.LoopVar, len(live))
	for _, v := range live {
		lv := theta.AddLoopVar(entryVars[v].Arguments[continueEdge.Index])
		thetaEnv.set(v, lv.Argument)
		loopVars[v] = lv
	}
	thetaBody := theta.Subregions()[0]
	fb.lowerFrom(thetaBody, thetaEnv, continueEdge.Target, header)
	fb.lowerBlock(thetaBody, thetaEnv, header)
	iterPred, ok := thetaEnv.get(predVar)
	if !ok {
		errors.Fatalf(errors.Coordinate{Component: "lower"}, "loop header %p predicate not recomputed in the loop body", header)
	}
	theta.CloseTheta(iterPred)
	for _, v := range live {
		final, ok := thetaEnv.get(v)
		if !ok {
			final = loopVars[v].Argument
		}
		if final.Region() == loopVars[v].Result.Region() {
			loopVars[v].Result.SetOrigin(final)
		}
	}

	originsPerSubregion := make([]*rvsdg.Output, len(subregions))
	for _, v := range live {
		for i := range subregions {
			if i == continueEdge.Index {
				originsPerSubregion[i] = loopVars[v].Output
			} else {
				originsPerSubregion[i] = entryVars[v].Arguments[i]
			}
		}
		ev := gamma.AddExitVar(append([]*rvsdg.Output(nil), originsPerSubregion...))
		env.set(v, ev.Output)
	}
	return exitEdge.Target
}

// predicateVariable returns the variable a basic block's trailing
// ops.KindMatch TAC writes its control-state result to, the convention
// lowering uses to locate the branch predicate for a gamma or theta.
func predicateVariable(n *cfg.Node) *variable.Variable {
	list := blockTacs(n)
	if list == nil || list.Len() == 0 {
		return nil
	}
	tacs := list.Tacs()
	last := tacs[len(tacs)-1]
	if last.Op.Kind != ops.KindMatch || len(last.Results) == 0 {
		return nil
	}
	return last.Results[0]
}

// lowerBranch lowers the acyclic branch headed by n into a gamma,
// returning the CFG node where control resumes.
func (fb *funcBuilder) lowerBranch(region *rvsdg.Region, env *environment, n *cfg.Node) *cfg.Node {
	fb.lowerBlock(region, env, n)
	predVar := predicateVariable(n)
	pred, ok := env.get(predVar)
	if !ok {
		errors.Fatalf(errors.Coordinate{Component: "lower"}, "branch node %p has no control-state predicate", n)
	}

	join, ok := findJoin(n)
	if !ok {
		errors.Fatalf(errors.Coordinate{Component: "lower"}, "branch node %p has no common join (CFG not properly restructured)", n)
	}

	live := env.live()
	gamma := rvsdg.NewGamma(region, pred)
	entryVars := make(map[*variable.Variable]*rvsdg.EntryVar, len(live))
	for _, v := range live {
		o, _ := env.get(v)
		entryVars[v] = gamma.AddEntryVar(o)
	}
	subregions := gamma.Subregions()

	armEnvs := make([]*environment, len(subregions))
	for i := range subregions {
		armEnv := newEnvironment(nil)
		for _, v := range live {
			armEnv.set(v, entryVars[v].Arguments[i])
		}
		armEnvs[i] = armEnv
		if i < len(n.OutEdges()) {
			fb.lowerFrom(subregions[i], armEnv, n.OutEdges()[i].Target, join)
		}
	}

	for _, v := range live {
		origins := make([]*rvsdg.Output, len(subregions))
		for i := range subregions {
			o, ok := armEnvs[i].get(v)
			if !ok {
				o = entryVars[v].Arguments[i]
			}
			origins[i] = o
		}
		ev := gamma.AddExitVar(origins)
		env.set(v, ev.Output)
	}
	// Variables first defined inside the arms merge too, when every arm defines them.
	for v := range armEnvs[0].vars {
		if _, wasLive := entryVars[v]; wasLive {
			continue
		}
		origins := make([]*rvsdg.Output, 0, len(subregions))
		for _, armEnv := range armEnvs {
			if o, ok := armEnv.get(v); ok {
				origins = append(origins, o)
			}
		}
		if len(origins) == len(subregions) {
			env.set(v, gamma.AddExitVar(origins).Output)
		}
	}
	return join
}

// findJoin locates the node every immediate successor of n is guaranteed
// to reach, the join of an acyclic branch. A full post-dominator tree is
// unnecessary here since restructuring (internal/restructure) already
// guarantees a single clean join for any region this lowering reaches.
func findJoin(n *cfg.Node) (*cfg.Node, bool) {
	reach := make([]map[*cfg.Node]bool, len(n.OutEdges()))
	for i, e := range n.OutEdges() {
		reach[i] = reachableSet(e.Target)
	}
	if len(reach) == 0 {
		return nil, false
	}
	for _, cand := range n.Cfg().ReversePostOrder() {
		if cand == n {
			continue
		}
		common := true
		for _, set := range reach {
			if !set[cand] {
				common = false
				break
			}
		}
		if common {
			return cand, true
		}
	}
	return nil, false
}

func reachableSet(start *cfg.Node) map[*cfg.Node]bool {
	seen := map[*cfg.Node]bool{start: true}
	queue := []*cfg.Node{start}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, e := range n.OutEdges() {
			if !seen[e.Target] {
				seen[e.Target] = true
				queue = append(queue, e.Target)
			}
		}
	}
	return seen
}
