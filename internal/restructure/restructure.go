// Package restructure turns an arbitrary CFG (possibly with irreducible
// loops and unstructured branches) into a proper-structured one: every
// loop has a single entry, every branching region has a single join.
// Both passes work by hoisting a dispatch decision into a synthesized
// block: over a multi-entry SCC's headers for loops, and over a branch's
// extra continuation points for acyclic regions.
package restructure

import (
	"rvsdgc/internal/ir/cfg"
	"rvsdgc/internal/ir/tac"
	"rvsdgc/internal/ir/variable"
	"rvsdgc/internal/ops"
	"rvsdgc/internal/types"
)

// dispatchVarWidth is the bit width of every synthesized control
// variable; its value range only ever has to cover the dispatcher's
// out-degree.
const dispatchVarWidth = 32

// Restructure turns c into a proper-structured CFG, in place. Total:
// any finite CFG can be restructured.
func Restructure(c *cfg.Cfg) {
	RestructureLoops(c)
	RestructureBranches(c)
}

// RestructureLoops finds SCCs with more than one external entry and
// routes them through a single synthesized dispatcher block switching on
// a fresh control variable,
// then recurses into each loop body (the SCC minus its header) so nested
// multi-entry loops are dispatched too.
func RestructureLoops(c *cfg.Cfg) {
	restructureLoopsIn(c, c.Nodes())
}

func restructureLoopsIn(c *cfg.Cfg, subset []*cfg.Node) {
	within := nodeSet(subset)
	for _, scc := range subsetSCCs(subset, within) {
		if !isLoop(scc) {
			continue
		}
		headers := externalEntryHeaders(scc)
		var header *cfg.Node
		if len(headers) <= 1 {
			if len(headers) == 1 {
				header = headers[0]
			}
		} else {
			synthesizeDispatcher(c, headers)
			// The dispatcher is now the loop's sole entry; the original
			// headers have become ordinary body nodes.
		}
		body := make([]*cfg.Node, 0, len(scc))
		for _, n := range scc {
			if n != header {
				body = append(body, n)
			}
		}
		if len(body) < len(subset) {
			restructureLoopsIn(c, body)
		}
	}
}

func isLoop(scc []*cfg.Node) bool {
	if len(scc) > 1 {
		return true
	}
	n := scc[0]
	for _, e := range n.OutEdges() {
		if e.Target == n {
			return true
		}
	}
	return false
}

func inSCC(scc []*cfg.Node, n *cfg.Node) bool {
	for _, s := range scc {
		if s == n {
			return true
		}
	}
	return false
}

func nodeSet(nodes []*cfg.Node) map[*cfg.Node]bool {
	set := make(map[*cfg.Node]bool, len(nodes))
	for _, n := range nodes {
		set[n] = true
	}
	return set
}

// subsetSCCs runs Tarjan over subset, following only edges whose both
// endpoints lie within it; the restriction that lets the loop pass
// recurse into a body without seeing the header's back-edges again.
func subsetSCCs(subset []*cfg.Node, within map[*cfg.Node]bool) [][]*cfg.Node {
	index := 0
	indices := map[*cfg.Node]int{}
	lowlink := map[*cfg.Node]int{}
	onStack := map[*cfg.Node]bool{}
	var stack []*cfg.Node
	var sccs [][]*cfg.Node

	var strongconnect func(*cfg.Node)
	strongconnect = func(v *cfg.Node) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, e := range v.OutEdges() {
			w := e.Target
			if !within[w] {
				continue
			}
			if _, seen := indices[w]; !seen {
				strongconnect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] {
				if indices[w] < lowlink[v] {
					lowlink[v] = indices[w]
				}
			}
		}

		if lowlink[v] == indices[v] {
			var scc []*cfg.Node
			for {
				n := len(stack) - 1
				w := stack[n]
				stack = stack[:n]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, n := range subset {
		if _, seen := indices[n]; !seen {
			strongconnect(n)
		}
	}
	return sccs
}

// externalEntryHeaders returns, in a stable order, the SCC nodes that
// have at least one inedge originating outside the SCC.
func externalEntryHeaders(scc []*cfg.Node) []*cfg.Node {
	var headers []*cfg.Node
	for _, n := range scc {
		for _, e := range n.InEdges() {
			if !inSCC(scc, e.Source) {
				headers = append(headers, n)
				break
			}
		}
	}
	return headers
}

// synthesizeDispatcher builds a single block that switches on a fresh
// control variable to one of headers, and redirects every edge into a
// header (both the external entries and the internal back-edges from
// the loop body) through a small "setter" block that assigns the right
// case before jumping to the dispatcher. Routing the back-edges too,
// not just the external entries, is what makes the dispatcher itself
// the SCC's sole entry: without it the headers would still each receive
// their own back-edge and the loop would stay irreducible.
func synthesizeDispatcher(c *cfg.Cfg, headers []*cfg.Node) *cfg.Node {
	ctlType := types.Int(dispatchVarWidth)
	ctlVar := c.Variables().NewLocal(ctlType, "")

	dispatcher := c.CreateBasicBlock()
	for _, h := range headers {
		dispatcher.AddOutEdge(h)
	}
	appendMatch(c, dispatcher, ctlVar, len(headers))

	for hi, h := range headers {
		for _, e := range append([]*cfg.Edge(nil), h.InEdges()...) {
			if e.Source == dispatcher {
				continue
			}
			redirectThroughSetter(c, e, ctlVar, hi, dispatcher)
		}
	}
	return dispatcher
}

// appendMatch closes a dispatcher block with a synthesized predicate: a
// match on the control variable routing value i to alternative i, the
// shape the CFG→RVSDG lowering expects a branching block to end with.
func appendMatch(c *cfg.Cfg, dispatcher *cfg.Node, ctlVar *variable.Variable, arity int) {
	alts := make([]ops.MatchAlternative, arity)
	for i := range alts {
		alts[i] = ops.MatchAlternative{Value: int64(i), Alternative: i}
	}
	predVar := c.Variables().NewLocal(types.CtlState(arity), "")
	dispatcher.Tacs().Append(tac.New(
		ops.Match(ctlVar.Type(), alts, arity),
		[]*variable.Variable{ctlVar}, []*variable.Variable{predVar}))
}

// redirectThroughSetter splices a fresh block onto e that assigns
// caseIdx to ctlVar and jumps to dispatcher.
func redirectThroughSetter(c *cfg.Cfg, e *cfg.Edge, ctlVar *variable.Variable, caseIdx int, dispatcher *cfg.Node) {
	setter := c.CreateBasicBlock()
	setter.Tacs().Append(tac.New(ops.Constant(ctlVar.Type(), uint64(caseIdx)), nil, []*variable.Variable{ctlVar}))
	setter.AddOutEdge(dispatcher)
	e.Source.RedirectOutEdge(e, setter)
}

// RestructureBranches resolves acyclic unstructured branch regions. For
// each branching node it finds the continuation points; the nodes where
// paths emanating from different arms first converge. A structured
// branch has exactly one (its join); every additional continuation point
// is a side entry, resolved by funneling all arm edges into the
// continuation set through a single auxiliary dispatcher switching on a
// fresh control variable. Nodes inside a loop are left to RestructureLoops:
// dispatcher fan-out there is loop control flow, not the acyclic if/else
// shape this pass targets.
func RestructureBranches(c *cfg.Cfg) {
	for {
		changed := false
		loopy := loopMembership(c)
		for _, n := range append([]*cfg.Node(nil), c.Nodes()...) {
			if len(n.OutEdges()) < 2 || loopy[n] {
				continue
			}
			if restructureBranch(c, n) {
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}

// loopMembership marks every node that belongs to a nontrivial SCC
// (size > 1, or a single node with a self-loop).
func loopMembership(c *cfg.Cfg) map[*cfg.Node]bool {
	members := map[*cfg.Node]bool{}
	for _, scc := range c.StrongConnectedComponents() {
		if !isLoop(scc) {
			continue
		}
		for _, n := range scc {
			members[n] = true
		}
	}
	return members
}

// armReachability computes, for every node reachable from one of n's
// arms, the set of arm indices whose paths reach it; a forward
// union dataflow seeded with {i} at the target of n's i-th out-edge.
func armReachability(n *cfg.Node) map[*cfg.Node]map[int]bool {
	reach := map[*cfg.Node]map[int]bool{}
	for i, e := range n.OutEdges() {
		if reach[e.Target] == nil {
			reach[e.Target] = map[int]bool{}
		}
		reach[e.Target][i] = true
	}
	for changed := true; changed; {
		changed = false
		for m, arms := range reach {
			for _, e := range m.OutEdges() {
				tgt := reach[e.Target]
				if tgt == nil {
					tgt = map[int]bool{}
					reach[e.Target] = tgt
				}
				for a := range arms {
					if !tgt[a] {
						tgt[a] = true
						changed = true
					}
				}
			}
		}
	}
	return reach
}

// continuationPoints returns, in reverse-post-order, the nodes where
// paths from different arms of n first converge: nodes with two or more
// inedges carrying differing arm-reachability. A node whose convergence
// is inherited from a single predecessor (every path to it already
// merged upstream) is not a continuation point.
func continuationPoints(c *cfg.Cfg, n *cfg.Node) []*cfg.Node {
	reach := armReachability(n)
	isContinuation := func(m *cfg.Node) bool {
		var first map[int]bool
		seen := false
		for _, e := range m.InEdges() {
			var contrib map[int]bool
			if e.Source == n {
				contrib = map[int]bool{e.Index: true}
			} else {
				contrib = reach[e.Source]
				if len(contrib) == 0 {
					continue // entered from outside this branch region
				}
			}
			if !seen {
				first = contrib
				seen = true
				continue
			}
			if !equalArmSets(first, contrib) {
				return true
			}
		}
		return false
	}

	var points []*cfg.Node
	for _, m := range c.ReversePostOrder() {
		if m == n || len(reach[m]) == 0 {
			continue
		}
		if isContinuation(m) {
			points = append(points, m)
		}
	}
	return points
}

func equalArmSets(a, b map[int]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// restructureBranch funnels every arm edge into n's continuation set
// through one auxiliary dispatcher, leaving the single-continuation
// (already structured) case untouched. Edges between continuation
// points are post-join control flow and stay as they are.
func restructureBranch(c *cfg.Cfg, n *cfg.Node) bool {
	points := continuationPoints(c, n)
	if len(points) <= 1 {
		return false
	}
	reach := armReachability(n)
	inContinuation := nodeSet(points)

	ctlType := types.Int(dispatchVarWidth)
	ctlVar := c.Variables().NewLocal(ctlType, "")
	dispatcher := c.CreateBasicBlock()
	for _, p := range points {
		dispatcher.AddOutEdge(p)
	}
	appendMatch(c, dispatcher, ctlVar, len(points))

	for pi, p := range points {
		for _, e := range append([]*cfg.Edge(nil), p.InEdges()...) {
			src := e.Source
			fromArm := src == n || (len(reach[src]) > 0 && !inContinuation[src])
			if !fromArm || src == dispatcher {
				continue
			}
			redirectThroughSetter(c, e, ctlVar, pi, dispatcher)
		}
	}
	return true
}

// IsProperStructured reports the post-restructuring invariants: every
// loop (at every nesting level) has a unique header, and every non-loop
// branching node has at most one continuation point.
func IsProperStructured(c *cfg.Cfg) bool {
	if !loopsProper(c.Nodes()) {
		return false
	}
	loopy := loopMembership(c)
	for _, n := range c.Nodes() {
		if len(n.OutEdges()) < 2 || loopy[n] {
			continue
		}
		if len(continuationPoints(c, n)) > 1 {
			return false
		}
	}
	return true
}

// loopsProper checks that every loop SCC within subset has exactly one
// external-entry header, then recurses into the SCC minus that header so
// nested loops are held to the same rule.
func loopsProper(subset []*cfg.Node) bool {
	within := nodeSet(subset)
	for _, scc := range subsetSCCs(subset, within) {
		if !isLoop(scc) {
			continue
		}
		headers := externalEntryHeaders(scc)
		if len(headers) != 1 {
			return false
		}
		body := make([]*cfg.Node, 0, len(scc)-1)
		for _, n := range scc {
			if n != headers[0] {
				body = append(body, n)
			}
		}
		if !loopsProper(body) {
			return false
		}
	}
	return true
}
