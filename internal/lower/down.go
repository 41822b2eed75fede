package lower

import (
	"rvsdgc/internal/errors"
	"rvsdgc/internal/ir/cfg"
	"rvsdgc/internal/ir/module"
	"rvsdgc/internal/ir/tac"
	"rvsdgc/internal/ir/variable"
	"rvsdgc/internal/ops"
	"rvsdgc/internal/rvsdg"
)

// DownBuilder lowers an already-built RVSDG graph back into the symbolic
// IR, the inverse direction of
// Builder: a lambda's sub-region is linearized into a CFG, a theta
// becomes a do-while loop, a gamma becomes a branch with a join, and each
// simple node becomes a TAC. State inputs/outputs are erased: a region's
// node order already encodes what the state edges encoded, so Store/Load/
// Call are re-emitted with their state operands/results dropped and pure
// state-plumbing nodes (MemStateMux/IOStateMux) vanish entirely: memory
// state is an artifact of the RVSDG representation with no counterpart
// in the destination IR.
type DownBuilder struct {
	mod     *module.Module
	globals map[string]*variable.Variable
}

// NewDownBuilder prepares a DownBuilder that attaches every function it
// lowers to mod.
func NewDownBuilder(mod *module.Module) *DownBuilder {
	return &DownBuilder{mod: mod}
}

// LowerGraph finds every lambda reachable from g's root region, standalone
// or bound inside a phi's mutually-recursive group, and lowers each into a
// CFG on a function of the same name. Declares every function (so its
// signature is resolvable as a callee) before lowering any body, the way
// a linker resolves forward references across a whole mutually-recursive
// group before emitting a single instruction.
func (d *DownBuilder) LowerGraph(g *rvsdg.Graph) {
	root := g.Root()
	symbols := d.indexSymbols(root)
	lambdas := collectLambdas(root)
	for _, lambda := range lambdas {
		d.declareLambda(lambda)
	}
	for _, lambda := range lambdas {
		d.lowerLambda(lambda, symbols)
	}
}

func collectLambdas(root *rvsdg.Region) []*rvsdg.Node {
	var out []*rvsdg.Node
	for _, n := range root.Nodes() {
		if n.IsSimple() {
			continue
		}
		switch n.StructuralKind() {
		case rvsdg.StructuralLambda:
			out = append(out, n)
		case rvsdg.StructuralPhi:
			for _, inner := range n.Subregions()[0].Nodes() {
				if !inner.IsSimple() && inner.StructuralKind() == rvsdg.StructuralLambda {
					out = append(out, inner)
				}
			}
		}
	}
	return out
}

func (d *DownBuilder) declareLambda(lambda *rvsdg.Node) {
	name := lambda.Name()
	if _, ok := d.mod.LookupFunction(name); ok {
		return
	}
	if _, err := d.mod.CreateFunction(name, lambda.Signature(), variable.LinkageExternal, true); err != nil {
		errors.Fatalf(errors.Coordinate{Component: "lower", Detail: name}, "LowerGraph: %v", err)
	}
}

// indexSymbols maps every Output by which a lambda's callable value can be
// referenced back to that lambda's name: the lambda's own output at root,
// and for a phi-bound group both the phi's per-binding node output
// (visible to outside callers) and its subregion binding argument
// (visible to mutually-recursive siblings still being lowered).
func (d *DownBuilder) indexSymbols(root *rvsdg.Region) map[*rvsdg.Output]string {
	names := map[*rvsdg.Output]string{}
	for _, n := range root.Nodes() {
		if n.IsSimple() {
			continue
		}
		switch n.StructuralKind() {
		case rvsdg.StructuralLambda:
			names[n.Outputs()[0]] = n.Name()
		case rvsdg.StructuralPhi:
			for _, inner := range n.Subregions()[0].Nodes() {
				if inner.IsSimple() || inner.StructuralKind() != rvsdg.StructuralLambda {
					continue
				}
				for _, b := range n.PhiBindings() {
					if b.Result != nil && b.Result.Origin() == inner.Outputs()[0] {
						names[b.Argument] = inner.Name()
						names[b.Output] = inner.Name()
					}
				}
			}
		}
	}
	return names
}

func (d *DownBuilder) lowerLambda(lambda *rvsdg.Node, symbols map[*rvsdg.Output]string) *module.Function {
	name := lambda.Name()
	fn, ok := d.mod.LookupFunction(name)
	if !ok {
		errors.Fatalf(errors.Coordinate{Component: "lower", Detail: name}, "LowerGraph: lambda lowered before being declared")
	}

	fb := &downFuncBuilder{d: d, fn: fn}
	env := map[*rvsdg.Output]*variable.Variable{}
	for i, arg := range fn.Args {
		env[lambda.FctArgument(i)] = arg
	}
	for i := 0; i < lambda.NumCtxVars(); i++ {
		outer := lambda.Inputs()[i].Origin()
		symbol, ok := symbols[outer]
		if !ok {
			errors.Fatalf(errors.Coordinate{Component: "lower", Detail: name}, "LowerGraph: context variable %d has no resolvable callee symbol", i)
		}
		env[lambda.CtxVarArgument(i)] = fb.calleeVariable(symbol)
	}

	sub := lambda.Subregions()[0]
	entry := fn.Cfg.CreateBasicBlock()
	fn.Cfg.Exit().DivertInEdges(entry)
	end := fb.lowerRegion(sub, env, entry)
	end.AddOutEdge(fn.Cfg.Exit())

	fn.Returns = make([]*variable.Variable, len(sub.Results()))
	for i, res := range sub.Results() {
		v, ok := env[res.Origin()]
		if !ok {
			errors.Fatalf(errors.Coordinate{Component: "lower", Detail: name}, "LowerGraph: lambda result %d has no reconstructed variable", i)
		}
		fn.Returns[i] = v
	}
	return fn
}

// downFuncBuilder carries per-function lowering state. Unlike the forward
// direction (which starts a fresh environment for every gamma sub-region
// and theta body), a single flat map suffices here:
// rvsdg.Output identity is already unique across the whole graph, so a
// gamma/theta sub-region's own outputs never collide with an outer
// region's.
type downFuncBuilder struct {
	d  *DownBuilder
	fn *module.Function
}

// calleeVariable mints (or reuses) one local variable per callee symbol
// referenced from fn, mirroring Builder.CalleeVariable's memoization on
// the way up.
func (fb *downFuncBuilder) calleeVariable(symbol string) *variable.Variable {
	if fb.d.globals == nil {
		fb.d.globals = map[string]*variable.Variable{}
	}
	key := fb.fn.Name + "\x00" + symbol
	if v, ok := fb.d.globals[key]; ok {
		return v
	}
	callee, ok := fb.d.mod.LookupFunction(symbol)
	if !ok {
		errors.Fatalf(errors.Coordinate{Component: "lower", Detail: fb.fn.Name}, "LowerGraph: unknown callee symbol %q", symbol)
	}
	v := fb.fn.Cfg.Variables().NewLocal(callee.Type, "%callee."+symbol)
	fb.d.globals[key] = v
	return v
}

func (fb *downFuncBuilder) resolve(env map[*rvsdg.Output]*variable.Variable, o *rvsdg.Output) *variable.Variable {
	v, ok := env[o]
	if !ok {
		errors.Fatalf(errors.Coordinate{Component: "lower", Detail: fb.fn.Name}, "LowerGraph: no reconstructed variable for an rvsdg value (consumed a state/mux output after erasure?)")
	}
	return v
}

// lowerRegion linearizes region's nodes, in topological (non-decreasing
// depth) order, appending TACs/blocks starting at block. Returns the CFG
// node where control resides once the whole region has been emitted.
func (fb *downFuncBuilder) lowerRegion(region *rvsdg.Region, env map[*rvsdg.Output]*variable.Variable, block *cfg.Node) *cfg.Node {
	for _, n := range rvsdg.NewTopDownTraverser(region).All() {
		if n.IsSimple() {
			block = fb.lowerSimpleNode(n, env, block)
			continue
		}
		switch n.StructuralKind() {
		case rvsdg.StructuralGamma:
			block = fb.lowerGamma(n, env, block)
		case rvsdg.StructuralTheta:
			block = fb.lowerTheta(n, env, block)
		default:
			errors.Fatalf(errors.Coordinate{Component: "lower", Detail: fb.fn.Name}, "LowerGraph: unsupported nested structural node kind %s", n.StructuralKind())
		}
	}
	return block
}

func (fb *downFuncBuilder) lowerSimpleNode(n *rvsdg.Node, env map[*rvsdg.Output]*variable.Variable, block *cfg.Node) *cfg.Node {
	op := n.Operation()
	switch op.Kind {
	case ops.KindMemStateMux, ops.KindIOStateMux:
		return block // pure state-plumbing: no counterpart once state is erased
	case ops.KindStore:
		addr := fb.resolve(env, n.Inputs()[0].Origin())
		value := fb.resolve(env, n.Inputs()[1].Origin())
		trimmed := ops.Store(op.OperandTypes[1], 0, op.Alignment)
		block.Tacs().Append(tac.New(trimmed, []*variable.Variable{addr, value}, nil))
		return block
	case ops.KindLoad:
		addr := fb.resolve(env, n.Inputs()[0].Origin())
		trimmed := ops.Load(op.ResultTypes[0], 0, op.Alignment)
		result := fb.fn.Cfg.Variables().NewLocal(op.ResultTypes[0], "")
		env[n.Outputs()[0]] = result
		block.Tacs().Append(tac.New(trimmed, []*variable.Variable{addr}, []*variable.Variable{result}))
		return block
	case ops.KindCall:
		sig := op.OperandTypes[0]
		nargs := len(sig.Operands())
		nresults := len(sig.Results())
		calleeVar := fb.resolve(env, n.Inputs()[0].Origin())
		operands := make([]*variable.Variable, 1, 1+nargs)
		operands[0] = calleeVar
		for i := 0; i < nargs; i++ {
			operands = append(operands, fb.resolve(env, n.Inputs()[1+i].Origin()))
		}
		trimmed := ops.Call(op.Symbol, sig, 0)
		results := make([]*variable.Variable, nresults)
		for i := 0; i < nresults; i++ {
			v := fb.fn.Cfg.Variables().NewLocal(sig.Results()[i], "")
			env[n.Outputs()[i]] = v
			results[i] = v
		}
		block.Tacs().Append(tac.New(trimmed, operands, results))
		return block
	default:
		operands := make([]*variable.Variable, len(n.Inputs()))
		for i, in := range n.Inputs() {
			operands[i] = fb.resolve(env, in.Origin())
		}
		results := make([]*variable.Variable, len(n.Outputs()))
		for i, out := range n.Outputs() {
			v := fb.fn.Cfg.Variables().NewLocal(out.Type, "")
			env[out] = v
			results[i] = v
		}
		block.Tacs().Append(tac.New(op, operands, results))
		return block
	}
}

// lowerGamma lowers a gamma node into a branch with a join: one fresh
// block per sub-region, entered from block and rejoined at a fresh join
// block, with each exit variable merged into one variable by an
// assignment at the end of every arm whose value is a different variable.
func (fb *downFuncBuilder) lowerGamma(n *rvsdg.Node, env map[*rvsdg.Output]*variable.Variable, block *cfg.Node) *cfg.Node {
	subregions := n.Subregions()
	join := fb.fn.Cfg.CreateBasicBlock()
	for _, sub := range subregions {
		arm := fb.fn.Cfg.CreateBasicBlock()
		block.AddOutEdge(arm)
		for j, arg := range sub.Arguments() {
			env[arg] = fb.resolve(env, n.Inputs()[1+j].Origin()) // Inputs()[0] is the predicate
		}
		armEnd := fb.lowerRegion(sub, env, arm)
		for k, res := range sub.Results() {
			v := fb.resolve(env, res.Origin())
			out := n.Outputs()[k]
			merged, ok := env[out]
			if !ok {
				merged = fb.fn.Cfg.Variables().NewLocal(out.Type, "")
				env[out] = merged
			}
			if merged != v {
				armEnd.Tacs().Append(tac.NewAssignment(merged, v))
			}
		}
		armEnd.AddOutEdge(join)
	}
	return join
}

// lowerTheta lowers a theta node into a do-while loop: the sub-region's
// body runs once unconditionally starting at header, then branches back
// to header (continue) or falls to a fresh block after the loop (exit),
// the textbook "do { body } while (predicate)" shape.
func (fb *downFuncBuilder) lowerTheta(n *rvsdg.Node, env map[*rvsdg.Output]*variable.Variable, block *cfg.Node) *cfg.Node {
	sub := n.Subregions()[0]
	loopVars := n.LoopVars()

	// One mutable variable per loop variable: seeded from the initial
	// value before the header, reassigned from the per-iteration result
	// at the tail, so the back-edge re-enters the body with the updated
	// values.
	carried := make([]*variable.Variable, len(loopVars))
	for i, lv := range loopVars {
		v := fb.fn.Cfg.Variables().NewLocal(lv.Argument.Type, "")
		block.Tacs().Append(tac.NewAssignment(v, fb.resolve(env, lv.Input.Origin())))
		env[lv.Argument] = v
		carried[i] = v
	}
	header := fb.fn.Cfg.CreateBasicBlock()
	block.AddOutEdge(header)
	tail := fb.lowerRegion(sub, env, header)
	for i, lv := range loopVars {
		next := fb.resolve(env, lv.Result.Origin())
		if next != carried[i] {
			tail.Tacs().Append(tac.NewAssignment(carried[i], next))
		}
	}
	fb.resolve(env, n.ThetaPredicate().Origin()) // the predicate must be materialized before branching
	after := fb.fn.Cfg.CreateBasicBlock()
	tail.AddOutEdge(header)
	tail.AddOutEdge(after)
	for i, lv := range loopVars {
		env[lv.Output] = carried[i]
	}
	return after
}
