// Package lower implements the CFG<->RVSDG conversion in both
// directions: Builder raises a module's functions into lambdas (and phi
// groups, for mutual recursion), processing the ip-graph bottom-up in
// SCC order; DownBuilder linearizes a graph's lambdas back into CFGs.
package lower

import (
	"rvsdgc/internal/errors"
	"rvsdgc/internal/ipgraph"
	"rvsdgc/internal/ir/module"
	"rvsdgc/internal/ir/variable"
	"rvsdgc/internal/ops"
	"rvsdgc/internal/rvsdg"
)

// Builder lowers a module's ip-graph into an RVSDG graph, one lambda (or
// phi of lambdas, for mutually-recursive groups) per SCC, bottom-up.
type Builder struct {
	graph       *rvsdg.Graph
	mod         *module.Module
	funcOutputs map[string]*rvsdg.Output

	// calleeVars memoizes one variable per (caller, symbol) pair so every
	// Call TAC referencing the same callee from the same function reuses
	// the same operand identity, letting ordinary live-variable threading
	// (entry-vars, loop-vars) carry the resolved callee value into nested
	// gamma/theta regions without a bespoke routing pass.
	calleeVars map[calleeKey]*variable.Variable
}

type calleeKey struct {
	fn     *module.Function
	symbol string
}

// NewBuilder prepares a Builder targeting g.
func NewBuilder(mod *module.Module, g *rvsdg.Graph) *Builder {
	return &Builder{
		graph:       g,
		mod:         mod,
		funcOutputs: map[string]*rvsdg.Output{},
		calleeVars:  map[calleeKey]*variable.Variable{},
	}
}

// CalleeVariable returns the canonical operand variable that every Call
// TAC inside fn referencing symbol must use as its first operand (the
// callee function value, per ops.Call's operand layout), minting one on
// first use. Module-construction code (an importer, or a test building a
// function body directly) must call this rather than minting its own
// variable per call-site, so lowering's live-variable threading resolves
// every call to the same value.
func (b *Builder) CalleeVariable(fn *module.Function, symbol string) *variable.Variable {
	key := calleeKey{fn: fn, symbol: symbol}
	if v, ok := b.calleeVars[key]; ok {
		return v
	}
	callee, ok := b.mod.LookupFunction(symbol)
	if !ok {
		errors.Fatalf(errors.Coordinate{Component: "lower"}, "CalleeVariable: unknown symbol %q", symbol)
	}
	v := fn.Cfg.Variables().NewLocal(callee.Type, "%callee."+symbol)
	b.calleeVars[key] = v
	return v
}

// FunctionOutput returns the rvsdg output representing the named
// function's callable value, once BuildModule has processed it.
func (b *Builder) FunctionOutput(name string) (*rvsdg.Output, bool) {
	o, ok := b.funcOutputs[name]
	return o, ok
}

// BuildModule lowers every function reachable from the module's ip-graph,
// processing SCCs bottom-up.
func (b *Builder) BuildModule() {
	for _, scc := range b.mod.IPGraph.FindSCCs() {
		b.buildSCC(scc)
	}
}

type namedFunc struct {
	name string
	fn   *module.Function
	ipn  *ipgraph.Node
}

func functionsOf(scc []*ipgraph.Node) []namedFunc {
	var out []namedFunc
	for _, n := range scc {
		if n.Kind != ipgraph.KindFunction {
			continue
		}
		fn, ok := n.Payload.(*module.Function)
		if !ok || fn.Cfg == nil {
			continue // declaration only, no body to lower
		}
		out = append(out, namedFunc{name: n.Name, fn: fn, ipn: n})
	}
	return out
}

func (b *Builder) buildSCC(scc []*ipgraph.Node) {
	fns := functionsOf(scc)
	if len(fns) == 0 {
		return // data-only SCC, or declarations without bodies
	}
	if len(fns) == 1 && !fns[0].ipn.IsSelfRecursive() {
		nf := fns[0]
		out := b.lowerLambda(b.graph.Root(), nf.name, nf.fn, nil)
		b.funcOutputs[nf.name] = out
		return
	}
	// Mutually recursive group.
	phi := rvsdg.NewPhi(b.graph.Root())
	bindings := map[string]*rvsdg.PhiBinding{}
	for _, nf := range fns {
		bindings[nf.name] = phi.AddPhiBinding(nf.fn.Type)
	}
	phiRegion := phi.Subregions()[0]
	for _, nf := range fns {
		out := b.lowerLambda(phiRegion, nf.name, nf.fn, bindings)
		phi.SetPhiBindingResult(bindings[nf.name], out)
	}
	for name, binding := range bindings {
		b.funcOutputs[name] = binding.Output
	}
}

// funcBuilder carries per-function lowering state.
type funcBuilder struct {
	b        *Builder
	fn       *module.Function
	siblings map[string]*rvsdg.PhiBinding
	lambda   *rvsdg.Node
}

// lowerLambda builds one lambda node for fn's body in region. siblings,
// when non-nil, maps every function name in the same phi binding group to
// its subregion binding argument, used to resolve calls to a sibling that
// has not finished building yet.
func (b *Builder) lowerLambda(region *rvsdg.Region, name string, fn *module.Function, siblings map[string]*rvsdg.PhiBinding) *rvsdg.Output {
	lambda := rvsdg.NewLambda(region, fn.Type, name)
	fb := &funcBuilder{b: b, fn: fn, siblings: siblings, lambda: lambda}

	env := newEnvironment(nil)
	for i, arg := range fn.Args {
		env.set(arg, lambda.FctArgument(i))
	}
	for _, symbol := range collectCallSymbols(fn) {
		calleeVar := b.CalleeVariable(fn, symbol)
		outer := fb.resolveCallee(symbol)
		env.set(calleeVar, lambda.AddCtxVar(outer))
	}

	sub := lambda.Subregions()[0]
	start := fn.Cfg.Entry().OutEdges()[0].Target
	fb.lowerFrom(sub, env, start, fn.Cfg.Exit())

	results := make([]*rvsdg.Output, 0, len(fn.Returns))
	for _, v := range fn.Returns {
		o, ok := env.get(v)
		if !ok {
			errors.Fatalf(errors.Coordinate{Component: "lower", Detail: name}, "return variable %s not defined on every path to exit", v.Name())
		}
		results = append(results, o)
	}
	return lambda.FinishLambda(results)
}

// resolveCallee finds the rvsdg output representing symbol's callable
// value in whatever region it was originally built (root, for an
// already-lowered earlier SCC, or the enclosing phi's sub-region, for a
// sibling still being built in the current group).
func (fb *funcBuilder) resolveCallee(symbol string) *rvsdg.Output {
	if out, ok := fb.b.funcOutputs[symbol]; ok {
		return out
	}
	if fb.siblings != nil {
		if binding, ok := fb.siblings[symbol]; ok {
			return binding.Argument
		}
	}
	errors.Fatalf(errors.Coordinate{Component: "lower"}, "call to unresolved symbol %q", symbol)
	return nil
}

// collectCallSymbols scans fn's CFG for every distinct ops.KindCall
// Symbol referenced, so the lambda's context variables can be set up
// before lowering the body.
func collectCallSymbols(fn *module.Function) []string {
	seen := map[string]bool{}
	var out []string
	for _, n := range fn.Cfg.Nodes() {
		list := blockTacs(n)
		if list == nil {
			continue
		}
		for _, t := range list.Tacs() {
			if t.Op.Kind == ops.KindCall && !seen[t.Op.Symbol] {
				seen[t.Op.Symbol] = true
				out = append(out, t.Op.Symbol)
			}
		}
	}
	return out
}
