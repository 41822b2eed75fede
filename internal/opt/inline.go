package opt

import (
	"rvsdgc/internal/ops"
	"rvsdgc/internal/rvsdg"
)

// RegisterInlining registers the call-site inlining rule for ops.KindCall,
// reusing the same RegisterRule/NormalizeRegion fixed-point machinery
// package normalform drives its rewrites through.
func RegisterInlining(g *rvsdg.Graph) {
	g.RegisterRule(ops.KindCall, inlineRule{})
}

// inlineRule: a call whose callee resolves to a lambda with exactly one
// use (this call, i.e. a direct call with a single call-site) is
// replaced by a copy of the lambda's body, substituting formal
// parameters with the
// call's arguments and context variables with the lambda's own captured
// origins. Restricted to the case where the call and the lambda live in
// the same region; a call nested deeper simply fails the applicability
// test and survives.
type inlineRule struct{}

func (inlineRule) Name() string { return "inline" }

func (inlineRule) TryRewrite(n *rvsdg.Node) bool {
	ins := n.Inputs()
	calleeOrigin := ins[0].Origin()
	if calleeOrigin.NumUsers() != 1 {
		return false // more than one call site, or other use of the function value
	}
	lambda := calleeOrigin.Node()
	if lambda == nil || !lambda.IsStructural() || lambda.StructuralKind() != rvsdg.StructuralLambda {
		return false
	}
	if lambda.Region() != n.Region() {
		return false
	}

	sig := lambda.Signature()
	nargs := len(sig.Operands())
	nresults := len(sig.Results())
	nstates := len(ins) - 1 - nargs
	if nstates < 0 {
		return false
	}

	region := n.Region()

	smap := rvsdg.NewSubstitutionMap()
	for i := 0; i < nargs; i++ {
		smap.Insert(lambda.FctArgument(i), ins[1+i].Origin())
	}
	for i := 0; i < lambda.NumCtxVars(); i++ {
		smap.Insert(lambda.CtxVarArgument(i), lambda.Inputs()[i].Origin())
	}

	body := lambda.Subregions()[0]
	body.Copy(region, smap)

	replacement := make([]*rvsdg.Output, len(n.Outputs()))
	bodyResults := body.Results()
	for i := 0; i < nresults; i++ {
		replacement[i] = resolveLocal(smap, bodyResults[i].Origin())
	}
	for i := 0; i < nstates; i++ {
		// The call's state operands are bookkeeping around the call, not
		// consumed by the callee's declared signature; inlining simply
		// threads them through unchanged.
		replacement[nresults+i] = ins[1+nargs+i].Origin()
	}

	divertAndRemove(n, replacement)
	return true
}
