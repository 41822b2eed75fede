package rvsdg

// Copy copies every node of r into target under smap, which must already
// map r's arguments (and any other origin a copied node depends on that
// lives outside r) to their target-side equivalents. Node outputs are
// recorded into smap as they are created, so later nodes in r that
// consume earlier ones resolve correctly.
func (r *Region) Copy(target *Region, smap *SubstitutionMap) {
	for _, n := range r.nodes {
		copyNode(n, target, smap)
	}
}

func copyNode(n *Node, target *Region, smap *SubstitutionMap) {
	if n.isSimple {
		operands := make([]*Output, len(n.inputs))
		for i, in := range n.inputs {
			operands[i] = resolve(smap, in.origin)
		}
		nn := target.graph.CreateSimpleNode(target, n.op, operands)
		for i, out := range n.outputs {
			smap.Insert(out, nn.outputs[i])
		}
		return
	}

	switch n.structKind {
	case StructuralGamma:
		copyGamma(n, target, smap)
	case StructuralTheta:
		copyTheta(n, target, smap)
	case StructuralLambda:
		copyLambda(n, target, smap)
	case StructuralPhi:
		copyPhi(n, target, smap)
	default:
		fatalf(target, "Copy: unknown structural kind")
	}
}

func copyGamma(n *Node, target *Region, smap *SubstitutionMap) {
	predicate := resolve(smap, n.predicate.origin)
	ngamma := NewGamma(target, predicate)

	entryInputs := n.inputs[1:] // Inputs()[0] is the predicate
	subSmaps := make([]*SubstitutionMap, len(n.subregions))
	for i := range subSmaps {
		subSmaps[i] = NewSubstitutionMap()
	}
	for ei, in := range entryInputs {
		origin := resolve(smap, in.origin)
		ev := ngamma.AddEntryVar(origin)
		for si, oldSub := range n.subregions {
			subSmaps[si].Insert(oldSub.arguments[ei], ev.Arguments[si])
		}
	}

	for si, oldSub := range n.subregions {
		oldSub.Copy(ngamma.subregions[si], subSmaps[si])
	}

	nresults := len(n.subregions[0].results)
	for ri := 0; ri < nresults; ri++ {
		origins := make([]*Output, len(n.subregions))
		for si, oldSub := range n.subregions {
			origins[si] = resolve(subSmaps[si], oldSub.results[ri].origin)
		}
		ev := ngamma.AddExitVar(origins)
		smap.Insert(n.outputs[ri], ev.Output)
	}
}

func copyTheta(n *Node, target *Region, smap *SubstitutionMap) {
	ntheta := NewTheta(target)
	subSmap := NewSubstitutionMap()
	loopVars := n.LoopVars()
	newLoopVars := make([]*LoopVar, len(loopVars))
	for i, lv := range loopVars {
		origin := resolve(smap, lv.Input.origin)
		nlv := ntheta.AddLoopVar(origin)
		subSmap.Insert(lv.Argument, nlv.Argument)
		newLoopVars[i] = nlv
	}

	n.subregions[0].Copy(ntheta.subregions[0], subSmap)

	for i, lv := range loopVars {
		newOrigin := resolve(subSmap, lv.Result.origin)
		newLoopVars[i].Result.SetOrigin(newOrigin)
	}
	predicate := resolve(subSmap, n.ThetaPredicate().origin)
	ntheta.CloseTheta(predicate)

	for i, lv := range loopVars {
		smap.Insert(lv.Output, newLoopVars[i].Output)
	}
}

func copyLambda(n *Node, target *Region, smap *SubstitutionMap) {
	nlambda := NewLambda(target, n.sig, n.name)
	subSmap := NewSubstitutionMap()
	for i := 0; i < n.fctArity; i++ {
		subSmap.Insert(n.subregions[0].arguments[i], nlambda.FctArgument(i))
	}
	for i := 0; i < n.NumCtxVars(); i++ {
		origin := resolve(smap, n.inputs[i].origin)
		arg := nlambda.AddCtxVar(origin)
		subSmap.Insert(n.CtxVarArgument(i), arg)
	}

	n.subregions[0].Copy(nlambda.subregions[0], subSmap)

	results := make([]*Output, len(n.subregions[0].results))
	for i, res := range n.subregions[0].results {
		results[i] = resolve(subSmap, res.origin)
	}
	out := nlambda.FinishLambda(results)
	smap.Insert(n.outputs[0], out)
}

func copyPhi(n *Node, target *Region, smap *SubstitutionMap) {
	nphi := NewPhi(target)
	subSmap := NewSubstitutionMap()
	ctxCount := len(n.inputs)
	bindingCount := len(n.phiBindings)

	newBindings := make([]*PhiBinding, bindingCount)
	for i := 0; i < bindingCount; i++ {
		nb := nphi.AddPhiBinding(n.phiBindings[i].Argument.Type)
		newBindings[i] = nb
		subSmap.Insert(n.phiBindings[i].Argument, nb.Argument)
	}
	for i := 0; i < ctxCount; i++ {
		origin := resolve(smap, n.inputs[i].origin)
		arg := nphi.AddCtxVar(origin)
		subSmap.Insert(n.subregions[0].arguments[bindingCount+i], arg)
	}

	n.subregions[0].Copy(nphi.subregions[0], subSmap)

	for i := 0; i < bindingCount; i++ {
		value := resolve(subSmap, n.phiBindings[i].Result.origin)
		nphi.SetPhiBindingResult(newBindings[i], value)
		smap.Insert(n.phiBindings[i].Output, newBindings[i].Output)
	}
}
