// Package opt implements the structural transforms and region-wide
// sweeps: call-site inlining, theta/gamma loop inversion, dead-node
// elimination, and common-subexpression elimination, all expressed over
// the public rvsdg package API (SubstitutionMap, Region.Copy, the
// structural-node builders) rather than reaching into package rvsdg's
// internals.
package opt

import "rvsdgc/internal/rvsdg"

// resolveLocal mirrors package rvsdg's unexported substitution-map
// fallback: an origin with no recorded substitute is assumed to already be
// visible in the target scope.
func resolveLocal(m *rvsdg.SubstitutionMap, old *rvsdg.Output) *rvsdg.Output {
	if v, ok := m.Lookup(old); ok {
		return v
	}
	return old
}

func divertAndRemove(old *rvsdg.Node, replacement []*rvsdg.Output) {
	for i, o := range old.Outputs() {
		o.Divert(replacement[i])
	}
	old.Remove()
}
