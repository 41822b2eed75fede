package rvsdg

import "rvsdgc/internal/errors"

// fatalf raises an invariant-violation panic anchored on the given
// region.
func fatalf(r *Region, format string, args ...interface{}) {
	detail := "root region"
	if r != nil && r.node != nil {
		detail = r.node.DebugLabel()
	}
	errors.Fatalf(errors.Coordinate{Component: "rvsdg", Detail: detail}, format, args...)
}
