package lower

import (
	"rvsdgc/internal/ir/variable"
	"rvsdgc/internal/rvsdg"
)

// environment is the variable-to-output mapping maintained while
// walking a CFG. Lookups follow an optional parent chain, but the
// lowering in this package gives each lambda body, gamma sub-region and
// theta body a fresh environment (parent nil) seeded with that region's
// entry/loop/context-variable arguments; values leaving the region are
// written back into the outer environment as exit-variable outputs.
type environment struct {
	parent *environment
	vars   map[*variable.Variable]*rvsdg.Output
}

func newEnvironment(parent *environment) *environment {
	return &environment{parent: parent, vars: map[*variable.Variable]*rvsdg.Output{}}
}

func (e *environment) get(v *variable.Variable) (*rvsdg.Output, bool) {
	for cur := e; cur != nil; cur = cur.parent {
		if o, ok := cur.vars[v]; ok {
			return o, true
		}
	}
	return nil, false
}

func (e *environment) set(v *variable.Variable, o *rvsdg.Output) {
	e.vars[v] = o
}

// live returns the set of variables currently bound anywhere visible from
// e, used to decide which variables become entry/loop variables when
// crossing into a gamma sub-region or theta body.
func (e *environment) live() []*variable.Variable {
	seen := map[*variable.Variable]bool{}
	var out []*variable.Variable
	for cur := e; cur != nil; cur = cur.parent {
		for v := range cur.vars {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}
