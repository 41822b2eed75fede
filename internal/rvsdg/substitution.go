package rvsdg

// SubstitutionMap records an Output -> Output rebinding used while
// copying a region under a different structural-node scope: inlining
// binds formal parameters to call-site arguments through it, inversion
// binds loop arguments to their hoisted equivalents.
type SubstitutionMap struct {
	outputs map[*Output]*Output
}

// NewSubstitutionMap creates an empty map.
func NewSubstitutionMap() *SubstitutionMap {
	return &SubstitutionMap{outputs: map[*Output]*Output{}}
}

// Insert records that old should be replaced by new wherever old is used
// as an origin during a copy.
func (m *SubstitutionMap) Insert(old, new *Output) { m.outputs[old] = new }

// Lookup returns the substitute for old, if one was recorded.
func (m *SubstitutionMap) Lookup(old *Output) (*Output, bool) {
	v, ok := m.outputs[old]
	return v, ok
}

// resolve returns the substitute for old if the map has one, otherwise
// old itself; an unmapped origin is assumed to already be visible in
// the copy's target scope (e.g. a value from a region shared by both
// source and target).
func resolve(m *SubstitutionMap, old *Output) *Output {
	if v, ok := m.outputs[old]; ok {
		return v
	}
	return old
}
