package rvsdg

import "rvsdgc/internal/types"

// Output is a value producer: either a node's output or a region's
// argument.
type Output struct {
	id    id
	Type  types.Type
	owner *Region // region this output's value lives in
	node  *Node   // nil if this is a region argument
	index int     // position among node outputs, or region arguments

	users []*Input
}

// Node returns the producing node, or nil if this Output is a region
// argument.
func (o *Output) Node() *Node { return o.node }

// Region returns the region this value is visible in.
func (o *Output) Region() *Region { return o.owner }

// IsArgument reports whether this Output is a region argument rather
// than a node output.
func (o *Output) IsArgument() bool { return o.node == nil }

// Index returns the position of this output among its node's outputs, or
// among its region's arguments.
func (o *Output) Index() int { return o.index }

// Users returns the Inputs currently consuming this Output.
func (o *Output) Users() []*Input { return append([]*Input(nil), o.users...) }

// NumUsers returns len(Users()) without allocating.
func (o *Output) NumUsers() int { return len(o.users) }

func (o *Output) addUser(in *Input) {
	o.users = append(o.users, in)
}

func (o *Output) removeUser(in *Input) {
	for i, u := range o.users {
		if u == in {
			o.users = append(o.users[:i], o.users[i+1:]...)
			return
		}
	}
}

// Divert redirects every current user of o to newOrigin instead, leaving
// o with no users.
func (o *Output) Divert(newOrigin *Output) {
	users := o.users
	o.users = nil
	for _, in := range users {
		in.setOrigin(newOrigin)
	}
}

// Input is a value consumer: either a node's input or a region's result.
type Input struct {
	id     id
	Type   types.Type
	owner  *Region // the region this input/result lives in
	node   *Node   // nil if this is a region result
	index  int
	origin *Output
}

// Node returns the consuming node, or nil if this Input is a region
// result.
func (i *Input) Node() *Node { return i.node }

// Region returns the region this input/result lives in.
func (i *Input) Region() *Region { return i.owner }

// IsResult reports whether this Input is a region result rather than a
// node input.
func (i *Input) IsResult() bool { return i.node == nil }

// Index returns the position of this input among its node's inputs, or
// among its region's results.
func (i *Input) Index() int { return i.index }

// Origin returns the Output this input consumes.
func (i *Input) Origin() *Output { return i.origin }

func (i *Input) setOrigin(o *Output) {
	old := i.origin
	if old != nil {
		old.removeUser(i)
	}
	i.origin = o
	if o != nil {
		o.addUser(i)
	}
	if i.owner != nil && i.owner.graph != nil {
		i.owner.graph.notifyInputChange(i, old, o)
	}
}

// SetOrigin rebinds this input to consume a different Output, enforcing
// the region-nesting invariant.
func (i *Input) SetOrigin(o *Output) {
	if o.owner != i.owner {
		fatalf(i.owner, "SetOrigin: origin is in a different region than the input (nesting violation)")
	}
	i.setOrigin(o)
}
