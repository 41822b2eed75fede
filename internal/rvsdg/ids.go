package rvsdg

// id is an arena-scoped identity, monotonically increasing per Graph.
// It is never reused within a Graph's lifetime,
// even after the thing it names is destroyed.
type id uint64

func (g *Graph) nextID() id {
	g.idCounter++
	return id(g.idCounter)
}
