// Package pointsto implements the points-to graph, the result type of
// alias analyses. Nodes are allocation sites, imported symbols, RVSDG
// value registers, or a single unknown sentinel; edges mean "may point
// to". Node is a tagged variant over a closed Kind set; allocation and
// register nodes are keyed by pointer identity on their producing
// *rvsdg.Node / *rvsdg.Output, so no separate handle type is needed.
package pointsto

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	ierrors "rvsdgc/internal/errors"
	"rvsdgc/internal/rvsdg"
)

// Kind distinguishes the four points-to node variants.
type Kind int

const (
	KindAllocation Kind = iota
	KindImport
	KindRegister
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindAllocation:
		return "alloc"
	case KindImport:
		return "import"
	case KindRegister:
		return "register"
	case KindUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// Node is a points-to graph node. Exactly one of the producer fields is
// set, matching Kind.
type Node struct {
	kind Kind

	allocSite *rvsdg.Node   // KindAllocation: the alloca/malloc-like producer
	imported  string        // KindImport: the imported symbol name
	register  *rvsdg.Output // KindRegister: the RVSDG pointer-typed output

	g *Graph

	targets map[*Node]bool // may-point-to destinations (memory nodes only)
	sources map[*Node]bool // inverse edges, for Sources()
}

// Kind returns which variant this node is.
func (n *Node) Kind() Kind { return n.kind }

// AllocSite returns the allocating RVSDG node for a KindAllocation node,
// or nil otherwise.
func (n *Node) AllocSite() *rvsdg.Node { return n.allocSite }

// ImportSymbol returns the imported symbol name for a KindImport node,
// or "" otherwise.
func (n *Node) ImportSymbol() string { return n.imported }

// Register returns the RVSDG output for a KindRegister node, or nil
// otherwise.
func (n *Node) Register() *rvsdg.Output { return n.register }

// IsMemoryNode reports whether this node can be an edge target: allocation,
// import, and unknown nodes denote memory; register nodes only denote
// values that may point at memory, so they are edge sources only, never
// targets.
func (n *Node) IsMemoryNode() bool { return n.kind != KindRegister }

// AddEdge records that n may point to target. target must be a memory
// node.
func (n *Node) AddEdge(target *Node) {
	if !target.IsMemoryNode() {
		ierrors.Fatalf(ierrors.Coordinate{Component: "pointsto"}, "AddEdge: target %s is not a memory node", target.DebugString())
	}
	if n.targets == nil {
		n.targets = map[*Node]bool{}
	}
	n.targets[target] = true
	if target.sources == nil {
		target.sources = map[*Node]bool{}
	}
	target.sources[n] = true
}

// RemoveEdge removes a previously added may-point-to edge, a no-op if
// absent.
func (n *Node) RemoveEdge(target *Node) {
	delete(n.targets, target)
	delete(target.sources, n)
}

// Targets iterates n's may-point-to destinations, in a stable order
// (sorted by debug string) so graph dumps are reproducible.
func (n *Node) Targets() []*Node {
	out := make([]*Node, 0, len(n.targets))
	for t := range n.targets {
		out = append(out, t)
	}
	sortNodes(out)
	return out
}

// Sources iterates the nodes whose targets include n.
func (n *Node) Sources() []*Node {
	out := make([]*Node, 0, len(n.sources))
	for s := range n.sources {
		out = append(out, s)
	}
	sortNodes(out)
	return out
}

func sortNodes(nodes []*Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].DebugString() < nodes[j].DebugString() })
}

// DebugString renders a short human label, mirroring each C++ variant's
// debug_string override.
func (n *Node) DebugString() string {
	switch n.kind {
	case KindAllocation:
		return fmt.Sprintf("alloc<%s>", n.allocSite.DebugLabel())
	case KindImport:
		return fmt.Sprintf("import<%s>", n.imported)
	case KindRegister:
		return fmt.Sprintf("reg<%p>", n.register)
	default:
		return "unknown"
	}
}

// Graph is the points-to graph: allocation, import, and register nodes
// plus a single unknown sentinel.
type Graph struct {
	// RunID is a fresh uuid identifying this analysis run, the same
	// identity scheme rvsdg.Graph stamps onto itself; ToDot does not
	// print it.
	RunID uuid.UUID

	allocNodes map[*rvsdg.Node]*Node
	impNodes   map[string]*Node
	regNodes   map[*rvsdg.Output]*Node

	unknown *Node
}

// New creates an empty points-to graph with its unknown sentinel.
func New() *Graph {
	g := &Graph{
		RunID:      uuid.New(),
		allocNodes: map[*rvsdg.Node]*Node{},
		impNodes:   map[string]*Node{},
		regNodes:   map[*rvsdg.Output]*Node{},
	}
	g.unknown = &Node{kind: KindUnknown, g: g}
	return g
}

// Unknown returns the graph's unique unknown sentinel node.
func (g *Graph) Unknown() *Node { return g.unknown }

// AddAllocation returns the allocation node for producer, creating it on
// first use.
func (g *Graph) AddAllocation(producer *rvsdg.Node) *Node {
	if n, ok := g.allocNodes[producer]; ok {
		return n
	}
	n := &Node{kind: KindAllocation, allocSite: producer, g: g}
	g.allocNodes[producer] = n
	return n
}

// AddImport returns the import node for symbol, creating it on first use.
func (g *Graph) AddImport(symbol string) *Node {
	if n, ok := g.impNodes[symbol]; ok {
		return n
	}
	n := &Node{kind: KindImport, imported: symbol, g: g}
	g.impNodes[symbol] = n
	return n
}

// AddRegister returns the register node for out, creating it on first use.
func (g *Graph) AddRegister(out *rvsdg.Output) *Node {
	if n, ok := g.regNodes[out]; ok {
		return n
	}
	n := &Node{kind: KindRegister, register: out, g: g}
	g.regNodes[out] = n
	return n
}

// NotFoundError is the error type returned by FindAllocation/FindImport/
// FindRegister on a missing key.
type NotFoundError struct {
	Kind Kind
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("pointsto: no %s node for %s", e.Kind, e.Key)
}

// FindAllocation looks up an existing allocation node without creating
// one.
func (g *Graph) FindAllocation(producer *rvsdg.Node) (*Node, error) {
	if n, ok := g.allocNodes[producer]; ok {
		return n, nil
	}
	return nil, &NotFoundError{Kind: KindAllocation, Key: producer.DebugLabel()}
}

// FindImport looks up an existing import node without creating one.
func (g *Graph) FindImport(symbol string) (*Node, error) {
	if n, ok := g.impNodes[symbol]; ok {
		return n, nil
	}
	return nil, &NotFoundError{Kind: KindImport, Key: symbol}
}

// FindRegister looks up an existing register node without creating one.
func (g *Graph) FindRegister(out *rvsdg.Output) (*Node, error) {
	if n, ok := g.regNodes[out]; ok {
		return n, nil
	}
	return nil, &NotFoundError{Kind: KindRegister, Key: fmt.Sprintf("%p", out)}
}

// AllocationNodes returns all allocation nodes, sorted for reproducible
// iteration.
func (g *Graph) AllocationNodes() []*Node {
	out := make([]*Node, 0, len(g.allocNodes))
	for _, n := range g.allocNodes {
		out = append(out, n)
	}
	sortNodes(out)
	return out
}

// ImportNodes returns all import nodes, sorted for reproducible
// iteration.
func (g *Graph) ImportNodes() []*Node {
	out := make([]*Node, 0, len(g.impNodes))
	for _, n := range g.impNodes {
		out = append(out, n)
	}
	sortNodes(out)
	return out
}

// RegisterNodes returns all register nodes, sorted for reproducible
// iteration.
func (g *Graph) RegisterNodes() []*Node {
	out := make([]*Node, 0, len(g.regNodes))
	for _, n := range g.regNodes {
		out = append(out, n)
	}
	sortNodes(out)
	return out
}

// NumNodes returns the total node count, including the unknown sentinel.
func (g *Graph) NumNodes() int {
	return len(g.allocNodes) + len(g.impNodes) + len(g.regNodes) + 1
}

// allNodes returns every node in the graph, sorted, unknown last.
func (g *Graph) allNodes() []*Node {
	out := append([]*Node(nil), g.AllocationNodes()...)
	out = append(out, g.ImportNodes()...)
	out = append(out, g.RegisterNodes()...)
	out = append(out, g.unknown)
	return out
}

// ToDot renders the points-to graph as Graphviz dot source.
func ToDot(g *Graph) string {
	var b strings.Builder
	b.WriteString("digraph PointsToGraph {\n")
	ids := map[*Node]string{}
	for i, n := range g.allNodes() {
		id := fmt.Sprintf("n%d", i)
		ids[n] = id
		shape := "ellipse"
		if n.kind == KindUnknown {
			shape = "doublecircle"
		} else if n.kind == KindRegister {
			shape = "box"
		}
		fmt.Fprintf(&b, "  %s [label=%q shape=%s];\n", id, n.DebugString(), shape)
	}
	for _, n := range g.allNodes() {
		for _, t := range n.Targets() {
			fmt.Fprintf(&b, "  %s -> %s;\n", ids[n], ids[t])
		}
	}
	b.WriteString("}\n")
	return b.String()
}
