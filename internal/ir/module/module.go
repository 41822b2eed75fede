// Package module implements the symbolic-IR module builder: Module owns
// an ip-graph, functions, and global data.
package module

import (
	"rvsdgc/internal/ipgraph"
	"rvsdgc/internal/ir/cfg"
	"rvsdgc/internal/ir/tac"
	"rvsdgc/internal/ir/variable"
	"rvsdgc/internal/types"
)

// Function is the payload of a KindFunction ip-node: an optional CFG, its
// signature, linkage, and export flag.
type Function struct {
	Name     string
	Type     types.Type // KindFunction
	Linkage  variable.Linkage
	Exported bool
	Cfg      *cfg.Cfg // nil until a body is attached
	Args     []*variable.Variable

	// Returns names the variables, in order, that hold the function's
	// result values at the point control reaches Cfg.Exit(); the CFG has
	// no dedicated "return" terminator, so lowering (internal/lower)
	// needs this explicit list to know which live variables become the
	// lambda's results.
	Returns []*variable.Variable
}

// Data is the payload of a KindData ip-node: a type, linkage, a
// constant-initializer TAC sequence, and a constant/non-constant flag.
type Data struct {
	Name        string
	Type        types.Type
	Linkage     variable.Linkage
	Constant    bool
	Initializer *tac.List
}

// DataLayout carries the target's datalayout descriptor; kept opaque
// since no core transformation interprets it.
type DataLayout struct {
	Description string
}

// Module owns an ip-graph plus module-level identity.
type Module struct {
	Identifier   string
	TargetTriple string
	DataLayout   DataLayout

	IPGraph *ipgraph.Graph
}

// New creates an empty module.
func New(identifier, targetTriple string, layout DataLayout) *Module {
	return &Module{
		Identifier:   identifier,
		TargetTriple: targetTriple,
		DataLayout:   layout,
		IPGraph:      ipgraph.New(),
	}
}

// CreateFunction adds a function ip-node with an empty CFG.
func (m *Module) CreateFunction(name string, sig types.Type, linkage variable.Linkage, exported bool) (*Function, error) {
	fn := &Function{Name: name, Type: sig, Linkage: linkage, Exported: exported, Cfg: cfg.New()}
	fn.Args = make([]*variable.Variable, len(sig.Operands()))
	for i, t := range sig.Operands() {
		fn.Args[i] = fn.Cfg.Variables().NewArgument(t, "")
	}
	if _, err := m.IPGraph.AddFunction(name, fn); err != nil {
		return nil, err
	}
	return fn, nil
}

// CreateData adds a data ip-node.
func (m *Module) CreateData(name string, t types.Type, linkage variable.Linkage, constant bool) (*Data, error) {
	d := &Data{Name: name, Type: t, Linkage: linkage, Constant: constant, Initializer: &tac.List{}}
	if _, err := m.IPGraph.AddData(name, d); err != nil {
		return nil, err
	}
	return d, nil
}

// AddDependency records that src's ip-node references tgt's.
func (m *Module) AddDependency(src, tgt string) error {
	node, ok := m.IPGraph.Lookup(src)
	if !ok {
		return notFound(src)
	}
	if _, ok := m.IPGraph.Lookup(tgt); !ok {
		return notFound(tgt)
	}
	node.AddDependency(tgt)
	return nil
}

// LookupFunction resolves a function ip-node by name.
func (m *Module) LookupFunction(name string) (*Function, bool) {
	n, ok := m.IPGraph.Lookup(name)
	if !ok || n.Kind != ipgraph.KindFunction {
		return nil, false
	}
	return n.Payload.(*Function), true
}

// LookupData resolves a data ip-node by name.
func (m *Module) LookupData(name string) (*Data, bool) {
	n, ok := m.IPGraph.Lookup(name)
	if !ok || n.Kind != ipgraph.KindData {
		return nil, false
	}
	return n.Payload.(*Data), true
}

func notFound(name string) error {
	return &NotFoundError{Name: name}
}

// NotFoundError is returned by AddDependency when either endpoint is
// absent from the ip-graph.
type NotFoundError struct{ Name string }

func (e *NotFoundError) Error() string { return "module: ip-node not found: " + e.Name }
