package adapters

import (
	"fmt"
	"strconv"
	"strings"

	"rvsdgc/internal/ir/cfg"
	"rvsdgc/internal/ir/module"
	"rvsdgc/internal/ir/tac"
	"rvsdgc/internal/ir/variable"
	"rvsdgc/internal/ops"
	"rvsdgc/internal/types"
)

// TextImporter and TextEmitter are the in-memory test double promised
// by adapters.go's package comment: a tiny line-oriented textual IR used
// only by this module's own conversion round-trip tests, standing in
// for a real LLVM importer/emitter without requiring an LLVM
// dependency. The grammar covers straight-line function bodies (no
// branch/loop syntax; the restructuring and gamma/theta construction
// already have direct coverage in internal/lower and internal/restructure)
// chained through fallthrough edges in block declaration order:
//
//	module NAME
//	func NAME(TYPE, TYPE) -> (TYPE)
//	block LABEL
//	 %dst = OPKIND OPERAND_DESC %operand, %operand
//	ret %operand, %operand
//	endfunc
//
// TYPE follows types.Type.String()'s own rendering (i<N>, a trailing *
// per pointer level, mem, io). OPKIND is one of the mnemonics in
// opKindSchemas; OPERAND_DESC is the fixed leading run of type/integer
// tokens that mnemonic's schema declares, e.g. "add i32 %a, %b" or
// "load i32 1 0 %ptr, %m0".
type TextImporter struct {
	mod    *module.Module
	blocks map[*module.Function]map[string]*cfg.Node
	order  map[*module.Function][]string
	env    map[*module.Function]map[string]*variable.Variable
}

// NewTextImporter creates a TextImporter that accumulates declarations
// into a fresh module identified by identifier.
func NewTextImporter(identifier, targetTriple string) *TextImporter {
	return &TextImporter{
		mod:    module.New(identifier, targetTriple, module.DataLayout{}),
		blocks: map[*module.Function]map[string]*cfg.Node{},
		order:  map[*module.Function][]string{},
		env:    map[*module.Function]map[string]*variable.Variable{},
	}
}

// CreateType parses desc in types.Type.String()'s own notation.
func (ti *TextImporter) CreateType(desc string) (types.Type, error) {
	return ParseType(desc)
}

// CreateFunction declares fn in the importer's module, with linkage
// external and exported true; this test double only round-trips
// function bodies, not the full linkage/visibility lattice.
func (ti *TextImporter) CreateFunction(name string, sig types.Type) (*module.Function, error) {
	fn, err := ti.mod.CreateFunction(name, sig, variable.LinkageExternal, true)
	if err != nil {
		return nil, err
	}
	ti.blocks[fn] = map[string]*cfg.Node{}
	env := map[string]*variable.Variable{}
	for i, a := range fn.Args {
		env[fmt.Sprintf("%%arg%d", i)] = a
	}
	ti.env[fn] = env
	return fn, nil
}

// AppendBasicBlock appends a new basic block to fn's CFG, fallthrough-
// chained after the previously appended block (or entry, for the first).
func (ti *TextImporter) AppendBasicBlock(fn *module.Function, label string) error {
	blocks := ti.blocks[fn]
	if blocks == nil {
		return fmt.Errorf("adapters: AppendBasicBlock: unknown function %q", fn.Name)
	}
	if _, exists := blocks[label]; exists {
		return fmt.Errorf("adapters: AppendBasicBlock: duplicate block %q in %q", label, fn.Name)
	}
	bb := fn.Cfg.CreateBasicBlock()
	order := ti.order[fn]
	if len(order) == 0 {
		fn.Cfg.Entry().RemoveOutEdges()
		fn.Cfg.Entry().AddOutEdge(bb)
	} else {
		blocks[order[len(order)-1]].AddOutEdge(bb)
	}
	blocks[label] = bb
	ti.order[fn] = append(order, label)
	return nil
}

// AppendTAC decodes opDesc (per opKindSchemas) and appends one TAC to the
// named block, minting fresh result variables and resolving operand names
// against every variable bound so far in fn (arguments plus prior results).
func (ti *TextImporter) AppendTAC(fn *module.Function, label string, opDesc string, operands, results []string) error {
	bb, ok := ti.blocks[fn][label]
	if !ok {
		return fmt.Errorf("adapters: AppendTAC: unknown block %q in %q", label, fn.Name)
	}
	op, err := decodeOperation(opDesc)
	if err != nil {
		return err
	}
	env := ti.env[fn]
	operandVars := make([]*variable.Variable, len(operands))
	for i, name := range operands {
		v, ok := env[name]
		if !ok {
			return fmt.Errorf("adapters: AppendTAC: undefined operand %q", name)
		}
		operandVars[i] = v
	}
	resultVars := make([]*variable.Variable, len(results))
	for i, name := range results {
		resultVars[i] = fn.Cfg.Variables().NewLocal(op.ResultTypes[i], name)
		env[name] = resultVars[i]
	}
	bb.Tacs().Append(tac.New(op, operandVars, resultVars))
	return nil
}

// SetReturns binds fn's result variables by name, the text format's
// stand-in for a `ret` line (module.Function.Returns has no TAC
// equivalent since the CFG has no dedicated return terminator).
func (ti *TextImporter) SetReturns(fn *module.Function, names []string) error {
	env := ti.env[fn]
	vars := make([]*variable.Variable, len(names))
	for i, name := range names {
		v, ok := env[name]
		if !ok {
			return fmt.Errorf("adapters: SetReturns: undefined variable %q", name)
		}
		vars[i] = v
	}
	fn.Returns = vars
	return nil
}

// Finalize closes every function's fallthrough chain onto exit and
// returns the assembled module. Forward references across functions
// already resolved eagerly (AddDependency is not exercised by this
// grammar, which has no call syntax), so Finalize has nothing left to
// resolve beyond the exit-edge wiring.
func (ti *TextImporter) Finalize() (*module.Module, error) {
	for fn, order := range ti.order {
		if len(order) == 0 {
			continue
		}
		last := ti.blocks[fn][order[len(order)-1]]
		last.AddOutEdge(fn.Cfg.Exit())
	}
	return ti.mod, nil
}

// TextEmitter renders a *module.Module back into the grammar TextImporter
// consumes, walking the ip-graph in SCC order and each CFG in reverse
// post-order per the Emitter contract.
type TextEmitter struct{}

// EmitModule implements Emitter. The opaque result is the rendered source
// as a string; EmitText unwraps it for callers that don't need the
// interface's generality.
func (TextEmitter) EmitModule(m *module.Module) (interface{}, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "module %s\n", m.Identifier)
	for _, scc := range m.IPGraph.FindSCCs() {
		for _, n := range scc {
			fn, ok := n.Payload.(*module.Function)
			if !ok || fn.Cfg == nil {
				continue
			}
			if err := emitFunction(&b, fn); err != nil {
				return nil, err
			}
		}
	}
	return b.String(), nil
}

func emitFunction(b *strings.Builder, fn *module.Function) error {
	operandTypes := fn.Type.Operands()
	res := fn.Type.Results()
	opStrs := make([]string, len(operandTypes))
	for i, t := range operandTypes {
		opStrs[i] = t.String()
	}
	resStrs := make([]string, len(res))
	for i, t := range res {
		resStrs[i] = t.String()
	}
	fmt.Fprintf(b, "func %s(%s) -> (%s)\n", fn.Name, strings.Join(opStrs, ", "), strings.Join(resStrs, ", "))

	labels := map[*cfg.Node]string{}
	i := 0
	for _, n := range fn.Cfg.ReversePostOrder() {
		if n.Kind() != cfg.KindBasicBlock {
			continue
		}
		labels[n] = fmt.Sprintf("bb%d", i)
		i++
	}
	for _, n := range fn.Cfg.ReversePostOrder() {
		if n.Kind() != cfg.KindBasicBlock {
			continue
		}
		fmt.Fprintf(b, "block %s\n", labels[n])
		for _, t := range n.Tacs().Tacs() {
			desc, err := encodeOperation(t.Op)
			if err != nil {
				return err
			}
			operandNames := make([]string, len(t.Operands))
			for j, v := range t.Operands {
				operandNames[j] = v.Name()
			}
			resultNames := make([]string, len(t.Results))
			for j, v := range t.Results {
				resultNames[j] = v.Name()
			}
			lhs := ""
			if len(resultNames) > 0 {
				lhs = strings.Join(resultNames, ", ") + " = "
			}
			line := desc
			if len(operandNames) > 0 {
				line = desc + " " + strings.Join(operandNames, ", ")
			}
			fmt.Fprintf(b, "  %s%s\n", lhs, line)
		}
	}
	if len(fn.Returns) > 0 {
		names := make([]string, len(fn.Returns))
		for i, v := range fn.Returns {
			names[i] = v.Name()
		}
		fmt.Fprintf(b, "ret %s\n", strings.Join(names, ", "))
	}
	b.WriteString("endfunc\n")
	return nil
}

// ParseType parses desc in types.Type.String()'s own notation: i<N>,
// mem, io, and any number of trailing '*' for pointer nesting.
func ParseType(desc string) (types.Type, error) {
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return types.Type{}, fmt.Errorf("adapters: empty type description")
	}
	depth := 0
	for strings.HasSuffix(desc, "*") {
		desc = strings.TrimSuffix(desc, "*")
		depth++
	}
	var base types.Type
	switch {
	case desc == "mem":
		base = types.MemState()
	case desc == "io":
		base = types.IOState()
	case strings.HasPrefix(desc, "i"):
		width, err := strconv.Atoi(desc[1:])
		if err != nil {
			return types.Type{}, fmt.Errorf("adapters: bad integer type %q: %w", desc, err)
		}
		base = types.Int(width)
	default:
		return types.Type{}, fmt.Errorf("adapters: unrecognized type %q", desc)
	}
	for i := 0; i < depth; i++ {
		base = types.Pointer(base)
	}
	return base, nil
}

var binaryArithMnemonics = map[string]ops.Kind{
	"add": ops.KindAdd, "sub": ops.KindSub, "mul": ops.KindMul,
	"sdiv": ops.KindSDiv, "udiv": ops.KindUDiv, "smod": ops.KindSMod,
	"umod": ops.KindUMod, "and": ops.KindAnd, "or": ops.KindOr,
	"xor": ops.KindXor, "shl": ops.KindShl, "ashr": ops.KindAShr,
	"lshr": ops.KindLShr,
}

var icmpMnemonics = map[string]ops.Kind{
	"icmp_eq": ops.KindICmpEq, "icmp_ne": ops.KindICmpNe,
	"icmp_slt": ops.KindICmpSlt, "icmp_sle": ops.KindICmpSle,
	"icmp_ult": ops.KindICmpUlt, "icmp_ule": ops.KindICmpUle,
}

// decodeOperation turns an opDesc string ("mnemonic param param...")
// into the ops.Operation it describes.
func decodeOperation(desc string) (ops.Operation, error) {
	fields := strings.Fields(desc)
	if len(fields) == 0 {
		return ops.Operation{}, fmt.Errorf("adapters: empty operation description")
	}
	mnemonic, params := fields[0], fields[1:]

	if kind, ok := binaryArithMnemonics[mnemonic]; ok {
		t, err := paramType(params, 0)
		if err != nil {
			return ops.Operation{}, err
		}
		return ops.BinaryArith(kind, t), nil
	}
	if kind, ok := icmpMnemonics[mnemonic]; ok {
		t, err := paramType(params, 0)
		if err != nil {
			return ops.Operation{}, err
		}
		return ops.ICmp(kind, t), nil
	}
	switch mnemonic {
	case "const":
		t, err := paramType(params, 0)
		if err != nil {
			return ops.Operation{}, err
		}
		bits, err := paramInt(params, 1)
		if err != nil {
			return ops.Operation{}, err
		}
		return ops.Constant(t, uint64(bits)), nil
	case "load":
		t, err := paramType(params, 0)
		if err != nil {
			return ops.Operation{}, err
		}
		nstates, err := paramInt(params, 1)
		if err != nil {
			return ops.Operation{}, err
		}
		alignment, err := paramInt(params, 2)
		if err != nil {
			return ops.Operation{}, err
		}
		return ops.Load(t, nstates, alignment), nil
	case "store":
		t, err := paramType(params, 0)
		if err != nil {
			return ops.Operation{}, err
		}
		nstates, err := paramInt(params, 1)
		if err != nil {
			return ops.Operation{}, err
		}
		alignment, err := paramInt(params, 2)
		if err != nil {
			return ops.Operation{}, err
		}
		return ops.Store(t, nstates, alignment), nil
	case "alloca":
		t, err := paramType(params, 0)
		if err != nil {
			return ops.Operation{}, err
		}
		alignment, err := paramInt(params, 1)
		if err != nil {
			return ops.Operation{}, err
		}
		return ops.Alloca(t, alignment), nil
	case "neg":
		t, err := paramType(params, 0)
		if err != nil {
			return ops.Operation{}, err
		}
		return ops.Operation{Kind: ops.KindNeg, OperandTypes: []types.Type{t}, ResultTypes: []types.Type{t}}, nil
	case "memstatemux":
		n, err := paramInt(params, 0)
		if err != nil {
			return ops.Operation{}, err
		}
		return ops.MemStateMux(n), nil
	case "assignment":
		t, err := paramType(params, 0)
		if err != nil {
			return ops.Operation{}, err
		}
		return ops.Assignment(t), nil
	}
	return ops.Operation{}, fmt.Errorf("adapters: unrecognized op mnemonic %q", mnemonic)
}

// encodeOperation is decodeOperation's inverse, used by EmitModule.
func encodeOperation(op ops.Operation) (string, error) {
	for mnemonic, kind := range binaryArithMnemonics {
		if op.Kind == kind {
			return fmt.Sprintf("%s %s", mnemonic, op.OperandTypes[0]), nil
		}
	}
	for mnemonic, kind := range icmpMnemonics {
		if op.Kind == kind {
			return fmt.Sprintf("%s %s", mnemonic, op.OperandTypes[0]), nil
		}
	}
	switch op.Kind {
	case ops.KindConstant:
		return fmt.Sprintf("const %s %d", op.ResultTypes[0], op.ConstantBits), nil
	case ops.KindLoad:
		return fmt.Sprintf("load %s %d %d", op.ResultTypes[0], len(op.ResultTypes)-1, op.Alignment), nil
	case ops.KindStore:
		return fmt.Sprintf("store %s %d %d", op.OperandTypes[1], len(op.ResultTypes), op.Alignment), nil
	case ops.KindAlloca:
		return fmt.Sprintf("alloca %s %d", *op.AllocatedType, op.Alignment), nil
	case ops.KindNeg:
		return fmt.Sprintf("neg %s", op.OperandTypes[0]), nil
	case ops.KindMemStateMux:
		return fmt.Sprintf("memstatemux %d", len(op.OperandTypes)), nil
	case ops.KindAssignment:
		return fmt.Sprintf("assignment %s", op.ResultTypes[0]), nil
	}
	return "", fmt.Errorf("adapters: EmitModule: op kind %s has no text encoding", op.Kind)
}

func paramType(params []string, i int) (types.Type, error) {
	if i >= len(params) {
		return types.Type{}, fmt.Errorf("adapters: missing type parameter at position %d", i)
	}
	return ParseType(params[i])
}

func paramInt(params []string, i int) (int, error) {
	if i >= len(params) {
		return 0, fmt.Errorf("adapters: missing integer parameter at position %d", i)
	}
	return strconv.Atoi(params[i])
}

// ImportText drives a TextImporter over src, the grammar TextImporter's
// doc comment describes. It is the reference driver for that grammar,
// analogous to an LLVM-bitcode-reader driving the Importer interface one
// declaration at a time.
func ImportText(src string) (*module.Module, error) {
	ti := NewTextImporter("text", "")
	var fn *module.Function
	var block string
	for lineNo, raw := range strings.Split(src, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		switch {
		case strings.HasPrefix(line, "module "):
			ti.mod.Identifier = strings.TrimSpace(strings.TrimPrefix(line, "module "))
		case strings.HasPrefix(line, "func "):
			name, sig, err := parseFuncHeader(line)
			if err != nil {
				return nil, fmt.Errorf("adapters: line %d: %w", lineNo+1, err)
			}
			fn, err = ti.CreateFunction(name, sig)
			if err != nil {
				return nil, fmt.Errorf("adapters: line %d: %w", lineNo+1, err)
			}
			block = ""
		case strings.HasPrefix(line, "block "):
			block = strings.TrimSpace(strings.TrimPrefix(line, "block "))
			if err := ti.AppendBasicBlock(fn, block); err != nil {
				return nil, fmt.Errorf("adapters: line %d: %w", lineNo+1, err)
			}
		case strings.HasPrefix(line, "ret"):
			names := splitCSV(strings.TrimSpace(strings.TrimPrefix(line, "ret")))
			if err := ti.SetReturns(fn, names); err != nil {
				return nil, fmt.Errorf("adapters: line %d: %w", lineNo+1, err)
			}
		case line == "endfunc":
			fn, block = nil, ""
		case line == "endmodule":
			// nothing to do; Finalize assembles the module.
		default:
			results, opDesc, operands, err := parseTACLine(line)
			if err != nil {
				return nil, fmt.Errorf("adapters: line %d: %w", lineNo+1, err)
			}
			if err := ti.AppendTAC(fn, block, opDesc, operands, results); err != nil {
				return nil, fmt.Errorf("adapters: line %d: %w", lineNo+1, err)
			}
		}
	}
	return ti.Finalize()
}

// EmitText drives a TextEmitter over m and returns the rendered source.
func EmitText(m *module.Module) (string, error) {
	out, err := (TextEmitter{}).EmitModule(m)
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

// parseFuncHeader parses "func NAME(TYPE, TYPE) -> (TYPE)".
func parseFuncHeader(line string) (string, types.Type, error) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, "func "))
	nameEnd := strings.IndexByte(rest, '(')
	if nameEnd < 0 {
		return "", types.Type{}, fmt.Errorf("malformed func header %q", line)
	}
	name := strings.TrimSpace(rest[:nameEnd])
	rest = rest[nameEnd:]
	open, close := strings.IndexByte(rest, '('), strings.IndexByte(rest, ')')
	if open < 0 || close < open {
		return "", types.Type{}, fmt.Errorf("malformed func header %q", line)
	}
	operandDescs := splitCSV(rest[open+1 : close])
	rest = strings.TrimSpace(rest[close+1:])
	rest = strings.TrimPrefix(rest, "->")
	rest = strings.TrimSpace(rest)
	open, close = strings.IndexByte(rest, '('), strings.IndexByte(rest, ')')
	if open < 0 || close < open {
		return "", types.Type{}, fmt.Errorf("malformed func header %q", line)
	}
	resultDescs := splitCSV(rest[open+1 : close])

	operands := make([]types.Type, len(operandDescs))
	for i, d := range operandDescs {
		t, err := ParseType(d)
		if err != nil {
			return "", types.Type{}, err
		}
		operands[i] = t
	}
	results := make([]types.Type, len(resultDescs))
	for i, d := range resultDescs {
		t, err := ParseType(d)
		if err != nil {
			return "", types.Type{}, err
		}
		results[i] = t
	}
	return name, types.Function(operands, results), nil
}

// parseTACLine parses "%dst[, %dst] = mnemonic param..., %operand, ...".
func parseTACLine(line string) (results []string, opDesc string, operands []string, err error) {
	eq := strings.Index(line, "=")
	if eq < 0 {
		return nil, "", nil, fmt.Errorf("malformed instruction %q", line)
	}
	results = splitCSV(line[:eq])
	fields := strings.Fields(strings.TrimSpace(line[eq+1:]))
	if len(fields) == 0 {
		return nil, "", nil, fmt.Errorf("malformed instruction %q", line)
	}
	mnemonic := fields[0]
	nparams, ok := opDescParamCounts[mnemonic]
	if !ok {
		return nil, "", nil, fmt.Errorf("unrecognized op mnemonic %q", mnemonic)
	}
	rest := fields[1:]
	if len(rest) < nparams {
		return nil, "", nil, fmt.Errorf("%q: expected %d leading parameters, got %q", mnemonic, nparams, line)
	}
	opDesc = strings.Join(append([]string{mnemonic}, rest[:nparams]...), " ")
	operands = splitCSV(strings.Join(rest[nparams:], " "))
	return results, opDesc, operands, nil
}

// opDescParamCounts declares how many leading type/integer tokens follow
// each mnemonic before the operand name list begins, mirroring the
// parameter lists decodeOperation expects.
var opDescParamCounts = map[string]int{
	"add": 1, "sub": 1, "mul": 1, "sdiv": 1, "udiv": 1, "smod": 1, "umod": 1,
	"and": 1, "or": 1, "xor": 1, "shl": 1, "ashr": 1, "lshr": 1,
	"icmp_eq": 1, "icmp_ne": 1, "icmp_slt": 1, "icmp_sle": 1, "icmp_ult": 1, "icmp_ule": 1,
	"const": 2, "load": 3, "store": 3, "alloca": 2, "neg": 1,
	"memstatemux": 1, "assignment": 1,
}

// splitCSV splits s on commas, trimming whitespace and dropping empty
// fields (so "" yields nil rather than [""]).
func splitCSV(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
