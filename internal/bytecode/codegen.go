package bytecode

import (
	"github.com/vexlang/vexc/internal/ast"
	"github.com/vexlang/vexc/internal/diag"
	"github.com/vexlang/vexc/internal/lower"
	"github.com/vexlang/vexc/internal/prelude"
	"github.com/vexlang/vexc/internal/types"
)

// Generate walks prog's functions and emits one Chunk per function, plus
// a native chunk for each std.io binding a call site might reference.
func Generate(a *ast.Arena, prog *lower.Program) (*Program, *diag.Error) {
	out := &Program{}
	for _, fn := range prog.Functions {
		chunk, err := generateFunction(a, fn)
		if err != nil {
			return nil, err
		}
		out.Chunks = append(out.Chunks, chunk)
	}
	out.Chunks = append(out.Chunks,
		nativeChunk("std.io.print", PRINT),
		nativeChunk("std.io.println", PRINTLN),
	)
	return out, nil
}

type fnGen struct {
	arena  *ast.Arena
	chunk  *Chunk
	regs   uint8
	labels uint32
	locals map[string]uint8 // simple-name -> register, scope_distance 0 only
}

func generateFunction(a *ast.Arena, fn *lower.Function) (*Chunk, *diag.Error) {
	g := &fnGen{arena: a, chunk: newChunk(fn.Name), locals: map[string]uint8{}}
	for _, p := range fn.Params {
		g.locals[p.Name] = g.nextReg()
	}

	body := a.GetNode(fn.Body)
	var result uint8
	hasResult := false
	for _, stmt := range body.Children {
		r, used, err := g.statement(stmt)
		if err != nil {
			return nil, err
		}
		if used {
			result, hasResult = r, true
		} else {
			hasResult = false
		}
	}
	if !hasResult {
		result = g.nextReg()
	}
	g.emitRetUI8(result)
	return g.chunk, nil
}

func (g *fnGen) nextReg() uint8 {
	r := g.regs
	g.regs++
	return r
}

func (g *fnGen) nextLabel() uint32 {
	id := g.labels
	g.labels++
	return id
}

func (g *fnGen) emitLabel(id uint32) {
	g.chunk.writeOp(LBL_UI32)
	g.chunk.writeU32(id)
}

func (g *fnGen) emitRetUI8(reg uint8) {
	g.chunk.writeOp(RET_UI8)
	g.chunk.writeU8(reg)
}

// statement lowers one top-level-of-block node, returning the register
// holding its value when it produced one (an expression in tail or
// BLOCK_RESULT position); used is false for pure-effect statements.
func (g *fnGen) statement(id ast.NodeID) (uint8, bool, *diag.Error) {
	n := g.arena.GetNode(id)
	switch n.Kind {
	case ast.KindAssignment:
		return g.assignment(id)
	case ast.KindDeclaration:
		return 0, false, nil
	case ast.KindExportStmt, ast.KindImportDeclaration, ast.KindModuleDeclaration:
		return 0, false, nil
	case ast.KindBlockResult:
		r, err := g.expr(n.Children[0])
		if err != nil {
			return 0, false, err
		}
		return r, true, nil
	case ast.KindWhileLoop:
		return 0, false, g.whileLoop(id)
	default:
		r, err := g.expr(id)
		if err != nil {
			return 0, false, err
		}
		return r, true, nil
	}
}

func (g *fnGen) assignment(id ast.NodeID) (uint8, bool, *diag.Error) {
	n := g.arena.GetNode(id)
	lhs := n.Children[0]
	rhs := n.Children[len(n.Children)-1]
	lhsNode := g.arena.GetNode(lhs)

	r, err := g.expr(rhs)
	if err != nil {
		return 0, false, err
	}

	if lhsNode.Kind == ast.KindIdentifierTuple {
		// The aggregate value lives in register r with no runtime
		// decomposition op in this ISA; each bound name aliases the same
		// register, since dotted projection is resolved at compile time.
		for _, elemID := range lhsNode.Children {
			name := g.arena.Identifier(elemID).Segments[0]
			g.locals[name] = r
		}
		return 0, false, nil
	}

	name := g.arena.Identifier(lhs).Segments[0]
	g.locals[name] = r
	return 0, false, nil
}

func (g *fnGen) whileLoop(id ast.NodeID) *diag.Error {
	n := g.arena.GetNode(id)
	test, body := n.Children[0], n.Children[1]

	top := g.nextLabel()
	end := g.nextLabel()
	g.emitLabel(top)

	testReg, err := g.expr(test)
	if err != nil {
		return err
	}
	g.chunk.writeOp(JRZ_REG_I32)
	g.chunk.writeU8(testReg)
	g.chunk.writeU32(end)

	bodyNode := g.arena.GetNode(body)
	for _, stmt := range bodyNode.Children {
		if _, _, err := g.statement(stmt); err != nil {
			return err
		}
	}
	g.chunk.writeOp(JMPR_I32)
	g.chunk.writeU32(top)
	g.emitLabel(end)
	return nil
}

// expr evaluates an expression node into a fresh (or reused) register and
// returns its index.
func (g *fnGen) expr(id ast.NodeID) (uint8, *diag.Error) {
	n := g.arena.GetNode(id)
	switch n.Kind {
	case ast.KindNumber:
		return g.loadNumber(id)
	case ast.KindBoolean:
		return g.loadBoolean(id)
	case ast.KindIdentifier:
		return g.loadIdentifier(id)
	case ast.KindFunctionCall:
		return g.call(id)
	case ast.KindIfStatement:
		return g.ifExpr(id)
	case ast.KindMatch:
		return g.matchExpr(id)
	case ast.KindBlock:
		return g.blockExpr(id)
	case ast.KindReference:
		return g.expr(n.Children[0])
	default:
		if n.Kind.IsBinaryOp() {
			return g.binaryOp(id)
		}
		return 0, diag.Link("unsupported expression node %s in code generation", n.Kind)
	}
}

func (g *fnGen) loadNumber(id ast.NodeID) (uint8, *diag.Error) {
	data := g.arena.Number(id)
	r := g.nextReg()
	width := data.Width
	if width == types.KindUnset {
		width = types.KindI32
	}
	switch width {
	case types.KindI8, types.KindUI8:
		g.chunk.writeOp(MV_REG_UI8)
		g.chunk.writeU8(r)
		g.chunk.writeU8(uint8(data.Value))
	case types.KindI16, types.KindUI16:
		g.chunk.writeOp(MV_REG_UI16)
		g.chunk.writeU8(r)
		g.chunk.writeU16(uint16(data.Value))
	case types.KindI64, types.KindUI64:
		g.chunk.writeOp(MV_REG_UI64)
		g.chunk.writeU8(r)
		g.chunk.writeU64(uint64(data.Value))
	default:
		g.chunk.writeOp(MV_REG_UI32)
		g.chunk.writeU8(r)
		g.chunk.writeU32(uint32(data.Value))
	}
	return r, nil
}

func (g *fnGen) loadBoolean(id ast.NodeID) (uint8, *diag.Error) {
	data := g.arena.Boolean(id)
	r := g.nextReg()
	v := uint8(0)
	if data.Value {
		v = 1
	}
	g.chunk.writeOp(MV_REG_UI8)
	g.chunk.writeU8(r)
	g.chunk.writeU8(v)
	return r, nil
}

func (g *fnGen) loadIdentifier(id ast.NodeID) (uint8, *diag.Error) {
	data := g.arena.Identifier(id)
	name := data.Segments[0]
	if r, ok := g.locals[name]; ok {
		return r, nil
	}
	return 0, diag.Link("codegen: identifier %q has no bound register (scope_distance %d outside the current function frame is not supported by this ISA)", name, data.ScopeDistance)
}

func (g *fnGen) binaryOp(id ast.NodeID) (uint8, *diag.Error) {
	n := g.arena.GetNode(id)
	left, err := g.expr(n.Children[0])
	if err != nil {
		return 0, err
	}
	right, err := g.expr(n.Children[1])
	if err != nil {
		return 0, err
	}
	dst := g.nextReg()
	op, ok := binaryOpcodes[n.Kind]
	if !ok {
		return 0, diag.Link("codegen: no opcode for operator %s", n.Kind)
	}
	g.chunk.writeOp(op)
	g.chunk.writeU8(dst)
	g.chunk.writeU8(left)
	g.chunk.writeU8(right)
	return dst, nil
}

var binaryOpcodes = map[ast.Kind]Op{
	ast.KindAddition:       ADD_REG_REG_REG,
	ast.KindSubtraction:    SUB_REG_REG_REG,
	ast.KindMultiplication: MUL_REG_REG_REG,
	ast.KindDivision:       DIV_REG_REG_REG,
	ast.KindModulo:         MOD_REG_REG_REG,
	ast.KindEquality:       EQ_REG_REG_REG,
	ast.KindGreaterThan:    GT_REG_REG_REG,
	ast.KindGreaterOrEq:    GTE_REG_REG_REG,
	ast.KindLessThan:       LT_REG_REG_REG,
	ast.KindLessOrEq:       LTE_REG_REG_REG,
}

// ifExpr compiles a chain of (test, block) branches: every branch but the
// last tests-and-skips; the last is the unconditional (else) arm. All
// branches converge on one result register.
func (g *fnGen) ifExpr(id ast.NodeID) (uint8, *diag.Error) {
	n := g.arena.GetNode(id)
	result := g.nextReg()
	end := g.nextLabel()

	for i, branchID := range n.Children {
		branch := g.arena.GetNode(branchID)
		test, block := branch.Children[0], branch.Children[1]
		last := i == len(n.Children)-1

		next := uint32(0)
		if !last {
			testReg, err := g.expr(test)
			if err != nil {
				return 0, err
			}
			next = g.nextLabel()
			g.chunk.writeOp(JRZ_REG_I32)
			g.chunk.writeU8(testReg)
			g.chunk.writeU32(next)
		}

		r, err := g.blockExpr(block)
		if err != nil {
			return 0, err
		}
		g.chunk.writeOp(MV_REG_REG)
		g.chunk.writeU8(result)
		g.chunk.writeU8(r)

		if !last {
			g.chunk.writeOp(JMPR_I32)
			g.chunk.writeU32(end)
			g.emitLabel(next)
		}
	}
	g.emitLabel(end)
	return result, nil
}

// matchExpr compiles a scrutinee plus a chain of (test, block) branches: the
// scrutinee is evaluated first for its side effects and type, then each
// branch but the last jumps into its own body on a truthy test (JRNZ) and
// falls through past it otherwise; the last branch runs unconditionally.
// All branches converge on one result register.
func (g *fnGen) matchExpr(id ast.NodeID) (uint8, *diag.Error) {
	n := g.arena.GetNode(id)
	if _, err := g.expr(n.Children[0]); err != nil {
		return 0, err
	}

	result := g.nextReg()
	end := g.nextLabel()
	branches := n.Children[1:]

	for i, branchID := range branches {
		branch := g.arena.GetNode(branchID)
		test, block := branch.Children[0], branch.Children[1]
		last := i == len(branches)-1

		if !last {
			testReg, err := g.expr(test)
			if err != nil {
				return 0, err
			}
			body := g.nextLabel()
			g.chunk.writeOp(JRNZ_REG_I32)
			g.chunk.writeU8(testReg)
			g.chunk.writeU32(body)
			skip := g.nextLabel()
			g.chunk.writeOp(JMPR_I32)
			g.chunk.writeU32(skip)
			g.emitLabel(body)

			r, err := g.blockExpr(block)
			if err != nil {
				return 0, err
			}
			g.chunk.writeOp(MV_REG_REG)
			g.chunk.writeU8(result)
			g.chunk.writeU8(r)
			g.chunk.writeOp(JMPR_I32)
			g.chunk.writeU32(end)
			g.emitLabel(skip)
			continue
		}

		r, err := g.blockExpr(block)
		if err != nil {
			return 0, err
		}
		g.chunk.writeOp(MV_REG_REG)
		g.chunk.writeU8(result)
		g.chunk.writeU8(r)
	}
	g.emitLabel(end)
	return result, nil
}

func (g *fnGen) blockExpr(id ast.NodeID) (uint8, *diag.Error) {
	n := g.arena.GetNode(id)
	var result uint8
	has := false
	for _, stmt := range n.Children {
		r, used, err := g.statement(stmt)
		if err != nil {
			return 0, err
		}
		if used {
			result, has = r, true
		} else {
			has = false
		}
	}
	if !has {
		result = g.nextReg()
	}
	return result, nil
}

// call compiles a FUNCTION_CALL. A direct std.io.print/println call emits
// its native opcode in place; every other call moves each evaluated
// argument into registers 0..N-1 of the pending frame and emits CALL_UI64.
func (g *fnGen) call(id ast.NodeID) (uint8, *diag.Error) {
	n := g.arena.GetNode(id)
	callee, argsID := n.Children[0], n.Children[1]
	calleeData := g.arena.Identifier(callee)

	if name, ok := nativeIOName(calleeData.Segments); ok {
		argReg, err := g.singleArg(argsID)
		if err != nil {
			return 0, err
		}
		var op Op
		if name == "print" {
			op = PRINT
		} else {
			op = PRINTLN
		}
		g.chunk.writeOp(op)
		g.chunk.writeU8(argReg)
		return g.nextReg(), nil
	}

	argRegs, err := g.evalArgs(argsID)
	if err != nil {
		return 0, err
	}
	for i, r := range argRegs {
		if uint8(i) != r {
			g.chunk.writeOp(MV_REG_REG)
			g.chunk.writeU8(uint8(i))
			g.chunk.writeU8(r)
		}
	}

	symbolID := g.internSymbol(calleeData.Segments[len(calleeData.Segments)-1])
	ret := g.nextReg()
	g.chunk.writeOp(CALL_UI64)
	g.chunk.writeU8(ret)
	g.chunk.writeU64(symbolID)
	return ret, nil
}

func nativeIOName(segments []string) (string, bool) {
	if len(segments) != 3 || segments[0] != "std" || segments[1] != "io" {
		return "", false
	}
	if !prelude.NativeIOCall[segments[2]] {
		return "", false
	}
	return segments[2], true
}

func (g *fnGen) singleArg(argsID ast.NodeID) (uint8, *diag.Error) {
	n := g.arena.GetNode(argsID)
	if len(n.Children) != 1 {
		return 0, diag.Link("native io call expects exactly one argument")
	}
	return g.expr(n.Children[0])
}

func (g *fnGen) evalArgs(argsID ast.NodeID) ([]uint8, *diag.Error) {
	n := g.arena.GetNode(argsID)
	regs := make([]uint8, len(n.Children))
	for i, c := range n.Children {
		r, err := g.expr(c)
		if err != nil {
			return nil, err
		}
		regs[i] = r
	}
	return regs, nil
}

// internSymbol assigns (or reuses) this chunk's symbol id for a callee
// name, recorded in the chunk's symbol table for the linker to resolve.
func (g *fnGen) internSymbol(name string) uint64 {
	for id, n := range g.chunk.Symbols {
		if n == name {
			return id
		}
	}
	id := uint64(len(g.chunk.Symbols))
	g.chunk.Symbols[id] = name
	return id
}
