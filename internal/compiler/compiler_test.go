package compiler

import (
	"strings"
	"testing"

	"github.com/vexlang/vexc/internal/ast"
	"github.com/vexlang/vexc/internal/bytecode"
	"github.com/vexlang/vexc/internal/config"
	"github.com/vexlang/vexc/internal/diag"
	"github.com/vexlang/vexc/internal/types"
)

// instruction pairs one decoded opcode with its byte offset within a
// chunk, the way the linker itself walks a chunk's code.
type instruction struct {
	offset int
	op     bytecode.Op
}

func instructions(t *testing.T, c *bytecode.Chunk) []instruction {
	t.Helper()
	var out []instruction
	offset := 0
	for offset < len(c.Code) {
		op := bytecode.Op(c.Code[offset])
		size, ok := bytecode.OpSize(op)
		if !ok {
			t.Fatalf("chunk %q: unrecognized opcode %v at offset %d", c.Name, op, offset)
		}
		out = append(out, instruction{offset: offset, op: op})
		offset += size
	}
	return out
}

func countOp(ins []instruction, op bytecode.Op) int {
	n := 0
	for _, i := range ins {
		if i.op == op {
			n++
		}
	}
	return n
}

func firstOffset(ins []instruction, op bytecode.Op) (int, bool) {
	for _, i := range ins {
		if i.op == op {
			return i.offset, true
		}
	}
	return 0, false
}

func findChunk(t *testing.T, chunks []*bytecode.Chunk, name string) *bytecode.Chunk {
	t.Helper()
	for _, c := range chunks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("no chunk named %q among %d chunks", name, len(chunks))
	return nil
}

func chunkIndex(t *testing.T, chunks []*bytecode.Chunk, name string) int {
	t.Helper()
	for i, c := range chunks {
		if c.Name == name {
			return i
		}
	}
	t.Fatalf("no chunk named %q", name)
	return -1
}

// callTarget decodes the CALL_UI64 operand at offset into the chunk index
// the linker resolved it to (FarLabel's upper 32 bits).
func callTarget(c *bytecode.Chunk, offset int) int {
	return int(bytecode.DecodeU64(c.Code[offset+2:]) >> 32)
}

// S1: an arithmetic assignment compiles to a load/load/add sequence and
// stamps the declared variable with its declared primitive type.
func TestArithmeticAssignment(t *testing.T) {
	b := newBuilder()
	rhs := b.node(ast.KindAddition, b.number(1, types.KindI32), b.number(2, types.KindI32))
	assignID, lhsID := b.assignTyped("x", b.typeAtom("i32"), rhs)
	root := b.block(assignID)

	result, err := Compile(b.a, root, config.Default())
	if err != nil {
		t.Fatalf("compile failed: %s", err)
	}

	if got, want := b.a.GetNode(lhsID).Type, types.Primitive(types.KindI32); !types.Equal(got, want) {
		t.Fatalf("x has type %s, want %s", got.ToString(), want.ToString())
	}
	if got := b.a.GetNode(rhs).Type; got.Kind == types.KindUnset {
		t.Fatalf("addition expression left unset after typecheck")
	}

	main := findChunk(t, result.Executable.Chunks, "main")
	ins := instructions(t, main)
	if n := countOp(ins, bytecode.MV_REG_UI32); n != 2 {
		t.Errorf("expected 2 MV_REG_UI32, got %d", n)
	}
	if n := countOp(ins, bytecode.ADD_REG_REG_REG); n != 1 {
		t.Errorf("expected 1 ADD_REG_REG_REG, got %d", n)
	}
}

// S2: an if/else expression compiles to exactly one JRZ_REG_I32 (every
// branch but the last tests-and-skips), and the assigned variable takes
// the branches' common type.
func TestIfExpressionAssignment(t *testing.T) {
	b := newBuilder()
	branch0 := b.ifBranch(b.boolean(true), b.block(b.number(1, types.KindI32)))
	branch1 := b.ifBranch(b.boolean(true), b.block(b.number(2, types.KindI32)))
	ifExpr := b.node(ast.KindIfStatement, branch0, branch1)
	assignID, lhsID := b.assign("y", ifExpr)
	root := b.block(assignID)

	result, err := Compile(b.a, root, config.Default())
	if err != nil {
		t.Fatalf("compile failed: %s", err)
	}

	if got, want := b.a.GetNode(lhsID).Type, types.Primitive(types.KindI32); !types.Equal(got, want) {
		t.Fatalf("y has type %s, want %s", got.ToString(), want.ToString())
	}

	main := findChunk(t, result.Executable.Chunks, "main")
	ins := instructions(t, main)
	if n := countOp(ins, bytecode.JRZ_REG_I32); n != 1 {
		t.Fatalf("expected exactly 1 JRZ_REG_I32, got %d", n)
	}
}

// S3: a top-level named function is hoisted into its own chunk, and a
// call to it resolves to a CALL_UI64 targeting that chunk; its
// parameters resolve at scope_distance 0 inside its own body.
func TestFunctionDeclarationAndCall(t *testing.T) {
	b := newBuilder()
	paramA := b.ident("a")
	paramB := b.ident("b")
	sum := b.node(ast.KindAddition, paramA, paramB)
	fn := b.fn("add", []ast.NodeID{b.param("a", "i32"), b.param("b", "i32")}, "i32", b.block(sum))

	calleeIdent := b.ident("add")
	call := b.call(calleeIdent, b.number(3, types.KindI32), b.number(4, types.KindI32))
	assignID, _ := b.assign("r", call)
	root := b.block(fn, assignID)

	result, err := Compile(b.a, root, config.Default())
	if err != nil {
		t.Fatalf("compile failed: %s", err)
	}

	addIdx := chunkIndex(t, result.Executable.Chunks, "add")
	main := findChunk(t, result.Executable.Chunks, "main")
	ins := instructions(t, main)
	offset, ok := firstOffset(ins, bytecode.CALL_UI64)
	if !ok {
		t.Fatalf("main chunk has no CALL_UI64")
	}
	if n := countOp(ins, bytecode.CALL_UI64); n != 1 {
		t.Fatalf("expected exactly 1 CALL_UI64 in main, got %d", n)
	}
	if target := callTarget(main, offset); target != addIdx {
		t.Fatalf("CALL_UI64 targets chunk %d, want chunk %d (add)", target, addIdx)
	}

	if distance := b.a.Identifier(paramA).ScopeDistance; distance != 0 {
		t.Errorf("parameter use %q has scope_distance %d, want 0", "a", distance)
	}
	if distance := b.a.Identifier(calleeIdent).ScopeDistance; distance != 0 {
		t.Errorf("callee use %q has scope_distance %d, want 0", "add", distance)
	}
}

// S4: a module-qualified call to std.io.println compiles directly to the
// native PRINTLN opcode, never a CALL_UI64.
func TestNativeIOCall(t *testing.T) {
	b := newBuilder()
	callee := b.ident("std", "io", "println")
	call := b.call(callee, b.number(42, types.KindUI64))
	root := b.block(call)

	result, err := Compile(b.a, root, config.Default())
	if err != nil {
		t.Fatalf("compile failed: %s", err)
	}

	main := findChunk(t, result.Executable.Chunks, "main")
	ins := instructions(t, main)
	if n := countOp(ins, bytecode.CALL_UI64); n != 0 {
		t.Fatalf("expected no CALL_UI64 for a native io call, got %d", n)
	}
	if n := countOp(ins, bytecode.PRINTLN); n != 1 {
		t.Fatalf("expected exactly 1 PRINTLN, got %d", n)
	}
}

// S5: assigning a str literal to a declared i32 is a typecheck_error
// whose message names both the declared and actual types.
func TestTypeMismatchAssignment(t *testing.T) {
	b := newBuilder()
	assignID, _ := b.assignTyped("x", b.typeAtom("i32"), b.str("hello"))
	root := b.block(assignID)

	_, err := Compile(b.a, root, config.Default())
	if err == nil {
		t.Fatal("expected a typecheck error, compile succeeded")
	}
	if err.Kind != diag.TypecheckError {
		t.Fatalf("got error kind %s, want typecheck_error", err.Kind)
	}
	for _, want := range []string{"std.str", "std.i32"} {
		if !strings.Contains(err.Message, want) {
			t.Errorf("error message %q does not mention %q", err.Message, want)
		}
	}
}

// S6: a self-recursive function compiles to exactly one CALL_UI64 inside
// its own chunk, and that call's resolved target is the function's own
// chunk.
func TestSelfRecursion(t *testing.T) {
	b := newBuilder()
	baseTest := b.node(ast.KindLessOrEq, b.ident("n"), b.number(1, types.KindI32))
	baseBranch := b.ifBranch(baseTest, b.block(b.number(1, types.KindI32)))

	recCallee := b.ident("fact")
	recArg := b.node(ast.KindSubtraction, b.ident("n"), b.number(1, types.KindI32))
	recCall := b.call(recCallee, recArg)
	recExpr := b.node(ast.KindMultiplication, recCall, b.ident("n"))
	elseBranch := b.ifBranch(b.boolean(true), b.block(recExpr))

	ifExpr := b.node(ast.KindIfStatement, baseBranch, elseBranch)
	fn := b.fn("fact", []ast.NodeID{b.param("n", "i32")}, "i32", b.block(ifExpr))

	topCall := b.call(b.ident("fact"), b.number(5, types.KindI32))
	assignID, _ := b.assign("result", topCall)

	root := b.block(fn, assignID)

	result, err := Compile(b.a, root, config.Default())
	if err != nil {
		t.Fatalf("compile failed: %s", err)
	}

	factIdx := chunkIndex(t, result.Executable.Chunks, "fact")
	fact := findChunk(t, result.Executable.Chunks, "fact")
	ins := instructions(t, fact)
	if cnt := countOp(ins, bytecode.CALL_UI64); cnt != 1 {
		t.Fatalf("expected exactly 1 CALL_UI64 inside fact, got %d", cnt)
	}
	offset, _ := firstOffset(ins, bytecode.CALL_UI64)
	if target := callTarget(fact, offset); target != factIdx {
		t.Fatalf("fact's recursive call targets chunk %d, want its own chunk %d", target, factIdx)
	}
}

// S7: a non-empty OptionalPasses list is rejected with a config_error
// rather than silently ignored.
func TestOptionalPassesAreRejectedNotIgnored(t *testing.T) {
	b := newBuilder()
	root := b.block()
	settings := config.Default()
	settings.OptionalPasses = []string{"deadCodeElimination"}

	_, err := Compile(b.a, root, settings)
	if err == nil {
		t.Fatal("expected a config_error for a non-empty OptionalPasses, compile succeeded")
	}
	if err.Kind != diag.ConfigError {
		t.Fatalf("got error kind %s, want config_error", err.Kind)
	}
}

// S8: a PreludeAliasOverrides entry threads through both the resolver's
// root scope and the type checker's short-circuit table, so a renamed
// alias elaborates to its intended primitive Kind end to end.
func TestPreludeAliasOverrideResolvesThroughCompile(t *testing.T) {
	b := newBuilder()
	assignID, lhsID := b.assignTyped("x", b.typeAtom("int"), b.number(7, types.KindI32))
	root := b.block(assignID)
	settings := config.Default()
	settings.PreludeAliasOverrides = map[string]string{"int": "i32"}

	_, err := Compile(b.a, root, settings)
	if err != nil {
		t.Fatalf("compile failed with the \"int\" alias override installed: %s", err)
	}
	if got, want := b.a.GetNode(lhsID).Type, types.Primitive(types.KindI32); !types.Equal(got, want) {
		t.Fatalf("x has type %s, want %s (the overridden alias must still elaborate to i32)", got.ToString(), want.ToString())
	}
}
