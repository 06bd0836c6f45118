package typecheck

import (
	"testing"

	"github.com/vexlang/vexc/internal/ast"
	"github.com/vexlang/vexc/internal/diag"
	"github.com/vexlang/vexc/internal/prelude"
	"github.com/vexlang/vexc/internal/resolver"
	"github.com/vexlang/vexc/internal/types"
)

func ident(a *ast.Arena, segments ...string) ast.NodeID {
	id := a.CreateNode(ast.KindIdentifier)
	a.PutIdentifier(id, ast.NewIdentifierData(segments))
	return id
}

func number(a *ast.Arena, v int64, width types.Kind) ast.NodeID {
	id := a.CreateNode(ast.KindNumber)
	a.PutNumber(id, ast.NumberData{Value: v, Width: width})
	return id
}

func str(a *ast.Arena, v string) ast.NodeID {
	id := a.CreateNode(ast.KindString)
	a.PutString(id, ast.StringData{Value: v})
	return id
}

func typeAtom(a *ast.Arena, name string) ast.NodeID {
	id := a.CreateNode(ast.KindTypeAtom)
	a.SetChildren(id, []ast.NodeID{ident(a, name)})
	return id
}

func block(a *ast.Arena, stmts ...ast.NodeID) ast.NodeID {
	id := a.CreateNode(ast.KindBlock)
	a.SetChildren(id, stmts)
	return id
}

// resolveAndCheck runs the resolver (typecheck assumes it already ran)
// before running Check, matching the real pipeline order.
func resolveAndCheck(t *testing.T, a *ast.Arena, root ast.NodeID) *diag.Error {
	t.Helper()
	scopes := prelude.Install(a, nil)
	if err := resolver.ResolveIn(a, root, scopes.Name, scopes.Type); err != nil {
		t.Fatalf("resolution failed: %s", err.Message)
	}
	return Check(a, root, nil)
}

func TestTypedAssignmentMatchingLiteral(t *testing.T) {
	a := ast.NewArena()
	lhs := ident(a, "x")
	assign := a.CreateNode(ast.KindAssignment)
	a.SetChildren(assign, []ast.NodeID{lhs, typeAtom(a, "i32"), number(a, 7, types.KindI32)})
	root := block(a, assign)

	if err := resolveAndCheck(t, a, root); err != nil {
		t.Fatalf("unexpected typecheck error: %s", err.Message)
	}
	if got, want := a.GetNode(lhs).Type, types.Primitive(types.KindI32); !types.Equal(got, want) {
		t.Fatalf("x has type %s, want %s", got.ToString(), want.ToString())
	}
}

func TestTypedAssignmentMismatchFails(t *testing.T) {
	a := ast.NewArena()
	lhs := ident(a, "x")
	assign := a.CreateNode(ast.KindAssignment)
	a.SetChildren(assign, []ast.NodeID{lhs, typeAtom(a, "i32"), str(a, "hello")})
	root := block(a, assign)

	err := resolveAndCheck(t, a, root)
	if err == nil {
		t.Fatal("expected a typecheck error for str assigned to a declared i32")
	}
	if err.Kind != diag.TypecheckError {
		t.Fatalf("error kind = %s, want typecheck_error", err.Kind)
	}
}

func TestBinaryOpRequiresMatchingIntegerOperands(t *testing.T) {
	a := ast.NewArena()
	add := a.CreateNode(ast.KindAddition)
	a.SetChildren(add, []ast.NodeID{number(a, 1, types.KindI32), str(a, "two")})
	root := block(a, add)

	if err := resolveAndCheck(t, a, root); err == nil {
		t.Fatal("adding an i32 to a str must fail to typecheck")
	}
}

func TestComparisonProducesBoolean(t *testing.T) {
	a := ast.NewArena()
	cmp := a.CreateNode(ast.KindGreaterThan)
	a.SetChildren(cmp, []ast.NodeID{number(a, 3, types.KindI32), number(a, 2, types.KindI32)})
	root := block(a, cmp)

	if err := resolveAndCheck(t, a, root); err != nil {
		t.Fatalf("unexpected typecheck error: %s", err.Message)
	}
	if got := a.GetNode(cmp).Type; got.Kind != types.KindBoolean {
		t.Fatalf("comparison has type %s, want boolean", got.ToString())
	}
}

func TestIfBranchesMustAgreeOnType(t *testing.T) {
	a := ast.NewArena()
	branch0 := a.CreateNode(ast.KindIfBranch)
	a.SetChildren(branch0, []ast.NodeID{boolLit(a, true), block(a, number(a, 1, types.KindI32))})
	branch1 := a.CreateNode(ast.KindIfBranch)
	a.SetChildren(branch1, []ast.NodeID{boolLit(a, true), block(a, str(a, "no"))})
	ifStmt := a.CreateNode(ast.KindIfStatement)
	a.SetChildren(ifStmt, []ast.NodeID{branch0, branch1})
	root := block(a, ifStmt)

	if err := resolveAndCheck(t, a, root); err == nil {
		t.Fatal("if branches of disagreeing type must fail to typecheck")
	}
}

func boolLit(a *ast.Arena, v bool) ast.NodeID {
	id := a.CreateNode(ast.KindBoolean)
	a.PutBoolean(id, ast.BooleanData{Value: v})
	return id
}

func TestSelfRecursiveFunctionTypeVisibleInsideBody(t *testing.T) {
	a := ast.NewArena()
	name := ident(a, "loop")
	from := a.CreateNode(ast.KindRecord)
	to := typeAtom(a, "i32")
	recCallee := ident(a, "loop")
	recArgs := a.CreateNode(ast.KindTuple)
	recCall := a.CreateNode(ast.KindFunctionCall)
	a.SetChildren(recCall, []ast.NodeID{recCallee, recArgs})
	body := block(a, recCall)
	fn := a.CreateNode(ast.KindFunction)
	a.SetChildren(fn, []ast.NodeID{name, from, to, body})
	root := block(a, fn)

	if err := resolveAndCheck(t, a, root); err != nil {
		t.Fatalf("self-recursive call must typecheck against the function's own bound type: %s", err.Message)
	}
	if got := a.GetNode(recCall).Type; got.Kind != types.KindI32 {
		t.Fatalf("recursive call has type %s, want i32", got.ToString())
	}
}
