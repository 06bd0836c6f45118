package compiler

import (
	"github.com/vexlang/vexc/internal/ast"
	"github.com/vexlang/vexc/internal/types"
)

// builder constructs small extended-AST fragments directly on an arena,
// standing in for the parser collaborator in these pipeline tests.
type builder struct{ a *ast.Arena }

func newBuilder() *builder { return &builder{a: ast.NewArena()} }

func (b *builder) node(kind ast.Kind, children ...ast.NodeID) ast.NodeID {
	id := b.a.CreateNode(kind)
	b.a.SetChildren(id, children)
	return id
}

func (b *builder) ident(segments ...string) ast.NodeID {
	id := b.a.CreateNode(ast.KindIdentifier)
	b.a.PutIdentifier(id, ast.NewIdentifierData(segments))
	return id
}

func (b *builder) number(v int64, width types.Kind) ast.NodeID {
	id := b.a.CreateNode(ast.KindNumber)
	b.a.PutNumber(id, ast.NumberData{Value: v, Width: width})
	return id
}

func (b *builder) boolean(v bool) ast.NodeID {
	id := b.a.CreateNode(ast.KindBoolean)
	b.a.PutBoolean(id, ast.BooleanData{Value: v})
	return id
}

func (b *builder) str(v string) ast.NodeID {
	id := b.a.CreateNode(ast.KindString)
	b.a.PutString(id, ast.StringData{Value: v})
	return id
}

func (b *builder) typeAtom(name string) ast.NodeID {
	return b.node(ast.KindTypeAtom, b.ident(name))
}

func (b *builder) block(stmts ...ast.NodeID) ast.NodeID {
	return b.node(ast.KindBlock, stmts...)
}

func (b *builder) assign(name string, rhs ast.NodeID) (ast.NodeID, ast.NodeID) {
	lhs := b.ident(name)
	return b.node(ast.KindAssignment, lhs, rhs), lhs
}

func (b *builder) assignTyped(name string, typeExpr, rhs ast.NodeID) (ast.NodeID, ast.NodeID) {
	lhs := b.ident(name)
	return b.node(ast.KindAssignment, lhs, typeExpr, rhs), lhs
}

func (b *builder) ifBranch(test, block ast.NodeID) ast.NodeID {
	return b.node(ast.KindIfBranch, test, block)
}

func (b *builder) param(name, typeName string) ast.NodeID {
	return b.node(ast.KindRecordElement, b.ident(name), b.typeAtom(typeName))
}

func (b *builder) fn(name string, params []ast.NodeID, retType string, body ast.NodeID) ast.NodeID {
	from := b.node(ast.KindRecord, params...)
	to := b.typeAtom(retType)
	if name == "" {
		return b.node(ast.KindFunction, from, to, body)
	}
	return b.node(ast.KindFunction, b.ident(name), from, to, body)
}

func (b *builder) call(callee ast.NodeID, args ...ast.NodeID) ast.NodeID {
	return b.node(ast.KindFunctionCall, callee, b.node(ast.KindTuple, args...))
}
