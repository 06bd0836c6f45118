// Package lower implements the C6 pass: it turns the typed extended AST
// into a flat list of top-level functions the bytecode generator can walk
// directly. The extended AST nodes already carry everything the generator
// needs post-typecheck (a resolved access pattern on every identifier, a
// fully-elaborated type on every expression), so lowering here is a
// restructuring of the tree rather than a rebuild of a parallel one:
// nested named functions are hoisted to the top level, and the program's
// own top-level statements are wrapped in an implicit entry function.
package lower

import (
	"github.com/vexlang/vexc/internal/ast"
	"github.com/vexlang/vexc/internal/diag"
	"github.com/vexlang/vexc/internal/types"
)

// EntryFunctionName is the implicit top-level function wrapping a module's
// own statements, the chunk the linked executable starts running from.
const EntryFunctionName = "main"

// Param is one formal parameter of a lowered function.
type Param struct {
	Name string
	Type types.Type
}

// Function is one top-level, independently addressable unit of code.
type Function struct {
	Name       string
	Params     []Param
	ReturnType types.Type
	Body       ast.NodeID // a BLOCK node in the source arena
}

// Program is the complete lowered unit: every function the bytecode
// generator must emit a chunk for, in discovery order.
type Program struct {
	Functions []*Function
}

type lowering struct {
	arena   *ast.Arena
	program *Program
	seen    map[string]bool
}

// Lower walks root (a MODULE_DECLARATION's enclosing BLOCK, conventionally
// the compilation unit's top-level statement list) and produces a Program.
func Lower(a *ast.Arena, root ast.NodeID) (*Program, *diag.Error) {
	l := &lowering{arena: a, program: &Program{}, seen: map[string]bool{}}
	entry := &Function{Name: EntryFunctionName, ReturnType: types.Void()}
	l.program.Functions = append(l.program.Functions, entry)

	body, err := l.hoistBlock(root)
	if err != nil {
		return nil, err
	}
	entry.Body = body
	return l.program, nil
}

// hoistBlock rewrites a BLOCK's children in place, removing any top-level
// named FUNCTION statement (collecting it into the program's function list
// instead) and recursing into nested blocks it still owns (if/match/while
// arms), then returns the block id unchanged for the caller to run as a
// function body.
func (l *lowering) hoistBlock(id ast.NodeID) (ast.NodeID, *diag.Error) {
	n := l.arena.GetNode(id)
	kept := make([]ast.NodeID, 0, len(n.Children))
	for _, c := range n.Children {
		child := l.arena.GetNode(c)
		if child.Kind == ast.KindFunction && l.isNamedFunctionStatement(c) {
			if err := l.hoistFunction(c, ""); err != nil {
				return ast.NoNode, err
			}
			continue
		}
		if err := l.descend(c); err != nil {
			return ast.NoNode, err
		}
		kept = append(kept, c)
	}
	l.arena.SetChildren(id, kept)
	return id, nil
}

func (l *lowering) isNamedFunctionStatement(id ast.NodeID) bool {
	n := l.arena.GetNode(id)
	return len(n.Children) == 4 // (identifier, from_type_expr, to_type_expr, body_block)
}

// descend recurses into compound statements looking for further nested
// named functions to hoist, without otherwise altering the tree.
func (l *lowering) descend(id ast.NodeID) *diag.Error {
	n := l.arena.GetNode(id)
	switch n.Kind {
	case ast.KindIfStatement, ast.KindMatch:
		start := 0
		if n.Kind == ast.KindMatch {
			start = 1
		}
		for _, branchID := range n.Children[start:] {
			branch := l.arena.GetNode(branchID)
			if _, err := l.hoistBlock(branch.Children[1]); err != nil {
				return err
			}
		}
		return nil
	case ast.KindWhileLoop:
		_, err := l.hoistBlock(n.Children[1])
		return err
	case ast.KindAssignment:
		// A function literal bound to a name via `var f = fn(...)->T {...};`
		// is itself a FUNCTION node with no identifier child; it is left in
		// place rather than hoisted, since it has no fully-qualified name of
		// its own to call it by. The bytecode generator does not compile a
		// FUNCTION node in expression position and reports it as unsupported.
		return nil
	default:
		return nil
	}
}

// hoistFunction records name's FUNCTION node as a top-level Function and
// recurses into its body to hoist anything nested inside it in turn.
func (l *lowering) hoistFunction(id ast.NodeID, qualifierPrefix string) *diag.Error {
	n := l.arena.GetNode(id)
	nameID, fromType, toType, body := n.Children[0], n.Children[1], n.Children[2], n.Children[3]
	name := l.arena.Identifier(nameID).Segments[0]
	if qualifierPrefix != "" {
		name = qualifierPrefix + "." + name
	}

	params := l.params(fromType)
	fn := &Function{
		Name:       name,
		Params:     params,
		ReturnType: l.arena.GetNode(toType).Type,
		Body:       body,
	}
	l.program.Functions = append(l.program.Functions, fn)

	bodyNode := l.arena.GetNode(body)
	kept := make([]ast.NodeID, 0, len(bodyNode.Children))
	for _, c := range bodyNode.Children {
		child := l.arena.GetNode(c)
		if child.Kind == ast.KindFunction && l.isNamedFunctionStatement(c) {
			if err := l.hoistFunction(c, name); err != nil {
				return err
			}
			continue
		}
		if err := l.descend(c); err != nil {
			return err
		}
		kept = append(kept, c)
	}
	l.arena.SetChildren(body, kept)
	return nil
}

func (l *lowering) params(fromType ast.NodeID) []Param {
	n := l.arena.GetNode(fromType)
	if n.Kind != ast.KindRecord {
		return nil
	}
	params := make([]Param, len(n.Children))
	for i, elemID := range n.Children {
		elem := l.arena.GetNode(elemID)
		ident, typeExpr := elem.Children[0], elem.Children[1]
		params[i] = Param{
			Name: l.arena.Identifier(ident).Segments[0],
			Type: l.arena.GetNode(typeExpr).Type,
		}
	}
	return params
}
