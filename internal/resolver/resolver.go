// Package resolver implements the name-resolution pass (C4): it walks the
// extended AST, pushes scopes, records declarations, and attaches a
// (scope_distance, offsets) access pattern to every identifier use.
package resolver

import (
	"strings"

	"github.com/vexlang/vexc/internal/ast"
	"github.com/vexlang/vexc/internal/diag"
)

// scope bundles the paired name/type scope ids a resolver frame is
// currently walking in, since the extended AST's twin scope environments
// are always pushed and popped together.
type scope struct {
	name ast.ScopeID
	typ  ast.ScopeID
}

type resolver struct {
	arena *ast.Arena

	// declTypeExpr maps a declaring node (an ASSIGNMENT, DECLARATION, or
	// RECORD_ELEMENT) to the syntactic type expression bound
	// to whatever name it declares, when one was written explicitly. The
	// resolver uses this to compute dotted-projection offsets without
	// waiting for the type checker to run.
	declTypeExpr map[ast.NodeID]ast.NodeID
}

// Resolve walks root, annotating the arena in place, using a fresh empty
// root scope. It returns the first resolution_error encountered; partial
// annotations are the caller's to discard along with the arena.
func Resolve(a *ast.Arena, root ast.NodeID) *diag.Error {
	return ResolveIn(a, root, a.CreateNameScope(ast.NoScope), a.CreateTypeScope(ast.NoScope))
}

// ResolveIn is Resolve with a caller-supplied root scope pair, so a driver
// can pre-populate the root with prelude bindings (std's primitive types
// and std.io's native functions) before the program's own names are
// resolved against it.
func ResolveIn(a *ast.Arena, root ast.NodeID, rootName, rootType ast.ScopeID) *diag.Error {
	r := &resolver{arena: a, declTypeExpr: make(map[ast.NodeID]ast.NodeID)}
	rootScope := scope{name: rootName, typ: rootType}
	setScopes(a, root, rootScope)
	return r.walk(root, rootScope)
}

func setScopes(a *ast.Arena, node ast.NodeID, s scope) {
	n := a.GetNode(node)
	n.NameScopeID = s.name
	n.TypeScopeID = s.typ
}

func push(a *ast.Arena, parent scope) scope {
	return scope{name: a.CreateNameScope(parent.name), typ: a.CreateTypeScope(parent.typ)}
}

func (r *resolver) walk(id ast.NodeID, s scope) *diag.Error {
	if id == ast.NoNode {
		return nil
	}
	n := r.arena.GetNode(id)
	switch n.Kind {
	case ast.KindModuleDeclaration:
		return nil

	case ast.KindImportDeclaration:
		return r.resolveImport(id, s)

	case ast.KindExportStmt:
		return r.resolveExport(id, s)

	case ast.KindBlock:
		return r.walkBlock(id, s)

	case ast.KindBlockResult:
		if err := r.walk(n.Children[0], s); err != nil {
			return err
		}
		return nil

	case ast.KindAssignment:
		return r.resolveAssignment(id, s)

	case ast.KindDeclaration:
		return r.resolveDeclaration(id, s)

	case ast.KindFunction:
		return r.resolveFunction(id, s)

	case ast.KindFunctionCall:
		return r.resolveFunctionCall(id, s)

	case ast.KindIfStatement:
		return r.resolveIf(id, s)

	case ast.KindMatch:
		return r.resolveMatch(id, s)

	case ast.KindWhileLoop:
		return r.resolveWhile(id, s)

	case ast.KindTuple, ast.KindArrayValue:
		for _, c := range n.Children {
			if err := r.walk(c, s); err != nil {
				return err
			}
		}
		return nil

	case ast.KindReference:
		return r.walk(n.Children[0], s)

	case ast.KindIdentifier:
		setScopes(r.arena, id, s)
		return r.resolveIdentifierUse(id, s)

	case ast.KindString, ast.KindBoolean, ast.KindNumber:
		setScopes(r.arena, id, s)
		return nil

	case ast.KindTypeAtom, ast.KindTypeTuple, ast.KindFunctionType, ast.KindArrayType, ast.KindReferenceType:
		return r.walkTypeExpr(id, s)

	case ast.KindTypeDefinition:
		return r.resolveTypeDefinition(id, s)

	case ast.KindRecord:
		for _, c := range n.Children {
			if err := r.walk(c, s); err != nil {
				return err
			}
		}
		return nil

	case ast.KindRecordElement:
		// children = [identifier, type_expr]; identifier is a binder, not a use.
		return r.walkTypeExpr(n.Children[1], s)

	default:
		if n.Kind.IsBinaryOp() {
			if err := r.walk(n.Children[0], s); err != nil {
				return err
			}
			return r.walk(n.Children[1], s)
		}
		return diag.Resolution("unhandled node kind %s", n.Kind)
	}
}

func (r *resolver) walkBlock(id ast.NodeID, outer scope) *diag.Error {
	inner := push(r.arena, outer)
	setScopes(r.arena, id, inner)
	n := r.arena.GetNode(id)
	for _, c := range n.Children {
		if err := r.walk(c, inner); err != nil {
			return err
		}
	}
	return nil
}

// segments joins an IDENTIFIER node's dotted name.
func segments(a *ast.Arena, id ast.NodeID) []string {
	return a.Identifier(id).Segments
}

func (r *resolver) resolveImport(id ast.NodeID, s scope) *diag.Error {
	n := r.arena.GetNode(id)
	for _, c := range n.Children {
		setScopes(r.arena, c, s)
		data := r.arena.Identifier(c)
		data.ScopeDistance = 0
		// An import adds no binding here: module subtrees are bound with
		// NameScope.AddModule outside this pass (the prelude binds
		// std.io), so the resolver only stamps each imported path with
		// the current scope and distance 0.
		nameScope := r.arena.NameScope(s.name)
		if _, exists := nameScope.Modules[strings.Join(data.Segments, ".")]; !exists {
			// A path with no module binding in this scope is accepted
			// as well; it is not reported as an error.
			continue
		}
	}
	return nil
}

func (r *resolver) resolveExport(id ast.NodeID, s scope) *diag.Error {
	n := r.arena.GetNode(id)
	for _, c := range n.Children {
		setScopes(r.arena, c, s)
		data := r.arena.Identifier(c)
		name := data.Segments[len(data.Segments)-1]
		nameScope := r.arena.NameScope(s.name)
		if _, _, ok := nameScope.ResolveVariable(name, r.arena); ok {
			data.ScopeDistance = 0
			continue
		}
		typeScope := r.arena.TypeScope(s.typ)
		if _, _, ok := typeScope.ResolveType(name, r.arena); ok {
			data.ScopeDistance = 0
			continue
		}
		return diag.Resolution("export of undeclared name %q", name)
	}
	return nil
}

func (r *resolver) resolveAssignment(id ast.NodeID, s scope) *diag.Error {
	n := r.arena.GetNode(id)
	lhs := n.Children[0]
	var typeExpr, rhs ast.NodeID
	if len(n.Children) == 3 {
		typeExpr, rhs = n.Children[1], n.Children[2]
	} else {
		typeExpr, rhs = ast.NoNode, n.Children[1]
	}

	nameScope := r.arena.NameScope(s.name)
	lhsNode := r.arena.GetNode(lhs)

	declareOne := func(identID ast.NodeID) *diag.Error {
		name := segments(r.arena, identID)[0]
		if err := nameScope.DeclareVariable(name, id); err != nil {
			return diag.Resolution("%s", err.Error())
		}
		return nil
	}

	if lhsNode.Kind == ast.KindIdentifierTuple {
		for _, c := range lhsNode.Children {
			if err := declareOne(c); err != nil {
				return err
			}
		}
	} else {
		if err := declareOne(lhs); err != nil {
			return err
		}
	}

	if typeExpr != ast.NoNode {
		if err := r.walkTypeExpr(typeExpr, s); err != nil {
			return err
		}
		if lhsNode.Kind != ast.KindIdentifierTuple {
			r.declTypeExpr[id] = typeExpr
		}
	}

	// RHS is resolved before the LHS is defined: references to the LHS
	// from inside the RHS must fail, which blocks self-referential
	// initializers like `var x = x + 1;`.
	if err := r.walk(rhs, s); err != nil {
		return err
	}

	defineOne := func(identID ast.NodeID) *diag.Error {
		name := segments(r.arena, identID)[0]
		if err := nameScope.DefineVariable(name); err != nil {
			return diag.Resolution("%s", err.Error())
		}
		return nil
	}
	if lhsNode.Kind == ast.KindIdentifierTuple {
		for _, c := range lhsNode.Children {
			if err := defineOne(c); err != nil {
				return err
			}
		}
	} else if err := defineOne(lhs); err != nil {
		return err
	}

	setScopes(r.arena, lhs, s)
	if lhsNode.Kind == ast.KindIdentifierTuple {
		for _, c := range lhsNode.Children {
			setScopes(r.arena, c, s)
		}
	}
	return nil
}

func (r *resolver) resolveDeclaration(id ast.NodeID, s scope) *diag.Error {
	n := r.arena.GetNode(id)
	identID, typeExpr := n.Children[0], n.Children[1]
	if err := r.walkTypeExpr(typeExpr, s); err != nil {
		return err
	}
	r.declTypeExpr[id] = typeExpr
	name := segments(r.arena, identID)[0]
	setScopes(r.arena, identID, s)
	nameScope := r.arena.NameScope(s.name)
	if err := nameScope.DeclareVariable(name, id); err != nil {
		return diag.Resolution("%s", err.Error())
	}
	return nil
}

func (r *resolver) resolveFunction(id ast.NodeID, outer scope) *diag.Error {
	n := r.arena.GetNode(id)
	children := n.Children
	var nameID, fromType, toType, body ast.NodeID
	if r.arena.GetNode(children[0]).Kind == ast.KindIdentifier {
		nameID, fromType, toType, body = children[0], children[1], children[2], children[3]
	} else {
		nameID, fromType, toType, body = ast.NoNode, children[0], children[1], children[2]
	}

	outerNameScope := r.arena.NameScope(outer.name)
	if nameID != ast.NoNode {
		name := segments(r.arena, nameID)[0]
		// Declare-then-define the function's own name before descending
		// into the body, so self-recursive calls resolve.
		if err := outerNameScope.DeclareVariable(name, id); err != nil {
			return diag.Resolution("%s", err.Error())
		}
		if err := outerNameScope.DefineVariable(name); err != nil {
			return diag.Resolution("%s", err.Error())
		}
		setScopes(r.arena, nameID, outer)
	}

	if err := r.walkTypeExpr(fromType, outer); err != nil {
		return err
	}
	if err := r.walkTypeExpr(toType, outer); err != nil {
		return err
	}

	inner := push(r.arena, outer)
	setScopes(r.arena, body, inner)
	innerNameScope := r.arena.NameScope(inner.name)

	for _, paramID := range r.parameterElements(fromType) {
		param := r.arena.GetNode(paramID)
		paramIdent, paramType := param.Children[0], param.Children[1]
		name := segments(r.arena, paramIdent)[0]
		if err := innerNameScope.DeclareVariable(name, paramID); err != nil {
			return diag.Resolution("%s", err.Error())
		}
		if err := innerNameScope.DefineVariable(name); err != nil {
			return diag.Resolution("%s", err.Error())
		}
		r.declTypeExpr[paramID] = paramType
		setScopes(r.arena, paramIdent, inner)
	}

	bodyNode := r.arena.GetNode(body)
	for _, c := range bodyNode.Children {
		if err := r.walk(c, inner); err != nil {
			return err
		}
	}
	return nil
}

// parameterElements returns the RECORD_ELEMENT nodes naming a function's
// formal parameters. A function's domain type is written as a RECORD whose
// elements carry both the parameter name and its type; a bare (unnamed)
// domain type has no parameters to bind.
func (r *resolver) parameterElements(fromType ast.NodeID) []ast.NodeID {
	n := r.arena.GetNode(fromType)
	if n.Kind == ast.KindRecord {
		return n.Children
	}
	return nil
}

func (r *resolver) resolveFunctionCall(id ast.NodeID, s scope) *diag.Error {
	n := r.arena.GetNode(id)
	callee, args := n.Children[0], n.Children[1]
	setScopes(r.arena, callee, s)
	if err := r.resolveIdentifierUse(callee, s); err != nil {
		return err
	}
	return r.walk(args, s)
}

func (r *resolver) resolveIf(id ast.NodeID, outer scope) *diag.Error {
	n := r.arena.GetNode(id)
	for _, branchID := range n.Children {
		branch := r.arena.GetNode(branchID)
		test, block := branch.Children[0], branch.Children[1]
		setScopes(r.arena, branchID, outer)
		if err := r.walk(test, outer); err != nil {
			return err
		}
		if err := r.walkBlock(block, outer); err != nil {
			return err
		}
	}
	return nil
}

func (r *resolver) resolveMatch(id ast.NodeID, outer scope) *diag.Error {
	n := r.arena.GetNode(id)
	scrutinee := n.Children[0]
	if err := r.walk(scrutinee, outer); err != nil {
		return err
	}
	for _, branchID := range n.Children[1:] {
		branch := r.arena.GetNode(branchID)
		test, block := branch.Children[0], branch.Children[1]
		setScopes(r.arena, branchID, outer)
		if err := r.walk(test, outer); err != nil {
			return err
		}
		if err := r.walkBlock(block, outer); err != nil {
			return err
		}
	}
	return nil
}

func (r *resolver) resolveWhile(id ast.NodeID, outer scope) *diag.Error {
	n := r.arena.GetNode(id)
	test, body := n.Children[0], n.Children[1]
	testScope := push(r.arena, outer)
	setScopes(r.arena, test, testScope)
	if err := r.walk(test, testScope); err != nil {
		return err
	}
	return r.walkBlock(body, outer)
}

// resolveIdentifierUse implements C4's identifier-use rule: resolve as a
// variable; on miss for a qualified name, fall back to resolve_type (a
// constructor call); failing both is a resolution error.
func (r *resolver) resolveIdentifierUse(id ast.NodeID, s scope) *diag.Error {
	data := r.arena.Identifier(id)
	nameScope := r.arena.NameScope(s.name)

	if len(data.Segments) == 1 {
		name := data.Segments[0]
		distance, declID, ok := nameScope.ResolveVariable(name, r.arena)
		if !ok {
			typeScope := r.arena.TypeScope(s.typ)
			if tdistance, tdecl, ok := typeScope.ResolveType(name, r.arena); ok {
				data.ScopeDistance = tdistance
				_ = tdecl
				return nil
			}
			return diag.Resolution("undeclared name %q", name)
		}
		data.ScopeDistance = distance
		if offsets, err := r.computeOffsets(declID, data.Segments[1:]); err != nil {
			return err
		} else {
			data.Offsets = offsets
		}
		return nil
	}

	modulePath := data.Segments[:len(data.Segments)-1]
	tail := data.Segments[len(data.Segments)-1]
	if declID, ok := nameScope.ResolveVariableModule(modulePath, tail, r.arena); ok {
		data.ScopeDistance = 0
		_ = declID
		return nil
	}
	typeScope := r.arena.TypeScope(s.typ)
	if declID, ok := typeScope.ResolveTypeModule(modulePath, tail, r.arena); ok {
		data.ScopeDistance = 0
		_ = declID
		return nil
	}
	// Not module-qualified after all: treat the whole dotted name as a
	// simple-name lookup with field projection, e.g. `point.x`.
	name := data.Segments[0]
	distance, declID, ok := nameScope.ResolveVariable(name, r.arena)
	if !ok {
		return diag.Resolution("undeclared name %q", strings.Join(data.Segments, "."))
	}
	data.ScopeDistance = distance
	offsets, err := r.computeOffsets(declID, data.Segments[1:])
	if err != nil {
		return err
	}
	data.Offsets = offsets
	return nil
}

// computeOffsets walks the syntactic type of a declaring node through each
// dotted segment, returning the positional index of each segment within
// its enclosing product (record) type.
func (r *resolver) computeOffsets(declID ast.NodeID, tail []string) ([]int, *diag.Error) {
	if len(tail) == 0 {
		return nil, nil
	}
	typeExpr, ok := r.declTypeExpr[declID]
	if !ok {
		return nil, diag.Resolution("cannot project field %q: declaration has no explicit type annotation", tail[0])
	}
	offsets := make([]int, 0, len(tail))
	cur := typeExpr
	for _, seg := range tail {
		record, ok := r.recordOf(cur)
		if !ok {
			return nil, diag.Resolution("cannot project field %q: type is not a record", seg)
		}
		idx, elemType, ok := r.fieldIndex(record, seg)
		if !ok {
			return nil, diag.Resolution("record has no field %q", seg)
		}
		offsets = append(offsets, idx)
		cur = elemType
	}
	return offsets, nil
}

// recordOf resolves a syntactic type expression to the RECORD node it
// names, following a TYPE_ATOM through its TYPE_DEFINITION if necessary.
func (r *resolver) recordOf(typeExpr ast.NodeID) (ast.NodeID, bool) {
	n := r.arena.GetNode(typeExpr)
	switch n.Kind {
	case ast.KindRecord:
		return typeExpr, true
	case ast.KindTypeAtom:
		name := segments(r.arena, n.Children[0])[0]
		// walkTypeExpr stamps each TYPE_ATOM with the scope it was
		// resolved in, so the search starts from the atom's own
		// TypeScopeID; an atom that was never walked has none.
		ts := r.arena.GetNode(typeExpr).TypeScopeID
		if ts == ast.NoScope {
			return ast.NoNode, false
		}
		typeScope := r.arena.TypeScope(ts)
		_, declID, ok := typeScope.ResolveType(name, r.arena)
		if !ok {
			return ast.NoNode, false
		}
		def := r.arena.GetNode(declID)
		return r.recordOf(def.Children[1])
	default:
		return ast.NoNode, false
	}
}

func (r *resolver) fieldIndex(record ast.NodeID, name string) (idx int, elemType ast.NodeID, ok bool) {
	n := r.arena.GetNode(record)
	for i, elemID := range n.Children {
		elem := r.arena.GetNode(elemID)
		if segments(r.arena, elem.Children[0])[0] == name {
			return i, elem.Children[1], true
		}
	}
	return 0, ast.NoNode, false
}

func (r *resolver) resolveTypeDefinition(id ast.NodeID, s scope) *diag.Error {
	n := r.arena.GetNode(id)
	identID, typeExpr := n.Children[0], n.Children[1]
	name := segments(r.arena, identID)[0]
	typeScope := r.arena.TypeScope(s.typ)
	if err := typeScope.DefineType(name, id); err != nil {
		return diag.Resolution("%s", err.Error())
	}
	setScopes(r.arena, identID, s)
	return r.walkTypeExpr(typeExpr, s)
}

func (r *resolver) walkTypeExpr(id ast.NodeID, s scope) *diag.Error {
	if id == ast.NoNode {
		return nil
	}
	setScopes(r.arena, id, s)
	n := r.arena.GetNode(id)
	switch n.Kind {
	case ast.KindTypeAtom:
		name := segments(r.arena, n.Children[0])[0]
		setScopes(r.arena, n.Children[0], s)
		typeScope := r.arena.TypeScope(s.typ)
		if _, _, ok := typeScope.ResolveType(name, r.arena); !ok {
			// Primitive names (i32, str, bool, ...) live in the std
			// prelude's type scope, which the driver passes to ResolveIn
			// as the root; an unresolved atom here is a genuine
			// resolution error.
			return diag.Resolution("undeclared type %q", name)
		}
		return nil
	case ast.KindTypeTuple:
		for _, c := range n.Children {
			if err := r.walkTypeExpr(c, s); err != nil {
				return err
			}
		}
		return nil
	case ast.KindFunctionType:
		if err := r.walkTypeExpr(n.Children[0], s); err != nil {
			return err
		}
		return r.walkTypeExpr(n.Children[1], s)
	case ast.KindArrayType:
		// children = [element_type_expr, count]; count is a literal, not
		// itself a type expression in need of resolution.
		return r.walkTypeExpr(n.Children[0], s)
	case ast.KindReferenceType:
		return r.walkTypeExpr(n.Children[0], s)
	case ast.KindRecord:
		for _, elemID := range n.Children {
			setScopes(r.arena, elemID, s)
			elem := r.arena.GetNode(elemID)
			setScopes(r.arena, elem.Children[0], s)
			if err := r.walkTypeExpr(elem.Children[1], s); err != nil {
				return err
			}
		}
		return nil
	default:
		return diag.Resolution("unexpected node in type-expression position: %s", n.Kind)
	}
}
