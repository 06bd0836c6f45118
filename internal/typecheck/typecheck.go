// Package typecheck implements the bottom-up type elaboration pass (C5):
// it assigns a fully-elaborated structural type to every node and enforces
// type agreement at every operator, assignment, and call site.
package typecheck

import (
	"strings"

	"github.com/vexlang/vexc/internal/ast"
	"github.com/vexlang/vexc/internal/diag"
	"github.com/vexlang/vexc/internal/types"
)

// defaultAliasKinds maps the prelude's canonical surface type-alias
// spelling to the primitive Kind it names. These are wired into the
// language as fixed as the node-kind enumeration itself; they are never
// looked up through a user TYPE_DEFINITION.
var defaultAliasKinds = map[string]types.Kind{
	"i8":   types.KindI8,
	"ui8":  types.KindUI8,
	"i16":  types.KindI16,
	"ui16": types.KindUI16,
	"i32":  types.KindI32,
	"ui32": types.KindUI32,
	"i64":  types.KindI64,
	"ui64": types.KindUI64,
	"str":  types.KindStr,
	"bool": types.KindBoolean,
}

type checker struct {
	arena   *ast.Arena
	aliases map[string]types.Kind
}

// Check type-checks root bottom-up. It assumes Resolve has already run: the
// resolver must have attached scopes and access patterns, and the checker
// uses them but does not itself validate them.
//
// aliasKinds binds each primitive alias's surface spelling to the Kind it
// short-circuits to; pass nil to use the canonical spellings (the prelude's
// own primitiveAliases table with no overrides applied). A caller threading
// internal/config.Settings.PreludeAliasOverrides through internal/prelude
// must pass the same renamed table here, or a renamed alias elaborates to
// an empty nominal type instead of its intended primitive Kind.
func Check(a *ast.Arena, root ast.NodeID, aliasKinds map[string]types.Kind) *diag.Error {
	if aliasKinds == nil {
		aliasKinds = defaultAliasKinds
	}
	c := &checker{arena: a, aliases: aliasKinds}
	_, err := c.check(root)
	return err
}

func (c *checker) setType(id ast.NodeID, t types.Type) types.Type {
	c.arena.GetNode(id).Type = t
	return t
}

func (c *checker) check(id ast.NodeID) (types.Type, *diag.Error) {
	n := c.arena.GetNode(id)
	switch n.Kind {
	case ast.KindModuleDeclaration, ast.KindImportDeclaration:
		return c.setType(id, types.Void()), nil

	case ast.KindExportStmt:
		return c.checkExport(id)

	case ast.KindBlock:
		return c.checkBlock(id)

	case ast.KindBlockResult:
		t, err := c.check(n.Children[0])
		if err != nil {
			return types.Unset(), err
		}
		return c.setType(id, t), nil

	case ast.KindAssignment:
		return c.checkAssignment(id)

	case ast.KindDeclaration:
		return c.checkDeclaration(id)

	case ast.KindFunction:
		return c.checkFunction(id)

	case ast.KindFunctionCall:
		return c.checkFunctionCall(id)

	case ast.KindIfStatement:
		return c.checkIf(id)

	case ast.KindMatch:
		return c.checkMatch(id)

	case ast.KindWhileLoop:
		return c.checkWhile(id)

	case ast.KindTuple:
		elems := make([]types.Type, len(n.Children))
		for i, c2 := range n.Children {
			t, err := c.check(c2)
			if err != nil {
				return types.Unset(), err
			}
			elems[i] = t
		}
		return c.setType(id, types.Product(elems...)), nil

	case ast.KindArrayValue:
		return c.checkArrayValue(id)

	case ast.KindReference:
		inner, err := c.check(n.Children[0])
		if err != nil {
			return types.Unset(), err
		}
		return c.setType(id, types.Reference(inner)), nil

	case ast.KindIdentifier:
		return c.checkIdentifier(id)

	case ast.KindString:
		return c.setType(id, types.Primitive(types.KindStr)), nil

	case ast.KindBoolean:
		return c.setType(id, types.Primitive(types.KindBoolean)), nil

	case ast.KindNumber:
		width := c.arena.Number(id).Width
		if width == types.KindUnset {
			width = types.KindI32
		}
		return c.setType(id, types.Primitive(width)), nil

	default:
		if n.Kind.IsArithmetic() || n.Kind.IsComparison() {
			return c.checkBinaryOp(id)
		}
		return types.Unset(), diag.Typecheck("unexpected node kind %s in expression position", n.Kind)
	}
}

func (c *checker) checkBlock(id ast.NodeID) (types.Type, *diag.Error) {
	n := c.arena.GetNode(id)
	if len(n.Children) == 0 {
		return c.setType(id, types.Unset()), nil
	}
	var last types.Type
	for _, child := range n.Children {
		t, err := c.check(child)
		if err != nil {
			return types.Unset(), err
		}
		last = t
	}
	return c.setType(id, last), nil
}

// elementTypeOfRHS reports the element types of a tuple-shaped RHS value
// for destructuring assignment to an IDENTIFIER_TUPLE.
func elementTypeOfRHS(t types.Type) ([]types.Type, bool) {
	if t.Kind != types.KindProduct {
		return nil, false
	}
	return t.Product, true
}

func (c *checker) checkAssignment(id ast.NodeID) (types.Type, *diag.Error) {
	n := c.arena.GetNode(id)
	lhs := n.Children[0]
	var typeExprID, rhs ast.NodeID
	if len(n.Children) == 3 {
		typeExprID, rhs = n.Children[1], n.Children[2]
	} else {
		typeExprID, rhs = ast.NoNode, n.Children[1]
	}

	rhsType, err := c.check(rhs)
	if err != nil {
		return types.Unset(), err
	}

	if typeExprID != ast.NoNode {
		declared, err := c.elaborate(typeExprID)
		if err != nil {
			return types.Unset(), err
		}
		if !types.Equal(declared, rhsType) {
			return types.Unset(), diag.Typecheck("cannot assign %s to declared type %s", rhsType.ToString(), declared.ToString())
		}
		rhsType = declared
	}

	lhsNode := c.arena.GetNode(lhs)
	typeScope := c.arena.TypeScope(lhsNode.TypeScopeID)
	if lhsNode.Kind == ast.KindIdentifierTuple {
		elems, ok := elementTypeOfRHS(rhsType)
		if !ok || len(elems) != len(lhsNode.Children) {
			return types.Unset(), diag.Typecheck("cannot destructure %s into a %d-element tuple", rhsType.ToString(), len(lhsNode.Children))
		}
		for i, elemIdent := range lhsNode.Children {
			name := c.arena.Identifier(elemIdent).Segments[0]
			typeScope.BindElaborated(name, elems[i])
			c.setType(elemIdent, elems[i])
		}
	} else {
		name := c.arena.Identifier(lhs).Segments[0]
		typeScope.BindElaborated(name, rhsType)
		c.setType(lhs, rhsType)
	}

	return c.setType(id, types.Void()), nil
}

func (c *checker) checkDeclaration(id ast.NodeID) (types.Type, *diag.Error) {
	n := c.arena.GetNode(id)
	identID, typeExprID := n.Children[0], n.Children[1]
	declared, err := c.elaborate(typeExprID)
	if err != nil {
		return types.Unset(), err
	}
	name := c.arena.Identifier(identID).Segments[0]
	typeScope := c.arena.TypeScope(c.arena.GetNode(identID).TypeScopeID)
	typeScope.BindElaborated(name, declared)
	c.setType(identID, declared)
	return c.setType(id, types.Void()), nil
}

func (c *checker) checkFunction(id ast.NodeID) (types.Type, *diag.Error) {
	n := c.arena.GetNode(id)
	children := n.Children
	var nameID, fromType, toType, body ast.NodeID
	if c.arena.GetNode(children[0]).Kind == ast.KindIdentifier {
		nameID, fromType, toType, body = children[0], children[1], children[2], children[3]
	} else {
		nameID, fromType, toType, body = ast.NoNode, children[0], children[1], children[2]
	}

	from, err := c.elaborate(fromType)
	if err != nil {
		return types.Unset(), err
	}
	to, err := c.elaborate(toType)
	if err != nil {
		return types.Unset(), err
	}
	fnType := types.Function(from, to)

	// Bind the function's own name to its type in the enclosing scope
	// before checking the body, so a self-recursive call sees a fully
	// elaborated callee type.
	if nameID != ast.NoNode {
		name := c.arena.Identifier(nameID).Segments[0]
		outerTypeScope := c.arena.TypeScope(c.arena.GetNode(nameID).TypeScopeID)
		outerTypeScope.BindElaborated(name, fnType)
		c.setType(nameID, fnType)
	}

	bodyNode := c.arena.GetNode(body)
	bodyScope := c.arena.TypeScope(bodyNode.TypeScopeID)
	for _, paramID := range c.parameterElements(fromType) {
		elem := c.arena.GetNode(paramID)
		paramIdent, paramTypeExpr := elem.Children[0], elem.Children[1]
		paramType, err := c.elaborate(paramTypeExpr)
		if err != nil {
			return types.Unset(), err
		}
		name := c.arena.Identifier(paramIdent).Segments[0]
		bodyScope.BindElaborated(name, paramType)
		c.setType(paramIdent, paramType)
	}

	bodyType, err := c.checkBlock(body)
	if err != nil {
		return types.Unset(), err
	}
	if !types.Equal(bodyType, to) {
		return types.Unset(), diag.Typecheck("function body has type %s, declared return type is %s", bodyType.ToString(), to.ToString())
	}

	return c.setType(id, fnType), nil
}

func (c *checker) parameterElements(fromType ast.NodeID) []ast.NodeID {
	n := c.arena.GetNode(fromType)
	if n.Kind == ast.KindRecord {
		return n.Children
	}
	return nil
}

func (c *checker) checkFunctionCall(id ast.NodeID) (types.Type, *diag.Error) {
	n := c.arena.GetNode(id)
	callee, argsID := n.Children[0], n.Children[1]
	argsType, err := c.check(argsID)
	if err != nil {
		return types.Unset(), err
	}

	calleeNode := c.arena.GetNode(callee)
	data := c.arena.Identifier(callee)
	name := data.Segments[0]
	nameScope := c.arena.NameScope(calleeNode.NameScopeID)

	var calleeType types.Type
	if len(data.Segments) > 1 {
		modulePath := data.Segments[:len(data.Segments)-1]
		tail := data.Segments[len(data.Segments)-1]
		if t, ok := c.arena.TypeScope(calleeNode.TypeScopeID).ResolveElaboratedModule(modulePath, tail, c.arena); ok {
			calleeType = t
		} else if t, ok := c.resolveConstructorModule(calleeNode.TypeScopeID, modulePath, tail); ok {
			calleeType = t
		} else {
			return types.Unset(), diag.Typecheck("cannot resolve callee %s", strings.Join(data.Segments, "."))
		}
	} else if t, ok := c.arena.TypeScope(calleeNode.TypeScopeID).ResolveElaborated(name, c.arena); ok {
		calleeType = t
	} else if t, ok := c.resolveConstructor(calleeNode.TypeScopeID, name); ok {
		calleeType = t
	} else {
		_ = nameScope
		return types.Unset(), diag.Typecheck("cannot resolve callee %q", name)
	}

	c.setType(callee, calleeType)

	if calleeType.Kind == types.KindFunction {
		// A callee whose domain is not a product (std.io's natives take a
		// bare ui64) receives a one-element argument tuple; compare that
		// single element against the domain.
		if calleeType.From.Kind != types.KindProduct && argsType.Kind == types.KindProduct && len(argsType.Product) == 1 {
			argsType = argsType.Product[0]
		}
		if !types.Equal(*calleeType.From, argsType) {
			return types.Unset(), diag.Typecheck("call argument type %s does not match parameter type %s", argsType.ToString(), calleeType.From.ToString())
		}
		return c.setType(id, *calleeType.To), nil
	}
	if calleeType.Kind == types.KindProduct {
		if !types.Equal(calleeType, argsType) {
			return types.Unset(), diag.Typecheck("constructor argument type %s does not match %s", argsType.ToString(), calleeType.ToString())
		}
		nominal := c.constructorNominal(calleeNode.TypeScopeID, name, data.Segments)
		return c.setType(id, nominal), nil
	}
	return types.Unset(), diag.Typecheck("%s is not callable", calleeType.ToString())
}

// resolveConstructor treats name as a type-definition name used in
// constructor-call position, returning its structural (product) type.
func (c *checker) resolveConstructor(ts ast.ScopeID, name string) (types.Type, bool) {
	typeScope := c.arena.TypeScope(ts)
	_, declID, ok := typeScope.ResolveType(name, c.arena)
	if !ok {
		return types.Type{}, false
	}
	def := c.arena.GetNode(declID)
	inner, err := c.elaborate(def.Children[1])
	if err != nil {
		return types.Type{}, false
	}
	return inner, true
}

func (c *checker) resolveConstructorModule(ts ast.ScopeID, modulePath []string, name string) (types.Type, bool) {
	typeScope := c.arena.TypeScope(ts)
	declID, ok := typeScope.ResolveTypeModule(modulePath, name, c.arena)
	if !ok {
		return types.Type{}, false
	}
	def := c.arena.GetNode(declID)
	inner, err := c.elaborate(def.Children[1])
	if err != nil {
		return types.Type{}, false
	}
	return inner, true
}

func (c *checker) constructorNominal(ts ast.ScopeID, name string, segments []string) types.Type {
	inner, _ := c.resolveConstructor(ts, name)
	if len(segments) > 1 {
		inner, _ = c.resolveConstructorModule(ts, segments[:len(segments)-1], segments[len(segments)-1])
	}
	return types.Nominal(name, inner)
}

func (c *checker) checkIf(id ast.NodeID) (types.Type, *diag.Error) {
	n := c.arena.GetNode(id)
	var common types.Type
	for i, branchID := range n.Children {
		branch := c.arena.GetNode(branchID)
		test, block := branch.Children[0], branch.Children[1]
		testType, err := c.check(test)
		if err != nil {
			return types.Unset(), err
		}
		if !types.Equal(testType, types.Primitive(types.KindBoolean)) {
			return types.Unset(), diag.Typecheck("if test has type %s, want std.boolean", testType.ToString())
		}
		blockType, err := c.checkBlock(block)
		if err != nil {
			return types.Unset(), err
		}
		if i == 0 {
			common = blockType
		} else if !types.Equal(common, blockType) {
			return types.Unset(), diag.Typecheck("if branches disagree: %s vs %s", common.ToString(), blockType.ToString())
		}
		c.setType(branchID, blockType)
	}
	return c.setType(id, common), nil
}

func (c *checker) checkMatch(id ast.NodeID) (types.Type, *diag.Error) {
	n := c.arena.GetNode(id)
	if _, err := c.check(n.Children[0]); err != nil {
		return types.Unset(), err
	}
	var common types.Type
	for i, branchID := range n.Children[1:] {
		branch := c.arena.GetNode(branchID)
		test, block := branch.Children[0], branch.Children[1]
		if _, err := c.check(test); err != nil {
			return types.Unset(), err
		}
		blockType, err := c.checkBlock(block)
		if err != nil {
			return types.Unset(), err
		}
		if i == 0 {
			common = blockType
		} else if !types.Equal(common, blockType) {
			return types.Unset(), diag.Typecheck("match branches disagree: %s vs %s", common.ToString(), blockType.ToString())
		}
		c.setType(branchID, blockType)
	}
	return c.setType(id, common), nil
}

func (c *checker) checkWhile(id ast.NodeID) (types.Type, *diag.Error) {
	n := c.arena.GetNode(id)
	test, body := n.Children[0], n.Children[1]
	testType, err := c.check(test)
	if err != nil {
		return types.Unset(), err
	}
	if !types.Equal(testType, types.Primitive(types.KindBoolean)) {
		return types.Unset(), diag.Typecheck("while test has type %s, want std.boolean", testType.ToString())
	}
	if _, err := c.checkBlock(body); err != nil {
		return types.Unset(), err
	}
	return c.setType(id, types.Void()), nil
}

func (c *checker) checkArrayValue(id ast.NodeID) (types.Type, *diag.Error) {
	n := c.arena.GetNode(id)
	if len(n.Children) == 0 {
		return c.setType(id, types.Array(types.Unset(), 0)), nil
	}
	var elem types.Type
	for i, child := range n.Children {
		t, err := c.check(child)
		if err != nil {
			return types.Unset(), err
		}
		if i == 0 {
			elem = t
		} else if !types.Equal(elem, t) {
			return types.Unset(), diag.Typecheck("array element %d has type %s, want %s", i, t.ToString(), elem.ToString())
		}
	}
	return c.setType(id, types.Array(elem, len(n.Children))), nil
}

func (c *checker) checkIdentifier(id ast.NodeID) (types.Type, *diag.Error) {
	n := c.arena.GetNode(id)
	data := c.arena.Identifier(id)
	typeScope := c.arena.TypeScope(n.TypeScopeID)

	if len(data.Segments) > 1 {
		modulePath := data.Segments[:len(data.Segments)-1]
		tail := data.Segments[len(data.Segments)-1]
		if t, ok := typeScope.ResolveElaboratedModule(modulePath, tail, c.arena); ok {
			return c.setType(id, t), nil
		}
		// Dotted field projection: base.field1.field2...
		name := data.Segments[0]
		t, ok := typeScope.ResolveElaborated(name, c.arena)
		if !ok {
			return types.Unset(), diag.Typecheck("undeclared name %q", name)
		}
		for _, offset := range data.Offsets {
			next, ok := t.ProjectOffset(offset)
			if !ok {
				return types.Unset(), diag.Typecheck("cannot project field at offset %d of %s", offset, t.ToString())
			}
			t = next
		}
		return c.setType(id, t), nil
	}

	name := data.Segments[0]
	if t, ok := typeScope.ResolveElaborated(name, c.arena); ok {
		return c.setType(id, t), nil
	}
	if inner, ok := c.resolveConstructor(n.TypeScopeID, name); ok {
		return c.setType(id, inner), nil
	}
	return types.Unset(), diag.Typecheck("undeclared name %q", name)
}

func (c *checker) checkExport(id ast.NodeID) (types.Type, *diag.Error) {
	n := c.arena.GetNode(id)
	for _, child := range n.Children {
		data := c.arena.Identifier(child)
		name := data.Segments[len(data.Segments)-1]
		ts := c.arena.TypeScope(c.arena.GetNode(child).TypeScopeID)
		if t, ok := ts.ResolveElaborated(name, c.arena); ok {
			c.setType(child, t)
			continue
		}
		if _, declID, ok := ts.ResolveType(name, c.arena); ok {
			def := c.arena.GetNode(declID)
			inner, err := c.elaborate(def.Children[1])
			if err != nil {
				return types.Unset(), err
			}
			c.setType(child, inner)
			continue
		}
		return types.Unset(), diag.Typecheck("export of undeclared name %q", name)
	}
	return c.setType(id, types.Void()), nil
}

func (c *checker) checkBinaryOp(id ast.NodeID) (types.Type, *diag.Error) {
	n := c.arena.GetNode(id)
	left, err := c.check(n.Children[0])
	if err != nil {
		return types.Unset(), err
	}
	right, err := c.check(n.Children[1])
	if err != nil {
		return types.Unset(), err
	}
	if !left.IsInteger() || !right.IsInteger() || !types.Equal(left, right) {
		return types.Unset(), diag.Typecheck("operator %s requires matching integer operands, got %s and %s", n.Kind, left.ToString(), right.ToString())
	}
	if n.Kind.IsComparison() {
		return c.setType(id, types.Primitive(types.KindBoolean)), nil
	}
	return c.setType(id, left), nil
}

// elaborate turns a syntactic type expression into a fully-elaborated
// structural type, and stamps the result onto the node itself so later
// passes (lowering, codegen) can read a type expression's meaning without
// re-resolving it.
func (c *checker) elaborate(id ast.NodeID) (types.Type, *diag.Error) {
	t, err := c.elaborateUnstamped(id)
	if err != nil {
		return types.Unset(), err
	}
	return c.setType(id, t), nil
}

func (c *checker) elaborateUnstamped(id ast.NodeID) (types.Type, *diag.Error) {
	n := c.arena.GetNode(id)
	switch n.Kind {
	case ast.KindTypeAtom:
		name := c.arena.Identifier(n.Children[0]).Segments[0]
		if kind, ok := c.aliases[name]; ok {
			return types.Primitive(kind), nil
		}
		typeScope := c.arena.TypeScope(n.TypeScopeID)
		_, declID, ok := typeScope.ResolveType(name, c.arena)
		if !ok {
			return types.Unset(), diag.Typecheck("undeclared type %q", name)
		}
		def := c.arena.GetNode(declID)
		inner, err := c.elaborate(def.Children[1])
		if err != nil {
			return types.Unset(), err
		}
		return types.Nominal(name, inner), nil

	case ast.KindTypeTuple:
		elems := make([]types.Type, len(n.Children))
		for i, child := range n.Children {
			t, err := c.elaborate(child)
			if err != nil {
				return types.Unset(), err
			}
			elems[i] = t
		}
		return types.Product(elems...), nil

	case ast.KindFunctionType:
		from, err := c.elaborate(n.Children[0])
		if err != nil {
			return types.Unset(), err
		}
		to, err := c.elaborate(n.Children[1])
		if err != nil {
			return types.Unset(), err
		}
		return types.Function(from, to), nil

	case ast.KindArrayType:
		elem, err := c.elaborate(n.Children[0])
		if err != nil {
			return types.Unset(), err
		}
		count := c.arena.Number(n.Children[1]).Value
		return types.Array(elem, int(count)), nil

	case ast.KindReferenceType:
		inner, err := c.elaborate(n.Children[0])
		if err != nil {
			return types.Unset(), err
		}
		return types.Reference(inner), nil

	case ast.KindRecord:
		elems := make([]types.Type, len(n.Children))
		for i, elemID := range n.Children {
			elem := c.arena.GetNode(elemID)
			t, err := c.elaborate(elem.Children[1])
			if err != nil {
				return types.Unset(), err
			}
			elems[i] = t
		}
		return types.Product(elems...), nil

	default:
		return types.Unset(), diag.Typecheck("unexpected node in type-expression position: %s", n.Kind)
	}
}
