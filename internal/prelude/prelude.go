// Package prelude builds the std module: the fixed-width integer and str
// and bool type aliases resolved bare (without import) by every program,
// plus std.io's two native bindings. The driver calls Install before the
// resolver ever sees the program's own root, so every lookup the resolver
// performs against the root scope already has somewhere to land.
package prelude

import (
	"github.com/vexlang/vexc/internal/ast"
	"github.com/vexlang/vexc/internal/types"
)

// primitiveAliases is the surface spelling of each fixed-width primitive,
// kept in one place so the resolver's root scope and the type checker's
// short-circuit table (internal/typecheck) name the same set.
var primitiveAliases = []struct {
	name string
	kind types.Kind
}{
	{"i8", types.KindI8},
	{"ui8", types.KindUI8},
	{"i16", types.KindI16},
	{"ui16", types.KindUI16},
	{"i32", types.KindI32},
	{"ui32", types.KindUI32},
	{"i64", types.KindI64},
	{"ui64", types.KindUI64},
	{"str", types.KindStr},
	{"bool", types.KindBoolean},
}

// NativeIOCall holds the simple names of the std.io native functions (the
// last segment of std.io.print and std.io.println), for later passes that need to tell a native binding apart from a user-defined
// call without threading extra bookkeeping through the scope tables.
var NativeIOCall = map[string]bool{
	"print":   true,
	"println": true,
}

// Scopes is the root scope pair after Install: every program's own root
// scope is created as a child of these.
type Scopes struct {
	Name ast.ScopeID
	Type ast.ScopeID
}

// Install allocates the std root scopes in a and returns them. Each
// primitive alias is registered as a TYPE_DEFINITION whose body is never
// actually elaborated (the type checker recognizes the alias names
// directly); std.io.print and std.io.println are registered as declared,
// defined, and fully elaborated function bindings under the flat module
// key "std.io".
//
// overrides lets a build register a custom spelling for a primitive,
// keyed by the new spelling with the canonical name it stands in for as
// the value (for example {"int": "i32"} makes "int" resolve exactly as
// "i32" does) — a way of matching a project's own vocabulary without
// forking this package. A nil or empty map keeps every alias at its
// canonical spelling.
func Install(a *ast.Arena, overrides map[string]string) Scopes {
	rootName := a.CreateNameScope(ast.NoScope)
	rootType := a.CreateTypeScope(ast.NoScope)

	for _, name := range surfaceNames(overrides) {
		declID := placeholderTypeDefinition(a, name)
		ts := a.TypeScope(rootType)
		_ = ts.DefineType(name, declID)
	}

	ioName := a.CreateNameScope(ast.NoScope)
	ioType := a.CreateTypeScope(ast.NoScope)
	nameScope := a.NameScope(ioName)
	typeScope := a.TypeScope(ioType)

	for name := range NativeIOCall {
		fnType := types.Function(types.Primitive(types.KindUI64), types.Void())
		declID := nativeFunction(a, name, fnType)
		_ = nameScope.DeclareVariable(name, declID)
		_ = nameScope.DefineVariable(name)
		typeScope.BindElaborated(name, fnType)
	}

	a.NameScope(rootName).AddModule([]string{"std", "io"}, ioName)
	a.TypeScope(rootType).AddModule([]string{"std", "io"}, ioType)

	return Scopes{Name: rootName, Type: rootType}
}

// surfaceNames resolves overrides (custom spelling -> canonical name) into
// canonical name -> the spelling that should actually be registered for
// it, for every entry in primitiveAliases. A canonical name with no
// override in the map keeps its own spelling. When two overrides target
// the same canonical name, which one wins is unspecified (map iteration
// order); a build is expected to give each custom spelling one target.
func surfaceNames(overrides map[string]string) map[string]string {
	bySurface := make(map[string]string, len(overrides))
	for custom, canonical := range overrides {
		if custom != "" && canonical != "" {
			bySurface[canonical] = custom
		}
	}
	names := make(map[string]string, len(primitiveAliases))
	for _, p := range primitiveAliases {
		if custom, ok := bySurface[p.name]; ok {
			names[p.name] = custom
		} else {
			names[p.name] = p.name
		}
	}
	return names
}

// AliasKinds returns the primitive Kind bound to each alias's final
// surface spelling after overrides, keyed the same way Install itself
// registered them — the type checker's short-circuit table binds against
// this instead of the canonical names directly, so a renamed alias still
// elaborates to its primitive Kind rather than an unrecognized nominal type.
func AliasKinds(overrides map[string]string) map[string]types.Kind {
	names := surfaceNames(overrides)
	kinds := make(map[string]types.Kind, len(primitiveAliases))
	for _, p := range primitiveAliases {
		kinds[names[p.name]] = p.kind
	}
	return kinds
}

// placeholderTypeDefinition allocates a TYPE_DEFINITION node whose type_expr
// is an empty TYPE_TUPLE. It exists only so TypeScope.Definitions has
// something to point at; elaborate() never walks into it for a recognized
// primitive alias.
func placeholderTypeDefinition(a *ast.Arena, name string) ast.NodeID {
	ident := a.CreateNode(ast.KindIdentifier)
	a.PutIdentifier(ident, ast.NewIdentifierData([]string{name}))

	unit := a.CreateNode(ast.KindTypeTuple)

	def := a.CreateNode(ast.KindTypeDefinition)
	a.SetChildren(def, []ast.NodeID{ident, unit})
	return def
}

// nativeFunction allocates a childless FUNCTION node standing in for a
// native binding. Its elaborated type is recorded directly in the type
// scope rather than derived from a type_expr, since there is no source
// syntax behind it.
func nativeFunction(a *ast.Arena, name string, fnType types.Type) ast.NodeID {
	ident := a.CreateNode(ast.KindIdentifier)
	a.PutIdentifier(ident, ast.NewIdentifierData([]string{name}))
	fn := a.CreateNode(ast.KindFunction)
	a.GetNode(fn).Type = fnType
	return fn
}
