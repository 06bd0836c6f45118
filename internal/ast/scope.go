package ast

import (
	"fmt"
	"strings"

	"github.com/vexlang/vexc/internal/types"
)

// ScopeProvider dereferences a ScopeID into the scope it names, without the
// caller holding a pointer into the owning arena. Lookup algorithms take a
// ScopeProvider rather than an *Arena so that a module's subtree can one
// day live in a different arena than the scope asking about it.
type ScopeProvider interface {
	NameScope(id ScopeID) *NameScope
	TypeScope(id ScopeID) *TypeScope
}

var _ ScopeProvider = (*Arena)(nil)

func (a *Arena) NameScope(id ScopeID) *NameScope { return &a.nameScopes[id] }
func (a *Arena) TypeScope(id ScopeID) *TypeScope { return &a.typeScopes[id] }

// varEntry is the name scope's binding for a simple variable name.
type varEntry struct {
	DeclID  NodeID
	Defined bool
}

// NameScope maps simple names to variable declarations and module paths to
// child name-scope subtrees. Declare-then-define is enforced here:
// an entry's Defined flag may only become true after DeclareVariable has run for the
// same name in the same scope.
type NameScope struct {
	ID        ScopeID
	Parent    ScopeID // NoScope at the root
	Variables map[string]*varEntry
	Modules   map[string]ScopeID
}

// TypeScope is the name scope's twin: it binds simple names to fully
// elaborated types (the type checker's working set) and to named type
// definitions, and carries the same module-path bindings.
type TypeScope struct {
	ID          ScopeID
	Parent      ScopeID
	Elaborated  map[string]types.Type
	Definitions map[string]NodeID
	Modules     map[string]ScopeID
}

// CreateNameScope allocates a child of parent (or a root scope if parent
// is NoScope) and returns its id.
func (a *Arena) CreateNameScope(parent ScopeID) ScopeID {
	id := ScopeID(len(a.nameScopes))
	a.nameScopes = append(a.nameScopes, NameScope{
		ID:        id,
		Parent:    parent,
		Variables: make(map[string]*varEntry),
		Modules:   make(map[string]ScopeID),
	})
	return id
}

// CreateTypeScope allocates a child of parent (or a root scope if parent
// is NoScope) and returns its id.
func (a *Arena) CreateTypeScope(parent ScopeID) ScopeID {
	id := ScopeID(len(a.typeScopes))
	a.typeScopes = append(a.typeScopes, TypeScope{
		ID:          id,
		Parent:      parent,
		Elaborated:  make(map[string]types.Type),
		Definitions: make(map[string]NodeID),
		Modules:     make(map[string]ScopeID),
	})
	return id
}

// DeclareVariable fails if name is already declared in this scope.
func (ns *NameScope) DeclareVariable(name string, declID NodeID) error {
	if _, exists := ns.Variables[name]; exists {
		return fmt.Errorf("%q is already declared in this scope", name)
	}
	ns.Variables[name] = &varEntry{DeclID: declID, Defined: false}
	return nil
}

// DefineVariable marks name resolvable. It must follow DeclareVariable in
// the same scope.
func (ns *NameScope) DefineVariable(name string) error {
	entry, exists := ns.Variables[name]
	if !exists {
		return fmt.Errorf("%q defined before it was declared", name)
	}
	entry.Defined = true
	return nil
}

// AddModule associates a dot-joined module path with a child name scope.
func (ns *NameScope) AddModule(path []string, scope ScopeID) {
	ns.Modules[strings.Join(path, ".")] = scope
}

// Depth counts the number of parent hops from ns to the root.
func (ns *NameScope) Depth(sp ScopeProvider) int {
	depth := 0
	cur := ns
	for cur.Parent != NoScope {
		cur = sp.NameScope(cur.Parent)
		depth++
	}
	return depth
}

// ResolveVariable walks the parent chain starting at ns, incrementing
// scopeDistance by one per hop, looking for a declared-and-defined name.
// A use of a not-yet-defined variable is treated as a miss: the resolver
// surfaces it as a resolution error rather than silently skipping to an
// outer scope that happens to define the same name.
func (ns *NameScope) ResolveVariable(name string, sp ScopeProvider) (scopeDistance int, declID NodeID, ok bool) {
	cur := ns
	distance := 0
	for {
		if entry, exists := cur.Variables[name]; exists {
			if !entry.Defined {
				return 0, NoNode, false
			}
			return distance, entry.DeclID, true
		}
		if cur.Parent == NoScope {
			return 0, NoNode, false
		}
		cur = sp.NameScope(cur.Parent)
		distance++
	}
}

// ResolveVariableModule resolves a module-qualified name: it ascends the
// parent chain looking for modulePath to name a subtree at each level, then
// performs a single non-recursive lookup of name in that target scope.
func (ns *NameScope) ResolveVariableModule(modulePath []string, name string, sp ScopeProvider) (declID NodeID, ok bool) {
	key := strings.Join(modulePath, ".")
	cur := ns
	for {
		if target, exists := cur.Modules[key]; exists {
			mod := sp.NameScope(target)
			if entry, exists := mod.Variables[name]; exists && entry.Defined {
				return entry.DeclID, true
			}
			return NoNode, false
		}
		if cur.Parent == NoScope {
			return NoNode, false
		}
		cur = sp.NameScope(cur.Parent)
	}
}

// Merge inserts every variable and module binding of other into ns. The
// caller is responsible for deciding whether a simple-name collision is a
// semantic error; Merge itself just performs the insertion (last writer
// wins on collision).
func (ns *NameScope) Merge(other *NameScope) {
	for name, entry := range other.Variables {
		ns.Variables[name] = entry
	}
	for path, scope := range other.Modules {
		ns.Modules[path] = scope
	}
}

// DefineType binds name to a type definition node; at most once per name
// per scope.
func (ts *TypeScope) DefineType(name string, declID NodeID) error {
	if _, exists := ts.Definitions[name]; exists {
		return fmt.Errorf("type %q is already defined in this scope", name)
	}
	ts.Definitions[name] = declID
	return nil
}

// BindElaborated records the fully-elaborated type of a variable name,
// independent of (and later than) the name scope's declaration bookkeeping.
func (ts *TypeScope) BindElaborated(name string, t types.Type) {
	ts.Elaborated[name] = t.Copy()
}

// AddModule associates a dot-joined module path with a child type scope.
func (ts *TypeScope) AddModule(path []string, scope ScopeID) {
	ts.Modules[strings.Join(path, ".")] = scope
}

// Depth counts the number of parent hops from ts to the root.
func (ts *TypeScope) Depth(sp ScopeProvider) int {
	depth := 0
	cur := ts
	for cur.Parent != NoScope {
		cur = sp.TypeScope(cur.Parent)
		depth++
	}
	return depth
}

// ResolveType walks the parent chain looking for a named type definition.
func (ts *TypeScope) ResolveType(name string, sp ScopeProvider) (scopeDistance int, declID NodeID, ok bool) {
	cur := ts
	distance := 0
	for {
		if id, exists := cur.Definitions[name]; exists {
			return distance, id, true
		}
		if cur.Parent == NoScope {
			return 0, NoNode, false
		}
		cur = sp.TypeScope(cur.Parent)
		distance++
	}
}

// ResolveTypeModule is ResolveType's module-qualified counterpart, mirroring
// NameScope.ResolveVariableModule.
func (ts *TypeScope) ResolveTypeModule(modulePath []string, name string, sp ScopeProvider) (declID NodeID, ok bool) {
	key := strings.Join(modulePath, ".")
	cur := ts
	for {
		if target, exists := cur.Modules[key]; exists {
			mod := sp.TypeScope(target)
			if id, exists := mod.Definitions[name]; exists {
				return id, true
			}
			return NoNode, false
		}
		if cur.Parent == NoScope {
			return NoNode, false
		}
		cur = sp.TypeScope(cur.Parent)
	}
}

// ResolveElaborated looks up the fully-elaborated type bound to name,
// ascending the parent chain exactly like ResolveType.
func (ts *TypeScope) ResolveElaborated(name string, sp ScopeProvider) (types.Type, bool) {
	cur := ts
	for {
		if t, exists := cur.Elaborated[name]; exists {
			return t, true
		}
		if cur.Parent == NoScope {
			return types.Type{}, false
		}
		cur = sp.TypeScope(cur.Parent)
	}
}

// ResolveElaboratedModule mirrors ResolveTypeModule for the elaborated-type
// map: it resolves modulePath to a target type scope, then looks up name
// there without recursing further.
func (ts *TypeScope) ResolveElaboratedModule(modulePath []string, name string, sp ScopeProvider) (types.Type, bool) {
	key := strings.Join(modulePath, ".")
	cur := ts
	for {
		if target, exists := cur.Modules[key]; exists {
			mod := sp.TypeScope(target)
			if t, exists := mod.Elaborated[name]; exists {
				return t, true
			}
			return types.Type{}, false
		}
		if cur.Parent == NoScope {
			return types.Type{}, false
		}
		cur = sp.TypeScope(cur.Parent)
	}
}

// Merge inserts every definition and module binding of other into ts.
func (ts *TypeScope) Merge(other *TypeScope) {
	for name, id := range other.Definitions {
		ts.Definitions[name] = id
	}
	for name, t := range other.Elaborated {
		ts.Elaborated[name] = t
	}
	for path, scope := range other.Modules {
		ts.Modules[path] = scope
	}
}
