package ast

import "github.com/vexlang/vexc/internal/types"

// NodeID addresses a Node within an Arena. It is stable for the life of
// the arena; children reference parents (and siblings) by id, never by
// address. NoNode is the sentinel for "absent".
type NodeID int

const NoNode NodeID = -1

// ScopeID addresses a NameScope or TypeScope within an Arena, depending on
// which tree it was returned from. NoScope is the sentinel for "absent".
type ScopeID int

const NoScope ScopeID = -1

// Node is one extended-AST node. Leaves carry data via DataIndex into the
// per-kind side table selected by Kind; interior nodes leave DataIndex at
// -1 and carry their payload positionally in Children.
type Node struct {
	Kind     Kind
	ID       NodeID
	Children []NodeID
	ParentID NodeID // NoNode for the root

	DataIndex int // -1 if this Kind has no leaf data

	Type types.Type // Unset until the type checker visits this node

	NameScopeID ScopeID // NoScope unless this node pushes/owns a scope
	TypeScopeID ScopeID
}

// Arena exclusively owns all nodes and scopes for one compilation. It is
// not shared across compilations and requires no locking: each pass is a
// pure function of its input plus the arena under its exclusive mutation.
type Arena struct {
	nodes []Node

	identifiers []IdentifierData
	numbers     []NumberData
	strings     []StringData
	booleans    []BooleanData

	nameScopes []NameScope
	typeScopes []TypeScope
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// CreateNode allocates a fresh node of the given kind with no children,
// no parent, no scopes, and Unset type, and returns its stable id.
func (a *Arena) CreateNode(kind Kind) NodeID {
	id := NodeID(len(a.nodes))
	a.nodes = append(a.nodes, Node{
		Kind:        kind,
		ID:          id,
		ParentID:    NoNode,
		DataIndex:   -1,
		Type:        types.Unset(),
		NameScopeID: NoScope,
		TypeScopeID: NoScope,
	})
	return id
}

// GetNode returns a pointer to the node so callers can mutate annotations
// (Type, scope ids, access pattern data) in place.
func (a *Arena) GetNode(id NodeID) *Node {
	return &a.nodes[id]
}

// NodeCount returns the number of nodes currently in the arena.
func (a *Arena) NodeCount() int { return len(a.nodes) }

// AddChild appends child to parent's children and sets child's ParentID.
func (a *Arena) AddChild(parent, child NodeID) {
	a.nodes[parent].Children = append(a.nodes[parent].Children, child)
	a.nodes[child].ParentID = parent
}

// SetChildren replaces parent's children list wholesale, reparenting each.
func (a *Arena) SetChildren(parent NodeID, children []NodeID) {
	a.nodes[parent].Children = children
	for _, c := range children {
		a.nodes[c].ParentID = parent
	}
}

// PutIdentifier stores leaf data for an IDENTIFIER node and wires DataIndex.
func (a *Arena) PutIdentifier(id NodeID, data IdentifierData) {
	idx := len(a.identifiers)
	a.identifiers = append(a.identifiers, data)
	a.nodes[id].DataIndex = idx
}

// Identifier returns a pointer to id's IdentifierData for in-place mutation
// (the resolver writes ScopeDistance and Offsets after lookup).
func (a *Arena) Identifier(id NodeID) *IdentifierData {
	return &a.identifiers[a.nodes[id].DataIndex]
}

// PutNumber stores leaf data for a NUMBER node.
func (a *Arena) PutNumber(id NodeID, data NumberData) {
	idx := len(a.numbers)
	a.numbers = append(a.numbers, data)
	a.nodes[id].DataIndex = idx
}

func (a *Arena) Number(id NodeID) *NumberData {
	return &a.numbers[a.nodes[id].DataIndex]
}

// PutString stores leaf data for a STRING node.
func (a *Arena) PutString(id NodeID, data StringData) {
	idx := len(a.strings)
	a.strings = append(a.strings, data)
	a.nodes[id].DataIndex = idx
}

func (a *Arena) String(id NodeID) *StringData {
	return &a.strings[a.nodes[id].DataIndex]
}

// PutBoolean stores leaf data for a BOOLEAN node.
func (a *Arena) PutBoolean(id NodeID, data BooleanData) {
	idx := len(a.booleans)
	a.booleans = append(a.booleans, data)
	a.nodes[id].DataIndex = idx
}

func (a *Arena) Boolean(id NodeID) *BooleanData {
	return &a.booleans[a.nodes[id].DataIndex]
}
