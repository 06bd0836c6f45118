// Package astjson decodes the parser collaborator's extended AST from its
// JSON wire form into an ast.Arena. Lexing and parsing are external to this
// compiler (see the input AST contract); this package is the boundary
// adapter that lets the cmd/vexc driver accept that collaborator's output
// without the core passes ever seeing JSON.
package astjson

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/vexlang/vexc/internal/ast"
	"github.com/vexlang/vexc/internal/types"
)

// Node is the wire form of one extended-AST node. Fields not meaningful
// for a given Kind are simply omitted by the producer.
type Node struct {
	Kind     string `json:"kind"`
	Children []Node `json:"children,omitempty"`

	// Leaf data, present only on the matching Kind.
	Segments []string `json:"segments,omitempty"` // IDENTIFIER
	Value    int64    `json:"value,omitempty"`     // NUMBER
	Width    string   `json:"width,omitempty"`     // NUMBER
	Text     string   `json:"text,omitempty"`      // STRING
	Bool     bool     `json:"bool,omitempty"`      // BOOLEAN
}

var kindByName = map[string]ast.Kind{
	"MODULE_DECLARATION": ast.KindModuleDeclaration,
	"IMPORT_DECLARATION": ast.KindImportDeclaration,
	"EXPORT_STMT":        ast.KindExportStmt,
	"BLOCK":              ast.KindBlock,
	"BLOCK_RESULT":       ast.KindBlockResult,
	"ASSIGNMENT":         ast.KindAssignment,
	"DECLARATION":        ast.KindDeclaration,
	"IDENTIFIER_TUPLE":   ast.KindIdentifierTuple,
	"FUNCTION":           ast.KindFunction,
	"FUNCTION_CALL":      ast.KindFunctionCall,
	"IF_STATEMENT":       ast.KindIfStatement,
	"IF_BRANCH":          ast.KindIfBranch,
	"MATCH":              ast.KindMatch,
	"MATCH_BRANCH":       ast.KindMatchBranch,
	"WHILE_LOOP":         ast.KindWhileLoop,
	"TUPLE":              ast.KindTuple,
	"ARRAY_VALUE":        ast.KindArrayValue,
	"REFERENCE":          ast.KindReference,
	"STRING":             ast.KindString,
	"BOOLEAN":            ast.KindBoolean,
	"NUMBER":             ast.KindNumber,
	"IDENTIFIER":         ast.KindIdentifier,
	"TYPE_ATOM":          ast.KindTypeAtom,
	"TYPE_TUPLE":         ast.KindTypeTuple,
	"FUNCTION_TYPE":      ast.KindFunctionType,
	"ARRAY_TYPE":         ast.KindArrayType,
	"REFERENCE_TYPE":     ast.KindReferenceType,
	"TYPE_DEFINITION":    ast.KindTypeDefinition,
	"RECORD":             ast.KindRecord,
	"RECORD_ELEMENT":     ast.KindRecordElement,
	"ADDITION":           ast.KindAddition,
	"SUBTRACTION":        ast.KindSubtraction,
	"MULTIPLICATION":     ast.KindMultiplication,
	"DIVISION":           ast.KindDivision,
	"MODULO":             ast.KindModulo,
	"EQUALITY":           ast.KindEquality,
	"GREATER_THAN":       ast.KindGreaterThan,
	"GREATER_OR_EQ":      ast.KindGreaterOrEq,
	"LESS_THAN":          ast.KindLessThan,
	"LESS_OR_EQ":         ast.KindLessOrEq,
}

var widthByName = map[string]types.Kind{
	"i8": types.KindI8, "ui8": types.KindUI8,
	"i16": types.KindI16, "ui16": types.KindUI16,
	"i32": types.KindI32, "ui32": types.KindUI32,
	"i64": types.KindI64, "ui64": types.KindUI64,
}

// Decode reads one JSON-encoded root node from r and builds it into a
// freshly allocated arena, returning the root's id.
func Decode(r io.Reader) (*ast.Arena, ast.NodeID, error) {
	var root Node
	if err := json.NewDecoder(r).Decode(&root); err != nil {
		return nil, ast.NoNode, fmt.Errorf("decoding extended AST: %w", err)
	}
	a := ast.NewArena()
	id, err := build(a, root)
	if err != nil {
		return nil, ast.NoNode, err
	}
	return a, id, nil
}

func build(a *ast.Arena, n Node) (ast.NodeID, error) {
	kind, ok := kindByName[n.Kind]
	if !ok {
		return ast.NoNode, fmt.Errorf("unknown node kind %q", n.Kind)
	}
	id := a.CreateNode(kind)

	switch kind {
	case ast.KindIdentifier:
		a.PutIdentifier(id, ast.NewIdentifierData(n.Segments))
	case ast.KindNumber:
		width := types.KindI32
		if w, ok := widthByName[n.Width]; ok {
			width = w
		}
		a.PutNumber(id, ast.NumberData{Value: n.Value, Width: width})
	case ast.KindString:
		a.PutString(id, ast.StringData{Value: n.Text})
	case ast.KindBoolean:
		a.PutBoolean(id, ast.BooleanData{Value: n.Bool})
	}

	children := make([]ast.NodeID, 0, len(n.Children))
	for _, c := range n.Children {
		cid, err := build(a, c)
		if err != nil {
			return ast.NoNode, err
		}
		children = append(children, cid)
	}
	a.SetChildren(id, children)
	return id, nil
}
