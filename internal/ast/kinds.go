package ast

// Kind tags an extended-AST node. The set and the per-kind children schema
// are fixed by the parser contract: lexing and parsing are external
// collaborators and only ever set Kind, the ordered children, and leaf data.
type Kind int

const (
	KindInvalid Kind = iota

	// Module-level
	KindModuleDeclaration
	KindImportDeclaration
	KindExportStmt

	// Structure
	KindBlock
	KindBlockResult

	// Bindings
	KindAssignment
	KindDeclaration
	KindIdentifierTuple

	// Functions
	KindFunction
	KindFunctionCall

	// Control flow
	KindIfStatement
	KindIfBranch // synthetic: one (test_expr, block) arm of an IF_STATEMENT
	KindMatch
	KindMatchBranch
	KindWhileLoop

	// Aggregates
	KindTuple
	KindArrayValue
	KindReference

	// Literals
	KindString
	KindBoolean
	KindNumber
	KindIdentifier

	// Type expressions
	KindTypeAtom
	KindTypeTuple
	KindFunctionType
	KindArrayType
	KindReferenceType

	// Type definitions
	KindTypeDefinition
	KindRecord
	KindRecordElement

	// Binary operators
	KindAddition
	KindSubtraction
	KindMultiplication
	KindDivision
	KindModulo
	KindEquality
	KindGreaterThan
	KindGreaterOrEq
	KindLessThan
	KindLessOrEq
)

var kindNames = map[Kind]string{
	KindInvalid:           "INVALID",
	KindModuleDeclaration: "MODULE_DECLARATION",
	KindImportDeclaration: "IMPORT_DECLARATION",
	KindExportStmt:        "EXPORT_STMT",
	KindBlock:             "BLOCK",
	KindBlockResult:       "BLOCK_RESULT",
	KindAssignment:        "ASSIGNMENT",
	KindDeclaration:       "DECLARATION",
	KindIdentifierTuple:   "IDENTIFIER_TUPLE",
	KindFunction:          "FUNCTION",
	KindFunctionCall:      "FUNCTION_CALL",
	KindIfStatement:       "IF_STATEMENT",
	KindIfBranch:          "IF_BRANCH",
	KindMatch:             "MATCH",
	KindMatchBranch:       "MATCH_BRANCH",
	KindWhileLoop:         "WHILE_LOOP",
	KindTuple:             "TUPLE",
	KindArrayValue:        "ARRAY_VALUE",
	KindReference:         "REFERENCE",
	KindString:            "STRING",
	KindBoolean:           "BOOLEAN",
	KindNumber:            "NUMBER",
	KindIdentifier:        "IDENTIFIER",
	KindTypeAtom:          "TYPE_ATOM",
	KindTypeTuple:         "TYPE_TUPLE",
	KindFunctionType:      "FUNCTION_TYPE",
	KindArrayType:         "ARRAY_TYPE",
	KindReferenceType:     "REFERENCE_TYPE",
	KindTypeDefinition:    "TYPE_DEFINITION",
	KindRecord:            "RECORD",
	KindRecordElement:     "RECORD_ELEMENT",
	KindAddition:          "ADDITION",
	KindSubtraction:       "SUBTRACTION",
	KindMultiplication:    "MULTIPLICATION",
	KindDivision:          "DIVISION",
	KindModulo:            "MODULO",
	KindEquality:          "EQUALITY",
	KindGreaterThan:       "GREATER_THAN",
	KindGreaterOrEq:       "GREATER_OR_EQ",
	KindLessThan:          "LESS_THAN",
	KindLessOrEq:          "LESS_OR_EQ",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "UNKNOWN_KIND"
}

// IsBinaryOp reports whether k is one of the binary arithmetic/comparison
// operator kinds, each of which carries exactly two children (left, right).
func (k Kind) IsBinaryOp() bool {
	switch k {
	case KindAddition, KindSubtraction, KindMultiplication, KindDivision, KindModulo,
		KindEquality, KindGreaterThan, KindGreaterOrEq, KindLessThan, KindLessOrEq:
		return true
	default:
		return false
	}
}

// IsArithmetic reports whether k is +,-,*,/,% (result type equals operand type).
func (k Kind) IsArithmetic() bool {
	switch k {
	case KindAddition, KindSubtraction, KindMultiplication, KindDivision, KindModulo:
		return true
	default:
		return false
	}
}

// IsComparison reports whether k is one of the comparison operators
// (result type is always boolean).
func (k Kind) IsComparison() bool {
	switch k {
	case KindEquality, KindGreaterThan, KindGreaterOrEq, KindLessThan, KindLessOrEq:
		return true
	default:
		return false
	}
}
