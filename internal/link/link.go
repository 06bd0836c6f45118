// Package link implements the C8 pass: it relocates intra-function labels
// to relative byte offsets and cross-function call targets to packed
// (chunk_index, ip) far labels, turning a generator Program into an
// Executable.
package link

import (
	"github.com/vexlang/vexc/internal/bytecode"
	"github.com/vexlang/vexc/internal/diag"
)

// Executable is the post-link form of a Program: same chunks, operands
// resolved, ready for a VM to execute from chunk 0.
type Executable struct {
	Chunks []*bytecode.Chunk
}

// Link resolves every label and call target in prog and returns the
// linked Executable. An unresolved label, an unknown call target, or an
// unrecognized opcode is fatal.
func Link(prog *bytecode.Program) (*Executable, *diag.Error) {
	locations := functionLocations(prog)

	for _, chunk := range prog.Chunks {
		if chunk.Native {
			continue
		}
		labels, err := scanLabels(chunk)
		if err != nil {
			return nil, err
		}
		if err := resolveOperands(chunk, labels, locations); err != nil {
			return nil, err
		}
	}

	return &Executable{Chunks: prog.Chunks}, nil
}

func functionLocations(prog *bytecode.Program) map[string]int {
	locations := make(map[string]int, len(prog.Chunks))
	for i, chunk := range prog.Chunks {
		locations[chunk.Name] = i
	}
	return locations
}

// scanLabels walks chunk once, recording each LBL_UI32's byte position
// and overwriting its bytes with NOPs (labels have no runtime semantics
// once jumps are relocated to byte offsets).
func scanLabels(chunk *bytecode.Chunk) (map[uint32]int, *diag.Error) {
	labels := make(map[uint32]int)
	offset := 0
	for offset < len(chunk.Code) {
		op := bytecode.Op(chunk.Code[offset])
		size, ok := bytecode.OpSize(op)
		if !ok {
			return nil, diag.Link("chunk %q: unknown opcode %d at offset %d", chunk.Name, op, offset)
		}
		if op == bytecode.LBL_UI32 {
			id := bytecode.DecodeU32(chunk.Code[offset+1:])
			labels[id] = offset
			for i := 0; i < size; i++ {
				chunk.Code[offset+i] = byte(bytecode.NOP)
			}
		}
		offset += size
	}
	return labels, nil
}

// resolveOperands walks chunk a second time, rewriting every jump's label
// operand to a relative byte distance and every CALL_UI64's symbol
// operand to a packed far label.
func resolveOperands(chunk *bytecode.Chunk, labels map[uint32]int, locations map[string]int) *diag.Error {
	offset := 0
	for offset < len(chunk.Code) {
		op := bytecode.Op(chunk.Code[offset])
		size, ok := bytecode.OpSize(op)
		if !ok {
			return diag.Link("chunk %q: unknown opcode %d at offset %d", chunk.Name, op, offset)
		}

		switch op {
		case bytecode.JMPR_I32:
			labelID := bytecode.DecodeU32(chunk.Code[offset+1:])
			target, ok := labels[labelID]
			if !ok {
				return diag.Link("chunk %q: undefined label %d", chunk.Name, labelID)
			}
			chunk.PatchI32(offset+1, int32(target-offset))

		case bytecode.JRZ_REG_I32, bytecode.JRNZ_REG_I32:
			labelID := bytecode.DecodeU32(chunk.Code[offset+2:])
			target, ok := labels[labelID]
			if !ok {
				return diag.Link("chunk %q: undefined label %d", chunk.Name, labelID)
			}
			chunk.PatchI32(offset+2, int32(target-offset))

		case bytecode.CALL_UI64:
			symbolID := bytecode.DecodeU64(chunk.Code[offset+2:])
			name, ok := chunk.Symbols[symbolID]
			if !ok {
				return diag.Link("chunk %q: unknown call symbol %d", chunk.Name, symbolID)
			}
			chunkIndex, ok := locations[name]
			if !ok {
				return diag.Link("chunk %q: unknown call target %q", chunk.Name, name)
			}
			chunk.PatchU64(offset+2, bytecode.FarLabel(uint32(chunkIndex), 0))
		}

		offset += size
	}
	return nil
}
