package bytecode

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Disassemble renders prog as text, one instruction per line: the op
// mnemonic followed by its decoded operands. Required by the bytecode
// file format for debugging; there is no binary serialization here.
func Disassemble(prog *Program) string {
	var sb strings.Builder
	for i, chunk := range prog.Chunks {
		fmt.Fprintf(&sb, "== %s (chunk %d) ==\n", chunk.Name, i)
		if chunk.Native {
			fmt.Fprintf(&sb, "  NATIVE %s\n", chunk.NativeOp)
			continue
		}
		disassembleChunk(&sb, chunk)
	}
	return sb.String()
}

func disassembleChunk(sb *strings.Builder, chunk *Chunk) {
	offset := 0
	for offset < len(chunk.Code) {
		offset = disassembleInstruction(sb, chunk, offset)
	}
}

func disassembleInstruction(sb *strings.Builder, chunk *Chunk, offset int) int {
	op := Op(chunk.Code[offset])
	size, ok := OpSize(op)
	if !ok {
		fmt.Fprintf(sb, "%04d unknown opcode %d\n", offset, op)
		return offset + 1
	}

	switch op {
	case NOP:
		fmt.Fprintf(sb, "%04d %s\n", offset, op)
	case LBL_UI32:
		fmt.Fprintf(sb, "%04d %-16s %d\n", offset, op, binary.LittleEndian.Uint32(chunk.Code[offset+1:]))
	case MV_REG_REG:
		fmt.Fprintf(sb, "%04d %-16s r%d, r%d\n", offset, op, chunk.Code[offset+1], chunk.Code[offset+2])
	case MV_REG_UI8:
		fmt.Fprintf(sb, "%04d %-16s r%d, %d\n", offset, op, chunk.Code[offset+1], chunk.Code[offset+2])
	case MV_REG_UI16:
		fmt.Fprintf(sb, "%04d %-16s r%d, %d\n", offset, op, chunk.Code[offset+1], binary.LittleEndian.Uint16(chunk.Code[offset+2:]))
	case MV_REG_UI32:
		fmt.Fprintf(sb, "%04d %-16s r%d, %d\n", offset, op, chunk.Code[offset+1], binary.LittleEndian.Uint32(chunk.Code[offset+2:]))
	case MV_REG_UI64:
		fmt.Fprintf(sb, "%04d %-16s r%d, %d\n", offset, op, chunk.Code[offset+1], binary.LittleEndian.Uint64(chunk.Code[offset+2:]))
	case ADD_REG_REG_REG, SUB_REG_REG_REG, MUL_REG_REG_REG, DIV_REG_REG_REG, MOD_REG_REG_REG,
		EQ_REG_REG_REG, GT_REG_REG_REG, GTE_REG_REG_REG, LT_REG_REG_REG, LTE_REG_REG_REG:
		fmt.Fprintf(sb, "%04d %-16s r%d, r%d, r%d\n", offset, op, chunk.Code[offset+1], chunk.Code[offset+2], chunk.Code[offset+3])
	case JMPR_I32:
		fmt.Fprintf(sb, "%04d %-16s %d\n", offset, op, int32(binary.LittleEndian.Uint32(chunk.Code[offset+1:])))
	case JRZ_REG_I32, JRNZ_REG_I32:
		fmt.Fprintf(sb, "%04d %-16s r%d, %d\n", offset, op, chunk.Code[offset+1], int32(binary.LittleEndian.Uint32(chunk.Code[offset+2:])))
	case CALL_UI64:
		operand := binary.LittleEndian.Uint64(chunk.Code[offset+2:])
		fmt.Fprintf(sb, "%04d %-16s r%d, %#x\n", offset, op, chunk.Code[offset+1], operand)
	case RET_UI8:
		fmt.Fprintf(sb, "%04d %-16s r%d\n", offset, op, chunk.Code[offset+1])
	case PRINT, PRINTLN:
		fmt.Fprintf(sb, "%04d %-16s r%d\n", offset, op, chunk.Code[offset+1])
	default:
		fmt.Fprintf(sb, "%04d %s\n", offset, op)
	}
	return offset + size
}
