package bytecode

import "encoding/binary"

// Chunk is one function's bytecode plus its symbol table. A native chunk
// carries no bytecode at all: NativeOp names the VM-provided op directly.
type Chunk struct {
	Name string

	Code []byte

	// Symbols maps a call site's locally-scoped symbol id to the
	// fully-qualified callee name, resolved to a chunk index only at
	// link time.
	Symbols map[uint64]string

	Native   bool
	NativeOp Op
}

// Program is the generator's output: an ordered list of chunks, main
// (the lowered program's entry function) always first.
type Program struct {
	Chunks []*Chunk
}

func newChunk(name string) *Chunk {
	return &Chunk{Name: name, Code: make([]byte, 0, 64), Symbols: make(map[uint64]string)}
}

func nativeChunk(name string, op Op) *Chunk {
	return &Chunk{Name: name, Native: true, NativeOp: op}
}

func (c *Chunk) writeOp(op Op) int {
	pos := len(c.Code)
	c.Code = append(c.Code, byte(op))
	return pos
}

func (c *Chunk) writeU8(v uint8)   { c.Code = append(c.Code, v) }
func (c *Chunk) writeI8(v int8)    { c.Code = append(c.Code, byte(v)) }

func (c *Chunk) writeU16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	c.Code = append(c.Code, b[:]...)
}

func (c *Chunk) writeU32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	c.Code = append(c.Code, b[:]...)
}

func (c *Chunk) writeI32(v int32) { c.writeU32(uint32(v)) }

func (c *Chunk) writeU64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	c.Code = append(c.Code, b[:]...)
}

// PatchI32 overwrites the 4 little-endian bytes at offset, used by the
// linker to resolve a label operand to its final relative distance.
func (c *Chunk) PatchI32(offset int, v int32) {
	binary.LittleEndian.PutUint32(c.Code[offset:offset+4], uint32(v))
}

// PatchU64 overwrites the 8 little-endian bytes at offset, used by the
// linker to resolve a CALL_UI64 operand to its packed far-label address.
func (c *Chunk) PatchU64(offset int, v uint64) {
	binary.LittleEndian.PutUint64(c.Code[offset:offset+8], v)
}

// FarLabel packs a (chunk_index, ip) pair into CALL_UI64's 64-bit operand:
// the upper 32 bits hold the chunk index, the lower 32 hold the ip.
func FarLabel(chunkIndex, ip uint32) uint64 {
	return uint64(chunkIndex)<<32 | uint64(ip)
}

// DecodeU32 and DecodeU64 read a little-endian operand out of an
// instruction stream, for the linker's operand rewriting pass.
func DecodeU32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }
func DecodeU64(b []byte) uint64 { return binary.LittleEndian.Uint64(b) }
