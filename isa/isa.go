// Package isa defines the instruction set of the SIMD GPU device: a 16-bit
// fixed-width word with an opcode field and up to three register-index
// fields, where the CONST family reinterprets the low two fields as an
// 8-bit immediate.
package isa

// An Opcode occupies bits [15:12] of an instruction word. Values not listed
// here are reserved; the decoder treats them as NOP so a malformed word can
// never crash the pipeline.
type Opcode uint8

const (
	OpNOP   Opcode = 0x0
	OpADD   Opcode = 0x3
	OpMUL   Opcode = 0x5
	OpLDR   Opcode = 0x7
	OpSTR   Opcode = 0x8
	OpCONST Opcode = 0x9
	OpRET   Opcode = 0xF
)

// Name returns the mnemonic of the opcode.
func (op Opcode) Name() string {
	switch op {
	case OpNOP:
		return "NOP"
	case OpADD:
		return "ADD"
	case OpMUL:
		return "MUL"
	case OpLDR:
		return "LDR"
	case OpSTR:
		return "STR"
	case OpCONST:
		return "CONST"
	case OpRET:
		return "RET"
	default:
		return "NOP"
	}
}

// Register file layout. Slots 0-12 are general purpose. Slots 13-15 are
// hard-wired read-only to the lane identity supplied at block assignment.
const (
	NumRegisters = 16
	RegBlockIdx  = 13
	RegBlockDim  = 14
	RegThreadIdx = 15
)

// An Inst is one decoded instruction word.
type Inst struct {
	Op  Opcode
	Rd  uint8
	Rs  uint8
	Rt  uint8
	Imm uint8
}

// Decode splits an instruction word into its fields. Reserved opcodes decode
// as NOP.
func Decode(word uint16) Inst {
	op := Opcode(word >> 12)
	switch op {
	case OpADD, OpMUL, OpLDR, OpSTR, OpCONST, OpRET:
	default:
		op = OpNOP
	}

	return Inst{
		Op:  op,
		Rd:  uint8(word >> 8 & 0xF),
		Rs:  uint8(word >> 4 & 0xF),
		Rt:  uint8(word & 0xF),
		Imm: uint8(word & 0xFF),
	}
}

// Encode packs an instruction back into its word form.
func (i Inst) Encode() uint16 {
	word := uint16(i.Op) << 12
	word |= uint16(i.Rd&0xF) << 8

	if i.Op == OpCONST {
		word |= uint16(i.Imm)
		return word
	}

	word |= uint16(i.Rs&0xF) << 4
	word |= uint16(i.Rt & 0xF)

	return word
}

// Nop builds a NOP instruction word.
func Nop() uint16 {
	return Inst{Op: OpNOP}.Encode()
}

// Add builds rd = rs + rt.
func Add(rd, rs, rt uint8) uint16 {
	return Inst{Op: OpADD, Rd: rd, Rs: rs, Rt: rt}.Encode()
}

// Mul builds rd = rs * rt.
func Mul(rd, rs, rt uint8) uint16 {
	return Inst{Op: OpMUL, Rd: rd, Rs: rs, Rt: rt}.Encode()
}

// Ldr builds rd = mem[rs].
func Ldr(rd, rs uint8) uint16 {
	return Inst{Op: OpLDR, Rd: rd, Rs: rs}.Encode()
}

// Str builds mem[rs] = rt.
func Str(rs, rt uint8) uint16 {
	return Inst{Op: OpSTR, Rs: rs, Rt: rt}.Encode()
}

// Const builds rd = imm.
func Const(rd, imm uint8) uint16 {
	return Inst{Op: OpCONST, Rd: rd, Imm: imm}.Encode()
}

// Ret builds the block-retire instruction.
func Ret() uint16 {
	return Inst{Op: OpRET}.Encode()
}
