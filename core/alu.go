package core

import "github.com/sarchlab/simdgpu/isa"

// execALU computes the destination value of one ALU-family instruction for
// one lane. It is purely combinational: arithmetic wraps modulo the register
// width and no operation can fail or suspend.
func execALU(inst isa.Inst, regs *regFile) uint32 {
	switch inst.Op {
	case isa.OpADD:
		return regs.Read(inst.Rs) + regs.Read(inst.Rt)
	case isa.OpMUL:
		return regs.Read(inst.Rs) * regs.Read(inst.Rt)
	case isa.OpCONST:
		return uint32(inst.Imm)
	default:
		// Reserved opcodes are don't-care.
		return 0
	}
}
