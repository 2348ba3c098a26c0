package core

import "github.com/sarchlab/simdgpu/isa"

// regFile is the per-lane register storage. Slots 0-12 are general purpose.
// Slots 13-15 read the lane identity fixed at block assignment; writes to
// them are no-ops.
type regFile struct {
	regs [isa.NumRegisters]uint32
}

func (r *regFile) Read(i uint8) uint32 {
	return r.regs[i]
}

func (r *regFile) Write(i uint8, value uint32) {
	if i >= isa.RegBlockIdx {
		return
	}
	r.regs[i] = value
}

func (r *regFile) seed(blockIdx, blockDim, threadIdx uint32) {
	r.regs = [isa.NumRegisters]uint32{}
	r.regs[isa.RegBlockIdx] = blockIdx
	r.regs[isa.RegBlockDim] = blockDim
	r.regs[isa.RegThreadIdx] = threadIdx
}
