package config

import (
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/simdgpu/arbiter"
	"github.com/sarchlab/simdgpu/core"
	"github.com/sarchlab/simdgpu/dispatcher"
	"github.com/sarchlab/simdgpu/memctrl"
)

// A Device is one complete GPU: a dispatcher, its cores, the two
// channel-limited arbiters, and the program/data memories.
type Device struct {
	dispatcher *dispatcher.Comp
	cores      []*core.Comp
	instArb    *arbiter.Comp
	dataArb    *arbiter.Comp
	progMem    *memctrl.Comp
	dataMem    *memctrl.Comp

	threadsPerBlock int
}

// CtrlPort returns the host-facing control port of the device.
func (d *Device) CtrlPort() sim.Port {
	return d.dispatcher.CtrlPort()
}

// LoadProgram writes the kernel's instruction words into program memory
// starting at address 0.
func (d *Device) LoadProgram(words []uint16) {
	values := make([]uint32, len(words))
	for i, w := range words {
		values[i] = uint32(w)
	}
	d.progMem.Write(0, values)
}

// WriteData preloads data memory.
func (d *Device) WriteData(addr uint32, values []uint32) {
	d.dataMem.Write(addr, values)
}

// ReadData reads back data memory.
func (d *Device) ReadData(addr, n uint32) []uint32 {
	return d.dataMem.Read(addr, n)
}

// NumCores returns the number of execution cores.
func (d *Device) NumCores() int {
	return len(d.cores)
}

// ThreadsPerBlock returns the SIMD width of each core.
func (d *Device) ThreadsPerBlock() int {
	return d.threadsPerBlock
}

// Reset synchronously returns every component to its initial state,
// aborting any in-flight launch.
func (d *Device) Reset() {
	d.dispatcher.Reset()
	for _, c := range d.cores {
		c.Reset()
	}
	d.instArb.Reset()
	d.dataArb.Reset()
	d.progMem.Reset()
	d.dataMem.Reset()
}
