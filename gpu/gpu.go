// Package gpu defines the commonly used data structures for the SIMD GPU
// device model.
package gpu

import (
	"github.com/sarchlab/akita/v4/sim"
)

// A Device is a complete GPU device. It exposes the host-visible surface:
// a control port for register writes and launch pulses, and backdoor access
// to the program and data memories for preload and readback.
type Device interface {
	// CtrlPort returns the port that accepts RegWriteMsg and StartMsg and
	// emits DoneMsg.
	CtrlPort() sim.Port

	// LoadProgram writes the kernel's instruction words into program memory,
	// starting at address 0.
	LoadProgram(words []uint16)

	// WriteData writes words into data memory starting at addr.
	WriteData(addr uint32, values []uint32)

	// ReadData reads n words from data memory starting at addr.
	ReadData(addr, n uint32) []uint32

	NumCores() int
	ThreadsPerBlock() int

	// Reset synchronously returns every component of the device to its
	// initial state, aborting any in-flight launch.
	Reset()
}

// WordToBytes converts one data word to the byte layout used on the memory
// protocol messages.
func WordToBytes(data uint32) []byte {
	return []byte{byte(data >> 24), byte(data >> 16), byte(data >> 8), byte(data)}
}

// BytesToWord reassembles a data word from a memory response payload.
func BytesToWord(data []byte) uint32 {
	return uint32(data[0])<<24 | uint32(data[1])<<16 |
		uint32(data[2])<<8 | uint32(data[3])
}
