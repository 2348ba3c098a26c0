// Package api defines the host driver for the GPU device.
package api

import (
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/akita/v4/sim/directconnection"

	"github.com/sarchlab/simdgpu/gpu"
	"github.com/sarchlab/simdgpu/isa"
)

// Driver provides the interface to control the accelerator.
type Driver interface {
	// RegisterDevice registers a device to the driver. The driver will
	// establish a connection to the device control port.
	RegisterDevice(device gpu.Device)

	// LoadKernel uploads the kernel program into program memory and
	// preloads its data segments into data memory.
	LoadKernel(kernel *isa.Kernel)

	// Configure writes the thread-count control register for the next
	// launch.
	Configure(threads uint8)

	// Start pulses the start signal, beginning a launch with the
	// configured thread count.
	Start()

	// Run advances the simulation until the device falls quiet. After a
	// correct launch, Done reports true.
	Run()

	// Done reports whether the last launch has completed. It stays high
	// until the next Start or Reset.
	Done() bool

	// ReadResult reads back n words of data memory starting at addr.
	ReadResult(addr, n uint32) []uint32

	// Reset returns the device and the driver to their initial state,
	// aborting any in-flight launch.
	Reset()
}

type driverImpl struct {
	*sim.TickingComponent

	ctrlPort     sim.Port
	device       gpu.Device
	deviceRemote sim.RemotePort

	done bool
}

// Tick watches for the completion notification from the device.
func (d *driverImpl) Tick() bool {
	item := d.ctrlPort.PeekIncoming()
	if item == nil {
		return false
	}

	if _, ok := item.(*gpu.DoneMsg); !ok {
		panic("driver received an unexpected message")
	}

	d.done = true
	d.ctrlPort.RetrieveIncoming()

	return true
}

func (d *driverImpl) RegisterDevice(device gpu.Device) {
	d.device = device
	d.deviceRemote = device.CtrlPort().AsRemote()

	conn := directconnection.MakeBuilder().
		WithEngine(d.Engine).
		WithFreq(d.Freq).
		Build(d.Name() + ".ToDevice")
	conn.PlugIn(d.ctrlPort)
	conn.PlugIn(device.CtrlPort())
}

func (d *driverImpl) LoadKernel(kernel *isa.Kernel) {
	d.device.LoadProgram(kernel.Program)
	for _, seg := range kernel.Data {
		d.device.WriteData(seg.Base, seg.Values)
	}
}

func (d *driverImpl) Configure(threads uint8) {
	msg := gpu.RegWriteMsgBuilder{}.
		WithSrc(d.ctrlPort.AsRemote()).
		WithDst(d.deviceRemote).
		WithValue(threads).
		Build()

	if err := d.ctrlPort.Send(msg); err != nil {
		panic("driver cannot keep up with the control sequence")
	}
}

func (d *driverImpl) Start() {
	d.done = false

	msg := gpu.StartMsgBuilder{}.
		WithSrc(d.ctrlPort.AsRemote()).
		WithDst(d.deviceRemote).
		Build()

	if err := d.ctrlPort.Send(msg); err != nil {
		panic("driver cannot keep up with the control sequence")
	}
}

func (d *driverImpl) Run() {
	d.TickNow()

	if err := d.Engine.Run(); err != nil {
		panic(err)
	}
}

func (d *driverImpl) Done() bool {
	return d.done
}

func (d *driverImpl) ReadResult(addr, n uint32) []uint32 {
	return d.device.ReadData(addr, n)
}

func (d *driverImpl) Reset() {
	d.done = false
	for d.ctrlPort.RetrieveIncoming() != nil {
	}
	d.device.Reset()
}
