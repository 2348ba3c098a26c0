// Package dispatcher owns the kernel-level state of the device: the
// thread-count control register, the launch state machine, and the greedy
// in-order assignment of thread blocks to idle cores.
package dispatcher

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/simdgpu/gpu"
)

const noBlock = -1

// Comp partitions a launch into ceil(T/B) blocks and hands them to cores in
// strictly increasing block order. A core never holds more than one block;
// any core that retires picks up the next pending block on its next
// scheduling opportunity.
type Comp struct {
	*sim.TickingComponent

	ctrlPort    sim.Port
	corePorts   []sim.Port
	coreRemotes []sim.RemotePort

	threadsPerBlock uint32

	threadCount uint32 // the control register
	active      bool
	blockCount  uint32
	nextBlock   uint32
	retired     uint32
	coreBlocks  []int

	donePending bool
	hostRemote  sim.RemotePort
}

// CtrlPort returns the host-facing control port.
func (d *Comp) CtrlPort() sim.Port {
	return d.ctrlPort
}

// CorePort returns the port facing core i.
func (d *Comp) CorePort(i int) sim.Port {
	return d.corePorts[i]
}

// SetCoreRemote tells the dispatcher where core i's control port is.
func (d *Comp) SetCoreRemote(i int, remote sim.RemotePort) {
	d.coreRemotes[i] = remote
}

// Active reports whether a launch is in flight.
func (d *Comp) Active() bool {
	return d.active
}

// Reset returns the dispatcher to the unconfigured idle state and forgets
// all block/core bookkeeping.
func (d *Comp) Reset() {
	d.threadCount = 0
	d.active = false
	d.blockCount = 0
	d.nextBlock = 0
	d.retired = 0
	d.donePending = false
	for i := range d.coreBlocks {
		d.coreBlocks[i] = noBlock
	}
	for d.ctrlPort.RetrieveIncoming() != nil {
	}
	for _, port := range d.corePorts {
		for port.RetrieveIncoming() != nil {
		}
	}
}

// Tick runs the dispatcher for one cycle.
func (d *Comp) Tick() bool {
	madeProgress := d.doCtrl()
	madeProgress = d.doRetire() || madeProgress
	madeProgress = d.assignBlocks() || madeProgress
	madeProgress = d.sendDone() || madeProgress

	return madeProgress
}

// doCtrl latches control-register writes and start pulses from the host.
// Writes while a launch is active are rejected without touching the active
// launch, as are zero thread counts.
func (d *Comp) doCtrl() bool {
	item := d.ctrlPort.PeekIncoming()
	if item == nil {
		return false
	}

	switch msg := item.(type) {
	case *gpu.RegWriteMsg:
		if d.active {
			gpu.Trace("Dispatcher", "Behavior", "RegWriteRejected",
				"Reason", "launch active", "Value", msg.Value)
		} else if msg.Value == 0 {
			gpu.Trace("Dispatcher", "Behavior", "RegWriteRejected",
				"Reason", "zero thread count")
		} else {
			d.threadCount = uint32(msg.Value)
			gpu.Trace("Dispatcher", "Behavior", "RegWrite", "Value", msg.Value)
		}
	case *gpu.StartMsg:
		d.start(msg)
	default:
		panic("dispatcher control port received an unexpected message")
	}

	d.ctrlPort.RetrieveIncoming()

	return true
}

func (d *Comp) start(msg *gpu.StartMsg) {
	if d.active {
		gpu.Trace("Dispatcher", "Behavior", "StartRejected",
			"Reason", "launch active")
		return
	}
	if d.threadCount == 0 {
		gpu.Trace("Dispatcher", "Behavior", "StartRejected",
			"Reason", "not configured")
		return
	}

	d.active = true
	d.blockCount = blockCount(d.threadCount, d.threadsPerBlock)
	d.nextBlock = 0
	d.retired = 0
	d.hostRemote = msg.Src

	gpu.Trace("Dispatcher", "Behavior", "Start",
		"Threads", d.threadCount, "Blocks", d.blockCount)
}

// doRetire frees cores whose blocks have completed.
func (d *Comp) doRetire() bool {
	madeProgress := false

	for i, port := range d.corePorts {
		item := port.PeekIncoming()
		if item == nil {
			continue
		}

		retire, ok := item.(*gpu.BlockRetireMsg)
		if !ok {
			panic("dispatcher core port received an unexpected message")
		}
		if d.coreBlocks[i] != int(retire.BlockID) {
			panic(fmt.Sprintf("core %d retired block %d it does not own",
				i, retire.BlockID))
		}

		d.coreBlocks[i] = noBlock
		d.retired++
		port.RetrieveIncoming()
		madeProgress = true

		gpu.Trace("Dispatcher", "Behavior", "Retire",
			"Core", i, "Block", retire.BlockID)
	}

	if d.active && d.retired == d.blockCount {
		// The launch completes exactly once, on the cycle the last block
		// retires.
		d.active = false
		d.donePending = true
		madeProgress = true
	}

	return madeProgress
}

// assignBlocks gives every idle core the lowest-numbered pending block.
func (d *Comp) assignBlocks() bool {
	if !d.active {
		return false
	}

	madeProgress := false

	for i, port := range d.corePorts {
		if d.nextBlock >= d.blockCount {
			break
		}
		if d.coreBlocks[i] != noBlock {
			continue
		}

		msg := gpu.BlockAssignMsgBuilder{}.
			WithSrc(port.AsRemote()).
			WithDst(d.coreRemotes[i]).
			WithBlockID(d.nextBlock).
			WithBlockDim(d.threadsPerBlock).
			WithThreadCount(blockThreads(d.nextBlock, d.threadCount, d.threadsPerBlock)).
			Build()

		if err := port.Send(msg); err != nil {
			continue
		}

		gpu.Trace("Dispatcher", "Behavior", "Assign",
			"Core", i, "Block", d.nextBlock)

		d.coreBlocks[i] = int(d.nextBlock)
		d.nextBlock++
		madeProgress = true
	}

	return madeProgress
}

func (d *Comp) sendDone() bool {
	if !d.donePending {
		return false
	}

	msg := gpu.DoneMsgBuilder{}.
		WithSrc(d.ctrlPort.AsRemote()).
		WithDst(d.hostRemote).
		Build()

	if err := d.ctrlPort.Send(msg); err != nil {
		return false
	}

	gpu.Trace("Dispatcher", "Behavior", "Done")
	d.donePending = false

	return true
}

// blockCount is ceil(threads / threadsPerBlock).
func blockCount(threads, threadsPerBlock uint32) uint32 {
	return (threads + threadsPerBlock - 1) / threadsPerBlock
}

// blockThreads clips the last block of a launch to the remainder.
func blockThreads(blockID, threads, threadsPerBlock uint32) uint32 {
	remaining := threads - blockID*threadsPerBlock
	if remaining < threadsPerBlock {
		return remaining
	}
	return threadsPerBlock
}

// Builder creates dispatchers.
type Builder struct {
	engine          sim.Engine
	freq            sim.Freq
	numCores        int
	threadsPerBlock int
}

// MakeBuilder returns a Builder with the reference device shape.
func MakeBuilder() Builder {
	return Builder{
		numCores:        2,
		threadsPerBlock: 4,
	}
}

// WithEngine sets the engine.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the dispatcher.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithNumCores sets the number of cores to schedule over.
func (b Builder) WithNumCores(n int) Builder {
	if n < 1 {
		panic("dispatcher needs at least one core")
	}
	b.numCores = n
	return b
}

// WithThreadsPerBlock sets the block size of the device.
func (b Builder) WithThreadsPerBlock(n int) Builder {
	if n < 1 {
		panic("block size must be at least one thread")
	}
	b.threadsPerBlock = n
	return b
}

// Build creates a dispatcher component.
func (b Builder) Build(name string) *Comp {
	d := &Comp{
		threadsPerBlock: uint32(b.threadsPerBlock),
		coreRemotes:     make([]sim.RemotePort, b.numCores),
		coreBlocks:      make([]int, b.numCores),
	}
	d.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, d)

	d.ctrlPort = sim.NewPort(d, 1, 4, name+".Ctrl")
	d.AddPort("Ctrl", d.ctrlPort)

	d.corePorts = make([]sim.Port, b.numCores)
	for i := range d.corePorts {
		portName := fmt.Sprintf("Core%d", i)
		port := sim.NewPort(d, 1, 4, name+"."+portName)
		d.corePorts[i] = port
		d.AddPort(portName, port)
	}

	for i := range d.coreBlocks {
		d.coreBlocks[i] = noBlock
	}

	return d
}
