// Package core implements the per-core lock-step execution pipeline. All
// active lanes of a core share one program counter and execute the same
// instruction each cycle; there is no divergence in the exercised opcode
// set.
package core

import (
	"github.com/sarchlab/akita/v4/mem/mem"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/simdgpu/gpu"
	"github.com/sarchlab/simdgpu/isa"
)

type fsmState int

const (
	coreIdle fsmState = iota
	coreFetch
	coreDecode
	coreExec
)

// laneState is the private state of one SIMD lane.
type laneState struct {
	active bool
	regs   regFile

	issued bool
	done   bool
	reqID  string
}

type coreState struct {
	fsm fsmState

	blockID uint32
	pc      uint32

	fetchIssued bool
	fetchValid  bool
	fetchReqID  string
	fetchedWord uint16

	inst isa.Inst

	lanes []laneState

	retirePending    bool
	dispatcherRemote sim.RemotePort
}

// Comp runs one thread block at a time through the
// Idle/Fetching/Decoding/Executing state machine.
type Comp struct {
	*sim.TickingComponent

	ctrlPort  sim.Port
	instPort  sim.Port
	lanePorts []sim.Port

	instRemote  sim.RemotePort
	laneRemotes []sim.RemotePort

	state coreState
}

// CtrlPort returns the port the dispatcher assigns blocks through.
func (c *Comp) CtrlPort() sim.Port {
	return c.ctrlPort
}

// InstPort returns the port fetches are issued through.
func (c *Comp) InstPort() sim.Port {
	return c.instPort
}

// LanePort returns the data-side port of lane l.
func (c *Comp) LanePort(l int) sim.Port {
	return c.lanePorts[l]
}

// SetInstRemote tells the core where its instruction-side arbiter slot is.
func (c *Comp) SetInstRemote(remote sim.RemotePort) {
	c.instRemote = remote
}

// SetLaneRemote tells the core where lane l's data-side arbiter slot is.
func (c *Comp) SetLaneRemote(l int, remote sim.RemotePort) {
	c.laneRemotes[l] = remote
}

// Idle reports whether the core has no block assigned.
func (c *Comp) Idle() bool {
	return c.state.fsm == coreIdle && !c.state.retirePending
}

// Reset returns the core to the idle state with no lane or pipeline residue.
func (c *Comp) Reset() {
	c.state = coreState{
		lanes: make([]laneState, len(c.lanePorts)),
	}
	for c.ctrlPort.RetrieveIncoming() != nil {
	}
	for c.instPort.RetrieveIncoming() != nil {
	}
	for _, port := range c.lanePorts {
		for port.RetrieveIncoming() != nil {
		}
	}
}

// Tick runs the core for one cycle.
func (c *Comp) Tick() bool {
	madeProgress := c.doCtrl()
	madeProgress = c.doMem() || madeProgress
	madeProgress = c.runPipeline() || madeProgress

	return madeProgress
}

// doCtrl reports a finished block and accepts the next assignment.
func (c *Comp) doCtrl() bool {
	madeProgress := false

	if c.state.retirePending {
		msg := gpu.BlockRetireMsgBuilder{}.
			WithSrc(c.ctrlPort.AsRemote()).
			WithDst(c.state.dispatcherRemote).
			WithBlockID(c.state.blockID).
			Build()

		if err := c.ctrlPort.Send(msg); err == nil {
			gpu.Trace("Core",
				"Behavior", "Retire",
				"Comp", c.Name(),
				"Block", c.state.blockID,
			)
			c.state.retirePending = false
			madeProgress = true
		}
	}

	item := c.ctrlPort.PeekIncoming()
	if item == nil {
		return madeProgress
	}

	assign, ok := item.(*gpu.BlockAssignMsg)
	if !ok {
		panic("core control port received an unexpected message")
	}
	if c.state.fsm != coreIdle || c.state.retirePending {
		// The dispatcher never double-assigns; leave the message waiting
		// until the retire handshake completes.
		return madeProgress
	}

	c.ctrlPort.RetrieveIncoming()
	c.startBlock(assign)

	return true
}

func (c *Comp) startBlock(assign *gpu.BlockAssignMsg) {
	c.state.blockID = assign.BlockID
	c.state.pc = 0
	c.state.fetchIssued = false
	c.state.fetchValid = false
	c.state.dispatcherRemote = assign.Src

	for l := range c.state.lanes {
		lane := &c.state.lanes[l]
		lane.active = uint32(l) < assign.ThreadCount
		lane.issued = false
		lane.done = false
		lane.regs.seed(assign.BlockID, assign.BlockDim, uint32(l))
	}

	c.state.fsm = coreFetch

	gpu.Trace("Core",
		"Behavior", "Assign",
		"Comp", c.Name(),
		"Block", assign.BlockID,
		"Threads", assign.ThreadCount,
	)
}

// doMem collects instruction and data memory responses.
func (c *Comp) doMem() bool {
	madeProgress := c.recvFetch()

	for l := range c.state.lanes {
		madeProgress = c.recvLane(l) || madeProgress
	}

	return madeProgress
}

func (c *Comp) recvFetch() bool {
	item := c.instPort.PeekIncoming()
	if item == nil {
		return false
	}

	rsp, ok := item.(*mem.DataReadyRsp)
	if !ok {
		panic("core fetch port received a non-read response")
	}
	if rsp.RespondTo != c.state.fetchReqID {
		panic("core fetch port received a stale response")
	}

	c.state.fetchedWord = uint16(gpu.BytesToWord(rsp.Data))
	c.state.fetchValid = true
	c.instPort.RetrieveIncoming()

	return true
}

func (c *Comp) recvLane(l int) bool {
	item := c.lanePorts[l].PeekIncoming()
	if item == nil {
		return false
	}

	lane := &c.state.lanes[l]

	switch rsp := item.(type) {
	case *mem.DataReadyRsp:
		if rsp.RespondTo != lane.reqID {
			panic("lane received a stale read response")
		}
		lane.regs.Write(c.state.inst.Rd, gpu.BytesToWord(rsp.Data))
		lane.done = true
	case *mem.WriteDoneRsp:
		if rsp.RespondTo != lane.reqID {
			panic("lane received a stale write response")
		}
		lane.done = true
	default:
		panic("lane port received an unexpected message")
	}

	c.lanePorts[l].RetrieveIncoming()

	return true
}

// runPipeline advances the Fetching/Decoding/Executing state machine by one
// cycle.
func (c *Comp) runPipeline() bool {
	switch c.state.fsm {
	case coreIdle:
		return false
	case coreFetch:
		return c.cycleFetch()
	case coreDecode:
		return c.cycleDecode()
	case coreExec:
		return c.cycleExec()
	default:
		panic("invalid core state")
	}
}

func (c *Comp) cycleFetch() bool {
	if c.state.fetchValid {
		c.state.fsm = coreDecode
		return true
	}

	if c.state.fetchIssued {
		return false
	}

	req := mem.ReadReqBuilder{}.
		WithSrc(c.instPort.AsRemote()).
		WithDst(c.instRemote).
		WithAddress(uint64(c.state.pc)).
		WithByteSize(4).
		Build()

	if err := c.instPort.Send(req); err != nil {
		return false
	}

	c.state.fetchIssued = true
	c.state.fetchReqID = req.ID

	return true
}

func (c *Comp) cycleDecode() bool {
	c.state.inst = isa.Decode(c.state.fetchedWord)
	c.state.fetchValid = false
	c.state.fetchIssued = false

	for l := range c.state.lanes {
		c.state.lanes[l].issued = false
		c.state.lanes[l].done = false
	}

	c.state.fsm = coreExec

	gpu.Trace("Core",
		"Behavior", "Decode",
		"Comp", c.Name(),
		"PC", c.state.pc,
		"Inst", isa.Disassemble(c.state.fetchedWord),
	)

	return true
}

func (c *Comp) cycleExec() bool {
	switch c.state.inst.Op {
	case isa.OpADD, isa.OpMUL, isa.OpCONST:
		for l := range c.state.lanes {
			lane := &c.state.lanes[l]
			if !lane.active {
				continue
			}
			lane.regs.Write(c.state.inst.Rd, execALU(c.state.inst, &lane.regs))
		}
		c.advancePC()
		return true
	case isa.OpLDR:
		return c.execMemory(false)
	case isa.OpSTR:
		return c.execMemory(true)
	case isa.OpRET:
		return c.execRet()
	default:
		// NOP and reserved opcodes only advance the PC.
		c.advancePC()
		return true
	}
}

// execMemory issues one data-memory access per active lane and stalls the
// whole block until every lane's access completes.
func (c *Comp) execMemory(isWrite bool) bool {
	madeProgress := false

	for l := range c.state.lanes {
		lane := &c.state.lanes[l]
		if !lane.active || lane.issued {
			continue
		}

		addr := uint64(lane.regs.Read(c.state.inst.Rs))

		var req sim.Msg
		if isWrite {
			req = mem.WriteReqBuilder{}.
				WithSrc(c.lanePorts[l].AsRemote()).
				WithDst(c.laneRemotes[l]).
				WithAddress(addr).
				WithData(gpu.WordToBytes(lane.regs.Read(c.state.inst.Rt))).
				Build()
		} else {
			req = mem.ReadReqBuilder{}.
				WithSrc(c.lanePorts[l].AsRemote()).
				WithDst(c.laneRemotes[l]).
				WithAddress(addr).
				WithByteSize(4).
				Build()
		}

		if err := c.lanePorts[l].Send(req); err != nil {
			continue
		}

		lane.issued = true
		lane.reqID = req.Meta().ID
		madeProgress = true
	}

	if c.allLanesDone() {
		c.advancePC()
		return true
	}

	return madeProgress
}

func (c *Comp) allLanesDone() bool {
	for l := range c.state.lanes {
		lane := &c.state.lanes[l]
		if lane.active && !lane.done {
			return false
		}
	}
	return true
}

func (c *Comp) execRet() bool {
	for l := range c.state.lanes {
		c.state.lanes[l].active = false
	}

	c.state.fsm = coreIdle
	c.state.retirePending = true

	gpu.Trace("Core",
		"Behavior", "Ret",
		"Comp", c.Name(),
		"Block", c.state.blockID,
	)

	return true
}

func (c *Comp) advancePC() {
	// The PC is plain software-visible state. No exercised opcode writes
	// it, so the pipeline only ever increments.
	c.state.pc++
	c.state.fsm = coreFetch
}
