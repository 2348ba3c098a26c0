package core

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/akita/v4/mem/mem"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/akita/v4/sim/directconnection"

	"github.com/sarchlab/simdgpu/gpu"
	"github.com/sarchlab/simdgpu/isa"
)

var _ = Describe("Core", func() {
	var (
		engine sim.Engine
		c      *Comp
	)

	BeforeEach(func() {
		engine = sim.NewSerialEngine()
		c = MakeBuilder().
			WithEngine(engine).
			WithFreq(1 * sim.GHz).
			WithThreadsPerBlock(4).
			Build("Core")

		conn := directconnection.MakeBuilder().
			WithEngine(engine).
			WithFreq(1 * sim.GHz).
			Build("Conn")
		conn.PlugIn(c.CtrlPort())
		conn.PlugIn(c.InstPort())
	})

	connectLanePort := func(l int) {
		conn := directconnection.MakeBuilder().
			WithEngine(engine).
			WithFreq(1 * sim.GHz).
			Build("LaneConn")
		conn.PlugIn(c.LanePort(l))
	}

	assign := func(threadCount uint32) {
		msg := gpu.BlockAssignMsgBuilder{}.
			WithSrc("Dispatcher.Core0").
			WithDst(c.CtrlPort().AsRemote()).
			WithBlockID(1).
			WithBlockDim(4).
			WithThreadCount(threadCount).
			Build()

		c.startBlock(msg)
	}

	It("should start a block when one is assigned", func() {
		msg := gpu.BlockAssignMsgBuilder{}.
			WithSrc("Dispatcher.Core0").
			WithDst(c.CtrlPort().AsRemote()).
			WithBlockID(1).
			WithBlockDim(4).
			WithThreadCount(3).
			Build()
		c.CtrlPort().Deliver(msg)

		madeProgress := c.doCtrl()

		Expect(madeProgress).To(BeTrue())
		Expect(c.Idle()).To(BeFalse())
		Expect(c.state.fsm).To(Equal(coreFetch))
		Expect(c.state.pc).To(Equal(uint32(0)))
		Expect(c.state.lanes[0].active).To(BeTrue())
		Expect(c.state.lanes[2].active).To(BeTrue())
		Expect(c.state.lanes[3].active).To(BeFalse())
		Expect(c.state.lanes[2].regs.Read(isa.RegBlockIdx)).
			To(Equal(uint32(1)))
		Expect(c.state.lanes[2].regs.Read(isa.RegBlockDim)).
			To(Equal(uint32(4)))
		Expect(c.state.lanes[2].regs.Read(isa.RegThreadIdx)).
			To(Equal(uint32(2)))
	})

	It("should accept a fetched instruction word", func() {
		assign(4)
		c.state.fetchIssued = true
		c.state.fetchReqID = "fetch-1"

		rsp := mem.DataReadyRspBuilder{}.
			WithSrc("ProgMem.Channel0").
			WithDst(c.InstPort().AsRemote()).
			WithRspTo("fetch-1").
			WithData(gpu.WordToBytes(uint32(isa.Ret()))).
			Build()
		c.InstPort().Deliver(rsp)

		madeProgress := c.doMem()

		Expect(madeProgress).To(BeTrue())
		Expect(c.state.fetchValid).To(BeTrue())
		Expect(c.state.fetchedWord).To(Equal(isa.Ret()))
	})

	It("should move from fetch to decode to execute", func() {
		assign(4)
		c.state.fetchValid = true
		c.state.fetchedWord = isa.Add(2, 15, 15)

		Expect(c.runPipeline()).To(BeTrue())
		Expect(c.state.fsm).To(Equal(coreDecode))

		Expect(c.runPipeline()).To(BeTrue())
		Expect(c.state.fsm).To(Equal(coreExec))
		Expect(c.state.inst.Op).To(Equal(isa.OpADD))
		Expect(c.state.fetchValid).To(BeFalse())
	})

	It("should execute an ALU instruction on every active lane", func() {
		assign(3)
		c.state.fsm = coreExec
		c.state.inst = isa.Decode(isa.Add(2, 15, 15))

		madeProgress := c.runPipeline()

		Expect(madeProgress).To(BeTrue())
		for l := 0; l < 3; l++ {
			Expect(c.state.lanes[l].regs.Read(2)).
				To(Equal(uint32(2 * l)))
		}
		Expect(c.state.lanes[3].regs.Read(2)).To(Equal(uint32(0)))
		Expect(c.state.pc).To(Equal(uint32(1)))
		Expect(c.state.fsm).To(Equal(coreFetch))
	})

	It("should issue no memory access from inactive lanes", func() {
		assign(0)
		c.state.fsm = coreExec
		c.state.inst = isa.Decode(isa.Ldr(4, 4))

		// The lane ports are not connected; an access from any lane would
		// panic here.
		madeProgress := c.runPipeline()

		Expect(madeProgress).To(BeTrue())
		Expect(c.state.pc).To(Equal(uint32(1)))
	})

	It("should collect a lane read response", func() {
		connectLanePort(0)
		assign(1)
		c.state.fsm = coreExec
		c.state.inst = isa.Decode(isa.Ldr(4, 4))
		c.state.lanes[0].issued = true
		c.state.lanes[0].reqID = "lane-1"

		rsp := mem.DataReadyRspBuilder{}.
			WithSrc("DataMem.Channel0").
			WithDst(c.LanePort(0).AsRemote()).
			WithRspTo("lane-1").
			WithData(gpu.WordToBytes(99)).
			Build()
		c.LanePort(0).Deliver(rsp)

		madeProgress := c.doMem()

		Expect(madeProgress).To(BeTrue())
		Expect(c.state.lanes[0].done).To(BeTrue())
		Expect(c.state.lanes[0].regs.Read(4)).To(Equal(uint32(99)))
	})

	It("should collect a lane write acknowledgment", func() {
		connectLanePort(0)
		assign(1)
		c.state.fsm = coreExec
		c.state.inst = isa.Decode(isa.Str(7, 6))
		c.state.lanes[0].issued = true
		c.state.lanes[0].reqID = "lane-2"

		rsp := mem.WriteDoneRspBuilder{}.
			WithSrc("DataMem.Channel0").
			WithDst(c.LanePort(0).AsRemote()).
			WithRspTo("lane-2").
			Build()
		c.LanePort(0).Deliver(rsp)

		madeProgress := c.doMem()

		Expect(madeProgress).To(BeTrue())
		Expect(c.state.lanes[0].done).To(BeTrue())
	})

	It("should advance once every active lane access completes", func() {
		assign(2)
		c.state.fsm = coreExec
		c.state.inst = isa.Decode(isa.Str(7, 6))
		for l := 0; l < 2; l++ {
			c.state.lanes[l].issued = true
			c.state.lanes[l].done = true
		}

		madeProgress := c.runPipeline()

		Expect(madeProgress).To(BeTrue())
		Expect(c.state.pc).To(Equal(uint32(1)))
		Expect(c.state.fsm).To(Equal(coreFetch))
	})

	It("should retire the block on RET", func() {
		assign(4)
		c.state.fsm = coreExec
		c.state.inst = isa.Decode(isa.Ret())

		madeProgress := c.runPipeline()

		Expect(madeProgress).To(BeTrue())
		Expect(c.state.fsm).To(Equal(coreIdle))
		Expect(c.state.retirePending).To(BeTrue())
		for l := range c.state.lanes {
			Expect(c.state.lanes[l].active).To(BeFalse())
		}
	})

	It("should treat a reserved opcode as a NOP", func() {
		assign(4)
		c.state.fsm = coreExec
		c.state.inst = isa.Decode(0x1FFF)
		c.state.lanes[0].regs.Write(2, 55)

		madeProgress := c.runPipeline()

		Expect(madeProgress).To(BeTrue())
		Expect(c.state.pc).To(Equal(uint32(1)))
		Expect(c.state.lanes[0].regs.Read(2)).To(Equal(uint32(55)))
	})

	It("should return to idle on reset", func() {
		assign(4)
		c.state.fsm = coreExec
		c.state.pc = 5

		c.Reset()

		Expect(c.Idle()).To(BeTrue())
		Expect(c.state.pc).To(Equal(uint32(0)))
		Expect(c.CtrlPort().PeekIncoming()).To(BeNil())
	})
})
