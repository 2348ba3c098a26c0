package memctrl

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/akita/v4/mem/mem"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/akita/v4/sim/directconnection"

	"github.com/sarchlab/simdgpu/gpu"
)

var _ = Describe("MemCtrl", func() {
	var (
		engine sim.Engine
		m      *Comp
	)

	build := func(latency int) {
		engine = sim.NewSerialEngine()
		m = MakeBuilder().
			WithEngine(engine).
			WithFreq(1 * sim.GHz).
			WithNumChannels(1).
			WithLatency(latency).
			WithCapacity(32).
			Build("Mem")

		conn := directconnection.MakeBuilder().
			WithEngine(engine).
			Build("Conn")
		conn.PlugIn(m.ChannelPort(0))
	}

	read := func(addr uint64) *mem.ReadReq {
		req := mem.ReadReqBuilder{}.
			WithSrc("Arbiter.Bottom0").
			WithDst(m.ChannelPort(0).AsRemote()).
			WithAddress(addr).
			WithByteSize(4).
			Build()
		m.ChannelPort(0).Deliver(req)
		return req
	}

	write := func(addr uint64, value uint32) *mem.WriteReq {
		req := mem.WriteReqBuilder{}.
			WithSrc("Arbiter.Bottom0").
			WithDst(m.ChannelPort(0).AsRemote()).
			WithAddress(addr).
			WithData(gpu.WordToBytes(value)).
			Build()
		m.ChannelPort(0).Deliver(req)
		return req
	}

	It("should preload and read back through the host backdoor", func() {
		build(1)

		m.Write(4, []uint32{10, 11, 12})

		Expect(m.Read(4, 3)).To(Equal([]uint32{10, 11, 12}))
		Expect(m.Read(0, 1)).To(Equal([]uint32{0}))
	})

	It("should answer a read one cycle after accepting it", func() {
		build(1)
		m.Write(3, []uint32{77})
		req := read(3)

		Expect(m.Tick()).To(BeTrue())
		Expect(m.ChannelPort(0).PeekOutgoing()).To(BeNil())

		Expect(m.Tick()).To(BeTrue())

		rsp := m.ChannelPort(0).RetrieveOutgoing().(*mem.DataReadyRsp)
		Expect(rsp.RespondTo).To(Equal(req.ID))
		Expect(gpu.BytesToWord(rsp.Data)).To(Equal(uint32(77)))
	})

	It("should hold a transaction for the configured latency", func() {
		build(3)
		read(0)

		Expect(m.Tick()).To(BeTrue())
		Expect(m.Tick()).To(BeTrue())
		Expect(m.Tick()).To(BeTrue())
		Expect(m.ChannelPort(0).PeekOutgoing()).To(BeNil())

		Expect(m.Tick()).To(BeTrue())
		Expect(m.ChannelPort(0).PeekOutgoing()).NotTo(BeNil())
	})

	It("should commit a write when it responds", func() {
		build(1)
		req := write(6, 99)

		Expect(m.Tick()).To(BeTrue())
		Expect(m.Read(6, 1)).To(Equal([]uint32{0}))

		Expect(m.Tick()).To(BeTrue())
		Expect(m.Read(6, 1)).To(Equal([]uint32{99}))

		rsp := m.ChannelPort(0).RetrieveOutgoing().(*mem.WriteDoneRsp)
		Expect(rsp.RespondTo).To(Equal(req.ID))
	})

	It("should serve one request per channel at a time", func() {
		build(1)
		read(0)

		Expect(m.Tick()).To(BeTrue())

		// The channel is occupied; the next request waits at the port.
		write(1, 5)
		Expect(m.Tick()).To(BeTrue())
		Expect(m.ChannelPort(0).PeekIncoming()).NotTo(BeNil())

		// The channel frees after responding and accepts the waiting write.
		Expect(m.Tick()).To(BeTrue())
		Expect(m.ChannelPort(0).PeekIncoming()).To(BeNil())
	})

	It("should drop in-flight transactions but keep contents on reset", func() {
		build(1)
		m.Write(0, []uint32{42})
		read(0)
		Expect(m.Tick()).To(BeTrue())

		m.Reset()

		Expect(m.Tick()).To(BeFalse())
		Expect(m.ChannelPort(0).PeekOutgoing()).To(BeNil())
		Expect(m.Read(0, 1)).To(Equal([]uint32{42}))
	})
})
