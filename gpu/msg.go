package gpu

import "github.com/sarchlab/akita/v4/sim"

// RegWriteMsg writes the thread-count control register of the device. The
// value is ignored while a launch is active.
type RegWriteMsg struct {
	sim.MsgMeta

	Value uint8
}

// Meta returns the meta data of the msg.
func (m *RegWriteMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone creates a copy of the msg with a new ID.
func (m *RegWriteMsg) Clone() sim.Msg {
	clone := *m
	clone.ID = sim.GetIDGenerator().Generate()
	return &clone
}

// RegWriteMsgBuilder is a factory for RegWriteMsg.
type RegWriteMsgBuilder struct {
	src, dst sim.RemotePort
	value    uint8
}

// WithSrc sets the source port of the msg.
func (b RegWriteMsgBuilder) WithSrc(src sim.RemotePort) RegWriteMsgBuilder {
	b.src = src
	return b
}

// WithDst sets the destination port of the msg.
func (b RegWriteMsgBuilder) WithDst(dst sim.RemotePort) RegWriteMsgBuilder {
	b.dst = dst
	return b
}

// WithValue sets the thread count to latch.
func (b RegWriteMsgBuilder) WithValue(value uint8) RegWriteMsgBuilder {
	b.value = value
	return b
}

// Build creates a RegWriteMsg.
func (b RegWriteMsgBuilder) Build() *RegWriteMsg {
	return &RegWriteMsg{
		MsgMeta: sim.MsgMeta{
			ID:  sim.GetIDGenerator().Generate(),
			Src: b.src,
			Dst: b.dst,
		},
		Value: b.value,
	}
}

// StartMsg is the single-cycle start pulse that begins a launch with the
// currently configured thread count.
type StartMsg struct {
	sim.MsgMeta
}

// Meta returns the meta data of the msg.
func (m *StartMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone creates a copy of the msg with a new ID.
func (m *StartMsg) Clone() sim.Msg {
	clone := *m
	clone.ID = sim.GetIDGenerator().Generate()
	return &clone
}

// StartMsgBuilder is a factory for StartMsg.
type StartMsgBuilder struct {
	src, dst sim.RemotePort
}

// WithSrc sets the source port of the msg.
func (b StartMsgBuilder) WithSrc(src sim.RemotePort) StartMsgBuilder {
	b.src = src
	return b
}

// WithDst sets the destination port of the msg.
func (b StartMsgBuilder) WithDst(dst sim.RemotePort) StartMsgBuilder {
	b.dst = dst
	return b
}

// Build creates a StartMsg.
func (b StartMsgBuilder) Build() *StartMsg {
	return &StartMsg{
		MsgMeta: sim.MsgMeta{
			ID:  sim.GetIDGenerator().Generate(),
			Src: b.src,
			Dst: b.dst,
		},
	}
}

// DoneMsg reports the completion of a launch to the host. It is sent exactly
// once per launch, on the cycle the last block retires.
type DoneMsg struct {
	sim.MsgMeta
}

// Meta returns the meta data of the msg.
func (m *DoneMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone creates a copy of the msg with a new ID.
func (m *DoneMsg) Clone() sim.Msg {
	clone := *m
	clone.ID = sim.GetIDGenerator().Generate()
	return &clone
}

// DoneMsgBuilder is a factory for DoneMsg.
type DoneMsgBuilder struct {
	src, dst sim.RemotePort
}

// WithSrc sets the source port of the msg.
func (b DoneMsgBuilder) WithSrc(src sim.RemotePort) DoneMsgBuilder {
	b.src = src
	return b
}

// WithDst sets the destination port of the msg.
func (b DoneMsgBuilder) WithDst(dst sim.RemotePort) DoneMsgBuilder {
	b.dst = dst
	return b
}

// Build creates a DoneMsg.
func (b DoneMsgBuilder) Build() *DoneMsg {
	return &DoneMsg{
		MsgMeta: sim.MsgMeta{
			ID:  sim.GetIDGenerator().Generate(),
			Src: b.src,
			Dst: b.dst,
		},
	}
}

// BlockAssignMsg hands one thread block to a core. ThreadCount is the block
// size except for the last block of a launch, which is clipped to the
// remainder.
type BlockAssignMsg struct {
	sim.MsgMeta

	BlockID     uint32
	BlockDim    uint32
	ThreadCount uint32
}

// Meta returns the meta data of the msg.
func (m *BlockAssignMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone creates a copy of the msg with a new ID.
func (m *BlockAssignMsg) Clone() sim.Msg {
	clone := *m
	clone.ID = sim.GetIDGenerator().Generate()
	return &clone
}

// BlockAssignMsgBuilder is a factory for BlockAssignMsg.
type BlockAssignMsgBuilder struct {
	src, dst    sim.RemotePort
	blockID     uint32
	blockDim    uint32
	threadCount uint32
}

// WithSrc sets the source port of the msg.
func (b BlockAssignMsgBuilder) WithSrc(src sim.RemotePort) BlockAssignMsgBuilder {
	b.src = src
	return b
}

// WithDst sets the destination port of the msg.
func (b BlockAssignMsgBuilder) WithDst(dst sim.RemotePort) BlockAssignMsgBuilder {
	b.dst = dst
	return b
}

// WithBlockID sets the ID of the block being assigned.
func (b BlockAssignMsgBuilder) WithBlockID(id uint32) BlockAssignMsgBuilder {
	b.blockID = id
	return b
}

// WithBlockDim sets the block size of the launch.
func (b BlockAssignMsgBuilder) WithBlockDim(dim uint32) BlockAssignMsgBuilder {
	b.blockDim = dim
	return b
}

// WithThreadCount sets the number of active lanes in the block.
func (b BlockAssignMsgBuilder) WithThreadCount(n uint32) BlockAssignMsgBuilder {
	b.threadCount = n
	return b
}

// Build creates a BlockAssignMsg.
func (b BlockAssignMsgBuilder) Build() *BlockAssignMsg {
	return &BlockAssignMsg{
		MsgMeta: sim.MsgMeta{
			ID:  sim.GetIDGenerator().Generate(),
			Src: b.src,
			Dst: b.dst,
		},
		BlockID:     b.blockID,
		BlockDim:    b.blockDim,
		ThreadCount: b.threadCount,
	}
}

// BlockRetireMsg reports the completion of an assigned block back to the
// dispatcher.
type BlockRetireMsg struct {
	sim.MsgMeta

	BlockID uint32
}

// Meta returns the meta data of the msg.
func (m *BlockRetireMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone creates a copy of the msg with a new ID.
func (m *BlockRetireMsg) Clone() sim.Msg {
	clone := *m
	clone.ID = sim.GetIDGenerator().Generate()
	return &clone
}

// BlockRetireMsgBuilder is a factory for BlockRetireMsg.
type BlockRetireMsgBuilder struct {
	src, dst sim.RemotePort
	blockID  uint32
}

// WithSrc sets the source port of the msg.
func (b BlockRetireMsgBuilder) WithSrc(src sim.RemotePort) BlockRetireMsgBuilder {
	b.src = src
	return b
}

// WithDst sets the destination port of the msg.
func (b BlockRetireMsgBuilder) WithDst(dst sim.RemotePort) BlockRetireMsgBuilder {
	b.dst = dst
	return b
}

// WithBlockID sets the ID of the retiring block.
func (b BlockRetireMsgBuilder) WithBlockID(id uint32) BlockRetireMsgBuilder {
	b.blockID = id
	return b
}

// Build creates a BlockRetireMsg.
func (b BlockRetireMsgBuilder) Build() *BlockRetireMsg {
	return &BlockRetireMsg{
		MsgMeta: sim.MsgMeta{
			ID:  sim.GetIDGenerator().Generate(),
			Src: b.src,
			Dst: b.dst,
		},
		BlockID: b.blockID,
	}
}
