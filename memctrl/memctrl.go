// Package memctrl models the physical program/data memory arrays as
// request/response services. Each physical channel is one port that accepts
// at most one in-flight request at a time and answers after a fixed latency.
package memctrl

import (
	"fmt"

	"github.com/sarchlab/akita/v4/mem/mem"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/simdgpu/gpu"
)

type transaction struct {
	req       sim.Msg
	remaining int
}

// Comp is a word-addressed memory with a fixed number of channels. A request
// is accepted only when its channel is free; an occupied channel leaves the
// request waiting at the port, which is how the ready side of the handshake
// deasserts.
type Comp struct {
	*sim.TickingComponent

	channelPorts []sim.Port
	inflight     []*transaction

	latency int
	words   []uint32
}

// NumChannels returns the number of physical channels of this memory.
func (c *Comp) NumChannels() int {
	return len(c.channelPorts)
}

// ChannelPort returns the port of one physical channel.
func (c *Comp) ChannelPort(channel int) sim.Port {
	return c.channelPorts[channel]
}

// Write is the host backdoor used to preload memory contents before a
// launch.
func (c *Comp) Write(addr uint32, values []uint32) {
	copy(c.words[addr:], values)
}

// Read is the host backdoor used to read back results after a launch.
func (c *Comp) Read(addr, n uint32) []uint32 {
	out := make([]uint32, n)
	copy(out, c.words[addr:addr+n])
	return out
}

// Reset drops all in-flight transactions and drains the channel ports.
// Memory contents persist; the host preloads them per run.
func (c *Comp) Reset() {
	for i := range c.inflight {
		c.inflight[i] = nil
	}
	for _, port := range c.channelPorts {
		for port.RetrieveIncoming() != nil {
		}
	}
}

// Tick advances every channel by one cycle.
func (c *Comp) Tick() bool {
	madeProgress := false

	for ch := range c.channelPorts {
		madeProgress = c.tickChannel(ch) || madeProgress
	}

	return madeProgress
}

func (c *Comp) tickChannel(ch int) bool {
	txn := c.inflight[ch]
	if txn == nil {
		return c.acceptRequest(ch)
	}

	if txn.remaining > 1 {
		txn.remaining--
		return true
	}

	return c.respond(ch, txn)
}

func (c *Comp) acceptRequest(ch int) bool {
	item := c.channelPorts[ch].PeekIncoming()
	if item == nil {
		return false
	}

	switch item.(type) {
	case *mem.ReadReq, *mem.WriteReq:
		c.channelPorts[ch].RetrieveIncoming()
		c.inflight[ch] = &transaction{req: item, remaining: c.latency}
		return true
	default:
		panic("memory channel received a non-memory message")
	}
}

func (c *Comp) respond(ch int, txn *transaction) bool {
	port := c.channelPorts[ch]

	var err *sim.SendError
	switch req := txn.req.(type) {
	case *mem.ReadReq:
		data := gpu.WordToBytes(c.words[req.Address])
		rsp := mem.DataReadyRspBuilder{}.
			WithSrc(port.AsRemote()).
			WithDst(req.Src).
			WithRspTo(req.ID).
			WithData(data).
			Build()
		err = port.Send(rsp)

		if err == nil {
			gpu.Trace("Memory",
				"Behavior", "ReadDone",
				"Comp", c.Name(),
				"Channel", ch,
				"Addr", req.Address,
				"Data", c.words[req.Address],
			)
		}
	case *mem.WriteReq:
		rsp := mem.WriteDoneRspBuilder{}.
			WithSrc(port.AsRemote()).
			WithDst(req.Src).
			WithRspTo(req.ID).
			Build()
		err = port.Send(rsp)

		if err == nil {
			c.words[req.Address] = gpu.BytesToWord(req.Data)
			gpu.Trace("Memory",
				"Behavior", "WriteDone",
				"Comp", c.Name(),
				"Channel", ch,
				"Addr", req.Address,
				"Data", c.words[req.Address],
			)
		}
	}

	if err != nil {
		// The response port is saturated. Keep the transaction; the port-free
		// notification re-offers it.
		return false
	}

	c.inflight[ch] = nil

	return true
}

// Builder creates memory components.
type Builder struct {
	engine      sim.Engine
	freq        sim.Freq
	numChannels int
	latency     int
	capacity    int
}

// MakeBuilder returns a Builder with the default single-channel shape.
func MakeBuilder() Builder {
	return Builder{
		numChannels: 1,
		latency:     1,
		capacity:    256,
	}
}

// WithEngine sets the engine that drives the memory.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the memory.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithNumChannels sets the number of physical channels.
func (b Builder) WithNumChannels(n int) Builder {
	if n < 1 {
		panic("memory needs at least one channel")
	}
	b.numChannels = n
	return b
}

// WithLatency sets the cycles between accepting a request and responding.
func (b Builder) WithLatency(cycles int) Builder {
	if cycles < 1 {
		panic("memory latency must be at least one cycle")
	}
	b.latency = cycles
	return b
}

// WithCapacity sets the number of addressable words.
func (b Builder) WithCapacity(words int) Builder {
	b.capacity = words
	return b
}

// Build creates a memory component.
func (b Builder) Build(name string) *Comp {
	c := &Comp{
		latency:  b.latency,
		words:    make([]uint32, b.capacity),
		inflight: make([]*transaction, b.numChannels),
	}
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)

	c.channelPorts = make([]sim.Port, b.numChannels)
	for ch := range c.channelPorts {
		port := sim.NewPort(c, 1, 4, name+"."+chPortName(ch))
		c.channelPorts[ch] = port
		c.AddPort(chPortName(ch), port)
	}

	return c
}

func chPortName(ch int) string {
	return fmt.Sprintf("Channel%d", ch)
}
