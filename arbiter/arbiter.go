// Package arbiter multiplexes many outstanding memory requests onto a fixed
// set of physical memory channels. One instance serves the instruction side
// (one requester per core) and one serves the data side (one requester per
// lane).
package arbiter

import (
	"fmt"

	"github.com/sarchlab/akita/v4/mem/mem"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/simdgpu/gpu"
)

const channelFree = -1

// Comp binds each free physical channel to at most one pending request per
// cycle, lowest requester index first. A request that is not bound stays at
// its requester port unchanged and is reconsidered next cycle, which gives
// the idempotent re-offer semantics of a valid/ready handshake.
//
// The binding state is a fixed-size table indexed by channel, recomputed
// incrementally as channels are claimed and released. Responses are routed
// back to the original requester by rebuilding them against the request ID
// recorded at binding time, the same tag-substitution trick a physical bus
// arbiter plays.
type Comp struct {
	*sim.TickingComponent

	topPorts    []sim.Port
	bottomPorts []sim.Port
	chanRemotes []sim.RemotePort

	chanOwner []int
	chanSrc   []sim.RemotePort
	chanRspTo []string
}

// NumRequesters returns the number of upstream request slots.
func (c *Comp) NumRequesters() int {
	return len(c.topPorts)
}

// NumChannels returns the number of downstream physical channels.
func (c *Comp) NumChannels() int {
	return len(c.bottomPorts)
}

// TopPort returns the port that requester i issues into.
func (c *Comp) TopPort(i int) sim.Port {
	return c.topPorts[i]
}

// BottomPort returns the port facing physical channel ch.
func (c *Comp) BottomPort(ch int) sim.Port {
	return c.bottomPorts[ch]
}

// SetChannelRemote tells the arbiter where physical channel ch lives on the
// memory side.
func (c *Comp) SetChannelRemote(ch int, remote sim.RemotePort) {
	c.chanRemotes[ch] = remote
}

// Reset unbinds every channel and drains all ports.
func (c *Comp) Reset() {
	for ch := range c.chanOwner {
		c.chanOwner[ch] = channelFree
		c.chanSrc[ch] = ""
		c.chanRspTo[ch] = ""
	}
	for _, port := range c.topPorts {
		for port.RetrieveIncoming() != nil {
		}
	}
	for _, port := range c.bottomPorts {
		for port.RetrieveIncoming() != nil {
		}
	}
}

// Tick first routes completed responses back upstream, freeing their
// channels, then binds freed channels to pending requests.
func (c *Comp) Tick() bool {
	madeProgress := c.routeResponses()
	madeProgress = c.bindChannels() || madeProgress

	return madeProgress
}

func (c *Comp) routeResponses() bool {
	madeProgress := false

	for ch, port := range c.bottomPorts {
		item := port.PeekIncoming()
		if item == nil {
			continue
		}

		if c.chanOwner[ch] == channelFree {
			panic("response on an unbound memory channel")
		}

		var err *sim.SendError
		top := c.topPorts[c.chanOwner[ch]]

		switch rsp := item.(type) {
		case *mem.DataReadyRsp:
			up := mem.DataReadyRspBuilder{}.
				WithSrc(top.AsRemote()).
				WithDst(c.chanSrc[ch]).
				WithRspTo(c.chanRspTo[ch]).
				WithData(rsp.Data).
				Build()
			err = top.Send(up)
		case *mem.WriteDoneRsp:
			up := mem.WriteDoneRspBuilder{}.
				WithSrc(top.AsRemote()).
				WithDst(c.chanSrc[ch]).
				WithRspTo(c.chanRspTo[ch]).
				Build()
			err = top.Send(up)
		default:
			panic("arbiter channel received a non-memory response")
		}

		if err != nil {
			continue
		}

		gpu.Trace("Arbiter",
			"Behavior", "Respond",
			"Comp", c.Name(),
			"Channel", ch,
			"Requester", c.chanOwner[ch],
		)

		port.RetrieveIncoming()
		c.chanOwner[ch] = channelFree
		c.chanSrc[ch] = ""
		c.chanRspTo[ch] = ""
		madeProgress = true
	}

	return madeProgress
}

func (c *Comp) bindChannels() bool {
	madeProgress := false

	for t, top := range c.topPorts {
		item := top.PeekIncoming()
		if item == nil {
			continue
		}

		ch := c.freeChannel()
		if ch == channelFree {
			break
		}

		// Strict priority: if the lowest-index pending request cannot be
		// forwarded this cycle, nobody behind it may claim the channel.
		if !c.forward(t, ch, item) {
			break
		}

		top.RetrieveIncoming()
		madeProgress = true
	}

	return madeProgress
}

func (c *Comp) freeChannel() int {
	for ch, owner := range c.chanOwner {
		if owner == channelFree {
			return ch
		}
	}
	return channelFree
}

func (c *Comp) forward(t, ch int, item sim.Msg) bool {
	bottom := c.bottomPorts[ch]

	var err *sim.SendError
	switch req := item.(type) {
	case *mem.ReadReq:
		down := mem.ReadReqBuilder{}.
			WithSrc(bottom.AsRemote()).
			WithDst(c.chanRemotes[ch]).
			WithAddress(req.Address).
			WithByteSize(req.AccessByteSize).
			Build()
		err = bottom.Send(down)
	case *mem.WriteReq:
		down := mem.WriteReqBuilder{}.
			WithSrc(bottom.AsRemote()).
			WithDst(c.chanRemotes[ch]).
			WithAddress(req.Address).
			WithData(req.Data).
			Build()
		err = bottom.Send(down)
	default:
		panic("arbiter requester issued a non-memory request")
	}

	if err != nil {
		return false
	}

	c.chanOwner[ch] = t
	c.chanSrc[ch] = item.Meta().Src
	c.chanRspTo[ch] = item.Meta().ID

	gpu.Trace("Arbiter",
		"Behavior", "Bind",
		"Comp", c.Name(),
		"Channel", ch,
		"Requester", t,
	)

	return true
}

// Builder creates arbiters.
type Builder struct {
	engine        sim.Engine
	freq          sim.Freq
	numRequesters int
	numChannels   int
}

// MakeBuilder returns a Builder with a 1x1 shape.
func MakeBuilder() Builder {
	return Builder{
		numRequesters: 1,
		numChannels:   1,
	}
}

// WithEngine sets the engine that drives the arbiter.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the arbiter.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithNumRequesters sets the number of upstream request slots.
func (b Builder) WithNumRequesters(n int) Builder {
	if n < 1 {
		panic("arbiter needs at least one requester")
	}
	b.numRequesters = n
	return b
}

// WithNumChannels sets the number of downstream physical channels.
func (b Builder) WithNumChannels(n int) Builder {
	if n < 1 {
		panic("arbiter needs at least one channel")
	}
	b.numChannels = n
	return b
}

// Build creates an arbiter component.
func (b Builder) Build(name string) *Comp {
	c := &Comp{
		chanRemotes: make([]sim.RemotePort, b.numChannels),
		chanOwner:   make([]int, b.numChannels),
		chanSrc:     make([]sim.RemotePort, b.numChannels),
		chanRspTo:   make([]string, b.numChannels),
	}
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)

	for ch := range c.chanOwner {
		c.chanOwner[ch] = channelFree
	}

	c.topPorts = make([]sim.Port, b.numRequesters)
	for i := range c.topPorts {
		portName := fmt.Sprintf("Top%d", i)
		port := sim.NewPort(c, 1, 4, name+"."+portName)
		c.topPorts[i] = port
		c.AddPort(portName, port)
	}

	c.bottomPorts = make([]sim.Port, b.numChannels)
	for ch := range c.bottomPorts {
		portName := fmt.Sprintf("Bottom%d", ch)
		port := sim.NewPort(c, 1, 4, name+"."+portName)
		c.bottomPorts[ch] = port
		c.AddPort(portName, port)
	}

	return c
}
