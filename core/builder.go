package core

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"
)

// Builder can create new cores.
type Builder struct {
	engine          sim.Engine
	freq            sim.Freq
	threadsPerBlock int
}

// MakeBuilder returns a Builder with the default block shape.
func MakeBuilder() Builder {
	return Builder{
		threadsPerBlock: 4,
	}
}

// WithEngine sets the engine.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the core.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithThreadsPerBlock sets the number of SIMD lanes.
func (b Builder) WithThreadsPerBlock(n int) Builder {
	if n < 1 {
		panic("a core needs at least one lane")
	}
	b.threadsPerBlock = n
	return b
}

// Build creates a core.
func (b Builder) Build(name string) *Comp {
	c := &Comp{
		laneRemotes: make([]sim.RemotePort, b.threadsPerBlock),
	}
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)

	c.ctrlPort = sim.NewPort(c, 1, 4, name+".Ctrl")
	c.AddPort("Ctrl", c.ctrlPort)

	c.instPort = sim.NewPort(c, 1, 4, name+".Inst")
	c.AddPort("Inst", c.instPort)

	c.lanePorts = make([]sim.Port, b.threadsPerBlock)
	for l := range c.lanePorts {
		portName := fmt.Sprintf("Data%d", l)
		port := sim.NewPort(c, 1, 4, name+"."+portName)
		c.lanePorts[l] = port
		c.AddPort(portName, port)
	}

	c.state.lanes = make([]laneState, b.threadsPerBlock)

	return c
}
