// Package config provides the default configuration for the GPU device.
package config

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/akita/v4/sim/directconnection"

	"github.com/sarchlab/simdgpu/arbiter"
	"github.com/sarchlab/simdgpu/core"
	"github.com/sarchlab/simdgpu/dispatcher"
	"github.com/sarchlab/simdgpu/memctrl"
)

// DeviceBuilder can build GPU devices. All shape parameters are fixed at
// build time; none are runtime-configurable.
type DeviceBuilder struct {
	engine          sim.Engine
	freq            sim.Freq
	numCores        int
	threadsPerBlock int
	instChannels    int
	dataChannels    int
	memLatency      int
	progMemWords    int
	dataMemWords    int
}

// MakeDeviceBuilder returns a DeviceBuilder with the reference build: 2
// cores, 4 threads per block, 1 instruction channel, 4 data channels.
func MakeDeviceBuilder() DeviceBuilder {
	return DeviceBuilder{
		numCores:        2,
		threadsPerBlock: 4,
		instChannels:    1,
		dataChannels:    4,
		memLatency:      1,
		progMemWords:    256,
		dataMemWords:    256,
	}
}

// WithEngine sets the engine that drives the device simulation.
func (b DeviceBuilder) WithEngine(engine sim.Engine) DeviceBuilder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the device.
func (b DeviceBuilder) WithFreq(freq sim.Freq) DeviceBuilder {
	b.freq = freq
	return b
}

// WithNumCores sets the number of execution cores.
func (b DeviceBuilder) WithNumCores(n int) DeviceBuilder {
	b.numCores = n
	return b
}

// WithThreadsPerBlock sets the SIMD width of each core.
func (b DeviceBuilder) WithThreadsPerBlock(n int) DeviceBuilder {
	b.threadsPerBlock = n
	return b
}

// WithInstChannels sets the program-memory channel count.
func (b DeviceBuilder) WithInstChannels(n int) DeviceBuilder {
	b.instChannels = n
	return b
}

// WithDataChannels sets the data-memory channel count.
func (b DeviceBuilder) WithDataChannels(n int) DeviceBuilder {
	b.dataChannels = n
	return b
}

// WithMemLatency sets the fixed latency of both memories, in cycles.
func (b DeviceBuilder) WithMemLatency(cycles int) DeviceBuilder {
	b.memLatency = cycles
	return b
}

// WithProgMemWords sets the program memory capacity.
func (b DeviceBuilder) WithProgMemWords(n int) DeviceBuilder {
	b.progMemWords = n
	return b
}

// WithDataMemWords sets the data memory capacity.
func (b DeviceBuilder) WithDataMemWords(n int) DeviceBuilder {
	b.dataMemWords = n
	return b
}

// Build creates a GPU device.
func (b DeviceBuilder) Build(name string) *Device {
	dev := &Device{
		threadsPerBlock: b.threadsPerBlock,
	}

	dev.dispatcher = dispatcher.MakeBuilder().
		WithEngine(b.engine).
		WithFreq(b.freq).
		WithNumCores(b.numCores).
		WithThreadsPerBlock(b.threadsPerBlock).
		Build(name + ".Dispatcher")

	dev.progMem = memctrl.MakeBuilder().
		WithEngine(b.engine).
		WithFreq(b.freq).
		WithNumChannels(b.instChannels).
		WithLatency(b.memLatency).
		WithCapacity(b.progMemWords).
		Build(name + ".ProgMem")

	dev.dataMem = memctrl.MakeBuilder().
		WithEngine(b.engine).
		WithFreq(b.freq).
		WithNumChannels(b.dataChannels).
		WithLatency(b.memLatency).
		WithCapacity(b.dataMemWords).
		Build(name + ".DataMem")

	dev.instArb = arbiter.MakeBuilder().
		WithEngine(b.engine).
		WithFreq(b.freq).
		WithNumRequesters(b.numCores).
		WithNumChannels(b.instChannels).
		Build(name + ".InstArbiter")

	dev.dataArb = arbiter.MakeBuilder().
		WithEngine(b.engine).
		WithFreq(b.freq).
		WithNumRequesters(b.numCores * b.threadsPerBlock).
		WithNumChannels(b.dataChannels).
		Build(name + ".DataArbiter")

	for i := 0; i < b.numCores; i++ {
		c := core.MakeBuilder().
			WithEngine(b.engine).
			WithFreq(b.freq).
			WithThreadsPerBlock(b.threadsPerBlock).
			Build(fmt.Sprintf("%s.Core%d", name, i))
		dev.cores = append(dev.cores, c)
	}

	b.connect(name, dev)

	return dev
}

func (b DeviceBuilder) connect(name string, dev *Device) {
	for i, c := range dev.cores {
		b.link(fmt.Sprintf("%s.Dispatcher.Core%d", name, i),
			dev.dispatcher.CorePort(i), c.CtrlPort())
		dev.dispatcher.SetCoreRemote(i, c.CtrlPort().AsRemote())

		b.link(fmt.Sprintf("%s.Core%d.Inst", name, i),
			c.InstPort(), dev.instArb.TopPort(i))
		c.SetInstRemote(dev.instArb.TopPort(i).AsRemote())

		for l := 0; l < b.threadsPerBlock; l++ {
			slot := i*b.threadsPerBlock + l
			b.link(fmt.Sprintf("%s.Core%d.Data%d", name, i, l),
				c.LanePort(l), dev.dataArb.TopPort(slot))
			c.SetLaneRemote(l, dev.dataArb.TopPort(slot).AsRemote())
		}
	}

	for ch := 0; ch < b.instChannels; ch++ {
		b.link(fmt.Sprintf("%s.InstArbiter.Channel%d", name, ch),
			dev.instArb.BottomPort(ch), dev.progMem.ChannelPort(ch))
		dev.instArb.SetChannelRemote(ch, dev.progMem.ChannelPort(ch).AsRemote())
	}

	for ch := 0; ch < b.dataChannels; ch++ {
		b.link(fmt.Sprintf("%s.DataArbiter.Channel%d", name, ch),
			dev.dataArb.BottomPort(ch), dev.dataMem.ChannelPort(ch))
		dev.dataArb.SetChannelRemote(ch, dev.dataMem.ChannelPort(ch).AsRemote())
	}
}

func (b DeviceBuilder) link(name string, a, z sim.Port) {
	conn := directconnection.MakeBuilder().
		WithEngine(b.engine).
		WithFreq(b.freq).
		Build(name)
	conn.PlugIn(a)
	conn.PlugIn(z)
}
