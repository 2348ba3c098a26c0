package api

import (
	gomock "github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/akita/v4/sim/directconnection"

	"github.com/sarchlab/simdgpu/gpu"
	"github.com/sarchlab/simdgpu/isa"
)

var _ = Describe("Driver", func() {
	var (
		mockCtrl   *gomock.Controller
		mockDevice *MockDevice
		engine     sim.Engine
		driver     *driverImpl
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())

		mockDevice = NewMockDevice(mockCtrl)

		engine = sim.NewSerialEngine()
		driver = &driverImpl{
			device: mockDevice,
		}
		driver.TickingComponent =
			sim.NewTickingComponent("Driver", engine, 1, driver)
		driver.ctrlPort = sim.NewPort(driver, 1, 4, "Driver.Ctrl")

		conn := directconnection.MakeBuilder().
			WithEngine(engine).
			WithFreq(1 * sim.GHz).
			Build("Conn")
		conn.PlugIn(driver.ctrlPort)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should upload the program and data segments", func() {
		kernel := &isa.Kernel{
			Name:    "fill",
			Threads: 4,
			Program: []uint16{isa.Const(0, 7), isa.Ret()},
			Data: []isa.Segment{
				{Base: 0, Values: []uint32{1, 2}},
				{Base: 8, Values: []uint32{3, 4}},
			},
		}

		mockDevice.EXPECT().LoadProgram(kernel.Program)
		mockDevice.EXPECT().WriteData(uint32(0), []uint32{1, 2})
		mockDevice.EXPECT().WriteData(uint32(8), []uint32{3, 4})

		driver.LoadKernel(kernel)
	})

	It("should read results from the device", func() {
		mockDevice.EXPECT().
			ReadData(uint32(16), uint32(8)).
			Return([]uint32{0, 2, 4, 6, 8, 10, 12, 14})

		out := driver.ReadResult(16, 8)

		Expect(out).To(Equal([]uint32{0, 2, 4, 6, 8, 10, 12, 14}))
	})

	It("should latch the completion notification", func() {
		msg := gpu.DoneMsgBuilder{}.
			WithSrc("Device.Ctrl").
			WithDst(driver.ctrlPort.AsRemote()).
			Build()
		driver.ctrlPort.Deliver(msg)

		madeProgress := driver.Tick()

		Expect(madeProgress).To(BeTrue())
		Expect(driver.Done()).To(BeTrue())
		Expect(driver.ctrlPort.PeekIncoming()).To(BeNil())
	})

	It("should make no progress with nothing to do", func() {
		Expect(driver.Tick()).To(BeFalse())
	})

	It("should forward reset to the device", func() {
		driver.done = true
		mockDevice.EXPECT().Reset()

		driver.Reset()

		Expect(driver.Done()).To(BeFalse())
	})
})
