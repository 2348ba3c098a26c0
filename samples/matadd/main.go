package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/simdgpu/api"
	"github.com/sarchlab/simdgpu/config"
	"github.com/sarchlab/simdgpu/isa"
)

func main() {
	kernel := loadKernel()

	engine := sim.NewSerialEngine()

	driver := api.DriverBuilder{}.
		WithEngine(engine).
		WithFreq(1 * sim.GHz).
		Build("Driver")

	device := config.MakeDeviceBuilder().
		WithEngine(engine).
		WithFreq(1 * sim.GHz).
		Build("Device")

	driver.RegisterDevice(device)
	driver.LoadKernel(kernel)
	driver.Configure(uint8(kernel.Threads))
	driver.Start()
	driver.Run()

	if !driver.Done() {
		panic("device never signaled done")
	}

	printResult(driver, kernel)
	atexit.Exit(0)
}

func loadKernel() *isa.Kernel {
	if _, err := os.Stat("./matadd.yaml"); err == nil {
		kernel, err := isa.LoadKernelYAML("./matadd.yaml")
		if err != nil {
			panic(err)
		}
		return kernel
	}

	return isa.MatAdd()
}

func printResult(driver api.Driver, kernel *isa.Kernel) {
	n := kernel.Threads
	a := driver.ReadResult(0, n)
	b := driver.ReadResult(n, n)
	c := driver.ReadResult(2*n, n)

	t := table.NewWriter()
	t.SetTitle(kernel.Name)
	t.AppendHeader(table.Row{"i", "A[i]", "B[i]", "C[i]"})
	for i := uint32(0); i < n; i++ {
		t.AppendRow(table.Row{i, a[i], b[i], c[i]})
	}

	fmt.Println(t.Render())
}
