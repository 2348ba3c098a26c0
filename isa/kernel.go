package isa

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// A Segment preloads a run of data-memory words before a launch.
type Segment struct {
	Base   uint32   `yaml:"base"`
	Values []uint32 `yaml:"values"`
}

// A Kernel bundles everything the host needs for one launch: the program,
// the total thread count, and the data-memory preload.
type Kernel struct {
	Name    string `yaml:"name"`
	Threads uint32 `yaml:"threads"`
	Program []uint16
	Data    []Segment `yaml:"data"`
}

type kernelFile struct {
	Name    string    `yaml:"name"`
	Threads uint32    `yaml:"threads"`
	Source  string    `yaml:"program"`
	Data    []Segment `yaml:"data"`
}

// LoadKernelYAML reads a kernel container file: name, thread count, a
// mnemonic program listing, and data segments.
func LoadKernelYAML(path string) (*Kernel, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read kernel file: %w", err)
	}

	var file kernelFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse kernel file %s: %w", path, err)
	}

	program, err := Assemble(file.Source)
	if err != nil {
		return nil, fmt.Errorf("assemble kernel %s: %w", file.Name, err)
	}

	return &Kernel{
		Name:    file.Name,
		Threads: file.Threads,
		Program: program,
		Data:    file.Data,
	}, nil
}

// MatAdd returns the stock element-wise vector addition kernel:
// C[i] = A[i] + B[i] for i in 0..7, with A at 0-7, B at 8-15, and C written
// to 16-23.
func MatAdd() *Kernel {
	return &Kernel{
		Name:    "matadd",
		Threads: 8,
		Program: []uint16{
			Mul(0, RegBlockIdx, RegBlockDim),
			Add(0, 0, RegThreadIdx), // i = blockIdx * blockDim + threadIdx
			Const(1, 0),             // base of A
			Const(2, 8),             // base of B
			Const(3, 16),            // base of C
			Add(4, 1, 0),
			Ldr(4, 4), // A[i]
			Add(5, 2, 0),
			Ldr(5, 5), // B[i]
			Add(6, 4, 5),
			Add(7, 3, 0),
			Str(7, 6), // C[i] = A[i] + B[i]
			Ret(),
		},
		Data: []Segment{
			{Base: 0, Values: []uint32{0, 1, 2, 3, 4, 5, 6, 7}},
			{Base: 8, Values: []uint32{0, 1, 2, 3, 4, 5, 6, 7}},
		},
	}
}
