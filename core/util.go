package core

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/sarchlab/simdgpu/isa"
)

// PrintState renders the lane register files of a core as a table. Debug
// aid; not used on the simulation path.
func PrintState(c *Comp) {
	fmt.Printf("==============State@%s==============\n", c.Name())

	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("Block %d, PC %d, %s",
		c.state.blockID, c.state.pc, fsmName(c.state.fsm)))

	header := table.Row{"Reg"}
	for l := range c.state.lanes {
		header = append(header, fmt.Sprintf("Lane%d", l))
	}
	t.AppendHeader(header)

	for r := 0; r < isa.NumRegisters; r++ {
		row := table.Row{fmt.Sprintf("R%d", r)}
		for l := range c.state.lanes {
			row = append(row, c.state.lanes[l].regs.Read(uint8(r)))
		}
		t.AppendRow(row)
	}

	activeRow := table.Row{"active"}
	for l := range c.state.lanes {
		activeRow = append(activeRow, c.state.lanes[l].active)
	}
	t.AppendRow(activeRow)

	fmt.Println(t.Render())
}

func fsmName(s fsmState) string {
	switch s {
	case coreIdle:
		return "Idle"
	case coreFetch:
		return "Fetching"
	case coreDecode:
		return "Decoding"
	case coreExec:
		return "Executing"
	default:
		return "?"
	}
}
