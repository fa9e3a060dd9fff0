// Command m6502 runs, disassembles, or visually renders 6502 machine code
// against the cpu package's interpreter core.
package main

import (
	"log"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "m6502",
		Short: "A MOS 6502 interpreter: run, disassemble, or watch a ROM image",
	}
	root.AddCommand(newRunCmd(), newDisasmCmd(), newDisplayCmd())

	if err := root.Execute(); err != nil {
		log.Fatalf("m6502: %v", err)
	}
}
