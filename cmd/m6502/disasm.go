package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kestrel-retro/m6502/bus"
	"github.com/kestrel-retro/m6502/disasm"
)

func newDisasmCmd() *cobra.Command {
	var origin uint16
	var count int

	cmd := &cobra.Command{
		Use:   "disasm [rom]",
		Short: "Disassemble a ROM image as a straight-line instruction stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rom, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("can't load rom: %w", err)
			}

			b := bus.NewFlatBus()
			b.LoadAt(origin, rom)

			pc := origin
			end := origin + uint16(len(rom))
			for i := 0; (count <= 0 || i < count) && pc < end; i++ {
				line, n := disasm.Step(pc, b)
				fmt.Println(line)
				pc += uint16(n)
			}
			return nil
		},
	}

	cmd.Flags().Uint16Var(&origin, "origin", 0x0200, "Address the ROM is loaded at")
	cmd.Flags().IntVar(&count, "count", 0, "Number of instructions to print (0 = until the ROM's end)")
	return cmd
}
