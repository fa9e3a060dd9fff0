package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/kestrel-retro/m6502/bus"
	"github.com/kestrel-retro/m6502/cpu"
)

func newRunCmd() *cobra.Command {
	var origin uint16
	var useResetVector bool
	var maxSteps int
	var trace bool

	cmd := &cobra.Command{
		Use:   "run [rom]",
		Short: "Load a ROM image and run it headlessly until it halts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rom, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("can't load rom: %w", err)
			}

			b := bus.NewFlatBus()
			b.LoadAt(origin, rom)

			c, err := cpu.New(cpu.Def{Bus: b})
			if err != nil {
				return fmt.Errorf("can't init cpu: %w", err)
			}
			if useResetVector {
				c.Reset()
			} else {
				c.PC = origin
			}

			steps := 0
			for !c.Halted() {
				if maxSteps > 0 && steps >= maxSteps {
					log.Printf("stopping after %d steps (--max-steps)", maxSteps)
					break
				}
				if trace {
					fmt.Println(c)
				}
				if err := c.Step(); err != nil {
					fmt.Printf("halted: %v\n%s\n", err, c)
					return nil
				}
				steps++
			}
			fmt.Printf("ran %d steps\n%s\n", steps, c)
			return nil
		},
	}

	cmd.Flags().Uint16Var(&origin, "origin", 0x0200, "Address to load the ROM at, and the initial PC unless --reset is set")
	cmd.Flags().BoolVar(&useResetVector, "reset", false, "Load initial PC from the reset vector (0xFFFC) instead of --origin")
	cmd.Flags().IntVar(&maxSteps, "max-steps", 100000, "Stop after this many instructions (0 = unlimited)")
	cmd.Flags().BoolVar(&trace, "trace", false, "Print register state before every instruction")
	return cmd
}
