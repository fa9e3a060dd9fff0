package main

import (
	"fmt"
	"image/color"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/veandco/go-sdl2/sdl"
	"golang.org/x/image/colornames"

	"github.com/kestrel-retro/m6502/bus"
	"github.com/kestrel-retro/m6502/cpu"
	"github.com/kestrel-retro/m6502/irq"
)

// palette is the 16 colors a framebuffer pixel's low nibble selects,
// matching the conventional hand-assembled 6502 bitmap demo palette.
var palette = []color.RGBA{
	colornames.Black, colornames.White, colornames.Red, colornames.Cyan,
	colornames.Purple, colornames.Green, colornames.Blue, colornames.Yellow,
	colornames.Orange, colornames.Brown, colornames.Tomato, colornames.Darkgray,
	colornames.Gray, colornames.Lightgreen, colornames.Lightblue, colornames.Lightgray,
}

// fastImage pokes pixel bytes directly into an SDL surface, the same
// approach vcs/vcs_main.go uses to avoid the allocation overhead of the
// generic image/draw path on every frame.
type fastImage struct {
	surface *sdl.Surface
	data    []byte
}

func (f *fastImage) set(x, y int, c color.RGBA) {
	i := int32(y)*f.surface.Pitch + int32(x)*int32(f.surface.Format.BytesPerPixel)
	f.data[i+0] = c.R
	f.data[i+1] = c.G
	f.data[i+2] = c.B
	f.data[i+3] = c.A
}

func newDisplayCmd() *cobra.Command {
	var origin uint16
	var scale int
	var stepsPerFrame int
	var seed int64

	cmd := &cobra.Command{
		Use:   "display [rom]",
		Short: "Run a ROM against the 32x32 framebuffer convention and render it in a window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rom, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("can't load rom: %w", err)
			}

			fb := bus.NewFramebufferBus(seed)
			fb.LoadAt(origin, rom)

			rdy := &irq.Line{}
			c, err := cpu.New(cpu.Def{Bus: fb, Rdy: rdy})
			if err != nil {
				return fmt.Errorf("can't init cpu: %w", err)
			}
			c.PC = origin

			if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
				return fmt.Errorf("can't init SDL: %w", err)
			}
			defer sdl.Quit()

			w := int32(bus.FramebufferWidth * scale)
			h := int32(bus.FramebufferHeight * scale)
			window, err := sdl.CreateWindow("m6502 display", sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, w, h, sdl.WINDOW_SHOWN)
			if err != nil {
				return fmt.Errorf("can't create window: %w", err)
			}
			defer window.Destroy()

			surface, err := window.GetSurface()
			if err != nil {
				return fmt.Errorf("can't get window surface: %w", err)
			}
			fi := &fastImage{surface: surface, data: surface.Pixels()}

			running := true
			for running {
				for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
					if _, ok := event.(*sdl.QuitEvent); ok {
						running = false
					}
				}

				for i := 0; i < stepsPerFrame && !c.Halted(); i++ {
					if err := c.Step(); err != nil {
						log.Printf("halted: %v", err)
						rdy.Set(true)
						break
					}
				}

				for y := 0; y < bus.FramebufferHeight; y++ {
					for x := 0; x < bus.FramebufferWidth; x++ {
						col := palette[fb.Pixel(x, y)]
						for dy := 0; dy < scale; dy++ {
							for dx := 0; dx < scale; dx++ {
								fi.set(x*scale+dx, y*scale+dy, col)
							}
						}
					}
				}
				window.UpdateSurface()
				time.Sleep(16 * time.Millisecond)
			}
			return nil
		},
	}

	cmd.Flags().Uint16Var(&origin, "origin", 0x0600, "Address the ROM is loaded at and the initial PC")
	cmd.Flags().IntVar(&scale, "scale", 8, "Pixel scale factor for the 32x32 framebuffer")
	cmd.Flags().IntVar(&stepsPerFrame, "steps-per-frame", 200, "Instructions to execute between each frame render")
	cmd.Flags().Int64Var(&seed, "seed", 1, "Seed for the PRNG backing the random-byte address")
	return cmd
}
