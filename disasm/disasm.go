// Package disasm renders the instruction at a given address as a
// human-readable line, reusing the cpu package's opcode catalog instead of
// duplicating a second giant opcode table.
package disasm

import (
	"fmt"

	"github.com/kestrel-retro/m6502/bus"
	"github.com/kestrel-retro/m6502/cpu"
)

// Step disassembles the instruction at pc and returns its text along with
// the number of bytes it occupies, so callers can advance pc by the
// returned count to walk a straight-line disassembly. This does not follow
// control flow: a JMP target is printed but not chased.
//
// This always reads up to 2 bytes past pc, so the caller must ensure those
// addresses are valid on the bus even if they belong to the next
// instruction (or are unused padding).
func Step(pc uint16, b bus.Bus) (string, int) {
	mnemonic, mode, length := cpu.Decode(b.ReadByte(pc))

	b1 := b.ReadByte(pc + 1)
	b2 := b.ReadByte(pc + 2)

	var operand string
	switch mode {
	case cpu.Immediate:
		operand = fmt.Sprintf("#$%02X", b1)
	case cpu.ZeroPage:
		operand = fmt.Sprintf("$%02X", b1)
	case cpu.ZeroPageX:
		operand = fmt.Sprintf("$%02X,X", b1)
	case cpu.ZeroPageY:
		operand = fmt.Sprintf("$%02X,Y", b1)
	case cpu.IndirectX:
		operand = fmt.Sprintf("($%02X,X)", b1)
	case cpu.IndirectY:
		operand = fmt.Sprintf("($%02X),Y", b1)
	case cpu.Absolute:
		operand = fmt.Sprintf("$%02X%02X", b2, b1)
	case cpu.AbsoluteX:
		operand = fmt.Sprintf("$%02X%02X,X", b2, b1)
	case cpu.AbsoluteY:
		operand = fmt.Sprintf("$%02X%02X,Y", b2, b1)
	case cpu.Indirect:
		operand = fmt.Sprintf("($%02X%02X)", b2, b1)
	case cpu.Accumulator:
		operand = "A"
	case cpu.Relative:
		target := uint16(int32(pc) + 2 + int32(int8(b1)))
		operand = fmt.Sprintf("$%02X (%04X)", b1, target)
	case cpu.Implied:
		operand = ""
	}

	var raw string
	switch length {
	case 1:
		raw = fmt.Sprintf("%02X      ", b.ReadByte(pc))
	case 2:
		raw = fmt.Sprintf("%02X %02X   ", b.ReadByte(pc), b1)
	default:
		raw = fmt.Sprintf("%02X %02X %02X", b.ReadByte(pc), b1, b2)
	}

	return fmt.Sprintf("%04X  %s  %-4s %s", pc, raw, mnemonic, operand), length
}
