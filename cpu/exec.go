package cpu

import "github.com/kestrel-retro/m6502/flags"

// execute dispatches a decoded instruction to its handler and applies its
// effects to CPU state and the bus. Each handler resolves its own operand
// via evalAddress (most need value, some need ea, branches need neither)
// so the shape of the work matches spec.md §4.4's per-mnemonic description.
func (c *Chip) execute(m Mnemonic, mode AddressingMode, arg Argument) error {
	switch m {
	case ADC:
		return c.iADC(mode, arg)
	case SBC:
		return c.iSBC(mode, arg)
	case AND:
		return c.iLogical(mode, arg, func(a, b uint8) uint8 { return a & b })
	case ORA:
		return c.iLogical(mode, arg, func(a, b uint8) uint8 { return a | b })
	case EOR:
		return c.iLogical(mode, arg, func(a, b uint8) uint8 { return a ^ b })
	case BIT:
		return c.iBIT(mode, arg)
	case CMP:
		return c.iCompare(mode, arg, c.A)
	case CPX:
		return c.iCompare(mode, arg, c.X)
	case CPY:
		return c.iCompare(mode, arg, c.Y)
	case ASL:
		return c.iShift(mode, arg, true, false)
	case LSR:
		return c.iShift(mode, arg, false, false)
	case ROL:
		return c.iShift(mode, arg, true, true)
	case ROR:
		return c.iShift(mode, arg, false, true)
	case INC:
		return c.iIncDecMem(mode, arg, 1)
	case DEC:
		return c.iIncDecMem(mode, arg, ^uint8(0))
	case INX:
		c.X++
		c.P.SetZN(c.X)
		return nil
	case DEX:
		c.X--
		c.P.SetZN(c.X)
		return nil
	case INY:
		c.Y++
		c.P.SetZN(c.Y)
		return nil
	case DEY:
		c.Y--
		c.P.SetZN(c.Y)
		return nil
	case LDA:
		return c.iLoad(mode, arg, &c.A)
	case LDX:
		return c.iLoad(mode, arg, &c.X)
	case LDY:
		return c.iLoad(mode, arg, &c.Y)
	case STA:
		return c.iStore(mode, arg, c.A)
	case STX:
		return c.iStore(mode, arg, c.X)
	case STY:
		return c.iStore(mode, arg, c.Y)
	case TAX:
		c.X = c.A
		c.P.SetZN(c.X)
		return nil
	case TAY:
		c.Y = c.A
		c.P.SetZN(c.Y)
		return nil
	case TXA:
		c.A = c.X
		c.P.SetZN(c.A)
		return nil
	case TYA:
		c.A = c.Y
		c.P.SetZN(c.A)
		return nil
	case TSX:
		c.X = c.S
		c.P.SetZN(c.X)
		return nil
	case TXS:
		c.S = c.X
		return nil
	case PHA:
		c.push(c.A)
		return nil
	case PHP:
		c.push(c.P.ToByte())
		return nil
	case PLA:
		c.A = c.pop()
		c.P.SetZN(c.A)
		return nil
	case PLP:
		c.P.FromByte(c.pop())
		return nil
	case CLC:
		c.P.Write(flags.Carry, false)
		return nil
	case SEC:
		c.P.Write(flags.Carry, true)
		return nil
	case CLD:
		c.P.Write(flags.Decimal, false)
		return nil
	case SED:
		c.P.Write(flags.Decimal, true)
		return nil
	case CLI:
		c.P.Write(flags.IrqDisable, false)
		return nil
	case SEI:
		c.P.Write(flags.IrqDisable, true)
		return nil
	case CLV:
		c.P.Write(flags.Overflow, false)
		return nil
	case BCC:
		return c.branch(arg, !c.P.Read(flags.Carry))
	case BCS:
		return c.branch(arg, c.P.Read(flags.Carry))
	case BEQ:
		return c.branch(arg, c.P.Read(flags.Zero))
	case BNE:
		return c.branch(arg, !c.P.Read(flags.Zero))
	case BMI:
		return c.branch(arg, c.P.Read(flags.Negative))
	case BPL:
		return c.branch(arg, !c.P.Read(flags.Negative))
	case BVS:
		return c.branch(arg, c.P.Read(flags.Overflow))
	case BVC:
		return c.branch(arg, !c.P.Read(flags.Overflow))
	case JMP:
		if arg.Kind != ArgAddr {
			return ArgumentShapeMismatch{Mode: mode, Kind: arg.Kind}
		}
		c.PC = arg.Addr
		return nil
	case JMPIndirect:
		if arg.Kind != ArgAddr {
			return ArgumentShapeMismatch{Mode: mode, Kind: arg.Kind}
		}
		c.PC = c.read16(arg.Addr)
		return nil
	case JSR:
		if arg.Kind != ArgAddr {
			return ArgumentShapeMismatch{Mode: mode, Kind: arg.Kind}
		}
		// The 6502 pushes the address of the last byte of the JSR
		// instruction, not the address of the next one; PC has already
		// advanced past JSR's 3 bytes by the time execute runs, so back up 1.
		c.push16(c.PC - 1)
		c.PC = arg.Addr
		return nil
	case RTS:
		c.PC = c.pop16() + 1
		return nil
	case BRK:
		// PC already points past BRK's opcode+padding byte; push it, then
		// push P verbatim so RTI restores the exact byte, then load the
		// IRQ/BRK vector.
		c.push16(c.PC)
		c.push(c.P.ToByte())
		c.P.Write(flags.IrqDisable, true)
		c.PC = c.read16(IRQVector)
		return nil
	case RTI:
		c.P.FromByte(c.pop())
		c.PC = c.pop16()
		return nil
	case NOP:
		return nil
	default:
		return InvalidCPUState{Reason: "execute: unhandled mnemonic " + m.String()}
	}
}

// iADC implements ADC per spec.md §4.4.1: binary addition with carry-in,
// or (when Decimal is set and the variant honors it) the literal
// bcd(A)+bcd(M)+C decimal algorithm. Zero and Negative always derive from
// the post-encoding result byte, per the Open Question #4 decision; in
// decimal mode Carry comes from the BCD digit carry and Overflow from the
// binary sum of the same operands.
func (c *Chip) iADC(mode AddressingMode, arg Argument) error {
	r, err := c.evalAddress(mode, arg)
	if err != nil {
		return err
	}
	m := r.value
	carryIn := uint16(0)
	if c.P.Read(flags.Carry) {
		carryIn = 1
	}

	if c.decimalActive() {
		lo := (c.A & 0x0F) + (m & 0x0F) + uint8(carryIn)
		hi := (c.A >> 4) + (m >> 4)
		if lo > 9 {
			lo += 6
			hi++
		}
		carryOut := hi > 9
		if carryOut {
			hi += 6
		}
		result := (hi << 4) | (lo & 0x0F)
		c.overflowADC(c.A, m, uint16(c.A)+uint16(m)+carryIn)
		c.A = result
		c.P.Write(flags.Carry, carryOut)
		c.P.SetZN(c.A)
		return nil
	}

	sum := uint16(c.A) + uint16(m) + carryIn
	c.overflowADC(c.A, m, sum)
	c.A = uint8(sum)
	c.P.Write(flags.Carry, sum > 0xFF)
	c.P.SetZN(c.A)
	return nil
}

// overflowADC sets the Overflow flag for an addition: set when the two
// operands share a sign and the (8 bit truncated) result's sign differs
// from theirs, the standard signed-overflow test.
func (c *Chip) overflowADC(a, m uint8, sum uint16) {
	result := uint8(sum)
	c.P.Write(flags.Overflow, (a^result)&(m^result)&0x80 != 0)
}

// iSBC implements SBC per spec.md §4.4.2, using the ISA-correct convention
// decided in the Open Question #1 resolution: Carry acts as a "no borrow
// needed" flag, so SBC is computed as A + ^M + C exactly as ADC is, and
// decimal mode (when active) mirrors that with a BCD correction subtracted
// instead of added.
func (c *Chip) iSBC(mode AddressingMode, arg Argument) error {
	r, err := c.evalAddress(mode, arg)
	if err != nil {
		return err
	}
	m := r.value
	carryIn := uint16(0)
	if c.P.Read(flags.Carry) {
		carryIn = 1
	}

	sum := uint16(c.A) + uint16(^m) + carryIn
	c.overflowADC(c.A, ^m, sum)
	binResult := uint8(sum)
	carryOut := sum > 0xFF

	if c.decimalActive() {
		lo := int16(c.A&0x0F) - int16(m&0x0F) - int16(1-carryIn)
		hi := int16(c.A>>4) - int16(m>>4)
		if lo < 0 {
			lo -= 6
			hi--
		}
		if hi < 0 {
			hi -= 6
		}
		c.A = uint8(hi<<4) | uint8(lo&0x0F)
	} else {
		c.A = binResult
	}
	c.P.Write(flags.Carry, carryOut)
	c.P.SetZN(c.A)
	return nil
}

// decimalActive reports whether ADC/SBC should run their BCD algorithm:
// the Decimal flag is set and the variant doesn't wire decimal mode off.
func (c *Chip) decimalActive() bool {
	return c.P.Read(flags.Decimal) && c.variant != RicohNoDecimal
}

// iLogical implements AND/ORA/EOR: all three share the same addressing and
// flag-setting shape, differing only in the bitwise op applied.
func (c *Chip) iLogical(mode AddressingMode, arg Argument, op func(a, b uint8) uint8) error {
	r, err := c.evalAddress(mode, arg)
	if err != nil {
		return err
	}
	c.A = op(c.A, r.value)
	c.P.SetZN(c.A)
	return nil
}

// iBIT implements BIT per spec.md §4.4.3: Zero is set from A&M, while
// Negative and Overflow come from bits 7 and 6 of M directly, not of the
// AND result.
func (c *Chip) iBIT(mode AddressingMode, arg Argument) error {
	r, err := c.evalAddress(mode, arg)
	if err != nil {
		return err
	}
	c.P.Write(flags.Zero, c.A&r.value == 0)
	c.P.Write(flags.Negative, r.value&0x80 != 0)
	c.P.Write(flags.Overflow, r.value&0x40 != 0)
	return nil
}

// iCompare implements CMP/CPX/CPY: an unsigned subtraction whose only
// effect is on flags. Carry set means reg >= memory, matching SBC's
// no-borrow convention.
func (c *Chip) iCompare(mode AddressingMode, arg Argument, reg uint8) error {
	r, err := c.evalAddress(mode, arg)
	if err != nil {
		return err
	}
	diff := uint16(reg) - uint16(r.value)
	c.P.Write(flags.Carry, reg >= r.value)
	c.P.SetZN(uint8(diff))
	return nil
}

// iShift implements ASL/LSR/ROL/ROR uniformly: left==true shifts toward
// bit 7, rotate==true folds the old Carry into the vacated bit instead of
// a 0. Operates on the accumulator when mode is Accumulator, otherwise
// reads-modifies-writes the resolved memory location.
func (c *Chip) iShift(mode AddressingMode, arg Argument, left, rotate bool) error {
	r, err := c.evalAddress(mode, arg)
	if err != nil {
		return err
	}
	in := r.value
	var out uint8
	var carryOut bool
	if left {
		carryOut = in&0x80 != 0
		out = in << 1
		if rotate && c.P.Read(flags.Carry) {
			out |= 0x01
		}
	} else {
		carryOut = in&0x01 != 0
		out = in >> 1
		if rotate && c.P.Read(flags.Carry) {
			out |= 0x80
		}
	}
	c.P.Write(flags.Carry, carryOut)
	c.P.SetZN(out)

	if mode == Accumulator {
		c.A = out
		return nil
	}
	if !r.hasEA {
		return InvalidCPUState{Reason: "iShift: memory mode without effective address"}
	}
	c.bus.WriteByte(*r.ea, out)
	return nil
}

// iIncDecMem implements INC/DEC: read-modify-write of a memory location by
// +1 or -1 (delta passed as its uint8 two's-complement form).
func (c *Chip) iIncDecMem(mode AddressingMode, arg Argument, delta uint8) error {
	r, err := c.evalAddress(mode, arg)
	if err != nil {
		return err
	}
	if !r.hasEA {
		return InvalidCPUState{Reason: "iIncDecMem: memory mode without effective address"}
	}
	out := r.value + delta
	c.bus.WriteByte(*r.ea, out)
	c.P.SetZN(out)
	return nil
}

// iLoad implements LDA/LDX/LDY: resolve the operand and store it into reg.
func (c *Chip) iLoad(mode AddressingMode, arg Argument, reg *uint8) error {
	r, err := c.evalAddress(mode, arg)
	if err != nil {
		return err
	}
	*reg = r.value
	c.P.SetZN(*reg)
	return nil
}

// iStore implements STA/STX/STY: write val to the resolved effective
// address. None of these modes is Immediate/Accumulator/Implied, so hasEA
// is always true for a correctly-cataloged opcode.
func (c *Chip) iStore(mode AddressingMode, arg Argument, val uint8) error {
	r, err := c.evalAddress(mode, arg)
	if err != nil {
		return err
	}
	if !r.hasEA {
		return InvalidCPUState{Reason: "iStore: store mode without effective address"}
	}
	c.bus.WriteByte(*r.ea, val)
	return nil
}

// branch implements the 8 conditional branches per spec.md §4.4.7 and the
// Open Question #2 decision: the signed 8 bit offset is applied to PC
// after PC has already advanced past the 2-byte branch instruction, not to
// the address of the branch opcode itself.
func (c *Chip) branch(arg Argument, takeBranch bool) error {
	if arg.Kind != ArgByte {
		return ArgumentShapeMismatch{Mode: Relative, Kind: arg.Kind}
	}
	if !takeBranch {
		return nil
	}
	offset := int8(arg.Byte)
	c.PC = uint16(int32(c.PC) + int32(offset))
	return nil
}
