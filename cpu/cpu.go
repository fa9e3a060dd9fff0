// Package cpu implements the MOS 6502 fetch-decode-execute engine: the
// opcode catalog, the addressing-mode evaluator, and the execution engine
// described in spec.md / SPEC_FULL.md. It knows nothing about ROM loading,
// command-line handling, or the concrete memory map; it speaks only to the
// bus.Bus interface it's constructed with.
package cpu

import (
	"fmt"

	"github.com/kestrel-retro/m6502/bus"
	"github.com/kestrel-retro/m6502/flags"
	"github.com/kestrel-retro/m6502/irq"
)

// Vector addresses the CPU loads PC from on NMI, reset, and IRQ/BRK.
const (
	NMIVector   = uint16(0xFFFA)
	ResetVector = uint16(0xFFFC)
	IRQVector   = uint16(0xFFFE)
)

// stackBase is the fixed high byte of the hardware stack: the full stack
// address for a given S is always 0x0100 | S.
const stackBase = uint16(0x0100)

// Variant distinguishes the handful of 6502-family behavior differences
// this core models. Everything else (addressing modes, documented opcodes,
// flag algebra) is identical across variants.
type Variant int

const (
	// NMOS is the baseline MOS 6502: ADC/SBC honor decimal mode.
	NMOS Variant = iota
	// RicohNoDecimal matches the Ricoh 2A03 used in the NES: identical to
	// NMOS except decimal mode is wired off at the ALU, so ADC/SBC always
	// run in binary mode regardless of the Decimal flag.
	RicohNoDecimal
)

// Chip is a single MOS 6502 and its architectural register state. It owns
// its bus exclusively for the duration of emulation: per spec.md §5, no
// other goroutine may call Step or touch the bus concurrently.
type Chip struct {
	A  uint8
	X  uint8
	Y  uint8
	S  uint8
	P  flags.Register
	PC uint16

	bus     bus.Bus
	variant Variant
	irqLine irq.Sender
	nmiLine irq.Sender
	rdyLine irq.Sender

	prevNMI bool // for edge-triggering the NMI line.
	halted  bool
	lastErr error
}

// Def configures a new Chip.
type Def struct {
	Bus     bus.Bus
	Variant Variant
	// Irq, Nmi, and Rdy are optional interrupt/hold lines checked at the
	// start of every Step.
	Irq irq.Sender
	Nmi irq.Sender
	Rdy irq.Sender
}

// New constructs a Chip in the deliberate simplified power-on state spec.md
// §3 specifies: A=1, X=Y=0, S=0, PC=0x0200, P=0. Use Reset afterward if the
// caller wants PC loaded from the reset vector instead.
func New(def Def) (*Chip, error) {
	if def.Bus == nil {
		return nil, InvalidCPUState{Reason: "New: Bus must not be nil"}
	}
	c := &Chip{
		A:       1,
		PC:      0x0200,
		bus:     def.Bus,
		variant: def.Variant,
		irqLine: def.Irq,
		nmiLine: def.Nmi,
		rdyLine: def.Rdy,
	}
	return c, nil
}

// Reset loads PC from the reset vector (0xFFFC/0xFFFD) and disables IRQ,
// matching real hardware reset behavior. A, X, Y, S and the rest of P are
// left untouched, the same as the real 6502.
func (c *Chip) Reset() {
	c.P.Write(flags.IrqDisable, true)
	c.PC = c.read16(ResetVector)
	c.halted = false
	c.lastErr = nil
	c.prevNMI = false
}

// Halted reports whether the CPU has stopped due to an unrecoverable error
// (UnknownOpcode, ArgumentShapeMismatch, or InvalidCPUState). Per spec.md §7 no error is
// retried or silently recovered; once halted, Step keeps returning the same
// error and no further state mutates.
func (c *Chip) Halted() bool {
	return c.halted
}

// LastError returns the error that halted the CPU, or nil if it hasn't.
func (c *Chip) LastError() error {
	return c.lastErr
}

// Step advances the CPU by exactly one instruction (or one interrupt
// dispatch), as an atomic state transition: no intermediate state is
// externally observable between one Step call and the next, per spec.md §5.
func (c *Chip) Step() error {
	if c.halted {
		return c.lastErr
	}
	if c.rdyLine != nil && c.rdyLine.Raised() {
		return nil
	}

	nmiNow := c.nmiLine != nil && c.nmiLine.Raised()
	if nmiNow && !c.prevNMI {
		c.prevNMI = nmiNow
		c.serviceInterrupt(NMIVector)
		return nil
	}
	c.prevNMI = nmiNow

	if c.irqLine != nil && c.irqLine.Raised() && !c.P.Read(flags.IrqDisable) {
		c.serviceInterrupt(IRQVector)
		return nil
	}

	opcode := c.bus.ReadByte(c.PC)
	info := catalog[opcode]
	if info.mnemonic == mnUnknown {
		err := UnknownOpcode{Opcode: opcode, PC: c.PC}
		c.halt(err)
		return err
	}

	kind := info.argKind()
	arg := c.fetchArgument(kind)
	c.PC += uint16(kind.Length())

	if err := c.execute(info.mnemonic, info.mode, arg); err != nil {
		c.halt(err)
		return err
	}
	return nil
}

func (c *Chip) halt(err error) {
	c.halted = true
	c.lastErr = err
}

// fetchArgument reads the operand bytes (if any) following the opcode byte
// at the current PC, without advancing PC itself (Step does that).
func (c *Chip) fetchArgument(kind ArgKind) Argument {
	switch kind {
	case ArgByte:
		return Argument{Kind: ArgByte, Byte: c.bus.ReadByte(c.PC + 1)}
	case ArgAddr:
		return Argument{Kind: ArgAddr, Addr: c.read16(c.PC + 1)}
	default:
		return Argument{Kind: ArgVoid}
	}
}

// serviceInterrupt implements the shared BRK/IRQ/NMI entry sequence spec.md
// §4.4.9 describes for BRK: push PC (high then low), push P, set
// IrqDisable, then load PC from the vector. Hardware IRQ/NMI call it with
// PC already pointing at the next instruction to resume. BRK does not call
// it: the BRK case in execute (exec.go) performs the same sequence inline,
// after Step has advanced PC past BRK's padding byte.
func (c *Chip) serviceInterrupt(vector uint16) {
	c.push16(c.PC)
	c.push(c.P.ToByte())
	c.P.Write(flags.IrqDisable, true)
	c.PC = c.read16(vector)
}

// push writes val to the stack and decrements S, wrapping modulo 256.
func (c *Chip) push(val uint8) {
	c.bus.WriteByte(stackBase|uint16(c.S), val)
	c.S--
}

// pop increments S (wrapping modulo 256) and reads the resulting byte.
func (c *Chip) pop() uint8 {
	c.S++
	return c.bus.ReadByte(stackBase | uint16(c.S))
}

// push16 pushes a 16 bit value high-byte first, so the low byte ends up at
// the lower stack address, per spec.md §4.4.8.
func (c *Chip) push16(val uint16) {
	c.push(uint8(val >> 8))
	c.push(uint8(val))
}

// pop16 pops a 16 bit value, mirroring push16's byte order.
func (c *Chip) pop16() uint16 {
	lo := c.pop()
	hi := c.pop()
	return uint16(hi)<<8 | uint16(lo)
}

// String implements fmt.Stringer with a compact register dump, used by
// cmd/m6502 and test failure messages alongside spew.Sdump for the full
// struct view.
func (c *Chip) String() string {
	return fmt.Sprintf("A=%02X X=%02X Y=%02X S=%02X P=%02X PC=%04X", c.A, c.X, c.Y, c.S, c.P.ToByte(), c.PC)
}

// A few custom error types distinguishing why Step halted the CPU, per
// spec.md §7.

// InvalidCPUState represents an internal precondition failure in the
// emulator (a bug in the core, not something input data can trigger).
type InvalidCPUState struct {
	Reason string
}

// Error implements the error interface.
func (e InvalidCPUState) Error() string {
	return fmt.Sprintf("invalid CPU state: %s", e.Reason)
}

// UnknownOpcode indicates the fetched byte has no catalog entry. Fatal:
// emulation cannot proceed past it.
type UnknownOpcode struct {
	Opcode uint8
	PC     uint16
}

// Error implements the error interface.
func (e UnknownOpcode) Error() string {
	return fmt.Sprintf("unknown opcode %#02x at PC %#04x", e.Opcode, e.PC)
}

// ArgumentShapeMismatch indicates the decoder produced an Argument whose
// Kind doesn't match what the addressing mode expects. This can only happen
// if the catalog itself is wrong, never from input ROM data.
type ArgumentShapeMismatch struct {
	Mode AddressingMode
	Kind ArgKind
}

// Error implements the error interface.
func (e ArgumentShapeMismatch) Error() string {
	return fmt.Sprintf("argument shape mismatch: mode %d got kind %d", e.Mode, e.Kind)
}
