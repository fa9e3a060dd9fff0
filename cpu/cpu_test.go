package cpu

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/go-test/deep"
	"github.com/kestrel-retro/m6502/bus"
	"github.com/kestrel-retro/m6502/flags"
	"github.com/kestrel-retro/m6502/irq"
)

// newTestChip builds a Chip over a fresh FlatBus with the given program
// loaded at 0x0200, the conventional reset address for bare instruction
// tests that don't go through Reset.
func newTestChip(t *testing.T, program ...uint8) (*Chip, *bus.FlatBus) {
	t.Helper()
	b := bus.NewFlatBus()
	b.LoadAt(0x0200, program)
	c, err := New(Def{Bus: b})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, b
}

func step(t *testing.T, c *Chip) {
	t.Helper()
	if err := c.Step(); err != nil {
		t.Fatalf("Step: %v\n%s", err, spew.Sdump(c))
	}
}

func TestADCImmediateBinary(t *testing.T) {
	c, _ := newTestChip(t, 0x69, 0x01) // ADC #$01
	c.A = 0x01
	step(t, c)
	if c.A != 0x02 {
		t.Errorf("A = %#02x, want 0x02\n%s", c.A, spew.Sdump(c))
	}
	if c.P.Read(flags.Carry) {
		t.Errorf("Carry set, want clear")
	}
	if c.P.Read(flags.Zero) || c.P.Read(flags.Negative) {
		t.Errorf("Z/N set unexpectedly: %s", spew.Sdump(c.P))
	}
}

func TestADCCarryOutAndZero(t *testing.T) {
	c, _ := newTestChip(t, 0x69, 0x01) // ADC #$01
	c.A = 0xFF
	step(t, c)
	if c.A != 0x00 {
		t.Errorf("A = %#02x, want 0x00", c.A)
	}
	if !c.P.Read(flags.Carry) {
		t.Errorf("Carry not set after overflowing addition")
	}
	if !c.P.Read(flags.Zero) {
		t.Errorf("Zero not set for A=0x00")
	}
}

func TestADCDecimalMode(t *testing.T) {
	c, _ := newTestChip(t, 0x69, 0x26) // ADC #$26 (BCD 26)
	c.A = 0x58                        // BCD 58
	c.P.Write(flags.Decimal, true)
	step(t, c)
	// 58 + 26 = 84 in BCD.
	if c.A != 0x84 {
		t.Errorf("A = %#02x, want 0x84 (BCD 84)\n%s", c.A, spew.Sdump(c))
	}
	if c.P.Read(flags.Carry) {
		t.Errorf("Carry set, want clear for a sub-100 BCD sum")
	}
}

func TestSBCBinaryNoBorrow(t *testing.T) {
	c, _ := newTestChip(t, 0xE9, 0x01) // SBC #$01
	c.A = 0x05
	c.P.Write(flags.Carry, true) // Carry set means "no borrow" going in.
	step(t, c)
	if c.A != 0x04 {
		t.Errorf("A = %#02x, want 0x04", c.A)
	}
	if !c.P.Read(flags.Carry) {
		t.Errorf("Carry clear, want set (no borrow occurred)")
	}
}

func TestRicohVariantIgnoresDecimalFlag(t *testing.T) {
	b := bus.NewFlatBus()
	b.LoadAt(0x0200, []uint8{0x69, 0x26}) // ADC #$26
	c, err := New(Def{Bus: b, Variant: RicohNoDecimal})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.A = 0x58
	c.P.Write(flags.Decimal, true)
	step(t, c)
	// Binary 0x58+0x26 = 0x7E, not the BCD 0x84 a real NMOS part would give.
	if c.A != 0x7E {
		t.Errorf("A = %#02x, want 0x7E (binary result on Ricoh variant)", c.A)
	}
}

func TestASLAccumulator(t *testing.T) {
	c, _ := newTestChip(t, 0x0A) // ASL A
	c.A = 0x81
	step(t, c)
	if c.A != 0x02 {
		t.Errorf("A = %#02x, want 0x02", c.A)
	}
	if !c.P.Read(flags.Carry) {
		t.Errorf("Carry clear, want set from bit 7")
	}
}

func TestBranchBackward(t *testing.T) {
	b := bus.NewFlatBus()
	// At 0x0210: BNE -4 -> targets 0x0210+2-4 = 0x020E.
	b.LoadAt(0x0210, []uint8{0xD0, 0xFC})
	c, err := New(Def{Bus: b})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.PC = 0x0210
	c.P.Write(flags.Zero, false)
	step(t, c)
	if c.PC != 0x020E {
		t.Errorf("PC = %#04x, want 0x020e", c.PC)
	}
}

func TestBranchNotTakenLeavesPCAdvanced(t *testing.T) {
	c, _ := newTestChip(t, 0xD0, 0x10) // BNE +16, but Zero is set so no branch.
	c.P.Write(flags.Zero, true)
	step(t, c)
	if c.PC != 0x0202 {
		t.Errorf("PC = %#04x, want 0x0202", c.PC)
	}
}

func TestJSRRTSRoundTrip(t *testing.T) {
	b := bus.NewFlatBus()
	// 0x0200: JSR 0x0300 ; 0x0203: NOP (return lands here)
	b.LoadAt(0x0200, []uint8{0x20, 0x00, 0x03, 0xEA})
	// 0x0300: RTS
	b.LoadAt(0x0300, []uint8{0x60})
	c, err := New(Def{Bus: b})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	step(t, c) // JSR
	if c.PC != 0x0300 {
		t.Errorf("PC after JSR = %#04x, want 0x0300", c.PC)
	}
	if c.S != 0xFE {
		t.Errorf("S after JSR = %#02x, want 0xfe (two bytes pushed)", c.S)
	}
	step(t, c) // RTS
	if c.PC != 0x0203 {
		t.Errorf("PC after RTS = %#04x, want 0x0203", c.PC)
	}
	if c.S != 0x00 {
		t.Errorf("S after RTS = %#02x, want 0x00 (restored)", c.S)
	}
}

func TestBRKAndRTI(t *testing.T) {
	b := bus.NewFlatBus()
	b.LoadAt(0x0200, []uint8{0x00, 0x00}) // BRK, padding byte
	b.WriteByte(IRQVector, 0x00)
	b.WriteByte(IRQVector+1, 0x03) // IRQ/BRK vector -> 0x0300
	b.LoadAt(0x0300, []uint8{0x40})
	c, err := New(Def{Bus: b})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	beforeP := c.P
	step(t, c) // BRK
	if c.PC != 0x0300 {
		t.Errorf("PC after BRK = %#04x, want 0x0300", c.PC)
	}
	if !c.P.Read(flags.IrqDisable) {
		t.Errorf("IrqDisable not set after BRK")
	}
	step(t, c) // RTI
	if c.PC != 0x0202 {
		t.Errorf("PC after RTI = %#04x, want 0x0202", c.PC)
	}
	if diff := deep.Equal(c.P, beforeP); diff != nil {
		t.Errorf("P not restored by RTI: %v", diff)
	}
}

func TestUnknownOpcodeHalts(t *testing.T) {
	c, _ := newTestChip(t, 0xFF) // not in the catalog
	err := c.Step()
	if err == nil {
		t.Fatalf("Step: want error for unknown opcode")
	}
	if _, ok := err.(UnknownOpcode); !ok {
		t.Errorf("err = %T, want UnknownOpcode", err)
	}
	if !c.Halted() {
		t.Errorf("Halted() = false, want true")
	}
	if err2 := c.Step(); err2 != err {
		t.Errorf("second Step after halt returned %v, want same error %v", err2, err)
	}
}

func TestResetLoadsVector(t *testing.T) {
	b := bus.NewFlatBus()
	b.WriteByte(ResetVector, 0x00)
	b.WriteByte(ResetVector+1, 0x80)
	c, err := New(Def{Bus: b})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.Reset()
	if c.PC != 0x8000 {
		t.Errorf("PC after Reset = %#04x, want 0x8000", c.PC)
	}
	if !c.P.Read(flags.IrqDisable) {
		t.Errorf("IrqDisable not set after Reset")
	}
}

func TestIRQLineServicedWhenEnabled(t *testing.T) {
	b := bus.NewFlatBus()
	b.LoadAt(0x0200, []uint8{0xEA}) // NOP, should never run
	b.WriteByte(IRQVector, 0x00)
	b.WriteByte(IRQVector+1, 0x03)
	line := &irq.Line{}
	line.Set(true)
	c, err := New(Def{Bus: b, Irq: line})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	step(t, c)
	if c.PC != 0x0300 {
		t.Errorf("PC = %#04x, want 0x0300 (IRQ serviced instead of executing NOP)", c.PC)
	}
}

func TestIRQLineIgnoredWhenDisabled(t *testing.T) {
	b := bus.NewFlatBus()
	b.LoadAt(0x0200, []uint8{0xEA}) // NOP
	line := &irq.Line{}
	line.Set(true)
	c, err := New(Def{Bus: b, Irq: line})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.P.Write(flags.IrqDisable, true)
	step(t, c)
	if c.PC != 0x0201 {
		t.Errorf("PC = %#04x, want 0x0201 (NOP executed, IRQ masked)", c.PC)
	}
}

func TestADCCarryProperty(t *testing.T) {
	for a := 0; a < 256; a += 17 {
		for m := 0; m < 256; m += 23 {
			c, _ := newTestChip(t, 0x69, uint8(m))
			c.A = uint8(a)
			step(t, c)
			want := uint16(a) + uint16(m)
			if want > 0xFF && !c.P.Read(flags.Carry) {
				t.Errorf("A=%#02x M=%#02x: Carry not set for sum %#04x", a, m, want)
			}
			if want <= 0xFF && c.P.Read(flags.Carry) {
				t.Errorf("A=%#02x M=%#02x: Carry set for sum %#04x", a, m, want)
			}
		}
	}
}

func TestIndirectXEffectiveAddressProperty(t *testing.T) {
	for x := 0; x < 256; x += 31 {
		b := bus.NewFlatBus()
		b.LoadAt(0x0200, []uint8{0xA1, 0x10}) // LDA ($10,X)
		ptr := uint16(uint8(0x10 + x))
		b.WriteByte(ptr, 0x00)
		b.WriteByte(ptr+1, 0x04)
		b.WriteByte(0x0400, 0x7A)
		c, err := New(Def{Bus: b})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		c.X = uint8(x)
		step(t, c)
		if c.A != 0x7A {
			t.Errorf("X=%#02x: A = %#02x, want 0x7a", x, c.A)
		}
	}
}
