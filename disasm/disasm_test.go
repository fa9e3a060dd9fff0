package disasm

import (
	"strings"
	"testing"

	"github.com/kestrel-retro/m6502/bus"
)

func TestStepImmediate(t *testing.T) {
	b := bus.NewFlatBus()
	b.LoadAt(0x0600, []uint8{0xA9, 0x42}) // LDA #$42
	line, n := Step(0x0600, b)
	if n != 2 {
		t.Errorf("n = %d, want 2", n)
	}
	if !strings.Contains(line, "LDA") || !strings.Contains(line, "#$42") {
		t.Errorf("line = %q, want LDA immediate of $42", line)
	}
}

func TestStepAbsolute(t *testing.T) {
	b := bus.NewFlatBus()
	b.LoadAt(0x0600, []uint8{0x4C, 0x00, 0x06}) // JMP $0600
	line, n := Step(0x0600, b)
	if n != 3 {
		t.Errorf("n = %d, want 3", n)
	}
	if !strings.Contains(line, "JMP") || !strings.Contains(line, "$0600") {
		t.Errorf("line = %q, want JMP absolute to $0600", line)
	}
}

func TestStepImplied(t *testing.T) {
	b := bus.NewFlatBus()
	b.LoadAt(0x0600, []uint8{0xEA}) // NOP
	line, n := Step(0x0600, b)
	if n != 1 {
		t.Errorf("n = %d, want 1", n)
	}
	if !strings.Contains(line, "NOP") {
		t.Errorf("line = %q, want NOP", line)
	}
}

func TestStepRelativeShowsTarget(t *testing.T) {
	b := bus.NewFlatBus()
	b.LoadAt(0x0600, []uint8{0xD0, 0xFE}) // BNE -2 -> targets itself
	line, _ := Step(0x0600, b)
	if !strings.Contains(line, "(0600)") {
		t.Errorf("line = %q, want branch target 0600 shown", line)
	}
}

func TestStepUnknownOpcode(t *testing.T) {
	b := bus.NewFlatBus()
	b.LoadAt(0x0600, []uint8{0x02}) // not in the catalog
	line, n := Step(0x0600, b)
	if n != 1 {
		t.Errorf("n = %d, want 1 for an undecodable byte", n)
	}
	if !strings.Contains(line, "???") {
		t.Errorf("line = %q, want the unknown-mnemonic marker", line)
	}
}
