package mmu

import (
	"testing"

	"github.com/asgaines/dmgo/internal/cartridge"
	"github.com/asgaines/dmgo/internal/joypad"
)

func newTestMMU(rom []byte) *MMU {
	if len(rom) < 0x8000 {
		padded := make([]byte, 0x8000)
		copy(padded, rom)
		rom = padded
	}
	return New(cartridge.New(rom))
}

func TestMMU_ROMAndWRAM(t *testing.T) {
	rom := make([]byte, 0x8000)
	rom[0x0100] = 0x42
	m := newTestMMU(rom)

	if got := m.Read(0x0100); got != 0x42 {
		t.Fatalf("ROM read got %02X want 42", got)
	}

	m.Write(0xC000, 0x99)
	if got := m.Read(0xC000); got != 0x99 {
		t.Fatalf("WRAM read got %02X want 99", got)
	}

	m.Write(0xE000, 0x55)
	if got := m.Read(0xC000); got != 0x55 {
		t.Fatalf("echo RAM did not mirror into WRAM: got %02X", got)
	}

	m.Write(0xFF80, 0xAB)
	if got := m.Read(0xFF80); got != 0xAB {
		t.Fatalf("HRAM read got %02X want AB", got)
	}

	if got := m.Read(0xA123); got != 0xFF {
		t.Fatalf("ROM-only cart RAM read got %02X want FF", got)
	}
}

func TestMMU_VRAM_OAM_InterruptRegs(t *testing.T) {
	m := newTestMMU(nil)

	m.Write(0x8000, 0x11)
	if got := m.Read(0x8000); got != 0x11 {
		t.Fatalf("VRAM read got %02X want 11", got)
	}

	m.Write(0xFE00, 0x22)
	if got := m.Read(0xFE00); got != 0x22 {
		t.Fatalf("OAM read got %02X want 22", got)
	}

	m.Write(0xFF0F, 0x3F)
	if got := m.Read(0xFF0F); got != 0xE0|0x1F {
		t.Fatalf("IF read got %02X want FF", got)
	}

	m.Write(0xFFFF, 0x1B)
	if got := m.Read(0xFFFF); got != 0x1B {
		t.Fatalf("IE read got %02X want 1B", got)
	}
}

func TestMMU_JoypadAndTimerRouting(t *testing.T) {
	m := newTestMMU(nil)

	if got := m.Read(0xFF00) & 0x0F; got != 0x0F {
		t.Fatalf("JOYP default lower bits got %02X want 0F", got)
	}

	m.Write(0xFF00, 0x20)
	m.joy.SetButton(joypad.Right, true)
	m.joy.SetButton(joypad.Up, true)
	if got := m.Read(0xFF00) & 0x0F; got != 0x0A {
		t.Fatalf("JOYP D-pad got %02X want 0A", got)
	}

	m.Write(0xFF04, 0x12)
	if got := m.Read(0xFF04); got != 0x00 {
		t.Fatalf("DIV after write got %02X want 00", got)
	}
	m.Write(0xFF05, 0x77)
	if got := m.Read(0xFF05); got != 0x77 {
		t.Fatalf("TIMA got %02X want 77", got)
	}
}

func TestMMU_OAMDMABurstCopies160Bytes(t *testing.T) {
	rom := make([]byte, 0x8000)
	for i := 0; i < 0xA0; i++ {
		rom[0x4000+i] = byte(i + 1)
	}
	m := newTestMMU(rom)

	m.Write(0xFF46, 0x40) // source 0x4000
	m.Tick(160)

	if m.dmaActive {
		t.Fatalf("DMA still active after 160 cycles")
	}
	for i := 0; i < 0xA0; i++ {
		if got := m.Read(0xFE00 + uint16(i)); got != byte(i+1) {
			t.Fatalf("OAM[%d] got %02X want %02X", i, got, byte(i+1))
		}
	}
}

func TestMMU_OAMWritesBlockedDuringDMA(t *testing.T) {
	m := newTestMMU(nil)
	m.Write(0xFF46, 0x00)
	m.Write(0xFE00, 0x77) // should be ignored; DMA owns OAM right now
	if got := m.Read(0xFE00); got == 0x77 {
		t.Fatalf("CPU write to OAM should be blocked mid-DMA")
	}
}

func TestMMU_PendingInterruptsMasksIEAndIF(t *testing.T) {
	m := newTestMMU(nil)
	m.Write(0xFFFF, 0x01) // only VBlank enabled
	m.Write(0xFF0F, 0x05) // VBlank + Timer requested
	if got := m.PendingInterrupts(); got != 0x01 {
		t.Fatalf("pending got %02X want 01", got)
	}
	m.ClearInterrupt(0)
	if got := m.PendingInterrupts(); got != 0x00 {
		t.Fatalf("pending after clear got %02X want 00", got)
	}
}
