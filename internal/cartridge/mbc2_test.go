package cartridge

import "testing"

func TestMBC2_ROMBankSelectAndRAMEnable(t *testing.T) {
	rom := make([]byte, 16*0x4000)
	for bank := 0; bank < 16; bank++ {
		rom[bank*0x4000] = byte(bank)
	}
	m := NewMBC2(rom)

	if got := m.Read(0x4000); got != 0x01 {
		t.Fatalf("default bank1 got %02X want 01", got)
	}

	// Address bit 8 clear -> RAM enable
	m.Write(0x0000, 0x0A)
	// Address bit 8 set -> ROM bank select
	m.Write(0x2100, 0x05)
	if got := m.Read(0x4000); got != 0x05 {
		t.Fatalf("bank select got %02X want 05", got)
	}

	// Bank 0 write promotes to 1
	m.Write(0x2100, 0x00)
	if got := m.Read(0x4000); got != 0x01 {
		t.Fatalf("bank0->1 remap failed: got %02X", got)
	}
}

func TestMBC2_RAMIsNibbleWide(t *testing.T) {
	rom := make([]byte, 0x4000)
	m := NewMBC2(rom)
	m.Write(0x0000, 0x0A) // enable

	m.Write(0xA000, 0xFF)
	if got := m.Read(0xA000); got != 0xFF {
		t.Fatalf("nibble RAM read got %02X want FF (high nibble forced to F)", got)
	}

	m.Write(0xA000, 0x03)
	if got := m.Read(0xA000); got != 0xF3 {
		t.Fatalf("nibble RAM read got %02X want F3", got)
	}
}

func TestMBC2_RAMDisabledByDefault(t *testing.T) {
	rom := make([]byte, 0x4000)
	m := NewMBC2(rom)
	if got := m.Read(0xA000); got != 0xFF {
		t.Fatalf("RAM disabled read got %02X want FF", got)
	}
}
