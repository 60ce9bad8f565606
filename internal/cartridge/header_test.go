package cartridge

import (
	"encoding/binary"
	"testing"
)

// buildROM makes a synthetic ROM with a valid header and checksums. size
// should match the ROM size code (e.g. 64*1024 for code 0x01).
func buildROM(title string, cartType, romSizeCode, ramSizeCode byte, size int) []byte {
	rom := make([]byte, size)

	copy(rom[0x0104:0x0104+len(nintendoLogo)], nintendoLogo[:])

	tbytes := []byte(title)
	if len(tbytes) > 16 {
		tbytes = tbytes[:16]
	}
	copy(rom[0x0134:0x0144], tbytes)

	rom[0x0143] = 0x00
	rom[0x0144], rom[0x0145] = '0', '1'
	rom[0x0146] = 0x00
	rom[0x0147] = cartType
	rom[0x0148] = romSizeCode
	rom[0x0149] = ramSizeCode
	rom[0x014A] = 0x00
	rom[0x014B] = 0x33
	rom[0x014C] = 0x01

	var hsum byte
	for addr := 0x0134; addr <= 0x014C; addr++ {
		hsum = hsum - rom[addr] - 1
	}
	rom[0x014D] = hsum

	var gsum uint16
	for i := 0; i < len(rom); i++ {
		if i == 0x014E || i == 0x014F {
			continue
		}
		gsum += uint16(rom[i])
	}
	binary.BigEndian.PutUint16(rom[0x014E:0x0150], gsum)

	return rom
}

func TestParseHeader_Basic(t *testing.T) {
	rom := buildROM("TEST", 0x01, 0x01, 0x02, 64*1024)

	h, err := ParseHeader(rom)
	if err != nil {
		t.Fatalf("ParseHeader error: %v", err)
	}
	if h.Title != "TEST" {
		t.Fatalf("Title got %q want %q", h.Title, "TEST")
	}
	if h.CartType != 0x01 || h.CartTypeStr != "MBC1 (variants)" {
		t.Fatalf("CartType got %#02x / %s", h.CartType, h.CartTypeStr)
	}
	if h.ROMSizeBytes != 64*1024 || h.ROMBanks != 4 {
		t.Fatalf("ROM size decode got %d bytes / %d banks", h.ROMSizeBytes, h.ROMBanks)
	}
	if h.RAMSizeBytes != 8*1024 {
		t.Fatalf("RAM size decode got %d", h.RAMSizeBytes)
	}
	if !HeaderChecksumOK(rom) {
		t.Fatalf("HeaderChecksumOK = false, want true")
	}
}

func TestHeaderChecksum_Bad(t *testing.T) {
	rom := buildROM("TEST", 0x00, 0x00, 0x00, 32*1024)
	rom[0x0134] ^= 0xFF
	if HeaderChecksumOK(rom) {
		t.Fatalf("HeaderChecksumOK = true, want false after corruption")
	}
}

func TestParseHeader_ShortROM(t *testing.T) {
	short := make([]byte, 0x140)
	if _, err := ParseHeader(short); err == nil {
		t.Fatalf("expected error on too-small ROM, got nil")
	}
}

func TestNew_SelectsMBCByType(t *testing.T) {
	cases := []struct {
		cartType byte
		romSize  byte
		ramSize  byte
		want     string
	}{
		{0x00, 0x00, 0x00, "*cartridge.ROMOnly"},
		{0x01, 0x01, 0x02, "*cartridge.MBC1"},
		{0x05, 0x00, 0x00, "*cartridge.MBC2"},
		{0x11, 0x01, 0x02, "*cartridge.MBC3"},
	}
	for _, tc := range cases {
		size, _ := decodeROMSize(tc.romSize)
		rom := buildROM("T", tc.cartType, tc.romSize, tc.ramSize, size)
		c := New(rom)
		got := typeName(c)
		if got != tc.want {
			t.Errorf("cartType %#02x: New() = %s, want %s", tc.cartType, got, tc.want)
		}
	}
}

func typeName(c Cartridge) string {
	switch c.(type) {
	case *ROMOnly:
		return "*cartridge.ROMOnly"
	case *MBC1:
		return "*cartridge.MBC1"
	case *MBC2:
		return "*cartridge.MBC2"
	case *MBC3:
		return "*cartridge.MBC3"
	default:
		return "unknown"
	}
}
