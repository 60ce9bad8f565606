// Package cartridge implements ROM loading, header parsing, and the
// memory bank controllers (MBC0/1/2/3) that sit between the MMU and the
// raw ROM/RAM bytes of a DMG cartridge image.
package cartridge

// Cartridge is the minimal interface the MMU needs for ROM/RAM banking.
// Implementations are ROM-only or one of the supported MBC variants.
// Addresses passed in are CPU addresses, not bank-relative offsets.
type Cartridge interface {
	// Read returns a byte from ROM (0x0000-0x7FFF) or external RAM
	// (0xA000-0xBFFF).
	Read(addr uint16) byte
	// Write handles MBC control writes (0x0000-0x7FFF) and external RAM
	// writes (0xA000-0xBFFF).
	Write(addr uint16, value byte)
}

// New picks an MBC implementation based on the cartridge type byte in
// the ROM header. Unknown types fall back to ROM-only: bank 0 and bank 1
// remain readable and control writes are simply ignored (§7 "Unknown MBC
// type").
func New(rom []byte) Cartridge {
	h, err := ParseHeader(rom)
	if err != nil {
		return NewROMOnly(rom)
	}
	switch h.CartType {
	case 0x00:
		return NewROMOnly(rom)
	case 0x01, 0x02, 0x03:
		return NewMBC1(rom, h.RAMSizeBytes)
	case 0x05, 0x06:
		return NewMBC2(rom)
	case 0x0F, 0x10, 0x11, 0x12, 0x13:
		return NewMBC3(rom, h.RAMSizeBytes)
	default:
		return NewROMOnly(rom)
	}
}
