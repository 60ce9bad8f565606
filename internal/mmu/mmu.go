// Package mmu wires the CPU-visible 16-bit address space together:
// cartridge ROM/RAM, work RAM, OAM DMA, echo RAM, and I/O register
// routing to the timer, joypad, PPU, and APU (§4.2).
package mmu

import (
	"io"

	"github.com/asgaines/dmgo/internal/apu"
	"github.com/asgaines/dmgo/internal/cartridge"
	"github.com/asgaines/dmgo/internal/joypad"
	"github.com/asgaines/dmgo/internal/ppu"
	"github.com/asgaines/dmgo/internal/timer"
)

// MMU owns every addressable subsystem and dispatches CPU reads/writes
// to the right one.
type MMU struct {
	cart cartridge.Cartridge

	wram [0x2000]byte // 0xC000-0xDFFF, echoed at 0xE000-0xFDFF
	hram [0x7F]byte   // 0xFF80-0xFFFE

	ppu *ppu.PPU
	apu *apu.APU
	tm  *timer.Timer
	joy *joypad.Joypad

	ie    byte
	ifReg byte

	sb byte      // FF01, serial data (no link cable partner, §13 non-goal)
	sc byte      // FF02, serial control
	sw io.Writer // optional sink for bytes shifted out the serial port

	dma       byte
	dmaActive bool
	dmaSrc    uint16
	dmaIndex  int
}

// New constructs an MMU around a parsed cartridge, wiring each
// subsystem's interrupt requester back into the shared IF register.
func New(cart cartridge.Cartridge) *MMU {
	m := &MMU{cart: cart}
	m.ppu = ppu.New(func(bit int) { m.ifReg |= 1 << bit })
	m.apu = apu.New(44100)
	m.tm = timer.New(func() { m.ifReg |= 1 << 2 })
	m.joy = joypad.New(func() { m.ifReg |= 1 << 4 })
	return m
}

// PPU, APU, Timer, and Joypad expose the owned subsystems for the
// console driver and host to read framebuffers, pull audio, and post
// button state.
func (m *MMU) PPU() *ppu.PPU       { return m.ppu }
func (m *MMU) APU() *apu.APU       { return m.apu }
func (m *MMU) Timer() *timer.Timer { return m.tm }
func (m *MMU) Joypad() *joypad.Joypad { return m.joy }
func (m *MMU) Cartridge() cartridge.Cartridge { return m.cart }

// SetSerialWriter sets a sink that receives each byte shifted out the
// serial port (FF01) when a transfer is requested via FF02. There is no
// link cable peer, so this exists purely for tooling: test ROMs (e.g.
// blargg's suite) report pass/fail by writing ASCII text to serial.
func (m *MMU) SetSerialWriter(w io.Writer) { m.sw = w }

// Reset restores IE/IF and the transient I/O latches; subsystems reset
// themselves.
func (m *MMU) Reset() {
	m.ie, m.ifReg = 0, 0
	m.sb, m.sc = 0, 0
	m.dma, m.dmaActive, m.dmaSrc, m.dmaIndex = 0, false, 0, 0
	m.tm.Reset()
	m.joy.Reset()
	m.ppu.Reset()
	m.apu.CPUWrite(0xFF26, 0x00) // NR52 power-off clears APU channel state
}

// PendingInterrupts returns the bits set in both IE and IF, i.e. the
// interrupts the CPU is allowed to service right now.
func (m *MMU) PendingInterrupts() byte { return m.ie & m.ifReg & 0x1F }

// ClearInterrupt clears bit in IF after the CPU has begun servicing it.
func (m *MMU) ClearInterrupt(bit int) { m.ifReg &^= 1 << uint(bit) }

// IME-adjacent registers are exposed directly since the CPU package
// owns the enable flag itself.
func (m *MMU) IE() byte { return m.ie }
func (m *MMU) IF() byte { return m.ifReg }

func (m *MMU) Read(addr uint16) byte {
	switch {
	case addr < 0x8000:
		return m.cart.Read(addr)
	case addr >= 0x8000 && addr <= 0x9FFF:
		return m.ppu.CPURead(addr)
	case addr >= 0xA000 && addr <= 0xBFFF:
		return m.cart.Read(addr)
	case addr >= 0xC000 && addr <= 0xDFFF:
		return m.wram[addr-0xC000]
	case addr >= 0xE000 && addr <= 0xFDFF:
		return m.wram[addr-0x2000-0xC000]
	case addr >= 0xFE00 && addr <= 0xFE9F:
		if m.dmaActive {
			return 0xFF
		}
		return m.ppu.CPURead(addr)
	case addr >= 0xFEA0 && addr <= 0xFEFF:
		return 0xFF // unusable region
	case addr == 0xFF00:
		return m.joy.Read()
	case addr == 0xFF01:
		return m.sb
	case addr == 0xFF02:
		return 0x7E | m.sc
	case addr >= 0xFF04 && addr <= 0xFF07:
		return m.tm.Read(addr)
	case addr == 0xFF0F:
		return 0xE0 | (m.ifReg & 0x1F)
	case addr >= 0xFF10 && addr <= 0xFF3F:
		return m.apu.CPURead(addr)
	case addr == 0xFF40, addr == 0xFF41, addr == 0xFF42, addr == 0xFF43,
		addr == 0xFF44, addr == 0xFF45,
		addr == 0xFF47, addr == 0xFF48, addr == 0xFF49,
		addr == 0xFF4A, addr == 0xFF4B:
		return m.ppu.CPURead(addr)
	case addr == 0xFF46:
		return m.dma
	case addr >= 0xFF80 && addr <= 0xFFFE:
		return m.hram[addr-0xFF80]
	case addr == 0xFFFF:
		return m.ie
	default:
		return 0xFF
	}
}

func (m *MMU) Write(addr uint16, value byte) {
	switch {
	case addr < 0x8000:
		m.cart.Write(addr, value)
	case addr >= 0x8000 && addr <= 0x9FFF:
		m.ppu.CPUWrite(addr, value)
	case addr >= 0xA000 && addr <= 0xBFFF:
		m.cart.Write(addr, value)
	case addr >= 0xC000 && addr <= 0xDFFF:
		m.wram[addr-0xC000] = value
	case addr >= 0xE000 && addr <= 0xFDFF:
		m.wram[addr-0x2000-0xC000] = value
	case addr >= 0xFE00 && addr <= 0xFE9F:
		if m.dmaActive {
			return
		}
		m.ppu.CPUWrite(addr, value)
	case addr >= 0xFEA0 && addr <= 0xFEFF:
		// unusable, ignored
	case addr == 0xFF00:
		m.joy.Write(value)
	case addr == 0xFF01:
		m.sb = value
	case addr == 0xFF02:
		m.sc = value & 0x81
		if m.sc&0x80 != 0 && m.sw != nil {
			m.sw.Write([]byte{m.sb})
		}
		m.sc &^= 0x80 // no peer to transfer with; transfer "completes" instantly with no data movement
	case addr >= 0xFF04 && addr <= 0xFF07:
		m.tm.Write(addr, value)
	case addr == 0xFF0F:
		m.ifReg = value & 0x1F
	case addr >= 0xFF10 && addr <= 0xFF3F:
		m.apu.CPUWrite(addr, value)
	case addr == 0xFF40, addr == 0xFF41, addr == 0xFF42, addr == 0xFF43,
		addr == 0xFF44, addr == 0xFF45,
		addr == 0xFF47, addr == 0xFF48, addr == 0xFF49,
		addr == 0xFF4A, addr == 0xFF4B:
		m.ppu.CPUWrite(addr, value)
	case addr == 0xFF46:
		m.dma = value
		m.dmaActive = true
		m.dmaSrc = uint16(value) << 8
		m.dmaIndex = 0
	case addr >= 0xFF80 && addr <= 0xFFFE:
		m.hram[addr-0xFF80] = value
	case addr == 0xFFFF:
		m.ie = value
	}
}

// Tick advances every subsystem owned by the MMU by cycles T-cycles,
// including the 160-cycle OAM DMA burst (one byte copied per cycle)
// per §14's resolution.
func (m *MMU) Tick(cycles int) {
	if cycles <= 0 {
		return
	}
	m.tm.Tick(cycles)
	m.ppu.Tick(cycles)
	m.apu.Tick(cycles)

	for i := 0; i < cycles && m.dmaActive; i++ {
		v := m.Read(m.dmaSrc + uint16(m.dmaIndex))
		m.ppu.OAMDMAWrite(m.dmaIndex, v)
		m.dmaIndex++
		if m.dmaIndex >= 0xA0 {
			m.dmaActive = false
		}
	}
}
