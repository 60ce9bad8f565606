// Package console wires cartridge, MMU, and CPU together and drives the
// one-frame loop the host calls into: fetch one CPU instruction, let it
// tick the MMU (which advances PPU/Timer/APU by the instruction's cycle
// cost) by the same amount, repeat until a full 70224-T-cycle frame has
// elapsed (§2, §6).
package console

import (
	"fmt"
	"log"
	"os"

	"github.com/asgaines/dmgo/internal/cartridge"
	"github.com/asgaines/dmgo/internal/cpu"
	"github.com/asgaines/dmgo/internal/joypad"
	"github.com/asgaines/dmgo/internal/mmu"
)

// cyclesPerFrame is 4.194304 MHz / 59.7275 Hz, exactly 70224 T-cycles (§3).
const cyclesPerFrame = 70224

// maxInstructionsPerFrame guards against a runaway frame: a CPU stuck
// looping without ever reaching the cycle budget (§7).
const maxInstructionsPerFrame = 100_000

// Console owns every subsystem and exposes the host-facing API of §6:
// load a ROM, reset, step one frame, read the framebuffer/audio, and
// forward button state.
type Console struct {
	cpu    *cpu.CPU
	mmu    *mmu.MMU
	cart   cartridge.Cartridge
	header *cartridge.Header

	romPath string
}

// New returns a Console with nothing loaded; Step is a no-op until
// LoadCartridge succeeds.
func New() *Console {
	return &Console{}
}

// LoadCartridge reads the ROM at path, parses its header, attaches an
// appropriate MBC, wires a fresh MMU/CPU pair around it, and resets to
// post-boot-ROM state. Returns false (and logs) on any read/parse
// failure, per §7's "ROM read failure" policy.
func (c *Console) LoadCartridge(path string) bool {
	rom, err := os.ReadFile(path)
	if err != nil {
		log.Printf("console: read cartridge %q: %v", path, err)
		return false
	}
	header, err := cartridge.ParseHeader(rom)
	if err != nil {
		log.Printf("console: parse header of %q: %v", path, err)
		return false
	}

	c.cart = cartridge.New(rom)
	c.header = header
	c.mmu = mmu.New(c.cart)
	c.cpu = cpu.New(c.mmu)
	c.romPath = path
	c.Reset()
	return true
}

// Reset restores the post-boot-ROM power-on state of CPU/MMU/PPU/APU/
// Timer (§3 Lifecycle): register file to the documented DMG values, and
// every I/O register to the standard post-boot table.
func (c *Console) Reset() {
	if c.cpu == nil || c.mmu == nil {
		return
	}
	c.mmu.Reset()
	c.cpu.ResetNoBoot()
	c.cpu.SetPC(0x0100)
	for _, r := range postBootIO {
		c.mmu.Write(r.addr, r.value)
	}
}

type ioDefault struct {
	addr  uint16
	value byte
}

// postBootIO is the standard DMG post-boot register table referenced by
// §3's Lifecycle section: the values every register holds the instant
// the (unimplemented, non-goal) boot ROM hands control to the cartridge.
var postBootIO = []ioDefault{
	{0xFF00, 0xCF},
	{0xFF01, 0x00},
	{0xFF02, 0x7E},
	{0xFF05, 0x00}, // TIMA
	{0xFF06, 0x00}, // TMA
	{0xFF07, 0x00}, // TAC
	{0xFF10, 0x80}, // NR10
	{0xFF11, 0xBF}, // NR11
	{0xFF12, 0xF3}, // NR12
	{0xFF14, 0xBF}, // NR14
	{0xFF16, 0x3F}, // NR21
	{0xFF17, 0x00}, // NR22
	{0xFF19, 0xBF}, // NR24
	{0xFF1A, 0x7F}, // NR30
	{0xFF1B, 0xFF}, // NR31
	{0xFF1C, 0x9F}, // NR32
	{0xFF1E, 0xBF}, // NR34
	{0xFF20, 0xFF}, // NR41
	{0xFF21, 0x00}, // NR42
	{0xFF22, 0x00}, // NR43
	{0xFF23, 0xBF}, // NR44
	{0xFF24, 0x77}, // NR50
	{0xFF25, 0xF3}, // NR51
	{0xFF26, 0xF1}, // NR52
	{0xFF40, 0x91}, // LCDC
	{0xFF42, 0x00}, // SCY
	{0xFF43, 0x00}, // SCX
	{0xFF45, 0x00}, // LYC
	{0xFF47, 0xFC}, // BGP
	{0xFF48, 0xFF}, // OBP0
	{0xFF49, 0xFF}, // OBP1
	{0xFF4A, 0x00}, // WY
	{0xFF4B, 0x00}, // WX
	{0xFFFF, 0x00}, // IE
}

// Step executes one full frame (70224 T-cycles) by repeatedly stepping
// the CPU, which ticks PPU/Timer/APU by its own cycle cost as a side
// effect (§2 Control flow). Returns true on completion; if the frame
// doesn't reach the cycle budget within maxInstructionsPerFrame
// instructions, the frame is aborted and logged (§7 "Runaway frame").
func (c *Console) Step() bool {
	if c.cpu == nil {
		return false
	}
	cycles := 0
	instructions := 0
	for cycles < cyclesPerFrame {
		cycles += c.cpu.Step()
		instructions++
		if instructions > maxInstructionsPerFrame {
			log.Printf("console: runaway frame aborted after %d instructions (%d/%d cycles)", instructions, cycles, cyclesPerFrame)
			return false
		}
	}
	return true
}

// Framebuffer returns the most recently rendered frame as ARGB8888
// pixels, row-major, 160x144 (§6).
func (c *Console) Framebuffer() *[160 * 144]uint32 {
	if c.mmu == nil {
		var empty [160 * 144]uint32
		return &empty
	}
	return c.mmu.PPU().Framebuffer()
}

// SetButton updates one of the 8 buttons; a press may raise the Joypad
// interrupt (IF bit 4) through the joypad's falling-edge detection (§6).
func (c *Console) SetButton(btn joypad.Button, pressed bool) {
	if c.mmu == nil {
		return
	}
	c.mmu.Joypad().SetButton(btn, pressed)
}

// SetAudioEnabled toggles whether the APU pushes generated samples into
// its ring buffer; channel timing keeps running regardless (§6).
func (c *Console) SetAudioEnabled(enabled bool) {
	if c.mmu == nil {
		return
	}
	c.mmu.APU().SetOutputEnabled(enabled)
}

// SetClassicGreen swaps the framebuffer palette between the default
// grayscale and the classic DMG green tint (§4.4, §6).
func (c *Console) SetClassicGreen(classic bool) {
	if c.mmu == nil {
		return
	}
	c.mmu.PPU().SetClassicGreen(classic)
}

// AudioRead pulls up to len(out)/2 interleaved stereo float32 samples
// (44100 Hz, [-1,1]) from the APU's ring buffer into out and returns the
// number of stereo frames written (§6, §4.7).
func (c *Console) AudioRead(out []float32) int {
	if c.mmu == nil || len(out) < 2 {
		return 0
	}
	wantFrames := len(out) / 2
	frames := c.mmu.APU().PullStereo(wantFrames)
	n := 0
	for i := 0; i+1 < len(frames); i += 2 {
		out[2*n] = float32(frames[i]) / 32768
		out[2*n+1] = float32(frames[i+1]) / 32768
		n++
	}
	return n
}

// CartridgeInfo returns the cartridge title and its header type byte in
// hex, e.g. "TETRIS (00)" (§6).
func (c *Console) CartridgeInfo() string {
	if c.header == nil {
		return ""
	}
	return fmt.Sprintf("%s (%02X)", c.header.Title, c.header.CartType)
}

// ROMPath returns the path LoadCartridge was last called with, or "" if
// nothing is loaded.
func (c *Console) ROMPath() string { return c.romPath }
