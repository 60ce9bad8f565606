package console

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/asgaines/dmgo/internal/joypad"
)

// buildROM returns a 32 KiB ROM-only image with code at 0x0100 and a
// valid-enough header (title, type 0x00, ROM size code 0x00 = 2 banks).
func buildROM(t *testing.T, code []byte) []byte {
	t.Helper()
	rom := make([]byte, 0x8000)
	copy(rom[0x0150:], code)
	rom[0x0100] = 0x00 // NOP
	rom[0x0101] = 0xC3 // JP 0x0150
	rom[0x0102] = 0x50
	rom[0x0103] = 0x01
	copy(rom[0x0134:0x0143], []byte("TESTROM"))
	rom[0x0147] = 0x00 // ROM ONLY
	rom[0x0148] = 0x00 // 32KB/2 banks
	rom[0x0149] = 0x00 // no RAM
	return rom
}

func writeROM(t *testing.T, rom []byte) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.gb")
	if err := os.WriteFile(path, rom, 0o644); err != nil {
		t.Fatalf("write rom: %v", err)
	}
	return path
}

// infiniteLoop is the tightest possible frame driver: JR -2 spins on
// itself forever, letting Step's cycle budget (not program logic) decide
// when the frame ends.
var infiniteLoop = []byte{0x18, 0xFE} // JR -2

func TestLoadCartridge_BadPath(t *testing.T) {
	c := New()
	if c.LoadCartridge(filepath.Join(t.TempDir(), "missing.gb")) {
		t.Fatal("expected LoadCartridge to fail for a missing file")
	}
}

func TestLoadCartridge_ResetState(t *testing.T) {
	c := New()
	path := writeROM(t, buildROM(t, infiniteLoop))
	if !c.LoadCartridge(path) {
		t.Fatal("LoadCartridge failed")
	}
	if c.cpu.PC != 0x0100 {
		t.Fatalf("PC after reset got %#04x want 0x0100", c.cpu.PC)
	}
	if c.cpu.SP != 0xFFFE {
		t.Fatalf("SP after reset got %#04x want 0xFFFE", c.cpu.SP)
	}
	if got := c.mmu.Read(0xFF40); got != 0x91 {
		t.Fatalf("LCDC after reset got %#02x want 0x91", got)
	}
	if info := c.CartridgeInfo(); info != "TESTROM (00)" {
		t.Fatalf("CartridgeInfo got %q want %q", info, "TESTROM (00)")
	}
}

func TestStep_CompletesOneFrame(t *testing.T) {
	c := New()
	path := writeROM(t, buildROM(t, infiniteLoop))
	if !c.LoadCartridge(path) {
		t.Fatal("LoadCartridge failed")
	}
	if !c.Step() {
		t.Fatal("Step() on a spinning ROM should complete a frame, not abort as runaway")
	}
}

// TestStep_FramebufferFullyWritten covers §8 invariant 7: after Step, the
// whole framebuffer holds a valid palette shade, not stale/zero pixels.
func TestStep_FramebufferFullyWritten(t *testing.T) {
	c := New()
	path := writeROM(t, buildROM(t, infiniteLoop))
	if !c.LoadCartridge(path) {
		t.Fatal("LoadCartridge failed")
	}
	c.Step()
	fb := c.Framebuffer()
	valid := map[uint32]bool{0xFFFFFFFF: true, 0xFFAAAAAA: true, 0xFF555555: true, 0xFF000000: true}
	for i, px := range fb {
		if !valid[px] {
			t.Fatalf("pixel %d has unexpected color %#08x", i, px)
		}
	}
}

func TestSetButton_RaisesJoypadInterrupt(t *testing.T) {
	c := New()
	path := writeROM(t, buildROM(t, infiniteLoop))
	if !c.LoadCartridge(path) {
		t.Fatal("LoadCartridge failed")
	}
	c.mmu.Write(0xFF00, 0x20) // select direction group (action bit set disables it)
	c.SetButton(joypad.Right, true)
	if c.mmu.Read(0xFF0F)&0x10 == 0 {
		t.Fatal("expected IF bit 4 (Joypad) to be set after a button press")
	}
}

func TestAudioRead_FrameCountWithinRequest(t *testing.T) {
	c := New()
	path := writeROM(t, buildROM(t, infiniteLoop))
	if !c.LoadCartridge(path) {
		t.Fatal("LoadCartridge failed")
	}
	c.Step()
	out := make([]float32, 256)
	n := c.AudioRead(out)
	if n < 0 || n > 128 {
		t.Fatalf("AudioRead frame count out of range: %d", n)
	}
}

func TestSetAudioEnabled_StopsBufferGrowth(t *testing.T) {
	c := New()
	path := writeROM(t, buildROM(t, infiniteLoop))
	if !c.LoadCartridge(path) {
		t.Fatal("LoadCartridge failed")
	}
	c.SetAudioEnabled(false)
	c.Step()
	out := make([]float32, 4)
	if n := c.AudioRead(out); n != 0 {
		t.Fatalf("AudioRead with audio disabled got %d frames, want 0", n)
	}
}

func TestSetClassicGreen_SwapsPalette(t *testing.T) {
	c := New()
	path := writeROM(t, buildROM(t, infiniteLoop))
	if !c.LoadCartridge(path) {
		t.Fatal("LoadCartridge failed")
	}
	c.SetClassicGreen(true)
	c.Step()
	fb := c.Framebuffer()
	greenShades := map[uint32]bool{0xFF9BBC0F: true, 0xFF8BAC0F: true, 0xFF306230: true, 0xFF0F380F: true}
	if !greenShades[fb[0]] {
		t.Fatalf("expected a classic-green shade at pixel 0, got %#08x", fb[0])
	}
}
