package ppu

import "sort"

// InterruptRequester raises a bit in the CPU's IF register (0:VBlank,
// 1:STAT, ...). The PPU holds one instead of a back-reference to the
// MMU so ownership stays one-directional (§9 back-reference strategy).
type InterruptRequester func(bit int)

// LineRegs is a snapshot of the registers that affect rendering, latched
// at the start of pixel transfer (mode 3) for one scanline. Games that
// change SCX/SCY/palettes mid-frame are rendered against the values
// that were live when that particular line was drawn.
type LineRegs struct {
	LCDC, SCX, SCY, BGP, OBP0, OBP1, WY, WX byte
	WinLine       byte
	WindowVisible bool
}

// PPU models VRAM/OAM, LCDC/STAT regs, LY/LYC, scanline timing, and the
// pixel pipeline that turns them into a displayable frame.
type PPU struct {
	vram [0x2000]byte // 0x8000-0x9FFF
	oam  [0xA0]byte   // 0xFE00-0xFE9F

	lcdc byte // FF40
	stat byte // FF41 (mode bits 0-1, coincidence flag bit2, enables bits3-6)
	scy  byte // FF42
	scx  byte // FF43
	ly   byte // FF44
	lyc  byte // FF45
	bgp  byte // FF47
	obp0 byte // FF48
	obp1 byte // FF49
	wy   byte // FF4A
	wx   byte // FF4B

	dot int // dots within current line [0..455]

	winLineCounter int
	lineRegs       [144]LineRegs

	framebuffer  [160 * 144]uint32
	classicGreen bool

	req InterruptRequester
}

var grayscalePalette = [4]uint32{0xFFFFFFFF, 0xFFAAAAAA, 0xFF555555, 0xFF000000}
var classicGreenPalette = [4]uint32{0xFF9BBC0F, 0xFF8BAC0F, 0xFF306230, 0xFF0F380F}

func New(req InterruptRequester) *PPU { return &PPU{req: req} }

// Reset zeroes every register, VRAM, OAM and the frame, keeping only the
// interrupt requester; post-boot register values are written by the caller.
func (p *PPU) Reset() {
	*p = PPU{req: p.req}
}

// Framebuffer returns the most recently rendered frame as ARGB8888
// pixels, row-major, 160 wide by 144 tall.
func (p *PPU) Framebuffer() *[160 * 144]uint32 { return &p.framebuffer }

// SetClassicGreen toggles between the default grayscale palette and the
// classic DMG green-tinted palette for all four shades.
func (p *PPU) SetClassicGreen(classic bool) { p.classicGreen = classic }

// CPURead returns bytes for VRAM, OAM, and PPU IO registers. Returns 0xFF for others.
func (p *PPU) CPURead(addr uint16) byte {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		if (p.stat & 0x03) == 3 {
			return 0xFF
		}
		return p.vram[addr-0x8000]
	case addr >= 0xFE00 && addr <= 0xFE9F:
		m := p.stat & 0x03
		if m == 2 || m == 3 {
			return 0xFF
		}
		return p.oam[addr-0xFE00]
	case addr == 0xFF40:
		return p.lcdc
	case addr == 0xFF41:
		return 0x80 | (p.stat & 0x7F)
	case addr == 0xFF42:
		return p.scy
	case addr == 0xFF43:
		return p.scx
	case addr == 0xFF44:
		return p.ly
	case addr == 0xFF45:
		return p.lyc
	case addr == 0xFF47:
		return p.bgp
	case addr == 0xFF48:
		return p.obp0
	case addr == 0xFF49:
		return p.obp1
	case addr == 0xFF4A:
		return p.wy
	case addr == 0xFF4B:
		return p.wx
	default:
		return 0xFF
	}
}

// CPUWrite handles writes to VRAM, OAM, and PPU IO regs. Others are ignored here.
func (p *PPU) CPUWrite(addr uint16, value byte) {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		if (p.stat & 0x03) == 3 {
			return
		}
		p.vram[addr-0x8000] = value
	case addr >= 0xFE00 && addr <= 0xFE9F:
		m := p.stat & 0x03
		if m == 2 || m == 3 {
			return
		}
		p.oam[addr-0xFE00] = value
	case addr == 0xFF40:
		prev := p.lcdc
		p.lcdc = value
		if (p.lcdc&0x80) == 0 && (prev&0x80) != 0 {
			p.ly = 0
			p.dot = 0
			p.setMode(0)
			p.updateLYC()
		} else if (p.lcdc&0x80) != 0 && (prev&0x80) == 0 {
			p.ly = 0
			p.dot = 0
			p.winLineCounter = 0
			p.setMode(2)
			p.updateLYC()
		}
	case addr == 0xFF41:
		p.stat = (p.stat & 0x07) | (value & 0x78)
	case addr == 0xFF42:
		p.scy = value
	case addr == 0xFF43:
		p.scx = value
	case addr == 0xFF44:
		// read-only; writes ignored (§4.2, §8 invariant 8)
	case addr == 0xFF45:
		p.lyc = value
		p.updateLYC()
	case addr == 0xFF47:
		p.bgp = value
	case addr == 0xFF48:
		p.obp0 = value
	case addr == 0xFF49:
		p.obp1 = value
	case addr == 0xFF4A:
		p.wy = value
	case addr == 0xFF4B:
		p.wx = value
	}
}

// OAMDMAWrite writes OAM byte index (0..159) directly, bypassing the
// CPU-facing mode lock; the DMA controller in the MMU drives this
// during the 160-cycle transfer burst (§4.2).
func (p *PPU) OAMDMAWrite(index int, value byte) {
	if index >= 0 && index < len(p.oam) {
		p.oam[index] = value
	}
}

// Read implements VRAMReader for the rendering pipeline, which runs
// with full access regardless of the CPU-facing mode lock.
func (p *PPU) Read(addr uint16) byte {
	if addr >= 0x8000 && addr <= 0x9FFF {
		return p.vram[addr-0x8000]
	}
	return 0xFF
}

// LineRegs returns the register snapshot latched for scanline ly.
func (p *PPU) LineRegs(ly int) LineRegs {
	if ly < 0 || ly >= len(p.lineRegs) {
		return LineRegs{}
	}
	return p.lineRegs[ly]
}

// Tick advances PPU state by the given number of dots (CPU cycles).
func (p *PPU) Tick(cycles int) {
	if cycles <= 0 {
		return
	}
	for i := 0; i < cycles; i++ {
		if (p.lcdc & 0x80) == 0 {
			continue
		}
		p.dot++
		var mode byte
		if p.ly >= 144 {
			mode = 1
		} else {
			switch {
			case p.dot < 80:
				mode = 2
			case p.dot < 80+172:
				mode = 3
			default:
				mode = 0
			}
		}
		p.setMode(mode)

		if p.dot >= 456 {
			p.dot = 0
			p.ly++
			if p.ly == 144 {
				if p.req != nil {
					p.req(0)
				}
				if (p.stat & (1 << 4)) != 0 {
					if p.req != nil {
						p.req(1)
					}
				}
			} else if p.ly > 153 {
				p.ly = 0
				p.winLineCounter = 0
			}
			p.updateLYC()
			if p.ly >= 144 {
				p.setMode(1)
			} else {
				p.setMode(2)
			}
		}
	}
}

func (p *PPU) setMode(mode byte) {
	prev := p.stat & 0x03
	p.stat = (p.stat &^ 0x03) | (mode & 0x03)
	if prev == mode {
		return
	}
	switch mode {
	case 0: // HBlank: pixel transfer for this line just finished.
		p.renderScanline(p.ly)
		if (p.stat & (1 << 3)) != 0 {
			if p.req != nil {
				p.req(1)
			}
		}
	case 2: // OAM search
		if (p.stat & (1 << 5)) != 0 {
			if p.req != nil {
				p.req(1)
			}
		}
	case 3: // Pixel transfer is about to start: latch this line's regs.
		p.captureLineRegs(p.ly)
	}
}

func (p *PPU) updateLYC() {
	if p.ly == p.lyc {
		p.stat |= 1 << 2
		if (p.stat & (1 << 6)) != 0 {
			if p.req != nil {
				p.req(1)
			}
		}
	} else {
		p.stat &^= 1 << 2
	}
}

// captureLineRegs latches the registers that affect how line ly is
// rendered, including whether the window is visible this line and
// which internal window-line the window fetcher should use.
func (p *PPU) captureLineRegs(ly byte) {
	windowVisible := p.lcdc&0x20 != 0 && p.wy <= ly && p.wx < 166
	winLine := byte(p.winLineCounter)
	if windowVisible {
		p.winLineCounter++
	}
	p.lineRegs[ly] = LineRegs{
		LCDC: p.lcdc, SCX: p.scx, SCY: p.scy,
		BGP: p.bgp, OBP0: p.obp0, OBP1: p.obp1,
		WY: p.wy, WX: p.wx,
		WinLine: winLine, WindowVisible: windowVisible,
	}
}

// renderScanline composes BG, window, and sprite layers for ly into the
// framebuffer using the registers latched at the start of this line's
// pixel transfer (§4.4).
func (p *PPU) renderScanline(ly byte) {
	if ly >= 144 {
		return
	}
	lr := p.lineRegs[ly]
	bgWinEnabled := lr.LCDC&0x01 != 0

	var bgci [160]byte
	if bgWinEnabled {
		bgMapBase := uint16(0x9800)
		if lr.LCDC&0x08 != 0 {
			bgMapBase = 0x9C00
		}
		tileData8000 := lr.LCDC&0x10 != 0
		bgci = RenderBGScanlineUsingFetcher(p, bgMapBase, tileData8000, lr.SCX, lr.SCY, ly)

		if lr.WindowVisible {
			winMapBase := uint16(0x9800)
			if lr.LCDC&0x40 != 0 {
				winMapBase = 0x9C00
			}
			winXStart := int(lr.WX) - 7
			winRow := RenderWindowScanlineUsingFetcher(p, winMapBase, tileData8000, winXStart, lr.WinLine)
			for x := winXStart; x < 160; x++ {
				if x < 0 {
					continue
				}
				bgci[x] = winRow[x]
			}
		}
	}

	var spriteRow [160]byte
	if lr.LCDC&0x02 != 0 {
		tall := lr.LCDC&0x04 != 0
		spriteRow = ComposeSpriteLine(p, p.spritesOnLine(ly, tall), ly, bgci, tall)
	}

	pal := grayscalePalette
	if p.classicGreen {
		pal = classicGreenPalette
	}
	base := int(ly) * 160
	for x := 0; x < 160; x++ {
		ci := bgci[x]
		if !bgWinEnabled {
			ci = 0
		}
		color := pal[shade(lr.BGP, ci)]
		if sp := spriteRow[x]; sp != 0 {
			spPal := lr.OBP1
			if sp&0x04 == 0 {
				spPal = lr.OBP0
			}
			color = pal[shade(spPal, sp&0x03)]
		}
		p.framebuffer[base+x] = color
	}
}

func shade(palReg byte, ci byte) byte {
	return (palReg >> (ci * 2)) & 0x03
}

// spritesOnLine selects up to 10 OAM entries that cover scanline ly,
// scanning OAM index 39 down to 0 (§14 sprite-selection resolution).
func (p *PPU) spritesOnLine(ly byte, tall bool) []Sprite {
	height := 8
	if tall {
		height = 16
	}
	var out []Sprite
	for i := 39; i >= 0 && len(out) < 10; i-- {
		base := i * 4
		y := int(p.oam[base]) - 16
		x := int(p.oam[base+1]) - 8
		row := int(ly) - y
		if row < 0 || row >= height {
			continue
		}
		out = append(out, Sprite{X: x, Y: y, Tile: p.oam[base+2], Attr: p.oam[base+3], OAMIndex: i})
	}
	return out
}

// Sprite is one OAM entry translated into screen-space coordinates.
type Sprite struct {
	X, Y     int
	Tile     byte
	Attr     byte
	OAMIndex int
}

const (
	spriteAttrPalette  = 1 << 4
	spriteAttrFlipX    = 1 << 5
	spriteAttrFlipY    = 1 << 6
	spriteAttrPriority = 1 << 7 // 1: hidden behind BG color indices 1-3
)

// ComposeSpriteLine overlays sprites onto a BG color-index row. The
// returned byte packs the sprite's 2-bit color index in bits 0-1 and
// its palette selector (0=OBP0, 1=OBP1) in bit 2; zero means no opaque
// sprite pixel, so callers fall through to bgci.
func ComposeSpriteLine(mem VRAMReader, sprites []Sprite, ly byte, bgci [160]byte, tallSprites bool) [160]byte {
	var out [160]byte

	ordered := append([]Sprite(nil), sprites...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].X != ordered[j].X {
			return ordered[i].X > ordered[j].X
		}
		return ordered[i].OAMIndex > ordered[j].OAMIndex
	})

	height := 8
	if tallSprites {
		height = 16
	}
	for _, s := range ordered {
		row := int(ly) - s.Y
		if row < 0 || row >= height {
			continue
		}
		if s.Attr&spriteAttrFlipY != 0 {
			row = height - 1 - row
		}
		tile := s.Tile
		if tallSprites {
			tile &^= 0x01
			if row >= 8 {
				tile |= 0x01
				row -= 8
			}
		}
		base := uint16(0x8000) + uint16(tile)*16 + uint16(row)*2
		lo := mem.Read(base)
		hi := mem.Read(base + 1)
		for col := 0; col < 8; col++ {
			x := s.X + col
			if x < 0 || x >= 160 {
				continue
			}
			bit := col
			if s.Attr&spriteAttrFlipX == 0 {
				bit = 7 - col
			}
			ci := ((hi>>uint(bit))&1)<<1 | ((lo >> uint(bit)) & 1)
			if ci == 0 {
				continue
			}
			if s.Attr&spriteAttrPriority != 0 && bgci[x] != 0 {
				continue
			}
			val := ci
			if s.Attr&spriteAttrPalette != 0 {
				val |= 0x04
			}
			out[x] = val
		}
	}
	return out
}

// Expose palettes and scroll for host/renderer convenience.
func (p *PPU) BGP() byte  { return p.bgp }
func (p *PPU) OBP0() byte { return p.obp0 }
func (p *PPU) OBP1() byte { return p.obp1 }
func (p *PPU) LCDC() byte { return p.lcdc }
func (p *PPU) SCY() byte  { return p.scy }
func (p *PPU) SCX() byte  { return p.scx }
func (p *PPU) WY() byte   { return p.wy }
func (p *PPU) WX() byte   { return p.wx }
