// Package ui is the windowed front-end: an ebiten.Game wrapping a
// console.Console, translating keyboard state into the 8 Game Boy
// buttons and the console's audio ring buffer into ebiten/oto playback.
package ui

import (
	"time"

	"github.com/asgaines/dmgo/internal/console"
	"github.com/asgaines/dmgo/internal/joypad"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// gbFPS is the Game Boy's true frame rate: 4.194304 MHz / 70224 T-cycles.
const gbFPS = 4194304.0 / 70224.0

type App struct {
	cfg Config
	m   *console.Console
	tex *ebiten.Image
	pix []byte // scratch RGBA buffer reused each Draw

	paused bool
	fast   bool // hold Tab to run at 4x

	lastTime time.Time
	frameAcc float64

	audioMuted  bool
	audioCtx    *audio.Context
	audioPlayer *audio.Player
	audioSrc    *apuStream

	classicGreen bool

	toastMsg   string
	toastUntil time.Time
}

// NewApp builds a windowed front-end around an already-loaded console.
func NewApp(cfg Config, m *console.Console) *App {
	cfg.Defaults()
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(160*cfg.Scale, 144*cfg.Scale)
	if m != nil && m.CartridgeInfo() != "" {
		ebiten.SetWindowTitle(cfg.Title + " - " + m.CartridgeInfo())
	}
	return &App{
		cfg:      cfg,
		m:        m,
		lastTime: time.Now(),
		audioCtx: audio.NewContext(44100),
		pix:      make([]byte, 160*144*4),
	}
}

func (a *App) Run() error { return ebiten.RunGame(a) }

func (a *App) Update() error {
	if a.audioPlayer == nil {
		a.audioMuted = true
		a.audioSrc = &apuStream{c: a.m, mono: !a.cfg.AudioStereo, muted: &a.audioMuted}
		if p, err := a.audioCtx.NewPlayer(a.audioSrc); err == nil {
			a.audioPlayer = p
			a.applyPlayerBufferSize()
			a.audioPlayer.Play()
		}
	}

	a.m.SetButton(joypad.Right, ebiten.IsKeyPressed(ebiten.KeyRight))
	a.m.SetButton(joypad.Left, ebiten.IsKeyPressed(ebiten.KeyLeft))
	a.m.SetButton(joypad.Up, ebiten.IsKeyPressed(ebiten.KeyUp))
	a.m.SetButton(joypad.Down, ebiten.IsKeyPressed(ebiten.KeyDown))
	a.m.SetButton(joypad.A, ebiten.IsKeyPressed(ebiten.KeyZ))
	a.m.SetButton(joypad.B, ebiten.IsKeyPressed(ebiten.KeyX))
	a.m.SetButton(joypad.Start, ebiten.IsKeyPressed(ebiten.KeyEnter))
	a.m.SetButton(joypad.Select, ebiten.IsKeyPressed(ebiten.KeyShiftRight))

	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		a.paused = !a.paused
		a.toast(map[bool]string{true: "Paused", false: "Resumed"}[a.paused])
	}
	prevFast := a.fast
	a.fast = ebiten.IsKeyPressed(ebiten.KeyTab)

	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		a.m.Reset()
		a.toast("Reset")
	}
	if !a.paused && inpututil.IsKeyJustPressed(ebiten.KeyN) {
		a.m.Step()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		ebiten.SetFullscreen(!ebiten.IsFullscreen())
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyG) {
		a.classicGreen = !a.classicGreen
		a.m.SetClassicGreen(a.classicGreen)
		a.toast(map[bool]string{true: "Classic green palette", false: "Grayscale palette"}[a.classicGreen])
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyM) {
		a.cfg.AudioStereo = !a.cfg.AudioStereo
		a.audioSrc.mono = !a.cfg.AudioStereo
	}

	muted := a.paused
	if muted != a.audioMuted {
		a.audioMuted = muted
		a.m.SetAudioEnabled(!muted)
	}
	if prevFast != a.fast {
		a.applyPlayerBufferSize()
	}

	if !a.paused {
		now := time.Now()
		dt := now.Sub(a.lastTime).Seconds()
		if dt < 0 {
			dt = 0
		}
		a.lastTime = now
		speed := 1.0
		if a.fast {
			speed = 4.0
		}
		a.frameAcc += dt * gbFPS * speed
		steps := 0
		for a.frameAcc >= 1.0 && steps < 10 { // cap to avoid a spiral of death
			a.m.Step()
			a.frameAcc -= 1.0
			steps++
		}
	}
	return nil
}

func (a *App) Draw(screen *ebiten.Image) {
	if a.tex == nil {
		a.tex = ebiten.NewImage(160, 144)
	}
	fb := a.m.Framebuffer()
	for i, px := range fb {
		a.pix[i*4+0] = byte(px >> 16)
		a.pix[i*4+1] = byte(px >> 8)
		a.pix[i*4+2] = byte(px)
		a.pix[i*4+3] = byte(px >> 24)
	}
	a.tex.WritePixels(a.pix)
	screen.DrawImage(a.tex, nil)

	if a.toastMsg != "" && time.Now().Before(a.toastUntil) {
		ebitenutil.DebugPrintAt(screen, a.toastMsg, 6, 4)
	}
}

func (a *App) Layout(outW, outH int) (int, int) { return 160, 144 }

func (a *App) toast(msg string) {
	a.toastMsg = msg
	a.toastUntil = time.Now().Add(2 * time.Second)
}
