// Command gbemu is the windowed DMG front-end: an ebiten.Game that wraps
// a console.Console, polls the keyboard for the 8 buttons, and plays
// back the APU's sample stream (§1 "external collaborators").
package main

import (
	"fmt"
	"hash/crc32"
	"image"
	"image/png"
	"log"
	"os"
	"strings"
	"time"

	"github.com/asgaines/dmgo/internal/console"
	"github.com/asgaines/dmgo/internal/ui"
	"github.com/urfave/cli"
)

func runHeadless(c *console.Console, frames int, pngPath, expectCRC string) error {
	if frames <= 0 {
		frames = 1
	}

	start := time.Now()
	for i := 0; i < frames; i++ {
		c.Step()
	}
	dur := time.Since(start)

	pix := framebufferRGBA(c)
	crc := crc32.ChecksumIEEE(pix)
	fps := float64(frames) / dur.Seconds()

	log.Printf("headless: frames=%d elapsed=%s fps=%.2f fb_crc32=%08x",
		frames, dur.Truncate(time.Millisecond), fps, crc)

	if pngPath != "" {
		if err := saveFramePNG(pix, 160, 144, pngPath); err != nil {
			return fmt.Errorf("write PNG: %w", err)
		}
		log.Printf("wrote %s", pngPath)
	}

	if expectCRC != "" {
		want := strings.TrimPrefix(strings.ToLower(expectCRC), "0x")
		got := fmt.Sprintf("%08x", crc)
		if got != want {
			return fmt.Errorf("checksum mismatch: got %s, want %s", got, want)
		}
	}
	return nil
}

// framebufferRGBA converts the console's ARGB8888 framebuffer into the
// byte-per-channel RGBA image.Pix layout used for PNG export and CRC.
func framebufferRGBA(c *console.Console) []byte {
	fb := c.Framebuffer()
	out := make([]byte, len(fb)*4)
	for i, px := range fb {
		a := byte(px >> 24)
		r := byte(px >> 16)
		g := byte(px >> 8)
		b := byte(px)
		out[i*4+0] = r
		out[i*4+1] = g
		out[i*4+2] = b
		out[i*4+3] = a
	}
	return out
}

func saveFramePNG(pix []byte, w, h int, path string) error {
	img := &image.RGBA{
		Pix:    make([]byte, len(pix)),
		Stride: 4 * w,
		Rect:   image.Rect(0, 0, w, h),
	}
	copy(img.Pix, pix)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

func run(c *cli.Context) error {
	romPath := c.String("rom")
	if romPath == "" {
		cli.ShowAppHelp(c)
		return fmt.Errorf("-rom is required")
	}

	m := console.New()
	if !m.LoadCartridge(romPath) {
		log.Fatalf("failed to load cartridge %s", romPath)
	}
	log.Printf("ROM: %s", m.CartridgeInfo())
	m.SetClassicGreen(c.String("palette") == "green")

	if c.Bool("headless") {
		if err := runHeadless(m, c.Int("frames"), c.String("outpng"), c.String("expect")); err != nil {
			return err
		}
		return nil
	}

	uiCfg := ui.Config{Title: c.String("title"), Scale: c.Int("scale"), Trace: c.Bool("trace")}
	app := ui.NewApp(uiCfg, m)
	return app.Run()
}

func main() {
	app := cli.NewApp()
	app.Name = "gbemu"
	app.Usage = "a DMG Game Boy emulator"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "rom", Usage: "path to ROM (.gb)"},
		cli.IntFlag{Name: "scale", Value: 3, Usage: "window scale"},
		cli.StringFlag{Name: "title", Value: "gbemu", Usage: "window title"},
		cli.BoolFlag{Name: "trace", Usage: "stored in the UI config; no instruction log is written"},
		cli.StringFlag{Name: "palette", Value: "gray", Usage: "framebuffer palette: gray or green"},
		cli.BoolFlag{Name: "headless", Usage: "run without a window"},
		cli.IntFlag{Name: "frames", Value: 300, Usage: "frames to run in headless mode"},
		cli.StringFlag{Name: "outpng", Usage: "write the last framebuffer to a PNG at this path"},
		cli.StringFlag{Name: "expect", Usage: "assert the last frame's CRC32 (hex)"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
