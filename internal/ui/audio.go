package ui

import (
	"encoding/binary"
	"time"

	"github.com/asgaines/dmgo/internal/console"
)

// applyPlayerBufferSize sets the audio player's internal buffer to a
// small size for low latency: ~20ms in low-latency mode (or while fast-
// forwarding), ~40ms otherwise.
func (a *App) applyPlayerBufferSize() {
	if a.audioPlayer == nil {
		return
	}
	bufMs := 40
	if a.cfg.AudioLowLatency || a.fast {
		bufMs = 20
	}
	a.audioPlayer.SetBufferSize(time.Duration(bufMs) * time.Millisecond)
}

// apuStream implements io.Reader by pulling float32 stereo frames from
// the console's audio ring buffer (§6 AudioRead) and converting them to
// 16-bit little-endian stereo PCM, the format ebiten's audio.Player
// expects.
type apuStream struct {
	c          *console.Console
	mono       bool
	muted      *bool
	underruns  int
	lastPulled int
}

func (s *apuStream) Read(p []byte) (int, error) {
	if len(p) < 4 || s == nil || s.c == nil {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}
	if s.muted != nil && *s.muted {
		for i := range p {
			p[i] = 0
		}
		time.Sleep(5 * time.Millisecond)
		return len(p), nil
	}

	wantFrames := len(p) / 4
	buf := make([]float32, wantFrames*2)
	n := s.c.AudioRead(buf)
	if n == 0 {
		for i := range p {
			p[i] = 0
		}
		s.underruns++
		s.lastPulled = 0
		return len(p), nil
	}

	for i := 0; i < n; i++ {
		l := int16(buf[2*i] * 32767)
		r := int16(buf[2*i+1] * 32767)
		off := i * 4
		if s.mono {
			m := int16((int32(l) + int32(r)) / 2)
			binary.LittleEndian.PutUint16(p[off:], uint16(m))
			binary.LittleEndian.PutUint16(p[off+2:], uint16(m))
		} else {
			binary.LittleEndian.PutUint16(p[off:], uint16(l))
			binary.LittleEndian.PutUint16(p[off+2:], uint16(r))
		}
	}
	s.lastPulled = n
	return n * 4, nil
}
