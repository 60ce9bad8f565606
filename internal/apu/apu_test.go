package apu

import "testing"

func TestCh2TriggerEnablesChannel(t *testing.T) {
	a := New(44100)
	a.CPUWrite(0xFF17, 0xF0) // NR22: max volume, DAC on
	a.CPUWrite(0xFF19, 0x80) // NR24: trigger
	if !a.ch2.enabled {
		t.Fatalf("channel 2 should be enabled after trigger with DAC on")
	}
}

func TestCh2DACOffDisablesChannel(t *testing.T) {
	a := New(44100)
	a.CPUWrite(0xFF17, 0x00) // NR22: DAC off (top 5 bits zero)
	a.CPUWrite(0xFF19, 0x80)
	if a.ch2.enabled {
		t.Fatalf("channel with DAC off should never report enabled")
	}
}

func TestPowerOffResetsRegisters(t *testing.T) {
	a := New(44100)
	a.CPUWrite(0xFF24, 0x77)
	a.CPUWrite(0xFF26, 0x00) // power off
	if a.enabled {
		t.Fatalf("APU should be disabled after NR52 power-off write")
	}
	if a.nr50 != 0 {
		t.Fatalf("power-off should clear mixing registers, nr50=%02X", a.nr50)
	}
}

func TestTickProducesStereoSamples(t *testing.T) {
	a := New(44100)
	a.CPUWrite(0xFF17, 0xF0)
	a.CPUWrite(0xFF18, 0x00)
	a.CPUWrite(0xFF19, 0x87) // trigger with a nonzero frequency
	a.Tick(cpuHz / 100)      // ~10ms worth of cycles
	if a.StereoAvailable() == 0 {
		t.Fatalf("expected stereo samples to accumulate after ticking")
	}
	frames := a.PullStereo(8)
	if len(frames) == 0 {
		t.Fatalf("PullStereo returned no samples")
	}
}

func TestWaveRAMReadWrite(t *testing.T) {
	a := New(44100)
	a.CPUWrite(0xFF30, 0xAB)
	if got := a.CPURead(0xFF30); got != 0xAB {
		t.Fatalf("wave RAM byte got %02X want AB", got)
	}
}
