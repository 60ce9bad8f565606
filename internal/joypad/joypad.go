// Package joypad implements the 8-button JOYP (P1) matrix described in
// §4.6: two active-low select lines choose the direction or action
// button group (or both, OR'd together), and a falling edge on any
// selected line raises the Joypad interrupt.
package joypad

// Button identifies one of the eight DMG buttons.
type Button int

const (
	Right Button = iota
	Left
	Up
	Down
	A
	B
	Select
	Start
)

// InterruptRequester raises the Joypad interrupt (IF bit 4).
type InterruptRequester func()

// Joypad tracks which buttons are currently held and the host's last
// FF00 select write.
type Joypad struct {
	buttons byte // bit set = pressed; bits 0-3 dpad, 4-7 action (internal bookkeeping only)
	selectN byte // last written bits 4-5 of FF00 (active-low select)
	lastLo4 byte // last computed active-low lower nibble, for edge detection

	req InterruptRequester
}

func New(req InterruptRequester) *Joypad {
	return &Joypad{req: req}
}

// Reset clears all button state and the select latch.
func (j *Joypad) Reset() {
	j.buttons = 0
	j.selectN = 0x30
	j.lastLo4 = 0x0F
}

// SetButton updates whether btn is currently held down. A 0->1 ("now
// pressed") transition can raise the Joypad interrupt if that button's
// group is currently selected.
func (j *Joypad) SetButton(btn Button, pressed bool) {
	bit := byte(1) << uint(btn)
	if pressed {
		j.buttons |= bit
	} else {
		j.buttons &^= bit
	}
	j.updateInterrupt()
}

// Read returns the FF00 (JOYP) value: bits 7-6 read as 1, bits 5-4
// reflect the last select write, bits 3-0 are active-low button state
// for the selected group(s).
func (j *Joypad) Read() byte {
	return 0xC0 | (j.selectN & 0x30) | j.lowNibble()
}

// Write updates the select bits (4-5); all other bits are read-only.
func (j *Joypad) Write(value byte) {
	j.selectN = value & 0x30
	j.updateInterrupt()
}

// lowNibble computes the active-low button nibble for the currently
// selected group(s). Selecting neither group reads 0x0F (§3 invariant).
func (j *Joypad) lowNibble() byte {
	lo := byte(0x0F)
	if j.selectN&0x10 == 0 { // P14 low selects D-pad
		if j.buttons&(1<<Right) != 0 {
			lo &^= 0x01
		}
		if j.buttons&(1<<Left) != 0 {
			lo &^= 0x02
		}
		if j.buttons&(1<<Up) != 0 {
			lo &^= 0x04
		}
		if j.buttons&(1<<Down) != 0 {
			lo &^= 0x08
		}
	}
	if j.selectN&0x20 == 0 { // P15 low selects buttons
		if j.buttons&(1<<A) != 0 {
			lo &^= 0x01
		}
		if j.buttons&(1<<B) != 0 {
			lo &^= 0x02
		}
		if j.buttons&(1<<Select) != 0 {
			lo &^= 0x04
		}
		if j.buttons&(1<<Start) != 0 {
			lo &^= 0x08
		}
	}
	return lo
}

// updateInterrupt recomputes the active-low nibble and raises the
// Joypad interrupt on any 1->0 transition (a button becoming selected
// and readable as pressed).
func (j *Joypad) updateInterrupt() {
	newLo := j.lowNibble()
	falling := j.lastLo4 &^ newLo
	if falling != 0 && j.req != nil {
		j.req()
	}
	j.lastLo4 = newLo
}
