package memory

import "github.com/tmajkech/dotmatrix/dotmatrix/snapshot"

// JoypadKey represents a key on the Game Boy joypad.
type JoypadKey uint8

const (
	JoypadRight JoypadKey = iota
	JoypadLeft
	JoypadUp
	JoypadDown
	JoypadA
	JoypadB
	JoypadSelect
	JoypadStart
)

// Joypad models the 2x4 button matrix. Both rows are active-low; the
// select register (bits 4-5 of P1, also active-low) chooses which row is
// visible in the low nibble.
type Joypad struct {
	selectBits byte
	buttons    byte // Start, Select, B, A in bits 3-0
	dpad       byte // Down, Up, Left, Right in bits 3-0

	interrupt bool
}

func NewJoypad() Joypad {
	return Joypad{
		selectBits: 0x30,
		buttons:    0x0F,
		dpad:       0x0F,
	}
}

// Read composes P1: the high nibble reads as 1s plus the select bits, the
// low nibble is the selected row (both rows AND together when both are
// selected).
func (j *Joypad) Read() byte {
	result := j.selectBits | 0xC0 | 0x0F
	if j.selectBits&0x20 == 0 {
		result = (result & 0xF0) | (j.buttons & 0x0F)
	}
	if j.selectBits&0x10 == 0 {
		result &= 0xF0 | (j.dpad & 0x0F)
	}
	return result
}

func (j *Joypad) Write(v byte) {
	j.selectBits = v & 0x30
}

func (j *Joypad) keyMask(key JoypadKey) (row *byte, mask byte) {
	switch key {
	case JoypadRight:
		return &j.dpad, 0x01
	case JoypadLeft:
		return &j.dpad, 0x02
	case JoypadUp:
		return &j.dpad, 0x04
	case JoypadDown:
		return &j.dpad, 0x08
	case JoypadA:
		return &j.buttons, 0x01
	case JoypadB:
		return &j.buttons, 0x02
	case JoypadSelect:
		return &j.buttons, 0x04
	default:
		return &j.buttons, 0x08
	}
}

// KeyDown records a press (line goes low) and requests the joypad
// interrupt on the falling edge.
func (j *Joypad) KeyDown(key JoypadKey) {
	row, mask := j.keyMask(key)
	if *row&mask != 0 {
		j.interrupt = true
	}
	*row &^= mask
}

// KeyUp records a release (line returns high).
func (j *Joypad) KeyUp(key JoypadKey) {
	row, mask := j.keyMask(key)
	*row |= mask
}

// TakeInterrupt returns and clears the pending key-down request.
func (j *Joypad) TakeInterrupt() bool {
	v := j.interrupt
	j.interrupt = false
	return v
}

func (j *Joypad) Save(w *snapshot.Writer) {
	w.U8(j.selectBits)
	w.U8(j.buttons)
	w.U8(j.dpad)
	w.Bool(j.interrupt)
}

func (j *Joypad) Load(r *snapshot.Reader) {
	j.selectBits = r.U8()
	j.buttons = r.U8()
	j.dpad = r.U8()
	j.interrupt = r.Bool()
}
