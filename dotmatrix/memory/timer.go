package memory

import (
	"github.com/tmajkech/dotmatrix/dotmatrix/addr"
	"github.com/tmajkech/dotmatrix/dotmatrix/audio"
	"github.com/tmajkech/dotmatrix/dotmatrix/bit"
	"github.com/tmajkech/dotmatrix/dotmatrix/snapshot"
)

// Timer holds the 16-bit divider (DIV is its high byte) and the TIMA
// counter, which increments on falling edges of a TAC-selected counter
// bit. The same counter drives the APU frame sequencer off bit 12.
type Timer struct {
	tima    byte
	tma     byte
	tac     byte
	counter uint16

	// interrupt is a transient request flag, drained by the bus.
	interrupt bool
}

// tacBit returns the counter bit selected by TAC's clock field.
func (t *Timer) tacBit() uint8 {
	switch t.tac & 0x03 {
	case 0x00:
		return 9 // 4096 Hz
	case 0x01:
		return 3 // 262144 Hz
	case 0x02:
		return 5 // 65536 Hz
	default:
		return 7 // 16384 Hz
	}
}

// Tick advances the timer by T-cycles, clocking the APU's channel timers
// every cycle and its frame sequencer on falling edges of counter bit 12.
func (t *Timer) Tick(cycles int, apu *audio.APU) {
	for range cycles {
		old := t.counter
		t.counter++

		if bit.IsSet16(12, old) && !bit.IsSet16(12, t.counter) {
			apu.ClockFrameSequencer()
		}

		apu.TickCycle()

		if t.tac&0x04 == 0 {
			continue
		}

		b := t.tacBit()
		if bit.IsSet16(b, old) && !bit.IsSet16(b, t.counter) {
			if t.tima == 0xFF {
				t.tima = t.tma
				t.interrupt = true
			} else {
				t.tima++
			}
		}
	}
}

// TakeInterrupt returns and clears the pending TIMA overflow request.
func (t *Timer) TakeInterrupt() bool {
	v := t.interrupt
	t.interrupt = false
	return v
}

func (t *Timer) Read(address uint16) byte {
	switch address {
	case addr.DIV:
		return byte(t.counter >> 8)
	case addr.TIMA:
		return t.tima
	case addr.TMA:
		return t.tma
	case addr.TAC:
		return t.tac | 0xF8
	}
	return 0xFF
}

func (t *Timer) Write(address uint16, v byte, apu *audio.APU) {
	switch address {
	case addr.DIV:
		// Resetting the counter while bit 12 is high is a falling edge as
		// far as the frame sequencer is concerned.
		if bit.IsSet16(12, t.counter) {
			apu.ClockFrameSequencer()
		}
		t.counter = 0
	case addr.TIMA:
		t.tima = v
	case addr.TMA:
		t.tma = v
	case addr.TAC:
		t.tac = v & 0x07
	}
}

// Counter exposes the internal divider for tests.
func (t *Timer) Counter() uint16 { return t.counter }

// SetCounter seeds the internal divider.
func (t *Timer) SetCounter(v uint16) { t.counter = v }

func (t *Timer) Save(w *snapshot.Writer) {
	w.U8(t.tima)
	w.U8(t.tma)
	w.U8(t.tac)
	w.U16(t.counter)
	w.Bool(t.interrupt)
}

func (t *Timer) Load(r *snapshot.Reader) {
	t.tima = r.U8()
	t.tma = r.U8()
	t.tac = r.U8()
	t.counter = r.U16()
	t.interrupt = r.Bool()
}
