package memory

import (
	"time"

	"github.com/tmajkech/dotmatrix/dotmatrix/snapshot"
)

// RTC register selectors, as written to the MBC3 RAM bank register.
const (
	rtcSeconds  = 0x08
	rtcMinutes  = 0x09
	rtcHours    = 0x0A
	rtcDaysLow  = 0x0B
	rtcDaysHigh = 0x0C
)

// RTC is the MBC3 real-time clock. Register reads serve a latched
// snapshot; latching derives the current time from a unix-epoch base
// timestamp unless the halt bit (days-high bit 6) is set.
//
// Now is the injected time source; tests override it.
type RTC struct {
	Now func() time.Time

	seconds  byte
	minutes  byte
	hours    byte
	daysLow  byte
	daysHigh byte // bit 0 = day MSB, bit 6 = halt, bit 7 = day overflow

	latched [5]byte
	base    uint64 // unix seconds
}

func NewRTC() RTC {
	rtc := RTC{Now: time.Now}
	rtc.base = uint64(rtc.Now().Unix())
	return rtc
}

// Latch captures the current time into the latched registers.
func (c *RTC) Latch() {
	if c.daysHigh&0x40 != 0 {
		// Halted: the stored values are authoritative.
		c.latched = [5]byte{c.seconds, c.minutes, c.hours, c.daysLow, c.daysHigh}
		return
	}

	now := uint64(c.Now().Unix())
	elapsed := uint64(0)
	if now > c.base {
		elapsed = now - c.base
	}

	days := uint32(elapsed / 86400)
	dayMSB := byte(0)
	if days > 0xFF {
		dayMSB = 1
	}
	overflow := byte(0)
	if days > 0x1FF {
		overflow = 0x80
	}

	c.latched = [5]byte{
		byte(elapsed % 60),
		byte((elapsed / 60) % 60),
		byte((elapsed / 3600) % 24),
		byte(days),
		(c.daysHigh & 0x40) | overflow | dayMSB,
	}
}

func (c *RTC) Read(reg byte) byte {
	switch reg {
	case rtcSeconds:
		return c.latched[0]
	case rtcMinutes:
		return c.latched[1]
	case rtcHours:
		return c.latched[2]
	case rtcDaysLow:
		return c.latched[3]
	case rtcDaysHigh:
		return c.latched[4]
	}
	return 0xFF
}

// Write updates a stored register and rebases the epoch timestamp so the
// next latch reproduces the written values.
func (c *RTC) Write(reg, v byte) {
	switch reg {
	case rtcSeconds:
		c.seconds = v & 0x3F
	case rtcMinutes:
		c.minutes = v & 0x3F
	case rtcHours:
		c.hours = v & 0x1F
	case rtcDaysLow:
		c.daysLow = v
	case rtcDaysHigh:
		c.daysHigh = v & 0xC1
	default:
		return
	}

	days := (uint64(c.daysHigh&0x01) << 8) | uint64(c.daysLow)
	total := days*86400 + uint64(c.hours)*3600 + uint64(c.minutes)*60 + uint64(c.seconds)
	now := uint64(c.Now().Unix())
	if total > now {
		total = now
	}
	c.base = now - total
}

func (c *RTC) Save(w *snapshot.Writer) {
	w.U8(c.seconds)
	w.U8(c.minutes)
	w.U8(c.hours)
	w.U8(c.daysLow)
	w.U8(c.daysHigh)
	w.Bytes(c.latched[:])
	w.U64(c.base)
}

func (c *RTC) Load(r *snapshot.Reader) {
	c.seconds = r.U8()
	c.minutes = r.U8()
	c.hours = r.U8()
	c.daysLow = r.U8()
	c.daysHigh = r.U8()
	r.ReadInto(c.latched[:])
	c.base = r.U64()
}
