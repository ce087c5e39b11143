package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// bankedROM builds a ROM where every byte holds its bank number.
func bankedROM(banks int) []byte {
	rom := make([]byte, banks*0x4000)
	for i := range rom {
		rom[i] = byte(i / 0x4000)
	}
	return rom
}

func TestMBC1(t *testing.T) {
	t.Run("bank 0 is fixed in mode 0", func(t *testing.T) {
		m := NewMBC1(bankedROM(8), 0)
		assert.Equal(t, byte(0), m.Read(0x0000))
		assert.Equal(t, byte(0), m.Read(0x3FFF))
	})

	t.Run("switchable bank defaults to 1", func(t *testing.T) {
		m := NewMBC1(bankedROM(8), 0)
		assert.Equal(t, byte(1), m.Read(0x4000))
	})

	t.Run("writing 0 selects bank 1", func(t *testing.T) {
		// 128 KiB ROM = 8 banks; bank register 0 must remap to 1.
		m := NewMBC1(bankedROM(8), 0)
		m.Write(0x2000, 0x00)
		assert.Equal(t, byte(1), m.Read(0x4000))
	})

	t.Run("bank switching", func(t *testing.T) {
		m := NewMBC1(bankedROM(8), 0)
		for bank := byte(2); bank <= 7; bank++ {
			m.Write(0x2000, bank)
			assert.Equal(t, bank, m.Read(0x4000))
		}
	})

	t.Run("bank wraps to ROM size", func(t *testing.T) {
		m := NewMBC1(bankedROM(8), 0)
		m.Write(0x2000, 13) // 13 % 8 = 5
		assert.Equal(t, byte(5), m.Read(0x4000))
	})

	t.Run("secondary register extends the bank in mode 0", func(t *testing.T) {
		m := NewMBC1(bankedROM(64), 0)
		m.Write(0x2000, 0x01)
		m.Write(0x4000, 0x01) // bank = 0x20 | 0x01 = 33
		assert.Equal(t, byte(33), m.Read(0x4000))
	})

	t.Run("mode 1 remaps the fixed area", func(t *testing.T) {
		m := NewMBC1(bankedROM(64), 0)
		m.Write(0x6000, 0x01)
		m.Write(0x4000, 0x01)
		assert.Equal(t, byte(0x20), m.Read(0x0000))
	})

	t.Run("RAM requires enabling", func(t *testing.T) {
		m := NewMBC1(bankedROM(8), 0x8000)

		assert.Equal(t, byte(0xFF), m.Read(0xA000))

		m.Write(0x0000, 0x0A)
		m.Write(0xA000, 0x42)
		assert.Equal(t, byte(0x42), m.Read(0xA000))

		m.Write(0x0000, 0x00)
		assert.Equal(t, byte(0xFF), m.Read(0xA000))
	})

	t.Run("RAM banks switch in mode 1", func(t *testing.T) {
		m := NewMBC1(bankedROM(8), 0x8000)
		m.Write(0x0000, 0x0A)
		m.Write(0x6000, 0x01)

		for bank := byte(0); bank < 4; bank++ {
			m.Write(0x4000, bank)
			m.Write(0xA000, 0x40+bank)
		}
		for bank := byte(0); bank < 4; bank++ {
			m.Write(0x4000, bank)
			assert.Equal(t, byte(0x40+bank), m.Read(0xA000))
		}
	})
}

func TestMBC3(t *testing.T) {
	t.Run("7-bit bank with 0 to 1 remap", func(t *testing.T) {
		m := NewMBC3(bankedROM(128), 0)

		m.Write(0x2000, 0x00)
		assert.Equal(t, byte(1), m.Read(0x4000))

		m.Write(0x2000, 0x7F)
		assert.Equal(t, byte(0x7F), m.Read(0x4000))
	})

	t.Run("RAM banks 0-3", func(t *testing.T) {
		m := NewMBC3(bankedROM(4), 0x8000)
		m.Write(0x0000, 0x0A)

		m.Write(0x4000, 0x02)
		m.Write(0xA000, 0x99)
		assert.Equal(t, byte(0x99), m.Read(0xA000))

		m.Write(0x4000, 0x00)
		assert.NotEqual(t, byte(0x99), m.Read(0xA000))
	})

	t.Run("RTC registers behind banks 8-12", func(t *testing.T) {
		m := NewMBC3(bankedROM(4), 0x8000)
		now := time.Unix(1_000_000, 0)
		m.rtc.Now = func() time.Time { return now }
		m.rtc.base = uint64(now.Unix())

		m.Write(0x0000, 0x0A)

		// Advance 1h 2m 3s then latch via the 0x00 -> 0x01 sequence.
		now = now.Add(1*time.Hour + 2*time.Minute + 3*time.Second)
		m.Write(0x6000, 0x00)
		m.Write(0x6000, 0x01)

		m.Write(0x4000, 0x08)
		assert.Equal(t, byte(3), m.Read(0xA000))
		m.Write(0x4000, 0x09)
		assert.Equal(t, byte(2), m.Read(0xA000))
		m.Write(0x4000, 0x0A)
		assert.Equal(t, byte(1), m.Read(0xA000))
	})
}

func TestMBC5(t *testing.T) {
	t.Run("9-bit bank register", func(t *testing.T) {
		m := NewMBC5(bankedROM(4), 0)

		m.Write(0x2000, 0x02)
		assert.Equal(t, byte(2), m.Read(0x4000))

		// Bit 8 write selects banks above 255; wraps into the small ROM.
		m.Write(0x3000, 0x01) // bank 0x102; 0x102 % 4 = 2
		assert.Equal(t, byte(2), m.Read(0x4000))
	})

	t.Run("bank 0 is selectable", func(t *testing.T) {
		m := NewMBC5(bankedROM(4), 0)
		m.Write(0x2000, 0x00)
		assert.Equal(t, byte(0), m.Read(0x4000))
	})

	t.Run("16 RAM banks", func(t *testing.T) {
		m := NewMBC5(bankedROM(4), 0x20000)
		m.Write(0x0000, 0x0A)

		m.Write(0x4000, 0x0F)
		m.Write(0xA000, 0x77)
		assert.Equal(t, byte(0x77), m.Read(0xA000))

		m.Write(0x4000, 0x00)
		assert.NotEqual(t, byte(0x77), m.Read(0xA000))
	})
}

func TestRTC(t *testing.T) {
	t.Run("latch derives days with overflow bits", func(t *testing.T) {
		rtc := NewRTC()
		now := time.Unix(0, 0)
		rtc.Now = func() time.Time { return now }
		rtc.base = 0

		now = now.Add(300 * 24 * time.Hour) // day 300 sets the MSB
		rtc.Latch()
		assert.Equal(t, byte(300-256), rtc.Read(rtcDaysLow))
		assert.Equal(t, byte(0x01), rtc.Read(rtcDaysHigh)&0x01)
		assert.Equal(t, byte(0x00), rtc.Read(rtcDaysHigh)&0x80)

		now = now.Add(300 * 24 * time.Hour) // day 600 overflows
		rtc.Latch()
		assert.Equal(t, byte(0x80), rtc.Read(rtcDaysHigh)&0x80)
	})

	t.Run("halt freezes the stored values", func(t *testing.T) {
		rtc := NewRTC()
		now := time.Unix(5000, 0)
		rtc.Now = func() time.Time { return now }

		rtc.Write(rtcDaysHigh, 0x40)
		rtc.Write(rtcSeconds, 12)

		now = now.Add(time.Hour)
		rtc.Latch()
		assert.Equal(t, byte(12), rtc.Read(rtcSeconds))
	})

	t.Run("writes rebase so the next latch reproduces them", func(t *testing.T) {
		rtc := NewRTC()
		now := time.Unix(10_000_000, 0)
		rtc.Now = func() time.Time { return now }

		rtc.Write(rtcSeconds, 30)
		rtc.Write(rtcMinutes, 15)
		rtc.Write(rtcHours, 2)

		rtc.Latch()
		assert.Equal(t, byte(30), rtc.Read(rtcSeconds))
		assert.Equal(t, byte(15), rtc.Read(rtcMinutes))
		assert.Equal(t, byte(2), rtc.Read(rtcHours))
	})
}
