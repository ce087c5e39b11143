package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmajkech/dotmatrix/dotmatrix/addr"
	"github.com/tmajkech/dotmatrix/dotmatrix/audio"
	"github.com/tmajkech/dotmatrix/dotmatrix/serial"
)

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	rom := make([]byte, 0x8000)
	cart, err := NewCartridge(rom)
	require.NoError(t, err)
	return NewBus(cart, audio.New(0), nil)
}

func TestBus_regions(t *testing.T) {
	b := newTestBus(t)

	t.Run("WRAM round trips", func(t *testing.T) {
		b.Write(0xC123, 0x42)
		assert.Equal(t, byte(0x42), b.Read(0xC123))
	})

	t.Run("echo mirrors WRAM", func(t *testing.T) {
		b.Write(0xC000, 0x11)
		assert.Equal(t, byte(0x11), b.Read(0xE000))

		b.Write(0xE001, 0x22)
		assert.Equal(t, byte(0x22), b.Read(0xC001))
	})

	t.Run("VRAM round trips", func(t *testing.T) {
		b.Write(0x8000, 0x99)
		assert.Equal(t, byte(0x99), b.Read(0x8000))
	})

	t.Run("OAM round trips", func(t *testing.T) {
		b.Write(0xFE00, 0x77)
		assert.Equal(t, byte(0x77), b.Read(0xFE00))
	})

	t.Run("HRAM round trips", func(t *testing.T) {
		b.Write(0xFF80, 0x55)
		assert.Equal(t, byte(0x55), b.Read(0xFF80))
	})

	t.Run("unusable region reads 0xFF and drops writes", func(t *testing.T) {
		b.Write(0xFEA0, 0x12)
		assert.Equal(t, byte(0xFF), b.Read(0xFEA0))
		assert.Equal(t, byte(0xFF), b.Read(0xFEFF))
	})

	t.Run("ROM writes do not stick", func(t *testing.T) {
		b.Write(0x0100, 0xAB)
		assert.Equal(t, byte(0x00), b.Read(0x0100))
	})
}

func TestBus_accessCostsOneMCycle(t *testing.T) {
	b := newTestBus(t)

	b.ResetCycleCount()
	b.Read(0xC000)
	assert.Equal(t, 4, b.CyclesTicked())

	b.Write(0xC000, 0x01)
	assert.Equal(t, 8, b.CyclesTicked())

	b.ResetCycleCount()
	assert.Equal(t, 0, b.CyclesTicked())
}

func TestBus_interruptFlags(t *testing.T) {
	b := newTestBus(t)

	t.Run("IF upper bits read as 1", func(t *testing.T) {
		b.Write(addr.IF, 0x00)
		assert.Equal(t, byte(0xE0), b.Read(addr.IF))
	})

	t.Run("RequestInterrupt sets a single bit", func(t *testing.T) {
		b.Write(addr.IF, 0x00)
		b.RequestInterrupt(addr.TimerInterrupt)
		assert.Equal(t, byte(0xE4), b.Read(addr.IF))

		b.RequestInterrupt(addr.SerialInterrupt)
		assert.Equal(t, byte(0xEC), b.Read(addr.IF))
	})

	t.Run("pending masks against IE", func(t *testing.T) {
		b.Write(addr.IF, 0x1F)
		b.Write(addr.IE, 0x05)
		assert.Equal(t, byte(0x05), b.Pending())
	})
}

func TestBus_oamDMA(t *testing.T) {
	b := newTestBus(t)

	for i := uint16(0); i < 0xA0; i++ {
		b.Write(0xC000+i, byte(i))
	}

	b.Write(addr.DMA, 0xC0)

	for i := uint16(0); i < 0xA0; i++ {
		assert.Equal(t, byte(i), b.Peek(0xFE00+i))
	}
}

func TestBus_serialTransfer(t *testing.T) {
	rom := make([]byte, 0x8000)
	cart, err := NewCartridge(rom)
	require.NoError(t, err)

	sink := &serial.BufferSink{}
	b := NewBus(cart, audio.New(0), sink)

	b.Write(addr.SB, 0x42)
	b.Write(addr.SC, 0x81)

	// The transfer completes immediately: byte in the sink, SB refilled
	// with 0xFF, start bit cleared, Serial interrupt raised.
	assert.Equal(t, []byte{0x42}, sink.Data())
	assert.Equal(t, byte(0xFF), b.Read(addr.SB))
	assert.Equal(t, byte(0), b.Read(addr.SC)&0x80)
	assert.NotZero(t, b.Read(addr.IF)&byte(addr.SerialInterrupt))

	// External clock does not complete.
	b.Write(addr.SB, 0x10)
	b.Write(addr.SC, 0x80)
	assert.Equal(t, []byte{0x42}, sink.Data())
}

func TestBus_apuReadMasks(t *testing.T) {
	b := newTestBus(t)
	b.Write(addr.NR52, 0x80)

	// OR-mask idempotence: unused and write-only bits already read as 1.
	masks := []byte{
		0x80, 0x3F, 0x00, 0xFF, 0xBF, 0xFF, 0x3F, 0x00, 0xFF, 0xBF,
		0x7F, 0xFF, 0x9F, 0xFF, 0xBF, 0xFF, 0xFF, 0x00, 0x00, 0xBF,
		0x00, 0x00, 0x70,
	}
	for i, mask := range masks {
		address := uint16(0xFF10 + i)
		got := b.Read(address)
		assert.Equalf(t, got, got|mask, "0x%04X not idempotent under its OR mask", address)
	}

	t.Run("0xFF27-0xFF2F reads 0xFF", func(t *testing.T) {
		for address := uint16(0xFF27); address <= 0xFF2F; address++ {
			assert.Equal(t, byte(0xFF), b.Read(address))
		}
	})
}

func TestBus_joypad(t *testing.T) {
	b := newTestBus(t)

	t.Run("no selection reads high", func(t *testing.T) {
		b.Write(addr.P1, 0x30)
		assert.Equal(t, byte(0xFF), b.Read(addr.P1))
	})

	t.Run("button row", func(t *testing.T) {
		b.KeyDown(JoypadA)
		b.Write(addr.P1, 0x10) // select buttons (bit 5 low)
		assert.Equal(t, byte(0xDE), b.Read(addr.P1))
		b.KeyUp(JoypadA)
	})

	t.Run("dpad row", func(t *testing.T) {
		b.KeyDown(JoypadLeft)
		b.Write(addr.P1, 0x20) // select dpad (bit 4 low)
		assert.Equal(t, byte(0xED), b.Read(addr.P1))
		b.KeyUp(JoypadLeft)
	})

	t.Run("key press raises the joypad interrupt", func(t *testing.T) {
		b.Write(addr.IF, 0x00)
		b.KeyDown(JoypadStart)
		assert.NotZero(t, b.Read(addr.IF)&byte(addr.JoypadInterrupt))
		b.KeyUp(JoypadStart)
	})
}
