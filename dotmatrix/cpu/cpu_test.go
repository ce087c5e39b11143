package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmajkech/dotmatrix/dotmatrix/addr"
	"github.com/tmajkech/dotmatrix/dotmatrix/audio"
	"github.com/tmajkech/dotmatrix/dotmatrix/memory"
)

// newTestCPU builds a CPU over a minimal ROM-only cartridge with the
// given program at the entry point (0x100).
func newTestCPU(t *testing.T, program ...byte) *CPU {
	t.Helper()

	rom := make([]byte, 0x8000)
	copy(rom[0x100:], program)
	cart, err := memory.NewCartridge(rom)
	require.NoError(t, err)

	bus := memory.NewBus(cart, audio.New(0), nil)
	return New(bus)
}

func TestCPU_postBootState(t *testing.T) {
	c := newTestCPU(t)

	assert.Equal(t, byte(0x01), c.a)
	assert.Equal(t, byte(0xB0), c.f)
	assert.Equal(t, uint16(0x0013), c.getBC())
	assert.Equal(t, uint16(0x00D8), c.getDE())
	assert.Equal(t, uint16(0x014D), c.getHL())
	assert.Equal(t, uint16(0xFFFE), c.sp)
	assert.Equal(t, uint16(0x0100), c.pc)
}

func TestCPU_addAB(t *testing.T) {
	// ADD A,B with A=0x3A, B=0xC6 wraps to zero with both carries.
	c := newTestCPU(t, 0x80)
	c.a = 0x3A
	c.b = 0xC6
	c.f = 0

	cycles := c.Step()

	assert.Equal(t, 4, cycles)
	assert.Equal(t, byte(0x00), c.a)
	assert.True(t, c.isSetFlag(zeroFlag))
	assert.False(t, c.isSetFlag(subFlag))
	assert.True(t, c.isSetFlag(halfCarryFlag))
	assert.True(t, c.isSetFlag(carryFlag))
	assert.Equal(t, uint16(0x0101), c.pc)
}

func TestCPU_arithmeticFlags(t *testing.T) {
	testCases := []struct {
		desc    string
		run     func(c *CPU)
		a       byte
		want    byte
		flags   Flag
		initial Flag
	}{
		{desc: "ADC adds carry", run: func(c *CPU) { c.addToA(0x01, true) }, a: 0x01, want: 0x03, initial: carryFlag},
		{desc: "SUB sets borrow", run: func(c *CPU) { c.subFromA(0x01, false, true) }, a: 0x00, want: 0xFF, flags: subFlag | halfCarryFlag | carryFlag},
		{desc: "SBC subtracts carry", run: func(c *CPU) { c.subFromA(0x01, true, true) }, a: 0x03, want: 0x01, initial: carryFlag, flags: subFlag},
		{desc: "CP leaves A", run: func(c *CPU) { c.subFromA(0x42, false, false) }, a: 0x42, want: 0x42, flags: zeroFlag | subFlag},
		{desc: "AND sets half carry", run: func(c *CPU) { c.and(0x0F) }, a: 0xF0, want: 0x00, flags: zeroFlag | halfCarryFlag},
		{desc: "OR clears carries", run: func(c *CPU) { c.or(0x0F) }, a: 0xF0, want: 0xFF, initial: carryFlag},
		{desc: "XOR self zeroes", run: func(c *CPU) { c.xor(0x42) }, a: 0x42, want: 0x00, flags: zeroFlag},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			c := newTestCPU(t)
			c.f = byte(tC.initial)
			c.a = tC.a
			tC.run(c)
			assert.Equal(t, tC.want, c.a)
			assert.Equalf(t, byte(tC.flags), c.f, "flags don't match")
		})
	}
}

func TestCPU_incDec(t *testing.T) {
	testCases := []struct {
		desc  string
		run   func(c *CPU, v byte) byte
		arg   byte
		want  byte
		flags Flag
	}{
		{desc: "inc increases", run: (*CPU).inc, arg: 0x0A, want: 0x0B},
		{desc: "inc sets zero and half", run: (*CPU).inc, arg: 0xFF, want: 0x00, flags: zeroFlag | halfCarryFlag},
		{desc: "inc sets half carry", run: (*CPU).inc, arg: 0x0F, want: 0x10, flags: halfCarryFlag},
		{desc: "dec decreases", run: (*CPU).dec, arg: 0x0A, want: 0x09, flags: subFlag},
		{desc: "dec wraps with half borrow", run: (*CPU).dec, arg: 0x00, want: 0xFF, flags: subFlag | halfCarryFlag},
		{desc: "dec sets zero", run: (*CPU).dec, arg: 0x01, want: 0x00, flags: subFlag | zeroFlag},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			c := newTestCPU(t)
			c.f = 0
			got := tC.run(c, tC.arg)
			assert.Equal(t, tC.want, got)
			assert.Equal(t, byte(tC.flags), c.f)
		})
	}
}

func TestCPU_incDecPreserveCarry(t *testing.T) {
	c := newTestCPU(t)
	c.setFlag(carryFlag)

	c.inc(0xFF)
	assert.True(t, c.isSetFlag(carryFlag))

	c.dec(0x00)
	assert.True(t, c.isSetFlag(carryFlag))
}

func TestCPU_rotates(t *testing.T) {
	testCases := []struct {
		desc  string
		run   func(c *CPU, v byte) byte
		arg   byte
		want  byte
		init  Flag
		flags Flag
	}{
		{desc: "rlc rotates bit 7 around", run: (*CPU).rlc, arg: 0x80, want: 0x01, flags: carryFlag},
		{desc: "rlc sets zero", run: (*CPU).rlc, arg: 0x00, want: 0x00, flags: zeroFlag},
		{desc: "rrc rotates bit 0 around", run: (*CPU).rrc, arg: 0x01, want: 0x80, flags: carryFlag},
		{desc: "rl shifts in carry", run: (*CPU).rl, arg: 0x01, want: 0x03, init: carryFlag},
		{desc: "rl sets carry and zero", run: (*CPU).rl, arg: 0x80, want: 0x00, flags: carryFlag | zeroFlag},
		{desc: "rr shifts carry into bit 7", run: (*CPU).rr, arg: 0x00, want: 0x80, init: carryFlag},
		{desc: "sla drops into carry", run: (*CPU).sla, arg: 0xC0, want: 0x80, flags: carryFlag},
		{desc: "sra keeps sign", run: (*CPU).sra, arg: 0x81, want: 0xC0, flags: carryFlag},
		{desc: "swap exchanges nibbles", run: (*CPU).swap, arg: 0xF0, want: 0x0F},
		{desc: "srl clears bit 7", run: (*CPU).srl, arg: 0x81, want: 0x40, flags: carryFlag},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			c := newTestCPU(t)
			c.f = byte(tC.init)
			got := tC.run(c, tC.arg)
			assert.Equal(t, tC.want, got)
			assert.Equalf(t, byte(tC.flags), c.f, "flags don't match")
		})
	}
}

func TestCPU_accumulatorRotatesClearZero(t *testing.T) {
	// RLCA result of zero still clears Z, unlike CB RLC A.
	c := newTestCPU(t, 0x07)
	c.a = 0x00
	c.f = byte(zeroFlag)

	c.Step()

	assert.Equal(t, byte(0x00), c.a)
	assert.False(t, c.isSetFlag(zeroFlag))
}

func TestCPU_daa(t *testing.T) {
	testCases := []struct {
		desc  string
		a     byte
		flags Flag
		want  byte
		carry bool
	}{
		{desc: "no adjust", a: 0x42, want: 0x42},
		{desc: "low nibble overflow", a: 0x0A, want: 0x10},
		{desc: "high nibble overflow", a: 0xA0, want: 0x00, carry: true},
		{desc: "after subtraction with half borrow", a: 0x0F, flags: subFlag | halfCarryFlag, want: 0x09},
		{desc: "bcd add result", a: 0x15 + 0x27, want: 0x42},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			c := newTestCPU(t)
			c.a = tC.a
			c.f = byte(tC.flags)
			c.daa()
			assert.Equal(t, tC.want, c.a)
			assert.Equal(t, tC.carry, c.isSetFlag(carryFlag))
			assert.False(t, c.isSetFlag(halfCarryFlag))
		})
	}
}

func TestCPU_stack(t *testing.T) {
	c := newTestCPU(t)
	c.sp = 0xFFFE

	c.pushStack(0x0102)
	assert.Equal(t, uint16(0xFFFC), c.sp)

	popped := c.popStack()
	assert.Equal(t, uint16(0x0102), popped)
	assert.Equal(t, uint16(0xFFFE), c.sp)
}

func TestCPU_addSP(t *testing.T) {
	testCases := []struct {
		desc   string
		sp     uint16
		offset byte
		want   uint16
		flags  Flag
	}{
		{desc: "positive offset", sp: 0xFFF8, offset: 0x08, want: 0x0000, flags: halfCarryFlag | carryFlag},
		{desc: "negative offset", sp: 0x0100, offset: 0xFF, want: 0x00FF, flags: 0},
		{desc: "no carries", sp: 0x0100, offset: 0x01, want: 0x0101, flags: 0},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			c := newTestCPU(t)
			c.sp = tC.sp
			c.f = 0xF0
			got := c.addSP(tC.offset)
			assert.Equal(t, tC.want, got)
			assert.Equalf(t, byte(tC.flags), c.f, "flags don't match")
		})
	}
}

func TestCPU_branchCycles(t *testing.T) {
	testCases := []struct {
		desc    string
		program []byte
		setup   func(c *CPU)
		cycles  int
		pc      uint16
	}{
		{desc: "JR taken", program: []byte{0x18, 0x02}, cycles: 12, pc: 0x0104},
		{desc: "JR NZ not taken", program: []byte{0x20, 0x02}, setup: func(c *CPU) { c.setFlag(zeroFlag) }, cycles: 8, pc: 0x0102},
		{desc: "JR NZ taken backwards", program: []byte{0x20, 0xFE}, setup: func(c *CPU) { c.resetFlag(zeroFlag) }, cycles: 12, pc: 0x0100},
		{desc: "JP taken", program: []byte{0xC3, 0x00, 0x02}, cycles: 16, pc: 0x0200},
		{desc: "JP Z not taken", program: []byte{0xCA, 0x00, 0x02}, setup: func(c *CPU) { c.resetFlag(zeroFlag) }, cycles: 12, pc: 0x0103},
		{desc: "CALL taken", program: []byte{0xCD, 0x00, 0x02}, cycles: 24, pc: 0x0200},
		{desc: "CALL NC not taken", program: []byte{0xD4, 0x00, 0x02}, setup: func(c *CPU) { c.setFlag(carryFlag) }, cycles: 12, pc: 0x0103},
		{desc: "RET", program: []byte{0xC9}, setup: func(c *CPU) { c.pushStack(0x0200) }, cycles: 16, pc: 0x0200},
		{desc: "RET C not taken", program: []byte{0xD8}, setup: func(c *CPU) { c.resetFlag(carryFlag) }, cycles: 8, pc: 0x0101},
		{desc: "RST", program: []byte{0xFF}, cycles: 16, pc: 0x0038},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			c := newTestCPU(t, tC.program...)
			if tC.setup != nil {
				tC.setup(c)
			}
			cycles := c.Step()
			assert.Equal(t, tC.cycles, cycles)
			assert.Equal(t, tC.pc, c.pc)
		})
	}
}

func TestCPU_interruptService(t *testing.T) {
	c := newTestCPU(t, 0x00) // NOP
	c.ime = true
	c.bus.Write(addr.IE, 0x03)
	c.bus.Write(addr.IF, 0x03)

	cycles := c.Step()

	// Lowest bit (VBlank) wins, costs 20 cycles, disables IME and clears
	// only its own IF bit.
	assert.Equal(t, 20, cycles)
	assert.Equal(t, uint16(0x0040), c.pc)
	assert.False(t, c.ime)
	assert.Equal(t, byte(0x02), c.bus.Peek(addr.IF)&0x1F)

	// The pushed return address is the interrupted PC.
	assert.Equal(t, uint16(0x0100), c.popStack())
}

func TestCPU_interruptWakesHaltWithoutIME(t *testing.T) {
	c := newTestCPU(t, 0x76, 0x00) // HALT; NOP
	c.bus.Write(addr.IE, 0x04)

	c.Step()
	assert.True(t, c.halted)

	// Still halted while nothing is pending.
	c.Step()
	assert.True(t, c.halted)

	// A pending interrupt exits HALT even with IME off; no dispatch.
	c.bus.Write(addr.IF, 0x04)
	c.Step()
	assert.False(t, c.halted)
	assert.Equal(t, uint16(0x0102), c.pc)
}

func TestCPU_eiDelay(t *testing.T) {
	c := newTestCPU(t, 0xFB, 0x00, 0x00) // EI; NOP; NOP
	c.bus.Write(addr.IE, 0x01)
	c.bus.Write(addr.IF, 0x01)

	c.Step() // EI
	assert.False(t, c.ime)

	// The first NOP retires before IME turns on takes effect for
	// dispatch; no interrupt fires between EI and the NOP.
	c.Step()
	assert.True(t, c.ime)
	assert.Equal(t, uint16(0x0102), c.pc)

	// Now the interrupt services, before the second NOP.
	cycles := c.Step()
	assert.Equal(t, 20, cycles)
	assert.Equal(t, uint16(0x0040), c.pc)
}

func TestCPU_retiEnablesImmediately(t *testing.T) {
	c := newTestCPU(t, 0xD9) // RETI
	c.pushStack(0x0200)

	c.Step()

	assert.True(t, c.ime)
	assert.Equal(t, uint16(0x0200), c.pc)
}

func TestCPU_haltBug(t *testing.T) {
	// With IME off and a visible pending interrupt, HALT does not halt;
	// the following byte is consumed twice.
	c := newTestCPU(t, 0x76, 0x04) // HALT; INC B
	c.bus.Write(addr.IE, 0x01)
	c.bus.Write(addr.IF, 0x01)
	c.b = 0

	c.Step() // HALT latches the bug
	assert.False(t, c.halted)
	assert.True(t, c.haltBug)
	assert.Equal(t, uint16(0x0101), c.pc)

	c.Step() // INC B executes, but PC stays on it
	assert.Equal(t, byte(1), c.b)
	assert.Equal(t, uint16(0x0101), c.pc)

	c.Step() // INC B executes again, PC finally moves on
	assert.Equal(t, byte(2), c.b)
	assert.Equal(t, uint16(0x0102), c.pc)
	assert.False(t, c.haltBug)
}

func TestCPU_haltBugMultiByteOperand(t *testing.T) {
	// LD A,n after the bug consumes the LD opcode as its operand.
	c := newTestCPU(t, 0x76, 0x3E, 0x99) // HALT; LD A, 0x99
	c.bus.Write(addr.IE, 0x01)
	c.bus.Write(addr.IF, 0x01)

	c.Step() // HALT
	c.Step() // LD A reads its own opcode byte
	assert.Equal(t, byte(0x3E), c.a)
	assert.Equal(t, uint16(0x0102), c.pc)
}

func TestCPU_stop(t *testing.T) {
	c := newTestCPU(t, 0x10, 0x00)

	cycles := c.Step()

	assert.Equal(t, 4, cycles)
	assert.Equal(t, uint16(0x0102), c.pc)
}

func TestCPU_illegalOpcodePanics(t *testing.T) {
	c := newTestCPU(t, 0xD3)

	assert.Panics(t, func() { c.Step() })
}

func TestCPU_pcAfterInstruction(t *testing.T) {
	// After any fetch-execute, PC points at the next opcode.
	testCases := []struct {
		desc    string
		program []byte
		pc      uint16
	}{
		{desc: "one byte", program: []byte{0x04}, pc: 0x0101},
		{desc: "two bytes", program: []byte{0x06, 0x42}, pc: 0x0102},
		{desc: "three bytes", program: []byte{0x01, 0x34, 0x12}, pc: 0x0103},
		{desc: "prefixed", program: []byte{0xCB, 0x11}, pc: 0x0102},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			c := newTestCPU(t, tC.program...)
			c.Step()
			assert.Equal(t, tC.pc, c.pc)
		})
	}
}
