// Package cpu implements the SM83 core: fetch/decode/execute with
// per-access bus timing, interrupt service and the HALT/EI quirks.
package cpu

import (
	"fmt"

	"github.com/tmajkech/dotmatrix/dotmatrix/addr"
	"github.com/tmajkech/dotmatrix/dotmatrix/bit"
	"github.com/tmajkech/dotmatrix/dotmatrix/memory"
)

// Flag is one of the 4 condition flags in register F.
type Flag uint8

const (
	zeroFlag      Flag = 0x80
	subFlag       Flag = 0x40
	halfCarryFlag Flag = 0x20
	carryFlag     Flag = 0x10
)

// CPU holds SM83 state. The bus it owns ticks the timer and APU on every
// access, so an instruction's memory traffic is accounted as it happens.
type CPU struct {
	bus *memory.Bus

	a, f byte
	b, c byte
	d, e byte
	h, l byte
	sp   uint16
	pc   uint16

	ime       bool
	halted    bool
	eiPending bool
	haltBug   bool

	currentOpcode uint16
}

// New returns a CPU in DMG post-boot state.
func New(bus *memory.Bus) *CPU {
	return &CPU{
		bus: bus,
		a:   0x01,
		f:   0xB0,
		b:   0x00,
		c:   0x13,
		d:   0x00,
		e:   0xD8,
		h:   0x01,
		l:   0x4D,
		sp:  0xFFFE,
		pc:  0x0100,
	}
}

// Bus returns the memory bus the CPU drives.
func (c *CPU) Bus() *memory.Bus { return c.bus }

// PC returns the program counter.
func (c *CPU) PC() uint16 { return c.pc }

// Step executes one instruction (or services one interrupt) and returns
// the T-cycles it consumed. Bus accesses have already ticked the timer
// and APU; the caller ticks the remainder and the PPU.
func (c *CPU) Step() int {
	if cycles := c.serviceInterrupts(); cycles > 0 {
		return cycles
	}

	if c.halted {
		return 4
	}

	haltBugActive := c.haltBug
	c.haltBug = false

	// EI takes effect after the following instruction begins.
	if c.eiPending {
		c.eiPending = false
		c.ime = true
	}

	opcode := c.readImmediate()
	// HALT bug: PC failed to advance during HALT, so the byte after HALT
	// is consumed twice; multi-byte instructions re-read their own opcode
	// as the first operand.
	if haltBugActive {
		c.pc--
	}

	c.currentOpcode = uint16(opcode)
	return opcodeTable[opcode](c)
}

// serviceInterrupts handles at most one pending interrupt. Any pending
// interrupt wakes a halted CPU even with IME off; dispatch happens only
// with IME on and costs 20 T-cycles.
func (c *CPU) serviceInterrupts() int {
	pending := c.bus.Pending()
	if pending != 0 {
		c.halted = false
	}
	if !c.ime || pending == 0 {
		return 0
	}

	for i := uint8(0); i < 5; i++ {
		mask := byte(1) << i
		if pending&mask == 0 {
			continue
		}
		interrupt := addr.Interrupt(mask)
		c.ime = false
		c.bus.ClearInterrupt(interrupt)
		c.pushStack(c.pc)
		c.pc = interrupt.Vector()
		return 20
	}
	return 0
}

func illegal(c *CPU) int {
	panic(fmt.Sprintf("illegal opcode 0x%02X at PC=0x%04X", c.currentOpcode, c.pc))
}

// readImmediate reads the byte at PC and advances it.
func (c *CPU) readImmediate() byte {
	v := c.bus.Read(c.pc)
	c.pc++
	return v
}

// readImmediateWord reads a little-endian word at PC.
func (c *CPU) readImmediateWord() uint16 {
	low := c.readImmediate()
	high := c.readImmediate()
	return bit.Combine(high, low)
}

func (c *CPU) getAF() uint16 { return bit.Combine(c.a, c.f) }
func (c *CPU) getBC() uint16 { return bit.Combine(c.b, c.c) }
func (c *CPU) getDE() uint16 { return bit.Combine(c.d, c.e) }
func (c *CPU) getHL() uint16 { return bit.Combine(c.h, c.l) }

func (c *CPU) setAF(v uint16) { c.a = bit.High(v); c.f = bit.Low(v) & 0xF0 }
func (c *CPU) setBC(v uint16) { c.b = bit.High(v); c.c = bit.Low(v) }
func (c *CPU) setDE(v uint16) { c.d = bit.High(v); c.e = bit.Low(v) }
func (c *CPU) setHL(v uint16) { c.h = bit.High(v); c.l = bit.Low(v) }

func (c *CPU) setFlag(flag Flag) {
	c.f |= byte(flag)
}

func (c *CPU) resetFlag(flag Flag) {
	c.f &^= byte(flag)
}

func (c *CPU) isSetFlag(flag Flag) bool {
	return c.f&byte(flag) != 0
}

func (c *CPU) setFlagToCondition(flag Flag, condition bool) {
	if condition {
		c.setFlag(flag)
	} else {
		c.resetFlag(flag)
	}
}

func (c *CPU) flagToBit(flag Flag) byte {
	if c.isSetFlag(flag) {
		return 1
	}
	return 0
}
