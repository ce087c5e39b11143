// Package memory implements the memory bus, the cartridge with its bank
// controllers, the divider/timer and the joypad.
package memory

import (
	"fmt"

	"github.com/tmajkech/dotmatrix/dotmatrix/addr"
	"github.com/tmajkech/dotmatrix/dotmatrix/audio"
	"github.com/tmajkech/dotmatrix/dotmatrix/serial"
	"github.com/tmajkech/dotmatrix/dotmatrix/video"
)

// Bus decodes the full address space and owns everything behind it: the
// cartridge, VRAM/WRAM/OAM/HRAM, the timer, joypad, APU and PPU.
//
// Every CPU access through Read/Write ticks the timer and APU by one
// M-cycle (4 T-cycles) before completing and records it in the ticked
// count; the driver ticks whatever remains of the instruction afterwards.
type Bus struct {
	cart *Cartridge

	vram [0x2000]byte
	wram [0x2000]byte
	oam  [0xA0]byte
	io   [0x80]byte
	hram [0x7F]byte

	ie  byte
	iff byte

	Timer  Timer
	Joypad Joypad
	APU    *audio.APU
	PPU    *video.PPU

	sb, sc byte
	sink   serial.Sink

	// cyclesTicked counts T-cycles already consumed by bus accesses in
	// the current instruction.
	cyclesTicked int
}

// NewBus wires a bus around a loaded cartridge. The serial sink receives
// every byte sent out with the internal clock.
func NewBus(cart *Cartridge, apu *audio.APU, sink serial.Sink) *Bus {
	return &Bus{
		cart:   cart,
		Timer:  Timer{},
		Joypad: NewJoypad(),
		APU:    apu,
		PPU:    video.New(),
		sink:   sink,
	}
}

// Cartridge returns the loaded cartridge.
func (b *Bus) Cartridge() *Cartridge { return b.cart }

// RequestInterrupt sets one bit in IF. Every subsystem raising a
// condition goes through here, so nothing clobbers unrelated bits.
func (b *Bus) RequestInterrupt(i addr.Interrupt) {
	b.iff |= byte(i)
}

// Pending returns the set of interrupts both requested and enabled.
func (b *Bus) Pending() byte {
	return b.iff & b.ie & 0x1F
}

// ClearInterrupt removes one bit from IF, used during dispatch.
func (b *Bus) ClearInterrupt(i addr.Interrupt) {
	b.iff &^= byte(i)
}

// ResetCycleCount starts a new instruction's tick accounting.
func (b *Bus) ResetCycleCount() { b.cyclesTicked = 0 }

// CyclesTicked reports T-cycles consumed by bus accesses so far.
func (b *Bus) CyclesTicked() int { return b.cyclesTicked }

// TickPeripherals advances the timer (and through it the APU) by the
// given number of T-cycles and routes any TIMA overflow interrupt.
func (b *Bus) TickPeripherals(cycles int) {
	b.Timer.Tick(cycles, b.APU)
	if b.Timer.TakeInterrupt() {
		b.RequestInterrupt(addr.TimerInterrupt)
	}
}

// TickPPU advances the PPU, routing its interrupt requests.
func (b *Bus) TickPPU(cycles int) {
	b.PPU.Tick(cycles, b.vram[:], b.oam[:])
	vblank, stat := b.PPU.TakeInterrupts()
	if vblank {
		b.RequestInterrupt(addr.VBlankInterrupt)
	}
	if stat {
		b.RequestInterrupt(addr.LCDSTATInterrupt)
	}
}

// tick accounts one M-cycle of bus access time.
func (b *Bus) tick() {
	b.TickPeripherals(4)
	b.cyclesTicked += 4
}

// Read performs a CPU read: it costs one M-cycle, then serves the value.
func (b *Bus) Read(address uint16) byte {
	b.tick()
	return b.read(address)
}

// Write performs a CPU write: it costs one M-cycle, then stores the value.
func (b *Bus) Write(address uint16, v byte) {
	b.tick()
	b.write(address, v)
}

// Peek reads without consuming time; used by tests and debugging.
func (b *Bus) Peek(address uint16) byte {
	return b.read(address)
}

func (b *Bus) read(address uint16) byte {
	switch {
	case address <= 0x7FFF:
		return b.cart.Read(address)
	case address <= 0x9FFF:
		return b.vram[address-0x8000]
	case address <= 0xBFFF:
		return b.cart.Read(address)
	case address <= 0xDFFF:
		return b.wram[address-0xC000]
	case address <= 0xFDFF:
		// echo of WRAM
		return b.wram[address-0xE000]
	case address <= 0xFE9F:
		return b.oam[address-0xFE00]
	case address <= 0xFEFF:
		// unusable
		return 0xFF
	case address <= 0xFF7F:
		return b.readIO(address)
	case address <= 0xFFFE:
		return b.hram[address-0xFF80]
	default:
		return b.ie
	}
}

func (b *Bus) write(address uint16, v byte) {
	switch {
	case address <= 0x7FFF:
		b.cart.Write(address, v)
	case address <= 0x9FFF:
		b.vram[address-0x8000] = v
	case address <= 0xBFFF:
		b.cart.Write(address, v)
	case address <= 0xDFFF:
		b.wram[address-0xC000] = v
	case address <= 0xFDFF:
		b.wram[address-0xE000] = v
	case address <= 0xFE9F:
		b.oam[address-0xFE00] = v
	case address <= 0xFEFF:
		// unusable, dropped
	case address <= 0xFF7F:
		b.writeIO(address, v)
	case address <= 0xFFFE:
		b.hram[address-0xFF80] = v
	default:
		b.ie = v
	}
}

func (b *Bus) readIO(address uint16) byte {
	switch {
	case address == addr.P1:
		return b.Joypad.Read()
	case address == addr.SB:
		return b.sb
	case address == addr.SC:
		return b.sc | 0x7E
	case address >= addr.DIV && address <= addr.TAC:
		return b.Timer.Read(address)
	case address == addr.IF:
		// upper 3 bits are unused and always read as 1
		return b.iff | 0xE0
	case address >= 0xFF10 && address <= 0xFF3F:
		return b.APU.ReadRegister(address)
	case address == addr.DMA:
		return b.io[address-0xFF00]
	case address >= addr.LCDC && address <= addr.WX:
		return b.PPU.ReadRegister(address)
	default:
		return b.io[address-0xFF00]
	}
}

func (b *Bus) writeIO(address uint16, v byte) {
	switch {
	case address == addr.P1:
		b.Joypad.Write(v)
	case address == addr.SB:
		b.sb = v
	case address == addr.SC:
		// A transfer with the internal clock completes immediately: the
		// byte lands in the sink, SB refills with 0xFF (no peer) and the
		// Serial interrupt fires.
		if v&0x81 == 0x81 {
			if b.sink != nil {
				b.sink.WriteByte(b.sb)
			}
			b.sb = 0xFF
			b.sc = v &^ 0x80
			b.RequestInterrupt(addr.SerialInterrupt)
			return
		}
		b.sc = v
	case address >= addr.DIV && address <= addr.TAC:
		b.Timer.Write(address, v, b.APU)
	case address == addr.IF:
		b.iff = v & 0x1F
	case address >= 0xFF10 && address <= 0xFF3F:
		b.APU.WriteRegister(address, v)
	case address == addr.DMA:
		b.oamDMA(v)
		b.io[address-0xFF00] = v
	case address >= addr.LCDC && address <= addr.WX:
		b.PPU.WriteRegister(address, v)
	default:
		b.io[address-0xFF00] = v
	}
}

// oamDMA copies 160 bytes from (v << 8) into OAM. The transfer is modeled
// as instantaneous: no extra cycles and no access blackout.
func (b *Bus) oamDMA(v byte) {
	base := uint16(v) << 8
	for i := uint16(0); i < 0xA0; i++ {
		b.oam[i] = b.read(base + i)
	}
}

// KeyDown forwards a host key press to the joypad and raises the joypad
// interrupt on a falling edge.
func (b *Bus) KeyDown(key JoypadKey) {
	b.Joypad.KeyDown(key)
	if b.Joypad.TakeInterrupt() {
		b.RequestInterrupt(addr.JoypadInterrupt)
	}
}

// KeyUp forwards a host key release.
func (b *Bus) KeyUp(key JoypadKey) {
	b.Joypad.KeyUp(key)
}

func (b *Bus) String() string {
	return fmt.Sprintf("Bus(cart=%q mbc=%d)", b.cart.Title(), b.cart.MBCTag())
}
