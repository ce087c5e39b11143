// Package dotmatrix is the emulation core of an original Game Boy (DMG):
// a cycle-driven SM83 CPU over a ticking memory bus, a pixel-FIFO PPU, a
// four-channel APU and the divider/timer, joypad and interrupt plumbing
// that bind them.
package dotmatrix

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/tmajkech/dotmatrix/dotmatrix/audio"
	"github.com/tmajkech/dotmatrix/dotmatrix/cpu"
	"github.com/tmajkech/dotmatrix/dotmatrix/memory"
	"github.com/tmajkech/dotmatrix/dotmatrix/serial"
	"github.com/tmajkech/dotmatrix/dotmatrix/video"
)

// DMG is the root of the emulated machine. It owns the CPU, which owns
// the bus, which owns everything else. All mutation happens through the
// driver methods on a single goroutine.
type DMG struct {
	cpu *cpu.CPU
	bus *memory.Bus

	frameCycles      int
	instructionCount uint64
	frameCount       uint64
}

// Option configures a DMG at construction.
type Option func(*options)

type options struct {
	sampleRate int
	sink       serial.Sink
}

// WithSampleRate sets the host audio sample rate in Hz. 0 disables sample
// generation.
func WithSampleRate(rate int) Option {
	return func(o *options) { o.sampleRate = rate }
}

// WithSerialSink routes link-port bytes to the given sink.
func WithSerialSink(sink serial.Sink) Option {
	return func(o *options) { o.sink = sink }
}

// New builds a machine around a ROM image.
func New(rom []byte, opts ...Option) (*DMG, error) {
	o := options{sink: serial.NewLogSink()}
	for _, opt := range opts {
		opt(&o)
	}

	cart, err := memory.NewCartridge(rom)
	if err != nil {
		return nil, err
	}

	apu := audio.New(o.sampleRate)
	bus := memory.NewBus(cart, apu, o.sink)
	d := &DMG{
		cpu: cpu.New(bus),
		bus: bus,
	}

	slog.Debug("machine ready", "title", cart.Title(), "type", fmt.Sprintf("0x%02X", cart.Type()), "mbc", cart.MBCTag())
	return d, nil
}

// NewFromFile loads a ROM from disk and builds a machine around it.
func NewFromFile(path string, opts ...Option) (*DMG, error) {
	rom, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	slog.Debug("loaded ROM", "path", path, "size", len(rom))
	return New(rom, opts...)
}

// Step executes one instruction and ticks all peripherals for the cycles
// it consumed. Bus accesses inside the instruction have already ticked
// the timer and APU; only the remainder is ticked here. The PPU is not
// tied to bus accesses and always gets the full count.
func (d *DMG) Step() int {
	d.bus.ResetCycleCount()
	cycles := d.cpu.Step()

	if remaining := cycles - d.bus.CyclesTicked(); remaining > 0 {
		d.bus.TickPeripherals(remaining)
	}
	d.bus.TickPPU(cycles)

	d.instructionCount++
	d.frameCycles += cycles
	return cycles
}

// RunFrame advances emulation until one frame's worth of T-cycles
// (70,224) has been consumed, then returns control to the host.
func (d *DMG) RunFrame() {
	for d.frameCycles < video.CyclesPerFrame {
		d.Step()
	}
	d.frameCycles -= video.CyclesPerFrame
	d.frameCount++

	if d.frameCount%600 == 0 {
		slog.Debug("frame progress", "frame", d.frameCount, "pc", fmt.Sprintf("0x%04X", d.cpu.PC()))
	}
}

// RunFrameWithBreakpoints advances like RunFrame but stops after any
// instruction that lands the PC on a breakpoint. It reports whether a
// breakpoint was hit (in which case the frame is incomplete).
func (d *DMG) RunFrameWithBreakpoints(breakpoints map[uint16]struct{}) bool {
	for d.frameCycles < video.CyclesPerFrame {
		d.Step()
		if _, hit := breakpoints[d.cpu.PC()]; hit {
			slog.Debug("breakpoint hit", "pc", fmt.Sprintf("0x%04X", d.cpu.PC()))
			return true
		}
	}
	d.frameCycles -= video.CyclesPerFrame
	d.frameCount++
	return false
}

// Framebuffer returns the current 160x144 2-bit frame.
func (d *DMG) Framebuffer() *video.FrameBuffer {
	return d.bus.PPU.Framebuffer()
}

// Samples drains the APU's buffered interleaved stereo samples.
func (d *DMG) Samples() []float32 {
	return d.bus.APU.Samples()
}

// SetSampleRate changes the audio sample rate mid-run.
func (d *DMG) SetSampleRate(rate int) {
	d.bus.APU.SetSampleRate(rate)
}

// KeyDown forwards a host key press to the joypad.
func (d *DMG) KeyDown(key memory.JoypadKey) {
	d.bus.KeyDown(key)
}

// KeyUp forwards a host key release.
func (d *DMG) KeyUp(key memory.JoypadKey) {
	d.bus.KeyUp(key)
}

// CPU exposes the processor, mainly for tests and debugging front ends.
func (d *DMG) CPU() *cpu.CPU { return d.cpu }

// Bus exposes the memory bus.
func (d *DMG) Bus() *memory.Bus { return d.bus }

// Cartridge returns the loaded cartridge.
func (d *DMG) Cartridge() *memory.Cartridge { return d.bus.Cartridge() }

// InstructionCount reports instructions executed since power-on.
func (d *DMG) InstructionCount() uint64 { return d.instructionCount }

// FrameCount reports completed frames since power-on.
func (d *DMG) FrameCount() uint64 { return d.frameCount }
