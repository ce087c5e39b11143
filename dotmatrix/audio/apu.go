// Package audio implements the DMG APU: two pulse channels, a wave
// channel and a noise channel, mixed to interleaved stereo float samples.
package audio

import (
	"github.com/tmajkech/dotmatrix/dotmatrix/addr"
)

// CPUFrequency is the master clock rate in T-cycles per second.
const CPUFrequency = 4194304

// Read OR masks for 0xFF10-0xFF26: unused and write-only bits read as 1.
// Indexed by (address - 0xFF10).
var readMasks = [23]byte{
	0x80, // NR10
	0x3F, // NR11
	0x00, // NR12
	0xFF, // NR13 (write-only)
	0xBF, // NR14
	0xFF, // unused
	0x3F, // NR21
	0x00, // NR22
	0xFF, // NR23 (write-only)
	0xBF, // NR24
	0x7F, // NR30
	0xFF, // NR31 (write-only)
	0x9F, // NR32
	0xFF, // NR33 (write-only)
	0xBF, // NR34
	0xFF, // unused
	0xFF, // NR41 (write-only)
	0x00, // NR42
	0x00, // NR43
	0xBF, // NR44
	0x00, // NR50
	0x00, // NR51
	0x70, // NR52
}

// APU is the audio processing unit. Channel frequency timers advance every
// T-cycle; length/sweep/envelope are clocked by the frame sequencer, which
// is driven by falling edges of bit 12 of the timer's internal counter.
type APU struct {
	ch1 SquareChannel
	ch2 SquareChannel
	ch3 WaveChannel
	ch4 NoiseChannel

	nr50, nr51 byte
	power      bool

	frameStep byte // 0-7

	// Sample generation: the accumulator gains sampleRate every T-cycle
	// and emits one stereo frame each time it crosses the CPU frequency.
	sampleRate  int
	sampleTimer int
	samples     []float32
	maxSamples  int
}

// New creates an APU generating samples at the given host rate (Hz).
// A rate of 0 disables sample generation.
func New(sampleRate int) *APU {
	a := &APU{ch1: SquareChannel{hasSweep: true}}
	a.SetSampleRate(sampleRate)
	return a
}

// SetSampleRate changes the host sample rate. The output buffer is bounded
// at roughly four frames of audio; the producer never blocks and the
// oldest samples are dropped past the high-water mark.
func (a *APU) SetSampleRate(rate int) {
	a.sampleRate = rate
	a.maxSamples = rate * 2 * 4 / 60
}

// ClockFrameSequencer advances the 3-bit sequencer step. Steps 0/2/4/6
// clock lengths, 2 and 6 also clock channel 1's sweep, 7 clocks envelopes.
func (a *APU) ClockFrameSequencer() {
	switch a.frameStep {
	case 0, 4:
		a.ch1.clockLength()
		a.ch2.clockLength()
		a.ch3.clockLength()
		a.ch4.clockLength()
	case 2, 6:
		a.ch1.clockLength()
		a.ch2.clockLength()
		a.ch3.clockLength()
		a.ch4.clockLength()
		a.ch1.clockSweep()
	case 7:
		a.ch1.clockEnvelope()
		a.ch2.clockEnvelope()
		a.ch4.clockEnvelope()
	}
	a.frameStep = (a.frameStep + 1) & 7
}

// FrameStep returns the current frame sequencer step (for tests).
func (a *APU) FrameStep() byte { return a.frameStep }

// TickCycle advances the channel frequency timers by one T-cycle and runs
// sample generation.
func (a *APU) TickCycle() {
	a.ch1.Tick()
	a.ch2.Tick()
	a.ch3.Tick()
	a.ch4.Tick()

	if a.sampleRate > 0 {
		a.sampleTimer += a.sampleRate
		if a.sampleTimer >= CPUFrequency {
			a.sampleTimer -= CPUFrequency
			a.generateSample()
		}
	}
}

// dac converts a channel's 4-bit output to a signed float in [-1, 1].
func dac(enabled bool, sample byte) float32 {
	if !enabled {
		return 0
	}
	return float32(sample)/7.5 - 1
}

func (a *APU) generateSample() {
	if !a.power {
		a.pushSample(0, 0)
		return
	}

	outputs := [4]float32{
		dac(a.ch1.enabled && a.ch1.dacEnabled, a.ch1.Output()),
		dac(a.ch2.enabled && a.ch2.dacEnabled, a.ch2.Output()),
		dac(a.ch3.enabled && a.ch3.dacEnabled, a.ch3.Output()),
		dac(a.ch4.enabled && a.ch4.dacEnabled, a.ch4.Output()),
	}

	var left, right float32
	for i, out := range outputs {
		if a.nr51&(1<<(i+4)) != 0 {
			left += out
		}
		if a.nr51&(1<<i) != 0 {
			right += out
		}
	}

	leftVol := float32((a.nr50>>4)&0x07) + 1
	rightVol := float32(a.nr50&0x07) + 1

	// Normalize: 4 channels, 8 volume levels.
	a.pushSample(left*leftVol/32, right*rightVol/32)
}

func (a *APU) pushSample(left, right float32) {
	a.samples = append(a.samples, left, right)
	if a.maxSamples > 0 && len(a.samples) > a.maxSamples {
		overflow := len(a.samples) - a.maxSamples
		a.samples = append(a.samples[:0], a.samples[overflow:]...)
	}
}

// Samples drains and returns the buffered interleaved stereo samples.
func (a *APU) Samples() []float32 {
	out := a.samples
	a.samples = nil
	return out
}

// ReadRegister returns masked register values; write-only and unused bits
// read as 1.
func (a *APU) ReadRegister(address uint16) byte {
	switch {
	case address >= 0xFF10 && address <= 0xFF26:
		return a.readRaw(address) | readMasks[address-0xFF10]
	case address >= 0xFF27 && address <= 0xFF2F:
		return 0xFF
	case address >= addr.WaveRAMStart && address <= addr.WaveRAMEnd:
		return a.ch3.ReadWaveRAM(byte(address - addr.WaveRAMStart))
	}
	return 0xFF
}

func (a *APU) readRaw(address uint16) byte {
	switch address {
	case addr.NR10:
		return a.ch1.nrx0
	case addr.NR11:
		return a.ch1.nrx1
	case addr.NR12:
		return a.ch1.nrx2
	case addr.NR13:
		return a.ch1.nrx3
	case addr.NR14:
		return a.ch1.nrx4
	case addr.NR21:
		return a.ch2.nrx1
	case addr.NR22:
		return a.ch2.nrx2
	case addr.NR23:
		return a.ch2.nrx3
	case addr.NR24:
		return a.ch2.nrx4
	case addr.NR30:
		return a.ch3.nr30
	case addr.NR31:
		return a.ch3.nr31
	case addr.NR32:
		return a.ch3.nr32
	case addr.NR33:
		return a.ch3.nr33
	case addr.NR34:
		return a.ch3.nr34
	case addr.NR41:
		return a.ch4.nr41
	case addr.NR42:
		return a.ch4.nr42
	case addr.NR43:
		return a.ch4.nr43
	case addr.NR44:
		return a.ch4.nr44
	case addr.NR50:
		return a.nr50
	case addr.NR51:
		return a.nr51
	case addr.NR52:
		var v byte
		if a.power {
			v = 0x80
		}
		if a.ch1.enabled {
			v |= 0x01
		}
		if a.ch2.enabled {
			v |= 0x02
		}
		if a.ch3.enabled {
			v |= 0x04
		}
		if a.ch4.enabled {
			v |= 0x08
		}
		return v
	}
	return 0xFF
}

// WriteRegister stores a register value and updates channel state. While
// the power bit is off, only NR52, wave RAM and the length registers are
// writable (the DMG keeps length counters alive with power off).
func (a *APU) WriteRegister(address uint16, v byte) {
	if address >= addr.WaveRAMStart && address <= addr.WaveRAMEnd {
		a.ch3.WriteWaveRAM(byte(address-addr.WaveRAMStart), v)
		return
	}

	if address == addr.NR52 {
		wasOn := a.power
		a.power = v&0x80 != 0
		if wasOn && !a.power {
			a.powerOff()
		} else if !wasOn && a.power {
			a.frameStep = 0
		}
		return
	}

	if !a.power {
		switch address {
		case addr.NR11:
			a.ch1.writeLength(v)
		case addr.NR21:
			a.ch2.writeLength(v)
		case addr.NR31:
			a.ch3.writeLength(v)
		case addr.NR41:
			a.ch4.writeLength(v)
		}
		return
	}

	switch address {
	case addr.NR10:
		a.ch1.writeNR10(v)
	case addr.NR11:
		a.ch1.writeNRx1(v)
	case addr.NR12:
		a.ch1.writeNRx2(v)
	case addr.NR13:
		a.ch1.writeNRx3(v)
	case addr.NR14:
		a.ch1.writeNRx4(v, a.frameStep)
	case addr.NR21:
		a.ch2.writeNRx1(v)
	case addr.NR22:
		a.ch2.writeNRx2(v)
	case addr.NR23:
		a.ch2.writeNRx3(v)
	case addr.NR24:
		a.ch2.writeNRx4(v, a.frameStep)
	case addr.NR30:
		a.ch3.writeNR30(v)
	case addr.NR31:
		a.ch3.writeNR31(v)
	case addr.NR32:
		a.ch3.writeNR32(v)
	case addr.NR33:
		a.ch3.writeNR33(v)
	case addr.NR34:
		a.ch3.writeNR34(v, a.frameStep)
	case addr.NR41:
		a.ch4.writeNR41(v)
	case addr.NR42:
		a.ch4.writeNR42(v)
	case addr.NR43:
		a.ch4.writeNR43(v)
	case addr.NR44:
		a.ch4.writeNR44(v, a.frameStep)
	case addr.NR50:
		a.nr50 = v
	case addr.NR51:
		a.nr51 = v
	}
}

func (a *APU) powerOff() {
	a.ch1.powerOff()
	a.ch2.powerOff()
	a.ch3.powerOff()
	a.ch4.powerOff()
	a.nr50 = 0
	a.nr51 = 0
}
