package audio

import "github.com/tmajkech/dotmatrix/dotmatrix/snapshot"

// Save serializes the APU. Field order mirrors Load exactly.
func (a *APU) Save(w *snapshot.Writer) {
	w.U8(a.nr50)
	w.U8(a.nr51)
	w.Bool(a.power)
	w.U8(a.frameStep)
	w.U32(uint32(a.sampleRate))
	w.U32(uint32(a.sampleTimer))
	a.ch1.save(w)
	a.ch2.save(w)
	a.ch3.save(w)
	a.ch4.save(w)
}

func (a *APU) Load(r *snapshot.Reader) {
	a.nr50 = r.U8()
	a.nr51 = r.U8()
	a.power = r.Bool()
	a.frameStep = r.U8()
	a.SetSampleRate(int(r.U32()))
	a.sampleTimer = int(r.U32())
	a.ch1.load(r)
	a.ch2.load(r)
	a.ch3.load(r)
	a.ch4.load(r)
	a.samples = nil
}

func (ch *SquareChannel) save(w *snapshot.Writer) {
	w.Bool(ch.enabled)
	w.Bool(ch.dacEnabled)
	w.U8(ch.nrx0)
	w.U8(ch.nrx1)
	w.U8(ch.nrx2)
	w.U8(ch.nrx3)
	w.U8(ch.nrx4)
	w.U16(ch.length)
	w.U8(ch.volume)
	w.U8(ch.envTimer)
	w.Bool(ch.envRunning)
	w.U32(uint32(ch.freqTimer))
	w.U8(ch.dutyStep)
	w.U8(ch.sweepTimer)
	w.Bool(ch.sweepEnabled)
	w.U16(ch.sweepShadow)
	w.Bool(ch.sweepNegUsed)
}

func (ch *SquareChannel) load(r *snapshot.Reader) {
	ch.enabled = r.Bool()
	ch.dacEnabled = r.Bool()
	ch.nrx0 = r.U8()
	ch.nrx1 = r.U8()
	ch.nrx2 = r.U8()
	ch.nrx3 = r.U8()
	ch.nrx4 = r.U8()
	ch.length = r.U16()
	ch.volume = r.U8()
	ch.envTimer = r.U8()
	ch.envRunning = r.Bool()
	ch.freqTimer = int(int32(r.U32()))
	ch.dutyStep = r.U8()
	ch.sweepTimer = r.U8()
	ch.sweepEnabled = r.Bool()
	ch.sweepShadow = r.U16()
	ch.sweepNegUsed = r.Bool()
}

func (ch *WaveChannel) save(w *snapshot.Writer) {
	w.Bool(ch.enabled)
	w.Bool(ch.dacEnabled)
	w.U8(ch.nr30)
	w.U8(ch.nr31)
	w.U8(ch.nr32)
	w.U8(ch.nr33)
	w.U8(ch.nr34)
	w.Bytes(ch.waveRAM[:])
	w.U16(ch.length)
	w.U32(uint32(ch.freqTimer))
	w.U8(ch.position)
	w.U8(ch.sampleBuffer)
	w.Bool(ch.waveJustRead)
}

func (ch *WaveChannel) load(r *snapshot.Reader) {
	ch.enabled = r.Bool()
	ch.dacEnabled = r.Bool()
	ch.nr30 = r.U8()
	ch.nr31 = r.U8()
	ch.nr32 = r.U8()
	ch.nr33 = r.U8()
	ch.nr34 = r.U8()
	r.ReadInto(ch.waveRAM[:])
	ch.length = r.U16()
	ch.freqTimer = int(int32(r.U32()))
	ch.position = r.U8()
	ch.sampleBuffer = r.U8()
	ch.waveJustRead = r.Bool()
}

func (ch *NoiseChannel) save(w *snapshot.Writer) {
	w.Bool(ch.enabled)
	w.Bool(ch.dacEnabled)
	w.U8(ch.nr41)
	w.U8(ch.nr42)
	w.U8(ch.nr43)
	w.U8(ch.nr44)
	w.U16(ch.length)
	w.U8(ch.volume)
	w.U8(ch.envTimer)
	w.Bool(ch.envRunning)
	w.U32(uint32(ch.freqTimer))
	w.U16(ch.lfsr)
}

func (ch *NoiseChannel) load(r *snapshot.Reader) {
	ch.enabled = r.Bool()
	ch.dacEnabled = r.Bool()
	ch.nr41 = r.U8()
	ch.nr42 = r.U8()
	ch.nr43 = r.U8()
	ch.nr44 = r.U8()
	ch.length = r.U16()
	ch.volume = r.U8()
	ch.envTimer = r.U8()
	ch.envRunning = r.Bool()
	ch.freqTimer = int(int32(r.U32()))
	ch.lfsr = r.U16()
}
