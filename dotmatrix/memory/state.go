package memory

import "github.com/tmajkech/dotmatrix/dotmatrix/snapshot"

// Save serializes the bus and everything it owns, in the fixed GBSS body
// order: memories, interrupt registers, serial latches, then timer, PPU,
// APU, joypad and cartridge.
func (b *Bus) Save(w *snapshot.Writer) {
	w.Bytes(b.vram[:])
	w.Bytes(b.wram[:])
	w.Bytes(b.oam[:])
	w.Bytes(b.io[:])
	w.Bytes(b.hram[:])
	w.U8(b.ie)
	w.U8(b.iff)
	w.U8(b.sb)
	w.U8(b.sc)
	b.Timer.Save(w)
	b.PPU.Save(w)
	b.APU.Save(w)
	b.Joypad.Save(w)
	b.cart.Save(w)
}

func (b *Bus) Load(r *snapshot.Reader) {
	r.ReadInto(b.vram[:])
	r.ReadInto(b.wram[:])
	r.ReadInto(b.oam[:])
	r.ReadInto(b.io[:])
	r.ReadInto(b.hram[:])
	b.ie = r.U8()
	b.iff = r.U8()
	b.sb = r.U8()
	b.sc = r.U8()
	b.Timer.Load(r)
	b.PPU.Load(r)
	b.APU.Load(r)
	b.Joypad.Load(r)
	b.cart.Load(r)
}
