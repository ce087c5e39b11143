package video

import "github.com/tmajkech/dotmatrix/dotmatrix/snapshot"

func savePixel(w *snapshot.Writer, px Pixel) {
	w.U8(px.Color)
	w.U8(px.Palette)
	w.Bool(px.BGPriority)
	w.Bool(px.Sprite)
}

func loadPixel(r *snapshot.Reader) Pixel {
	return Pixel{
		Color:      r.U8(),
		Palette:    r.U8(),
		BGPriority: r.Bool(),
		Sprite:     r.Bool(),
	}
}

func saveFIFO(w *snapshot.Writer, q *fifo) {
	w.U8(byte(q.size))
	for i := 0; i < q.size; i++ {
		savePixel(w, *q.At(i))
	}
}

func loadFIFO(r *snapshot.Reader, q *fifo) {
	q.Clear()
	n := int(r.U8())
	for i := 0; i < n && i < len(q.buf); i++ {
		q.Push(loadPixel(r))
	}
}

// Save serializes the PPU, including every piece of mid-scanline state so
// a restored machine resumes pixel-exact.
func (p *PPU) Save(w *snapshot.Writer) {
	w.Bytes(p.fb.buffer[:])
	w.U8(p.lcdc)
	w.U8(p.stat)
	w.U8(p.scy)
	w.U8(p.scx)
	w.U8(p.wy)
	w.U8(p.wx)
	w.U8(p.bgp)
	w.U8(p.obp0)
	w.U8(p.obp1)
	w.U8(p.ly)
	w.U8(p.lyc)
	w.U8(byte(p.mode))
	w.U32(uint32(p.lineClock))

	w.U8(byte(len(p.sprites)))
	for _, s := range p.sprites {
		w.U8(s.index)
		w.U8(s.y)
		w.U8(s.x)
		w.U8(s.tile)
		w.U8(s.flags)
		w.Bool(s.consumed)
	}

	saveFIFO(w, &p.bgFIFO)
	saveFIFO(w, &p.objFIFO)

	w.U8(byte(p.fetch.state))
	w.U8(byte(p.fetch.ticks))
	w.U8(p.fetch.tileColumn)
	w.Bool(p.fetch.window)
	w.U8(p.fetch.tileID)
	w.U8(p.fetch.low)
	w.U8(p.fetch.high)

	w.Bool(p.sfetch.active)
	w.U8(byte(p.sfetch.ticks))
	w.U8(byte(p.sfetch.idx))

	w.U8(byte(p.pixelX))
	w.U8(byte(p.scxDiscard))
	w.U8(byte(p.windowLine))
	w.Bool(p.windowActive)
	w.Bool(p.wyTriggered)
	w.Bool(p.statLine)
	w.Bool(p.vblankRaised)
	w.Bool(p.statRaised)
}

func (p *PPU) Load(r *snapshot.Reader) {
	r.ReadInto(p.fb.buffer[:])
	p.lcdc = r.U8()
	p.stat = r.U8()
	p.scy = r.U8()
	p.scx = r.U8()
	p.wy = r.U8()
	p.wx = r.U8()
	p.bgp = r.U8()
	p.obp0 = r.U8()
	p.obp1 = r.U8()
	p.ly = r.U8()
	p.lyc = r.U8()
	p.mode = Mode(r.U8())
	p.lineClock = int(r.U32())

	n := int(r.U8())
	p.sprites = p.sprites[:0]
	for i := 0; i < n && i < 10; i++ {
		p.sprites = append(p.sprites, sprite{
			index:    r.U8(),
			y:        r.U8(),
			x:        r.U8(),
			tile:     r.U8(),
			flags:    r.U8(),
			consumed: r.Bool(),
		})
	}

	loadFIFO(r, &p.bgFIFO)
	loadFIFO(r, &p.objFIFO)

	p.fetch.state = fetcherState(r.U8())
	p.fetch.ticks = int(r.U8())
	p.fetch.tileColumn = r.U8()
	p.fetch.window = r.Bool()
	p.fetch.tileID = r.U8()
	p.fetch.low = r.U8()
	p.fetch.high = r.U8()

	p.sfetch.active = r.Bool()
	p.sfetch.ticks = int(r.U8())
	p.sfetch.idx = int(r.U8())

	p.pixelX = int(r.U8())
	p.scxDiscard = int(r.U8())
	p.windowLine = int(r.U8())
	p.windowActive = r.Bool()
	p.wyTriggered = r.Bool()
	p.statLine = r.Bool()
	p.vblankRaised = r.Bool()
	p.statRaised = r.Bool()
}
