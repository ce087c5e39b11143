// Package video implements the DMG PPU as a per-T-cycle pixel pipeline:
// an OAM scan, a background fetcher feeding a pixel FIFO, per-pixel sprite
// injection and mid-scanline window activation.
package video

import (
	"github.com/tmajkech/dotmatrix/dotmatrix/addr"
	"github.com/tmajkech/dotmatrix/dotmatrix/bit"
)

// Mode is the PPU rendering stage, encoded as in STAT bits 1-0.
type Mode byte

const (
	ModeHBlank  Mode = 0
	ModeVBlank  Mode = 1
	ModeOAMScan Mode = 2
	ModeDrawing Mode = 3
)

const (
	// CyclesPerFrame is 154 scanlines of 456 T-cycles.
	CyclesPerFrame = 70224

	oamScanCycles  = 80
	scanlineCycles = 456
	vblankLine     = 144
	lastLine       = 153
)

// LCDC bit indices.
const (
	lcdcEnable       = 7
	lcdcWindowMap    = 6
	lcdcWindowEnable = 5
	lcdcTileData     = 4
	lcdcBGMap        = 3
	lcdcSpriteSize   = 2
	lcdcSpriteEnable = 1
	lcdcBGEnable     = 0
)

// STAT bit indices.
const (
	statLYCIRQ    = 6
	statOAMIRQ    = 5
	statVBlankIRQ = 4
	statHBlankIRQ = 3
)

// sprite is one entry of the per-scanline sprite table built by OAM scan.
type sprite struct {
	index    byte // position in OAM, for stable priority
	y, x     byte // raw OAM coordinates (offset by 16 and 8)
	tile     byte
	flags    byte
	consumed bool
}

type fetcherState byte

const (
	fetchTileID fetcherState = iota
	fetchTileLow
	fetchTileHigh
	fetchPush
)

// fetcher is the state machine feeding tile rows into the BG FIFO. Each of
// the read states dwells two T-cycles; Push stalls until the FIFO drains.
type fetcher struct {
	state      fetcherState
	ticks      int
	tileColumn byte
	window     bool
	tileID     byte
	low, high  byte
}

type spriteFetch struct {
	active bool
	ticks  int
	idx    int // index into the scanline sprite table
}

// PPU drives the LCD. It owns its registers and the framebuffer; VRAM and
// OAM live on the bus and are passed into Tick.
type PPU struct {
	fb FrameBuffer

	lcdc, stat byte
	scy, scx   byte
	wy, wx     byte
	bgp        byte
	obp0, obp1 byte
	ly, lyc    byte

	mode      Mode
	lineClock int

	sprites    []sprite
	bgFIFO     fifo
	objFIFO    fifo
	fetch      fetcher
	sfetch     spriteFetch
	pixelX     int
	scxDiscard int

	windowLine   int
	windowActive bool
	wyTriggered  bool

	// Shared STAT interrupt line; a STAT interrupt fires only on a rising
	// edge, so transitions through an already-asserted source don't
	// retrigger.
	statLine bool

	vblankRaised bool
	statRaised   bool
}

func New() *PPU {
	return &PPU{
		lcdc:    0x91,
		bgp:     0xFC,
		obp0:    0xFF,
		obp1:    0xFF,
		mode:    ModeOAMScan,
		sprites: make([]sprite, 0, 10),
	}
}

func (p *PPU) Framebuffer() *FrameBuffer { return &p.fb }

// Mode returns the current rendering stage.
func (p *PPU) Mode() Mode { return p.mode }

// LY returns the current scanline.
func (p *PPU) LY() byte { return p.ly }

// TakeInterrupts returns and clears the VBlank/STAT interrupt requests
// accumulated since the last call.
func (p *PPU) TakeInterrupts() (vblank, stat bool) {
	vblank, stat = p.vblankRaised, p.statRaised
	p.vblankRaised, p.statRaised = false, false
	return
}

func (p *PPU) lcdcBit(index byte) bool { return bit.IsSet(index, p.lcdc) }

// Tick advances the PPU by the given number of T-cycles.
func (p *PPU) Tick(cycles int, vram, oam []byte) {
	if !p.lcdcBit(lcdcEnable) {
		return
	}

	for range cycles {
		p.tickCycle(vram, oam)
	}
}

func (p *PPU) tickCycle(vram, oam []byte) {
	p.lineClock++

	switch p.mode {
	case ModeOAMScan:
		if p.lineClock >= oamScanCycles {
			p.startDrawing(oam)
		}
	case ModeDrawing:
		p.drawCycle(vram)
	case ModeHBlank, ModeVBlank:
		if p.lineClock >= scanlineCycles {
			p.lineClock = 0
			p.advanceLine()
		}
	}
}

func (p *PPU) advanceLine() {
	if p.mode == ModeDrawing || p.mode == ModeHBlank {
		if p.windowActive {
			p.windowLine++
		}
	}

	p.ly++
	switch {
	case p.ly == vblankLine:
		p.setMode(ModeVBlank)
		p.vblankRaised = true
	case p.ly > lastLine:
		p.ly = 0
		p.windowLine = 0
		p.wyTriggered = false
		p.setMode(ModeOAMScan)
	case p.ly < vblankLine:
		p.setMode(ModeOAMScan)
	}
	p.updateSTATLine()
}

func (p *PPU) setMode(mode Mode) {
	p.mode = mode
	p.updateSTATLine()
}

// updateSTATLine recomputes the shared STAT interrupt line and requests
// the interrupt on its rising edge.
func (p *PPU) updateSTATLine() {
	line := false
	switch p.mode {
	case ModeHBlank:
		line = bit.IsSet(statHBlankIRQ, p.stat)
	case ModeVBlank:
		line = bit.IsSet(statVBlankIRQ, p.stat)
	case ModeOAMScan:
		line = bit.IsSet(statOAMIRQ, p.stat)
	}
	if p.ly == p.lyc && bit.IsSet(statLYCIRQ, p.stat) {
		line = true
	}

	if line && !p.statLine {
		p.statRaised = true
	}
	p.statLine = line
}

func (p *PPU) spriteHeight() byte {
	if p.lcdcBit(lcdcSpriteSize) {
		return 16
	}
	return 8
}

// startDrawing begins mode 3: scan OAM for this line's sprites and reset
// the pixel pipeline.
func (p *PPU) startDrawing(oam []byte) {
	// The window's WY condition is sticky for the rest of the frame.
	if p.ly == p.wy {
		p.wyTriggered = true
	}

	p.scanSprites(oam)

	p.bgFIFO.Clear()
	p.objFIFO.Clear()
	p.fetch = fetcher{}
	p.sfetch = spriteFetch{}
	p.pixelX = 0
	p.scxDiscard = int(p.scx & 7)
	p.windowActive = false

	p.setMode(ModeDrawing)
}

// scanSprites builds the scanline sprite table: up to 10 sprites whose
// vertical span covers LY, in OAM order.
func (p *PPU) scanSprites(oam []byte) {
	p.sprites = p.sprites[:0]
	height := p.spriteHeight()

	for i := 0; i < 40 && len(p.sprites) < 10; i++ {
		sy := oam[i*4]
		row := int(p.ly) + 16 - int(sy)
		if row < 0 || row >= int(height) {
			continue
		}
		p.sprites = append(p.sprites, sprite{
			index: byte(i),
			y:     sy,
			x:     oam[i*4+1],
			tile:  oam[i*4+2],
			flags: oam[i*4+3],
		})
	}
}

// spriteAt returns the first unconsumed sprite whose screen X matches the
// current pixel cursor, or -1.
func (p *PPU) spriteAt(x int) int {
	for i := range p.sprites {
		s := &p.sprites[i]
		if s.consumed {
			continue
		}
		screenX := int(s.x) - 8
		if screenX < 0 {
			screenX = 0
		}
		if screenX == x {
			return i
		}
	}
	return -1
}

// drawCycle advances the drawing pipeline by one T-cycle.
func (p *PPU) drawCycle(vram []byte) {
	// A sprite fetch in progress owns the cycle.
	if p.sfetch.active {
		p.sfetch.ticks++
		if p.sfetch.ticks >= 6 {
			p.injectSprite(vram, p.sfetch.idx)
			p.sprites[p.sfetch.idx].consumed = true
			p.sfetch = spriteFetch{}
			// Another sprite may share this column.
			if idx := p.spriteAt(p.pixelX); idx >= 0 {
				p.sfetch = spriteFetch{active: true, idx: idx}
			}
		}
		return
	}

	// Mid-scanline window activation: restart the fetcher on the window
	// map the moment the cursor reaches WX-7.
	if !p.windowActive && p.lcdcBit(lcdcWindowEnable) && p.wyTriggered && p.pixelX >= int(p.wx)-7 {
		p.windowActive = true
		p.bgFIFO.Clear()
		p.fetch = fetcher{window: true}
	}

	p.stepFetcher(vram)

	if p.lcdcBit(lcdcSpriteEnable) && p.bgFIFO.Len() > 0 {
		if idx := p.spriteAt(p.pixelX); idx >= 0 {
			p.sfetch = spriteFetch{active: true, idx: idx}
			return
		}
	}

	if p.bgFIFO.Len() == 0 {
		return
	}

	bgPixel, _ := p.bgFIFO.Pop()

	// SCX fine scroll: silently discard the first scx%8 pixels.
	if p.scxDiscard > 0 {
		p.scxDiscard--
		return
	}

	var objPixel Pixel
	hasObj := false
	if p.objFIFO.Len() > 0 {
		objPixel, _ = p.objFIFO.Pop()
		hasObj = objPixel.Color != 0
	}

	bgColor := byte(0)
	if p.lcdcBit(lcdcBGEnable) {
		bgColor = bgPixel.Color
	}

	shade := paletteShade(bgPixel.Palette, bgColor)
	if hasObj && (!objPixel.BGPriority || bgColor == 0) {
		shade = paletteShade(objPixel.Palette, objPixel.Color)
	}

	p.fb.SetPixel(p.pixelX, int(p.ly), shade)
	p.pixelX++

	if p.pixelX == FramebufferWidth {
		p.setMode(ModeHBlank)
	}
}

func paletteShade(palette, color byte) byte {
	return (palette >> (color * 2)) & 0x03
}

// stepFetcher advances the background fetcher one T-cycle.
func (p *PPU) stepFetcher(vram []byte) {
	if p.fetch.state != fetchPush {
		p.fetch.ticks++
		if p.fetch.ticks < 2 {
			return
		}
		p.fetch.ticks = 0
	}

	switch p.fetch.state {
	case fetchTileID:
		p.fetch.tileID = vram[p.tileIDAddress()-0x8000]
		p.fetch.state = fetchTileLow
	case fetchTileLow:
		p.fetch.low = vram[p.tileDataAddress()-0x8000]
		p.fetch.state = fetchTileHigh
	case fetchTileHigh:
		p.fetch.high = vram[p.tileDataAddress()-0x8000+1]
		p.fetch.state = fetchPush
	case fetchPush:
		if p.bgFIFO.Len() > 0 {
			return
		}
		for px := 0; px < 8; px++ {
			idx := byte(7 - px)
			color := bit.GetBitValue(idx, p.fetch.high)<<1 | bit.GetBitValue(idx, p.fetch.low)
			p.bgFIFO.Push(Pixel{Color: color, Palette: p.bgp})
		}
		p.fetch.tileColumn++
		p.fetch.state = fetchTileID
	}
}

func (p *PPU) tileIDAddress() uint16 {
	if p.fetch.window {
		mapBase := addr.TileMap0
		if p.lcdcBit(lcdcWindowMap) {
			mapBase = addr.TileMap1
		}
		row := uint16(p.windowLine / 8)
		col := uint16(p.fetch.tileColumn & 0x1F)
		return mapBase + row*32 + col
	}

	mapBase := addr.TileMap0
	if p.lcdcBit(lcdcBGMap) {
		mapBase = addr.TileMap1
	}
	y := (uint16(p.ly) + uint16(p.scy)) & 0xFF
	col := (uint16(p.scx/8) + uint16(p.fetch.tileColumn)) & 0x1F
	return mapBase + (y/8)*32 + col
}

func (p *PPU) tileDataAddress() uint16 {
	var fineY uint16
	if p.fetch.window {
		fineY = uint16(p.windowLine) & 7
	} else {
		fineY = (uint16(p.ly) + uint16(p.scy)) & 7
	}

	if p.lcdcBit(lcdcTileData) {
		return addr.TileData0 + uint16(p.fetch.tileID)*16 + fineY*2
	}
	return uint16(int(addr.TileData2) + int(int8(p.fetch.tileID))*16 + int(fineY)*2)
}

// injectSprite mixes one sprite's row into the OBJ FIFO. Transparent slots
// are overwritten, opaque slots keep the earlier sprite (first sprite wins
// per column).
func (p *PPU) injectSprite(vram []byte, idx int) {
	s := &p.sprites[idx]
	height := p.spriteHeight()

	row := byte(int(p.ly) + 16 - int(s.y))
	if bit.IsSet(6, s.flags) { // Y flip
		row = height - 1 - row
	}

	tile := s.tile
	if height == 16 {
		tile &= 0xFE
		if row >= 8 {
			tile |= 0x01
			row -= 8
		}
	}

	tileAddr := uint16(tile)*16 + uint16(row)*2
	low := vram[tileAddr]
	high := vram[tileAddr+1]

	palette := p.obp0
	if bit.IsSet(4, s.flags) {
		palette = p.obp1
	}
	flipX := bit.IsSet(5, s.flags)
	behindBG := bit.IsSet(7, s.flags)

	// Sprites partially off the left edge show only their rightmost pixels.
	shift := 0
	if s.x < 8 {
		shift = 8 - int(s.x)
	}

	for p.objFIFO.Len() < 8-shift {
		p.objFIFO.Push(Pixel{Sprite: true})
	}

	for i := shift; i < 8; i++ {
		bitIdx := byte(7 - i)
		if flipX {
			bitIdx = byte(i)
		}
		color := bit.GetBitValue(bitIdx, high)<<1 | bit.GetBitValue(bitIdx, low)

		slot := p.objFIFO.At(i - shift)
		if slot.Color == 0 {
			*slot = Pixel{Color: color, Palette: palette, BGPriority: behindBG, Sprite: true}
		}
	}
}

// ReadRegister serves the PPU's slice of the I/O map (except DMA, which
// the bus owns).
func (p *PPU) ReadRegister(address uint16) byte {
	switch address {
	case addr.LCDC:
		return p.lcdc
	case addr.STAT:
		lycFlag := byte(0)
		if p.ly == p.lyc {
			lycFlag = 0x04
		}
		return 0x80 | (p.stat & 0x78) | lycFlag | byte(p.mode)
	case addr.SCY:
		return p.scy
	case addr.SCX:
		return p.scx
	case addr.LY:
		return p.ly
	case addr.LYC:
		return p.lyc
	case addr.BGP:
		return p.bgp
	case addr.OBP0:
		return p.obp0
	case addr.OBP1:
		return p.obp1
	case addr.WY:
		return p.wy
	case addr.WX:
		return p.wx
	}
	return 0xFF
}

func (p *PPU) WriteRegister(address uint16, v byte) {
	switch address {
	case addr.LCDC:
		wasOn := p.lcdcBit(lcdcEnable)
		p.lcdc = v
		if wasOn && !p.lcdcBit(lcdcEnable) {
			// LCD off: LY resets and the PPU idles in HBlank.
			p.ly = 0
			p.lineClock = 0
			p.mode = ModeHBlank
			p.statLine = false
		} else if !wasOn && p.lcdcBit(lcdcEnable) {
			p.setMode(ModeOAMScan)
		}
	case addr.STAT:
		// Bits 2:0 are live values; only the enable bits are writable.
		p.stat = v & 0xF8
		p.updateSTATLine()
	case addr.SCY:
		p.scy = v
	case addr.SCX:
		p.scx = v
	case addr.LY:
		// read-only
	case addr.LYC:
		p.lyc = v
		p.updateSTATLine()
	case addr.BGP:
		p.bgp = v
	case addr.OBP0:
		p.obp0 = v
	case addr.OBP1:
		p.obp1 = v
	case addr.WY:
		p.wy = v
	case addr.WX:
		p.wx = v
	}
}
