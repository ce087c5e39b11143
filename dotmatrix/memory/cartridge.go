package memory

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tmajkech/dotmatrix/dotmatrix/snapshot"
)

// ErrBadHeader is returned when a ROM image is too small or structurally
// invalid.
var ErrBadHeader = errors.New("bad cartridge header")

// Header field offsets.
const (
	titleAddress         = 0x0134
	titleEnd             = 0x0144
	cartridgeTypeAddress = 0x0147
	romSizeAddress       = 0x0148
	ramSizeAddress       = 0x0149
	headerEnd            = 0x0150
)

// ramSizeFromCode maps the header RAM size code to a byte count.
func ramSizeFromCode(code byte) int {
	switch code {
	case 0x01:
		return 2 * 1024
	case 0x02:
		return 8 * 1024
	case 0x03:
		return 32 * 1024
	case 0x04:
		return 128 * 1024
	case 0x05:
		return 64 * 1024
	default:
		return 0
	}
}

// Cartridge owns the ROM image, sized external RAM and the bank controller
// selected by the header's cartridge type byte.
type Cartridge struct {
	rom   []byte
	title string

	cartType byte
	mbc      MBC
}

// NewCartridge parses the header of a ROM image and builds the matching
// bank controller.
func NewCartridge(data []byte) (*Cartridge, error) {
	if len(data) < headerEnd {
		return nil, fmt.Errorf("%w: image is %d bytes, need at least 0x150", ErrBadHeader, len(data))
	}

	title := strings.TrimRight(string(data[titleAddress:titleEnd]), "\x00")
	cartType := data[cartridgeTypeAddress]
	ramSize := ramSizeFromCode(data[ramSizeAddress])

	c := &Cartridge{
		rom:      data,
		title:    title,
		cartType: cartType,
	}

	switch {
	case cartType == 0x00:
		c.mbc = &NoMBC{rom: data}
	case cartType >= 0x01 && cartType <= 0x03:
		c.mbc = NewMBC1(data, ramSize)
	case cartType >= 0x0F && cartType <= 0x13:
		c.mbc = NewMBC3(data, ramSize)
	case cartType >= 0x19 && cartType <= 0x1E:
		c.mbc = NewMBC5(data, ramSize)
	default:
		return nil, fmt.Errorf("%w: unsupported cartridge type 0x%02X", ErrBadHeader, cartType)
	}

	return c, nil
}

// Title returns the ASCII title from the header, trailing NULs trimmed.
func (c *Cartridge) Title() string { return c.title }

// Type returns the raw cartridge type byte.
func (c *Cartridge) Type() byte { return c.cartType }

// MBCTag identifies the controller variant for snapshot validation.
func (c *Cartridge) MBCTag() byte {
	switch c.mbc.(type) {
	case *NoMBC:
		return 0
	case *MBC1:
		return 1
	case *MBC3:
		return 3
	case *MBC5:
		return 5
	}
	return 0xFF
}

// Read routes a bus read in 0x0000-0x7FFF or 0xA000-0xBFFF to the MBC.
func (c *Cartridge) Read(address uint16) byte {
	return c.mbc.Read(address)
}

// Write routes a bus write to the MBC's control registers or RAM.
func (c *Cartridge) Write(address uint16, v byte) {
	c.mbc.Write(address, v)
}

// RAM exposes the battery-backed external RAM for persistence. The
// returned slice aliases live state.
func (c *Cartridge) RAM() []byte { return c.mbc.RAM() }

// LoadRAM restores battery-backed RAM contents. Data beyond the
// cartridge's RAM size is ignored.
func (c *Cartridge) LoadRAM(data []byte) {
	copy(c.mbc.RAM(), data)
}

// RTC returns the real-time clock for MBC3 cartridges, or nil.
func (c *Cartridge) RTC() *RTC {
	if m, ok := c.mbc.(*MBC3); ok {
		return &m.rtc
	}
	return nil
}

func (c *Cartridge) Save(w *snapshot.Writer) {
	c.mbc.Save(w)
}

func (c *Cartridge) Load(r *snapshot.Reader) {
	c.mbc.Load(r)
}
