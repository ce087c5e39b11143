package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func romWithHeader(cartType, ramCode byte, title string) []byte {
	rom := make([]byte, 0x8000)
	copy(rom[titleAddress:], title)
	rom[cartridgeTypeAddress] = cartType
	rom[ramSizeAddress] = ramCode
	return rom
}

func TestNewCartridge(t *testing.T) {
	t.Run("rejects images shorter than the header", func(t *testing.T) {
		_, err := NewCartridge(make([]byte, 0x14F))
		assert.ErrorIs(t, err, ErrBadHeader)
	})

	t.Run("rejects unknown cartridge types", func(t *testing.T) {
		_, err := NewCartridge(romWithHeader(0x42, 0, ""))
		assert.ErrorIs(t, err, ErrBadHeader)
	})

	t.Run("parses the title with trailing NULs trimmed", func(t *testing.T) {
		cart, err := NewCartridge(romWithHeader(0x00, 0, "TETRIS"))
		require.NoError(t, err)
		assert.Equal(t, "TETRIS", cart.Title())
	})

	t.Run("selects the controller by type byte", func(t *testing.T) {
		testCases := []struct {
			cartType byte
			tag      byte
		}{
			{0x00, 0},
			{0x01, 1},
			{0x03, 1},
			{0x0F, 3},
			{0x13, 3},
			{0x19, 5},
			{0x1E, 5},
		}
		for _, tC := range testCases {
			cart, err := NewCartridge(romWithHeader(tC.cartType, 0, ""))
			require.NoError(t, err)
			assert.Equalf(t, tC.tag, cart.MBCTag(), "type 0x%02X", tC.cartType)
		}
	})

	t.Run("sizes RAM from the header code", func(t *testing.T) {
		testCases := []struct {
			code byte
			size int
		}{
			{0x00, 0},
			{0x01, 2 * 1024},
			{0x02, 8 * 1024},
			{0x03, 32 * 1024},
			{0x04, 128 * 1024},
			{0x05, 64 * 1024},
		}
		for _, tC := range testCases {
			cart, err := NewCartridge(romWithHeader(0x03, tC.code, ""))
			require.NoError(t, err)
			assert.Equalf(t, tC.size, len(cart.RAM()), "code 0x%02X", tC.code)
		}
	})
}

func TestCartridge_batteryRAM(t *testing.T) {
	cart, err := NewCartridge(romWithHeader(0x03, 0x03, "SAVEGAME"))
	require.NoError(t, err)

	// Write through the controller, read back through the RAM snapshot.
	cart.Write(0x0000, 0x0A)
	cart.Write(0xA000, 0x5A)
	assert.Equal(t, byte(0x5A), cart.RAM()[0])

	// Restoring RAM contents round trips.
	saved := make([]byte, len(cart.RAM()))
	copy(saved, cart.RAM())

	other, err := NewCartridge(romWithHeader(0x03, 0x03, "SAVEGAME"))
	require.NoError(t, err)
	other.LoadRAM(saved)
	other.Write(0x0000, 0x0A)
	assert.Equal(t, byte(0x5A), other.Read(0xA000))
}
