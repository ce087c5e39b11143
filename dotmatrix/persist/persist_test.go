package persist

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaths(t *testing.T) {
	t.Run("save state path", func(t *testing.T) {
		got := SaveStatePath(filepath.Join("roms", "tetris.gb"), 2)
		assert.Equal(t, filepath.Join("roms", "saves", "tetris", "tetris.ss2"), got)
	})

	t.Run("battery path", func(t *testing.T) {
		got := BatteryPath(filepath.Join("roms", "tetris.gb"))
		assert.Equal(t, filepath.Join("roms", "saves", "tetris", "tetris.sav"), got)
	})
}

func TestFileStore(t *testing.T) {
	store := FileStore{}
	path := filepath.Join(t.TempDir(), "nested", "dir", "state.ss0")

	t.Run("load of a missing file fails", func(t *testing.T) {
		_, err := store.Load(path)
		assert.Error(t, err)
	})

	t.Run("save creates directories and round trips", func(t *testing.T) {
		data := []byte{0x01, 0x02, 0x03}
		require.NoError(t, store.Save(path, data))

		got, err := store.Load(path)
		require.NoError(t, err)
		assert.Equal(t, data, got)
	})
}
