package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	w := &Writer{}
	w.U8(0x12)
	w.U16(0x3456)
	w.U32(0x789ABCDE)
	w.U64(0x0102030405060708)
	w.Bool(true)
	w.Bool(false)
	w.Bytes([]byte{1, 2, 3})

	r := NewReader(w.Data())
	assert.Equal(t, byte(0x12), r.U8())
	assert.Equal(t, uint16(0x3456), r.U16())
	assert.Equal(t, uint32(0x789ABCDE), r.U32())
	assert.Equal(t, uint64(0x0102030405060708), r.U64())
	assert.True(t, r.Bool())
	assert.False(t, r.Bool())

	buf := make([]byte, 3)
	r.ReadInto(buf)
	assert.Equal(t, []byte{1, 2, 3}, buf)
	assert.NoError(t, r.Err())
}

func TestReaderTruncation(t *testing.T) {
	r := NewReader([]byte{0x01})
	r.U32()
	assert.ErrorIs(t, r.Err(), ErrBadSnapshot)

	// Later reads return zero values without panicking.
	assert.Equal(t, byte(0), r.U8())
}

func TestHeader(t *testing.T) {
	newBlob := func(mutate func([]byte)) []byte {
		w := &Writer{}
		WriteHeader(w, 3, 0x8000)
		w.U8(0xAA) // body
		data := w.Data()
		if mutate != nil {
			mutate(data)
		}
		return data
	}

	t.Run("valid header yields a body reader", func(t *testing.T) {
		r, err := ReadHeader(newBlob(nil), 3, 0x8000)
		require.NoError(t, err)
		assert.Equal(t, byte(0xAA), r.U8())
	})

	t.Run("rejects short data", func(t *testing.T) {
		_, err := ReadHeader([]byte{'G', 'B'}, 3, 0x8000)
		assert.ErrorIs(t, err, ErrBadSnapshot)
	})

	t.Run("rejects bad magic", func(t *testing.T) {
		_, err := ReadHeader(newBlob(func(b []byte) { b[0] = 'X' }), 3, 0x8000)
		assert.ErrorIs(t, err, ErrBadSnapshot)
	})

	t.Run("rejects version mismatch", func(t *testing.T) {
		_, err := ReadHeader(newBlob(func(b []byte) { b[4] = 0x7F }), 3, 0x8000)
		assert.ErrorIs(t, err, ErrBadSnapshot)
	})

	t.Run("rejects MBC mismatch", func(t *testing.T) {
		_, err := ReadHeader(newBlob(nil), 5, 0x8000)
		assert.ErrorIs(t, err, ErrBadSnapshot)
	})

	t.Run("rejects RAM length mismatch", func(t *testing.T) {
		_, err := ReadHeader(newBlob(nil), 3, 0x2000)
		assert.ErrorIs(t, err, ErrBadSnapshot)
	})
}
