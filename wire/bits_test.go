package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTripPrimitives(t *testing.T) {
	w := NewWriter()
	w.WriteBool(true)
	w.WriteBool(false)
	w.WriteU16(0xBEEF)
	w.WriteU32(0xDEADBEEF)
	w.WriteVarU64(300)
	w.WriteVarI64(-42)
	w.WriteString("naia")

	r := NewReader(w.Bytes())
	b1, err := r.ReadBool()
	require.NoError(t, err)
	require.True(t, b1)

	b2, err := r.ReadBool()
	require.NoError(t, err)
	require.False(t, b2)

	u16, err := r.ReadU16()
	require.NoError(t, err)
	require.Equal(t, uint16(0xBEEF), u16)

	u32, err := r.ReadU32()
	require.NoError(t, err)
	require.Equal(t, uint32(0xDEADBEEF), u32)

	vu, err := r.ReadVarU64()
	require.NoError(t, err)
	require.Equal(t, uint64(300), vu)

	vi, err := r.ReadVarI64()
	require.NoError(t, err)
	require.Equal(t, int64(-42), vi)

	s, err := r.ReadString()
	require.NoError(t, err)
	require.Equal(t, "naia", s)
}

func TestVarintSingleByteSmallValues(t *testing.T) {
	for _, v := range []uint64{0, 1, 63, 127} {
		w := NewWriter()
		w.WriteVarU64(v)
		require.Equal(t, 1, w.Len(), "value %d should fit in one byte", v)
	}
}

func TestReadPastEndErrors(t *testing.T) {
	r := NewReader([]byte{0x01})
	_, err := r.ReadU32()
	require.Error(t, err)
}

func TestBitLenTracksPartialByte(t *testing.T) {
	w := NewWriter()
	w.WriteBit(true)
	w.WriteBit(false)
	w.WriteBit(true)
	require.Equal(t, 3, w.BitLen())
	require.Equal(t, 1, w.Len())
}

func TestPeekU16DoesNotAdvance(t *testing.T) {
	w := NewWriter()
	w.WriteU16(0xBEEF)
	w.WriteU16(0x1234)
	r := NewReader(w.Bytes())

	peeked, err := r.PeekU16()
	require.NoError(t, err)
	require.Equal(t, uint16(0xBEEF), peeked)

	first, err := r.ReadU16()
	require.NoError(t, err)
	require.Equal(t, uint16(0xBEEF), first)

	second, err := r.ReadU16()
	require.NoError(t, err)
	require.Equal(t, uint16(0x1234), second)
}
