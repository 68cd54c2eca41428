package slab

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyOrdering(t *testing.T) {
	require.True(t, k(1, 0xFFFFFFFFFFFFFFFF).Less(k(2, 0)))
	require.True(t, k(1, 5).Less(k(1, 6)))
	require.False(t, k(1, 6).Less(k(1, 6)))
	require.True(t, k(0, 0).IsZero())
	require.False(t, k(0, 1).IsZero())
}

func TestLeadingZeros(t *testing.T) {
	require.Equal(t, 128, k(0, 0).LeadingZeros())
	require.Equal(t, 127, k(0, 1).LeadingZeros())
	require.Equal(t, 64, k(0, 1<<63).LeadingZeros())
	require.Equal(t, 63, k(1, 0).LeadingZeros())
	require.Equal(t, 0, k(1<<63, 0).LeadingZeros())
}

func TestBit(t *testing.T) {
	key := k(1<<63, 1)
	require.Equal(t, uint32(1), key.Bit(0))
	require.Equal(t, uint32(0), key.Bit(1))
	require.Equal(t, uint32(1), key.Bit(127))
	require.Equal(t, uint32(0), key.Bit(126))
}

func TestBytesRoundTrip(t *testing.T) {
	key := k(0x1122334455667788, 0x99AABBCCDDEEFF00)
	require.Equal(t, key, Key128FromBytes(key.Bytes16()))

	b := key.Bytes16()
	// Little-endian: the low word leads.
	require.Equal(t, byte(0x00), b[0])
	require.Equal(t, byte(0x88), b[8])
}
