package slab

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatRejectsTinyRegion(t *testing.T) {
	_, err := Format(make([]byte, 100))
	require.ErrorIs(t, err, ErrBadRegion)
}

func TestInitTypeClaimsFirstPage(t *testing.T) {
	a, err := Format(make([]byte, RegionSize(4)))
	require.NoError(t, err)
	require.Equal(t, 4, a.FreePages())

	require.NoError(t, a.InitType(0, VecHeaderSize))
	require.Equal(t, 3, a.FreePages())
	require.Len(t, a.Header(0), VecHeaderSize)

	require.Error(t, a.InitType(0, VecHeaderSize))
}

func TestVecPushGetFree(t *testing.T) {
	a, err := Format(make([]byte, RegionSize(4)))
	require.NoError(t, err)
	v, err := InitVec(a, 0, 16, 100)
	require.NoError(t, err)

	i0, err := v.Push()
	require.NoError(t, err)
	i1, err := v.Push()
	require.NoError(t, err)
	require.Equal(t, uint32(0), i0)
	require.Equal(t, uint32(1), i1)
	require.Equal(t, uint64(2), v.Live())

	b, err := v.Get(i0)
	require.NoError(t, err)
	require.Len(t, b, 16)

	require.NoError(t, v.Free(i0))
	require.Equal(t, uint64(1), v.Live())

	// The freed slot is recycled before the bump index advances.
	i2, err := v.Push()
	require.NoError(t, err)
	require.Equal(t, i0, i2)
	require.Equal(t, uint32(2), v.NextIndex())
}

func TestVecFreeStackOrder(t *testing.T) {
	a, err := Format(make([]byte, RegionSize(4)))
	require.NoError(t, err)
	v, err := InitVec(a, 0, 16, 100)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := v.Push()
		require.NoError(t, err)
	}
	require.NoError(t, v.Free(1))
	require.NoError(t, v.Free(3))

	// LIFO recycle.
	i, err := v.Push()
	require.NoError(t, err)
	require.Equal(t, uint32(3), i)
	i, err = v.Push()
	require.NoError(t, err)
	require.Equal(t, uint32(1), i)
}

func TestVecCapacity(t *testing.T) {
	a, err := Format(make([]byte, RegionSize(4)))
	require.NoError(t, err)
	v, err := InitVec(a, 0, 16, 3)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := v.Push()
		require.NoError(t, err)
	}
	_, err = v.Push()
	require.ErrorIs(t, err, ErrCapacity)
}

func TestVecGrowsAcrossPages(t *testing.T) {
	// 16-byte items: one page holds (16384-8)/16 = 1023 slots.
	a, err := Format(make([]byte, RegionSize(3)))
	require.NoError(t, err)
	v, err := InitVec(a, 0, 16, 3200)
	require.NoError(t, err)

	for i := 0; i < 2048; i++ {
		idx, err := v.Push()
		require.NoError(t, err)
		require.Equal(t, uint32(i), idx)
	}
	require.Equal(t, 0, a.FreePages())

	// A fourth page would be needed past 3069 slots; pool is dry before
	// capacity is.
	for i := 2048; i < 3*1023; i++ {
		_, err := v.Push()
		require.NoError(t, err)
	}
	_, err = v.Push()
	require.ErrorIs(t, err, ErrCapacity)
}

func TestTwoTypesShareThePool(t *testing.T) {
	a, err := Format(make([]byte, RegionSize(2)))
	require.NoError(t, err)
	_, err = InitVec(a, 0, 16, 100)
	require.NoError(t, err)
	_, err = InitVec(a, 1, 16, 100)
	require.NoError(t, err)
	require.Equal(t, 0, a.FreePages())
	require.Error(t, a.InitType(2, VecHeaderSize))
}

func TestAttachSeesFormattedState(t *testing.T) {
	buf := make([]byte, RegionSize(4))
	a, err := Format(buf)
	require.NoError(t, err)
	v, err := InitVec(a, 0, 16, 10)
	require.NoError(t, err)
	i, err := v.Push()
	require.NoError(t, err)
	b, err := v.Get(i)
	require.NoError(t, err)
	b[8] = 0xAB

	a2, err := Attach(buf)
	require.NoError(t, err)
	v2 := AttachVec(a2, 0, 16, 10)
	require.Equal(t, uint32(1), v2.NextIndex())
	b2, err := v2.Get(0)
	require.NoError(t, err)
	require.Equal(t, byte(0xAB), b2[8])
}
