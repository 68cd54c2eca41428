package settle

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atellix/aqua-dex/domain/market"
)

func key(b byte) market.Key {
	var k market.Key
	k[0] = b
	return k
}

func newLog(t *testing.T, maxAccounts uint32) *Log {
	t.Helper()
	l, err := Format(make([]byte, RegionSize(maxAccounts)), key(0xAA), market.ZeroKey, market.ZeroKey, maxAccounts)
	require.NoError(t, err)
	return l
}

func TestHeaderRoundTrip(t *testing.T) {
	buf := make([]byte, RegionSize(16))
	l, err := Format(buf, key(1), key(2), key(3), 16)
	require.NoError(t, err)
	require.Equal(t, key(1), l.Market())
	require.Equal(t, key(2), l.Prev())
	require.Equal(t, key(3), l.Next())
	require.Equal(t, uint32(0), l.Items())

	l2, err := Attach(buf, 16)
	require.NoError(t, err)
	require.Equal(t, key(1), l2.Market())
	require.Equal(t, key(3), l2.Next())
}

func TestCreditUpsert(t *testing.T) {
	l := newLog(t, 16)
	require.NoError(t, l.Credit(key(1), 100, 0, 10))
	require.NoError(t, l.Credit(key(1), 0, 50, 20))
	require.Equal(t, uint32(1), l.Items())

	e, ok := l.Entry(key(1))
	require.True(t, ok)
	require.Equal(t, uint64(100), e.MktBalance)
	require.Equal(t, uint64(50), e.PrcBalance)
	require.Equal(t, int64(20), e.TsUpdated)

	require.NoError(t, l.Credit(key(2), 7, 0, 30))
	require.Equal(t, uint32(2), l.Items())
}

func TestDebitRemovesEmptyEntry(t *testing.T) {
	l := newLog(t, 16)
	require.NoError(t, l.Credit(key(1), 100, 40, 1))
	require.NoError(t, l.Debit(key(1), 60, 0))
	e, ok := l.Entry(key(1))
	require.True(t, ok)
	require.Equal(t, uint64(40), e.MktBalance)

	require.ErrorIs(t, l.Debit(key(1), 100, 0), ErrUnderflow)

	require.NoError(t, l.Debit(key(1), 40, 40))
	_, ok = l.Entry(key(1))
	require.False(t, ok)
	require.Equal(t, uint32(0), l.Items())
}

func TestDrain(t *testing.T) {
	l := newLog(t, 16)
	require.NoError(t, l.Credit(key(9), 11, 22, 5))
	e, err := l.Drain(key(9))
	require.NoError(t, err)
	require.Equal(t, uint64(11), e.MktBalance)
	require.Equal(t, uint64(22), e.PrcBalance)
	require.Equal(t, uint32(0), l.Items())

	_, err = l.Drain(key(9))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLogFull(t *testing.T) {
	l := newLog(t, 4)
	for i := byte(1); i <= 4; i++ {
		require.NoError(t, l.Credit(key(i), 1, 0, 1))
	}
	require.Equal(t, uint32(0), l.FreeSlots())
	err := l.Credit(key(9), 1, 0, 1)
	require.ErrorIs(t, err, ErrLogFull)
	// A full log still accepts credits for existing owners.
	require.NoError(t, l.Credit(key(2), 1, 0, 2))

	// Space frees up once an entry drains.
	_, err = l.Drain(key(1))
	require.NoError(t, err)
	require.NoError(t, l.Credit(key(9), 1, 0, 3))
}

func TestOwnerKeyIsStable(t *testing.T) {
	a := OwnerKey(key(1))
	b := OwnerKey(key(1))
	c := OwnerKey(key(2))
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
}
