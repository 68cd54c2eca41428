package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atellix/aqua-dex/domain/market"
)

func testKey(b byte) market.Key {
	var k market.Key
	k[0] = b
	return k
}

func TestCommitAndGet(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	id := testKey(1)
	err = s.Commit([]Write{
		{Market: id, Region: RegionState, Value: []byte("state-bytes")},
		{Market: id, Region: RegionOrders, Value: []byte("orders-bytes")},
	}, 42)
	require.NoError(t, err)

	v, err := s.Get(id, RegionState)
	require.NoError(t, err)
	require.Equal(t, []byte("state-bytes"), v)

	_, err = s.Get(id, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	cp, err := s.Checkpoint()
	require.NoError(t, err)
	require.Equal(t, uint64(42), cp)
}

func TestCheckpointDefaultsToZero(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()
	cp, err := s.Checkpoint()
	require.NoError(t, err)
	require.Equal(t, uint64(0), cp)
}

func TestMarketsEnumeration(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	a, b := testKey(0xAA), testKey(0x11)
	require.NoError(t, s.Commit([]Write{
		{Market: a, Region: RegionState, Value: []byte("a")},
		{Market: a, Region: RegionOrders, Value: []byte("a2")},
		{Market: b, Region: RegionState, Value: []byte("b")},
	}, 1))

	ids, err := s.Markets()
	require.NoError(t, err)
	require.Len(t, ids, 2)
	require.Contains(t, ids, a)
	require.Contains(t, ids, b)
}

func TestListByPrefix(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	id := testKey(7)
	logA, logB := testKey(0x21), testKey(0x22)
	require.NoError(t, s.Commit([]Write{
		{Market: id, Region: SettleRegion(logA), Value: []byte("log-a")},
		{Market: id, Region: SettleRegion(logB), Value: []byte("log-b")},
		{Market: id, Region: RegionState, Value: []byte("state")},
	}, 1))

	entries, err := s.List(id, "settle/")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		require.Contains(t, []string{SettleRegion(logA), SettleRegion(logB)}, e.Region)
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	id := testKey(3)
	require.NoError(t, s.Commit([]Write{
		{Market: id, Region: RegionTrades, Value: []byte{1, 2, 3}},
	}, 9))
	require.NoError(t, s.Close())

	s2, err := Open(dir)
	require.NoError(t, err)
	defer s2.Close()
	v, err := s2.Get(id, RegionTrades)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, v)
	cp, err := s2.Checkpoint()
	require.NoError(t, err)
	require.Equal(t, uint64(9), cp)
}
