package tradelog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atellix/aqua-dex/domain/market"
	"github.com/atellix/aqua-dex/domain/slab"
)

func newRing(t *testing.T, entryMax uint32) *Log {
	t.Helper()
	l, err := Format(make([]byte, slab.RegionSize(Pages(entryMax))), entryMax)
	require.NoError(t, err)
	return l
}

func rec(amount uint64) Record {
	var maker, taker market.Key
	maker[0], taker[0] = 1, 2
	return Record{
		EventType: EventType("aqua-dex/limit/match"),
		ActionID:  amount,
		Maker:     maker,
		Taker:     taker,
		TakerSide: market.Bid,
		Amount:    amount,
		Price:     100,
		Ts:        42,
	}
}

func TestAppendAssignsMonotonicIDs(t *testing.T) {
	l := newRing(t, 8)
	for i := uint64(1); i <= 5; i++ {
		id, err := l.Append(rec(i))
		require.NoError(t, err)
		require.Equal(t, i, id)
	}
	require.Equal(t, uint64(5), l.Count())

	recs := l.ReadSince(0)
	require.Len(t, recs, 5)
	for i, r := range recs {
		require.Equal(t, uint64(i+1), r.TradeID)
		require.Equal(t, uint64(i+1), r.Amount)
	}
}

func TestRingOverwritesOldest(t *testing.T) {
	l := newRing(t, 4)
	for i := uint64(1); i <= 10; i++ {
		_, err := l.Append(rec(i))
		require.NoError(t, err)
	}
	require.Equal(t, uint64(10), l.Count())

	recs := l.ReadSince(0)
	require.Len(t, recs, 4)
	require.Equal(t, uint64(7), recs[0].TradeID)
	require.Equal(t, uint64(10), recs[3].TradeID)
}

func TestReadSinceCursor(t *testing.T) {
	l := newRing(t, 16)
	for i := uint64(1); i <= 6; i++ {
		_, err := l.Append(rec(i))
		require.NoError(t, err)
	}
	recs := l.ReadSince(4)
	require.Len(t, recs, 2)
	require.Equal(t, uint64(5), recs[0].TradeID)
	require.Equal(t, uint64(6), recs[1].TradeID)

	require.Empty(t, l.ReadSince(6))
	require.Empty(t, l.ReadSince(99))
}

func TestRecordRoundTrip(t *testing.T) {
	l := newRing(t, 4)
	in := rec(77)
	in.MakerFilled = true
	in.MakerOrderID = [16]byte{1, 2, 3}
	_, err := l.Append(in)
	require.NoError(t, err)

	out := l.ReadSince(0)[0]
	require.Equal(t, in.EventType, out.EventType)
	require.Equal(t, in.MakerOrderID, out.MakerOrderID)
	require.True(t, out.MakerFilled)
	require.Equal(t, in.Maker, out.Maker)
	require.Equal(t, in.Taker, out.Taker)
	require.Equal(t, market.Bid, out.TakerSide)
	require.Equal(t, uint64(77), out.Amount)
	require.Equal(t, int64(42), out.Ts)
}
