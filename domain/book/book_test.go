package book

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atellix/aqua-dex/domain/market"
	"github.com/atellix/aqua-dex/domain/slab"
)

func newBook(t *testing.T) *Book {
	t.Helper()
	b, err := Format(make([]byte, slab.RegionSize(Pages(100))), 100)
	require.NoError(t, err)
	return b
}

func owner(b byte) market.Key {
	var k market.Key
	k[0] = b
	return k
}

func TestOrderIDCoding(t *testing.T) {
	// Bids invert price bits: higher price, smaller key.
	hi := OrderID(market.Bid, 200, 1)
	lo := OrderID(market.Bid, 100, 2)
	require.True(t, hi.Less(lo))
	require.Equal(t, uint64(200), Price(market.Bid, hi))
	require.Equal(t, uint64(1), Sequence(hi))

	// Asks keep the natural order.
	a1 := OrderID(market.Ask, 100, 3)
	a2 := OrderID(market.Ask, 200, 4)
	require.True(t, a1.Less(a2))
	require.Equal(t, uint64(100), Price(market.Ask, a1))
}

func TestPostBestRemove(t *testing.T) {
	b := newBook(t)
	k1 := OrderID(market.Ask, 105, 1)
	k2 := OrderID(market.Ask, 101, 2)
	require.NoError(t, b.Post(market.Ask, k1, owner(1), Order{Quantity: 10}))
	require.NoError(t, b.Post(market.Ask, k2, owner(2), Order{Quantity: 20}))
	require.Equal(t, uint64(2), b.Count(market.Ask))

	best, ok := b.Best(market.Ask)
	require.True(t, ok)
	require.Equal(t, uint64(101), Price(market.Ask, best.Key))

	worst, ok := b.Worst(market.Ask)
	require.True(t, ok)
	require.Equal(t, uint64(105), Price(market.Ask, worst.Key))

	leaf, ord, err := b.Remove(market.Ask, k2)
	require.NoError(t, err)
	require.Equal(t, owner(2), market.Key(leaf.Owner))
	require.Equal(t, uint64(20), ord.Quantity)

	best, ok = b.Best(market.Ask)
	require.True(t, ok)
	require.Equal(t, uint64(105), Price(market.Ask, best.Key))

	_, _, err = b.Remove(market.Ask, k2)
	require.ErrorIs(t, err, slab.ErrKeyNotFound)
}

func TestBidBestIsHighestPrice(t *testing.T) {
	b := newBook(t)
	require.NoError(t, b.Post(market.Bid, OrderID(market.Bid, 95, 1), owner(1), Order{Quantity: 5}))
	require.NoError(t, b.Post(market.Bid, OrderID(market.Bid, 99, 2), owner(2), Order{Quantity: 5}))
	require.NoError(t, b.Post(market.Bid, OrderID(market.Bid, 97, 3), owner(3), Order{Quantity: 5}))

	best, ok := b.Best(market.Bid)
	require.True(t, ok)
	require.Equal(t, uint64(99), Price(market.Bid, best.Key))

	worst, ok := b.Worst(market.Bid)
	require.True(t, ok)
	require.Equal(t, uint64(95), Price(market.Bid, worst.Key))
}

func TestFIFOWithinPrice(t *testing.T) {
	b := newBook(t)
	for seq := uint64(1); seq <= 3; seq++ {
		require.NoError(t, b.Post(market.Ask, OrderID(market.Ask, 100, seq), owner(byte(seq)), Order{Quantity: seq}))
	}
	for seq := uint64(1); seq <= 3; seq++ {
		best, ok := b.Best(market.Ask)
		require.True(t, ok)
		require.Equal(t, seq, Sequence(best.Key))
		_, _, err := b.Remove(market.Ask, best.Key)
		require.NoError(t, err)
	}
}

func TestSetQuantity(t *testing.T) {
	b := newBook(t)
	key := OrderID(market.Bid, 50, 1)
	require.NoError(t, b.Post(market.Bid, key, owner(1), Order{Quantity: 40, Expiry: 123}))
	leaf, _, ok := b.Get(market.Bid, key)
	require.True(t, ok)
	require.NoError(t, b.SetQuantity(market.Bid, leaf.Slot, 15))
	_, ord, ok := b.Get(market.Bid, key)
	require.True(t, ok)
	require.Equal(t, uint64(15), ord.Quantity)
	require.Equal(t, int64(123), ord.Expiry)
}

func TestSlotRecycledAfterRemove(t *testing.T) {
	b := newBook(t)
	key := OrderID(market.Ask, 10, 1)
	require.NoError(t, b.Post(market.Ask, key, owner(1), Order{Quantity: 1}))
	leaf, _, ok := b.Get(market.Ask, key)
	require.True(t, ok)
	slot := leaf.Slot
	_, _, err := b.Remove(market.Ask, key)
	require.NoError(t, err)

	key2 := OrderID(market.Ask, 11, 2)
	require.NoError(t, b.Post(market.Ask, key2, owner(2), Order{Quantity: 2}))
	leaf2, _, ok := b.Get(market.Ask, key2)
	require.True(t, ok)
	require.Equal(t, slot, leaf2.Slot)
}
