// Package book maintains the two-sided orderbook: a critbit index and
// a payload vec per side, all four types sharing one slab region.
package book

import (
	"encoding/binary"
	"fmt"

	"github.com/atellix/aqua-dex/domain/market"
	"github.com/atellix/aqua-dex/domain/slab"
)

// Region type ids. One slab hosts both sides.
const (
	typeBidMap uint16 = iota
	typeAskMap
	typeBidVec
	typeAskVec
)

// OrderSize is the payload carried per resting order:
// {u64 quantity, i64 expiry}.
const OrderSize = 16

// Order is a scalar copy of one resting order's payload.
type Order struct {
	Quantity uint64
	Expiry   int64
}

// Book is a view over one orderbook region.
type Book struct {
	alloc     *slab.Alloc
	maxOrders uint32
}

// Pages returns the page count needed for a book of maxOrders per side.
func Pages(maxOrders uint32) int {
	per := func(headerSize, itemSize, items int) int {
		perPage := (slab.PageSize - headerSize) / itemSize
		return (items + perPage - 1) / perPage
	}
	nodes := 2 * int(maxOrders)
	return 2*per(slab.MapHeaderSize, slab.NodeSize, nodes) +
		2*per(slab.VecHeaderSize, OrderSize, int(maxOrders))
}

// Format initializes an orderbook region.
func Format(buf []byte, maxOrders uint32) (*Book, error) {
	a, err := slab.Format(buf)
	if err != nil {
		return nil, err
	}
	// A critbit tree holds one fewer inner node than it has leaves, so
	// the node budget is twice the order budget.
	if _, err := slab.InitMap(a, typeBidMap, 2*maxOrders); err != nil {
		return nil, err
	}
	if _, err := slab.InitMap(a, typeAskMap, 2*maxOrders); err != nil {
		return nil, err
	}
	if _, err := slab.InitVec(a, typeBidVec, OrderSize, maxOrders); err != nil {
		return nil, err
	}
	if _, err := slab.InitVec(a, typeAskVec, OrderSize, maxOrders); err != nil {
		return nil, err
	}
	return &Book{alloc: a, maxOrders: maxOrders}, nil
}

// Attach wraps an already formatted orderbook region.
func Attach(buf []byte, maxOrders uint32) (*Book, error) {
	a, err := slab.Attach(buf)
	if err != nil {
		return nil, err
	}
	return &Book{alloc: a, maxOrders: maxOrders}, nil
}

// Alloc exposes the backing region.
func (b *Book) Alloc() *slab.Alloc { return b.alloc }

// Map returns the critbit index of a side.
func (b *Book) Map(side market.Side) slab.CritMap {
	if side == market.Bid {
		return slab.AttachMap(b.alloc, typeBidMap, 2*b.maxOrders)
	}
	return slab.AttachMap(b.alloc, typeAskMap, 2*b.maxOrders)
}

// Vec returns the payload vec of a side.
func (b *Book) Vec(side market.Side) slab.Vec {
	if side == market.Bid {
		return slab.AttachVec(b.alloc, typeBidVec, OrderSize, b.maxOrders)
	}
	return slab.AttachVec(b.alloc, typeAskVec, OrderSize, b.maxOrders)
}

// OrderID packs price and sequence into a critbit key. Bid prices are
// bit-inverted so ascending key order walks bids best-first; the tree
// itself is identical for both sides. The low
// 64 bits carry the insertion sequence, giving FIFO within a price.
func OrderID(side market.Side, price, seq uint64) slab.Key128 {
	hi := price
	if side == market.Bid {
		hi = ^price
	}
	return slab.Key128{Hi: hi, Lo: seq}
}

// Price recovers the order price from a key.
func Price(side market.Side, key slab.Key128) uint64 {
	if side == market.Bid {
		return ^key.Hi
	}
	return key.Hi
}

// Sequence recovers the insertion sequence from a key.
func Sequence(key slab.Key128) uint64 { return key.Lo }

func decodeOrder(b []byte) Order {
	return Order{
		Quantity: binary.LittleEndian.Uint64(b[0:8]),
		Expiry:   int64(binary.LittleEndian.Uint64(b[8:16])),
	}
}

func encodeOrder(b []byte, o Order) {
	binary.LittleEndian.PutUint64(b[0:8], o.Quantity)
	binary.LittleEndian.PutUint64(b[8:16], uint64(o.Expiry))
}

// Order reads the payload referenced by a leaf.
func (b *Book) Order(side market.Side, slot uint32) (Order, error) {
	p, err := b.Vec(side).Get(slot)
	if err != nil {
		return Order{}, err
	}
	return decodeOrder(p), nil
}

// SetQuantity rewrites the remaining quantity of a resting order.
func (b *Book) SetQuantity(side market.Side, slot uint32, qty uint64) error {
	p, err := b.Vec(side).Get(slot)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(p[0:8], qty)
	return nil
}

// Post inserts a resting order: payload slot first, then the leaf, so
// a full index never strands a slot.
func (b *Book) Post(side market.Side, key slab.Key128, owner market.Key, o Order) error {
	vec := b.Vec(side)
	slot, err := vec.Push()
	if err != nil {
		return err
	}
	p, err := vec.Get(slot)
	if err != nil {
		return err
	}
	encodeOrder(p, o)
	leaf := slab.Leaf{Key: key, Slot: slot, Owner: [32]byte(owner)}
	if err := b.Map(side).Insert(leaf); err != nil {
		if ferr := vec.Free(slot); ferr != nil {
			return fmt.Errorf("book: unwind slot %d: %w", slot, ferr)
		}
		return err
	}
	return nil
}

// Remove deletes a resting order and frees its payload slot: the
// leaf and the slot live and die together).
func (b *Book) Remove(side market.Side, key slab.Key128) (slab.Leaf, Order, error) {
	leaf, err := b.Map(side).Remove(key)
	if err != nil {
		return slab.Leaf{}, Order{}, err
	}
	vec := b.Vec(side)
	p, err := vec.Get(leaf.Slot)
	if err != nil {
		return slab.Leaf{}, Order{}, err
	}
	o := decodeOrder(p)
	if err := vec.Free(leaf.Slot); err != nil {
		return slab.Leaf{}, Order{}, err
	}
	return leaf, o, nil
}

// Get looks up a resting order by id.
func (b *Book) Get(side market.Side, key slab.Key128) (slab.Leaf, Order, bool) {
	leaf, ok := b.Map(side).Get(key)
	if !ok {
		return slab.Leaf{}, Order{}, false
	}
	o, err := b.Order(side, leaf.Slot)
	if err != nil {
		return slab.Leaf{}, Order{}, false
	}
	return leaf, o, true
}

// BestWhere returns the best-priced resting order of a side that
// satisfies pred. Best is always the minimum key: ask keys carry the
// natural price, bid keys the inverted one.
func (b *Book) BestWhere(side market.Side, pred func(slab.Leaf) bool) (slab.Leaf, bool) {
	return b.Map(side).MinWhere(pred)
}

// Best returns the best-priced resting order of a side.
func (b *Book) Best(side market.Side) (slab.Leaf, bool) {
	return b.Map(side).Min()
}

// Worst returns the worst-priced resting order of a side, the eviction
// candidate when the book is full.
func (b *Book) Worst(side market.Side) (slab.Leaf, bool) {
	return b.Map(side).Max()
}

// Count reports resident orders on a side.
func (b *Book) Count(side market.Side) uint64 {
	return b.Map(side).Leaves()
}
