package slab

import (
	"encoding/binary"
	"fmt"
)

// VecHeaderSize is the leading blob of a vec type:
// {u32 free_top, u32 next_index}.
const VecHeaderSize = 8

// Vec is an indexed sequence of fixed-size records with O(1) recycle
// through a free-top stack. Freed slots chain through the first eight
// payload bytes; a free_top of zero means the stack is empty, any
// other value is slot+1.
type Vec struct {
	A        *Alloc
	TypeID   uint16
	ItemSize int
	Capacity uint32
}

// InitVec registers a vec type on a region.
func InitVec(a *Alloc, id uint16, itemSize int, capacity uint32) (Vec, error) {
	if itemSize < 8 {
		return Vec{}, fmt.Errorf("%w: item size %d", ErrBadRegion, itemSize)
	}
	if err := a.InitType(id, VecHeaderSize); err != nil {
		return Vec{}, err
	}
	return Vec{A: a, TypeID: id, ItemSize: itemSize, Capacity: capacity}, nil
}

// AttachVec wraps an already initialized vec type.
func AttachVec(a *Alloc, id uint16, itemSize int, capacity uint32) Vec {
	return Vec{A: a, TypeID: id, ItemSize: itemSize, Capacity: capacity}
}

func (v Vec) FreeTop() uint32 {
	return binary.LittleEndian.Uint32(v.A.Header(v.TypeID)[0:4])
}

func (v Vec) setFreeTop(t uint32) {
	binary.LittleEndian.PutUint32(v.A.Header(v.TypeID)[0:4], t)
}

// NextIndex is the bump allocation high-water mark.
func (v Vec) NextIndex() uint32 {
	return binary.LittleEndian.Uint32(v.A.Header(v.TypeID)[4:8])
}

func (v Vec) setNextIndex(n uint32) {
	binary.LittleEndian.PutUint32(v.A.Header(v.TypeID)[4:8], n)
}

// Live reports the number of live slots.
func (v Vec) Live() uint64 { return v.A.AllocItems(v.TypeID) }

// Push hands out a slot handle, recycling the free-top first. The
// caller fills the payload through Get.
func (v Vec) Push() (uint32, error) {
	top := v.FreeTop()
	if top != 0 {
		idx := top - 1
		item, err := v.A.Item(v.TypeID, v.ItemSize, int(idx))
		if err != nil {
			return 0, err
		}
		v.setFreeTop(uint32(binary.LittleEndian.Uint64(item[0:8])))
		v.A.addAllocItems(v.TypeID, 1)
		return idx, nil
	}
	idx := v.NextIndex()
	if idx >= v.Capacity {
		return 0, fmt.Errorf("%w: vec %d full", ErrCapacity, v.TypeID)
	}
	if err := v.A.EnsureIndex(v.TypeID, v.ItemSize, int(idx)); err != nil {
		return 0, err
	}
	v.setNextIndex(idx + 1)
	v.A.addAllocItems(v.TypeID, 1)
	return idx, nil
}

// Free returns a slot to the free-top stack. The payload bytes are
// logically dead but not zeroed; the first eight hold the chain.
func (v Vec) Free(idx uint32) error {
	item, err := v.Get(idx)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(item[0:8], uint64(v.FreeTop()))
	v.setFreeTop(idx + 1)
	v.A.addAllocItems(v.TypeID, -1)
	return nil
}

// Get returns the payload bytes of a slot.
func (v Vec) Get(idx uint32) ([]byte, error) {
	if idx >= v.NextIndex() {
		return nil, fmt.Errorf("%w: vec %d slot %d", ErrBadHandle, v.TypeID, idx)
	}
	return v.A.Item(v.TypeID, v.ItemSize, int(idx))
}
