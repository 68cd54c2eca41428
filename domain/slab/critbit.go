package slab

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Critbit node cells are 56 bytes, discriminated by a u32 tag so the
// backing vec stays fully homogeneous. Free cells chain the free list
// through their payload bytes.
const (
	NodeSize = 56

	// MapHeaderSize is the leading blob of a map type:
	// {u64 bump_index, u64 free_list_len, u32 free_list_head,
	//  u32 root_node, u64 leaf_count}.
	MapHeaderSize = 32
)

const (
	tagEmpty uint32 = iota
	tagInner
	tagLeaf
	tagFree
	tagLastFree
)

var (
	// ErrKeyExists rejects insertion of a duplicate key.
	ErrKeyExists = errors.New("slab: key exists")

	// ErrKeyNotFound signals a lookup or removal miss.
	ErrKeyNotFound = errors.New("slab: key not found")
)

// Leaf is a scalar copy of one critbit leaf: the key, the payload slot
// it references, and the 32-byte owner id stored alongside.
type Leaf struct {
	Key   Key128
	Slot  uint32
	Owner [32]byte
}

// CritMap is an ordered index of 128-bit keys stored in one slab type.
type CritMap struct {
	A        *Alloc
	TypeID   uint16
	Capacity uint32
}

// InitMap registers a map type on a region.
func InitMap(a *Alloc, id uint16, capacity uint32) (CritMap, error) {
	if err := a.InitType(id, MapHeaderSize); err != nil {
		return CritMap{}, err
	}
	return CritMap{A: a, TypeID: id, Capacity: capacity}, nil
}

// AttachMap wraps an already initialized map type.
func AttachMap(a *Alloc, id uint16, capacity uint32) CritMap {
	return CritMap{A: a, TypeID: id, Capacity: capacity}
}

// ---- header access ----

func (m CritMap) hdr() []byte { return m.A.Header(m.TypeID) }

func (m CritMap) bumpIndex() uint64 { return binary.LittleEndian.Uint64(m.hdr()[0:8]) }

func (m CritMap) setBumpIndex(v uint64) { binary.LittleEndian.PutUint64(m.hdr()[0:8], v) }

func (m CritMap) freeListLen() uint64 { return binary.LittleEndian.Uint64(m.hdr()[8:16]) }

func (m CritMap) setFreeListLen(v uint64) { binary.LittleEndian.PutUint64(m.hdr()[8:16], v) }

func (m CritMap) freeListHead() uint32 { return binary.LittleEndian.Uint32(m.hdr()[16:20]) }

func (m CritMap) setFreeListHead(v uint32) { binary.LittleEndian.PutUint32(m.hdr()[16:20], v) }

func (m CritMap) rootNode() uint32 { return binary.LittleEndian.Uint32(m.hdr()[20:24]) }

func (m CritMap) setRootNode(v uint32) { binary.LittleEndian.PutUint32(m.hdr()[20:24], v) }

// Leaves reports the number of live leaves.
func (m CritMap) Leaves() uint64 { return binary.LittleEndian.Uint64(m.hdr()[24:32]) }

func (m CritMap) setLeaves(v uint64) { binary.LittleEndian.PutUint64(m.hdr()[24:32], v) }

// ---- node cells ----

func (m CritMap) node(h uint32) []byte {
	b, err := m.A.Item(m.TypeID, NodeSize, int(h))
	if err != nil {
		panic(fmt.Sprintf("critbit: dangling handle %d: %v", h, err))
	}
	return b
}

func nodeTag(b []byte) uint32 { return binary.LittleEndian.Uint32(b[0:4]) }

func nodeKey(b []byte) Key128 {
	return Key128{
		Lo: binary.LittleEndian.Uint64(b[4:12]),
		Hi: binary.LittleEndian.Uint64(b[12:20]),
	}
}

func putNodeKey(b []byte, k Key128) {
	binary.LittleEndian.PutUint64(b[4:12], k.Lo)
	binary.LittleEndian.PutUint64(b[12:20], k.Hi)
}

func innerPrefixLen(b []byte) uint32 { return binary.LittleEndian.Uint32(b[20:24]) }

func innerChild(b []byte, dir uint32) uint32 {
	return binary.LittleEndian.Uint32(b[24+4*dir:])
}

func setInnerChild(b []byte, dir, h uint32) {
	binary.LittleEndian.PutUint32(b[24+4*dir:], h)
}

func leafFromNode(b []byte) Leaf {
	var l Leaf
	l.Key = nodeKey(b)
	l.Slot = binary.LittleEndian.Uint32(b[20:24])
	copy(l.Owner[:], b[24:56])
	return l
}

func writeLeafNode(b []byte, l Leaf) {
	binary.LittleEndian.PutUint32(b[0:4], tagLeaf)
	putNodeKey(b, l.Key)
	binary.LittleEndian.PutUint32(b[20:24], l.Slot)
	copy(b[24:56], l.Owner[:])
}

func writeInnerNode(b []byte, key Key128, prefixLen, c0, c1 uint32) {
	binary.LittleEndian.PutUint32(b[0:4], tagInner)
	putNodeKey(b, key)
	binary.LittleEndian.PutUint32(b[20:24], prefixLen)
	binary.LittleEndian.PutUint32(b[24:28], c0)
	binary.LittleEndian.PutUint32(b[28:32], c1)
}

// walkDown picks the child an inner node routes key to.
func walkDown(b []byte, key Key128) (uint32, uint32) {
	dir := key.Bit(innerPrefixLen(b))
	return innerChild(b, dir), dir
}

// ---- cell allocation ----

func (m CritMap) allocNode(write func([]byte)) (uint32, error) {
	if m.freeListLen() == 0 {
		idx := m.bumpIndex()
		if idx >= uint64(m.Capacity) {
			return 0, fmt.Errorf("%w: map %d full", ErrCapacity, m.TypeID)
		}
		if err := m.A.EnsureIndex(m.TypeID, NodeSize, int(idx)); err != nil {
			return 0, err
		}
		m.setBumpIndex(idx + 1)
		m.A.addAllocItems(m.TypeID, 1)
		write(m.node(uint32(idx)))
		return uint32(idx), nil
	}
	h := m.freeListHead()
	b := m.node(h)
	switch nodeTag(b) {
	case tagFree, tagLastFree:
	default:
		panic("critbit: corrupt free list")
	}
	m.setFreeListHead(binary.LittleEndian.Uint32(b[4:8]))
	m.setFreeListLen(m.freeListLen() - 1)
	m.A.addAllocItems(m.TypeID, 1)
	write(b)
	return h, nil
}

func (m CritMap) freeNode(h uint32) {
	b := m.node(h)
	tag := tagLastFree
	if m.freeListLen() > 0 {
		tag = tagFree
	}
	next := m.freeListHead()
	for i := range b {
		b[i] = 0
	}
	binary.LittleEndian.PutUint32(b[0:4], tag)
	binary.LittleEndian.PutUint32(b[4:8], next)
	m.setFreeListHead(h)
	m.setFreeListLen(m.freeListLen() + 1)
	m.A.addAllocItems(m.TypeID, -1)
}

// ---- tree operations ----

func (m CritMap) root() (uint32, bool) {
	if m.Leaves() == 0 {
		return 0, false
	}
	return m.rootNode(), true
}

// Insert adds a leaf. Duplicate keys are rejected: time priority is
// encoded into the low bits of the key, so two live orders can never
// collide.
func (m CritMap) Insert(l Leaf) error {
	h, ok := m.root()
	if !ok {
		nh, err := m.allocNode(func(b []byte) { writeLeafNode(b, l) })
		if err != nil {
			return err
		}
		m.setRootNode(nh)
		m.setLeaves(1)
		return nil
	}
	for {
		b := m.node(h)
		nk := nodeKey(b)
		if nk.Equal(l.Key) && nodeTag(b) == tagLeaf {
			return fmt.Errorf("%w: %x/%x", ErrKeyExists, l.Key.Hi, l.Key.Lo)
		}
		shared := uint32(nk.Xor(l.Key).LeadingZeros())
		if nodeTag(b) == tagInner && shared >= innerPrefixLen(b) {
			h, _ = walkDown(b, l.Key)
			continue
		}

		// Split: h becomes the LCA of the old subtree and the new leaf.
		newDir := l.Key.Bit(shared)
		leafH, err := m.allocNode(func(nb []byte) { writeLeafNode(nb, l) })
		if err != nil {
			return err
		}
		old := make([]byte, NodeSize)
		copy(old, m.node(h))
		movedH, err := m.allocNode(func(nb []byte) { copy(nb, old) })
		if err != nil {
			m.freeNode(leafH)
			return err
		}
		nb := m.node(h)
		writeInnerNode(nb, l.Key, shared, 0, 0)
		setInnerChild(nb, newDir, leafH)
		setInnerChild(nb, newDir^1, movedH)
		m.setLeaves(m.Leaves() + 1)
		return nil
	}
}

// Get looks up a leaf by exact key.
func (m CritMap) Get(key Key128) (Leaf, bool) {
	h, ok := m.root()
	if !ok {
		return Leaf{}, false
	}
	for {
		b := m.node(h)
		nk := nodeKey(b)
		if nodeTag(b) == tagLeaf {
			if !nk.Equal(key) {
				return Leaf{}, false
			}
			return leafFromNode(b), true
		}
		if uint32(nk.Xor(key).LeadingZeros()) < innerPrefixLen(b) {
			return Leaf{}, false
		}
		h, _ = walkDown(b, key)
	}
}

// SetSlot rewires the payload slot stored in an existing leaf.
func (m CritMap) SetSlot(key Key128, slot uint32) error {
	h, ok := m.root()
	if !ok {
		return ErrKeyNotFound
	}
	for {
		b := m.node(h)
		if nodeTag(b) == tagLeaf {
			if !nodeKey(b).Equal(key) {
				return ErrKeyNotFound
			}
			binary.LittleEndian.PutUint32(b[20:24], slot)
			return nil
		}
		h, _ = walkDown(b, key)
	}
}

// Remove deletes a leaf by key and returns its contents.
func (m CritMap) Remove(key Key128) (Leaf, error) {
	parentH, ok := m.root()
	if !ok {
		return Leaf{}, ErrKeyNotFound
	}
	pb := m.node(parentH)
	if nodeTag(pb) == tagLeaf {
		if !nodeKey(pb).Equal(key) {
			return Leaf{}, ErrKeyNotFound
		}
		l := leafFromNode(pb)
		m.setRootNode(0)
		m.setLeaves(0)
		m.freeNode(parentH)
		return l, nil
	}
	childH, dir := walkDown(pb, key)
	for {
		cb := m.node(childH)
		if nodeTag(cb) == tagInner {
			nextH, nextDir := walkDown(cb, key)
			parentH = childH
			childH = nextH
			dir = nextDir
			continue
		}
		if !nodeKey(cb).Equal(key) {
			return Leaf{}, ErrKeyNotFound
		}
		break
	}
	l := leafFromNode(m.node(childH))
	// Promote the sibling into the parent cell, then free both.
	siblingH := innerChild(m.node(parentH), dir^1)
	sibling := make([]byte, NodeSize)
	copy(sibling, m.node(siblingH))
	m.freeNode(siblingH)
	copy(m.node(parentH), sibling)
	m.setLeaves(m.Leaves() - 1)
	m.freeNode(childH)
	return l, nil
}

// Min returns the leaf with the smallest key.
func (m CritMap) Min() (Leaf, bool) { return m.minMax(0) }

// Max returns the leaf with the largest key.
func (m CritMap) Max() (Leaf, bool) { return m.minMax(1) }

func (m CritMap) minMax(dir uint32) (Leaf, bool) {
	h, ok := m.root()
	if !ok {
		return Leaf{}, false
	}
	for {
		b := m.node(h)
		if nodeTag(b) == tagLeaf {
			return leafFromNode(b), true
		}
		h = innerChild(b, dir)
	}
}

// MinWhere returns the smallest-key leaf satisfying pred, scanning in
// ascending order. MaxWhere is the descending mirror.
func (m CritMap) MinWhere(pred func(Leaf) bool) (Leaf, bool) {
	return m.scanWhere(0, pred)
}

func (m CritMap) MaxWhere(pred func(Leaf) bool) (Leaf, bool) {
	return m.scanWhere(1, pred)
}

func (m CritMap) scanWhere(first uint32, pred func(Leaf) bool) (Leaf, bool) {
	h, ok := m.root()
	if !ok {
		return Leaf{}, false
	}
	stack := make([]uint32, 0, 64)
	stack = append(stack, h)
	for len(stack) > 0 {
		h = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		b := m.node(h)
		if nodeTag(b) == tagLeaf {
			l := leafFromNode(b)
			if pred(l) {
				return l, true
			}
			continue
		}
		stack = append(stack, innerChild(b, first^1))
		stack = append(stack, innerChild(b, first))
	}
	return Leaf{}, false
}

// Cursor is a restartable in-order traversal. It holds plain handles,
// no closures, so a caller can park it across calls; it must not span
// tree mutations.
type Cursor struct {
	m     CritMap
	desc  bool
	stack []uint32
}

// Ascend starts an ascending traversal.
func (m CritMap) Ascend() *Cursor { return m.cursor(false) }

// Descend starts a descending traversal.
func (m CritMap) Descend() *Cursor { return m.cursor(true) }

func (m CritMap) cursor(desc bool) *Cursor {
	c := &Cursor{m: m, desc: desc}
	if h, ok := m.root(); ok {
		c.stack = append(c.stack, h)
	}
	return c
}

// Next yields the next leaf, or false when the traversal is done.
func (c *Cursor) Next() (Leaf, bool) {
	first := uint32(0)
	if c.desc {
		first = 1
	}
	for len(c.stack) > 0 {
		h := c.stack[len(c.stack)-1]
		c.stack = c.stack[:len(c.stack)-1]
		b := c.m.node(h)
		if nodeTag(b) == tagLeaf {
			return leafFromNode(b), true
		}
		c.stack = append(c.stack, innerChild(b, first^1))
		c.stack = append(c.stack, innerChild(b, first))
	}
	return Leaf{}, false
}
