// Package settle maintains one settlement log account: a header naming
// the market and the chain neighbours, followed by a slab holding an
// owner-keyed critbit index and a vec of balance entries. Logs form a
// doubly linked chain; the engine decides which log is the active head
// and when a log may be unlinked.
package settle

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/spaolacci/murmur3"

	"github.com/atellix/aqua-dex/domain/market"
	"github.com/atellix/aqua-dex/domain/slab"
)

const (
	typeAccountMap uint16 = iota
	typeAccountVec
)

// HeaderSize covers {[32]market, [32]prev, [32]next, u32 items}.
const HeaderSize = 100

// EntrySize covers {u64 mkt_balance, u64 prc_balance, i64 ts_updated}.
const EntrySize = 24

var (
	// ErrLogFull signals the index or the vec refused a new entry;
	// the caller must roll the chain over.
	ErrLogFull = errors.New("settle: log full")

	// ErrUnderflow signals a debit against insufficient balance.
	ErrUnderflow = errors.New("settle: balance underflow")

	// ErrNotFound signals the owner holds no entry in this log.
	ErrNotFound = errors.New("settle: entry not found")
)

// Entry is a scalar copy of one owner's settled balances.
type Entry struct {
	MktBalance uint64
	PrcBalance uint64
	TsUpdated  int64
}

// Log is a view over one settlement log region.
type Log struct {
	buf         []byte
	alloc       *slab.Alloc
	maxAccounts uint32
}

// Pages returns the page count for a log of maxAccounts entries.
func Pages(maxAccounts uint32) int {
	per := func(headerSize, itemSize, items int) int {
		perPage := (slab.PageSize - headerSize) / itemSize
		return (items + perPage - 1) / perPage
	}
	return per(slab.MapHeaderSize, slab.NodeSize, 2*int(maxAccounts)) +
		per(slab.VecHeaderSize, EntrySize, int(maxAccounts))
}

// RegionSize returns the byte length of a settlement log region.
func RegionSize(maxAccounts uint32) int {
	return HeaderSize + slab.RegionSize(Pages(maxAccounts))
}

// Format initializes a settlement log region.
func Format(buf []byte, marketID, prev, next market.Key, maxAccounts uint32) (*Log, error) {
	if len(buf) < HeaderSize {
		return nil, fmt.Errorf("settle: region too small: %d", len(buf))
	}
	a, err := slab.Format(buf[HeaderSize:])
	if err != nil {
		return nil, err
	}
	if _, err := slab.InitMap(a, typeAccountMap, 2*maxAccounts); err != nil {
		return nil, err
	}
	if _, err := slab.InitVec(a, typeAccountVec, EntrySize, maxAccounts); err != nil {
		return nil, err
	}
	l := &Log{buf: buf, alloc: a, maxAccounts: maxAccounts}
	copy(buf[0:32], marketID[:])
	l.SetPrev(prev)
	l.SetNext(next)
	l.setItems(0)
	return l, nil
}

// Attach wraps an already formatted settlement log region.
func Attach(buf []byte, maxAccounts uint32) (*Log, error) {
	if len(buf) < HeaderSize {
		return nil, fmt.Errorf("settle: region too small: %d", len(buf))
	}
	a, err := slab.Attach(buf[HeaderSize:])
	if err != nil {
		return nil, err
	}
	return &Log{buf: buf, alloc: a, maxAccounts: maxAccounts}, nil
}

// Bytes exposes the raw region, header included, for checkpointing.
func (l *Log) Bytes() []byte { return l.buf }

// ---- header ----

func (l *Log) Market() market.Key {
	var k market.Key
	copy(k[:], l.buf[0:32])
	return k
}

func (l *Log) Prev() market.Key {
	var k market.Key
	copy(k[:], l.buf[32:64])
	return k
}

func (l *Log) Next() market.Key {
	var k market.Key
	copy(k[:], l.buf[64:96])
	return k
}

func (l *Log) SetPrev(k market.Key) { copy(l.buf[32:64], k[:]) }

func (l *Log) SetNext(k market.Key) { copy(l.buf[64:96], k[:]) }

// Items reports live entries in this log.
func (l *Log) Items() uint32 {
	return binary.LittleEndian.Uint32(l.buf[96:100])
}

func (l *Log) setItems(n uint32) {
	binary.LittleEndian.PutUint32(l.buf[96:100], n)
}

// FreeSlots reports how many more owners this log can absorb.
func (l *Log) FreeSlots() uint32 { return l.maxAccounts - l.Items() }

// Status summarizes the log for the read-only log_status operation.
func (l *Log) Status() market.LogStatusResult {
	return market.LogStatusResult{Prev: l.Prev(), Next: l.Next(), Items: l.Items()}
}

// ---- entries ----

// OwnerKey hashes a 32-byte owner id into the log's 128-bit key space,
// as the original program does for its owner index.
func OwnerKey(owner market.Key) slab.Key128 {
	h1, h2 := murmur3.Sum128(owner[:])
	return slab.Key128{Hi: h1, Lo: h2}
}

func (l *Log) cmap() slab.CritMap {
	return slab.AttachMap(l.alloc, typeAccountMap, 2*l.maxAccounts)
}

func (l *Log) vec() slab.Vec {
	return slab.AttachVec(l.alloc, typeAccountVec, EntrySize, l.maxAccounts)
}

func decodeEntry(b []byte) Entry {
	return Entry{
		MktBalance: binary.LittleEndian.Uint64(b[0:8]),
		PrcBalance: binary.LittleEndian.Uint64(b[8:16]),
		TsUpdated:  int64(binary.LittleEndian.Uint64(b[16:24])),
	}
}

func encodeEntry(b []byte, e Entry) {
	binary.LittleEndian.PutUint64(b[0:8], e.MktBalance)
	binary.LittleEndian.PutUint64(b[8:16], e.PrcBalance)
	binary.LittleEndian.PutUint64(b[16:24], uint64(e.TsUpdated))
}

// Entry returns an owner's balances, if present.
func (l *Log) Entry(owner market.Key) (Entry, bool) {
	leaf, ok := l.cmap().Get(OwnerKey(owner))
	if !ok {
		return Entry{}, false
	}
	b, err := l.vec().Get(leaf.Slot)
	if err != nil {
		return Entry{}, false
	}
	return decodeEntry(b), true
}

// Credit upserts an owner's balances. A fresh owner claims an index
// leaf and a vec slot; either refusing fails with ErrLogFull and the
// log is left untouched.
func (l *Log) Credit(owner market.Key, dMkt, dPrc uint64, now int64) error {
	key := OwnerKey(owner)
	cm := l.cmap()
	if leaf, ok := cm.Get(key); ok {
		b, err := l.vec().Get(leaf.Slot)
		if err != nil {
			return err
		}
		e := decodeEntry(b)
		var carry bool
		if e.MktBalance, carry = addCheck(e.MktBalance, dMkt); carry {
			return fmt.Errorf("settle: mkt credit overflow")
		}
		if e.PrcBalance, carry = addCheck(e.PrcBalance, dPrc); carry {
			return fmt.Errorf("settle: prc credit overflow")
		}
		e.TsUpdated = now
		encodeEntry(b, e)
		return nil
	}
	if err := cm.Insert(slab.Leaf{Key: key, Owner: [32]byte(owner)}); err != nil {
		if errors.Is(err, slab.ErrCapacity) {
			return ErrLogFull
		}
		return err
	}
	// The slot is claimed only after the index accepted the key, so a
	// full vec unwinds cleanly.
	slot, err := l.vec().Push()
	if err != nil {
		if _, rerr := cm.Remove(key); rerr != nil {
			return fmt.Errorf("settle: unwind insert: %w", rerr)
		}
		if errors.Is(err, slab.ErrCapacity) {
			return ErrLogFull
		}
		return err
	}
	if err := cm.SetSlot(key, slot); err != nil {
		return err
	}
	b, err := l.vec().Get(slot)
	if err != nil {
		return err
	}
	encodeEntry(b, Entry{MktBalance: dMkt, PrcBalance: dPrc, TsUpdated: now})
	l.setItems(l.Items() + 1)
	return nil
}

// Debit subtracts from an owner's balances, removing the entry when
// both reach zero.
func (l *Log) Debit(owner market.Key, dMkt, dPrc uint64) error {
	key := OwnerKey(owner)
	leaf, ok := l.cmap().Get(key)
	if !ok {
		return ErrNotFound
	}
	b, err := l.vec().Get(leaf.Slot)
	if err != nil {
		return err
	}
	e := decodeEntry(b)
	if e.MktBalance < dMkt || e.PrcBalance < dPrc {
		return ErrUnderflow
	}
	e.MktBalance -= dMkt
	e.PrcBalance -= dPrc
	if e.MktBalance == 0 && e.PrcBalance == 0 {
		_, err := l.remove(key, leaf.Slot)
		return err
	}
	encodeEntry(b, e)
	return nil
}

// Drain removes an owner's entry entirely and returns the balances,
// the withdraw-all path.
func (l *Log) Drain(owner market.Key) (Entry, error) {
	key := OwnerKey(owner)
	leaf, ok := l.cmap().Get(key)
	if !ok {
		return Entry{}, ErrNotFound
	}
	b, err := l.vec().Get(leaf.Slot)
	if err != nil {
		return Entry{}, err
	}
	e := decodeEntry(b)
	if _, err := l.remove(key, leaf.Slot); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func (l *Log) remove(key slab.Key128, slot uint32) (Entry, error) {
	leaf, err := l.cmap().Remove(key)
	if err != nil {
		return Entry{}, err
	}
	b, err := l.vec().Get(slot)
	if err != nil {
		return Entry{}, err
	}
	e := decodeEntry(b)
	if err := l.vec().Free(leaf.Slot); err != nil {
		return Entry{}, err
	}
	l.setItems(l.Items() - 1)
	return e, nil
}

func addCheck(a, b uint64) (uint64, bool) {
	s := a + b
	return s, s < a
}
