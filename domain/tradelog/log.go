// Package tradelog keeps the bounded ring of fill records. Appends
// overwrite the oldest record once the ring is full; trade ids stay
// strictly monotonic across the market's lifetime.
package tradelog

import (
	"encoding/binary"

	"github.com/spaolacci/murmur3"

	"github.com/atellix/aqua-dex/domain/market"
	"github.com/atellix/aqua-dex/domain/slab"
)

const typeTrades uint16 = 0

// headerSize covers {u64 trade_count, u64 entry_max}.
const headerSize = 16

// RecordSize is the persisted record length, fixed for decoders.
const RecordSize = 16 + 8 + 8 + 16 + 1 + 32 + 32 + 1 + 8 + 8 + 8

// Record is one fill, as persisted.
type Record struct {
	EventType    [16]byte
	ActionID     uint64
	TradeID      uint64
	MakerOrderID [16]byte
	MakerFilled  bool
	Maker        market.Key
	Taker        market.Key
	TakerSide    market.Side
	Amount       uint64
	Price        uint64
	Ts           int64
}

// EventType derives a stable 16-byte event tag from a path string, the
// way the original program tags its log records.
func EventType(path string) [16]byte {
	h1, h2 := murmur3.Sum128([]byte(path))
	var t [16]byte
	binary.LittleEndian.PutUint64(t[0:8], h2)
	binary.LittleEndian.PutUint64(t[8:16], h1)
	return t
}

// Log is a view over one trade log region.
type Log struct {
	alloc *slab.Alloc
}

// Pages returns the page count for a ring of entryMax records.
func Pages(entryMax uint32) int {
	perPage := (slab.PageSize - headerSize) / RecordSize
	return (int(entryMax) + perPage - 1) / perPage
}

// Format initializes a trade log region.
func Format(buf []byte, entryMax uint32) (*Log, error) {
	a, err := slab.Format(buf)
	if err != nil {
		return nil, err
	}
	if err := a.InitType(typeTrades, headerSize); err != nil {
		return nil, err
	}
	l := &Log{alloc: a}
	hdr := a.Header(typeTrades)
	binary.LittleEndian.PutUint64(hdr[0:8], 0)
	binary.LittleEndian.PutUint64(hdr[8:16], uint64(entryMax))
	return l, nil
}

// Attach wraps an already formatted trade log region.
func Attach(buf []byte) (*Log, error) {
	a, err := slab.Attach(buf)
	if err != nil {
		return nil, err
	}
	return &Log{alloc: a}, nil
}

// Bytes exposes the raw region for checkpointing.
func (l *Log) Bytes() []byte { return l.alloc.Bytes() }

// Count reports trades appended over the market's lifetime.
func (l *Log) Count() uint64 {
	return binary.LittleEndian.Uint64(l.alloc.Header(typeTrades)[0:8])
}

// EntryMax reports the ring capacity.
func (l *Log) EntryMax() uint64 {
	return binary.LittleEndian.Uint64(l.alloc.Header(typeTrades)[8:16])
}

func (l *Log) setCount(n uint64) {
	binary.LittleEndian.PutUint64(l.alloc.Header(typeTrades)[0:8], n)
}

// Append writes a fill record, assigning the next trade id. The ring
// slot for every index is claimed on first touch.
func (l *Log) Append(rec Record) (uint64, error) {
	count := l.Count()
	slot := count % l.EntryMax()
	if err := l.alloc.EnsureIndex(typeTrades, RecordSize, int(slot)); err != nil {
		return 0, err
	}
	b, err := l.alloc.Item(typeTrades, RecordSize, int(slot))
	if err != nil {
		return 0, err
	}
	rec.TradeID = count + 1
	encodeRecord(b, rec)
	l.setCount(rec.TradeID)
	if count < l.EntryMax() {
		l.alloc.SetLive(typeTrades, count+1)
	}
	return rec.TradeID, nil
}

// ReadSince returns records with trade ids greater than since, oldest
// first. Records already overwritten by the ring are gone; filtering
// beyond that is a client concern.
func (l *Log) ReadSince(since uint64) []Record {
	count := l.Count()
	if count <= since {
		return nil
	}
	max := l.EntryMax()
	first := since + 1
	if count > max && first <= count-max {
		first = count - max + 1
	}
	out := make([]Record, 0, count-first+1)
	for id := first; id <= count; id++ {
		b, err := l.alloc.Item(typeTrades, RecordSize, int((id-1)%max))
		if err != nil {
			break
		}
		out = append(out, decodeRecord(b))
	}
	return out
}

func encodeRecord(b []byte, r Record) {
	copy(b[0:16], r.EventType[:])
	binary.LittleEndian.PutUint64(b[16:24], r.ActionID)
	binary.LittleEndian.PutUint64(b[24:32], r.TradeID)
	copy(b[32:48], r.MakerOrderID[:])
	if r.MakerFilled {
		b[48] = 1
	} else {
		b[48] = 0
	}
	copy(b[49:81], r.Maker[:])
	copy(b[81:113], r.Taker[:])
	b[113] = byte(r.TakerSide)
	binary.LittleEndian.PutUint64(b[114:122], r.Amount)
	binary.LittleEndian.PutUint64(b[122:130], r.Price)
	binary.LittleEndian.PutUint64(b[130:138], uint64(r.Ts))
}

func decodeRecord(b []byte) Record {
	var r Record
	copy(r.EventType[:], b[0:16])
	r.ActionID = binary.LittleEndian.Uint64(b[16:24])
	r.TradeID = binary.LittleEndian.Uint64(b[24:32])
	copy(r.MakerOrderID[:], b[32:48])
	r.MakerFilled = b[48] != 0
	copy(r.Maker[:], b[49:81])
	copy(r.Taker[:], b[81:113])
	r.TakerSide = market.Side(b[113])
	r.Amount = binary.LittleEndian.Uint64(b[114:122])
	r.Price = binary.LittleEndian.Uint64(b[122:130])
	r.Ts = int64(binary.LittleEndian.Uint64(b[130:138]))
	return r
}
