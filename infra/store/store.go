// Package store persists market regions and records in pebble. A
// snapshot is one atomic, synced batch: every dirty region plus the
// checkpoint key naming the journal sequence the snapshot covers, so
// boot knows where replay starts.
package store

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/atellix/aqua-dex/domain/market"
)

// ErrNotFound is returned for keys never written.
var ErrNotFound = errors.New("store: not found")

// Store wraps one pebble database.
type Store struct {
	db *pebble.DB
}

// Open opens (or creates) the store directory.
func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

// ---- keys ----

const checkpointKey = "meta/checkpoint"

func marketKey(id market.Key, region string) []byte {
	return []byte(fmt.Sprintf("market/%x/%s", id[:], region))
}

func marketPrefix() ([]byte, []byte) {
	return []byte("market/"), []byte("market0")
}

// Region names within a market namespace.
const (
	RegionMarket     = "market"
	RegionState      = "state"
	RegionOrders     = "orders"
	RegionTrades     = "trades"
	RegionCheckpoint = "checkpoint"
)

// SettleRegion names a settlement log region by its account key.
func SettleRegion(id market.Key) string {
	return fmt.Sprintf("settle/%x", id[:])
}

// VaultRegion names a user vault record by its owner key.
func VaultRegion(owner market.Key) string {
	return fmt.Sprintf("vault/%x", owner[:])
}

// ---- access ----

// Get returns a copy of one value.
func (s *Store) Get(id market.Key, region string) ([]byte, error) {
	val, closer, err := s.db.Get(marketKey(id, region))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer closer.Close()
	return append([]byte(nil), val...), nil
}

// Write is one value of a snapshot batch.
type Write struct {
	Market market.Key
	Region string
	Value  []byte
}

// Commit applies a snapshot batch atomically and synced: the regions,
// then the checkpoint.
func (s *Store) Commit(writes []Write, checkpoint uint64) error {
	b := s.db.NewBatch()
	defer b.Close()
	for _, w := range writes {
		if err := b.Set(marketKey(w.Market, w.Region), w.Value, nil); err != nil {
			return err
		}
	}
	var cp [8]byte
	binary.LittleEndian.PutUint64(cp[:], checkpoint)
	if err := b.Set([]byte(checkpointKey), cp[:], nil); err != nil {
		return err
	}
	return b.Commit(pebble.Sync)
}

// Checkpoint reads the journal sequence the last snapshot covered.
func (s *Store) Checkpoint() (uint64, error) {
	val, closer, err := s.db.Get([]byte(checkpointKey))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	defer closer.Close()
	return binary.LittleEndian.Uint64(val), nil
}

// Markets lists the distinct market ids present in the store.
func (s *Store) Markets() ([]market.Key, error) {
	lower, upper := marketPrefix()
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []market.Key
	var last market.Key
	seen := false
	for iter.First(); iter.Valid(); iter.Next() {
		id, ok := parseMarketID(iter.Key())
		if !ok {
			continue
		}
		if seen && id == last {
			continue
		}
		out = append(out, id)
		last = id
		seen = true
	}
	return out, iter.Error()
}

// Entry is one value returned by List.
type Entry struct {
	Region string
	Value  []byte
}

// List returns a market's values whose region name starts with prefix.
func (s *Store) List(id market.Key, prefix string) ([]Entry, error) {
	lower := marketKey(id, prefix)
	upper := append(append([]byte(nil), lower...), 0xff)
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	base := len(marketKey(id, ""))
	var out []Entry
	for iter.First(); iter.Valid(); iter.Next() {
		out = append(out, Entry{
			Region: string(iter.Key()[base:]),
			Value:  append([]byte(nil), iter.Value()...),
		})
	}
	return out, iter.Error()
}

// parseMarketID pulls the id out of a market/<hex>/... key.
func parseMarketID(key []byte) (market.Key, bool) {
	const p = len("market/")
	var id market.Key
	if len(key) < p+64 {
		return id, false
	}
	raw, err := hex.DecodeString(string(key[p : p+64]))
	if err != nil || len(raw) != 32 {
		return id, false
	}
	copy(id[:], raw)
	return id, true
}
