package service

import (
	"context"
	"encoding/binary"
	"time"

	"go.uber.org/zap"

	"github.com/atellix/aqua-dex/domain/market"
	"github.com/atellix/aqua-dex/infra/obs"
	"github.com/atellix/aqua-dex/infra/store"
)

// Snapshot persists every dirty market's regions and records as one
// synced batch, stamped with the journal sequence it covers. Journal
// replay on the next boot starts past that stamp.
func (s *MarketService) Snapshot() error {
	s.mu.Lock()
	handles := make(map[market.Key]*marketHandle, len(s.markets))
	for id, h := range s.markets {
		handles[id] = h
	}
	s.mu.Unlock()

	var writes []store.Write
	var snapped []*marketHandle
	// The global checkpoint is the floor across all markets; records
	// above it replay per market, gated by each market's own stamp.
	checkpoint := s.seq.Current()
	for id, h := range handles {
		h.mu.Lock()
		if h.walSeq < checkpoint {
			checkpoint = h.walSeq
		}
		if !h.dirty {
			h.mu.Unlock()
			continue
		}
		mb, err := h.mkt.MarshalBinary()
		if err != nil {
			h.mu.Unlock()
			return err
		}
		sb, err := h.st.MarshalBinary()
		if err != nil {
			h.mu.Unlock()
			return err
		}
		var cp [8]byte
		binary.LittleEndian.PutUint64(cp[:], h.walSeq)
		writes = append(writes,
			store.Write{Market: id, Region: store.RegionMarket, Value: mb},
			store.Write{Market: id, Region: store.RegionState, Value: sb},
			store.Write{Market: id, Region: store.RegionOrders, Value: append([]byte(nil), h.orders...)},
			store.Write{Market: id, Region: store.RegionTrades, Value: append([]byte(nil), h.trades...)},
			store.Write{Market: id, Region: store.RegionCheckpoint, Value: cp[:]},
		)
		for key, buf := range h.settles {
			writes = append(writes, store.Write{
				Market: id,
				Region: store.SettleRegion(key),
				Value:  append([]byte(nil), buf...),
			})
		}
		for owner, uv := range h.vaults {
			vb, err := uv.MarshalBinary()
			if err != nil {
				h.mu.Unlock()
				return err
			}
			writes = append(writes, store.Write{
				Market: id,
				Region: store.VaultRegion(owner),
				Value:  vb,
			})
		}
		// Cleared under the same lock the copy was taken under; a later
		// mutation flips it back on its own.
		h.dirty = false
		snapped = append(snapped, h)
		h.mu.Unlock()
	}
	if len(writes) == 0 {
		return nil
	}
	start := time.Now()
	if err := s.store.Commit(writes, checkpoint); err != nil {
		for _, h := range snapped {
			h.mu.Lock()
			h.dirty = true
			h.mu.Unlock()
		}
		return err
	}
	obs.SnapshotDuration.Observe(time.Since(start).Seconds())
	s.log.Debug("snapshot committed",
		zap.Int("writes", len(writes)),
		zap.Uint64("checkpoint", checkpoint))
	return nil
}

// RunSnapshots snapshots on an interval until ctx is done, with one
// final pass on the way out.
func (s *MarketService) RunSnapshots(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if err := s.Snapshot(); err != nil {
				s.log.Error("final snapshot failed", zap.Error(err))
			}
			return
		case <-ticker.C:
			if err := s.Snapshot(); err != nil {
				s.log.Error("snapshot failed", zap.Error(err))
			}
		}
	}
}
