// Package service is the ONLY write entry point into the system.
//
// All coordination between the deterministic core (domain/engine), the
// operation journal (infra/wal), the region store (infra/store) and
// event publishing (infra/kafka) happens here. One mutex per market
// provides the host-level serialization the core relies on: exactly
// one state-changing call runs against a market at a time.
package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atellix/aqua-dex/domain/engine"
	"github.com/atellix/aqua-dex/domain/market"
	"github.com/atellix/aqua-dex/domain/vault"
	"github.com/atellix/aqua-dex/infra/kafka"
	"github.com/atellix/aqua-dex/infra/obs"
	"github.com/atellix/aqua-dex/infra/sequence"
	"github.com/atellix/aqua-dex/infra/store"
	"github.com/atellix/aqua-dex/infra/wal"
)

// ErrUnknownMarket is returned for ids the service does not host.
var ErrUnknownMarket = errors.New("service: unknown market")

// Config sizes new markets and tunes the engine.
type Config struct {
	Caps   engine.Capacities
	Limits engine.Limits
}

// MarketService hosts every market of this deployment.
type MarketService struct {
	log      *zap.Logger
	store    *store.Store
	wal      *wal.WAL
	seq      *sequence.Sequencer
	producer *kafka.Producer
	vlt      vault.Mover
	cfg      Config

	// now is the transaction clock; tests pin it.
	now func() int64

	mu      sync.Mutex
	markets map[market.Key]*marketHandle
}

// marketHandle is one market's in-memory working set.
type marketHandle struct {
	mu      sync.Mutex
	mkt     *market.Market
	st      *market.State
	orders  []byte
	trades  []byte
	settles map[market.Key][]byte
	vaults  map[market.Key]*market.UserVault
	eng     *engine.Engine
	dirty   bool
	// walSeq is the journal sequence of the last operation reflected
	// in this handle's state; replay skips records at or below it.
	walSeq uint64
}

func (h *marketHandle) rebuildEngine(vlt vault.Mover, cfg Config) error {
	sa, ok := h.settles[h.st.SettleA]
	if !ok {
		return fmt.Errorf("service: missing settle head %s", h.st.SettleA)
	}
	sb, ok := h.settles[h.st.SettleB]
	if !ok {
		return fmt.Errorf("service: missing settle head %s", h.st.SettleB)
	}
	eng, err := engine.New(h.mkt, h.st, h.orders, h.trades, sa, sb, vlt, cfg.Caps, cfg.Limits)
	if err != nil {
		return err
	}
	h.eng = eng
	return nil
}

// New loads persisted markets, replays the journal tail and returns a
// ready service.
func New(
	log *zap.Logger,
	st *store.Store,
	w *wal.WAL,
	seq *sequence.Sequencer,
	producer *kafka.Producer,
	vlt vault.Mover,
	cfg Config,
) (*MarketService, error) {
	s := &MarketService{
		log:      log,
		store:    st,
		wal:      w,
		seq:      seq,
		producer: producer,
		vlt:      vlt,
		cfg:      cfg,
		now:      func() int64 { return time.Now().Unix() },
		markets:  make(map[market.Key]*marketHandle),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	if err := s.replay(); err != nil {
		return nil, err
	}
	return s, nil
}

// load pulls every persisted market into memory.
func (s *MarketService) load() error {
	ids, err := s.store.Markets()
	if err != nil {
		return err
	}
	for _, id := range ids {
		h := &marketHandle{
			settles: make(map[market.Key][]byte),
			vaults:  make(map[market.Key]*market.UserVault),
		}
		mb, err := s.store.Get(id, store.RegionMarket)
		if err != nil {
			return err
		}
		h.mkt = &market.Market{}
		if err := h.mkt.UnmarshalBinary(mb); err != nil {
			return err
		}
		sb, err := s.store.Get(id, store.RegionState)
		if err != nil {
			return err
		}
		h.st = &market.State{}
		if err := h.st.UnmarshalBinary(sb); err != nil {
			return err
		}
		if h.orders, err = s.store.Get(id, store.RegionOrders); err != nil {
			return err
		}
		if h.trades, err = s.store.Get(id, store.RegionTrades); err != nil {
			return err
		}
		if cp, err := s.store.Get(id, store.RegionCheckpoint); err == nil && len(cp) == 8 {
			h.walSeq = binary.LittleEndian.Uint64(cp)
		} else if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		entries, err := s.store.List(id, "settle/")
		if err != nil {
			return err
		}
		for _, e := range entries {
			key, err := market.ParseKey(strings.TrimPrefix(e.Region, "settle/"))
			if err != nil {
				return err
			}
			h.settles[key] = e.Value
		}
		vaults, err := s.store.List(id, "vault/")
		if err != nil {
			return err
		}
		for _, e := range vaults {
			owner, err := market.ParseKey(strings.TrimPrefix(e.Region, "vault/"))
			if err != nil {
				return err
			}
			uv := &market.UserVault{}
			if err := uv.UnmarshalBinary(e.Value); err != nil {
				return err
			}
			h.vaults[owner] = uv
		}
		if err := h.rebuildEngine(s.vlt, s.cfg); err != nil {
			return err
		}
		s.markets[id] = h
		s.log.Info("market loaded",
			zap.String("market", id.String()),
			zap.Uint64("action", h.st.ActionCounter))
	}
	return nil
}

func (s *MarketService) handle(id market.Key) (*marketHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.markets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMarket, id)
	}
	return h, nil
}

// Markets lists hosted market ids.
func (s *MarketService) Markets() []market.Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]market.Key, 0, len(s.markets))
	for id := range s.markets {
		out = append(out, id)
	}
	return out
}

// newKey mints a fresh account id. Ids are journaled with the
// operation that created them, so replay never re-derives.
func newKey() (market.Key, error) {
	var k market.Key
	if _, err := rand.Read(k[:]); err != nil {
		return k, err
	}
	return k, nil
}

// journal appends a committed operation and returns its sequence.
// Journal trouble does not fail the call: the periodic snapshot still
// persists the applied state.
func (s *MarketService) journal(op wal.RecordType, now int64, payload any) uint64 {
	seq := s.seq.Next()
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error("journal encode failed", zap.Error(err))
		return seq
	}
	rec := &wal.Record{Type: op, Seq: seq, Time: now, Data: data}
	if err := s.wal.Append(rec); err != nil {
		s.log.Error("journal append failed", zap.Error(err), zap.Uint64("seq", seq))
		return seq
	}
	obs.WalAppends.Inc()
	return seq
}

// publish drains the engine's committed events to kafka.
func (s *MarketService) publish(h *marketHandle) {
	events := h.eng.TakeEvents()
	if s.producer == nil || len(events) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, ev := range events {
		data, err := json.Marshal(wireEvent(ev))
		if err != nil {
			s.log.Error("event encode failed", zap.Error(err))
			continue
		}
		if err := s.producer.Send(ctx, ev.Market[:], data); err != nil {
			s.log.Warn("event publish failed",
				zap.Error(err), zap.String("type", ev.Type))
		}
	}
}
