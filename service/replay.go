package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/atellix/aqua-dex/domain/market"
	"github.com/atellix/aqua-dex/infra/wal"
)

// replayMover stands in for the external vault during journal replay.
// Every journaled operation already cleared its vault transfers when
// it first committed; replay only rebuilds region state.
type replayMover struct{}

func (replayMover) Move(src, dst market.Key, amount uint64) error { return nil }

func (replayMover) Balance(acct market.Key) (uint64, error) { return math.MaxUint64, nil }

// replay re-applies journal records past the snapshot checkpoint.
// Each market carries its own stamp, so records a snapshot already
// covers are skipped rather than double-applied.
func (s *MarketService) replay() error {
	checkpoint, err := s.store.Checkpoint()
	if err != nil {
		return err
	}
	real := s.vlt
	s.vlt = replayMover{}
	for _, h := range s.markets {
		if err := h.rebuildEngine(s.vlt, s.cfg); err != nil {
			return err
		}
	}
	count := 0
	lastSeq := checkpoint
	err = s.wal.Replay(checkpoint, func(rec *wal.Record) error {
		applied, err := s.applyRecord(rec)
		if err != nil {
			return fmt.Errorf("replay seq %d: %w", rec.Seq, err)
		}
		if rec.Seq > lastSeq {
			lastSeq = rec.Seq
		}
		if applied {
			count++
		}
		return nil
	})
	s.vlt = real
	if err != nil {
		return err
	}
	if lastSeq > s.seq.Current() {
		s.seq.Reset(lastSeq)
	}
	for _, h := range s.markets {
		if err := h.rebuildEngine(s.vlt, s.cfg); err != nil {
			return err
		}
		h.eng.TakeEvents()
	}
	if count > 0 {
		s.log.Info("journal replayed",
			zap.Int("records", count),
			zap.Uint64("from", checkpoint),
			zap.Uint64("to", lastSeq))
	}
	return nil
}

// replayHandle resolves the target market and reports whether the
// record is already reflected in its snapshot.
func (s *MarketService) replayHandle(id market.Key, seq uint64) (*marketHandle, bool, error) {
	h, err := s.handle(id)
	if err != nil {
		return nil, false, err
	}
	if seq <= h.walSeq {
		return nil, true, nil
	}
	return h, false, nil
}

func (s *MarketService) applyRecord(rec *wal.Record) (bool, error) {
	decode := func(v any) error { return json.Unmarshal(rec.Data, v) }

	switch rec.Type {
	case wal.RecordCreateMarket:
		var op opCreateMarket
		if err := decode(&op); err != nil {
			return false, err
		}
		if _, err := s.handle(op.Acc.Market); err == nil {
			return false, nil
		}
		if err := s.applyCreateMarket(op, rec.Time); err != nil {
			return false, err
		}
		h, _ := s.handle(op.Acc.Market)
		h.walSeq = rec.Seq
		return true, nil

	case wal.RecordLimit:
		var op opLimit
		if err := decode(&op); err != nil {
			return false, err
		}
		return s.replayOn(op.Market, rec, func(h *marketHandle) error {
			_, err := s.applyLimit(h, op, false, rec.Time)
			return err
		})

	case wal.RecordCancel:
		var op opCancel
		if err := decode(&op); err != nil {
			return false, err
		}
		return s.replayOn(op.Market, rec, func(h *marketHandle) error {
			_, err := s.applyCancel(h, op, rec.Time)
			return err
		})

	case wal.RecordWithdraw:
		var op opWithdraw
		if err := decode(&op); err != nil {
			return false, err
		}
		return s.replayOn(op.Market, rec, func(h *marketHandle) error {
			_, err := s.applyWithdraw(h, op, rec.Time)
			return err
		})

	case wal.RecordExpire:
		var op opExpire
		if err := decode(&op); err != nil {
			return false, err
		}
		return s.replayOn(op.Market, rec, func(h *marketHandle) error {
			_, err := h.eng.ExpireOrder(op.Caller, op.Side, op.OrderID, rec.Time)
			return err
		})

	case wal.RecordManagerCancel:
		var op opManagerCancel
		if err := decode(&op); err != nil {
			return false, err
		}
		return s.replayOn(op.Market, rec, func(h *marketHandle) error {
			_, err := s.applyManagerCancel(h, op, rec.Time)
			return err
		})

	case wal.RecordManagerWithdraw:
		var op opManagerWithdraw
		if err := decode(&op); err != nil {
			return false, err
		}
		return s.replayOn(op.Market, rec, func(h *marketHandle) error {
			_, err := s.applyManagerWithdraw(h, op, rec.Time)
			return err
		})

	case wal.RecordManagerFees:
		var op opManagerFees
		if err := decode(&op); err != nil {
			return false, err
		}
		return s.replayOn(op.Market, rec, func(h *marketHandle) error {
			_, err := h.eng.ManagerWithdrawFees(op.Manager, op.ManagerPrc, rec.Time)
			return err
		})

	case wal.RecordManagerUpdate:
		var op opManagerUpdate
		if err := decode(&op); err != nil {
			return false, err
		}
		return s.replayOn(op.Market, rec, func(h *marketHandle) error {
			return h.eng.ManagerUpdateMarket(op.Manager, op.Update)
		})

	case wal.RecordManagerTransfer:
		var op opManagerTransfer
		if err := decode(&op); err != nil {
			return false, err
		}
		return s.replayOn(op.Market, rec, func(h *marketHandle) error {
			_, err := h.eng.ManagerTransferSol(op.Manager, op.Withdraw, op.All, op.Amount)
			return err
		})

	case wal.RecordExtendLog:
		var op opExtendLog
		if err := decode(&op); err != nil {
			return false, err
		}
		return s.replayOn(op.Market, rec, func(h *marketHandle) error {
			return s.applyExtendLog(h, op)
		})

	case wal.RecordCreateVault:
		var op opCreateVault
		if err := decode(&op); err != nil {
			return false, err
		}
		return s.replayOn(op.Market, rec, func(h *marketHandle) error {
			return s.applyCreateVault(h, op)
		})

	case wal.RecordVaultDeposit:
		var op opVaultDeposit
		if err := decode(&op); err != nil {
			return false, err
		}
		return s.replayOn(op.Market, rec, func(h *marketHandle) error {
			return s.applyVaultDeposit(h, op, rec.Time)
		})

	case wal.RecordVaultWithdraw:
		var op opVaultWithdraw
		if err := decode(&op); err != nil {
			return false, err
		}
		return s.replayOn(op.Market, rec, func(h *marketHandle) error {
			_, err := s.applyVaultWithdraw(h, op, rec.Time)
			return err
		})

	default:
		return false, fmt.Errorf("service: unknown journal record type %d", rec.Type)
	}
}

func (s *MarketService) replayOn(id market.Key, rec *wal.Record, fn func(h *marketHandle) error) (bool, error) {
	h, skip, err := s.replayHandle(id, rec.Seq)
	if err != nil {
		// A market the store no longer knows; its records are stale.
		if errors.Is(err, ErrUnknownMarket) {
			return false, nil
		}
		return false, err
	}
	if skip {
		return false, nil
	}
	if err := fn(h); err != nil {
		return false, err
	}
	h.walSeq = rec.Seq
	h.dirty = true
	return true, nil
}
