package engine

import (
	"fmt"

	"github.com/atellix/aqua-dex/domain/market"
	"github.com/atellix/aqua-dex/domain/settle"
)

// LogRef names a settlement log account and its byte region.
type LogRef struct {
	Key market.Key
	Buf []byte
}

// Withdraw pays out the caller's settled balances from one log and
// removes the entry. A log emptied this way is unlinked from the chain
// when it is neither the first nor the last link; the second return
// reports that.
func (e *Engine) Withdraw(u OrderUser, log, prev, next LogRef, now int64) (market.WithdrawResult, bool, error) {
	return e.withdrawFrom(u.User, u, log, prev, next, false, u.User, now)
}

// ManagerWithdraw forces an owner's settlement withdrawal to the
// owner's external token accounts.
func (e *Engine) ManagerWithdraw(manager, owner market.Key, ownerMkt, ownerPrc market.Key, log, prev, next LogRef, now int64) (market.WithdrawResult, bool, error) {
	if !e.mkt.ManagerWithdraw {
		return market.WithdrawResult{}, false, fmt.Errorf("%w: manager withdraw disabled", ErrNotAuthorized)
	}
	if manager != e.mkt.Manager {
		return market.WithdrawResult{}, false, fmt.Errorf("%w: not the manager", ErrNotAuthorized)
	}
	u := OrderUser{User: owner, MktToken: ownerMkt, PrcToken: ownerPrc}
	return e.withdrawFrom(owner, u, log, prev, next, true, manager, now)
}

// logCheckpoint covers state plus the externally supplied regions a
// withdrawal may touch. Head regions the host passes in alias the
// engine's attached views, so a byte restore heals both.
type logCheckpoint struct {
	st   market.State
	logA *settle.Log
	logB *settle.Log
	bufs [][]byte
	orig [][]byte
}

func (e *Engine) beginLogs(bufs ...[]byte) logCheckpoint {
	cp := logCheckpoint{st: *e.st, logA: e.settleA, logB: e.settleB}
	for _, b := range bufs {
		if b == nil {
			continue
		}
		cp.orig = append(cp.orig, b)
		cp.bufs = append(cp.bufs, append([]byte(nil), b...))
	}
	return cp
}

func (e *Engine) rollbackLogs(cp logCheckpoint) {
	*e.st = cp.st
	e.settleA = cp.logA
	e.settleB = cp.logB
	for i, b := range cp.orig {
		copy(b, cp.bufs[i])
	}
}

func (e *Engine) withdrawFrom(owner market.Key, dest OrderUser, log, prev, next LogRef, manager bool, actor market.Key, now int64) (market.WithdrawResult, bool, error) {
	sl, err := settle.Attach(log.Buf, e.caps.MaxAccounts)
	if err != nil {
		return market.WithdrawResult{}, false, err
	}
	if sl.Market() != e.mkt.MarketID {
		return market.WithdrawResult{}, false, fmt.Errorf("%w: log belongs to another market", ErrInvalid)
	}
	cp := e.beginLogs(log.Buf, prev.Buf, next.Buf)
	res, closed, err := func() (market.WithdrawResult, bool, error) {
		var res market.WithdrawResult
		closeLog := sl.Items() == 1 && !sl.Prev().IsZero() && !sl.Next().IsZero()
		entry, err := sl.Drain(owner)
		if err != nil {
			if err == settle.ErrNotFound {
				return res, false, fmt.Errorf("%w: no settled balance", ErrAccountNotFound)
			}
			return res, false, err
		}
		actionID := e.st.NextAction()
		if entry.MktBalance > 0 {
			res.MktTokens = entry.MktBalance
			e.st.MktLogBalance -= entry.MktBalance
			e.st.MktVaultBalance -= entry.MktBalance
			if err := e.vlt.Move(e.mkt.MktVault, dest.MktToken, entry.MktBalance); err != nil {
				return res, false, fmt.Errorf("%w: %s", ErrVault, err)
			}
		}
		if entry.PrcBalance > 0 {
			res.PrcTokens = entry.PrcBalance
			e.st.PrcLogBalance -= entry.PrcBalance
			e.st.PrcVaultBalance -= entry.PrcBalance
			if err := e.vlt.Move(e.mkt.PrcVault, dest.PrcToken, entry.PrcBalance); err != nil {
				return res, false, fmt.Errorf("%w: %s", ErrVault, err)
			}
		}
		if !manager && e.mkt.LogRebate > 0 {
			if e.st.LogDepositBalance < e.mkt.LogRebate {
				return res, false, fmt.Errorf("%w: log deposit balance", ErrOverflow)
			}
			e.st.LogDepositBalance -= e.mkt.LogRebate
		}
		closed := false
		if closeLog {
			if err := e.unlinkLog(sl, log, prev, next); err != nil {
				return res, false, err
			}
			closed = true
		}
		e.emit(Event{
			Type:      "withdraw",
			ActionID:  actionID,
			Owner:     owner,
			User:      actor,
			Log:       log.Key,
			MktTokens: res.MktTokens,
			PrcTokens: res.PrcTokens,
			Ts:        now,
		})
		return res, closed, nil
	}()
	if err != nil {
		e.rollbackLogs(cp)
		return market.WithdrawResult{}, false, err
	}
	return res, closed, nil
}

// unlinkLog splices an empty, interior log out of the chain. The
// chain neighbours must be the accounts the log names.
func (e *Engine) unlinkLog(sl *settle.Log, log, prev, next LogRef) error {
	if sl.Items() != 0 {
		return fmt.Errorf("%w: %d entries remain", ErrLogNotEmpty, sl.Items())
	}
	if sl.Prev().IsZero() || sl.Next().IsZero() {
		return fmt.Errorf("%w: cannot unlink a chain end", ErrInvalid)
	}
	if sl.Prev() != prev.Key || sl.Next() != next.Key {
		return fmt.Errorf("%w: chain neighbours do not match", ErrInvalid)
	}
	pl, err := settle.Attach(prev.Buf, e.caps.MaxAccounts)
	if err != nil {
		return err
	}
	nl, err := settle.Attach(next.Buf, e.caps.MaxAccounts)
	if err != nil {
		return err
	}
	if pl.Next() != log.Key || nl.Prev() != log.Key {
		return fmt.Errorf("%w: neighbours not linked to log", ErrInvalid)
	}
	pl.SetNext(next.Key)
	nl.SetPrev(prev.Key)
	// An unlinked head hands its role to its successor; the attached
	// views follow the state.
	if e.st.SettleA == log.Key {
		e.st.SettleA = next.Key
		e.settleA = nl
	} else if e.st.SettleB == log.Key {
		e.st.SettleB = next.Key
		e.settleB = nl
	}
	// The host reclaims the released account's rent; the deposit
	// ledger is not changed here.
	return nil
}

// LogStatus summarizes a settlement log account (read-only).
func (e *Engine) LogStatus(buf []byte) (market.LogStatusResult, error) {
	sl, err := settle.Attach(buf, e.caps.MaxAccounts)
	if err != nil {
		return market.LogStatusResult{}, err
	}
	return sl.Status(), nil
}

// SettleBalance reports an owner's entry in one log (read-only).
func (e *Engine) SettleBalance(buf []byte, owner market.Key) (settle.Entry, bool, error) {
	sl, err := settle.Attach(buf, e.caps.MaxAccounts)
	if err != nil {
		return settle.Entry{}, false, err
	}
	entry, ok := sl.Entry(owner)
	return entry, ok, nil
}

// VaultDeposit moves an owner's settled balances into their per-user
// vault, manager housekeeping that keeps the active log shallow.
func (e *Engine) VaultDeposit(manager, owner market.Key, uv *market.UserVault, log, prev, next LogRef, now int64) error {
	if manager != e.mkt.Manager {
		return fmt.Errorf("%w: not the manager", ErrNotAuthorized)
	}
	if !uv.Initialized || uv.Owner != owner || uv.Market != e.mkt.MarketID {
		return fmt.Errorf("%w: vault does not match owner", ErrInvalid)
	}
	sl, err := settle.Attach(log.Buf, e.caps.MaxAccounts)
	if err != nil {
		return err
	}
	if sl.Market() != e.mkt.MarketID {
		return fmt.Errorf("%w: log belongs to another market", ErrInvalid)
	}
	cp := e.beginLogs(log.Buf, prev.Buf, next.Buf)
	save := *uv
	err = func() error {
		closeLog := sl.Items() == 1 && !sl.Prev().IsZero() && !sl.Next().IsZero()
		entry, err := sl.Drain(owner)
		if err != nil {
			if err == settle.ErrNotFound {
				return fmt.Errorf("%w: no settled balance", ErrAccountNotFound)
			}
			return err
		}
		if entry.MktBalance > 0 {
			e.st.MktLogBalance -= entry.MktBalance
			e.st.MktUserVaultBalance += entry.MktBalance
			uv.MktTokens += entry.MktBalance
		}
		if entry.PrcBalance > 0 {
			e.st.PrcLogBalance -= entry.PrcBalance
			e.st.PrcUserVaultBalance += entry.PrcBalance
			uv.PrcTokens += entry.PrcBalance
		}
		if closeLog {
			if err := e.unlinkLog(sl, log, prev, next); err != nil {
				return err
			}
		}
		if entry.MktBalance > 0 || entry.PrcBalance > 0 {
			actionID := e.st.NextAction()
			e.emit(Event{
				Type:      "vault_deposit",
				ActionID:  actionID,
				Owner:     owner,
				User:      manager,
				MktTokens: entry.MktBalance,
				PrcTokens: entry.PrcBalance,
				Ts:        now,
			})
		}
		return nil
	}()
	if err != nil {
		e.rollbackLogs(cp)
		*uv = save
		return err
	}
	return nil
}

// VaultWithdraw lets an owner drain their per-user vault to their
// external token accounts. The vault record is cleared on success.
func (e *Engine) VaultWithdraw(u OrderUser, uv *market.UserVault, now int64) (market.WithdrawResult, error) {
	if uv.Owner != u.User {
		return market.WithdrawResult{}, fmt.Errorf("%w: not the vault owner", ErrNotAuthorized)
	}
	return e.vaultDrain(u, uv, u.User, now)
}

// ManagerVaultWithdraw drains a user vault on the owner's behalf.
func (e *Engine) ManagerVaultWithdraw(manager market.Key, owner OrderUser, uv *market.UserVault, now int64) (market.WithdrawResult, error) {
	if !e.mkt.ManagerWithdraw {
		return market.WithdrawResult{}, fmt.Errorf("%w: manager withdraw disabled", ErrNotAuthorized)
	}
	if manager != e.mkt.Manager {
		return market.WithdrawResult{}, fmt.Errorf("%w: not the manager", ErrNotAuthorized)
	}
	return e.vaultDrain(owner, uv, manager, now)
}

func (e *Engine) vaultDrain(dest OrderUser, uv *market.UserVault, actor market.Key, now int64) (market.WithdrawResult, error) {
	var res market.WithdrawResult
	if uv.MktTokens == 0 && uv.PrcTokens == 0 {
		return res, nil
	}
	st := *e.st
	save := *uv
	err := func() error {
		actionID := e.st.NextAction()
		if uv.MktTokens > 0 {
			res.MktTokens = uv.MktTokens
			e.st.MktVaultBalance -= uv.MktTokens
			e.st.MktUserVaultBalance -= uv.MktTokens
			if err := e.vlt.Move(e.mkt.MktVault, dest.MktToken, uv.MktTokens); err != nil {
				return fmt.Errorf("%w: %s", ErrVault, err)
			}
			uv.MktTokens = 0
		}
		if uv.PrcTokens > 0 {
			res.PrcTokens = uv.PrcTokens
			e.st.PrcVaultBalance -= uv.PrcTokens
			e.st.PrcUserVaultBalance -= uv.PrcTokens
			if err := e.vlt.Move(e.mkt.PrcVault, dest.PrcToken, uv.PrcTokens); err != nil {
				return fmt.Errorf("%w: %s", ErrVault, err)
			}
			uv.PrcTokens = 0
		}
		e.emit(Event{
			Type:      "vault_withdraw",
			ActionID:  actionID,
			Owner:     dest.User,
			User:      actor,
			MktTokens: res.MktTokens,
			PrcTokens: res.PrcTokens,
			Ts:        now,
		})
		return nil
	}()
	if err != nil {
		*e.st = st
		*uv = save
		return market.WithdrawResult{}, err
	}
	return res, nil
}

// CloseVault verifies a user vault is empty before the host releases
// its account.
func (e *Engine) CloseVault(manager market.Key, uv *market.UserVault) error {
	if manager != e.mkt.Manager {
		return fmt.Errorf("%w: not the manager", ErrNotAuthorized)
	}
	if uv.MktTokens > 0 || uv.PrcTokens > 0 {
		return ErrVaultNotEmpty
	}
	return nil
}
