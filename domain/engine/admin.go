package engine

import (
	"fmt"

	"github.com/atellix/aqua-dex/domain/market"
)

// ManagerWithdrawFees moves the accrued protocol fees to the manager's
// pricing token account and returns the amount.
func (e *Engine) ManagerWithdrawFees(manager, managerPrc market.Key, now int64) (uint64, error) {
	if manager != e.mkt.Manager {
		return 0, fmt.Errorf("%w: not the manager", ErrNotAuthorized)
	}
	fees := e.st.PrcFeesBalance
	if fees == 0 {
		return 0, nil
	}
	st := *e.st
	actionID := e.st.NextAction()
	e.st.PrcFeesBalance = 0
	e.st.PrcVaultBalance -= fees
	if err := e.vlt.Move(e.mkt.PrcVault, managerPrc, fees); err != nil {
		*e.st = st
		return 0, fmt.Errorf("%w: %s", ErrVault, err)
	}
	e.emit(Event{
		Type:      "withdraw_fees",
		ActionID:  actionID,
		User:      manager,
		PrcTokens: fees,
		Ts:        now,
	})
	return fees, nil
}

// MarketUpdate is the manager-adjustable slice of the market record.
type MarketUpdate struct {
	Active       bool
	ExpireEnable bool
	ExpireMin    int64
	MinQuantity  uint64
	TickDecimals uint8
	TakerFee     uint32
	MakerRebate  uint32
	LogFee       uint64
	LogRebate    uint64
	LogReimburse uint64
}

// ManagerUpdateMarket rewrites the adjustable market parameters.
func (e *Engine) ManagerUpdateMarket(manager market.Key, upd MarketUpdate) error {
	if manager != e.mkt.Manager {
		return fmt.Errorf("%w: not the manager", ErrNotAuthorized)
	}
	if upd.MakerRebate > upd.TakerFee {
		return fmt.Errorf("%w: maker_rebate above taker_fee", ErrInvalid)
	}
	if upd.ExpireEnable && upd.ExpireMin < 1 {
		return fmt.Errorf("%w: expire_min %d", ErrInvalid, upd.ExpireMin)
	}
	e.mkt.Active = upd.Active
	e.mkt.ExpireEnable = upd.ExpireEnable
	e.mkt.ExpireMin = upd.ExpireMin
	e.mkt.MinQuantity = upd.MinQuantity
	e.mkt.TickDecimals = upd.TickDecimals
	e.mkt.TakerFee = upd.TakerFee
	e.mkt.MakerRebate = upd.MakerRebate
	e.mkt.LogFee = upd.LogFee
	e.mkt.LogRebate = upd.LogRebate
	e.mkt.LogReimburse = upd.LogReimburse
	return nil
}

// ManagerTransferSol funds or drains the settlement-log deposit
// ledger. The host moves the actual rent; the core keeps the counter.
func (e *Engine) ManagerTransferSol(manager market.Key, withdraw, all bool, amount uint64) (uint64, error) {
	if manager != e.mkt.Manager {
		return 0, fmt.Errorf("%w: not the manager", ErrNotAuthorized)
	}
	if withdraw {
		if all {
			amount = e.st.LogDepositBalance
		}
		if e.st.LogDepositBalance < amount {
			return 0, fmt.Errorf("%w: log deposit balance", ErrOverflow)
		}
		e.st.LogDepositBalance -= amount
		return amount, nil
	}
	e.st.LogDepositBalance += amount
	return amount, nil
}

// ExtendLog performs a standalone settlement rollover when the active
// head is near capacity, outside any trade.
func (e *Engine) ExtendLog(user market.Key, newLogKey market.Key, newLog []byte) error {
	if !e.rolloverNeeded() && !e.st.LogRollover {
		return ErrRolloverNotNeeded
	}
	cp := e.begin()
	if err := e.spliceRollover(newLogKey, newLog, user, true); err != nil {
		e.rollback(cp)
		return err
	}
	return nil
}

// CreateVault initializes a per-user vault record once.
func (e *Engine) CreateVault(manager, owner market.Key, uv *market.UserVault) error {
	if manager != e.mkt.Manager {
		return fmt.Errorf("%w: not the manager", ErrNotAuthorized)
	}
	if uv.Initialized {
		return nil
	}
	uv.Initialized = true
	uv.Market = e.mkt.MarketID
	uv.Owner = owner
	uv.MktTokens = 0
	uv.PrcTokens = 0
	return nil
}
