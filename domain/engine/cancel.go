package engine

import (
	"fmt"

	"github.com/atellix/aqua-dex/domain/book"
	"github.com/atellix/aqua-dex/domain/market"
	"github.com/atellix/aqua-dex/domain/slab"
)

// Cancel removes the caller's resting order and refunds the escrowed
// remainder straight to their external token account.
func (e *Engine) Cancel(u OrderUser, side market.Side, orderID [16]byte, now int64) (market.WithdrawResult, error) {
	var res market.WithdrawResult
	key := slab.Key128FromBytes(orderID)
	leaf, ord, ok := e.book.Get(side, key)
	if !ok {
		return res, fmt.Errorf("%w: %x", ErrOrderNotFound, orderID)
	}
	if market.Key(leaf.Owner) != u.User {
		return res, ErrNotOwner
	}
	return e.cancelInner(u, side, key, ord, now)
}

// ManagerCancel removes any resting order, crediting the owner's
// escrow into settlement rather than transferring it out.
func (e *Engine) ManagerCancel(manager market.Key, side market.Side, orderID [16]byte, rollover bool, newLogKey market.Key, newLog []byte, now int64) (market.WithdrawResult, error) {
	var res market.WithdrawResult
	if !e.mkt.ManagerCancel {
		return res, fmt.Errorf("%w: manager cancel disabled", ErrNotAuthorized)
	}
	if manager != e.mkt.Manager {
		return res, fmt.Errorf("%w: not the manager", ErrNotAuthorized)
	}
	key := slab.Key128FromBytes(orderID)
	leaf, ord, ok := e.book.Get(side, key)
	if !ok {
		return res, fmt.Errorf("%w: %x", ErrOrderNotFound, orderID)
	}
	needed := e.rolloverNeeded()
	if rollover && !needed {
		return res, ErrRolloverNotNeeded
	}
	if !rollover && needed {
		return res, ErrRolloverRequired
	}

	cp := e.begin()
	res, err := e.managerCancelInner(manager, side, key, leaf, ord, rollover, newLogKey, newLog, now)
	if err != nil {
		e.rollback(cp)
		return market.WithdrawResult{}, err
	}
	return res, nil
}

func (e *Engine) managerCancelInner(manager market.Key, side market.Side, key slab.Key128, leaf slab.Leaf, ord book.Order, rollover bool, newLogKey market.Key, newLog []byte, now int64) (market.WithdrawResult, error) {
	var res market.WithdrawResult
	if rollover {
		// The manager is not reimbursed for providing the log account.
		if err := e.spliceRollover(newLogKey, newLog, manager, false); err != nil {
			return res, err
		}
	}
	actionID := e.st.NextAction()
	owner := market.Key(leaf.Owner)
	price := book.Price(side, key)
	if side == market.Bid {
		total, err := scalePrice(ord.Quantity, price, e.mktFactor())
		if err != nil {
			return res, err
		}
		if err := e.creditSettlement(owner, false, total, now); err != nil {
			return res, err
		}
		res.PrcTokens = total
	} else {
		if err := e.creditSettlement(owner, true, ord.Quantity, now); err != nil {
			return res, err
		}
		res.MktTokens = ord.Quantity
	}
	if _, _, err := e.book.Remove(side, key); err != nil {
		return res, err
	}
	e.adjustActive(side, -1)
	e.emit(Event{
		Type:      "cancel",
		ActionID:  actionID,
		Owner:     owner,
		User:      manager,
		Side:      side,
		OrderID:   key.Bytes16(),
		Price:     price,
		Quantity:  ord.Quantity,
		MktTokens: res.MktTokens,
		PrcTokens: res.PrcTokens,
		Ts:        now,
	})
	return res, nil
}

func (e *Engine) cancelInner(u OrderUser, side market.Side, key slab.Key128, ord book.Order, now int64) (market.WithdrawResult, error) {
	cp := e.begin()
	res, err := func() (market.WithdrawResult, error) {
		var res market.WithdrawResult
		actionID := e.st.NextAction()
		price := book.Price(side, key)
		var src, dst market.Key
		var tokensOut uint64
		if side == market.Bid {
			total, err := scalePrice(ord.Quantity, price, e.mktFactor())
			if err != nil {
				return res, err
			}
			res.PrcTokens = total
			tokensOut = total
			e.st.PrcVaultBalance -= total
			e.st.PrcOrderBalance -= total
			src, dst = e.mkt.PrcVault, u.PrcToken
		} else {
			res.MktTokens = ord.Quantity
			tokensOut = ord.Quantity
			e.st.MktVaultBalance -= ord.Quantity
			e.st.MktOrderBalance -= ord.Quantity
			src, dst = e.mkt.MktVault, u.MktToken
		}
		if _, _, err := e.book.Remove(side, key); err != nil {
			return res, err
		}
		e.adjustActive(side, -1)
		if e.mkt.LogRebate > 0 {
			if e.st.LogDepositBalance < e.mkt.LogRebate {
				return res, fmt.Errorf("%w: log deposit balance", ErrOverflow)
			}
			e.st.LogDepositBalance -= e.mkt.LogRebate
		}
		if err := e.vlt.Move(src, dst, tokensOut); err != nil {
			return res, fmt.Errorf("%w: %s", ErrVault, err)
		}
		e.emit(Event{
			Type:      "cancel",
			ActionID:  actionID,
			Owner:     u.User,
			User:      u.User,
			Side:      side,
			OrderID:   key.Bytes16(),
			Price:     price,
			Quantity:  ord.Quantity,
			MktTokens: res.MktTokens,
			PrcTokens: res.PrcTokens,
			Ts:        now,
		})
		return res, nil
	}()
	if err != nil {
		e.rollback(cp)
		return market.WithdrawResult{}, err
	}
	return res, nil
}

// ExpireOrder evicts one expired resting order, crediting its escrow
// into settlement. Anyone may call it; an order that has not expired
// is left untouched and reported as such.
func (e *Engine) ExpireOrder(caller market.Key, side market.Side, orderID [16]byte, now int64) (bool, error) {
	key := slab.Key128FromBytes(orderID)
	leaf, ord, ok := e.book.Get(side, key)
	if !ok {
		return false, fmt.Errorf("%w: %x", ErrOrderNotFound, orderID)
	}
	if ord.Expiry == 0 || now < ord.Expiry {
		return false, nil
	}
	needed := e.rolloverNeeded()
	if needed {
		return false, ErrRolloverRequired
	}
	cp := e.begin()
	err := func() error {
		actionID := e.st.NextAction()
		owner := market.Key(leaf.Owner)
		price := book.Price(side, key)
		if side == market.Bid {
			total, err := scalePrice(ord.Quantity, price, e.mktFactor())
			if err != nil {
				return err
			}
			if err := e.creditSettlement(owner, false, total, now); err != nil {
				return err
			}
		} else {
			if err := e.creditSettlement(owner, true, ord.Quantity, now); err != nil {
				return err
			}
		}
		if _, _, err := e.book.Remove(side, key); err != nil {
			return err
		}
		e.adjustActive(side, -1)
		e.emit(Event{
			Type:     "expire",
			ActionID: actionID,
			Owner:    owner,
			User:     caller,
			Side:     side,
			OrderID:  key.Bytes16(),
			Price:    price,
			Quantity: ord.Quantity,
			Ts:       now,
		})
		return nil
	}()
	if err != nil {
		e.rollback(cp)
		return false, err
	}
	return true, nil
}
