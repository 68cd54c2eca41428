package engine

import (
	"errors"
	"fmt"

	"github.com/atellix/aqua-dex/domain/book"
	"github.com/atellix/aqua-dex/domain/market"
	"github.com/atellix/aqua-dex/domain/settle"
	"github.com/atellix/aqua-dex/domain/slab"
	"github.com/atellix/aqua-dex/domain/tradelog"
)

// LimitParams carries one limit order submission.
type LimitParams struct {
	Quantity uint64
	Price    uint64
	// Post leaves the unfilled remainder on the book.
	Post bool
	// Fill requires complete execution; incompatible with Post.
	Fill bool
	// Expires is a unix timestamp, 0 for no expiry.
	Expires int64
	// Preview simulates the call without committing anything.
	Preview bool
	// Rollover splices NewLog in as the fresh settlement head.
	Rollover  bool
	NewLogKey market.Key
	NewLog    []byte
}

// OrderUser names the caller and their external token accounts.
type OrderUser struct {
	User     market.Key
	MktToken market.Key
	PrcToken market.Key
}

var (
	evtLimitMatch   = tradelog.EventType("aqua-dex/limit/match")
	evtLimitPartial = tradelog.EventType("aqua-dex/limit/match/partial")
)

// LimitBid submits a buy order.
func (e *Engine) LimitBid(u OrderUser, p LimitParams, now int64) (market.TradeResult, error) {
	return e.limit(market.Bid, u, p, now)
}

// LimitAsk submits a sell order.
func (e *Engine) LimitAsk(u OrderUser, p LimitParams, now int64) (market.TradeResult, error) {
	return e.limit(market.Ask, u, p, now)
}

func (e *Engine) limit(side market.Side, u OrderUser, p LimitParams, now int64) (market.TradeResult, error) {
	var res market.TradeResult
	if p.Quantity == 0 {
		return res, fmt.Errorf("%w: zero quantity", ErrBadQty)
	}
	if p.Price == 0 {
		return res, fmt.Errorf("%w: zero price", ErrBadPrice)
	}
	if p.Post && p.Fill {
		return res, fmt.Errorf("%w: fill cannot be combined with post", ErrInvalid)
	}
	if !e.mkt.Active {
		return res, ErrMarketClosed
	}
	if p.Post && p.Quantity < e.mkt.MinQuantity {
		return res, fmt.Errorf("%w: %d < %d", ErrBelowMin, p.Quantity, e.mkt.MinQuantity)
	}
	if !e.tickAligned(p.Price) {
		return res, fmt.Errorf("%w: price %d, tick 10^%d", ErrBadTick, p.Price, e.mkt.TickDecimals)
	}
	expiry := int64(0)
	if e.mkt.ExpireEnable && p.Expires != 0 {
		dur := p.Expires - now
		if dur <= 0 {
			return res, fmt.Errorf("%w: already expired", ErrExpired)
		}
		if dur < e.mkt.ExpireMin {
			return res, fmt.Errorf("%w: %ds below minimum %ds", ErrExpired, dur, e.mkt.ExpireMin)
		}
		expiry = p.Expires
	}
	if !p.Preview {
		needed := e.rolloverNeeded()
		if p.Rollover && !needed {
			return res, ErrRolloverNotNeeded
		}
		if !p.Rollover && needed {
			return res, ErrRolloverRequired
		}
	}

	cp := e.begin()
	res, err := e.limitInner(side, u, p, expiry, now)
	if err != nil {
		e.rollback(cp)
		return market.TradeResult{}, err
	}
	return res, nil
}

func (e *Engine) limitInner(side market.Side, u OrderUser, p LimitParams, expiry, now int64) (market.TradeResult, error) {
	var res market.TradeResult
	factor := e.mktFactor()
	preview := p.Preview

	actionID := e.st.ActionCounter + 1
	if !preview {
		e.st.NextAction()
		if p.Rollover {
			if err := e.spliceRollover(p.NewLogKey, p.NewLog, u.User, true); err != nil {
				return res, err
			}
		}
	}

	// Upfront escrow accounting, trimmed back down once the real spend
	// is known (the original's "discount").
	var tokensIn uint64
	if side == market.Bid {
		v, err := scalePrice(p.Quantity, p.Price, factor)
		if err != nil {
			return res, err
		}
		tokensIn = v
		if !preview {
			e.st.PrcVaultBalance += tokensIn
			e.st.PrcOrderBalance += tokensIn
		}
	} else {
		tokensIn = p.Quantity
		if !preview {
			e.st.MktVaultBalance += tokensIn
			e.st.MktOrderBalance += tokensIn
		}
	}

	opp := side.Opposite()
	remaining := p.Quantity
	var filled, paidFills, paidOut, feeTotal uint64
	seen := make(map[slab.Key128]bool)
	var expired []slab.Key128
	var cursor *slab.Cursor

	for remaining > 0 {
		leaf, ord, ok := e.nextMaker(opp, u.User, now, seen, &expired, preview, &cursor)
		if !ok {
			break
		}
		makerPrice := book.Price(opp, leaf.Key)
		if side == market.Bid && makerPrice > p.Price {
			break
		}
		if side == market.Ask && makerPrice < p.Price {
			break
		}
		fillQty := min(remaining, ord.Quantity)
		notional, err := scalePrice(fillQty, makerPrice, factor)
		if err != nil {
			return res, err
		}
		fee, err := feeOn(e.mkt.TakerFee, notional)
		if err != nil {
			return res, err
		}
		rebate, err := rebateOn(e.mkt.MakerRebate, notional)
		if err != nil {
			return res, err
		}
		if rebate > fee {
			return res, fmt.Errorf("%w: rebate %d above fee %d", ErrInvariant, rebate, fee)
		}
		// The pricing leg of every fill pays notional - fee + rebate;
		// the protocol accrues the difference.
		prcLeg := notional - fee + rebate
		netFee := fee - rebate
		makerFilled := fillQty == ord.Quantity
		makerOwner := market.Key(leaf.Owner)

		remaining -= fillQty
		filled += fillQty
		feeTotal += fee

		if !preview {
			evt := evtLimitMatch
			if !makerFilled {
				evt = evtLimitPartial
			}
			if _, err := e.trades.Append(tradelog.Record{
				EventType:    evt,
				ActionID:     actionID,
				MakerOrderID: leaf.Key.Bytes16(),
				MakerFilled:  makerFilled,
				Maker:        makerOwner,
				Taker:        u.User,
				TakerSide:    side,
				Amount:       fillQty,
				Price:        makerPrice,
				Ts:           now,
			}); err != nil {
				return res, err
			}
			e.st.TradeCounter = e.trades.Count()
			if makerFilled {
				if _, _, err := e.book.Remove(opp, leaf.Key); err != nil {
					return res, err
				}
				e.adjustActive(opp, -1)
			} else if rest := ord.Quantity - fillQty; rest < e.mkt.MinQuantity {
				// A remainder below the market minimum may not rest on
				// the book; evict it into settlement.
				if _, _, err := e.book.Remove(opp, leaf.Key); err != nil {
					return res, err
				}
				e.adjustActive(opp, -1)
				if opp == market.Bid {
					dust, err := scalePrice(rest, makerPrice, factor)
					if err != nil {
						return res, err
					}
					if err := e.creditSettlement(makerOwner, false, dust, now); err != nil {
						return res, err
					}
				} else {
					if err := e.creditSettlement(makerOwner, true, rest, now); err != nil {
						return res, err
					}
				}
				e.emit(Event{
					Type:     "evict",
					ActionID: actionID,
					Owner:    makerOwner,
					Side:     opp,
					OrderID:  leaf.Key.Bytes16(),
					Price:    makerPrice,
					Quantity: rest,
					Ts:       now,
				})
			} else {
				if err := e.book.SetQuantity(opp, leaf.Slot, rest); err != nil {
					return res, err
				}
			}
			e.st.LastPrice = makerPrice
			e.st.LastTs = now
			if side == market.Bid {
				if err := e.creditSettlement(makerOwner, false, prcLeg, now); err != nil {
					return res, err
				}
				e.st.PrcOrderBalance -= netFee
				e.st.PrcFeesBalance += netFee
			} else {
				if err := e.creditSettlement(makerOwner, true, fillQty, now); err != nil {
					return res, err
				}
				e.st.PrcOrderBalance -= notional
				e.st.PrcFeesBalance += netFee
			}
		}
		if side == market.Bid {
			paidFills += notional
		} else {
			paidOut += prcLeg
		}
	}

	if !preview {
		if err := e.evictExpired(opp, expired, now); err != nil {
			return res, err
		}
	}

	if remaining > 0 && p.Fill {
		return res, fmt.Errorf("%w: %d unmatched", ErrNotFilled, remaining)
	}

	var posted, escrow uint64
	if remaining > 0 && p.Post && remaining >= e.mkt.MinQuantity {
		key := book.OrderID(side, p.Price, actionID)
		if !preview {
			o := book.Order{Quantity: remaining, Expiry: expiry}
			if err := e.postWithEviction(side, key, u.User, o, p.Price, now); err != nil {
				return res, err
			}
			e.adjustActive(side, 1)
		}
		posted = remaining
		res.OrderID = key.Bytes16()
		if side == market.Bid {
			v, err := scalePrice(remaining, p.Price, factor)
			if err != nil {
				return res, err
			}
			escrow = v
		}
	}
	res.PostedQuantity = posted

	// Settle the vault legs.
	var totalSent uint64
	if side == market.Bid {
		totalSent = paidFills + escrow
		discount := tokensIn - totalSent
		if !preview {
			e.st.PrcVaultBalance -= discount
			e.st.PrcOrderBalance -= discount
			if err := e.vlt.Move(u.PrcToken, e.mkt.PrcVault, totalSent); err != nil {
				return res, fmt.Errorf("%w: %s", ErrVault, err)
			}
			if filled > 0 {
				e.st.MktVaultBalance -= filled
				e.st.MktOrderBalance -= filled
				if err := e.vlt.Move(e.mkt.MktVault, u.MktToken, filled); err != nil {
					return res, fmt.Errorf("%w: %s", ErrVault, err)
				}
			}
		} else if err := e.previewFunds(u.PrcToken, totalSent); err != nil {
			return res, err
		}
		res.TokensReceived = filled
	} else {
		totalSent = filled + posted
		discount := tokensIn - totalSent
		if !preview {
			e.st.MktVaultBalance -= discount
			e.st.MktOrderBalance -= discount
			if err := e.vlt.Move(u.MktToken, e.mkt.MktVault, totalSent); err != nil {
				return res, fmt.Errorf("%w: %s", ErrVault, err)
			}
			if paidOut > 0 {
				e.st.PrcVaultBalance -= paidOut
				if err := e.vlt.Move(e.mkt.PrcVault, u.PrcToken, paidOut); err != nil {
					return res, fmt.Errorf("%w: %s", ErrVault, err)
				}
			}
		} else if err := e.previewFunds(u.MktToken, totalSent); err != nil {
			return res, err
		}
		res.TokensReceived = paidOut
	}
	res.TokensSent = totalSent
	res.TokensFee = feeTotal

	if !preview {
		// Settlement-log space deposit, charged on every committed
		// limit call whether or not a remainder is posted.
		e.st.LogDepositBalance += e.mkt.LogFee
		e.emit(Event{
			Type:     "order",
			ActionID: actionID,
			User:     u.User,
			Side:     side,
			OrderID:  res.OrderID,
			Price:    p.Price,
			Quantity: p.Quantity,
			Ts:       now,
		})
	}
	return res, nil
}

// nextMaker yields the best live maker on side, skipping the caller's
// own orders and collecting expired ones for eviction. In preview mode
// it advances a cursor instead, since nothing is removed underneath it.
func (e *Engine) nextMaker(
	side market.Side,
	user market.Key,
	now int64,
	seen map[slab.Key128]bool,
	expired *[]slab.Key128,
	preview bool,
	cursor **slab.Cursor,
) (slab.Leaf, book.Order, bool) {
	valid := func(l slab.Leaf) (book.Order, bool) {
		ord, err := e.book.Order(side, l.Slot)
		if err != nil {
			return book.Order{}, false
		}
		if ord.Expiry != 0 && now >= ord.Expiry {
			if !seen[l.Key] {
				seen[l.Key] = true
				*expired = append(*expired, l.Key)
			}
			return book.Order{}, false
		}
		if market.Key(l.Owner) == user {
			return book.Order{}, false
		}
		return ord, true
	}
	if preview {
		if *cursor == nil {
			*cursor = e.book.Map(side).Ascend()
		}
		for {
			l, ok := (*cursor).Next()
			if !ok {
				return slab.Leaf{}, book.Order{}, false
			}
			if ord, ok := valid(l); ok {
				return l, ord, true
			}
		}
	}
	var found book.Order
	l, ok := e.book.BestWhere(side, func(l slab.Leaf) bool {
		ord, ok := valid(l)
		if ok {
			found = ord
		}
		return ok
	})
	return l, found, ok
}

// evictExpired silently clears expired makers hit during the walk,
// crediting their escrow back into settlement. Bounded per call.
func (e *Engine) evictExpired(side market.Side, expired []slab.Key128, now int64) error {
	for i, key := range expired {
		if i == e.limits.MaxExpirations {
			break
		}
		leaf, ord, err := e.book.Remove(side, key)
		if err != nil {
			return err
		}
		price := book.Price(side, key)
		owner := market.Key(leaf.Owner)
		if side == market.Bid {
			escrow, err := scalePrice(ord.Quantity, price, e.mktFactor())
			if err != nil {
				return err
			}
			if err := e.creditSettlement(owner, false, escrow, now); err != nil {
				return err
			}
		} else {
			if err := e.creditSettlement(owner, true, ord.Quantity, now); err != nil {
				return err
			}
		}
		e.adjustActive(side, -1)
		e.emit(Event{
			Type:     "expire",
			ActionID: e.st.ActionCounter,
			Owner:    owner,
			Side:     side,
			OrderID:  key.Bytes16(),
			Price:    price,
			Quantity: ord.Quantity,
			Ts:       now,
		})
	}
	return nil
}

// postWithEviction posts a resting order, evicting strictly
// worse-priced orders when the book is full.
func (e *Engine) postWithEviction(side market.Side, key slab.Key128, owner market.Key, o book.Order, price uint64, now int64) error {
	evictions := 0
	for {
		err := e.book.Post(side, key, owner, o)
		if err == nil {
			return nil
		}
		if !errors.Is(err, slab.ErrCapacity) {
			return err
		}
		if evictions == e.limits.MaxEvictions {
			return fmt.Errorf("%w: eviction budget exhausted", ErrBookFull)
		}
		worst, ok := e.book.Worst(side)
		if !ok {
			return ErrBookFull
		}
		worstPrice := book.Price(side, worst.Key)
		better := price > worstPrice
		if side == market.Ask {
			better = price < worstPrice
		}
		if !better {
			return fmt.Errorf("%w: price does not beat evicted order", ErrBookFull)
		}
		leaf, ord, err := e.book.Remove(side, worst.Key)
		if err != nil {
			return err
		}
		evOwner := market.Key(leaf.Owner)
		if side == market.Bid {
			escrow, err := scalePrice(ord.Quantity, worstPrice, e.mktFactor())
			if err != nil {
				return err
			}
			if err := e.creditSettlement(evOwner, false, escrow, now); err != nil {
				return err
			}
		} else {
			if err := e.creditSettlement(evOwner, true, ord.Quantity, now); err != nil {
				return err
			}
		}
		e.adjustActive(side, -1)
		e.emit(Event{
			Type:     "evict",
			ActionID: e.st.ActionCounter,
			Owner:    evOwner,
			Side:     side,
			OrderID:  worst.Key.Bytes16(),
			Price:    worstPrice,
			Quantity: ord.Quantity,
			Ts:       now,
		})
		evictions++
	}
}

func (e *Engine) adjustActive(side market.Side, d int64) {
	if side == market.Bid {
		e.st.ActiveBid = uint64(int64(e.st.ActiveBid) + d)
	} else {
		e.st.ActiveAsk = uint64(int64(e.st.ActiveAsk) + d)
	}
}

// previewFunds mirrors the real debit's funds check without moving
// anything.
func (e *Engine) previewFunds(acct market.Key, amount uint64) error {
	bal, err := e.vlt.Balance(acct)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrVault, err)
	}
	if bal < amount {
		return fmt.Errorf("%w: balance %d below %d", ErrVault, bal, amount)
	}
	return nil
}

// spliceRollover formats the caller's fresh account as a settlement
// log and promotes it to the active head; the old head becomes the
// standby. The fresh log slots in as the chain predecessor of the old
// head (scenario: settle_a = new, new.next = old head).
func (e *Engine) spliceRollover(newKey market.Key, buf []byte, user market.Key, reimburse bool) error {
	if len(buf) == 0 || newKey.IsZero() {
		return fmt.Errorf("%w: missing rollover account", ErrInvalid)
	}
	act, actKey := e.active()
	if !act.Prev().IsZero() {
		return fmt.Errorf("%w: active head is not the chain head", ErrInvariant)
	}
	nl, err := settle.Format(buf, e.mkt.MarketID, market.ZeroKey, actKey, e.caps.MaxAccounts)
	if err != nil {
		return err
	}
	act.SetPrev(newKey)
	e.st.SettleB = actKey
	e.st.SettleA = newKey
	e.settleB = act
	e.settleA = nl
	e.st.LogRollover = false
	if reimburse && e.mkt.LogReimburse > 0 {
		if e.st.LogDepositBalance < e.mkt.LogReimburse {
			return fmt.Errorf("%w: log deposit balance", ErrOverflow)
		}
		e.st.LogDepositBalance -= e.mkt.LogReimburse
		e.emit(Event{
			Type:      "reimburse",
			ActionID:  e.st.ActionCounter,
			User:      user,
			PrcTokens: e.mkt.LogReimburse,
		})
	}
	return nil
}
