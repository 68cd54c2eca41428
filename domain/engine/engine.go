// Package engine drives every state-changing market operation: limit
// order matching, cancellation, settlement withdrawal, expiry and the
// manager surface. The engine is strictly synchronous and re-entrant
// safe: each public operation checkpoints the regions it may touch and
// restores them on any error, so a failed call leaves no trace.
package engine

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/atellix/aqua-dex/domain/book"
	"github.com/atellix/aqua-dex/domain/market"
	"github.com/atellix/aqua-dex/domain/settle"
	"github.com/atellix/aqua-dex/domain/tradelog"
	"github.com/atellix/aqua-dex/domain/vault"
)

// feeDenom is the rate denominator: rates are parts per 10,000,000.
const feeDenom = 10_000_000

var (
	ErrMarketClosed      = errors.New("engine: market closed")
	ErrBadQty            = errors.New("engine: bad quantity")
	ErrBadPrice          = errors.New("engine: bad price")
	ErrBadTick           = errors.New("engine: price not tick aligned")
	ErrBelowMin          = errors.New("engine: quantity below minimum")
	ErrNotFilled         = errors.New("engine: order not filled")
	ErrExpired           = errors.New("engine: expiry out of range")
	ErrNotOwner          = errors.New("engine: not order owner")
	ErrNotAuthorized     = errors.New("engine: not authorized")
	ErrOrderNotFound     = errors.New("engine: order not found")
	ErrAccountNotFound   = errors.New("engine: account not found")
	ErrBookFull          = errors.New("engine: orderbook full")
	ErrRolloverRequired  = errors.New("engine: settlement rollover required")
	ErrRolloverNotNeeded = errors.New("engine: settlement rollover not needed")
	ErrOverflow          = errors.New("engine: arithmetic overflow")
	ErrInvalid           = errors.New("engine: invalid parameters")
	ErrLogNotEmpty       = errors.New("engine: settlement log not empty")
	ErrVaultNotEmpty     = errors.New("engine: user vault not empty")
	ErrVault             = errors.New("engine: vault transfer failed")

	// ErrInvariant must never fire in a correct build; it aborts the
	// call before any partial commit becomes visible.
	ErrInvariant = errors.New("engine: invariant violation")
)

// Limits tunes the walk bounds and the rollover threshold.
type Limits struct {
	// RolloverSlots is K: rollover is required once the active head has
	// fewer free entry slots than this.
	RolloverSlots uint32
	// MaxEvictions bounds how many worse-priced orders a post may evict.
	MaxEvictions int
	// MaxExpirations bounds expired-order cleanup per matching walk.
	MaxExpirations int
}

// DefaultLimits mirror the original deployment constants.
var DefaultLimits = Limits{RolloverSlots: 8, MaxEvictions: 10, MaxExpirations: 10}

// Capacities sizes a market's regions at creation.
type Capacities struct {
	MaxOrders   uint32
	MaxAccounts uint32
	MaxTrades   uint32
}

// Event is one host-visible notification produced by an operation.
// The service publishes these after commit.
type Event struct {
	Type      string
	ActionID  uint64
	Market    market.Key
	User      market.Key
	Owner     market.Key
	Log       market.Key
	Side      market.Side
	OrderID   [16]byte
	Price     uint64
	Quantity  uint64
	MktTokens uint64
	PrcTokens uint64
	Ts        int64
}

// Engine binds one market's records and regions to the vault.
type Engine struct {
	mkt    *market.Market
	st     *market.State
	book   *book.Book
	trades *tradelog.Log

	settleA *settle.Log
	settleB *settle.Log

	vlt    vault.Mover
	caps   Capacities
	limits Limits

	events []Event
}

// New attaches an engine over a market's regions. The settle regions
// must be the two heads the state names, in order.
func New(
	mkt *market.Market,
	st *market.State,
	orders, trades, settleA, settleB []byte,
	vlt vault.Mover,
	caps Capacities,
	limits Limits,
) (*Engine, error) {
	bk, err := book.Attach(orders, caps.MaxOrders)
	if err != nil {
		return nil, err
	}
	tl, err := tradelog.Attach(trades)
	if err != nil {
		return nil, err
	}
	sa, err := settle.Attach(settleA, caps.MaxAccounts)
	if err != nil {
		return nil, err
	}
	sb, err := settle.Attach(settleB, caps.MaxAccounts)
	if err != nil {
		return nil, err
	}
	return &Engine{
		mkt: mkt, st: st,
		book: bk, trades: tl,
		settleA: sa, settleB: sb,
		vlt: vlt, caps: caps, limits: limits,
	}, nil
}

// Market exposes the immutable record.
func (e *Engine) Market() *market.Market { return e.mkt }

// State exposes the mutable record.
func (e *Engine) State() *market.State { return e.st }

// Book exposes the orderbook view (read-only use).
func (e *Engine) Book() *book.Book { return e.book }

// Trades exposes the trade log view (read-only use).
func (e *Engine) Trades() *tradelog.Log { return e.trades }

// TakeEvents drains the events of the last committed operation.
func (e *Engine) TakeEvents() []Event {
	ev := e.events
	e.events = nil
	return ev
}

func (e *Engine) emit(ev Event) {
	ev.Market = e.mkt.MarketID
	e.events = append(e.events, ev)
}

// ---- atomicity ----

// checkpoint captures everything an operation may mutate. Restoring it
// must also restore the free-top stacks byte for byte, which it does
// trivially: the regions are copied whole.
type checkpoint struct {
	st      market.State
	orders  []byte
	trades  []byte
	logA    *settle.Log
	logB    *settle.Log
	settleA []byte
	settleB []byte
	events  int
}

func (e *Engine) begin() checkpoint {
	cp := checkpoint{st: *e.st, logA: e.settleA, logB: e.settleB, events: len(e.events)}
	cp.orders = append([]byte(nil), e.book.Alloc().Bytes()...)
	cp.trades = append([]byte(nil), e.trades.Bytes()...)
	cp.settleA = append([]byte(nil), e.settleA.Bytes()...)
	cp.settleB = append([]byte(nil), e.settleB.Bytes()...)
	return cp
}

func (e *Engine) rollback(cp checkpoint) {
	*e.st = cp.st
	// A rollover may have swapped the head views; re-point before the
	// byte restore so each copy lands in its own region.
	e.settleA = cp.logA
	e.settleB = cp.logB
	copy(e.book.Alloc().Bytes(), cp.orders)
	copy(e.trades.Bytes(), cp.trades)
	copy(e.settleA.Bytes(), cp.settleA)
	copy(e.settleB.Bytes(), cp.settleB)
	e.events = e.events[:cp.events]
}

// ---- arithmetic ----

func pow10(n uint8) uint64 {
	f := uint64(1)
	for i := uint8(0); i < n; i++ {
		f *= 10
	}
	return f
}

// scalePrice converts a market-token quantity at a price into pricing
// tokens: qty * price / 10^mkt_decimals, checked through 128 bits.
func scalePrice(qty, price, factor uint64) (uint64, error) {
	hi, lo := bits.Mul64(qty, price)
	if hi >= factor {
		return 0, fmt.Errorf("%w: %d * %d", ErrOverflow, qty, price)
	}
	q, _ := bits.Div64(hi, lo, factor)
	return q, nil
}

// feeOn computes rate parts-per-10M of base, rounded toward the
// protocol (ceiling).
func feeOn(rate uint32, base uint64) (uint64, error) {
	hi, lo := bits.Mul64(base, uint64(rate))
	if hi >= feeDenom {
		return 0, fmt.Errorf("%w: fee on %d", ErrOverflow, base)
	}
	q, r := bits.Div64(hi, lo, feeDenom)
	if r > 0 {
		q++
	}
	return q, nil
}

// rebateOn computes rate parts-per-10M of base, floored.
func rebateOn(rate uint32, base uint64) (uint64, error) {
	hi, lo := bits.Mul64(base, uint64(rate))
	if hi >= feeDenom {
		return 0, fmt.Errorf("%w: rebate on %d", ErrOverflow, base)
	}
	q, _ := bits.Div64(hi, lo, feeDenom)
	return q, nil
}

func (e *Engine) mktFactor() uint64 { return pow10(e.mkt.MktDecimals) }

func (e *Engine) tickAligned(price uint64) bool {
	return price%pow10(e.mkt.TickDecimals) == 0
}

// ---- settlement heads ----

// active returns the settlement head credits flow into: the head with
// the lower item count, A on a tie.
func (e *Engine) active() (*settle.Log, market.Key) {
	if e.settleB.Items() < e.settleA.Items() {
		return e.settleB, e.st.SettleB
	}
	return e.settleA, e.st.SettleA
}

func (e *Engine) standby() (*settle.Log, market.Key) {
	act, _ := e.active()
	if act == e.settleA {
		return e.settleB, e.st.SettleB
	}
	return e.settleA, e.st.SettleA
}

func (e *Engine) rolloverNeeded() bool {
	act, _ := e.active()
	return act.FreeSlots() < e.limits.RolloverSlots
}

// creditSettlement upserts a maker credit into the active head,
// spilling into the standby head when the active one refuses.
func (e *Engine) creditSettlement(owner market.Key, mktToken bool, amount uint64, now int64) error {
	dMkt, dPrc := uint64(0), uint64(0)
	if mktToken {
		dMkt = amount
	} else {
		dPrc = amount
	}
	act, actKey := e.active()
	logKey := actKey
	if err := act.Credit(owner, dMkt, dPrc, now); err != nil {
		if !errors.Is(err, settle.ErrLogFull) {
			return err
		}
		e.st.LogRollover = true
		sby, sbyKey := e.standby()
		logKey = sbyKey
		if err := sby.Credit(owner, dMkt, dPrc, now); err != nil {
			if errors.Is(err, settle.ErrLogFull) {
				return fmt.Errorf("%w: both settlement heads full", ErrRolloverRequired)
			}
			return err
		}
	}
	if mktToken {
		e.st.MktOrderBalance -= amount
		e.st.MktLogBalance += amount
	} else {
		e.st.PrcOrderBalance -= amount
		e.st.PrcLogBalance += amount
	}
	e.st.LogRollover = e.st.LogRollover || e.rolloverNeeded()
	e.emit(Event{
		Type:      "settle",
		ActionID:  e.st.ActionCounter,
		Owner:     owner,
		Log:       logKey,
		MktTokens: dMkt,
		PrcTokens: dPrc,
	})
	return nil
}
