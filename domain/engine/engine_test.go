package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atellix/aqua-dex/domain/market"
	"github.com/atellix/aqua-dex/domain/settle"
	"github.com/atellix/aqua-dex/domain/slab"
	"github.com/atellix/aqua-dex/domain/vault"
)

type trader struct {
	id  market.Key
	mkt market.Key
	prc market.Key
}

func newTrader(b byte) trader {
	var t trader
	t.id[0] = b
	t.mkt[0], t.mkt[1] = b, 1
	t.prc[0], t.prc[1] = b, 2
	return t
}

func (tr trader) user() OrderUser {
	return OrderUser{User: tr.id, MktToken: tr.mkt, PrcToken: tr.prc}
}

type fixture struct {
	t      *testing.T
	eng    *Engine
	ledger *vault.Ledger
	acc    Accounts
	reg    *Regions
}

func keyOf(b byte) market.Key {
	var k market.Key
	k[31] = b
	return k
}

func setup(t *testing.T, cfg market.Config, caps Capacities, limits Limits) *fixture {
	t.Helper()
	acc := Accounts{
		Market: keyOf(1), State: keyOf(2), Orders: keyOf(3), TradeLog: keyOf(4),
		SettleA: keyOf(5), SettleB: keyOf(6), Agent: keyOf(7), Manager: keyOf(8),
		MktMint: keyOf(9), MktVault: keyOf(10), PrcMint: keyOf(11), PrcVault: keyOf(12),
	}
	mkt, st, reg, err := CreateMarket(cfg, acc, caps, 1000)
	require.NoError(t, err)
	ledger := vault.NewLedger()
	eng, err := New(mkt, st, reg.Orders, reg.Trades, reg.SettleA, reg.SettleB, ledger, caps, limits)
	require.NoError(t, err)
	return &fixture{t: t, eng: eng, ledger: ledger, acc: acc, reg: reg}
}

func (f *fixture) fund(tr trader, mktTokens, prcTokens uint64) {
	if mktTokens > 0 {
		f.ledger.Mint(tr.mkt, mktTokens)
	}
	if prcTokens > 0 {
		f.ledger.Mint(tr.prc, prcTokens)
	}
}

func (f *fixture) balance(acct market.Key) uint64 {
	b, err := f.ledger.Balance(acct)
	if err != nil {
		return 0
	}
	return b
}

func defaultCaps() Capacities {
	return Capacities{MaxOrders: 64, MaxAccounts: 32, MaxTrades: 32}
}

func plainConfig() market.Config {
	return market.Config{MktDecimals: 0, MinQuantity: 1}
}

// Scenario 1: single post, no match.
func TestSinglePostNoMatch(t *testing.T) {
	cfg := market.Config{
		MktDecimals:  9,
		PrcDecimals:  6,
		TickDecimals: 3,
		TakerFee:     3600,
		MakerRebate:  2500,
		MinQuantity:  1,
	}
	f := setup(t, cfg, defaultCaps(), DefaultLimits)
	alice := newTrader(0x10)
	f.fund(alice, 0, 20_000_000)

	res, err := f.eng.LimitBid(alice.user(), LimitParams{
		Quantity: 1_000_000_000,
		Price:    15_000_000,
		Post:     true,
	}, 2000)
	require.NoError(t, err)
	require.Equal(t, uint64(15_000_000), res.TokensSent)
	require.Equal(t, uint64(0), res.TokensReceived)
	require.Equal(t, uint64(1_000_000_000), res.PostedQuantity)

	best, ok := f.eng.Book().Best(market.Bid)
	require.True(t, ok)
	require.Equal(t, market.Key(best.Owner), alice.id)
	require.Equal(t, uint64(15_000_000), f.balance(f.eng.Market().PrcVault))
	require.Equal(t, uint64(5_000_000), f.balance(alice.prc))
}

// Scenario 2: exact cross with fee and rebate.
func TestExactCross(t *testing.T) {
	cfg := market.Config{
		MktDecimals:  9,
		PrcDecimals:  6,
		TickDecimals: 3,
		TakerFee:     3600,
		MakerRebate:  2500,
		MinQuantity:  1,
	}
	f := setup(t, cfg, defaultCaps(), DefaultLimits)
	alice := newTrader(0x10)
	bob := newTrader(0x20)
	f.fund(alice, 0, 15_000_000)
	f.fund(bob, 1_000_000_000, 0)

	_, err := f.eng.LimitBid(alice.user(), LimitParams{
		Quantity: 1_000_000_000, Price: 15_000_000, Post: true,
	}, 2000)
	require.NoError(t, err)

	res, err := f.eng.LimitAsk(bob.user(), LimitParams{
		Quantity: 1_000_000_000, Price: 15_000_000, Fill: true,
	}, 2001)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000_000_000), res.TokensSent)
	require.Equal(t, uint64(5400), res.TokensFee)
	// Pricing leg: 15_000_000 - 5400 + 3750.
	require.Equal(t, uint64(14_998_350), res.TokensReceived)
	require.Equal(t, uint64(14_998_350), f.balance(bob.prc))
	require.Equal(t, uint64(1650), f.eng.State().PrcFeesBalance)

	// The maker's market tokens sit in settlement.
	entry, ok, err := f.eng.SettleBalance(f.reg.SettleA, alice.id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1_000_000_000), entry.MktBalance)

	// Bid leaf removed.
	_, ok = f.eng.Book().Best(market.Bid)
	require.False(t, ok)
	require.Equal(t, uint64(1), f.eng.Trades().Count())
}

// Scenario 3: partial fill leaves the maker resident.
func TestPartialFill(t *testing.T) {
	f := setup(t, plainConfig(), defaultCaps(), DefaultLimits)
	seller := newTrader(0x30)
	buyer := newTrader(0x40)
	f.fund(seller, 10, 0)
	f.fund(buyer, 0, 1000)

	_, err := f.eng.LimitAsk(seller.user(), LimitParams{Quantity: 10, Price: 100, Post: true}, 10)
	require.NoError(t, err)

	res, err := f.eng.LimitBid(buyer.user(), LimitParams{Quantity: 4, Price: 150}, 11)
	require.NoError(t, err)
	require.Equal(t, uint64(4), res.TokensReceived)
	require.Equal(t, uint64(400), res.TokensSent)

	leaf, ok := f.eng.Book().Best(market.Ask)
	require.True(t, ok)
	ord, err := f.eng.Book().Order(market.Ask, leaf.Slot)
	require.NoError(t, err)
	require.Equal(t, uint64(6), ord.Quantity)

	recs := f.eng.Trades().ReadSince(0)
	require.Len(t, recs, 1)
	require.Equal(t, uint64(4), recs[0].Amount)
	require.Equal(t, uint64(100), recs[0].Price)
	require.False(t, recs[0].MakerFilled)
}

// Scenario 4: settlement rollover.
func TestRollover(t *testing.T) {
	cfg := plainConfig()
	cfg.ManagerActions = true
	caps := Capacities{MaxOrders: 64, MaxAccounts: 4, MaxTrades: 32}
	limits := Limits{RolloverSlots: 2, MaxEvictions: 10, MaxExpirations: 10}
	f := setup(t, cfg, caps, limits)

	// Credits alternate between the heads (the emptier one is active),
	// so six parked owners bring both heads to three entries.
	for i := byte(0); i < 6; i++ {
		tr := newTrader(0x50 + i)
		f.fund(tr, 0, 1000)
		res, err := f.eng.LimitBid(tr.user(), LimitParams{Quantity: 5, Price: 100, Post: true}, 100)
		require.NoError(t, err)
		_, err = f.eng.ManagerCancel(f.acc.Manager, market.Bid, res.OrderID, false, market.ZeroKey, nil, 101)
		require.NoError(t, err)
	}
	require.Equal(t, uint32(3), mustAttach(t, f.reg.SettleA, caps.MaxAccounts).Items())
	require.Equal(t, uint32(3), mustAttach(t, f.reg.SettleB, caps.MaxAccounts).Items())

	taker := newTrader(0x60)
	f.fund(taker, 0, 1000)

	// Needed but not provided.
	_, err := f.eng.LimitBid(taker.user(), LimitParams{Quantity: 5, Price: 100, Post: true}, 102)
	require.ErrorIs(t, err, ErrRolloverRequired)

	// Provided and needed: the fresh log becomes the active head.
	newKey := keyOf(0x77)
	newLog := make([]byte, settle.RegionSize(caps.MaxAccounts))
	_, err = f.eng.LimitBid(taker.user(), LimitParams{
		Quantity: 5, Price: 100, Post: true,
		Rollover: true, NewLogKey: newKey, NewLog: newLog,
	}, 103)
	require.NoError(t, err)
	require.Equal(t, newKey, f.eng.State().SettleA)
	require.Equal(t, f.acc.SettleA, f.eng.State().SettleB)

	nl := mustAttach(t, newLog, caps.MaxAccounts)
	require.Equal(t, f.acc.SettleA, nl.Next())
	require.Equal(t, newKey, mustAttach(t, f.reg.SettleA, caps.MaxAccounts).Prev())

	// Provided but no longer needed.
	other := newTrader(0x61)
	f.fund(other, 0, 1000)
	_, err = f.eng.LimitBid(other.user(), LimitParams{
		Quantity: 5, Price: 99, Post: true,
		Rollover: true, NewLogKey: keyOf(0x78),
		NewLog: make([]byte, settle.RegionSize(caps.MaxAccounts)),
	}, 104)
	require.ErrorIs(t, err, ErrRolloverNotNeeded)
}

func mustAttach(t *testing.T, buf []byte, maxAccounts uint32) *settle.Log {
	t.Helper()
	l, err := settle.Attach(buf, maxAccounts)
	require.NoError(t, err)
	return l
}

// Scenario 5: expired maker is evicted silently during the walk.
func TestExpiredMakerEviction(t *testing.T) {
	cfg := plainConfig()
	cfg.ExpireEnable = true
	cfg.ExpireMin = 5
	f := setup(t, cfg, defaultCaps(), DefaultLimits)
	maker := newTrader(0x70)
	taker := newTrader(0x71)
	f.fund(maker, 0, 10_000)
	f.fund(taker, 50, 0)

	t0 := int64(1000)
	_, err := f.eng.LimitBid(maker.user(), LimitParams{
		Quantity: 10, Price: 100, Post: true, Expires: t0 + 10,
	}, t0)
	require.NoError(t, err)

	res, err := f.eng.LimitAsk(taker.user(), LimitParams{
		Quantity: 10, Price: 90, Post: true,
	}, t0+20)
	require.NoError(t, err)
	require.Equal(t, uint64(0), res.TokensReceived)
	require.Equal(t, uint64(10), res.PostedQuantity)

	// Bid gone, ask resident at 90.
	_, ok := f.eng.Book().Best(market.Bid)
	require.False(t, ok)
	best, ok := f.eng.Book().Best(market.Ask)
	require.True(t, ok)
	require.Equal(t, market.Key(best.Owner), taker.id)

	// Maker escrow moved to settlement, not consumed.
	entry, ok, err := f.eng.SettleBalance(f.reg.SettleA, maker.id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1000), entry.PrcBalance)
	require.Equal(t, uint64(0), f.eng.Trades().Count())
}

// Scenario 6: price-time priority across equal-priced makers.
func TestPriceTimePriority(t *testing.T) {
	f := setup(t, plainConfig(), defaultCaps(), DefaultLimits)
	makers := []trader{newTrader(0x81), newTrader(0x82), newTrader(0x83)}
	for _, m := range makers {
		f.fund(m, 10, 0)
		_, err := f.eng.LimitAsk(m.user(), LimitParams{Quantity: 10, Price: 100, Post: true}, 10)
		require.NoError(t, err)
	}
	taker := newTrader(0x90)
	f.fund(taker, 0, 10_000)
	_, err := f.eng.LimitBid(taker.user(), LimitParams{Quantity: 30, Price: 100}, 20)
	require.NoError(t, err)

	recs := f.eng.Trades().ReadSince(0)
	require.Len(t, recs, 3)
	for i, m := range makers {
		require.Equal(t, m.id, recs[i].Maker)
		require.True(t, recs[i].MakerFilled)
	}
	// Sequence bits rise across same-price fills.
	s1 := slab.Key128FromBytes(recs[0].MakerOrderID).Lo
	s2 := slab.Key128FromBytes(recs[1].MakerOrderID).Lo
	s3 := slab.Key128FromBytes(recs[2].MakerOrderID).Lo
	require.Less(t, s1, s2)
	require.Less(t, s2, s3)
}

// P5/P6: cancel refunds the exact escrow and leaves no trace.
func TestCancelRoundTrip(t *testing.T) {
	f := setup(t, plainConfig(), defaultCaps(), DefaultLimits)
	alice := newTrader(0xA0)
	f.fund(alice, 0, 5000)

	res, err := f.eng.LimitBid(alice.user(), LimitParams{Quantity: 7, Price: 300, Post: true}, 50)
	require.NoError(t, err)
	require.Equal(t, uint64(2100), res.TokensSent)
	require.Equal(t, uint64(2900), f.balance(alice.prc))

	wres, err := f.eng.Cancel(alice.user(), market.Bid, res.OrderID, 51)
	require.NoError(t, err)
	require.Equal(t, uint64(2100), wres.PrcTokens)
	require.Equal(t, uint64(5000), f.balance(alice.prc))
	require.Equal(t, uint64(0), f.eng.Book().Count(market.Bid))

	_, err = f.eng.Cancel(alice.user(), market.Bid, res.OrderID, 52)
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestCancelNotOwner(t *testing.T) {
	f := setup(t, plainConfig(), defaultCaps(), DefaultLimits)
	alice := newTrader(0xA1)
	mallory := newTrader(0xA2)
	f.fund(alice, 0, 5000)

	res, err := f.eng.LimitBid(alice.user(), LimitParams{Quantity: 5, Price: 100, Post: true}, 50)
	require.NoError(t, err)
	_, err = f.eng.Cancel(mallory.user(), market.Bid, res.OrderID, 51)
	require.ErrorIs(t, err, ErrNotOwner)
}

// P7: preview and the identical live call agree.
func TestPreviewLaw(t *testing.T) {
	cfg := plainConfig()
	cfg.TakerFee = 100_000
	cfg.MakerRebate = 50_000
	f := setup(t, cfg, defaultCaps(), DefaultLimits)
	m1 := newTrader(0xB1)
	m2 := newTrader(0xB2)
	taker := newTrader(0xB3)
	f.fund(m1, 5, 0)
	f.fund(m2, 7, 0)
	f.fund(taker, 0, 10_000)

	_, err := f.eng.LimitAsk(m1.user(), LimitParams{Quantity: 5, Price: 100, Post: true}, 10)
	require.NoError(t, err)
	_, err = f.eng.LimitAsk(m2.user(), LimitParams{Quantity: 7, Price: 110, Post: true}, 11)
	require.NoError(t, err)

	params := LimitParams{Quantity: 10, Price: 120, Post: true}
	params.Preview = true
	preview, err := f.eng.LimitBid(taker.user(), params, 20)
	require.NoError(t, err)

	// Preview touched nothing.
	require.Equal(t, uint64(2), f.eng.Book().Count(market.Ask))
	require.Equal(t, uint64(0), f.eng.Trades().Count())

	params.Preview = false
	live, err := f.eng.LimitBid(taker.user(), params, 20)
	require.NoError(t, err)
	require.Equal(t, preview, live)
}

func TestValidationErrors(t *testing.T) {
	cfg := market.Config{MktDecimals: 0, MinQuantity: 10, TickDecimals: 2}
	f := setup(t, cfg, defaultCaps(), DefaultLimits)
	u := newTrader(0xC0)
	f.fund(u, 1000, 100_000)

	_, err := f.eng.LimitBid(u.user(), LimitParams{Quantity: 0, Price: 100}, 1)
	require.ErrorIs(t, err, ErrBadQty)

	_, err = f.eng.LimitBid(u.user(), LimitParams{Quantity: 10, Price: 0}, 1)
	require.ErrorIs(t, err, ErrBadPrice)

	_, err = f.eng.LimitBid(u.user(), LimitParams{Quantity: 5, Price: 100, Post: true}, 1)
	require.ErrorIs(t, err, ErrBelowMin)

	_, err = f.eng.LimitBid(u.user(), LimitParams{Quantity: 10, Price: 150, Post: true}, 1)
	require.ErrorIs(t, err, ErrBadTick)

	_, err = f.eng.LimitBid(u.user(), LimitParams{Quantity: 10, Price: 100, Post: true, Fill: true}, 1)
	require.ErrorIs(t, err, ErrInvalid)

	// Nothing above touched the book.
	require.Equal(t, uint64(0), f.eng.Book().Count(market.Bid))
	require.Equal(t, uint64(0), f.eng.State().ActionCounter)
}

func TestNotFilledRevertsEverything(t *testing.T) {
	f := setup(t, plainConfig(), defaultCaps(), DefaultLimits)
	seller := newTrader(0xD0)
	buyer := newTrader(0xD1)
	f.fund(seller, 4, 0)
	f.fund(buyer, 0, 10_000)

	_, err := f.eng.LimitAsk(seller.user(), LimitParams{Quantity: 4, Price: 100, Post: true}, 10)
	require.NoError(t, err)

	_, err = f.eng.LimitBid(buyer.user(), LimitParams{Quantity: 10, Price: 100, Fill: true}, 11)
	require.ErrorIs(t, err, ErrNotFilled)

	// The partial fill rolled back: maker untouched, no trades, no
	// settlement credit, no token movement.
	leaf, ok := f.eng.Book().Best(market.Ask)
	require.True(t, ok)
	ord, err := f.eng.Book().Order(market.Ask, leaf.Slot)
	require.NoError(t, err)
	require.Equal(t, uint64(4), ord.Quantity)
	require.Equal(t, uint64(0), f.eng.Trades().Count())
	require.Equal(t, uint64(10_000), f.balance(buyer.prc))
	_, ok, err = f.eng.SettleBalance(f.reg.SettleA, seller.id)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSelfTradeSkipped(t *testing.T) {
	f := setup(t, plainConfig(), defaultCaps(), DefaultLimits)
	u := newTrader(0xE0)
	f.fund(u, 10, 10_000)

	_, err := f.eng.LimitAsk(u.user(), LimitParams{Quantity: 10, Price: 100, Post: true}, 10)
	require.NoError(t, err)
	res, err := f.eng.LimitBid(u.user(), LimitParams{Quantity: 5, Price: 100}, 11)
	require.NoError(t, err)
	require.Equal(t, uint64(0), res.TokensReceived)
	require.Equal(t, uint64(0), f.eng.Trades().Count())
}

func TestWithdrawSettledBalance(t *testing.T) {
	f := setup(t, plainConfig(), defaultCaps(), DefaultLimits)
	maker := newTrader(0xF0)
	taker := newTrader(0xF1)
	f.fund(maker, 0, 1000)
	f.fund(taker, 10, 0)

	_, err := f.eng.LimitBid(maker.user(), LimitParams{Quantity: 10, Price: 50, Post: true}, 10)
	require.NoError(t, err)
	_, err = f.eng.LimitAsk(taker.user(), LimitParams{Quantity: 10, Price: 50}, 11)
	require.NoError(t, err)

	log := LogRef{Key: f.acc.SettleA, Buf: f.reg.SettleA}
	res, closed, err := f.eng.Withdraw(maker.user(), log, LogRef{}, LogRef{}, 12)
	require.NoError(t, err)
	require.False(t, closed)
	require.Equal(t, uint64(10), res.MktTokens)
	require.Equal(t, uint64(10), f.balance(maker.mkt))

	_, _, err = f.eng.Withdraw(maker.user(), log, LogRef{}, LogRef{}, 13)
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestManagerFeeWithdrawal(t *testing.T) {
	cfg := plainConfig()
	cfg.TakerFee = 1_000_000 // 10%
	f := setup(t, cfg, defaultCaps(), DefaultLimits)
	maker := newTrader(0xF5)
	taker := newTrader(0xF6)
	f.fund(maker, 0, 1000)
	f.fund(taker, 10, 0)

	_, err := f.eng.LimitBid(maker.user(), LimitParams{Quantity: 10, Price: 50, Post: true}, 10)
	require.NoError(t, err)
	_, err = f.eng.LimitAsk(taker.user(), LimitParams{Quantity: 10, Price: 50}, 11)
	require.NoError(t, err)
	require.Equal(t, uint64(50), f.eng.State().PrcFeesBalance)

	var managerPrc market.Key
	managerPrc[0] = 0xFF
	fees, err := f.eng.ManagerWithdrawFees(f.acc.Manager, managerPrc, 12)
	require.NoError(t, err)
	require.Equal(t, uint64(50), fees)
	require.Equal(t, uint64(50), f.balance(managerPrc))
	require.Equal(t, uint64(0), f.eng.State().PrcFeesBalance)

	_, err = f.eng.ManagerWithdrawFees(newTrader(0x01).id, managerPrc, 13)
	require.ErrorIs(t, err, ErrNotAuthorized)
}

func TestExplicitExpire(t *testing.T) {
	cfg := plainConfig()
	cfg.ExpireEnable = true
	cfg.ExpireMin = 1
	f := setup(t, cfg, defaultCaps(), DefaultLimits)
	u := newTrader(0xF8)
	f.fund(u, 10, 0)

	res, err := f.eng.LimitAsk(u.user(), LimitParams{Quantity: 10, Price: 100, Post: true, Expires: 200}, 100)
	require.NoError(t, err)

	removed, err := f.eng.ExpireOrder(newTrader(0xF9).id, market.Ask, res.OrderID, 150)
	require.NoError(t, err)
	require.False(t, removed)

	removed, err = f.eng.ExpireOrder(newTrader(0xF9).id, market.Ask, res.OrderID, 250)
	require.NoError(t, err)
	require.True(t, removed)

	entry, ok, err := f.eng.SettleBalance(f.reg.SettleA, u.id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(10), entry.MktBalance)
}

// P1 over a mixed sequence: the pricing vault holds exactly the
// resting bid escrow plus settled balances plus accrued fees.
func TestConservation(t *testing.T) {
	cfg := plainConfig()
	cfg.TakerFee = 250_000
	cfg.MakerRebate = 100_000
	f := setup(t, cfg, defaultCaps(), DefaultLimits)

	makers := []trader{newTrader(1), newTrader(2), newTrader(3)}
	for i, m := range makers {
		f.fund(m, 0, 100_000)
		_, err := f.eng.LimitBid(m.user(), LimitParams{Quantity: 10, Price: uint64(100 + 10*i), Post: true}, 10)
		require.NoError(t, err)
	}
	taker := newTrader(9)
	f.fund(taker, 25, 0)
	_, err := f.eng.LimitAsk(taker.user(), LimitParams{Quantity: 25, Price: 90}, 11)
	require.NoError(t, err)

	st := f.eng.State()
	vaultBal := f.balance(f.eng.Market().PrcVault)
	require.Equal(t, st.PrcVaultBalance, vaultBal)
	require.Equal(t, vaultBal, st.PrcOrderBalance+st.PrcLogBalance+st.PrcFeesBalance)
}
