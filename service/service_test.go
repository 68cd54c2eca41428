package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atellix/aqua-dex/domain/engine"
	"github.com/atellix/aqua-dex/domain/market"
	"github.com/atellix/aqua-dex/domain/vault"
	"github.com/atellix/aqua-dex/infra/sequence"
	"github.com/atellix/aqua-dex/infra/store"
	"github.com/atellix/aqua-dex/infra/wal"
)

type harness struct {
	svc    *MarketService
	db     *store.Store
	wal    *wal.WAL
	ledger *vault.Ledger
	dir    string
}

func startService(t *testing.T, dir string, ledger *vault.Ledger) *harness {
	t.Helper()
	db, err := store.Open(dir + "/db")
	require.NoError(t, err)
	w, err := wal.Open(wal.Config{
		Dir:             dir + "/wal",
		SegmentSize:     1 << 20,
		SegmentDuration: time.Hour,
	})
	require.NoError(t, err)
	svc, err := New(zap.NewNop(), db, w, sequence.New(0), nil, ledger, Config{
		Caps:   engine.Capacities{MaxOrders: 64, MaxAccounts: 32, MaxTrades: 32},
		Limits: engine.DefaultLimits,
	})
	require.NoError(t, err)
	return &harness{svc: svc, db: db, wal: w, ledger: ledger, dir: dir}
}

func (h *harness) stop(t *testing.T) {
	t.Helper()
	require.NoError(t, h.wal.Close())
	require.NoError(t, h.db.Close())
}

func acct(b byte, tag byte) market.Key {
	var k market.Key
	k[0], k[1] = b, tag
	return k
}

func TestCreateAndTrade(t *testing.T) {
	ledger := vault.NewLedger()
	h := startService(t, t.TempDir(), ledger)
	defer h.stop(t)

	acc, err := h.svc.CreateMarket(market.Config{MinQuantity: 1}, acct(1, 0), acct(2, 0), acct(3, 0))
	require.NoError(t, err)

	maker, taker := acct(0x10, 0), acct(0x20, 0)
	makerPrc, takerMkt, takerPrc := acct(0x10, 2), acct(0x20, 1), acct(0x20, 2)
	makerMkt := acct(0x10, 1)
	ledger.Mint(makerPrc, 10_000)
	ledger.Mint(takerMkt, 100)

	res, err := h.svc.Limit(acc.Market, market.Bid, LimitArgs{
		User: maker, UserMkt: makerMkt, UserPrc: makerPrc,
		Quantity: 10, Price: 50, Post: true,
	})
	require.NoError(t, err)
	require.Equal(t, uint64(500), res.TokensSent)

	res, err = h.svc.Limit(acc.Market, market.Ask, LimitArgs{
		User: taker, UserMkt: takerMkt, UserPrc: takerPrc,
		Quantity: 10, Price: 50,
	})
	require.NoError(t, err)
	require.Equal(t, uint64(500), res.TokensReceived)

	// The maker's market tokens are settled and withdrawable.
	wres, err := h.svc.Withdraw(acc.Market, maker, makerMkt, makerPrc, acc.SettleA)
	require.NoError(t, err)
	require.Equal(t, uint64(10), wres.MktTokens)
	bal, err := ledger.Balance(makerMkt)
	require.NoError(t, err)
	require.Equal(t, uint64(10), bal)

	d, err := h.svc.Depth(acc.Market, 8)
	require.NoError(t, err)
	require.Empty(t, d.Bids)
	require.Empty(t, d.Asks)
	require.Equal(t, uint64(50), d.LastPrice)

	trades, err := h.svc.TradesSince(acc.Market, 0)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	require.Equal(t, uint64(10), trades[0].Amount)
}

func TestJournalReplayRebuildsState(t *testing.T) {
	dir := t.TempDir()
	ledger := vault.NewLedger()
	h := startService(t, dir, ledger)

	acc, err := h.svc.CreateMarket(market.Config{MinQuantity: 1}, acct(1, 0), acct(2, 0), acct(3, 0))
	require.NoError(t, err)
	user, userMkt, userPrc := acct(0x30, 0), acct(0x30, 1), acct(0x30, 2)
	ledger.Mint(userPrc, 10_000)

	res, err := h.svc.Limit(acc.Market, market.Bid, LimitArgs{
		User: user, UserMkt: userMkt, UserPrc: userPrc,
		Quantity: 5, Price: 100, Post: true,
	})
	require.NoError(t, err)

	// No snapshot: everything must come back from the journal. The
	// vault is external state; seed the fresh ledger with the escrow
	// the first run deposited.
	h.stop(t)
	ledger2 := vault.NewLedger()
	ledger2.Mint(acc.PrcVault, 500)
	h2 := startService(t, dir, ledger2)
	defer h2.stop(t)

	mkt, st, err := h2.svc.MarketInfo(acc.Market)
	require.NoError(t, err)
	require.Equal(t, acc.Market, mkt.MarketID)
	require.Equal(t, uint64(1), st.ActionCounter)

	d, err := h2.svc.Depth(acc.Market, 8)
	require.NoError(t, err)
	require.Len(t, d.Bids, 1)
	require.Equal(t, uint64(100), d.Bids[0].Price)
	require.Equal(t, uint64(5), d.Bids[0].Quantity)

	// The replayed order is live: cancel it.
	_, err = h2.svc.Cancel(acc.Market, market.Bid, user, userMkt, userPrc, res.OrderID)
	require.NoError(t, err)
}

func TestSnapshotThenReplayTail(t *testing.T) {
	dir := t.TempDir()
	ledger := vault.NewLedger()
	h := startService(t, dir, ledger)

	acc, err := h.svc.CreateMarket(market.Config{MinQuantity: 1}, acct(1, 0), acct(2, 0), acct(3, 0))
	require.NoError(t, err)
	user, userMkt, userPrc := acct(0x40, 0), acct(0x40, 1), acct(0x40, 2)
	ledger.Mint(userPrc, 100_000)

	_, err = h.svc.Limit(acc.Market, market.Bid, LimitArgs{
		User: user, UserMkt: userMkt, UserPrc: userPrc,
		Quantity: 5, Price: 100, Post: true,
	})
	require.NoError(t, err)
	require.NoError(t, h.svc.Snapshot())

	// One more op after the snapshot lands in the journal tail.
	_, err = h.svc.Limit(acc.Market, market.Bid, LimitArgs{
		User: user, UserMkt: userMkt, UserPrc: userPrc,
		Quantity: 7, Price: 90, Post: true,
	})
	require.NoError(t, err)
	h.stop(t)

	h2 := startService(t, dir, vault.NewLedger())
	defer h2.stop(t)
	d, err := h2.svc.Depth(acc.Market, 8)
	require.NoError(t, err)
	require.Len(t, d.Bids, 2)
	require.Equal(t, uint64(100), d.Bids[0].Price)
	require.Equal(t, uint64(90), d.Bids[1].Price)

	_, st, err := h2.svc.MarketInfo(acc.Market)
	require.NoError(t, err)
	require.Equal(t, uint64(2), st.ActionCounter)
}

func TestPreviewDoesNotJournal(t *testing.T) {
	dir := t.TempDir()
	ledger := vault.NewLedger()
	h := startService(t, dir, ledger)

	acc, err := h.svc.CreateMarket(market.Config{MinQuantity: 1}, acct(1, 0), acct(2, 0), acct(3, 0))
	require.NoError(t, err)
	user, userMkt, userPrc := acct(0x50, 0), acct(0x50, 1), acct(0x50, 2)
	ledger.Mint(userPrc, 10_000)

	_, err = h.svc.Limit(acc.Market, market.Bid, LimitArgs{
		User: user, UserMkt: userMkt, UserPrc: userPrc,
		Quantity: 5, Price: 100, Post: true, Preview: true,
	})
	require.NoError(t, err)
	h.stop(t)

	h2 := startService(t, dir, vault.NewLedger())
	defer h2.stop(t)
	_, st, err := h2.svc.MarketInfo(acc.Market)
	require.NoError(t, err)
	require.Equal(t, uint64(0), st.ActionCounter)
	d, err := h2.svc.Depth(acc.Market, 8)
	require.NoError(t, err)
	require.Empty(t, d.Bids)
}
