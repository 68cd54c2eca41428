package service

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/atellix/aqua-dex/domain/engine"
	"github.com/atellix/aqua-dex/domain/market"
	"github.com/atellix/aqua-dex/domain/settle"
	"github.com/atellix/aqua-dex/infra/obs"
	"github.com/atellix/aqua-dex/infra/wal"
)

// Journal payloads. Every mutating operation records the full inputs,
// including any account ids minted while executing, so replay is a
// pure re-application.

type opCreateMarket struct {
	Cfg market.Config   `json:"cfg"`
	Acc engine.Accounts `json:"acc"`
}

type opLimit struct {
	Market    market.Key  `json:"market"`
	Side      market.Side `json:"side"`
	User      market.Key  `json:"user"`
	UserMkt   market.Key  `json:"user_mkt"`
	UserPrc   market.Key  `json:"user_prc"`
	Quantity  uint64      `json:"quantity"`
	Price     uint64      `json:"price"`
	Post      bool        `json:"post"`
	Fill      bool        `json:"fill"`
	Expires   int64       `json:"expires"`
	Rollover  bool        `json:"rollover"`
	NewLogKey market.Key  `json:"new_log_key"`
}

type opCancel struct {
	Market  market.Key  `json:"market"`
	Side    market.Side `json:"side"`
	User    market.Key  `json:"user"`
	UserMkt market.Key  `json:"user_mkt"`
	UserPrc market.Key  `json:"user_prc"`
	OrderID [16]byte    `json:"order_id"`
}

type opWithdraw struct {
	Market  market.Key `json:"market"`
	User    market.Key `json:"user"`
	UserMkt market.Key `json:"user_mkt"`
	UserPrc market.Key `json:"user_prc"`
	Log     market.Key `json:"log"`
}

type opExpire struct {
	Market  market.Key  `json:"market"`
	Caller  market.Key  `json:"caller"`
	Side    market.Side `json:"side"`
	OrderID [16]byte    `json:"order_id"`
}

type opManagerCancel struct {
	Market    market.Key  `json:"market"`
	Manager   market.Key  `json:"manager"`
	Side      market.Side `json:"side"`
	OrderID   [16]byte    `json:"order_id"`
	Rollover  bool        `json:"rollover"`
	NewLogKey market.Key  `json:"new_log_key"`
}

type opManagerWithdraw struct {
	Market   market.Key `json:"market"`
	Manager  market.Key `json:"manager"`
	Owner    market.Key `json:"owner"`
	OwnerMkt market.Key `json:"owner_mkt"`
	OwnerPrc market.Key `json:"owner_prc"`
	Log      market.Key `json:"log"`
}

type opManagerFees struct {
	Market     market.Key `json:"market"`
	Manager    market.Key `json:"manager"`
	ManagerPrc market.Key `json:"manager_prc"`
}

type opManagerUpdate struct {
	Market  market.Key          `json:"market"`
	Manager market.Key          `json:"manager"`
	Update  engine.MarketUpdate `json:"update"`
}

type opManagerTransfer struct {
	Market   market.Key `json:"market"`
	Manager  market.Key `json:"manager"`
	Withdraw bool       `json:"withdraw"`
	All      bool       `json:"all"`
	Amount   uint64     `json:"amount"`
}

type opExtendLog struct {
	Market    market.Key `json:"market"`
	User      market.Key `json:"user"`
	NewLogKey market.Key `json:"new_log_key"`
}

type opCreateVault struct {
	Market  market.Key `json:"market"`
	Manager market.Key `json:"manager"`
	Owner   market.Key `json:"owner"`
}

type opVaultDeposit struct {
	Market  market.Key `json:"market"`
	Manager market.Key `json:"manager"`
	Owner   market.Key `json:"owner"`
	Log     market.Key `json:"log"`
}

type opVaultWithdraw struct {
	Market   market.Key `json:"market"`
	Actor    market.Key `json:"actor"`
	Owner    market.Key `json:"owner"`
	OwnerMkt market.Key `json:"owner_mkt"`
	OwnerPrc market.Key `json:"owner_prc"`
	Manager  bool       `json:"manager"`
}

// ---- public surface ----

// CreateMarket mints the market's account set, builds its regions and
// registers the handle.
func (s *MarketService) CreateMarket(cfg market.Config, manager, mktMint, prcMint market.Key) (engine.Accounts, error) {
	var acc engine.Accounts
	for _, dst := range []*market.Key{
		&acc.Market, &acc.State, &acc.Orders, &acc.TradeLog,
		&acc.SettleA, &acc.SettleB, &acc.Agent, &acc.MktVault, &acc.PrcVault,
	} {
		k, err := newKey()
		if err != nil {
			return engine.Accounts{}, err
		}
		*dst = k
	}
	acc.Manager = manager
	acc.MktMint = mktMint
	acc.PrcMint = prcMint

	now := s.now()
	op := opCreateMarket{Cfg: cfg, Acc: acc}
	if err := s.applyCreateMarket(op, now); err != nil {
		obs.Ops.WithLabelValues("create_market", "error").Inc()
		return engine.Accounts{}, err
	}
	seq := s.journal(wal.RecordCreateMarket, now, op)
	if h, err := s.handle(acc.Market); err == nil {
		h.mu.Lock()
		h.walSeq = seq
		h.mu.Unlock()
	}
	obs.Ops.WithLabelValues("create_market", "ok").Inc()
	s.log.Info("market created",
		zap.String("market", acc.Market.String()),
		zap.String("manager", manager.String()))
	return acc, nil
}

// LimitArgs is the public limit order surface.
type LimitArgs struct {
	User     market.Key
	UserMkt  market.Key
	UserPrc  market.Key
	Quantity uint64
	Price    uint64
	Post     bool
	Fill     bool
	Expires  int64
	Preview  bool
	Rollover bool
}

// Limit submits a limit order on either side.
func (s *MarketService) Limit(marketID market.Key, side market.Side, a LimitArgs) (market.TradeResult, error) {
	h, err := s.handle(marketID)
	if err != nil {
		return market.TradeResult{}, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	now := s.now()

	op := opLimit{
		Market: marketID, Side: side,
		User: a.User, UserMkt: a.UserMkt, UserPrc: a.UserPrc,
		Quantity: a.Quantity, Price: a.Price,
		Post: a.Post, Fill: a.Fill, Expires: a.Expires,
	}
	if a.Preview {
		return s.applyLimit(h, op, true, now)
	}
	op.Rollover = a.Rollover
	if a.Rollover {
		k, err := newKey()
		if err != nil {
			return market.TradeResult{}, err
		}
		op.NewLogKey = k
	}
	res, err := s.applyLimit(h, op, false, now)
	if err != nil {
		obs.Ops.WithLabelValues("limit", "error").Inc()
		return market.TradeResult{}, err
	}
	h.walSeq = s.journal(wal.RecordLimit, now, op)
	obs.Ops.WithLabelValues("limit", "ok").Inc()
	obs.FeeVolume.Add(float64(res.TokensFee))
	h.dirty = true
	s.publish(h)
	return res, nil
}

// Cancel removes the caller's order and refunds the escrow.
func (s *MarketService) Cancel(marketID market.Key, side market.Side, user, userMkt, userPrc market.Key, orderID [16]byte) (market.WithdrawResult, error) {
	op := opCancel{Market: marketID, Side: side, User: user, UserMkt: userMkt, UserPrc: userPrc, OrderID: orderID}
	var res market.WithdrawResult
	err := s.mutate(marketID, wal.RecordCancel, "cancel", op, func(h *marketHandle, now int64) error {
		var err error
		res, err = s.applyCancel(h, op, now)
		return err
	})
	return res, err
}

// ExpireOrder evicts an expired order on anyone's initiative.
func (s *MarketService) ExpireOrder(marketID market.Key, side market.Side, caller market.Key, orderID [16]byte) (bool, error) {
	op := opExpire{Market: marketID, Caller: caller, Side: side, OrderID: orderID}
	removed := false
	err := s.mutate(marketID, wal.RecordExpire, "expire", op, func(h *marketHandle, now int64) error {
		var err error
		removed, err = h.eng.ExpireOrder(caller, side, orderID, now)
		return err
	})
	return removed, err
}

// Withdraw pays out the caller's settled balances from one log.
func (s *MarketService) Withdraw(marketID market.Key, user, userMkt, userPrc, logKey market.Key) (market.WithdrawResult, error) {
	op := opWithdraw{Market: marketID, User: user, UserMkt: userMkt, UserPrc: userPrc, Log: logKey}
	var res market.WithdrawResult
	err := s.mutate(marketID, wal.RecordWithdraw, "withdraw", op, func(h *marketHandle, now int64) error {
		var err error
		res, err = s.applyWithdraw(h, op, now)
		return err
	})
	return res, err
}

// ManagerWithdraw forces an owner's settlement payout.
func (s *MarketService) ManagerWithdraw(marketID, manager, owner, ownerMkt, ownerPrc, logKey market.Key) (market.WithdrawResult, error) {
	op := opManagerWithdraw{Market: marketID, Manager: manager, Owner: owner, OwnerMkt: ownerMkt, OwnerPrc: ownerPrc, Log: logKey}
	var res market.WithdrawResult
	err := s.mutate(marketID, wal.RecordManagerWithdraw, "manager_withdraw", op, func(h *marketHandle, now int64) error {
		var err error
		res, err = s.applyManagerWithdraw(h, op, now)
		return err
	})
	return res, err
}

// ManagerCancel removes any order, crediting the owner in settlement.
func (s *MarketService) ManagerCancel(marketID, manager market.Key, side market.Side, orderID [16]byte, rollover bool) (market.WithdrawResult, error) {
	op := opManagerCancel{Market: marketID, Manager: manager, Side: side, OrderID: orderID, Rollover: rollover}
	if rollover {
		k, err := newKey()
		if err != nil {
			return market.WithdrawResult{}, err
		}
		op.NewLogKey = k
	}
	var res market.WithdrawResult
	err := s.mutate(marketID, wal.RecordManagerCancel, "manager_cancel", op, func(h *marketHandle, now int64) error {
		var err error
		res, err = s.applyManagerCancel(h, op, now)
		return err
	})
	return res, err
}

// ManagerWithdrawFees drains the accrued protocol fees.
func (s *MarketService) ManagerWithdrawFees(marketID, manager, managerPrc market.Key) (uint64, error) {
	op := opManagerFees{Market: marketID, Manager: manager, ManagerPrc: managerPrc}
	var fees uint64
	err := s.mutate(marketID, wal.RecordManagerFees, "manager_fees", op, func(h *marketHandle, now int64) error {
		var err error
		fees, err = h.eng.ManagerWithdrawFees(manager, managerPrc, now)
		return err
	})
	return fees, err
}

// ManagerUpdateMarket rewrites the adjustable market parameters.
func (s *MarketService) ManagerUpdateMarket(marketID, manager market.Key, upd engine.MarketUpdate) error {
	op := opManagerUpdate{Market: marketID, Manager: manager, Update: upd}
	return s.mutate(marketID, wal.RecordManagerUpdate, "manager_update", op, func(h *marketHandle, now int64) error {
		return h.eng.ManagerUpdateMarket(manager, upd)
	})
}

// ManagerTransferSol adjusts the settlement-log deposit ledger.
func (s *MarketService) ManagerTransferSol(marketID, manager market.Key, withdraw, all bool, amount uint64) (uint64, error) {
	op := opManagerTransfer{Market: marketID, Manager: manager, Withdraw: withdraw, All: all, Amount: amount}
	var moved uint64
	err := s.mutate(marketID, wal.RecordManagerTransfer, "manager_transfer", op, func(h *marketHandle, now int64) error {
		var err error
		moved, err = h.eng.ManagerTransferSol(manager, withdraw, all, amount)
		return err
	})
	return moved, err
}

// ExtendLog rolls the settlement chain over outside a trade.
func (s *MarketService) ExtendLog(marketID, user market.Key) (market.Key, error) {
	k, err := newKey()
	if err != nil {
		return market.ZeroKey, err
	}
	op := opExtendLog{Market: marketID, User: user, NewLogKey: k}
	err = s.mutate(marketID, wal.RecordExtendLog, "extend_log", op, func(h *marketHandle, now int64) error {
		return s.applyExtendLog(h, op)
	})
	if err != nil {
		return market.ZeroKey, err
	}
	return k, nil
}

// CreateVault initializes a per-user vault record.
func (s *MarketService) CreateVault(marketID, manager, owner market.Key) error {
	op := opCreateVault{Market: marketID, Manager: manager, Owner: owner}
	return s.mutate(marketID, wal.RecordCreateVault, "create_vault", op, func(h *marketHandle, now int64) error {
		return s.applyCreateVault(h, op)
	})
}

// VaultDeposit migrates an owner's settled balance into their vault.
func (s *MarketService) VaultDeposit(marketID, manager, owner, logKey market.Key) error {
	op := opVaultDeposit{Market: marketID, Manager: manager, Owner: owner, Log: logKey}
	return s.mutate(marketID, wal.RecordVaultDeposit, "vault_deposit", op, func(h *marketHandle, now int64) error {
		return s.applyVaultDeposit(h, op, now)
	})
}

// VaultWithdraw drains a user vault to its owner (or, with asManager,
// on the owner's behalf).
func (s *MarketService) VaultWithdraw(marketID, actor, owner, ownerMkt, ownerPrc market.Key, asManager bool) (market.WithdrawResult, error) {
	op := opVaultWithdraw{Market: marketID, Actor: actor, Owner: owner, OwnerMkt: ownerMkt, OwnerPrc: ownerPrc, Manager: asManager}
	var res market.WithdrawResult
	err := s.mutate(marketID, wal.RecordVaultWithdraw, "vault_withdraw", op, func(h *marketHandle, now int64) error {
		var err error
		res, err = s.applyVaultWithdraw(h, op, now)
		return err
	})
	return res, err
}

// ---- apply layer (shared with journal replay) ----

func (s *MarketService) applyCreateMarket(op opCreateMarket, now int64) error {
	mkt, st, reg, err := engine.CreateMarket(op.Cfg, op.Acc, s.cfg.Caps, now)
	if err != nil {
		return err
	}
	h := &marketHandle{
		mkt:    mkt,
		st:     st,
		orders: reg.Orders,
		trades: reg.Trades,
		settles: map[market.Key][]byte{
			op.Acc.SettleA: reg.SettleA,
			op.Acc.SettleB: reg.SettleB,
		},
		vaults: make(map[market.Key]*market.UserVault),
		dirty:  true,
	}
	if err := h.rebuildEngine(s.vlt, s.cfg); err != nil {
		return err
	}
	s.mu.Lock()
	s.markets[op.Acc.Market] = h
	s.mu.Unlock()
	return nil
}

func (s *MarketService) applyLimit(h *marketHandle, op opLimit, preview bool, now int64) (market.TradeResult, error) {
	p := engine.LimitParams{
		Quantity: op.Quantity,
		Price:    op.Price,
		Post:     op.Post,
		Fill:     op.Fill,
		Expires:  op.Expires,
		Preview:  preview,
		Rollover: op.Rollover,
	}
	var newLog []byte
	if op.Rollover && !preview {
		newLog = make([]byte, settle.RegionSize(s.cfg.Caps.MaxAccounts))
		p.NewLogKey = op.NewLogKey
		p.NewLog = newLog
	}
	u := engine.OrderUser{User: op.User, MktToken: op.UserMkt, PrcToken: op.UserPrc}
	var res market.TradeResult
	var err error
	tradesBefore := h.eng.Trades().Count()
	if op.Side == market.Bid {
		res, err = h.eng.LimitBid(u, p, now)
	} else {
		res, err = h.eng.LimitAsk(u, p, now)
	}
	if err != nil {
		return market.TradeResult{}, err
	}
	if op.Rollover && !preview {
		h.settles[op.NewLogKey] = newLog
	}
	if !preview {
		obs.Fills.WithLabelValues(op.Side.String()).Add(float64(h.eng.Trades().Count() - tradesBefore))
	}
	return res, nil
}

func (s *MarketService) applyCancel(h *marketHandle, op opCancel, now int64) (market.WithdrawResult, error) {
	u := engine.OrderUser{User: op.User, MktToken: op.UserMkt, PrcToken: op.UserPrc}
	return h.eng.Cancel(u, op.Side, op.OrderID, now)
}

func (s *MarketService) applyWithdraw(h *marketHandle, op opWithdraw, now int64) (market.WithdrawResult, error) {
	log, prev, next, err := s.logRefs(h, op.Log)
	if err != nil {
		return market.WithdrawResult{}, err
	}
	u := engine.OrderUser{User: op.User, MktToken: op.UserMkt, PrcToken: op.UserPrc}
	res, closed, err := h.eng.Withdraw(u, log, prev, next, now)
	if err != nil {
		return market.WithdrawResult{}, err
	}
	if closed {
		delete(h.settles, op.Log)
	}
	return res, nil
}

func (s *MarketService) applyManagerWithdraw(h *marketHandle, op opManagerWithdraw, now int64) (market.WithdrawResult, error) {
	log, prev, next, err := s.logRefs(h, op.Log)
	if err != nil {
		return market.WithdrawResult{}, err
	}
	res, closed, err := h.eng.ManagerWithdraw(op.Manager, op.Owner, op.OwnerMkt, op.OwnerPrc, log, prev, next, now)
	if err != nil {
		return market.WithdrawResult{}, err
	}
	if closed {
		delete(h.settles, op.Log)
	}
	return res, nil
}

func (s *MarketService) applyManagerCancel(h *marketHandle, op opManagerCancel, now int64) (market.WithdrawResult, error) {
	var newLog []byte
	if op.Rollover {
		newLog = make([]byte, settle.RegionSize(s.cfg.Caps.MaxAccounts))
	}
	res, err := h.eng.ManagerCancel(op.Manager, op.Side, op.OrderID, op.Rollover, op.NewLogKey, newLog, now)
	if err != nil {
		return market.WithdrawResult{}, err
	}
	if op.Rollover {
		h.settles[op.NewLogKey] = newLog
	}
	return res, nil
}

func (s *MarketService) applyExtendLog(h *marketHandle, op opExtendLog) error {
	newLog := make([]byte, settle.RegionSize(s.cfg.Caps.MaxAccounts))
	if err := h.eng.ExtendLog(op.User, op.NewLogKey, newLog); err != nil {
		return err
	}
	h.settles[op.NewLogKey] = newLog
	return nil
}

func (s *MarketService) applyCreateVault(h *marketHandle, op opCreateVault) error {
	uv, ok := h.vaults[op.Owner]
	if !ok {
		uv = &market.UserVault{}
		h.vaults[op.Owner] = uv
	}
	return h.eng.CreateVault(op.Manager, op.Owner, uv)
}

func (s *MarketService) applyVaultDeposit(h *marketHandle, op opVaultDeposit, now int64) error {
	uv, ok := h.vaults[op.Owner]
	if !ok {
		return engine.ErrAccountNotFound
	}
	log, prev, next, err := s.logRefs(h, op.Log)
	if err != nil {
		return err
	}
	return h.eng.VaultDeposit(op.Manager, op.Owner, uv, log, prev, next, now)
}

func (s *MarketService) applyVaultWithdraw(h *marketHandle, op opVaultWithdraw, now int64) (market.WithdrawResult, error) {
	uv, ok := h.vaults[op.Owner]
	if !ok {
		return market.WithdrawResult{}, engine.ErrAccountNotFound
	}
	u := engine.OrderUser{User: op.Owner, MktToken: op.OwnerMkt, PrcToken: op.OwnerPrc}
	if op.Manager {
		return h.eng.ManagerVaultWithdraw(op.Actor, u, uv, now)
	}
	if op.Actor != op.Owner {
		return market.WithdrawResult{}, engine.ErrNotAuthorized
	}
	return h.eng.VaultWithdraw(u, uv, now)
}

// logRefs resolves a settlement log and its chain neighbours from the
// handle's region set.
func (s *MarketService) logRefs(h *marketHandle, logKey market.Key) (engine.LogRef, engine.LogRef, engine.LogRef, error) {
	buf, ok := h.settles[logKey]
	if !ok {
		return engine.LogRef{}, engine.LogRef{}, engine.LogRef{}, fmt.Errorf("service: unknown settle log %s", logKey)
	}
	sl, err := settle.Attach(buf, s.cfg.Caps.MaxAccounts)
	if err != nil {
		return engine.LogRef{}, engine.LogRef{}, engine.LogRef{}, err
	}
	log := engine.LogRef{Key: logKey, Buf: buf}
	prev := engine.LogRef{Key: sl.Prev(), Buf: h.settles[sl.Prev()]}
	next := engine.LogRef{Key: sl.Next(), Buf: h.settles[sl.Next()]}
	return log, prev, next, nil
}

// ---- shared mutate path ----

func (s *MarketService) mutate(marketID market.Key, rec wal.RecordType, opName string, payload any, fn func(h *marketHandle, now int64) error) error {
	h, err := s.handle(marketID)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	now := s.now()
	if err := fn(h, now); err != nil {
		obs.Ops.WithLabelValues(opName, "error").Inc()
		return err
	}
	h.walSeq = s.journal(rec, now, payload)
	obs.Ops.WithLabelValues(opName, "ok").Inc()
	h.dirty = true
	s.publish(h)
	return nil
}
