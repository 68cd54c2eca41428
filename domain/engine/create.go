package engine

import (
	"fmt"

	"github.com/atellix/aqua-dex/domain/book"
	"github.com/atellix/aqua-dex/domain/market"
	"github.com/atellix/aqua-dex/domain/settle"
	"github.com/atellix/aqua-dex/domain/slab"
	"github.com/atellix/aqua-dex/domain/tradelog"
)

// Accounts names the host accounts a new market binds together.
type Accounts struct {
	Market   market.Key
	State    market.Key
	Orders   market.Key
	TradeLog market.Key
	SettleA  market.Key
	SettleB  market.Key
	Agent    market.Key
	Manager  market.Key
	MktMint  market.Key
	MktVault market.Key
	PrcMint  market.Key
	PrcVault market.Key
}

// Regions carries the freshly formatted byte regions of a market.
type Regions struct {
	Orders  []byte
	Trades  []byte
	SettleA []byte
	SettleB []byte
}

// OrdersRegionSize returns the byte length of an orderbook region.
func OrdersRegionSize(maxOrders uint32) int {
	return slab.RegionSize(book.Pages(maxOrders))
}

// TradesRegionSize returns the byte length of a trade log region.
func TradesRegionSize(maxTrades uint32) int {
	return slab.RegionSize(tradelog.Pages(maxTrades))
}

// CreateMarket validates the envelope, builds the immutable market
// record and the zero state, and formats all four regions. The market
// is immutable afterwards except through the manager surface.
func CreateMarket(cfg market.Config, acc Accounts, caps Capacities, now int64) (*market.Market, *market.State, *Regions, error) {
	if cfg.ExpireEnable && cfg.ExpireMin < 1 {
		return nil, nil, nil, fmt.Errorf("%w: expire_min %d", ErrInvalid, cfg.ExpireMin)
	}
	if cfg.MakerRebate > cfg.TakerFee {
		return nil, nil, nil, fmt.Errorf("%w: maker_rebate %d exceeds taker_fee %d",
			ErrInvalid, cfg.MakerRebate, cfg.TakerFee)
	}
	if cfg.MktMintType > uint8(market.MintSecurityToken) ||
		cfg.PrcMintType > uint8(market.MintSecurityToken) {
		return nil, nil, nil, fmt.Errorf("%w: mint type", ErrInvalid)
	}
	if cfg.MktMintType == uint8(market.MintSecurityToken) &&
		cfg.PrcMintType == uint8(market.MintSecurityToken) {
		// At least one leg must be a plain token, as in the original.
		return nil, nil, nil, fmt.Errorf("%w: both mints are security tokens", ErrInvalid)
	}
	if caps.MaxOrders == 0 || caps.MaxAccounts == 0 || caps.MaxTrades == 0 {
		return nil, nil, nil, fmt.Errorf("%w: zero capacity", ErrInvalid)
	}

	mkt := &market.Market{
		Active:          true,
		ManagerWithdraw: cfg.ManagerActions,
		ManagerCancel:   cfg.ManagerActions,
		ExpireEnable:    cfg.ExpireEnable,
		ExpireMin:       cfg.ExpireMin,
		MinQuantity:     cfg.MinQuantity,
		TickDecimals:    cfg.TickDecimals,
		TakerFee:        cfg.TakerFee,
		MakerRebate:     cfg.MakerRebate,
		LogFee:          cfg.LogFee,
		LogRebate:       cfg.LogRebate,
		LogReimburse:    cfg.LogReimburse,
		MarketID:        acc.Market,
		StateID:         acc.State,
		TradeLogID:      acc.TradeLog,
		OrdersID:        acc.Orders,
		Settle0:         acc.SettleA,
		Agent:           acc.Agent,
		AgentNonce:      cfg.AgentNonce,
		Manager:         acc.Manager,
		MktMint:         acc.MktMint,
		MktVault:        acc.MktVault,
		MktNonce:        cfg.MktVaultNonce,
		MktDecimals:     cfg.MktDecimals,
		MktMintType:     market.MintType(cfg.MktMintType),
		PrcMint:         acc.PrcMint,
		PrcVault:        acc.PrcVault,
		PrcNonce:        cfg.PrcVaultNonce,
		PrcDecimals:     cfg.PrcDecimals,
		PrcMintType:     market.MintType(cfg.PrcMintType),
	}

	st := &market.State{
		SettleA: acc.SettleA,
		SettleB: acc.SettleB,
		LastTs:  now,
	}

	reg := &Regions{
		Orders:  make([]byte, OrdersRegionSize(caps.MaxOrders)),
		Trades:  make([]byte, TradesRegionSize(caps.MaxTrades)),
		SettleA: make([]byte, settle.RegionSize(caps.MaxAccounts)),
		SettleB: make([]byte, settle.RegionSize(caps.MaxAccounts)),
	}
	if _, err := book.Format(reg.Orders, caps.MaxOrders); err != nil {
		return nil, nil, nil, err
	}
	if _, err := tradelog.Format(reg.Trades, caps.MaxTrades); err != nil {
		return nil, nil, nil, err
	}
	if _, err := settle.Format(reg.SettleA, acc.Market, market.ZeroKey, acc.SettleB, caps.MaxAccounts); err != nil {
		return nil, nil, nil, err
	}
	if _, err := settle.Format(reg.SettleB, acc.Market, acc.SettleA, market.ZeroKey, caps.MaxAccounts); err != nil {
		return nil, nil, nil, err
	}
	return mkt, st, reg, nil
}
