package service

import (
	"fmt"

	"github.com/atellix/aqua-dex/domain/book"
	"github.com/atellix/aqua-dex/domain/market"
	"github.com/atellix/aqua-dex/domain/tradelog"
)

// Read-only queries. Each takes the market lock briefly and returns
// copies; callers never see live region memory.

// Level is one aggregated price level.
type Level struct {
	Price    uint64 `json:"price"`
	Quantity uint64 `json:"quantity"`
	Orders   uint32 `json:"orders"`
}

// Depth is a point-in-time book summary, best levels first.
type Depth struct {
	Bids      []Level `json:"bids"`
	Asks      []Level `json:"asks"`
	LastPrice uint64  `json:"last_price"`
	Ts        int64   `json:"ts"`
}

// Depth aggregates up to maxLevels price levels per side.
func (s *MarketService) Depth(marketID market.Key, maxLevels int) (Depth, error) {
	h, err := s.handle(marketID)
	if err != nil {
		return Depth{}, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	d := Depth{
		LastPrice: h.st.LastPrice,
		Ts:        h.st.LastTs,
	}
	d.Bids = s.sideLevels(h, market.Bid, maxLevels)
	d.Asks = s.sideLevels(h, market.Ask, maxLevels)
	return d, nil
}

func (s *MarketService) sideLevels(h *marketHandle, side market.Side, maxLevels int) []Level {
	var out []Level
	cur := h.eng.Book().Map(side).Ascend()
	for {
		leaf, ok := cur.Next()
		if !ok {
			break
		}
		price := book.Price(side, leaf.Key)
		ord, err := h.eng.Book().Order(side, leaf.Slot)
		if err != nil {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Price == price {
			out[n-1].Quantity += ord.Quantity
			out[n-1].Orders++
			continue
		}
		if len(out) == maxLevels {
			break
		}
		out = append(out, Level{Price: price, Quantity: ord.Quantity, Orders: 1})
	}
	return out
}

// TradesSince returns trade records with ids greater than since.
func (s *MarketService) TradesSince(marketID market.Key, since uint64) ([]tradelog.Record, error) {
	h, err := s.handle(marketID)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.eng.Trades().ReadSince(since), nil
}

// LogStatus summarizes one settlement log.
func (s *MarketService) LogStatus(marketID, logKey market.Key) (market.LogStatusResult, error) {
	h, err := s.handle(marketID)
	if err != nil {
		return market.LogStatusResult{}, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	buf, ok := h.settles[logKey]
	if !ok {
		return market.LogStatusResult{}, fmt.Errorf("service: unknown settle log %s", logKey)
	}
	return h.eng.LogStatus(buf)
}

// MarketInfo returns copies of a market's records.
func (s *MarketService) MarketInfo(marketID market.Key) (market.Market, market.State, error) {
	h, err := s.handle(marketID)
	if err != nil {
		return market.Market{}, market.State{}, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return *h.mkt, *h.st, nil
}
