package service

import (
	"encoding/hex"

	"github.com/atellix/aqua-dex/domain/engine"
	"github.com/atellix/aqua-dex/domain/market"
)

// eventEnvelope is the JSON envelope published to kafka for every
// committed engine event.
type eventEnvelope struct {
	Type      string     `json:"type"`
	ActionID  uint64     `json:"action_id"`
	Market    market.Key `json:"market"`
	User      market.Key `json:"user,omitempty"`
	Owner     market.Key `json:"owner,omitempty"`
	Log       market.Key `json:"log,omitempty"`
	Side      string     `json:"side,omitempty"`
	OrderID   string     `json:"order_id,omitempty"`
	Price     uint64     `json:"price,omitempty"`
	Quantity  uint64     `json:"quantity,omitempty"`
	MktTokens uint64     `json:"mkt_tokens,omitempty"`
	PrcTokens uint64     `json:"prc_tokens,omitempty"`
	Ts        int64      `json:"ts"`
}

func wireEvent(ev engine.Event) eventEnvelope {
	return eventEnvelope{
		Type:      ev.Type,
		ActionID:  ev.ActionID,
		Market:    ev.Market,
		User:      ev.User,
		Owner:     ev.Owner,
		Log:       ev.Log,
		Side:      ev.Side.String(),
		OrderID:   hex.EncodeToString(ev.OrderID[:]),
		Price:     ev.Price,
		Quantity:  ev.Quantity,
		MktTokens: ev.MktTokens,
		PrcTokens: ev.PrcTokens,
		Ts:        ev.Ts,
	}
}
