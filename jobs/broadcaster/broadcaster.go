// Package broadcaster tails every market's trade log ring and
// republishes new fills to kafka on an interval. The ring itself is
// the durable buffer: a broadcaster restart just re-reads from its
// cursor, and records older than the ring are simply gone.
package broadcaster

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/atellix/aqua-dex/domain/market"
	"github.com/atellix/aqua-dex/domain/tradelog"
	"github.com/atellix/aqua-dex/service"
)

// Broadcaster publishes trade records via a sarama sync producer.
type Broadcaster struct {
	svc      *service.MarketService
	producer sarama.SyncProducer
	topic    string
	interval time.Duration
	log      *zap.Logger

	cursors map[market.Key]uint64
}

// New connects the producer.
func New(svc *service.MarketService, brokers []string, topic string, interval time.Duration, log *zap.Logger) (*Broadcaster, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return &Broadcaster{
		svc:      svc,
		producer: producer,
		topic:    topic,
		interval: interval,
		log:      log,
		cursors:  make(map[market.Key]uint64),
	}, nil
}

// Run ticks until ctx is done.
func (b *Broadcaster) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.sweep()
		}
	}
}

// sweep publishes every market's unseen trades. A failed send leaves
// the cursor alone, so the record is retried next tick.
func (b *Broadcaster) sweep() {
	for _, id := range b.svc.Markets() {
		recs, err := b.svc.TradesSince(id, b.cursors[id])
		if err != nil {
			b.log.Warn("trade read failed", zap.Error(err), zap.String("market", id.String()))
			continue
		}
		for _, rec := range recs {
			if err := b.send(id, rec); err != nil {
				b.log.Warn("trade publish failed",
					zap.Error(err),
					zap.String("market", id.String()),
					zap.Uint64("trade", rec.TradeID))
				break
			}
			b.cursors[id] = rec.TradeID
		}
	}
}

type wireTrade struct {
	Market      market.Key `json:"market"`
	ActionID    uint64     `json:"action_id"`
	TradeID     uint64     `json:"trade_id"`
	MakerFilled bool       `json:"maker_filled"`
	Maker       market.Key `json:"maker"`
	Taker       market.Key `json:"taker"`
	TakerSide   string     `json:"taker_side"`
	Amount      uint64     `json:"amount"`
	Price       uint64     `json:"price"`
	Ts          int64      `json:"ts"`
}

func (b *Broadcaster) send(id market.Key, rec tradelog.Record) error {
	payload, err := json.Marshal(wireTrade{
		Market:      id,
		ActionID:    rec.ActionID,
		TradeID:     rec.TradeID,
		MakerFilled: rec.MakerFilled,
		Maker:       rec.Maker,
		Taker:       rec.Taker,
		TakerSide:   rec.TakerSide.String(),
		Amount:      rec.Amount,
		Price:       rec.Price,
		Ts:          rec.Ts,
	})
	if err != nil {
		return err
	}
	_, _, err = b.producer.SendMessage(&sarama.ProducerMessage{
		Topic: b.topic,
		Key:   sarama.ByteEncoder(id[:]),
		Value: sarama.ByteEncoder(payload),
	})
	return err
}

// Close releases the producer.
func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
