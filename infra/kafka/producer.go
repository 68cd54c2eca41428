// Package kafka publishes committed operation events, keyed by market
// so per-market ordering survives partitioning.
package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// Producer wraps one topic writer.
type Producer struct {
	writer *kafka.Writer
}

// NewProducer builds a synchronous, all-acks producer.
func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// Send publishes one message.
func (p *Producer) Send(ctx context.Context, key, value []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{Key: key, Value: value})
}

// Close flushes and releases the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
