package sink

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaSink delivers records to a Kafka topic, one message per event.
type KafkaSink struct {
	writer *kafka.Writer
}

// NewKafkaSink returns a sink with synchronous writes and
// single-message batches so delivery acknowledgements map one-to-one
// onto ingested events.
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			Async:        false,
			BatchTimeout: 250 * time.Millisecond,
			BatchSize:    1,
		},
	}
}

// Deliver writes one message and waits for the broker ack.
func (s *KafkaSink) Deliver(ctx context.Context, rec Record) error {
	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   rec.Key,
		Value: rec.Data,
	})
}

// Close flushes and closes the underlying writer.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
