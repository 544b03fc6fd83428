// Package kafka holds the franz-go clients behind the activity Kafka lane.
package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

const MaxBufferedRecords = 10000

// Producer publishes records either synchronously (Produce) or buffered
// (TryProduce).
type Producer struct {
	client *kgo.Client
}

func NewProducer(brokers []string, opts ...kgo.Opt) (*Producer, error) {
	base := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(5 * time.Millisecond),
		kgo.RecordDeliveryTimeout(5 * time.Second),
		kgo.MaxBufferedRecords(MaxBufferedRecords),
	}
	client, err := kgo.NewClient(append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return &Producer{client: client}, nil
}

// Produce writes one record and waits for the broker acknowledgement.
func (p *Producer) Produce(ctx context.Context, topic string, key, value []byte) error {
	rec := &kgo.Record{Topic: topic, Key: key, Value: value}
	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", topic, err)
	}
	return nil
}

// TryProduce buffers one record without waiting for the broker. done
// reports the delivery outcome, kgo.ErrMaxBuffered when the buffer is full.
func (p *Producer) TryProduce(ctx context.Context, topic string, key, value []byte, done func(error)) {
	rec := &kgo.Record{Topic: topic, Key: key, Value: value}
	p.client.TryProduce(ctx, rec, func(_ *kgo.Record, err error) {
		if done != nil {
			done(err)
		}
	})
}

// Buffered is the number of records waiting for acknowledgement.
func (p *Producer) Buffered() int64 {
	return p.client.BufferedProduceRecords()
}

// Client exposes the underlying client for admin operations.
func (p *Producer) Client() *kgo.Client {
	return p.client
}

// Close flushes buffered records for up to five seconds, then closes.
func (p *Producer) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = p.client.Flush(ctx)
	p.client.Close()
}
