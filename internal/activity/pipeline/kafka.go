package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"vowly/internal/activity"
	"vowly/internal/activity/metrics"
	"vowly/internal/platform/kafka/consumer"
	"vowly/pkg/requestcontext"
)

// RecordProducer is the buffered producer behind KafkaLane.
// *kafka.Producer satisfies it.
type RecordProducer interface {
	TryProduce(ctx context.Context, topic string, key, value []byte, done func(error))
	Buffered() int64
}

// KafkaLane publishes records to a topic keyed by subject, so one subject's
// history stays on one partition. Delivery happens in the background.
type KafkaLane struct {
	producer    RecordProducer
	topic       string
	maxBuffered int64
	gate        Gate
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

type KafkaLaneOption func(*KafkaLane)

// WithDeliveryGate reports failed background deliveries to the breaker.
func WithDeliveryGate(gate Gate) KafkaLaneOption {
	return func(l *KafkaLane) {
		if gate != nil {
			l.gate = gate
		}
	}
}

func WithKafkaLogger(logger *slog.Logger) KafkaLaneOption {
	return func(l *KafkaLane) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func WithKafkaMetrics(m *metrics.Metrics) KafkaLaneOption {
	return func(l *KafkaLane) {
		l.metrics = m
	}
}

func NewKafkaLane(producer RecordProducer, topic string, maxBuffered int64, opts ...KafkaLaneOption) *KafkaLane {
	l := &KafkaLane{
		producer:    producer,
		topic:       topic,
		maxBuffered: maxBuffered,
		gate:        openGate{},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *KafkaLane) Enqueue(ctx context.Context, rec activity.Record) error {
	if l.maxBuffered > 0 && l.producer.Buffered() >= l.maxBuffered {
		return ErrLaneFull
	}
	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode activity record: %w", err)
	}
	// The request may finish before the broker acknowledges.
	ctx = requestcontext.Detach(ctx)
	l.producer.TryProduce(ctx, l.topic, []byte(rec.Subject().String()), value, func(err error) {
		if err == nil {
			return
		}
		l.gate.RecordFailure(ctx)
		l.metrics.IncDropped(metrics.ReasonEnqueue)
		l.logger.WarnContext(ctx, "activity delivery to kafka failed",
			"activity_id", rec.ID,
			"topic", l.topic,
			"error", err,
		)
	})
	return nil
}

// KafkaHandler feeds consumed activity records to a Worker.
type KafkaHandler struct {
	worker *Worker
	logger *slog.Logger
}

var _ consumer.Handler = (*KafkaHandler)(nil)

func NewKafkaHandler(worker *Worker, logger *slog.Logger) *KafkaHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaHandler{worker: worker, logger: logger}
}

// Handle never asks for redelivery: undecodable payloads are skipped and
// persistence failures were already retried by the worker.
func (h *KafkaHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	var rec activity.Record
	if err := json.Unmarshal(msg.Value, &rec); err != nil {
		h.logger.WarnContext(ctx, "skipping undecodable activity message",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
		return nil
	}
	if rec.ID == "" {
		h.logger.WarnContext(ctx, "skipping activity message without id",
			"topic", msg.Topic,
			"offset", msg.Offset,
		)
		return nil
	}
	_ = h.worker.Handle(ctx, rec)
	return nil
}
