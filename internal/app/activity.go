// Package app holds the wiring shared by the server and worker binaries.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"vowly/internal/activity"
	activitymetrics "vowly/internal/activity/metrics"
	"vowly/internal/activity/pipeline"
	"vowly/internal/activity/store/memory"
	pgstore "vowly/internal/activity/store/postgres"
	"vowly/internal/platform/config"
	"vowly/internal/platform/kafka"
	"vowly/internal/platform/postgres"
	"vowly/internal/platform/redis"
	"vowly/pkg/platform/circuit"
)

// BreakerName keys the shared breaker state. Every process guarding the
// activity sink uses the same name so they trip together.
const BreakerName = "activity_log"

// NewBreaker builds the activity breaker. State lives in Redis when a
// client is given, otherwise in process memory.
func NewBreaker(cfg config.Breaker, rc *redis.Client, logger *slog.Logger, m *activitymetrics.Metrics) *circuit.Breaker {
	var store circuit.Store = circuit.NewMemoryStore()
	if rc != nil {
		store = circuit.NewRedisStore(rc.Client)
	}
	m.SetBreakerState(string(circuit.StateClosed))
	return circuit.New(BreakerName,
		circuit.WithFailureThreshold(cfg.FailureThreshold),
		circuit.WithCooldown(cfg.Cooldown),
		circuit.WithMaxCooldown(cfg.MaxCooldown),
		circuit.WithBackoff(cfg.Backoff),
		circuit.WithStore(store),
		circuit.WithLogger(logger),
		circuit.WithStateChangeHook(func(_ string, _, to circuit.State) {
			m.SetBreakerState(string(to))
		}),
	)
}

// OpenStore opens the Postgres activity store, or an in-memory one when
// DATABASE_URL is unset. The returned *sql.DB is nil for the memory store.
func OpenStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (activity.Store, *sql.DB, error) {
	if cfg.DatabaseURL == "" {
		if cfg.IsProduction() {
			return nil, nil, fmt.Errorf("DATABASE_URL is required in production")
		}
		logger.WarnContext(ctx, "DATABASE_URL not set, activity log kept in memory")
		return memory.New(), nil, nil
	}
	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	store := pgstore.New(db)
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return store, db, nil
}

// NewWorker applies the configured retry policy.
func NewWorker(cfg config.Activity, store activity.Store, gate pipeline.Gate, logger *slog.Logger, m *activitymetrics.Metrics) *pipeline.Worker {
	return pipeline.NewWorker(store,
		pipeline.WithMaxAttempts(cfg.MaxAttempts),
		pipeline.WithAttemptTimeout(cfg.AttemptTimeout),
		pipeline.WithWorkerGate(gate),
		pipeline.WithWorkerLogger(logger),
		pipeline.WithWorkerMetrics(m),
	)
}

// ActivityTopic is the topic the Kafka lane writes and the worker reads.
// Keys are subject references, so partitions keep each subject in order.
func ActivityTopic(cfg config.KafkaConfig) kafka.TopicSpec {
	return kafka.TopicSpec{
		Name:              cfg.Topic,
		Partitions:        6,
		ReplicationFactor: 1,
		RetentionMs:       "604800000",
	}
}
