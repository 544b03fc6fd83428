package circuit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	circuitKeyPrefix = "circuit:"
	maxTxRetries     = 16
)

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// RedisStore shares breaker state between processes. Updates run inside a
// WATCH/MULTI transaction and are retried when another writer wins the race.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithStateTTL expires idle breaker state. Zero keeps it forever.
func WithStateTTL(ttl time.Duration) RedisStoreOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

func NewRedisStore(client *redis.Client, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{client: client}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *RedisStore) Load(ctx context.Context, name string) (Snapshot, error) {
	return s.get(ctx, s.client, circuitKeyPrefix+name)
}

func (s *RedisStore) Update(ctx context.Context, name string, fn func(*Snapshot) error) (Snapshot, error) {
	key := circuitKeyPrefix + name
	var result Snapshot

	txf := func(tx *redis.Tx) error {
		snap, err := s.get(ctx, tx, key)
		if err != nil {
			return err
		}
		if err := fn(&snap); err != nil {
			return err
		}
		payload, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("marshal circuit snapshot: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		result = snap
		return nil
	}

	for range maxTxRetries {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return Snapshot{}, err
	}
	return Snapshot{}, fmt.Errorf("update circuit %s: %w", name, redis.TxFailedErr)
}

func (s *RedisStore) get(ctx context.Context, c getter, key string) (Snapshot, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load circuit snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode circuit snapshot: %w", err)
	}
	return snap, nil
}
