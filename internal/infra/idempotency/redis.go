package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "idempotency:reservation:"

// RedisStore ключи идемпотентности в Redis (SET NX + TTL)
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore создает хранилище. ttl <= 0 заменяется на DefaultTTL
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) key(k string) string {
	return keyPrefix + k
}

func (s *RedisStore) Reserve(ctx context.Context, key string) (*Result, error) {
	k := s.key(key)
	processing, err := json.Marshal(state{Status: statusProcessing})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal state: %v", ErrStore, err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		_, err := s.client.SetArgs(ctx, k, processing, redis.SetArgs{Mode: "NX", TTL: s.ttl}).Result()
		if err == nil {
			return nil, nil
		}
		if !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: redis set: %v", ErrStore, err)
		}

		// Ключ уже есть, смотрим его состояние
		data, err := s.client.Get(ctx, k).Bytes()
		if errors.Is(err, redis.Nil) {
			// Ключ успел истечь или освободиться между SET и GET
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: redis get: %v", ErrStore, err)
		}

		var st state
		if err := json.Unmarshal(data, &st); err != nil {
			return nil, fmt.Errorf("%w: unmarshal state: %v", ErrStore, err)
		}

		switch st.Status {
		case statusSuccess:
			return &Result{ReservationID: st.ReservationID}, nil
		case statusProcessing:
			return nil, ErrRequestInProgress
		default:
			// Неизвестное состояние считаем мусором
			if err := s.client.Del(ctx, k).Err(); err != nil {
				return nil, fmt.Errorf("%w: redis del: %v", ErrStore, err)
			}
		}
	}
}

func (s *RedisStore) MarkSuccess(ctx context.Context, key string, reservationID int64) error {
	raw, err := json.Marshal(state{Status: statusSuccess, ReservationID: reservationID})
	if err != nil {
		return fmt.Errorf("%w: marshal state: %v", ErrStore, err)
	}
	if err := s.client.Set(ctx, s.key(key), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis set: %v", ErrStore, err)
	}
	return nil
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: redis del: %v", ErrStore, err)
	}
	return nil
}
