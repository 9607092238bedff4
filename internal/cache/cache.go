// Package cache provides the tiered cache every TTL-scoped piece of state
// runs through: Redis when configured and reachable, an in-process map
// otherwise. Backend selection happens once at construction; a Redis that is
// down at startup is not retried for the lifetime of the process.
package cache

import (
	"context"
	"errors"
	"time"

	"acu-chatbot/internal/common/logger"
	"acu-chatbot/internal/common/metrics"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL is used when callers pass ttl<=0. Zero never means "forever":
// the in-process map would otherwise grow without bound.
const DefaultTTL = 24 * time.Hour

// Store is the uniform get/set/delete contract. All implementations are
// best-effort: a backend failure is a miss or a no-op, never an error the
// caller has to handle.
type Store interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
	Delete(ctx context.Context, key string)
	// GetDel atomically reads and removes a key. Single-use state such as
	// pending confirmations depends on this being one operation.
	GetDel(ctx context.Context, key string) (string, bool)
}

// New resolves the backend once. A nil client or a failed ping selects the
// in-process store for the remainder of the process lifetime.
func New(client *redis.Client, log logger.Logger) Store {
	if client == nil {
		log.Info("cache: no redis configured, using in-process store", nil)
		return NewMemory()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("cache: redis unreachable, falling back to in-process store for process lifetime",
			map[string]interface{}{"error": err.Error()})
		return NewMemory()
	}

	log.Info("cache: redis backend selected", nil)
	return &redisStore{client: client, log: log}
}

// ==========================
// Redis backend
// ==========================

type redisStore struct {
	client *redis.Client
	log    logger.Logger
}

func (s *redisStore) Get(ctx context.Context, key string) (string, bool) {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn("cache: redis get failed", map[string]interface{}{"key": key, "error": err.Error()})
		}
		metrics.CacheOperations.WithLabelValues("redis", "get", "miss").Inc()
		return "", false
	}
	metrics.CacheOperations.WithLabelValues("redis", "get", "hit").Inc()
	return val, true
}

func (s *redisStore) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		s.log.Warn("cache: redis set failed", map[string]interface{}{"key": key, "error": err.Error()})
		metrics.CacheOperations.WithLabelValues("redis", "set", "error").Inc()
		return
	}
	metrics.CacheOperations.WithLabelValues("redis", "set", "ok").Inc()
}

func (s *redisStore) Delete(ctx context.Context, key string) {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		s.log.Warn("cache: redis del failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}

func (s *redisStore) GetDel(ctx context.Context, key string) (string, bool) {
	val, err := s.client.GetDel(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn("cache: redis getdel failed", map[string]interface{}{"key": key, "error": err.Error()})
		}
		return "", false
	}
	return val, true
}
