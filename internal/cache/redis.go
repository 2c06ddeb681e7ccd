// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/1001011000101101/lers-plugins-sub000/internal/metrics"
)

const redisKeyPrefix = "lersproxy:templates:"

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// redisStore shares the template cache between gateway replicas. Entries are
// stored without expiry to match the memory backend's no-TTL contract.
type redisStore struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewRedisStore connects to Redis and returns a shared template cache.
func NewRedisStore(cfg RedisConfig, logger zerolog.Logger) (Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info().
		Str("addr", cfg.Addr).
		Int("db", cfg.DB).
		Msg("connected to Redis template cache")
	return &redisStore{client: client, logger: logger}, nil
}

func (s *redisStore) Get(ctx context.Context, scope Scope) (Entry, bool) {
	val, err := s.client.Get(ctx, redisKeyPrefix+scope.Key()).Bytes()
	if err == redis.Nil {
		metrics.TemplateCache.WithLabelValues("miss").Inc()
		return Entry{}, false
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("scope", scope.Key()).Msg("redis get failed")
		metrics.TemplateCache.WithLabelValues("miss").Inc()
		return Entry{}, false
	}

	var e Entry
	if err := json.Unmarshal(val, &e); err != nil {
		s.logger.Warn().Err(err).Str("scope", scope.Key()).Msg("corrupt cache entry, dropping")
		s.client.Del(ctx, redisKeyPrefix+scope.Key())
		metrics.TemplateCache.WithLabelValues("miss").Inc()
		return Entry{}, false
	}
	if e.Status == StatusError {
		metrics.TemplateCache.WithLabelValues("miss").Inc()
		return Entry{}, false
	}
	metrics.TemplateCache.WithLabelValues("hit").Inc()
	return e, true
}

func (s *redisStore) Set(ctx context.Context, scope Scope, entry Entry) {
	data, err := json.Marshal(entry)
	if err != nil {
		s.logger.Warn().Err(err).Str("scope", scope.Key()).Msg("json marshal failed")
		return
	}
	if err := s.client.Set(ctx, redisKeyPrefix+scope.Key(), data, 0).Err(); err != nil {
		s.logger.Warn().Err(err).Str("scope", scope.Key()).Msg("redis set failed")
	}
}

func (s *redisStore) Invalidate(ctx context.Context, scope Scope) {
	if err := s.client.Del(ctx, redisKeyPrefix+scope.Key()).Err(); err != nil {
		s.logger.Warn().Err(err).Str("scope", scope.Key()).Msg("redis delete failed")
	}
}

func (s *redisStore) InvalidateAll(ctx context.Context) {
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			s.logger.Warn().Err(err).Str("key", iter.Val()).Msg("redis delete failed")
		}
	}
	if err := iter.Err(); err != nil {
		s.logger.Warn().Err(err).Msg("redis scan failed during bulk invalidation")
	}
}

// Ping verifies the Redis connection, for readiness checks.
func (s *redisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *redisStore) Close() error {
	return s.client.Close()
}
