// Copyright 2026 The Agency Edge Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/finestafrica/agencyedge/internal/observability/logger"
)

// RedisConfig holds the remote cache connection settings.
type RedisConfig struct {
	URL          string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
}

// Redis is a Client backed by a Redis server.
type Redis struct {
	client *redis.Client
	log    *slog.Logger
}

// NewRedis parses cfg.URL and builds a client. It does not contact the
// server; an unreachable server only degrades lookups to misses.
func NewRedis(cfg RedisConfig, log *slog.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	// a cache miss is cheaper than a retry storm against a dead server
	opts.MaxRetries = 0

	if log == nil {
		log = slog.Default()
	}
	return &Redis{
		client: redis.NewClient(opts),
		log:    log.With(logger.Component("cache.redis")),
	}, nil
}

// Ping checks connectivity. Callers use it for startup diagnostics only.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Get implements Client.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.WarnContext(ctx, "cache get failed", logger.CacheKey(key), logger.Error(err))
		}
		return nil, false
	}
	return val, true
}

// Set implements Client. A non-positive ttl stores the value without expiry.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool {
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		r.log.WarnContext(ctx, "cache set failed", logger.CacheKey(key), logger.Error(err))
		return false
	}
	return true
}

// Delete implements Client.
func (r *Redis) Delete(ctx context.Context, key string) bool {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.log.WarnContext(ctx, "cache delete failed", logger.CacheKey(key), logger.Error(err))
		return false
	}
	return true
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
