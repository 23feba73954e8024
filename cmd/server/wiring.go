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

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/finestafrica/agencyedge/internal/cache"
	"github.com/finestafrica/agencyedge/internal/config"
	"github.com/finestafrica/agencyedge/internal/identity"
	"github.com/finestafrica/agencyedge/internal/observability/logger"
	"github.com/finestafrica/agencyedge/internal/passwordreset"
	"github.com/finestafrica/agencyedge/internal/session"
	"github.com/finestafrica/agencyedge/internal/store/memory"
	"github.com/finestafrica/agencyedge/internal/store/postgres"
	"github.com/finestafrica/agencyedge/internal/tenant"
)

// repositories is the storage backend selected by DB_DRIVER.
type repositories struct {
	tenants  tenant.Repository
	users    identity.UserRepository
	sessions session.Repository
	resets   passwordreset.Repository
	ping     func(context.Context) error
	close    func()
}

func openRepositories(ctx context.Context, cfg *config.Config) (*repositories, error) {
	if cfg.Database.Driver == "memory" {
		slog.Warn("using in-memory store; data is lost on restart")
		st := memory.New()
		return &repositories{
			tenants:  st.Tenants(),
			users:    st.Users(),
			sessions: st.Sessions(),
			resets:   st.ResetTokens(),
			close:    func() {},
		}, nil
	}

	db, err := postgres.New(ctx, postgres.Config{
		DSN:             cfg.Database.DSN(),
		MaxConns:        int32(cfg.Database.MaxOpenConns),
		MinConns:        int32(cfg.Database.MaxIdleConns),
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		QueryTimeout:    cfg.Database.QueryTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	slog.Info("connected to database")

	return &repositories{
		tenants:  postgres.NewTenantRepository(db),
		users:    postgres.NewUserRepository(db),
		sessions: postgres.NewSessionRepository(db),
		resets:   postgres.NewResetTokenRepository(db),
		ping:     db.Ping,
		close:    db.Close,
	}, nil
}

// openCache builds the tenant cache: nothing without REDIS_URL, Redis
// otherwise, fronted by a process-local ristretto tier when CACHE_LOCAL_TTL
// is set. An unreachable Redis is logged and tolerated because every cache
// failure degrades to a store lookup.
func openCache(ctx context.Context, cfg config.RedisConfig) (cache.Client, func(), error) {
	if cfg.URL == "" {
		slog.Info("tenant cache disabled", logger.Component("cache"))
		return cache.Noop{}, func() {}, nil
	}

	remote, err := cache.NewRedis(cache.RedisConfig{
		URL:          cfg.URL,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	}, slog.Default())
	if err != nil {
		return nil, nil, err
	}
	if err := remote.Ping(ctx); err != nil {
		slog.Warn("redis unreachable at startup; serving from the store until it recovers",
			logger.Component("cache"), logger.Error(err))
	}
	closeRemote := func() { _ = remote.Close() }

	if cfg.LocalTTL <= 0 {
		return remote, closeRemote, nil
	}

	local, err := cache.NewLocal(cfg.LocalMaxCost)
	if err != nil {
		closeRemote()
		return nil, nil, err
	}
	return cache.NewTiered(local, remote, cfg.LocalTTL), func() {
		local.Close()
		closeRemote()
	}, nil
}
