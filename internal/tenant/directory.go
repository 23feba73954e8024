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

package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/finestafrica/agencyedge/internal/cache"
	"github.com/finestafrica/agencyedge/internal/observability/logger"
	"github.com/finestafrica/agencyedge/internal/observability/metrics"
	"github.com/finestafrica/agencyedge/internal/observability/tracing"
)

// DefaultCacheTTL bounds how stale a cached tenant may be.
const DefaultCacheTTL = time.Hour

// Directory resolves subdomains to tenants through a read-through cache.
// It is the only writer of tenant cache entries.
type Directory struct {
	repo    Repository
	cache   cache.Client
	ttl     time.Duration
	log     *slog.Logger
	metrics *metrics.Instruments
}

// DirectoryOption configures a Directory.
type DirectoryOption func(*Directory)

// WithLogger sets the directory logger.
func WithLogger(l *slog.Logger) DirectoryOption {
	return func(d *Directory) { d.log = l }
}

// WithInstruments records cache and resolution metrics.
func WithInstruments(m *metrics.Instruments) DirectoryOption {
	return func(d *Directory) { d.metrics = m }
}

// NewDirectory creates a directory. A nil cache behaves as an empty one.
func NewDirectory(repo Repository, c cache.Client, ttl time.Duration, opts ...DirectoryOption) *Directory {
	if c == nil {
		c = cache.Noop{}
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	d := &Directory{repo: repo, cache: c, ttl: ttl, log: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.With(logger.Component("tenant.directory"))
	return d
}

// Resolve returns the tenant for subdomain. Misses are not cached, so a
// tenant created after a failed lookup is visible on the next request.
// ErrTenantNotFound is returned when no tenant exists; any other error is a
// store failure.
func (d *Directory) Resolve(ctx context.Context, subdomain string) (*Tenant, error) {
	ctx, span := tracing.Start(ctx, "tenant.Directory.Resolve")
	start := time.Now()

	t, err := d.resolve(ctx, NormalizeSubdomain(subdomain))

	outcome := "found"
	switch {
	case errors.Is(err, ErrTenantNotFound):
		outcome = "not_found"
	case err != nil:
		outcome = "error"
	}
	d.metrics.TenantResolved(ctx, outcome, float64(time.Since(start).Microseconds())/1000)
	tracing.EndWithError(span, err)
	return t, err
}

func (d *Directory) resolve(ctx context.Context, subdomain string) (*Tenant, error) {
	if subdomain == "" {
		return nil, ErrTenantNotFound
	}
	key := CacheKey(subdomain)

	if raw, ok := d.cache.Get(ctx, key); ok {
		var t Tenant
		if err := json.Unmarshal(raw, &t); err == nil && t.Subdomain == subdomain {
			d.metrics.CacheLookup(ctx, true)
			return &t, nil
		}
		d.log.WarnContext(ctx, "discarding corrupt tenant cache entry", logger.CacheKey(key))
		d.cache.Delete(ctx, key)
	}
	d.metrics.CacheLookup(ctx, false)

	t, err := d.repo.GetBySubdomain(ctx, subdomain)
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			return nil, ErrTenantNotFound
		}
		d.log.ErrorContext(ctx, "tenant lookup failed",
			logger.Subdomain(subdomain),
			logger.Operation("resolve"),
			logger.Error(err),
		)
		return nil, fmt.Errorf("failed to resolve tenant: %w", err)
	}

	d.Remember(ctx, t)
	return t, nil
}

// Remember writes t into the cache. Callers that mutate a tenant use it to
// publish the new state.
func (d *Directory) Remember(ctx context.Context, t *Tenant) {
	raw, err := json.Marshal(t)
	if err != nil {
		d.log.WarnContext(ctx, "failed to encode tenant for cache", logger.TenantID(t.ID), logger.Error(err))
		return
	}
	d.cache.Set(ctx, CacheKey(t.Subdomain), raw, d.ttl)
}

// Invalidate drops the cached entry for subdomain.
func (d *Directory) Invalidate(ctx context.Context, subdomain string) {
	d.cache.Delete(ctx, CacheKey(subdomain))
}

// CheckAvailability reports whether subdomain is free. It always reads the
// store since a stale cache answer could admit a duplicate.
func (d *Directory) CheckAvailability(ctx context.Context, subdomain string) (bool, error) {
	exists, err := d.repo.SubdomainExists(ctx, NormalizeSubdomain(subdomain))
	if err != nil {
		return false, fmt.Errorf("failed to check subdomain availability: %w", err)
	}
	return !exists, nil
}
