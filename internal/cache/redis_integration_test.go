//go:build integration

package cache_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/finestafrica/agencyedge/internal/cache"
	"github.com/finestafrica/agencyedge/internal/tenant"
)

// redisURL starts a disposable Redis container unless REDIS_URL points at
// an existing server.
func redisURL(t *testing.T) string {
	t.Helper()
	if url := os.Getenv("REDIS_URL"); url != "" {
		return url
	}

	ctx := context.Background()
	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(ctr) })

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)
	return fmt.Sprintf("redis://%s:%s/0", host, port.Port())
}

// TestPurpose: Validates GET, SET EX and DEL against a real Redis server.
// Scope: Integration Test
// Security: Cache entries expire (bounded staleness)
// Expected: A tenant round-trips byte for byte, carries the requested TTL and is gone after Delete.
// Test Case ID: CACHE-INT-01
func TestRedis_RoundTrip(t *testing.T) {
	url := redisURL(t)
	ctx := context.Background()

	r, err := cache.NewRedis(cache.RedisConfig{URL: url, DialTimeout: 2 * time.Second}, nil)
	require.NoError(t, err)
	defer r.Close()
	require.NoError(t, r.Ping(ctx))

	logo := "https://cdn.example/wanderlust.png"
	in := &tenant.Tenant{
		ID:             "0192f3c4-0000-7000-8000-000000000001",
		Name:           "Wanderlust Safaris",
		Subdomain:      "wanderlust",
		ContactEmail:   "ops@wanderlust.example",
		LogoURL:        &logo,
		PrimaryColor:   "#1A4D2E",
		SecondaryColor: "#F5EFE6",
		CreatedAt:      time.Date(2026, 5, 10, 9, 0, 0, 123000, time.UTC),
	}
	payload, err := json.Marshal(in)
	require.NoError(t, err)
	key := tenant.CacheKey(in.Subdomain)
	r.Delete(ctx, key)

	_, ok := r.Get(ctx, key)
	assert.False(t, ok)

	require.True(t, r.Set(ctx, key, payload, time.Hour))

	got, ok := r.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, payload, got)

	var out tenant.Tenant
	require.NoError(t, json.Unmarshal(got, &out))
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.Subdomain, out.Subdomain)
	require.NotNil(t, out.LogoURL)
	assert.Equal(t, logo, *out.LogoURL)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))

	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	raw := redis.NewClient(opts)
	defer raw.Close()
	ttl, err := raw.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)
	assert.LessOrEqual(t, ttl, time.Hour)

	assert.True(t, r.Delete(ctx, key))
	_, ok = r.Get(ctx, key)
	assert.False(t, ok)
}

// TestPurpose: Validates that the tenant directory resolves through a real Redis cache.
// Scope: Integration Test
// Expected: The first resolve fills tenant:<subdomain>; a second resolve is served from Redis.
// Test Case ID: CACHE-INT-02
func TestRedis_DirectoryReadThrough(t *testing.T) {
	url := redisURL(t)
	ctx := context.Background()

	r, err := cache.NewRedis(cache.RedisConfig{URL: url}, nil)
	require.NoError(t, err)
	defer r.Close()
	r.Delete(ctx, tenant.CacheKey("dunetours"))

	repo := &countingRepo{tenant: &tenant.Tenant{
		ID: "tenant-1", Name: "Dune Tours", Subdomain: "dunetours",
		ContactEmail: "ops@dunetours.example", CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}}
	directory := tenant.NewDirectory(repo, r, time.Hour)

	first, err := directory.Resolve(ctx, "DuneTours")
	require.NoError(t, err)
	second, err := directory.Resolve(ctx, "dunetours")
	require.NoError(t, err)

	assert.Equal(t, 1, repo.lookups)
	assert.Equal(t, first.ID, second.ID)
	_, ok := r.Get(ctx, "tenant:dunetours")
	assert.True(t, ok)
}

// countingRepo serves one tenant and counts subdomain lookups.
type countingRepo struct {
	tenant  *tenant.Tenant
	lookups int
}

func (c *countingRepo) Create(context.Context, *tenant.Tenant) error { return nil }

func (c *countingRepo) GetByID(_ context.Context, id string) (*tenant.Tenant, error) {
	if id == c.tenant.ID {
		cp := *c.tenant
		return &cp, nil
	}
	return nil, tenant.ErrTenantNotFound
}

func (c *countingRepo) GetBySubdomain(_ context.Context, subdomain string) (*tenant.Tenant, error) {
	c.lookups++
	if subdomain == c.tenant.Subdomain {
		cp := *c.tenant
		return &cp, nil
	}
	return nil, tenant.ErrTenantNotFound
}

func (c *countingRepo) SubdomainExists(_ context.Context, subdomain string) (bool, error) {
	return subdomain == c.tenant.Subdomain, nil
}

func (c *countingRepo) List(context.Context, int, int) ([]*tenant.Tenant, error) {
	return []*tenant.Tenant{c.tenant}, nil
}
