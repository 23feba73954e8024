package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memClient is a map-backed Client for exercising Tiered.
type memClient struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
}

func newMemClient() *memClient {
	return &memClient{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memClient) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *memClient) Set(_ context.Context, key string, value []byte, ttl time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = ttl
	return true
}

func (m *memClient) Delete(_ context.Context, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return true
}

func TestTiered_L1Hit(t *testing.T) {
	l1, l2 := newMemClient(), newMemClient()
	c := NewTiered(l1, l2, time.Minute)
	l1.data["tenant:a"] = []byte("1")

	v, ok := c.Get(context.Background(), "tenant:a")
	require.True(t, ok)
	assert.Equal(t, "1", string(v))
}

func TestTiered_L2HitBackfills(t *testing.T) {
	l1, l2 := newMemClient(), newMemClient()
	c := NewTiered(l1, l2, time.Minute)
	l2.data["tenant:b"] = []byte("2")

	v, ok := c.Get(context.Background(), "tenant:b")
	require.True(t, ok)
	assert.Equal(t, "2", string(v))
	assert.Equal(t, []byte("2"), l1.data["tenant:b"])
	assert.Equal(t, time.Minute, l1.ttls["tenant:b"])
}

func TestTiered_Miss(t *testing.T) {
	c := NewTiered(newMemClient(), newMemClient(), time.Minute)
	_, ok := c.Get(context.Background(), "missing")
	assert.False(t, ok)
}

func TestTiered_SetAndDeleteBoth(t *testing.T) {
	l1, l2 := newMemClient(), newMemClient()
	c := NewTiered(l1, l2, time.Minute)
	ctx := context.Background()

	require.True(t, c.Set(ctx, "tenant:c", []byte("3"), time.Hour))
	assert.Contains(t, l1.data, "tenant:c")
	assert.Contains(t, l2.data, "tenant:c")
	assert.Equal(t, time.Minute, l1.ttls["tenant:c"], "L1 ttl is capped")
	assert.Equal(t, time.Hour, l2.ttls["tenant:c"])

	require.True(t, c.Delete(ctx, "tenant:c"))
	assert.NotContains(t, l1.data, "tenant:c")
	assert.NotContains(t, l2.data, "tenant:c")
}

func TestLocal_SetGetDelete(t *testing.T) {
	l, err := NewLocal(1 << 20)
	require.NoError(t, err)
	defer l.Close()
	ctx := context.Background()

	l.Set(ctx, "tenant:d", []byte("4"), time.Minute)
	l.Wait()

	v, ok := l.Get(ctx, "tenant:d")
	require.True(t, ok)
	assert.Equal(t, "4", string(v))

	assert.True(t, l.Delete(ctx, "tenant:d"))
	_, ok = l.Get(ctx, "tenant:d")
	assert.False(t, ok)
}

// TestPurpose: Validates that an unreachable cache server degrades to misses instead of errors.
// Scope: Unit Test
// Expected: Get reports a miss, Set and Delete report false, nothing panics.
// Test Case ID: CACHE-01
func TestRedis_FailSoft(t *testing.T) {
	r, err := NewRedis(RedisConfig{
		URL:         "redis://127.0.0.1:1/0",
		DialTimeout: 50 * time.Millisecond,
	}, nil)
	require.NoError(t, err)
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, ok := r.Get(ctx, "tenant:e")
	assert.False(t, ok)
	assert.False(t, r.Set(ctx, "tenant:e", []byte("5"), time.Minute))
	assert.False(t, r.Delete(ctx, "tenant:e"))
}

func TestNewRedis_InvalidURL(t *testing.T) {
	_, err := NewRedis(RedisConfig{URL: "not a url"}, nil)
	assert.Error(t, err)
}

func TestNoop(t *testing.T) {
	var c Client = Noop{}
	_, ok := c.Get(context.Background(), "k")
	assert.False(t, ok)
	assert.False(t, c.Set(context.Background(), "k", nil, 0))
}

func TestMemory_TTL(t *testing.T) {
	m := NewMemory()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	require.True(t, m.Set(ctx, "tenant:f", []byte("6"), time.Minute))
	v, ok := m.Get(ctx, "tenant:f")
	require.True(t, ok)
	assert.Equal(t, "6", string(v))

	now = now.Add(time.Minute)
	_, ok = m.Get(ctx, "tenant:f")
	assert.False(t, ok, "entry expires at its ttl")
	assert.Equal(t, 0, m.Len())
}
