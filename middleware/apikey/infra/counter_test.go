package infra

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apikey-gateway/middleware/apikey/domain"
)

func TestRedisCounterStore_InitDoesNotResetExisting(t *testing.T) {
	counters, mr := newRedisCounters(t)
	ctx := context.Background()

	ok, err := counters.Exists(ctx, "c")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, counters.Init(ctx, "c", time.Minute))
	n, err := counters.Incr(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, counters.Init(ctx, "c", time.Minute))
	n, err = counters.Incr(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	ok, err = counters.Exists(ctx, "c")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Minute, mr.TTL("c"))
}

func TestRedisCounterStore_Prefix(t *testing.T) {
	counters, mr := newRedisCounters(t)
	counters = NewRedisCounterStore(counters.rdb, WithCounterPrefix("gw:"))
	ctx := context.Background()

	require.NoError(t, counters.Init(ctx, "k_read_count", time.Minute))
	_, err := counters.Incr(ctx, "k_read_count")
	require.NoError(t, err)

	assert.True(t, mr.Exists("gw:k_read_count"))
	assert.False(t, mr.Exists("k_read_count"))
}

func TestRedisCounterStore_IncrWithoutInitGetsWindow(t *testing.T) {
	counters, mr := newRedisCounters(t)
	counters = NewRedisCounterStore(counters.rdb, WithCounterWindow(10*time.Second))
	ctx := context.Background()

	n, err := counters.Incr(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 10*time.Second, mr.TTL("c"))
}

func TestRedisCounterStore_IncrKeepsRunningWindow(t *testing.T) {
	counters, mr := newRedisCounters(t)
	ctx := context.Background()

	require.NoError(t, counters.Init(ctx, "c", time.Minute))
	mr.FastForward(30 * time.Second)

	_, err := counters.Incr(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, mr.TTL("c"))
}

// lapsingCounters deixa a janela expirar entre Exists e Incr quando armado.
type lapsingCounters struct {
	*RedisCounterStore
	mr    *miniredis.Miniredis
	armed bool
}

func (c *lapsingCounters) Incr(ctx context.Context, key string) (int64, error) {
	if c.armed {
		c.armed = false
		c.mr.FastForward(DefaultWindow + time.Second)
	}
	return c.RedisCounterStore.Incr(ctx, key)
}

func TestFixedWindowLimiter_Redis_WindowLapsesBeforeIncr(t *testing.T) {
	inner, mr := newRedisCounters(t)
	counters := &lapsingCounters{RedisCounterStore: inner, mr: mr}
	lim := NewFixedWindowLimiter(counters)
	ctx := context.Background()
	rec := keyWithReads("test_key", 1)
	key := CounterKey("test_key", domain.Read)

	require.NoError(t, lim.Admit(ctx, rec, domain.Read))

	// Exists vê o contador, mas ele expira antes do INCR.
	counters.armed = true
	require.NoError(t, lim.Admit(ctx, rec, domain.Read))
	assert.Equal(t, DefaultWindow, mr.TTL(key))
	assert.ErrorIs(t, lim.Admit(ctx, rec, domain.Read), domain.ErrRateLimitExceeded)

	mr.FastForward(DefaultWindow + time.Second)

	require.NoError(t, lim.Admit(ctx, rec, domain.Read))
	n, err := inner.Value(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRedisCounterStore_ValueMissing(t *testing.T) {
	counters, _ := newRedisCounters(t)
	n, err := counters.Value(context.Background(), "nope")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemoryCounterStore_Lifecycle(t *testing.T) {
	counters := NewMemoryCounterStore(40*time.Millisecond, 10*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, counters.Init(ctx, "c", 40*time.Millisecond))
	require.NoError(t, counters.Init(ctx, "c", 40*time.Millisecond))

	n, err := counters.Incr(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	time.Sleep(80 * time.Millisecond)

	ok, err := counters.Exists(ctx, "c")
	require.NoError(t, err)
	assert.False(t, ok)

	// Incr sem Init depois da expiração abre janela nova.
	n, err = counters.Incr(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	counters.Flush()
	v, err := counters.Value(ctx, "c")
	require.NoError(t, err)
	assert.Zero(t, v)
}
