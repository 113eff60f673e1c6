package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/amaiabotanic/storefront/pkg/config"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestFixedWindowCountsAndResets(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()

	for want := int64(1); want <= 2; want++ {
		w, err := client.FixedWindow(ctx, "checkout:sess-1", 2, time.Minute)
		require.NoError(t, err)
		require.True(t, w.Allowed)
		require.Equal(t, want, w.Count)
		require.Equal(t, time.Minute, w.ResetIn)
	}

	w, err := client.FixedWindow(ctx, "checkout:sess-1", 2, time.Minute)
	require.NoError(t, err)
	require.False(t, w.Allowed)
	require.Equal(t, int64(3), w.Count)

	other, err := client.FixedWindow(ctx, "checkout:sess-2", 2, time.Minute)
	require.NoError(t, err)
	require.True(t, other.Allowed, "scopes are counted separately")

	mr.FastForward(time.Minute + time.Second)
	w, err = client.FixedWindow(ctx, "checkout:sess-1", 2, time.Minute)
	require.NoError(t, err)
	require.True(t, w.Allowed)
	require.Equal(t, int64(1), w.Count)
}

func TestCompareAndDelete(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()
	require.NoError(t, client.Set(ctx, "amaia:lock:job", "owner-a", time.Minute))

	deleted, err := client.CompareAndDelete(ctx, "amaia:lock:job", "owner-b")
	require.NoError(t, err)
	require.False(t, deleted)
	require.True(t, mr.Exists("amaia:lock:job"))

	deleted, err = client.CompareAndDelete(ctx, "amaia:lock:job", "owner-a")
	require.NoError(t, err)
	require.True(t, deleted)
	require.False(t, mr.Exists("amaia:lock:job"))

	deleted, err = client.CompareAndDelete(ctx, "amaia:lock:job", "owner-a")
	require.NoError(t, err)
	require.False(t, deleted)
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	require.Equal(t, "amaia:cart:amaia-cart:sess-1", client.CartKey("amaia-cart:sess-1"))
	require.Equal(t, "amaia:rate_limit:checkout", client.RateLimitKey(" checkout "))
	require.Equal(t, "amaia:idempotency:s1|POST|/api/v1/checkout:k-1", client.IdempotencyKey("s1|POST|/api/v1/checkout", "k-1"))
	require.Equal(t, "amaia:cart", client.CartKey(""), "empty parts are skipped")
}

func TestUninitializedClient(t *testing.T) {
	var client *Client
	require.ErrorIs(t, client.Ping(context.Background()), errNotInitialized)
	_, err := client.FixedWindow(context.Background(), "x", 1, time.Second)
	require.ErrorIs(t, err, errNotInitialized)
	require.NoError(t, client.Close())
}

func TestSetGetDelete(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.Ping(ctx))
	key := client.CartKey("amaia-cart:sess-1")
	require.NoError(t, client.Set(ctx, key, []byte(`{"version":1}`), time.Hour))

	got, err := client.Get(ctx, key)
	require.NoError(t, err)
	require.JSONEq(t, `{"version":1}`, string(got))
	require.Equal(t, time.Hour, mr.TTL(key))

	ok, err := client.SetNX(ctx, key, "other", time.Hour)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, client.Del(ctx, key))
	_, err = client.Get(ctx, key)
	require.True(t, IsMiss(err), "expected miss after delete, got %v", err)
}

func TestOptionsFromConfig(t *testing.T) {
	_, err := optionsFromConfig(config.RedisConfig{})
	require.Error(t, err)

	opts, err := optionsFromConfig(config.RedisConfig{
		URL:         "redis://:pw@cache.internal:6380/0",
		DB:          3,
		PoolSize:    7,
		DialTimeout: 2 * time.Second,
	})
	require.NoError(t, err)
	require.Equal(t, "cache.internal:6380", opts.Addr)
	require.Equal(t, "pw", opts.Password)
	require.Equal(t, 3, opts.DB)
	require.Equal(t, 7, opts.PoolSize)
	require.Equal(t, 2*time.Second, opts.DialTimeout)

	opts, err = optionsFromConfig(config.RedisConfig{Address: "localhost:6379", DB: 1})
	require.NoError(t, err)
	require.Equal(t, "localhost:6379", opts.Addr)
	require.Equal(t, 1, opts.DB)
}
