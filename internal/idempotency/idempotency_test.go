package idempotency_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/nikolayk812/cartsaga/internal/idempotency"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func TestStore_ReserveCompleteReplay(t *testing.T) {
	mr, client := setupRedis(t)
	store := idempotency.NewStore(client, time.Hour)
	ctx := t.Context()

	orderID, reserved, err := store.Reserve(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, reserved)
	assert.Zero(t, orderID)
	assert.Equal(t, idempotency.PendingTTL, mr.TTL("cartsaga:checkout:k1"))

	// second caller while the first is still running
	orderID, reserved, err = store.Reserve(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, reserved)
	assert.Zero(t, orderID)

	require.NoError(t, store.Complete(ctx, "k1", 42))

	orderID, reserved, err = store.Reserve(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, reserved)
	assert.Equal(t, int64(42), orderID)

	assert.Equal(t, time.Hour, mr.TTL("cartsaga:checkout:k1"))
}

func TestStore_Release(t *testing.T) {
	_, client := setupRedis(t)
	store := idempotency.NewStore(client, 0)
	ctx := t.Context()

	_, reserved, err := store.Reserve(ctx, "k1")
	require.NoError(t, err)
	require.True(t, reserved)

	require.NoError(t, store.Release(ctx, "k1"))

	_, reserved, err = store.Reserve(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, reserved)
}

func TestStore_Expiry(t *testing.T) {
	mr, client := setupRedis(t)
	store := idempotency.NewStore(client, time.Minute)
	ctx := t.Context()

	_, _, err := store.Reserve(ctx, "k1")
	require.NoError(t, err)
	require.NoError(t, store.Complete(ctx, "k1", 7))

	mr.FastForward(2 * time.Minute)

	_, reserved, err := store.Reserve(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, reserved)
}

func TestStore_PendingExpires(t *testing.T) {
	mr, client := setupRedis(t)
	store := idempotency.NewStore(client, time.Hour)
	ctx := t.Context()

	_, reserved, err := store.Reserve(ctx, "k1")
	require.NoError(t, err)
	require.True(t, reserved)

	// never completed, e.g. the process died mid checkout
	mr.FastForward(idempotency.PendingTTL + time.Second)

	_, reserved, err = store.Reserve(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, reserved)
}

func TestStore_RedisDown(t *testing.T) {
	mr, client := setupRedis(t)
	store := idempotency.NewStore(client, time.Minute)
	mr.Close()

	_, _, err := store.Reserve(t.Context(), "k1")
	require.Error(t, err)
}

func TestOpen(t *testing.T) {
	mr, _ := setupRedis(t)

	client, err := idempotency.Open(t.Context(), "redis://"+mr.Addr())
	require.NoError(t, err)
	require.NoError(t, client.Close())

	_, err = idempotency.Open(t.Context(), "not-a-url")
	require.Error(t, err)
}

func TestKey(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/orders/checkout", nil)
	r.Header.Set(idempotency.Header, "  abc ")

	assert.Equal(t, "abc", idempotency.Key(r))
}
