package redisx

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-checkout-orders/internal/orders"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestStatusCache_SetGetInvalidate(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	c := NewStatusCache(rdb, time.Minute)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	st := orders.CachedStatus{OrderID: 1, OwnerID: 9, Status: orders.StatusUnpaid}
	require.NoError(t, c.Set(ctx, st))

	got, ok, err := c.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, st, got)
	assert.Equal(t, time.Minute, mr.TTL(fmt.Sprintf(KeyOrderStatus, 1)))

	require.NoError(t, c.Invalidate(ctx, 1))
	_, ok, err = c.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStatusCache_JunkEntryIsMiss(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	c := NewStatusCache(rdb, 0)
	require.NoError(t, mr.Set(fmt.Sprintf(KeyOrderStatus, 5), `{"status":"SHIPPED"}`))

	_, ok, err := c.Get(context.Background(), 5)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIdempotencyStore_LockRememberRecall(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	s := NewIdempotencyStore(rdb, time.Hour)
	ctx := context.Background()

	ok, err := s.TryLock(ctx, 1, "k1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.TryLock(ctx, 1, "k1")
	require.NoError(t, err)
	assert.False(t, ok, "second lock on the same key must fail")

	// same key, other owner
	ok, err = s.TryLock(ctx, 2, "k1")
	require.NoError(t, err)
	assert.True(t, ok)

	_, found, err := s.Recall(ctx, 1, "k1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Remember(ctx, 1, "k1", CheckoutRecord{OrderID: 42, Total: 3000}))
	require.NoError(t, s.Unlock(ctx, 1, "k1"))

	rec, found, err := s.Recall(ctx, 1, "k1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, CheckoutRecord{OrderID: 42, Total: 3000}, rec)
	assert.Equal(t, time.Hour, mr.TTL(fmt.Sprintf(KeyIdemCheckout, 1, "k1")))

	ok, err = s.TryLock(ctx, 1, "k1")
	require.NoError(t, err)
	assert.True(t, ok, "lock is free again after Unlock")
}

func TestMarkOnce(t *testing.T) {
	_, rdb := setupTestRedis(t)
	ctx := context.Background()

	first, err := MarkOnce(ctx, rdb, "dedup:x:1", TTLDedup)
	require.NoError(t, err)
	second, err := MarkOnce(ctx, rdb, "dedup:x:1", TTLDedup)
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
}
