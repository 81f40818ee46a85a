package orders_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-checkout-orders/internal/memstore"
	"github.com/ariefcatur/go-checkout-orders/internal/orders"
)

func TestListOrders_OwnerScopedOldestFirst(t *testing.T) {
	ctx := context.Background()
	svc := orders.NewService(memstore.New(), orders.WithClock(tickingClock()))
	p := seed(t, svc, 100, 100)

	var mine []int64
	for i := 0; i < 3; i++ {
		res, err := svc.Checkout(ctx, 1, []orders.ItemInput{item(p.ID, 1)})
		require.NoError(t, err)
		mine = append(mine, res.Order.ID)
		_, err = svc.Checkout(ctx, 2, []orders.ItemInput{item(p.ID, 1)})
		require.NoError(t, err)
	}

	list, err := svc.ListOrders(ctx, 1)
	require.NoError(t, err)
	got := make([]int64, 0, len(list))
	for _, o := range list {
		assert.Equal(t, int64(1), o.OwnerID)
		got = append(got, o.ID)
	}
	assert.Equal(t, mine, got)

	none, err := svc.ListOrders(ctx, 3)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestGetOrder_NotOwned(t *testing.T) {
	ctx := context.Background()
	svc := orders.NewService(memstore.New())
	p := seed(t, svc, 100, 1)
	res, err := svc.Checkout(ctx, 1, []orders.ItemInput{item(p.ID, 1)})
	require.NoError(t, err)

	_, err = svc.GetOrder(ctx, 2, res.Order.ID)
	assert.Equal(t, orders.KindNotFound, orders.KindOf(err))
	assert.ErrorIs(t, err, orders.ErrOrderNotFound)
}

func TestOrderStatus_ReadsThroughCache(t *testing.T) {
	ctx := context.Background()
	cache := newMapCache()
	svc := orders.NewService(memstore.New(), orders.WithStatusCache(cache))
	p := seed(t, svc, 100, 5)
	res, err := svc.Checkout(ctx, 1, []orders.ItemInput{item(p.ID, 1)})
	require.NoError(t, err)
	id := res.Order.ID

	st, err := svc.OrderStatus(ctx, 1, id)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusUnpaid, st)
	assert.Equal(t, 0, cache.hits)

	st, err = svc.OrderStatus(ctx, 1, id)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusUnpaid, st)
	assert.Equal(t, 1, cache.hits)

	// cached entry does not leak to other owners
	_, err = svc.OrderStatus(ctx, 2, id)
	assert.Equal(t, orders.KindNotFound, orders.KindOf(err))

	_, err = svc.Pay(ctx, 1, id)
	require.NoError(t, err)
	st, err = svc.OrderStatus(ctx, 1, id)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPaid, st)
}

func TestRecentOrders_NewestFirstWithLimit(t *testing.T) {
	ctx := context.Background()
	svc := orders.NewService(memstore.New(), orders.WithClock(tickingClock()))
	p := seed(t, svc, 100, 10)
	var ids []int64
	for owner := int64(1); owner <= 4; owner++ {
		res, err := svc.Checkout(ctx, owner, []orders.ItemInput{item(p.ID, 1)})
		require.NoError(t, err)
		ids = append(ids, res.Order.ID)
	}

	recent, err := svc.RecentOrders(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, ids[3], recent[0].ID)
	assert.Equal(t, ids[2], recent[1].ID)

	all, err := svc.RecentOrders(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}
