package postgres

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-checkout-orders/internal/orders"
)

// Runs against a throwaway database; its tables are truncated.
const dsnEnv = "CHECKOUT_TEST_POSTGRES_DSN"

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv(dsnEnv)
	if dsn == "" {
		t.Skipf("%s not set", dsnEnv)
	}
	ctx := context.Background()
	pool, err := Connect(ctx, dsn, PoolConfig{MaxConns: 16})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, Migrate(ctx, pool))
	_, err = pool.Exec(ctx, `TRUNCATE order_items, orders, products RESTART IDENTITY`)
	require.NoError(t, err)
	return pool
}

func seed(t *testing.T, svc *orders.Service, price orders.Cents, stock int) orders.Product {
	t.Helper()
	p, err := svc.CreateProduct(context.Background(), orders.NewProduct{Name: "widget", Price: price, Stock: stock, OwnerID: 99})
	require.NoError(t, err)
	return p
}

func stock(t *testing.T, pool *pgxpool.Pool, id int64) int {
	t.Helper()
	var n int
	require.NoError(t, pool.QueryRow(context.Background(), `SELECT stock FROM products WHERE id=$1`, id).Scan(&n))
	return n
}

func count(t *testing.T, pool *pgxpool.Pool, table string) int {
	t.Helper()
	var n int
	require.NoError(t, pool.QueryRow(context.Background(), `SELECT count(*) FROM `+table).Scan(&n))
	return n
}

func TestStore_CheckoutAndPay(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	svc := orders.NewService(&Store{DB: pool})
	p := seed(t, svc, 1000, 5)

	res, err := svc.Checkout(ctx, 1, []orders.ItemInput{{ProductID: p.ID, Quantity: 3}})
	require.NoError(t, err)
	assert.Equal(t, orders.Cents(3000), res.Order.Total)
	assert.Equal(t, 2, stock(t, pool, p.ID))

	_, err = svc.Checkout(ctx, 1, []orders.ItemInput{{ProductID: p.ID, Quantity: 3}})
	assert.Equal(t, orders.KindInsufficientStock, orders.KindOf(err))

	d, err := svc.GetOrder(ctx, 1, res.Order.ID)
	require.NoError(t, err)
	require.Len(t, d.Items, 1)
	assert.Equal(t, orders.Cents(1000), d.Items[0].Price)

	paid, err := svc.Pay(ctx, 1, res.Order.ID)
	require.NoError(t, err)
	assert.False(t, paid.AlreadyPaid)
	again, err := svc.Pay(ctx, 1, res.Order.ID)
	require.NoError(t, err)
	assert.True(t, again.AlreadyPaid)

	_, err = svc.Pay(ctx, 2, res.Order.ID)
	assert.Equal(t, orders.KindNotFound, orders.KindOf(err))
}

func TestStore_FailedCheckoutLeavesNoTrace(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	svc := orders.NewService(&Store{DB: pool})
	a := seed(t, svc, 1000, 5)
	b := seed(t, svc, 500, 1)

	_, err := svc.Checkout(ctx, 1, []orders.ItemInput{{ProductID: a.ID, Quantity: 2}, {ProductID: b.ID, Quantity: 2}})
	assert.Equal(t, orders.KindInsufficientStock, orders.KindOf(err))
	_, err = svc.Checkout(ctx, 1, []orders.ItemInput{{ProductID: a.ID, Quantity: 2}, {ProductID: 999, Quantity: 1}})
	assert.Equal(t, orders.KindInsufficientStock, orders.KindOf(err))

	_, err = svc.Checkout(ctx, 1, []orders.ItemInput{{ProductID: a.ID, Quantity: 3_000_000_000}})
	assert.Equal(t, orders.KindInsufficientStock, orders.KindOf(err), "quantity past INT range: %v", err)
	_, err = svc.Checkout(ctx, 1, []orders.ItemInput{{ProductID: 999, Quantity: 3_000_000_000}})
	assert.Equal(t, orders.KindInsufficientStock, orders.KindOf(err))

	big := seed(t, svc, 4611686018427387900, 10)
	_, err = svc.Checkout(ctx, 1, []orders.ItemInput{{ProductID: a.ID, Quantity: 1}, {ProductID: big.ID, Quantity: 3}})
	assert.Equal(t, orders.KindInvalidRequest, orders.KindOf(err))
	assert.ErrorIs(t, err, orders.ErrAmountOverflow)

	assert.Equal(t, 5, stock(t, pool, a.ID))
	assert.Equal(t, 1, stock(t, pool, b.ID))
	assert.Equal(t, 10, stock(t, pool, big.ID))
	assert.Zero(t, count(t, pool, "orders"))
	assert.Zero(t, count(t, pool, "order_items"))
}

func TestStore_ConcurrentCheckoutNeverOversells(t *testing.T) {
	pool := testPool(t)
	svc := orders.NewService(&Store{DB: pool})
	p := seed(t, svc, 100, 5)

	var ok atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func(owner int64) {
			defer wg.Done()
			_, err := svc.Checkout(context.Background(), owner, []orders.ItemInput{{ProductID: p.ID, Quantity: 3}})
			if err == nil {
				ok.Add(1)
				return
			}
			if orders.KindOf(err) != orders.KindInsufficientStock {
				t.Errorf("unexpected error: %v", err)
			}
		}(int64(i + 1))
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, 2, stock(t, pool, p.ID))
	assert.Equal(t, 1, count(t, pool, "orders"))
}

func TestStore_DeleteReferencedProduct(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	svc := orders.NewService(&Store{DB: pool})
	sold := seed(t, svc, 100, 5)
	spare := seed(t, svc, 100, 5)
	_, err := svc.Checkout(ctx, 1, []orders.ItemInput{{ProductID: sold.ID, Quantity: 1}})
	require.NoError(t, err)

	err = svc.DeleteProduct(ctx, 99, sold.ID)
	assert.Equal(t, orders.KindConflict, orders.KindOf(err))
	err = svc.DeleteProduct(ctx, 1, spare.ID)
	assert.Equal(t, orders.KindNotFound, orders.KindOf(err))
	require.NoError(t, svc.DeleteProduct(ctx, 99, spare.ID))
}

func TestStore_ListOrdersOldestFirst(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	svc := orders.NewService(&Store{DB: pool})
	p := seed(t, svc, 100, 10)

	var want []int64
	for i := 0; i < 3; i++ {
		res, err := svc.Checkout(ctx, 1, []orders.ItemInput{{ProductID: p.ID, Quantity: 1}})
		require.NoError(t, err)
		want = append(want, res.Order.ID)
	}
	list, err := svc.ListOrders(ctx, 1)
	require.NoError(t, err)
	got := make([]int64, 0, len(list))
	for _, o := range list {
		got = append(got, o.ID)
	}
	assert.Equal(t, want, got)
}
