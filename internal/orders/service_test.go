package orders_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-checkout-orders/internal/orders"
)

// recorder captures published envelopes.
type recorder struct {
	mu   sync.Mutex
	keys []string
	envs []orders.Envelope
	err  error
}

func (r *recorder) Publish(_ context.Context, key []byte, env orders.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.keys = append(r.keys, string(key))
	r.envs = append(r.envs, env)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.envs))
	for _, e := range r.envs {
		out = append(out, e.EventType)
	}
	return out
}

// mapCache is an in-memory orders.StatusCache.
type mapCache struct {
	mu          sync.Mutex
	m           map[int64]orders.CachedStatus
	gets, hits  int
	invalidated []int64
}

func newMapCache() *mapCache { return &mapCache{m: map[int64]orders.CachedStatus{}} }

func (c *mapCache) Get(_ context.Context, id int64) (orders.CachedStatus, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	st, ok := c.m[id]
	if ok {
		c.hits++
	}
	return st, ok, nil
}

func (c *mapCache) Set(_ context.Context, st orders.CachedStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[st.OrderID] = st
	return nil
}

func (c *mapCache) Invalidate(_ context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, id)
	c.invalidated = append(c.invalidated, id)
	return nil
}

// faultyStore counts transactions and can fail SetTotal.
type faultyStore struct {
	orders.Store
	txs          atomic.Int32
	failSetTotal error
}

func (f *faultyStore) WithTx(ctx context.Context, opts orders.TxOptions, fn func(context.Context, orders.Tx) error) error {
	f.txs.Add(1)
	return f.Store.WithTx(ctx, opts, func(ctx context.Context, tx orders.Tx) error {
		return fn(ctx, faultyTx{Tx: tx, failSetTotal: f.failSetTotal})
	})
}

type faultyTx struct {
	orders.Tx
	failSetTotal error
}

func (t faultyTx) SetTotal(ctx context.Context, id int64, total orders.Cents) error {
	if t.failSetTotal != nil {
		return t.failSetTotal
	}
	return t.Tx.SetTotal(ctx, id, total)
}

// tickingClock advances one second per call so created_at is strictly ordered.
func tickingClock() func() time.Time {
	var n atomic.Int64
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time { return base.Add(time.Duration(n.Add(1)) * time.Second) }
}

func seed(t *testing.T, svc *orders.Service, price orders.Cents, stock int) orders.Product {
	t.Helper()
	p, err := svc.CreateProduct(context.Background(), orders.NewProduct{Name: "widget", Price: price, Stock: stock, OwnerID: 99})
	require.NoError(t, err)
	return p
}

func stockOf(t *testing.T, svc *orders.Service, id int64) int {
	t.Helper()
	ps, err := svc.ListProducts(context.Background(), 99)
	require.NoError(t, err)
	for _, p := range ps {
		if p.ID == id {
			return p.Stock
		}
	}
	t.Fatalf("product %d not found", id)
	return 0
}

func item(id int64, qty int) orders.ItemInput { return orders.ItemInput{ProductID: id, Quantity: qty} }
