// Package memstore is an in-process orders.Store. One lock is held for the
// whole transaction, so transactions are serializable; rollback replays an
// undo journal. It backs tests and the "memory" store driver.
package memstore

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ariefcatur/go-checkout-orders/internal/orders"
)

var ErrReadOnly = errors.New("memstore: write in read-only transaction")

type Store struct {
	mu          sync.RWMutex
	products    map[int64]*orders.Product
	orders      map[int64]*orders.Order
	items       []orders.OrderItem
	nextProduct int64
	nextOrder   int64
}

func New() *Store {
	return &Store{
		products: map[int64]*orders.Product{},
		orders:   map[int64]*orders.Order{},
	}
}

var _ orders.Store = (*Store)(nil)

func (s *Store) WithTx(ctx context.Context, opts orders.TxOptions, fn func(ctx context.Context, tx orders.Tx) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if opts.ReadOnly {
		s.mu.RLock()
		defer s.mu.RUnlock()
	} else {
		s.mu.Lock()
		defer s.mu.Unlock()
	}

	t := &tx{s: s, readOnly: opts.ReadOnly}
	defer func() {
		if p := recover(); p != nil {
			t.rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, t); err != nil {
		t.rollback()
		return err
	}
	// aborted from outside before commit
	if err := ctx.Err(); err != nil {
		t.rollback()
		return err
	}
	return nil
}

type tx struct {
	s        *Store
	readOnly bool
	undo     []func()
}

func (t *tx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *tx) writable() error {
	if t.readOnly {
		return ErrReadOnly
	}
	return nil
}

func (t *tx) Product(_ context.Context, id int64) (orders.Product, error) {
	p, ok := t.s.products[id]
	if !ok {
		return orders.Product{}, orders.ErrProductNotFound
	}
	return *p, nil
}

func (t *tx) DecrementStock(_ context.Context, id int64, qty int) (orders.Product, error) {
	if err := t.writable(); err != nil {
		return orders.Product{}, err
	}
	if qty <= 0 {
		return orders.Product{}, fmt.Errorf("decrement by %d: %w", qty, orders.ErrInvalidItem)
	}
	p, ok := t.s.products[id]
	if !ok {
		return orders.Product{}, orders.ErrProductNotFound
	}
	if p.Stock < qty {
		return orders.Product{}, orders.ErrInsufficientStock
	}
	p.Stock -= qty
	t.undo = append(t.undo, func() { p.Stock += qty })
	return *p, nil
}

func (t *tx) CreateProduct(_ context.Context, np orders.NewProduct, createdAt time.Time) (orders.Product, error) {
	if err := t.writable(); err != nil {
		return orders.Product{}, err
	}
	t.s.nextProduct++
	p := &orders.Product{
		ID:        t.s.nextProduct,
		Name:      np.Name,
		Price:     np.Price,
		Stock:     np.Stock,
		OwnerID:   np.OwnerID,
		CreatedAt: createdAt.UTC(),
	}
	t.s.products[p.ID] = p
	t.undo = append(t.undo, func() { delete(t.s.products, p.ID) })
	return *p, nil
}

func (t *tx) ProductsByOwner(_ context.Context, ownerID int64) ([]orders.Product, error) {
	var out []orders.Product
	for _, p := range t.s.products {
		if p.OwnerID == ownerID {
			out = append(out, *p)
		}
	}
	slices.SortFunc(out, func(a, b orders.Product) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (t *tx) DeleteProduct(_ context.Context, ownerID, id int64) error {
	if err := t.writable(); err != nil {
		return err
	}
	p, ok := t.s.products[id]
	if !ok || p.OwnerID != ownerID {
		return orders.ErrProductNotFound
	}
	for _, it := range t.s.items {
		if it.ProductID == id {
			return orders.ErrProductReferenced
		}
	}
	delete(t.s.products, id)
	t.undo = append(t.undo, func() { t.s.products[id] = p })
	return nil
}

func (t *tx) CreateOrder(_ context.Context, ownerID int64, createdAt time.Time) (orders.Order, error) {
	if err := t.writable(); err != nil {
		return orders.Order{}, err
	}
	t.s.nextOrder++
	o := &orders.Order{
		ID:        t.s.nextOrder,
		OwnerID:   ownerID,
		Status:    orders.StatusUnpaid,
		CreatedAt: createdAt.UTC(),
	}
	t.s.orders[o.ID] = o
	t.undo = append(t.undo, func() { delete(t.s.orders, o.ID) })
	return *o, nil
}

func (t *tx) AddItem(_ context.Context, it orders.OrderItem) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.s.orders[it.OrderID]; !ok {
		return orders.ErrOrderNotFound
	}
	if _, ok := t.s.products[it.ProductID]; !ok {
		return orders.ErrProductNotFound
	}
	n := len(t.s.items)
	t.s.items = append(t.s.items, it)
	t.undo = append(t.undo, func() { t.s.items = t.s.items[:n] })
	return nil
}

func (t *tx) SetTotal(_ context.Context, orderID int64, total orders.Cents) error {
	if err := t.writable(); err != nil {
		return err
	}
	o, ok := t.s.orders[orderID]
	if !ok {
		return orders.ErrOrderNotFound
	}
	prev := o.Total
	o.Total = total
	t.undo = append(t.undo, func() { o.Total = prev })
	return nil
}

func (t *tx) OrderForOwner(_ context.Context, orderID, ownerID int64) (orders.Order, error) {
	o, ok := t.s.orders[orderID]
	if !ok || o.OwnerID != ownerID {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	return *o, nil
}

func (t *tx) OrdersByOwner(_ context.Context, ownerID int64) ([]orders.Order, error) {
	var out []orders.Order
	for _, o := range t.s.orders {
		if o.OwnerID == ownerID {
			out = append(out, *o)
		}
	}
	slices.SortFunc(out, byCreated)
	return out, nil
}

func (t *tx) Items(_ context.Context, orderID int64) ([]orders.OrderItem, error) {
	out := []orders.OrderItem{}
	for _, it := range t.s.items {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (t *tx) MarkPaid(_ context.Context, orderID int64) (bool, error) {
	if err := t.writable(); err != nil {
		return false, err
	}
	o, ok := t.s.orders[orderID]
	if !ok {
		return false, orders.ErrOrderNotFound
	}
	if o.Status != orders.StatusUnpaid {
		return false, nil
	}
	o.Status = orders.StatusPaid
	t.undo = append(t.undo, func() { o.Status = orders.StatusUnpaid })
	return true, nil
}

func (t *tx) RecentOrders(_ context.Context, limit int) ([]orders.Order, error) {
	out := make([]orders.Order, 0, len(t.s.orders))
	for _, o := range t.s.orders {
		out = append(out, *o)
	}
	slices.SortFunc(out, func(a, b orders.Order) int { return byCreated(b, a) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func byCreated(a, b orders.Order) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}
