package orders

import (
	"context"
	"time"
)

// Catalog owns product rows. DecrementStock must be a single conditional
// read-modify-write so two concurrent callers can never both pass the stock
// check for the same units.
type Catalog interface {
	Product(ctx context.Context, id int64) (Product, error)
	DecrementStock(ctx context.Context, id int64, qty int) (Product, error)
	CreateProduct(ctx context.Context, p NewProduct, createdAt time.Time) (Product, error)
	ProductsByOwner(ctx context.Context, ownerID int64) ([]Product, error)
	DeleteProduct(ctx context.Context, ownerID, id int64) error
}

// Ledger holds orders and their items. Rows are append-only except for the
// order status.
type Ledger interface {
	CreateOrder(ctx context.Context, ownerID int64, createdAt time.Time) (Order, error)
	AddItem(ctx context.Context, it OrderItem) error
	SetTotal(ctx context.Context, orderID int64, total Cents) error
	OrderForOwner(ctx context.Context, orderID, ownerID int64) (Order, error)
	OrdersByOwner(ctx context.Context, ownerID int64) ([]Order, error)
	Items(ctx context.Context, orderID int64) ([]OrderItem, error)
	MarkPaid(ctx context.Context, orderID int64) (changed bool, err error)
	RecentOrders(ctx context.Context, limit int) ([]Order, error)
}

type Tx interface {
	Catalog
	Ledger
}

type TxOptions struct {
	ReadOnly bool
}

// Store runs fn inside one transaction. It commits only when fn returns nil
// and rolls back on every other exit, including panics.
type Store interface {
	WithTx(ctx context.Context, opts TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
