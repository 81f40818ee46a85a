package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-checkout-orders/internal/orders"
)

const pgForeignKeyViolation = "23503"

type Store struct{ DB *pgxpool.Pool }

var _ orders.Store = (*Store)(nil)

func (s *Store) WithTx(ctx context.Context, opts orders.TxOptions, fn func(ctx context.Context, tx orders.Tx) error) (err error) {
	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	if opts.ReadOnly {
		txOpts.AccessMode = pgx.ReadOnly
	}
	tx, err := s.DB.BeginTx(ctx, txOpts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	// no-op after Commit
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type pgTx struct{ tx pgx.Tx }

func (t *pgTx) Product(ctx context.Context, id int64) (orders.Product, error) {
	var p orders.Product
	err := t.tx.QueryRow(ctx, `
		SELECT id, name, price_cents, stock, owner_id, created_at
		FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.OwnerID, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Product{}, orders.ErrProductNotFound
	}
	return p, err
}

// DecrementStock is one guarded UPDATE: the stock check and the write happen
// atomically on the row, so concurrent checkouts cannot oversell. qty is sent
// as bigint so a quantity past the INT range fails the guard instead of the
// parameter encoding.
func (t *pgTx) DecrementStock(ctx context.Context, id int64, qty int) (orders.Product, error) {
	var p orders.Product
	err := t.tx.QueryRow(ctx, `
		UPDATE products SET stock = stock - $2::bigint
		WHERE id=$1 AND stock >= $2::bigint
		RETURNING id, name, price_cents, stock, owner_id, created_at`, id, qty).
		Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.OwnerID, &p.CreatedAt)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return orders.Product{}, err
	}
	var exists bool
	if err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id=$1)`, id).Scan(&exists); err != nil {
		return orders.Product{}, err
	}
	if !exists {
		return orders.Product{}, orders.ErrProductNotFound
	}
	return orders.Product{}, orders.ErrInsufficientStock
}

func (t *pgTx) CreateProduct(ctx context.Context, np orders.NewProduct, createdAt time.Time) (orders.Product, error) {
	p := orders.Product{Name: np.Name, Price: np.Price, Stock: np.Stock, OwnerID: np.OwnerID}
	err := t.tx.QueryRow(ctx, `
		INSERT INTO products(name, price_cents, stock, owner_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`, np.Name, np.Price, np.Stock, np.OwnerID, createdAt.UTC()).
		Scan(&p.ID, &p.CreatedAt)
	return p, err
}

func (t *pgTx) ProductsByOwner(ctx context.Context, ownerID int64) ([]orders.Product, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, name, price_cents, stock, owner_id, created_at
		FROM products WHERE owner_id=$1 ORDER BY id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orders.Product
	for rows.Next() {
		var p orders.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.OwnerID, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (t *pgTx) DeleteProduct(ctx context.Context, ownerID, id int64) error {
	ct, err := t.tx.Exec(ctx, `DELETE FROM products WHERE id=$1 AND owner_id=$2`, id, ownerID)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return orders.ErrProductReferenced
	}
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return orders.ErrProductNotFound
	}
	return nil
}

func (t *pgTx) CreateOrder(ctx context.Context, ownerID int64, createdAt time.Time) (orders.Order, error) {
	o := orders.Order{OwnerID: ownerID, Status: orders.StatusUnpaid}
	err := t.tx.QueryRow(ctx, `
		INSERT INTO orders(owner_id, total_cents, status, created_at)
		VALUES ($1, 0, 'unpaid', $2)
		RETURNING id, created_at`, ownerID, createdAt.UTC()).
		Scan(&o.ID, &o.CreatedAt)
	return o, err
}

func (t *pgTx) AddItem(ctx context.Context, it orders.OrderItem) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO order_items(order_id, product_id, quantity, price_cents)
		VALUES ($1, $2, $3, $4)`,
		it.OrderID, it.ProductID, it.Quantity, it.Price,
	)
	return err
}

func (t *pgTx) SetTotal(ctx context.Context, orderID int64, total orders.Cents) error {
	ct, err := t.tx.Exec(ctx, `UPDATE orders SET total_cents=$2 WHERE id=$1`, orderID, total)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return orders.ErrOrderNotFound
	}
	return nil
}

func (t *pgTx) OrderForOwner(ctx context.Context, orderID, ownerID int64) (orders.Order, error) {
	var o orders.Order
	err := t.tx.QueryRow(ctx, `
		SELECT id, owner_id, total_cents, status, created_at
		FROM orders WHERE id=$1 AND owner_id=$2`, orderID, ownerID).
		Scan(&o.ID, &o.OwnerID, &o.Total, &o.Status, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	return o, err
}

func (t *pgTx) OrdersByOwner(ctx context.Context, ownerID int64) ([]orders.Order, error) {
	return t.queryOrders(ctx, `
		SELECT id, owner_id, total_cents, status, created_at
		FROM orders WHERE owner_id=$1 ORDER BY created_at, id`, ownerID)
}

func (t *pgTx) RecentOrders(ctx context.Context, limit int) ([]orders.Order, error) {
	return t.queryOrders(ctx, `
		SELECT id, owner_id, total_cents, status, created_at
		FROM orders ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
}

func (t *pgTx) queryOrders(ctx context.Context, sql string, args ...any) ([]orders.Order, error) {
	rows, err := t.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orders.Order
	for rows.Next() {
		var o orders.Order
		if err := rows.Scan(&o.ID, &o.OwnerID, &o.Total, &o.Status, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (t *pgTx) Items(ctx context.Context, orderID int64) ([]orders.OrderItem, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT order_id, product_id, quantity, price_cents
		FROM order_items WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []orders.OrderItem{}
	for rows.Next() {
		var it orders.OrderItem
		if err := rows.Scan(&it.OrderID, &it.ProductID, &it.Quantity, &it.Price); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// MarkPaid only flips unpaid rows; changed=false means it was already paid.
func (t *pgTx) MarkPaid(ctx context.Context, orderID int64) (bool, error) {
	ct, err := t.tx.Exec(ctx, `UPDATE orders SET status='paid' WHERE id=$1 AND status='unpaid'`, orderID)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}
