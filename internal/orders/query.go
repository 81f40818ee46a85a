package orders

import (
	"context"
	"fmt"
)

// ListOrders returns the owner's orders oldest first (created_at, then id).
func (s *Service) ListOrders(ctx context.Context, ownerID int64) ([]Order, error) {
	const op = "orders.ListOrders"
	var out []Order
	err := s.store.WithTx(ctx, TxOptions{ReadOnly: true}, func(ctx context.Context, tx Tx) error {
		var err error
		out, err = tx.OrdersByOwner(ctx, ownerID)
		return err
	})
	if err != nil {
		return nil, classify(op, err)
	}
	if out == nil {
		out = []Order{}
	}
	return out, nil
}

func (s *Service) GetOrder(ctx context.Context, ownerID, orderID int64) (OrderDetail, error) {
	const op = "orders.GetOrder"
	var d OrderDetail
	err := s.store.WithTx(ctx, TxOptions{ReadOnly: true}, func(ctx context.Context, tx Tx) error {
		o, err := tx.OrderForOwner(ctx, orderID, ownerID)
		if err != nil {
			return err
		}
		items, err := tx.Items(ctx, o.ID)
		if err != nil {
			return fmt.Errorf("load items: %w", err)
		}
		d = OrderDetail{Order: o, Items: items}
		return nil
	})
	if err != nil {
		return OrderDetail{}, classify(op, err)
	}
	return d, nil
}

// OrderStatus reads through the status cache. A cached entry owned by
// someone else is reported as not found, same as the ledger would.
func (s *Service) OrderStatus(ctx context.Context, ownerID, orderID int64) (Status, error) {
	const op = "orders.OrderStatus"
	if st, ok, err := s.cache.Get(ctx, orderID); err != nil {
		s.logger(ctx).Warn("status cache get", "order_id", orderID, "err", err)
	} else if ok {
		if st.OwnerID != ownerID {
			return "", newError(op, KindNotFound, ErrOrderNotFound)
		}
		return st.Status, nil
	}

	var o Order
	err := s.store.WithTx(ctx, TxOptions{ReadOnly: true}, func(ctx context.Context, tx Tx) error {
		var err error
		o, err = tx.OrderForOwner(ctx, orderID, ownerID)
		return err
	})
	if err != nil {
		return "", classify(op, err)
	}
	if err := s.cache.Set(ctx, CachedStatus{OrderID: o.ID, OwnerID: o.OwnerID, Status: o.Status}); err != nil {
		s.logger(ctx).Warn("status cache set", "order_id", orderID, "err", err)
	}
	return o.Status, nil
}

// RecentOrders lists orders of every owner, newest first. Admin only; the
// capability check lives in the transport.
func (s *Service) RecentOrders(ctx context.Context, limit int) ([]Order, error) {
	const op = "orders.RecentOrders"
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var out []Order
	err := s.store.WithTx(ctx, TxOptions{ReadOnly: true}, func(ctx context.Context, tx Tx) error {
		var err error
		out, err = tx.RecentOrders(ctx, limit)
		return err
	})
	if err != nil {
		return nil, classify(op, err)
	}
	if out == nil {
		out = []Order{}
	}
	return out, nil
}
