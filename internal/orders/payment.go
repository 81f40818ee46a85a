package orders

import (
	"context"
	"fmt"
)

type PayResult struct {
	OrderID     int64
	Status      Status
	AlreadyPaid bool
}

// Pay is a stub payment: it moves an owned order from unpaid to paid. Paying
// an order that is already paid succeeds without touching it.
func (s *Service) Pay(ctx context.Context, ownerID, orderID int64) (PayResult, error) {
	const op = "orders.Pay"
	ctx, span := s.tracer.Start(ctx, op)
	defer span.End()

	var (
		res   PayResult
		order Order
	)
	err := s.store.WithTx(ctx, TxOptions{}, func(ctx context.Context, tx Tx) error {
		o, err := tx.OrderForOwner(ctx, orderID, ownerID)
		if err != nil {
			return err
		}
		if o.Status == StatusPaid {
			res = PayResult{OrderID: o.ID, Status: StatusPaid, AlreadyPaid: true}
			return nil
		}
		if !CanTransition(o.Status, StatusPaid) {
			return fmt.Errorf("order %d: cannot transition %s to %s", o.ID, o.Status, StatusPaid)
		}
		changed, err := tx.MarkPaid(ctx, o.ID)
		if err != nil {
			return fmt.Errorf("mark paid: %w", err)
		}
		// lost a race with a concurrent Pay
		if !changed {
			res = PayResult{OrderID: o.ID, Status: StatusPaid, AlreadyPaid: true}
			return nil
		}
		o.Status = StatusPaid
		order = o
		res = PayResult{OrderID: o.ID, Status: StatusPaid}
		return nil
	})
	if err != nil {
		err = classify(op, err)
		paymentTotal.WithLabelValues(outcome(err)).Inc()
		if KindOf(err) == KindInternal {
			s.logger(ctx).Error("pay failed", "order_id", orderID, "err", err)
		}
		return PayResult{}, err
	}
	if res.AlreadyPaid {
		paymentTotal.WithLabelValues("already_paid").Inc()
		return res, nil
	}
	paymentTotal.WithLabelValues("ok").Inc()

	if err := s.cache.Invalidate(ctx, order.ID); err != nil {
		s.logger(ctx).Warn("status cache invalidate", "order_id", order.ID, "err", err)
	}
	s.publish(ctx, EventOrderPaid, order.ID, OrderPaidPayload{OrderID: order.ID, OwnerID: order.OwnerID, Total: order.Total})
	s.logger(ctx).Info("order paid", "order_id", order.ID, "owner_id", order.OwnerID)
	return res, nil
}
