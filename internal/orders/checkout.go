package orders

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type CheckoutResult struct {
	Order Order
	Items []OrderItem
}

// Checkout turns items into one order with reserved stock. It is all or
// nothing: a failure on item k undoes the stock taken for items 1..k-1 and
// leaves no order behind.
func (s *Service) Checkout(ctx context.Context, ownerID int64, items []ItemInput) (CheckoutResult, error) {
	const op = "orders.Checkout"
	ctx, span := s.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.Int64("owner.id", ownerID),
		attribute.Int("items.count", len(items)),
	))
	defer span.End()

	res, err := s.checkout(ctx, op, ownerID, items)
	checkoutTotal.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(KindOf(err)))
		if KindOf(err) == KindInternal {
			s.logger(ctx).Error("checkout failed", "owner_id", ownerID, "err", err)
		} else {
			s.logger(ctx).Info("checkout rejected", "owner_id", ownerID, "kind", KindOf(err), "err", err)
		}
		return CheckoutResult{}, err
	}
	span.SetAttributes(attribute.Int64("order.id", res.Order.ID))

	s.publish(ctx, EventOrderPlaced, res.Order.ID, OrderPlacedPayload{
		OrderID: res.Order.ID,
		OwnerID: ownerID,
		Items:   res.Items,
		Total:   res.Order.Total,
	})
	s.logger(ctx).Info("order placed", "order_id", res.Order.ID, "owner_id", ownerID, "total", res.Order.Total.String())
	return res, nil
}

func (s *Service) checkout(ctx context.Context, op string, ownerID int64, items []ItemInput) (CheckoutResult, error) {
	if len(items) == 0 {
		return CheckoutResult{}, newError(op, KindInvalidRequest, ErrEmptyItems)
	}

	var res CheckoutResult
	err := s.store.WithTx(ctx, TxOptions{}, func(ctx context.Context, tx Tx) error {
		// provisional row first, items need its id
		order, err := tx.CreateOrder(ctx, ownerID, s.now())
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		var total Cents
		lines := make([]OrderItem, 0, len(items))
		for i, in := range items {
			if in.ProductID <= 0 || in.Quantity <= 0 {
				return newError(op, KindInvalidRequest, fmt.Errorf("item %d: %w", i, ErrInvalidItem))
			}

			p, err := tx.DecrementStock(ctx, in.ProductID, in.Quantity)
			if errors.Is(err, ErrInsufficientStock) || errors.Is(err, ErrProductNotFound) {
				return newError(op, KindInsufficientStock, fmt.Errorf("item %d (product %d): %w", i, in.ProductID, err))
			}
			if err != nil {
				return fmt.Errorf("decrement stock product %d: %w", in.ProductID, err)
			}

			line := OrderItem{OrderID: order.ID, ProductID: p.ID, Quantity: in.Quantity, Price: p.Price}
			sub, ok := line.Price.MulChecked(line.Quantity)
			if ok {
				total, ok = total.AddChecked(sub)
			}
			if !ok {
				return newError(op, KindInvalidRequest, fmt.Errorf("item %d (product %d): %w", i, in.ProductID, ErrAmountOverflow))
			}
			if err := tx.AddItem(ctx, line); err != nil {
				return fmt.Errorf("add item product %d: %w", in.ProductID, err)
			}
			lines = append(lines, line)
		}

		if err := tx.SetTotal(ctx, order.ID, total); err != nil {
			return fmt.Errorf("set total: %w", err)
		}
		order.Total = total
		res = CheckoutResult{Order: order, Items: lines}
		return nil
	})
	if err != nil {
		return CheckoutResult{}, classify(op, err)
	}
	return res, nil
}
