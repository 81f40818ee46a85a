// Package projector consumes order events and keeps the Redis status cache
// in step with the ledger.
package projector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/go-checkout-orders/internal/kafka"
	"github.com/ariefcatur/go-checkout-orders/internal/logging"
	"github.com/ariefcatur/go-checkout-orders/internal/orders"
	"github.com/ariefcatur/go-checkout-orders/internal/redisx"
)

var eventsHandled = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "order_events_handled_total",
		Help: "Order events seen by the projector by type and result",
	},
	[]string{"event_type", "result"},
)

type Service struct {
	Redis       *redis.Client
	Cache       orders.StatusCache
	ServiceName string
	Log         *slog.Logger
}

func (s *Service) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return logging.New("projector")
}

// HandleEvent is the consumer handler. Undecodable messages are dropped so
// they do not block the partition.
func (s *Service) HandleEvent(ctx context.Context, m kafkago.Message) error {
	env, err := kafkax.DecodeEnvelope(m.Value)
	if err != nil {
		s.logger().Error("drop undecodable message", "offset", m.Offset, "err", err)
		eventsHandled.WithLabelValues("unknown", "invalid").Inc()
		return nil
	}

	var next orders.CachedStatus
	switch env.EventType {
	case orders.EventOrderPlaced:
		p, err := orders.DecodePayload[orders.OrderPlacedPayload](env)
		if err != nil {
			return s.drop(env, err)
		}
		next = orders.CachedStatus{OrderID: p.OrderID, OwnerID: p.OwnerID, Status: orders.StatusUnpaid}
	case orders.EventOrderPaid:
		p, err := orders.DecodePayload[orders.OrderPaidPayload](env)
		if err != nil {
			return s.drop(env, err)
		}
		next = orders.CachedStatus{OrderID: p.OrderID, OwnerID: p.OwnerID, Status: orders.StatusPaid}
	default:
		eventsHandled.WithLabelValues(env.EventType, "ignored").Inc()
		return nil
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	first, err := redisx.MarkOnce(ctx, s.Redis, dkey, redisx.TTLDedup)
	if err != nil {
		return fmt.Errorf("dedup %s: %w", env.EventID, err)
	}
	if !first {
		eventsHandled.WithLabelValues(env.EventType, "duplicate").Inc()
		return nil
	}

	if err := s.project(ctx, next); err != nil {
		// let the redelivery try again
		if derr := s.Redis.Del(context.WithoutCancel(ctx), dkey).Err(); derr != nil {
			s.logger().Warn("release dedup key", "key", dkey, "err", derr)
		}
		eventsHandled.WithLabelValues(env.EventType, "error").Inc()
		return err
	}
	eventsHandled.WithLabelValues(env.EventType, "ok").Inc()
	s.logger().Info("projected order status", "order_id", next.OrderID, "status", next.Status, "event_id", env.EventID)
	return nil
}

// project writes st unless the cache already holds a status st cannot follow.
// Workers may run events of one order out of order; paid never reverts.
func (s *Service) project(ctx context.Context, st orders.CachedStatus) error {
	cur, ok, err := s.Cache.Get(ctx, st.OrderID)
	if err != nil {
		return fmt.Errorf("read status %d: %w", st.OrderID, err)
	}
	if ok && cur.Status != st.Status && !orders.CanTransition(cur.Status, st.Status) {
		return nil
	}
	if err := s.Cache.Set(ctx, st); err != nil {
		return fmt.Errorf("write status %d: %w", st.OrderID, err)
	}
	return nil
}

func (s *Service) drop(env orders.Envelope, err error) error {
	s.logger().Error("drop event with bad payload", "event_id", env.EventID, "event_type", env.EventType, "err", err)
	eventsHandled.WithLabelValues(env.EventType, "invalid").Inc()
	return nil
}
