package orders

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/ariefcatur/go-checkout-orders/internal/logging"
)

// EventPublisher ships order events after a successful commit. Publishing is
// best effort: a failure is logged and never undoes the committed order.
type EventPublisher interface {
	Publish(ctx context.Context, key []byte, env Envelope) error
}

type CachedStatus struct {
	OrderID int64  `json:"order_id"`
	OwnerID int64  `json:"owner_id"`
	Status  Status `json:"status"`
}

type StatusCache interface {
	Get(ctx context.Context, orderID int64) (CachedStatus, bool, error)
	Set(ctx context.Context, st CachedStatus) error
	Invalidate(ctx context.Context, orderID int64) error
}

type Service struct {
	store    Store
	events   EventPublisher
	cache    StatusCache
	log      *slog.Logger
	now      func() time.Time
	producer string
	tracer   trace.Tracer
}

type Option func(*Service)

func WithEvents(p EventPublisher) Option { return func(s *Service) { s.events = p } }
func WithStatusCache(c StatusCache) Option { return func(s *Service) { s.cache = c } }
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.log = l } }
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}
func WithProducerName(name string) Option { return func(s *Service) { s.producer = name } }

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		events:   nopPublisher{},
		cache:    nopCache{},
		now:      time.Now,
		producer: "checkout-api",
		tracer:   otel.Tracer("github.com/ariefcatur/go-checkout-orders/internal/orders"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) logger(ctx context.Context) *slog.Logger {
	if s.log != nil {
		return s.log
	}
	return logging.FromCtx(ctx)
}

func (s *Service) publish(ctx context.Context, eventType string, orderID int64, payload any) {
	var traceID string
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		traceID = sc.TraceID().String()
	}
	env, err := NewEnvelope(eventType, s.producer, traceID, orderID, payload, s.now())
	if err == nil {
		err = s.events.Publish(ctx, PartitionKey(orderID), env)
	}
	if err != nil {
		s.logger(ctx).Error("publish event", "event_type", eventType, "order_id", orderID, "err", err)
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, []byte, Envelope) error { return nil }

type nopCache struct{}

func (nopCache) Get(context.Context, int64) (CachedStatus, bool, error) {
	return CachedStatus{}, false, nil
}
func (nopCache) Set(context.Context, CachedStatus) error { return nil }
func (nopCache) Invalidate(context.Context, int64) error { return nil }

// DecodePayload unwraps the typed payload of an envelope.
func DecodePayload[T any](env Envelope) (T, error) {
	var t T
	err := json.Unmarshal(env.Payload, &t)
	return t, err
}
