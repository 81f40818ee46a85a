package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ariefcatur/go-checkout-orders/internal/logging"
	"github.com/ariefcatur/go-checkout-orders/internal/orders"
)

type Deps struct {
	Orders *orders.Service
	Auth   *Authenticator

	// Idempotency is optional; without it Idempotency-Key is ignored.
	Idempotency IdempotencyStore

	Logger         *slog.Logger
	RequestTimeout time.Duration

	// Ready backs /healthz when set.
	Ready func(ctx context.Context) error
}

func NewRouter(d Deps) *chi.Mux {
	if d.Logger == nil {
		d.Logger = logging.New("http")
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 15 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(d.Logger), middleware.Recoverer, metrics)
	r.Use(middleware.Timeout(d.RequestTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			if err := d.Ready(r.Context()); err != nil {
				logging.FromCtx(r.Context()).Warn("health check", "err", err)
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	oh := &OrdersHandler{svc: d.Orders, idem: d.Idempotency}
	ph := &ProductsHandler{svc: d.Orders}
	r.Group(func(r chi.Router) {
		r.Use(d.Auth.Middleware)
		oh.Register(r)
		ph.Register(r)
		r.With(RequireRole(RoleAdmin)).Get("/admin/orders", oh.adminOrders)
	})
	return r
}
