package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-checkout-orders/internal/logging"
	"github.com/ariefcatur/go-checkout-orders/internal/orders"
	"github.com/ariefcatur/go-checkout-orders/internal/redisx"
)

const HeaderIdempotencyKey = "Idempotency-Key"

type IdempotencyStore interface {
	Recall(ctx context.Context, ownerID int64, key string) (redisx.CheckoutRecord, bool, error)
	TryLock(ctx context.Context, ownerID int64, key string) (bool, error)
	Unlock(ctx context.Context, ownerID int64, key string) error
	Remember(ctx context.Context, ownerID int64, key string, rec redisx.CheckoutRecord) error
}

type OrdersHandler struct {
	svc  *orders.Service
	idem IdempotencyStore
}

type CheckoutReq struct {
	Items []orders.ItemInput `json:"items"`
}

type CheckoutResp struct {
	Message    string       `json:"message"`
	OrderID    int64        `json:"order_id"`
	Total      orders.Cents `json:"total"`
	Idempotent bool         `json:"idempotent,omitempty"`
}

type OrderSummary struct {
	ID        int64         `json:"id"`
	Total     orders.Cents  `json:"total"`
	Status    orders.Status `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

type OrderLine struct {
	ProductID int64        `json:"product_id"`
	Quantity  int          `json:"quantity"`
	Price     orders.Cents `json:"price"`
	Subtotal  orders.Cents `json:"subtotal"`
}

type OrderDetailResp struct {
	OrderSummary
	Items []OrderLine `json:"items"`
}

type StatusResp struct {
	OrderID int64         `json:"order_id"`
	Status  orders.Status `json:"status"`
}

type PayResp struct {
	Message string        `json:"message"`
	OrderID int64         `json:"order_id"`
	Status  orders.Status `json:"status"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/checkout", h.checkout)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/status", h.orderStatus)
	r.Post("/pay/{orderId}", h.pay)
}

func summary(o orders.Order) OrderSummary {
	return OrderSummary{ID: o.ID, Total: o.Total, Status: o.Status, CreatedAt: o.CreatedAt}
}

// pathID parses a positive id from the route. Callers answer 404 on failure:
// no order or product can live under such an id.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

func (h *OrdersHandler) checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp{Error: "invalid json"})
		return
	}
	ctx := r.Context()
	id := mustIdentity(r)
	log := logging.FromCtx(ctx)

	key := strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey))
	if h.idem == nil {
		key = ""
	}
	if key != "" {
		if rec, ok := h.recall(ctx, id.UserID, key); ok {
			writeJSON(w, http.StatusOK, CheckoutResp{Message: "Order placed", OrderID: rec.OrderID, Total: rec.Total, Idempotent: true})
			return
		}
		locked, err := h.idem.TryLock(ctx, id.UserID, key)
		switch {
		case err != nil:
			// redis down: serve the checkout without replay protection
			log.Warn("idempotency lock", "err", err)
			key = ""
		case !locked:
			writeJSON(w, http.StatusConflict, errorResp{Error: "Checkout with this Idempotency-Key is in progress"})
			return
		default:
			defer func() {
				if err := h.idem.Unlock(context.WithoutCancel(ctx), id.UserID, key); err != nil {
					log.Warn("idempotency unlock", "err", err)
				}
			}()
			// the holder before us may have finished between Recall and TryLock
			if rec, ok := h.recall(ctx, id.UserID, key); ok {
				writeJSON(w, http.StatusOK, CheckoutResp{Message: "Order placed", OrderID: rec.OrderID, Total: rec.Total, Idempotent: true})
				return
			}
		}
	}

	res, err := h.svc.Checkout(ctx, id.UserID, req.Items)
	if err != nil {
		writeError(w, r, err, "Checkout failed")
		return
	}
	if key != "" {
		rec := redisx.CheckoutRecord{OrderID: res.Order.ID, Total: res.Order.Total}
		if err := h.idem.Remember(context.WithoutCancel(ctx), id.UserID, key, rec); err != nil {
			log.Warn("idempotency remember", "order_id", res.Order.ID, "err", err)
		}
	}
	writeJSON(w, http.StatusCreated, CheckoutResp{Message: "Order placed", OrderID: res.Order.ID, Total: res.Order.Total})
}

func (h *OrdersHandler) recall(ctx context.Context, ownerID int64, key string) (redisx.CheckoutRecord, bool) {
	rec, ok, err := h.idem.Recall(ctx, ownerID, key)
	if err != nil {
		logging.FromCtx(ctx).Warn("idempotency recall", "err", err)
		return redisx.CheckoutRecord{}, false
	}
	return rec, ok
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListOrders(r.Context(), mustIdentity(r).UserID)
	if err != nil {
		writeError(w, r, err, "Failed to list orders")
		return
	}
	out := make([]OrderSummary, 0, len(list))
	for _, o := range list {
		out = append(out, summary(o))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp{Error: "Order not found"})
		return
	}
	d, err := h.svc.GetOrder(r.Context(), mustIdentity(r).UserID, orderID)
	if err != nil {
		writeError(w, r, err, "Failed to load order")
		return
	}
	resp := OrderDetailResp{OrderSummary: summary(d.Order), Items: make([]OrderLine, 0, len(d.Items))}
	for _, it := range d.Items {
		resp.Items = append(resp.Items, OrderLine{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
			Subtotal:  it.Subtotal(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *OrdersHandler) orderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp{Error: "Order not found"})
		return
	}
	st, err := h.svc.OrderStatus(r.Context(), mustIdentity(r).UserID, orderID)
	if err != nil {
		writeError(w, r, err, "Failed to load order status")
		return
	}
	writeJSON(w, http.StatusOK, StatusResp{OrderID: orderID, Status: st})
}

func (h *OrdersHandler) pay(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(r, "orderId")
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp{Error: "Order not found"})
		return
	}
	res, err := h.svc.Pay(r.Context(), mustIdentity(r).UserID, orderID)
	if err != nil {
		writeError(w, r, err, "Payment failed")
		return
	}
	msg := "Payment successful"
	if res.AlreadyPaid {
		msg = "Order already paid"
	}
	writeJSON(w, http.StatusOK, PayResp{Message: msg, OrderID: res.OrderID, Status: res.Status})
}

func (h *OrdersHandler) adminOrders(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.svc.RecentOrders(r.Context(), limit)
	if err != nil {
		writeError(w, r, err, "Failed to list orders")
		return
	}
	writeJSON(w, http.StatusOK, list)
}
