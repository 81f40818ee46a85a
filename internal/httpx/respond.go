package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ariefcatur/go-checkout-orders/internal/logging"
	"github.com/ariefcatur/go-checkout-orders/internal/orders"
)

type errorResp struct {
	Error string `json:"error"`
}

type messageResp struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(k orders.Kind) int {
	switch k {
	case orders.KindInvalidRequest, orders.KindInsufficientStock:
		return http.StatusBadRequest
	case orders.KindNotFound:
		return http.StatusNotFound
	case orders.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

var publicMessages = []struct {
	err error
	msg string
}{
	{orders.ErrEmptyItems, "Items must be a non-empty list"},
	{orders.ErrInvalidItem, "Invalid product or quantity"},
	{orders.ErrOrderNotFound, "Order not found"},
	{orders.ErrProductNotFound, "Product not found"},
	{orders.ErrProductReferenced, "Product is referenced by existing orders"},
	{orders.ErrProductName, "Product name is required"},
	{orders.ErrProductPrice, "Price must be non-negative"},
	{orders.ErrProductStock, "Stock must be an integer between 0 and 2147483647"},
	{orders.ErrInvalidAmount, "Price must be a number with at most two decimals"},
	{orders.ErrAmountOverflow, "Order total out of range"},
}

// writeError maps a service error to its status. Internal errors are logged
// and answered with internalMsg only.
func writeError(w http.ResponseWriter, r *http.Request, err error, internalMsg string) {
	kind := orders.KindOf(err)
	if kind == orders.KindInternal {
		logging.FromCtx(r.Context()).Error("request failed", "path", r.URL.Path, "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResp{Error: internalMsg})
		return
	}
	writeJSON(w, statusFor(kind), errorResp{Error: publicMessage(kind, err)})
}

func publicMessage(kind orders.Kind, err error) string {
	if kind == orders.KindInsufficientStock {
		return "Invalid product or insufficient stock"
	}
	for _, pm := range publicMessages {
		if errors.Is(err, pm.err) {
			return pm.msg
		}
	}
	return string(kind)
}
