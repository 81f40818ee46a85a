package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-checkout-orders/internal/orders"
)

type ProductsHandler struct {
	svc *orders.Service
}

type CreateProductReq struct {
	Name  string       `json:"name"`
	Price orders.Cents `json:"price"`
	Stock int          `json:"stock"`
}

type ProductResp struct {
	ID    int64        `json:"id"`
	Name  string       `json:"name"`
	Price orders.Cents `json:"price"`
	Stock int          `json:"stock"`
}

func (h *ProductsHandler) Register(r chi.Router) {
	r.Post("/products", h.create)
	r.Get("/products", h.list)
	r.Delete("/products/{id}", h.delete)
}

func productResp(p orders.Product) ProductResp {
	return ProductResp{ID: p.ID, Name: p.Name, Price: p.Price, Stock: p.Stock}
}

func (h *ProductsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateProductReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		msg := "invalid json"
		if errors.Is(err, orders.ErrInvalidAmount) {
			msg = "Price must be a number with at most two decimals"
		}
		writeJSON(w, http.StatusBadRequest, errorResp{Error: msg})
		return
	}
	p, err := h.svc.CreateProduct(r.Context(), orders.NewProduct{
		Name:    req.Name,
		Price:   req.Price,
		Stock:   req.Stock,
		OwnerID: mustIdentity(r).UserID,
	})
	if err != nil {
		writeError(w, r, err, "Failed to create product")
		return
	}
	writeJSON(w, http.StatusCreated, productResp(p))
}

func (h *ProductsHandler) list(w http.ResponseWriter, r *http.Request) {
	ps, err := h.svc.ListProducts(r.Context(), mustIdentity(r).UserID)
	if err != nil {
		writeError(w, r, err, "Failed to list products")
		return
	}
	out := make([]ProductResp, 0, len(ps))
	for _, p := range ps {
		out = append(out, productResp(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ProductsHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp{Error: "Product not found"})
		return
	}
	if err := h.svc.DeleteProduct(r.Context(), mustIdentity(r).UserID, id); err != nil {
		writeError(w, r, err, "Failed to delete product")
		return
	}
	writeJSON(w, http.StatusOK, messageResp{Message: "Product deleted"})
}
