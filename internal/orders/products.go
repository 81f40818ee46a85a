package orders

import (
	"context"
	"errors"
	"math"
	"strings"
)

// MaxStock matches the products.stock INT column.
const MaxStock = math.MaxInt32

var (
	ErrProductName  = errors.New("product name is required")
	ErrProductPrice = errors.New("price must be non-negative")
	ErrProductStock = errors.New("stock must be an integer between 0 and 2147483647")
)

func (s *Service) CreateProduct(ctx context.Context, p NewProduct) (Product, error) {
	const op = "orders.CreateProduct"
	p.Name = strings.TrimSpace(p.Name)
	switch {
	case p.Name == "":
		return Product{}, newError(op, KindInvalidRequest, ErrProductName)
	case p.Price < 0:
		return Product{}, newError(op, KindInvalidRequest, ErrProductPrice)
	case p.Stock < 0 || p.Stock > MaxStock:
		return Product{}, newError(op, KindInvalidRequest, ErrProductStock)
	}

	var out Product
	err := s.store.WithTx(ctx, TxOptions{}, func(ctx context.Context, tx Tx) error {
		var err error
		out, err = tx.CreateProduct(ctx, p, s.now())
		return err
	})
	if err != nil {
		return Product{}, classify(op, err)
	}
	return out, nil
}

func (s *Service) ListProducts(ctx context.Context, ownerID int64) ([]Product, error) {
	const op = "orders.ListProducts"
	var out []Product
	err := s.store.WithTx(ctx, TxOptions{ReadOnly: true}, func(ctx context.Context, tx Tx) error {
		var err error
		out, err = tx.ProductsByOwner(ctx, ownerID)
		return err
	})
	if err != nil {
		return nil, classify(op, err)
	}
	if out == nil {
		out = []Product{}
	}
	return out, nil
}

// DeleteProduct removes a product created by ownerID. Products still
// referenced by an order item are kept.
func (s *Service) DeleteProduct(ctx context.Context, ownerID, productID int64) error {
	const op = "orders.DeleteProduct"
	err := s.store.WithTx(ctx, TxOptions{}, func(ctx context.Context, tx Tx) error {
		return tx.DeleteProduct(ctx, ownerID, productID)
	})
	if err != nil {
		return classify(op, err)
	}
	return nil
}
