package orders

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Store implementations. Service methods wrap
// them in *Error so callers can switch on Kind.
var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrOrderNotFound     = errors.New("order not found")
	ErrProductReferenced = errors.New("product is referenced by orders")
	ErrEmptyItems        = errors.New("items must be a non-empty list")
	ErrInvalidItem       = errors.New("invalid product or quantity")
)

type Kind string

const (
	KindInvalidRequest    Kind = "invalid_request"
	KindInsufficientStock Kind = "insufficient_stock_or_not_found"
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindInternal          Kind = "internal"
)

type Error struct {
	Kind Kind
	Op   string // e.g. "orders.Checkout"
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// KindOf reports the Kind of err. Errors that are not *Error are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// classify maps store sentinels to kinds; anything unexpected is internal.
func classify(op string, err error) error {
	var e *Error
	switch {
	case errors.As(err, &e):
		return err
	case errors.Is(err, ErrEmptyItems), errors.Is(err, ErrInvalidItem), errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrAmountOverflow):
		return newError(op, KindInvalidRequest, err)
	case errors.Is(err, ErrInsufficientStock):
		return newError(op, KindInsufficientStock, err)
	case errors.Is(err, ErrProductNotFound), errors.Is(err, ErrOrderNotFound):
		return newError(op, KindNotFound, err)
	case errors.Is(err, ErrProductReferenced):
		return newError(op, KindConflict, err)
	default:
		return newError(op, KindInternal, err)
	}
}
