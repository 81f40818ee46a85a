package orders

import "time"

type Product struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Price     Cents     `json:"price"`
	Stock     int       `json:"stock"`
	OwnerID   int64     `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Order struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"owner_id"`
	Total     Cents     `json:"total"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// OrderItem keeps the unit price captured at checkout; later catalog price
// changes do not touch it.
type OrderItem struct {
	OrderID   int64 `json:"order_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
	Price     Cents `json:"price"`
}

func (it OrderItem) Subtotal() Cents { return it.Price.Mul(it.Quantity) }

// ItemInput is one requested line of a checkout.
type ItemInput struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type NewProduct struct {
	Name    string
	Price   Cents
	Stock   int
	OwnerID int64
}

type OrderDetail struct {
	Order
	Items []OrderItem `json:"items"`
}
