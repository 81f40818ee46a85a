package redisx

import "time"

const (
	// Idempotent checkout: idem:checkout:{owner_id}:{key} -> order json
	KeyIdemCheckout = "idem:checkout:%d:%s"
	// In-flight lock for the same idempotency key.
	KeyIdemCheckoutLock = "idem:checkout:lock:%d:%s"

	// Cached status: order_status:{order_id} -> {"order_id":..,"owner_id":..,"status":".."}
	KeyOrderStatus = "order_status:%d"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLIdemLock    = 30 * time.Second
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
