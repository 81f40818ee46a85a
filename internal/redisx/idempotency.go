package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-checkout-orders/internal/orders"
)

// CheckoutRecord is what a replayed Idempotency-Key returns.
type CheckoutRecord struct {
	OrderID int64        `json:"order_id"`
	Total   orders.Cents `json:"total"`
}

// IdempotencyStore scopes keys per owner so two users can reuse the same key.
type IdempotencyStore struct {
	rdb     *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
}

func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = TTLIdempotency
	}
	return &IdempotencyStore{rdb: rdb, ttl: ttl, lockTTL: TTLIdemLock}
}

func (s *IdempotencyStore) Recall(ctx context.Context, ownerID int64, key string) (CheckoutRecord, bool, error) {
	b, err := s.rdb.Get(ctx, fmt.Sprintf(KeyIdemCheckout, ownerID, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return CheckoutRecord{}, false, nil
	}
	if err != nil {
		return CheckoutRecord{}, false, err
	}
	var rec CheckoutRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return CheckoutRecord{}, false, fmt.Errorf("decode idempotency record: %w", err)
	}
	return rec, true, nil
}

// TryLock reports false when another request holds the key.
func (s *IdempotencyStore) TryLock(ctx context.Context, ownerID int64, key string) (bool, error) {
	return MarkOnce(ctx, s.rdb, fmt.Sprintf(KeyIdemCheckoutLock, ownerID, key), s.lockTTL)
}

func (s *IdempotencyStore) Unlock(ctx context.Context, ownerID int64, key string) error {
	return s.rdb.Del(ctx, fmt.Sprintf(KeyIdemCheckoutLock, ownerID, key)).Err()
}

func (s *IdempotencyStore) Remember(ctx context.Context, ownerID int64, key string, rec CheckoutRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, fmt.Sprintf(KeyIdemCheckout, ownerID, key), b, s.ttl).Err()
}
