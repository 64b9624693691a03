package redisx

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// OrderCache holds each order's full serialized JSON under order:{id}.
// Writers invalidate, readers repopulate on miss, so a cache hit serves the
// exact shape a miss would. Nil receiver and nil client are both no-ops.
type OrderCache struct{ R *redis.Client }

func (c *OrderCache) Get(ctx context.Context, orderID string) ([]byte, bool) {
	if c == nil || c.R == nil {
		return nil, false
	}
	raw, err := c.R.Get(ctx, fmt.Sprintf(KeyOrder, orderID)).Bytes()
	if err != nil || len(raw) == 0 {
		return nil, false
	}
	return raw, true
}

func (c *OrderCache) Set(ctx context.Context, orderID string, raw []byte) {
	if c == nil || c.R == nil {
		return
	}
	_ = c.R.Set(ctx, fmt.Sprintf(KeyOrder, orderID), raw, TTLOrderCache).Err()
}

func (c *OrderCache) Invalidate(ctx context.Context, orderID string) {
	if c == nil || c.R == nil {
		return
	}
	_ = c.R.Del(ctx, fmt.Sprintf(KeyOrder, orderID)).Err()
}
