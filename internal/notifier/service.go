package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/oneshop/marketplace-orders/internal/checkout"
	kafkax "github.com/oneshop/marketplace-orders/internal/kafka"
	"github.com/oneshop/marketplace-orders/internal/redisx"
)

// Service fans out order events: it drops stale cached order copies so
// reads repopulate from the row, and logs the notification activity.
// Delivery channels (email, push) hang off this boundary.
type Service struct {
	Redis       *redis.Client
	Cache       *redisx.OrderCache
	Log         *zap.Logger
	ServiceName string
}

// HandleEvent is mounted as the consumer handler for both order topics.
func (s *Service) HandleEvent(ctx context.Context, m kafkago.Message) error {
	var env checkout.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}

	// dedup by event id
	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	if exists, _ := redisx.Exists(ctx, s.Redis, dkey); exists {
		return nil
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	switch env.EventType {
	case checkout.EventCheckoutCompleted:
		p, err := kafkax.UnwrapPayload[checkout.CheckoutCompletedPayload](env.Payload)
		if err != nil {
			return err
		}
		s.Log.Info("checkout completed",
			zap.String("order_id", p.OrderID),
			zap.String("order_type", p.OrderType),
			zap.Int("vendor_count", p.VendorCount),
			zap.Int("total_cents", p.TotalCents))

	case checkout.EventOrderStatusChanged:
		p, err := kafkax.UnwrapPayload[checkout.OrderStatusChangedPayload](env.Payload)
		if err != nil {
			return err
		}
		s.Cache.Invalidate(ctx, p.OrderID)
		s.Log.Info("order status changed",
			zap.String("order_id", p.OrderID),
			zap.String("from", string(p.From)),
			zap.String("to", string(p.To)),
			zap.Int("lines", len(p.Items)))

	default:
		// ignore foreign event types
	}
	return nil
}
