package kafka

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestProducerCloseThenCancel(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, "orders", 8, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	// The shutdown ordering the API server uses: close, then cancel the
	// root context. The flush loop may observe either first.
	p.Close()
	cancel()
	p.WaitClosed()

	// Close stays idempotent after the loop has exited.
	p.Close()
}

func TestProducerCancelThenClose(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, "orders", 8, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	cancel()
	p.Close()
	p.WaitClosed()
}
