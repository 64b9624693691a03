package directsale

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/oneshop/marketplace-orders/internal/metrics"
)

var (
	ErrNoItems         = errors.New("at least one item is required")
	ErrInvalidItem     = errors.New("invalid sale item")
	ErrMissingCustomer = errors.New("buyer id or customer name is required")
)

type Store interface {
	CreateSale(ctx context.Context, in SaleInput) (*SaleResult, error)
	SearchAvailable(ctx context.Context, query, category string, limit, offset int) (*SearchResult, error)
	DailySummary(ctx context.Context, day time.Time) (*DailySummary, error)
}

// Service is the point-of-sale flow: items are delivered on the spot, so
// stock is deducted directly without a reservation phase.
type Service struct {
	Store Store
	Log   *zap.Logger
}

func ValidateSale(in SaleInput) error {
	if in.BuyerID == "" && in.CustomerName == "" {
		return ErrMissingCustomer
	}
	if len(in.Items) == 0 {
		return ErrNoItems
	}
	for _, it := range in.Items {
		if it.ProductID == "" || it.Qty <= 0 {
			return ErrInvalidItem
		}
	}
	return nil
}

func (s *Service) CreateSale(ctx context.Context, in SaleInput) (*SaleResult, error) {
	if err := ValidateSale(in); err != nil {
		return nil, err
	}
	res, err := s.Store.CreateSale(ctx, in)
	if err != nil {
		metrics.DirectSales.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.DirectSales.WithLabelValues("success").Inc()
	s.Log.Info("direct sale completed",
		zap.String("order_id", res.OrderID),
		zap.Int("total_cents", res.TotalCents),
		zap.Int("lines", len(res.Lines)))
	return res, nil
}

func (s *Service) SearchAvailable(ctx context.Context, query, category string, limit, offset int) (*SearchResult, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.Store.SearchAvailable(ctx, query, category, limit, offset)
}

func (s *Service) DailySummary(ctx context.Context, day time.Time) (*DailySummary, error) {
	if day.IsZero() {
		day = time.Now()
	}
	return s.Store.DailySummary(ctx, day)
}
