package checkout

import (
	"context"

	"go.uber.org/zap"

	"github.com/oneshop/marketplace-orders/internal/catalog"
)

// ProductFinder looks up a cart item's product locally; nil means the item
// comes from an external catalog feed.
type ProductFinder interface {
	GetProduct(ctx context.Context, productID string) (*catalog.Product, error)
}

// SellerFinder fetches a seller's public profile.
type SellerFinder interface {
	GetSeller(ctx context.Context, sellerID string) (*Seller, error)
}

// Resolver maps a cart item to the seller responsible for it. Items with no
// local owner fall back to an explicitly configured seller of record rather
// than a lookup for "the" super-admin row.
type Resolver struct {
	Products         ProductFinder
	Sellers          SellerFinder
	FallbackSellerID string
	Log              *zap.Logger
}

// Resolution carries the attributed seller plus the local product when one
// exists, so grouping can snapshot the catalog price instead of trusting the
// cart's.
type Resolution struct {
	Seller  Seller
	Product *catalog.Product
}

// Resolve returns nil (no error) when the item cannot be attributed to any
// seller; callers skip such items with a warning instead of failing the cart.
func (r *Resolver) Resolve(ctx context.Context, productRef string) (*Resolution, error) {
	p, err := r.Products.GetProduct(ctx, productRef)
	if err != nil {
		return nil, err
	}
	if p != nil && p.SellerID != nil {
		s, err := r.Sellers.GetSeller(ctx, *p.SellerID)
		if err != nil {
			return nil, err
		}
		if s != nil {
			return &Resolution{Seller: *s, Product: p}, nil
		}
	}

	// External-feed item, or a local row with no owner: fall back.
	if r.FallbackSellerID == "" {
		r.Log.Warn("no fallback seller configured, item cannot be attributed",
			zap.String("product_ref", productRef))
		return nil, nil
	}
	s, err := r.Sellers.GetSeller(ctx, r.FallbackSellerID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		r.Log.Warn("fallback seller not found",
			zap.String("fallback_seller_id", r.FallbackSellerID),
			zap.String("product_ref", productRef))
		return nil, nil
	}
	return &Resolution{Seller: *s, Product: p}, nil
}
