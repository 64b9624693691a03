package checkout

import (
	"context"

	"go.uber.org/zap"
)

// GroupByVendor partitions a cart into per-seller groups in insertion order
// of first occurrence. Quantity defaults to 1. Items whose seller cannot be
// resolved are skipped and do not count toward any subtotal.
func (r *Resolver) GroupByVendor(ctx context.Context, items []CartItem) ([]VendorGroup, error) {
	index := map[string]int{}
	var groups []VendorGroup

	for _, it := range items {
		res, err := r.Resolve(ctx, it.ProductRef)
		if err != nil {
			return nil, err
		}
		if res == nil {
			r.Log.Warn("skipping cart item with no attributable seller",
				zap.String("product_ref", it.ProductRef))
			continue
		}

		if it.Qty <= 0 {
			it.Qty = 1
		}
		// Local products snapshot the catalog price and title.
		if res.Product != nil {
			it.PriceCents = res.Product.PriceCents
			if it.Title == "" {
				it.Title = res.Product.Title
			}
		}

		i, ok := index[res.Seller.ID]
		if !ok {
			i = len(groups)
			index[res.Seller.ID] = i
			groups = append(groups, VendorGroup{Seller: res.Seller})
		}
		groups[i].Items = append(groups[i].Items, it)
		groups[i].SubtotalCents += it.PriceCents * it.Qty
	}
	return groups, nil
}
