package checkout

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneshop/marketplace-orders/internal/catalog"
)

func TestGroupByVendor_ThreeVendors(t *testing.T) {
	products := map[string]*catalog.Product{
		"p1": localProduct("p1", "v1", 1000),
		"p2": localProduct("p2", "v2", 2500),
		"p3": localProduct("p3", "v3", 500),
		"p4": localProduct("p4", "v1", 300),
	}
	sellers := map[string]*Seller{
		"v1": seller("v1", "alice"),
		"v2": seller("v2", "bob"),
		"v3": seller("v3", "carol"),
	}
	r := newResolver(products, sellers, "")

	groups, err := r.GroupByVendor(context.Background(), []CartItem{
		{ProductRef: "p1", Qty: 2},
		{ProductRef: "p2", Qty: 1},
		{ProductRef: "p3", Qty: 4},
		{ProductRef: "p4", Qty: 1},
	})
	require.NoError(t, err)
	require.Len(t, groups, 3)

	// insertion order of first occurrence
	assert.Equal(t, "v1", groups[0].Seller.ID)
	assert.Equal(t, "v2", groups[1].Seller.ID)
	assert.Equal(t, "v3", groups[2].Seller.ID)

	// p1 and p4 share vendor v1
	assert.Len(t, groups[0].Items, 2)
	assert.Equal(t, 2*1000+300, groups[0].SubtotalCents)
	assert.Equal(t, 2500, groups[1].SubtotalCents)
	assert.Equal(t, 4*500, groups[2].SubtotalCents)
}

func TestGroupByVendor_QtyDefaultsToOne(t *testing.T) {
	products := map[string]*catalog.Product{"p1": localProduct("p1", "v1", 700)}
	sellers := map[string]*Seller{"v1": seller("v1", "alice")}
	r := newResolver(products, sellers, "")

	groups, err := r.GroupByVendor(context.Background(), []CartItem{{ProductRef: "p1"}})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, 1, groups[0].Items[0].Qty)
	assert.Equal(t, 700, groups[0].SubtotalCents)
}

func TestGroupByVendor_LocalPriceIsSnapshot(t *testing.T) {
	// The cart claims a lower price; the catalog row wins for local products.
	products := map[string]*catalog.Product{"p1": localProduct("p1", "v1", 900)}
	sellers := map[string]*Seller{"v1": seller("v1", "alice")}
	r := newResolver(products, sellers, "")

	groups, err := r.GroupByVendor(context.Background(), []CartItem{
		{ProductRef: "p1", PriceCents: 1, Qty: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, 3*900, groups[0].SubtotalCents)
	assert.Equal(t, 900, groups[0].Items[0].PriceCents)
}

func TestGroupByVendor_ExternalItemFallsBackToConfiguredSeller(t *testing.T) {
	sellers := map[string]*Seller{"admin": seller("admin", "root")}
	r := newResolver(map[string]*catalog.Product{}, sellers, "admin")

	groups, err := r.GroupByVendor(context.Background(), []CartItem{
		{ProductRef: "ext-42", PriceCents: 1500, Qty: 2},
	})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "admin", groups[0].Seller.ID)
	// External items keep the cart's price: there is no catalog row.
	assert.Equal(t, 3000, groups[0].SubtotalCents)
}

func TestGroupByVendor_SkipsUnattributableItems(t *testing.T) {
	products := map[string]*catalog.Product{"p1": localProduct("p1", "v1", 1000)}
	sellers := map[string]*Seller{"v1": seller("v1", "alice")}
	r := newResolver(products, sellers, "") // no fallback configured

	groups, err := r.GroupByVendor(context.Background(), []CartItem{
		{ProductRef: "p1", Qty: 1},
		{ProductRef: "ext-99", PriceCents: 9999, Qty: 1},
	})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, 1000, groups[0].SubtotalCents)
}

func TestResolve_OwnerlessLocalProductUsesFallback(t *testing.T) {
	products := map[string]*catalog.Product{
		"p1": {ID: "p1", Title: "orphan", PriceCents: 100, Stock: 5},
	}
	sellers := map[string]*Seller{"admin": seller("admin", "root")}
	r := newResolver(products, sellers, "admin")

	res, err := r.Resolve(context.Background(), "p1")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "admin", res.Seller.ID)
	require.NotNil(t, res.Product)
}

func TestResolve_UnknownFallbackReturnsNil(t *testing.T) {
	r := newResolver(map[string]*catalog.Product{}, map[string]*Seller{}, "ghost")

	res, err := r.Resolve(context.Background(), "ext-1")
	require.NoError(t, err)
	assert.Nil(t, res)
}
