package checkout

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/oneshop/marketplace-orders/internal/catalog"
)

type fakeProducts struct{ m map[string]*catalog.Product }

func (f fakeProducts) GetProduct(_ context.Context, id string) (*catalog.Product, error) {
	return f.m[id], nil
}

type fakeSellers struct{ m map[string]*Seller }

func (f fakeSellers) GetSeller(_ context.Context, id string) (*Seller, error) {
	return f.m[id], nil
}

func strptr(s string) *string { return &s }

func seller(id, name string) *Seller {
	return &Seller{ID: id, Name: name, LastName: "Seller", Email: name + "@shop.test", Role: "seller"}
}

func localProduct(id, sellerID string, priceCents int) *catalog.Product {
	return &catalog.Product{ID: id, SellerID: strptr(sellerID), Title: "product " + id, PriceCents: priceCents, Stock: 100}
}

// newResolver wires a resolver over in-memory fakes.
func newResolver(products map[string]*catalog.Product, sellers map[string]*Seller, fallbackID string) *Resolver {
	return &Resolver{
		Products:         fakeProducts{products},
		Sellers:          fakeSellers{sellers},
		FallbackSellerID: fallbackID,
		Log:              zap.NewNop(),
	}
}

// recordingStore captures the plan it is asked to persist and can be primed
// to fail.
type recordingStore struct {
	plan *CheckoutPlan
	err  error
}

func (s *recordingStore) CreateCheckout(_ context.Context, plan *CheckoutPlan) error {
	if s.err != nil {
		return s.err
	}
	s.plan = plan
	return nil
}

// fakeLedger mirrors the conditional-update semantics of the SQL ledger in
// memory: a guard that fails leaves state untouched.
type fakeLedger struct {
	stock      map[string]int
	reserved   map[string]int
	releaseErr error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{stock: map[string]int{}, reserved: map[string]int{}}
}

func (l *fakeLedger) Reserve(_ context.Context, id string, qty int) error {
	if l.stock[id]-l.reserved[id] < qty {
		return fmt.Errorf("%w: product %s", catalog.ErrInsufficientStock, id)
	}
	l.reserved[id] += qty
	return nil
}

func (l *fakeLedger) Release(_ context.Context, id string, qty int) error {
	if l.releaseErr != nil {
		return l.releaseErr
	}
	l.reserved[id] -= qty
	if l.reserved[id] < 0 {
		l.reserved[id] = 0
	}
	return nil
}

func (l *fakeLedger) ConfirmDeduction(_ context.Context, id string, qty int) error {
	if l.stock[id] < qty {
		return fmt.Errorf("%w: product %s", catalog.ErrInsufficientStock, id)
	}
	l.stock[id] -= qty
	l.reserved[id] -= qty
	if l.reserved[id] < 0 {
		l.reserved[id] = 0
	}
	return nil
}

func (l *fakeLedger) IncreaseStock(_ context.Context, id string, qty int) error {
	l.stock[id] += qty
	return nil
}
