package directsale

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubStore struct {
	sale       *SaleResult
	saleErr    error
	gotInput   SaleInput
	gotLimit   int
	gotOffset  int
	gotDay     time.Time
	search     *SearchResult
	summary    *DailySummary
}

func (s *stubStore) CreateSale(_ context.Context, in SaleInput) (*SaleResult, error) {
	s.gotInput = in
	if s.saleErr != nil {
		return nil, s.saleErr
	}
	return s.sale, nil
}

func (s *stubStore) SearchAvailable(_ context.Context, _, _ string, limit, offset int) (*SearchResult, error) {
	s.gotLimit, s.gotOffset = limit, offset
	return s.search, nil
}

func (s *stubStore) DailySummary(_ context.Context, day time.Time) (*DailySummary, error) {
	s.gotDay = day
	return s.summary, nil
}

func TestValidateSale(t *testing.T) {
	valid := SaleInput{
		CustomerName: "Walk-in",
		Items:        []SaleItem{{ProductID: "p1", Qty: 2}},
	}
	assert.NoError(t, ValidateSale(valid))

	cases := []struct {
		name string
		in   SaleInput
		want error
	}{
		{"no customer", SaleInput{Items: []SaleItem{{ProductID: "p1", Qty: 1}}}, ErrMissingCustomer},
		{"no items", SaleInput{BuyerID: "u1"}, ErrNoItems},
		{"zero qty", SaleInput{BuyerID: "u1", Items: []SaleItem{{ProductID: "p1"}}}, ErrInvalidItem},
		{"negative qty", SaleInput{BuyerID: "u1", Items: []SaleItem{{ProductID: "p1", Qty: -1}}}, ErrInvalidItem},
		{"missing product", SaleInput{BuyerID: "u1", Items: []SaleItem{{Qty: 1}}}, ErrInvalidItem},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.ErrorIs(t, ValidateSale(c.in), c.want)
		})
	}
}

func TestCreateSale_PassesThroughStore(t *testing.T) {
	store := &stubStore{sale: &SaleResult{
		OrderID:    "o1",
		BuyerID:    "u1",
		TotalCents: 4500,
		Status:     "DELIVERED",
		Lines:      []SoldLine{{ProductID: "p1", Qty: 3, PriceCents: 1500, Subtotal: 4500}},
	}}
	svc := &Service{Store: store, Log: zap.NewNop()}

	in := SaleInput{BuyerID: "u1", Items: []SaleItem{{ProductID: "p1", Qty: 3}}}
	res, err := svc.CreateSale(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "o1", res.OrderID)
	assert.Equal(t, "DELIVERED", res.Status)
	assert.Equal(t, in, store.gotInput)
}

func TestCreateSale_InvalidInputNeverHitsStore(t *testing.T) {
	store := &stubStore{}
	svc := &Service{Store: store, Log: zap.NewNop()}

	_, err := svc.CreateSale(context.Background(), SaleInput{BuyerID: "u1"})
	assert.ErrorIs(t, err, ErrNoItems)
	assert.Empty(t, store.gotInput.BuyerID)
}

func TestCreateSale_StoreErrorPropagates(t *testing.T) {
	boom := errors.New("insufficient stock")
	svc := &Service{Store: &stubStore{saleErr: boom}, Log: zap.NewNop()}

	_, err := svc.CreateSale(context.Background(), SaleInput{
		BuyerID: "u1",
		Items:   []SaleItem{{ProductID: "p1", Qty: 1}},
	})
	assert.ErrorIs(t, err, boom)
}

func TestSearchAvailable_ClampsPaging(t *testing.T) {
	store := &stubStore{search: &SearchResult{}}
	svc := &Service{Store: store, Log: zap.NewNop()}

	_, err := svc.SearchAvailable(context.Background(), "", "", 0, -5)
	require.NoError(t, err)
	assert.Equal(t, 20, store.gotLimit)
	assert.Equal(t, 0, store.gotOffset)

	_, err = svc.SearchAvailable(context.Background(), "", "", 500, 40)
	require.NoError(t, err)
	assert.Equal(t, 20, store.gotLimit)
	assert.Equal(t, 40, store.gotOffset)

	_, err = svc.SearchAvailable(context.Background(), "", "", 50, 0)
	require.NoError(t, err)
	assert.Equal(t, 50, store.gotLimit)
}

func TestDailySummary_DefaultsToToday(t *testing.T) {
	store := &stubStore{summary: &DailySummary{}}
	svc := &Service{Store: store, Log: zap.NewNop()}

	_, err := svc.DailySummary(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), store.gotDay, time.Minute)

	day := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	_, err = svc.DailySummary(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, day, store.gotDay)
}
