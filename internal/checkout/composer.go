package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/oneshop/marketplace-orders/internal/kafka"
	"github.com/oneshop/marketplace-orders/internal/metrics"
)

var (
	ErrMissingBuyer      = errors.New("buyer id is required")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrNoResolvableItems = errors.New("no cart item could be attributed to a seller")
	ErrConflict          = errors.New("conflicting or referenced data")
)

// ShortageItem reports one cart line that failed the availability pre-check.
type ShortageItem struct {
	ProductRef     string `json:"product_ref"`
	Title          string `json:"title,omitempty"`
	RequestedQty   int    `json:"requested_qty"`
	StockAvailable int    `json:"stock_available"`
	StockReserved  int    `json:"stock_reserved"`
	Message        string `json:"message"`
}

// ShortageError aborts a checkout before any row is written. It lists every
// failing item, not just the first.
type ShortageError struct {
	Items []ShortageItem `json:"items"`
}

func (e *ShortageError) Error() string {
	refs := make([]string, 0, len(e.Items))
	for _, it := range e.Items {
		refs = append(refs, it.ProductRef)
	}
	return "insufficient stock for: " + strings.Join(refs, ", ")
}

// PlannedOrder is one order of the graph to persist, ids already assigned.
type PlannedOrder struct {
	Order Order      `json:"order"`
	Items []LineItem `json:"items"`
}

// CheckoutPlan is the fully-decided order graph for one cart: either Simple
// is set, or Master plus one Sub per vendor. Built before the transaction,
// persisted all-or-nothing inside it.
type CheckoutPlan struct {
	BuyerID       string
	LocationID    *string
	Simple        *PlannedOrder
	Master        *PlannedOrder
	Subs          []PlannedOrder
	Notifications []Notification
	TotalCents    int
	VendorCount   int
}

// orders returns every planned order that carries line items.
func (p *CheckoutPlan) lineOrders() []PlannedOrder {
	if p.Simple != nil {
		return []PlannedOrder{*p.Simple}
	}
	return p.Subs
}

// Store persists a checkout plan in one atomic transaction, running the
// availability pre-check inside the same transaction. A failed pre-check
// surfaces as *ShortageError with zero rows written.
type Store interface {
	CreateCheckout(ctx context.Context, plan *CheckoutPlan) error
}

// EventPublisher is the slice of the kafka producer the composer needs.
type EventPublisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type CheckoutResult struct {
	Success     bool    `json:"success"`
	SimpleOrder *Order  `json:"simple_order,omitempty"`
	MasterOrder *Order  `json:"master_order,omitempty"`
	SubOrders   []Order `json:"sub_orders,omitempty"`
	TotalCents  int     `json:"total_cents"`
	VendorCount int     `json:"vendor_count"`
}

type PreviewResult struct {
	Groups      []VendorGroup `json:"groups"`
	TotalCents  int           `json:"total_cents"`
	VendorCount int           `json:"vendor_count"`
	Shared      bool          `json:"shared"`
}

// Service is the order composer: it turns a cart into a persisted order
// graph, splitting by vendor where needed.
type Service struct {
	Resolver    *Resolver
	Store       Store
	Producer    EventPublisher
	Log         *zap.Logger
	ServiceName string
}

// ProcessCheckout validates, groups, plans and persists. The plan is built
// outside the transaction (reads only); persistence plus the availability
// pre-check happen inside one transaction in the store.
func (s *Service) ProcessCheckout(ctx context.Context, buyerID string, items []CartItem, locationID string) (*CheckoutResult, error) {
	if buyerID == "" {
		return nil, ErrMissingBuyer
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	groups, err := s.Resolver.GroupByVendor(ctx, items)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, ErrNoResolvableItems
	}

	plan := BuildPlan(buyerID, locationID, groups, s.Resolver.FallbackSellerID)

	if err := s.Store.CreateCheckout(ctx, plan); err != nil {
		var shortage *ShortageError
		if errors.As(err, &shortage) {
			metrics.StockConflicts.Inc()
			metrics.Checkouts.WithLabelValues("shortage").Inc()
			s.Log.Warn("checkout rejected, insufficient stock",
				zap.String("buyer_id", buyerID),
				zap.Int("short_items", len(shortage.Items)))
		} else {
			metrics.Checkouts.WithLabelValues("error").Inc()
			s.Log.Error("checkout persist failed",
				zap.String("buyer_id", buyerID),
				zap.Error(err))
		}
		return nil, err
	}
	metrics.Checkouts.WithLabelValues("success").Inc()

	res := &CheckoutResult{
		Success:     true,
		TotalCents:  plan.TotalCents,
		VendorCount: plan.VendorCount,
	}
	if plan.Simple != nil {
		res.SimpleOrder = &plan.Simple.Order
	} else {
		res.MasterOrder = &plan.Master.Order
		for _, sub := range plan.Subs {
			res.SubOrders = append(res.SubOrders, sub.Order)
		}
	}

	s.afterCommit(ctx, plan, res)
	return res, nil
}

// PreviewGrouping shows the buyer how the cart will split, using the exact
// grouping code path the real checkout uses. No persistence.
func (s *Service) PreviewGrouping(ctx context.Context, items []CartItem) (*PreviewResult, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	groups, err := s.Resolver.GroupByVendor(ctx, items)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, g := range groups {
		total += g.SubtotalCents
	}
	return &PreviewResult{
		Groups:      groups,
		TotalCents:  total,
		VendorCount: len(groups),
		Shared:      len(groups) >= 2,
	}, nil
}

// BuildPlan decides the shape of the order graph: one Simple order for a
// single vendor, a Master with per-vendor SubOrders otherwise. Ids are
// assigned here so notifications can reference them before persistence.
func BuildPlan(buyerID, locationID string, groups []VendorGroup, adminID string) *CheckoutPlan {
	var loc *string
	if locationID != "" {
		loc = &locationID
	}

	plan := &CheckoutPlan{BuyerID: buyerID, LocationID: loc, VendorCount: len(groups)}
	for _, g := range groups {
		plan.TotalCents += g.SubtotalCents
	}

	if len(groups) == 1 {
		g := groups[0]
		simple := plannedOrderFor(buyerID, loc, g, TypeSimple, nil)
		plan.Simple = &simple
		plan.Notifications = append(plan.Notifications, Notification{
			ID:          uuid.NewString(),
			OrderID:     simple.Order.ID,
			RecipientID: g.Seller.ID,
			Kind:        NotifyNewOrder,
			Message:     fmt.Sprintf("New order %s for $%.2f", simple.Order.ID, cents(g.SubtotalCents)),
		})
		return plan
	}

	masterID := uuid.NewString()
	plan.Master = &PlannedOrder{Order: Order{
		ID:         masterID,
		BuyerID:    buyerID,
		LocationID: loc,
		TotalCents: plan.TotalCents,
		Status:     StatusPending,
		Type:       TypeMaster,
		Shared:     true,
	}}

	var vendorNames []string
	for _, g := range groups {
		sub := plannedOrderFor(buyerID, loc, g, TypeSubOrder, &masterID)
		plan.Subs = append(plan.Subs, sub)
		vendorNames = append(vendorNames, strings.TrimSpace(g.Seller.Name+" "+g.Seller.LastName))
		plan.Notifications = append(plan.Notifications, Notification{
			ID:          uuid.NewString(),
			OrderID:     sub.Order.ID,
			RecipientID: g.Seller.ID,
			Kind:        NotifyNewOrder,
			Message: fmt.Sprintf("New order %s for $%.2f (part of shared order %s)",
				sub.Order.ID, cents(g.SubtotalCents), masterID),
		})
	}

	if adminID != "" {
		plan.Notifications = append(plan.Notifications, Notification{
			ID:          uuid.NewString(),
			OrderID:     masterID,
			RecipientID: adminID,
			Kind:        NotifySharedOrder,
			Message: fmt.Sprintf("Shared order %s for $%.2f - vendors: %s",
				masterID, cents(plan.TotalCents), strings.Join(vendorNames, ", ")),
		})
	}
	return plan
}

func plannedOrderFor(buyerID string, loc *string, g VendorGroup, typ OrderType, parentID *string) PlannedOrder {
	sellerID := g.Seller.ID
	po := PlannedOrder{Order: Order{
		ID:            uuid.NewString(),
		BuyerID:       buyerID,
		SellerID:      &sellerID,
		ParentOrderID: parentID,
		LocationID:    loc,
		TotalCents:    g.SubtotalCents,
		Status:        StatusPending,
		Type:          typ,
	}}
	for _, it := range g.Items {
		po.Items = append(po.Items, LineItem{
			ID:         uuid.NewString(),
			OrderID:    po.Order.ID,
			ProductRef: it.ProductRef,
			Qty:        it.Qty,
			PriceCents: it.PriceCents,
		})
	}
	return po
}

func cents(c int) float64 { return float64(c) / 100 }

// afterCommit publishes the checkout event; best-effort, durable state
// already committed.
func (s *Service) afterCommit(ctx context.Context, plan *CheckoutPlan, res *CheckoutResult) {
	rootID := ""
	typ := TypeMaster
	var subIDs []string
	if res.SimpleOrder != nil {
		rootID = res.SimpleOrder.ID
		typ = TypeSimple
	} else {
		rootID = res.MasterOrder.ID
		for _, o := range res.SubOrders {
			subIDs = append(subIDs, o.ID)
		}
	}

	if s.Producer == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     EventCheckoutCompleted,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		CorrelationID: rootID,
		Payload: kafkax.MustMarshal(CheckoutCompletedPayload{
			OrderID:     rootID,
			BuyerID:     plan.BuyerID,
			OrderType:   string(typ),
			Shared:      res.MasterOrder != nil,
			TotalCents:  plan.TotalCents,
			VendorCount: plan.VendorCount,
			SubOrderIDs: subIDs,
		}),
	}
	s.Producer.Publish(PartitionKey(rootID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(EventCheckoutCompleted)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
