package checkout

import (
	"encoding/json"
	"time"
)

const (
	EventCheckoutCompleted  = "CheckoutCompleted"
	EventOrderStatusChanged = "OrderStatusChanged"
)

const (
	TopicCheckoutCompleted  = "checkout.completed"
	TopicOrderStatusChanged = "order.status.changed"
)

// PartitionKey keeps all events of one order on one partition, so they stay
// ordered.
func PartitionKey(orderID string) []byte { return []byte(orderID) }

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // root order id
	Payload       json.RawMessage `json:"payload"`
}

type ItemQty struct {
	ProductRef string `json:"product_ref"`
	Qty        int    `json:"qty"`
}

type CheckoutCompletedPayload struct {
	OrderID     string   `json:"order_id"` // simple or master id
	BuyerID     string   `json:"buyer_id"`
	OrderType   string   `json:"order_type"`
	Shared      bool     `json:"shared"`
	TotalCents  int      `json:"total_cents"`
	VendorCount int      `json:"vendor_count"`
	SubOrderIDs []string `json:"sub_order_ids,omitempty"`
}

type OrderStatusChangedPayload struct {
	OrderID string    `json:"order_id"`
	From    Status    `json:"from"`
	To      Status    `json:"to"`
	Items   []ItemQty `json:"items,omitempty"`
}
