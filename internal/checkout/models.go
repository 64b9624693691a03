package checkout

import "time"

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusDelivered  Status = "DELIVERED"
)

func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusProcessing, StatusDelivered:
		return Status(s), true
	}
	return "", false
}

type OrderType string

const (
	TypeSimple   OrderType = "SIMPLE"
	TypeMaster   OrderType = "MASTER"
	TypeSubOrder OrderType = "SUB_ORDER"
)

type Order struct {
	ID            string    `json:"id"`
	BuyerID       string    `json:"buyer_id"`
	SellerID      *string   `json:"seller_id,omitempty"`
	ParentOrderID *string   `json:"parent_order_id,omitempty"`
	LocationID    *string   `json:"location_id,omitempty"`
	TotalCents    int       `json:"total_cents"`
	Status        Status    `json:"status"`
	Type          OrderType `json:"type"`
	Shared        bool      `json:"shared"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// LineItem references a product by external or local id; price is the
// snapshot taken at checkout, never a live catalog reference.
type LineItem struct {
	ID         string `json:"id"`
	OrderID    string `json:"order_id"`
	ProductRef string `json:"product_ref"`
	Qty        int    `json:"qty"`
	PriceCents int    `json:"price_cents"`
}

type Notification struct {
	ID          string    `json:"id"`
	OrderID     string    `json:"order_id"`
	RecipientID string    `json:"recipient_id"`
	Kind        string    `json:"kind"`
	Message     string    `json:"message"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"created_at"`
}

const (
	NotifyNewOrder     = "new_order"
	NotifySharedOrder  = "shared_order"
	NotifyStatusChange = "status_change"
)

// Seller is the public profile of a product's owner.
type Seller struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	LastName string `json:"last_name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// CartItem is one entry of an incoming cart. PriceCents is only trusted for
// items with no local catalog row; local products snapshot their own price.
type CartItem struct {
	ProductRef string `json:"product_ref"`
	Title      string `json:"title,omitempty"`
	PriceCents int    `json:"price_cents"`
	Qty        int    `json:"qty"`
}

// VendorGroup is one seller's slice of a cart.
type VendorGroup struct {
	Seller        Seller     `json:"seller"`
	Items         []CartItem `json:"items"`
	SubtotalCents int        `json:"subtotal_cents"`
}
