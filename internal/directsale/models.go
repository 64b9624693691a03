package directsale

import "time"

// SaleItem is one line of an in-person sale. PriceCents overrides the
// catalog price when set (counter discounts); zero means "use the catalog
// price".
type SaleItem struct {
	ProductID  string `json:"product_id"`
	Qty        int    `json:"qty"`
	PriceCents int    `json:"price_cents,omitempty"`
}

// SaleInput describes a point-of-sale checkout. The buyer is either an
// existing user or a walk-in customer identified by name/email.
type SaleInput struct {
	BuyerID       string     `json:"buyer_id,omitempty"`
	CustomerName  string     `json:"customer_name,omitempty"`
	CustomerLast  string     `json:"customer_last_name,omitempty"`
	CustomerEmail string     `json:"customer_email,omitempty"`
	Items         []SaleItem `json:"items"`
	Notes         string     `json:"notes,omitempty"`
}

type SoldLine struct {
	ProductID  string `json:"product_id"`
	Title      string `json:"title"`
	Qty        int    `json:"qty"`
	PriceCents int    `json:"price_cents"`
	Subtotal   int    `json:"subtotal_cents"`
}

type SaleResult struct {
	OrderID    string     `json:"order_id"`
	BuyerID    string     `json:"buyer_id"`
	TotalCents int        `json:"total_cents"`
	Status     string     `json:"status"`
	Lines      []SoldLine `json:"lines"`
	CreatedAt  time.Time  `json:"created_at"`
}

// AvailableProduct is a search hit with its live stock triple.
type AvailableProduct struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Category       string `json:"category"`
	Image          string `json:"image"`
	PriceCents     int    `json:"price_cents"`
	Stock          int    `json:"stock"`
	StockReserved  int    `json:"stock_reserved"`
	StockAvailable int    `json:"stock_available"`
	VendorName     string `json:"vendor_name,omitempty"`
}

type SearchResult struct {
	Products   []AvailableProduct `json:"products"`
	Categories []string           `json:"categories"`
	Total      int                `json:"total"`
}

type DailySummary struct {
	Date            string       `json:"date"`
	TotalOrders     int          `json:"total_orders"`
	TotalCents      int          `json:"total_cents"`
	DeliveredOrders int          `json:"delivered_orders"`
	DirectSales     int          `json:"direct_sales"`
	TopProducts     []TopProduct `json:"top_products"`
}

type TopProduct struct {
	Title      string `json:"title"`
	QtySold    int    `json:"qty_sold"`
	TotalCents int    `json:"total_cents"`
}
