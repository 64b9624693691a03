package catalog

import "time"

type Product struct {
	ID            string    `json:"id"`
	SellerID      *string   `json:"seller_id,omitempty"` // nil means externally sourced (third-party catalog feed)
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	Category      string    `json:"category,omitempty"`
	Image         string    `json:"image,omitempty"`
	PriceCents    int       `json:"price_cents"`
	Stock         int       `json:"stock"`
	StockReserved int       `json:"stock_reserved"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Available is the quantity that can still be reserved.
func (p Product) Available() int { return p.Stock - p.StockReserved }

// StockCheck is the result of a read-only availability probe.
type StockCheck struct {
	Found          bool   `json:"found"`
	Available      bool   `json:"available"`
	StockTotal     int    `json:"stock_total"`
	StockReserved  int    `json:"stock_reserved"`
	StockAvailable int    `json:"stock_available"`
	Title          string `json:"title,omitempty"`
	Message        string `json:"message"`
}

// LineStock is one order line's view of its product's stock triple.
type LineStock struct {
	ProductID      string `json:"product_id"`
	Title          string `json:"title"`
	Qty            int    `json:"qty"`
	Stock          int    `json:"stock"`
	StockReserved  int    `json:"stock_reserved"`
	StockAvailable int    `json:"stock_available"`
}
