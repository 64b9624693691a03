package directsale

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/oneshop/marketplace-orders/internal/catalog"
	"github.com/oneshop/marketplace-orders/internal/checkout"
)

const directSaleNote = "in-person sale"

type Repo struct {
	DB  *pgxpool.Pool
	Log *zap.Logger
}

// CreateSale validates stock and deducts it inside one transaction. The
// order is born DELIVERED: there is nothing to reserve when the goods leave
// the counter immediately.
func (r *Repo) CreateSale(ctx context.Context, in SaleInput) (*SaleResult, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ledger := catalog.NewLedger(tx)

	total := 0
	var lines []SoldLine
	for _, it := range in.Items {
		p, err := ledger.GetProduct(ctx, it.ProductID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, fmt.Errorf("%w: %s", catalog.ErrProductNotFound, it.ProductID)
		}
		price := it.PriceCents
		if price <= 0 {
			price = p.PriceCents
		}
		lines = append(lines, SoldLine{
			ProductID:  it.ProductID,
			Title:      p.Title,
			Qty:        it.Qty,
			PriceCents: price,
			Subtotal:   price * it.Qty,
		})
		total += price * it.Qty
	}

	buyerID := in.BuyerID
	if buyerID == "" {
		buyerID, err = findOrCreateCustomer(ctx, tx, in)
		if err != nil {
			return nil, err
		}
	}

	orderID := uuid.NewString()
	notes := in.Notes
	if notes == "" {
		notes = directSaleNote
	}
	var createdAt time.Time
	err = tx.QueryRow(ctx, `
		INSERT INTO orders(id, buyer_id, total_cents, status, order_type, notes)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at`,
		orderID, buyerID, total, checkout.StatusDelivered, checkout.TypeSimple, notes,
	).Scan(&createdAt)
	if err != nil {
		return nil, err
	}

	for _, ln := range lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(id, order_id, product_ref, qty, price_cents)
			VALUES ($1,$2,$3,$4,$5)`,
			uuid.NewString(), orderID, ln.ProductID, ln.Qty, ln.PriceCents); err != nil {
			return nil, err
		}
		// Delivered on the spot: deduct total stock, no reservation phase.
		if err := ledger.ReduceStock(ctx, ln.ProductID, ln.Qty); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &SaleResult{
		OrderID:    orderID,
		BuyerID:    buyerID,
		TotalCents: total,
		Status:     string(checkout.StatusDelivered),
		Lines:      lines,
		CreatedAt:  createdAt,
	}, nil
}

// findOrCreateCustomer reuses an existing customer row by email, otherwise
// records a walk-in customer.
func findOrCreateCustomer(ctx context.Context, tx pgx.Tx, in SaleInput) (string, error) {
	if email := strings.TrimSpace(in.CustomerEmail); email != "" {
		var id string
		err := tx.QueryRow(ctx,
			`SELECT id FROM users WHERE email=$1 AND role='customer'`, email).Scan(&id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return "", err
		}
	}

	id := uuid.NewString()
	email := strings.TrimSpace(in.CustomerEmail)
	if email == "" {
		email = fmt.Sprintf("walkin-%s@pos.local", id[:8])
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO users(id, name, last_name, email, role)
		VALUES ($1,$2,$3,$4,'customer')`,
		id, strings.TrimSpace(in.CustomerName), strings.TrimSpace(in.CustomerLast), email)
	if err != nil {
		return "", err
	}
	return id, nil
}

// SearchAvailable lists products that still have unreserved stock, filtered
// by free text and category, plus the category facet.
func (r *Repo) SearchAvailable(ctx context.Context, query, category string, limit, offset int) (*SearchResult, error) {
	sql := `
		SELECT p.id, p.title, p.description, p.category, p.image, p.price_cents,
		       p.stock, p.stock_reserved, p.stock - p.stock_reserved,
		       COALESCE(u.name || ' ' || u.last_name, '')
		  FROM products p
		  LEFT JOIN users u ON u.id = p.seller_id
		 WHERE p.stock - p.stock_reserved > 0`
	args := []any{}
	if q := strings.TrimSpace(query); q != "" {
		args = append(args, "%"+q+"%")
		sql += fmt.Sprintf(" AND (p.title ILIKE $%d OR p.description ILIKE $%d)", len(args), len(args))
	}
	if c := strings.TrimSpace(category); c != "" {
		args = append(args, c)
		sql += fmt.Sprintf(" AND LOWER(p.category) = LOWER($%d)", len(args))
	}
	sql += " ORDER BY p.title ASC"
	args = append(args, limit)
	sql += fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, offset)
	sql += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := &SearchResult{}
	for rows.Next() {
		var p AvailableProduct
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.Category, &p.Image,
			&p.PriceCents, &p.Stock, &p.StockReserved, &p.StockAvailable, &p.VendorName); err != nil {
			return nil, err
		}
		res.Products = append(res.Products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	res.Total = len(res.Products)

	catRows, err := r.DB.Query(ctx, `
		SELECT DISTINCT category FROM products
		 WHERE category <> '' AND stock - stock_reserved > 0
		 ORDER BY category`)
	if err != nil {
		return nil, err
	}
	defer catRows.Close()
	for catRows.Next() {
		var c string
		if err := catRows.Scan(&c); err != nil {
			return nil, err
		}
		res.Categories = append(res.Categories, c)
	}
	return res, catRows.Err()
}

// DailySummary aggregates the day's orders and the top sold products.
func (r *Repo) DailySummary(ctx context.Context, day time.Time) (*DailySummary, error) {
	date := day.Format("2006-01-02")
	sum := &DailySummary{Date: date}

	err := r.DB.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(total_cents), 0),
		       COUNT(*) FILTER (WHERE status = 'DELIVERED'),
		       COUNT(*) FILTER (WHERE notes ILIKE '%in-person%')
		  FROM orders
		 WHERE created_at::date = $1 AND order_type <> 'MASTER'`, date,
	).Scan(&sum.TotalOrders, &sum.TotalCents, &sum.DeliveredOrders, &sum.DirectSales)
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT p.title, SUM(oi.qty), SUM(oi.qty * oi.price_cents)
		  FROM order_items oi
		  JOIN products p ON p.id::text = oi.product_ref
		  JOIN orders o ON o.id = oi.order_id
		 WHERE o.created_at::date = $1
		 GROUP BY p.id, p.title
		 ORDER BY SUM(oi.qty) DESC
		 LIMIT 5`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var t TopProduct
		if err := rows.Scan(&t.Title, &t.QtySold, &t.TotalCents); err != nil {
			return nil, err
		}
		sum.TopProducts = append(sum.TopProducts, t)
	}
	return sum, rows.Err()
}
