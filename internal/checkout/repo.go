package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/oneshop/marketplace-orders/internal/catalog"
)

var ErrOrderNotFound = errors.New("order not found")

type Repo struct {
	DB  *pgxpool.Pool
	Log *zap.Logger
}

// CreateCheckout runs the availability pre-check and persists the whole
// order graph in one transaction. Any failure rolls everything back; a
// failed pre-check surfaces as *ShortageError before a single row is
// written. Items with no local catalog row are not stock-governed and skip
// the pre-check.
func (r *Repo) CreateCheckout(ctx context.Context, plan *CheckoutPlan) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ledger := catalog.NewLedger(tx)
	var shortages []ShortageItem
	for _, po := range plan.lineOrders() {
		for _, it := range po.Items {
			c, err := ledger.CheckAvailable(ctx, it.ProductRef, it.Qty)
			if err != nil {
				return err
			}
			if !c.Found {
				continue // external-feed item, no local stock to guard
			}
			if !c.Available {
				shortages = append(shortages, ShortageItem{
					ProductRef:     it.ProductRef,
					Title:          c.Title,
					RequestedQty:   it.Qty,
					StockAvailable: c.StockAvailable,
					StockReserved:  c.StockReserved,
					Message:        c.Message,
				})
			}
		}
	}
	if len(shortages) > 0 {
		return &ShortageError{Items: shortages}
	}

	if plan.Master != nil {
		if err := insertOrder(ctx, tx, plan.Master.Order); err != nil {
			return mapPgError(err)
		}
	}
	for _, po := range plan.lineOrders() {
		if err := insertOrder(ctx, tx, po.Order); err != nil {
			return mapPgError(err)
		}
		for _, it := range po.Items {
			if _, err := tx.Exec(ctx, `
				INSERT INTO order_items(id, order_id, product_ref, qty, price_cents)
				VALUES ($1,$2,$3,$4,$5)`,
				it.ID, it.OrderID, it.ProductRef, it.Qty, it.PriceCents); err != nil {
				return mapPgError(err)
			}
		}
	}
	for _, n := range plan.Notifications {
		if err := insertNotification(ctx, tx, n); err != nil {
			return mapPgError(err)
		}
	}

	return tx.Commit(ctx)
}

func insertOrder(ctx context.Context, db catalog.DBTX, o Order) error {
	_, err := db.Exec(ctx, `
		INSERT INTO orders(id, buyer_id, seller_id, parent_order_id, location_id,
		                   total_cents, status, order_type, shared, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		o.ID, o.BuyerID, o.SellerID, o.ParentOrderID, o.LocationID,
		o.TotalCents, o.Status, o.Type, o.Shared, o.Notes)
	return err
}

// mapPgError hides store internals: unique and foreign-key violations come
// back as a generic conflict, and a tripped stock check constraint surfaces
// as insufficient stock rather than a bare 500.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "23503":
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
		case "23514":
			return fmt.Errorf("%w: %s", catalog.ErrInsufficientStock, pgErr.ConstraintName)
		}
	}
	return err
}

const orderColumns = `id, buyer_id, seller_id, parent_order_id, location_id,
	total_cents, status, order_type, shared, notes, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.BuyerID, &o.SellerID, &o.ParentOrderID, &o.LocationID,
		&o.TotalCents, &o.Status, &o.Type, &o.Shared, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func (r *Repo) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id=$1`, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repo) ListOrderItems(ctx context.Context, orderID string) ([]LineItem, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, product_ref, qty, price_cents
		  FROM order_items WHERE order_id=$1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LineItem
	for rows.Next() {
		var it LineItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductRef, &it.Qty, &it.PriceCents); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// VendorOrder is one row of a seller's order list, with master context when
// the order is a slice of a shared cart.
type VendorOrder struct {
	Order            Order   `json:"order"`
	BuyerName        string  `json:"buyer_name"`
	BuyerEmail       string  `json:"buyer_email"`
	MasterID         *string `json:"master_id,omitempty"`
	MasterTotalCents *int    `json:"master_total_cents,omitempty"`
	MasterShared     *bool   `json:"master_shared,omitempty"`
}

// ListVendorOrders returns a seller's simple orders and sub-orders, newest
// first.
func (r *Repo) ListVendorOrders(ctx context.Context, sellerID string) ([]VendorOrder, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT o.id, o.buyer_id, o.seller_id, o.parent_order_id, o.location_id,
		       o.total_cents, o.status, o.order_type, o.shared, o.notes,
		       o.created_at, o.updated_at,
		       u.name || ' ' || u.last_name, u.email,
		       m.id, m.total_cents, m.shared
		  FROM orders o
		  JOIN users u ON u.id = o.buyer_id
		  LEFT JOIN orders m ON m.id = o.parent_order_id
		 WHERE o.seller_id = $1
		 ORDER BY o.created_at DESC`, sellerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []VendorOrder
	for rows.Next() {
		var v VendorOrder
		o := &v.Order
		if err := rows.Scan(&o.ID, &o.BuyerID, &o.SellerID, &o.ParentOrderID, &o.LocationID,
			&o.TotalCents, &o.Status, &o.Type, &o.Shared, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
			&v.BuyerName, &v.BuyerEmail,
			&v.MasterID, &v.MasterTotalCents, &v.MasterShared); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// MasterSummary is a master order with its sub-orders and their vendors.
type MasterSummary struct {
	Master Order      `json:"master"`
	Subs   []SubEntry `json:"sub_orders"`
}

type SubEntry struct {
	Order  Order  `json:"order"`
	Vendor Seller `json:"vendor"`
}

func (r *Repo) GetMasterSummary(ctx context.Context, masterID string) (*MasterSummary, error) {
	master, err := scanOrder(r.DB.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id=$1 AND order_type='MASTER'`, masterID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT o.id, o.buyer_id, o.seller_id, o.parent_order_id, o.location_id,
		       o.total_cents, o.status, o.order_type, o.shared, o.notes,
		       o.created_at, o.updated_at,
		       u.id, u.name, u.last_name, u.email, u.role
		  FROM orders o
		  JOIN users u ON u.id = o.seller_id
		 WHERE o.parent_order_id = $1
		 ORDER BY o.created_at ASC`, masterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sum := &MasterSummary{Master: master}
	for rows.Next() {
		var e SubEntry
		o := &e.Order
		if err := rows.Scan(&o.ID, &o.BuyerID, &o.SellerID, &o.ParentOrderID, &o.LocationID,
			&o.TotalCents, &o.Status, &o.Type, &o.Shared, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
			&e.Vendor.ID, &e.Vendor.Name, &e.Vendor.LastName, &e.Vendor.Email, &e.Vendor.Role); err != nil {
			return nil, err
		}
		sum.Subs = append(sum.Subs, e)
	}
	return sum, rows.Err()
}

// GetSeller fetches a seller's public profile; nil when unknown.
func (r *Repo) GetSeller(ctx context.Context, sellerID string) (*Seller, error) {
	var s Seller
	err := r.DB.QueryRow(ctx,
		`SELECT id, name, last_name, email, role FROM users WHERE id=$1`,
		sellerID).Scan(&s.ID, &s.Name, &s.LastName, &s.Email, &s.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
