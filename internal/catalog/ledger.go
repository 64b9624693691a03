package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so the ledger can run
// standalone or scoped to a caller's transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Ledger owns the per-product stock triple (stock, stock_reserved, derived
// available). It is the only legitimate mutator of those columns. Every
// mutation is a single conditional UPDATE, so concurrent callers targeting
// the same product serialize at the row instead of racing between a read and
// a later write.
type Ledger struct{ db DBTX }

func NewLedger(db DBTX) *Ledger { return &Ledger{db: db} }

// CheckTotalStock compares qty against total stock, ignoring reservations.
// Used by flows that deduct directly (in-person sales).
func (l *Ledger) CheckTotalStock(ctx context.Context, productID string, qty int) (StockCheck, error) {
	var c StockCheck
	err := l.db.QueryRow(ctx,
		`SELECT stock, stock_reserved, title FROM products WHERE id::text=$1`,
		productID).Scan(&c.StockTotal, &c.StockReserved, &c.Title)
	if errors.Is(err, pgx.ErrNoRows) {
		c.Message = "product not found"
		return c, nil
	}
	if err != nil {
		return c, err
	}
	c.Found = true
	c.StockAvailable = c.StockTotal - c.StockReserved
	c.Available = c.StockTotal >= qty
	if c.Available {
		c.Message = "stock available"
	} else {
		c.Message = fmt.Sprintf("insufficient stock: %d on hand", c.StockTotal)
	}
	return c, nil
}

// CheckAvailable compares qty against stock - stock_reserved. Advisory only:
// the real guarantee lives in Reserve's conditional update.
func (l *Ledger) CheckAvailable(ctx context.Context, productID string, qty int) (StockCheck, error) {
	var c StockCheck
	err := l.db.QueryRow(ctx,
		`SELECT stock, stock_reserved, stock - stock_reserved, title
		   FROM products WHERE id::text=$1`,
		productID).Scan(&c.StockTotal, &c.StockReserved, &c.StockAvailable, &c.Title)
	if errors.Is(err, pgx.ErrNoRows) {
		c.Message = "product not found"
		return c, nil
	}
	if err != nil {
		return c, err
	}
	c.Found = true
	c.Available = c.StockAvailable >= qty
	if c.Available {
		c.Message = "stock available"
	} else {
		c.Message = fmt.Sprintf("insufficient stock: %d available (%d reserved)",
			c.StockAvailable, c.StockReserved)
	}
	return c, nil
}

// ReduceStock decrements total stock, only if enough unreserved units are
// on hand. Immediate non-reserved sales go through here; units earmarked by
// pending orders are off limits, which also keeps stock from dipping below
// stock_reserved.
func (l *Ledger) ReduceStock(ctx context.Context, productID string, qty int) error {
	ct, err := l.db.Exec(ctx,
		`UPDATE products SET stock = stock - $2, updated_at = now()
		  WHERE id::text=$1 AND stock - stock_reserved >= $2`,
		productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return l.guardFailure(ctx, productID)
	}
	return nil
}

// IncreaseStock increments total stock unconditionally (restock, or rollback
// of a prior deduction).
func (l *Ledger) IncreaseStock(ctx context.Context, productID string, qty int) error {
	ct, err := l.db.Exec(ctx,
		`UPDATE products SET stock = stock + $2, updated_at = now() WHERE id::text=$1`,
		productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrProductNotFound, productID)
	}
	return nil
}

// Reserve earmarks qty units, only if that many are still unreserved. The
// guard lives in the same statement as the mutation, so the sum of all
// successful reservations can never exceed stock.
func (l *Ledger) Reserve(ctx context.Context, productID string, qty int) error {
	ct, err := l.db.Exec(ctx,
		`UPDATE products SET stock_reserved = stock_reserved + $2, updated_at = now()
		  WHERE id::text=$1 AND stock - stock_reserved >= $2`,
		productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return l.guardFailure(ctx, productID)
	}
	return nil
}

// Release gives back reserved units, floored at zero so a double release is
// harmless.
func (l *Ledger) Release(ctx context.Context, productID string, qty int) error {
	ct, err := l.db.Exec(ctx,
		`UPDATE products SET stock_reserved = GREATEST(0, stock_reserved - $2), updated_at = now()
		  WHERE id::text=$1`,
		productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrProductNotFound, productID)
	}
	return nil
}

// ConfirmDeduction is the terminal sale-completed mutation: both columns drop
// by qty in one statement, reserved floored at zero.
func (l *Ledger) ConfirmDeduction(ctx context.Context, productID string, qty int) error {
	ct, err := l.db.Exec(ctx,
		`UPDATE products
		    SET stock = stock - $2,
		        stock_reserved = GREATEST(0, stock_reserved - $2),
		        updated_at = now()
		  WHERE id::text=$1 AND stock >= $2`,
		productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return l.guardFailure(ctx, productID)
	}
	return nil
}

// guardFailure tells a missing row apart from a failed stock guard.
func (l *Ledger) guardFailure(ctx context.Context, productID string) error {
	var exists bool
	if err := l.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM products WHERE id::text=$1)`, productID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrProductNotFound, productID)
	}
	return fmt.Errorf("%w: product %s", ErrInsufficientStock, productID)
}

// GetProduct returns the full catalog row, or nil when the id is unknown
// locally (an external-feed product).
func (l *Ledger) GetProduct(ctx context.Context, productID string) (*Product, error) {
	var p Product
	err := l.db.QueryRow(ctx,
		`SELECT id, seller_id, title, description, category, image,
		        price_cents, stock, stock_reserved, created_at, updated_at
		   FROM products WHERE id::text=$1`,
		productID).Scan(&p.ID, &p.SellerID, &p.Title, &p.Description, &p.Category,
		&p.Image, &p.PriceCents, &p.Stock, &p.StockReserved, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListLowStock returns products whose total stock is under the threshold.
func (l *Ledger) ListLowStock(ctx context.Context, threshold int) ([]Product, error) {
	rows, err := l.db.Query(ctx,
		`SELECT id, seller_id, title, description, category, image,
		        price_cents, stock, stock_reserved, created_at, updated_at
		   FROM products WHERE stock < $1 ORDER BY stock ASC`,
		threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.SellerID, &p.Title, &p.Description, &p.Category,
			&p.Image, &p.PriceCents, &p.Stock, &p.StockReserved, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// OrderStockSummary returns the stock triple per line item of an order.
// External-feed lines have no local row and are omitted.
func (l *Ledger) OrderStockSummary(ctx context.Context, orderID string) ([]LineStock, error) {
	rows, err := l.db.Query(ctx, `
		SELECT p.id, p.title, oi.qty, p.stock, p.stock_reserved, p.stock - p.stock_reserved
		  FROM order_items oi
		  JOIN products p ON p.id::text = oi.product_ref
		 WHERE oi.order_id = $1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LineStock
	for rows.Next() {
		var s LineStock
		if err := rows.Scan(&s.ProductID, &s.Title, &s.Qty, &s.Stock,
			&s.StockReserved, &s.StockAvailable); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
