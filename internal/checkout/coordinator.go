package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/oneshop/marketplace-orders/internal/catalog"
	kafkax "github.com/oneshop/marketplace-orders/internal/kafka"
	"github.com/oneshop/marketplace-orders/internal/metrics"
	"github.com/oneshop/marketplace-orders/internal/redisx"
)

// stockLedger is the slice of the product ledger a transition needs. The
// real implementation is catalog.Ledger scoped to the coordinator's
// transaction.
type stockLedger interface {
	Reserve(ctx context.Context, productID string, qty int) error
	Release(ctx context.Context, productID string, qty int) error
	ConfirmDeduction(ctx context.Context, productID string, qty int) error
	IncreaseStock(ctx context.Context, productID string, qty int) error
}

// LineEffect records what happened to one product during a transition.
type LineEffect struct {
	ProductRef string `json:"product_ref"`
	Qty        int    `json:"qty"`
	Action     string `json:"action"`
}

type TransitionResult struct {
	Success      bool         `json:"success"`
	Order        Order        `json:"order"`
	From         Status       `json:"from"`
	To           Status       `json:"to"`
	Effects      []LineEffect `json:"stock_effects"`
	CascadedSubs []string     `json:"cascaded_sub_order_ids,omitempty"`
}

// Coordinator drives stock-ledger mutations on order status transitions.
// One transaction covers every line item's stock effect plus the status
// write: either all of it commits or none of it does.
type Coordinator struct {
	DB          *pgxpool.Pool
	Log         *zap.Logger
	Producer    EventPublisher
	Cache       *redisx.OrderCache
	ServiceName string
}

// ChangeStatus validates the transition against the status stored at commit
// time (the row is locked for the duration), applies the per-line stock
// effects, then writes the new status. Master orders cascade to every
// sub-order in the same transaction.
func (c *Coordinator) ChangeStatus(ctx context.Context, orderID string, newStatus Status) (*TransitionResult, error) {
	tx, err := c.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	order, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	from := order.Status

	eff, err := EffectFor(from, newStatus)
	if err != nil {
		metrics.StatusTransitions.WithLabelValues(string(from), string(newStatus), "rejected").Inc()
		return nil, err
	}

	ledger := catalog.NewLedger(tx)
	res := &TransitionResult{From: from, To: newStatus}

	if order.Type == TypeMaster {
		subs, err := lockSubOrders(ctx, tx, order.ID)
		if err != nil {
			return nil, err
		}
		steps, err := planCascade(subs, newStatus)
		if err != nil {
			metrics.StatusTransitions.WithLabelValues(string(from), string(newStatus), "rejected").Inc()
			return nil, err
		}
		for _, st := range steps {
			effects, err := c.applyLineEffects(ctx, tx, ledger, st.Sub.ID, st.Effect)
			if err != nil {
				metrics.StatusTransitions.WithLabelValues(string(from), string(newStatus), "failed").Inc()
				return nil, err
			}
			res.Effects = append(res.Effects, effects...)
			if err := writeStatus(ctx, tx, st.Sub.ID, newStatus); err != nil {
				return nil, err
			}
			res.CascadedSubs = append(res.CascadedSubs, st.Sub.ID)
		}
	} else {
		effects, err := c.applyLineEffects(ctx, tx, ledger, order.ID, eff)
		if err != nil {
			metrics.StatusTransitions.WithLabelValues(string(from), string(newStatus), "failed").Inc()
			if errors.Is(err, catalog.ErrInsufficientStock) {
				metrics.StockConflicts.Inc()
			}
			return nil, err
		}
		res.Effects = effects
	}

	if err := writeStatus(ctx, tx, order.ID, newStatus); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	metrics.StatusTransitions.WithLabelValues(string(from), string(newStatus), "success").Inc()
	order.Status = newStatus
	res.Success = true
	res.Order = order
	c.afterCommit(ctx, res)
	return res, nil
}

type cascadeStep struct {
	Sub    Order
	Effect StockEffect
}

// planCascade maps each sub-order to the stock effect its own current
// status demands; a sub individually moved ahead of its master needs a
// different ledger mutation than its siblings. Subs already at the target
// are skipped; any sub for which the transition is invalid aborts the whole
// cascade.
func planCascade(subs []Order, to Status) ([]cascadeStep, error) {
	var steps []cascadeStep
	for _, sub := range subs {
		if sub.Status == to {
			continue
		}
		eff, err := EffectFor(sub.Status, to)
		if err != nil {
			return nil, fmt.Errorf("sub-order %s: %w", sub.ID, err)
		}
		steps = append(steps, cascadeStep{Sub: sub, Effect: eff})
	}
	return steps, nil
}

// applyLineEffects loads the order's stock-governed lines (those with a
// local product row) and applies the transition's effect to each.
func (c *Coordinator) applyLineEffects(ctx context.Context, db catalog.DBTX, lg stockLedger, orderID string, eff StockEffect) ([]LineEffect, error) {
	lines, err := stockLines(ctx, db, orderID)
	if err != nil {
		return nil, err
	}
	return applyStockEffect(ctx, lg, c.Log, eff, lines)
}

// applyStockEffect maps a transition effect onto ledger primitives, once per
// line. Release failures are deliberately non-fatal: refusing to revert an
// order over a bookkeeping anomaly is worse than a temporarily inflated
// reservation count.
func applyStockEffect(ctx context.Context, lg stockLedger, log *zap.Logger, eff StockEffect, lines []ItemQty) ([]LineEffect, error) {
	var out []LineEffect
	for _, ln := range lines {
		switch eff {
		case EffectReserve:
			if err := lg.Reserve(ctx, ln.ProductRef, ln.Qty); err != nil {
				return nil, fmt.Errorf("reserve %s: %w", ln.ProductRef, err)
			}
			out = append(out, LineEffect{ln.ProductRef, ln.Qty, "reserved"})

		case EffectConfirmDeduction:
			if err := lg.ConfirmDeduction(ctx, ln.ProductRef, ln.Qty); err != nil {
				return nil, fmt.Errorf("confirm deduction %s: %w", ln.ProductRef, err)
			}
			out = append(out, LineEffect{ln.ProductRef, ln.Qty, "deducted"})

		case EffectRelease:
			if err := lg.Release(ctx, ln.ProductRef, ln.Qty); err != nil {
				log.Warn("stock release failed, transition continues",
					zap.String("product_ref", ln.ProductRef),
					zap.Int("qty", ln.Qty),
					zap.Error(err))
				out = append(out, LineEffect{ln.ProductRef, ln.Qty, "release_failed"})
				continue
			}
			out = append(out, LineEffect{ln.ProductRef, ln.Qty, "released"})

		case EffectRestoreAndReserve:
			// Undo the delivery, then re-earmark. A reserve failure must
			// roll back the increase too, which the caller's transaction
			// guarantees.
			if err := lg.IncreaseStock(ctx, ln.ProductRef, ln.Qty); err != nil {
				return nil, fmt.Errorf("restore %s: %w", ln.ProductRef, err)
			}
			if err := lg.Reserve(ctx, ln.ProductRef, ln.Qty); err != nil {
				return nil, fmt.Errorf("reserve restored %s: %w", ln.ProductRef, err)
			}
			out = append(out, LineEffect{ln.ProductRef, ln.Qty, "restored_and_reserved"})

		case EffectNone:
			out = append(out, LineEffect{ln.ProductRef, ln.Qty, "none"})
		}
	}
	return out, nil
}

func lockOrder(ctx context.Context, tx pgx.Tx, orderID string) (Order, error) {
	o, err := scanOrder(tx.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id=$1 FOR UPDATE`, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	return o, err
}

func lockSubOrders(ctx context.Context, tx pgx.Tx, masterID string) ([]Order, error) {
	rows, err := tx.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE parent_order_id=$1 ORDER BY created_at FOR UPDATE`,
		masterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// stockLines returns the order's lines joined to local products; external
// lines carry no stock effect and are omitted.
func stockLines(ctx context.Context, db catalog.DBTX, orderID string) ([]ItemQty, error) {
	rows, err := db.Query(ctx, `
		SELECT oi.product_ref, oi.qty
		  FROM order_items oi
		  JOIN products p ON p.id::text = oi.product_ref
		 WHERE oi.order_id = $1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ItemQty
	for rows.Next() {
		var it ItemQty
		if err := rows.Scan(&it.ProductRef, &it.Qty); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func writeStatus(ctx context.Context, db catalog.DBTX, orderID string, st Status) error {
	_, err := db.Exec(ctx,
		`UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`, orderID, st)
	return err
}

func (c *Coordinator) afterCommit(ctx context.Context, res *TransitionResult) {
	// Drop stale cached copies; the next read repopulates from the row.
	c.Cache.Invalidate(ctx, res.Order.ID)
	for _, id := range res.CascadedSubs {
		c.Cache.Invalidate(ctx, id)
	}
	if c.Producer == nil {
		return
	}

	items := make([]ItemQty, 0, len(res.Effects))
	for _, e := range res.Effects {
		items = append(items, ItemQty{ProductRef: e.ProductRef, Qty: e.Qty})
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     EventOrderStatusChanged,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      c.ServiceName,
		CorrelationID: res.Order.ID,
		Payload: kafkax.MustMarshal(OrderStatusChangedPayload{
			OrderID: res.Order.ID,
			From:    res.From,
			To:      res.To,
			Items:   items,
		}),
	}
	c.Producer.Publish(PartitionKey(res.Order.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(EventOrderStatusChanged)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
