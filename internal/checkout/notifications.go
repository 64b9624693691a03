package checkout

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/oneshop/marketplace-orders/internal/catalog"
)

var ErrNotificationNotFound = errors.New("notification not found")

func insertNotification(ctx context.Context, db catalog.DBTX, n Notification) error {
	_, err := db.Exec(ctx, `
		INSERT INTO notifications(id, order_id, recipient_id, kind, message)
		VALUES ($1,$2,$3,$4,$5)`,
		n.ID, n.OrderID, n.RecipientID, n.Kind, n.Message)
	return err
}

// Notify records a message for a recipient about an order. Pure insert, no
// business logic.
func (r *Repo) Notify(ctx context.Context, orderID, recipientID, kind, message string) (*Notification, error) {
	n := Notification{
		ID:          uuid.NewString(),
		OrderID:     orderID,
		RecipientID: recipientID,
		Kind:        kind,
		Message:     message,
	}
	if err := insertNotification(ctx, r.DB, n); err != nil {
		return nil, mapPgError(err)
	}
	return &n, nil
}

func (r *Repo) ListNotifications(ctx context.Context, recipientID string) ([]Notification, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, recipient_id, kind, message, read, created_at
		  FROM notifications
		 WHERE recipient_id = $1
		 ORDER BY created_at DESC`, recipientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.OrderID, &n.RecipientID, &n.Kind,
			&n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *Repo) MarkNotificationRead(ctx context.Context, notificationID string) error {
	ct, err := r.DB.Exec(ctx,
		`UPDATE notifications SET read = true WHERE id=$1`, notificationID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
