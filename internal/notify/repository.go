package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotificationNotFound is returned for operations on unknown notifications.
var ErrNotificationNotFound = errors.New("notification not found")

// Repository provides data access for notifications.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new notify repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const notificationColumns = `id, type, priority, channels, recipients, subject, body,
	lead_id, expires_at, sent, read, sent_at, channel_results, created_at`

func scanNotification(row pgx.Row) (Notification, error) {
	var n Notification
	var rawRecipients, rawResults []byte
	err := row.Scan(
		&n.ID, &n.Type, &n.Priority, &n.Channels, &rawRecipients, &n.Subject, &n.Body,
		&n.LeadID, &n.ExpiresAt, &n.Sent, &n.Read, &n.SentAt, &rawResults, &n.CreatedAt,
	)
	if err != nil {
		return Notification{}, err
	}
	if err := json.Unmarshal(rawRecipients, &n.Recipients); err != nil {
		return Notification{}, err
	}
	if err := json.Unmarshal(rawResults, &n.ChannelResults); err != nil {
		return Notification{}, err
	}
	return n, nil
}

// Create inserts a notification and returns it with generated fields.
func (r *Repository) Create(ctx context.Context, n Notification) (Notification, error) {
	rawRecipients, err := json.Marshal(n.Recipients)
	if err != nil {
		return Notification{}, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO notifications (type, priority, channels, recipients, subject, body, lead_id, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+notificationColumns,
		n.Type, n.Priority, n.Channels, rawRecipients, n.Subject, n.Body, n.LeadID, n.ExpiresAt,
	)
	return scanNotification(row)
}

// GetByID fetches one notification.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Notification, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)
	n, err := scanNotification(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Notification{}, ErrNotificationNotFound
	}
	return n, err
}

// SaveDelivery persists the per-channel outcomes of a delivery attempt.
func (r *Repository) SaveDelivery(ctx context.Context, id uuid.UUID, results map[string]ChannelResult, sent bool, sentAt time.Time) error {
	rawResults, err := json.Marshal(results)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications
		SET channel_results = $2,
		    sent = $3,
		    sent_at = CASE WHEN $3 THEN COALESCE(sent_at, $4) ELSE sent_at END
		WHERE id = $1
	`, id, rawResults, sent, sentAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// MarkRead flags a notification as seen by an operator.
func (r *Repository) MarkRead(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE notifications SET read = true WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// ListRecent returns the latest notifications, newest first.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+notificationColumns+` FROM notifications ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, rows.Err()
}
