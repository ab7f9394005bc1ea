package webhookin

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrEventNotFound is returned for operations on unknown events.
var ErrEventNotFound = errors.New("webhook event not found")

// Repository provides data access for the webhook event log.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new webhookin repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const eventColumns = `id, source, event_type, payload, processed, retry_count,
	last_error, lead_id, interaction_id, received_at, processed_at`

func scanEvent(row pgx.Row) (Event, error) {
	var e Event
	err := row.Scan(
		&e.ID, &e.Source, &e.EventType, &e.Payload, &e.Processed, &e.RetryCount,
		&e.LastError, &e.LeadID, &e.InteractionID, &e.ReceivedAt, &e.ProcessedAt,
	)
	return e, err
}

// Insert appends an unprocessed event to the log. This happens before any
// processing so a crash never loses the payload.
func (r *Repository) Insert(ctx context.Context, source, eventType string, payload []byte) (Event, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO webhook_events (source, event_type, payload)
		VALUES ($1, $2, $3)
		RETURNING `+eventColumns,
		source, eventType, payload,
	)
	return scanEvent(row)
}

// GetByID fetches one event.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Event, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM webhook_events WHERE id = $1`, id)
	e, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Event{}, ErrEventNotFound
	}
	return e, err
}

// MarkProcessed closes an event, optionally linking the lead and
// interaction it produced.
func (r *Repository) MarkProcessed(ctx context.Context, id uuid.UUID, leadID, interactionID *uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE webhook_events
		SET processed = true, processed_at = now(), last_error = NULL,
		    lead_id = COALESCE($2, lead_id), interaction_id = COALESCE($3, interaction_id)
		WHERE id = $1
	`, id, leadID, interactionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}

// MarkFailed records a processing failure and burns one retry.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, processErr error) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE webhook_events
		SET retry_count = retry_count + 1, last_error = $2
		WHERE id = $1
	`, id, processErr.Error())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}

// ListUnprocessed returns replayable events in arrival order.
func (r *Repository) ListUnprocessed(ctx context.Context, maxRetries, limit int) ([]Event, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+eventColumns+`
		FROM webhook_events
		WHERE processed = false AND retry_count < $1
		ORDER BY received_at
		LIMIT $2
	`, maxRetries, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Abandon exhausts an event's retry budget in one step. Used for payloads
// replay can never fix.
func (r *Repository) Abandon(ctx context.Context, id uuid.UUID, maxRetries int, processErr error) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE webhook_events
		SET retry_count = GREATEST(retry_count + 1, $2), last_error = $3
		WHERE id = $1
	`, id, maxRetries, processErr.Error())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}

// CountAbandoned returns how many events ran out of retries without being
// processed. They stay in the log for manual inspection.
func (r *Repository) CountAbandoned(ctx context.Context, maxRetries int) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM webhook_events WHERE processed = false AND retry_count >= $1
	`, maxRetries).Scan(&count)
	return count, err
}
