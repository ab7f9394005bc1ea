package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoRollup is returned when a day has no rollup yet.
var ErrNoRollup = errors.New("no rollup for day")

// Repository provides data access for analytics events and rollups.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new analytics repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertEvent appends one event.
func (r *Repository) InsertEvent(ctx context.Context, e Event) error {
	payload := e.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	occurredAt := e.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO analytics_events (event_type, lead_id, payload, occurred_at)
		VALUES ($1, $2, $3, $4)
	`, e.EventType, e.LeadID, raw, occurredAt)
	return err
}

// ComputeDay aggregates one calendar day from the event and lead tables.
// The day boundaries come in from the caller so the rollup respects the
// configured reporting timezone.
func (r *Repository) ComputeDay(ctx context.Context, day, nextDay time.Time, slaThreshold time.Duration) (DailyRollup, error) {
	rollup := DailyRollup{Day: day}

	err := r.pool.QueryRow(ctx, `
		SELECT
			count(*) FILTER (WHERE event_type = $3),
			count(*) FILTER (WHERE event_type = $4),
			count(*) FILTER (WHERE event_type = $5)
		FROM analytics_events
		WHERE occurred_at >= $1 AND occurred_at < $2
	`, day, nextDay, EventLeadCreated, EventResponseSent, EventEscalationRaised).
		Scan(&rollup.LeadsCreated, &rollup.ResponsesSent, &rollup.Escalations)
	if err != nil {
		return DailyRollup{}, err
	}

	err = r.pool.QueryRow(ctx, `
		SELECT
			COALESCE(avg(score), 0),
			COALESCE(
				count(*) FILTER (WHERE responded_at IS NOT NULL AND responded_at - created_at <= $3::interval)::float
					/ NULLIF(count(*), 0),
				0)
		FROM leads
		WHERE duplicate_of IS NULL
		  AND created_at >= $1 AND created_at < $2
	`, day, nextDay, slaThreshold).Scan(&rollup.AvgScore, &rollup.SLAAttainment)
	if err != nil {
		return DailyRollup{}, err
	}
	return rollup, nil
}

// UpsertRollup stores a day's aggregate, replacing any previous run.
func (r *Repository) UpsertRollup(ctx context.Context, rollup DailyRollup) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO analytics_daily (day, leads_created, responses_sent, escalations, avg_score, sla_attainment, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (day) DO UPDATE SET
			leads_created = EXCLUDED.leads_created,
			responses_sent = EXCLUDED.responses_sent,
			escalations = EXCLUDED.escalations,
			avg_score = EXCLUDED.avg_score,
			sla_attainment = EXCLUDED.sla_attainment,
			computed_at = now()
	`, rollup.Day, rollup.LeadsCreated, rollup.ResponsesSent, rollup.Escalations, rollup.AvgScore, rollup.SLAAttainment)
	return err
}

// ListRollups returns the latest daily aggregates, newest first.
func (r *Repository) ListRollups(ctx context.Context, limit int) ([]DailyRollup, error) {
	if limit <= 0 || limit > 90 {
		limit = 30
	}

	rows, err := r.pool.Query(ctx, `
		SELECT day, leads_created, responses_sent, escalations, avg_score, sla_attainment, computed_at
		FROM analytics_daily
		ORDER BY day DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rollups []DailyRollup
	for rows.Next() {
		var rollup DailyRollup
		if err := rows.Scan(&rollup.Day, &rollup.LeadsCreated, &rollup.ResponsesSent,
			&rollup.Escalations, &rollup.AvgScore, &rollup.SLAAttainment, &rollup.ComputedAt); err != nil {
			return nil, err
		}
		rollups = append(rollups, rollup)
	}
	return rollups, rows.Err()
}

// GetRollup returns one day's aggregate.
func (r *Repository) GetRollup(ctx context.Context, day time.Time) (DailyRollup, error) {
	var rollup DailyRollup
	err := r.pool.QueryRow(ctx, `
		SELECT day, leads_created, responses_sent, escalations, avg_score, sla_attainment, computed_at
		FROM analytics_daily
		WHERE day = $1
	`, day).Scan(&rollup.Day, &rollup.LeadsCreated, &rollup.ResponsesSent,
		&rollup.Escalations, &rollup.AvgScore, &rollup.SLAAttainment, &rollup.ComputedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return DailyRollup{}, ErrNoRollup
	}
	return rollup, err
}
