package sla

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoMetrics is returned when no measurement has been recorded yet.
var ErrNoMetrics = errors.New("no sla metrics recorded")

// Repository provides data access for SLA metrics and overdue leads.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new sla repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ComputeWindow aggregates response performance over leads created in the
// window. Duplicate-linked leads are excluded; they never entered the
// response pipeline.
func (r *Repository) ComputeWindow(ctx context.Context, start, end time.Time, threshold time.Duration) (Metrics, error) {
	m := Metrics{WindowStart: start, WindowEnd: end}
	err := r.pool.QueryRow(ctx, `
		SELECT
			count(*),
			count(responded_at),
			COALESCE(avg(EXTRACT(EPOCH FROM responded_at - created_at)), 0),
			COALESCE(
				count(*) FILTER (WHERE responded_at IS NOT NULL AND responded_at - created_at <= $3::interval)::float
					/ NULLIF(count(*), 0),
				0)
		FROM leads
		WHERE duplicate_of IS NULL
		  AND created_at >= $1 AND created_at < $2
	`, start, end, threshold).Scan(&m.LeadCount, &m.RespondedCount, &m.AvgResponseSecs, &m.WithinThreshold)
	return m, err
}

// InsertMetrics persists one measurement.
func (r *Repository) InsertMetrics(ctx context.Context, m Metrics) (Metrics, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO sla_metrics (window_start, window_end, lead_count, responded_count, avg_response_secs, within_threshold)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, computed_at
	`, m.WindowStart, m.WindowEnd, m.LeadCount, m.RespondedCount, m.AvgResponseSecs, m.WithinThreshold).
		Scan(&m.ID, &m.ComputedAt)
	return m, err
}

// Latest returns the most recent measurement.
func (r *Repository) Latest(ctx context.Context) (Metrics, error) {
	var m Metrics
	err := r.pool.QueryRow(ctx, `
		SELECT id, window_start, window_end, lead_count, responded_count,
			avg_response_secs, within_threshold, computed_at
		FROM sla_metrics
		ORDER BY computed_at DESC
		LIMIT 1
	`).Scan(&m.ID, &m.WindowStart, &m.WindowEnd, &m.LeadCount, &m.RespondedCount,
		&m.AvgResponseSecs, &m.WithinThreshold, &m.ComputedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Metrics{}, ErrNoMetrics
	}
	return m, err
}

// OverdueLead is a lead that crossed an escalation threshold.
type OverdueLead struct {
	ID        uuid.UUID
	CreatedAt time.Time
}

// FindOverdue lists unanswered new leads created before the cutoff whose
// escalation level is still below the target level.
func (r *Repository) FindOverdue(ctx context.Context, cutoff time.Time, level int) ([]OverdueLead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, created_at
		FROM leads
		WHERE status = 'new'
		  AND responded_at IS NULL
		  AND duplicate_of IS NULL
		  AND created_at <= $1
		  AND escalation_level < $2
		ORDER BY created_at
	`, cutoff, level)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var overdue []OverdueLead
	for rows.Next() {
		var o OverdueLead
		if err := rows.Scan(&o.ID, &o.CreatedAt); err != nil {
			return nil, err
		}
		overdue = append(overdue, o)
	}
	return overdue, rows.Err()
}

// Escalate raises the lead's escalation level. The guard on the current
// level makes the raise first-writer-wins under concurrent scans; false
// means another scan got there first or the lead was answered.
func (r *Repository) Escalate(ctx context.Context, leadID uuid.UUID, level int) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET escalation_level = $2, updated_at = now()
		WHERE id = $1 AND escalation_level < $2 AND responded_at IS NULL
	`, leadID, level)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
