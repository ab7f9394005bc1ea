package sequence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the postgres error code for unique index conflicts.
const uniqueViolation = "23505"

// ErrSequenceNotFound is returned for operations on unknown sequences.
var ErrSequenceNotFound = errors.New("sequence not found")

// ErrActiveSequenceExists is returned when creating would violate the
// one-active-sequence-per-lead rule.
var ErrActiveSequenceExists = errors.New("lead already has an active sequence")

// Repository provides data access for sequences.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new sequence repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const sequenceColumns = `id, lead_id, sequence_type, current_step, total_steps,
	next_run_at, state, sent_count, opened_count, responded_count, pause_reason,
	created_at, updated_at`

func scanSequence(row pgx.Row) (Sequence, error) {
	var s Sequence
	var state string
	err := row.Scan(
		&s.ID, &s.LeadID, &s.Type, &s.CurrentStep, &s.TotalSteps,
		&s.NextRunAt, &state, &s.SentCount, &s.OpenedCount, &s.RespondedCount,
		&s.PauseReason, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return Sequence{}, err
	}
	s.State = State(state)
	return s, nil
}

// Create inserts a sequence. The partial unique index on active sequences
// backs up the service-level check; a conflict surfaces as
// ErrActiveSequenceExists.
func (r *Repository) Create(ctx context.Context, s Sequence) (Sequence, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO sequences (lead_id, sequence_type, current_step, total_steps,
			next_run_at, state, sent_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+sequenceColumns,
		s.LeadID, s.Type, s.CurrentStep, s.TotalSteps, s.NextRunAt,
		string(s.State), s.SentCount, s.CreatedAt,
	)

	created, err := scanSequence(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Sequence{}, ErrActiveSequenceExists
		}
		return Sequence{}, err
	}
	return created, nil
}

// GetByID fetches one sequence.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Sequence, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+sequenceColumns+` FROM sequences WHERE id = $1`, id)
	s, err := scanSequence(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Sequence{}, ErrSequenceNotFound
	}
	return s, err
}

// GetActiveByLead returns the lead's active sequence, if any.
func (r *Repository) GetActiveByLead(ctx context.Context, leadID uuid.UUID) (Sequence, bool, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+sequenceColumns+` FROM sequences WHERE lead_id = $1 AND state = 'active'
	`, leadID)
	s, err := scanSequence(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Sequence{}, false, nil
	}
	if err != nil {
		return Sequence{}, false, err
	}
	return s, true, nil
}

// ClaimDue leases up to limit due sequences by pushing their next run
// forward. The lease keeps a crashed step handler from losing the step
// while preventing the next sweep from double-claiming it.
func (r *Repository) ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]Sequence, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE sequences SET next_run_at = $1 + $2::interval, updated_at = now()
		WHERE id IN (
			SELECT id FROM sequences
			WHERE state = 'active' AND next_run_at <= $1
			ORDER BY next_run_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+sequenceColumns,
		now, lease, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claimed []Sequence
	for rows.Next() {
		s, err := scanSequence(rows)
		if err != nil {
			return nil, err
		}
		claimed = append(claimed, s)
	}
	return claimed, rows.Err()
}

// Save persists the mutable fields of a sequence after a state machine
// transition.
func (r *Repository) Save(ctx context.Context, s Sequence) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE sequences SET
			current_step = $2, next_run_at = $3, state = $4,
			sent_count = $5, opened_count = $6, responded_count = $7,
			pause_reason = $8, updated_at = now()
		WHERE id = $1
	`, s.ID, s.CurrentStep, s.NextRunAt, string(s.State),
		s.SentCount, s.OpenedCount, s.RespondedCount, s.PauseReason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSequenceNotFound
	}
	return nil
}

// IncrementEngagement bumps the opened or responded counter of the lead's
// most recent sequence, used by engagement webhooks.
func (r *Repository) IncrementEngagement(ctx context.Context, leadID uuid.UUID, column string) error {
	var query string
	switch column {
	case "opened_count":
		query = `UPDATE sequences SET opened_count = opened_count + 1, updated_at = now()
			WHERE id = (SELECT id FROM sequences WHERE lead_id = $1 ORDER BY created_at DESC LIMIT 1)`
	case "responded_count":
		query = `UPDATE sequences SET responded_count = responded_count + 1, updated_at = now()
			WHERE id = (SELECT id FROM sequences WHERE lead_id = $1 ORDER BY created_at DESC LIMIT 1)`
	default:
		return errors.New("unknown engagement counter")
	}
	_, err := r.pool.Exec(ctx, query, leadID)
	return err
}
