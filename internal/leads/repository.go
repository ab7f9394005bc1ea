package leads

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrLeadNotFound is returned for operations on unknown leads.
var ErrLeadNotFound = errors.New("lead not found")

// Repository provides data access for leads and their interactions.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new leads repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `id, first_name, last_name, email, phone, company, service_type,
	passenger_count, estimated_value, distance_from_base, service_date, source,
	status, score, priority_level, escalation_level, responded_at,
	customer_responded_at, duplicate_of, created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var l Lead
	var status string
	err := row.Scan(
		&l.ID, &l.FirstName, &l.LastName, &l.Email, &l.Phone, &l.Company,
		&l.ServiceType, &l.PassengerCount, &l.EstimatedValue, &l.DistanceFromBase,
		&l.ServiceDate, &l.Source, &status, &l.Score, &l.PriorityLevel,
		&l.EscalationLevel, &l.RespondedAt, &l.CustomerRespondedAt, &l.DuplicateOf,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return Lead{}, err
	}
	l.Status = Status(status)
	return l, nil
}

// Create inserts a lead and returns it with generated fields populated.
func (r *Repository) Create(ctx context.Context, l Lead) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (first_name, last_name, email, phone, company, service_type,
			passenger_count, estimated_value, distance_from_base, service_date, source,
			status, score, priority_level, duplicate_of)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING `+leadColumns,
		l.FirstName, l.LastName, l.Email, l.Phone, l.Company, l.ServiceType,
		l.PassengerCount, l.EstimatedValue, l.DistanceFromBase, l.ServiceDate,
		l.Source, string(StatusNew), l.Score, l.PriorityLevel, l.DuplicateOf,
	)
	return scanLead(row)
}

// GetByID fetches one lead.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	l, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrLeadNotFound
	}
	return l, err
}

// FindRecentByContact returns the most recent original (non-duplicate) lead
// created since the cutoff whose normalized email or phone matches. Empty
// identifiers never match.
func (r *Repository) FindRecentByContact(ctx context.Context, email, phone string, since time.Time) (Lead, bool, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE duplicate_of IS NULL
		  AND created_at >= $3
		  AND (($1 <> '' AND email = $1) OR ($2 <> '' AND phone = $2))
		ORDER BY created_at DESC
		LIMIT 1
	`, email, phone, since)

	l, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, false, nil
	}
	if err != nil {
		return Lead{}, false, err
	}
	return l, true, nil
}

// FindLatestByEmail returns the newest original lead with the email,
// regardless of age. Used to attribute engagement events.
func (r *Repository) FindLatestByEmail(ctx context.Context, email string) (Lead, bool, error) {
	if email == "" {
		return Lead{}, false, nil
	}

	row := r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE duplicate_of IS NULL AND email = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, email)

	l, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, false, nil
	}
	if err != nil {
		return Lead{}, false, err
	}
	return l, true, nil
}

// UpdateScore persists a recomputed score and priority in one statement.
func (r *Repository) UpdateScore(ctx context.Context, id uuid.UUID, score, priority int) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET score = $2, priority_level = $3, updated_at = now()
		WHERE id = $1
	`, id, score, priority)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}

// UpdateStatus moves a lead from one state to another. The WHERE clause on
// the current state makes concurrent transitions race-safe; false means the
// lead was not in the expected state.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2
	`, id, string(from), string(to))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkResponded records the first response time and moves new leads to
// contacted. Idempotent: a second call leaves the original timestamp.
func (r *Repository) MarkResponded(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET responded_at = COALESCE(responded_at, $2),
		    status = CASE WHEN status = 'new' THEN 'contacted' ELSE status END,
		    updated_at = now()
		WHERE id = $1
	`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}

// MarkCustomerResponded records the lead's first reply back to us. The
// response clock stamp comes along for leads that replied before we
// reached them. Idempotent like MarkResponded.
func (r *Repository) MarkCustomerResponded(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET customer_responded_at = COALESCE(customer_responded_at, $2),
		    responded_at = COALESCE(responded_at, $2),
		    status = CASE WHEN status = 'new' THEN 'contacted' ELSE status END,
		    updated_at = now()
		WHERE id = $1
	`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}

// UpdateDetails overwrites the editable attributes of a lead.
func (r *Repository) UpdateDetails(ctx context.Context, l Lead) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET
			first_name = $2, last_name = $3, email = $4, phone = $5, company = $6,
			service_type = $7, passenger_count = $8, estimated_value = $9,
			distance_from_base = $10, service_date = $11, updated_at = now()
		WHERE id = $1
	`, l.ID, l.FirstName, l.LastName, l.Email, l.Phone, l.Company,
		l.ServiceType, l.PassengerCount, l.EstimatedValue, l.DistanceFromBase, l.ServiceDate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}

// ListFilter narrows List results.
type ListFilter struct {
	Status      Status
	MinPriority int
	Limit       int
}

// List returns leads matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Lead, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE ($1 = '' OR status = $1)
		  AND priority_level >= $2
		ORDER BY created_at DESC
		LIMIT $3
	`, string(filter.Status), filter.MinPriority, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leads []Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

// AddInteraction appends a touchpoint to a lead's timeline.
func (r *Repository) AddInteraction(ctx context.Context, i Interaction) (Interaction, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO interactions (lead_id, kind, channel, summary, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, i.LeadID, i.Kind, i.Channel, i.Summary, i.OccurredAt).Scan(&i.ID)
	return i, err
}

// ListInteractions returns a lead's timeline, oldest first.
func (r *Repository) ListInteractions(ctx context.Context, leadID uuid.UUID) ([]Interaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, kind, channel, summary, occurred_at
		FROM interactions
		WHERE lead_id = $1
		ORDER BY occurred_at
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Interaction
	for rows.Next() {
		var i Interaction
		if err := rows.Scan(&i.ID, &i.LeadID, &i.Kind, &i.Channel, &i.Summary, &i.OccurredAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
