package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrFactorNotFound is returned for operations on unknown factors.
var ErrFactorNotFound = errors.New("scoring factor not found")

// Repository provides data access for scoring factor configuration.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new scoring repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const factorColumns = `id, name, category, weight, method, attribute, rules, active`

func scanFactor(row pgx.Row) (Factor, error) {
	var f Factor
	var method string
	var rawRules []byte
	if err := row.Scan(&f.ID, &f.Name, &f.Category, &f.Weight, &method, &f.Attribute, &rawRules, &f.Active); err != nil {
		return Factor{}, err
	}
	f.Method = Method(method)
	rules, err := DecodeRules(rawRules)
	if err != nil {
		return Factor{}, fmt.Errorf("factor %s: %w", f.Name, err)
	}
	f.Rules = rules
	return f, nil
}

// ListActive returns a consistent snapshot of all active factors,
// ordered by name for deterministic evaluation order.
func (r *Repository) ListActive(ctx context.Context) ([]Factor, error) {
	return r.list(ctx, `SELECT `+factorColumns+` FROM scoring_factors WHERE active ORDER BY name`)
}

// List returns all factors, active or not.
func (r *Repository) List(ctx context.Context) ([]Factor, error) {
	return r.list(ctx, `SELECT `+factorColumns+` FROM scoring_factors ORDER BY name`)
}

func (r *Repository) list(ctx context.Context, query string) ([]Factor, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var factors []Factor
	for rows.Next() {
		f, err := scanFactor(rows)
		if err != nil {
			return nil, err
		}
		factors = append(factors, f)
	}
	return factors, rows.Err()
}

// Create inserts a factor after validating its rule payload.
func (r *Repository) Create(ctx context.Context, f Factor) (Factor, error) {
	if err := f.Validate(); err != nil {
		return Factor{}, err
	}

	rawRules, err := json.Marshal(f.Rules)
	if err != nil {
		return Factor{}, err
	}

	err = r.pool.QueryRow(ctx, `
		INSERT INTO scoring_factors (name, category, weight, method, attribute, rules, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, f.Name, f.Category, f.Weight, string(f.Method), f.Attribute, rawRules, f.Active).Scan(&f.ID)
	if err != nil {
		return Factor{}, err
	}
	return f, nil
}

// SetActive toggles a factor without touching its rules.
func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE scoring_factors SET active = $2, updated_at = now() WHERE id = $1
	`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrFactorNotFound
	}
	return nil
}

// Seed inserts the default factor model when the table is empty.
func (r *Repository) Seed(ctx context.Context) error {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM scoring_factors`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	for _, f := range DefaultFactors() {
		if _, err := r.Create(ctx, f); err != nil {
			return err
		}
	}
	return nil
}
