package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/armazem-neca/armazem-api/internal/auth"
	"github.com/armazem-neca/armazem-api/internal/platform/db"
	"github.com/armazem-neca/armazem-api/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct{}

// NewRepository constructs a repository.
func NewRepository() *Repository {
	return &Repository{}
}

// FindByID returns one user profile through the request querier, so
// the row is filtered by the security context RLS reads.
func (r *Repository) FindByID(ctx context.Context, q db.Querier, id string) (*Profile, error) {
	row := q.QueryRow(ctx, `SELECT id, name, COALESCE(nickname, ''), COALESCE(email, ''), role,
		state_tax_indicator, credit_limit, invoice_amount, created_at, updated_at
		FROM users WHERE id = $1`, id)

	var profile Profile
	var role string
	err := row.Scan(&profile.ID, &profile.Name, &profile.Nickname, &profile.Email, &role,
		&profile.StateTaxIndicator, &profile.CreditLimit, &profile.InvoiceAmount,
		&profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	profile.Role = auth.ParseRole(role)
	return &profile, nil
}
