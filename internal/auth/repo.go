package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/armazem-neca/armazem-api/internal/platform/db"
	"github.com/armazem-neca/armazem-api/internal/platform/httpx"
)

// Repository defines persistence operations for the auth module. Every
// method runs on the caller-provided querier so queries execute on the
// request's RLS-bound transaction.
type Repository interface {
	FindActiveByEmail(ctx context.Context, q db.Querier, email string) (*User, error)
	FindActiveByCPF(ctx context.Context, q db.Querier, cpf string) (*User, error)
	FindActiveByID(ctx context.Context, q db.Querier, id string) (*User, error)
	CreateRefreshToken(ctx context.Context, q db.Querier, id, userID string) error
	RefreshTokenExists(ctx context.Context, q db.Querier, id string) (bool, error)
	DeleteRefreshToken(ctx context.Context, q db.Querier, id string) error
	DeleteRefreshTokensBefore(ctx context.Context, q db.Querier, cutoff time.Time) (int64, error)
}

const loginColumns = `id, name, COALESCE(nickname, ''), COALESCE(email, ''), COALESCE(cpf, ''),
	password_hash, role, COALESCE(notes, ''), state_tax_indicator, credit_limit,
	invoice_amount, is_active, created_at, updated_at`

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct{}

// NewRepository constructs a PostgreSQL repository.
func NewRepository() *PGRepository {
	return &PGRepository{}
}

// FindActiveByEmail fetches an active user by lowercased email.
func (r *PGRepository) FindActiveByEmail(ctx context.Context, q db.Querier, email string) (*User, error) {
	row := q.QueryRow(ctx,
		`SELECT `+loginColumns+` FROM users WHERE is_active = TRUE AND LOWER(email) = $1`, email)
	return scanUser(row)
}

// FindActiveByCPF fetches an active user by the 11-digit CPF.
func (r *PGRepository) FindActiveByCPF(ctx context.Context, q db.Querier, cpf string) (*User, error) {
	row := q.QueryRow(ctx,
		`SELECT `+loginColumns+` FROM users WHERE is_active = TRUE AND cpf = $1`, cpf)
	return scanUser(row)
}

// FindActiveByID fetches an active user by primary key. Used on the
// refresh path, where role must come from storage, not the token.
func (r *PGRepository) FindActiveByID(ctx context.Context, q db.Querier, id string) (*User, error) {
	row := q.QueryRow(ctx,
		`SELECT `+loginColumns+` FROM users WHERE is_active = TRUE AND id = $1`, id)
	return scanUser(row)
}

// CreateRefreshToken persists the refresh token id for later
// revocation checks. Plain insert: concurrent logins from several
// devices each keep their own row.
func (r *PGRepository) CreateRefreshToken(ctx context.Context, q db.Querier, id, userID string) error {
	_, err := q.Exec(ctx,
		`INSERT INTO refresh_tokens (id, user_id) VALUES ($1, $2)`, id, userID)
	if err != nil {
		return httpx.MapPgError(err)
	}
	return nil
}

// RefreshTokenExists reports whether the refresh token id is still
// registered (i.e. not revoked).
func (r *PGRepository) RefreshTokenExists(ctx context.Context, q db.Querier, id string) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM refresh_tokens WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// DeleteRefreshToken revokes a single refresh token.
func (r *PGRepository) DeleteRefreshToken(ctx context.Context, q db.Querier, id string) error {
	_, err := q.Exec(ctx, `DELETE FROM refresh_tokens WHERE id = $1`, id)
	return err
}

// DeleteRefreshTokensBefore removes rows issued before the cutoff.
// Used by the purge job once the refresh TTL horizon has passed.
func (r *PGRepository) DeleteRefreshTokensBefore(ctx context.Context, q db.Querier, cutoff time.Time) (int64, error) {
	tag, err := q.Exec(ctx, `DELETE FROM refresh_tokens WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanUser(row pgx.Row) (*User, error) {
	var user User
	var role string
	err := row.Scan(
		&user.ID, &user.Name, &user.Nickname, &user.Email, &user.CPF,
		&user.PasswordHash, &role, &user.Notes, &user.StateTaxIndicator,
		&user.CreditLimit, &user.InvoiceAmount, &user.IsActive,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	user.Role = ParseRole(role)
	return &user, nil
}

var _ Repository = (*PGRepository)(nil)
