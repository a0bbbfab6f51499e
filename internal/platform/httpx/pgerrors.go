package httpx

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// DetailedError carries a user-facing detail on top of a sentinel, so
// errors.Is keeps working while Error() stays presentable.
type DetailedError struct {
	Sentinel error
	Detail   string
}

func (e *DetailedError) Error() string { return e.Detail }

func (e *DetailedError) Unwrap() error { return e.Sentinel }

// Postgres error codes relevant at this boundary.
const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

// constraintMessages translates known constraint names to user-facing
// messages. Unknown constraints fall back to a generic text.
var constraintMessages = map[string]string{
	"users_unique_email":    "Email já cadastrado.",
	"users_unique_cpf":      "CPF já cadastrado.",
	"refresh_tokens_pkey":   "Sessão já registrada.",
	"users_name_length":     "Nome deve ter entre 3 e 256 caracteres.",
	"users_nickname_length": "Apelido deve ter entre 3 e 256 caracteres.",
	"users_cpf_format":      "CPF inválido.",
	"users_phone_format":    "Número de telefone inválido.",
}

// MapPgError converts storage constraint violations into the sentinel
// error taxonomy so RespondError can produce stable 409/400 responses.
// Every other error passes through untouched.
func MapPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		msg, ok := constraintMessages[pgErr.ConstraintName]
		if !ok {
			msg = "Conflito de dados únicos."
		}
		return &DetailedError{Sentinel: ErrDuplicate, Detail: msg}
	case pgCheckViolation:
		msg, ok := constraintMessages[pgErr.ConstraintName]
		if !ok {
			msg = "Dados inválidos."
		}
		return &DetailedError{Sentinel: ErrValidation, Detail: msg}
	default:
		return err
	}
}
