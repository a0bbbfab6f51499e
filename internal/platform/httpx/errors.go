// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrDuplicate          = errors.New("duplicate entry")
	ErrValidation         = errors.New("validation failed")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWeakPassword       = errors.New("weak password")
	ErrTooManyAttempts    = errors.New("too many attempts")
	ErrSecurityContext    = errors.New("security context failure")
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", "Email, CPF ou senha inválidos.")
	case errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", "Credenciais não validadas.")
	case errors.Is(err, ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", "Acesso não permitido para perfil Cliente.")
	case errors.Is(err, ErrWeakPassword):
		Problem(w, http.StatusBadRequest, "Validation Failed", "A senha deve ter pelo menos 8 caracteres.")
	case errors.Is(err, ErrTooManyAttempts):
		Problem(w, http.StatusTooManyRequests, "Too Many Requests", "Muitas tentativas de login. Tente novamente mais tarde.")
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrSecurityContext):
		Problem(w, http.StatusInternalServerError, "Internal Error", "Security context failure.")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
