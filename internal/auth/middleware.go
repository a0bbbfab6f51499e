package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/armazem-neca/armazem-api/internal/platform/db"
	"github.com/armazem-neca/armazem-api/internal/platform/httpx"
)

// bindFunc runs fn inside a transaction with the security context
// bound. It exists as a seam so the transaction plumbing can be
// replaced in tests.
type bindFunc func(ctx context.Context, userID, role string, fn func(pgx.Tx) error) error

// Middleware resolves the request principal and binds the RLS security
// context onto a pooled connection for the request's lifetime.
type Middleware struct {
	logger *slog.Logger
	tokens *Tokens
	bind   bindFunc
}

// NewMiddleware constructs a Middleware backed by the connection pool.
func NewMiddleware(logger *slog.Logger, pool *pgxpool.Pool, tokens *Tokens) *Middleware {
	return &Middleware{
		logger: logger,
		tokens: tokens,
		bind: func(ctx context.Context, userID, role string, fn func(pgx.Tx) error) error {
			return db.WithSecurityContext(ctx, pool, userID, role, fn)
		},
	}
}

// WithSecurityContext wraps the downstream chain in one transaction on
// one pooled connection, with app.current_user_id/app.current_user_role
// set before any handler query runs. Anonymous requests bind empty
// strings. The transaction commits after the chain returns; panics and
// bind failures roll back, and the connection is always released.
func (m *Middleware) WithSecurityContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var userID, role string
		principal := m.tokens.Extract(cookieValue(r, AccessTokenCookie))
		if principal != nil {
			ctx = ContextWithPrincipal(ctx, principal)
			userID = principal.UserID
			role = string(principal.Role)
		}

		served := false
		err := m.bind(ctx, userID, role, func(tx pgx.Tx) error {
			served = true
			next.ServeHTTP(w, r.WithContext(db.ContextWithTx(ctx, tx)))
			return nil
		})
		if err != nil {
			m.logger.Error("security context", slog.Any("error", err), slog.String("path", r.URL.Path))
			// Commit failures surface after the handler has written;
			// only respond when nothing reached the client yet.
			if !served {
				httpx.RespondError(w, err)
			}
		}
	})
}

// RequireUser rejects anonymous requests with 401. Handlers behind it
// can rely on PrincipalFromContext being non-nil.
func (m *Middleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if PrincipalFromContext(r.Context()) == nil {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func cookieValue(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
