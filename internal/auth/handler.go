package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/armazem-neca/armazem-api/internal/observability"
	"github.com/armazem-neca/armazem-api/internal/platform/db"
	"github.com/armazem-neca/armazem-api/internal/platform/httpx"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	lockout   *Lockout
	cookies   *CookieWriter
	metrics   *observability.Metrics
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, lockout *Lockout, cookies *CookieWriter, metrics *observability.Metrics) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		lockout:   lockout,
		cookies:   cookies,
		metrics:   metrics,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/refresh", h.handleRefresh)
	r.Post("/logout", h.handleLogout)
}

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Corpo da requisição inválido.")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Identificador e senha são obrigatórios.")
		return
	}

	ctx := r.Context()
	if h.lockout.Locked(ctx, req.Identifier) {
		h.metrics.ObserveLogin(observability.LoginResultLocked)
		httpx.RespondError(w, httpx.ErrTooManyAttempts)
		return
	}

	user, session, err := h.service.Login(ctx, db.TxFromContext(ctx), req.Identifier, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, httpx.ErrInvalidCredentials):
			h.lockout.RecordFailure(ctx, req.Identifier)
			h.metrics.ObserveLogin(observability.LoginResultInvalid)
		case errors.Is(err, httpx.ErrForbidden):
			h.metrics.ObserveLogin(observability.LoginResultForbidden)
		default:
			h.logger.Error("login", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}

	h.lockout.Reset(ctx, req.Identifier)
	h.metrics.ObserveLogin(observability.LoginResultOK)
	h.cookies.Attach(w, session)
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, session, err := h.service.Refresh(ctx, db.TxFromContext(ctx), cookieValue(r, RefreshTokenCookie))
	if err != nil {
		if !errors.Is(err, httpx.ErrUnauthorized) {
			h.logger.Error("refresh", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	h.cookies.Attach(w, session)
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.service.Logout(ctx, db.TxFromContext(ctx), cookieValue(r, RefreshTokenCookie)); err != nil {
		h.logger.Warn("logout", slog.Any("error", err))
	}
	h.cookies.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}
