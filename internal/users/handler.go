package users

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/armazem-neca/armazem-api/internal/auth"
	"github.com/armazem-neca/armazem-api/internal/platform/db"
	"github.com/armazem-neca/armazem-api/internal/platform/httpx"
)

// Handler wires the account endpoints.
type Handler struct {
	logger *slog.Logger
	repo   *Repository
	authmw *auth.Middleware
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, repo *Repository, authmw *auth.Middleware) *Handler {
	return &Handler{logger: logger, repo: repo, authmw: authmw}
}

// MountRoutes registers user routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.authmw.RequireUser).Get("/me", h.handleMe)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal := auth.PrincipalFromContext(ctx)

	profile, err := h.repo.FindByID(ctx, db.TxFromContext(ctx), principal.UserID)
	if err != nil {
		if !errors.Is(err, httpx.ErrNotFound) {
			h.logger.Error("load profile", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, profile)
}
