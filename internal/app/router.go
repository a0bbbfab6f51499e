package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/armazem-neca/armazem-api/internal/auth"
	"github.com/armazem-neca/armazem-api/internal/observability"
	"github.com/armazem-neca/armazem-api/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	AuthHandler    *auth.Handler
	AuthMiddleware *auth.Middleware
	UsersHandler   *users.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with Armazém defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	// Everything below runs on an RLS-bound connection: the middleware
	// resolves the principal from the access cookie, opens a transaction
	// and injects the security context before any handler query.
	r.Group(func(gr chi.Router) {
		gr.Use(params.AuthMiddleware.WithSecurityContext)
		gr.Route("/auth", params.AuthHandler.MountRoutes)
		gr.Route("/users", params.UsersHandler.MountRoutes)
	})

	return r
}
