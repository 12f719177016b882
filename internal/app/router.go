package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/aksara-hq/aksara-admin/internal/audit"
	"github.com/aksara-hq/aksara-admin/internal/auth"
	"github.com/aksara-hq/aksara-admin/internal/features"
	"github.com/aksara-hq/aksara-admin/internal/observability"
	"github.com/aksara-hq/aksara-admin/internal/permissions"
	"github.com/aksara-hq/aksara-admin/internal/rbac"
	"github.com/aksara-hq/aksara-admin/internal/roles"
	"github.com/aksara-hq/aksara-admin/internal/users"
	"github.com/aksara-hq/aksara-admin/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	AuthHandler        *auth.Handler
	AuthMiddleware     auth.Middleware
	RolesHandler       *roles.Handler
	UsersHandler       *users.Handler
	FeaturesHandler    *features.Handler
	PermissionsHandler *permissions.Handler
	AccessHandler      *rbac.Handler
	AuditHandler       *audit.Handler
	JobHandler         *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with Aksara defaults.
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

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", params.AuthHandler.MountRoutes)

		r.Group(func(r chi.Router) {
			r.Use(params.AuthMiddleware.Authenticate)

			if params.RolesHandler != nil {
				r.Route("/roles", params.RolesHandler.MountRoutes)
			}
			if params.UsersHandler != nil {
				r.Route("/users", params.UsersHandler.MountRoutes)
			}
			if params.FeaturesHandler != nil {
				r.Route("/features", params.FeaturesHandler.MountRoutes)
			}
			if params.PermissionsHandler != nil {
				r.Route("/permissions", params.PermissionsHandler.MountRoutes)
			}
			if params.AccessHandler != nil {
				r.Route("/role-hierarchy", params.AccessHandler.MountHierarchyRoutes)
				r.Route("/acl", params.AccessHandler.MountACLRoutes)
			}
			if params.AuditHandler != nil {
				r.Route("/audit-logs", params.AuditHandler.MountRoutes)
			}
			if params.JobHandler != nil {
				r.Route("/jobs", params.JobHandler.MountRoutes)
			}
		})
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
