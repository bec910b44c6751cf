package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/prakerin/prakerin/internal/auth"
	"github.com/prakerin/prakerin/internal/dashboard"
	"github.com/prakerin/prakerin/internal/observability"
	"github.com/prakerin/prakerin/internal/platform/httpx"
	"github.com/prakerin/prakerin/internal/rbac"
	"github.com/prakerin/prakerin/internal/shared"
	"github.com/prakerin/prakerin/internal/users"
	"github.com/prakerin/prakerin/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	SessionManager   *shared.SessionManager
	CSRFManager      *shared.CSRFManager
	AuthHandler      *auth.Handler
	DashboardHandler *dashboard.Handler
	RBACHandler      *rbac.Handler
	UsersHandler     *users.Handler
	JobHandler       *jobs.Handler
	RBACMiddleware   rbac.Middleware
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with prakerin defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		if _, ok := shared.SessionFromContext(r.Context()).UserID(); !ok {
			http.Redirect(w, r, rbac.LoginRoute, http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, rbac.DashboardPrefix, http.StatusSeeOther)
	})

	if params.AuthHandler != nil {
		r.Group(func(r chi.Router) {
			r.Use(LoginRateLimit(params.Config))
			params.AuthHandler.MountRoutes(r)
		})
	}
	if params.DashboardHandler != nil {
		r.Route(rbac.DashboardPrefix, params.DashboardHandler.MountRoutes)
	}
	if params.RBACHandler != nil {
		r.Route("/rbac", params.RBACHandler.MountRoutes)
	}
	if params.UsersHandler != nil {
		r.Route("/users", params.UsersHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", func(r chi.Router) {
			r.Use(params.RBACMiddleware.Require(shared.SettingsManage))
			params.JobHandler.MountRoutes(r)
		})
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
