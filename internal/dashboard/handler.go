// Package dashboard serves the role-gated dashboard entry points.
package dashboard

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/prakerin/prakerin/internal/platform/httpx"
	"github.com/prakerin/prakerin/internal/rbac"
	"github.com/prakerin/prakerin/internal/shared"
)

// Handler exposes dashboard navigation endpoints.
type Handler struct {
	logger *slog.Logger
	rbac   rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, mw rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, rbac: mw}
}

// Summary describes the signed-in caller for dashboard navigation.
type Summary struct {
	UserID       string       `json:"user_id"`
	Profile      rbac.Profile `json:"profile"`
	Roles        []rbac.Role  `json:"roles"`
	Permissions  []string     `json:"permissions"`
	Sections     []string     `json:"sections"`
	Features     []string     `json:"features"`
	DefaultRoute string       `json:"default_route"`
}

// SectionView is the payload of a section landing page.
type SectionView struct {
	Section string `json:"section"`
	Route   string `json:"route"`
}

// MountRoutes registers dashboard routes under the dashboard prefix.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/unauthorized", h.unauthorized)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAuthenticated)
		r.Get("/", h.home)
		r.Get("/me", h.me)
	})
	r.With(h.rbac.RequireSectionParam("section")).Get("/{section}", h.section)
}

func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, rbac.ResolveDefaultDashboardRoute(rbac.FromContext(r.Context())), http.StatusSeeOther)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	authz := rbac.FromContext(r.Context())
	if authz == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	httpx.JSON(w, http.StatusOK, Summarize(authz))
}

func (h *Handler) section(w http.ResponseWriter, r *http.Request) {
	section, _ := rbac.ParseSection(chi.URLParam(r, "section"))
	httpx.JSON(w, http.StatusOK, SectionView{Section: string(section), Route: rbac.SectionRoute(section)})
}

func (h *Handler) unauthorized(w http.ResponseWriter, r *http.Request) {
	httpx.Problem(w, http.StatusForbidden, "Forbidden", "you do not have access to any dashboard section")
}

// Summarize builds the navigation summary of authz.
func Summarize(authz *rbac.AuthorizationContext) Summary {
	sections := rbac.AccessibleSections(authz)
	names := make([]string, 0, len(sections))
	for _, s := range sections {
		names = append(names, string(s))
	}
	return Summary{
		UserID:       authz.UserID().String(),
		Profile:      authz.Profile,
		Roles:        authz.Roles.Sorted(),
		Permissions:  authz.Permissions.Sorted(),
		Sections:     names,
		Features:     shared.AllowedFeatures(authz),
		DefaultRoute: rbac.ResolveDefaultDashboardRoute(authz),
	}
}
