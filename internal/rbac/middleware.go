package rbac

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/prakerin/prakerin/internal/platform/httpx"
)

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Builder  *Builder
	Logger   *slog.Logger
	Observer DecisionObserver
}

// Scope attaches a fresh request Scope so lookups are shared by every
// handler and action serving the same request.
func (m Middleware) Scope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ScopeFromContext(r.Context()) != nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithScope(r.Context(), NewScope())))
	})
}

// RequireAuthenticated builds the authorization context and redirects
// anonymous requests to the login page.
func (m Middleware) RequireAuthenticated(next http.Handler) http.Handler {
	return m.Scope(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := m.authorize(w, r, true); !ok {
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// RequireSection redirects to the unauthorized page unless the caller may
// enter section.
func (m Middleware) RequireSection(section Section) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return m.Scope(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.guardSection(w, r, next, section)
		}))
	}
}

// RequireSectionParam is RequireSection for a section taken from a chi URL
// parameter. Unknown sections are not found.
func (m Middleware) RequireSectionParam(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return m.Scope(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			section, ok := ParseSection(chi.URLParam(r, param))
			if !ok {
				httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown dashboard section")
				return
			}
			m.guardSection(w, r, next, section)
		}))
	}
}

// Require answers 403 unless the caller satisfies req.
func (m Middleware) Require(req Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return m.Scope(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz, ok := m.authorize(w, r, false)
			if !ok {
				return
			}
			decision := Decide(authz, req)
			m.observe("requirement", decision)
			if !decision.Allowed {
				m.logDenied(r, authz, slog.Any("roles", req.Roles), slog.Any("permissions", req.Permissions))
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

// RequireAny ensures the current user has at least one of the permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return m.Require(Requirement{Permissions: perms})
}

func (m Middleware) guardSection(w http.ResponseWriter, r *http.Request, next http.Handler, section Section) {
	authz, ok := m.authorize(w, r, true)
	if !ok {
		return
	}
	decision := DecideSection(authz, section)
	m.observe("section", decision)
	if !decision.Allowed {
		m.logDenied(r, authz, slog.String("section", string(section)))
		http.Redirect(w, r, UnauthorizedRoute, http.StatusSeeOther)
		return
	}
	next.ServeHTTP(w, r)
}

// authorize builds the context and writes the failure response itself when
// it cannot. redirect selects a login redirect over a 401 for anonymous
// callers.
func (m Middleware) authorize(w http.ResponseWriter, r *http.Request, redirect bool) (*AuthorizationContext, bool) {
	authz, err := m.Builder.Build(r.Context())
	if err == nil {
		return authz, true
	}
	switch Classify(err) {
	case FailureUnauthenticated:
		if redirect {
			http.Redirect(w, r, loginRedirect(r), http.StatusSeeOther)
			return nil, false
		}
		httpx.RespondError(w, httpx.ErrUnauthorized)
	case FailureIntegrity:
		m.logger().Error("rbac data integrity", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "account is incomplete")
	default:
		m.logger().Error("rbac build context", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
	return nil, false
}

func (m Middleware) observe(kind string, d Decision) {
	if m.Observer != nil {
		m.Observer.ObserveDecision(kind, outcome(d), string(d.Reason))
	}
}

func (m Middleware) logDenied(r *http.Request, authz *AuthorizationContext, attrs ...any) {
	args := append([]any{
		slog.String("principal", authz.UserID().String()),
		slog.String("path", r.URL.Path),
	}, attrs...)
	m.logger().Warn("rbac access denied", args...)
}

func (m Middleware) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}

func loginRedirect(r *http.Request) string {
	path := r.URL.Path
	if path == DashboardPrefix || strings.HasPrefix(path, DashboardPrefix+"/") {
		return LoginRoute + "?next=" + url.QueryEscape(path)
	}
	return LoginRoute
}
