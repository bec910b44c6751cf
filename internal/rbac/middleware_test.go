package rbac

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMiddleware(store *memoryStore, observer DecisionObserver) Middleware {
	return Middleware{
		Builder:  store.builder(),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Observer: observer,
	}
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	if FromContext(r.Context()) == nil {
		http.Error(w, "no authz", http.StatusTeapot)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func dashboardRouter(mw Middleware) http.Handler {
	r := chi.NewRouter()
	r.Route("/dashboard", func(r chi.Router) {
		r.With(mw.RequireAuthenticated).Get("/", okHandler)
		r.With(mw.RequireSection(RoleKS)).Get("/ks/reports", okHandler)
		r.With(mw.RequireSectionParam("section")).Get("/{section}", okHandler)
	})
	r.With(mw.Require(Requirement{Roles: []string{"kaprog"}, Permissions: []string{"kaprog.manage"}})).Get("/api/kaprog", okHandler)
	r.With(mw.RequireAny("students.read")).Get("/api/students", okHandler)
	return r
}

func serve(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestMiddlewareAnonymousRedirectsToLogin(t *testing.T) {
	h := dashboardRouter(newTestMiddleware(newMemoryStore(), nil))

	rec := serve(h, "/dashboard/siswa")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?next=%2Fdashboard%2Fsiswa", rec.Header().Get("Location"))

	rec = serve(h, "/dashboard/")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?next=%2Fdashboard%2F", rec.Header().Get("Location"))
}

func TestMiddlewareAnonymousAPIGets401(t *testing.T) {
	h := dashboardRouter(newTestMiddleware(newMemoryStore(), nil))
	rec := serve(h, "/api/students")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareSectionGuard(t *testing.T) {
	store := newMemoryStore()
	store.addUser("siswa")
	observer := &recordingObserver{}
	h := dashboardRouter(newTestMiddleware(store, observer))

	assert.Equal(t, http.StatusNoContent, serve(h, "/dashboard/siswa").Code)

	rec := serve(h, "/dashboard/ks")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, UnauthorizedRoute, rec.Header().Get("Location"))

	rec = serve(h, "/dashboard/ks/reports")
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	assert.Equal(t, http.StatusNotFound, serve(h, "/dashboard/finance").Code)
	assert.Equal(t, []string{"section:allow:role", "section:deny:no_match", "section:deny:no_match"}, observer.calls)
}

func TestMiddlewareHubdinEntersEverySection(t *testing.T) {
	store := newMemoryStore()
	store.addUser("hubdin")
	h := dashboardRouter(newTestMiddleware(store, nil))
	for _, section := range RoleSlugs() {
		assert.Equal(t, http.StatusNoContent, serve(h, SectionRoute(section)).Code, string(section))
	}
	assert.Equal(t, http.StatusNoContent, serve(h, "/dashboard/ks/reports").Code)
}

func TestMiddlewareRequire(t *testing.T) {
	store := newMemoryStore()
	store.addUser("operator")
	h := dashboardRouter(newTestMiddleware(store, nil))

	rec := serve(h, "/api/kaprog")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient permissions")

	store.grant("operator", "students.read", true)
	assert.Equal(t, http.StatusNoContent, serve(h, "/api/students").Code)

	store.grant("operator", "kaprog.manage", true)
	assert.Equal(t, http.StatusNoContent, serve(h, "/api/kaprog").Code)
}

func TestMiddlewareIntegrityFailure(t *testing.T) {
	store := newMemoryStore()
	store.addUser()
	h := dashboardRouter(newTestMiddleware(store, nil))

	rec := serve(h, "/dashboard/siswa")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "account is incomplete")
	assert.Equal(t, http.StatusInternalServerError, serve(h, "/api/students").Code)
}

func TestScopeMiddlewareKeepsExistingScope(t *testing.T) {
	mw := Middleware{}
	outer := NewScope()
	var seen *Scope
	h := mw.Scope(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ScopeFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	h.ServeHTTP(httptest.NewRecorder(), req.WithContext(WithScope(req.Context(), outer)))
	assert.Same(t, outer, seen)

	h.ServeHTTP(httptest.NewRecorder(), req)
	require.NotNil(t, seen)
	assert.NotSame(t, outer, seen)
}
