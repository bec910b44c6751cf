package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/prakerin/prakerin/internal/auth"
	"github.com/prakerin/prakerin/internal/dashboard"
	"github.com/prakerin/prakerin/internal/rbac"
	"github.com/prakerin/prakerin/internal/shared"
)

type memoryAccounts struct {
	user *auth.User
}

func (m memoryAccounts) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	if m.user.Email != email {
		return nil, auth.ErrNotFound
	}
	return m.user, nil
}

func (m memoryAccounts) FindByID(_ context.Context, id uuid.UUID) (*auth.User, error) {
	if m.user.ID != id {
		return nil, auth.ErrNotFound
	}
	return m.user, nil
}

func (memoryAccounts) CreateSession(context.Context, string, uuid.UUID, time.Time, string, string) error {
	return nil
}

func (memoryAccounts) DeleteSession(context.Context, string) error { return nil }

type memoryRBAC struct {
	roles []string
}

func (m memoryRBAC) GetProfile(_ context.Context, id uuid.UUID) (*rbac.Profile, error) {
	return &rbac.Profile{ID: id}, nil
}

func (m memoryRBAC) ListRoleAssignments(context.Context, uuid.UUID) ([]string, error) {
	return m.roles, nil
}

func (memoryRBAC) ListGrantedPermissionCodes(context.Context, []string) ([]string, error) {
	return nil, nil
}

type client struct {
	t       *testing.T
	handler http.Handler
	cookies map[string]*http.Cookie
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	c.t.Helper()
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rr := httptest.NewRecorder()
	c.handler.ServeHTTP(rr, req)
	for _, ck := range rr.Result().Cookies() {
		c.cookies[ck.Name] = ck
	}
	return rr
}

func newTestRouter(t *testing.T) (*client, *auth.User) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	hash, err := bcrypt.GenerateFromPassword([]byte("rahasia123"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &auth.User{ID: uuid.New(), Email: "siswa@test.local", PasswordHash: string(hash), IsActive: true}
	accounts := memoryAccounts{user: user}

	cfg := &Config{AppEnv: "test", RateLimitPerMinute: 1000, LoginRateLimit: 1000, AppRequestTimeout: 5 * time.Second}
	sessions := shared.NewSessionManager(redisClient, "test_session", time.Hour, false)
	csrf := shared.NewCSRFManager("csrf")
	store := memoryRBAC{roles: []string{"siswa"}}
	builder := rbac.NewBuilder(
		rbac.NewIdentityLoader(auth.NewSessionPrincipals(accounts), store),
		rbac.NewPermissionResolver(store),
	)
	mw := rbac.Middleware{Builder: builder}

	handler := NewRouter(RouterParams{
		Logger:           discardLogger(),
		Config:           cfg,
		SessionManager:   sessions,
		CSRFManager:      csrf,
		AuthHandler:      auth.NewHandler(discardLogger(), auth.NewService(accounts), sessions, csrf),
		DashboardHandler: dashboard.NewHandler(discardLogger(), mw),
		RBACMiddleware:   mw,
	})
	return &client{t: t, handler: handler, cookies: map[string]*http.Cookie{}}, user
}

func TestHealthz(t *testing.T) {
	c, _ := newTestRouter(t)

	rr := c.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
}

func TestAnonymousRootRedirectsToLogin(t *testing.T) {
	c, _ := newTestRouter(t)

	rr := c.do(httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))
}

func TestLoginRequiresCSRFToken(t *testing.T) {
	c, _ := newTestRouter(t)
	form := url.Values{"email": {"siswa@test.local"}, "password": {"rahasia123"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rr := c.do(req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestLoginFlowLandsOnRoleDashboard(t *testing.T) {
	c, _ := newTestRouter(t)

	page := c.do(httptest.NewRequest(http.MethodGet, "/login", nil))
	require.Equal(t, http.StatusOK, page.Code)
	var body struct {
		CSRFToken string `json:"csrf_token"`
	}
	require.NoError(t, json.Unmarshal(page.Body.Bytes(), &body))
	require.NotEmpty(t, body.CSRFToken)

	form := url.Values{"email": {"siswa@test.local"}, "password": {"rahasia123"}, "csrf_token": {body.CSRFToken}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	login := c.do(req)
	require.Equal(t, http.StatusSeeOther, login.Code)
	require.Equal(t, "/dashboard", login.Header().Get("Location"))

	home := c.do(httptest.NewRequest(http.MethodGet, "/dashboard/", nil))
	require.Equal(t, http.StatusSeeOther, home.Code)
	assert.Equal(t, "/dashboard/siswa", home.Header().Get("Location"))

	denied := c.do(httptest.NewRequest(http.MethodGet, "/dashboard/hubdin", nil))
	require.Equal(t, http.StatusSeeOther, denied.Code)
	assert.Equal(t, "/dashboard/unauthorized", denied.Header().Get("Location"))

	own := c.do(httptest.NewRequest(http.MethodGet, "/dashboard/siswa", nil))
	assert.Equal(t, http.StatusOK, own.Code)
}
