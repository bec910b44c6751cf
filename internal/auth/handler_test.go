package auth_test

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
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/prakerin/prakerin/internal/auth"
	"github.com/prakerin/prakerin/internal/shared"
	_ "github.com/prakerin/prakerin/testing"
)

type stubRepo struct {
	user     *auth.User
	sessions []string
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || !strings.EqualFold(s.user.Email, email) {
		return nil, auth.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, auth.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID uuid.UUID, expiresAt time.Time, ip, ua string) error {
	s.sessions = append(s.sessions, id)
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	return nil
}

func newAuthHandler(t *testing.T, repo auth.Repository) (*auth.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	handler := auth.NewHandler(nil, auth.NewService(repo), sessionManager, csrfManager)
	return handler, sessionManager
}

func serve(t *testing.T, handler *auth.Handler, sm *shared.SessionManager, req *http.Request) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(ctx)

	router := chiRouter(handler)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.NoError(t, sm.Commit(ctx, res, sess))
	return res, sess
}

func chiRouter(h *auth.Handler) http.Handler {
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func loginUser(t *testing.T) *auth.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("correctpass"), bcrypt.MinCost)
	require.NoError(t, err)
	return &auth.User{ID: uuid.New(), Email: "siswa@test.local", PasswordHash: string(hashed), IsActive: true}
}

func postLogin(email, password, next string, cookie *http.Cookie) *http.Request {
	form := url.Values{}
	form.Set("email", email)
	form.Set("password", password)
	if next != "" {
		form.Set("next", next)
	}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

func TestLoginPageIssuesCSRFToken(t *testing.T) {
	handler, sm := newAuthHandler(t, &stubRepo{})

	res, sess := serve(t, handler, sm, httptest.NewRequest(http.MethodGet, "/login?next=/dashboard/siswa", nil))

	require.Equal(t, http.StatusOK, res.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.Equal(t, sess.Get(shared.CSRFSessionKey), body["csrf_token"])
	assert.Equal(t, "/dashboard/siswa", body["next"])
}

func TestLoginInvalidCredentials(t *testing.T) {
	handler, sm := newAuthHandler(t, &stubRepo{user: loginUser(t)})

	res, sess := serve(t, handler, sm, postLogin("siswa@test.local", "wrongpass", "", nil))

	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Email atau password tidak valid")
	_, ok := sess.UserID()
	assert.False(t, ok)
}

func TestLoginValidationErrors(t *testing.T) {
	handler, sm := newAuthHandler(t, &stubRepo{user: loginUser(t)})

	res, _ := serve(t, handler, sm, postLogin("not-an-email", "short", "", nil))

	require.Equal(t, http.StatusBadRequest, res.Code)
	var body struct {
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.Equal(t, "email", body.Errors["Email"])
	assert.Equal(t, "min", body.Errors["Password"])
}

func TestLoginSuccessRenewsSessionAndRedirects(t *testing.T) {
	user := loginUser(t)
	repo := &stubRepo{user: user}
	handler, sm := newAuthHandler(t, repo)

	first, preSess := serve(t, handler, sm, httptest.NewRequest(http.MethodGet, "/login", nil))
	require.Equal(t, http.StatusOK, first.Code)
	preID := preSess.ID

	res, sess := serve(t, handler, sm, postLogin("siswa@test.local", "correctpass", "/dashboard/siswa",
		&http.Cookie{Name: sm.CookieName(), Value: preID}))

	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/dashboard/siswa", res.Header().Get("Location"))
	assert.NotEqual(t, preID, sess.ID)
	id, ok := sess.UserID()
	require.True(t, ok)
	assert.Equal(t, user.ID, id)
	assert.Equal(t, []string{sess.ID}, repo.sessions)
}

func TestLoginRejectsExternalNext(t *testing.T) {
	handler, sm := newAuthHandler(t, &stubRepo{user: loginUser(t)})

	res, _ := serve(t, handler, sm, postLogin("siswa@test.local", "correctpass", "https://evil.example/", nil))

	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/dashboard", res.Header().Get("Location"))
}

func TestLogoutRedirectsToLogin(t *testing.T) {
	handler, sm := newAuthHandler(t, &stubRepo{})

	res, _ := serve(t, handler, sm, httptest.NewRequest(http.MethodPost, "/logout", nil))

	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/login", res.Header().Get("Location"))
}
