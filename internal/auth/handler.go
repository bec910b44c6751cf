package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/prakerin/prakerin/internal/platform/httpx"
	"github.com/prakerin/prakerin/internal/rbac"
	"github.com/prakerin/prakerin/internal/shared"
)

const invalidCredentialsMessage = "Email atau password tidak valid"

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
}

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
}

type loginPage struct {
	CSRFToken string               `json:"csrf_token"`
	Next      string               `json:"next,omitempty"`
	Flash     *shared.FlashMessage `json:"flash,omitempty"`
	Errors    map[string]string    `json:"errors,omitempty"`
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if _, ok := sess.UserID(); ok {
		http.Redirect(w, r, safeNext(r.URL.Query().Get("next")), http.StatusSeeOther)
		return
	}
	csrfToken, err := h.csrfManager.EnsureToken(sess)
	if err != nil {
		h.logger.Error("login csrf token", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	page := loginPage{CSRFToken: csrfToken, Next: r.URL.Query().Get("next")}
	if sess != nil {
		page.Flash = sess.PopFlash()
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid form")
		return
	}
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	form := loginForm{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	next := r.PostFormValue("next")
	errs := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fieldErr := range verrs {
				errs[fieldErr.Field()] = fieldErr.Tag()
			}
		}
	}

	if len(errs) == 0 {
		user, err := h.service.Authenticate(r.Context(), form.Email, form.Password)
		switch {
		case err == nil:
			if err := h.sessionManager.Renew(r.Context(), sess); err != nil {
				h.logger.Error("renew session", slog.Any("error", err))
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			sess.SetUser(user.ID.String())
			sess.Delete(shared.CSRFSessionKey)
			sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Selamat datang kembali"})
			if err := h.service.RegisterSession(r.Context(), sess.ID, user.ID, h.sessionManager.TTL(), r.RemoteAddr, r.UserAgent()); err != nil {
				h.logger.Warn("register session", slog.Any("error", err))
			}
			h.logger.Info("login", slog.String("user_id", user.ID.String()))
			http.Redirect(w, r, safeNext(next), http.StatusSeeOther)
			return
		case errors.Is(err, ErrInvalidCredentials):
			if errors.Is(err, ErrAccountDisabled) {
				h.logger.Warn("login rejected", slog.String("reason", "account disabled"))
			}
			errs["general"] = invalidCredentialsMessage
		default:
			h.logger.Error("authenticate", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
	}

	csrfToken, _ := h.csrfManager.EnsureToken(sess)
	httpx.JSON(w, http.StatusBadRequest, loginPage{CSRFToken: csrfToken, Next: next, Errors: errs})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		h.sessionManager.Destroy(sess)
	}
	http.Redirect(w, r, rbac.LoginRoute, http.StatusSeeOther)
}

// safeNext keeps post-login redirects inside the dashboard.
func safeNext(next string) string {
	next = strings.TrimSpace(next)
	if next == rbac.DashboardPrefix || strings.HasPrefix(next, rbac.DashboardPrefix+"/") {
		return next
	}
	return rbac.DashboardPrefix
}
