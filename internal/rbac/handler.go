package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/prakerin/prakerin/internal/platform/httpx"
)

// Handler exposes RBAC management endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers RBAC routes. Authorization happens inside the
// service so denials surface as FORBIDDEN results.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.rbac.Scope)
	r.Get("/roles", h.listRoles)
	r.Get("/permissions", h.listPermissions)
	r.Get("/roles/{role}/permissions", h.listRolePermissions)
	r.Put("/roles/{role}/permissions/{permissionID}", h.setRolePermission)
	r.Post("/users/{userID}/roles", h.assignRole)
	r.Delete("/users/{userID}/roles/{role}", h.revokeRole)
}

type setRolePermissionRequest struct {
	Granted *bool `json:"granted"`
}

type assignRoleRequest struct {
	Role string `json:"role"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	WriteResult(w, h.service.ListRoles(r.Context()))
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	WriteResult(w, h.service.ListPermissions(r.Context()))
}

func (h *Handler) listRolePermissions(w http.ResponseWriter, r *http.Request) {
	WriteResult(w, h.service.ListRolePermissionMap(r.Context(), chi.URLParam(r, "role")))
}

func (h *Handler) setRolePermission(w http.ResponseWriter, r *http.Request) {
	var req setRolePermissionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || req.Granted == nil {
		WriteResult(w, Fail[RolePermissionChange](CodeValidation, "granted flag is required"))
		return
	}
	res := h.service.SetRolePermission(r.Context(), chi.URLParam(r, "role"), chi.URLParam(r, "permissionID"), *req.Granted)
	WriteResult(w, res)
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	var req assignRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		WriteResult(w, Fail[UserRoleChange](CodeValidation, "invalid request body"))
		return
	}
	WriteResult(w, h.service.AssignRole(r.Context(), chi.URLParam(r, "userID"), req.Role))
}

func (h *Handler) revokeRole(w http.ResponseWriter, r *http.Request) {
	WriteResult(w, h.service.RevokeRole(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "role")))
}

// WriteResult encodes res as JSON with the status matching its error code.
func WriteResult[T any](w http.ResponseWriter, res ActionResult[T]) {
	httpx.JSON(w, resultStatus(res.Error), res)
}

func resultStatus(err *ActionError) int {
	if err == nil {
		return http.StatusOK
	}
	switch err.Code {
	case CodeForbidden:
		return http.StatusForbidden
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
