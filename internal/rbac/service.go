package rbac

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ManageRequirement gates every RBAC management action.
var ManageRequirement = Requirement{
	Roles:       []string{string(RoleHubdin)},
	Permissions: []string{"rbac.manage", "rbac.*", "dashboard.hubdin.access"},
}

// Store defines the persistence used by management actions.
type Store interface {
	ListRoles(ctx context.Context) ([]RoleRecord, error)
	ListPermissions(ctx context.Context) ([]Permission, error)
	ListRoleGrants(ctx context.Context, storageRole string) ([]Grant, error)
	UpsertGrant(ctx context.Context, storageRole string, permissionID uuid.UUID, granted bool) error
	AssignRole(ctx context.Context, userID uuid.UUID, storageRole string) error
	RevokeRole(ctx context.Context, userID uuid.UUID, storageRole string) error
}

// ActivityRecorder persists activity log entries.
type ActivityRecorder interface {
	RecordActivity(ctx context.Context, entry ActivityLog) error
}

// DecisionObserver receives every access decision taken by the package's
// HTTP and management entry points.
type DecisionObserver interface {
	ObserveDecision(kind, outcome, reason string)
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store    Store
	Builder  *Builder
	Activity ActivityRecorder
	Logger   *slog.Logger
	Observer DecisionObserver
}

// Service orchestrates RBAC management operations.
type Service struct {
	store    Store
	builder  *Builder
	activity ActivityRecorder
	logger   *slog.Logger
	observer DecisionObserver
	validate *validator.Validate
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    cfg.Store,
		builder:  cfg.Builder,
		activity: cfg.Activity,
		logger:   logger,
		observer: cfg.Observer,
		validate: validator.New(),
	}
}

type roleInput struct {
	Role string `validate:"required"`
}

type rolePermissionInput struct {
	Role         string `validate:"required"`
	PermissionID string `validate:"required,uuid"`
}

type userRoleInput struct {
	UserID string `validate:"required,uuid"`
	Role   string `validate:"required"`
}

// RolePermissionChange is the result of SetRolePermission.
type RolePermissionChange struct {
	Role         string    `json:"role"`
	PermissionID uuid.UUID `json:"permission_id"`
	Granted      bool      `json:"granted"`
}

// UserRoleChange is the result of AssignRole and RevokeRole.
type UserRoleChange struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"`
}

// ListRoles returns the roles catalogue.
func (s *Service) ListRoles(ctx context.Context) ActionResult[[]RoleRecord] {
	if _, err := s.ensureManage(ctx); err != nil {
		return FailFrom[[]RoleRecord](err, "You do not have access to RBAC roles.")
	}
	roles, err := s.store.ListRoles(ctx)
	if err != nil {
		return dbFail[[]RoleRecord](s.logger, "list roles", err)
	}
	return OK(nonNil(roles))
}

// ListPermissions returns the permissions catalogue.
func (s *Service) ListPermissions(ctx context.Context) ActionResult[[]Permission] {
	if _, err := s.ensureManage(ctx); err != nil {
		return FailFrom[[]Permission](err, "You do not have access to permissions.")
	}
	perms, err := s.store.ListPermissions(ctx)
	if err != nil {
		return dbFail[[]Permission](s.logger, "list permissions", err)
	}
	return OK(nonNil(perms))
}

// ListRolePermissionMap returns every permission with its grant state for
// role. Permissions without a grant row are reported as not granted.
func (s *Service) ListRolePermissionMap(ctx context.Context, role string) ActionResult[[]RolePermissionMapItem] {
	if _, err := s.ensureManage(ctx); err != nil {
		return FailFrom[[]RolePermissionMapItem](err, "You do not have access to role-permissions.")
	}
	if err := s.checkRole(roleInput{Role: role}, role); err != nil {
		return FailFrom[[]RolePermissionMapItem](err, "")
	}
	storage := StorageRole(role)
	perms, err := s.store.ListPermissions(ctx)
	if err != nil {
		return dbFail[[]RolePermissionMapItem](s.logger, "list permissions", err)
	}
	grants, err := s.store.ListRoleGrants(ctx, storage)
	if err != nil {
		return dbFail[[]RolePermissionMapItem](s.logger, "list role grants", err)
	}
	granted := make(map[uuid.UUID]bool, len(grants))
	for _, g := range grants {
		granted[g.PermissionID] = g.Granted
	}
	items := make([]RolePermissionMapItem, 0, len(perms))
	for _, p := range perms {
		items = append(items, RolePermissionMapItem{
			PermissionID: p.ID,
			Code:         p.Code,
			Name:         p.Name,
			Description:  p.Description,
			Granted:      granted[p.ID],
		})
	}
	return OK(items)
}

// SetRolePermission grants or revokes a permission for a role.
func (s *Service) SetRolePermission(ctx context.Context, role, permissionID string, granted bool) ActionResult[RolePermissionChange] {
	authz, err := s.ensureManage(ctx)
	if err != nil {
		return FailFrom[RolePermissionChange](err, "You do not have access to set role permission.")
	}
	if err := s.checkRole(rolePermissionInput{Role: role, PermissionID: strings.TrimSpace(permissionID)}, role); err != nil {
		return FailFrom[RolePermissionChange](err, "")
	}
	permID := uuid.MustParse(strings.TrimSpace(permissionID))
	storage := StorageRole(role)
	if err := s.store.UpsertGrant(ctx, storage, permID, granted); err != nil {
		return dbFail[RolePermissionChange](s.logger, "set role permission", err)
	}
	s.record(ctx, ActivityLog{
		UserID:     authz.UserID(),
		Action:     "rbac.role_permission.set",
		EntityType: "role_permission",
		Metadata:   map[string]any{"role": storage, "permission_id": permID.String(), "granted": granted},
	})
	return OK(RolePermissionChange{Role: storage, PermissionID: permID, Granted: granted})
}

// AssignRole adds role to a user.
func (s *Service) AssignRole(ctx context.Context, userID, role string) ActionResult[UserRoleChange] {
	return s.changeUserRole(ctx, userID, role, true)
}

// RevokeRole removes role from a user.
func (s *Service) RevokeRole(ctx context.Context, userID, role string) ActionResult[UserRoleChange] {
	return s.changeUserRole(ctx, userID, role, false)
}

func (s *Service) changeUserRole(ctx context.Context, userID, role string, assign bool) ActionResult[UserRoleChange] {
	authz, err := s.ensureManage(ctx)
	if err != nil {
		return FailFrom[UserRoleChange](err, "You do not have access to manage user roles.")
	}
	if err := s.checkRole(userRoleInput{UserID: strings.TrimSpace(userID), Role: role}, role); err != nil {
		return FailFrom[UserRoleChange](err, "")
	}
	id := uuid.MustParse(strings.TrimSpace(userID))
	storage := StorageRole(role)

	action := "rbac.user_role.assign"
	op := "assign role"
	write := s.store.AssignRole
	if !assign {
		action = "rbac.user_role.revoke"
		op = "revoke role"
		write = s.store.RevokeRole
	}
	if err := write(ctx, id, storage); err != nil {
		return dbFail[UserRoleChange](s.logger, op, err)
	}
	s.record(ctx, ActivityLog{
		UserID:     authz.UserID(),
		Action:     action,
		EntityType: "user_role",
		EntityID:   id.String(),
		Metadata:   map[string]any{"role": storage},
	})
	return OK(UserRoleChange{UserID: id, Role: storage})
}

func (s *Service) ensureManage(ctx context.Context) (*AuthorizationContext, error) {
	authz, err := s.builder.Build(ctx)
	if err != nil {
		if IsDataIntegrity(err) {
			s.logger.Error("rbac build context", slog.Any("error", err))
		}
		return nil, err
	}
	decision := Decide(authz, ManageRequirement)
	if s.observer != nil {
		s.observer.ObserveDecision("requirement", outcome(decision), string(decision.Reason))
	}
	if !decision.Allowed {
		err := &AccessDeniedError{Principal: authz.UserID(), Requirement: ManageRequirement}
		s.logger.Warn("rbac management denied", slog.String("principal", authz.UserID().String()))
		return nil, err
	}
	return authz, nil
}

// checkRole validates input with the struct validator and then requires role
// to be one of the known roles.
func (s *Service) checkRole(input any, role string) error {
	if err := s.validate.Struct(input); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &ValidationError{Field: verrs[0].Field(), Message: verrs[0].Tag()}
		}
		return &ValidationError{Message: err.Error()}
	}
	if !IsKnownRole(role) {
		return &ValidationError{Field: "Role", Message: "unknown role " + strings.TrimSpace(role)}
	}
	return nil
}

func (s *Service) record(ctx context.Context, entry ActivityLog) {
	if s.activity == nil {
		return
	}
	if err := s.activity.RecordActivity(ctx, entry); err != nil {
		s.logger.Warn("rbac activity log", slog.String("action", entry.Action), slog.Any("error", err))
	}
}

func dbFail[T any](logger *slog.Logger, op string, err error) ActionResult[T] {
	if Classify(err) == FailureDB {
		logger.Error("rbac "+op, slog.Any("error", err))
	}
	return FailFrom[T](err, "")
}

func outcome(d Decision) string {
	if d.Allowed {
		return "allow"
	}
	return "deny"
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
