package rbac

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	pgForeignKeyViolation = "23503"
	pgInvalidTextRepr     = "22P02"
)

// Repository provides PostgreSQL backed persistence for the RBAC tables.
type Repository struct {
	db DBTX
}

// NewRepository constructs a repository.
func NewRepository(db DBTX) *Repository {
	return &Repository{db: db}
}

// GetProfile loads a profile row, returning nil when absent.
func (r *Repository) GetProfile(ctx context.Context, principalID uuid.UUID) (*Profile, error) {
	var p Profile
	err := r.db.QueryRow(ctx, `SELECT id, email, full_name, phone, avatar_url, created_at, updated_at
		FROM profiles WHERE id = $1`, principalID).
		Scan(&p.ID, &p.Email, &p.FullName, &p.Phone, &p.AvatarURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// ListRoleAssignments returns the raw role values assigned to a principal.
func (r *Repository) ListRoleAssignments(ctx context.Context, principalID uuid.UUID) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT role::text FROM user_roles WHERE user_id = $1`, principalID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// ListGrantedPermissionCodes returns codes of granted permissions for roles.
func (r *Repository) ListGrantedPermissionCodes(ctx context.Context, storageRoles []string) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT p.code
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role::text = ANY($1) AND rp.granted = true`, storageRoles)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// ListRoles returns all roles ordered by slug.
func (r *Repository) ListRoles(ctx context.Context) ([]RoleRecord, error) {
	rows, err := r.db.Query(ctx, `SELECT id, slug, name, description, is_system, created_at, updated_at
		FROM roles ORDER BY slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []RoleRecord
	for rows.Next() {
		var role RoleRecord
		if err := rows.Scan(&role.ID, &role.Slug, &role.Name, &role.Description, &role.IsSystem, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

// ListPermissions returns all permissions ordered by code.
func (r *Repository) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := r.db.Query(ctx, `SELECT id, code, name, description, created_at, updated_at
		FROM permissions ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return perms, nil
}

// ListRoleGrants returns every grant row of a role, revocations included.
func (r *Repository) ListRoleGrants(ctx context.Context, storageRole string) ([]Grant, error) {
	rows, err := r.db.Query(ctx, `SELECT role::text, permission_id, granted
		FROM role_permissions WHERE role::text = $1`, storageRole)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var grants []Grant
	for rows.Next() {
		var g Grant
		if err := rows.Scan(&g.Role, &g.PermissionID, &g.Granted); err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return grants, nil
}

// UpsertGrant writes the grant state of (role, permission).
func (r *Repository) UpsertGrant(ctx context.Context, storageRole string, permissionID uuid.UUID, granted bool) error {
	_, err := r.db.Exec(ctx, `INSERT INTO role_permissions (role, permission_id, granted)
		VALUES ($1, $2, $3)
		ON CONFLICT (role, permission_id) DO UPDATE SET granted = EXCLUDED.granted`,
		storageRole, permissionID, granted)
	return mapWriteError(err)
}

// AssignRole adds a role assignment; assigning an existing role is a no-op.
func (r *Repository) AssignRole(ctx context.Context, userID uuid.UUID, storageRole string) error {
	_, err := r.db.Exec(ctx, `INSERT INTO user_roles (user_id, role) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, userID, storageRole)
	return mapWriteError(err)
}

// RevokeRole removes a role assignment. Returns ErrNotFound if nothing was deleted.
func (r *Repository) RevokeRole(ctx context.Context, userID uuid.UUID, storageRole string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role::text = $2`, userID, storageRole)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordActivity inserts an activity_logs row.
func (r *Repository) RecordActivity(ctx context.Context, entry ActivityLog) error {
	meta := entry.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	var entityID *string
	if entry.EntityID != "" {
		entityID = &entry.EntityID
	}
	_, err = r.db.Exec(ctx, `INSERT INTO activity_logs (user_id, action, entity_type, entity_id, metadata)
		VALUES ($1, $2, $3, $4, $5)`, entry.UserID, entry.Action, entry.EntityType, entityID, metaJSON)
	return err
}

// ListIntegrityFaults finds users missing a profile row or any role assignment.
func (r *Repository) ListIntegrityFaults(ctx context.Context) ([]IntegrityFault, error) {
	rows, err := r.db.Query(ctx, `SELECT u.id, u.email,
			p.id IS NULL AS missing_profile,
			NOT EXISTS (SELECT 1 FROM user_roles ur WHERE ur.user_id = u.id) AS missing_roles
		FROM users u
		LEFT JOIN profiles p ON p.id = u.id
		WHERE p.id IS NULL OR NOT EXISTS (SELECT 1 FROM user_roles ur WHERE ur.user_id = u.id)
		ORDER BY u.email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var faults []IntegrityFault
	for rows.Next() {
		var f IntegrityFault
		if err := rows.Scan(&f.UserID, &f.Email, &f.MissingProfile, &f.MissingRoles); err != nil {
			return nil, err
		}
		faults = append(faults, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return faults, nil
}

func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgForeignKeyViolation:
			return ErrNotFound
		case pgInvalidTextRepr:
			return &ValidationError{Field: "role", Message: pgErr.Message}
		}
	}
	return err
}

var (
	_ IdentityStore = (*Repository)(nil)
	_ GrantStore    = (*Repository)(nil)
	_ Store         = (*Repository)(nil)
)
