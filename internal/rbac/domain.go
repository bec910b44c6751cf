package rbac

import (
	"time"

	"github.com/google/uuid"
)

// Role is a role slug in canonical membership form, e.g. "pembimbing-sekolah".
type Role string

// Built-in roles of the internship dashboard.
const (
	RoleKS                   Role = "ks"
	RoleHubdin               Role = "hubdin"
	RoleOperator             Role = "operator"
	RoleKaprog               Role = "kaprog"
	RolePembimbingSekolah    Role = "pembimbing-sekolah"
	RolePembimbingPerusahaan Role = "pembimbing-perusahaan"
	RoleSiswa                Role = "siswa"
)

// SuperRole may enter every dashboard section.
const SuperRole = RoleHubdin

// RoleSlugs returns the fixed role list in dashboard priority order.
func RoleSlugs() []Role {
	return []Role{
		RoleKS,
		RoleHubdin,
		RoleOperator,
		RoleKaprog,
		RolePembimbingSekolah,
		RolePembimbingPerusahaan,
		RoleSiswa,
	}
}

// IsKnownRole reports whether value normalizes to one of RoleSlugs.
func IsKnownRole(value string) bool {
	role := NormalizeRole(value)
	for _, known := range RoleSlugs() {
		if role == known {
			return true
		}
	}
	return false
}

// Capability is a permission code that grants everything.
type Capability string

const (
	CapabilityAll                Capability = "*"
	CapabilityDashboardAll       Capability = "dashboard.*"
	CapabilityDashboardAllLegacy Capability = "dashboard:all"
)

// WildcardCapabilities lists every universal permission marker.
func WildcardCapabilities() []Capability {
	return []Capability{CapabilityAll, CapabilityDashboardAll, CapabilityDashboardAllLegacy}
}

// Principal describes the authenticated actor as issued by the identity provider.
type Principal struct {
	ID    uuid.UUID
	Email string
}

// Profile is the one-to-one public profile row of a principal.
type Profile struct {
	ID        uuid.UUID  `json:"id"`
	Email     *string    `json:"email"`
	FullName  *string    `json:"full_name"`
	Phone     *string    `json:"phone"`
	AvatarURL *string    `json:"avatar_url"`
	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

// Identity is the loaded principal with its profile and normalized roles.
type Identity struct {
	Principal Principal
	Profile   Profile
	Roles     []Role
}

// Requirement lists acceptable roles and permission codes for one operation.
// Either list matching is sufficient.
type Requirement struct {
	Roles       []string
	Permissions []string
}

// RoleRecord is a row of the roles catalogue.
type RoleRecord struct {
	ID          uuid.UUID `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	IsSystem    bool      `json:"is_system"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Permission represents an atomic capability.
type Permission struct {
	ID          uuid.UUID `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Grant ties a permission to a role. Granted=false is an explicit revocation.
type Grant struct {
	Role         string
	PermissionID uuid.UUID
	Granted      bool
}

// RolePermissionMapItem is one permission with its grant state for a role.
type RolePermissionMapItem struct {
	PermissionID uuid.UUID `json:"permission_id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	Description  *string   `json:"description"`
	Granted      bool      `json:"granted"`
}

// ActivityLog is an entry written to activity_logs for management actions.
type ActivityLog struct {
	UserID     uuid.UUID      `json:"user_id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id,omitempty"`
	Metadata   map[string]any `json:"metadata"`
}

// IntegrityFault describes an account missing rows the identity loader requires.
type IntegrityFault struct {
	UserID         uuid.UUID
	Email          string
	MissingProfile bool
	MissingRoles   bool
}
