package rbac

// Dashboard routes.
const (
	DashboardPrefix   = "/dashboard"
	LoginRoute        = "/login"
	UnauthorizedRoute = DashboardPrefix + "/unauthorized"
)

// Section is a dashboard area gated to one primary role.
type Section = Role

// ParseSection returns the section named by value, if it is one of RoleSlugs.
func ParseSection(value string) (Section, bool) {
	section := NormalizeRole(value)
	for _, known := range RoleSlugs() {
		if section == known {
			return section, true
		}
	}
	return "", false
}

// SectionRoute returns the dashboard path of section.
func SectionRoute(section Section) string {
	return DashboardPrefix + "/" + string(NormalizeRole(string(section)))
}

func sectionPermissionCandidates(section Section) []string {
	slug := string(NormalizeRole(string(section)))
	return []string{
		"dashboard." + slug + ".access",
		"dashboard:" + slug + ":access",
		slug + ".access",
		slug + ":access",
		slug + ".*",
	}
}

// DecideSection evaluates whole-section access:
//  1. any wildcard capability allows;
//  2. SuperRole allows every section;
//  3. holding the section's own role allows;
//  4. a section access permission allows;
//  5. otherwise deny.
func DecideSection(authz *AuthorizationContext, section Section) Decision {
	if authz == nil {
		return deny
	}
	if authz.Permissions.HasWildcard() {
		return allow(ReasonWildcard)
	}
	if authz.Roles.Has(string(SuperRole)) {
		return allow(ReasonSuperRole)
	}
	if authz.Roles.Has(string(section)) {
		return allow(ReasonRole)
	}
	for _, code := range sectionPermissionCandidates(section) {
		if authz.Permissions.Has(code) {
			return allow(ReasonPermission)
		}
	}
	return deny
}

// CanAccessSection reports whether authz may enter section.
func CanAccessSection(authz *AuthorizationContext, section Section) bool {
	return DecideSection(authz, section).Allowed
}

// AccessibleSections lists the sections authz may enter, in priority order.
func AccessibleSections(authz *AuthorizationContext) []Section {
	var out []Section
	for _, section := range RoleSlugs() {
		if CanAccessSection(authz, section) {
			out = append(out, section)
		}
	}
	return out
}

// ResolveDefaultDashboardRoute returns the route of the first accessible
// section in priority order, or UnauthorizedRoute. It never fails.
func ResolveDefaultDashboardRoute(authz *AuthorizationContext) string {
	for _, section := range RoleSlugs() {
		if CanAccessSection(authz, section) {
			return SectionRoute(section)
		}
	}
	return UnauthorizedRoute
}
