package rbac

// Reason explains which branch produced a Decision.
type Reason string

const (
	ReasonWildcard   Reason = "wildcard"
	ReasonSuperRole  Reason = "super_role"
	ReasonRole       Reason = "role"
	ReasonPermission Reason = "permission"
	ReasonNoMatch    Reason = "no_match"
)

// Decision is the outcome of an access check.
type Decision struct {
	Allowed bool
	Reason  Reason
}

func allow(reason Reason) Decision { return Decision{Allowed: true, Reason: reason} }

var deny = Decision{Reason: ReasonNoMatch}

// Decide evaluates req against authz:
//  1. any wildcard capability allows;
//  2. a non-empty req.Roles intersecting the context roles allows;
//  3. req.Permissions intersecting the context permissions allows;
//  4. otherwise deny.
func Decide(authz *AuthorizationContext, req Requirement) Decision {
	if authz == nil {
		return deny
	}
	if authz.Permissions.HasWildcard() {
		return allow(ReasonWildcard)
	}
	if len(req.Roles) > 0 && authz.Roles.HasAny(req.Roles) {
		return allow(ReasonRole)
	}
	for _, code := range req.Permissions {
		if authz.Permissions.Has(code) {
			return allow(ReasonPermission)
		}
	}
	return deny
}

// AssertAccess returns *AccessDeniedError when Decide denies, and
// ErrUnauthenticated for a nil context.
func AssertAccess(authz *AuthorizationContext, req Requirement) error {
	if authz == nil {
		return ErrUnauthenticated
	}
	if Decide(authz, req).Allowed {
		return nil
	}
	return &AccessDeniedError{Principal: authz.UserID(), Requirement: req}
}

// HasAnyPermission reports whether permissions hold a wildcard or any of
// candidates.
func HasAnyPermission(permissions PermissionSet, candidates []string) bool {
	if permissions.HasWildcard() {
		return true
	}
	for _, code := range candidates {
		if permissions.Has(code) {
			return true
		}
	}
	return false
}
