package rbac

import (
	"context"

	"github.com/google/uuid"
)

// AuthorizationContext is the per-request view of who the caller is and what
// they hold. It is built fresh for every request and never persisted.
type AuthorizationContext struct {
	Principal   Principal
	Profile     Profile
	Roles       RoleSet
	Permissions PermissionSet
}

// UserID returns the principal id.
func (c *AuthorizationContext) UserID() uuid.UUID {
	if c == nil {
		return uuid.Nil
	}
	return c.Principal.ID
}

// Builder composes IdentityLoader and PermissionResolver.
type Builder struct {
	identities  *IdentityLoader
	permissions *PermissionResolver
}

// NewBuilder constructs a Builder.
func NewBuilder(identities *IdentityLoader, permissions *PermissionResolver) *Builder {
	return &Builder{identities: identities, permissions: permissions}
}

// Build loads the authorization context for the request. It returns
// ErrUnauthenticated without querying profile or roles when no principal is
// present. With a Scope in ctx the built context is reused for the rest of
// the request.
func (b *Builder) Build(ctx context.Context) (*AuthorizationContext, error) {
	scope := ScopeFromContext(ctx)
	if authz := FromContext(ctx); authz != nil {
		return authz, nil
	}

	identity, err := b.identities.Load(ctx)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		return nil, ErrUnauthenticated
	}

	permissions, err := b.permissions.Resolve(ctx, identity.Roles)
	if err != nil {
		return nil, err
	}

	roles := make(RoleSet, len(identity.Roles))
	for _, role := range identity.Roles {
		roles[NormalizeRole(string(role))] = struct{}{}
	}
	authz := &AuthorizationContext{
		Principal:   identity.Principal,
		Profile:     identity.Profile,
		Roles:       roles,
		Permissions: permissions,
	}
	if scope != nil {
		scope.storeAuthorization(authz)
	}
	return authz, nil
}
