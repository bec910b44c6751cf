package rbac

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// PrincipalSource yields the authenticated principal of the current request.
// It returns nil without error when the request is anonymous.
type PrincipalSource interface {
	CurrentPrincipal(ctx context.Context) (*Principal, error)
}

// IdentityStore reads profile and role-assignment rows.
type IdentityStore interface {
	// GetProfile returns nil without error when no row exists.
	GetProfile(ctx context.Context, principalID uuid.UUID) (*Profile, error)
	ListRoleAssignments(ctx context.Context, principalID uuid.UUID) ([]string, error)
}

// IdentityLoader resolves the principal, its profile and its roles.
type IdentityLoader struct {
	principals PrincipalSource
	store      IdentityStore
}

// NewIdentityLoader constructs an IdentityLoader.
func NewIdentityLoader(principals PrincipalSource, store IdentityStore) *IdentityLoader {
	return &IdentityLoader{principals: principals, store: store}
}

// Load returns nil, nil for anonymous requests. An authenticated principal
// without a profile row or without any role assignment is a
// *DataIntegrityError.
func (l *IdentityLoader) Load(ctx context.Context) (*Identity, error) {
	principal, err := l.principals.CurrentPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("rbac: load principal: %w", err)
	}
	if principal == nil {
		return nil, nil
	}

	var (
		profile *Profile
		raw     []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := l.store.GetProfile(gctx, principal.ID)
		if err != nil {
			return &StoreError{Op: "load profile", Err: err}
		}
		profile = p
		return nil
	})
	g.Go(func() error {
		r, err := l.store.ListRoleAssignments(gctx, principal.ID)
		if err != nil {
			return &StoreError{Op: "load user roles", Err: err}
		}
		raw = r
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if profile == nil {
		return nil, &DataIntegrityError{Principal: principal.ID, Missing: "profile"}
	}
	roles := uniqueRoles(raw)
	if len(roles) == 0 {
		return nil, &DataIntegrityError{Principal: principal.ID, Missing: "roles"}
	}
	return &Identity{Principal: *principal, Profile: *profile, Roles: roles}, nil
}

func uniqueRoles(values []string) []Role {
	seen := make(map[Role]struct{}, len(values))
	roles := make([]Role, 0, len(values))
	for _, v := range values {
		role := NormalizeRole(v)
		if role == "" {
			continue
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		roles = append(roles, role)
	}
	return roles
}
