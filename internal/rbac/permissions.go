package rbac

import (
	"context"
	"strings"
)

// GrantStore reads granted permission codes for roles given in storage form.
// Only rows with granted = true may be returned.
type GrantStore interface {
	ListGrantedPermissionCodes(ctx context.Context, storageRoles []string) ([]string, error)
}

// PermissionResolver expands roles into permission codes.
type PermissionResolver struct {
	store GrantStore
}

// NewPermissionResolver constructs a PermissionResolver.
func NewPermissionResolver(store GrantStore) *PermissionResolver {
	return &PermissionResolver{store: store}
}

// Resolve returns the de-duplicated permission codes granted to roles. An
// empty role list short-circuits without touching the store. When ctx carries
// a Scope the result is memoized for the request.
func (r *PermissionResolver) Resolve(ctx context.Context, roles []Role) (PermissionSet, error) {
	key := RoleSetKey(roles)
	if key == "" {
		return PermissionSet{}, nil
	}
	load := func() (PermissionSet, error) { return r.load(ctx, key) }
	if scope := ScopeFromContext(ctx); scope != nil {
		return scope.resolvePermissions(key, load)
	}
	return load()
}

func (r *PermissionResolver) load(ctx context.Context, key string) (PermissionSet, error) {
	parts := strings.Split(key, ",")
	storage := make([]string, 0, len(parts))
	for _, role := range parts {
		storage = append(storage, StorageRole(role))
	}
	codes, err := r.store.ListGrantedPermissionCodes(ctx, storage)
	if err != nil {
		return nil, &StoreError{Op: "load role permissions", Err: err}
	}
	return NewPermissionSet(codes...), nil
}
