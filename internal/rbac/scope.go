package rbac

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

type scopeContextKey struct{}

// Scope memoizes authorization lookups for the lifetime of one request.
// A Scope must never outlive or be shared across requests.
type Scope struct {
	mu          sync.Mutex
	permissions map[string]PermissionSet
	authz       *AuthorizationContext
	group       singleflight.Group
}

// NewScope returns an empty request scope.
func NewScope() *Scope {
	return &Scope{permissions: make(map[string]PermissionSet)}
}

// WithScope stores scope in ctx.
func WithScope(ctx context.Context, scope *Scope) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, scope)
}

// ScopeFromContext extracts the request scope, or nil.
func ScopeFromContext(ctx context.Context) *Scope {
	scope, _ := ctx.Value(scopeContextKey{}).(*Scope)
	return scope
}

// FromContext returns the authorization context already built for the
// request, or nil when none has been built.
func FromContext(ctx context.Context) *AuthorizationContext {
	scope := ScopeFromContext(ctx)
	if scope == nil {
		return nil
	}
	scope.mu.Lock()
	defer scope.mu.Unlock()
	return scope.authz
}

func (s *Scope) storeAuthorization(authz *AuthorizationContext) {
	s.mu.Lock()
	s.authz = authz
	s.mu.Unlock()
}

// resolvePermissions returns the memoized set for key, running load at most
// once per key even when called concurrently.
func (s *Scope) resolvePermissions(key string, load func() (PermissionSet, error)) (PermissionSet, error) {
	s.mu.Lock()
	if cached, ok := s.permissions[key]; ok {
		s.mu.Unlock()
		return cached.Clone(), nil
	}
	s.mu.Unlock()

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		set, err := load()
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.permissions[key] = set
		s.mu.Unlock()
		return set, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(PermissionSet).Clone(), nil
}
