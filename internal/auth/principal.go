package auth

import (
	"context"
	"errors"

	"github.com/prakerin/prakerin/internal/rbac"
	"github.com/prakerin/prakerin/internal/shared"
)

// SessionPrincipals resolves the signed-in user from the request session.
type SessionPrincipals struct {
	repo Repository
}

// NewSessionPrincipals constructs a SessionPrincipals.
func NewSessionPrincipals(repo Repository) *SessionPrincipals {
	return &SessionPrincipals{repo: repo}
}

// CurrentPrincipal returns nil for anonymous sessions, unknown users and
// deactivated accounts.
func (p *SessionPrincipals) CurrentPrincipal(ctx context.Context) (*rbac.Principal, error) {
	id, ok := shared.SessionFromContext(ctx).UserID()
	if !ok {
		return nil, nil
	}
	user, err := p.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, nil
	}
	return &rbac.Principal{ID: user.ID, Email: user.Email}, nil
}

var _ rbac.PrincipalSource = (*SessionPrincipals)(nil)
