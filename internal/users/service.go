package users

import (
	"context"
	"log/slog"
	"sort"

	"github.com/prakerin/prakerin/internal/rbac"
	"github.com/prakerin/prakerin/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
}

// Authorizer builds the caller's authorization context.
type Authorizer interface {
	Build(ctx context.Context) (*rbac.AuthorizationContext, error)
}

// Service handles user business logic.
type Service struct {
	repo   RepositoryPort
	authz  Authorizer
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, authz Authorizer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, authz: authz, logger: logger}
}

// ListUsers returns all users with their roles de-duplicated and sorted.
func (s *Service) ListUsers(ctx context.Context) rbac.ActionResult[[]User] {
	authz, err := s.authz.Build(ctx)
	if err == nil {
		err = rbac.AssertAccess(authz, shared.UsersManage)
	}
	if err != nil {
		return rbac.FailFrom[[]User](err, "You do not have access to users.")
	}

	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		s.logger.Error("list users failed", slog.Any("error", err))
		return rbac.Fail[[]User](rbac.CodeDB, "Failed to load users.")
	}
	if users == nil {
		users = []User{}
	}
	for i := range users {
		users[i].Roles = sortedUnique(users[i].Roles)
	}
	return rbac.OK(users)
}

func sortedUnique(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
