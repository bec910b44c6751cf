package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/prakerin/prakerin/internal/auth"
	"github.com/prakerin/prakerin/internal/rbac"
	"github.com/prakerin/prakerin/internal/shared"
)

// Exit codes of the check command.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitIntegrity    = 10
	ExitNoDashboards = 11
)

// AccountLookup resolves accounts by email or id.
type AccountLookup interface {
	FindByEmail(ctx context.Context, email string) (*auth.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*auth.User, error)
}

// CheckCLI evaluates the authorization context of one account.
type CheckCLI struct {
	accounts AccountLookup
	identity rbac.IdentityStore
	grants   rbac.GrantStore
}

// NewCheckCLI constructs the helper.
func NewCheckCLI(accounts AccountLookup, identity rbac.IdentityStore, grants rbac.GrantStore) *CheckCLI {
	return &CheckCLI{accounts: accounts, identity: identity, grants: grants}
}

// CheckOptions defines available flags for the check command.
type CheckOptions struct {
	// Account is an email address or a user id.
	Account    string
	Section    string
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// CheckSummary describes the JSON response for check.
type CheckSummary struct {
	UserID       string          `json:"user_id"`
	Email        string          `json:"email"`
	Roles        []rbac.Role     `json:"roles"`
	Permissions  []string        `json:"permissions"`
	Sections     []string        `json:"sections"`
	Features     []string        `json:"features"`
	DefaultRoute string          `json:"default_route"`
	Section      *SectionOutcome `json:"section,omitempty"`
}

// SectionOutcome reports the decision for a requested section.
type SectionOutcome struct {
	Name    string `json:"name"`
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

type fixedPrincipal rbac.Principal

func (p fixedPrincipal) CurrentPrincipal(context.Context) (*rbac.Principal, error) {
	principal := rbac.Principal(p)
	return &principal, nil
}

// Run executes the check workflow and prints the outcome.
func (c *CheckCLI) Run(ctx context.Context, opts CheckOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	account := strings.TrimSpace(opts.Account)
	if account == "" {
		_, _ = fmt.Fprintln(opts.Stderr, "check: --account is required")
		return ExitFailure
	}
	var section rbac.Section
	if opts.Section != "" {
		s, ok := rbac.ParseSection(opts.Section)
		if !ok {
			_, _ = fmt.Fprintf(opts.Stderr, "check: unknown section %q\n", opts.Section)
			return ExitFailure
		}
		section = s
	}

	user, err := c.lookup(ctx, account)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "check: %v\n", err)
		return ExitFailure
	}

	builder := rbac.NewBuilder(
		rbac.NewIdentityLoader(fixedPrincipal{ID: user.ID, Email: user.Email}, c.identity),
		rbac.NewPermissionResolver(c.grants),
	)
	authz, err := builder.Build(rbac.WithScope(ctx, rbac.NewScope()))
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "check: %v\n", err)
		if rbac.IsDataIntegrity(err) {
			return ExitIntegrity
		}
		return ExitFailure
	}

	summary := summarize(authz)
	if section != "" {
		d := rbac.DecideSection(authz, section)
		summary.Section = &SectionOutcome{Name: string(section), Allowed: d.Allowed, Reason: string(d.Reason)}
	}
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(summary); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "check: encode json: %v\n", err)
			return ExitFailure
		}
	} else {
		renderCheckHuman(opts.Stdout, summary)
	}
	if len(summary.Sections) == 0 {
		return ExitNoDashboards
	}
	return ExitOK
}

func (c *CheckCLI) lookup(ctx context.Context, account string) (*auth.User, error) {
	if id, err := uuid.Parse(account); err == nil {
		return c.accounts.FindByID(ctx, id)
	}
	if !strings.Contains(account, "@") {
		return nil, errors.New("account must be an email or a user id")
	}
	return c.accounts.FindByEmail(ctx, account)
}

func summarize(authz *rbac.AuthorizationContext) CheckSummary {
	sections := rbac.AccessibleSections(authz)
	names := make([]string, 0, len(sections))
	for _, s := range sections {
		names = append(names, string(s))
	}
	return CheckSummary{
		UserID:       authz.UserID().String(),
		Email:        authz.Principal.Email,
		Roles:        authz.Roles.Sorted(),
		Permissions:  authz.Permissions.Sorted(),
		Sections:     names,
		Features:     shared.AllowedFeatures(authz),
		DefaultRoute: rbac.ResolveDefaultDashboardRoute(authz),
	}
}

func renderCheckHuman(w io.Writer, s CheckSummary) {
	roles := make([]string, 0, len(s.Roles))
	for _, r := range s.Roles {
		roles = append(roles, string(r))
	}
	_, _ = fmt.Fprintf(w, "user:        %s (%s)\n", s.Email, s.UserID)
	_, _ = fmt.Fprintf(w, "roles:       %s\n", strings.Join(roles, ", "))
	_, _ = fmt.Fprintf(w, "permissions: %d\n", len(s.Permissions))
	for _, p := range s.Permissions {
		_, _ = fmt.Fprintf(w, "  - %s\n", p)
	}
	if len(s.Sections) == 0 {
		_, _ = fmt.Fprintln(w, "sections:    none")
	} else {
		_, _ = fmt.Fprintf(w, "sections:    %s\n", strings.Join(s.Sections, ", "))
	}
	if len(s.Features) == 0 {
		_, _ = fmt.Fprintln(w, "features:    none")
	} else {
		_, _ = fmt.Fprintf(w, "features:    %s\n", strings.Join(s.Features, ", "))
	}
	_, _ = fmt.Fprintf(w, "landing:     %s\n", s.DefaultRoute)
	if s.Section != nil {
		verdict := "DENY"
		if s.Section.Allowed {
			verdict = "ALLOW"
		}
		_, _ = fmt.Fprintf(w, "section %s: %s (%s)\n", s.Section.Name, verdict, s.Section.Reason)
	}
}
