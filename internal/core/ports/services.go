package ports

import (
	"context"

	"github.com/cloudkeep/identity-bridge/internal/core/domain"
)

// IdentityResolver is the uniform identity surface presented to the host
// service: SQL-first lookup and authentication with directory fallback.
type IdentityResolver interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByName(ctx context.Context, name, domainID string) (*domain.User, error)
	Authenticate(ctx context.Context, id, password string) (*domain.AuthResult, error)
	ListUsers(ctx context.Context, hints *domain.ListHints) ([]domain.User, error)
	UpdateUser(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error)
}

// MembershipReconciler computes project membership and role grants,
// injecting the implicit default project for users without explicit
// assignments.
type MembershipReconciler interface {
	ProjectsForUser(ctx context.Context, userID string) ([]string, error)
	ResolveMetadata(ctx context.Context, userID, projectID string) (*domain.RoleGrant, error)
	ListRoleAssignments(ctx context.Context) ([]domain.RoleAssignment, error)
}
