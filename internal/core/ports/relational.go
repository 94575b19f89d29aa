package ports

import (
	"context"

	"github.com/cloudkeep/identity-bridge/internal/core/domain"
)

// RelationalStore is the narrow identity surface the resolver consumes from
// the SQL-backed store. Absence is reported as domain.ErrUserNotFound;
// connectivity failures wrap domain.ErrStoreUnavailable.
type RelationalStore interface {
	FindUserByID(ctx context.Context, id string) (*domain.User, error)
	FindUserByName(ctx context.Context, name, domainID string) (*domain.User, error)
	// ListUsers may consume hint filters it applies itself; callers pass a
	// clone when the hints must survive the call.
	ListUsers(ctx context.Context, hints *domain.ListHints) ([]domain.User, error)
	UpdateUser(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error)
}

// AssignmentStore is the project/role/grant surface backing the membership
// reconciler. It lives in the relational store alongside the users.
type AssignmentStore interface {
	FindProjectByName(ctx context.Context, name, domainID string) (*domain.Project, error)
	FindRoleByName(ctx context.Context, name string) (*domain.Role, error)
	ListProjectIDsForUser(ctx context.Context, userID string) ([]string, error)
	FindGrant(ctx context.Context, userID, projectID string) (*domain.RoleGrant, error)
	// CreateOrGetGrant persists the grant if absent and returns the stored
	// state either way. It must be idempotent under concurrent callers.
	CreateOrGetGrant(ctx context.Context, grant domain.RoleGrant) (*domain.RoleGrant, error)
	ListAssignments(ctx context.Context) ([]domain.RoleAssignment, error)
}
