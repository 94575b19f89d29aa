package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/cloudkeep/identity-bridge/internal/core/domain"
	"github.com/cloudkeep/identity-bridge/internal/core/ports"
)

// AssignmentRepository implements the assignment store port over the
// projects, roles and role_assignments tables.
type AssignmentRepository struct {
	db DBTX
}

var _ ports.AssignmentStore = (*AssignmentRepository)(nil)

func NewAssignmentRepository(db DBTX) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func (r *AssignmentRepository) FindProjectByName(ctx context.Context, name, domainID string) (*domain.Project, error) {
	var p domain.Project
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, domain_id FROM projects WHERE name = $1 AND domain_id = $2`,
		name, domainID).Scan(&p.ID, &p.Name, &p.DomainID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, fmt.Errorf("%w: find project by name: %v", domain.ErrStoreUnavailable, err)
	}
	return &p, nil
}

func (r *AssignmentRepository) FindRoleByName(ctx context.Context, name string) (*domain.Role, error) {
	var role domain.Role
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name FROM roles WHERE name = $1`, name).Scan(&role.ID, &role.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRoleNotFound
		}
		return nil, fmt.Errorf("%w: find role by name: %v", domain.ErrStoreUnavailable, err)
	}
	return &role, nil
}

func (r *AssignmentRepository) ListProjectIDsForUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT project_id FROM role_assignments WHERE user_id = $1 ORDER BY project_id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list projects for user: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: list projects for user: %v", domain.ErrStoreUnavailable, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list projects for user: %v", domain.ErrStoreUnavailable, err)
	}
	return ids, nil
}

func (r *AssignmentRepository) FindGrant(ctx context.Context, userID, projectID string) (*domain.RoleGrant, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT role_id FROM role_assignments WHERE user_id = $1 AND project_id = $2 ORDER BY role_id`,
		userID, projectID)
	if err != nil {
		return nil, fmt.Errorf("%w: find grant: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var roleIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: find grant: %v", domain.ErrStoreUnavailable, err)
		}
		roleIDs = append(roleIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: find grant: %v", domain.ErrStoreUnavailable, err)
	}
	if len(roleIDs) == 0 {
		return nil, domain.ErrGrantNotFound
	}
	return &domain.RoleGrant{UserID: userID, ProjectID: projectID, RoleIDs: roleIDs}, nil
}

// CreateOrGetGrant inserts one row per role with ON CONFLICT DO NOTHING and
// reads the grant back, so racing first-use callers converge on identical
// rows regardless of who wins each insert.
func (r *AssignmentRepository) CreateOrGetGrant(ctx context.Context, grant domain.RoleGrant) (*domain.RoleGrant, error) {
	for _, roleID := range grant.RoleIDs {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO role_assignments (id, user_id, project_id, role_id)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (user_id, project_id, role_id) DO NOTHING`,
			uuid.NewString(), grant.UserID, grant.ProjectID, roleID)
		if err != nil {
			return nil, fmt.Errorf("%w: create role grant: %v", domain.ErrStoreUnavailable, err)
		}
	}
	return r.FindGrant(ctx, grant.UserID, grant.ProjectID)
}

func (r *AssignmentRepository) ListAssignments(ctx context.Context) ([]domain.RoleAssignment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, project_id, role_id FROM role_assignments ORDER BY user_id, project_id, role_id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list assignments: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var assignments []domain.RoleAssignment
	for rows.Next() {
		var a domain.RoleAssignment
		if err := rows.Scan(&a.UserID, &a.ProjectID, &a.RoleID); err != nil {
			return nil, fmt.Errorf("%w: list assignments: %v", domain.ErrStoreUnavailable, err)
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list assignments: %v", domain.ErrStoreUnavailable, err)
	}
	return assignments, nil
}
