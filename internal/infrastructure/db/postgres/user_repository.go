package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/cloudkeep/identity-bridge/internal/core/domain"
	"github.com/cloudkeep/identity-bridge/internal/core/ports"
)

const userColumns = "id, name, domain_id, email, enabled, password_hash"

// UserRepository implements the relational store port over the users table.
type UserRepository struct {
	db DBTX
}

var _ ports.RelationalStore = (*UserRepository)(nil)

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindUserByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row, "find user by id")
}

func (r *UserRepository) FindUserByName(ctx context.Context, name, domainID string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE name = $1 AND domain_id = $2`, name, domainID)
	return scanUser(row, "find user by name")
}

// ListUsers applies the exact-match filters it understands and consumes them
// from the hints; callers that need the hints afterwards pass a clone.
func (r *UserRepository) ListUsers(ctx context.Context, hints *domain.ListHints) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var (
		where []string
		args  []any
	)
	for _, column := range []string{"name", "domain_id", "enabled"} {
		if v, ok := hints.Exact(column); ok {
			args = append(args, v)
			where = append(where, fmt.Sprintf("%s = $%d", column, len(args)))
			hints.Consume(column)
		}
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list users: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: list users: %v", domain.ErrStoreUnavailable, err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list users: %v", domain.ErrStoreUnavailable, err)
	}
	return users, nil
}

func (r *UserRepository) UpdateUser(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error) {
	var (
		sets []string
		args []any
	)
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Name != nil {
		set("name", *patch.Name)
	}
	if patch.Email != nil {
		set("email", *patch.Email)
	}
	if patch.Enabled != nil {
		set("enabled", *patch.Enabled)
	}
	if patch.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*patch.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		set("password_hash", string(hash))
	}
	if len(sets) == 0 {
		return r.FindUserByID(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), userColumns)
	return scanUser(r.db.QueryRowContext(ctx, query, args...), "update user")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner, op string) (*domain.User, error) {
	u, err := scanUserRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrStoreUnavailable, op, err)
	}
	return u, nil
}

func scanUserRow(row rowScanner) (*domain.User, error) {
	var (
		u     domain.User
		email sql.NullString
		hash  sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Name, &u.DomainID, &email, &u.Enabled, &hash); err != nil {
		return nil, err
	}
	u.Email = email.String
	u.PasswordHash = hash.String
	u.Source = domain.SourceRelational
	return &u, nil
}
