package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/cloudkeep/identity-bridge/internal/core/domain"
)

func newUserRepoWithMock(t *testing.T) (*UserRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewUserRepository(db), mock, db
}

func userRows(id, name, domainID string, email, hash any) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "domain_id", "email", "enabled", "password_hash"}).
		AddRow(id, name, domainID, email, true, hash)
}

func TestUserRepository_FindUserByID_Found(t *testing.T) {
	repo, mock, db := newUserRepoWithMock(t)
	defer db.Close()

	q := `^SELECT id, name, domain_id, email, enabled, password_hash FROM users WHERE id = \$1$`
	mock.ExpectQuery(q).WithArgs("u1").
		WillReturnRows(userRows("u1", "alice", "corp", "alice@example.com", "hash"))

	user, err := repo.FindUserByID(context.Background(), "u1")
	if err != nil {
		t.Fatalf("FindUserByID error: %v", err)
	}
	if user.Name != "alice" || user.DomainID != "corp" || user.PasswordHash != "hash" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if user.Source != domain.SourceRelational {
		t.Fatalf("repository must tag provenance, got %q", user.Source)
	}
}

func TestUserRepository_FindUserByID_NullColumns(t *testing.T) {
	repo, mock, db := newUserRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM users WHERE id`).WithArgs("u1").
		WillReturnRows(userRows("u1", "alice", "corp", nil, nil))

	user, err := repo.FindUserByID(context.Background(), "u1")
	if err != nil {
		t.Fatalf("FindUserByID error: %v", err)
	}
	if user.Email != "" || user.PasswordHash != "" {
		t.Fatalf("null columns must scan to empty strings: %+v", user)
	}
}

func TestUserRepository_FindUserByID_NotFound(t *testing.T) {
	repo, mock, db := newUserRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM users WHERE id`).WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindUserByID(context.Background(), "ghost")
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserRepository_FindUserByID_TransportFailure(t *testing.T) {
	repo, mock, db := newUserRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM users WHERE id`).WithArgs("u1").
		WillReturnError(errors.New("connection refused"))

	_, err := repo.FindUserByID(context.Background(), "u1")
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("transport failures must map to ErrStoreUnavailable, got %v", err)
	}
}

func TestUserRepository_FindUserByName(t *testing.T) {
	repo, mock, db := newUserRepoWithMock(t)
	defer db.Close()

	q := `FROM users WHERE name = \$1 AND domain_id = \$2`
	mock.ExpectQuery(q).WithArgs("alice", "corp").
		WillReturnRows(userRows("u1", "alice", "corp", nil, nil))

	user, err := repo.FindUserByName(context.Background(), "alice", "corp")
	if err != nil {
		t.Fatalf("FindUserByName error: %v", err)
	}
	if user.ID != "u1" {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestUserRepository_ListUsers_ConsumesKnownFilters(t *testing.T) {
	repo, mock, db := newUserRepoWithMock(t)
	defer db.Close()

	q := `FROM users WHERE name = \$1 AND domain_id = \$2 ORDER BY id`
	mock.ExpectQuery(q).WithArgs("alice", "corp").
		WillReturnRows(userRows("u1", "alice", "corp", nil, nil))

	hints := domain.NewListHints(
		domain.Filter{Name: "name", Value: "alice"},
		domain.Filter{Name: "domain_id", Value: "corp"},
		domain.Filter{Name: "shoe_size", Value: "42"},
	)
	users, err := repo.ListUsers(context.Background(), hints)
	if err != nil {
		t.Fatalf("ListUsers error: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("unexpected users: %+v", users)
	}
	if _, ok := hints.Exact("name"); ok {
		t.Fatalf("applied filters must be consumed from the hints")
	}
	if _, ok := hints.Exact("shoe_size"); !ok {
		t.Fatalf("filters the adapter cannot apply must survive")
	}
}

func TestUserRepository_UpdateUser_BuildsPatchQuery(t *testing.T) {
	repo, mock, db := newUserRepoWithMock(t)
	defer db.Close()

	q := `^UPDATE users SET name = \$1, email = \$2 WHERE id = \$3 RETURNING id, name, domain_id, email, enabled, password_hash$`
	mock.ExpectQuery(q).WithArgs("alice2", "a2@example.com", "u1").
		WillReturnRows(userRows("u1", "alice2", "corp", "a2@example.com", nil))

	name, email := "alice2", "a2@example.com"
	user, err := repo.UpdateUser(context.Background(), "u1", domain.UserPatch{Name: &name, Email: &email})
	if err != nil {
		t.Fatalf("UpdateUser error: %v", err)
	}
	if user.Name != "alice2" {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestUserRepository_UpdateUser_EmptyPatchReadsBack(t *testing.T) {
	repo, mock, db := newUserRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`^SELECT .+ FROM users WHERE id = \$1$`).WithArgs("u1").
		WillReturnRows(userRows("u1", "alice", "corp", nil, nil))

	user, err := repo.UpdateUser(context.Background(), "u1", domain.UserPatch{})
	if err != nil {
		t.Fatalf("UpdateUser error: %v", err)
	}
	if user.ID != "u1" {
		t.Fatalf("unexpected user: %+v", user)
	}
}
