package ports

import (
	"context"
	"io"

	"github.com/cloudkeep/identity-bridge/internal/core/domain"
)

// DirectoryStore is the narrow surface the resolver consumes from the LDAP
// directory. The directory is domain-blind and read-mostly; records it
// returns never carry password material.
type DirectoryStore interface {
	// Bind opens a fresh connection authenticated as dn. The caller owns the
	// returned handle and must close it as soon as the credential check is
	// done, on every exit path.
	Bind(ctx context.Context, dn, password string) (io.Closer, error)

	// IDToDN derives the distinguished name for a user id so the resolver
	// can attempt a bind without knowing directory schema details.
	IDToDN(id string) (string, error)

	FindUserByID(ctx context.Context, id string) (*domain.User, error)
	FindUserByName(ctx context.Context, name string) (*domain.User, error)
	ListUsers(ctx context.Context, hints *domain.ListHints) ([]domain.User, error)
	UpdateUser(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error)
}
