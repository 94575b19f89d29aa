package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/cloudkeep/identity-bridge/internal/core/domain"
	"github.com/cloudkeep/identity-bridge/internal/core/ports"
	"github.com/cloudkeep/identity-bridge/internal/metrics"
)

// Resolver presents users from the relational store and the directory
// through one interface. Every fallback operation consults the relational
// store first; the first store that has the record owns it entirely, and
// records are never merged or migrated across stores. The ordering is a
// correctness invariant, not an optimization, so it is never parallelized.
type Resolver struct {
	relational      ports.RelationalStore
	directory       ports.DirectoryStore
	defaultDomainID string
	log             zerolog.Logger
}

var _ ports.IdentityResolver = (*Resolver)(nil)

func NewResolver(relational ports.RelationalStore, directory ports.DirectoryStore, defaultDomainID string, log zerolog.Logger) *Resolver {
	return &Resolver{
		relational:      relational,
		directory:       directory,
		defaultDomainID: defaultDomainID,
		log:             log,
	}
}

// lookupUser fetches the raw record, password hash intact, from whichever
// store owns it. Relational absence or unavailability triggers the directory
// fallback; a transport failure is only surfaced once the other store has
// been given the chance to answer, and is never masked as not-found.
func (r *Resolver) lookupUser(ctx context.Context, id string) (*domain.User, error) {
	user, sqlErr := r.relational.FindUserByID(ctx, id)
	if sqlErr == nil {
		return user, nil
	}
	if !errors.Is(sqlErr, domain.ErrUserNotFound) && !errors.Is(sqlErr, domain.ErrStoreUnavailable) {
		return nil, sqlErr
	}

	metrics.LookupFallbacksTotal.WithLabelValues("get_user").Inc()
	user, dirErr := r.directory.FindUserByID(ctx, id)
	if dirErr == nil {
		return user, nil
	}
	if errors.Is(dirErr, domain.ErrUserNotFound) && errors.Is(sqlErr, domain.ErrStoreUnavailable) {
		// Absent in the directory, but the relational store never answered:
		// the user may well exist there.
		return nil, sqlErr
	}
	return nil, dirErr
}

// GetUser returns the record of whichever store owns id, domain-normalized
// and with secret material stripped.
func (r *Resolver) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := r.lookupUser(ctx, id)
	if err != nil {
		return nil, err
	}
	out := NormalizeUser(*user, r.defaultDomainID).Sanitized()
	return &out, nil
}

// GetUserByName looks the name up in the relational store first. The
// directory is only consulted for the default domain; it is domain-blind,
// so a directory lookup under any other domain cannot succeed.
func (r *Resolver) GetUserByName(ctx context.Context, name, domainID string) (*domain.User, error) {
	user, sqlErr := r.relational.FindUserByName(ctx, name, domainID)
	if sqlErr == nil {
		out := user.Sanitized()
		return &out, nil
	}
	if !errors.Is(sqlErr, domain.ErrUserNotFound) && !errors.Is(sqlErr, domain.ErrStoreUnavailable) {
		return nil, sqlErr
	}

	if domainID != r.defaultDomainID {
		if errors.Is(sqlErr, domain.ErrStoreUnavailable) {
			return nil, sqlErr
		}
		return nil, domain.ErrDomainNotFound
	}

	metrics.LookupFallbacksTotal.WithLabelValues("get_user_by_name").Inc()
	user, dirErr := r.directory.FindUserByName(ctx, name)
	if dirErr == nil {
		out := NormalizeUser(*user, r.defaultDomainID).Sanitized()
		return &out, nil
	}
	if errors.Is(dirErr, domain.ErrUserNotFound) && errors.Is(sqlErr, domain.ErrStoreUnavailable) {
		return nil, sqlErr
	}
	return nil, dirErr
}

// Authenticate verifies the password for id against whichever store owns
// the record. Relational records carrying a password hash are verified
// locally; records without one are checked with a short-lived directory
// bind. Every credential failure cause collapses into
// domain.ErrInvalidCredentials so the caller cannot tell which store
// rejected the attempt or why. The result carries the authenticating store
// so callers can suppress domain filtering for directory sessions.
func (r *Resolver) Authenticate(ctx context.Context, id, password string) (*domain.AuthResult, error) {
	if password == "" {
		metrics.AuthAttemptsTotal.WithLabelValues("none", "invalid").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	user, err := r.lookupUser(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrStoreUnavailable) {
			metrics.AuthAttemptsTotal.WithLabelValues("none", "unavailable").Inc()
			return nil, err
		}
		metrics.AuthAttemptsTotal.WithLabelValues("none", "invalid").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	source := domain.SourceRelational
	if user.PasswordHash != "" {
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
			metrics.AuthAttemptsTotal.WithLabelValues(string(domain.SourceRelational), "invalid").Inc()
			return nil, domain.ErrInvalidCredentials
		}
		r.log.Debug().Str("user_id", user.ID).Msg("authenticated user with relational store")
	} else {
		if err := r.bindCheck(ctx, user.ID, password); err != nil {
			metrics.AuthAttemptsTotal.WithLabelValues(string(domain.SourceDirectory), "invalid").Inc()
			return nil, domain.ErrInvalidCredentials
		}
		r.log.Debug().Str("user_id", user.ID).Msg("authenticated user with directory")
		source = domain.SourceDirectory
	}

	metrics.AuthAttemptsTotal.WithLabelValues(string(source), "success").Inc()
	return &domain.AuthResult{
		User:   NormalizeUser(*user, r.defaultDomainID).Sanitized(),
		Source: source,
	}, nil
}

// bindCheck verifies a password by binding against the directory as the
// user. The connection exists purely for the check and is released before
// returning, whatever the outcome.
func (r *Resolver) bindCheck(ctx context.Context, id, password string) error {
	dn, err := r.directory.IDToDN(id)
	if err != nil {
		return err
	}
	conn, err := r.directory.Bind(ctx, dn, password)
	if conn != nil {
		_ = conn.Close()
	}
	return err
}

// ListUsers returns the relational results followed by the directory
// results. The relational adapter may consume hint filters, so it gets a
// clone and the directory sees the caller's hints untouched. Directory
// users exist only in the default domain; any other domain filter omits
// them entirely.
func (r *Resolver) ListUsers(ctx context.Context, hints *domain.ListHints) ([]domain.User, error) {
	sqlUsers, err := r.relational.ListUsers(ctx, hints.Clone())
	if err != nil {
		return nil, err
	}

	users := make([]domain.User, 0, len(sqlUsers))
	for _, u := range sqlUsers {
		users = append(users, u.Sanitized())
	}

	if v, ok := hints.Exact("domain_id"); ok && v != r.defaultDomainID {
		return users, nil
	}

	dirUsers, err := r.directory.ListUsers(ctx, hints)
	if err != nil {
		return nil, err
	}
	for _, u := range NormalizeUsers(dirUsers, r.defaultDomainID) {
		users = append(users, u.Sanitized())
	}
	return users, nil
}

// UpdateUser routes the write to the store that currently owns the record.
// A record is never migrated between stores by an update.
func (r *Resolver) UpdateUser(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error) {
	owner, err := r.lookupUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if owner.Source == domain.SourceDirectory {
		metrics.LookupFallbacksTotal.WithLabelValues("update_user").Inc()
		user, err := r.directory.UpdateUser(ctx, id, patch)
		if err != nil {
			return nil, err
		}
		out := NormalizeUser(*user, r.defaultDomainID).Sanitized()
		return &out, nil
	}

	user, err := r.relational.UpdateUser(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	out := user.Sanitized()
	return &out, nil
}
