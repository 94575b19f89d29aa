// Package ldap implements the directory store port against an LDAP server.
// The directory is read-mostly and domain-blind; records it returns carry no
// domain id (the resolver stamps the default domain) and never any password
// material.
package ldap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	goldap "github.com/go-ldap/ldap/v3"
	"github.com/rs/zerolog"

	"github.com/cloudkeep/identity-bridge/internal/core/domain"
	"github.com/cloudkeep/identity-bridge/internal/core/ports"
)

// Config describes the directory connection and user schema mapping.
type Config struct {
	URL               string
	UserTreeDN        string
	UserObjectClass   string
	UserIDAttribute   string
	UserNameAttribute string
	UserMailAttribute string
	// BindDN/BindPassword are the service credentials used for searches.
	// Empty means anonymous search.
	BindDN       string
	BindPassword string
	QueryTimeout time.Duration
}

// Store implements ports.DirectoryStore.
type Store struct {
	cfg Config
	log zerolog.Logger
}

var _ ports.DirectoryStore = (*Store)(nil)

func NewStore(cfg Config, log zerolog.Logger) *Store {
	return &Store{cfg: cfg, log: log}
}

// IDToDN derives the distinguished name for a user id from the configured
// user tree and id attribute.
func (s *Store) IDToDN(id string) (string, error) {
	if id == "" {
		return "", errors.New("empty user id")
	}
	return fmt.Sprintf("%s=%s,%s", s.cfg.UserIDAttribute, goldap.EscapeDN(id), s.cfg.UserTreeDN), nil
}

// Bind opens a fresh connection and binds as dn. The caller owns the handle
// and must close it as soon as the credential check is done. An empty
// password is rejected outright: many servers treat it as an anonymous bind
// that would "succeed" for any user.
func (s *Store) Bind(ctx context.Context, dn, password string) (io.Closer, error) {
	if password == "" {
		return nil, errors.New("empty password")
	}
	conn, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}
	if err := conn.Bind(dn, password); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("bind as %s: %w", dn, err)
	}
	return conn, nil
}

func (s *Store) FindUserByID(ctx context.Context, id string) (*domain.User, error) {
	filter := fmt.Sprintf("(&(objectClass=%s)(%s=%s))",
		s.cfg.UserObjectClass, s.cfg.UserIDAttribute, goldap.EscapeFilter(id))
	return s.searchOne(ctx, filter)
}

func (s *Store) FindUserByName(ctx context.Context, name string) (*domain.User, error) {
	filter := fmt.Sprintf("(&(objectClass=%s)(%s=%s))",
		s.cfg.UserObjectClass, s.cfg.UserNameAttribute, goldap.EscapeFilter(name))
	return s.searchOne(ctx, filter)
}

// ListUsers translates the hints it understands into the search filter. The
// domain_id filter is ignored here: the directory knows nothing of domains
// and the resolver has already decided whether to consult it at all.
func (s *Store) ListUsers(ctx context.Context, hints *domain.ListHints) ([]domain.User, error) {
	entries, err := s.search(ctx, s.listFilter(hints))
	if err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(entries))
	for _, e := range entries {
		users = append(users, s.entryToUser(e))
	}
	return users, nil
}

// UpdateUser replaces the mapped attributes for the user. Password and
// enabled changes are the directory operator's business, not ours.
func (s *Store) UpdateUser(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error) {
	if patch.Password != nil {
		return nil, errors.New("directory passwords are managed by the directory")
	}
	if patch.Enabled != nil {
		return nil, errors.New("enabled state is managed by the directory")
	}

	dn, err := s.IDToDN(id)
	if err != nil {
		return nil, err
	}
	mod := goldap.NewModifyRequest(dn, nil)
	changed := false
	if patch.Name != nil {
		mod.Replace(s.cfg.UserNameAttribute, []string{*patch.Name})
		changed = true
	}
	if patch.Email != nil {
		mod.Replace(s.cfg.UserMailAttribute, []string{*patch.Email})
		changed = true
	}
	if !changed {
		return s.FindUserByID(ctx, id)
	}

	conn, err := s.searchConn(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Close() }()

	if err := conn.Modify(mod); err != nil {
		if goldap.IsErrorWithCode(err, goldap.LDAPResultNoSuchObject) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: modify %s: %v", domain.ErrStoreUnavailable, dn, err)
	}
	return s.FindUserByID(ctx, id)
}

func (s *Store) listFilter(hints *domain.ListHints) string {
	parts := []string{fmt.Sprintf("(objectClass=%s)", s.cfg.UserObjectClass)}
	if name, ok := hints.Exact("name"); ok {
		parts = append(parts, fmt.Sprintf("(%s=%s)", s.cfg.UserNameAttribute, goldap.EscapeFilter(name)))
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "(&" + strings.Join(parts, "") + ")"
}

func (s *Store) dial(ctx context.Context) (*goldap.Conn, error) {
	conn, err := goldap.DialURL(s.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: dial directory: %v", domain.ErrStoreUnavailable, err)
	}
	timeout := s.cfg.QueryTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); timeout == 0 || remaining < timeout {
			timeout = remaining
		}
	}
	if timeout > 0 {
		conn.SetTimeout(timeout)
	}
	return conn, nil
}

// searchConn returns a connection bound with the service credentials, or an
// anonymous one when none are configured.
func (s *Store) searchConn(ctx context.Context) (*goldap.Conn, error) {
	conn, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}
	if s.cfg.BindDN != "" {
		if err := conn.Bind(s.cfg.BindDN, s.cfg.BindPassword); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("%w: service bind: %v", domain.ErrStoreUnavailable, err)
		}
	}
	return conn, nil
}

func (s *Store) search(ctx context.Context, filter string) ([]*goldap.Entry, error) {
	conn, err := s.searchConn(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Close() }()

	req := goldap.NewSearchRequest(
		s.cfg.UserTreeDN,
		goldap.ScopeWholeSubtree, goldap.NeverDerefAliases, 0, 0, false,
		filter,
		s.attributes(),
		nil,
	)
	res, err := conn.Search(req)
	if err != nil {
		if goldap.IsErrorWithCode(err, goldap.LDAPResultNoSuchObject) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: directory search: %v", domain.ErrStoreUnavailable, err)
	}
	return res.Entries, nil
}

func (s *Store) searchOne(ctx context.Context, filter string) (*domain.User, error) {
	entries, err := s.search(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, domain.ErrUserNotFound
	}
	if len(entries) > 1 {
		s.log.Warn().Str("filter", filter).Int("matches", len(entries)).
			Msg("ambiguous directory lookup, using first entry")
	}
	u := s.entryToUser(entries[0])
	return &u, nil
}

func (s *Store) entryToUser(e *goldap.Entry) domain.User {
	return domain.User{
		ID:      e.GetAttributeValue(s.cfg.UserIDAttribute),
		Name:    e.GetAttributeValue(s.cfg.UserNameAttribute),
		Email:   e.GetAttributeValue(s.cfg.UserMailAttribute),
		Enabled: true,
		Source:  domain.SourceDirectory,
	}
}

func (s *Store) attributes() []string {
	return []string{s.cfg.UserIDAttribute, s.cfg.UserNameAttribute, s.cfg.UserMailAttribute}
}
