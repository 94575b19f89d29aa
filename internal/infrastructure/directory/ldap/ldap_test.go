package ldap

import (
	"context"
	"testing"

	goldap "github.com/go-ldap/ldap/v3"
	"github.com/rs/zerolog"

	"github.com/cloudkeep/identity-bridge/internal/core/domain"
)

func testStore() *Store {
	return NewStore(Config{
		URL:               "ldap://directory.example.com:389",
		UserTreeDN:        "ou=people,dc=example,dc=com",
		UserObjectClass:   "inetOrgPerson",
		UserIDAttribute:   "cn",
		UserNameAttribute: "sn",
		UserMailAttribute: "mail",
	}, zerolog.Nop())
}

func TestStore_IDToDN(t *testing.T) {
	s := testStore()

	dn, err := s.IDToDN("bob")
	if err != nil {
		t.Fatalf("IDToDN error: %v", err)
	}
	if dn != "cn=bob,ou=people,dc=example,dc=com" {
		t.Fatalf("unexpected dn: %q", dn)
	}

	if _, err := s.IDToDN(""); err == nil {
		t.Fatalf("empty id must not derive a DN")
	}
}

func TestStore_IDToDN_EscapesSpecialCharacters(t *testing.T) {
	s := testStore()

	dn, err := s.IDToDN("doe, john")
	if err != nil {
		t.Fatalf("IDToDN error: %v", err)
	}
	// An unescaped comma would smuggle an extra RDN into the DN.
	if dn != `cn=doe\, john,ou=people,dc=example,dc=com` {
		t.Fatalf("unexpected dn: %q", dn)
	}
}

func TestStore_Bind_RejectsEmptyPassword(t *testing.T) {
	s := testStore()

	// Many servers treat an empty password as an anonymous bind that
	// "succeeds" for any DN; it must never reach the wire.
	if _, err := s.Bind(context.Background(), "cn=bob,ou=people,dc=example,dc=com", ""); err == nil {
		t.Fatalf("empty password must be rejected before dialing")
	}
}

func TestStore_ListFilter(t *testing.T) {
	s := testStore()

	if got := s.listFilter(nil); got != "(objectClass=inetOrgPerson)" {
		t.Fatalf("unexpected filter: %q", got)
	}

	hints := domain.NewListHints(
		domain.Filter{Name: "name", Value: "bob"},
		domain.Filter{Name: "domain_id", Value: "corp"},
	)
	got := s.listFilter(hints)
	// The domain filter is the resolver's business, not the directory's.
	if got != "(&(objectClass=inetOrgPerson)(sn=bob))" {
		t.Fatalf("unexpected filter: %q", got)
	}
}

func TestStore_ListFilter_EscapesFilterInjection(t *testing.T) {
	s := testStore()

	hints := domain.NewListHints(domain.Filter{Name: "name", Value: "*)(cn=admin"})
	got := s.listFilter(hints)
	if got != `(&(objectClass=inetOrgPerson)(sn=\2a\29\28cn=admin))` {
		t.Fatalf("unexpected filter: %q", got)
	}
}

func TestStore_EntryToUser(t *testing.T) {
	s := testStore()

	entry := goldap.NewEntry("cn=bob,ou=people,dc=example,dc=com", map[string][]string{
		"cn":   {"bob"},
		"sn":   {"Bob Directory"},
		"mail": {"bob@example.com"},
	})
	user := s.entryToUser(entry)

	if user.ID != "bob" || user.Name != "Bob Directory" || user.Email != "bob@example.com" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if user.Source != domain.SourceDirectory {
		t.Fatalf("adapter must tag provenance, got %q", user.Source)
	}
	if user.DomainID != "" {
		t.Fatalf("the directory knows no domains, got %q", user.DomainID)
	}
	if user.PasswordHash != "" {
		t.Fatalf("directory users must never carry password material")
	}
}

func TestStore_UpdateUser_RejectsCredentialChanges(t *testing.T) {
	s := testStore()

	password := "secret"
	if _, err := s.UpdateUser(context.Background(), "bob", domain.UserPatch{Password: &password}); err == nil {
		t.Fatalf("password changes must be refused")
	}

	enabled := false
	if _, err := s.UpdateUser(context.Background(), "bob", domain.UserPatch{Enabled: &enabled}); err == nil {
		t.Fatalf("enabled changes must be refused")
	}
}
