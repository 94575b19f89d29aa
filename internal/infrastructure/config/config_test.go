package config

import (
	"context"
	"errors"
	"testing"

	"github.com/sethvargo/go-envconfig"

	"github.com/cloudkeep/identity-bridge/internal/core/domain"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"LDAP_USER_TREE_DN": "ou=people,dc=example,dc=com",
	}))
	if err != nil {
		t.Fatalf("load error: %v", err)
	}

	if cfg.Identity.DefaultDomainID != "default" {
		t.Fatalf("unexpected default domain: %q", cfg.Identity.DefaultDomainID)
	}
	if cfg.Identity.DefaultProject != "demo" {
		t.Fatalf("unexpected default project: %q", cfg.Identity.DefaultProject)
	}
	if len(cfg.Identity.DefaultRoles) != 1 || cfg.Identity.DefaultRoles[0] != "_member_" {
		t.Fatalf("unexpected default roles: %v", cfg.Identity.DefaultRoles)
	}
	if cfg.LDAP.UserIDAttribute != "cn" || cfg.LDAP.UserNameAttribute != "sn" {
		t.Fatalf("unexpected ldap attribute mapping: %+v", cfg.LDAP)
	}
}

func TestLoad_MissingRequiredValueIsFatal(t *testing.T) {
	_, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"LDAP_USER_TREE_DN":          "ou=people,dc=example,dc=com",
		"IDENTITY_DEFAULT_DOMAIN_ID": "",
	}))
	if !errors.Is(err, domain.ErrMisconfiguredDefaults) {
		t.Fatalf("expected ErrMisconfiguredDefaults, got %v", err)
	}
}

func TestConfig_DefaultsViewIsDetached(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"LDAP_USER_TREE_DN":      "ou=people,dc=example,dc=com",
		"IDENTITY_DEFAULT_ROLES": "_member_,observer",
	}))
	if err != nil {
		t.Fatalf("load error: %v", err)
	}

	defaults := cfg.Defaults()
	if len(defaults.RoleNames) != 2 {
		t.Fatalf("unexpected roles: %v", defaults.RoleNames)
	}
	defaults.RoleNames[0] = "mutated"
	if cfg.Identity.DefaultRoles[0] != "_member_" {
		t.Fatalf("Defaults must return a copy, config was mutated: %v", cfg.Identity.DefaultRoles)
	}
}
