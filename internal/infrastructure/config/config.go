// Package config loads the bridge configuration from the environment and
// validates it at startup. An unresolvable default domain, project, or role
// set is a deployment error; it fails Load rather than degrading later.
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"

	"github.com/cloudkeep/identity-bridge/internal/core/domain"
	"github.com/cloudkeep/identity-bridge/internal/core/service"
)

type Config struct {
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Identity IdentityConfig
	Postgres PostgresConfig
	LDAP     LDAPConfig
}

// IdentityConfig is the configuration surface the core consumes: which
// domain the directory maps into and which project/roles back the implicit
// membership of directory users.
type IdentityConfig struct {
	DefaultDomainID string   `env:"IDENTITY_DEFAULT_DOMAIN_ID, default=default" validate:"required"`
	DefaultProject  string   `env:"IDENTITY_DEFAULT_PROJECT,   default=demo"    validate:"required"`
	DefaultRoles    []string `env:"IDENTITY_DEFAULT_ROLES,     default=_member_" validate:"min=1,dive,required"`
}

type PostgresConfig struct {
	DSN string `env:"POSTGRES_DSN, default=postgres://localhost:5432/identity?sslmode=disable" validate:"required"`
}

type LDAPConfig struct {
	URL               string        `env:"LDAP_URL, default=ldap://localhost:389" validate:"required"`
	UserTreeDN        string        `env:"LDAP_USER_TREE_DN"                      validate:"required"`
	UserObjectClass   string        `env:"LDAP_USER_OBJECTCLASS,    default=inetOrgPerson"`
	UserIDAttribute   string        `env:"LDAP_USER_ID_ATTRIBUTE,   default=cn"`
	UserNameAttribute string        `env:"LDAP_USER_NAME_ATTRIBUTE, default=sn"`
	UserMailAttribute string        `env:"LDAP_USER_MAIL_ATTRIBUTE, default=mail"`
	BindDN            string        `env:"LDAP_BIND_DN"`
	BindPassword      string        `env:"LDAP_BIND_PASSWORD"`
	QueryTimeout      time.Duration `env:"LDAP_QUERY_TIMEOUT, default=10s"`
}

// Load reads configuration from the environment.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMisconfiguredDefaults, err)
	}
	return &cfg, nil
}

// Defaults returns the view of the configuration the reconciler consumes.
func (c *Config) Defaults() service.Defaults {
	return service.Defaults{
		DomainID:    c.Identity.DefaultDomainID,
		ProjectName: c.Identity.DefaultProject,
		RoleNames:   append([]string(nil), c.Identity.DefaultRoles...),
	}
}
