package domain

// Provenance identifies which backing store produced a record. It is set by
// the adapter at fetch time, never inferred from the shape of the record.
type Provenance string

const (
	// SourceRelational marks records owned by the SQL store.
	SourceRelational Provenance = "relational"
	// SourceDirectory marks records owned by the LDAP directory.
	SourceDirectory Provenance = "directory"
)

// User models an identity as seen by callers of the resolver. Exactly one
// backing store owns a given user; records are never merged across stores.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	DomainID string `json:"domain_id"`
	Enabled  bool   `json:"enabled"`

	// PasswordHash is only populated on records fetched from the relational
	// store and must be stripped before a record crosses the resolver
	// boundary. Directory entries never carry a usable hash.
	PasswordHash string     `json:"-"`
	Source       Provenance `json:"-"`
}

// Sanitized returns a copy of the user with all secret material removed.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	return u
}

// UserPatch is a partial update applied to a user record. Nil fields are
// left untouched by the owning store.
type UserPatch struct {
	Name     *string
	Email    *string
	Enabled  *bool
	Password *string
}

// AuthResult is the outcome of a successful authentication attempt. Source
// reports which store verified the credential so callers can suppress
// domain-aware filtering for directory-authenticated sessions. Carrying the
// source on the result value replaces the historical one-shot
// "domain aware" flag that lived on the resolver itself and raced under
// concurrent authentication.
type AuthResult struct {
	User   User
	Source Provenance
}

// DomainAware reports whether domain filtering applies to the session this
// result authenticated. Directory-sourced sessions are domain-blind.
func (r AuthResult) DomainAware() bool {
	return r.Source != SourceDirectory
}
