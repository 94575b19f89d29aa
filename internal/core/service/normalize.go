package service

import "github.com/cloudkeep/identity-bridge/internal/core/domain"

// NormalizeUser stamps directory-sourced records with the configured default
// domain id, overriding whatever the directory supplied: the directory has
// no domain concept and is treated as entirely contained within the default
// domain. Relational records pass through untouched. The input is copied,
// never mutated.
func NormalizeUser(u domain.User, defaultDomainID string) domain.User {
	if u.Source == domain.SourceDirectory {
		u.DomainID = defaultDomainID
		// Some directories expose a password-ish attribute; it is never
		// usable for local verification and must not leak.
		u.PasswordHash = ""
	}
	return u
}

// NormalizeUsers applies NormalizeUser to every record, returning a fresh
// slice and leaving the caller's slice and its elements unmodified.
func NormalizeUsers(users []domain.User, defaultDomainID string) []domain.User {
	if users == nil {
		return nil
	}
	out := make([]domain.User, len(users))
	for i, u := range users {
		out[i] = NormalizeUser(u, defaultDomainID)
	}
	return out
}
