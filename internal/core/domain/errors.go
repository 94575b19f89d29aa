package domain

import "errors"

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrProjectNotFound = errors.New("project not found")
	ErrRoleNotFound    = errors.New("role not found")
	ErrGrantNotFound   = errors.New("role grant not found")

	// ErrDomainNotFound signals a name lookup against a domain the directory
	// store cannot serve (anything but the default domain).
	ErrDomainNotFound = errors.New("domain not found")

	// ErrInvalidCredentials collapses every authentication failure cause —
	// wrong password, failed bind, missing user, malformed DN — into one
	// opaque outcome so callers cannot tell which store rejected the attempt.
	ErrInvalidCredentials = errors.New("invalid user / password")

	// ErrStoreUnavailable marks an adapter transport or connectivity failure,
	// distinct from a record simply being absent.
	ErrStoreUnavailable = errors.New("backing store unavailable")

	// ErrMisconfiguredDefaults marks an unresolvable default project, role or
	// domain. It is a deployment error, fatal to the operation, never a
	// per-request condition.
	ErrMisconfiguredDefaults = errors.New("misconfigured identity defaults")
)
