package session

import "errors"

var (
	// ErrInvalidCredentials is returned by Login for an unknown username or a
	// wrong password. Deliberately indistinct: callers must not reveal which
	// factor failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthorized is returned by Refresh when the presented token is
	// expired, malformed, wrongly signed, or no longer matches the stored
	// value (rotated away or revoked by logout).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound is returned by Logout for an unknown user id.
	ErrNotFound = errors.New("user not found")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)
