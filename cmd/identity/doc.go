// Package identity defines the user credential store: user records, the
// persistence boundary used by the session core and the user CRUD surface,
// and the PostgreSQL implementation.
//
// A user carries at most one live refresh token, stored as a hex digest
// (see cmd/security/token); issuing a new token overwrites the previous
// value and logout clears it.
package identity
