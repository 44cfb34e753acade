package identity

import (
	"context"
	"time"
)

// DefaultRole is assigned to users created without an explicit role.
const DefaultRole = "user"

// User is the canonical security principal.
// RefreshDigest is the hex digest of the single live refresh token, if any;
// the plain token is never stored.
type User struct {
	ID            int64
	Username      string
	Role          string
	RefreshDigest *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserAuth bundles a user with its password hash for credential checks.
// The hash must never leave the auth path.
type UserAuth struct {
	User         User
	PasswordHash string
}

// CreateUserInput describes a registration request.
// Role defaults to DefaultRole when empty.
type CreateUserInput struct {
	Username string
	Password string
	Role     string
	Now      time.Time
}

// UpdateUserInput describes a partial user update.
// Nil fields are left unchanged; Password is re-hashed before storage.
type UpdateUserInput struct {
	Username *string
	Password *string
	Role     *string
	Now      time.Time
}

// Store is the identity persistence boundary.
//
// Concurrency contract: SetRefreshDigest is a single-row update; concurrent
// writers for the same user serialize at the row and last writer wins.
type Store interface {
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)

	GetUserByID(ctx context.Context, id int64) (User, error)

	// GetUserAuthByUsername resolves a user plus password hash for login.
	// Lookup is case-insensitive on the normalized username.
	GetUserAuthByUsername(ctx context.Context, username string) (UserAuth, error)

	// GetUserByRefreshDigest resolves the user whose stored refresh digest
	// equals digest. A rotated-away or revoked token matches no row.
	GetUserByRefreshDigest(ctx context.Context, digest string) (User, error)

	// SetRefreshDigest overwrites the stored refresh digest (nil clears it).
	// Returns ErrNotFound when the user does not exist.
	SetRefreshDigest(ctx context.Context, userID int64, digest *string, now time.Time) error

	ListUsers(ctx context.Context) ([]User, error)
	UpdateUser(ctx context.Context, id int64, in UpdateUserInput) (User, error)
	DeleteUser(ctx context.Context, id int64) error
}
