package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements identity persistence over PostgreSQL.
//
// Design notes:
// - The pgx pool is owned by the caller; this store must NOT close it.
// - Schema/table identifiers are safely quoted to avoid SQL injection via identifiers.
// - Errors are mapped to identity sentinel kinds where appropriate.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema used by the identity store (default "roster").
// The schema name is validated to be a legal PostgreSQL identifier.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("identity: empty schema")
		}
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("identity: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore with secure defaults.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: "roster",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return st, nil
}

func (s *PostgresStore) users() string {
	return pgx.Identifier{s.schema, "users"}.Sanitize()
}

const userColumns = `id, username, role, refresh_token_digest, created_at, updated_at`

// CreateUser creates a new user with a hashed password.
func (s *PostgresStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	username := strings.TrimSpace(in.Username)
	if username == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "username is required"}
	}
	if strings.TrimSpace(in.Password) == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "password is required"}
	}

	role := strings.TrimSpace(in.Role)
	if role == "" {
		role = DefaultRole
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: err.Error()}
	}

	var u User
	err = s.pool.QueryRow(ctx, `
		INSERT INTO `+s.users()+` (username, username_norm, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING `+userColumns+`
	`, username, NormalizeUsername(username), hash, role, now).Scan(
		&u.ID, &u.Username, &u.Role, &u.RefreshDigest, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return User{}, mapPgError(op, err)
	}

	return u, nil
}

// GetUserByID loads a user by id.
func (s *PostgresStore) GetUserByID(ctx context.Context, id int64) (User, error) {
	const op = "identity.GetUserByID"

	var u User
	err := s.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM `+s.users()+`
		WHERE id = $1
	`, id).Scan(&u.ID, &u.Username, &u.Role, &u.RefreshDigest, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// GetUserAuthByUsername loads a user plus password hash for credential checks.
func (s *PostgresStore) GetUserAuthByUsername(ctx context.Context, username string) (UserAuth, error) {
	const op = "identity.GetUserAuthByUsername"

	var ua UserAuth
	err := s.pool.QueryRow(ctx, `
		SELECT `+userColumns+`, password_hash
		FROM `+s.users()+`
		WHERE username_norm = $1
	`, NormalizeUsername(username)).Scan(
		&ua.User.ID, &ua.User.Username, &ua.User.Role, &ua.User.RefreshDigest,
		&ua.User.CreatedAt, &ua.User.UpdatedAt, &ua.PasswordHash,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return UserAuth{}, NotFoundError{Op: op, Resource: "user"}
	}
	if err != nil {
		return UserAuth{}, err
	}
	return ua, nil
}

// GetUserByRefreshDigest resolves the user currently holding this refresh digest.
func (s *PostgresStore) GetUserByRefreshDigest(ctx context.Context, digest string) (User, error) {
	const op = "identity.GetUserByRefreshDigest"

	if digest == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "empty digest"}
	}

	var u User
	err := s.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM `+s.users()+`
		WHERE refresh_token_digest = $1
	`, digest).Scan(&u.ID, &u.Username, &u.Role, &u.RefreshDigest, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// SetRefreshDigest overwrites the stored refresh digest; nil clears it.
func (s *PostgresStore) SetRefreshDigest(ctx context.Context, userID int64, digest *string, now time.Time) error {
	const op = "identity.SetRefreshDigest"

	if now.IsZero() {
		now = time.Now().UTC()
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE `+s.users()+`
		SET refresh_token_digest = $2, updated_at = $3
		WHERE id = $1
	`, userID, digest, now)
	if err != nil {
		return mapPgError(op, err)
	}
	if tag.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "user"}
	}
	return nil
}

// ListUsers returns all users ordered by id.
func (s *PostgresStore) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM `+s.users()+`
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Role, &u.RefreshDigest, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpdateUser applies a partial update and returns the fresh row.
func (s *PostgresStore) UpdateUser(ctx context.Context, id int64, in UpdateUserInput) (User, error) {
	const op = "identity.UpdateUser"

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	// Build the SET list dynamically; values stay parameterized.
	sets := make([]string, 0, 4)
	args := make([]any, 0, 6)
	args = append(args, id)

	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if username == "" {
			return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "username must not be blank"}
		}
		args = append(args, username)
		sets = append(sets, fmt.Sprintf("username = $%d", len(args)))
		args = append(args, NormalizeUsername(username))
		sets = append(sets, fmt.Sprintf("username_norm = $%d", len(args)))
	}
	if in.Password != nil {
		hash, err := HashPassword(*in.Password)
		if err != nil {
			return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: err.Error()}
		}
		args = append(args, hash)
		sets = append(sets, fmt.Sprintf("password_hash = $%d", len(args)))
	}
	if in.Role != nil {
		role := strings.TrimSpace(*in.Role)
		if role == "" {
			return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "role must not be blank"}
		}
		args = append(args, role)
		sets = append(sets, fmt.Sprintf("role = $%d", len(args)))
	}

	if len(sets) == 0 {
		return s.GetUserByID(ctx, id)
	}

	args = append(args, now)
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))

	var u User
	err := s.pool.QueryRow(ctx, `
		UPDATE `+s.users()+`
		SET `+strings.Join(sets, ", ")+`
		WHERE id = $1
		RETURNING `+userColumns+`
	`, args...).Scan(&u.ID, &u.Username, &u.Role, &u.RefreshDigest, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	if err != nil {
		return User{}, mapPgError(op, err)
	}
	return u, nil
}

// DeleteUser removes a user (positions cascade at the schema level).
func (s *PostgresStore) DeleteUser(ctx context.Context, id int64) error {
	const op = "identity.DeleteUser"

	tag, err := s.pool.Exec(ctx, `
		DELETE FROM `+s.users()+`
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "user"}
	}
	return nil
}

// mapPgError converts well-known Postgres error codes into identity kinds.
func mapPgError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			field := "username"
			if strings.Contains(pgErr.ConstraintName, "refresh") {
				field = "refresh_token"
			}
			return ConflictError{Op: op, Field: field}
		case "23503": // foreign_key_violation
			return NotFoundError{Op: op, Resource: "user"}
		}
	}
	return err
}
