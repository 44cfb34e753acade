package positions

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

// PostgresStore implements positions persistence over PostgreSQL.
// The pgx pool is owned by the caller; this store must NOT close it.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema used by the positions store (default "roster").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("positions: empty schema")
		}
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("positions: invalid schema identifier")
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
		return nil, fmt.Errorf("positions: nil pool")
	}
	return st, nil
}

func (s *PostgresStore) positions() string {
	return pgx.Identifier{s.schema, "positions"}.Sanitize()
}

const positionColumns = `id, code, name, user_id, created_at, updated_at`

// CreatePosition inserts a new position owned by in.UserID.
func (s *PostgresStore) CreatePosition(ctx context.Context, in CreatePositionInput) (Position, error) {
	const op = "positions.CreatePosition"

	code := strings.TrimSpace(in.Code)
	name := strings.TrimSpace(in.Name)
	if code == "" {
		return Position{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "code is required"}
	}
	if name == "" {
		return Position{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "name is required"}
	}
	if in.UserID <= 0 {
		return Position{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "owner is required"}
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var p Position
	err := s.pool.QueryRow(ctx, `
		INSERT INTO `+s.positions()+` (code, name, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING `+positionColumns+`
	`, code, name, in.UserID, now).Scan(
		&p.ID, &p.Code, &p.Name, &p.UserID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return Position{}, mapPgError(op, err)
	}
	return p, nil
}

// GetPosition loads a position by id.
func (s *PostgresStore) GetPosition(ctx context.Context, id int64) (Position, error) {
	const op = "positions.GetPosition"

	var p Position
	err := s.pool.QueryRow(ctx, `
		SELECT `+positionColumns+`
		FROM `+s.positions()+`
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Code, &p.Name, &p.UserID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Position{}, NotFoundError{Op: op, Resource: "position"}
	}
	if err != nil {
		return Position{}, err
	}
	return p, nil
}

// ListPositions returns all positions ordered by id.
func (s *PostgresStore) ListPositions(ctx context.Context) ([]Position, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+positionColumns+`
		FROM `+s.positions()+`
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Position
	for rows.Next() {
		var p Position
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.UserID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdatePosition applies a partial update and returns the fresh row.
func (s *PostgresStore) UpdatePosition(ctx context.Context, id int64, in UpdatePositionInput) (Position, error) {
	const op = "positions.UpdatePosition"

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	sets := make([]string, 0, 3)
	args := make([]any, 0, 4)
	args = append(args, id)

	if in.Code != nil {
		code := strings.TrimSpace(*in.Code)
		if code == "" {
			return Position{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "code must not be blank"}
		}
		args = append(args, code)
		sets = append(sets, fmt.Sprintf("code = $%d", len(args)))
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return Position{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "name must not be blank"}
		}
		args = append(args, name)
		sets = append(sets, fmt.Sprintf("name = $%d", len(args)))
	}

	if len(sets) == 0 {
		return s.GetPosition(ctx, id)
	}

	args = append(args, now)
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))

	var p Position
	err := s.pool.QueryRow(ctx, `
		UPDATE `+s.positions()+`
		SET `+strings.Join(sets, ", ")+`
		WHERE id = $1
		RETURNING `+positionColumns+`
	`, args...).Scan(&p.ID, &p.Code, &p.Name, &p.UserID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Position{}, NotFoundError{Op: op, Resource: "position"}
	}
	if err != nil {
		return Position{}, mapPgError(op, err)
	}
	return p, nil
}

// DeletePosition removes a position.
func (s *PostgresStore) DeletePosition(ctx context.Context, id int64) error {
	const op = "positions.DeletePosition"

	tag, err := s.pool.Exec(ctx, `
		DELETE FROM `+s.positions()+`
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "position"}
	}
	return nil
}

// mapPgError converts well-known Postgres error codes into positions kinds.
func mapPgError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23503" { // foreign_key_violation: owner row is gone
			return NotFoundError{Op: op, Resource: "user"}
		}
	}
	return err
}
