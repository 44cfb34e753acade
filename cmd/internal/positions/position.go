package positions

import (
	"context"
	"time"
)

// Position is a coded role or station owned by a user.
type Position struct {
	ID     int64
	Code   string
	Name   string
	UserID int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreatePositionInput describes a new position. UserID is always the
// authenticated caller; it never comes from the request body.
type CreatePositionInput struct {
	Code   string
	Name   string
	UserID int64
	Now    time.Time
}

// UpdatePositionInput describes a partial position update.
// Nil fields are left unchanged.
type UpdatePositionInput struct {
	Code *string
	Name *string
	Now  time.Time
}

// Store is the positions persistence boundary.
type Store interface {
	CreatePosition(ctx context.Context, in CreatePositionInput) (Position, error)
	GetPosition(ctx context.Context, id int64) (Position, error)
	ListPositions(ctx context.Context) ([]Position, error)
	UpdatePosition(ctx context.Context, id int64, in UpdatePositionInput) (Position, error)
	DeletePosition(ctx context.Context, id int64) error
}
