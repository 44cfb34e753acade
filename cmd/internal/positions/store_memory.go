package positions

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for development mode and tests.
// Semantics mirror PostgresStore, minus the foreign-key check on owners.
type MemoryStore struct {
	mu        sync.Mutex
	nextID    int64
	positions map[int64]Position
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1, positions: make(map[int64]Position)}
}

func (s *MemoryStore) CreatePosition(_ context.Context, in CreatePositionInput) (Position, error) {
	const op = "positions.memory.CreatePosition"

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

	s.mu.Lock()
	defer s.mu.Unlock()

	p := Position{
		ID:        s.nextID,
		Code:      code,
		Name:      name,
		UserID:    in.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.positions[p.ID] = p
	s.nextID++
	return p, nil
}

func (s *MemoryStore) GetPosition(_ context.Context, id int64) (Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.positions[id]
	if !ok {
		return Position{}, NotFoundError{Op: "positions.memory.GetPosition", Resource: "position"}
	}
	return p, nil
}

func (s *MemoryStore) ListPositions(_ context.Context) ([]Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Position, 0, len(s.positions))
	for _, p := range s.positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) UpdatePosition(_ context.Context, id int64, in UpdatePositionInput) (Position, error) {
	const op = "positions.memory.UpdatePosition"

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.positions[id]
	if !ok {
		return Position{}, NotFoundError{Op: op, Resource: "position"}
	}

	if in.Code != nil {
		code := strings.TrimSpace(*in.Code)
		if code == "" {
			return Position{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "code must not be blank"}
		}
		p.Code = code
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return Position{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "name must not be blank"}
		}
		p.Name = name
	}

	p.UpdatedAt = now
	s.positions[id] = p
	return p, nil
}

func (s *MemoryStore) DeletePosition(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.positions[id]; !ok {
		return NotFoundError{Op: "positions.memory.DeletePosition", Resource: "position"}
	}
	delete(s.positions, id)
	return nil
}

var _ Store = (*MemoryStore)(nil)
