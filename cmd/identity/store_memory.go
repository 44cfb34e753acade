package identity

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for development mode and tests.
// Semantics mirror PostgresStore: case-insensitive username uniqueness,
// not-found and conflict kinds, last-writer-wins refresh digest updates.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*memoryUser
	byNorm map[string]int64
}

type memoryUser struct {
	user User
	hash string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID: 1,
		users:  make(map[int64]*memoryUser),
		byNorm: make(map[string]int64),
	}
}

func (s *MemoryStore) CreateUser(_ context.Context, in CreateUserInput) (User, error) {
	const op = "identity.memory.CreateUser"

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

	s.mu.Lock()
	defer s.mu.Unlock()

	norm := NormalizeUsername(username)
	if _, exists := s.byNorm[norm]; exists {
		return User{}, ConflictError{Op: op, Field: "username"}
	}

	u := User{
		ID:        s.nextID,
		Username:  username,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.users[u.ID] = &memoryUser{user: u, hash: hash}
	s.byNorm[norm] = u.ID
	s.nextID++
	return u, nil
}

func (s *MemoryStore) GetUserByID(_ context.Context, id int64) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mu, ok := s.users[id]
	if !ok {
		return User{}, NotFoundError{Op: "identity.memory.GetUserByID", Resource: "user"}
	}
	return mu.user, nil
}

func (s *MemoryStore) GetUserAuthByUsername(_ context.Context, username string) (UserAuth, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byNorm[NormalizeUsername(username)]
	if !ok {
		return UserAuth{}, NotFoundError{Op: "identity.memory.GetUserAuthByUsername", Resource: "user"}
	}
	mu := s.users[id]
	return UserAuth{User: mu.user, PasswordHash: mu.hash}, nil
}

func (s *MemoryStore) GetUserByRefreshDigest(_ context.Context, digest string) (User, error) {
	const op = "identity.memory.GetUserByRefreshDigest"

	if digest == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "empty digest"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, mu := range s.users {
		if mu.user.RefreshDigest != nil && *mu.user.RefreshDigest == digest {
			return mu.user, nil
		}
	}
	return User{}, NotFoundError{Op: op, Resource: "user"}
}

func (s *MemoryStore) SetRefreshDigest(_ context.Context, userID int64, digest *string, now time.Time) error {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mu, ok := s.users[userID]
	if !ok {
		return NotFoundError{Op: "identity.memory.SetRefreshDigest", Resource: "user"}
	}
	mu.user.RefreshDigest = digest
	mu.user.UpdatedAt = now
	return nil
}

func (s *MemoryStore) ListUsers(_ context.Context) ([]User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]User, 0, len(s.users))
	for _, mu := range s.users {
		out = append(out, mu.user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) UpdateUser(_ context.Context, id int64, in UpdateUserInput) (User, error) {
	const op = "identity.memory.UpdateUser"

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mu, ok := s.users[id]
	if !ok {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}

	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if username == "" {
			return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "username must not be blank"}
		}
		oldNorm := NormalizeUsername(mu.user.Username)
		newNorm := NormalizeUsername(username)
		if newNorm != oldNorm {
			if _, exists := s.byNorm[newNorm]; exists {
				return User{}, ConflictError{Op: op, Field: "username"}
			}
			delete(s.byNorm, oldNorm)
			s.byNorm[newNorm] = id
		}
		mu.user.Username = username
	}
	if in.Password != nil {
		hash, err := HashPassword(*in.Password)
		if err != nil {
			return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: err.Error()}
		}
		mu.hash = hash
	}
	if in.Role != nil {
		role := strings.TrimSpace(*in.Role)
		if role == "" {
			return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "role must not be blank"}
		}
		mu.user.Role = role
	}

	mu.user.UpdatedAt = now
	return mu.user, nil
}

func (s *MemoryStore) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mu, ok := s.users[id]
	if !ok {
		return NotFoundError{Op: "identity.memory.DeleteUser", Resource: "user"}
	}
	delete(s.byNorm, NormalizeUsername(mu.user.Username))
	delete(s.users, id)
	return nil
}

var _ Store = (*MemoryStore)(nil)
