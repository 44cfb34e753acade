package session

import (
	"context"
	"fmt"
	"time"

	"roster/cmd/identity"
	"roster/cmd/internal/auth/token"
	sectoken "roster/cmd/security/token"
)

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// Service orchestrates login, refresh, and logout over the identity store.
type Service struct {
	store   identity.Store
	access  *token.Codec
	refresh *token.Codec
	now     func() time.Time

	// Dummy hash for timing-resistant login checks.
	dummyHash string
}

// ServiceOption configures optional Service behavior.
type ServiceOption func(*Service)

// WithClock sets the clock function (primarily for testing). The codecs keep
// their own clocks; this one stamps persistence timestamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService builds a Service from validated configuration. The two codecs
// are constructed here so that callers cannot accidentally cross-wire secrets.
func NewService(cfg Config, store identity.Store, opts ...ServiceOption) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	access, err := token.NewCodec(cfg.AccessSecret, cfg.AccessTTL, cfg.Issuer)
	if err != nil {
		return nil, ErrConfig
	}
	refresh, err := token.NewCodec(cfg.RefreshSecret, cfg.RefreshTTL, cfg.Issuer)
	if err != nil {
		return nil, ErrConfig
	}

	s := &Service{
		store:   store,
		access:  access,
		refresh: refresh,
		now:     time.Now,
	}
	if hash, err := identity.HashPassword("dummy-password-for-timing-only"); err == nil {
		s.dummyHash = hash
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// AccessCodec exposes the access-token codec for the HTTP guard.
func (s *Service) AccessCodec() *token.Codec { return s.access }

// Login verifies a credential pair and, on success, issues a fresh token pair
// and persists the refresh digest, superseding any previous session.
//
// Unknown usernames and wrong passwords both map to ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password string) (TokenPair, identity.User, error) {
	auth, err := s.store.GetUserAuthByUsername(ctx, username)
	if err != nil {
		if identity.IsNotFound(err) {
			// Timing resistance: perform a dummy verify when the user is missing.
			if s.dummyHash != "" {
				_, _ = identity.VerifyPassword(password, s.dummyHash)
			}
			return TokenPair{}, identity.User{}, ErrInvalidCredentials
		}
		return TokenPair{}, identity.User{}, fmt.Errorf("session: login lookup: %w", err)
	}

	ok, err := identity.VerifyPassword(password, auth.PasswordHash)
	if err != nil {
		return TokenPair{}, identity.User{}, fmt.Errorf("session: verify password: %w", err)
	}
	if !ok {
		return TokenPair{}, identity.User{}, ErrInvalidCredentials
	}

	pair, err := s.issueAndPersist(ctx, auth.User)
	if err != nil {
		return TokenPair{}, identity.User{}, err
	}

	return pair, auth.User, nil
}

// Logout revokes the user's live session by clearing the stored refresh
// digest. Idempotent for an already-logged-out user; ErrNotFound for an
// unknown id.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	if err := s.store.SetRefreshDigest(ctx, userID, nil, s.now().UTC()); err != nil {
		if identity.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("session: logout: %w", err)
	}
	return nil
}

// Refresh exchanges a valid, still-current refresh token for a fresh pair,
// rotating the stored digest so the presented token cannot be replayed.
//
// All verification failures collapse to ErrUnauthorized: bad signature,
// expiry, malformed input, an unknown subject, or a token that is no longer
// the user's live session.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, identity.User, error) {
	id, err := s.refresh.Decode(refreshToken)
	if err != nil {
		return TokenPair{}, identity.User{}, ErrUnauthorized
	}

	user, err := s.store.GetUserByID(ctx, id.UserID)
	if err != nil {
		if identity.IsNotFound(err) {
			return TokenPair{}, identity.User{}, ErrUnauthorized
		}
		return TokenPair{}, identity.User{}, fmt.Errorf("session: refresh subject lookup: %w", err)
	}

	// The token must still be the live session: the stored digest must match
	// AND belong to the same user the token claims as subject.
	digest := sectoken.HashRefreshTokenHex(refreshToken)
	holder, err := s.store.GetUserByRefreshDigest(ctx, digest)
	if err != nil {
		if identity.IsNotFound(err) {
			return TokenPair{}, identity.User{}, ErrUnauthorized
		}
		return TokenPair{}, identity.User{}, fmt.Errorf("session: refresh digest lookup: %w", err)
	}
	if holder.ID != user.ID {
		return TokenPair{}, identity.User{}, ErrUnauthorized
	}

	// Claims are rebuilt from the live row, not echoed from the old token, so
	// role or username changes take effect on rotation.
	pair, err := s.issueAndPersist(ctx, user)
	if err != nil {
		return TokenPair{}, identity.User{}, err
	}

	return pair, user, nil
}

func (s *Service) issueAndPersist(ctx context.Context, user identity.User) (TokenPair, error) {
	id := token.Identity{UserID: user.ID, Username: user.Username, Role: user.Role}

	accessTok, accessExp, err := s.access.Issue(id)
	if err != nil {
		return TokenPair{}, fmt.Errorf("session: issue access token: %w", err)
	}
	refreshTok, refreshExp, err := s.refresh.Issue(id)
	if err != nil {
		return TokenPair{}, fmt.Errorf("session: issue refresh token: %w", err)
	}

	digest := sectoken.HashRefreshTokenHex(refreshTok)
	if err := s.store.SetRefreshDigest(ctx, user.ID, &digest, s.now().UTC()); err != nil {
		if identity.IsNotFound(err) {
			// The row vanished between lookup and persist.
			return TokenPair{}, ErrUnauthorized
		}
		return TokenPair{}, fmt.Errorf("session: persist refresh digest: %w", err)
	}

	return TokenPair{
		AccessToken:      accessTok,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refreshTok,
		RefreshExpiresAt: refreshExp,
	}, nil
}
