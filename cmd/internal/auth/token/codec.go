// Package token implements the signed, time-limited token codec used for
// access and refresh tokens.
//
// A Codec is a pure function of its configuration and the current time: it
// holds one symmetric secret and one TTL. The auth subsystem runs two
// independently configured instances (short-lived access, long-lived refresh).
package token

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

var (
	// ErrTokenExpired is returned when the embedded expiry has passed.
	ErrTokenExpired = errors.New("token expired")

	// ErrSignatureInvalid is returned when the signature does not verify
	// against the codec's secret.
	ErrSignatureInvalid = errors.New("token signature invalid")

	// ErrTokenMalformed is returned when the string cannot be parsed into the
	// expected structure.
	ErrTokenMalformed = errors.New("token malformed")

	// ErrInvalidPayload is returned when an otherwise valid token is missing
	// the subject claim. Callers must not attach a partial identity.
	ErrInvalidPayload = errors.New("token payload invalid")

	// ErrConfig is returned for invalid codec configuration.
	ErrConfig = errors.New("invalid token codec config")
)

// Identity is the claim set carried by every token: subject id, username, role.
type Identity struct {
	UserID   int64
	Username string
	Role     string
}

type tokenClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Codec signs and verifies HS256 tokens with a fixed secret and TTL.
type Codec struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// CodecOption configures optional Codec behavior.
type CodecOption func(*Codec)

// WithNow sets the clock function (primarily for testing).
func WithNow(now func() time.Time) CodecOption {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCodec constructs a Codec. The secret is required; ttl must be positive.
func NewCodec(secret string, ttl time.Duration, issuer string, opts ...CodecOption) (*Codec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrConfig
	}
	if ttl <= 0 {
		return nil, ErrConfig
	}

	c := &Codec{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TTL returns the codec's configured token lifetime.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Issue produces a signed token embedding id and an expiry of now + TTL.
func (c *Codec) Issue(id Identity) (string, time.Time, error) {
	now := c.now().UTC()
	exp := now.Add(c.ttl)

	claims := tokenClaims{
		Username: id.Username,
		Role:     id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   strconv.FormatInt(id.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			// Unique token id so two tokens for the same identity issued in
			// the same second are still distinct strings.
			ID: ulid.Make().String(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Decode verifies raw against the codec's secret and current time and returns
// the embedded identity.
//
// Failure modes are distinct: ErrTokenExpired, ErrSignatureInvalid,
// ErrTokenMalformed, and ErrInvalidPayload for a verified token without a
// usable subject claim.
func (c *Codec) Decode(raw string) (Identity, error) {
	var claims tokenClaims

	_, err := jwt.ParseWithClaims(raw, &claims,
		func(t *jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Identity{}, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Identity{}, ErrSignatureInvalid
		default:
			return Identity{}, ErrTokenMalformed
		}
	}

	sub := strings.TrimSpace(claims.Subject)
	if sub == "" {
		return Identity{}, ErrInvalidPayload
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || userID <= 0 {
		return Identity{}, ErrInvalidPayload
	}

	return Identity{
		UserID:   userID,
		Username: claims.Username,
		Role:     claims.Role,
	}, nil
}
