package session

import (
	"os"
	"time"
)

// Config defines runtime configuration for the session subsystem.
//
// Access and refresh tokens are signed with independent symmetric secrets so
// that a refresh token can never pass an access-token check or vice versa.
type Config struct {
	// Issuer is the value set in the "iss" claim of issued tokens.
	Issuer string

	// AccessSecret signs short-lived access tokens.
	AccessSecret string

	// AccessTTL defines the lifetime of access tokens.
	AccessTTL time.Duration

	// RefreshSecret signs long-lived refresh tokens. MUST differ from AccessSecret.
	RefreshSecret string

	// RefreshTTL defines the lifetime of refresh tokens.
	RefreshTTL time.Duration
}

// DefaultConfig returns defaults suitable for development.
// Secrets have no default; deployments must provide them.
func DefaultConfig() Config {
	return Config{
		Issuer:     "roster",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	}
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Required:
//   - ROSTER_AUTH_ACCESS_SECRET
//   - ROSTER_AUTH_REFRESH_SECRET (must differ from the access secret)
//
// Optional (durations must be valid Go duration strings):
//   - ROSTER_AUTH_ISSUER
//   - ROSTER_AUTH_ACCESS_TTL (default 15m)
//   - ROSTER_AUTH_REFRESH_TTL (default 168h)
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("ROSTER_AUTH_ISSUER"); v != "" {
		cfg.Issuer = v
	}

	if v := os.Getenv("ROSTER_AUTH_ACCESS_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.AccessTTL = d
	}

	if v := os.Getenv("ROSTER_AUTH_REFRESH_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.RefreshTTL = d
	}

	cfg.AccessSecret = os.Getenv("ROSTER_AUTH_ACCESS_SECRET")
	cfg.RefreshSecret = os.Getenv("ROSTER_AUTH_REFRESH_SECRET")

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.AccessSecret == "" || c.RefreshSecret == "" {
		return ErrConfig
	}
	// Shared secrets would collapse the two token classes into one.
	if c.AccessSecret == c.RefreshSecret {
		return ErrConfig
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return ErrConfig
	}
	// A refresh horizon shorter than the access horizon is a misconfiguration.
	if c.RefreshTTL < c.AccessTTL {
		return ErrConfig
	}
	return nil
}
