package identity

import "roster/cmd/security/password"

// HashPassword returns a PHC-style Argon2id hash string for a plaintext
// password, using the env-driven security/password configuration.
func HashPassword(plain string) (string, error) {
	cfg, err := password.FromEnv()
	if err != nil {
		// Invalid env is an operational error, not a weak fallback.
		return "", err
	}
	return cfg.Hash(plain)
}

// VerifyPassword checks a password against a PHC Argon2id hash.
// Returns (false, nil) on a clean mismatch; errors indicate malformed hashes
// or configuration problems.
func VerifyPassword(plain, encodedPHC string) (bool, error) {
	cfg, err := password.FromEnv()
	if err != nil {
		return false, err
	}
	return cfg.Verify(encodedPHC, plain)
}
