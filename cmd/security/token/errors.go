package token

import "errors"

var (
	// ErrHMACKeyMissing is returned when enforced-HMAC hashing is requested
	// without a configured key.
	ErrHMACKeyMissing = errors.New("token hmac key missing")

	// ErrHMACKeyTooShort is returned when the configured key does not meet the
	// minimum byte length.
	ErrHMACKeyTooShort = errors.New("token hmac key too short")
)
