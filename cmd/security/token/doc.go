// Package token provides digest helpers for refresh tokens stored server-side.
//
// The plain refresh token is never persisted; the credential store keeps a
// hex digest and refresh validation is an equality match on that digest.
package token
