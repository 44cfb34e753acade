// Package authapi exposes the authentication HTTP surface: registration,
// login, refresh rotation, logout, and the bearer guard used by protected
// resource handlers.
package authapi
