// Package users exposes the user management HTTP surface: list, fetch,
// create, update, and delete over the identity store. All routes except
// create require an authenticated bearer identity.
package users
