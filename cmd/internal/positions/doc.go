// Package positions implements the positions resource: typed records owned
// by users, with Postgres-backed persistence and a guarded CRUD HTTP surface.
package positions
