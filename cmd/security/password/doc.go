// Package password implements Argon2id password hashing with PHC-encoded
// output, a small validation policy, and environment-tunable cost parameters.
//
// It is the single source of truth for hashing configuration; cmd/identity
// wraps it rather than carrying its own parameters.
package password
