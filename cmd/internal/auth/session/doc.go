// Package session implements the credential session core: login, refresh
// rotation, and logout over the identity store.
//
// The service is a stateless orchestrator. All session state is the single
// refresh-token digest column on the user row: login and refresh overwrite
// it, logout clears it, and refresh validity is bound to an exact match with
// the stored value, so a superseded or revoked token can never be replayed
// even while its signature and expiry are still valid.
package session
