// Package store persists login/password-hash credential pairs for the
// messenger server and verifies passwords against the stored hashes.
package store

import "errors"

var (
	// ErrUnknownLogin is returned by FindByLogin when no credential record
	// exists for the requested login.
	ErrUnknownLogin = errors.New("unknown login")

	// ErrDuplicateLogin is returned by Insert when a credential record with
	// the same login already exists.
	ErrDuplicateLogin = errors.New("login already in use")
)

// CredentialStore is the persistence interface consumed by the command
// dispatcher. Logins are unique across all records; implementations enforce
// the uniqueness themselves so that concurrent registrations cannot create
// duplicates.
type CredentialStore interface {
	// FindByLogin returns the stored password hash for login, or
	// ErrUnknownLogin if no record exists.
	FindByLogin(login string) (string, error)

	// Insert stores a new (login, hash) record. It returns ErrDuplicateLogin
	// if the login is already taken.
	Insert(login, hash string) error

	// Close releases any resources held by the store.
	Close() error
}
