// Package store provides the SQLite-backed credential store used by the
// server in production.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// SQLite is a CredentialStore backed by a SQLite database file. The login
// column is the primary key, so duplicate registrations are rejected by the
// database itself rather than by application-level locking.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if necessary) the credential database at path
// and ensures the schema exists.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open credential database: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS credentials (
		login TEXT PRIMARY KEY,
		password TEXT NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize credential schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// FindByLogin returns the stored password hash for login.
func (s *SQLite) FindByLogin(login string) (string, error) {
	var hash string
	err := s.db.QueryRow("SELECT password FROM credentials WHERE login = ?", login).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrUnknownLogin
	}
	if err != nil {
		return "", fmt.Errorf("query credentials for %q: %w", login, err)
	}
	return hash, nil
}

// Insert stores a new credential record. A primary-key violation is reported
// as ErrDuplicateLogin.
func (s *SQLite) Insert(login, hash string) error {
	_, err := s.db.Exec("INSERT INTO credentials (login, password) VALUES (?, ?)", login, hash)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return ErrDuplicateLogin
		}
		return fmt.Errorf("insert credentials for %q: %w", login, err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}
