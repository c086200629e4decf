package store

import "sync"

// Memory is an in-memory CredentialStore. It is used by tests and is handy
// for running the server without a database file.
type Memory struct {
	mu      sync.RWMutex
	records map[string]string
}

// NewMemory returns an empty in-memory credential store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]string)}
}

// FindByLogin returns the stored password hash for login.
func (m *Memory) FindByLogin(login string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hash, ok := m.records[login]
	if !ok {
		return "", ErrUnknownLogin
	}
	return hash, nil
}

// Insert stores a new credential record, rejecting duplicate logins.
func (m *Memory) Insert(login, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[login]; ok {
		return ErrDuplicateLogin
	}
	m.records[login] = hash
	return nil
}

// Close is a no-op for the in-memory store.
func (m *Memory) Close() error {
	return nil
}
