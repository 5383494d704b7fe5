package auth

import (
	"fmt"
	"sync"
)

// MockStore is an in-memory CredentialStore for tests. Setting one of the
// *Error fields makes the matching operation fail with it.
type MockStore struct {
	mu    sync.RWMutex
	creds map[string]Credentials

	StoreError    error
	RetrieveError error
	ListError     error
	DeleteError   error
}

// NewMockStore creates an empty mock store
func NewMockStore() *MockStore {
	return &MockStore{creds: make(map[string]Credentials)}
}

// NewMockManager creates a Manager backed only by a mock store
func NewMockManager() (*Manager, *MockStore) {
	store := NewMockStore()
	return NewManagerWithStores(store), store
}

func (m *MockStore) Store(creds *Credentials) error {
	if m.StoreError != nil {
		return m.StoreError
	}
	if creds == nil || creds.Username == "" {
		return ErrInvalidCredentials
	}

	m.mu.Lock()
	m.creds[creds.Username] = *creds
	m.mu.Unlock()
	return nil
}

func (m *MockStore) Retrieve(username string) (*Credentials, error) {
	if m.RetrieveError != nil {
		return nil, m.RetrieveError
	}
	if username == "" {
		return nil, ErrInvalidCredentials
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.creds[username]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return &c, nil
}

func (m *MockStore) List() ([]*Credentials, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Credentials, 0, len(m.creds))
	for _, c := range m.creds {
		c := c
		out = append(out, &c)
	}
	return out, nil
}

func (m *MockStore) Delete(username string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.creds[username]; !ok {
		return ErrCredentialsNotFound
	}
	delete(m.creds, username)
	return nil
}

func (m *MockStore) Exists(username string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.creds[username]
	return ok
}

// Count is the number of stored entries
func (m *MockStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.creds)
}

// Get returns what was stored for username, ignoring injected errors
func (m *MockStore) Get(username string) (*Credentials, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.creds[username]
	if !ok {
		return nil, fmt.Errorf("no mock credentials for %s", username)
	}
	return &c, nil
}
