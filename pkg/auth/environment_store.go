package auth

import (
	"os"
	"strings"
	"time"
)

const (
	envUsername = "IGARCHIVE_USERNAME"
	envPassword = "IGARCHIVE_PASSWORD"
)

// EnvironmentStore reads credentials from IGARCHIVE_USERNAME and
// IGARCHIVE_PASSWORD. It is read-only.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(creds *Credentials) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment credentials. An empty username matches
// any; otherwise it must match IGARCHIVE_USERNAME.
func (e *EnvironmentStore) Retrieve(username string) (*Credentials, error) {
	user := os.Getenv(envUsername)
	password := os.Getenv(envPassword)

	if user == "" || password == "" {
		return nil, ErrCredentialsNotFound
	}
	if username != "" && !strings.EqualFold(username, user) {
		return nil, ErrCredentialsNotFound
	}

	return &Credentials{
		Username:     user,
		Password:     password,
		LastModified: time.Now(),
	}, nil
}

// List returns the environment credentials if set
func (e *EnvironmentStore) List() ([]*Credentials, error) {
	creds, err := e.Retrieve("")
	if err != nil {
		return []*Credentials{}, nil
	}
	return []*Credentials{creds}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(username string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist for username
func (e *EnvironmentStore) Exists(username string) bool {
	_, err := e.Retrieve(username)
	return err == nil
}
