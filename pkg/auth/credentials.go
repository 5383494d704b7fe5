package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"
)

// Credentials are the Instagram login used to fill the browser login form
type Credentials struct {
	Username     string    `json:"username"`
	Password     string    `json:"password"`
	LastModified time.Time `json:"last_modified"`
}

// CredentialStore is the interface for storing and retrieving credentials
type CredentialStore interface {
	// Store saves credentials for a given username
	Store(creds *Credentials) error

	// Retrieve gets credentials for a specific username
	Retrieve(username string) (*Credentials, error)

	// List returns all stored credentials
	List() ([]*Credentials, error)

	// Delete removes credentials for a specific username
	Delete(username string) error

	// Exists checks if credentials exist for a username
	Exists(username string) bool
}

// Manager handles credential storage with fallback mechanisms
type Manager struct {
	stores []CredentialStore
}

// NewManager creates a credential manager over the keyring (when
// available), the encrypted file store and the environment
func NewManager() (*Manager, error) {
	var stores []CredentialStore

	keyringStore, err := NewKeyringStore()
	if err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a Manager over explicit stores, tried in order
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves credentials using the first store that accepts them
func (m *Manager) Store(creds *Credentials) error {
	if creds == nil || creds.Username == "" {
		return errors.New("username is required")
	}
	if creds.Password == "" {
		return errors.New("password is required")
	}

	creds.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(creds); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return errors.New("no available credential stores")
}

// Retrieve gets credentials from the first store that has them
func (m *Manager) Retrieve(username string) (*Credentials, error) {
	for _, store := range m.stores {
		if creds, err := store.Retrieve(username); err == nil && creds != nil {
			return creds, nil
		}
	}
	return nil, fmt.Errorf("%w for user: %s", ErrCredentialsNotFound, username)
}

// RetrieveDefault returns environment credentials if set, else the most
// recently stored ones
func (m *Manager) RetrieveDefault() (*Credentials, error) {
	for _, store := range m.stores {
		if env, ok := store.(*EnvironmentStore); ok {
			if creds, err := env.Retrieve(""); err == nil {
				return creds, nil
			}
		}
	}

	list, err := m.List()
	if err == nil && len(list) > 0 {
		return list[0], nil
	}

	return nil, ErrCredentialsNotFound
}

// List returns stored credentials from all stores, newest first
func (m *Manager) List() ([]*Credentials, error) {
	byUser := make(map[string]*Credentials)

	for _, store := range m.stores {
		list, err := store.List()
		if err != nil {
			continue
		}
		for _, creds := range list {
			if existing, ok := byUser[creds.Username]; !ok || creds.LastModified.After(existing.LastModified) {
				byUser[creds.Username] = creds
			}
		}
	}

	result := make([]*Credentials, 0, len(byUser))
	for _, creds := range byUser {
		result = append(result, creds)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].LastModified.After(result[j].LastModified)
	})

	return result, nil
}

// Delete removes credentials from all stores
func (m *Manager) Delete(username string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(username); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if !deleted && lastErr != nil {
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("%w for user: %s", ErrCredentialsNotFound, username)
	}

	return nil
}

// Provider supplies login credentials when the browser shows a login form
type Provider interface {
	Credentials(ctx context.Context) (*Credentials, error)
	// Remember is called once the credentials logged in successfully
	Remember(creds *Credentials) error
}

// Resolver looks credentials up in a Manager and falls back to prompting
type Resolver struct {
	manager  *Manager
	prompter *Prompter
	username string
	remember bool
	prompted bool
}

// NewResolver creates a Provider. username may be empty; remember saves
// prompted credentials after a successful login.
func NewResolver(manager *Manager, prompter *Prompter, username string, remember bool) *Resolver {
	return &Resolver{
		manager:  manager,
		prompter: prompter,
		username: username,
		remember: remember,
	}
}

// Credentials returns stored credentials, or prompts for them
func (r *Resolver) Credentials(ctx context.Context) (*Credentials, error) {
	if r.manager != nil {
		var (
			creds *Credentials
			err   error
		)
		if r.username != "" {
			creds, err = r.manager.Retrieve(r.username)
		} else {
			creds, err = r.manager.RetrieveDefault()
		}
		if err == nil {
			return creds, nil
		}
	}

	if r.prompter == nil {
		return nil, ErrCredentialsNotFound
	}
	creds, err := r.prompter.Prompt(ctx, r.username)
	if err != nil {
		return nil, err
	}
	r.prompted = true
	return creds, nil
}

// Remember stores prompted credentials when remembering is enabled
func (r *Resolver) Remember(creds *Credentials) error {
	if !r.remember || !r.prompted || r.manager == nil {
		return nil
	}
	return r.manager.Store(creds)
}

// getConfigDir returns the configuration directory path
func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "igarchive")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "igarchive")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "igarchive")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "igarchive")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// Sanitize returns a copy safe for display
func Sanitize(creds *Credentials) *Credentials {
	if creds == nil {
		return nil
	}
	return &Credentials{
		Username:     creds.Username,
		Password:     maskString(creds.Password),
		LastModified: creds.LastModified,
	}
}

// maskString masks all but the first 2 and last 2 characters of a string
func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:2] + "..." + s[len(s)-2:]
}

// Errors
var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
