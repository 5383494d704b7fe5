package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "igarchive"
	keyringPrefix  = "instagram_"
	// keyringIndex lists the stored usernames; the keychain API cannot enumerate
	keyringIndex = "index"
)

// KeyringStore keeps credentials in the system keychain, one JSON entry per user
type KeyringStore struct{}

// NewKeyringStore probes the keychain and fails when it is unusable
// (no secret service on headless Linux, for instance)
func NewKeyringStore() (*KeyringStore, error) {
	const probe = "probe"
	if err := keyring.Set(keyringService, probe, "ok"); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	_ = keyring.Delete(keyringService, probe)
	return &KeyringStore{}, nil
}

func (k *KeyringStore) Store(creds *Credentials) error {
	if creds == nil || creds.Username == "" {
		return ErrInvalidCredentials
	}

	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	if err := keyring.Set(keyringService, keyringPrefix+creds.Username, string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}

	names := k.index()
	if !slices.Contains(names, creds.Username) {
		return k.writeIndex(append(names, creds.Username))
	}
	return nil
}

func (k *KeyringStore) Retrieve(username string) (*Credentials, error) {
	if username == "" {
		return nil, ErrInvalidCredentials
	}

	data, err := keyring.Get(keyringService, keyringPrefix+username)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, ErrCredentialsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve from keyring: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal([]byte(data), &creds); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credentials: %w", err)
	}
	return &creds, nil
}

// List returns the indexed users that still have an entry
func (k *KeyringStore) List() ([]*Credentials, error) {
	var out []*Credentials
	for _, name := range k.index() {
		if creds, err := k.Retrieve(name); err == nil {
			out = append(out, creds)
		}
	}
	return out, nil
}

func (k *KeyringStore) Delete(username string) error {
	if username == "" {
		return ErrInvalidCredentials
	}

	err := keyring.Delete(keyringService, keyringPrefix+username)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrCredentialsNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}

	names := slices.DeleteFunc(k.index(), func(n string) bool { return n == username })
	if len(names) == 0 {
		_ = keyring.Delete(keyringService, keyringIndex)
		return nil
	}
	return k.writeIndex(names)
}

func (k *KeyringStore) Exists(username string) bool {
	if username == "" {
		return false
	}
	_, err := keyring.Get(keyringService, keyringPrefix+username)
	return err == nil
}

func (k *KeyringStore) index() []string {
	data, err := keyring.Get(keyringService, keyringIndex)
	if err != nil {
		return nil
	}
	var names []string
	if json.Unmarshal([]byte(data), &names) != nil {
		return nil
	}
	return names
}

func (k *KeyringStore) writeIndex(names []string) error {
	data, err := json.Marshal(names)
	if err != nil {
		return err
	}
	if err := keyring.Set(keyringService, keyringIndex, string(data)); err != nil {
		return fmt.Errorf("failed to update keyring index: %w", err)
	}
	return nil
}
