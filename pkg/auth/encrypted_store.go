package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize         = 32
	keySize          = 32
	pbkdf2Iterations = 100000
	vaultVersion     = 1

	// PassphraseEnv overrides the generated passphrase file
	PassphraseEnv = "IGARCHIVE_PASSPHRASE"
)

// vaultFile is the on-disk layout. Data is the AES-GCM sealed JSON map of
// credentials by username, nonce first.
type vaultFile struct {
	Version  int       `json:"version"`
	Salt     []byte    `json:"salt"`
	Data     []byte    `json:"data"`
	Modified time.Time `json:"modified"`
}

// EncryptedFileStore keeps credentials in an AES-GCM encrypted file. The
// key is derived with PBKDF2 from IGARCHIVE_PASSPHRASE, or from a random
// passphrase generated once and kept next to the file.
type EncryptedFileStore struct {
	path       string
	passphrase []byte
	mu         sync.RWMutex
}

// NewEncryptedFileStore opens (or prepares) the vault at path
func NewEncryptedFileStore(path string) (*EncryptedFileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	passphrase, err := loadPassphrase(filepath.Join(filepath.Dir(path), ".passphrase"))
	if err != nil {
		return nil, fmt.Errorf("failed to get passphrase: %w", err)
	}
	return &EncryptedFileStore{path: path, passphrase: passphrase}, nil
}

func loadPassphrase(file string) ([]byte, error) {
	if pass := os.Getenv(PassphraseEnv); pass != "" {
		return []byte(pass), nil
	}
	if content, err := os.ReadFile(file); err == nil && len(content) > 0 {
		return content, nil
	}

	raw := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return nil, fmt.Errorf("failed to generate passphrase: %w", err)
	}
	pass := []byte(base64.URLEncoding.EncodeToString(raw))
	if err := os.WriteFile(file, pass, 0600); err != nil {
		return nil, fmt.Errorf("failed to save passphrase: %w", err)
	}
	return pass, nil
}

func (e *EncryptedFileStore) Store(creds *Credentials) error {
	if creds == nil || creds.Username == "" {
		return ErrInvalidCredentials
	}
	return e.update(func(all map[string]Credentials) error {
		all[creds.Username] = *creds
		return nil
	})
}

func (e *EncryptedFileStore) Retrieve(username string) (*Credentials, error) {
	if username == "" {
		return nil, ErrInvalidCredentials
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	all, _, err := e.open()
	if err != nil {
		return nil, err
	}
	c, ok := all[username]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return &c, nil
}

func (e *EncryptedFileStore) List() ([]*Credentials, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	all, _, err := e.open()
	if err != nil {
		return nil, err
	}

	out := make([]*Credentials, 0, len(all))
	for _, c := range all {
		c := c
		out = append(out, &c)
	}
	return out, nil
}

// Delete removes username. The file goes away with the last entry.
func (e *EncryptedFileStore) Delete(username string) error {
	return e.update(func(all map[string]Credentials) error {
		if _, ok := all[username]; !ok {
			return ErrCredentialsNotFound
		}
		delete(all, username)
		return nil
	})
}

func (e *EncryptedFileStore) Exists(username string) bool {
	_, err := e.Retrieve(username)
	return err == nil
}

// update applies fn to the decrypted contents and writes them back
func (e *EncryptedFileStore) update(fn func(map[string]Credentials) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	all, salt, err := e.open()
	if err != nil {
		return err
	}
	if err := fn(all); err != nil {
		return err
	}
	if len(all) == 0 {
		if err := os.Remove(e.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}
	return e.seal(all, salt)
}

// open reads and decrypts the vault. A missing file is an empty vault.
func (e *EncryptedFileStore) open() (map[string]Credentials, []byte, error) {
	content, err := os.ReadFile(e.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]Credentials), nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read vault: %w", err)
	}

	var vf vaultFile
	if err := json.Unmarshal(content, &vf); err != nil {
		return nil, nil, fmt.Errorf("failed to parse vault: %w", err)
	}
	if vf.Version != vaultVersion {
		return nil, nil, fmt.Errorf("unsupported vault version %d", vf.Version)
	}

	gcm, err := e.aead(vf.Salt)
	if err != nil {
		return nil, nil, err
	}
	if len(vf.Data) < gcm.NonceSize() {
		return nil, nil, errors.New("vault data too short")
	}
	nonce, sealed := vf.Data[:gcm.NonceSize()], vf.Data[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decrypt vault: %w", err)
	}

	all := make(map[string]Credentials)
	if err := json.Unmarshal(plain, &all); err != nil {
		return nil, nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	return all, vf.Salt, nil
}

// seal encrypts all and replaces the vault atomically. A nil salt gets a
// fresh one.
func (e *EncryptedFileStore) seal(all map[string]Credentials, salt []byte) error {
	if salt == nil {
		salt = make([]byte, saltSize)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return fmt.Errorf("failed to generate salt: %w", err)
		}
	}

	plain, err := json.Marshal(all)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	gcm, err := e.aead(salt)
	if err != nil {
		return err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	content, err := json.MarshalIndent(vaultFile{
		Version:  vaultVersion,
		Salt:     salt,
		Data:     gcm.Seal(nonce, nonce, plain, nil),
		Modified: time.Now(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal vault: %w", err)
	}

	tmp := e.path + ".tmp"
	if err := os.WriteFile(tmp, content, 0600); err != nil {
		return fmt.Errorf("failed to write vault: %w", err)
	}
	return os.Rename(tmp, e.path)
}

func (e *EncryptedFileStore) aead(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(e.passphrase, salt, pbkdf2Iterations, keySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
