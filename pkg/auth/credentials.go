// Package auth stores the secrets the pipeline needs, today only the token
// for a hosted remote browser.
package auth

import (
	"errors"
	"fmt"
	"time"
)

// BrowserToken is the credential name of the remote browser token
const BrowserToken = "browser_token"

// Credential is one named secret
type Credential struct {
	Name         string    `json:"name"`
	Secret       string    `json:"secret"`
	LastModified time.Time `json:"last_modified"`
}

// CredentialStore is the interface for storing and retrieving credentials
type CredentialStore interface {
	// Store saves a credential under its name
	Store(cred *Credential) error

	// Retrieve gets the credential stored under name
	Retrieve(name string) (*Credential, error)

	// Delete removes the credential stored under name
	Delete(name string) error

	// Exists checks if a credential is stored under name
	Exists(name string) bool
}

// Manager handles credential storage with fallback mechanisms
type Manager struct {
	stores []CredentialStore
}

// NewManager creates a credential manager backed by the system keychain
// when it is usable, then an encrypted file for headless hosts, with
// environment variables as a read-only fallback.
func NewManager() *Manager {
	var stores []CredentialStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}
	stores = append(stores, NewDefaultEncryptedFileStore(), NewEnvironmentStore())

	return &Manager{stores: stores}
}

// NewManagerWithStores creates a Manager over explicit stores, tried in order
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves the credential in the first store that accepts it
func (m *Manager) Store(cred *Credential) error {
	if cred == nil || cred.Name == "" {
		return errors.New("credential name is required")
	}
	if cred.Secret == "" {
		return errors.New("secret is required")
	}

	cred.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(cred); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credential: %w", lastErr)
	}
	return ErrStoreUnavailable
}

// Retrieve gets the credential from the first store that has it
func (m *Manager) Retrieve(name string) (*Credential, error) {
	for _, store := range m.stores {
		if cred, err := store.Retrieve(name); err == nil && cred != nil {
			return cred, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrCredentialsNotFound, name)
}

// Delete removes the credential from every writable store
func (m *Manager) Delete(name string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		err := store.Delete(name)
		switch {
		case err == nil:
			deleted = true
		case errors.Is(err, ErrStoreUnavailable):
		default:
			lastErr = err
		}
	}

	if deleted {
		return nil
	}
	if lastErr != nil && !errors.Is(lastErr, ErrCredentialsNotFound) {
		return fmt.Errorf("failed to delete credential: %w", lastErr)
	}
	return fmt.Errorf("%w: %s", ErrCredentialsNotFound, name)
}

// BrowserTokenOrEmpty returns the stored remote browser token, or "" when
// none is configured anywhere.
func (m *Manager) BrowserTokenOrEmpty() string {
	cred, err := m.Retrieve(BrowserToken)
	if err != nil {
		return ""
	}
	return cred.Secret
}

// Mask hides all but the first and last four characters of a secret
func Mask(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// Errors
var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
