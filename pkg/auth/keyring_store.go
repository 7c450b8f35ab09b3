package auth

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const keyringService = "dailynews"

// KeyringStore implements CredentialStore using the system keychain
type KeyringStore struct{}

// NewKeyringStore creates a keyring-based store, failing when no keychain
// is reachable (headless servers without a secret service, for example).
func NewKeyringStore() (*KeyringStore, error) {
	testKey := "test_availability"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, testKey)

	return &KeyringStore{}, nil
}

func (k *KeyringStore) Store(cred *Credential) error {
	if cred == nil || cred.Name == "" {
		return ErrInvalidCredentials
	}
	if err := keyring.Set(keyringService, cred.Name, cred.Secret); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return nil
}

func (k *KeyringStore) Retrieve(name string) (*Credential, error) {
	if name == "" {
		return nil, ErrInvalidCredentials
	}
	secret, err := keyring.Get(keyringService, name)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrCredentialsNotFound
		}
		return nil, fmt.Errorf("failed to retrieve from keyring: %w", err)
	}
	return &Credential{Name: name, Secret: secret}, nil
}

func (k *KeyringStore) Delete(name string) error {
	if name == "" {
		return ErrInvalidCredentials
	}
	if err := keyring.Delete(keyringService, name); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrCredentialsNotFound
		}
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}

func (k *KeyringStore) Exists(name string) bool {
	if name == "" {
		return false
	}
	_, err := keyring.Get(keyringService, name)
	return err == nil
}
