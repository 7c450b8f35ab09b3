package auth

import (
	"os"
	"strings"
)

const envPrefix = "DAILYNEWS_"

// EnvironmentStore reads credentials from DAILYNEWS_<NAME> variables, so
// BrowserToken comes from DAILYNEWS_BROWSER_TOKEN. It is read-only.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

func envKey(name string) string {
	return envPrefix + strings.ToUpper(name)
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(cred *Credential) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Retrieve(name string) (*Credential, error) {
	if name == "" {
		return nil, ErrInvalidCredentials
	}
	secret := os.Getenv(envKey(name))
	if secret == "" {
		return nil, ErrCredentialsNotFound
	}
	return &Credential{Name: name, Secret: secret}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Exists(name string) bool {
	return name != "" && os.Getenv(envKey(name)) != ""
}
