package auth

import (
	"sync"
)

// MockStore implements CredentialStore in memory for tests
type MockStore struct {
	creds map[string]*Credential
	mu    sync.RWMutex

	// Error injection for testing
	StoreError    error
	RetrieveError error
	DeleteError   error
}

// NewMockStore creates a new mock credential store
func NewMockStore() *MockStore {
	return &MockStore{
		creds: make(map[string]*Credential),
	}
}

func (m *MockStore) Store(cred *Credential) error {
	if m.StoreError != nil {
		return m.StoreError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if cred == nil || cred.Name == "" {
		return ErrInvalidCredentials
	}

	c := *cred
	m.creds[cred.Name] = &c
	return nil
}

func (m *MockStore) Retrieve(name string) (*Credential, error) {
	if m.RetrieveError != nil {
		return nil, m.RetrieveError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	cred, ok := m.creds[name]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	c := *cred
	return &c, nil
}

func (m *MockStore) Delete(name string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.creds[name]; !ok {
		return ErrCredentialsNotFound
	}
	delete(m.creds, name)
	return nil
}

func (m *MockStore) Exists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.creds[name]
	return ok
}

// Count returns the number of stored credentials
func (m *MockStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.creds)
}

// NewMockManager creates a Manager over a single mock store
func NewMockManager() (*Manager, *MockStore) {
	store := NewMockStore()
	return NewManagerWithStores(store), store
}
