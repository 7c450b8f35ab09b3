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
	"strings"
	"sync"
	"time"

	"dailynews/pkg/storage"

	"github.com/adrg/xdg"
	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 32
	keySize    = 32
	iterations = 100000

	// CredentialsFile is the encrypted store's file name in the config dir
	CredentialsFile = "credentials.enc"
	passphraseFile  = ".passphrase"
	passphraseEnv   = envPrefix + "PASSPHRASE"
)

// configDir is where the default encrypted store lives
var configDir = func() string { return filepath.Join(xdg.ConfigHome, "dailynews") }

// EncryptedFileStore keeps credentials in one AES-GCM sealed file, for
// hosts without a usable keychain. The key is derived from a passphrase
// with PBKDF2.
type EncryptedFileStore struct {
	path       string
	passphrase func() (string, error)
	mu         sync.RWMutex
}

// sealedFile is the on-disk shape
type sealedFile struct {
	Version  int       `json:"version"`
	Salt     string    `json:"salt"`
	Sealed   string    `json:"sealed"`
	Modified time.Time `json:"modified"`
}

// NewEncryptedFileStore creates a store at path sealed with passphrase
func NewEncryptedFileStore(path, passphrase string) (*EncryptedFileStore, error) {
	if path == "" || passphrase == "" {
		return nil, ErrInvalidCredentials
	}
	return &EncryptedFileStore{
		path:       path,
		passphrase: func() (string, error) { return passphrase, nil },
	}, nil
}

// NewDefaultEncryptedFileStore creates the store under the dailynews config
// directory. The passphrase comes from DAILYNEWS_PASSPHRASE, or from a
// generated file next to the store that is created on first write.
func NewDefaultEncryptedFileStore() *EncryptedFileStore {
	dir := configDir()
	return &EncryptedFileStore{
		path:       filepath.Join(dir, CredentialsFile),
		passphrase: func() (string, error) { return localPassphrase(dir) },
	}
}

func (e *EncryptedFileStore) Store(cred *Credential) error {
	if cred == nil || cred.Name == "" {
		return ErrInvalidCredentials
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	creds, err := e.load()
	if errors.Is(err, os.ErrNotExist) {
		creds = make(map[string]Credential)
	} else if err != nil {
		return err
	}
	creds[cred.Name] = *cred
	return e.save(creds)
}

func (e *EncryptedFileStore) Retrieve(name string) (*Credential, error) {
	if name == "" {
		return nil, ErrInvalidCredentials
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	creds, err := e.load()
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrCredentialsNotFound
	}
	if err != nil {
		return nil, err
	}
	cred, ok := creds[name]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return &cred, nil
}

func (e *EncryptedFileStore) Delete(name string) error {
	if name == "" {
		return ErrInvalidCredentials
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	creds, err := e.load()
	if errors.Is(err, os.ErrNotExist) {
		return ErrCredentialsNotFound
	}
	if err != nil {
		return err
	}
	if _, ok := creds[name]; !ok {
		return ErrCredentialsNotFound
	}
	delete(creds, name)

	if len(creds) == 0 {
		return os.Remove(e.path)
	}
	return e.save(creds)
}

func (e *EncryptedFileStore) Exists(name string) bool {
	cred, err := e.Retrieve(name)
	return err == nil && cred != nil
}

// load reads and opens the file. A missing file is os.ErrNotExist and is
// reported before the passphrase is needed.
func (e *EncryptedFileStore) load() (map[string]Credential, error) {
	content, err := os.ReadFile(e.path)
	if err != nil {
		return nil, err
	}

	var file sealedFile
	if err := json.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(e.path), err)
	}
	salt, err := base64.StdEncoding.DecodeString(file.Salt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode salt: %w", err)
	}
	sealed, err := base64.StdEncoding.DecodeString(file.Sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to decode credentials: %w", err)
	}

	key, err := e.key(salt)
	if err != nil {
		return nil, err
	}
	plain, err := open(sealed, key)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt credentials (wrong passphrase?): %w", err)
	}

	creds := make(map[string]Credential)
	if err := json.Unmarshal(plain, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	return creds, nil
}

// save seals creds under a fresh salt and replaces the file atomically
func (e *EncryptedFileStore) save(creds map[string]Credential) error {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}
	key, err := e.key(salt)
	if err != nil {
		return err
	}

	plain, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	sealed, err := seal(plain, key)
	if err != nil {
		return fmt.Errorf("failed to encrypt credentials: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(e.path), 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return storage.WriteJSONAtomic(e.path, sealedFile{
		Version:  1,
		Salt:     base64.StdEncoding.EncodeToString(salt),
		Sealed:   base64.StdEncoding.EncodeToString(sealed),
		Modified: time.Now(),
	})
}

func (e *EncryptedFileStore) key(salt []byte) ([]byte, error) {
	pass, err := e.passphrase()
	if err != nil {
		return nil, fmt.Errorf("failed to get passphrase: %w", err)
	}
	return pbkdf2.Key([]byte(pass), salt, iterations, keySize, sha256.New), nil
}

// localPassphrase returns DAILYNEWS_PASSPHRASE or the contents of the
// passphrase file in dir, generating the file when it does not exist.
func localPassphrase(dir string) (string, error) {
	if pass := os.Getenv(passphraseEnv); pass != "" {
		return pass, nil
	}

	path := filepath.Join(dir, passphraseFile)
	if content, err := os.ReadFile(path); err == nil {
		if pass := strings.TrimSpace(string(content)); pass != "" {
			return pass, nil
		}
	}

	b := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", fmt.Errorf("failed to generate passphrase: %w", err)
	}
	pass := base64.URLEncoding.EncodeToString(b)

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(pass), 0600); err != nil {
		return "", fmt.Errorf("failed to save passphrase: %w", err)
	}
	return pass, nil
}

func seal(plain, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plain, nil), nil
}

func open(sealed, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, body := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	return gcm.Open(nil, nonce, body, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
