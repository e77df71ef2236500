package auth

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/zalando/go-keyring"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keyringService = "exactonline-mcp"
	keyringAccount = "oauth_tokens"
)

// ErrNoToken is returned when no token has been stored yet.
var ErrNoToken = errors.New("no stored token - run the authentication flow first")

// TokenStorage persists a single OAuth2 token pair.
//
// Save must be atomic: a concurrent Load must never observe a half-written
// token. Implementations must never include token contents in errors.
type TokenStorage interface {
	Load() (*Token, error)
	Save(token *Token) error
	Delete() error
}

// KeyringStorage stores the token in the OS credential vault.
type KeyringStorage struct{}

// NewKeyringStorage creates a keyring-backed token store.
func NewKeyringStorage() *KeyringStorage {
	return &KeyringStorage{}
}

// Load retrieves the token from the system keyring.
func (s *KeyringStorage) Load() (*Token, error) {
	data, err := keyring.Get(keyringService, keyringAccount)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("failed to read keyring entry: %w", err)
	}

	var token Token
	if err := json.Unmarshal([]byte(data), &token); err != nil {
		return nil, fmt.Errorf("failed to decode stored token: %w", err)
	}
	return &token, nil
}

// Save stores the token in the system keyring. The keyring set operation
// replaces the entry in one call, so readers never see a partial write.
func (s *KeyringStorage) Save(token *Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := keyring.Set(keyringService, keyringAccount, string(data)); err != nil {
		return fmt.Errorf("failed to write keyring entry: %w", err)
	}
	return nil
}

// Delete removes the token from the system keyring.
func (s *KeyringStorage) Delete() error {
	err := keyring.Delete(keyringService, keyringAccount)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete keyring entry: %w", err)
	}
	return nil
}

const secretboxKeySize = 32

// EncryptedFileStorage is the fallback token store: an encrypted file under
// the storage directory, sealed with a locally generated symmetric key.
type EncryptedFileStorage struct {
	dir       string
	tokenFile string
	keyFile   string
}

// NewEncryptedFileStorage creates a file-backed token store rooted at dir.
func NewEncryptedFileStorage(dir string) *EncryptedFileStorage {
	return &EncryptedFileStorage{
		dir:       dir,
		tokenFile: filepath.Join(dir, "tokens.json.enc"),
		keyFile:   filepath.Join(dir, "tokens.key"),
	}
}

func (s *EncryptedFileStorage) getOrCreateKey() (*[secretboxKeySize]byte, error) {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	var key [secretboxKeySize]byte
	data, err := os.ReadFile(s.keyFile)
	if err == nil {
		if len(data) != secretboxKeySize {
			return nil, fmt.Errorf("encryption key file %s is corrupt", s.keyFile)
		}
		copy(key[:], data)
		return &key, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read encryption key: %w", err)
	}

	if _, err := rand.Read(key[:]); err != nil {
		return nil, fmt.Errorf("failed to generate encryption key: %w", err)
	}
	if err := os.WriteFile(s.keyFile, key[:], 0o600); err != nil {
		return nil, fmt.Errorf("failed to write encryption key: %w", err)
	}
	return &key, nil
}

// Load reads and decrypts the stored token.
func (s *EncryptedFileStorage) Load() (*Token, error) {
	data, err := os.ReadFile(s.tokenFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	key, err := s.getOrCreateKey()
	if err != nil {
		return nil, err
	}

	if len(data) < 24 {
		return nil, fmt.Errorf("token file %s is corrupt", s.tokenFile)
	}
	var nonce [24]byte
	copy(nonce[:], data[:24])

	plaintext, ok := secretbox.Open(nil, data[24:], &nonce, key)
	if !ok {
		return nil, fmt.Errorf("failed to decrypt token file %s", s.tokenFile)
	}

	var token Token
	if err := json.Unmarshal(plaintext, &token); err != nil {
		return nil, fmt.Errorf("failed to decode stored token: %w", err)
	}
	return &token, nil
}

// Save encrypts and writes the token. The write goes to a temp file that is
// renamed into place, so a concurrent Load sees either the old or the new
// token, never a torn one.
func (s *EncryptedFileStorage) Save(token *Token) error {
	key, err := s.getOrCreateKey()
	if err != nil {
		return err
	}

	plaintext, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], plaintext, &nonce, key)

	tmp, err := os.CreateTemp(s.dir, "tokens-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp token file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set token file permissions: %w", err)
	}
	if _, err := tmp.Write(sealed); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close token file: %w", err)
	}

	if err := os.Rename(tmpName, s.tokenFile); err != nil {
		return fmt.Errorf("failed to replace token file: %w", err)
	}
	return nil
}

// Delete removes the encrypted token file. The key file is kept.
func (s *EncryptedFileStorage) Delete() error {
	if err := os.Remove(s.tokenFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete token file: %w", err)
	}
	return nil
}

// OpenStorage returns the best available token store: the OS credential
// vault if it is functional, otherwise the encrypted file fallback.
func OpenStorage(storageDir string, logger *slog.Logger) TokenStorage {
	_, err := keyring.Get(keyringService+"-probe", "probe")
	if err == nil || errors.Is(err, keyring.ErrNotFound) {
		return NewKeyringStorage()
	}
	if logger != nil {
		logger.Info("keyring not available, using encrypted file storage", "dir", storageDir)
	}
	return NewEncryptedFileStorage(storageDir)
}
