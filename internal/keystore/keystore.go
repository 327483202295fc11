// Package keystore persists the long-lived refresh token encrypted at rest.
// It is the on-device secure storage collaborator of the session flow: the
// token is written at sign-in, read at start and on every refresh trigger,
// and removed at logout.
package keystore

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const saltLen = 16

// Store reads and writes the single refresh-token slot.
type Store interface {
	Save(token string) error
	// Load returns "" with a nil error when nothing is persisted.
	Load() (string, error)
	Clear() error
}

// FileStore seals the token with a key derived from a device secret.
type FileStore struct {
	path   string
	secret []byte
}

func NewFileStore(path, deviceSecret string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("keystore: empty path")
	}
	if deviceSecret == "" {
		return nil, errors.New("keystore: empty device secret")
	}
	return &FileStore{path: path, secret: []byte(deviceSecret)}, nil
}

func (f *FileStore) Save(token string) error {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("keystore: salt: %w", err)
	}
	aead, err := f.aead(salt)
	if err != nil {
		return err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("keystore: nonce: %w", err)
	}
	sealed := aead.Seal(nil, nonce, []byte(token), nil)

	buf := make([]byte, 0, saltLen+len(nonce)+len(sealed))
	buf = append(buf, salt...)
	buf = append(buf, nonce...)
	buf = append(buf, sealed...)

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("keystore: mkdir: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0o600); err != nil {
		return fmt.Errorf("keystore: write: %w", err)
	}
	return os.Rename(tmp, f.path)
}

func (f *FileStore) Load() (string, error) {
	buf, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("keystore: read: %w", err)
	}
	if len(buf) < saltLen {
		return "", errors.New("keystore: truncated file")
	}
	aead, err := f.aead(buf[:saltLen])
	if err != nil {
		return "", err
	}
	header := saltLen + aead.NonceSize()
	if len(buf) < header {
		return "", errors.New("keystore: truncated file")
	}
	nonce := buf[saltLen:header]
	token, err := aead.Open(nil, nonce, buf[header:], nil)
	if err != nil {
		return "", fmt.Errorf("keystore: open: %w", err)
	}
	return string(token), nil
}

func (f *FileStore) Clear() error {
	err := os.Remove(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (f *FileStore) aead(salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key(f.secret, salt, 1<<15, 8, 1, chacha20poly1305.KeySize)
	if err != nil {
		return nil, fmt.Errorf("keystore: derive key: %w", err)
	}
	return chacha20poly1305.New(key)
}
