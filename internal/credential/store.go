// Package credential persists the inference API key, encrypted at rest with a
// locally generated symmetric key.
package credential

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// EnvOverride names the environment variable that bypasses the store entirely.
const EnvOverride = "ECHOSIGHT_API_KEY"

// fileShape is the on-disk JSON layout. A plaintext api_key dropped into the
// file by the user is encrypted on the next read and the plaintext cleared.
type fileShape struct {
	APIKey        string `json:"api_key"`
	EncryptedKey  string `json:"encrypted_key"`
	EncryptionKey string `json:"encryption_key"`
}

// Store reads and writes the credential file.
type Store struct {
	path   string
	logger *slog.Logger
}

// NewStore constructs a store rooted at path.
func NewStore(path string, logger *slog.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// Path returns the credential file location.
func (s *Store) Path() string {
	return s.path
}

// Get returns the decrypted API key when available. The environment override
// wins over the file. A plaintext key found in the file is encrypted in place
// before being returned.
func (s *Store) Get() (string, bool) {
	if env := strings.TrimSpace(os.Getenv(EnvOverride)); env != "" {
		return env, true
	}

	shape, err := s.read()
	if err != nil {
		s.logError("read credential file", err)
		return "", false
	}

	if shape.EncryptedKey != "" && shape.EncryptionKey != "" {
		plaintext, err := decrypt(shape.EncryptedKey, shape.EncryptionKey)
		if err != nil {
			s.logError("decrypt credential", err)
			return "", false
		}
		return plaintext, true
	}

	if plain := strings.TrimSpace(shape.APIKey); plain != "" {
		if stored, ok := s.Set(plain); ok {
			return stored, true
		}
		// Encryption failed but the key itself is usable.
		return plain, true
	}

	return "", false
}

// Set encrypts plaintext, persists it, and returns the value actually stored.
// The plaintext field is always cleared in the written file.
func (s *Store) Set(plaintext string) (string, bool) {
	cleaned := strings.TrimSpace(plaintext)
	if cleaned == "" {
		return "", false
	}

	ciphertext, key, err := encrypt(cleaned)
	if err != nil {
		s.logError("encrypt credential", err)
		return "", false
	}

	shape := fileShape{
		APIKey:        "",
		EncryptedKey:  ciphertext,
		EncryptionKey: key,
	}
	if err := s.write(shape); err != nil {
		s.logError("write credential file", err)
		return "", false
	}
	return cleaned, true
}

func (s *Store) read() (fileShape, error) {
	content, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileShape{}, nil
		}
		return fileShape{}, err
	}

	var shape fileShape
	if err := json.Unmarshal(content, &shape); err != nil {
		return fileShape{}, fmt.Errorf("decode %q: %w", s.path, err)
	}
	return shape, nil
}

func (s *Store) write(shape fileShape) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	content, err := json.MarshalIndent(shape, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, append(content, '\n'), 0o600)
}

func (s *Store) logError(op string, err error) {
	if s.logger == nil {
		return
	}
	s.logger.Error(op+" failed", "path", s.path, "error", err.Error())
}

// encrypt seals plaintext with a fresh AES-256-GCM key and returns both the
// ciphertext (nonce-prefixed) and the key, base64 encoded.
func encrypt(plaintext string) (ciphertext string, key string, err error) {
	rawKey := make([]byte, 32)
	if _, err := rand.Read(rawKey); err != nil {
		return "", "", fmt.Errorf("generate key: %w", err)
	}

	sealed, err := seal(rawKey, []byte(plaintext))
	if err != nil {
		return "", "", err
	}

	return base64.StdEncoding.EncodeToString(sealed),
		base64.StdEncoding.EncodeToString(rawKey),
		nil
}

func decrypt(ciphertext string, key string) (string, error) {
	rawKey, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return "", fmt.Errorf("decode encryption key: %w", err)
	}
	sealed, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}

	plaintext, err := open(rawKey, sealed)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func seal(key []byte, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func open(key []byte, sealed []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(sealed) < gcm.NonceSize() {
		return nil, errors.New("ciphertext shorter than nonce")
	}
	nonce, body := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	return gcm.Open(nil, nonce, body, nil)
}
