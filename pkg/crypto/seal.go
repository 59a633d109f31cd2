// Package crypto seals short secrets, such as session refresh tokens, for
// storage in client cookies.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

const (
	// FormatVersion is the first byte of every sealed value.
	FormatVersion = 1

	// Argon2id parameters (OWASP recommended)
	Argon2Time    = 3
	Argon2Memory  = 64 * 1024 // 64 MB
	Argon2Threads = 4
	Argon2KeyLen  = 32 // AES-256

	NonceSize = 12 // GCM standard nonce size

	// Header size: version(1) + nonce(12)
	HeaderSize = 1 + NonceSize
)

// keySalt is fixed so every replica derives the same key from the secret.
var keySalt = []byte("valueminer/session/v1")

var (
	ErrEmptySecret    = errors.New("crypto: empty secret")
	ErrInvalidFormat  = errors.New("crypto: invalid sealed value")
	ErrInvalidVersion = errors.New("crypto: unsupported format version")
	ErrDecryptFailed  = errors.New("crypto: decryption failed: wrong secret or corrupted data")
)

// DeriveKey derives an AES-256 key from a secret using Argon2id.
func DeriveKey(secret string, salt []byte) []byte {
	return argon2.IDKey(
		[]byte(secret),
		salt,
		Argon2Time,
		Argon2Memory,
		Argon2Threads,
		Argon2KeyLen,
	)
}

// Sealer encrypts and authenticates values with AES-256-GCM. The key is
// derived once at construction.
type Sealer struct {
	gcm cipher.AEAD
}

// NewSealer derives the sealing key from secret.
func NewSealer(secret string) (*Sealer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}

	block, err := aes.NewCipher(DeriveKey(secret, keySalt))
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}

	return &Sealer{gcm: gcm}, nil
}

// Seal encrypts plaintext and returns it as unpadded base64url text
// (version + nonce + ciphertext), safe for cookie values.
func (s *Sealer) Seal(plaintext string) (string, error) {
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	out := make([]byte, HeaderSize, HeaderSize+len(plaintext)+s.gcm.Overhead())
	out[0] = FormatVersion
	copy(out[1:HeaderSize], nonce)
	out = s.gcm.Seal(out, nonce, []byte(plaintext), []byte{FormatVersion})

	return base64.RawURLEncoding.EncodeToString(out), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed string) (string, error) {
	data, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil || len(data) < HeaderSize+s.gcm.Overhead() {
		return "", ErrInvalidFormat
	}
	if data[0] != FormatVersion {
		return "", ErrInvalidVersion
	}

	plaintext, err := s.gcm.Open(nil, data[1:HeaderSize], data[HeaderSize:], []byte{FormatVersion})
	if err != nil {
		return "", ErrDecryptFailed
	}
	return string(plaintext), nil
}
